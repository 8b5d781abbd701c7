package goShield

import (
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goShield/store"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.Keys.MasterKey = testMasterKey
	return cfg
}

func TestConfigValidateRules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with key valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "missing master key invalid",
			mutate: func(c *Config) {
				c.Keys.MasterKey = nil
			},
			wantValid: false,
		},
		{
			name: "short master key invalid",
			mutate: func(c *Config) {
				c.Keys.MasterKey = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "token ttl zero invalid",
			mutate: func(c *Config) {
				c.Tokens.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "max per session zero invalid",
			mutate: func(c *Config) {
				c.Tokens.MaxPerSession = 0
			},
			wantValid: false,
		},
		{
			name: "max per session oversize invalid",
			mutate: func(c *Config) {
				c.Tokens.MaxPerSession = 300
			},
			wantValid: false,
		},
		{
			name: "issuance policy valid",
			mutate: func(c *Config) {
				c.Tokens.IssuancePolicy = IssueFailOpen
			},
			wantValid: true,
		},
		{
			name: "issuance policy invalid",
			mutate: func(c *Config) {
				c.Tokens.IssuancePolicy = IssuancePolicy(9)
			},
			wantValid: false,
		},
		{
			name: "token prefix empty invalid",
			mutate: func(c *Config) {
				c.Tokens.KeyPrefix = ""
			},
			wantValid: false,
		},
		{
			name: "lockout disabled valid",
			mutate: func(c *Config) {
				c.Attempts.MaxFailures = 0
			},
			wantValid: true,
		},
		{
			name: "negative failures invalid",
			mutate: func(c *Config) {
				c.Attempts.MaxFailures = -1
			},
			wantValid: false,
		},
		{
			name: "lockout without window invalid",
			mutate: func(c *Config) {
				c.Attempts.Window = 0
			},
			wantValid: false,
		},
		{
			name: "global limit disabled valid",
			mutate: func(c *Config) {
				c.Rate.GlobalLimit = 0
			},
			wantValid: true,
		},
		{
			name: "negative global limit invalid",
			mutate: func(c *Config) {
				c.Rate.GlobalLimit = -5
			},
			wantValid: false,
		},
		{
			name: "global limit without window invalid",
			mutate: func(c *Config) {
				c.Rate.GlobalWindow = 0
			},
			wantValid: false,
		},
		{
			name: "route override valid",
			mutate: func(c *Config) {
				c.Rate.Routes = map[string]RouteLimit{
					"/login": {Limit: 5, Window: time.Minute},
				}
			},
			wantValid: true,
		},
		{
			name: "route override empty route invalid",
			mutate: func(c *Config) {
				c.Rate.Routes = map[string]RouteLimit{
					"": {Limit: 5, Window: time.Minute},
				}
			},
			wantValid: false,
		},
		{
			name: "route override negative limit invalid",
			mutate: func(c *Config) {
				c.Rate.Routes = map[string]RouteLimit{
					"/login": {Limit: -1, Window: time.Minute},
				}
			},
			wantValid: false,
		},
		{
			name: "route override without window invalid",
			mutate: func(c *Config) {
				c.Rate.Routes = map[string]RouteLimit{
					"/login": {Limit: 5},
				}
			},
			wantValid: false,
		},
		{
			name: "channel leeway valid",
			mutate: func(c *Config) {
				c.Channel.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "channel leeway oversize invalid",
			mutate: func(c *Config) {
				c.Channel.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "channel ttl zero invalid",
			mutate: func(c *Config) {
				c.Channel.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "channel cookie name empty invalid",
			mutate: func(c *Config) {
				c.Channel.CookieName = ""
			},
			wantValid: false,
		},
		{
			name: "channel disabled skips cookie checks",
			mutate: func(c *Config) {
				c.Channel.Enabled = false
				c.Channel.TTL = 0
				c.Channel.CookieName = ""
			},
			wantValid: true,
		},
		{
			name: "safe methods empty invalid",
			mutate: func(c *Config) {
				c.Guard.SafeMethods = nil
			},
			wantValid: false,
		},
		{
			name: "safe methods blank entry invalid",
			mutate: func(c *Config) {
				c.Guard.SafeMethods = []string{"GET", ""}
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestConfigValidatePrefixCollisionRejected(t *testing.T) {
	cfg := validTestConfig()
	cfg.Tokens.KeyPrefix = "shared"
	cfg.Rate.KeyPrefix = "shared"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "distinct") {
		t.Fatalf("expected prefix collision rejection, got %v", err)
	}
}

func TestConfigValidateRequiresSubmissionCarrier(t *testing.T) {
	cfg := validTestConfig()
	cfg.Channel.HeaderName = ""
	cfg.Channel.FormField = ""

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "carrier") {
		t.Fatalf("expected missing carrier rejection, got %v", err)
	}
}

func TestBuildConfigImmutabilityAgainstExternalMutation(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := validTestConfig()
	cfg.Keys.MasterKey = []byte("immutability-test-key-32-bytes!!")
	cfg.Channel.Enabled = false
	cfg.Rate.Routes = map[string]RouteLimit{
		"/login": {Limit: 5, Window: time.Minute},
	}

	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	before := engine.config.Keys.MasterKey[0]
	cfg.Keys.MasterKey[0] = 'X'
	cfg.Rate.Routes["/transfer"] = RouteLimit{Limit: 1, Window: time.Minute}
	cfg.Guard.SafeMethods[0] = "POST"

	if engine.config.Keys.MasterKey[0] != before {
		t.Fatal("engine config key mutated from external config after build")
	}
	if len(engine.config.Rate.Routes) != 1 {
		t.Fatal("engine route overrides mutated from external config after build")
	}
	if engine.config.Guard.SafeMethods[0] != "GET" {
		t.Fatal("engine safe methods mutated from external config after build")
	}
}

func TestSecurityReportReflectsPosture(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := validTestConfig()
	cfg.Tokens.TTL = 10 * time.Minute
	cfg.Tokens.MaxPerSession = 4
	cfg.Tokens.SingleUse = true
	cfg.Tokens.IssuancePolicy = IssueFailOpen
	cfg.Channel.Enabled = true
	cfg.Attempts.MaxFailures = 3
	cfg.Rate.GlobalLimit = 50
	cfg.Rate.Routes = map[string]RouteLimit{
		"/login":    {Limit: 5, Window: time.Minute},
		"/transfer": {Limit: 2, Window: time.Minute},
	}
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true

	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	if report.TokenTTL != 10*time.Minute {
		t.Fatalf("expected 10m token TTL in report, got %v", report.TokenTTL)
	}
	if report.MaxTokensPerSession != 4 {
		t.Fatalf("expected 4 tokens per session in report, got %d", report.MaxTokensPerSession)
	}
	if !report.SingleUse {
		t.Fatal("expected SingleUse=true in report")
	}
	if report.IssuancePolicy != IssueFailOpen {
		t.Fatal("expected fail-open issuance in report")
	}
	if !report.ChannelBindingOn {
		t.Fatal("expected channel binding on in report")
	}
	if report.LockThreshold != 3 {
		t.Fatalf("expected lock threshold 3 in report, got %d", report.LockThreshold)
	}
	if report.GlobalRateLimit != 50 {
		t.Fatalf("expected global rate limit 50 in report, got %d", report.GlobalRateLimit)
	}
	if report.RouteOverrides != 2 {
		t.Fatalf("expected 2 route overrides in report, got %d", report.RouteOverrides)
	}
	if !report.AuditEnabled || !report.MetricsEnabled {
		t.Fatal("expected audit and metrics enabled in report")
	}
}

func TestBuilderRequiresBackend(t *testing.T) {
	cfg := validTestConfig()

	_, err := New().WithConfig(cfg).Build()
	if err == nil || !strings.Contains(err.Error(), "redis client or store required") {
		t.Fatalf("expected backend requirement error, got %v", err)
	}
}

func TestBuilderRejectsDualBackend(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	_, err := New().
		WithConfig(validTestConfig()).
		WithRedis(rdb).
		WithStore(store.NewRedisKV(rdb)).
		Build()
	if err == nil || !strings.Contains(err.Error(), "not both") {
		t.Fatalf("expected dual backend rejection, got %v", err)
	}
}

func TestBuilderRejectsSecondBuild(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	builder := New().WithConfig(validTestConfig()).WithRedis(rdb)
	if _, err := builder.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}

	_, err := builder.Build()
	if err == nil || !strings.Contains(err.Error(), "builder already used") {
		t.Fatalf("expected second build rejection, got %v", err)
	}
}
