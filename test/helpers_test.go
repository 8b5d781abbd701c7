//go:build integration
// +build integration

package test

import (
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	goShield "github.com/MrEthical07/goShield"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var integrationMasterKey = []byte("0123456789abcdef0123456789abcdef")

// integrationConfig is the baseline engine configuration for the suite:
// channel binding and the global limiter start disabled so each test turns on
// exactly the behavior it measures.
func integrationConfig() goShield.Config {
	return goShield.Config{
		Keys: goShield.KeysConfig{MasterKey: integrationMasterKey},
		Tokens: goShield.TokensConfig{
			TTL:           15 * time.Minute,
			MaxPerSession: 10,
			KeyPrefix:     "aft",
		},
		Attempts: goShield.AttemptsConfig{
			MaxFailures: 5,
			Window:      5 * time.Minute,
			KeyPrefix:   "afl",
		},
		Rate: goShield.RateConfig{
			GlobalLimit:  0,
			GlobalWindow: time.Minute,
			KeyPrefix:    "afr",
		},
		Channel: goShield.ChannelConfig{
			Enabled:    false,
			TTL:        24 * time.Hour,
			Issuer:     "goshield",
			Leeway:     30 * time.Second,
			CookieName: "goshield_csrf",
			HeaderName: "X-CSRF-Token",
			FormField:  "csrf_token",
		},
		Guard: goShield.GuardConfig{
			SafeMethods: []string{
				http.MethodGet,
				http.MethodHead,
				http.MethodOptions,
				http.MethodTrace,
			},
		},
		Audit:   goShield.AuditConfig{Enabled: false, BufferSize: 16, DropIfFull: true},
		Metrics: goShield.MetricsConfig{Enabled: false},
	}
}

// newIntegrationEngine builds an engine over a private miniredis instance.
func newIntegrationEngine(t *testing.T, mutate func(*goShield.Config)) (*goShield.Engine, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := integrationConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := goShield.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		_ = rdb.Close()
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

// flipSubmissionByte corrupts one bit of a base64url submission so the MAC
// comparison must fail while the encoding stays well-formed.
func flipSubmissionByte(t *testing.T, submission string) string {
	t.Helper()

	raw, err := base64.RawURLEncoding.DecodeString(submission)
	if err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	raw[len(raw)-1] ^= 0x01
	return base64.RawURLEncoding.EncodeToString(raw)
}
