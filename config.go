package goShield

import (
	"errors"
	"net/http"
	"time"
)

// Config defines a public type used by goShield APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Keys     KeysConfig
	Tokens   TokensConfig
	Attempts AttemptsConfig
	Rate     RateConfig
	Channel  ChannelConfig
	Guard    GuardConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
KEYS CONFIG
====================================
*/

// KeysConfig defines a public type used by goShield APIs.
//
// KeysConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type KeysConfig struct {
	MasterKey []byte // >= 32 bytes; per-purpose subkeys are derived, never used raw
}

/*
====================================
TOKENS CONFIG
====================================
*/

// TokensConfig defines a public type used by goShield APIs.
//
// TokensConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokensConfig struct {
	TTL            time.Duration
	MaxPerSession  int // oldest entry is evicted beyond this bound
	SingleUse      bool
	IssuancePolicy IssuancePolicy
	KeyPrefix      string
}

/*
====================================
ATTEMPTS CONFIG
====================================
*/

// AttemptsConfig defines a public type used by goShield APIs.
//
// AttemptsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AttemptsConfig struct {
	MaxFailures int // 0 disables lockout
	Window      time.Duration
	KeyPrefix   string
}

/*
====================================
RATE CONFIG
====================================
*/

// RateConfig defines a public type used by goShield APIs.
//
// RateConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateConfig struct {
	GlobalLimit  int // 0 disables the global limiter
	GlobalWindow time.Duration
	Routes       map[string]RouteLimit
	KeyPrefix    string
}

/*
====================================
CHANNEL CONFIG
====================================
*/

// ChannelConfig defines a public type used by goShield APIs.
//
// ChannelConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChannelConfig struct {
	Enabled              bool
	TTL                  time.Duration
	Issuer               string
	Leeway               time.Duration
	CookieName           string
	HeaderName           string
	FormField            string
	RequireSecureCookies bool
	SameSitePolicy       http.SameSite
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig defines a public type used by goShield APIs.
//
// GuardConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GuardConfig struct {
	SafeMethods []string
}

// AuditConfig defines a public type used by goShield APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goShield APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Tokens: TokensConfig{
			TTL:            15 * time.Minute,
			MaxPerSession:  10,
			SingleUse:      false,
			IssuancePolicy: IssueFailClosed,
			KeyPrefix:      "aft",
		},
		Attempts: AttemptsConfig{
			MaxFailures: 5,
			Window:      5 * time.Minute,
			KeyPrefix:   "afl",
		},
		Rate: RateConfig{
			GlobalLimit:  100,
			GlobalWindow: 15 * time.Minute,
			KeyPrefix:    "afr",
		},
		Channel: ChannelConfig{
			Enabled:              true,
			TTL:                  24 * time.Hour,
			Issuer:               "goshield",
			Leeway:               30 * time.Second,
			CookieName:           "goshield_csrf",
			HeaderName:           "X-CSRF-Token",
			FormField:            "csrf_token",
			RequireSecureCookies: true,
			SameSitePolicy:       http.SameSiteStrictMode,
		},
		Guard: GuardConfig{
			SafeMethods: []string{
				http.MethodGet,
				http.MethodHead,
				http.MethodOptions,
				http.MethodTrace,
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Keys.MasterKey = cloneBytes(cfg.Keys.MasterKey)
	if cfg.Rate.Routes != nil {
		out.Rate.Routes = make(map[string]RouteLimit, len(cfg.Rate.Routes))
		for route, rl := range cfg.Rate.Routes {
			out.Rate.Routes[route] = rl
		}
	}
	if cfg.Guard.SafeMethods != nil {
		out.Guard.SafeMethods = append([]string(nil), cfg.Guard.SafeMethods...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Keys
	if len(c.Keys.MasterKey) < 32 {
		return errors.New("Keys MasterKey must be >= 32 bytes")
	}

	// Tokens
	if c.Tokens.TTL <= 0 {
		return errors.New("Tokens TTL must be > 0")
	}
	if c.Tokens.MaxPerSession <= 0 {
		return errors.New("Tokens MaxPerSession must be > 0")
	}
	if c.Tokens.MaxPerSession > 255 {
		return errors.New("Tokens MaxPerSession must be <= 255")
	}
	switch c.Tokens.IssuancePolicy {
	case IssueFailClosed, IssueFailOpen:
		// valid
	default:
		return errors.New("Tokens IssuancePolicy is invalid")
	}
	if c.Tokens.KeyPrefix == "" {
		return errors.New("Tokens KeyPrefix is required")
	}

	// Attempts
	if c.Attempts.MaxFailures < 0 {
		return errors.New("Attempts MaxFailures must be >= 0")
	}
	if c.Attempts.MaxFailures > 0 && c.Attempts.Window <= 0 {
		return errors.New("Attempts Window must be > 0 when lockout is enabled")
	}
	if c.Attempts.KeyPrefix == "" {
		return errors.New("Attempts KeyPrefix is required")
	}

	// Rate
	if c.Rate.GlobalLimit < 0 {
		return errors.New("Rate GlobalLimit must be >= 0")
	}
	if c.Rate.GlobalLimit > 0 && c.Rate.GlobalWindow <= 0 {
		return errors.New("Rate GlobalWindow must be > 0 when the global limit is enabled")
	}
	for route, rl := range c.Rate.Routes {
		if route == "" {
			return errors.New("Rate Routes must not contain an empty route")
		}
		if rl.Limit < 0 {
			return errors.New("Rate Routes limits must be >= 0")
		}
		if rl.Limit > 0 && rl.Window <= 0 {
			return errors.New("Rate Routes windows must be > 0 when their limit is enabled")
		}
	}
	if c.Rate.KeyPrefix == "" {
		return errors.New("Rate KeyPrefix is required")
	}

	// Prefix collisions would let counters shadow token records.
	if c.Tokens.KeyPrefix == c.Attempts.KeyPrefix ||
		c.Tokens.KeyPrefix == c.Rate.KeyPrefix ||
		c.Attempts.KeyPrefix == c.Rate.KeyPrefix {
		return errors.New("store key prefixes must be distinct")
	}

	// Channel
	if c.Channel.Enabled {
		if c.Channel.TTL <= 0 {
			return errors.New("Channel TTL must be > 0 when channel binding is enabled")
		}
		if c.Channel.Leeway < 0 {
			return errors.New("Channel Leeway must be >= 0")
		}
		if c.Channel.Leeway > 2*time.Minute {
			return errors.New("Channel Leeway must be <= 2m")
		}
		if c.Channel.CookieName == "" {
			return errors.New("Channel CookieName is required when channel binding is enabled")
		}
	}
	if c.Channel.HeaderName == "" && c.Channel.FormField == "" {
		return errors.New("Channel requires a submission carrier (HeaderName or FormField)")
	}

	// Guard
	if len(c.Guard.SafeMethods) == 0 {
		return errors.New("Guard SafeMethods must not be empty")
	}
	for _, m := range c.Guard.SafeMethods {
		if m == "" {
			return errors.New("Guard SafeMethods must not contain an empty method")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
