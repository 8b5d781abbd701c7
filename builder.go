package goShield

import (
	"errors"

	"github.com/MrEthical07/goShield/channel"
	"github.com/MrEthical07/goShield/internal"
	"github.com/MrEthical07/goShield/internal/limiters"
	"github.com/MrEthical07/goShield/internal/rate"
	"github.com/MrEthical07/goShield/internal/stores"
	"github.com/MrEthical07/goShield/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	tokenMACKeyInfo    = "goshield/token-mac/v1"
	channelSignKeyInfo = "goshield/channel-sign/v1"
)

// Builder defines a public type used by goShield APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	kv     store.KV

	logger    *zerolog.Logger
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithMasterKey describes the withmasterkey operation and its observable behavior.
//
// WithMasterKey may return an error when input validation, dependency calls, or security checks fail.
// WithMasterKey does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMasterKey(key []byte) *Builder {
	b.config.Keys.MasterKey = cloneBytes(key)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore describes the withstore operation and its observable behavior.
//
// WithStore may return an error when input validation, dependency calls, or security checks fail.
// WithStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStore(kv store.KV) *Builder {
	b.kv = kv
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil && b.kv == nil {
		return nil, errors.New("redis client or store required")
	}
	if b.redis != nil && b.kv != nil {
		return nil, errors.New("provide either a redis client or a store, not both")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kv := b.kv
	if kv == nil {
		kv = store.NewRedisKV(b.redis)
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	// -------- KEY DERIVATION --------
	macKey, err := internal.DeriveKey(cfg.Keys.MasterKey, tokenMACKeyInfo)
	if err != nil {
		return nil, err
	}

	// -------- CHANNEL MANAGER --------
	var channelManager *channel.Manager
	if cfg.Channel.Enabled {
		signKey, err := internal.DeriveKey(cfg.Keys.MasterKey, channelSignKeyInfo)
		if err != nil {
			return nil, err
		}
		channelManager, err = channel.NewManager(channel.Config{
			Key:    signKey[:],
			TTL:    cfg.Channel.TTL,
			Issuer: cfg.Channel.Issuer,
			Leeway: cfg.Channel.Leeway,
		})
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:  cfg,
		kv:      kv,
		logger:  logger,
		macKey:  macKey,
		channel: channelManager,
	}

	// -------- TOKEN SET STORE --------
	engine.tokens = stores.NewTokenSetStore(kv, cfg.Tokens.KeyPrefix, cfg.Tokens.MaxPerSession)

	// -------- FAILURE LIMITER --------
	engine.failures = limiters.NewFailureLimiter(kv, limiters.FailureConfig{
		Threshold: cfg.Attempts.MaxFailures,
		Window:    cfg.Attempts.Window,
		Prefix:    cfg.Attempts.KeyPrefix,
	})

	// -------- RATE LIMITER --------
	engine.rate = rate.New(kv, cfg.Rate.KeyPrefix)

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
