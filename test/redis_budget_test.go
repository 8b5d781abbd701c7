//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	goShield "github.com/MrEthical07/goShield"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis Hook that counts the number of Redis round-trips
// (individual commands and pipeline calls).
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		// Each pipeline call is one network round-trip regardless of command count.
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

// newCountedEngine builds an engine backed by miniredis with a cmdCounter
// hook installed. Reset the counter before each measured operation; warm any
// script-backed path first so the one-time EVAL fallback is not counted.
func newCountedEngine(t *testing.T, mutate func(*goShield.Config)) (*goShield.Engine, *cmdCounter, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	// Warm the connection: go-redis may emit extra commands on first use
	// (handshake, CLIENT SETNAME, etc.). Pinging before measuring keeps that
	// noise out of the budgets.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}

	cfg := integrationConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := goShield.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	counter.Reset()
	return engine, counter, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

// TestIssueTokenRedisBudget verifies that issuing a token costs at most one
// record read plus one CAS script call.
func TestIssueTokenRedisBudget(t *testing.T) {
	engine, counter, cleanup := newCountedEngine(t, nil)
	defer cleanup()

	ctx := context.Background()

	// First issuance caches the CAS script (EVALSHA may fall back to EVAL).
	if _, err := engine.IssueToken(ctx, "sid-budget-issue"); err != nil {
		t.Fatalf("warmup issue: %v", err)
	}

	counter.Reset()

	if _, err := engine.IssueToken(ctx, "sid-budget-issue"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	// GET (record load) + EVALSHA (CAS write) = 2 commands once the script
	// is cached; allow one extra for an EVAL fallback.
	cmds := counter.Commands()
	if cmds > 3 {
		t.Errorf("IssueToken used %d Redis commands; budget is <= 3 (GET + CAS)", cmds)
	}
	t.Logf("IssueToken: %d commands, %d pipelines", cmds, counter.Pipelines())
}

// TestValidateTokenRedisBudget verifies that validating a reusable token is
// read-only: one lockout-counter read plus one record read.
func TestValidateTokenRedisBudget(t *testing.T) {
	engine, counter, cleanup := newCountedEngine(t, nil)
	defer cleanup()

	ctx := context.Background()
	token, err := engine.IssueToken(ctx, "sid-budget-validate")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	counter.Reset()

	if err := engine.ValidateToken(ctx, "sid-budget-validate", token.ID, token.Secret); err != nil {
		t.Fatalf("validate: %v", err)
	}

	cmds := counter.Commands()
	if cmds > 2 {
		t.Errorf("ValidateToken used %d Redis commands; budget is <= 2 (GET + GET)", cmds)
	}
	t.Logf("ValidateToken: %d commands, %d pipelines", cmds, counter.Pipelines())
}

// TestSingleUseValidateRedisBudget verifies that consuming a single-use token
// adds exactly one CAS write on top of the read-only validate path.
func TestSingleUseValidateRedisBudget(t *testing.T) {
	engine, counter, cleanup := newCountedEngine(t, func(cfg *goShield.Config) {
		cfg.Tokens.SingleUse = true
	})
	defer cleanup()

	ctx := context.Background()

	// Warm the CAS script through an issuance cycle.
	token, err := engine.IssueToken(ctx, "sid-budget-consume")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	counter.Reset()

	if err := engine.ValidateToken(ctx, "sid-budget-consume", token.ID, token.Secret); err != nil {
		t.Fatalf("validate: %v", err)
	}

	// GET (lockout) + GET (record) + EVALSHA (consume swap), with one spare
	// for an EVAL fallback.
	cmds := counter.Commands()
	if cmds > 4 {
		t.Errorf("single-use validate used %d Redis commands; budget is <= 4", cmds)
	}
	t.Logf("single-use validate: %d commands, %d pipelines", cmds, counter.Pipelines())
}

// TestRateCheckRedisBudget verifies the fixed-window check costs one INCR plus
// a window-opening EXPIRE, and a bare INCR afterwards.
func TestRateCheckRedisBudget(t *testing.T) {
	engine, counter, cleanup := newCountedEngine(t, func(cfg *goShield.Config) {
		cfg.Rate.GlobalLimit = 100
	})
	defer cleanup()

	ctx := context.Background()
	req := goShield.Request{SessionID: "sid-budget-rate", Route: "/op", Method: "POST"}

	counter.Reset()

	if _, err := engine.CheckRate(ctx, req); err != nil {
		t.Fatalf("first rate check: %v", err)
	}
	first := counter.Commands()
	if first > 2 {
		t.Errorf("window-opening rate check used %d Redis commands; budget is <= 2 (INCR + EXPIRE)", first)
	}

	counter.Reset()

	if _, err := engine.CheckRate(ctx, req); err != nil {
		t.Fatalf("second rate check: %v", err)
	}
	steady := counter.Commands()
	if steady > 1 {
		t.Errorf("steady-state rate check used %d Redis commands; budget is <= 1 (INCR)", steady)
	}
	t.Logf("rate check: first %d, steady %d commands", first, steady)
}
