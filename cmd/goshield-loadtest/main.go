package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goShield "github.com/MrEthical07/goShield"
	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type envConfig struct {
	RedisAddr   string `env:"REDIS_ADDR"`
	Sessions    int    `env:"LOADTEST_SESSIONS" envDefault:"5000"`
	Concurrency int    `env:"LOADTEST_CONCURRENCY" envDefault:"128"`
	Ops         int    `env:"LOADTEST_OPS" envDefault:"100000"`
	RatePerSec  int    `env:"LOADTEST_RATE" envDefault:"0"`
	Channel     bool   `env:"LOADTEST_CHANNEL" envDefault:"false"`
}

type sessionState struct {
	sid        string
	submission string
	channel    string
}

func main() {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	var defaults envConfig
	if err := env.Parse(&defaults); err != nil {
		fmt.Fprintf(os.Stderr, "env parse failed: %v\n", err)
		os.Exit(2)
	}

	var (
		sessions    = flag.Int("sessions", defaults.Sessions, "number of sessions to seed")
		concurrency = flag.Int("concurrency", defaults.Concurrency, "number of concurrent workers")
		ops         = flag.Int("ops", defaults.Ops, "operations per phase (validate + authorize)")
		ratePerSec  = flag.Int("rate", defaults.RatePerSec, "paced operations per second across workers; 0 runs unpaced")
		redisAddr   = flag.String("redis-addr", defaults.RedisAddr, "redis address; if empty, REDIS_ADDR env or miniredis is used")
		withChannel = flag.Bool("channel", defaults.Channel, "enable channel binding during the run")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if *redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{*redisAddr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", *redisAddr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *withChannel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	var limiter *rate.Limiter
	if *ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(*ratePerSec), *concurrency)
		fmt.Printf("pacing at %d ops/sec\n", *ratePerSec)
	}

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		sid := fmt.Sprintf("sid-%d", i)
		token, err := engine.IssueToken(ctx, sid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed issue failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = sessionState{sid: sid, submission: token.Submission, channel: token.ChannelToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(ctx, states, *ops, *concurrency, limiter, func(ctx context.Context, s *sessionState) error {
		return engine.ValidateRequest(ctx, goShield.Request{
			SessionID:    s.sid,
			Submission:   s.submission,
			ChannelToken: s.channel,
		})
	})
	authorizeStats := runPhase(ctx, states, *ops, *concurrency, limiter, func(ctx context.Context, s *sessionState) error {
		_, err := engine.Authorize(ctx, goShield.Request{
			SessionID:    s.sid,
			ClientIP:     "203.0.113.10",
			Route:        "/op",
			Method:       http.MethodPost,
			Submission:   s.submission,
			ChannelToken: s.channel,
		})
		return err
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("authorize", authorizeStats)
}

func buildEngine(client redis.UniversalClient, withChannel bool) (*goShield.Engine, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	// The global limiter is off so the run measures the token path, not the
	// engine throttling its own load generator.
	cfg := goShield.Config{
		Keys: goShield.KeysConfig{MasterKey: key},
		Tokens: goShield.TokensConfig{
			TTL:            time.Hour,
			MaxPerSession:  10,
			IssuancePolicy: goShield.IssueFailClosed,
			KeyPrefix:      "aft",
		},
		Attempts: goShield.AttemptsConfig{
			MaxFailures: 5,
			Window:      5 * time.Minute,
			KeyPrefix:   "afl",
		},
		Rate: goShield.RateConfig{
			GlobalLimit: 0,
			KeyPrefix:   "afr",
		},
		Channel: goShield.ChannelConfig{
			Enabled:        withChannel,
			TTL:            24 * time.Hour,
			Issuer:         "goshield",
			Leeway:         30 * time.Second,
			CookieName:     "goshield_csrf",
			HeaderName:     "X-CSRF-Token",
			FormField:      "csrf_token",
			SameSitePolicy: http.SameSiteStrictMode,
		},
		Guard: goShield.GuardConfig{
			SafeMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace},
		},
	}

	return goShield.New().WithConfig(cfg).WithRedis(client).Build()
}

func runPhase(ctx context.Context, states []sessionState, ops, concurrency int, limiter *rate.Limiter, op func(context.Context, *sessionState) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				err := op(ctx, &states[idx])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
