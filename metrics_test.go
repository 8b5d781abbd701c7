package goShield

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricTokenIssued)

	if got := m.Value(MetricTokenIssued); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricTokenIssued)
	m.Inc(MetricTokenIssued)
	m.Inc(MetricTokenIssued)

	if got := m.Value(MetricTokenIssued); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricValidateOK)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricValidateOK); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricValidateLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricValidateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounterIDs(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	m.Observe(MetricTokenIssued, 5*time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricTokenIssued]; ok {
		t.Fatal("expected no histogram for a counter metric")
	}
	if got := m.Value(MetricTokenIssued); got != 0 {
		t.Fatalf("expected counter untouched, got %d", got)
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricValidateOK)
	m.Inc(MetricValidateInvalid)
	m.Inc(MetricValidateInvalid)
	m.Observe(MetricValidateLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricValidateOK] != 1 {
		t.Fatalf("expected MetricValidateOK=1 got %d", snap.Counters[MetricValidateOK])
	}
	if snap.Counters[MetricValidateInvalid] != 2 {
		t.Fatalf("expected MetricValidateInvalid=2 got %d", snap.Counters[MetricValidateInvalid])
	}
	if len(snap.Histograms[MetricValidateLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricValidateLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricValidateLatency][0])
	}
}

func TestEngineMetricsTrackValidationOutcomes(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	engine := newTestEngine(t, rdb, func(cfg *Config) {
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
	})

	token, err := engine.IssueToken(ctx, "s1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if err := engine.ValidateToken(ctx, "s1", token.ID, token.Secret); err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	_ = engine.ValidateToken(ctx, "s1", token.ID, flipSecret(t, token.Secret))
	_ = engine.ValidateToken(ctx, "s1", "unknown", token.Secret)

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricTokenIssued] != 1 {
		t.Fatalf("expected one issuance, got %d", snap.Counters[MetricTokenIssued])
	}
	if snap.Counters[MetricValidateOK] != 1 {
		t.Fatalf("expected one ok validation, got %d", snap.Counters[MetricValidateOK])
	}
	if snap.Counters[MetricValidateInvalid] != 1 {
		t.Fatalf("expected one invalid validation, got %d", snap.Counters[MetricValidateInvalid])
	}
	if snap.Counters[MetricValidateMissing] != 1 {
		t.Fatalf("expected one missing validation, got %d", snap.Counters[MetricValidateMissing])
	}

	total := uint64(0)
	for _, v := range snap.Histograms[MetricValidateLatency] {
		total += v
	}
	if total != 3 {
		t.Fatalf("expected 3 latency observations, got %d", total)
	}
}
