package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goShield "github.com/MrEthical07/goShield"
)

type fakeSource struct {
	snapshot goShield.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goShield.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goShield.MetricsSnapshot{
			Counters:   map[goShield.MetricID]uint64{},
			Histograms: map[goShield.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goShield.MetricsSnapshot{
			Counters: map[goShield.MetricID]uint64{
				goShield.MetricTokenIssued: 7,
			},
			Histograms: map[goShield.MetricID][]uint64{
				goShield.MetricValidateLatency:  {1, 2, 3, 4, 5, 6, 7, 8},
				goShield.MetricAuthorizeLatency: {2, 0, 0, 0, 0, 0, 0, 0},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "goshield_token_issued_total 7") {
		t.Fatalf("expected token_issued counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "goshield_validate_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "goshield_validate_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "goshield_authorize_latency_seconds_count 2") {
		t.Fatalf("expected authorize latency count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "goshield_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goShield.MetricsSnapshot{
			Counters:   map[goShield.MetricID]uint64{goShield.MetricTokenIssued: 1},
			Histograms: map[goShield.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goShield.MetricsSnapshot{
			Counters: map[goShield.MetricID]uint64{
				goShield.MetricTokenIssued:     1000,
				goShield.MetricValidateOK:      940,
				goShield.MetricValidateInvalid: 40,
				goShield.MetricRateLimited:     10,
				goShield.MetricGuardAllowed:    900,
				goShield.MetricGuardDenied:     60,
				goShield.MetricSessionCleared:  3,
			},
			Histograms: map[goShield.MetricID][]uint64{
				goShield.MetricValidateLatency:  {10, 20, 30, 40, 50, 60, 70, 80},
				goShield.MetricAuthorizeLatency: {15, 25, 35, 45, 55, 65, 75, 85},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
