package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.LedgerAdjustment("-", "ok")
	c.LedgerAdjustment("-", "ok")
	c.LedgerAdjustment("-", "insufficient")
	c.SagaOutcome("committed")

	if got := testutil.ToFloat64(c.LedgerAdjustments.WithLabelValues("-", "ok")); got != 2 {
		t.Errorf("expected 2 ok decrements, got %v", got)
	}
	if got := testutil.ToFloat64(c.LedgerAdjustments.WithLabelValues("-", "insufficient")); got != 1 {
		t.Errorf("expected 1 insufficient decrement, got %v", got)
	}
	if got := testutil.ToFloat64(c.SagaOutcomes.WithLabelValues("committed")); got != 1 {
		t.Errorf("expected 1 committed saga, got %v", got)
	}
}

func TestCollector_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	// A second collector against the same registry reuses the metrics
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("second registration: %v", err)
	}
}

func TestCollector_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.LedgerAdjustment("SET", "ok")
	c.ObserveStore("decrement", 3*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "ledger_adjustments_total") {
		t.Errorf("expected ledger_adjustments_total in exposition, got:\n%s", body)
	}
	if !strings.Contains(body, "store_roundtrip_duration_seconds") {
		t.Errorf("expected store_roundtrip_duration_seconds in exposition, got:\n%s", body)
	}
}
