package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	recorder.Observe(context.Background(), "register_product", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "register_product", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]bool{}
	for _, mf := range families {
		byName[mf.GetName()] = true
		if mf.GetName() == "trackx_operations_total" {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			if total != 2 {
				t.Fatalf("expected 2 observations, got %v", total)
			}
		}
	}
	if !byName["trackx_operations_total"] || !byName["trackx_operation_duration_seconds"] {
		t.Fatalf("expected both collectors registered, got %v", byName)
	}

	// Double registration against the same registry must fail.
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestPrometheusRecorderServesService(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithMetricsRecorder(recorder))
	if _, _, err := svc.RegisterProduct(context.Background(), manufacturer, ProductInput{Name: "Box", LotNumber: "L1"}); err != nil {
		t.Fatalf("register product: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected recorded metrics")
	}
}
