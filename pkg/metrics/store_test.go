package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStoreMetricsExportsCountersGaugesAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStoreMetrics(reg)

	metrics.IncOperation("cart", "add_item", OutcomeOK)
	metrics.IncOperation("cart", "add_item", OutcomeOK)
	metrics.IncOperation("cart", "add_item", OutcomeRejected)
	metrics.ObserveBackendCall("login", 150*time.Millisecond)
	metrics.SetCartSize(2, 5)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "store_operations_total", "outcome", OutcomeOK); err != nil {
		t.Fatalf("fetch ok: %v", err)
	} else if got != 2 {
		t.Fatalf("expected ok=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "store_operations_total", "outcome", OutcomeRejected); err != nil {
		t.Fatalf("fetch rejected: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejected=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "store_backend_call_duration_seconds", "operation", "login"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
	if got := fetchGaugeValue(mfs, "cart_units"); got != 5 {
		t.Fatalf("expected cart_units=5, got %f", got)
	}
	if got := fetchGaugeValue(mfs, "cart_items"); got != 2 {
		t.Fatalf("expected cart_items=2, got %f", got)
	}
}

func TestNilStoreMetricsIsNoop(t *testing.T) {
	var m *StoreMetrics
	m.IncOperation("cart", "clear", OutcomeOK)
	m.ObserveBackendCall("login", time.Second)
	m.SetCartSize(1, 1)

	NewStoreMetrics(nil).IncOperation("", "", "")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name string) float64 {
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		return -1
	}
	return mf.GetMetric()[0].GetGauge().GetValue()
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
