package reconcile_test

import (
	"testing"

	"github.com/felix-dieterle/mycontracts/internal/reconcile"
)

func TestCountersSnapshotMatchesGatheredFamilies(t *testing.T) {
	counters := reconcile.NewCounters()
	counters.IncMatched()
	counters.IncPending()
	counters.IncPending()
	counters.IncRetried()
	counters.IncRetried()
	counters.IncRetried()

	snap := counters.Snapshot()
	if snap != (reconcile.CounterSnapshot{Matched: 1, Pending: 2, Retried: 3, Failed: 0}) {
		t.Fatalf("snapshot = %+v", snap)
	}

	families, err := counters.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := make(map[string]float64, len(families))
	for _, family := range families {
		if len(family.GetMetric()) != 1 {
			t.Fatalf("%s has %d series", family.GetName(), len(family.GetMetric()))
		}
		got[family.GetName()] = family.GetMetric()[0].GetCounter().GetValue()
	}
	want := map[string]float64{
		"mycontracts_ocr_matched_total": 1,
		"mycontracts_ocr_pending_total": 2,
		"mycontracts_ocr_retried_total": 3,
		"mycontracts_ocr_failed_total":  0,
	}
	for name, value := range want {
		if got[name] != value {
			t.Fatalf("%s = %v, want %v (gathered %v)", name, got[name], value, got)
		}
	}
}

func TestCountersUseSeparateRegistries(t *testing.T) {
	first := reconcile.NewCounters()
	second := reconcile.NewCounters()
	first.IncFailed()

	if got := second.Snapshot().Failed; got != 0 {
		t.Fatalf("second failed = %d, want 0", got)
	}
	if got := first.Snapshot().Failed; got != 1 {
		t.Fatalf("first failed = %d, want 1", got)
	}
}
