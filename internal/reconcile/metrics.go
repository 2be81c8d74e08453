package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Sink receives the four reconciliation counters. Implementations must be
// safe for concurrent use.
type Sink interface {
	IncMatched()
	IncPending()
	IncRetried()
	IncFailed()
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	Matched uint64
	Pending uint64
	Retried uint64
	Failed  uint64
}

// Counters is a Sink backed by Prometheus counters registered on a private
// registry, so several instances can coexist in one process.
type Counters struct {
	registry *prometheus.Registry
	matched  prometheus.Counter
	pending  prometheus.Counter
	retried  prometheus.Counter
	failed   prometheus.Counter
}

// NewCounters registers the mycontracts_ocr_*_total counters on a fresh registry.
func NewCounters() *Counters {
	c := &Counters{
		registry: prometheus.NewRegistry(),
		matched:  newCounter("mycontracts_ocr_matched_total", "OCR records matched to a stored file."),
		pending:  newCounter("mycontracts_ocr_pending_total", "OCR records discovered and inserted as pending."),
		retried:  newCounter("mycontracts_ocr_retried_total", "Match attempts that found no stored file."),
		failed:   newCounter("mycontracts_ocr_failed_total", "OCR records that exhausted their retries."),
	}
	c.registry.MustRegister(c.matched, c.pending, c.retried, c.failed)
	return c
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
}

func (c *Counters) IncMatched() { c.matched.Inc() }
func (c *Counters) IncPending() { c.pending.Inc() }
func (c *Counters) IncRetried() { c.retried.Inc() }
func (c *Counters) IncFailed()  { c.failed.Inc() }

// Gatherer exposes the registry for the /metrics handler.
func (c *Counters) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Snapshot reads the current values from the registered counters.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Matched: counterValue(c.matched),
		Pending: counterValue(c.pending),
		Retried: counterValue(c.retried),
		Failed:  counterValue(c.failed),
	}
}

func counterValue(counter prometheus.Counter) uint64 {
	var m dto.Metric
	if err := counter.Write(&m); err != nil {
		return 0
	}
	return uint64(m.GetCounter().GetValue())
}

type nopSink struct{}

func (nopSink) IncMatched() {}
func (nopSink) IncPending() {}
func (nopSink) IncRetried() {}
func (nopSink) IncFailed()  {}
