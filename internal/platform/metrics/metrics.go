package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	computationsTotal    uint64
	computationErrors    uint64
	directoryUnavailable uint64
	breakerOpens         uint64
	totalDurationMs      uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) RecordComputation(failed bool, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.computationsTotal, 1)
	if failed {
		atomic.AddUint64(&c.computationErrors, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordDirectoryUnavailable() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.directoryUnavailable, 1)
}

func (c *Collector) RecordBreakerOpen() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.breakerOpens, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.computationsTotal)
	errs := atomic.LoadUint64(&c.computationErrors)
	unavailable := atomic.LoadUint64(&c.directoryUnavailable)
	opens := atomic.LoadUint64(&c.breakerOpens)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"computationsTotal":    total,
		"computationErrors":    errs,
		"directoryUnavailable": unavailable,
		"breakerOpens":         opens,
		"avgDurationMs":        avg,
		"totalDurationMs":      totalMs,
	}
}
