package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu      sync.Mutex
	imports map[string]*importCounters
	started time.Time
}

type importCounters struct {
	Runs    uint64 `json:"runs"`
	Rows    uint64 `json:"rows"`
	Skipped uint64 `json:"skipped"`
	Failed  uint64 `json:"failed"`
}

func New() *Collector {
	return &Collector{imports: map[string]*importCounters{}, started: time.Now()}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordImport counts one import of kind. A failed import counts as a run
// with no rows.
func (c *Collector) RecordImport(kind string, rows, skipped int, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counters, ok := c.imports[kind]
	if !ok {
		counters = &importCounters{}
		c.imports[kind] = counters
	}
	counters.Runs++
	if failed {
		counters.Failed++
		return
	}
	counters.Rows += uint64(max(rows, 0))
	counters.Skipped += uint64(max(skipped, 0))
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	imports := make(map[string]importCounters, len(c.imports))
	for kind, counters := range c.imports {
		imports[kind] = *counters
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"imports":          imports,
		"uptimeSec":        int64(time.Since(c.started).Seconds()),
	}
}
