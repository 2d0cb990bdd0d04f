package ingest

import (
	"sync"
	"sync/atomic"
	"time"
)

// Diagnostic stages, used to group report examples.
const (
	StageDecode    = "decode"
	StageReproject = "reproject"
	StageLoad      = "load"
	StageCollision = "key_collision"
)

// Diagnostic is one non-fatal per-record event kept for diagnosis.
type Diagnostic struct {
	Record int    `json:"record"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Report summarizes a completed (or cancelled) ingestion run.
type Report struct {
	Processed     int64                   `json:"processed"`
	Skipped       int64                   `json:"skipped"`
	LoadFailed    int64                   `json:"load_failed"`
	KeyCollisions int64                   `json:"key_collisions"`
	Upserted      int64                   `json:"upserted"`
	Matched       int64                   `json:"matched"`
	Duration      time.Duration           `json:"duration"`
	Examples      map[string][]Diagnostic `json:"examples,omitempty"`
}

// collector accumulates counters and the first N diagnostic examples per
// stage. Counter updates are atomic so pipeline workers can share it.
type collector struct {
	processed     atomic.Int64
	skipped       atomic.Int64
	loadFailed    atomic.Int64
	keyCollisions atomic.Int64
	upserted      atomic.Int64
	matched       atomic.Int64
	anyGeometry   atomic.Bool

	mu       sync.Mutex
	max      int
	examples map[string][]Diagnostic
}

func newCollector(maxExamples int) *collector {
	if maxExamples <= 0 {
		maxExamples = 10
	}
	return &collector{max: maxExamples, examples: make(map[string][]Diagnostic)}
}

// diagnose records a non-fatal event, keeping at most max examples per stage.
func (c *collector) diagnose(record int, stage, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.examples[stage]) < c.max {
		c.examples[stage] = append(c.examples[stage], Diagnostic{Record: record, Stage: stage, Reason: reason})
	}
}

func (c *collector) report(start time.Time) *Report {
	c.mu.Lock()
	examples := make(map[string][]Diagnostic, len(c.examples))
	for k, v := range c.examples {
		examples[k] = append([]Diagnostic(nil), v...)
	}
	c.mu.Unlock()

	return &Report{
		Processed:     c.processed.Load(),
		Skipped:       c.skipped.Load(),
		LoadFailed:    c.loadFailed.Load(),
		KeyCollisions: c.keyCollisions.Load(),
		Upserted:      c.upserted.Load(),
		Matched:       c.matched.Load(),
		Duration:      time.Since(start),
		Examples:      examples,
	}
}
