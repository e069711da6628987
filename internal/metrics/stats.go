package metrics

import (
	"sync/atomic"
	"time"

	"exediff/internal/diff"
)

// Stats counts batch outcomes. Fields are updated atomically because the
// progress display reads them from its own goroutine.
type Stats struct {
	Pairs        int64
	Identical    int64
	Differ       int64
	LoadFailures int64

	Sections      int64
	BytesCompared int64
	Started       time.Time
	Finished      time.Time
}

func (s *Stats) Start() { s.Started = time.Now() }
func (s *Stats) Stop()  { s.Finished = time.Now() }
func (s *Stats) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}

// Record folds one pair's result into the counters.
func (s *Stats) Record(res diff.Result) {
	atomic.AddInt64(&s.Pairs, 1)
	switch {
	case res.LoadFailed:
		atomic.AddInt64(&s.LoadFailures, 1)
	case res.Differ():
		atomic.AddInt64(&s.Differ, 1)
	default:
		atomic.AddInt64(&s.Identical, 1)
	}
	atomic.AddInt64(&s.Sections, int64(res.Sections))
	atomic.AddInt64(&s.BytesCompared, int64(res.BytesCompared))
}
