package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

type Snapshot struct {
	DurationMs    int64
	Pairs         int64
	Identical     int64
	Differ        int64
	LoadFailures  int64
	Sections      int64
	BytesCompared int64
}

func (s *Stats) Snapshot() Snapshot {
	dur := s.Duration()

	return Snapshot{
		DurationMs:    dur.Milliseconds(),
		Pairs:         atomic.LoadInt64(&s.Pairs),
		Identical:     atomic.LoadInt64(&s.Identical),
		Differ:        atomic.LoadInt64(&s.Differ),
		LoadFailures:  atomic.LoadInt64(&s.LoadFailures),
		Sections:      atomic.LoadInt64(&s.Sections),
		BytesCompared: atomic.LoadInt64(&s.BytesCompared),
	}
}

func Print(w io.Writer, s *Stats) {
	snap := s.Snapshot()

	_, _ = fmt.Fprintln(w, "--- stats ---")
	_, _ = fmt.Fprintln(w, "duration_ms:", snap.DurationMs)
	_, _ = fmt.Fprintln(w, "pairs:", snap.Pairs)
	_, _ = fmt.Fprintln(w, "identical:", snap.Identical)
	_, _ = fmt.Fprintln(w, "differ:", snap.Differ)
	_, _ = fmt.Fprintln(w, "load_failures:", snap.LoadFailures)
	_, _ = fmt.Fprintln(w, "sections_compared:", snap.Sections)
	_, _ = fmt.Fprintln(w, "bytes_compared:", snap.BytesCompared)

	if snap.DurationMs > 0 {
		secs := float64(snap.DurationMs) / 1000.0
		_, _ = fmt.Fprintln(w, "throughput_pairs_per_sec:", float64(snap.Pairs)/secs)
	}
}
