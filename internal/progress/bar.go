package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

type SnapshotFn func() (pairs, identical, differ, failed, bytesCompared int64)

// Bar is a spinner for batch runs; the number of pairs is not known up
// front because the directory is listed lazily.
type Bar struct {
	bar  *progressbar.ProgressBar
	ch   chan int64
	done chan struct{}
	stop chan struct{}

	snap   SnapshotFn
	lastB  int64
	lastAt time.Time
}

func New(w io.Writer, snap SnapshotFn) *Bar {
	b := &Bar{
		ch:     make(chan int64, 1024),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		snap:   snap,
		lastAt: time.Now(),
	}

	b.bar = progressbar.NewOptions64(
		-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetDescription("comparing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(120*time.Millisecond),
	)

	_ = b.bar.RenderBlank()
	go func() {
		defer close(b.done)
		for n := range b.ch {
			_ = b.bar.Add64(n)
		}
		_ = b.bar.Finish()
	}()

	go func() {
		t := time.NewTicker(1 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				b.updateDescription()
			case <-b.stop:
				return
			}
		}
	}()

	return b
}

// Pair advances the count by one compared pair.
func (b *Bar) Pair() {
	b.ch <- 1
}

func (b *Bar) Close() {
	close(b.stop)
	close(b.ch)
	<-b.done
}

func (b *Bar) updateDescription() {
	if b.snap == nil {
		return
	}
	pairs, identical, differ, failed, bytesCompared := b.snap()

	now := time.Now()
	dt := now.Sub(b.lastAt).Seconds()

	mbps := 0.0
	if dt > 0 {
		mbps = (float64(bytesCompared-b.lastB) / 1_000_000.0) / dt
	}

	b.lastB = bytesCompared
	b.lastAt = now

	b.bar.Describe(fmt.Sprintf("comparing %d pairs | identical=%d differ=%d failed=%d | %.1f MB/s",
		pairs, identical, differ, failed, mbps,
	))
}
