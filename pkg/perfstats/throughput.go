package perfstats

import (
	"sync"
	"time"

	"github.com/bmharper/ringbuffer"
)

type rateTick struct {
	at    time.Time
	total int64
}

// Throughput measures the rate of a counter over its most recent updates
type Throughput struct {
	lock   sync.Mutex
	window int
	total  int64
	ticks  ringbuffer.RingP[rateTick]
}

// NewThroughput measures the rate over the last 'window' calls to Add.
// The window is at least 2.
func NewThroughput(window int) *Throughput {
	window = max(window, 2)
	// RingP holds one less than its size, which must be a power of 2
	size := 2
	for size < window+1 {
		size *= 2
	}
	return &Throughput{
		window: window,
		ticks:  ringbuffer.NewRingP[rateTick](size),
	}
}

// Add n to the counter, at time 'now'
func (t *Throughput) Add(n int64, now time.Time) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.total += n
	if t.ticks.Len() == t.window {
		t.ticks.Next()
	}
	t.ticks.Add(rateTick{at: now, total: t.total})
}

func (t *Throughput) Total() int64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.total
}

// Rate returns units per second between the oldest and newest update in the window.
// Returns 0 until there are at least two updates.
func (t *Throughput) Rate() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.ticks.Len() < 2 {
		return 0
	}
	first := t.ticks.Peek(0)
	last := t.ticks.Peek(t.ticks.Len() - 1)
	elapsed := last.at.Sub(first.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(last.total-first.total) / elapsed
}
