package perfstats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeAccumulator(t *testing.T) {
	ta := TimeAccumulator{}
	ta.AddSample(time.Millisecond)
	ta.AddSample(3 * time.Millisecond)
	require.Equal(t, 2*time.Millisecond, ta.Average())
	ta.Reset()
	require.Equal(t, time.Duration(0), ta.Average())
}

func TestStages(t *testing.T) {
	s := NewStages()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Add("decode", 2*time.Millisecond)
				s.Add("encode", time.Millisecond)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(800), s.Get("decode").Samples)
	require.Equal(t, 2*time.Millisecond, s.Get("decode").Average())
	require.Equal(t, int64(0), s.Get("missing").Samples)
	require.Contains(t, s.String(), "encode: 1.0 ms")
	s.Reset()
	require.Equal(t, "", s.String())
}

func TestThroughput(t *testing.T) {
	tp := NewThroughput(3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 0.0, tp.Rate())
	tp.Add(100, start)
	require.Equal(t, 0.0, tp.Rate())
	tp.Add(10, start.Add(time.Second))
	require.Equal(t, 10.0, tp.Rate())
	tp.Add(10, start.Add(2*time.Second))
	// The first update falls out of the window
	tp.Add(40, start.Add(3*time.Second))
	require.Equal(t, 25.0, tp.Rate())
	require.Equal(t, int64(160), tp.Total())
}

func TestThroughputWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, window := range []int{3, 20, 64} {
		tp := NewThroughput(window)
		// Tick i adds i units, one second after tick i-1, so the running total after tick i is i(i+1)/2
		n := window + 7
		for i := 0; i < n; i++ {
			tp.Add(int64(i), start.Add(time.Duration(i)*time.Second))
		}
		first := n - window
		last := n - 1
		totalAt := func(i int) int64 { return int64(i * (i + 1) / 2) }
		expect := float64(totalAt(last)-totalAt(first)) / float64(last-first)
		require.Equal(t, expect, tp.Rate(), "window %v", window)
		require.Equal(t, totalAt(last), tp.Total())
	}

	// Until the window is full, the rate covers every update so far
	tp := NewThroughput(20)
	tp.Add(0, start)
	tp.Add(30, start.Add(3*time.Second))
	require.Equal(t, 10.0, tp.Rate())
}
