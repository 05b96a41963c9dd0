package perfstats

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Accumulate samples of how long something took
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
}

func (a *TimeAccumulator) Reset() {
	a.Samples = 0
	a.Total = 0
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
}

func (a TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}

// Stages accumulates the time spent in each named stage of a pipeline.
// It is safe to use from multiple goroutines.
type Stages struct {
	lock   sync.Mutex
	order  []string
	stages map[string]*TimeAccumulator
}

func NewStages() *Stages {
	return &Stages{
		stages: map[string]*TimeAccumulator{},
	}
}

// Add a sample to a stage
func (s *Stages) Add(stage string, d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	acc := s.stages[stage]
	if acc == nil {
		acc = &TimeAccumulator{}
		s.stages[stage] = acc
		s.order = append(s.order, stage)
	}
	acc.AddSample(d)
}

// Since adds the time elapsed since start
func (s *Stages) Since(stage string, start time.Time) {
	s.Add(stage, time.Since(start))
}

// Get returns a copy of one stage's accumulator
func (s *Stages) Get(stage string) TimeAccumulator {
	s.lock.Lock()
	defer s.lock.Unlock()
	if acc := s.stages[stage]; acc != nil {
		return *acc
	}
	return TimeAccumulator{}
}

func (s *Stages) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.order = nil
	s.stages = map[string]*TimeAccumulator{}
}

// String returns the average time of each stage, in the order that stages were first seen
func (s *Stages) String() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	parts := []string{}
	for _, name := range s.order {
		acc := s.stages[name]
		parts = append(parts, fmt.Sprintf("%v: %.1f ms", name, float64(acc.Average().Microseconds())/1000))
	}
	return strings.Join(parts, ", ")
}
