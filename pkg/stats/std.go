package stats

import (
	"fmt"

	"github.com/chewxy/math32"
)

type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Returns (mean, variance) of the given samples.
func MeanVar[T Number](samples []T) (float64, float64) {
	mean := Mean(samples)
	variance := Variance(samples, mean)
	return mean, variance
}

// Returns the mean of the given samples.
func Mean[T Number](samples []T) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += float64(v)
	}
	return sum / float64(len(samples))
}

// Returns the variance of the given samples.
func Variance[T Number](samples []T, mean float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		diff := float64(v) - mean
		sum += diff * diff
	}
	return sum / float64(len(samples))
}

// Summary describes the distribution of box dimensions
type Summary struct {
	N    int
	Mean float32
	Std  float32
	Min  float32
	Max  float32
}

func Summarize(samples []float32) Summary {
	s := Summary{N: len(samples)}
	if len(samples) == 0 {
		return s
	}
	mean, variance := MeanVar(samples)
	s.Mean = float32(mean)
	s.Std = math32.Sqrt(float32(variance))
	s.Min = samples[0]
	s.Max = samples[0]
	for _, v := range samples[1:] {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("n=%v mean=%.1f std=%.1f min=%.1f max=%.1f", s.N, s.Mean, s.Std, s.Min, s.Max)
}

// BoxDimensions splits (width, height) pairs into separate width and height summaries
func BoxDimensions(sizes [][2]float32) (width, height Summary) {
	w := make([]float32, len(sizes))
	h := make([]float32, len(sizes))
	for i, s := range sizes {
		w[i] = s[0]
		h[i] = s[1]
	}
	return Summarize(w), Summarize(h)
}
