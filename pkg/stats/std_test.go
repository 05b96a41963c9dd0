package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeanVar(t *testing.T) {
	mean, variance := MeanVar([]int{2, 4, 4, 4, 5, 5, 7, 9})
	require.Equal(t, 5.0, mean)
	require.Equal(t, 4.0, variance)

	mean, variance = MeanVar([]float32{})
	require.Equal(t, 0.0, mean)
	require.Equal(t, 0.0, variance)
}

func TestBoxDimensions(t *testing.T) {
	w, h := BoxDimensions([][2]float32{{10, 1}, {30, 3}, {20, 2}})
	require.Equal(t, Summary{N: 3, Mean: 20, Std: w.Std, Min: 10, Max: 30}, w)
	require.InDelta(t, 8.165, w.Std, 1e-3)
	require.Equal(t, float32(3), h.Max)
	require.Contains(t, h.String(), "mean=2.0")
	require.Equal(t, Summary{}, Summarize(nil))
}
