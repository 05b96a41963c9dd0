package nn

import (
	"testing"

	"github.com/cyclopcam/cocoyolo/pkg/bbox"
	"github.com/stretchr/testify/require"
)

func TestIntersection(t *testing.T) {
	a := MakeRect(0, 0, 10, 10)
	require.Equal(t, MakeRect(5, 5, 5, 5), a.Intersection(MakeRect(5, 5, 10, 10)))
	require.True(t, a.Intersection(MakeRect(20, 20, 5, 5)).Empty())
	require.True(t, a.Intersection(MakeRect(10, 0, 5, 5)).Empty())
	require.False(t, a.Empty())
	require.True(t, MakeRect(3, 3, 0, 5).Empty())
	require.Equal(t, bbox.CropRegion{Left: 3, Top: 4, Width: 5, Height: 6}, MakeRect(3, 4, 5, 6).CropRegion())
}
