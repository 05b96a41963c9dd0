package yolo

import (
	"errors"
	"math/rand/v2"
	"slices"
)

// KMeansResult is the outcome of anchor clustering
type KMeansResult struct {
	Anchors    [][2]float32 // Smallest area first, ready for MakeAnchorSet
	MeanIOU    float32      // Mean over all boxes of the IoU with the closest anchor
	Iterations int
}

// KMeansAnchors clusters box sizes (width, height) into k anchors, using 1 - IoU as the distance.
// Cluster centers are the mean of their members. Initial centers are picked from the boxes
// with k-means++ seeding, driven by rng.
func KMeansAnchors(sizes [][2]float32, k, maxIterations int, rng *rand.Rand) (*KMeansResult, error) {
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}
	if len(sizes) < k {
		return nil, errors.New("Fewer boxes than clusters")
	}

	centers := seedCenters(sizes, k, rng)

	assign := make([]int, len(sizes))
	for i := range assign {
		assign[i] = -1
	}

	iter := 0
	for ; iter < maxIterations; iter++ {
		changed := 0
		for i, s := range sizes {
			best, _ := closest(centers, s)
			if best != assign[i] {
				assign[i] = best
				changed++
			}
		}
		if changed == 0 {
			break
		}
		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, s := range sizes {
			c := assign[i]
			sums[c][0] += float64(s[0])
			sums[c][1] += float64(s[1])
			counts[c]++
		}
		for c := range centers {
			if counts[c] == 0 {
				// Re-seed an empty cluster
				centers[c] = sizes[rng.IntN(len(sizes))]
				continue
			}
			centers[c] = [2]float32{float32(sums[c][0] / float64(counts[c])), float32(sums[c][1] / float64(counts[c]))}
		}
	}

	total := 0.0
	for _, s := range sizes {
		_, iou := closest(centers, s)
		total += float64(iou)
	}

	slices.SortFunc(centers, func(a, b [2]float32) int {
		areaA := a[0] * a[1]
		areaB := b[0] * b[1]
		if areaA < areaB {
			return -1
		} else if areaA > areaB {
			return 1
		}
		return 0
	})

	return &KMeansResult{
		Anchors:    centers,
		MeanIOU:    float32(total / float64(len(sizes))),
		Iterations: iter,
	}, nil
}

func closest(centers [][2]float32, s [2]float32) (int, float32) {
	best := 0
	bestIOU := float32(-1)
	for c, center := range centers {
		iou := SizeIOU(s[0], s[1], center[0], center[1])
		if iou > bestIOU {
			best = c
			bestIOU = iou
		}
	}
	return best, bestIOU
}

// k-means++: each new center is drawn with probability proportional to the
// squared distance from the nearest center chosen so far.
func seedCenters(sizes [][2]float32, k int, rng *rand.Rand) [][2]float32 {
	centers := make([][2]float32, 0, k)
	centers = append(centers, sizes[rng.IntN(len(sizes))])
	dist := make([]float64, len(sizes))
	for len(centers) < k {
		total := 0.0
		for i, s := range sizes {
			_, iou := closest(centers, s)
			d := 1 - float64(iou)
			dist[i] = d * d
			total += dist[i]
		}
		if total == 0 {
			centers = append(centers, sizes[rng.IntN(len(sizes))])
			continue
		}
		r := rng.Float64() * total
		pick := len(sizes) - 1
		for i, d := range dist {
			r -= d
			if r < 0 {
				pick = i
				break
			}
		}
		centers = append(centers, sizes[pick])
	}
	return centers
}
