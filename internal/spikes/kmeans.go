// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package spikes

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// kmeansSeed fixes the clustering RNG so repeated requests over the same
// series produce identical cluster assignments.
const kmeansSeed = 42

// maxKMeansIterations bounds Lloyd iterations per fit.
const maxKMeansIterations = 100

// kmeans assigns each point to one of k clusters using Lloyd's algorithm
// with k-means++ seeding. k is clamped to the number of points; a single
// point always yields cluster 0.
func kmeans(points [][]float64, k int, seed int64) []int {
	n := len(points)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}
	if k > n {
		k = n
	}
	if k <= 1 {
		return labels
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(points, k, rng)

	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCentroid(p, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(points, labels, centroids, rng)
	}
	return labels
}

// inertia is the within-cluster sum of squared distances for a fitted
// assignment, the quantity minimized by k-means and used for the elbow.
func inertia(points [][]float64, labels []int, k int) float64 {
	if len(points) == 0 {
		return 0
	}
	dims := len(points[0])
	centroids := make([][]float64, k)
	counts := make([]int, k)
	for c := range centroids {
		centroids[c] = make([]float64, dims)
	}
	for i, p := range points {
		floats.Add(centroids[labels[i]], p)
		counts[labels[i]]++
	}
	for c := range centroids {
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), centroids[c])
		}
	}
	total := 0.0
	for i, p := range points {
		total += sqDist(p, centroids[labels[i]])
	}
	return total
}

// fitInertia runs a full k-means fit and returns its inertia.
func fitInertia(points [][]float64, k int, seed int64) float64 {
	labels := kmeans(points, k, seed)
	if k > len(points) {
		k = len(points)
	}
	if k < 1 {
		k = 1
	}
	return inertia(points, labels, k)
}

// seedCentroids picks k initial centroids with k-means++ weighting.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.Intn(len(points))]
	centroids = append(centroids, append([]float64(nil), first...))

	dists := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if sq := sqDist(p, c); sq < d {
					d = sq
				}
			}
			dists[i] = d
			total += d
		}
		if total == 0 {
			// All remaining points coincide with a centroid.
			centroids = append(centroids, append([]float64(nil), points[rng.Intn(len(points))]...))
			continue
		}
		target := rng.Float64() * total
		cum := 0.0
		pick := len(points) - 1
		for i, d := range dists {
			cum += d
			if cum >= target {
				pick = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), points[pick]...))
	}
	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// recomputeCentroids moves each centroid to the mean of its members.
// Empty clusters are reseeded on a random point to keep k stable.
func recomputeCentroids(points [][]float64, labels []int, centroids [][]float64, rng *rand.Rand) {
	dims := len(points[0])
	counts := make([]int, len(centroids))
	for c := range centroids {
		for d := 0; d < dims; d++ {
			centroids[c][d] = 0
		}
	}
	for i, p := range points {
		floats.Add(centroids[labels[i]], p)
		counts[labels[i]]++
	}
	for c := range centroids {
		if counts[c] == 0 {
			copy(centroids[c], points[rng.Intn(len(points))])
			continue
		}
		floats.Scale(1/float64(counts[c]), centroids[c])
	}
}

func sqDist(a, b []float64) float64 {
	total := 0.0
	for i := range a {
		d := a[i] - b[i]
		total += d * d
	}
	return total
}
