// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package spikes

// fallbackClusters is used when the inertia curve has no detectable elbow.
const fallbackClusters = 2

// optimalClusters fits k-means for k = 1..maxClusters and locates the
// elbow of the inertia curve: the k whose point lies furthest below the
// chord from (1, inertia_1) to (kmax, inertia_kmax). Without an elbow the
// count defaults to 2. The result is always clamped to the sample count.
func optimalClusters(points [][]float64, maxClusters int) int {
	n := len(points)
	if n < 2 {
		return 1
	}
	if maxClusters > n {
		maxClusters = n
	}
	if maxClusters < 1 {
		maxClusters = 1
	}

	ssd := make([]float64, maxClusters)
	for k := 1; k <= maxClusters; k++ {
		ssd[k-1] = fitInertia(points, k, kmeansSeed)
	}

	k := kneeOf(ssd)
	if k == 0 {
		k = fallbackClusters
	}
	if k > n {
		k = n
	}
	return k
}

// kneeOf finds the index (1-based k) of the maximum vertical distance
// below the first-to-last chord of a convex decreasing curve. Returns 0
// when no interior point lies below the chord.
func kneeOf(ssd []float64) int {
	n := len(ssd)
	if n < 3 {
		return 0
	}
	first, last := ssd[0], ssd[n-1]
	bestK, bestDist := 0, 0.0
	for i := 1; i < n-1; i++ {
		frac := float64(i) / float64(n-1)
		chord := first + frac*(last-first)
		if dist := chord - ssd[i]; dist > bestDist {
			bestDist = dist
			bestK = i + 1
		}
	}
	return bestK
}
