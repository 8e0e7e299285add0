// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package model

import (
	"math"
)

// maxFolds is the cross-validation fold count, bounded below by the
// available rows so tiny datasets degrade instead of crashing.
const maxFolds = 5

// rfeBaseAlpha is the fixed moderate penalty used by the feature
// elimination estimator.
const rfeBaseAlpha = 1.0

// alphaGridSize spans 20 log-spaced regularization strengths in
// [1e-3, 1e3].
const (
	alphaGridSize = 20
	alphaLogMin   = -3.0
	alphaLogMax   = 3.0
)

// foldCount bounds the fold count by the sample size. Fewer than 4 rows
// cannot be meaningfully cross-validated; callers skip CV below that.
func foldCount(n int) int {
	k := maxFolds
	if n < k {
		k = n
	}
	if k < 2 {
		k = 2
	}
	return k
}

// contiguous folds preserve chronological order: no shuffling anywhere in
// the pipeline.
func foldBounds(n, folds int) [][2]int {
	bounds := make([][2]int, 0, folds)
	base, rem := n/folds, n%folds
	start := 0
	for f := 0; f < folds; f++ {
		size := base
		if f < rem {
			size++
		}
		bounds = append(bounds, [2]int{start, start + size})
		start += size
	}
	return bounds
}

// crossValScore computes the mean R² of a ridge fit over k contiguous
// folds. Folds whose fit fails score 0.
func crossValScore(x [][]float64, y []float64, alpha float64) float64 {
	n := len(x)
	if n < 4 {
		// Too few rows to hold anything out; score an in-sample fit.
		r := newRidge(alpha)
		if err := r.fit(x, y); err != nil {
			return 0
		}
		return rSquared(y, r.predictAll(x))
	}

	folds := foldCount(n)
	total := 0.0
	for _, b := range foldBounds(n, folds) {
		trainX := make([][]float64, 0, n-(b[1]-b[0]))
		trainY := make([]float64, 0, n-(b[1]-b[0]))
		for i := 0; i < n; i++ {
			if i >= b[0] && i < b[1] {
				continue
			}
			trainX = append(trainX, x[i])
			trainY = append(trainY, y[i])
		}
		r := newRidge(alpha)
		if err := r.fit(trainX, trainY); err != nil {
			continue
		}
		total += rSquared(y[b[0]:b[1]], r.predictAll(x[b[0]:b[1]]))
	}
	return total / float64(folds)
}

// selectFeatures runs recursive feature elimination with cross-validation:
// features are eliminated one per step by smallest coefficient magnitude,
// each subset size is CV-scored with the fixed-penalty ridge, and the
// best-scoring subset (ties favoring fewer features) wins. At least one
// feature is always kept.
func selectFeatures(x [][]float64, y []float64, names []string) []string {
	p := len(names)
	if p <= 1 || len(x) == 0 {
		return append([]string(nil), names...)
	}

	active := make([]int, p)
	for i := range active {
		active[i] = i
	}

	// subsets[k-1] holds the active column set of size k.
	subsets := make([][]int, p)
	scores := make([]float64, p)

	for size := p; size >= 1; size-- {
		sub := subMatrix(x, active)
		subsets[size-1] = append([]int(nil), active...)
		scores[size-1] = crossValScore(sub, y, rfeBaseAlpha)

		if size == 1 {
			break
		}
		r := newRidge(rfeBaseAlpha)
		if err := r.fit(sub, y); err != nil {
			// Elimination cannot proceed; keep the current subset.
			break
		}
		weakest := 0
		for c := 1; c < len(r.coef); c++ {
			if math.Abs(r.coef[c]) < math.Abs(r.coef[weakest]) {
				weakest = c
			}
		}
		active = append(active[:weakest], active[weakest+1:]...)
	}

	best := 0
	for k := 1; k < p; k++ {
		if subsets[k] == nil {
			continue
		}
		if subsets[best] == nil || scores[k] > scores[best] {
			best = k
		}
	}
	selected := make([]string, 0, best+1)
	for _, c := range subsets[best] {
		selected = append(selected, names[c])
	}
	return selected
}

// searchAlpha picks the best regularization strength from the log-spaced
// grid by cross-validated R².
func searchAlpha(x [][]float64, y []float64) float64 {
	bestAlpha, bestScore := 0.0, math.Inf(-1)
	for i := 0; i < alphaGridSize; i++ {
		exp := alphaLogMin + (alphaLogMax-alphaLogMin)*float64(i)/float64(alphaGridSize-1)
		alpha := math.Pow(10, exp)
		if score := crossValScore(x, y, alpha); score > bestScore {
			bestAlpha, bestScore = alpha, score
		}
	}
	return bestAlpha
}

// subMatrix extracts the given columns from every row.
func subMatrix(x [][]float64, cols []int) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		sub := make([]float64, len(cols))
		for j, c := range cols {
			sub[j] = row[c]
		}
		out[i] = sub
	}
	return out
}
