// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package features

import (
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ExtraColumn is a precomputed per-date column merged into the matrix
// alongside the generated features (spike cluster one-hots and similar
// annotations carried on the podcast record).
type ExtraColumn struct {
	Name   string
	Values []float64
}

// clusterColumnPrefix marks one-hot spike-cluster indicator columns.
const clusterColumnPrefix = "spike_cluster_"

// annotationColumns are record annotations that must never become
// predictors: the spike flag and missing-episode columns restate the
// target or future knowledge.
var annotationColumns = map[string]struct{}{
	"is_spike":                  {},
	"is_anomalous":              {},
	"potential_missing_episode": {},
	"deduced_episodes_released": {},
}

// BuildOptions controls matrix assembly.
type BuildOptions struct {
	// Specs is the ordered feature specification; DefaultSet when nil.
	Specs []Spec

	// Extra columns merged after the generated features.
	Extra []ExtraColumn

	// RetainClusterColumns keeps spike_cluster_* extras. They are not
	// meaningful forward-looking predictors, so the default drops them.
	RetainClusterColumns bool
}

// Matrix is the assembled predictor table: one row per history date, one
// column per surviving feature, plus the parallel target column.
type Matrix struct {
	Names []string
	Dates []time.Time
	X     [][]float64
	Y     []float64
}

// Build assembles the full predictor matrix for the history. Each row's
// features are generated from the rows strictly before it; undefined
// features are NaN (the trainer drops those rows, the forecaster fills 0).
// Zero-variance columns and redundant restatements are removed.
func Build(h *History, opts BuildOptions) *Matrix {
	specs := opts.Specs
	if specs == nil {
		specs = DefaultSet()
	}
	specs = Resolve(specs)

	extras := filterExtras(opts.Extra, h.Len(), opts.RetainClusterColumns)

	names := make([]string, 0, len(specs)+len(extras))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	for _, e := range extras {
		names = append(names, e.Name)
	}

	m := &Matrix{
		Names: names,
		Dates: append([]time.Time(nil), h.Dates...),
		X:     make([][]float64, h.Len()),
		Y:     append([]float64(nil), h.Target...),
	}
	for i := 0; i < h.Len(); i++ {
		row := Row{Hist: h, End: i, Date: h.Dates[i], Releases: h.Releases[i]}
		vec := make([]float64, 0, len(names))
		for _, s := range specs {
			vec = append(vec, s.Generate(row))
		}
		for _, e := range extras {
			vec = append(vec, e.Values[i])
		}
		m.X[i] = vec
	}

	m.dropZeroVariance()
	return m
}

// Vector generates the feature vector for a single upcoming row, ordered
// by the wanted names. Features not produced by the spec set (or still
// undefined) are 0 — the forecast contract for insufficient history.
func Vector(h *History, date time.Time, releases float64, specs []Spec, wanted []string) []float64 {
	if specs == nil {
		specs = DefaultSet()
	}
	row := Row{Hist: h, End: h.Len(), Date: date, Releases: releases}
	byName := make(map[string]float64, len(specs))
	for _, s := range specs {
		byName[s.Name] = s.Generate(row)
	}
	vec := make([]float64, len(wanted))
	for i, name := range wanted {
		if v, ok := byName[name]; ok && !math.IsNaN(v) {
			vec[i] = v
		}
	}
	return vec
}

// filterExtras drops annotation columns, cluster one-hots (unless
// retained), and any extra whose length does not match the history.
func filterExtras(extras []ExtraColumn, n int, retainClusters bool) []ExtraColumn {
	out := make([]ExtraColumn, 0, len(extras))
	for _, e := range extras {
		if len(e.Values) != n {
			continue
		}
		if _, bad := annotationColumns[e.Name]; bad {
			continue
		}
		if strings.HasPrefix(e.Name, clusterColumnPrefix) && !retainClusters {
			continue
		}
		out = append(out, e)
	}
	return out
}

// dropZeroVariance removes columns whose defined values never vary.
func (m *Matrix) dropZeroVariance() {
	keep := make([]int, 0, len(m.Names))
	for c := range m.Names {
		seen := math.NaN()
		varies := false
		for _, row := range m.X {
			v := row[c]
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(seen) {
				seen = v
			} else if v != seen {
				varies = true
				break
			}
		}
		if varies {
			keep = append(keep, c)
		}
	}
	m.selectColumns(keep)
}

// Select reduces the matrix to the named columns, in the given order.
// Unknown names are ignored.
func (m *Matrix) Select(names []string) {
	index := make(map[string]int, len(m.Names))
	for i, n := range m.Names {
		index[n] = i
	}
	keep := make([]int, 0, len(names))
	for _, n := range names {
		if i, ok := index[n]; ok {
			keep = append(keep, i)
		}
	}
	m.selectColumns(keep)
}

func (m *Matrix) selectColumns(keep []int) {
	names := make([]string, len(keep))
	for i, c := range keep {
		names[i] = m.Names[c]
	}
	for r, row := range m.X {
		vec := make([]float64, len(keep))
		for i, c := range keep {
			vec[i] = row[c]
		}
		m.X[r] = vec
	}
	m.Names = names
}

// DropIncompleteRows removes rows containing NaN in any predictor or the
// target, preserving chronological order.
func (m *Matrix) DropIncompleteRows() {
	keep := m.X[:0:0]
	dates := m.Dates[:0:0]
	ys := m.Y[:0:0]
	for r, row := range m.X {
		if math.IsNaN(m.Y[r]) || hasNaN(row) {
			continue
		}
		keep = append(keep, row)
		dates = append(dates, m.Dates[r])
		ys = append(ys, m.Y[r])
	}
	m.X = keep
	m.Dates = dates
	m.Y = ys
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Column returns a copy of the named column, or nil when absent.
func (m *Matrix) Column(name string) []float64 {
	for c, n := range m.Names {
		if n != name {
			continue
		}
		col := make([]float64, len(m.X))
		for r, row := range m.X {
			col[r] = row[c]
		}
		return col
	}
	return nil
}

func meanOf(v []float64) float64 { return stat.Mean(v, nil) }

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func medianOf(v []float64) float64 {
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
