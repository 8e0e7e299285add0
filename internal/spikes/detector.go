// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package spikes flags statistically anomalous download days and clusters
// spike shapes.
//
// A spike is a day whose value exceeds its trailing rolling mean by more
// than 2 standard deviations; above 3 it is classified anomalous (likely
// noise rather than an undocumented release). Spike shapes (height, timing,
// tail decay) are standardized and clustered with k-means, with the cluster
// count chosen by the elbow of the inertia curve.
package spikes

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/podscale/podscale/internal/timeseries"
)

// Default detection thresholds.
const (
	DefaultWindow      = 7
	DefaultSpikeZ      = 2.0
	DefaultAnomalyZ    = 3.0
	DefaultMaxClusters = 10
)

// Options controls spike detection and clustering.
type Options struct {
	// Window is the trailing rolling window; the first Window rows are
	// discarded as statistically unstable.
	Window int

	// SpikeZ and AnomalyZ are the z-score thresholds.
	SpikeZ   float64
	AnomalyZ float64

	// MaxClusters bounds the elbow search.
	MaxClusters int
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.SpikeZ <= 0 {
		o.SpikeZ = DefaultSpikeZ
	}
	if o.AnomalyZ <= 0 {
		o.AnomalyZ = DefaultAnomalyZ
	}
	if o.MaxClusters <= 0 {
		o.MaxClusters = DefaultMaxClusters
	}
	return o
}

// Record is the per-date spike annotation.
type Record struct {
	Date        time.Time
	Value       float64
	RollingMean float64
	RollingStd  float64
	ZScore      float64
	IsSpike     bool
	IsAnomalous bool

	// Cluster is the spike-shape cluster id, or -1 for non-spike rows.
	Cluster int
}

// Result carries the full annotation set plus the number of clusters found
// (0 when no spikes were detected and clustering was skipped).
type Result struct {
	Records     []Record
	NumClusters int
}

// Detect annotates every date of the series with spike statistics and
// clusters the detected spikes. The first Window rows carry statistics but
// are never flagged. A constant series produces no spikes (zero rolling
// std yields no signal). With fewer than 2 spikes a single cluster is
// forced; clustering a single sample must not error.
func Detect(series timeseries.Series, opts Options) Result {
	opts = opts.withDefaults()

	records := annotate(series, opts)

	spikeIdx := make([]int, 0, len(records))
	for i, r := range records {
		if r.IsSpike {
			spikeIdx = append(spikeIdx, i)
		}
	}
	if len(spikeIdx) == 0 {
		return Result{Records: records}
	}

	feats := spikeFeatures(records, spikeIdx)
	standardizeColumns(feats)

	k := len(spikeIdx)
	if k >= 2 {
		k = optimalClusters(feats, opts.MaxClusters)
	} else {
		k = 1
	}

	labels := kmeans(feats, k, kmeansSeed)
	for j, idx := range spikeIdx {
		records[idx].Cluster = labels[j]
	}
	return Result{Records: records, NumClusters: k}
}

// annotate computes trailing rolling statistics and z-score flags.
func annotate(series timeseries.Series, opts Options) []Record {
	records := make([]Record, len(series))
	values := series.Values()

	for i, p := range series {
		lo := i - opts.Window + 1
		if lo < 0 {
			lo = 0
		}
		window := values[lo : i+1]
		mean := stat.Mean(window, nil)
		sd := 0.0
		if len(window) > 1 {
			sd = stat.StdDev(window, nil)
		}
		r := Record{
			Date:        p.Date,
			Value:       p.Value,
			RollingMean: mean,
			RollingStd:  sd,
			Cluster:     -1,
		}
		// The first Window rows have unstable statistics and are never
		// flagged. A zero std carries no spike signal.
		if i >= opts.Window && sd > 0 {
			r.ZScore = (p.Value - mean) / sd
			r.IsSpike = r.ZScore > opts.SpikeZ
			r.IsAnomalous = r.ZScore > opts.AnomalyZ
		}
		records[i] = r
	}
	return records
}

// spikeFeatures extracts the shape features used for clustering: height
// above the rolling mean, days since the first spike, and decay relative
// to the previous spike's value (0 for the first spike).
func spikeFeatures(records []Record, spikeIdx []int) [][]float64 {
	first := records[spikeIdx[0]].Date
	feats := make([][]float64, len(spikeIdx))
	prev := 0.0
	for j, idx := range spikeIdx {
		r := records[idx]
		feats[j] = []float64{
			r.Value - r.RollingMean,
			r.Date.Sub(first).Hours() / 24,
			r.Value - prev,
		}
		prev = r.Value
	}
	return feats
}

// standardizeColumns scales each feature column to zero mean and unit
// variance in place. Zero-variance columns are left centered.
func standardizeColumns(feats [][]float64) {
	if len(feats) == 0 {
		return
	}
	cols := len(feats[0])
	col := make([]float64, len(feats))
	for c := 0; c < cols; c++ {
		for i := range feats {
			col[i] = feats[i][c]
		}
		mean := stat.Mean(col, nil)
		sd := 0.0
		if len(col) > 1 {
			sd = stat.StdDev(col, nil)
		}
		for i := range feats {
			feats[i][c] -= mean
			if sd > 0 {
				feats[i][c] /= sd
			}
		}
	}
}
