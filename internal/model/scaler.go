// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package model

import "gonum.org/v1/gonum/stat"

// scaler standardizes columns to zero mean and unit variance. A
// zero-variance column keeps scale 1 so transforming it is a no-op shift.
type scaler struct {
	mean  []float64
	scale []float64
}

// fitScaler learns per-column mean and scale from the rows of x.
func fitScaler(x [][]float64) *scaler {
	if len(x) == 0 {
		return &scaler{}
	}
	p := len(x[0])
	s := &scaler{
		mean:  make([]float64, p),
		scale: make([]float64, p),
	}
	col := make([]float64, len(x))
	for c := 0; c < p; c++ {
		for i, row := range x {
			col[i] = row[c]
		}
		s.mean[c] = stat.Mean(col, nil)
		sd := stat.PopStdDev(col, nil)
		if sd == 0 {
			sd = 1
		}
		s.scale[c] = sd
	}
	return s
}

// transform standardizes the rows of x into a new matrix.
func (s *scaler) transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.transformRow(row)
	}
	return out
}

// transformRow standardizes a single row.
func (s *scaler) transformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for c, v := range row {
		out[c] = (v - s.mean[c]) / s.scale[c]
	}
	return out
}
