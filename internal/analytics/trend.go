// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package analytics provides descriptive statistics over the download
// history: smoothed trend lines and the measured download impact of an
// episode release.
package analytics

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/timeseries"
)

// TrendPoint is one smoothed observation.
type TrendPoint struct {
	Date    time.Time `json:"date"`
	Rolling float64   `json:"rolling_average"`
}

// TrendResult is the smoothed series plus its fitted straight line. Slope
// is in downloads per day.
type TrendResult struct {
	WindowDays int          `json:"window_days"`
	Points     []TrendPoint `json:"points"`
	Slope      float64      `json:"slope"`
	Intercept  float64      `json:"intercept"`
}

// Trend smooths the series with a trailing rolling average over the given
// window and fits a least-squares line through the smoothed values. Days
// without a full window are dropped, so the line is not biased by the
// partial averages at the start of the history.
func Trend(s timeseries.Series, windowDays int) (*TrendResult, error) {
	if windowDays < 1 {
		return nil, errs.Validation("trend window must be positive, got %d days", windowDays)
	}
	if len(s) < windowDays {
		return nil, errs.InsufficientData(
			"series has %d days, need at least the %d-day window", len(s), windowDays)
	}

	values := s.Values()
	points := make([]TrendPoint, 0, len(s)-windowDays+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= windowDays {
			sum -= values[i-windowDays]
		}
		if i >= windowDays-1 {
			points = append(points, TrendPoint{
				Date:    s[i].Date,
				Rolling: sum / float64(windowDays),
			})
		}
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.Rolling
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	return &TrendResult{
		WindowDays: windowDays,
		Points:     points,
		Slope:      slope,
		Intercept:  intercept,
	}, nil
}
