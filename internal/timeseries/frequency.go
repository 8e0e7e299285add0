// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package timeseries

import (
	"sort"

	"github.com/podscale/podscale/internal/errs"
)

// Mode selects how a non-daily series is handled.
type Mode int

const (
	// Strict rejects series whose median day-gap exceeds the threshold.
	Strict Mode = iota

	// Resample interpolates non-daily series onto a full daily grid.
	Resample
)

// minResamplePeriods is the minimum number of distinct dates required
// before interpolation is meaningful.
const minResamplePeriods = 4

// ValidateOptions controls cadence validation.
type ValidateOptions struct {
	Mode Mode

	// MedianGapThreshold is the maximum accepted median day-gap.
	// Default 3.0 when zero.
	MedianGapThreshold float64

	// MinRows is the minimum series length after cleaning.
	// Default 14 when zero.
	MinRows int
}

// ValidateResult carries the cleaned series plus a non-fatal warning when
// resampling changed the cadence.
type ValidateResult struct {
	Series  Series
	Warning string
}

// ValidateFrequency checks that the series has (close to) daily cadence.
// In Strict mode a median gap above the threshold fails with a validation
// error naming the detected cadence; in Resample mode the series is
// linearly interpolated onto a full daily range and a warning is attached.
// Series shorter than MinRows after cleaning fail with insufficient data.
func ValidateFrequency(s Series, opts ValidateOptions) (ValidateResult, error) {
	if opts.MedianGapThreshold <= 0 {
		opts.MedianGapThreshold = 3.0
	}
	if opts.MinRows <= 0 {
		opts.MinRows = 14
	}

	clean := Normalize(s)
	if len(clean) == 0 {
		return ValidateResult{}, errs.Validation("series is empty")
	}

	gap := medianGapDays(clean)
	var warning string
	if gap > opts.MedianGapThreshold {
		switch opts.Mode {
		case Strict:
			return ValidateResult{}, errs.Validation(
				"series is not daily: detected median gap of %.1f days (threshold %.1f)",
				gap, opts.MedianGapThreshold)
		case Resample:
			if len(clean) < minResamplePeriods {
				return ValidateResult{}, errs.Validation(
					"cannot resample: need at least %d distinct dates, got %d",
					minResamplePeriods, len(clean))
			}
			clean = resampleDaily(clean)
			warning = "series resampled to daily cadence by linear interpolation"
		}
	}

	if len(clean) < opts.MinRows {
		return ValidateResult{}, errs.InsufficientData(
			"series has %d rows after cleaning, need at least %d",
			len(clean), opts.MinRows)
	}
	return ValidateResult{Series: clean, Warning: warning}, nil
}

// medianGapDays computes the median gap in days between consecutive
// distinct dates. A single-point series reports a gap of 1.
func medianGapDays(s Series) float64 {
	if len(s) < 2 {
		return 1
	}
	gaps := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		gaps = append(gaps, s[i].Date.Sub(s[i-1].Date).Hours()/24)
	}
	sort.Float64s(gaps)
	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid]
	}
	return (gaps[mid-1] + gaps[mid]) / 2
}

// resampleDaily fills the full daily date range between the first and last
// observation, linearly interpolating values between known points.
func resampleDaily(s Series) Series {
	first, last := s[0].Date, s[len(s)-1].Date
	days := int(last.Sub(first).Hours()/24) + 1
	out := make(Series, 0, days)

	known := 0 // index of the known point at or before the current day
	for d := 0; d < days; d++ {
		date := first.AddDate(0, 0, d)
		for known+1 < len(s) && !s[known+1].Date.After(date) {
			known++
		}
		if s[known].Date.Equal(date) || known == len(s)-1 {
			out = append(out, Point{Date: date, Value: s[known].Value})
			continue
		}
		prev, next := s[known], s[known+1]
		span := next.Date.Sub(prev.Date).Hours() / 24
		frac := date.Sub(prev.Date).Hours() / 24 / span
		out = append(out, Point{
			Date:  date,
			Value: prev.Value + frac*(next.Value-prev.Value),
		})
	}
	return out
}
