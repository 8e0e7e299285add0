// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package features constructs the predictor matrix for download modeling.
//
// Every feature is declared in an explicit, ordered specification: a name
// plus a generator evaluated against the history strictly before the row
// being built. The predictor vector is therefore assembled by position,
// never by matching on column-name strings, and the same generators drive
// both training-matrix construction and the autoregressive forecast loop.
//
// Leakage rule: a generator may read prior history rows, the row's own
// date, and the row's own release indicator (a scheduling decision known
// ahead of time) — never the row's target value.
package features

import (
	"math"
	"strconv"
	"time"
)

// History is the chronological record generators read. The three columns
// are parallel: Dates[i] carries Target[i] downloads and Releases[i]
// episode releases.
type History struct {
	Dates    []time.Time
	Target   []float64
	Releases []float64
}

// Len returns the number of history rows.
func (h *History) Len() int { return len(h.Dates) }

// Append adds one realized row to the history.
func (h *History) Append(date time.Time, target, releases float64) {
	h.Dates = append(h.Dates, date)
	h.Target = append(h.Target, target)
	h.Releases = append(h.Releases, releases)
}

// Clone deep-copies the history, so forecast simulations can grow a copy
// without mutating the seed.
func (h *History) Clone() *History {
	return &History{
		Dates:    append([]time.Time(nil), h.Dates...),
		Target:   append([]float64(nil), h.Target...),
		Releases: append([]float64(nil), h.Releases...),
	}
}

// Row is the generator input for a single date: the history visible to the
// row (rows strictly before it) plus the row's own date and scheduled
// release count.
type Row struct {
	// Hist is the full history; only indices < End are visible.
	Hist *History
	End  int

	Date     time.Time
	Releases float64
}

// target returns the visible target column.
func (r Row) target() []float64 { return r.Hist.Target[:r.End] }

// releases returns the visible release column.
func (r Row) releases() []float64 { return r.Hist.Releases[:r.End] }

// Spec declares one feature: a stable name, a generator, and optionally
// the name of a feature this one algebraically restates (dropped by
// Resolve when both are present, to block trivial leakage).
type Spec struct {
	Name        string
	RedundantOf string
	Generate    func(Row) float64
}

// rollingWindow is the trailing window for rolling statistics.
const rollingWindow = 7

// fourierHarmonics is the number of seasonal harmonics per period.
const fourierHarmonics = 2

// daysPerYear is the Fourier period for annual seasonality.
const daysPerYear = 365.25

// DefaultSet returns the ordered feature specification for the download
// target: target lags 1/7/14, shifted rolling statistics, shifted
// expanding mean, weekend flag, Fourier harmonics of day-of-year and
// day-of-week, release-history lags and rolling sum, and release
// interaction terms. Generators return NaN when the history is too short
// to define the feature.
func DefaultSet() []Spec {
	specs := []Spec{
		{Name: "downloads_lag_1", Generate: targetLag(1)},
		{Name: "downloads_lag_7", Generate: targetLag(7)},
		{Name: "downloads_lag_14", Generate: targetLag(14)},

		// First difference restates lag 1 against the current value;
		// Resolve drops it whenever the lag itself is selected.
		{Name: "downloads_diff_1", RedundantOf: "downloads_lag_1", Generate: targetDiff1},

		{Name: "downloads_rolling_min_7", Generate: rollingStat(minOf)},
		{Name: "downloads_rolling_max_7", Generate: rollingStat(maxOf)},
		{Name: "downloads_rolling_median_7", Generate: rollingStat(medianOf)},
		{Name: "downloads_rolling_mean_7", Generate: rollingStat(meanOf)},
		{Name: "downloads_expanding_mean", Generate: expandingMean},

		{Name: "is_weekend", Generate: func(r Row) float64 { return boolTo(isWeekend(r.Date)) }},
	}

	for k := 1; k <= fourierHarmonics; k++ {
		specs = append(specs,
			Spec{Name: fourierName("doy_sin", k), Generate: fourierDOY(math.Sin, k)},
			Spec{Name: fourierName("doy_cos", k), Generate: fourierDOY(math.Cos, k)},
		)
	}
	for k := 1; k <= fourierHarmonics; k++ {
		specs = append(specs,
			Spec{Name: fourierName("dow_sin", k), Generate: fourierDOW(math.Sin, k)},
			Spec{Name: fourierName("dow_cos", k), Generate: fourierDOW(math.Cos, k)},
		)
	}

	specs = append(specs,
		Spec{Name: "episodes_released", Generate: func(r Row) float64 { return r.Releases }},
		Spec{Name: "episodes_released_lag_1", Generate: releaseLag(1)},
		Spec{Name: "episodes_released_lag_2", Generate: releaseLag(2)},
		Spec{Name: "episodes_released_lag_3", Generate: releaseLag(3)},
		Spec{Name: "episodes_released_lag_7", Generate: releaseLag(7)},
		Spec{Name: "episodes_released_rolling_7", Generate: releaseRollingSum},
	)

	// Interactions: the release indicator crossed with release history,
	// the weekend flag, and the weekly Fourier terms.
	for _, lag := range []int{1, 2, 3, 7} {
		lag := lag
		specs = append(specs, Spec{
			Name:     interactionName("lag", lag),
			Generate: interact(releaseLag(lag)),
		})
	}
	specs = append(specs,
		Spec{Name: "release_x_rolling_7", Generate: interact(releaseRollingSum)},
		Spec{Name: "release_x_weekend", Generate: interact(func(r Row) float64 { return boolTo(isWeekend(r.Date)) })},
	)
	for k := 1; k <= fourierHarmonics; k++ {
		specs = append(specs,
			Spec{Name: "release_x_" + fourierName("dow_sin", k), Generate: interact(fourierDOW(math.Sin, k))},
			Spec{Name: "release_x_" + fourierName("dow_cos", k), Generate: interact(fourierDOW(math.Cos, k))},
		)
	}
	return specs
}

// Resolve drops specs that algebraically restate another spec in the set.
func Resolve(specs []Spec) []Spec {
	present := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		present[s.Name] = struct{}{}
	}
	out := specs[:0:0]
	for _, s := range specs {
		if s.RedundantOf != "" {
			if _, ok := present[s.RedundantOf]; ok {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func targetLag(lag int) func(Row) float64 {
	return func(r Row) float64 {
		t := r.target()
		if len(t) < lag {
			return math.NaN()
		}
		return t[len(t)-lag]
	}
}

// targetDiff1 is the day-over-day change ending at the previous day.
func targetDiff1(r Row) float64 {
	t := r.target()
	if len(t) < 2 {
		return math.NaN()
	}
	return t[len(t)-1] - t[len(t)-2]
}

// rollingStat computes a statistic over the trailing window of prior
// target values. At least one prior value is required; shorter histories
// use what is available (the one-day shift is inherent: the window ends
// at the previous day).
func rollingStat(stat func([]float64) float64) func(Row) float64 {
	return func(r Row) float64 {
		t := r.target()
		if len(t) == 0 {
			return math.NaN()
		}
		lo := len(t) - rollingWindow
		if lo < 0 {
			lo = 0
		}
		return stat(t[lo:])
	}
}

// expandingMean is the mean of all prior target values.
func expandingMean(r Row) float64 {
	t := r.target()
	if len(t) == 0 {
		return math.NaN()
	}
	return meanOf(t)
}

func releaseLag(lag int) func(Row) float64 {
	return func(r Row) float64 {
		rel := r.releases()
		if len(rel) < lag {
			return 0
		}
		return rel[len(rel)-lag]
	}
}

// releaseRollingSum sums releases over the trailing window of prior days.
func releaseRollingSum(r Row) float64 {
	rel := r.releases()
	lo := len(rel) - rollingWindow
	if lo < 0 {
		lo = 0
	}
	total := 0.0
	for _, v := range rel[lo:] {
		total += v
	}
	return total
}

// interact multiplies a base generator by the release indicator.
func interact(base func(Row) float64) func(Row) float64 {
	return func(r Row) float64 {
		if r.Releases == 0 {
			return 0
		}
		return r.Releases * base(r)
	}
}

func fourierDOY(fn func(float64) float64, k int) func(Row) float64 {
	return func(r Row) float64 {
		doy := float64(r.Date.YearDay())
		return fn(2 * math.Pi * float64(k) * doy / daysPerYear)
	}
}

func fourierDOW(fn func(float64) float64, k int) func(Row) float64 {
	return func(r Row) float64 {
		dow := float64(weekday(r.Date))
		return fn(2 * math.Pi * float64(k) * dow / 7)
	}
}

// weekday maps to Monday=0..Sunday=6.
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func isWeekend(t time.Time) bool {
	return weekday(t) >= 5
}

func boolTo(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func fourierName(prefix string, k int) string {
	return prefix + "_" + strconv.Itoa(k)
}

func interactionName(kind string, n int) string {
	return "release_x_" + kind + "_" + strconv.Itoa(n)
}
