// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package forecast

import (
	"sort"
	"time"

	"github.com/podscale/podscale/internal/features"
	"github.com/podscale/podscale/internal/logging"
	"github.com/podscale/podscale/internal/model"
)

// OptimizeOptions controls the release-schedule search.
type OptimizeOptions struct {
	// Horizon is the forecast length in days; DefaultHorizon when 0.
	Horizon int

	// Explicit release dates the caller has already committed to. They
	// are always part of the schedule.
	Explicit []time.Time

	// Target is the total number of release days wanted across the
	// horizon, explicit dates included. When 0 the target defaults to
	// the number of release days already present in the baseline pass,
	// which means no extra dates are added.
	Target int

	// Specs overrides the feature specification; features.DefaultSet
	// when nil.
	Specs []features.Spec
}

// OptimizeResult pairs the baseline forecast with the optimized one.
type OptimizeResult struct {
	Baseline     *Result     `json:"baseline"`
	Optimized    *Result     `json:"optimized"`
	ReleaseDates []time.Time `json:"release_dates"`
}

// candidate is a forecast day eligible to receive an added release.
type candidate struct {
	date      time.Time
	predicted float64
}

// Optimize greedily places release days. It forecasts once with only the
// explicit dates, ranks the remaining days by that pass's predicted
// downloads, promotes the top days until the target count is met, and
// reforecasts from the original seed with the full schedule. The added
// dates are chosen in a single pass over the baseline ranking; later
// additions do not trigger re-ranking.
func Optimize(art *model.Artifact, seed *features.History, opts OptimizeOptions) (*OptimizeResult, error) {
	explicit := releaseSet(opts.Explicit)

	baseline, err := Run(art, seed, Options{
		Horizon:  opts.Horizon,
		Releases: explicit,
		Specs:    opts.Specs,
	})
	if err != nil {
		return nil, err
	}

	scheduled := 0
	candidates := make([]candidate, 0, len(baseline.Days))
	for _, d := range baseline.Days {
		if d.Release {
			scheduled++
			continue
		}
		candidates = append(candidates, candidate{date: d.Date, predicted: d.Predicted})
	}

	target := opts.Target
	if target == 0 {
		target = scheduled
	}

	result := &OptimizeResult{
		Baseline:     baseline,
		Optimized:    baseline,
		ReleaseDates: scheduleDates(baseline),
	}
	if target <= scheduled || len(candidates) == 0 {
		return result, nil
	}

	// Promote the baseline's strongest days, earliest first on ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].predicted > candidates[j].predicted
	})
	shortfall := target - scheduled
	if shortfall > len(candidates) {
		shortfall = len(candidates)
	}

	schedule := make(map[time.Time]struct{}, scheduled+shortfall)
	for d := range explicit {
		schedule[d] = struct{}{}
	}
	for _, c := range candidates[:shortfall] {
		schedule[c.date] = struct{}{}
	}

	optimized, err := Run(art, seed, Options{
		Horizon:  opts.Horizon,
		Releases: schedule,
		Specs:    opts.Specs,
	})
	if err != nil {
		return nil, err
	}

	logging.Debug().
		Int("added", shortfall).
		Float64("baseline_total", baseline.Total).
		Float64("optimized_total", optimized.Total).
		Msg("release schedule optimized")

	result.Optimized = optimized
	result.ReleaseDates = scheduleDates(optimized)
	return result, nil
}

// scheduleDates lists the release days of a forecast in order.
func scheduleDates(r *Result) []time.Time {
	dates := make([]time.Time, 0)
	for _, d := range r.Days {
		if d.Release {
			dates = append(dates, d.Date)
		}
	}
	return dates
}
