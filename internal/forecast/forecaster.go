// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package forecast produces autoregressive download forecasts from a
// trained model artifact and searches release schedules for the best
// predicted total.
//
// The loop is strictly sequential: each forecast day's features are
// generated from the history as it stands, the prediction is appended,
// and the next day sees it as realized data. Features undefined at a
// given depth are zero, so early forecast days lean on the intercept and
// whatever lags the seed history covers.
package forecast

import (
	"time"

	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/features"
	"github.com/podscale/podscale/internal/model"
)

// DefaultHorizon is the forecast length in days when the caller does not
// override it.
const DefaultHorizon = 60

// Options controls a forecast run.
type Options struct {
	// Horizon is the number of days to forecast; DefaultHorizon when 0.
	Horizon int

	// Releases holds calendar days (midnight, UTC) with a scheduled
	// episode release. Days absent from the map get no release.
	Releases map[time.Time]struct{}

	// Specs overrides the feature specification; features.DefaultSet
	// when nil. Must match the set the artifact was trained with.
	Specs []features.Spec
}

// Day is one forecast step.
type Day struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted_downloads"`
	Release   bool      `json:"episode_release"`
}

// Result is a completed forecast.
type Result struct {
	Days  []Day   `json:"days"`
	Total float64 `json:"total_predicted_downloads"`
}

// Run forecasts Horizon consecutive days beyond the seed history. The
// seed is cloned, never mutated, so callers can reuse it across runs.
func Run(art *model.Artifact, seed *features.History, opts Options) (*Result, error) {
	if err := art.Validate(); err != nil {
		return nil, err
	}
	if seed.Len() == 0 {
		return nil, errs.InsufficientData("cannot forecast from an empty history")
	}
	horizon := opts.Horizon
	if horizon == 0 {
		horizon = DefaultHorizon
	}
	if horizon < 0 {
		return nil, errs.Validation("forecast horizon must be positive, got %d", horizon)
	}
	specs := opts.Specs
	if specs == nil {
		specs = features.DefaultSet()
	}

	h := seed.Clone()
	last := h.Dates[h.Len()-1]

	result := &Result{Days: make([]Day, 0, horizon)}
	for step := 0; step < horizon; step++ {
		date := last.AddDate(0, 0, step+1)
		releases := 0.0
		if _, ok := opts.Releases[date]; ok {
			releases = 1
		}

		vec := features.Vector(h, date, releases, specs, art.SelectedFeatures)
		pred := art.Predict(vec)

		result.Days = append(result.Days, Day{
			Date:      date,
			Predicted: pred,
			Release:   releases > 0,
		})
		result.Total += pred

		// The prediction becomes realized history for later steps.
		h.Append(date, pred, releases)
	}
	return result, nil
}

// releaseSet normalizes a date slice into the lookup map Run expects.
func releaseSet(dates []time.Time) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		set[midnight(d)] = struct{}{}
	}
	return set
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
