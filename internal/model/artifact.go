// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package model

import (
	"time"

	"github.com/podscale/podscale/internal/errs"
)

// Artifact is the immutable snapshot of a trained download model. It is
// created by Train, persisted wholesale, and read-only to the forecaster.
// Version supports compare-and-swap writes: a retraining must present the
// version it read, and the store rejects stale writes.
type Artifact struct {
	PodcastID        string             `json:"podcast_id"`
	Target           string             `json:"target"`
	SelectedFeatures []string           `json:"selected_features"`
	Coefficients     map[string]float64 `json:"coefficients"`
	Intercept        float64            `json:"intercept"`
	ScalerMean       map[string]float64 `json:"scaler_mean"`
	ScalerScale      map[string]float64 `json:"scaler_scale"`
	Alpha            float64            `json:"alpha"`
	TrainedAt        time.Time          `json:"trained_at"`
	Version          int64              `json:"version"`
}

// Validate checks internal consistency after loading from storage.
func (a *Artifact) Validate() error {
	if len(a.SelectedFeatures) == 0 {
		return errs.Validation("model artifact has no selected features")
	}
	for _, f := range a.SelectedFeatures {
		if _, ok := a.Coefficients[f]; !ok {
			return errs.Validation("model artifact missing coefficient for %q", f)
		}
		if _, ok := a.ScalerMean[f]; !ok {
			return errs.Validation("model artifact missing scaler mean for %q", f)
		}
		if _, ok := a.ScalerScale[f]; !ok {
			return errs.Validation("model artifact missing scaler scale for %q", f)
		}
	}
	return nil
}

// Predict scales a raw feature vector (ordered by SelectedFeatures) with
// the persisted scaler parameters and evaluates the linear model.
func (a *Artifact) Predict(vec []float64) float64 {
	out := a.Intercept
	for i, name := range a.SelectedFeatures {
		scale := a.ScalerScale[name]
		if scale == 0 {
			scale = 1
		}
		scaled := (vec[i] - a.ScalerMean[name]) / scale
		out += a.Coefficients[name] * scaled
	}
	return out
}
