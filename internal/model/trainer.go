// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package model

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/features"
	"github.com/podscale/podscale/internal/logging"
)

// correlationCutoff removes predictors pairwise-correlated above this
// threshold, keeping the first occurrence.
const correlationCutoff = 0.95

// residualZCutoff trims rows whose standardized residual magnitude
// exceeds this value before the final fit.
const residualZCutoff = 3.0

// trainFraction is the chronological train share of the 80/20 split.
const trainFraction = 0.8

// minTrainingRows is the floor below which training is refused outright.
const minTrainingRows = 10

// Metrics summarizes a completed training run for the caller.
type Metrics struct {
	Score            float64   `json:"score"`
	Intercept        float64   `json:"intercept"`
	BestAlpha        float64   `json:"best_alpha"`
	NTrain           int       `json:"n_train"`
	NTest            int       `json:"n_test"`
	SelectedFeatures []string  `json:"selected_features"`
	Predictions      []float64 `json:"predictions"`
	Actuals          []float64 `json:"actuals"`
}

// Train runs the full modeling pipeline on a feature matrix:
//
//  1. drop rows with missing predictors or target
//  2. remove predictors pairwise-correlated above 0.95
//  3. recursive feature elimination with cross-validation
//  4. standardize the selected features
//  5. grid-search the regularization strength (20 log-spaced points)
//  6. trim rows with |standardized residual| > 3 from a full-data fit
//  7. chronological 80/20 split, no shuffling
//  8. final ridge fit on the training split
//  9. R² evaluation on the held-out split
//
// The rows of m must already be in chronological order. Any failure
// aborts the run; nothing is persisted here, so a prior artifact stays
// authoritative until the caller stores the returned one.
func Train(m *features.Matrix, target, podcastID string) (*Artifact, *Metrics, error) {
	m.DropIncompleteRows()
	if len(m.X) < minTrainingRows {
		return nil, nil, errs.InsufficientData(
			"only %d complete rows available for regression, need at least %d",
			len(m.X), minTrainingRows)
	}

	dropCorrelated(m)

	selected := selectFeatures(m.X, m.Y, m.Names)
	m.Select(selected)
	logging.Debug().Strs("features", selected).Msg("features selected by elimination")

	sc := fitScaler(m.X)
	scaled := sc.transform(m.X)

	bestAlpha := searchAlpha(scaled, m.Y)

	keep, err := residualMask(scaled, m.Y, bestAlpha)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindInternal, err, "residual trimming failed")
	}
	scaled, y := applyMask(scaled, m.Y, keep)

	nTrain := int(float64(len(scaled)) * trainFraction)
	if nTrain < 1 {
		nTrain = 1
	}
	trainX, testX := scaled[:nTrain], scaled[nTrain:]
	trainY, testY := y[:nTrain], y[nTrain:]

	final := newRidge(bestAlpha)
	if err := final.fit(trainX, trainY); err != nil {
		return nil, nil, errs.Wrap(errs.KindInternal, err, "final model fit failed")
	}

	score := 0.0
	var predictions []float64
	if len(testX) > 0 {
		predictions = final.predictAll(testX)
		score = rSquared(testY, predictions)
	}

	artifact := &Artifact{
		PodcastID:        podcastID,
		Target:           target,
		SelectedFeatures: selected,
		Coefficients:     make(map[string]float64, len(selected)),
		Intercept:        final.intercept,
		ScalerMean:       make(map[string]float64, len(selected)),
		ScalerScale:      make(map[string]float64, len(selected)),
		Alpha:            bestAlpha,
		TrainedAt:        time.Now().UTC(),
	}
	for i, name := range m.Names {
		artifact.Coefficients[name] = final.coef[i]
		artifact.ScalerMean[name] = sc.mean[i]
		artifact.ScalerScale[name] = sc.scale[i]
	}

	metrics := &Metrics{
		Score:            score,
		Intercept:        final.intercept,
		BestAlpha:        bestAlpha,
		NTrain:           len(trainX),
		NTest:            len(testX),
		SelectedFeatures: selected,
		Predictions:      predictions,
		Actuals:          testY,
	}
	return artifact, metrics, nil
}

// dropCorrelated removes each predictor whose absolute Pearson
// correlation with an earlier kept predictor exceeds the cutoff.
func dropCorrelated(m *features.Matrix) {
	p := len(m.Names)
	cols := make([][]float64, p)
	for c := 0; c < p; c++ {
		col := make([]float64, len(m.X))
		for r, row := range m.X {
			col[r] = row[c]
		}
		cols[c] = col
	}

	kept := make([]string, 0, p)
	keptIdx := make([]int, 0, p)
	for c := 0; c < p; c++ {
		collinear := false
		for _, k := range keptIdx {
			r := stat.Correlation(cols[k], cols[c], nil)
			if !math.IsNaN(r) && math.Abs(r) > correlationCutoff {
				collinear = true
				break
			}
		}
		if !collinear {
			kept = append(kept, m.Names[c])
			keptIdx = append(keptIdx, c)
		}
	}
	if len(kept) < p {
		logging.Debug().Int("dropped", p-len(kept)).Msg("collinear predictors removed")
		m.Select(kept)
	}
}

// residualMask fits the grid-selected ridge on the full data and flags
// rows whose standardized residual magnitude stays within the cutoff.
func residualMask(x [][]float64, y []float64, alpha float64) ([]bool, error) {
	r := newRidge(alpha)
	if err := r.fit(x, y); err != nil {
		return nil, err
	}
	pred := r.predictAll(x)
	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - pred[i]
	}
	mean := stat.Mean(residuals, nil)
	sd := stat.StdDev(residuals, nil)

	keep := make([]bool, len(y))
	for i, res := range residuals {
		if sd == 0 {
			keep[i] = true
			continue
		}
		keep[i] = math.Abs((res-mean)/sd) <= residualZCutoff
	}
	return keep, nil
}

func applyMask(x [][]float64, y []float64, keep []bool) ([][]float64, []float64) {
	outX := x[:0:0]
	outY := y[:0:0]
	for i, ok := range keep {
		if ok {
			outX = append(outX, x[i])
			outY = append(outY, y[i])
		}
	}
	return outX, outY
}
