// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package model trains the regularized download regression and owns the
// persisted model artifact consumed by the forecaster.
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ridge is an L2-regularized linear regression. The intercept is fit
// unpenalized by centering the predictors and target before solving
//
//	(XcᵀXc + αI) β = Xcᵀ yc
//
// so behavior matches the conventional ridge estimator regardless of
// whether the input is standardized.
type ridge struct {
	alpha     float64
	coef      []float64
	intercept float64
}

func newRidge(alpha float64) *ridge {
	return &ridge{alpha: alpha}
}

// fit estimates coefficients from the rows of x and targets y.
func (r *ridge) fit(x [][]float64, y []float64) error {
	n := len(x)
	if n == 0 || n != len(y) {
		return fmt.Errorf("ridge: need matching non-empty x (%d) and y (%d)", n, len(y))
	}
	p := len(x[0])
	if p == 0 {
		return fmt.Errorf("ridge: no predictors")
	}

	colMeans := make([]float64, p)
	for _, row := range x {
		for c, v := range row {
			colMeans[c] += v
		}
	}
	for c := range colMeans {
		colMeans[c] /= float64(n)
	}
	yMean := stat.Mean(y, nil)

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range x {
		for c, v := range row {
			xc.Set(i, c, v-colMeans[c])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	// Normal equations with the penalty on the diagonal.
	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	for c := 0; c < p; c++ {
		gram.Set(c, c, gram.At(c, c)+r.alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(xc.T(), yc)

	var beta mat.VecDense
	if err := beta.SolveVec(&gram, &rhs); err != nil {
		return fmt.Errorf("ridge: solve failed: %w", err)
	}

	r.coef = make([]float64, p)
	r.intercept = yMean
	for c := 0; c < p; c++ {
		r.coef[c] = beta.AtVec(c)
		r.intercept -= r.coef[c] * colMeans[c]
	}
	return nil
}

// predict evaluates the fitted model on one row.
func (r *ridge) predict(row []float64) float64 {
	out := r.intercept
	for c, v := range row {
		out += r.coef[c] * v
	}
	return out
}

// predictAll evaluates the fitted model on every row.
func (r *ridge) predictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = r.predict(row)
	}
	return out
}

// rSquared is the coefficient of determination. A constant target has no
// variance to explain and scores 0.
func rSquared(actual, predicted []float64) float64 {
	mean := stat.Mean(actual, nil)
	ssTot, ssRes := 0.0, 0.0
	for i, a := range actual {
		dt := a - mean
		dr := a - predicted[i]
		ssTot += dt * dt
		ssRes += dr * dr
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
