// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package analytics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/podscale/podscale/internal/errs"
)

// maxImpactLag is how many days after a release are examined for lift.
const maxImpactLag = 7

// significanceLevel is the p-value cutoff for a lag to count as impact.
const significanceLevel = 0.05

// ImpactResult reports how long a release measurably lifts downloads.
type ImpactResult struct {
	// DaysOfImpact counts consecutive significant lags starting at the
	// release day itself.
	DaysOfImpact int `json:"days_of_impact"`

	// ImpactPerDay lists the estimated extra downloads per significant
	// lag, release day first.
	ImpactPerDay []float64 `json:"impact_per_day"`

	// TotalImpact is the summed lift across the significant lags.
	TotalImpact float64 `json:"total_impact"`

	// AverageImpact is TotalImpact spread over DaysOfImpact.
	AverageImpact float64 `json:"average_impact"`
}

// Impact regresses daily downloads on release indicators lagged 0 through
// 7 days and walks the lag coefficients in order, stopping at the first
// statistically insignificant one. The walk encodes the physical claim:
// a release cannot lift day k+1 without lifting day k.
func Impact(downloads, releases []float64) (*ImpactResult, error) {
	n := len(downloads)
	if n != len(releases) {
		return nil, errs.Validation(
			"downloads (%d) and releases (%d) must be the same length", n, len(releases))
	}

	// One column per lag, one intercept, and a few residual degrees of
	// freedom for the t-test.
	p := maxImpactLag + 2
	if n < p+3 {
		return nil, errs.InsufficientData(
			"impact analysis needs at least %d days, got %d", p+3, n)
	}

	hasRelease := false
	for _, r := range releases {
		if r != 0 {
			hasRelease = true
			break
		}
	}
	if !hasRelease {
		return nil, errs.InsufficientData("no releases in the analyzed period")
	}

	coefs, pvals, err := lagRegression(downloads, releases)
	if err != nil {
		return nil, err
	}

	result := &ImpactResult{ImpactPerDay: []float64{}}
	for lag := 0; lag <= maxImpactLag; lag++ {
		if pvals[lag] >= significanceLevel {
			break
		}
		result.DaysOfImpact++
		result.ImpactPerDay = append(result.ImpactPerDay, coefs[lag])
		result.TotalImpact += coefs[lag]
	}
	if result.DaysOfImpact > 0 {
		result.AverageImpact = result.TotalImpact / float64(result.DaysOfImpact)
	}
	return result, nil
}

// lagRegression fits OLS of downloads on release lags 0..maxImpactLag
// plus an intercept, returning the lag coefficients and their two-sided
// p-values.
func lagRegression(downloads, releases []float64) (coefs, pvals []float64, err error) {
	n := len(downloads)
	p := maxImpactLag + 2

	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for lag := 0; lag <= maxImpactLag; lag++ {
			v := 0.0
			if i-lag >= 0 {
				v = releases[i-lag]
			}
			x.Set(i, lag, v)
		}
		x.Set(i, p-1, 1)
		y.SetVec(i, downloads[i])
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, nil, errs.Wrap(errs.KindInsufficientData, err,
			"release pattern is collinear, cannot separate lag effects")
	}
	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	// Residual variance with n-p degrees of freedom.
	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		rss += r * r
	}
	df := float64(n - p)
	sigma2 := rss / df

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	coefs = make([]float64, maxImpactLag+1)
	pvals = make([]float64, maxImpactLag+1)
	for lag := 0; lag <= maxImpactLag; lag++ {
		coefs[lag] = beta.AtVec(lag)
		se := math.Sqrt(sigma2 * xtxInv.At(lag, lag))
		if se == 0 {
			// A perfectly fit coefficient; zero lift is insignificant,
			// anything else is certain.
			if coefs[lag] == 0 {
				pvals[lag] = 1
			}
			continue
		}
		t := coefs[lag] / se
		pvals[lag] = 2 * tdist.Survival(math.Abs(t))
	}
	return coefs, pvals, nil
}
