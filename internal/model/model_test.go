// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package model

import (
	"math"
	"testing"
	"time"

	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/features"
)

func TestRidgeFitRecoversLinearSignal(t *testing.T) {
	// y = 3 + 2*x1 - 1*x2, noise-free. A tiny penalty should recover the
	// coefficients almost exactly.
	x := make([][]float64, 40)
	y := make([]float64, 40)
	for i := range x {
		x1 := float64(i)
		x2 := float64(i%7) * 1.5
		x[i] = []float64{x1, x2}
		y[i] = 3 + 2*x1 - x2
	}

	r := newRidge(1e-6)
	if err := r.fit(x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if math.Abs(r.coef[0]-2) > 1e-3 {
		t.Errorf("coef[0] = %v, want ~2", r.coef[0])
	}
	if math.Abs(r.coef[1]+1) > 1e-3 {
		t.Errorf("coef[1] = %v, want ~-1", r.coef[1])
	}
	if math.Abs(r.intercept-3) > 1e-2 {
		t.Errorf("intercept = %v, want ~3", r.intercept)
	}
}

func TestRidgeFitRejectsEmptyInput(t *testing.T) {
	r := newRidge(1.0)
	if err := r.fit(nil, nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestRidgePenaltyShrinksCoefficients(t *testing.T) {
	x := make([][]float64, 30)
	y := make([]float64, 30)
	for i := range x {
		x[i] = []float64{float64(i)}
		y[i] = 5 * float64(i)
	}

	small := newRidge(1e-6)
	large := newRidge(1e6)
	if err := small.fit(x, y); err != nil {
		t.Fatalf("fit small: %v", err)
	}
	if err := large.fit(x, y); err != nil {
		t.Fatalf("fit large: %v", err)
	}
	if math.Abs(large.coef[0]) >= math.Abs(small.coef[0]) {
		t.Errorf("large penalty coef %v not smaller than %v", large.coef[0], small.coef[0])
	}
}

func TestRSquared(t *testing.T) {
	actual := []float64{1, 2, 3, 4}
	if got := rSquared(actual, actual); math.Abs(got-1) > 1e-12 {
		t.Errorf("perfect fit scored %v, want 1", got)
	}
	constant := []float64{2, 2, 2, 2}
	if got := rSquared(constant, []float64{1, 2, 3, 4}); got != 0 {
		t.Errorf("constant target scored %v, want 0", got)
	}
}

func TestScalerZeroVarianceColumn(t *testing.T) {
	x := [][]float64{{1, 5}, {2, 5}, {3, 5}}
	s := fitScaler(x)
	if s.scale[1] != 1 {
		t.Errorf("zero-variance scale = %v, want 1", s.scale[1])
	}
	scaled := s.transform(x)
	for i, row := range scaled {
		if row[1] != 0 {
			t.Errorf("row %d constant column scaled to %v, want 0", i, row[1])
		}
	}
}

func TestFoldBoundsPartition(t *testing.T) {
	bounds := foldBounds(23, 5)
	if len(bounds) != 5 {
		t.Fatalf("got %d folds, want 5", len(bounds))
	}
	prev := 0
	total := 0
	for _, b := range bounds {
		if b[0] != prev {
			t.Errorf("fold starts at %d, want %d", b[0], prev)
		}
		total += b[1] - b[0]
		prev = b[1]
	}
	if total != 23 {
		t.Errorf("folds cover %d rows, want 23", total)
	}
}

func TestSelectFeaturesKeepsSignal(t *testing.T) {
	// x0 drives the target; x1 is deterministic junk uncorrelated with it.
	x := make([][]float64, 50)
	y := make([]float64, 50)
	for i := range x {
		signal := float64(i % 11)
		junk := math.Sin(float64(i) * 17.3)
		x[i] = []float64{signal, junk}
		y[i] = 4 * signal
	}

	selected := selectFeatures(x, y, []string{"signal", "junk"})
	found := false
	for _, name := range selected {
		if name == "signal" {
			found = true
		}
	}
	if !found {
		t.Errorf("selected = %v, want signal kept", selected)
	}
}

func TestSelectFeaturesAlwaysKeepsOne(t *testing.T) {
	x := [][]float64{{1, 2}, {2, 4}, {3, 1}, {4, 3}, {5, 5}}
	y := []float64{0, 0, 0, 0, 0}
	selected := selectFeatures(x, y, []string{"a", "b"})
	if len(selected) == 0 {
		t.Fatal("no features selected")
	}
}

func TestDropCorrelated(t *testing.T) {
	m := &features.Matrix{
		Names: []string{"a", "a_copy", "b"},
		X:     make([][]float64, 30),
		Y:     make([]float64, 30),
	}
	for i := range m.X {
		v := float64(i)
		m.X[i] = []float64{v, 2*v + 1, math.Cos(v * 3.7)}
		m.Y[i] = v
	}
	dropCorrelated(m)
	if len(m.Names) != 2 || m.Names[0] != "a" || m.Names[1] != "b" {
		t.Errorf("kept %v, want [a b]", m.Names)
	}
}

func TestTrainInsufficientData(t *testing.T) {
	m := &features.Matrix{
		Names: []string{"x"},
		Dates: []time.Time{time.Now()},
		X:     [][]float64{{1}},
		Y:     []float64{1},
	}
	_, _, err := Train(m, "downloads", "pod-1")
	if !errs.IsKind(err, errs.KindInsufficientData) {
		t.Fatalf("err = %v, want insufficient data", err)
	}
}

func TestTrainEndToEnd(t *testing.T) {
	n := 80
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &features.Matrix{
		Names: []string{"trend", "weekly", "noise"},
		Dates: make([]time.Time, n),
		X:     make([][]float64, n),
		Y:     make([]float64, n),
	}
	for i := 0; i < n; i++ {
		trend := float64(i)
		weekly := math.Sin(2 * math.Pi * float64(i) / 7)
		noise := math.Sin(float64(i) * 13.7)
		m.Dates[i] = start.AddDate(0, 0, i)
		m.X[i] = []float64{trend, weekly, noise}
		m.Y[i] = 100 + 1.5*trend + 20*weekly
	}

	art, metrics, err := Train(m, "downloads", "pod-1")
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if err := art.Validate(); err != nil {
		t.Fatalf("artifact invalid: %v", err)
	}
	if art.PodcastID != "pod-1" || art.Target != "downloads" {
		t.Errorf("artifact identity = %q/%q", art.PodcastID, art.Target)
	}
	if metrics.NTrain == 0 || metrics.NTest == 0 {
		t.Fatalf("split sizes train=%d test=%d", metrics.NTrain, metrics.NTest)
	}
	if metrics.Score < 0.9 {
		t.Errorf("held-out R² = %v, want > 0.9 on clean signal", metrics.Score)
	}
	if len(metrics.Predictions) != metrics.NTest {
		t.Errorf("got %d predictions for %d test rows", len(metrics.Predictions), metrics.NTest)
	}
}

func TestArtifactPredictUsesPersistedScaler(t *testing.T) {
	art := &Artifact{
		SelectedFeatures: []string{"x"},
		Coefficients:     map[string]float64{"x": 2},
		Intercept:        1,
		ScalerMean:       map[string]float64{"x": 10},
		ScalerScale:      map[string]float64{"x": 5},
	}
	// (20-10)/5 = 2, 1 + 2*2 = 5.
	if got := art.Predict([]float64{20}); math.Abs(got-5) > 1e-12 {
		t.Errorf("Predict = %v, want 5", got)
	}
}

func TestArtifactValidate(t *testing.T) {
	art := &Artifact{
		SelectedFeatures: []string{"x"},
		Coefficients:     map[string]float64{},
		ScalerMean:       map[string]float64{"x": 0},
		ScalerScale:      map[string]float64{"x": 1},
	}
	if err := art.Validate(); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
