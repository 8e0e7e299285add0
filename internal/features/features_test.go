// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package features

import (
	"math"
	"testing"
	"time"
)

func day(offset int) time.Time {
	// 2026-05-04 is a Monday.
	return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func testHistory(n int) *History {
	h := &History{}
	for i := 0; i < n; i++ {
		rel := 0.0
		if i%7 == 2 {
			rel = 1
		}
		h.Append(day(i), float64(100+i), rel)
	}
	return h
}

func column(m *Matrix, name string, t *testing.T) []float64 {
	t.Helper()
	col := m.Column(name)
	if col == nil {
		t.Fatalf("column %q missing from %v", name, m.Names)
	}
	return col
}

func TestBuildLagValues(t *testing.T) {
	m := Build(testHistory(30), BuildOptions{})
	lag1 := column(m, "downloads_lag_1", t)
	lag7 := column(m, "downloads_lag_7", t)

	if !math.IsNaN(lag1[0]) {
		t.Fatalf("lag_1 at row 0 = %v, want NaN", lag1[0])
	}
	if lag1[10] != 109 {
		t.Fatalf("lag_1 at row 10 = %v, want 109", lag1[10])
	}
	if !math.IsNaN(lag7[6]) {
		t.Fatalf("lag_7 at row 6 = %v, want NaN", lag7[6])
	}
	if lag7[10] != 103 {
		t.Fatalf("lag_7 at row 10 = %v, want 103", lag7[10])
	}
}

func TestBuildRollingStatsShiftOneDay(t *testing.T) {
	m := Build(testHistory(30), BuildOptions{})
	mean := column(m, "downloads_rolling_mean_7", t)
	max := column(m, "downloads_rolling_max_7", t)

	// Row 10 sees days 3..9: values 103..109.
	if mean[10] != 106 {
		t.Fatalf("rolling mean at row 10 = %v, want 106", mean[10])
	}
	if max[10] != 109 {
		t.Fatalf("rolling max at row 10 = %v, want 109", max[10])
	}
	// Row 3 has only 3 prior values: 100, 101, 102.
	if mean[3] != 101 {
		t.Fatalf("partial rolling mean at row 3 = %v, want 101", mean[3])
	}
}

func TestBuildExpandingMean(t *testing.T) {
	m := Build(testHistory(30), BuildOptions{})
	exp := column(m, "downloads_expanding_mean", t)
	if !math.IsNaN(exp[0]) {
		t.Fatalf("expanding mean at row 0 = %v, want NaN", exp[0])
	}
	// Row 5 sees 100..104.
	if exp[5] != 102 {
		t.Fatalf("expanding mean at row 5 = %v, want 102", exp[5])
	}
}

func TestNoLeakageFromFutureTargets(t *testing.T) {
	h := testHistory(30)
	before := Build(h, BuildOptions{})

	// Mutating targets at and after row 15 must not change features of
	// earlier rows.
	for i := 15; i < h.Len(); i++ {
		h.Target[i] = 1e9
	}
	after := Build(h, BuildOptions{})

	for r := 0; r < 15; r++ {
		for c := range before.Names {
			b, a := before.X[r][c], after.X[r][c]
			if b != a && !(math.IsNaN(b) && math.IsNaN(a)) {
				t.Fatalf("row %d col %s changed: %v -> %v", r, before.Names[c], b, a)
			}
		}
	}
	// Row 15 itself reads only rows before it, so it is unchanged too.
	for c := range before.Names {
		b, a := before.X[15][c], after.X[15][c]
		if b != a && !(math.IsNaN(b) && math.IsNaN(a)) {
			t.Fatalf("row 15 col %s changed: %v -> %v", before.Names[c], b, a)
		}
	}
}

func TestResolveDropsRedundantDiff(t *testing.T) {
	specs := Resolve(DefaultSet())
	for _, s := range specs {
		if s.Name == "downloads_diff_1" {
			t.Fatal("downloads_diff_1 survived alongside downloads_lag_1")
		}
	}
}

func TestResolveKeepsDiffWithoutItsLag(t *testing.T) {
	specs := []Spec{
		{Name: "downloads_diff_1", RedundantOf: "downloads_lag_1", Generate: targetDiff1},
	}
	if got := Resolve(specs); len(got) != 1 {
		t.Fatalf("len = %d, want 1 when the restated feature is absent", len(got))
	}
}

func TestWeekendAndWeekdayEncoding(t *testing.T) {
	if weekday(day(0)) != 0 {
		t.Fatalf("Monday encodes as %d, want 0", weekday(day(0)))
	}
	if !isWeekend(day(5)) || !isWeekend(day(6)) {
		t.Fatal("Saturday and Sunday must be weekend")
	}
	if isWeekend(day(4)) {
		t.Fatal("Friday is not weekend")
	}
}

func TestReleaseInteractionsZeroWithoutRelease(t *testing.T) {
	m := Build(testHistory(30), BuildOptions{})
	inter := column(m, "release_x_rolling_7", t)
	rel := column(m, "episodes_released", t)
	roll := column(m, "episodes_released_rolling_7", t)
	for r := range inter {
		if rel[r] == 0 && inter[r] != 0 {
			t.Fatalf("row %d: interaction %v with no release", r, inter[r])
		}
		if rel[r] == 1 && inter[r] != roll[r] {
			t.Fatalf("row %d: interaction %v, want rolling sum %v", r, inter[r], roll[r])
		}
	}
}

func TestBuildDropsZeroVarianceColumns(t *testing.T) {
	h := &History{}
	for i := 0; i < 20; i++ {
		h.Append(day(i), float64(100+i), 0) // no releases at all
	}
	m := Build(h, BuildOptions{})
	for _, name := range m.Names {
		if name == "episodes_released" || name == "episodes_released_rolling_7" {
			t.Fatalf("constant column %q survived", name)
		}
	}
}

func TestBuildFiltersAnnotationAndClusterExtras(t *testing.T) {
	h := testHistory(10)
	ones := make([]float64, 10)
	for i := range ones {
		ones[i] = float64(i % 2)
	}
	m := Build(h, BuildOptions{Extra: []ExtraColumn{
		{Name: "is_spike", Values: ones},
		{Name: "spike_cluster_0", Values: ones},
		{Name: "promo_campaign", Values: ones},
		{Name: "short", Values: ones[:3]},
	}})
	if m.Column("is_spike") != nil {
		t.Fatal("annotation column became a predictor")
	}
	if m.Column("spike_cluster_0") != nil {
		t.Fatal("cluster one-hot kept without RetainClusterColumns")
	}
	if m.Column("short") != nil {
		t.Fatal("length-mismatched extra kept")
	}
	if m.Column("promo_campaign") == nil {
		t.Fatal("valid extra column dropped")
	}

	m = Build(h, BuildOptions{
		Extra:                []ExtraColumn{{Name: "spike_cluster_0", Values: ones}},
		RetainClusterColumns: true,
	})
	if m.Column("spike_cluster_0") == nil {
		t.Fatal("cluster one-hot dropped despite RetainClusterColumns")
	}
}

func TestDropIncompleteRows(t *testing.T) {
	m := Build(testHistory(30), BuildOptions{})
	total := len(m.X)
	m.DropIncompleteRows()
	if len(m.X) >= total {
		t.Fatal("warmup rows with NaN lags were not dropped")
	}
	for r, row := range m.X {
		if hasNaN(row) || math.IsNaN(m.Y[r]) {
			t.Fatalf("row %d still contains NaN", r)
		}
	}
	if len(m.Dates) != len(m.X) || len(m.Y) != len(m.X) {
		t.Fatal("parallel columns out of sync after drop")
	}
	// Lag 14 defines from row 14 on.
	if !m.Dates[0].Equal(day(14)) {
		t.Fatalf("first complete row = %v, want %v", m.Dates[0], day(14))
	}
}

func TestMatrixSelectReordersColumns(t *testing.T) {
	m := Build(testHistory(30), BuildOptions{})
	m.Select([]string{"downloads_lag_7", "downloads_lag_1", "no_such_column"})
	if len(m.Names) != 2 || m.Names[0] != "downloads_lag_7" || m.Names[1] != "downloads_lag_1" {
		t.Fatalf("names = %v", m.Names)
	}
	if m.X[10][0] != 103 || m.X[10][1] != 109 {
		t.Fatalf("row 10 = %v, want [103 109]", m.X[10])
	}
}

func TestVectorFillsUndefinedWithZero(t *testing.T) {
	h := &History{} // no history at all: every lag is undefined
	vec := Vector(h, day(0), 1, nil, []string{"downloads_lag_1", "episodes_released", "unknown"})
	if vec[0] != 0 {
		t.Fatalf("undefined lag = %v, want 0", vec[0])
	}
	if vec[1] != 1 {
		t.Fatalf("release indicator = %v, want 1", vec[1])
	}
	if vec[2] != 0 {
		t.Fatalf("unknown feature = %v, want 0", vec[2])
	}
}

func TestCloneIsolatesHistory(t *testing.T) {
	h := testHistory(5)
	c := h.Clone()
	c.Append(day(5), 999, 1)
	c.Target[0] = -1
	if h.Len() != 5 || h.Target[0] != 100 {
		t.Fatal("clone mutation leaked into the source history")
	}
}
