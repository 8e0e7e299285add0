// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package spikes

import (
	"testing"
	"time"

	"github.com/podscale/podscale/internal/timeseries"
)

func flatSeries(n int, value float64) timeseries.Series {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	s := make(timeseries.Series, n)
	for i := range s {
		s[i] = timeseries.Point{Date: start.AddDate(0, 0, i), Value: value}
	}
	return s
}

// noisySeries alternates around 100 so the rolling std stays positive
// without any day crossing the spike threshold.
func noisySeries(n int) timeseries.Series {
	s := flatSeries(n, 100)
	for i := range s {
		if i%2 == 1 {
			s[i].Value = 102
		}
	}
	return s
}

func TestDetectConstantSeriesHasNoSpikes(t *testing.T) {
	res := Detect(flatSeries(30, 100), Options{})
	if res.NumClusters != 0 {
		t.Fatalf("clusters = %d, want 0", res.NumClusters)
	}
	for _, r := range res.Records {
		if r.IsSpike || r.IsAnomalous {
			t.Fatalf("flagged %v on a constant series", r.Date)
		}
		if r.Cluster != -1 {
			t.Fatalf("cluster = %d on non-spike row", r.Cluster)
		}
	}
}

func TestDetectFlagsSingleSpike(t *testing.T) {
	s := noisySeries(30)
	s[20].Value = 200

	res := Detect(s, Options{})
	if !res.Records[20].IsSpike {
		t.Fatalf("day 20 not flagged: z = %v", res.Records[20].ZScore)
	}
	// The spike sits inside its own window, so the z-score is capped at
	// (n-1)/sqrt(n) ~ 2.27 for a 7-day window and never reaches the
	// anomaly threshold.
	if res.Records[20].IsAnomalous {
		t.Fatalf("z = %v flagged anomalous under a 7-day window", res.Records[20].ZScore)
	}
	if res.NumClusters != 1 {
		t.Fatalf("clusters = %d, want 1 for a single spike", res.NumClusters)
	}
	if res.Records[20].Cluster != 0 {
		t.Fatalf("cluster = %d, want 0", res.Records[20].Cluster)
	}
	for i, r := range res.Records {
		if i != 20 && r.IsSpike {
			t.Fatalf("day %d falsely flagged", i)
		}
	}
}

func TestDetectNeverFlagsWarmupRows(t *testing.T) {
	s := noisySeries(30)
	// A huge value inside the warmup window must stay unflagged.
	s[3].Value = 10000

	res := Detect(s, Options{Window: 7})
	for i := 0; i < 7; i++ {
		if res.Records[i].IsSpike || res.Records[i].IsAnomalous {
			t.Fatalf("warmup row %d flagged", i)
		}
	}
}

func TestDetectAnomalousUnderWiderWindow(t *testing.T) {
	// A 15-day window raises the z-score cap to 14/sqrt(15) ~ 3.6, so an
	// extreme value crosses the anomaly threshold.
	s := noisySeries(40)
	s[30].Value = 10000

	res := Detect(s, Options{Window: 15})
	r := res.Records[30]
	if !r.IsSpike || !r.IsAnomalous {
		t.Fatalf("z = %v, expected anomalous spike", r.ZScore)
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	s := noisySeries(60)
	for _, i := range []int{15, 25, 35, 45, 55} {
		s[i].Value = 150 + float64(i)
	}
	first := Detect(s, Options{})
	second := Detect(s, Options{})
	if first.NumClusters != second.NumClusters {
		t.Fatalf("cluster counts differ: %d vs %d", first.NumClusters, second.NumClusters)
	}
	for i := range first.Records {
		if first.Records[i].Cluster != second.Records[i].Cluster {
			t.Fatalf("labels differ at row %d", i)
		}
	}
}

func TestDetectSeparatesSpikeShapes(t *testing.T) {
	s := noisySeries(90)
	// Two clearly distinct spike populations by height.
	for _, i := range []int{10, 20, 30} {
		s[i].Value = 150
	}
	for _, i := range []int{50, 60, 70} {
		s[i].Value = 400
	}
	res := Detect(s, Options{})
	if res.NumClusters < 2 {
		t.Fatalf("clusters = %d, want at least 2", res.NumClusters)
	}
	for _, i := range []int{10, 20, 30, 50, 60, 70} {
		if !res.Records[i].IsSpike {
			t.Fatalf("day %d not flagged as spike", i)
		}
		if res.Records[i].Cluster < 0 {
			t.Fatalf("day %d has no cluster assignment", i)
		}
	}
	if res.Records[20].Cluster != res.Records[30].Cluster {
		t.Fatal("adjacent equal small spikes split across clusters")
	}
}

func TestKMeansSinglePointAndEmpty(t *testing.T) {
	if labels := kmeans(nil, 3, kmeansSeed); len(labels) != 0 {
		t.Fatalf("labels = %v, want empty", labels)
	}
	labels := kmeans([][]float64{{1, 2}}, 3, kmeansSeed)
	if len(labels) != 1 || labels[0] != 0 {
		t.Fatalf("labels = %v, want [0]", labels)
	}
}

func TestKneeOfFindsElbow(t *testing.T) {
	// Sharp elbow at k=2.
	if k := kneeOf([]float64{100, 10, 8, 6, 5}); k != 2 {
		t.Fatalf("knee = %d, want 2", k)
	}
	// A straight line has no interior point below the chord.
	if k := kneeOf([]float64{100, 75, 50, 25, 0}); k != 0 {
		t.Fatalf("knee = %d, want 0", k)
	}
	if k := kneeOf([]float64{10, 5}); k != 0 {
		t.Fatalf("knee = %d, want 0 for short curves", k)
	}
}
