// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package timeseries defines the daily download series and episode event
// types shared by the modeling pipeline, along with cadence validation and
// daily resampling.
package timeseries

import (
	"sort"
	"time"
)

// Point is a single (date, downloads) observation. Dates are normalized to
// midnight UTC of their calendar day.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is an ordered sequence of points: dates unique, ascending.
type Series []Point

// EpisodeEvent is a single episode release parsed from feed metadata.
type EpisodeEvent struct {
	Date  time.Time
	Title string
}

// Midnight truncates t to midnight UTC of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Normalize sorts the series ascending by date, normalizes dates to
// midnight, and collapses duplicate dates keeping the last observation.
func Normalize(s Series) Series {
	if len(s) == 0 {
		return s
	}
	norm := make(Series, len(s))
	for i, p := range s {
		norm[i] = Point{Date: Midnight(p.Date), Value: p.Value}
	}
	sort.SliceStable(norm, func(i, j int) bool {
		return norm[i].Date.Before(norm[j].Date)
	})
	out := norm[:0]
	for _, p := range norm {
		if len(out) > 0 && out[len(out)-1].Date.Equal(p.Date) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// Values returns the value column of the series.
func (s Series) Values() []float64 {
	vals := make([]float64, len(s))
	for i, p := range s {
		vals[i] = p.Value
	}
	return vals
}

// Dates returns the date column of the series.
func (s Series) Dates() []time.Time {
	dates := make([]time.Time, len(s))
	for i, p := range s {
		dates[i] = p.Date
	}
	return dates
}

// Last returns the final point. Callers must check for an empty series.
func (s Series) Last() Point {
	return s[len(s)-1]
}

// GroupEpisodesByDay groups episode events per calendar day, returning the
// release count and title list per date. Dates are midnight-normalized.
func GroupEpisodesByDay(events []EpisodeEvent) (counts map[time.Time]int, titles map[time.Time][]string) {
	counts = make(map[time.Time]int, len(events))
	titles = make(map[time.Time][]string, len(events))
	for _, e := range events {
		day := Midnight(e.Date)
		counts[day]++
		titles[day] = append(titles[day], e.Title)
	}
	return counts, titles
}
