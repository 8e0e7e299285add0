// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package podcast owns the persisted per-podcast record and orchestrates
// the pipeline stages against it: ingestion, missing-episode review,
// training, forecasting, and descriptive analytics.
package podcast

import (
	"strconv"
	"time"

	"github.com/podscale/podscale/internal/features"
	"github.com/podscale/podscale/internal/missing"
	"github.com/podscale/podscale/internal/spikes"
	"github.com/podscale/podscale/internal/timeseries"
)

// DayRow is one annotated day of the download history.
type DayRow struct {
	Date             time.Time `json:"date"`
	Downloads        float64   `json:"downloads"`
	EpisodesReleased int       `json:"episodes_released"`
	EpisodeTitles    []string  `json:"episode_titles,omitempty"`
	IsSpike          bool      `json:"is_spike"`
	IsAnomalous      bool      `json:"is_anomalous"`
	SpikeCluster     int       `json:"spike_cluster"`
	PotentialMissing bool      `json:"potential_missing_episode"`
}

// Record is the persisted state of one tracked podcast.
type Record struct {
	ID     string `json:"id"`
	RSSURL string `json:"rss_url,omitempty"`
	CSVURL string `json:"csv_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// IngestWarning carries the last non-fatal ingestion note, such as a
	// resampled cadence.
	IngestWarning string `json:"ingest_warning,omitempty"`

	// NumSpikeClusters is the cluster count from the last ingestion.
	NumSpikeClusters int `json:"num_spike_clusters"`

	Days []DayRow `json:"days"`
}

// Series returns the download history as a date/value series.
func (r *Record) Series() timeseries.Series {
	s := make(timeseries.Series, len(r.Days))
	for i, d := range r.Days {
		s[i] = timeseries.Point{Date: d.Date, Value: d.Downloads}
	}
	return s
}

// History converts the record into the modeling history plus the spike
// cluster one-hot columns. The release column uses the recorded episode
// count, so confirming a missing episode changes the training data.
func (r *Record) History() (*features.History, []features.ExtraColumn) {
	h := &features.History{
		Dates:    make([]time.Time, len(r.Days)),
		Target:   make([]float64, len(r.Days)),
		Releases: make([]float64, len(r.Days)),
	}
	for i, d := range r.Days {
		h.Dates[i] = d.Date
		h.Target[i] = d.Downloads
		h.Releases[i] = float64(d.EpisodesReleased)
	}

	extras := make([]features.ExtraColumn, 0, r.NumSpikeClusters)
	for c := 0; c < r.NumSpikeClusters; c++ {
		col := features.ExtraColumn{
			Name:   "spike_cluster_" + strconv.Itoa(c),
			Values: make([]float64, len(r.Days)),
		}
		for i, d := range r.Days {
			if d.SpikeCluster == c {
				col.Values[i] = 1
			}
		}
		extras = append(extras, col)
	}
	return h, extras
}

// missingDays projects the record into the inferencer's view.
func (r *Record) missingDays() []missing.Day {
	days := make([]missing.Day, len(r.Days))
	for i, d := range r.Days {
		days[i] = missing.Day{
			Date:             d.Date,
			IsSpike:          d.IsSpike,
			IsAnomalous:      d.IsAnomalous,
			EpisodesReleased: d.EpisodesReleased,
			PotentialMissing: d.PotentialMissing,
		}
	}
	return days
}

// setMissingDays writes the inferencer's annotations back onto the record.
func (r *Record) setMissingDays(days []missing.Day) {
	for i, d := range days {
		r.Days[i].EpisodesReleased = d.EpisodesReleased
		r.Days[i].PotentialMissing = d.PotentialMissing
	}
}

// buildDays assembles day rows from the annotated series and the grouped
// episode events.
func buildDays(annotated []spikes.Record, counts map[time.Time]int, titles map[time.Time][]string) []DayRow {
	days := make([]DayRow, len(annotated))
	for i, rec := range annotated {
		days[i] = DayRow{
			Date:             rec.Date,
			Downloads:        rec.Value,
			EpisodesReleased: counts[rec.Date],
			EpisodeTitles:    titles[rec.Date],
			IsSpike:          rec.IsSpike,
			IsAnomalous:      rec.IsAnomalous,
			SpikeCluster:     rec.Cluster,
		}
	}
	return days
}
