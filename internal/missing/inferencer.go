// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package missing infers undocumented episode releases from spike
// annotations.
//
// A moderate (non-anomalous) spike on a day with no recorded release and
// no known episode date is flagged as a potential missing episode; callers
// can later confirm flagged dates, which increments the recorded count and
// clears the flag.
package missing

import (
	"time"

	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/timeseries"
)

// Day is the per-date view the inferencer reads and annotates.
type Day struct {
	Date             time.Time
	IsSpike          bool
	IsAnomalous      bool
	EpisodesReleased int
	PotentialMissing bool
}

// DeducedReleases is the recorded count plus one when the day is flagged.
func (d Day) DeducedReleases() int {
	if d.PotentialMissing {
		return d.EpisodesReleased + 1
	}
	return d.EpisodesReleased
}

// Mark sets PotentialMissing on each day: the day must be a spike but not
// anomalous, have no recorded releases, and not appear in the known
// episode-date set (compared after midnight normalization). The input
// slice is annotated in place and returned.
func Mark(days []Day, episodeDates []time.Time) []Day {
	known := make(map[time.Time]struct{}, len(episodeDates))
	for _, d := range episodeDates {
		known[timeseries.Midnight(d)] = struct{}{}
	}
	for i := range days {
		d := &days[i]
		_, onKnownDate := known[timeseries.Midnight(d.Date)]
		d.PotentialMissing = d.IsSpike && !d.IsAnomalous &&
			d.EpisodesReleased == 0 && !onKnownDate
	}
	return days
}

// Update confirms or rejects one flagged date.
type Update struct {
	Date     time.Time
	Accepted bool
}

// Flagged returns the dates currently flagged as potential missing
// episodes, in series order.
func Flagged(days []Day) []time.Time {
	var dates []time.Time
	for _, d := range days {
		if d.PotentialMissing {
			dates = append(dates, d.Date)
		}
	}
	return dates
}

// AcceptAll builds updates confirming every currently flagged date.
func AcceptAll(days []Day) []Update {
	flagged := Flagged(days)
	updates := make([]Update, len(flagged))
	for i, date := range flagged {
		updates[i] = Update{Date: date, Accepted: true}
	}
	return updates
}

// Apply processes confirmation updates against the day rows. An accepted
// date increments the recorded release count and clears the flag. Dates
// match on calendar day. Unknown dates fail validation.
func Apply(days []Day, updates []Update) error {
	index := make(map[time.Time]int, len(days))
	for i, d := range days {
		index[timeseries.Midnight(d.Date)] = i
	}
	for _, u := range updates {
		i, ok := index[timeseries.Midnight(u.Date)]
		if !ok {
			return errs.Validation("no series row for date %s", u.Date.Format("2006-01-02"))
		}
		if u.Accepted {
			days[i].EpisodesReleased++
			days[i].PotentialMissing = false
		}
	}
	return nil
}
