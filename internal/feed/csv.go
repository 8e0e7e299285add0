// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package feed

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/timeseries"
)

// dateLayouts are the date formats accepted in the downloads export.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// FetchDownloads downloads and parses the daily downloads CSV export.
func (c *Client) FetchDownloads(ctx context.Context, url string) (timeseries.Series, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseCSV(body)
}

// ParseCSV reads a two-column (date, downloads) export into a normalized
// series. A header row is detected by its unparseable first field.
// Duplicate dates keep the last value.
func ParseCSV(data []byte) (timeseries.Series, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var series timeseries.Series
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, err, "read csv line %d", line+1)
		}
		line++
		if len(record) < 2 {
			return nil, errs.Validation("csv line %d has %d columns, need at least 2", line, len(record))
		}

		date, ok := parseDate(record[0])
		if !ok {
			if line == 1 {
				// Header row.
				continue
			}
			return nil, errs.Validation("csv line %d: unparseable date %q", line, record[0])
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, errs.Validation("csv line %d: unparseable downloads %q", line, record[1])
		}
		series = append(series, timeseries.Point{Date: date, Value: value})
	}

	if len(series) == 0 {
		return nil, errs.Validation("csv export contains no data rows")
	}
	return timeseries.Normalize(series), nil
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return timeseries.Midnight(t), true
		}
	}
	return time.Time{}, false
}
