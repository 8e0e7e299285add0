// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/podscale/podscale/internal/config"
	"github.com/podscale/podscale/internal/errs"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	return New(config.FeedConfig{
		Timeout:           2 * time.Second,
		RetryAttempts:     3,
		RetryInitialDelay: time.Millisecond,
		RequestsPerSecond: 1000,
		Timezone:          "Europe/London",
	})
}

func TestParseCSV(t *testing.T) {
	data := []byte("date,downloads\n2026-01-02,120\n2026-01-01,100\n2026-01-02,125\n")
	series, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("got %d points, want 2 after dedupe", len(series))
	}
	if !series[0].Date.Before(series[1].Date) {
		t.Error("series not sorted ascending")
	}
	// Duplicate date keeps the last value.
	if series[1].Value != 125 {
		t.Errorf("deduped value = %v, want 125", series[1].Value)
	}
}

func TestParseCSVWithoutHeader(t *testing.T) {
	series, err := ParseCSV([]byte("2026-01-01,100\n2026-01-02,110\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("got %d points, want 2", len(series))
	}
}

func TestParseCSVBadRow(t *testing.T) {
	_, err := ParseCSV([]byte("date,downloads\n2026-01-01,not-a-number\n"))
	if !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV([]byte("date,downloads\n"))
	if !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestParseRSSAssignsTimezoneDay(t *testing.T) {
	// 23:30 UTC on Jun 1 is 00:30 on Jun 2 in London (BST).
	data := []byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Show</title>
<item><title>Ep 1</title><pubDate>Mon, 01 Jun 2026 23:30:00 +0000</pubDate></item>
<item><title>Ep 2</title><pubDate>Mon, 01 Jun 2026 10:00:00 +0000</pubDate></item>
<item><title>Broken</title><pubDate>whenever</pubDate></item>
</channel></rss>`)

	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	events, err := ParseRSS(data, london)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (unparseable item skipped)", len(events))
	}

	jun2 := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	jun1 := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if !events[0].Date.Equal(jun2) {
		t.Errorf("late-evening episode on %v, want %v", events[0].Date, jun2)
	}
	if !events[1].Date.Equal(jun1) {
		t.Errorf("midday episode on %v, want %v", events[1].Date, jun1)
	}
	if events[0].Title != "Ep 1" {
		t.Errorf("title = %q, want Ep 1", events[0].Title)
	}
}

func TestParseRSSInvalidXML(t *testing.T) {
	if _, err := ParseRSS([]byte("not xml"), time.UTC); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestFetchDownloadsRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("date,downloads\n2026-01-01,100\n"))
	}))
	defer srv.Close()

	series, err := testClient(t).FetchDownloads(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("got %d points, want 1", len(series))
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(t).FetchDownloads(context.Background(), srv.URL)
	if !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 404)", calls.Load())
	}
}

func TestFetchEpisodesEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Show</title>
<item><title>Ep 1</title><pubDate>Wed, 03 Jun 2026 09:00:00 +0000</pubDate></item>
</channel></rss>`))
	}))
	defer srv.Close()

	events, err := testClient(t).FetchEpisodes(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Ep 1" {
		t.Fatalf("events = %+v, want single Ep 1", events)
	}
	want := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)
	if !events[0].Date.Equal(want) {
		t.Errorf("date = %v, want %v", events[0].Date, want)
	}
}
