// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/metrics"
	"github.com/podscale/podscale/internal/missing"
	"github.com/podscale/podscale/internal/timeseries"
)

// acceptAllKeyword confirms every flagged missing episode at once.
const acceptAllKeyword = "ALL"

// InitializeRequest registers a new podcast.
type InitializeRequest struct {
	RSSURL string `json:"rss_url" validate:"omitempty,url"`
	CSVURL string `json:"csv_url" validate:"omitempty,url"`
}

// FeedURLsRequest updates the stored feed locations.
type FeedURLsRequest struct {
	RSSURL string `json:"rss_url" validate:"omitempty,url"`
	CSVURL string `json:"csv_url" validate:"omitempty,url"`
}

// IngestRequest controls cadence handling during ingestion.
type IngestRequest struct {
	// Mode is "strict" (default) or "resample".
	Mode string `json:"mode" validate:"omitempty,oneof=strict resample"`
}

// MissingEpisodesRequest confirms flagged dates. The single entry "ALL"
// confirms every currently flagged date.
type MissingEpisodesRequest struct {
	Dates []string `json:"dates" validate:"required,min=1"`
}

// ForecastRequest runs a forecast with known upcoming release dates.
type ForecastRequest struct {
	HorizonDays  int      `json:"horizon_days" validate:"omitempty,min=1,max=365"`
	ReleaseDates []string `json:"release_dates"`
}

// OptimizeRequest searches for the best release schedule.
type OptimizeRequest struct {
	HorizonDays   int      `json:"horizon_days" validate:"omitempty,min=1,max=365"`
	TargetCount   int      `json:"target_count" validate:"omitempty,min=0,max=365"`
	ExplicitDates []string `json:"explicit_dates"`
}

func (router *Router) initialize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req InitializeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	rec, err := router.svc.Initialize(req.RSSURL, req.CSVURL)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, rec, start)
}

func (router *Router) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ids, err := router.svc.List()
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string][]string{"podcast_ids": ids}, start)
}

func (router *Router) getPodcast(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec, err := router.svc.Get(chi.URLParam(r, "podcastID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, rec, start)
}

func (router *Router) setFeedURLs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req FeedURLsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.RSSURL == "" && req.CSVURL == "" {
		respondError(w, errs.Validation("provide rss_url, csv_url, or both"))
		return
	}
	rec, err := router.svc.SetFeedURLs(chi.URLParam(r, "podcastID"), req.RSSURL, req.CSVURL)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, rec, start)
}

func (router *Router) ingest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req IngestRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	mode := timeseries.Strict
	if req.Mode == "resample" {
		mode = timeseries.Resample
	}

	rec, err := router.svc.Ingest(r.Context(), chi.URLParam(r, "podcastID"), mode)
	if err != nil {
		metrics.RecordStage("ingest", time.Since(start), errs.KindOf(err).String())
		respondError(w, err)
		return
	}
	metrics.RecordStage("ingest", time.Since(start), "")
	metrics.IngestedDays.Add(float64(len(rec.Days)))
	respondData(w, http.StatusOK, rec, start)
}

func (router *Router) missingEpisodes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dates, err := router.svc.MissingDates(chi.URLParam(r, "podcastID"))
	if err != nil {
		respondError(w, err)
		return
	}
	formatted := make([]string, len(dates))
	for i, d := range dates {
		formatted[i] = d.Format("2006-01-02")
	}
	respondData(w, http.StatusOK, map[string][]string{"potential_missing_dates": formatted}, start)
}

func (router *Router) confirmMissingEpisodes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req MissingEpisodesRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	id := chi.URLParam(r, "podcastID")

	acceptAll := len(req.Dates) == 1 && req.Dates[0] == acceptAllKeyword
	var updates []missing.Update
	if !acceptAll {
		dates, err := parseDates(req.Dates)
		if err != nil {
			respondError(w, err)
			return
		}
		updates = make([]missing.Update, len(dates))
		for i, d := range dates {
			updates[i] = missing.Update{Date: d, Accepted: true}
		}
	}

	rec, err := router.svc.ApplyMissing(id, updates, acceptAll)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, rec, start)
}

func (router *Router) train(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "podcastID")

	art, trainMetrics, err := router.svc.Train(r.Context(), id)
	if err != nil {
		metrics.RecordStage("train", time.Since(start), errs.KindOf(err).String())
		respondError(w, err)
		return
	}
	metrics.RecordStage("train", time.Since(start), "")
	metrics.TrainingsTotal.Inc()
	metrics.TrainingScore.Set(trainMetrics.Score)

	respondData(w, http.StatusOK, map[string]interface{}{
		"model_version": art.Version,
		"metrics":       trainMetrics,
	}, start)
}

func (router *Router) forecastDownloads(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req ForecastRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	releases, err := parseDates(req.ReleaseDates)
	if err != nil {
		respondError(w, err)
		return
	}

	res, err := router.svc.Forecast(chi.URLParam(r, "podcastID"), req.HorizonDays, releases)
	if err != nil {
		metrics.RecordStage("forecast", time.Since(start), errs.KindOf(err).String())
		respondError(w, err)
		return
	}
	metrics.RecordStage("forecast", time.Since(start), "")
	metrics.ForecastsTotal.Inc()
	respondData(w, http.StatusOK, res, start)
}

func (router *Router) optimizeReleases(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req OptimizeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	explicit, err := parseDates(req.ExplicitDates)
	if err != nil {
		respondError(w, err)
		return
	}

	res, err := router.svc.Optimize(chi.URLParam(r, "podcastID"), req.HorizonDays, req.TargetCount, explicit)
	if err != nil {
		metrics.RecordStage("optimize", time.Since(start), errs.KindOf(err).String())
		respondError(w, err)
		return
	}
	metrics.RecordStage("optimize", time.Since(start), "")
	respondData(w, http.StatusOK, res, start)
}

func (router *Router) trend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	window := getIntParam(r, "window_days", 7)

	res, err := router.svc.Trend(chi.URLParam(r, "podcastID"), window)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, res, start)
}

func (router *Router) impact(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := router.svc.Impact(chi.URLParam(r, "podcastID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, res, start)
}
