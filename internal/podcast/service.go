// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package podcast

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/podscale/podscale/internal/analytics"
	"github.com/podscale/podscale/internal/config"
	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/features"
	"github.com/podscale/podscale/internal/feed"
	"github.com/podscale/podscale/internal/forecast"
	"github.com/podscale/podscale/internal/logging"
	"github.com/podscale/podscale/internal/missing"
	"github.com/podscale/podscale/internal/model"
	"github.com/podscale/podscale/internal/spikes"
	"github.com/podscale/podscale/internal/storage"
	"github.com/podscale/podscale/internal/timeseries"
)

// downloadsTarget is the modeled target column.
const downloadsTarget = "downloads"

// Service orchestrates the pipeline stages against stored records.
type Service struct {
	store *storage.Store
	feed  *feed.Client
	cfg   config.ModelingConfig
}

// NewService wires the pipeline against its storage and feed client.
func NewService(store *storage.Store, feedClient *feed.Client, cfg config.ModelingConfig) *Service {
	return &Service{store: store, feed: feedClient, cfg: cfg}
}

// Initialize creates a new podcast record with a generated id.
func (s *Service) Initialize(rssURL, csvURL string) (*Record, error) {
	now := time.Now().UTC()
	rec := &Record{
		ID:        uuid.NewString(),
		RSSURL:    rssURL,
		CSVURL:    csvURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(storage.PodcastKey(rec.ID), rec); err != nil {
		return nil, err
	}
	logging.Info().Str("podcast_id", rec.ID).Msg("podcast initialized")
	return rec, nil
}

// Get loads a podcast record.
func (s *Service) Get(id string) (*Record, error) {
	var rec Record
	if err := s.store.Get(storage.PodcastKey(id), &rec); err != nil {
		if errs.IsKind(err, errs.KindNotFound) {
			return nil, errs.NotFound("podcast %s not found", id)
		}
		return nil, err
	}
	return &rec, nil
}

// List returns the ids of every stored podcast.
func (s *Service) List() ([]string, error) {
	keys, err := s.store.ListKeys(storage.PodcastKey(""))
	if err != nil {
		return nil, err
	}
	prefix := storage.PodcastKey("")
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, prefix)
		// Skip model artifact keys sharing the prefix.
		if id == "" || strings.Contains(id, ":") {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SetFeedURLs updates the stored feed locations. Empty arguments leave
// the corresponding URL unchanged.
func (s *Service) SetFeedURLs(id, rssURL, csvURL string) (*Record, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if rssURL != "" {
		rec.RSSURL = rssURL
	}
	if csvURL != "" {
		rec.CSVURL = csvURL
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(storage.PodcastKey(id), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Ingest fetches the download CSV and RSS feed, validates cadence,
// annotates spikes, flags potential missing episodes, and persists the
// rebuilt day rows. A re-ingest rebuilds the rows from scratch, so
// previously confirmed missing episodes must be re-confirmed if the feed
// still omits them.
func (s *Service) Ingest(ctx context.Context, id string, mode timeseries.Mode) (*Record, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.CSVURL == "" {
		return nil, errs.Validation("podcast %s has no downloads csv url", id)
	}

	series, err := s.feed.FetchDownloads(ctx, rec.CSVURL)
	if err != nil {
		return nil, err
	}
	validated, err := timeseries.ValidateFrequency(series, timeseries.ValidateOptions{
		Mode:               mode,
		MedianGapThreshold: s.cfg.MedianGapThreshold,
		MinRows:            s.cfg.MinRows,
	})
	if err != nil {
		return nil, err
	}

	var events []timeseries.EpisodeEvent
	if rec.RSSURL != "" {
		events, err = s.feed.FetchEpisodes(ctx, rec.RSSURL)
		if err != nil {
			return nil, err
		}
	}
	counts, titles := timeseries.GroupEpisodesByDay(events)

	detected := spikes.Detect(validated.Series, spikes.Options{
		Window:      s.cfg.SpikeWindow,
		MaxClusters: s.cfg.MaxClusters,
	})

	rec.Days = buildDays(detected.Records, counts, titles)
	rec.NumSpikeClusters = detected.NumClusters
	rec.IngestWarning = validated.Warning

	episodeDates := make([]time.Time, 0, len(counts))
	for d := range counts {
		episodeDates = append(episodeDates, d)
	}
	rec.setMissingDays(missing.Mark(rec.missingDays(), episodeDates))

	rec.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(storage.PodcastKey(id), rec); err != nil {
		return nil, err
	}

	logging.Info().
		Str("podcast_id", id).
		Int("days", len(rec.Days)).
		Int("spike_clusters", rec.NumSpikeClusters).
		Msg("ingestion complete")
	return rec, nil
}

// MissingDates lists the dates currently flagged as potential missing
// episodes.
func (s *Service) MissingDates(id string) ([]time.Time, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return missing.Flagged(rec.missingDays()), nil
}

// ApplyMissing confirms or rejects flagged dates. With acceptAll set,
// every currently flagged date is confirmed and updates are ignored.
func (s *Service) ApplyMissing(id string, updates []missing.Update, acceptAll bool) (*Record, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	days := rec.missingDays()
	if acceptAll {
		updates = missing.AcceptAll(days)
	}
	if err := missing.Apply(days, updates); err != nil {
		return nil, err
	}
	rec.setMissingDays(days)

	rec.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(storage.PodcastKey(id), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Train builds the feature matrix from the stored history, runs the
// training pipeline, and persists the resulting artifact with a
// compare-and-swap against the previously stored version.
func (s *Service) Train(ctx context.Context, id string) (*model.Artifact, *model.Metrics, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if len(rec.Days) == 0 {
		return nil, nil, errs.Validation("podcast %s has no ingested history", id)
	}

	hist, extras := rec.History()
	matrix := features.Build(hist, features.BuildOptions{Extra: extras})

	art, metrics, err := model.Train(matrix, downloadsTarget, id)
	if err != nil {
		return nil, nil, err
	}

	prior, err := s.store.GetArtifact(id)
	switch {
	case err == nil:
		art.Version = prior.Version
	case errs.IsKind(err, errs.KindNotFound):
		// First training for this podcast.
	default:
		return nil, nil, err
	}
	if err := s.store.PutArtifact(art); err != nil {
		return nil, nil, err
	}

	logging.Info().
		Str("podcast_id", id).
		Float64("score", metrics.Score).
		Int64("model_version", art.Version).
		Msg("training complete")
	return art, metrics, nil
}

// Forecast simulates future downloads from the stored history and the
// trained model, with the given scheduled release dates.
func (s *Service) Forecast(id string, horizon int, releases []time.Time) (*forecast.Result, error) {
	art, hist, err := s.forecastInputs(id)
	if err != nil {
		return nil, err
	}
	set := make(map[time.Time]struct{}, len(releases))
	for _, d := range releases {
		set[timeseries.Midnight(d)] = struct{}{}
	}
	if horizon == 0 {
		horizon = s.cfg.ForecastHorizon
	}
	return forecast.Run(art, hist, forecast.Options{Horizon: horizon, Releases: set})
}

// Optimize searches for the best release schedule over the horizon.
func (s *Service) Optimize(id string, horizon, target int, explicit []time.Time) (*forecast.OptimizeResult, error) {
	art, hist, err := s.forecastInputs(id)
	if err != nil {
		return nil, err
	}
	if horizon == 0 {
		horizon = s.cfg.ForecastHorizon
	}
	return forecast.Optimize(art, hist, forecast.OptimizeOptions{
		Horizon:  horizon,
		Target:   target,
		Explicit: explicit,
	})
}

func (s *Service) forecastInputs(id string) (*model.Artifact, *features.History, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	art, err := s.store.GetArtifact(id)
	if err != nil {
		if errs.IsKind(err, errs.KindNotFound) {
			return nil, nil, errs.NotFound("podcast %s has no trained model", id)
		}
		return nil, nil, err
	}
	hist, _ := rec.History()
	return art, hist, nil
}

// Trend returns the smoothed download trend over the given window.
func (s *Service) Trend(id string, windowDays int) (*analytics.TrendResult, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return analytics.Trend(rec.Series(), windowDays)
}

// Impact measures how long an episode release lifts downloads.
func (s *Service) Impact(id string) (*analytics.ImpactResult, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	downloads := make([]float64, len(rec.Days))
	releases := make([]float64, len(rec.Days))
	for i, d := range rec.Days {
		downloads[i] = d.Downloads
		releases[i] = float64(d.EpisodesReleased)
	}
	return analytics.Impact(downloads, releases)
}
