// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package api provides HTTP routing and handlers using the Chi router.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/podscale/podscale/internal/config"
	"github.com/podscale/podscale/internal/metrics"
	"github.com/podscale/podscale/internal/podcast"
)

// Router builds the HTTP handler tree for the service.
type Router struct {
	svc *podcast.Service
	cfg config.ServerConfig
}

// NewRouter wires the podcast service into the HTTP layer.
func NewRouter(svc *podcast.Service, cfg config.ServerConfig) *Router {
	return &Router{svc: svc, cfg: cfg}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", router.health)
	r.Handle("/metrics", promhttp.Handler())

	reqs := router.cfg.RateLimitReqs
	if reqs <= 0 {
		reqs = 100
	}
	window := router.cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(reqs, window))
		r.Use(prometheusMetrics)

		r.Post("/podcasts", router.initialize)
		r.Get("/podcasts", router.list)

		r.Route("/podcasts/{podcastID}", func(r chi.Router) {
			r.Get("/", router.getPodcast)
			r.Put("/feed-urls", router.setFeedURLs)
			r.Post("/ingest", router.ingest)
			r.Get("/missing-episodes", router.missingEpisodes)
			r.Post("/missing-episodes", router.confirmMissingEpisodes)
			r.Post("/train", router.train)
			r.Post("/forecast", router.forecastDownloads)
			r.Post("/optimize", router.optimizeReleases)
			r.Get("/trend", router.trend)
			r.Get("/impact", router.impact)
		})
	})

	return r
}

// health reports liveness.
func (router *Router) health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}

// prometheusMetrics records request counts and latency per route pattern.
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		metrics.RecordAPIRequest(r.Method, pattern, strconv.Itoa(ww.Status()), time.Since(start))
	})
}
