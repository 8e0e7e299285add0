// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package feed fetches and parses the two external inputs of the
// pipeline: the hosting provider's daily download CSV export and the
// podcast's RSS feed.
//
// Outbound requests are rate limited, retried with exponential backoff on
// transient failures, and guarded by a circuit breaker so a dead upstream
// fails fast instead of stacking timeouts.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/podscale/podscale/internal/config"
	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/logging"
)

// maxResponseBytes caps a single fetch; feed exports are small text files.
const maxResponseBytes = 32 << 20

// Client fetches feed resources over HTTP.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]byte]
	retries  uint64
	initial  time.Duration
	location *time.Location
}

// New builds a client from the feed configuration. The timezone must have
// been validated by config loading; an unknown zone falls back to UTC.
func New(cfg config.FeedConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	retries := uint64(0)
	if cfg.RetryAttempts > 1 {
		retries = uint64(cfg.RetryAttempts - 1)
	}
	initial := cfg.RetryInitialDelay
	if initial <= 0 {
		initial = time.Second
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		}
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "feed",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Client{
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		breaker:  breaker,
		retries:  retries,
		initial:  initial,
		location: loc,
	}
}

// Location returns the timezone used to assign publication timestamps to
// calendar days.
func (c *Client) Location() *time.Location {
	return c.location
}

// fetch downloads a URL through the limiter, breaker, and retry policy.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.KindUpstream, err, "rate limit wait for %s", url)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetchWithRetry(ctx, url)
	})
	if err != nil {
		if errs.KindOf(err) != errs.KindInternal {
			return nil, err
		}
		return nil, errs.Wrap(errs.KindUpstream, err, "fetch %s", url)
	}
	return body, nil
}

// fetchWithRetry retries transient failures with exponential backoff.
// Client errors (4xx) are permanent: retrying a bad URL cannot help.
func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	op := func() error {
		data, err := c.fetchOnce(ctx, url)
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			logging.Warn().Err(err).Str("url", url).Msg("fetch failed, retrying")
			return err
		}
		body = data
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return body, nil
}

func isPermanent(err error) bool {
	return errs.IsKind(err, errs.KindValidation) || errs.IsKind(err, errs.KindNotFound)
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "build request for %s", url)
	}
	req.Header.Set("User-Agent", "podscale/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.NotFound("%s returned 404", url)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, errs.Validation("%s returned %d", url, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
