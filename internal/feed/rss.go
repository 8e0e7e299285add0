// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package feed

import (
	"context"
	"encoding/xml"
	"strings"
	"time"

	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/timeseries"
)

// rssDocument is the subset of the RSS 2.0 schema the pipeline reads.
type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	PubDate string `xml:"pubDate"`
	GUID    string `xml:"guid"`
}

// pubDateLayouts are the timestamp formats seen in the wild, tried in
// order.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
}

// FetchEpisodes downloads and parses the RSS feed, returning one event
// per episode. Publication timestamps are converted to the configured
// timezone before being assigned a calendar day, so a late-evening
// release lands on the day listeners saw it. Items whose pubDate cannot
// be parsed are skipped.
func (c *Client) FetchEpisodes(ctx context.Context, url string) ([]timeseries.EpisodeEvent, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseRSS(body, c.location)
}

// ParseRSS extracts episode events from raw RSS bytes.
func ParseRSS(data []byte, loc *time.Location) ([]timeseries.EpisodeEvent, error) {
	var doc rssDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "parse rss feed")
	}

	events := make([]timeseries.EpisodeEvent, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		published, ok := parsePubDate(item.PubDate)
		if !ok {
			continue
		}
		events = append(events, timeseries.EpisodeEvent{
			Date:  timeseries.Midnight(published.In(loc)),
			Title: strings.TrimSpace(item.Title),
		})
	}
	return events, nil
}

func parsePubDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
