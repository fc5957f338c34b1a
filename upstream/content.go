// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/VA7DBI/animeflickAPI/config"
)

// ContentClient talks to the external anime catalog API. Critical lookups
// (detail pages, episode servers) use the strict fetch; list endpoints are
// tolerant so the home page degrades instead of breaking.
type ContentClient struct {
	baseURL string
	fetcher fetcher
}

func NewContentClient(cfg *config.Config) *ContentClient {
	return &ContentClient{
		baseURL: cfg.Content.BaseURL,
		fetcher: fetcher{
			api:     "content",
			client:  &http.Client{},
			timeout: cfg.ContentTimeout(),
		},
	}
}

// AnimeBySlug fetches the anime detail document. Failure is an error: the
// detail page cannot render without it.
func (c *ContentClient) AnimeBySlug(ctx context.Context, slug string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/api/anime/%s", c.baseURL, url.PathEscape(slug))
	return c.fetcher.strictJSON(ctx, http.MethodGet, u, nil, nil)
}

// EpisodeServers fetches the streaming server list for one episode.
func (c *ContentClient) EpisodeServers(ctx context.Context, slug string, number int) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/api/anime/%s/episode/%d", c.baseURL, url.PathEscape(slug), number)
	return c.fetcher.strictJSON(ctx, http.MethodGet, u, nil, nil)
}

// LatestEpisodes returns the home-page latest episode list, nil on failure.
func (c *ContentClient) LatestEpisodes(ctx context.Context) json.RawMessage {
	return c.fetcher.safeJSON(ctx, http.MethodGet, c.baseURL+"/api/list/latest-episodes", nil, nil)
}

// OnAir returns the currently-airing list, nil on failure.
func (c *ContentClient) OnAir(ctx context.Context) json.RawMessage {
	return c.fetcher.safeJSON(ctx, http.MethodGet, c.baseURL+"/api/list/animes-on-air", nil, nil)
}

// Search runs a free-text search, nil on failure.
func (c *ContentClient) Search(ctx context.Context, query string, page int) json.RawMessage {
	u := fmt.Sprintf("%s/api/search?query=%s&page=%d", c.baseURL, url.QueryEscape(query), page)
	return c.fetcher.safeJSON(ctx, http.MethodGet, u, nil, nil)
}

// ByFilter runs the typed catalog filter, nil on failure.
func (c *ContentClient) ByFilter(ctx context.Context, types []string, page int) json.RawMessage {
	u := fmt.Sprintf("%s/api/search/by-filter?order=title&page=%d", c.baseURL, page)
	body, err := json.Marshal(map[string][]string{"types": types})
	if err != nil {
		return nil
	}
	return c.fetcher.safeJSON(ctx, http.MethodPost, u, body, nil)
}
