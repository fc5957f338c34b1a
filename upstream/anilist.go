// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const anilistURL = "https://graphql.anilist.co"

const bannerQuery = `
    query ($search: String) {
      Media(search: $search, type: ANIME) {
        id
        bannerImage
        coverImage { extraLarge large }
        title { romaji english native }
      }
    }
`

// Banner is the artwork lookup result for one title.
type Banner struct {
	ID     int     `json:"id"`
	Banner *string `json:"banner"`
	Cover  *string `json:"cover"`
	Title  string  `json:"title"`
}

// AniListClient does banner/cover lookups against the AniList GraphQL API.
// It must never break a page: every failure path returns nil.
type AniListClient struct {
	url     string
	fetcher fetcher
	sleep   func(time.Duration)
}

func NewAniListClient(timeout time.Duration) *AniListClient {
	return &AniListClient{
		url: anilistURL,
		fetcher: fetcher{
			api:     "anilist",
			client:  &http.Client{},
			timeout: timeout,
		},
		sleep: time.Sleep,
	}
}

// BannerByTitle searches AniList for the given title, with one light retry
// for rate-limit spikes. Nil means "no artwork", never an error.
func (c *AniListClient) BannerByTitle(ctx context.Context, title string) *Banner {
	body, err := json.Marshal(map[string]any{
		"query":     bannerQuery,
		"variables": map[string]string{"search": title},
	})
	if err != nil {
		return nil
	}

	header := http.Header{}
	header.Set("User-Agent", "AnimeFlick-Web/1.0")

	for attempt := 0; attempt < 2; attempt++ {
		raw := c.fetcher.safeJSON(ctx, http.MethodPost, c.url, body, header)

		if media := parseMedia(raw); media != nil {
			return media.toBanner(title)
		}

		if attempt == 0 {
			c.sleep(600 * time.Millisecond)
		}
	}
	return nil
}

type anilistMedia struct {
	ID          int     `json:"id"`
	BannerImage *string `json:"bannerImage"`
	CoverImage  *struct {
		ExtraLarge *string `json:"extraLarge"`
		Large      *string `json:"large"`
	} `json:"coverImage"`
	Title *struct {
		Romaji  *string `json:"romaji"`
		English *string `json:"english"`
		Native  *string `json:"native"`
	} `json:"title"`
}

func parseMedia(raw json.RawMessage) *anilistMedia {
	if len(raw) == 0 {
		return nil
	}
	var reply struct {
		Data struct {
			Media *anilistMedia `json:"Media"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil
	}
	return reply.Data.Media
}

func (m *anilistMedia) toBanner(fallbackTitle string) *Banner {
	b := &Banner{ID: m.ID, Banner: m.BannerImage, Title: fallbackTitle}

	if m.CoverImage != nil {
		if m.CoverImage.ExtraLarge != nil {
			b.Cover = m.CoverImage.ExtraLarge
		} else {
			b.Cover = m.CoverImage.Large
		}
	}
	if m.Title != nil {
		switch {
		case m.Title.Romaji != nil:
			b.Title = *m.Title.Romaji
		case m.Title.English != nil:
			b.Title = *m.Title.English
		case m.Title.Native != nil:
			b.Title = *m.Title.Native
		}
	}
	return b
}
