// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Catalog routes proxy the public content API. List endpoints are tolerant
// (a failed upstream renders as null, never a broken page) and cached; the
// detail and episode lookups are strict.

func writeRawJSON(c *gin.Context, data []byte) {
	if len(data) == 0 {
		data = []byte("null")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// catalogCached serves a tolerant catalog fetch through the shared cache,
// deduping concurrent fills per key.
func (s *GatewayService) catalogCached(c *gin.Context, key string, fill func(ctx context.Context) json.RawMessage) {
	if s.catalog == nil {
		writeRawJSON(c, fill(c.Request.Context()))
		return
	}

	ttl := time.Duration(s.config.Content.CacheTTL) * time.Second
	data, err := s.catalog.Load(c.Request.Context(), key, ttl, func(ctx context.Context) ([]byte, error) {
		raw := fill(ctx)
		if raw == nil {
			// Failures are served as null but never cached.
			return nil, errors.New("catalog upstream unavailable")
		}
		return raw, nil
	})
	if err != nil {
		writeRawJSON(c, nil)
		return
	}
	writeRawJSON(c, data)
}

// @Summary     Anime detail
// @Tags        catalog
// @Produce     json
// @Param       slug path string true "Anime slug"
// @Success     200 {object} object
// @Failure     500 {object} APIResponse
// @Router      /api/anime/{slug} [get]
func (s *GatewayService) AnimeHandler(c *gin.Context) {
	data, err := s.content.AnimeBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Message: err.Error()})
		return
	}
	writeRawJSON(c, data)
}

// @Summary     Episode streaming servers
// @Tags        catalog
// @Produce     json
// @Param       slug   path string true "Anime slug"
// @Param       number path int    true "Episode number"
// @Success     200 {object} object
// @Failure     400 {object} APIResponse
// @Failure     500 {object} APIResponse
// @Router      /api/anime/{slug}/episode/{number} [get]
func (s *GatewayService) EpisodeHandler(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Invalid episode number"})
		return
	}

	data, err := s.content.EpisodeServers(c.Request.Context(), c.Param("slug"), number)
	if err != nil {
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Message: err.Error()})
		return
	}
	writeRawJSON(c, data)
}

// @Summary     Currently airing anime
// @Tags        catalog
// @Produce     json
// @Success     200 {object} object
// @Router      /api/anime-on-air [get]
func (s *GatewayService) OnAirHandler(c *gin.Context) {
	s.catalogCached(c, "catalog:on-air", func(ctx context.Context) json.RawMessage {
		return s.content.OnAir(ctx)
	})
}

// @Summary     Latest episodes
// @Tags        catalog
// @Produce     json
// @Success     200 {object} object
// @Router      /api/latest-episodes [get]
func (s *GatewayService) LatestEpisodesHandler(c *gin.Context) {
	s.catalogCached(c, "catalog:latest-episodes", func(ctx context.Context) json.RawMessage {
		return s.content.LatestEpisodes(ctx)
	})
}

// @Summary     Search anime
// @Tags        catalog
// @Produce     json
// @Param       query query string true  "Search text"
// @Param       page  query int    false "Page number"
// @Success     200 {object} object
// @Router      /api/search [get]
func (s *GatewayService) SearchHandler(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	writeRawJSON(c, s.content.Search(c.Request.Context(), c.Query("query"), page))
}

// @Summary     Filter catalog by type
// @Tags        catalog
// @Accept      json
// @Produce     json
// @Success     200 {object} object
// @Failure     400 {object} object
// @Failure     502 {object} object
// @Router      /api/search/by-filter [post]
func (s *GatewayService) ByFilterHandler(c *gin.Context) {
	var req struct {
		Type string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'type'"})
		return
	}

	data := s.content.ByFilter(c.Request.Context(), []string{req.Type}, 1)
	if data == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream error"})
		return
	}
	writeRawJSON(c, data)
}

// @Summary     Banner artwork lookup
// @Description AniList artwork for a title; null when nothing matches
// @Tags        catalog
// @Produce     json
// @Param       title query string true "Anime title"
// @Success     200 {object} object
// @Failure     400 {object} APIResponse
// @Router      /api/banner [get]
func (s *GatewayService) BannerHandler(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Missing 'title'"})
		return
	}

	s.catalogBanner(c, title)
}

func (s *GatewayService) catalogBanner(c *gin.Context, title string) {
	fill := func(ctx context.Context) json.RawMessage {
		banner := s.anilist.BannerByTitle(ctx, title)
		if banner == nil {
			return nil
		}
		raw, err := json.Marshal(banner)
		if err != nil {
			return nil
		}
		return raw
	}

	if s.catalog == nil {
		writeRawJSON(c, fill(c.Request.Context()))
		return
	}

	// Artwork barely changes; cache for a day.
	data, err := s.catalog.Load(c.Request.Context(), "banner:"+title, 24*time.Hour, func(ctx context.Context) ([]byte, error) {
		raw := fill(ctx)
		if raw == nil {
			return nil, errors.New("no banner")
		}
		return raw, nil
	})
	if err != nil {
		writeRawJSON(c, nil)
		return
	}
	writeRawJSON(c, data)
}
