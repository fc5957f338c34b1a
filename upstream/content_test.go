// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/VA7DBI/animeflickAPI/config"
)

func contentClientFor(t *testing.T, srv *httptest.Server) *ContentClient {
	t.Helper()
	cfg := &config.Config{}
	cfg.Content.BaseURL = srv.URL
	cfg.Content.TimeoutSeconds = 2
	return NewContentClient(cfg)
}

func TestAnimeBySlug(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/anime/one-piece", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"title":"One Piece"}`))
		}))
		defer srv.Close()

		raw, err := contentClientFor(t, srv).AnimeBySlug(context.Background(), "one-piece")
		assert.NoError(t, err)
		assert.JSONEq(t, `{"title":"One Piece"}`, string(raw))
	})

	t.Run("UpstreamFailureIsStatusError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}))
		defer srv.Close()

		_, err := contentClientFor(t, srv).AnimeBySlug(context.Background(), "x")
		var se *StatusError
		assert.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusInternalServerError, se.Status)
		assert.Equal(t, "boom", se.Body)
	})

	t.Run("InvalidJSONIsError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json"))
		}))
		defer srv.Close()

		_, err := contentClientFor(t, srv).AnimeBySlug(context.Background(), "x")
		assert.Error(t, err)
	})
}

func TestEpisodeServers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/anime/naruto/episode/12", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"servers":[]}`))
	}))
	defer srv.Close()

	raw, err := contentClientFor(t, srv).EpisodeServers(context.Background(), "naruto", 12)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"servers":[]}`, string(raw))
}

func TestTolerantLists(t *testing.T) {
	t.Run("SuccessPassesThrough", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"slug":"a"}]`))
		}))
		defer srv.Close()

		raw := contentClientFor(t, srv).LatestEpisodes(context.Background())
		assert.JSONEq(t, `[{"slug":"a"}]`, string(raw))
	})

	t.Run("FailureCollapsesToNil", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		assert.Nil(t, contentClientFor(t, srv).OnAir(context.Background()))
	})
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "dragon ball", r.URL.Query().Get("query"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"media":[]}`))
	}))
	defer srv.Close()

	raw := contentClientFor(t, srv).Search(context.Background(), "dragon ball", 2)
	assert.JSONEq(t, `{"media":[]}`, string(raw))
}

func TestByFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search/by-filter", r.URL.Path)
		assert.Equal(t, "title", r.URL.Query().Get("order"))

		var body map[string][]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"tv"}, body["types"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"media":[]}`))
	}))
	defer srv.Close()

	raw := contentClientFor(t, srv).ByFilter(context.Background(), []string{"tv"}, 1)
	assert.JSONEq(t, `{"media":[]}`, string(raw))
}
