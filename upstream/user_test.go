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

	"github.com/VA7DBI/animeflickAPI/auth"
	"github.com/VA7DBI/animeflickAPI/config"
)

func userClientFor(t *testing.T, srv *httptest.Server) *UserClient {
	t.Helper()
	cfg := &config.Config{}
	cfg.User.BaseURL = srv.URL
	cfg.User.TimeoutSeconds = 2
	return NewUserClient(cfg)
}

func TestRefresh(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/refresh", r.URL.Path)

			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ref-token", body["refresh_token"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"new-acc","refresh_token":"new-ref","expires_in":900}`))
		}))
		defer srv.Close()

		tokens, err := userClientFor(t, srv).Refresh(context.Background(), "ref-token")
		assert.NoError(t, err)
		assert.Equal(t, "new-acc", tokens.AccessToken)
		assert.Equal(t, "new-ref", tokens.RefreshToken)
		assert.Equal(t, int64(900), tokens.ExpiresIn)
	})

	t.Run("RejectedTokenIsTypedError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"refresh token revoked"}`))
		}))
		defer srv.Close()

		_, err := userClientFor(t, srv).Refresh(context.Background(), "dead")
		var rerr *auth.RefreshError
		assert.True(t, errors.As(err, &rerr))
		assert.Equal(t, http.StatusUnauthorized, rerr.Status)
	})

	t.Run("MissingAccessTokenIsError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"expires_in":900}`))
		}))
		defer srv.Close()

		_, err := userClientFor(t, srv).Refresh(context.Background(), "ref")
		var rerr *auth.RefreshError
		assert.True(t, errors.As(err, &rerr))
		assert.Equal(t, http.StatusOK, rerr.Status)
	})
}

func TestSignin(t *testing.T) {
	t.Run("ForwardsVerbatimAndParses", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/signin", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"acc","refresh_token":"ref","expires_in":3600,"user":{"id":"u1"}}`))
		}))
		defer srv.Close()

		status, reply, err := userClientFor(t, srv).Signin(context.Background(), []byte(`{"email":"a@b.c"}`))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "acc", reply.AccessToken)
		assert.JSONEq(t, `{"id":"u1"}`, string(reply.User))
	})

	t.Run("Non2xxKeepsStatusAndBody", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status":"Invalid login credentials"}`))
		}))
		defer srv.Close()

		status, reply, err := userClientFor(t, srv).Signin(context.Background(), []byte(`{}`))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid login credentials", reply.Status)
		assert.Empty(t, reply.AccessToken)
	})
}

func TestUIIdentity(t *testing.T) {
	t.Run("TopLevelDisplayName", func(t *testing.T) {
		id := UIIdentity(json.RawMessage(`{"id":"u1","email":"a@b.c","display_name":"Alice"}`))
		assert.NotNil(t, id)
		assert.Equal(t, "u1", id.ID)
		assert.Equal(t, "Alice", *id.DisplayName)
	})

	t.Run("MetadataFallback", func(t *testing.T) {
		id := UIIdentity(json.RawMessage(`{"id":"u1","user_metadata":{"display_name":"Meta"}}`))
		assert.NotNil(t, id)
		assert.Equal(t, "Meta", *id.DisplayName)
	})

	t.Run("NoID", func(t *testing.T) {
		assert.Nil(t, UIIdentity(json.RawMessage(`{"email":"a@b.c"}`)))
	})

	t.Run("Garbage", func(t *testing.T) {
		assert.Nil(t, UIIdentity(json.RawMessage(`not json`)))
		assert.Nil(t, UIIdentity(nil))
	})
}

func TestNormalizeFavorites(t *testing.T) {
	t.Run("BareArray", func(t *testing.T) {
		out := NormalizeFavorites(json.RawMessage(`[{"slug":"a"}]`))
		assert.JSONEq(t, `[{"slug":"a"}]`, string(out))
	})
	t.Run("FavoritesWrapper", func(t *testing.T) {
		out := NormalizeFavorites(json.RawMessage(`{"favorites":[{"slug":"a"}]}`))
		assert.JSONEq(t, `[{"slug":"a"}]`, string(out))
	})
	t.Run("DataWrapper", func(t *testing.T) {
		out := NormalizeFavorites(json.RawMessage(`{"data":[1,2]}`))
		assert.JSONEq(t, `[1,2]`, string(out))
	})
	t.Run("UnknownShape", func(t *testing.T) {
		assert.Equal(t, "[]", string(NormalizeFavorites(json.RawMessage(`{"count":3}`))))
		assert.Equal(t, "[]", string(NormalizeFavorites(nil)))
		assert.Equal(t, "[]", string(NormalizeFavorites(json.RawMessage(`garbage`))))
	})
}

func TestRequestBuilders(t *testing.T) {
	cfg := &config.Config{}
	cfg.User.BaseURL = "http://users.local"
	c := NewUserClient(cfg)

	t.Run("Favorites", func(t *testing.T) {
		req := c.FavoritesRequest()
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "http://users.local/favorites", req.URL)
	})

	t.Run("AddFavorite", func(t *testing.T) {
		req := c.AddFavoriteRequest([]byte(`{"slug":"naruto"}`))
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "http://users.local/favorites/add", req.URL)
		assert.JSONEq(t, `{"slug":"naruto"}`, string(req.Body))
	})

	t.Run("Progress", func(t *testing.T) {
		req := c.ProgressRequest("watching")
		assert.Equal(t, "http://users.local/anime/progress", req.URL)
		assert.Equal(t, "watching", req.Query.Get("status"))
	})

	t.Run("Watched", func(t *testing.T) {
		assert.Equal(t, "http://users.local/anime/watched", c.WatchedRequest().URL)
		assert.Equal(t, "http://users.local/anime/watched/add", c.AddWatchedRequest(nil).URL)
		assert.Equal(t, "http://users.local/anime/watched/delete", c.DeleteWatchedRequest(nil).URL)
	})
}
