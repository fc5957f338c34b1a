// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/VA7DBI/animeflickAPI/auth"
	"github.com/VA7DBI/animeflickAPI/config"
)

// UserClient talks to the external user API: credentials, token refresh, and
// the builders for the bearer-authenticated resources the orchestrator runs.
type UserClient struct {
	baseURL string
	fetcher fetcher
}

func NewUserClient(cfg *config.Config) *UserClient {
	return &UserClient{
		baseURL: cfg.User.BaseURL,
		fetcher: fetcher{
			api:     "user",
			client:  &http.Client{},
			timeout: cfg.UserTimeout(),
		},
	}
}

// HTTPClient exposes the underlying client so the orchestrator shares the
// same transport.
func (c *UserClient) HTTPClient() *http.Client {
	return c.fetcher.httpClient()
}

// Refresh implements auth.Refresher against POST /auth/refresh.
func (c *UserClient) Refresh(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return auth.Tokens{}, err
	}

	raw, err := c.fetcher.strictJSON(ctx, http.MethodPost, c.baseURL+"/auth/refresh", body, nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return auth.Tokens{}, &auth.RefreshError{Status: se.Status, Body: se.Body}
		}
		return auth.Tokens{}, err
	}

	var tokens auth.Tokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return auth.Tokens{}, fmt.Errorf("refresh reply parse: %w", err)
	}
	if tokens.AccessToken == "" {
		return auth.Tokens{}, &auth.RefreshError{Status: http.StatusOK, Body: "no access_token in refresh reply"}
	}
	return tokens, nil
}

// SigninResponse is the issuer's sign-in reply. User stays raw: the identity
// blob is reduced to UI fields by the handler.
type SigninResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	User         json.RawMessage `json:"user"`
	Status       string          `json:"status"`
}

// Signin forwards credentials verbatim. The HTTP status and reply are both
// returned; a non-2xx is not an error here because the handler surfaces the
// issuer's own message. Parse failures leave the reply zero.
func (c *UserClient) Signin(ctx context.Context, credentials []byte) (int, SigninResponse, error) {
	status, data, err := c.post(ctx, c.baseURL+"/auth/signin", credentials)
	if err != nil {
		return 0, SigninResponse{}, err
	}

	var out SigninResponse
	_ = json.Unmarshal(data, &out)
	return status, out, nil
}

// Signup forwards the registration body, nil on any failure.
func (c *UserClient) Signup(ctx context.Context, body []byte) json.RawMessage {
	return c.fetcher.safeJSON(ctx, http.MethodPost, c.baseURL+"/auth/signup", body, nil)
}

// post is a raw call that keeps non-2xx replies instead of turning them into
// errors; sign-in needs the issuer's status body either way.
func (c *UserClient) post(ctx context.Context, rawurl string, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetcher.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawurl, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.fetcher.httpClient().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

// Request builders: plain command values for the orchestrator.

func (c *UserClient) FavoritesRequest() auth.Request {
	return auth.Request{Method: http.MethodGet, URL: c.baseURL + "/favorites"}
}

func (c *UserClient) AddFavoriteRequest(body []byte) auth.Request {
	return auth.Request{Method: http.MethodPost, URL: c.baseURL + "/favorites/add", Body: body}
}

func (c *UserClient) DeleteFavoriteRequest(body []byte) auth.Request {
	return auth.Request{Method: http.MethodPost, URL: c.baseURL + "/favorites/delete", Body: body}
}

func (c *UserClient) WatchedRequest() auth.Request {
	return auth.Request{Method: http.MethodGet, URL: c.baseURL + "/anime/watched"}
}

func (c *UserClient) AddWatchedRequest(body []byte) auth.Request {
	return auth.Request{Method: http.MethodPost, URL: c.baseURL + "/anime/watched/add", Body: body}
}

func (c *UserClient) DeleteWatchedRequest(body []byte) auth.Request {
	return auth.Request{Method: http.MethodPost, URL: c.baseURL + "/anime/watched/delete", Body: body}
}

func (c *UserClient) ProgressRequest(status string) auth.Request {
	return auth.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + "/anime/progress",
		Query:  url.Values{"status": []string{status}},
	}
}

func (c *UserClient) SaveProgressRequest(body []byte) auth.Request {
	return auth.Request{Method: http.MethodPost, URL: c.baseURL + "/anime/progress", Body: body}
}

// issuerUser is the issuer-side user document; only UI-safe fields survive.
type issuerUser struct {
	ID          string  `json:"id"`
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
	Metadata    *struct {
		DisplayName *string `json:"display_name"`
	} `json:"user_metadata"`
}

// UIIdentity reduces the issuer's user document to the display-only blob
// stored in the identity cookie. Returns nil when there is no usable id.
func UIIdentity(raw json.RawMessage) *auth.Identity {
	if len(raw) == 0 {
		return nil
	}
	var u issuerUser
	if err := json.Unmarshal(raw, &u); err != nil || u.ID == "" {
		return nil
	}

	name := u.DisplayName
	if name == nil && u.Metadata != nil {
		name = u.Metadata.DisplayName
	}
	return &auth.Identity{ID: u.ID, Email: u.Email, DisplayName: name}
}

// NormalizeFavorites reduces the ambiguous favorites reply to a bare list.
// The upstream has been seen returning {favorites:[...]}, {data:[...]} and a
// bare array; anything else collapses to an empty list.
func NormalizeFavorites(raw json.RawMessage) json.RawMessage {
	empty := json.RawMessage("[]")
	if len(raw) == 0 {
		return empty
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		return raw
	}

	var wrapper struct {
		Favorites json.RawMessage `json:"favorites"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return empty
	}
	if len(wrapper.Favorites) > 0 && strings.HasPrefix(strings.TrimSpace(string(wrapper.Favorites)), "[") {
		return wrapper.Favorites
	}
	if len(wrapper.Data) > 0 && strings.HasPrefix(strings.TrimSpace(string(wrapper.Data)), "[") {
		return wrapper.Data
	}
	return empty
}
