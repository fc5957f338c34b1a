// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/VA7DBI/animeflickAPI/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const maxUpstreamBody = 4 << 20

// Request describes one logical upstream call as a plain value. The
// orchestrator may execute it twice with different credentials, so it must
// carry no mutable state of its own.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Body   []byte
	Header http.Header
}

// Outcome is the materialized upstream reply of an orchestrated call.
type Outcome struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (o Outcome) OK() bool {
	return o.Status >= 200 && o.Status < 300
}

// JSON decodes the body, treating any parse failure as a null body so a
// malformed upstream reply still yields a well-formed outward response.
func (o Outcome) JSON() json.RawMessage {
	if !json.Valid(o.Body) {
		return nil
	}
	return json.RawMessage(o.Body)
}

// Message extracts a best-effort human-readable message from the reply body.
func (o Outcome) Message(fallback string) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(o.Body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	if text := strings.TrimSpace(string(o.Body)); text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
		if len(text) > 160 {
			text = text[:160]
		}
		return text
	}
	return fallback
}

// UpdateKind tags which cookie mutation the caller must perform.
type UpdateKind int

const (
	// NoChange leaves auth cookies alone.
	NoChange UpdateKind = iota
	// Rotate writes the fresh triple carried in TokenUpdate.Tokens.
	Rotate
	// Revoke blanks the triple; the session is unrecoverable.
	Revoke
)

// TokenUpdate is the tagged outcome of the refresh bookkeeping. Tokens is
// meaningful only when Kind is Rotate.
type TokenUpdate struct {
	Kind   UpdateKind
	Tokens Tokens
}

// Result bundles the final upstream outcome with the two cookie channels:
// the proactive-refresh carrier and the reactive token update.
type Result struct {
	Upstream Outcome
	Ensured  *Carrier
	Update   TokenUpdate
}

// Client runs bearer-authenticated upstream calls with proactive refresh
// before the first attempt and at most one reactive refresh-and-retry on 401.
type Client struct {
	Guard   *Guard
	HTTP    *http.Client
	Timeout time.Duration
	API     string // metrics label
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) api() string {
	if c.API != "" {
		return c.API
	}
	return "user"
}

// Do executes req against the upstream, renewing credentials as needed.
//
// The state machine is bounded by construction: proactive check, first
// attempt, optional reactive refresh, optional single retry. A retry result
// is final even when it is another 401. A failed refresh never surfaces as an
// error; it degrades to a Revoke update so the caller logs the user out.
func (c *Client) Do(ctx context.Context, sess Session, req Request) (Result, error) {
	ensured, err := c.Guard.EnsureFresh(ctx, sess)
	if err != nil {
		// The refresh token was present but rejected before we ever reached
		// the upstream resource. Session is unrecoverable.
		return Result{
			Upstream: Outcome{Status: http.StatusUnauthorized},
			Update:   TokenUpdate{Kind: Revoke},
		}, nil
	}

	if ensured.Access == "" {
		// Nothing to authenticate with and nothing to heal from: synthetic
		// 401 without touching the upstream.
		return Result{
			Upstream: Outcome{Status: http.StatusUnauthorized},
			Ensured:  ensured.Carrier,
		}, nil
	}

	upstream, err := c.attempt(ctx, req, ensured.Access)
	if err != nil {
		return Result{Ensured: ensured.Carrier}, err
	}

	if upstream.Status != http.StatusUnauthorized || sess.Refresh == "" {
		return Result{Upstream: upstream, Ensured: ensured.Carrier}, nil
	}

	// Reactive path: the access token we trusted was rejected anyway.
	tokens, rerr := c.Guard.Refresher.Refresh(ctx, sess.Refresh)
	if rerr != nil {
		metrics.TokenRefreshes.WithLabelValues("reactive", "failed").Inc()
		return Result{
			Upstream: upstream,
			Ensured:  ensured.Carrier,
			Update:   TokenUpdate{Kind: Revoke},
		}, nil
	}
	metrics.TokenRefreshes.WithLabelValues("reactive", "ok").Inc()

	retry, err := c.attempt(ctx, req, tokens.AccessToken)
	if err != nil {
		return Result{
			Ensured: ensured.Carrier,
			Update:  TokenUpdate{Kind: Rotate, Tokens: tokens},
		}, err
	}

	return Result{
		Upstream: retry,
		Ensured:  ensured.Carrier,
		Update:   TokenUpdate{Kind: Rotate, Tokens: tokens},
	}, nil
}

func (c *Client) attempt(ctx context.Context, req Request, access string) (Outcome, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	target := req.URL
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return Outcome{}, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+access)

	timer := prometheus.NewTimer(metrics.UpstreamDuration.WithLabelValues(c.api()))
	resp, err := c.httpClient().Do(httpReq)
	timer.ObserveDuration()
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(c.api(), "error").Inc()
		return Outcome{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(c.api(), "error").Inc()
		return Outcome{}, err
	}

	metrics.UpstreamRequests.WithLabelValues(c.api(), strconv.Itoa(resp.StatusCode)).Inc()
	return Outcome{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
