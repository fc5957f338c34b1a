// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VA7DBI/animeflickAPI/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const maxBodyBytes = 8 << 20

// StatusError reports a non-2xx upstream reply.
type StatusError struct {
	Status int
	URL    string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d :: %s :: %s", e.Status, e.URL, e.Body)
}

// fetcher is the shared JSON transport for the external APIs: one call, one
// per-request timeout, metrics labeled by API name.
type fetcher struct {
	api     string
	client  *http.Client
	timeout time.Duration
}

func (f fetcher) httpClient() *http.Client {
	if f.client != nil {
		return f.client
	}
	return http.DefaultClient
}

// strictJSON performs the call and fails loudly: non-2xx becomes a
// StatusError carrying a truncated body, invalid JSON is an error too.
func (f fetcher) strictJSON(ctx context.Context, method, rawurl string, body []byte, header http.Header) (json.RawMessage, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawurl, reader)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	timer := prometheus.NewTimer(metrics.UpstreamDuration.WithLabelValues(f.api))
	resp, err := f.httpClient().Do(req)
	timer.ObserveDuration()
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(f.api, "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(f.api, "error").Inc()
		return nil, err
	}
	metrics.UpstreamRequests.WithLabelValues(f.api, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, URL: rawurl, Body: truncate(string(data), 160)}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON from %s", rawurl)
	}
	return json.RawMessage(data), nil
}

// safeJSON is the tolerant variant: any failure is logged and collapses to
// nil so one flaky upstream never breaks a whole page.
func (f fetcher) safeJSON(ctx context.Context, method, rawurl string, body []byte, header http.Header) json.RawMessage {
	raw, err := f.strictJSON(ctx, method, rawurl, body, header)
	if err != nil {
		log.Printf("[upstream] %s %s failed: %v", method, rawurl, err)
		return nil
	}
	return raw
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
