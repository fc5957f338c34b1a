// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"time"

	"github.com/VA7DBI/animeflickAPI/metrics"
)

// Guard guarantees that a request about to go upstream carries a non-expired
// access token, refreshing proactively when the expiry timestamp (minus skew)
// has passed.
type Guard struct {
	Refresher Refresher
	Policy    CookiePolicy
	Skew      time.Duration
	Now       func() time.Time
}

// Ensured is the guard's answer: the access token to use, whether a refresh
// happened, and the carrier holding the refreshed cookies if it did.
type Ensured struct {
	Access    string
	Refreshed bool
	Carrier   *Carrier
}

func (g *Guard) skew() time.Duration {
	if g.Skew > 0 {
		return g.Skew
	}
	return DefaultSkew
}

func (g *Guard) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// EnsureFresh inspects the session and refreshes the access token when
// needed. Without a refresh token there is nothing to self-heal with, so the
// current access token (possibly empty) is returned as-is. A refresh failure
// propagates to the caller.
func (g *Guard) EnsureFresh(ctx context.Context, sess Session) (Ensured, error) {
	if sess.Refresh == "" {
		return Ensured{Access: sess.Access}, nil
	}

	if sess.Access != "" && !Expired(sess.ExpiresAt, g.skew(), g.now()) {
		return Ensured{Access: sess.Access}, nil
	}

	tokens, err := g.Refresher.Refresh(ctx, sess.Refresh)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("proactive", "failed").Inc()
		return Ensured{}, err
	}
	metrics.TokenRefreshes.WithLabelValues("proactive", "ok").Inc()

	carrier := NewCarrier()
	g.Policy.WriteAuth(carrier.Sink(), tokens)

	return Ensured{Access: tokens.AccessToken, Refreshed: true, Carrier: carrier}, nil
}
