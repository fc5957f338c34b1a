// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"net/http"
	"strconv"
	"time"
)

// Cookie names are part of the browser-facing contract.
const (
	AccessCookie    = "af_access"
	RefreshCookie   = "af_refresh"
	ExpiresAtCookie = "af_expires_at" // epoch millis, readable by client JS
	IdentityCookie  = "af_user"
)

// DefaultSkew is the safety margin used to refresh an access token slightly
// before the issuer would reject it.
const DefaultSkew = 30 * time.Second

// Tokens is the triple minted by the user API on sign-in and refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in,omitempty"` // seconds, issuer-declared
}

// Session is the cookie-held auth state of a single request. It is never
// stored server-side; the browser carries it on every call.
type Session struct {
	Access    string
	Refresh   string
	ExpiresAt int64 // epoch millis the access token goes stale
}

// Identity is the UI-only user blob. It is client-forgeable and is never
// used for authorization or for scoping server-side state; display only.
type Identity struct {
	ID          string  `json:"id"`
	Email       *string `json:"email,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
}

// SessionFromRequest reads the token triple from request cookies. Absent or
// malformed cookies leave the corresponding field zero.
func SessionFromRequest(r *http.Request) Session {
	var sess Session
	if c, err := r.Cookie(AccessCookie); err == nil {
		sess.Access = c.Value
	}
	if c, err := r.Cookie(RefreshCookie); err == nil {
		sess.Refresh = c.Value
	}
	if c, err := r.Cookie(ExpiresAtCookie); err == nil {
		if ms, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
			sess.ExpiresAt = ms
		}
	}
	return sess
}

// Expired reports whether an access token must be treated as stale.
// A zero timestamp always counts as expired.
func Expired(expiresAtMs int64, skew time.Duration, now time.Time) bool {
	if expiresAtMs == 0 {
		return true
	}
	return now.UnixMilli() >= expiresAtMs-skew.Milliseconds()
}
