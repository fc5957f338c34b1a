// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CookiePolicy captures the frontend's cookie attributes in one place so the
// same rules apply whether cookies land on a live response or a carrier.
type CookiePolicy struct {
	Secure         bool
	AccessTTL      time.Duration // Max-Age fallback for the access cookie
	RefreshTTL     time.Duration // refresh, expiry and identity cookies
	ExpiryFallback time.Duration // af_expires_at window when expires_in is absent
	Now            func() time.Time
}

// DefaultCookiePolicy mirrors the lifetimes the user API hands out in practice.
func DefaultCookiePolicy(secure bool) CookiePolicy {
	return CookiePolicy{
		Secure:         secure,
		AccessTTL:      time.Hour,
		RefreshTTL:     30 * 24 * time.Hour,
		ExpiryFallback: 55 * time.Minute,
	}
}

func (p CookiePolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ExpiresAt derives the epoch-millis staleness point for a fresh token:
// issuance time plus the issuer-declared lifetime, with the fallback window
// when the issuer omits expires_in.
func (p CookiePolicy) ExpiresAt(t Tokens) int64 {
	if t.ExpiresIn > 0 {
		return p.now().UnixMilli() + t.ExpiresIn*1000
	}
	return p.now().Add(p.ExpiryFallback).UnixMilli()
}

// SetOnResponse adapts an http.ResponseWriter to the cookie sink the policy
// writes through. The same functions also accept a Carrier's sink.
func SetOnResponse(w http.ResponseWriter) func(*http.Cookie) {
	return func(c *http.Cookie) {
		http.SetCookie(w, c)
	}
}

func (p CookiePolicy) base() http.Cookie {
	return http.Cookie{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   p.Secure,
	}
}

// WriteAuth sets the full token triple. The access cookie lives as long as
// the issuer says; refresh and expiry cookies get the long refresh lifetime.
func (p CookiePolicy) WriteAuth(set func(*http.Cookie), t Tokens) {
	accessMaxAge := int(p.AccessTTL / time.Second)
	if t.ExpiresIn > 0 {
		accessMaxAge = int(t.ExpiresIn)
	}

	access := p.base()
	access.Name = AccessCookie
	access.Value = t.AccessToken
	access.MaxAge = accessMaxAge
	set(&access)

	refresh := p.base()
	refresh.Name = RefreshCookie
	refresh.Value = t.RefreshToken
	refresh.MaxAge = int(p.RefreshTTL / time.Second)
	set(&refresh)

	expires := p.base()
	expires.Name = ExpiresAtCookie
	expires.Value = strconv.FormatInt(p.ExpiresAt(t), 10)
	expires.MaxAge = int(p.RefreshTTL / time.Second)
	expires.HttpOnly = false // client code may anticipate expiry
	set(&expires)
}

// WriteIdentity sets the UI-only identity blob.
func (p CookiePolicy) WriteIdentity(set func(*http.Cookie), id Identity) {
	raw, err := json.Marshal(id)
	if err != nil {
		return
	}

	ck := p.base()
	ck.Name = IdentityCookie
	ck.Value = url.QueryEscape(string(raw))
	ck.MaxAge = int(p.RefreshTTL / time.Second)
	set(&ck)
}

// ClearAuth blanks the token triple with immediate expiry.
func (p CookiePolicy) ClearAuth(set func(*http.Cookie)) {
	for _, name := range []string{AccessCookie, RefreshCookie, ExpiresAtCookie} {
		set(&http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
}

// ClearIdentity blanks the identity blob.
func (p CookiePolicy) ClearIdentity(set func(*http.Cookie)) {
	set(&http.Cookie{Name: IdentityCookie, Value: "", Path: "/", MaxAge: -1})
}
