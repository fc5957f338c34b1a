// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)
	skew := 30 * time.Second

	t.Run("ZeroTimestampIsExpired", func(t *testing.T) {
		assert.True(t, Expired(0, skew, now))
	})

	t.Run("JustInsideSkewWindow", func(t *testing.T) {
		expiresAt := now.UnixMilli() + skew.Milliseconds() - 1
		assert.True(t, Expired(expiresAt, skew, now))
	})

	t.Run("JustOutsideSkewWindow", func(t *testing.T) {
		expiresAt := now.UnixMilli() + skew.Milliseconds() + 1
		assert.False(t, Expired(expiresAt, skew, now))
	})

	t.Run("ExactBoundaryIsExpired", func(t *testing.T) {
		expiresAt := now.UnixMilli() + skew.Milliseconds()
		assert.True(t, Expired(expiresAt, skew, now))
	})

	t.Run("FarFuture", func(t *testing.T) {
		assert.False(t, Expired(now.Add(time.Hour).UnixMilli(), skew, now))
	})
}

func requestWithCookies(t *testing.T, cookies ...*http.Cookie) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestSessionFromRequest(t *testing.T) {
	t.Run("FullTriple", func(t *testing.T) {
		expiresAt := time.Now().Add(time.Hour).UnixMilli()
		req := requestWithCookies(t,
			&http.Cookie{Name: AccessCookie, Value: "acc"},
			&http.Cookie{Name: RefreshCookie, Value: "ref"},
			&http.Cookie{Name: ExpiresAtCookie, Value: strconv.FormatInt(expiresAt, 10)},
		)

		sess := SessionFromRequest(req)
		assert.Equal(t, "acc", sess.Access)
		assert.Equal(t, "ref", sess.Refresh)
		assert.Equal(t, expiresAt, sess.ExpiresAt)
	})

	t.Run("NoCookies", func(t *testing.T) {
		sess := SessionFromRequest(requestWithCookies(t))
		assert.Equal(t, Session{}, sess)
	})

	t.Run("GarbageExpiry", func(t *testing.T) {
		req := requestWithCookies(t,
			&http.Cookie{Name: AccessCookie, Value: "acc"},
			&http.Cookie{Name: ExpiresAtCookie, Value: "not-a-number"},
		)

		sess := SessionFromRequest(req)
		assert.Equal(t, "acc", sess.Access)
		assert.Equal(t, int64(0), sess.ExpiresAt)
	})
}
