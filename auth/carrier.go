// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import "net/http"

// Carrier accumulates Set-Cookie instructions detached from any live
// response. The proactive refresh path writes into a carrier first; the
// handler merges it onto the real outgoing response at the end.
type Carrier struct {
	header http.Header
}

func NewCarrier() *Carrier {
	return &Carrier{header: make(http.Header)}
}

// Sink returns the cookie setter a CookiePolicy writes through.
func (c *Carrier) Sink() func(*http.Cookie) {
	return func(ck *http.Cookie) {
		if v := ck.String(); v != "" {
			c.header.Add("Set-Cookie", v)
		}
	}
}

// Header exposes the accumulated headers for merging.
func (c *Carrier) Header() http.Header {
	return c.header
}

// MergeSetCookie copies every Set-Cookie entry from one header onto another.
// Each entry stays its own header instance; cookies must never be
// concatenated into a single header line.
func MergeSetCookie(from, to http.Header) {
	for _, v := range from.Values("Set-Cookie") {
		to.Add("Set-Cookie", v)
	}
}
