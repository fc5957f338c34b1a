// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import "net/http"

// ApplyAuthCookies attaches every pending cookie mutation from an
// orchestrated call to the outgoing response. The proactive carrier merges
// first, then the reactive update writes (Rotate) or blanks (Revoke) the
// triple. When both fired in one call, last write on a cookie name wins,
// which is the reactive result since it runs later.
func ApplyAuthCookies(w http.ResponseWriter, res Result, policy CookiePolicy) {
	if res.Ensured != nil {
		MergeSetCookie(res.Ensured.Header(), w.Header())
	}

	switch res.Update.Kind {
	case Rotate:
		policy.WriteAuth(SetOnResponse(w), res.Update.Tokens)
	case Revoke:
		policy.ClearAuth(SetOnResponse(w))
	}
}
