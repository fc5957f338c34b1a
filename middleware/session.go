// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"github.com/VA7DBI/animeflickAPI/auth"
	"github.com/gin-gonic/gin"
)

const sessionKey = "authSession"

// Session parses the token cookies into the gin context. It makes no
// authorization decision; handlers decide what an absent session means. The
// identity cookie is deliberately not read here: it is client-forgeable and
// exists only for page rendering.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionKey, auth.SessionFromRequest(c.Request))
		c.Next()
	}
}

// GetSession returns the parsed session, falling back to the request cookies
// when the middleware didn't run.
func GetSession(c *gin.Context) auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(auth.Session); ok {
			return sess
		}
	}
	return auth.SessionFromRequest(c.Request)
}
