// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"fmt"
)

// Refresher mints a new token triple from a refresh token. No retry happens
// at this layer; retry policy lives in the orchestrator.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// RefreshError reports a non-2xx reply from the refresh endpoint.
type RefreshError struct {
	Status int
	Body   string
}

func (e *RefreshError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("refresh failed: status %d", e.Status)
	}
	return fmt.Sprintf("refresh failed: status %d: %s", e.Status, e.Body)
}
