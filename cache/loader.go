// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"context"
	"time"

	"github.com/VA7DBI/animeflickAPI/metrics"
	"golang.org/x/sync/singleflight"
)

// Loader fills cache misses through a keyed single-flight group so that
// concurrent requests for the same key share one upstream call instead of
// issuing duplicates. Invalidate forgets the in-flight entry too, so nothing
// leaks across users or test runs.
type Loader struct {
	store Store
	group singleflight.Group
}

func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

// Load returns the cached value for key, or runs fill (once per key across
// concurrent callers) and caches its non-nil result for ttl.
func (l *Loader) Load(ctx context.Context, key string, ttl time.Duration, fill func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok, err := l.store.Get(ctx, key); err == nil && ok {
		metrics.CacheOps.WithLabelValues("hit").Inc()
		return data, nil
	}
	metrics.CacheOps.WithLabelValues("miss").Inc()

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		data, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		if data != nil {
			if serr := l.store.Set(ctx, key, data, ttl); serr != nil {
				metrics.CacheOps.WithLabelValues("store_error").Inc()
			}
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	data, _ := v.([]byte)
	return data, nil
}

// Invalidate drops both the cached value and any in-flight fill for key.
func (l *Loader) Invalidate(ctx context.Context, key string) error {
	l.group.Forget(key)
	return l.store.Delete(ctx, key)
}
