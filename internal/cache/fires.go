package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/fireproof/server/internal/clients/firms"
	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// FireFeed returns raw detection records for one sensor
type FireFeed interface {
	FetchArea(ctx context.Context, sensor string, box geo.BoundingBox, days int) ([]danger.Record, error)
	FetchAreaRaw(ctx context.Context, sensor, bbox string, days int) ([]danger.Record, error)
}

// FireFeedCache caches per-sensor fire feed responses. When the feed fails, a response up to
// twice the TTL old is served instead.
type FireFeedCache struct {
	next  FireFeed
	cache *Cache
	ttl   time.Duration
}

// NewFireFeedCache wraps next with a response cache
func NewFireFeedCache(next FireFeed, cache *Cache, ttl time.Duration) *FireFeedCache {
	return &FireFeedCache{next: next, cache: cache, ttl: ttl}
}

// FetchArea implements FireFeed
func (f *FireFeedCache) FetchArea(ctx context.Context, sensor string, box geo.BoundingBox, days int) ([]danger.Record, error) {
	bbox := firms.FormatBBox(box)
	return f.fetch(ctx, sensor, bbox, days, func() ([]danger.Record, error) {
		return f.next.FetchArea(ctx, sensor, box, days)
	})
}

// FetchAreaRaw implements FireFeed
func (f *FireFeedCache) FetchAreaRaw(ctx context.Context, sensor, bbox string, days int) ([]danger.Record, error) {
	return f.fetch(ctx, sensor, bbox, days, func() ([]danger.Record, error) {
		return f.next.FetchAreaRaw(ctx, sensor, bbox, days)
	})
}

func (f *FireFeedCache) fetch(ctx context.Context, sensor, bbox string, days int, load func() ([]danger.Record, error)) ([]danger.Record, error) {
	ctx = logging.EnsureLogger(ctx)
	key := fmt.Sprintf("firms:%s:%s:%d", sensor, bbox, days)

	var records []danger.Record
	found, err := f.cache.Get(key, &records)
	if err != nil {
		logging.Warnw(ctx, "Cache error", "key", key, "error", err)
	}
	if found {
		return records, nil
	}

	records, err = load()
	if err != nil {
		var stale []danger.Record
		if ok, _ := f.cache.GetStale(key, &stale); ok {
			logging.Warnw(ctx, "Fire feed failed, serving stale cached records",
				"sensor", sensor, "count", len(stale), "error", err)
			return stale, nil
		}
		return nil, err
	}

	if err := f.cache.Set(key, records, f.ttl, "firms"); err != nil {
		logging.Warnw(ctx, "Failed to cache fire feed response", "key", key, "error", err)
	}
	return records, nil
}
