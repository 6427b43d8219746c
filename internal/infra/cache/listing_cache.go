package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/entity"
)

const (
	listingNamespace = "listing"
	ownerNamespace   = "agent"
)

// ListingResolver is a read-through cache over another resolver. Redis
// failures fall through to the source; misses are not cached.
type ListingResolver struct {
	Source entity.ListingResolver
	Cache  *Cache
	TTL    time.Duration
	Logger *zap.Logger
}

func (r *ListingResolver) Resolve(ctx context.Context, ref entity.ListingRef) (*entity.Listing, error) {
	key := string(ref.Kind) + ":" + ref.ID
	var listing entity.Listing
	if readThrough(ctx, r.Cache, listingNamespace, key, &listing, r.Logger) {
		return &listing, nil
	}

	found, err := r.Source.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	writeThrough(ctx, r.Cache, listingNamespace, key, found, r.TTL, r.Logger)
	return found, nil
}

// OwnerDirectory caches agent lookups the same way.
type OwnerDirectory struct {
	Source entity.OwnerDirectory
	Cache  *Cache
	TTL    time.Duration
	Logger *zap.Logger
}

func (d *OwnerDirectory) FindByID(ctx context.Context, id string) (*entity.Owner, error) {
	var owner entity.Owner
	if readThrough(ctx, d.Cache, ownerNamespace, id, &owner, d.Logger) {
		return &owner, nil
	}

	found, err := d.Source.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	writeThrough(ctx, d.Cache, ownerNamespace, id, found, d.TTL, d.Logger)
	return found, nil
}

func readThrough(ctx context.Context, c *Cache, namespace, key string, dst any, logger *zap.Logger) bool {
	raw, err := c.Get(ctx, namespace, key)
	if IsMiss(err) {
		return false
	}
	if err != nil {
		logOrNop(logger).Warn("⚠️ cache read failed", zap.String("key", namespace+":"+key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		_ = c.Delete(ctx, namespace, key)
		return false
	}
	return true
}

func writeThrough(ctx context.Context, c *Cache, namespace, key string, v any, ttl time.Duration, logger *zap.Logger) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.Set(ctx, namespace, key, raw, ttl); err != nil {
		logOrNop(logger).Warn("⚠️ cache write failed", zap.String("key", namespace+":"+key), zap.Error(err))
	}
}

func logOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
