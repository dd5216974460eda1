package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pitchup/internal/models"
)

// VenueStore is the persistent venue catalog behind the cache.
type VenueStore interface {
	GetByID(ctx context.Context, id string) (*models.Venue, error)
	List(ctx context.Context, query string, page, pageSize int) ([]models.Venue, error)
	ListAll(ctx context.Context) ([]models.Venue, error)
}

// CachedVenues is a read-through cache for single venue lookups. Listing
// goes straight to the store. Cache failures fall back to the store.
type CachedVenues struct {
	VenueStore
	cache *ValkeyClient
	ttl   time.Duration
}

func NewCachedVenues(store VenueStore, cache *ValkeyClient, ttl time.Duration) *CachedVenues {
	return &CachedVenues{VenueStore: store, cache: cache, ttl: ttl}
}

func venueKey(id string) string {
	return "venue:" + id
}

func (c *CachedVenues) GetByID(ctx context.Context, id string) (*models.Venue, error) {
	var venue models.Venue
	err := c.cache.GetJSON(ctx, venueKey(id), &venue)
	if err == nil {
		return &venue, nil
	}
	if !errors.Is(err, ErrMiss) {
		slog.WarnContext(ctx, "Venue cache read failed", "venue_id", id, "error", err)
	}

	found, err := c.VenueStore.GetByID(ctx, id)
	if err != nil || found == nil {
		return found, err
	}

	if err := c.cache.SetJSON(ctx, venueKey(id), found, c.ttl); err != nil {
		slog.WarnContext(ctx, "Venue cache write failed", "venue_id", id, "error", err)
	}
	return found, nil
}

// Invalidate drops cached entries after a venue changed.
func (c *CachedVenues) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = venueKey(id)
	}
	return c.cache.Delete(ctx, keys...)
}
