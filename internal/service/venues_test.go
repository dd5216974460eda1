package service

import (
	"context"
	"errors"
	"testing"

	"pitchup/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	results []models.Venue
	err     error
	indexed []string
}

func (i *fakeIndex) SearchVenues(_ context.Context, _ string, _, _ int) ([]models.Venue, error) {
	return i.results, i.err
}

func (i *fakeIndex) IndexVenue(_ context.Context, venue *models.Venue) error {
	i.indexed = append(i.indexed, venue.ID)
	return nil
}

func TestVenueList(t *testing.T) {
	ctx := context.Background()
	name := "Court Central"
	city := "Madrid"
	price := int64(2250)
	indexed := []models.Venue{{ID: "venue-es", Name: &name, Sport: "padel", City: &city, PricePerHour: &price}}

	t.Run("query goes to the index", func(t *testing.T) {
		f := newFixture(testPolicy)
		svc := NewVenueService(f.venues, &fakeIndex{results: indexed})

		items, err := svc.List(ctx, " padel ", 1, 20)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, models.ListVenuesResponseItem{
			ID: "venue-es", Name: "Court Central", Sport: "padel", City: "Madrid", PricePerHour: "22.50",
		}, items[0])
	})

	t.Run("index failure falls back to database", func(t *testing.T) {
		f := newFixture(testPolicy)
		svc := NewVenueService(f.venues, &fakeIndex{err: errors.New("cluster unavailable")})

		items, err := svc.List(ctx, "padel", 1, 20)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "venue-unpriced", items[0].ID)
		assert.Empty(t, items[0].PricePerHour)
	})

	t.Run("empty query lists from database", func(t *testing.T) {
		f := newFixture(testPolicy)
		svc := NewVenueService(f.venues, nil)

		items, err := svc.List(ctx, "", 1, 20)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})
}

func TestVenueReindex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testPolicy)

	_, err := NewVenueService(f.venues, nil).Reindex(ctx)
	assert.Error(t, err)

	index := &fakeIndex{}
	count, err := NewVenueService(f.venues, index).Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"venue-1", "venue-unpriced"}, index.indexed)
}
