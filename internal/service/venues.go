package service

import (
	"context"
	"fmt"
	"strings"

	"pitchup/internal/logger"
	"pitchup/internal/models"
)

type VenueService struct {
	venues VenueCatalog
	index  VenueIndex
}

func NewVenueService(venues VenueCatalog, index VenueIndex) *VenueService {
	return &VenueService{venues: venues, index: index}
}

// List searches the venue index when there is a query and an index, and the
// database otherwise. An index failure falls back to the database.
func (s *VenueService) List(ctx context.Context, query string, page, pageSize int) ([]models.ListVenuesResponseItem, error) {
	query = strings.TrimSpace(query)

	var venues []models.Venue
	var err error
	if query != "" && s.index != nil {
		venues, err = s.index.SearchVenues(ctx, query, page, pageSize)
		if err != nil {
			logger.WithContext(ctx).Warn("Venue search failed, falling back to database", "query", query, "error", err)
			venues, err = s.venues.List(ctx, query, page, pageSize)
		}
	} else {
		venues, err = s.venues.List(ctx, query, page, pageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}

	result := make([]models.ListVenuesResponseItem, len(venues))
	for i, venue := range venues {
		item := models.ListVenuesResponseItem{
			ID:    venue.ID,
			Sport: venue.Sport,
		}
		if venue.Name != nil {
			item.Name = *venue.Name
		}
		if venue.City != nil {
			item.City = *venue.City
		}
		if venue.PricePerHour != nil {
			item.PricePerHour = models.FormatAmount(*venue.PricePerHour)
		}
		result[i] = item
	}

	return result, nil
}

// Reindex pushes every venue into the search index.
func (s *VenueService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, fmt.Errorf("venue search index is not configured")
	}

	venues, err := s.venues.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list venues: %w", err)
	}

	for i := range venues {
		if err := s.index.IndexVenue(ctx, &venues[i]); err != nil {
			return i, fmt.Errorf("failed to index venue %s: %w", venues[i].ID, err)
		}
	}

	logger.WithContext(ctx).Info("Reindexed venues", "count", len(venues))
	return len(venues), nil
}
