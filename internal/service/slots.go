package service

import (
	"context"
	"fmt"
	"time"

	apperrors "pitchup/internal/errors"
	"pitchup/internal/logger"
	"pitchup/internal/metrics"
	"pitchup/internal/models"

	"github.com/google/uuid"
)

type SlotService struct {
	slots     SlotStore
	venues    VenueCatalog
	publisher EventPublisher
	now       func() time.Time
	newID     func() string
}

func NewSlotService(slots SlotStore, venues VenueCatalog, publisher EventPublisher) *SlotService {
	return &SlotService{
		slots:     slots,
		venues:    venues,
		publisher: publisher,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// List returns the venue's slots for date (all dates when zero) with the
// status a user would see right now.
func (s *SlotService) List(ctx context.Context, venueID string, date time.Time) ([]models.ListSlotsResponseItem, error) {
	venue, err := s.venues.GetByID(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	if venue == nil {
		return nil, fmt.Errorf("%w: venue %s", apperrors.ErrNotFound, venueID)
	}

	slots, err := s.slots.ListByVenue(ctx, venueID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get slots: %w", err)
	}

	now := s.now()
	result := make([]models.ListSlotsResponseItem, len(slots))
	for i, slot := range slots {
		result[i] = models.ListSlotsResponseItem{
			ID:        slot.ID,
			VenueID:   slot.VenueID,
			Date:      slot.Date.Format("2006-01-02"),
			StartTime: slot.StartTime.UTC().Format(time.RFC3339),
			Status:    slot.EffectiveStatus(now),
		}
	}

	return result, nil
}

// ReclaimExpiredLocks returns every elapsed pending lock to available.
func (s *SlotService) ReclaimExpiredLocks(ctx context.Context) (int64, error) {
	now := s.now()

	released, err := s.slots.ReleaseExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired locks: %w", err)
	}

	metrics.SlotsReclaimedTotal.Add(float64(released))
	if released == 0 {
		logger.WithContext(ctx).Debug("No expired slot locks")
		return 0, nil
	}

	logger.WithContext(ctx).Info("Released expired slot locks", "released", released)

	event := models.SlotsReclaimedEvent{Released: released, Timestamp: now}
	if err := s.publisher.PublishAsync(models.EventSlotsReclaimed, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish slots reclaimed event",
			"error", err, "event_type", models.EventSlotsReclaimed)
	}

	return released, nil
}

// Seed makes sure every venue has a slot at each of times (HH:MM, UTC) for
// the next days days. Existing slots and start times already in the past are
// skipped. It returns the number of slots created.
func (s *SlotService) Seed(ctx context.Context, days int, times []string) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w: days must be positive", apperrors.ErrBadRequest)
	}

	offsets, err := parseDailyTimes(times)
	if err != nil {
		return 0, err
	}

	venues, err := s.venues.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list venues: %w", err)
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var slots []models.Slot
	for _, venue := range venues {
		for d := 0; d < days; d++ {
			date := today.AddDate(0, 0, d)
			for _, offset := range offsets {
				start := date.Add(offset)
				if start.Before(now) {
					continue
				}
				slots = append(slots, models.Slot{
					ID:        s.newID(),
					VenueID:   venue.ID,
					Date:      date,
					StartTime: start,
					Status:    models.SlotAvailable,
				})
			}
		}
	}

	inserted, err := s.slots.InsertSeed(ctx, slots)
	if err != nil {
		return 0, fmt.Errorf("failed to insert slots: %w", err)
	}

	metrics.SlotsSeededTotal.Add(float64(inserted))
	logger.WithContext(ctx).Info("Seeded slots",
		"venues", len(venues), "days", days, "candidates", len(slots), "inserted", inserted)

	return inserted, nil
}

func parseDailyTimes(times []string) ([]time.Duration, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no slot times configured", apperrors.ErrBadRequest)
	}

	offsets := make([]time.Duration, 0, len(times))
	for _, t := range times {
		parsed, err := time.Parse("15:04", t)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid slot time %q", apperrors.ErrBadRequest, t)
		}
		offsets = append(offsets, time.Duration(parsed.Hour())*time.Hour+time.Duration(parsed.Minute())*time.Minute)
	}
	return offsets, nil
}
