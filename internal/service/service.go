package service

import (
	"context"
	"time"

	"pitchup/internal/config"
	"pitchup/internal/external"
	"pitchup/internal/models"
	"pitchup/internal/repository"
)

// SlotStore persists slots. AcquireLock, Release and ReleaseExpired must be
// single conditional statements.
type SlotStore interface {
	GetByID(ctx context.Context, id string) (*models.Slot, error)
	AcquireLock(ctx context.Context, slotID, userID string, until, now time.Time) (bool, error)
	MarkBooked(ctx context.Context, slotID, userID string) error
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)
	Release(ctx context.Context, slotID string) (bool, error)
	ListByVenue(ctx context.Context, venueID string, date time.Time) ([]models.Slot, error)
	InsertSeed(ctx context.Context, slots []models.Slot) (int64, error)
}

type BookingStore interface {
	CreateConfirmed(ctx context.Context, booking *models.Booking) (models.InsertOutcome, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*models.Booking, error)
	MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.BookingDetails, error)
}

type VenueCatalog interface {
	GetByID(ctx context.Context, id string) (*models.Venue, error)
	List(ctx context.Context, query string, page, pageSize int) ([]models.Venue, error)
	ListAll(ctx context.Context) ([]models.Venue, error)
}

// VenueIndex is the optional full-text venue index.
type VenueIndex interface {
	SearchVenues(ctx context.Context, query string, page, pageSize int) ([]models.Venue, error)
	IndexVenue(ctx context.Context, venue *models.Venue) error
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req external.SessionRequest) (*external.Session, error)
	VerifyAndParse(payload []byte, signature string) (*external.PaymentEvent, error)
}

type EventPublisher interface {
	PublishAsync(subject string, data interface{}) error
}

type noopPublisher struct{}

func (noopPublisher) PublishAsync(string, interface{}) error { return nil }

// Policy holds the reservation timing rules.
type Policy struct {
	LockDuration       time.Duration
	SessionExpiry      time.Duration
	CancellationCutoff time.Duration
	Currency           string
}

func NewPolicy(cfg config.BookingConfig, currency string) Policy {
	return Policy{
		LockDuration:       cfg.LockDuration,
		SessionExpiry:      cfg.SessionExpiry,
		CancellationCutoff: cfg.CancellationCutoff,
		Currency:           currency,
	}
}

type Services struct {
	Bookings *BookingService
	Payments *PaymentService
	Slots    *SlotService
	Venues   *VenueService
}

// NewServices wires the services over the SQL repositories. venues may wrap
// repos.Venues with a cache, index may be nil and publisher may be nil.
func NewServices(repos *repository.Repositories, venues VenueCatalog, index VenueIndex, payments PaymentGateway, publisher EventPublisher, policy Policy) *Services {
	if venues == nil {
		venues = repos.Venues
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}

	return &Services{
		Bookings: NewBookingService(repos.Slots, repos.Bookings, venues, payments, publisher, policy),
		Payments: NewPaymentService(repos.Slots, repos.Bookings, payments, publisher),
		Slots:    NewSlotService(repos.Slots, venues, publisher),
		Venues:   NewVenueService(venues, index),
	}
}
