package consumers

import (
	"context"
	"log/slog"

	"pitchup/internal/cache"
	"pitchup/internal/config"
	"pitchup/internal/database"
	"pitchup/internal/external"
	"pitchup/internal/messaging"
	"pitchup/internal/models"
	"pitchup/internal/repository"
	"pitchup/internal/service"

	"github.com/nats-io/stan.go"
)

const queueGroup = "consumers"

type ConsumerService struct {
	db            *database.DB
	nats          *messaging.NATSClient
	valkey        *cache.ValkeyClient
	repos         *repository.Repositories
	handlers      *Handlers
	slots         *service.SlotService
	subscriptions []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Create repositories
	repos := repository.NewRepositories(db)

	cs := &ConsumerService{
		db:    db,
		nats:  natsClient,
		repos: repos,
	}

	var venues service.VenueCatalog = repos.Venues
	if valkeyClient, err := cache.NewValkeyClient(cfg.Cache); err != nil {
		slog.Warn("Valkey unavailable, venue cache disabled", "error", err)
	} else {
		cs.valkey = valkeyClient
		venues = cache.NewCachedVenues(repos.Venues, valkeyClient, cfg.Cache.VenueTTL)
	}

	mailer := external.NewMailer(cfg.Email)
	if !mailer.Enabled() {
		slog.Warn("RESEND_API_KEY not set, confirmation emails are only logged")
	}

	cs.handlers = NewHandlers(repos.Slots, venues, repos.Users, mailer)
	cs.slots = service.NewSlotService(repos.Slots, venues, natsClient)

	return cs, nil
}

// Slots is the slot service the periodic jobs run against.
func (cs *ConsumerService) Slots() *service.SlotService {
	return cs.slots
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	subscriptions := []struct {
		subject string
		handler stan.MsgHandler
	}{
		{models.EventBookingConfirmed, cs.handlers.HandleBookingConfirmed},
		{models.EventBookingCancelled, cs.handlers.HandleBookingCancelled},
		{models.EventPaymentOrphaned, cs.handlers.HandlePaymentOrphaned},
		{models.EventSlotsReclaimed, cs.handlers.HandleSlotsReclaimed},
	}

	for _, s := range subscriptions {
		sub, err := cs.nats.SubscribeQueue(s.subject, queueGroup, s.handler)
		if err != nil {
			return err
		}
		cs.subscriptions = append(cs.subscriptions, sub)
	}

	slog.Info("All consumers started successfully", "subscriptions", len(cs.subscriptions))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	// Close keeps the durable subscriptions for the next start.
	for _, sub := range cs.subscriptions {
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.valkey != nil {
		if err := cs.valkey.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
