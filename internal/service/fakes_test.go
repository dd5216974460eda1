package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "pitchup/internal/errors"
	"pitchup/internal/external"
	"pitchup/internal/models"
)

// memStore is an in-memory SlotStore and BookingStore. Every method runs
// under one mutex so conditional updates behave like single statements.
type memStore struct {
	mu       sync.Mutex
	slots    map[string]*models.Slot
	bookings map[string]*models.Booking

	afterGet       func()
	insertErr      error
	markBookedErr  error
	releaseErr     error
	markBookedRuns int

	// ctxCheck makes writes fail on a cancelled context, as a database driver does.
	ctxCheck bool
}

func newMemStore() *memStore {
	return &memStore{
		slots:    map[string]*models.Slot{},
		bookings: map[string]*models.Booking{},
	}
}

func (m *memStore) addSlot(slot models.Slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot.ID] = &slot
}

func (m *memStore) slot(id string) models.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.slots[id]
}

func (m *memStore) confirmedFor(slotID string) []models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.SlotID == slotID && b.Status == models.BookingConfirmed {
			out = append(out, *b)
		}
	}
	return out
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memStore) GetByID(_ context.Context, id string) (*models.Slot, error) {
	m.mu.Lock()
	s, ok := m.slots[id]
	var out *models.Slot
	if ok {
		copied := *s
		out = &copied
	}
	m.mu.Unlock()

	if m.afterGet != nil {
		m.afterGet()
	}
	return out, nil
}

func (m *memStore) AcquireLock(_ context.Context, slotID, userID string, until, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[slotID]
	if !ok {
		return false, nil
	}
	free := s.Status == models.SlotAvailable ||
		(s.Status == models.SlotPending && s.LockedUntil != nil && s.LockedUntil.Before(now))
	if !free {
		return false, nil
	}

	s.Status = models.SlotPending
	s.LockedUntil = &until
	holder := userID
	s.HolderID = &holder
	return true, nil
}

func (m *memStore) MarkBooked(ctx context.Context, slotID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markBookedRuns++

	if m.ctxCheck && ctx.Err() != nil {
		return ctx.Err()
	}
	if m.markBookedErr != nil {
		return m.markBookedErr
	}
	if s, ok := m.slots[slotID]; ok {
		s.Status = models.SlotBooked
		s.LockedUntil = nil
		holder := userID
		s.HolderID = &holder
	}
	return nil
}

func (m *memStore) ReleaseExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var released int64
	for _, s := range m.slots {
		if s.Status == models.SlotPending && s.LockedUntil != nil && s.LockedUntil.Before(now) {
			s.Status = models.SlotAvailable
			s.LockedUntil = nil
			s.HolderID = nil
			released++
		}
	}
	return released, nil
}

func (m *memStore) Release(_ context.Context, slotID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.releaseErr != nil {
		return false, m.releaseErr
	}
	s, ok := m.slots[slotID]
	if !ok || s.Status != models.SlotBooked {
		return false, nil
	}
	s.Status = models.SlotAvailable
	s.LockedUntil = nil
	s.HolderID = nil
	return true, nil
}

func (m *memStore) ListByVenue(_ context.Context, venueID string, date time.Time) ([]models.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Slot
	for _, s := range m.slots {
		if s.VenueID != venueID {
			continue
		}
		if !date.IsZero() && !s.Date.Equal(date) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memStore) InsertSeed(_ context.Context, slots []models.Slot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var inserted int64
	for _, candidate := range slots {
		exists := false
		for _, s := range m.slots {
			if s.VenueID == candidate.VenueID && s.StartTime.Equal(candidate.StartTime) {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		slot := candidate
		m.slots[slot.ID] = &slot
		inserted++
	}
	return inserted, nil
}

func (m *memStore) CreateConfirmed(ctx context.Context, booking *models.Booking) (models.InsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctxCheck && ctx.Err() != nil {
		return models.InsertCreated, ctx.Err()
	}
	if m.insertErr != nil {
		return models.InsertCreated, m.insertErr
	}
	for _, b := range m.bookings {
		if b.PaymentRef == booking.PaymentRef {
			*booking = *b
			return models.InsertDuplicatePayment, nil
		}
	}
	for _, b := range m.bookings {
		if b.SlotID == booking.SlotID && b.Status == models.BookingConfirmed {
			return models.InsertSlotTaken, nil
		}
	}

	stored := *booking
	stored.Status = models.BookingConfirmed
	m.bookings[stored.ID] = &stored
	booking.Status = models.BookingConfirmed
	return models.InsertCreated, nil
}

func (m *memStore) GetByIDForUser(_ context.Context, id, userID string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok || b.UserID != userID {
		return nil, nil
	}
	out := *b
	if s, ok := m.slots[b.SlotID]; ok {
		slot := *s
		out.Slot = &slot
	}
	return &out, nil
}

func (m *memStore) MarkCancelled(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok || b.Status != models.BookingConfirmed {
		return false, nil
	}
	b.Status = models.BookingCancelled
	b.CancelledAt = &at
	return true, nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]models.BookingDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.BookingDetails
	for _, b := range m.bookings {
		if b.UserID != userID {
			continue
		}
		details := models.BookingDetails{Booking: *b}
		if s, ok := m.slots[b.SlotID]; ok {
			details.StartTime = s.StartTime
			details.VenueID = s.VenueID
		}
		out = append(out, details)
	}
	return out, nil
}

type memVenues struct {
	venues map[string]models.Venue
}

func (v *memVenues) GetByID(_ context.Context, id string) (*models.Venue, error) {
	venue, ok := v.venues[id]
	if !ok {
		return nil, nil
	}
	return &venue, nil
}

func (v *memVenues) List(_ context.Context, query string, _, _ int) ([]models.Venue, error) {
	all, _ := v.ListAll(context.Background())
	if query == "" {
		return all, nil
	}
	var out []models.Venue
	for _, venue := range all {
		if venue.Sport == query {
			out = append(out, venue)
		}
	}
	return out, nil
}

func (v *memVenues) ListAll(context.Context) ([]models.Venue, error) {
	out := make([]models.Venue, 0, len(v.venues))
	for _, venue := range v.venues {
		out = append(out, venue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeGateway accepts the signature "valid" and decodes the payload as a
// PaymentEvent.
type fakeGateway struct {
	mu         sync.Mutex
	sessions   []external.SessionRequest
	sessionErr error
}

func (g *fakeGateway) CreateSession(_ context.Context, req external.SessionRequest) (*external.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	g.sessions = append(g.sessions, req)
	id := fmt.Sprintf("cs_test_%d", len(g.sessions))
	return &external.Session{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (g *fakeGateway) sessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

func (g *fakeGateway) VerifyAndParse(payload []byte, signature string) (*external.PaymentEvent, error) {
	if signature != "valid" {
		return nil, fmt.Errorf("%w: signature mismatch", apperrors.ErrInvalidSignature)
	}
	var event external.PaymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedEvent, err)
	}
	return &event, nil
}

func completedPayload(sessionID, slotID, userID string) []byte {
	data, _ := json.Marshal(external.PaymentEvent{
		ID:            "evt_" + sessionID,
		Type:          external.EventCheckoutCompleted,
		SessionID:     sessionID,
		SlotID:        slotID,
		UserID:        userID,
		Amount:        4500,
		Currency:      "eur",
		CustomerEmail: userID + "@pitchup.test",
	})
	return data
}

type published struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *fakePublisher) PublishAsync(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{subject: subject, data: data})
	return nil
}

func (p *fakePublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.subject
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errStoreDown = errors.New("connection reset by peer")

// fixture wires every service over the same fakes.
type fixture struct {
	store     *memStore
	venues    *memVenues
	gateway   *fakeGateway
	publisher *fakePublisher
	clock     *fakeClock
	bookings  *BookingService
	payments  *PaymentService
	slots     *SlotService
}

var testPolicy = Policy{
	LockDuration:  10 * time.Minute,
	SessionExpiry: 30 * time.Minute,
	Currency:      "eur",
}

func newFixture(policy Policy) *fixture {
	name := "Riverside 5s"
	price := int64(4500)

	f := &fixture{
		store: newMemStore(),
		venues: &memVenues{venues: map[string]models.Venue{
			"venue-1":        {ID: "venue-1", Name: &name, Sport: "football", PricePerHour: &price},
			"venue-unpriced": {ID: "venue-unpriced", Name: &name, Sport: "padel"},
		}},
		gateway:   &fakeGateway{},
		publisher: &fakePublisher{},
		clock:     &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
	}

	f.bookings = NewBookingService(f.store, f.store, f.venues, f.gateway, f.publisher, policy)
	f.bookings.now = f.clock.Now
	f.payments = NewPaymentService(f.store, f.store, f.gateway, f.publisher)
	f.payments.now = f.clock.Now
	f.slots = NewSlotService(f.store, f.venues, f.publisher)
	f.slots.now = f.clock.Now

	return f
}

// addSlot stores an available venue-1 slot starting after the given delay.
func (f *fixture) addSlot(id string, after time.Duration) {
	start := f.clock.Now().Add(after)
	f.store.addSlot(models.Slot{
		ID:        id,
		VenueID:   "venue-1",
		Date:      time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		StartTime: start,
		Status:    models.SlotAvailable,
	})
}
