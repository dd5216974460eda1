package repository

import (
	"context"
	"database/sql"
	"time"

	"pitchup/internal/database"
	"pitchup/internal/models"
)

const bookingColumns = `id, user_id, slot_id, payment_ref, amount, currency, status, created_at, updated_at, cancelled_at`

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateConfirmed inserts a confirmed booking unless one already exists for
// the same payment reference or a confirmed booking already holds the slot.
// The returned outcome tells the three cases apart.
func (r *BookingRepository) CreateConfirmed(ctx context.Context, booking *models.Booking) (models.InsertOutcome, error) {
	query := `
		INSERT INTO bookings (id, user_id, slot_id, payment_ref, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'confirmed')
		ON CONFLICT DO NOTHING
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		booking.ID,
		booking.UserID,
		booking.SlotID,
		booking.PaymentRef,
		booking.Amount,
		booking.Currency,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)

	switch {
	case err == nil:
		booking.Status = models.BookingConfirmed
		return models.InsertCreated, nil
	case err != sql.ErrNoRows && !database.IsUniqueViolation(err):
		return models.InsertCreated, err
	}

	// Nothing inserted, or a racing insert won the unique index: find out which row holds it.

	existing, err := r.GetByPaymentRef(ctx, booking.PaymentRef)
	if err != nil {
		return models.InsertSlotTaken, err
	}
	if existing != nil {
		*booking = *existing
		return models.InsertDuplicatePayment, nil
	}
	return models.InsertSlotTaken, nil
}

func (r *BookingRepository) GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_ref = $1`

	err := r.db.QueryRowContext(ctx, query, paymentRef).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.SlotID,
		&booking.PaymentRef,
		&booking.Amount,
		&booking.Currency,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

// GetByIDForUser loads a booking with its slot. A booking owned by someone
// else is reported exactly like a missing one.
func (r *BookingRepository) GetByIDForUser(ctx context.Context, id, userID string) (*models.Booking, error) {
	booking := &models.Booking{}
	slot := &models.Slot{}
	query := `
		SELECT b.id, b.user_id, b.slot_id, b.payment_ref, b.amount, b.currency, b.status,
		       b.created_at, b.updated_at, b.cancelled_at,
		       s.id, s.venue_id, s.slot_date, s.start_time, s.status, s.locked_until, s.holder_id,
		       s.created_at, s.updated_at
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.id = $1 AND b.user_id = $2`

	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.SlotID,
		&booking.PaymentRef,
		&booking.Amount,
		&booking.Currency,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
		&slot.ID,
		&slot.VenueID,
		&slot.Date,
		&slot.StartTime,
		&slot.Status,
		&slot.LockedUntil,
		&slot.HolderID,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	booking.Slot = slot
	return booking, nil
}

// MarkCancelled flips a confirmed booking to cancelled. False means the
// booking was not confirmed anymore.
func (r *BookingRepository) MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE bookings SET status = 'cancelled', cancelled_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'confirmed'`

	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]models.BookingDetails, error) {
	var bookings []models.BookingDetails
	query := `
		SELECT b.id, b.user_id, b.slot_id, b.payment_ref, b.amount, b.currency, b.status,
		       b.created_at, b.updated_at, b.cancelled_at,
		       s.start_time, v.id, COALESCE(v.name, '')
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		JOIN venues v ON v.id = s.venue_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.BookingDetails
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.SlotID,
			&booking.PaymentRef,
			&booking.Amount,
			&booking.Currency,
			&booking.Status,
			&booking.CreatedAt,
			&booking.UpdatedAt,
			&booking.CancelledAt,
			&booking.StartTime,
			&booking.VenueID,
			&booking.VenueName,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
