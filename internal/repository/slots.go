package repository

import (
	"context"
	"database/sql"
	"time"

	"pitchup/internal/database"
	"pitchup/internal/models"
)

const slotColumns = `id, venue_id, slot_date, start_time, status, locked_until, holder_id, created_at, updated_at`

type SlotRepository struct {
	db *database.DB
}

func NewSlotRepository(db *database.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func scanSlot(row interface{ Scan(...any) error }, slot *models.Slot) error {
	return row.Scan(
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
}

func (r *SlotRepository) GetByID(ctx context.Context, id string) (*models.Slot, error) {
	slot := &models.Slot{}
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	err := scanSlot(r.db.QueryRowContext(ctx, query, id), slot)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return slot, err
}

// AcquireLock moves the slot to pending for userID until the given time, but
// only while it is still free at now. The predicate and the write are one
// statement, so of two concurrent callers at most one sees an affected row.
func (r *SlotRepository) AcquireLock(ctx context.Context, slotID, userID string, until, now time.Time) (bool, error) {
	query := `
		UPDATE slots SET status = 'pending', locked_until = $1, holder_id = $2, updated_at = NOW()
		WHERE id = $3 AND (status = 'available' OR (status = 'pending' AND locked_until < $4))`

	res, err := r.db.ExecContext(ctx, query, until, userID, slotID, now)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkBooked finalizes the slot for userID whatever its current status is.
func (r *SlotRepository) MarkBooked(ctx context.Context, slotID, userID string) error {
	query := `
		UPDATE slots SET status = 'booked', locked_until = NULL, holder_id = $1, updated_at = NOW()
		WHERE id = $2`

	return database.WithRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, query, userID, slotID)
		return err
	})
}

// ReleaseExpired returns every pending slot whose lock elapsed before now to
// available. Booked slots never match.
func (r *SlotRepository) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE slots SET status = 'available', locked_until = NULL, holder_id = NULL, updated_at = NOW()
		WHERE status = 'pending' AND locked_until < $1`

	var released int64
	err := database.WithRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, query, now)
		if err != nil {
			return err
		}
		released, err = res.RowsAffected()
		return err
	})

	return released, err
}

// Release makes a booked slot available again. False means the slot was not booked.
func (r *SlotRepository) Release(ctx context.Context, slotID string) (bool, error) {
	query := `
		UPDATE slots SET status = 'available', locked_until = NULL, holder_id = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'booked'`

	res, err := r.db.ExecContext(ctx, query, slotID)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListByVenue returns the venue's slots ordered by start time. A zero date
// lists every slot.
func (r *SlotRepository) ListByVenue(ctx context.Context, venueID string, date time.Time) ([]models.Slot, error) {
	var slots []models.Slot
	args := []interface{}{venueID}

	query := `SELECT ` + slotColumns + ` FROM slots WHERE venue_id = $1`
	if !date.IsZero() {
		query += ` AND slot_date = $2`
		args = append(args, date.Format("2006-01-02"))
	}
	query += ` ORDER BY start_time`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var slot models.Slot
		if err := scanSlot(rows, &slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// InsertSeed creates missing slots and skips the ones that already exist for
// the same venue and start time. It returns how many rows were inserted.
func (r *SlotRepository) InsertSeed(ctx context.Context, slots []models.Slot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO slots (id, venue_id, slot_date, start_time, status)
		VALUES ($1, $2, $3, $4, 'available')
		ON CONFLICT (venue_id, start_time) DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, slot := range slots {
		res, err := stmt.ExecContext(ctx, slot.ID, slot.VenueID, slot.Date.Format("2006-01-02"), slot.StartTime)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}
