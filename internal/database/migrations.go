package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createExtensions,
		createUsersTable,
		createVenuesTable,
		createSlotsTable,
		createSlotsReclaimIndex,
		createBookingsTable,
		createConfirmedBookingPerSlotIndex,
		createBookingsUserIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createExtensions = `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    email VARCHAR(255) UNIQUE NOT NULL,
    full_name VARCHAR(200),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createVenuesTable = `
CREATE TABLE IF NOT EXISTS venues (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    name VARCHAR(255),
    sport VARCHAR(50) NOT NULL DEFAULT 'football',
    city VARCHAR(100),
    price_per_hour BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSlotsTable = `
CREATE TABLE IF NOT EXISTS slots (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    venue_id UUID NOT NULL REFERENCES venues(id) ON DELETE RESTRICT,
    slot_date DATE NOT NULL,
    start_time TIMESTAMPTZ NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'available',
    locked_until TIMESTAMPTZ,
    holder_id UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(venue_id, start_time),
    CHECK (status IN ('available', 'pending', 'booked')),
    CHECK (status <> 'pending' OR locked_until IS NOT NULL),
    CHECK (status <> 'booked' OR (locked_until IS NULL AND holder_id IS NOT NULL))
);`

const createSlotsReclaimIndex = `
CREATE INDEX IF NOT EXISTS slots_pending_locked_until_idx
ON slots (locked_until) WHERE status = 'pending';`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    user_id UUID NOT NULL,
    slot_id UUID NOT NULL REFERENCES slots(id) ON DELETE RESTRICT,
    payment_ref VARCHAR(255) NOT NULL UNIQUE,
    amount BIGINT NOT NULL DEFAULT 0,
    currency VARCHAR(3) NOT NULL DEFAULT 'eur',
    status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    cancelled_at TIMESTAMPTZ,

    CHECK (status IN ('confirmed', 'cancelled'))
);`

// At most one confirmed booking may reference a slot.
const createConfirmedBookingPerSlotIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS bookings_one_confirmed_per_slot_idx
ON bookings (slot_id) WHERE status = 'confirmed';`

const createBookingsUserIndex = `
CREATE INDEX IF NOT EXISTS bookings_user_id_idx ON bookings (user_id, created_at DESC);`
