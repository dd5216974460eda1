package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pitchup/internal/database"
	"pitchup/internal/models"
)

const venueColumns = `id, name, sport, city, price_per_hour, created_at, updated_at`

type VenueRepository struct {
	db *database.DB
}

func NewVenueRepository(db *database.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

func scanVenue(row interface{ Scan(...any) error }, venue *models.Venue) error {
	return row.Scan(
		&venue.ID,
		&venue.Name,
		&venue.Sport,
		&venue.City,
		&venue.PricePerHour,
		&venue.CreatedAt,
		&venue.UpdatedAt,
	)
}

func (r *VenueRepository) GetByID(ctx context.Context, id string) (*models.Venue, error) {
	venue := &models.Venue{}
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1`

	err := scanVenue(r.db.QueryRowContext(ctx, query, id), venue)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return venue, err
}

// List returns venues matching every word of query against name, sport or
// city. An empty query lists everything.
func (r *VenueRepository) List(ctx context.Context, query string, page, pageSize int) ([]models.Venue, error) {
	var venues []models.Venue
	var args []interface{}
	argIndex := 1

	sqlQuery := `SELECT ` + venueColumns + ` FROM venues WHERE 1=1`

	for _, word := range strings.Fields(query) {
		sqlQuery += fmt.Sprintf(" AND (name ILIKE $%d OR sport ILIKE $%d OR city ILIKE $%d)", argIndex, argIndex, argIndex)
		args = append(args, "%"+escapeLike(word)+"%")
		argIndex++
	}

	sqlQuery += " ORDER BY name NULLS LAST, id"

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		sqlQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var venue models.Venue
		if err := scanVenue(rows, &venue); err != nil {
			return nil, err
		}
		venues = append(venues, venue)
	}

	return venues, rows.Err()
}

// ListAll is List without filters or pagination, used by seeding and reindexing.
func (r *VenueRepository) ListAll(ctx context.Context) ([]models.Venue, error) {
	return r.List(ctx, "", 0, 0)
}

// Create inserts a venue and fills its generated fields.
func (r *VenueRepository) Create(ctx context.Context, venue *models.Venue) error {
	query := `
		INSERT INTO venues (name, sport, city, price_per_hour)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		venue.Name,
		venue.Sport,
		venue.City,
		venue.PricePerHour,
	).Scan(&venue.ID, &venue.CreatedAt, &venue.UpdatedAt)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
