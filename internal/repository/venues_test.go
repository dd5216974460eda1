package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func venueRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "sport", "city", "price_per_hour", "created_at", "updated_at"})
}

func TestVenueRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(sqlPattern("FROM venues WHERE id = $1")).
		WithArgs("v1").
		WillReturnRows(venueRows().AddRow("v1", "Riverside 5s", "football", nil, int64(4500), now, now))
	mock.ExpectQuery(sqlPattern("FROM venues WHERE id = $1")).
		WithArgs("v2").
		WillReturnRows(venueRows().AddRow("v2", nil, "padel", "Leeds", nil, now, now))

	repo := NewVenueRepository(db)
	venue, err := repo.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	require.NotNil(t, venue.Name)
	require.NotNil(t, venue.PricePerHour)
	assert.Equal(t, int64(4500), *venue.PricePerHour)
	assert.Nil(t, venue.City)

	venue, err = repo.GetByID(context.Background(), "v2")
	require.NoError(t, err)
	assert.Nil(t, venue.Name)
	assert.Nil(t, venue.PricePerHour)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(sqlPattern(
		"WHERE 1=1 AND (name ILIKE $1 OR sport ILIKE $1 OR city ILIKE $1) AND (name ILIKE $2 OR sport ILIKE $2 OR city ILIKE $2)",
		"LIMIT $3 OFFSET $4",
	)).
		WithArgs("%padel%", `%50\%%`, 10, 10).
		WillReturnRows(venueRows().AddRow("v2", "Court", "padel", "Leeds", int64(3000), now, now))

	venues, err := NewVenueRepository(db).List(context.Background(), "padel 50%", 2, 10)
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "padel", venues[0].Sport)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueRepository_ListAll(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(sqlPattern("FROM venues WHERE 1=1 ORDER BY name NULLS LAST, id")).
		WillReturnRows(venueRows())

	venues, err := NewVenueRepository(db).ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, venues)
	assert.NoError(t, mock.ExpectationsWereMet())
}
