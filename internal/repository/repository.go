package repository

import (
	"pitchup/internal/database"
)

type Repositories struct {
	Slots    *SlotRepository
	Bookings *BookingRepository
	Venues   *VenueRepository
	Users    *UserRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Slots:    NewSlotRepository(db),
		Bookings: NewBookingRepository(db),
		Venues:   NewVenueRepository(db),
		Users:    NewUserRepository(db),
	}
}
