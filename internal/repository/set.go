package repository

import (
	"time"

	"gorm.io/gorm"
)

// Set groups the repositories a unit of work touches so a service can
// rebind all of them to one transaction.
type Set struct {
	Rooms        RoomRepository
	RoomTypes    RoomTypeRepository
	Guests       GuestRepository
	Reservations ReservationRepository
	Calendar     CalendarRepository
	Events       EventRepository
}

// NewGormSet builds the GORM repositories. Room types are served through an
// in-process cache when cacheTTL > 0.
func NewGormSet(db *gorm.DB, cacheSize int, cacheTTL time.Duration) Set {
	var roomTypes RoomTypeRepository = NewGormRoomTypeRepository(db)
	if cacheTTL > 0 {
		roomTypes = NewCachedRoomTypeRepository(roomTypes, cacheSize, cacheTTL)
	}
	return Set{
		Rooms:        NewGormRoomRepository(db),
		RoomTypes:    roomTypes,
		Guests:       NewGormGuestRepository(db),
		Reservations: NewGormReservationRepository(db),
		Calendar:     NewGormCalendarRepository(db),
		Events:       NewGormEventRepository(db),
	}
}

func (s Set) WithTx(tx *gorm.DB) Set {
	return Set{
		Rooms:        s.Rooms.WithTx(tx),
		RoomTypes:    s.RoomTypes.WithTx(tx),
		Guests:       s.Guests.WithTx(tx),
		Reservations: s.Reservations.WithTx(tx),
		Calendar:     s.Calendar.WithTx(tx),
		Events:       s.Events.WithTx(tx),
	}
}
