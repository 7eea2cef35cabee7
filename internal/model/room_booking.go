package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
)

// room_bookings: the room calendar. One row per booked interval
// [StartDate, EndDate), tagged with the reservation that owns it.
type RoomBooking struct {
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`

	RoomID        uuid.UUID `gorm:"type:char(36);not null;index:idx_room_bookings_room_dates,priority:1"`
	ReservationID uuid.UUID `gorm:"type:char(36);not null;index"`

	StartDate datatypes.Date `gorm:"not null;index:idx_room_bookings_room_dates,priority:2"`
	EndDate   datatypes.Date `gorm:"not null;index:idx_room_bookings_room_dates,priority:3"`

	CreatedAt time.Time
}

func (b *RoomBooking) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

func (b RoomBooking) Range() calendar.DateRange {
	return calendar.DateRange{
		Start: calendar.Day(time.Time(b.StartDate)),
		End:   calendar.Day(time.Time(b.EndDate)),
	}
}

// Date converts a day to the column type used for stay dates.
func Date(t time.Time) datatypes.Date {
	return datatypes.Date(calendar.Day(t))
}
