package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit event type.
type EventType string

const (
	EventTypeReservationCreated    EventType = "reservation_created"
	EventTypeReservationUpdated    EventType = "reservation_updated"
	EventTypeReservationCancelled  EventType = "reservation_cancelled"
	EventTypeReservationRefunded   EventType = "reservation_refunded"
	EventTypeReservationCheckedIn  EventType = "reservation_checked_in"
	EventTypeReservationCheckedOut EventType = "reservation_checked_out"
	EventTypeReservationCompleted  EventType = "reservation_completed"
	EventTypePaymentSuperseded     EventType = "payment_superseded"
	EventTypeRefundFailed          EventType = "refund_failed"
	EventTypeOccupancyCorrected    EventType = "occupancy_corrected"
)

// events: append-only audit log
type Event struct {
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	GuestID       *uuid.UUID `gorm:"type:char(36);index"`
	ReservationID *uuid.UUID `gorm:"type:char(36);index"`
	RoomID        *uuid.UUID `gorm:"type:char(36);index"`

	Details datatypes.JSON
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// NewReservationEvent builds an event about r with arbitrary details.
func NewReservationEvent(eventType EventType, r *Reservation, details any) *Event {
	e := &Event{EventType: eventType}
	if r != nil {
		guestID, reservationID, roomID := r.GuestID, r.ID, r.RoomID
		e.GuestID = &guestID
		e.ReservationID = &reservationID
		e.RoomID = &roomID
	}
	e.Details = jsonDetails(details)
	return e
}

// NewRoomEvent builds an event about a room only.
func NewRoomEvent(eventType EventType, roomID uuid.UUID, details any) *Event {
	return &Event{EventType: eventType, RoomID: &roomID, Details: jsonDetails(details)}
}

func jsonDetails(details any) datatypes.JSON {
	if details == nil {
		return nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"marshal_error": err.Error()})
	}
	return datatypes.JSON(raw)
}
