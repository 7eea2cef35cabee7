// Package notify delivers guest-facing reservation messages outside the
// transaction that produced them.
package notify

import (
	"context"
	"time"

	"github.com/Leganyst/hotel-reservations/internal/model"
)

type Kind string

const (
	KindConfirmation  Kind = "reservation_confirmed"
	KindCancellation  Kind = "reservation_cancelled"
	KindUpdate        Kind = "reservation_updated"
	KindStayCompleted Kind = "stay_completed"
)

// Message is a snapshot of the reservation at the time the event happened.
type Message struct {
	Kind          Kind      `json:"kind"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name,omitempty"`
	ReservationID string    `json:"reservation_id"`
	RoomNumber    string    `json:"room_number,omitempty"`
	CheckIn       string    `json:"check_in"`
	CheckOut      string    `json:"check_out"`
	GuestCount    int       `json:"guest_count"`
	TotalPrice    string    `json:"total_price"`
	Currency      string    `json:"currency,omitempty"`
	Status        string    `json:"status"`
	RefundCents   int64     `json:"refund_cents,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Sender performs one delivery attempt.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier accepts messages without blocking the caller. Delivery is best
// effort: failures are logged, never returned.
type Notifier interface {
	Notify(msg Message)
}

// Discard drops every message.
type Discard struct{}

func (Discard) Notify(Message) {}

// NewMessage snapshots a reservation for delivery. guest is required; room
// may be nil when the room number is not relevant to the message.
func NewMessage(kind Kind, res *model.Reservation, guest *model.Guest, room *model.Room, refundCents int64, at time.Time) Message {
	stay := res.Stay()
	msg := Message{
		Kind:          kind,
		Email:         guest.Email,
		FirstName:     guest.FirstName,
		ReservationID: res.ID.String(),
		CheckIn:       stay.Start.Format(time.DateOnly),
		CheckOut:      stay.End.Format(time.DateOnly),
		GuestCount:    res.GuestCount,
		TotalPrice:    res.TotalPrice.StringFixed(2),
		Currency:      res.Transaction.Currency,
		Status:        string(res.Status),
		RefundCents:   refundCents,
		OccurredAt:    at.UTC(),
	}
	if room != nil {
		msg.RoomNumber = room.RoomNumber
	}
	return msg
}
