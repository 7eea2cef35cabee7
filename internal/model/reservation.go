package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
)

type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCheckedIn ReservationStatus = "CHECKED_IN"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusRefunded  ReservationStatus = "REFUNDED"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusConfirmed: {
		ReservationStatusCheckedIn,
		ReservationStatusCancelled,
		ReservationStatusRefunded,
		ReservationStatusCompleted, // completion sweep
	},
	ReservationStatusCheckedIn: {ReservationStatusCompleted},
}

// CanTransition reports whether a reservation may move from one status to another.
func CanTransition(from, to ReservationStatus) bool {
	for _, s := range reservationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal statuses never change again.
func (s ReservationStatus) Terminal() bool {
	return len(reservationTransitions[s]) == 0
}

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type TransactionStatus string

const (
	TransactionStatusSucceeded         TransactionStatus = "SUCCEEDED"
	TransactionStatusPartiallyRefunded TransactionStatus = "PARTIALLY_REFUNDED"
	TransactionStatusRefunded          TransactionStatus = "REFUNDED"
)

// PaymentTransaction is the snapshot of the capture backing a reservation.
// AmountCents is the net amount still held after partial refunds.
type PaymentTransaction struct {
	Provider    string            `gorm:"type:varchar(32)"`
	Reference   string            `gorm:"type:varchar(255);index"`
	AmountCents int64             `gorm:"not null;default:0"`
	Currency    string            `gorm:"type:varchar(8)"`
	Status      TransactionStatus `gorm:"type:varchar(32)"`
	PaidAt      *time.Time

	RefundReference string `gorm:"type:varchar(255)"`
	RefundedCents   int64  `gorm:"not null;default:0"`
	RefundedAt      *time.Time
}

// Exists reports whether a capture was ever attached.
func (t PaymentTransaction) Exists() bool {
	return t.Reference != ""
}

// reservations
type Reservation struct {
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`

	GuestID uuid.UUID `gorm:"type:char(36);not null;index"`
	RoomID  uuid.UUID `gorm:"type:char(36);not null;index"`

	CheckIn  datatypes.Date `gorm:"not null;index"`
	CheckOut datatypes.Date `gorm:"not null;index"`

	GuestCount int             `gorm:"not null"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Status        ReservationStatus `gorm:"type:varchar(32);not null;index"`
	PaymentStatus PaymentStatus     `gorm:"type:varchar(32);not null"`

	Transaction PaymentTransaction `gorm:"embedded;embeddedPrefix:txn_"`

	CheckedInAt  *time.Time
	CheckedOutAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Guest *Guest `gorm:"foreignKey:GuestID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Room  *Room  `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (r *Reservation) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Stay returns the booked interval [CheckIn, CheckOut).
func (r Reservation) Stay() calendar.DateRange {
	return calendar.DateRange{
		Start: calendar.Day(time.Time(r.CheckIn)),
		End:   calendar.Day(time.Time(r.CheckOut)),
	}
}

func (r *Reservation) SetStay(stay calendar.DateRange) {
	r.CheckIn = Date(stay.Start)
	r.CheckOut = Date(stay.End)
}
