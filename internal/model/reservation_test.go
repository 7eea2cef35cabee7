package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to ReservationStatus }{
		{ReservationStatusConfirmed, ReservationStatusCheckedIn},
		{ReservationStatusConfirmed, ReservationStatusCancelled},
		{ReservationStatusConfirmed, ReservationStatusRefunded},
		{ReservationStatusConfirmed, ReservationStatusCompleted},
		{ReservationStatusCheckedIn, ReservationStatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to ReservationStatus }{
		{ReservationStatusCheckedIn, ReservationStatusCancelled},
		{ReservationStatusCheckedIn, ReservationStatusRefunded},
		{ReservationStatusCancelled, ReservationStatusConfirmed},
		{ReservationStatusRefunded, ReservationStatusCheckedIn},
		{ReservationStatusCompleted, ReservationStatusCheckedIn},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}

	for _, s := range []ReservationStatus{ReservationStatusCancelled, ReservationStatusRefunded, ReservationStatusCompleted} {
		if !s.Terminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
	if ReservationStatusCheckedIn.Terminal() {
		t.Fatalf("CHECKED_IN must not be terminal")
	}
}

func TestReservation_RoundTripSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	roomType := &RoomType{Name: "Double", PricePerNight: decimal.RequireFromString("112.50"), Capacity: 2, NumBeds: 1}
	if err := db.Create(roomType).Error; err != nil {
		t.Fatalf("seed room type: %v", err)
	}
	room := &Room{RoomNumber: "101", RoomTypeID: roomType.ID}
	if err := db.Create(room).Error; err != nil {
		t.Fatalf("seed room: %v", err)
	}
	guest := &Guest{Email: "g@example.com"}
	if err := db.Create(guest).Error; err != nil {
		t.Fatalf("seed guest: %v", err)
	}

	paidAt := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	res := &Reservation{
		GuestID:       guest.ID,
		RoomID:        room.ID,
		CheckIn:       datatypes.Date(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		CheckOut:      datatypes.Date(time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)),
		GuestCount:    2,
		TotalPrice:    decimal.RequireFromString("337.50"),
		Status:        ReservationStatusConfirmed,
		PaymentStatus: PaymentStatusPaid,
		Transaction: PaymentTransaction{
			Provider:    "stub",
			Reference:   "pi_1",
			AmountCents: 33750,
			Currency:    "usd",
			Status:      TransactionStatusSucceeded,
			PaidAt:      &paidAt,
		},
	}
	if err := db.Create(res).Error; err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	if res.ID == uuid.Nil {
		t.Fatalf("expected id to be generated")
	}

	var got Reservation
	if err := db.First(&got, "id = ?", res.ID).Error; err != nil {
		t.Fatalf("load reservation: %v", err)
	}
	if !got.TotalPrice.Equal(res.TotalPrice) {
		t.Fatalf("TotalPrice = %s, want %s", got.TotalPrice, res.TotalPrice)
	}
	if got.Transaction.Reference != "pi_1" || got.Transaction.AmountCents != 33750 {
		t.Fatalf("unexpected transaction %+v", got.Transaction)
	}
	if got.Stay().Nights() != 3 {
		t.Fatalf("Stay().Nights() = %d, want 3", got.Stay().Nights())
	}
}
