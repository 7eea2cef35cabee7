package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
	"github.com/Leganyst/hotel-reservations/internal/clock"
	"github.com/Leganyst/hotel-reservations/internal/lock"
	"github.com/Leganyst/hotel-reservations/internal/model"
	"github.com/Leganyst/hotel-reservations/internal/notify"
	"github.com/Leganyst/hotel-reservations/internal/payment"
	"github.com/Leganyst/hotel-reservations/internal/repository"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Notify(msg notify.Message) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Kind, 0, len(n.msgs))
	for _, m := range n.msgs {
		out = append(out, m.Kind)
	}
	return out
}

func (n *recordingNotifier) last() notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.msgs) == 0 {
		return notify.Message{}
	}
	return n.msgs[len(n.msgs)-1]
}

type harness struct {
	db      *gorm.DB
	repos   repository.Set
	gateway *payment.StubGateway
	notes   *recordingNotifier
	clock   *clock.Fixed
	svc     *ReservationService
	emp     *EmployeeService
	rooms   *RoomService
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &harness{
		db:      db,
		repos:   repository.NewGormSet(db, 100, time.Minute),
		gateway: payment.NewStubGateway(),
		notes:   &recordingNotifier{},
		clock:   clock.NewFixed(now, time.UTC),
	}
	h.svc = NewReservationService(db, h.repos, h.gateway, h.notes, lock.NewLocal(2*time.Second), h.clock, logger, Options{Currency: "usd"})
	h.emp = NewEmployeeService(h.svc)
	h.rooms = NewRoomService(h.repos)
	return h
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func (h *harness) seedRoom(t *testing.T, number, rate string, capacity int) *model.Room {
	t.Helper()
	rt := &model.RoomType{
		Name:          "type-" + number,
		PricePerNight: decimal.RequireFromString(rate),
		Capacity:      capacity,
		NumBeds:       1,
		NumBedrooms:   1,
	}
	if err := h.db.Create(rt).Error; err != nil {
		t.Fatalf("seed room type: %v", err)
	}
	room := &model.Room{RoomNumber: number, RoomTypeID: rt.ID}
	if err := h.db.Create(room).Error; err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return room
}

func (h *harness) seedGuest(t *testing.T, email string) *model.Guest {
	t.Helper()
	g := &model.Guest{Email: email, FirstName: "Ann"}
	if err := h.db.Create(g).Error; err != nil {
		t.Fatalf("seed guest: %v", err)
	}
	return g
}

func (h *harness) capture(t *testing.T, cents int64) string {
	t.Helper()
	ref, err := h.gateway.Capture(context.Background(), cents, "usd")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	return ref
}

// book creates a reservation paid with a fresh capture of the expected total.
func (h *harness) book(t *testing.T, guest *model.Guest, room *model.Room, in, out time.Time, totalCents int64) *model.Reservation {
	t.Helper()
	res, err := h.svc.Create(context.Background(), CreateReservationInput{
		GuestID:          guest.ID,
		RoomID:           room.ID,
		CheckIn:          in,
		CheckOut:         out,
		GuestCount:       1,
		PaymentReference: h.capture(t, totalCents),
	})
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	return res
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *model.Reservation {
	t.Helper()
	res, err := h.repos.Reservations.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload reservation: %v", err)
	}
	return res
}

func (h *harness) available(t *testing.T, room *model.Room, in, out time.Time) bool {
	t.Helper()
	stay, err := calendar.NewDateRange(in, out)
	if err != nil {
		t.Fatalf("NewDateRange: %v", err)
	}
	ok, err := h.repos.Calendar.IsAvailable(context.Background(), room.ID, stay)
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	return ok
}

func (h *harness) bookings(t *testing.T, room *model.Room) []model.RoomBooking {
	t.Helper()
	list, err := h.repos.Calendar.ListByRoom(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("ListByRoom: %v", err)
	}
	return list
}

func (h *harness) events(t *testing.T, id uuid.UUID) []model.EventType {
	t.Helper()
	list, err := h.repos.Events.ListByReservation(context.Background(), id)
	if err != nil {
		t.Fatalf("ListByReservation: %v", err)
	}
	out := make([]model.EventType, 0, len(list))
	for _, e := range list {
		out = append(out, e.EventType)
	}
	return out
}

func hasEvent(events []model.EventType, want model.EventType) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}
