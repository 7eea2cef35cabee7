package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
	"github.com/Leganyst/hotel-reservations/internal/clock"
	"github.com/Leganyst/hotel-reservations/internal/lock"
	"github.com/Leganyst/hotel-reservations/internal/model"
	"github.com/Leganyst/hotel-reservations/internal/notify"
	"github.com/Leganyst/hotel-reservations/internal/payment"
	"github.com/Leganyst/hotel-reservations/internal/pricing"
	"github.com/Leganyst/hotel-reservations/internal/repository"
)

// Refunds are full when the guest cancels at least this long before the
// start of the check-in day.
const FullRefundWindow = 72 * time.Hour

type Options struct {
	Currency string
}

type ReservationService struct {
	db       *gorm.DB
	repos    repository.Set
	gateway  payment.Gateway
	notifier notify.Notifier
	locker   lock.Locker
	clock    clock.Clock
	logger   *logrus.Logger
	validate *validator.Validate
	currency string
}

func NewReservationService(
	db *gorm.DB,
	repos repository.Set,
	gateway payment.Gateway,
	notifier notify.Notifier,
	locker lock.Locker,
	clk clock.Clock,
	logger *logrus.Logger,
	opts Options,
) *ReservationService {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &ReservationService{
		db:       db,
		repos:    repos,
		gateway:  gateway,
		notifier: notifier,
		locker:   locker,
		clock:    clk,
		logger:   logger,
		validate: validator.New(),
		currency: opts.Currency,
	}
}

type CreateReservationInput struct {
	GuestID          uuid.UUID `validate:"required"`
	RoomID           uuid.UUID `validate:"required"`
	CheckIn          time.Time `validate:"required"`
	CheckOut         time.Time `validate:"required,gtfield=CheckIn"`
	GuestCount       int       `validate:"min=1"`
	PaymentReference string    `validate:"required"`
	Currency         string    `validate:"omitempty,len=3"`
}

type UpdateReservationInput struct {
	CheckIn  time.Time `validate:"required"`
	CheckOut time.Time `validate:"required,gtfield=CheckIn"`
	// RoomID moves the stay to another room; nil keeps the current room.
	RoomID     *uuid.UUID
	GuestCount int `validate:"min=1"`
	// PaymentReference is the new capture a guest supplies when the edit
	// makes the stay more expensive.
	PaymentReference string
}

type actor struct {
	employee bool
	guestID  uuid.UUID
}

func guestActor(id uuid.UUID) actor { return actor{guestID: id} }

var employeeActor = actor{employee: true}

func (a actor) owns(r *model.Reservation) bool {
	return a.employee || r.GuestID == a.guestID
}

func (a actor) String() string {
	if a.employee {
		return "employee"
	}
	return "guest"
}

func (s *ReservationService) validateInput(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *ReservationService) inTx(ctx context.Context, fn func(repos repository.Set) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.repos.WithTx(tx))
	})
}

// lockReservation takes the reservation lock, then the locks of its room and
// of any extra rooms. The reservation read here only discovers the room; the
// caller re-reads it inside its transaction.
func (s *ReservationService) lockReservation(ctx context.Context, id uuid.UUID, extraRooms ...uuid.UUID) (func(), error) {
	releaseRes, err := s.locker.Acquire(ctx, lock.ReservationKey(id))
	if err != nil {
		return nil, lockErr(err)
	}

	res, err := s.repos.Reservations.GetByID(ctx, id)
	if err != nil {
		releaseRes()
		return nil, notFound(err, "reservation")
	}

	keys := []string{lock.RoomKey(res.RoomID)}
	for _, roomID := range extraRooms {
		keys = append(keys, lock.RoomKey(roomID))
	}
	releaseRooms, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		releaseRes()
		return nil, lockErr(err)
	}

	return func() {
		releaseRooms()
		releaseRes()
	}, nil
}

// unavailable builds ErrRoomUnavailable naming the stays that block the request.
func (s *ReservationService) unavailable(ctx context.Context, repos repository.Set, roomID uuid.UUID, stay calendar.DateRange) error {
	bookings, err := repos.Calendar.ListByRoom(ctx, roomID)
	if err != nil {
		s.logger.WithError(err).WithField("room_id", roomID).Warn("list bookings for conflict details")
		return ErrRoomUnavailable
	}
	existing := make([]calendar.DateRange, 0, len(bookings))
	for _, b := range bookings {
		existing = append(existing, b.Range())
	}
	_, conflicts := calendar.HasOverlap(stay, existing)
	if len(conflicts) == 0 {
		return ErrRoomUnavailable
	}
	c := conflicts[0]
	return fmt.Errorf("%w (booked %s..%s)", ErrRoomUnavailable,
		c.Start.Format(time.DateOnly), c.End.Format(time.DateOnly))
}

func transition(r *model.Reservation, to model.ReservationStatus) error {
	if !model.CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, r.Status, to)
	}
	r.Status = to
	return nil
}

func (s *ReservationService) fields(r *model.Reservation) logrus.Fields {
	return logrus.Fields{
		"reservation_id": r.ID,
		"room_id":        r.RoomID,
		"guest_id":       r.GuestID,
		"status":         r.Status,
	}
}

// Create books a room for a guest whose payment was already captured upstream.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	stay, err := calendar.NewDateRange(in.CheckIn, in.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	currency := in.Currency
	if currency == "" {
		currency = s.currency
	}

	release, err := s.locker.Acquire(ctx, lock.RoomKey(in.RoomID))
	if err != nil {
		return nil, lockErr(err)
	}
	defer release()

	var (
		res   *model.Reservation
		guest *model.Guest
		room  *model.Room
	)
	err = s.inTx(ctx, func(repos repository.Set) error {
		var err error
		room, err = repos.Rooms.GetByIDForUpdate(ctx, in.RoomID)
		if err != nil {
			return notFound(err, "room")
		}
		roomType, err := repos.RoomTypes.GetByID(ctx, room.RoomTypeID)
		if err != nil {
			return notFound(err, "room type")
		}
		guest, err = repos.Guests.GetByID(ctx, in.GuestID)
		if err != nil {
			return notFound(err, "guest")
		}

		ok, err := repos.Calendar.IsAvailable(ctx, room.ID, stay)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if !ok {
			return s.unavailable(ctx, repos, room.ID, stay)
		}

		total := pricing.Total(roomType.PricePerNight, stay.Start, stay.End)
		paidAt := s.clock.Now().UTC()

		res = &model.Reservation{
			GuestID:       guest.ID,
			RoomID:        room.ID,
			GuestCount:    in.GuestCount,
			TotalPrice:    total,
			Status:        model.ReservationStatusConfirmed,
			PaymentStatus: model.PaymentStatusPaid,
			Transaction: model.PaymentTransaction{
				Provider:    s.gateway.Provider(),
				Reference:   in.PaymentReference,
				AmountCents: pricing.ToCents(total),
				Currency:    currency,
				Status:      model.TransactionStatusSucceeded,
				PaidAt:      &paidAt,
			},
		}
		res.SetStay(stay)

		if err := repos.Reservations.Create(ctx, res); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		if err := repos.Calendar.Book(ctx, room.ID, res.ID, stay); err != nil {
			return fmt.Errorf("book interval: %w", err)
		}
		return repos.Events.Create(ctx, model.NewReservationEvent(model.EventTypeReservationCreated, res, map[string]any{
			"total_cents": res.Transaction.AmountCents,
			"nights":      pricing.Nights(stay.Start, stay.End),
		}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(s.fields(res)).Info("reservation created")
	s.notify(notify.KindConfirmation, res, guest, room, 0)
	return res, nil
}

func (s *ReservationService) Get(ctx context.Context, guestID, id uuid.UUID) (*model.Reservation, error) {
	res, err := s.repos.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "reservation")
	}
	if !guestActor(guestID).owns(res) {
		return nil, fmt.Errorf("%w: reservation", ErrNotFound)
	}
	return res, nil
}

func (s *ReservationService) ListForGuest(ctx context.Context, guestID uuid.UUID) ([]model.Reservation, error) {
	if _, err := s.repos.Guests.GetByID(ctx, guestID); err != nil {
		return nil, notFound(err, "guest")
	}
	list, err := s.repos.Reservations.ListByGuest(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

// Cancel cancels a guest's own reservation. Reservations that are not
// CONFIRMED are returned unchanged.
func (s *ReservationService) Cancel(ctx context.Context, guestID, id uuid.UUID) (*model.Reservation, error) {
	return s.cancel(ctx, id, guestActor(guestID))
}

func (s *ReservationService) cancel(ctx context.Context, id uuid.UUID, who actor) (*model.Reservation, error) {
	release, err := s.lockReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		res         *model.Reservation
		guest       *model.Guest
		changed     bool
		refundCents int64
	)
	err = s.inTx(ctx, func(repos repository.Set) error {
		var err error
		res, err = repos.Reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "reservation")
		}
		if !who.owns(res) {
			return fmt.Errorf("%w: reservation", ErrNotFound)
		}
		if who.employee && res.Status == model.ReservationStatusCheckedIn {
			return fmt.Errorf("%w: checked-in reservation cannot be cancelled", ErrInvalidState)
		}
		if res.Status != model.ReservationStatusConfirmed {
			return nil
		}

		now := s.clock.Now()
		checkInStart := calendar.StartOfDayIn(time.Time(res.CheckIn), s.clock.Location())
		hoursUntilCheckIn := int64(checkInStart.Sub(now) / time.Hour)

		eventType := model.EventTypeReservationCancelled
		if hoursUntilCheckIn >= int64(FullRefundWindow/time.Hour) {
			if res.Transaction.Exists() {
				refundRef, err := s.gateway.Refund(ctx, res.Transaction.Reference, nil)
				if err != nil {
					return gatewayErr("refund "+res.Transaction.Reference, err)
				}
				refundedAt := now.UTC()
				res.Transaction.Status = model.TransactionStatusRefunded
				res.Transaction.RefundReference = refundRef
				res.Transaction.RefundedAt = &refundedAt
				res.Transaction.RefundedCents += res.Transaction.AmountCents
				refundCents = res.Transaction.AmountCents
			}
			if err := transition(res, model.ReservationStatusRefunded); err != nil {
				return err
			}
			res.PaymentStatus = model.PaymentStatusRefunded
			eventType = model.EventTypeReservationRefunded
		} else if err := transition(res, model.ReservationStatusCancelled); err != nil {
			return err
		}

		if _, err := repos.Calendar.Release(ctx, res.RoomID, res.ID, res.Stay()); err != nil {
			return fmt.Errorf("release interval: %w", err)
		}
		if err := repos.Reservations.Save(ctx, res); err != nil {
			return fmt.Errorf("save reservation: %w", err)
		}
		if err := repos.Events.Create(ctx, model.NewReservationEvent(eventType, res, map[string]any{
			"actor":                who.String(),
			"hours_until_check_in": hoursUntilCheckIn,
			"refund_cents":         refundCents,
		})); err != nil {
			return err
		}

		guest, err = repos.Guests.GetByID(ctx, res.GuestID)
		if err != nil {
			return notFound(err, "guest")
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.WithFields(s.fields(res)).WithField("refund_cents", refundCents).Info("reservation cancelled")
		s.notify(notify.KindCancellation, res, guest, nil, refundCents)
	}
	return res, nil
}

// Update changes dates, room and guest count of a guest's own reservation.
// A more expensive stay needs a fresh payment reference.
func (s *ReservationService) Update(ctx context.Context, guestID, id uuid.UUID, in UpdateReservationInput) (*model.Reservation, error) {
	return s.update(ctx, id, in, guestActor(guestID))
}

func (s *ReservationService) update(ctx context.Context, id uuid.UUID, in UpdateReservationInput, who actor) (*model.Reservation, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	newStay, err := calendar.NewDateRange(in.CheckIn, in.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var extraRooms []uuid.UUID
	if in.RoomID != nil {
		extraRooms = append(extraRooms, *in.RoomID)
	}
	release, err := s.lockReservation(ctx, id, extraRooms...)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		res       *model.Reservation
		guest     *model.Guest
		room      *model.Room
		diffCents int64
	)
	err = s.inTx(ctx, func(repos repository.Set) error {
		var err error
		res, err = repos.Reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "reservation")
		}
		if !who.owns(res) {
			return fmt.Errorf("%w: reservation", ErrNotFound)
		}
		if res.Status != model.ReservationStatusConfirmed {
			return fmt.Errorf("%w: only confirmed reservations can be edited, got %s", ErrInvalidState, res.Status)
		}

		oldTotal := res.TotalPrice
		oldTxn := res.Transaction
		oldRoomID := res.RoomID
		oldStay := res.Stay()

		targetRoomID := oldRoomID
		if in.RoomID != nil {
			targetRoomID = *in.RoomID
		}
		datesChanged := !oldStay.Equal(newStay)
		roomChanged := targetRoomID != oldRoomID

		if datesChanged || roomChanged {
			// The old interval goes first so a shift that overlaps the old
			// stay on the same room does not collide with itself. On any
			// error below the transaction rollback restores it.
			if _, err := repos.Calendar.Release(ctx, oldRoomID, res.ID, oldStay); err != nil {
				return fmt.Errorf("release interval: %w", err)
			}

			room, err = repos.Rooms.GetByIDForUpdate(ctx, targetRoomID)
			if err != nil {
				return notFound(err, "room")
			}
			ok, err := repos.Calendar.IsAvailable(ctx, targetRoomID, newStay)
			if err != nil {
				return fmt.Errorf("check availability: %w", err)
			}
			if !ok {
				return s.unavailable(ctx, repos, targetRoomID, newStay)
			}
			if err := repos.Calendar.Book(ctx, targetRoomID, res.ID, newStay); err != nil {
				return fmt.Errorf("book interval: %w", err)
			}

			res.RoomID = targetRoomID
			res.SetStay(newStay)

			roomType, err := repos.RoomTypes.GetByID(ctx, room.RoomTypeID)
			if err != nil {
				return notFound(err, "room type")
			}
			res.TotalPrice = pricing.Total(roomType.PricePerNight, newStay.Start, newStay.End)
		}

		res.GuestCount = in.GuestCount

		diffCents = pricing.DiffCents(res.TotalPrice, oldTotal)
		details := map[string]any{
			"actor":         who.String(),
			"diff_cents":    diffCents,
			"dates_changed": datesChanged,
			"room_changed":  roomChanged,
		}

		switch {
		case diffCents < 0:
			if err := s.refundDifference(ctx, repos, res, -diffCents); err != nil {
				return err
			}
		case diffCents > 0 && who.employee:
			details["waived_cents"] = diffCents
			s.logger.WithFields(s.fields(res)).WithField("waived_cents", diffCents).Info("upgrade charge waived by employee")
		case diffCents > 0:
			if err := s.replacePayment(ctx, repos, res, oldTxn, in.PaymentReference); err != nil {
				return err
			}
		}

		if err := repos.Reservations.Save(ctx, res); err != nil {
			return fmt.Errorf("save reservation: %w", err)
		}
		if err := repos.Events.Create(ctx, model.NewReservationEvent(model.EventTypeReservationUpdated, res, details)); err != nil {
			return err
		}

		if room == nil {
			if room, err = repos.Rooms.GetByID(ctx, res.RoomID); err != nil {
				return notFound(err, "room")
			}
		}
		guest, err = repos.Guests.GetByID(ctx, res.GuestID)
		if err != nil {
			return notFound(err, "guest")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(s.fields(res)).WithField("diff_cents", diffCents).Info("reservation updated")
	s.notify(notify.KindUpdate, res, guest, room, 0)
	return res, nil
}

// refundDifference returns money after a downgrade. A gateway failure is
// recorded and logged but does not abort the edit.
func (s *ReservationService) refundDifference(ctx context.Context, repos repository.Set, res *model.Reservation, cents int64) error {
	entry := s.logger.WithFields(s.fields(res)).WithField("refund_cents", cents)

	if !res.Transaction.Exists() {
		entry.Warn("downgrade refund skipped: reservation has no payment reference")
		return nil
	}

	refundRef, err := s.gateway.Refund(ctx, res.Transaction.Reference, payment.Cents(cents))
	if err != nil {
		entry.WithError(err).Error("downgrade refund failed")
		return repos.Events.Create(ctx, model.NewReservationEvent(model.EventTypeRefundFailed, res, map[string]any{
			"reference":    res.Transaction.Reference,
			"refund_cents": cents,
			"error":        err.Error(),
		}))
	}

	refundedAt := s.clock.Now().UTC()
	res.Transaction.AmountCents -= cents
	res.Transaction.RefundedCents += cents
	res.Transaction.RefundReference = refundRef
	res.Transaction.RefundedAt = &refundedAt
	res.Transaction.Status = model.TransactionStatusPartiallyRefunded
	return nil
}

// replacePayment swaps the capture after a guest upgrade: the new reference
// must differ from the old one, and the old capture is refunded in full.
func (s *ReservationService) replacePayment(
	ctx context.Context,
	repos repository.Set,
	res *model.Reservation,
	oldTxn model.PaymentTransaction,
	newReference string,
) error {
	if newReference == "" || newReference == oldTxn.Reference {
		return fmt.Errorf("%w: price increased by %s, a new payment is needed",
			ErrPaymentRequired, res.TotalPrice.Sub(pricing.FromCents(oldTxn.AmountCents)).StringFixed(2))
	}

	now := s.clock.Now().UTC()
	superseded := oldTxn
	if oldTxn.Exists() {
		refundRef, err := s.gateway.Refund(ctx, oldTxn.Reference, nil)
		if err != nil {
			return gatewayErr("refund superseded payment "+oldTxn.Reference, err)
		}
		superseded.Status = model.TransactionStatusRefunded
		superseded.RefundReference = refundRef
		superseded.RefundedCents += oldTxn.AmountCents
		superseded.RefundedAt = &now
	}
	if err := repos.Events.Create(ctx, model.NewReservationEvent(model.EventTypePaymentSuperseded, res, superseded)); err != nil {
		return err
	}

	currency := oldTxn.Currency
	if currency == "" {
		currency = s.currency
	}
	res.Transaction = model.PaymentTransaction{
		Provider:    s.gateway.Provider(),
		Reference:   newReference,
		AmountCents: pricing.ToCents(res.TotalPrice),
		Currency:    currency,
		Status:      model.TransactionStatusSucceeded,
		PaidAt:      &now,
	}
	res.PaymentStatus = model.PaymentStatusPaid
	return nil
}

func (s *ReservationService) notify(kind notify.Kind, res *model.Reservation, guest *model.Guest, room *model.Room, refundCents int64) {
	if s.notifier == nil || guest == nil {
		return
	}
	s.notifier.Notify(notify.NewMessage(kind, res, guest, room, refundCents, s.clock.Now()))
}
