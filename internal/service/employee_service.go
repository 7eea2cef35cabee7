package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
	"github.com/Leganyst/hotel-reservations/internal/clock"
	"github.com/Leganyst/hotel-reservations/internal/model"
	"github.com/Leganyst/hotel-reservations/internal/pricing"
	"github.com/Leganyst/hotel-reservations/internal/repository"
)

// EmployeeService is the front-desk surface: edits without upgrade charges,
// cancellations, check-in/check-out, search and revenue.
type EmployeeService struct {
	core *ReservationService
}

func NewEmployeeService(core *ReservationService) *EmployeeService {
	return &EmployeeService{core: core}
}

// Update edits a CONFIRMED reservation. Price increases are waived,
// decreases are refunded.
func (s *EmployeeService) Update(ctx context.Context, id uuid.UUID, in UpdateReservationInput) (*model.Reservation, error) {
	in.PaymentReference = ""
	return s.core.update(ctx, id, in, employeeActor)
}

// Cancel applies the same refund rules as a guest cancellation but refuses
// to cancel a guest who is already in the room.
func (s *EmployeeService) Cancel(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.core.cancel(ctx, id, employeeActor)
}

func (s *EmployeeService) CheckIn(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	core := s.core
	release, err := core.lockReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var res *model.Reservation
	err = core.inTx(ctx, func(repos repository.Set) error {
		var err error
		res, err = repos.Reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "reservation")
		}
		if res.Status != model.ReservationStatusConfirmed {
			return fmt.Errorf("%w: cannot check in a %s reservation", ErrInvalidState, res.Status)
		}

		today := clock.Today(core.clock)
		stay := res.Stay()
		if today.Before(stay.Start) {
			return ErrCheckInTooEarly
		}
		if !stay.Contains(today) {
			return ErrCheckInTooLate
		}

		room, err := repos.Rooms.GetByIDForUpdate(ctx, res.RoomID)
		if err != nil {
			return notFound(err, "room")
		}
		if room.Occupied {
			return ErrRoomOccupied
		}
		changed, err := repos.Rooms.SetOccupied(ctx, room.ID, true)
		if err != nil {
			return fmt.Errorf("mark room occupied: %w", err)
		}
		if !changed {
			return ErrRoomOccupied
		}

		if err := transition(res, model.ReservationStatusCheckedIn); err != nil {
			return err
		}
		now := core.clock.Now().UTC()
		res.CheckedInAt = &now

		if err := repos.Reservations.Save(ctx, res); err != nil {
			return fmt.Errorf("save reservation: %w", err)
		}
		return repos.Events.Create(ctx, model.NewReservationEvent(model.EventTypeReservationCheckedIn, res, map[string]any{
			"room_number": room.RoomNumber,
		}))
	})
	if err != nil {
		return nil, err
	}

	core.logger.WithFields(core.fields(res)).Info("guest checked in")
	return res, nil
}

// CheckOut has no date window: early departures and late check-outs are both allowed.
func (s *EmployeeService) CheckOut(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	core := s.core
	release, err := core.lockReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var res *model.Reservation
	err = core.inTx(ctx, func(repos repository.Set) error {
		var err error
		res, err = repos.Reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "reservation")
		}
		if res.Status != model.ReservationStatusCheckedIn {
			return fmt.Errorf("%w: cannot check out a %s reservation", ErrInvalidState, res.Status)
		}

		if _, err := repos.Rooms.GetByIDForUpdate(ctx, res.RoomID); err != nil {
			return notFound(err, "room")
		}
		if _, err := repos.Rooms.SetOccupied(ctx, res.RoomID, false); err != nil {
			return fmt.Errorf("mark room free: %w", err)
		}

		if err := transition(res, model.ReservationStatusCompleted); err != nil {
			return err
		}
		now := core.clock.Now().UTC()
		res.CheckedOutAt = &now

		if err := repos.Reservations.Save(ctx, res); err != nil {
			return fmt.Errorf("save reservation: %w", err)
		}
		return repos.Events.Create(ctx, model.NewReservationEvent(model.EventTypeReservationCheckedOut, res, nil))
	})
	if err != nil {
		return nil, err
	}

	core.logger.WithFields(core.fields(res)).Info("guest checked out")
	return res, nil
}

type SearchCriteria struct {
	ReservationID      *uuid.UUID
	GuestEmail         string
	RoomTypeID         *uuid.UUID
	Status             model.ReservationStatus
	CurrentlyCheckedIn bool
	// Stay window, reservations overlapping [From, To).
	From *time.Time
	To   *time.Time
}

func (s *EmployeeService) Search(ctx context.Context, c SearchCriteria, page, pageSize int) (calendar.Page[model.Reservation], error) {
	repos := s.core.repos
	filter := repository.ReservationFilter{
		ReservationID:      c.ReservationID,
		Status:             c.Status,
		CurrentlyCheckedIn: c.CurrentlyCheckedIn,
		From:               c.From,
		To:                 c.To,
	}

	if c.GuestEmail != "" {
		guest, err := repos.Guests.FindByEmail(ctx, c.GuestEmail)
		if err != nil {
			return calendar.Page[model.Reservation]{}, notFound(err, "guest")
		}
		filter.GuestID = &guest.ID
	}
	if c.RoomTypeID != nil {
		ids, err := repos.Rooms.ListIDsByType(ctx, *c.RoomTypeID)
		if err != nil {
			return calendar.Page[model.Reservation]{}, fmt.Errorf("list rooms by type: %w", err)
		}
		filter.RoomIDs = ids
		if filter.RoomIDs == nil {
			filter.RoomIDs = []uuid.UUID{}
		}
	}

	page, pageSize, limit, offset := calendar.NormalizePage(page, pageSize)
	list, total, err := repos.Reservations.Search(ctx, filter, limit, offset)
	if err != nil {
		return calendar.Page[model.Reservation]{}, fmt.Errorf("search reservations: %w", err)
	}
	return calendar.NewPage(list, page, pageSize, total), nil
}

type MonthRevenue struct {
	Month      string // YYYY-MM
	TotalCents int64
}

type RevenueReport struct {
	TotalCents int64
	Months     []MonthRevenue // ascending
}

func (r RevenueReport) Total() decimal.Decimal {
	return pricing.FromCents(r.TotalCents)
}

// Revenue sums captured money by paid date in [from, to). Refunded
// reservations count negative; CANCELLED ones keep their payment but are
// left out of the report.
func (s *EmployeeService) Revenue(ctx context.Context, from, to *time.Time) (RevenueReport, error) {
	list, err := s.core.repos.Reservations.ListPaid(ctx, from, to)
	if err != nil {
		return RevenueReport{}, fmt.Errorf("list paid reservations: %w", err)
	}
	return aggregateRevenue(list), nil
}

func aggregateRevenue(list []model.Reservation) RevenueReport {
	var report RevenueReport
	buckets := make(map[string]int64)

	for i := range list {
		r := &list[i]
		if !r.Transaction.Exists() || r.Transaction.PaidAt == nil {
			continue
		}

		var delta int64
		switch {
		case r.PaymentStatus == model.PaymentStatusRefunded || r.Status == model.ReservationStatusRefunded:
			delta = -r.Transaction.AmountCents
		case r.PaymentStatus == model.PaymentStatusPaid && countsAsRevenue(r.Status):
			delta = r.Transaction.AmountCents
		default:
			continue
		}

		report.TotalCents += delta
		buckets[calendar.MonthKey(r.Transaction.PaidAt.UTC())] += delta
	}

	for month, cents := range buckets {
		report.Months = append(report.Months, MonthRevenue{Month: month, TotalCents: cents})
	}
	sort.Slice(report.Months, func(i, j int) bool { return report.Months[i].Month < report.Months[j].Month })
	return report
}

func countsAsRevenue(status model.ReservationStatus) bool {
	switch status {
	case model.ReservationStatusConfirmed, model.ReservationStatusCheckedIn, model.ReservationStatusCompleted:
		return true
	}
	return false
}
