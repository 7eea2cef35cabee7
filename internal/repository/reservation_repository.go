package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
	"github.com/Leganyst/hotel-reservations/internal/model"
)

// ReservationFilter is the employee search. Zero values mean "any".
type ReservationFilter struct {
	ReservationID *uuid.UUID
	GuestID       *uuid.UUID
	// RoomIDs restricts to these rooms when non-nil; an empty non-nil
	// slice matches nothing.
	RoomIDs            []uuid.UUID
	Status             model.ReservationStatus
	CurrentlyCheckedIn bool
	// Stay window: reservations whose [check_in, check_out) overlaps [From, To).
	From *time.Time
	To   *time.Time
}

type ReservationRepository interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	// GetByIDForUpdate row-locks the reservation until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	// Save writes every column of r.
	Save(ctx context.Context, r *model.Reservation) error
	// CompareAndSetStatus moves id from one status to another and reports
	// whether the row was still in the expected status.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to model.ReservationStatus) (bool, error)
	ListByGuest(ctx context.Context, guestID uuid.UUID) ([]model.Reservation, error)
	Search(ctx context.Context, filter ReservationFilter, limit, offset int) ([]model.Reservation, int64, error)
	// ListConfirmedEndingBefore returns CONFIRMED reservations with check_out < day.
	ListConfirmedEndingBefore(ctx context.Context, day time.Time) ([]model.Reservation, error)
	// ListCheckedInCovering returns CHECKED_IN reservations with check_in <= day < check_out.
	ListCheckedInCovering(ctx context.Context, day time.Time) ([]model.Reservation, error)
	// HasCheckedInCovering reports whether roomID has a CHECKED_IN reservation covering day.
	HasCheckedInCovering(ctx context.Context, roomID uuid.UUID, day time.Time) (bool, error)
	// ListPaid returns reservations whose transaction was paid on a UTC date
	// in [from, to). Nil bounds are open.
	ListPaid(ctx context.Context, from, to *time.Time) ([]model.Reservation, error)
	WithTx(tx *gorm.DB) ReservationRepository
}

type GormReservationRepository struct {
	db *gorm.DB
}

func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

func (r *GormReservationRepository) WithTx(tx *gorm.DB) ReservationRepository {
	return &GormReservationRepository{db: tx}
}

func (r *GormReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(res).Error
}

func (r *GormReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *GormReservationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *GormReservationRepository) Save(ctx context.Context, res *model.Reservation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(res).Error
}

func (r *GormReservationRepository) CompareAndSetStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.ReservationStatus,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormReservationRepository) ListByGuest(ctx context.Context, guestID uuid.UUID) ([]model.Reservation, error) {
	var list []model.Reservation
	if err := r.db.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Order("check_in DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormReservationRepository) Search(
	ctx context.Context,
	filter ReservationFilter,
	limit, offset int,
) ([]model.Reservation, int64, error) {
	var (
		list  []model.Reservation
		total int64
	)

	if filter.RoomIDs != nil && len(filter.RoomIDs) == 0 {
		return []model.Reservation{}, 0, nil
	}

	q := r.db.WithContext(ctx).Model(&model.Reservation{})

	if filter.ReservationID != nil {
		q = q.Where("id = ?", *filter.ReservationID)
	}
	if filter.GuestID != nil {
		q = q.Where("guest_id = ?", *filter.GuestID)
	}
	if filter.RoomIDs != nil {
		q = q.Where("room_id IN ?", filter.RoomIDs)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CurrentlyCheckedIn {
		q = q.Where("status = ?", model.ReservationStatusCheckedIn)
	}
	if filter.To != nil {
		q = q.Where("check_in < ?", model.Date(*filter.To))
	}
	if filter.From != nil {
		q = q.Where("check_out > ?", model.Date(*filter.From))
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("check_in DESC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *GormReservationRepository) ListConfirmedEndingBefore(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	var list []model.Reservation
	if err := r.db.WithContext(ctx).
		Where("status = ?", model.ReservationStatusConfirmed).
		Where("check_out < ?", model.Date(day)).
		Order("check_out ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormReservationRepository) ListCheckedInCovering(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	d := model.Date(day)
	var list []model.Reservation
	if err := r.db.WithContext(ctx).
		Where("status = ?", model.ReservationStatusCheckedIn).
		Where("check_in <= ? AND check_out > ?", d, d).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormReservationRepository) HasCheckedInCovering(ctx context.Context, roomID uuid.UUID, day time.Time) (bool, error) {
	d := model.Date(day)
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("room_id = ? AND status = ?", roomID, model.ReservationStatusCheckedIn).
		Where("check_in <= ? AND check_out > ?", d, d).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormReservationRepository) ListPaid(ctx context.Context, from, to *time.Time) ([]model.Reservation, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("txn_reference <> ''").
		Where("txn_paid_at IS NOT NULL")

	// Bounds are calendar dates; the zone of from/to only picks the date.
	if from != nil {
		q = q.Where("txn_paid_at >= ?", calendar.Day(*from))
	}
	if to != nil {
		q = q.Where("txn_paid_at < ?", calendar.Day(*to))
	}

	var list []model.Reservation
	if err := q.Order("txn_paid_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
