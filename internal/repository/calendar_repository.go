package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
	"github.com/Leganyst/hotel-reservations/internal/model"
)

// CalendarRepository is the room calendar: the set of booked intervals per
// room. It does not enforce non-overlap by itself; callers check
// IsAvailable and Book under the room lock in one transaction.
type CalendarRepository interface {
	// IsAvailable is true when no booked interval of the room overlaps stay.
	IsAvailable(ctx context.Context, roomID uuid.UUID, stay calendar.DateRange) (bool, error)
	Book(ctx context.Context, roomID, reservationID uuid.UUID, stay calendar.DateRange) error
	// Release removes the interval matching room, owner and both bounds
	// exactly. Removing a missing interval is not an error; the result
	// reports whether something was removed.
	Release(ctx context.Context, roomID, reservationID uuid.UUID, stay calendar.DateRange) (bool, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.RoomBooking, error)
	// BookedRoomIDs lists rooms with at least one interval overlapping stay.
	BookedRoomIDs(ctx context.Context, stay calendar.DateRange) ([]uuid.UUID, error)
	WithTx(tx *gorm.DB) CalendarRepository
}

type GormCalendarRepository struct {
	db *gorm.DB
}

func NewGormCalendarRepository(db *gorm.DB) *GormCalendarRepository {
	return &GormCalendarRepository{db: db}
}

func (r *GormCalendarRepository) WithTx(tx *gorm.DB) CalendarRepository {
	return &GormCalendarRepository{db: tx}
}

func (r *GormCalendarRepository) IsAvailable(ctx context.Context, roomID uuid.UUID, stay calendar.DateRange) (bool, error) {
	var count int64
	// Half-open overlap: existing.start < stay.end AND existing.end > stay.start.
	if err := r.db.WithContext(ctx).
		Model(&model.RoomBooking{}).
		Where("room_id = ?", roomID).
		Where("start_date < ? AND end_date > ?", model.Date(stay.End), model.Date(stay.Start)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *GormCalendarRepository) Book(ctx context.Context, roomID, reservationID uuid.UUID, stay calendar.DateRange) error {
	return r.db.WithContext(ctx).Create(&model.RoomBooking{
		RoomID:        roomID,
		ReservationID: reservationID,
		StartDate:     model.Date(stay.Start),
		EndDate:       model.Date(stay.End),
	}).Error
}

func (r *GormCalendarRepository) Release(ctx context.Context, roomID, reservationID uuid.UUID, stay calendar.DateRange) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("room_id = ? AND reservation_id = ?", roomID, reservationID).
		Where("start_date = ? AND end_date = ?", model.Date(stay.Start), model.Date(stay.End)).
		Delete(&model.RoomBooking{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormCalendarRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.RoomBooking, error) {
	var bookings []model.RoomBooking
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("start_date ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormCalendarRepository) BookedRoomIDs(ctx context.Context, stay calendar.DateRange) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&model.RoomBooking{}).
		Distinct("room_id").
		Where("start_date < ? AND end_date > ?", model.Date(stay.End), model.Date(stay.Start)).
		Pluck("room_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
