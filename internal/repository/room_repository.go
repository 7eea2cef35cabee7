package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/hotel-reservations/internal/model"
)

// RoomFilter narrows ListRooms. Nil pointers mean "any".
type RoomFilter struct {
	RoomTypeIDs []uuid.UUID
	Accessible  *bool
	PetFriendly *bool
	NonSmoking  *bool
}

type RoomRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	// GetByIDForUpdate row-locks the room until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Room, error)
	List(ctx context.Context, filter RoomFilter) ([]model.Room, error)
	ListIDsByType(ctx context.Context, roomTypeID uuid.UUID) ([]uuid.UUID, error)
	ListOccupiedIDs(ctx context.Context) ([]uuid.UUID, error)
	// SetOccupied flips the flag only when it differs; the result tells
	// whether a row changed.
	SetOccupied(ctx context.Context, id uuid.UUID, occupied bool) (bool, error)
	Create(ctx context.Context, room *model.Room) error
	WithTx(tx *gorm.DB) RoomRepository
}

type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) WithTx(tx *gorm.DB) RoomRepository {
	return &GormRoomRepository{db: tx}
}

func (r *GormRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *GormRoomRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *GormRoomRepository) List(ctx context.Context, filter RoomFilter) ([]model.Room, error) {
	q := r.db.WithContext(ctx).Model(&model.Room{})

	if filter.RoomTypeIDs != nil {
		if len(filter.RoomTypeIDs) == 0 {
			return []model.Room{}, nil
		}
		q = q.Where("room_type_id IN ?", filter.RoomTypeIDs)
	}
	if filter.Accessible != nil {
		q = q.Where("accessible = ?", *filter.Accessible)
	}
	if filter.PetFriendly != nil {
		q = q.Where("pet_friendly = ?", *filter.PetFriendly)
	}
	if filter.NonSmoking != nil {
		q = q.Where("non_smoking = ?", *filter.NonSmoking)
	}

	var rooms []model.Room
	if err := q.Order("room_number ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *GormRoomRepository) ListIDsByType(ctx context.Context, roomTypeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("room_type_id = ?", roomTypeID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormRoomRepository) ListOccupiedIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("occupied = ?", true).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormRoomRepository) SetOccupied(ctx context.Context, id uuid.UUID, occupied bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ? AND occupied = ?", id, !occupied).
		Update("occupied", occupied)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRoomRepository) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}
