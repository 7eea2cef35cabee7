package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/karlseguin/ccache/v3"
	"gorm.io/gorm"

	"github.com/Leganyst/hotel-reservations/internal/model"
)

type RoomTypeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.RoomType, error)
	List(ctx context.Context) ([]model.RoomType, error)
	Create(ctx context.Context, roomType *model.RoomType) error
	WithTx(tx *gorm.DB) RoomTypeRepository
}

type GormRoomTypeRepository struct {
	db *gorm.DB
}

func NewGormRoomTypeRepository(db *gorm.DB) *GormRoomTypeRepository {
	return &GormRoomTypeRepository{db: db}
}

func (r *GormRoomTypeRepository) WithTx(tx *gorm.DB) RoomTypeRepository {
	return &GormRoomTypeRepository{db: tx}
}

func (r *GormRoomTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RoomType, error) {
	var t model.RoomType
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormRoomTypeRepository) List(ctx context.Context) ([]model.RoomType, error) {
	var types []model.RoomType
	if err := r.db.WithContext(ctx).Order("price_per_night ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *GormRoomTypeRepository) Create(ctx context.Context, roomType *model.RoomType) error {
	return r.db.WithContext(ctx).Create(roomType).Error
}

// CachedRoomTypeRepository keeps room types (and so nightly rates) in a
// local LRU. Room types are read-only for the engine; a rate change becomes
// visible after ttl.
type CachedRoomTypeRepository struct {
	next  RoomTypeRepository
	cache *ccache.Cache[*model.RoomType]
	ttl   time.Duration
}

func NewCachedRoomTypeRepository(next RoomTypeRepository, maxSize int, ttl time.Duration) *CachedRoomTypeRepository {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &CachedRoomTypeRepository{
		next:  next,
		cache: ccache.New(ccache.Configure[*model.RoomType]().MaxSize(int64(maxSize))),
		ttl:   ttl,
	}
}

// WithTx shares the cache; misses are loaded through tx.
func (r *CachedRoomTypeRepository) WithTx(tx *gorm.DB) RoomTypeRepository {
	return &CachedRoomTypeRepository{next: r.next.WithTx(tx), cache: r.cache, ttl: r.ttl}
}

func (r *CachedRoomTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RoomType, error) {
	key := id.String()
	if item := r.cache.Get(key); item != nil && !item.Expired() {
		t := *item.Value()
		return &t, nil
	}

	t, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cached := *t
	r.cache.Set(key, &cached, r.ttl)
	return t, nil
}

func (r *CachedRoomTypeRepository) List(ctx context.Context) ([]model.RoomType, error) {
	types, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range types {
		t := types[i]
		r.cache.Set(t.ID.String(), &t, r.ttl)
	}
	return types, nil
}

func (r *CachedRoomTypeRepository) Create(ctx context.Context, roomType *model.RoomType) error {
	if err := r.next.Create(ctx, roomType); err != nil {
		return err
	}
	r.cache.Delete(roomType.ID.String())
	return nil
}
