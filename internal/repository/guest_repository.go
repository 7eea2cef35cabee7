package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/hotel-reservations/internal/model"
)

type GuestRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Guest, error)
	FindByEmail(ctx context.Context, email string) (*model.Guest, error)
	Create(ctx context.Context, guest *model.Guest) error
	WithTx(tx *gorm.DB) GuestRepository
}

type GormGuestRepository struct {
	db *gorm.DB
}

func NewGormGuestRepository(db *gorm.DB) *GormGuestRepository {
	return &GormGuestRepository{db: db}
}

func (r *GormGuestRepository) WithTx(tx *gorm.DB) GuestRepository {
	return &GormGuestRepository{db: tx}
}

func (r *GormGuestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Guest, error) {
	var g model.Guest
	if err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormGuestRepository) FindByEmail(ctx context.Context, email string) (*model.Guest, error) {
	n := normalizeEmail(email)
	if n == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var g model.Guest
	if err := r.db.WithContext(ctx).Where("email = ?", n).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GormGuestRepository) Create(ctx context.Context, guest *model.Guest) error {
	guest.Email = normalizeEmail(guest.Email)
	return r.db.WithContext(ctx).Create(guest).Error
}
