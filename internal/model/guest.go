package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// guests
type Guest struct {
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`

	Email     string `gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName string `gorm:"type:varchar(255)"`
	LastName  string `gorm:"type:varchar(255)"`
	Phone     string `gorm:"type:varchar(32)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (g *Guest) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
