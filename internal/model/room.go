package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// room_types: read-only directory of sellable room categories.
type RoomType struct {
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`

	Name        string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Description string `gorm:"type:text"`

	PricePerNight decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Capacity    int `gorm:"not null"`
	NumBeds     int `gorm:"not null"`
	NumBedrooms int `gorm:"not null;default:1"`

	Amenities datatypes.JSONSlice[string]

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *RoomType) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// rooms
type Room struct {
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`

	RoomNumber string    `gorm:"type:varchar(16);not null;uniqueIndex"`
	RoomTypeID uuid.UUID `gorm:"type:char(36);not null;index"`

	Accessible  bool `gorm:"not null;default:false"`
	PetFriendly bool `gorm:"not null;default:false"`
	NonSmoking  bool `gorm:"not null;default:false"`

	// Physical presence: a guest is checked in right now.
	Occupied bool `gorm:"not null;default:false;index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	RoomType *RoomType    `gorm:"foreignKey:RoomTypeID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Bookings []RoomBooking `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
