package model

import "gorm.io/gorm"

// AutoMigrate migrates every table of the reservation engine.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&RoomType{},
		&Room{},
		&Guest{},
		&Reservation{},
		&RoomBooking{},
		&Event{},
	)
}
