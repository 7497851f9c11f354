package models

import "time"

const MilestoneLandAcquired = "land_acquired"

// LandJourney records a buyer milestone. Rows are created best-effort after
// a release commits; losing one never fails the release.
type LandJourney struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	TransactionID uint      `gorm:"not null;index" json:"transaction_id"`
	ListingID     uint      `gorm:"not null" json:"listing_id"`
	Milestone     string    `gorm:"type:varchar(50);not null" json:"milestone"`
	CreatedAt     time.Time `json:"created_at"`
}

func (LandJourney) TableName() string {
	return "land_journeys"
}
