package models

import (
	"time"

	"gorm.io/gorm"
)

type ListingStatus string

const (
	ListingDraft     ListingStatus = "draft"
	ListingPublished ListingStatus = "published"
	ListingSold      ListingStatus = "sold"
)

type Listing struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	SellerID uint   `gorm:"not null;index" json:"seller_id"`
	Title    string `gorm:"not null" json:"title"`
	Location string `json:"location"`

	TotalUnits     int     `gorm:"not null" json:"total_units"`
	AvailableUnits int     `gorm:"not null" json:"available_units"`
	UnitPrice      float64 `gorm:"type:decimal(12,2)" json:"unit_price"`
	TotalPrice     float64 `gorm:"type:decimal(12,2)" json:"total_price"`

	// TotalAreaSize shrinks as plots are released; OriginalAreaSize is
	// fixed at creation so per-plot area stays constant.
	TotalAreaSize    float64 `gorm:"type:decimal(12,2)" json:"total_area_size"`
	OriginalAreaSize float64 `gorm:"type:decimal(12,2)" json:"original_area_size"`

	Status    ListingStatus  `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Seller   User                 `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Packages []InstallmentPackage `gorm:"foreignKey:ListingID" json:"packages,omitempty"`
}

func (Listing) TableName() string {
	return "listings"
}

// ResolvedUnitPrice returns the explicit per-unit price when the seller set
// one, otherwise the total price spread evenly across all units.
func (l *Listing) ResolvedUnitPrice() float64 {
	if l.UnitPrice > 0 {
		return l.UnitPrice
	}
	if l.TotalUnits == 0 {
		return 0
	}
	return l.TotalPrice / float64(l.TotalUnits)
}

// InstallmentPackage is a seller-configured financing plan for a listing.
type InstallmentPackage struct {
	ID             uint    `gorm:"primarykey" json:"id"`
	ListingID      uint    `gorm:"not null;index" json:"listing_id"`
	Name           string  `json:"name"`
	DurationMonths int     `gorm:"not null" json:"duration_months"`
	InterestRate   float64 `gorm:"type:decimal(5,2);not null" json:"interest_rate"`
	DepositPercent float64 `gorm:"type:decimal(5,2);not null" json:"deposit_percent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (InstallmentPackage) TableName() string {
	return "installment_packages"
}
