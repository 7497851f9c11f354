package models

import (
	"time"

	"gorm.io/gorm"
)

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// DisputeResolution is the admin action that closes a dispute. Each maps to
// a terminal transaction status.
type DisputeResolution string

const (
	ResolutionReleaseToSeller DisputeResolution = "release_to_seller"
	ResolutionRefundToBuyer   DisputeResolution = "refund_to_buyer"
	ResolutionPartialRefund   DisputeResolution = "partial_refund"
)

type Dispute struct {
	ID             uint              `gorm:"primarykey" json:"id"`
	TransactionID  uint              `gorm:"not null;index" json:"transaction_id"`
	RaisedBy       uint              `gorm:"not null;index" json:"raised_by"`
	Reason         string            `gorm:"type:varchar(100);not null" json:"reason"`
	Description    string            `gorm:"type:text" json:"description,omitempty"`
	Status         DisputeStatus     `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	Resolution     DisputeResolution `gorm:"type:varchar(30)" json:"resolution,omitempty"`
	ResolutionNote string            `gorm:"type:text" json:"resolution_note,omitempty"`
	RefundAmount   float64           `gorm:"type:decimal(12,2)" json:"refund_amount,omitempty"`
	ResolvedBy     *uint             `gorm:"index" json:"resolved_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	DeletedAt      gorm.DeletedAt    `gorm:"index" json:"-"`

	Transaction Transaction `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
	User        User        `gorm:"foreignKey:RaisedBy" json:"user,omitempty"`
}

func (Dispute) TableName() string {
	return "disputes"
}
