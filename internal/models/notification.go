package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationPurchaseInitiated   NotificationType = "purchase_initiated"
	NotificationEscrowFunded        NotificationType = "escrow_funded"
	NotificationEscrowReleased      NotificationType = "escrow_released"
	NotificationEscrowRefunded      NotificationType = "escrow_refunded"
	NotificationTransactionDisputed NotificationType = "transaction_disputed"
	NotificationDisputeResolved     NotificationType = "dispute_resolved"
	NotificationServiceRequested    NotificationType = "service_requested"
	NotificationServiceAccepted     NotificationType = "service_accepted"
	NotificationServiceFunded       NotificationType = "service_funded"
	NotificationServiceDelivered    NotificationType = "service_delivered"
	NotificationServiceReleased     NotificationType = "service_released"

	NotificationServiceDisputeResolved NotificationType = "service_dispute_resolved"
)

type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"user_id" gorm:"not null;index"`
	Type      NotificationType `json:"type" gorm:"type:varchar(50);not null"`
	Title     string           `json:"title" gorm:"type:varchar(255);not null"`
	Message   string           `json:"message" gorm:"type:text;not null"`
	IsRead    bool             `json:"is_read" gorm:"default:false;index"`
	Data      string           `json:"data" gorm:"type:text"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	n.CreatedAt = time.Now()
	return nil
}
