package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentInitiated  PaymentStatus = "initiated"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// IsPending reports whether the payment still awaits a gateway outcome.
func (s PaymentStatus) IsPending() bool {
	return s == PaymentInitiated || s == PaymentProcessing
}

type PaymentPurpose string

const (
	PurposeEscrowDeposit PaymentPurpose = "escrow_deposit"
	PurposeInstallment   PaymentPurpose = "installment"
	PurposeServiceEscrow PaymentPurpose = "service_escrow"
)

// Payment is one attempted charge. Reference doubles as the idempotency key
// and as the client-supplied reference sent to the gateway, so an inbound
// webhook maps back to exactly one row.
type Payment struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	TransactionID    *uint          `gorm:"index" json:"transaction_id,omitempty"`
	ServiceRequestID *uint          `gorm:"index" json:"service_request_id,omitempty"`
	Amount           float64        `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type             PaymentPurpose `gorm:"type:varchar(30);not null" json:"type"`
	Status           PaymentStatus  `gorm:"type:varchar(20);not null;default:'initiated'" json:"status"`
	Provider         string         `gorm:"type:varchar(50)" json:"provider,omitempty"`
	ProviderRef      string         `json:"provider_ref,omitempty"`
	Reference        string         `gorm:"uniqueIndex;not null" json:"reference"`
	AuthorizationURL string         `gorm:"type:text" json:"authorization_url,omitempty"`
	Metadata         string         `gorm:"type:text" json:"metadata,omitempty"`
	PaidAt           *time.Time     `json:"paid_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.Reference == "" {
		p.Reference = uuid.NewString()
	}
	return nil
}
