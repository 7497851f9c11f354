package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentType string

const (
	PaymentOneTime     PaymentType = "one_time"
	PaymentInstallment PaymentType = "installment"
)

type TransactionStatus string

const (
	TransactionCreated            TransactionStatus = "created"
	TransactionEscrowFunded       TransactionStatus = "escrow_funded"
	TransactionVerificationPeriod TransactionStatus = "verification_period"
	TransactionDisputed           TransactionStatus = "disputed"
	TransactionReadyToRelease     TransactionStatus = "ready_to_release"
	TransactionReleased           TransactionStatus = "released"
	TransactionRefunded           TransactionStatus = "refunded"
	TransactionCompleted          TransactionStatus = "completed"
	TransactionCancelled          TransactionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionReleased, TransactionRefunded, TransactionCompleted, TransactionCancelled:
		return true
	}
	return false
}

// EscrowState tracks where the buyer's funds sit, subordinate to Status.
type EscrowState string

const (
	EscrowPending  EscrowState = "pending"
	EscrowFunded   EscrowState = "funded"
	EscrowReleased EscrowState = "released"
	EscrowRefunded EscrowState = "refunded"
)

// Transaction is one purchase attempt for PlotCount units of a listing.
type Transaction struct {
	ID        uint `gorm:"primarykey" json:"id"`
	ListingID uint `gorm:"not null;index" json:"listing_id"`
	BuyerID   uint `gorm:"not null;index" json:"buyer_id"`
	SellerID  uint `gorm:"not null;index" json:"seller_id"`

	AgreedPrice float64 `gorm:"type:decimal(12,2);not null" json:"agreed_price"`
	PlatformFee float64 `gorm:"type:decimal(12,2);not null" json:"platform_fee"`
	SellerNet   float64 `gorm:"type:decimal(12,2);not null" json:"seller_net"`
	PlotCount   int     `gorm:"not null" json:"plot_count"`

	PaymentType  PaymentType       `gorm:"type:varchar(20);not null" json:"payment_type"`
	Status       TransactionStatus `gorm:"type:varchar(30);not null;default:'created'" json:"status"`
	EscrowStatus EscrowState       `gorm:"type:varchar(20);not null;default:'pending'" json:"escrow_status"`

	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Listing      Listing            `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	Buyer        User               `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller       User               `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Payments     []Payment          `gorm:"foreignKey:TransactionID" json:"payments,omitempty"`
	Installments []InstallmentEntry `gorm:"foreignKey:TransactionID" json:"installments,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

type InstallmentEntryType string

const (
	InstallmentDeposit InstallmentEntryType = "deposit"
	InstallmentMonthly InstallmentEntryType = "monthly"
)

type InstallmentEntryStatus string

const (
	InstallmentPending InstallmentEntryStatus = "pending"
	InstallmentPaid    InstallmentEntryStatus = "paid"
)

// InstallmentEntry is one scheduled payment toward an installment
// transaction. Entry 0 is the initial deposit.
type InstallmentEntry struct {
	ID            uint                   `gorm:"primarykey" json:"id"`
	TransactionID uint                   `gorm:"not null;index" json:"transaction_id"`
	Number        int                    `gorm:"not null" json:"number"`
	Type          InstallmentEntryType   `gorm:"type:varchar(20);not null" json:"type"`
	Amount        float64                `gorm:"type:decimal(12,2);not null" json:"amount"`
	DueDate       time.Time              `gorm:"not null" json:"due_date"`
	Status        InstallmentEntryStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func (InstallmentEntry) TableName() string {
	return "installment_entries"
}
