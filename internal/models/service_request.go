package models

import (
	"time"

	"gorm.io/gorm"
)

type ServiceRequestStatus string

const (
	ServicePending      ServiceRequestStatus = "pending"
	ServiceAccepted     ServiceRequestStatus = "accepted"
	ServiceEscrowFunded ServiceRequestStatus = "escrow_funded"
	ServiceInProgress   ServiceRequestStatus = "in_progress"
	ServiceDelivered    ServiceRequestStatus = "delivered"
	ServiceCompleted    ServiceRequestStatus = "completed"
	ServiceCancelled    ServiceRequestStatus = "cancelled"
	ServiceDisputed     ServiceRequestStatus = "disputed"
)

func (s ServiceRequestStatus) IsTerminal() bool {
	return s == ServiceCompleted || s == ServiceCancelled
}

type ServicePaymentStatus string

const (
	ServiceUnpaid       ServicePaymentStatus = "unpaid"
	ServicePaidToEscrow ServicePaymentStatus = "escrow_funded"
	ServicePaidOut      ServicePaymentStatus = "released"
	ServiceRefunded     ServicePaymentStatus = "refunded"
)

// ServiceRequest is the escrow wrapper around a professional-service
// engagement between a client and a professional.
type ServiceRequest struct {
	ID               uint             `gorm:"primarykey" json:"id"`
	ClientID         uint             `gorm:"not null;index" json:"client_id"`
	ProfessionalID   uint             `gorm:"not null;index" json:"professional_id"`
	ProfessionalType ProfessionalType `gorm:"type:varchar(30);not null" json:"professional_type"`
	Title            string           `gorm:"not null" json:"title"`
	Description      string           `gorm:"type:text" json:"description"`

	Status        ServiceRequestStatus `gorm:"type:varchar(30);not null;default:'pending'" json:"status"`
	PaymentStatus ServicePaymentStatus `gorm:"type:varchar(30);not null;default:'unpaid'" json:"payment_status"`

	AgreedPrice     float64 `gorm:"type:decimal(12,2)" json:"agreed_price"`
	PlatformFee     float64 `gorm:"type:decimal(12,2)" json:"platform_fee"`
	ProfessionalNet float64 `gorm:"type:decimal(12,2)" json:"professional_net"`

	ClientConfirmedWork       bool `gorm:"default:false" json:"client_confirmed_work"`
	ProfessionalConfirmedWork bool `gorm:"default:false" json:"professional_confirmed_work"`

	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Client        User                     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Professional  User                     `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
	Confirmations []ServiceConfirmation    `gorm:"foreignKey:ServiceRequestID" json:"confirmations,omitempty"`
	Documents     []ServiceRequestDocument `gorm:"foreignKey:ServiceRequestID" json:"documents,omitempty"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}

type ConfirmationRole string

const (
	ConfirmedByClient       ConfirmationRole = "client"
	ConfirmedByProfessional ConfirmationRole = "professional"
	ConfirmedByAdmin        ConfirmationRole = "admin"
)

type ConfirmationType string

const (
	ConfirmDocumentsReceived    ConfirmationType = "documents_received"
	ConfirmWorkStarted          ConfirmationType = "work_started"
	ConfirmDeliverablesUploaded ConfirmationType = "deliverables_uploaded"
	ConfirmWorkAccepted         ConfirmationType = "work_accepted"
	ConfirmDisputeResolved      ConfirmationType = "dispute_resolved"
)

// ServiceConfirmation records a role-tagged checkpoint. The unique index
// makes each confirmation type happen at most once per request.
type ServiceConfirmation struct {
	ID               uint             `gorm:"primarykey" json:"id"`
	ServiceRequestID uint             `gorm:"not null;uniqueIndex:idx_confirmation_request_type" json:"service_request_id"`
	Role             ConfirmationRole `gorm:"type:varchar(20);not null" json:"role"`
	Type             ConfirmationType `gorm:"type:varchar(40);not null;uniqueIndex:idx_confirmation_request_type" json:"type"`
	Note             string           `gorm:"type:text" json:"note,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (ServiceConfirmation) TableName() string {
	return "service_confirmations"
}

type DocumentType string

const (
	DocumentInput       DocumentType = "input"
	DocumentDeliverable DocumentType = "deliverable"
	DocumentReference   DocumentType = "reference"
	DocumentContract    DocumentType = "contract"
)

type DocumentCategory string

const (
	CategoryLandTitle         DocumentCategory = "land_title"
	CategoryProofOfOwnership  DocumentCategory = "proof_of_ownership"
	CategoryIDDocument        DocumentCategory = "id_document"
	CategorySurveyPlan        DocumentCategory = "survey_plan"
	CategorySitePlan          DocumentCategory = "site_plan"
	CategoryLegalReport       DocumentCategory = "legal_report"
	CategoryContractAgreement DocumentCategory = "contract_agreement"
	CategoryBuildingDesign    DocumentCategory = "building_design"
)

type ServiceRequestDocument struct {
	ID               uint             `gorm:"primarykey" json:"id"`
	ServiceRequestID uint             `gorm:"not null;index" json:"service_request_id"`
	UploadedBy       uint             `gorm:"not null" json:"uploaded_by"`
	Type             DocumentType     `gorm:"type:varchar(20);not null" json:"type"`
	Category         DocumentCategory `gorm:"type:varchar(40);not null" json:"category"`
	FileURL          string           `gorm:"type:text;not null" json:"file_url"`
	FilePublicID     string           `gorm:"type:text" json:"file_public_id,omitempty"`
	FileName         string           `gorm:"type:varchar(255)" json:"file_name,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (ServiceRequestDocument) TableName() string {
	return "service_request_documents"
}

// Review is a client's one-per-request rating of a completed engagement.
type Review struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	ServiceRequestID uint      `gorm:"not null;uniqueIndex:idx_review_request_reviewer" json:"service_request_id"`
	ReviewerID       uint      `gorm:"not null;uniqueIndex:idx_review_request_reviewer" json:"reviewer_id"`
	Rating           int       `gorm:"not null" json:"rating"`
	Comment          string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
