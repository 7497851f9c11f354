package services

import (
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/models"
)

// NotificationService delivers template-keyed messages to users: an in-app
// notification row plus an email when an email channel is configured.
// Delivery is best-effort; callers must never fail a committed transition
// because a notification could not be sent.
type NotificationService struct {
	db    *gorm.DB
	email *EmailService
}

func NewNotificationService(db *gorm.DB, email *EmailService) *NotificationService {
	return &NotificationService{db: db, email: email}
}

type notificationTemplate struct {
	Title   string
	Message string
}

// Placeholders in Message are expanded from the vars map as {name}.
var notificationTemplates = map[models.NotificationType]notificationTemplate{
	models.NotificationPurchaseInitiated:   {"Purchase Initiated", "Your purchase of {plot_count} plot(s) for GH₵{amount} has been created. Complete payment to fund the escrow."},
	models.NotificationEscrowFunded:        {"Escrow Funded", "GH₵{amount} has been received into escrow for transaction #{transaction_id}."},
	models.NotificationEscrowReleased:      {"Funds Released", "Escrow for transaction #{transaction_id} has been released. GH₵{amount} is on its way to the seller."},
	models.NotificationEscrowRefunded:      {"Escrow Refunded", "Escrow for transaction #{transaction_id} has been refunded to the buyer."},
	models.NotificationTransactionDisputed: {"Dispute Raised", "A dispute has been raised on transaction #{transaction_id}: {reason}"},
	models.NotificationDisputeResolved:     {"Dispute Resolved", "The dispute on transaction #{transaction_id} was resolved: {resolution}"},
	models.NotificationServiceRequested:    {"New Service Request", "{client_name} has requested your services: {title}"},
	models.NotificationServiceAccepted:     {"Service Request Accepted", "Your service request has been accepted at GH₵{amount}. Fund the escrow to proceed."},
	models.NotificationServiceFunded:       {"Service Escrow Funded", "GH₵{amount} has been received into escrow for service request #{request_id}. Work can begin."},
	models.NotificationServiceDelivered:    {"Deliverables Ready", "The professional has delivered work on service request #{request_id}. Please review."},
	models.NotificationServiceReleased:     {"Service Payment Released", "Payment for service request #{request_id} has been released."},

	models.NotificationServiceDisputeResolved: {"Service Dispute Resolved", "The dispute on service request #{request_id} was resolved: {resolution}."},
}

// Notify renders the template for key and stores it for the user. Errors are
// returned for the caller to log; they carry no transactional weight.
func (s *NotificationService) Notify(userID uint, key models.NotificationType, vars map[string]interface{}) error {
	tmpl, ok := notificationTemplates[key]
	if !ok {
		return fmt.Errorf("unknown notification template: %s", key)
	}

	message := expandVars(tmpl.Message, vars)

	var dataJSON string
	if vars != nil {
		jsonBytes, err := json.Marshal(vars)
		if err != nil {
			return fmt.Errorf("failed to marshal notification data: %w", err)
		}
		dataJSON = string(jsonBytes)
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    key,
		Title:   tmpl.Title,
		Message: message,
		Data:    dataJSON,
		IsRead:  false,
	}

	if err := s.db.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if s.email != nil {
		var user models.User
		if err := s.db.First(&user, userID).Error; err == nil && user.Email != "" {
			if err := s.email.SendNotificationEmail(user.Email, tmpl.Title, message); err != nil {
				log.Warnf("email delivery failed for user %d: %v", userID, err)
			}
		}
	}

	return nil
}

func expandVars(message string, vars map[string]interface{}) string {
	for k, v := range vars {
		message = strings.ReplaceAll(message, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	return message
}
