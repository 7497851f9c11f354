package services

import (
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/apperrors"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
)

var pendingPaymentStatuses = []models.PaymentStatus{
	models.PaymentInitiated,
	models.PaymentProcessing,
}

// PaymentService maps gateway signals onto local state: it initiates charges
// (deduplicating pending ones) and reconciles webhook or polled outcomes
// into exactly one payment terminalization and at most one owning-record
// advance.
type PaymentService struct {
	db          *gorm.DB
	gateway     *PaystackService
	notifier    *NotificationService
	callbackURL string
}

func NewPaymentService(db *gorm.DB, gateway *PaystackService, notifier *NotificationService, callbackURL string) *PaymentService {
	return &PaymentService{db: db, gateway: gateway, notifier: notifier, callbackURL: callbackURL}
}

// InitiateDeposit starts (or returns the already-pending) charge toward a
// land transaction. For installment transactions the charge covers the
// earliest unpaid schedule entry.
func (s *PaymentService) InitiateDeposit(buyerID, txnID uint) (*models.Payment, error) {
	var txn models.Transaction
	if err := s.db.First(&txn, txnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("transaction not found")
		}
		return nil, err
	}
	if txn.BuyerID != buyerID {
		return nil, apperrors.Authorizationf("only the buyer can pay for this transaction")
	}
	if txn.Status.IsTerminal() {
		return nil, apperrors.StateConflictf("transaction %d is %s and cannot accept payments", txn.ID, txn.Status)
	}

	// A repeat initiation returns the pending payment instead of creating
	// a duplicate charge.
	var existing models.Payment
	err := s.db.Where("transaction_id = ? AND status IN ?", txn.ID, pendingPaymentStatuses).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	amount := txn.AgreedPrice
	purpose := models.PurposeEscrowDeposit

	if txn.PaymentType == models.PaymentInstallment {
		var entry models.InstallmentEntry
		err := s.db.Where("transaction_id = ? AND status = ?", txn.ID, models.InstallmentPending).
			Order("number ASC").First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.StateConflictf("transaction %d has no outstanding installments", txn.ID)
		}
		if err != nil {
			return nil, err
		}
		amount = entry.Amount
		if entry.Number > 0 {
			purpose = models.PurposeInstallment
		}
	}

	if purpose == models.PurposeEscrowDeposit && txn.Status != models.TransactionCreated {
		return nil, apperrors.StateConflictf("the escrow deposit for transaction %d has already been made", txn.ID)
	}

	var buyer models.User
	if err := s.db.First(&buyer, buyerID).Error; err != nil {
		return nil, err
	}

	return s.startCharge(models.Payment{
		TransactionID: &txn.ID,
		Amount:        amount,
		Type:          purpose,
	}, buyer.Email)
}

// InitiateServicePayment funds the escrow of an accepted service request.
func (s *PaymentService) InitiateServicePayment(clientID, requestID uint) (*models.Payment, error) {
	var req models.ServiceRequest
	if err := s.db.First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("service request not found")
		}
		return nil, err
	}
	if req.ClientID != clientID {
		return nil, apperrors.Authorizationf("only the client can fund this service request")
	}
	if req.Status != models.ServiceAccepted {
		return nil, apperrors.StateConflictf("service request %d is %s; only accepted requests can be funded", req.ID, req.Status)
	}

	var existing models.Payment
	err := s.db.Where("service_request_id = ? AND status IN ?", req.ID, pendingPaymentStatuses).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var client models.User
	if err := s.db.First(&client, clientID).Error; err != nil {
		return nil, err
	}

	return s.startCharge(models.Payment{
		ServiceRequestID: &req.ID,
		Amount:           req.AgreedPrice,
		Type:             models.PurposeServiceEscrow,
	}, client.Email)
}

// startCharge persists the payment, opens the hosted checkout and moves the
// payment to processing. A gateway failure marks the payment failed so no
// pending row is orphaned. A partial unique index allows at most one pending
// payment per owning record, so a concurrent initiation that loses the insert
// race falls back to the winner's pending charge.
func (s *PaymentService) startCharge(payment models.Payment, email string) (*models.Payment, error) {
	payment.Status = models.PaymentInitiated
	if err := s.db.Create(&payment).Error; err != nil {
		if winner, ferr := s.pendingPaymentFor(&payment); ferr == nil {
			return winner, nil
		}
		return nil, err
	}

	resp, err := s.gateway.InitializePayment(email, payment.Amount, payment.Reference, s.callbackURL+"/api/payments/callback")
	if err != nil {
		s.db.Model(&payment).Update("status", models.PaymentFailed)
		return nil, apperrors.Validationf("payment gateway rejected the charge: %v", err)
	}

	updates := map[string]interface{}{
		"status":            models.PaymentProcessing,
		"provider":          "paystack",
		"provider_ref":      resp.Data.AccessCode,
		"authorization_url": resp.Data.AuthorizationURL,
	}
	if err := s.db.Model(&payment).Updates(updates).Error; err != nil {
		return nil, err
	}

	payment.Status = models.PaymentProcessing
	payment.Provider = "paystack"
	payment.ProviderRef = resp.Data.AccessCode
	payment.AuthorizationURL = resp.Data.AuthorizationURL
	return &payment, nil
}

// pendingPaymentFor finds the pending payment that owns the same transaction
// or service request as the rejected insert.
func (s *PaymentService) pendingPaymentFor(payment *models.Payment) (*models.Payment, error) {
	q := s.db.Where("status IN ?", pendingPaymentStatuses)
	switch {
	case payment.TransactionID != nil:
		q = q.Where("transaction_id = ?", *payment.TransactionID)
	case payment.ServiceRequestID != nil:
		q = q.Where("service_request_id = ?", *payment.ServiceRequestID)
	default:
		return nil, gorm.ErrRecordNotFound
	}
	var existing models.Payment
	if err := q.First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// HandleWebhook applies a normalized gateway event. Unknown or missing
// references are acknowledged and dropped: gateways retry on non-2xx, and
// erroring here would only cause redelivery of something we cannot use.
func (s *PaymentService) HandleWebhook(event *WebhookEvent) (*models.Payment, error) {
	if event.Reference == "" {
		log.Warn("webhook without a transaction reference, ignoring")
		return nil, nil
	}

	var payment models.Payment
	if err := s.db.Where("reference = ?", event.Reference).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("webhook for unknown reference %s, ignoring", event.Reference)
			return nil, nil
		}
		return nil, err
	}

	return s.applyResult(&payment, event.Success, event.Raw)
}

// VerifyAndReconcile is the pull path: poll the gateway for the outcome and
// apply it exactly like a webhook would. A gateway failure leaves the
// payment pending and eligible for another poll.
func (s *PaymentService) VerifyAndReconcile(reference string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Where("reference = ?", reference).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("payment not found")
		}
		return nil, err
	}

	resp, err := s.gateway.VerifyPayment(reference)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(resp.Data)
	return s.applyResult(&payment, resp.Data.Status == "success", raw)
}

// applyResult terminalizes the payment and, when the charge succeeded,
// advances the owning record. The status predicate on the payment UPDATE is
// the serialization point: of N duplicate deliveries exactly one crosses it,
// so the owning record advances at most once.
func (s *PaymentService) applyResult(payment *models.Payment, success bool, raw json.RawMessage) (*models.Payment, error) {
	if !payment.Status.IsPending() {
		// Already terminal: duplicate delivery is a no-op, not an error.
		return payment, nil
	}

	newStatus := models.PaymentFailed
	if success {
		newStatus = models.PaymentCompleted
	}
	now := time.Now()
	advanced := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":   newStatus,
			"metadata": appendMetadata(payment.Metadata, raw),
		}
		if success {
			updates["paid_at"] = &now
		}

		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status IN ?", payment.ID, pendingPaymentStatuses).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent delivery won the race.
			return nil
		}
		advanced = true

		if !success {
			return nil
		}

		switch payment.Type {
		case models.PurposeEscrowDeposit:
			if payment.TransactionID == nil {
				return nil
			}
			if err := tx.Model(&models.Transaction{}).
				Where("id = ? AND status = ?", *payment.TransactionID, models.TransactionCreated).
				Updates(map[string]interface{}{
					"status":        models.TransactionEscrowFunded,
					"escrow_status": models.EscrowFunded,
				}).Error; err != nil {
				return err
			}
			return markInstallmentPaid(tx, *payment.TransactionID)

		case models.PurposeInstallment:
			if payment.TransactionID == nil {
				return nil
			}
			return markInstallmentPaid(tx, *payment.TransactionID)

		case models.PurposeServiceEscrow:
			if payment.ServiceRequestID == nil {
				return nil
			}
			return tx.Model(&models.ServiceRequest{}).
				Where("id = ? AND status = ?", *payment.ServiceRequestID, models.ServiceAccepted).
				Updates(map[string]interface{}{
					"status":         models.ServiceEscrowFunded,
					"payment_status": models.ServicePaidToEscrow,
				}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.First(payment, payment.ID).Error; err != nil {
		return nil, err
	}

	if advanced && success {
		s.notifyFunded(payment)
	}
	return payment, nil
}

func markInstallmentPaid(tx *gorm.DB, transactionID uint) error {
	var entry models.InstallmentEntry
	err := tx.Where("transaction_id = ? AND status = ?", transactionID, models.InstallmentPending).
		Order("number ASC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Model(&entry).Update("status", models.InstallmentPaid).Error
}

func (s *PaymentService) notifyFunded(payment *models.Payment) {
	switch {
	case payment.TransactionID != nil:
		var txn models.Transaction
		if err := s.db.First(&txn, *payment.TransactionID).Error; err != nil {
			return
		}
		if err := s.notifier.Notify(txn.SellerID, models.NotificationEscrowFunded, map[string]interface{}{
			"transaction_id": txn.ID,
			"amount":         payment.Amount,
		}); err != nil {
			log.Warnf("funding notification failed for transaction %d: %v", txn.ID, err)
		}
	case payment.ServiceRequestID != nil:
		var req models.ServiceRequest
		if err := s.db.First(&req, *payment.ServiceRequestID).Error; err != nil {
			return
		}
		if err := s.notifier.Notify(req.ProfessionalID, models.NotificationServiceFunded, map[string]interface{}{
			"request_id": req.ID,
			"amount":     payment.Amount,
		}); err != nil {
			log.Warnf("funding notification failed for service request %d: %v", req.ID, err)
		}
	}
}

// appendMetadata keeps every raw gateway payload seen for a payment,
// newline-separated, oldest first.
func appendMetadata(existing string, raw json.RawMessage) string {
	if len(raw) == 0 {
		return existing
	}
	if existing == "" {
		return string(raw)
	}
	return existing + "\n" + string(raw)
}
