package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/apperrors"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
)

func newPaymentFixture(t *testing.T) (*gorm.DB, *EscrowService, *PaymentService) {
	t.Helper()
	db := setupTestDB(t)
	notifier := NewNotificationService(db, nil)
	gateway := NewPaystackService("", time.Second)
	escrow := NewEscrowService(db, 2.5, gateway, notifier)
	payments := NewPaymentService(db, gateway, notifier, "http://localhost:8080")
	return db, escrow, payments
}

func successEvent(reference string) *WebhookEvent {
	return &WebhookEvent{
		Reference: reference,
		Success:   true,
		Raw:       json.RawMessage(`{"reference":"` + reference + `","status":"success"}`),
	}
}

func TestInitiateDeposit(t *testing.T) {
	db, escrow, payments := newPaymentFixture(t)
	seller := createUser(t, db, "Ama Seller", "ama@example.com")
	buyer := createUser(t, db, "Kofi Buyer", "kofi@example.com")
	listing := createListing(t, db, seller.ID, 10, 100, 50)

	txn, err := escrow.CreateTransaction(buyer.ID, CreatePurchaseInput{
		ListingID: listing.ID, PlotCount: 3, PaymentType: models.PaymentOneTime,
	})
	require.NoError(t, err)

	t.Run("only the buyer can pay", func(t *testing.T) {
		_, err := payments.InitiateDeposit(seller.ID, txn.ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.Authorization, apperrors.KindOf(err))
	})

	t.Run("initiation opens a processing charge for the full price", func(t *testing.T) {
		payment, err := payments.InitiateDeposit(buyer.ID, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentProcessing, payment.Status)
		assert.Equal(t, models.PurposeEscrowDeposit, payment.Type)
		assert.Equal(t, 300.0, payment.Amount)
		assert.NotEmpty(t, payment.Reference)
		assert.NotEmpty(t, payment.AuthorizationURL)
	})

	t.Run("repeat initiation returns the pending charge", func(t *testing.T) {
		first, err := payments.InitiateDeposit(buyer.ID, txn.ID)
		require.NoError(t, err)
		second, err := payments.InitiateDeposit(buyer.ID, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Reference, second.Reference)

		var count int64
		db.Model(&models.Payment{}).Where("transaction_id = ?", txn.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("terminal transactions accept no payments", func(t *testing.T) {
		cancelled := models.Transaction{
			ListingID: listing.ID, BuyerID: buyer.ID, SellerID: seller.ID,
			AgreedPrice: 100, PlotCount: 1,
			PaymentType: models.PaymentOneTime,
			Status:      models.TransactionCancelled,
		}
		require.NoError(t, db.Create(&cancelled).Error)

		_, err := payments.InitiateDeposit(buyer.ID, cancelled.ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})
}

func TestPendingPaymentUniqueness(t *testing.T) {
	db, escrow, payments := newPaymentFixture(t)
	seller := createUser(t, db, "Ama Seller", "ama@example.com")
	buyer := createUser(t, db, "Kofi Buyer", "kofi@example.com")
	listing := createListing(t, db, seller.ID, 10, 100, 50)

	txn, err := escrow.CreateTransaction(buyer.ID, CreatePurchaseInput{
		ListingID: listing.ID, PlotCount: 2, PaymentType: models.PaymentOneTime,
	})
	require.NoError(t, err)
	pending, err := payments.InitiateDeposit(buyer.ID, txn.ID)
	require.NoError(t, err)

	t.Run("the schema rejects a second pending charge for the transaction", func(t *testing.T) {
		dup := models.Payment{
			TransactionID: &txn.ID,
			Amount:        txn.AgreedPrice,
			Type:          models.PurposeEscrowDeposit,
			Status:        models.PaymentInitiated,
		}
		require.Error(t, db.Create(&dup).Error)
	})

	t.Run("an insert that loses the race returns the pending charge", func(t *testing.T) {
		fallback, err := payments.startCharge(models.Payment{
			TransactionID: &txn.ID,
			Amount:        txn.AgreedPrice,
			Type:          models.PurposeEscrowDeposit,
		}, buyer.Email)
		require.NoError(t, err)
		assert.Equal(t, pending.Reference, fallback.Reference)

		var count int64
		db.Model(&models.Payment{}).Where("transaction_id = ?", txn.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("a terminal payment frees the slot", func(t *testing.T) {
		_, err := payments.HandleWebhook(&WebhookEvent{
			Reference: pending.Reference,
			Success:   false,
			Raw:       json.RawMessage(`{"status":"failed"}`),
		})
		require.NoError(t, err)

		retry, err := payments.InitiateDeposit(buyer.ID, txn.ID)
		require.NoError(t, err)
		assert.NotEqual(t, pending.Reference, retry.Reference)
	})
}

func TestWebhookReconciliation(t *testing.T) {
	db, escrow, payments := newPaymentFixture(t)
	seller := createUser(t, db, "Ama Seller", "ama@example.com")
	buyer := createUser(t, db, "Kofi Buyer", "kofi@example.com")
	listing := createListing(t, db, seller.ID, 10, 100, 50)

	txn, err := escrow.CreateTransaction(buyer.ID, CreatePurchaseInput{
		ListingID: listing.ID, PlotCount: 2, PaymentType: models.PaymentOneTime,
	})
	require.NoError(t, err)
	payment, err := payments.InitiateDeposit(buyer.ID, txn.ID)
	require.NoError(t, err)

	t.Run("success funds the transaction exactly once", func(t *testing.T) {
		event := successEvent(payment.Reference)
		for i := 0; i < 3; i++ {
			applied, err := payments.HandleWebhook(event)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentCompleted, applied.Status)
		}

		var fresh models.Transaction
		db.First(&fresh, txn.ID)
		assert.Equal(t, models.TransactionEscrowFunded, fresh.Status)
		assert.Equal(t, models.EscrowFunded, fresh.EscrowStatus)

		// The funding notification fires once, not once per delivery.
		var notifications int64
		db.Model(&models.Notification{}).
			Where("user_id = ? AND type = ?", seller.ID, models.NotificationEscrowFunded).
			Count(&notifications)
		assert.EqualValues(t, 1, notifications)

		var paid models.Payment
		db.First(&paid, payment.ID)
		require.NotNil(t, paid.PaidAt)
	})

	t.Run("unknown reference is acknowledged and dropped", func(t *testing.T) {
		applied, err := payments.HandleWebhook(successEvent("no-such-reference"))
		require.NoError(t, err)
		assert.Nil(t, applied)
	})

	t.Run("empty reference is acknowledged and dropped", func(t *testing.T) {
		applied, err := payments.HandleWebhook(&WebhookEvent{})
		require.NoError(t, err)
		assert.Nil(t, applied)
	})
}

func TestWebhookFailure(t *testing.T) {
	db, escrow, payments := newPaymentFixture(t)
	seller := createUser(t, db, "Ama Seller", "ama@example.com")
	buyer := createUser(t, db, "Kofi Buyer", "kofi@example.com")
	listing := createListing(t, db, seller.ID, 10, 100, 50)

	txn, err := escrow.CreateTransaction(buyer.ID, CreatePurchaseInput{
		ListingID: listing.ID, PlotCount: 2, PaymentType: models.PaymentOneTime,
	})
	require.NoError(t, err)
	payment, err := payments.InitiateDeposit(buyer.ID, txn.ID)
	require.NoError(t, err)

	applied, err := payments.HandleWebhook(&WebhookEvent{
		Reference: payment.Reference,
		Success:   false,
		Raw:       json.RawMessage(`{"status":"failed"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, applied.Status)
	assert.Nil(t, applied.PaidAt)

	// The transaction stays payable.
	var fresh models.Transaction
	db.First(&fresh, txn.ID)
	assert.Equal(t, models.TransactionCreated, fresh.Status)
	assert.Equal(t, models.EscrowPending, fresh.EscrowStatus)

	// A new charge can be opened after the failure.
	retry, err := payments.InitiateDeposit(buyer.ID, txn.ID)
	require.NoError(t, err)
	assert.NotEqual(t, payment.Reference, retry.Reference)
}

func TestVerifyAndReconcile(t *testing.T) {
	db, escrow, payments := newPaymentFixture(t)
	seller := createUser(t, db, "Ama Seller", "ama@example.com")
	buyer := createUser(t, db, "Kofi Buyer", "kofi@example.com")
	listing := createListing(t, db, seller.ID, 10, 100, 50)

	txn, err := escrow.CreateTransaction(buyer.ID, CreatePurchaseInput{
		ListingID: listing.ID, PlotCount: 1, PaymentType: models.PaymentOneTime,
	})
	require.NoError(t, err)
	payment, err := payments.InitiateDeposit(buyer.ID, txn.ID)
	require.NoError(t, err)

	t.Run("unknown reference", func(t *testing.T) {
		_, err := payments.VerifyAndReconcile("missing")
		require.Error(t, err)
		assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
	})

	t.Run("poll path funds like a webhook", func(t *testing.T) {
		applied, err := payments.VerifyAndReconcile(payment.Reference)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCompleted, applied.Status)

		var fresh models.Transaction
		db.First(&fresh, txn.ID)
		assert.Equal(t, models.TransactionEscrowFunded, fresh.Status)
	})

	t.Run("verifying an already-terminal payment is a no-op", func(t *testing.T) {
		applied, err := payments.VerifyAndReconcile(payment.Reference)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCompleted, applied.Status)
	})
}

func TestInstallmentPaymentFlow(t *testing.T) {
	db, escrow, payments := newPaymentFixture(t)
	seller := createUser(t, db, "Ama Seller", "ama@example.com")
	buyer := createUser(t, db, "Kofi Buyer", "kofi@example.com")
	listing := createListing(t, db, seller.ID, 10, 1000, 50)

	pkg := models.InstallmentPackage{
		ListingID: listing.ID, DurationMonths: 4, InterestRate: 10, DepositPercent: 20,
	}
	require.NoError(t, db.Create(&pkg).Error)

	txn, err := escrow.CreateTransaction(buyer.ID, CreatePurchaseInput{
		ListingID:            listing.ID,
		PlotCount:            1,
		PaymentType:          models.PaymentInstallment,
		InstallmentPackageID: pkg.ID,
	})
	require.NoError(t, err)

	// Deposit: charges entry 0 and funds the escrow.
	deposit, err := payments.InitiateDeposit(buyer.ID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurposeEscrowDeposit, deposit.Type)
	assert.Equal(t, 220.0, deposit.Amount)

	_, err = payments.HandleWebhook(successEvent(deposit.Reference))
	require.NoError(t, err)

	var fresh models.Transaction
	db.First(&fresh, txn.ID)
	assert.Equal(t, models.TransactionEscrowFunded, fresh.Status)

	var entry0 models.InstallmentEntry
	db.Where("transaction_id = ? AND number = 0", txn.ID).First(&entry0)
	assert.Equal(t, models.InstallmentPaid, entry0.Status)

	// First monthly: charges entry 1, transaction status unchanged.
	monthly, err := payments.InitiateDeposit(buyer.ID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurposeInstallment, monthly.Type)
	assert.Equal(t, 220.0, monthly.Amount)

	_, err = payments.HandleWebhook(successEvent(monthly.Reference))
	require.NoError(t, err)

	var entry1 models.InstallmentEntry
	db.Where("transaction_id = ? AND number = 1", txn.ID).First(&entry1)
	assert.Equal(t, models.InstallmentPaid, entry1.Status)

	db.First(&fresh, txn.ID)
	assert.Equal(t, models.TransactionEscrowFunded, fresh.Status)

	var pending int64
	db.Model(&models.InstallmentEntry{}).
		Where("transaction_id = ? AND status = ?", txn.ID, models.InstallmentPending).
		Count(&pending)
	assert.EqualValues(t, 3, pending)
}
