package services

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/apperrors"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
	"github.com/PeterAforo/ghanaland-sub000/internal/pricing"
	"github.com/PeterAforo/ghanaland-sub000/internal/statemachine"
)

// TransactionTransitions is the land-purchase lifecycle. Funding comes only
// from payment reconciliation (ActorSystem); release and dispute resolution
// are admin actions.
var TransactionTransitions = statemachine.Table{
	string(models.TransactionCreated): {
		{To: string(models.TransactionCancelled), Actors: []statemachine.Actor{statemachine.ActorBuyer}},
		{To: string(models.TransactionEscrowFunded), Actors: []statemachine.Actor{statemachine.ActorSystem}},
	},
	string(models.TransactionEscrowFunded): {
		{To: string(models.TransactionVerificationPeriod), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
		{To: string(models.TransactionReadyToRelease), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
		{To: string(models.TransactionReleased), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
		{To: string(models.TransactionDisputed), Actors: []statemachine.Actor{statemachine.ActorBuyer, statemachine.ActorSeller}},
	},
	string(models.TransactionVerificationPeriod): {
		{To: string(models.TransactionReadyToRelease), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
		{To: string(models.TransactionReleased), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
		{To: string(models.TransactionDisputed), Actors: []statemachine.Actor{statemachine.ActorBuyer, statemachine.ActorSeller}},
	},
	string(models.TransactionReadyToRelease): {
		{To: string(models.TransactionReleased), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
	},
	string(models.TransactionDisputed): {
		{To: string(models.TransactionReleased), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
		{To: string(models.TransactionRefunded), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
		{To: string(models.TransactionCompleted), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
	},
}

var nonTerminalStatuses = []models.TransactionStatus{
	models.TransactionCreated,
	models.TransactionEscrowFunded,
	models.TransactionVerificationPeriod,
	models.TransactionDisputed,
	models.TransactionReadyToRelease,
}

// releasableStatuses are the states an ordinary release may act on. A
// disputed transaction is excluded: its escrow only moves through dispute
// resolution.
var releasableStatuses = []models.TransactionStatus{
	models.TransactionEscrowFunded,
	models.TransactionVerificationPeriod,
	models.TransactionReadyToRelease,
}

// EscrowService owns the land-purchase transaction lifecycle: creation with
// inventory/pricing checks, buyer cancellation, disputes, and the
// exactly-once release side effects.
type EscrowService struct {
	db         *gorm.DB
	feePercent float64
	gateway    *PaystackService
	notifier   *NotificationService
}

func NewEscrowService(db *gorm.DB, feePercent float64, gateway *PaystackService, notifier *NotificationService) *EscrowService {
	return &EscrowService{db: db, feePercent: feePercent, gateway: gateway, notifier: notifier}
}

type CreatePurchaseInput struct {
	ListingID            uint               `json:"listing_id" validate:"required"`
	PlotCount            int                `json:"plot_count" validate:"required,gte=1"`
	PaymentType          models.PaymentType `json:"payment_type" validate:"required,oneof=one_time installment"`
	InstallmentPackageID uint               `json:"installment_package_id"`
}

// CreateTransaction reserves inventory for a buyer. Creation is idempotent:
// an existing non-terminal transaction for the same listing, buyer and
// payment type with no completed payments is returned as-is.
func (s *EscrowService) CreateTransaction(buyerID uint, in CreatePurchaseInput) (*models.Transaction, error) {
	var listing models.Listing
	if err := s.db.Preload("Packages").First(&listing, in.ListingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("listing not found")
		}
		return nil, err
	}

	if listing.Status != models.ListingPublished {
		return nil, apperrors.Validationf("this listing is not available for purchase")
	}
	if listing.SellerID == buyerID {
		return nil, apperrors.Validationf("you cannot purchase your own listing")
	}
	if in.PlotCount < 1 {
		return nil, apperrors.Validationf("plot count must be at least 1")
	}

	// Idempotent creation: a different payment type or a completed payment
	// on the existing transaction permits an additional purchase.
	var existing models.Transaction
	err := s.db.Where(
		"listing_id = ? AND buyer_id = ? AND payment_type = ? AND status IN ?",
		in.ListingID, buyerID, in.PaymentType, nonTerminalStatuses,
	).First(&existing).Error
	if err == nil {
		var completed int64
		s.db.Model(&models.Payment{}).
			Where("transaction_id = ? AND status = ?", existing.ID, models.PaymentCompleted).
			Count(&completed)
		if completed == 0 {
			s.db.Preload("Installments").First(&existing, existing.ID)
			return &existing, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if in.PlotCount > listing.AvailableUnits {
		return nil, apperrors.Validationf("Only %d plots available", listing.AvailableUnits)
	}

	baseCost := pricing.BaseCost(listing.ResolvedUnitPrice(), in.PlotCount)
	agreedPrice := baseCost
	var entries []models.InstallmentEntry

	if in.PaymentType == models.PaymentInstallment {
		pkg, err := pickPackage(listing.Packages, in.InstallmentPackageID)
		if err != nil {
			return nil, err
		}
		schedule, err := pricing.BuildSchedule(baseCost, *pkg, time.Now())
		if err != nil {
			return nil, err
		}
		agreedPrice = schedule.TotalWithInterest
		entries = schedule.Entries
	}

	fee, net := pricing.FeeSplit(agreedPrice, s.feePercent)

	txn := models.Transaction{
		ListingID:    listing.ID,
		BuyerID:      buyerID,
		SellerID:     listing.SellerID,
		AgreedPrice:  agreedPrice,
		PlatformFee:  fee,
		SellerNet:    net,
		PlotCount:    in.PlotCount,
		PaymentType:  in.PaymentType,
		Status:       models.TransactionCreated,
		EscrowStatus: models.EscrowPending,
		Installments: entries,
	}

	if err := s.db.Create(&txn).Error; err != nil {
		// A partial unique index allows one unfunded transaction per listing,
		// buyer and payment type; a concurrent initiation that lost the
		// insert race returns the winner, like the dedup read above.
		var winner models.Transaction
		if ferr := s.db.Preload("Installments").Where(
			"listing_id = ? AND buyer_id = ? AND payment_type = ? AND status = ?",
			in.ListingID, buyerID, in.PaymentType, models.TransactionCreated,
		).First(&winner).Error; ferr == nil {
			return &winner, nil
		}
		return nil, err
	}

	if err := s.notifier.Notify(buyerID, models.NotificationPurchaseInitiated, map[string]interface{}{
		"transaction_id": txn.ID,
		"plot_count":     txn.PlotCount,
		"amount":         txn.AgreedPrice,
	}); err != nil {
		log.Warnf("purchase notification failed for transaction %d: %v", txn.ID, err)
	}

	return &txn, nil
}

func pickPackage(packages []models.InstallmentPackage, id uint) (*models.InstallmentPackage, error) {
	if len(packages) == 0 {
		return nil, apperrors.Validationf("this listing has no installment packages configured")
	}
	if id == 0 {
		return &packages[0], nil
	}
	for i := range packages {
		if packages[i].ID == id {
			return &packages[i], nil
		}
	}
	return nil, apperrors.Validationf("installment package not found on this listing")
}

// Cancel lets the buyer abandon a transaction before any funds have moved.
func (s *EscrowService) Cancel(buyerID, txnID uint) (*models.Transaction, error) {
	txn, err := s.loadTransaction(txnID)
	if err != nil {
		return nil, err
	}
	if txn.BuyerID != buyerID {
		return nil, apperrors.Authorizationf("only the buyer can cancel this transaction")
	}
	if err := TransactionTransitions.Validate(string(txn.Status), string(models.TransactionCancelled), statemachine.ActorBuyer); err != nil {
		return nil, err
	}

	res := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, models.TransactionCreated).
		Update("status", models.TransactionCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.StateConflictf("transaction %d can no longer be cancelled", txn.ID)
	}

	txn.Status = models.TransactionCancelled
	return txn, nil
}

// Dispute opens a dispute on a funded transaction. Either party may file.
func (s *EscrowService) Dispute(userID, txnID uint, reason, description string) (*models.Dispute, error) {
	txn, err := s.loadTransaction(txnID)
	if err != nil {
		return nil, err
	}

	var actor statemachine.Actor
	switch userID {
	case txn.BuyerID:
		actor = statemachine.ActorBuyer
	case txn.SellerID:
		actor = statemachine.ActorSeller
	default:
		return nil, apperrors.Authorizationf("you are not a party to this transaction")
	}

	if txn.Status == models.TransactionDisputed {
		return nil, apperrors.StateConflictf("transaction %d is already disputed", txn.ID)
	}
	if err := TransactionTransitions.Validate(string(txn.Status), string(models.TransactionDisputed), actor); err != nil {
		return nil, err
	}

	dispute := models.Dispute{
		TransactionID: txn.ID,
		RaisedBy:      userID,
		Reason:        reason,
		Description:   description,
		Status:        models.DisputeOpen,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status IN ?", txn.ID,
				[]models.TransactionStatus{models.TransactionEscrowFunded, models.TransactionVerificationPeriod}).
			Update("status", models.TransactionDisputed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.StateConflictf("transaction %d can no longer be disputed", txn.ID)
		}
		return tx.Create(&dispute).Error
	})
	if err != nil {
		return nil, err
	}

	other := txn.SellerID
	if userID == txn.SellerID {
		other = txn.BuyerID
	}
	if err := s.notifier.Notify(other, models.NotificationTransactionDisputed, map[string]interface{}{
		"transaction_id": txn.ID,
		"reason":         reason,
	}); err != nil {
		log.Warnf("dispute notification failed for transaction %d: %v", txn.ID, err)
	}

	return &dispute, nil
}

// StartVerification moves a funded transaction into its verification window.
func (s *EscrowService) StartVerification(txnID uint) (*models.Transaction, error) {
	return s.adminMove(txnID, models.TransactionEscrowFunded, models.TransactionVerificationPeriod)
}

// MarkReadyToRelease flags a transaction as cleared for release.
func (s *EscrowService) MarkReadyToRelease(txnID uint) (*models.Transaction, error) {
	txn, err := s.loadTransaction(txnID)
	if err != nil {
		return nil, err
	}
	if err := TransactionTransitions.Validate(string(txn.Status), string(models.TransactionReadyToRelease), statemachine.ActorAdmin); err != nil {
		return nil, err
	}
	res := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, txn.Status).
		Update("status", models.TransactionReadyToRelease)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.StateConflictf("transaction %d changed state, try again", txn.ID)
	}
	txn.Status = models.TransactionReadyToRelease
	return txn, nil
}

func (s *EscrowService) adminMove(txnID uint, from, to models.TransactionStatus) (*models.Transaction, error) {
	txn, err := s.loadTransaction(txnID)
	if err != nil {
		return nil, err
	}
	if err := TransactionTransitions.Validate(string(txn.Status), string(to), statemachine.ActorAdmin); err != nil {
		return nil, err
	}
	res := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, from).
		Update("status", to)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.StateConflictf("transaction %d is no longer %s", txn.ID, from)
	}
	txn.Status = to
	return txn, nil
}

// Release pays the seller out of escrow. Within one ledger transaction it
// flips the transaction to released, decrements the listing's available
// units, shrinks the remaining area proportionally and marks the listing
// sold if nothing is left. The escrow_status predicate on the UPDATE makes
// concurrent or repeated calls decrement exactly once.
func (s *EscrowService) Release(txnID uint) (*models.Transaction, error) {
	txn, err := s.loadTransaction(txnID)
	if err != nil {
		return nil, err
	}
	if txn.EscrowStatus != models.EscrowFunded {
		return nil, apperrors.StateConflictf("escrow for transaction %d is %s; only funded escrows can be released", txn.ID, txn.EscrowStatus)
	}
	if txn.Status == models.TransactionDisputed {
		return nil, apperrors.StateConflictf("transaction %d is under dispute and must go through dispute resolution", txn.ID)
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND escrow_status = ? AND status IN ?", txn.ID, models.EscrowFunded, releasableStatuses).
			Updates(map[string]interface{}{
				"status":        models.TransactionReleased,
				"escrow_status": models.EscrowReleased,
				"completed_at":  &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.StateConflictf("transaction %d has already been released or refunded", txn.ID)
		}
		return decrementInventory(tx, txn.ListingID, txn.PlotCount)
	})
	if err != nil {
		return nil, err
	}

	txn.Status = models.TransactionReleased
	txn.EscrowStatus = models.EscrowReleased
	txn.CompletedAt = &now
	s.afterRelease(txn)
	return txn, nil
}

// ResolveDispute closes an open dispute with an admin decision. Release to
// seller and partial refund decrement inventory exactly like an ordinary
// release; a full refund leaves inventory untouched.
func (s *EscrowService) ResolveDispute(adminID, disputeID uint, resolution models.DisputeResolution, note string, refundAmount float64) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := s.db.Preload("Transaction").First(&dispute, disputeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("dispute not found")
		}
		return nil, err
	}
	if dispute.Status != models.DisputeOpen {
		return nil, apperrors.StateConflictf("dispute %d is already resolved", dispute.ID)
	}

	var target models.TransactionStatus
	var escrowState models.EscrowState
	decrement := false
	switch resolution {
	case models.ResolutionReleaseToSeller:
		target, escrowState, decrement = models.TransactionReleased, models.EscrowReleased, true
	case models.ResolutionRefundToBuyer:
		target, escrowState = models.TransactionRefunded, models.EscrowRefunded
	case models.ResolutionPartialRefund:
		// The full plot count is still decremented. Revisit if partial
		// refunds should return a proportional share of inventory.
		target, escrowState, decrement = models.TransactionCompleted, models.EscrowReleased, true
		if refundAmount <= 0 || refundAmount >= dispute.Transaction.AgreedPrice {
			return nil, apperrors.Validationf("partial refund amount must be between 0 and the agreed price")
		}
	default:
		return nil, apperrors.Validationf("unknown resolution %q", resolution)
	}

	if err := TransactionTransitions.Validate(string(dispute.Transaction.Status), string(target), statemachine.ActorAdmin); err != nil {
		return nil, err
	}

	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", dispute.TransactionID, models.TransactionDisputed).
			Updates(map[string]interface{}{
				"status":        target,
				"escrow_status": escrowState,
				"completed_at":  &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.StateConflictf("transaction %d is no longer disputed", dispute.TransactionID)
		}

		if err := tx.Model(&dispute).Updates(map[string]interface{}{
			"status":          models.DisputeResolved,
			"resolution":      resolution,
			"resolution_note": note,
			"refund_amount":   refundAmount,
			"resolved_by":     adminID,
			"resolved_at":     &now,
		}).Error; err != nil {
			return err
		}

		if decrement {
			return decrementInventory(tx, dispute.Transaction.ListingID, dispute.Transaction.PlotCount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, userID := range []uint{dispute.Transaction.BuyerID, dispute.Transaction.SellerID} {
		if err := s.notifier.Notify(userID, models.NotificationDisputeResolved, map[string]interface{}{
			"transaction_id": dispute.TransactionID,
			"resolution":     resolution,
		}); err != nil {
			log.Warnf("dispute resolution notification failed for user %d: %v", userID, err)
		}
	}

	if resolution == models.ResolutionReleaseToSeller || resolution == models.ResolutionPartialRefund {
		s.payoutSeller(&dispute.Transaction)
	}

	return &dispute, nil
}

// decrementInventory applies the release-side inventory effects. It runs
// inside the caller's ledger transaction, after the conditional status
// update has established that this release happens exactly once. The
// available_units predicate on the UPDATE makes the decrement itself
// atomic, so a release that would overdraw the listing fails and rolls
// the whole transaction back instead of silently flooring at zero.
func decrementInventory(tx *gorm.DB, listingID uint, plotCount int) error {
	var listing models.Listing
	if err := tx.First(&listing, listingID).Error; err != nil {
		return err
	}

	var areaPerUnit float64
	if listing.TotalUnits > 0 {
		areaPerUnit = listing.OriginalAreaSize / float64(listing.TotalUnits)
	}
	areaSold := pricing.Round2(areaPerUnit * float64(plotCount))

	res := tx.Model(&models.Listing{}).
		Where("id = ? AND available_units >= ?", listingID, plotCount).
		Updates(map[string]interface{}{
			"available_units": gorm.Expr("available_units - ?", plotCount),
			"total_area_size": gorm.Expr("ROUND(total_area_size - ?, 2)", areaSold),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.StateConflictf("listing %d does not have %d plots available to release", listingID, plotCount)
	}

	return tx.Model(&models.Listing{}).
		Where("id = ? AND available_units = 0 AND status = ?", listingID, models.ListingPublished).
		Update("status", models.ListingSold).Error
}

// afterRelease runs the post-commit side effects in order: notifications,
// seller payout, then the buyer's land-journey milestone. All of them are
// best-effort; a committed release is never rolled back or re-signalled.
func (s *EscrowService) afterRelease(txn *models.Transaction) {
	if err := s.notifier.Notify(txn.BuyerID, models.NotificationEscrowReleased, map[string]interface{}{
		"transaction_id": txn.ID,
		"amount":         txn.AgreedPrice,
	}); err != nil {
		log.Warnf("buyer release notification failed for transaction %d: %v", txn.ID, err)
	}
	if err := s.notifier.Notify(txn.SellerID, models.NotificationEscrowReleased, map[string]interface{}{
		"transaction_id": txn.ID,
		"amount":         txn.SellerNet,
	}); err != nil {
		log.Warnf("seller release notification failed for transaction %d: %v", txn.ID, err)
	}

	s.payoutSeller(txn)

	journey := models.LandJourney{
		UserID:        txn.BuyerID,
		TransactionID: txn.ID,
		ListingID:     txn.ListingID,
		Milestone:     models.MilestoneLandAcquired,
	}
	if err := s.db.Create(&journey).Error; err != nil {
		log.Warnf("land journey record failed for transaction %d: %v", txn.ID, err)
	}
}

func (s *EscrowService) payoutSeller(txn *models.Transaction) {
	if s.gateway == nil {
		return
	}
	var seller models.User
	if err := s.db.First(&seller, txn.SellerID).Error; err != nil || seller.RecipientCode == "" {
		return
	}
	reference := fmt.Sprintf("payout-txn-%d", txn.ID)
	if _, err := s.gateway.InitiateTransfer(seller.RecipientCode, txn.SellerNet, "Land sale payout", reference); err != nil {
		log.Warnf("seller payout failed for transaction %d: %v", txn.ID, err)
	}
}

func (s *EscrowService) loadTransaction(txnID uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.First(&txn, txnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("transaction not found")
		}
		return nil, err
	}
	return &txn, nil
}
