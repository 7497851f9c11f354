package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PeterAforo/ghanaland-sub000/internal/database"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
)

type ResolveDisputeRequest struct {
	Resolution   models.DisputeResolution `json:"resolution" validate:"required,oneof=release_to_seller refund_to_buyer partial_refund"`
	Note         string                   `json:"note"`
	RefundAmount float64                  `json:"refund_amount" validate:"gte=0"`
}

// GetAllTransactions lists every land transaction, optionally filtered by
// ?status=.
func GetAllTransactions(c *fiber.Ctx) error {
	query := database.DB.Preload("Listing").Preload("Buyer").Preload("Seller")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var txns []models.Transaction
	if err := query.Order("created_at DESC").Find(&txns).Error; err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"transactions": txns,
		"count":        len(txns),
	})
}

// StartVerification moves a funded transaction into its review window.
func StartVerification(c *fiber.Ctx) error {
	txnID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	txn, err := escrowService.StartVerification(txnID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":     "Verification period started",
		"transaction": txn,
	})
}

// MarkReadyToRelease clears a transaction for payout.
func MarkReadyToRelease(c *fiber.Ctx) error {
	txnID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	txn, err := escrowService.MarkReadyToRelease(txnID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":     "Transaction marked ready to release",
		"transaction": txn,
	})
}

// ReleaseTransaction pays the seller and hands the plots over. Safe to
// retry; a second call reports the conflict instead of paying twice.
func ReleaseTransaction(c *fiber.Ctx) error {
	txnID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	txn, err := escrowService.Release(txnID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":     "Escrow released to seller",
		"transaction": txn,
	})
}

// GetAllDisputes lists disputes, optionally filtered by ?status=.
func GetAllDisputes(c *fiber.Ctx) error {
	query := database.DB.Preload("Transaction").Preload("User")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var disputes []models.Dispute
	if err := query.Order("created_at DESC").Find(&disputes).Error; err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"disputes": disputes,
		"count":    len(disputes),
	})
}

// ResolveDispute closes a dispute with one of the three outcomes.
func ResolveDispute(c *fiber.Ctx) error {
	disputeID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	req := new(ResolveDisputeRequest)
	if err := parseBody(c, req); err != nil {
		return respondError(c, err)
	}

	dispute, err := escrowService.ResolveDispute(currentUserID(c), disputeID, req.Resolution, req.Note, req.RefundAmount)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Dispute resolved",
		"dispute": dispute,
	})
}

// ReleaseServiceEscrow runs the checklist-gated payout for a delivered
// service request.
func ReleaseServiceEscrow(c *fiber.Ctx) error {
	requestID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	sr, err := serviceEscrowService.Release(requestID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Service escrow released to professional",
		"service_request": sr,
	})
}

type ResolveServiceDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=release_to_professional refund_to_client"`
	Note       string `json:"note"`
}

// ResolveServiceDispute rules on a disputed service request: release the
// escrow to the professional or refund it to the client.
func ResolveServiceDispute(c *fiber.Ctx) error {
	requestID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	req := new(ResolveServiceDisputeRequest)
	if err := parseBody(c, req); err != nil {
		return respondError(c, err)
	}

	sr, err := serviceEscrowService.ResolveDispute(requestID, req.Resolution == "release_to_professional", req.Note)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Service dispute resolved",
		"service_request": sr,
	})
}

// GetDashboardStats aggregates headline numbers for the admin dashboard.
func GetDashboardStats(c *fiber.Ctx) error {
	var (
		totalUsers        int64
		totalListings     int64
		totalTransactions int64
		openDisputes      int64
		escrowHeld        float64
		released          float64
	)

	database.DB.Model(&models.User{}).Count(&totalUsers)
	database.DB.Model(&models.Listing{}).Count(&totalListings)
	database.DB.Model(&models.Transaction{}).Count(&totalTransactions)
	database.DB.Model(&models.Dispute{}).Where("status = ?", models.DisputeOpen).Count(&openDisputes)

	database.DB.Model(&models.Transaction{}).
		Where("escrow_status = ?", models.EscrowFunded).
		Select("COALESCE(SUM(agreed_price), 0)").
		Scan(&escrowHeld)
	database.DB.Model(&models.Transaction{}).
		Where("escrow_status = ?", models.EscrowReleased).
		Select("COALESCE(SUM(seller_net), 0)").
		Scan(&released)

	return c.JSON(fiber.Map{
		"stats": fiber.Map{
			"total_users":        totalUsers,
			"total_listings":     totalListings,
			"total_transactions": totalTransactions,
			"open_disputes":      openDisputes,
			"escrow_held":        escrowHeld,
			"total_released":     released,
		},
	})
}
