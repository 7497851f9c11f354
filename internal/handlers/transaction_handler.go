package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/database"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
	"github.com/PeterAforo/ghanaland-sub000/internal/services"
)

type DisputeRequest struct {
	Reason      string `json:"reason" validate:"required"`
	Description string `json:"description"`
}

// InitiatePurchase reserves plots on a listing. Repeating the call for the
// same listing and payment type returns the existing transaction.
func InitiatePurchase(c *fiber.Ctx) error {
	req := new(services.CreatePurchaseInput)
	if err := parseBody(c, req); err != nil {
		return respondError(c, err)
	}

	txn, err := escrowService.CreateTransaction(currentUserID(c), *req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Purchase initiated. Fund the escrow to reserve your plots.",
		"transaction": txn,
	})
}

// PayForTransaction starts a gateway charge for the next amount due, the
// full price for one-time purchases or the earliest pending installment.
func PayForTransaction(c *fiber.Ctx) error {
	txnID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	payment, err := paymentService.InitiateDeposit(currentUserID(c), txnID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Payment initiated",
		"payment": fiber.Map{
			"reference":         payment.Reference,
			"amount":            payment.Amount,
			"status":            payment.Status,
			"authorization_url": payment.AuthorizationURL,
		},
	})
}

// CancelTransaction lets the buyer back out before funding.
func CancelTransaction(c *fiber.Ctx) error {
	txnID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	txn, err := escrowService.Cancel(currentUserID(c), txnID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":     "Transaction cancelled",
		"transaction": txn,
	})
}

// DisputeTransaction freezes a funded transaction for admin review.
func DisputeTransaction(c *fiber.Ctx) error {
	txnID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	req := new(DisputeRequest)
	if err := parseBody(c, req); err != nil {
		return respondError(c, err)
	}

	dispute, err := escrowService.Dispute(currentUserID(c), txnID, req.Reason, req.Description)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Dispute raised. An admin will review the transaction.",
		"dispute": dispute,
	})
}

// GetMyTransactions lists transactions the user is a party to, optionally
// filtered by ?role=buyer or ?role=seller.
func GetMyTransactions(c *fiber.Ctx) error {
	userID := currentUserID(c)

	query := database.DB.Preload("Listing").Preload("Installments")
	switch c.Query("role") {
	case "buyer":
		query = query.Where("buyer_id = ?", userID)
	case "seller":
		query = query.Where("seller_id = ?", userID)
	default:
		query = query.Where("buyer_id = ? OR seller_id = ?", userID, userID)
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

// GetTransactionByID retrieves a transaction visible to its parties.
func GetTransactionByID(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var txn models.Transaction
	if err := database.DB.
		Preload("Listing").
		Preload("Buyer").
		Preload("Seller").
		Preload("Installments").
		First(&txn, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Transaction not found",
			})
		}
		return respondError(c, err)
	}

	if txn.BuyerID != userID && txn.SellerID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this transaction",
		})
	}

	return c.JSON(fiber.Map{
		"transaction": txn,
	})
}
