package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PeterAforo/ghanaland-sub000/internal/handlers"
	"github.com/PeterAforo/ghanaland-sub000/internal/middleware"
)

func SetupTransactionRoutes(app *fiber.App) {
	txns := app.Group("/api/transactions", middleware.Protected())

	// Initiate a purchase (buyer)
	txns.Post("/", handlers.InitiatePurchase)

	// Fund the escrow or pay the next installment (buyer)
	txns.Post("/:id/pay", handlers.PayForTransaction)

	// Cancel before funding (buyer)
	txns.Post("/:id/cancel", handlers.CancelTransaction)

	// Raise a dispute (buyer or seller)
	txns.Post("/:id/dispute", handlers.DisputeTransaction)

	txns.Get("/", handlers.GetMyTransactions)
	txns.Get("/:id", handlers.GetTransactionByID)
}
