package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PeterAforo/ghanaland-sub000/internal/handlers"
	"github.com/PeterAforo/ghanaland-sub000/internal/middleware"
)

func SetupAdminRoutes(app *fiber.App) {
	admin := app.Group("/api/admin", middleware.Protected(), middleware.AdminOnly())

	// Dashboard
	admin.Get("/dashboard", handlers.GetDashboardStats)

	// Transaction management
	admin.Get("/transactions", handlers.GetAllTransactions)
	admin.Post("/transactions/:id/start-verification", handlers.StartVerification)
	admin.Post("/transactions/:id/ready-to-release", handlers.MarkReadyToRelease)
	admin.Post("/transactions/:id/release", handlers.ReleaseTransaction)

	// Dispute management
	admin.Get("/disputes", handlers.GetAllDisputes)
	admin.Post("/disputes/:id/resolve", handlers.ResolveDispute)

	// Service escrow management
	admin.Post("/services/:id/release", handlers.ReleaseServiceEscrow)
	admin.Post("/services/:id/resolve", handlers.ResolveServiceDispute)
}
