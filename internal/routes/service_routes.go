package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PeterAforo/ghanaland-sub000/internal/handlers"
	"github.com/PeterAforo/ghanaland-sub000/internal/middleware"
)

func SetupServiceRoutes(app *fiber.App) {
	svc := app.Group("/api/services", middleware.Protected())

	// Open a request (client)
	svc.Post("/", handlers.CreateServiceRequest)

	// Accept with a price (professional)
	svc.Post("/:id/accept", handlers.AcceptServiceRequest)

	// Fund the escrow (client)
	svc.Post("/:id/pay", handlers.PayForServiceRequest)

	// Lifecycle
	svc.Post("/:id/cancel", handlers.CancelServiceRequest)
	svc.Post("/:id/dispute", handlers.DisputeServiceRequest)
	svc.Post("/:id/confirm", handlers.ConfirmServiceStep)

	// Documents and reviews
	svc.Post("/:id/documents", handlers.UploadServiceDocument)
	svc.Post("/:id/review", handlers.AddServiceReview)

	svc.Get("/", handlers.GetMyServiceRequests)
	svc.Get("/:id", handlers.GetServiceRequestByID)
}
