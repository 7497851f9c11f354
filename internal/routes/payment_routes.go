package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PeterAforo/ghanaland-sub000/internal/handlers"
	"github.com/PeterAforo/ghanaland-sub000/internal/middleware"
)

func SetupPaymentRoutes(app *fiber.App) {
	// Gateway callbacks carry no user token; the webhook must stay public.
	app.Post("/api/payments/webhook", handlers.PaystackWebhook)

	payments := app.Group("/api/payments", middleware.Protected())
	payments.Get("/:reference/verify", handlers.VerifyPayment)
}
