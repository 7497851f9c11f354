package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PeterAforo/ghanaland-sub000/internal/handlers"
	"github.com/PeterAforo/ghanaland-sub000/internal/middleware"
)

func SetupNotificationRoutes(app *fiber.App) {
	notifications := app.Group("/api/notifications", middleware.Protected())

	notifications.Get("/", handlers.GetMyNotifications)
	notifications.Post("/read-all", handlers.MarkAllNotificationsRead)
	notifications.Post("/:id/read", handlers.MarkNotificationRead)
}
