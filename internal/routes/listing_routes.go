package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PeterAforo/ghanaland-sub000/internal/handlers"
	"github.com/PeterAforo/ghanaland-sub000/internal/middleware"
)

func SetupListingRoutes(app *fiber.App) {
	listings := app.Group("/api/listings", middleware.Protected())

	// Browse published listings
	listings.Get("/", handlers.GetListings)
	listings.Get("/:id", handlers.GetListingByID)

	// Seller operations
	listings.Post("/", handlers.CreateListing)
	listings.Post("/:id/publish", handlers.PublishListing)
	listings.Post("/:id/packages", handlers.AddInstallmentPackage)
}
