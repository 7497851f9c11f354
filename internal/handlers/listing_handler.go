package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/database"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
)

type CreateListingRequest struct {
	Title         string  `json:"title" validate:"required"`
	Location      string  `json:"location"`
	TotalUnits    int     `json:"total_units" validate:"required,gte=1"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
	TotalPrice    float64 `json:"total_price" validate:"gte=0"`
	TotalAreaSize float64 `json:"total_area_size" validate:"gte=0"`
}

type AddPackageRequest struct {
	Name           string  `json:"name"`
	DurationMonths int     `json:"duration_months" validate:"required,gte=1"`
	InterestRate   float64 `json:"interest_rate" validate:"gte=0"`
	DepositPercent float64 `json:"deposit_percent" validate:"required,gt=0,lte=100"`
}

// CreateListing creates a draft listing owned by the authenticated seller.
func CreateListing(c *fiber.Ctx) error {
	req := new(CreateListingRequest)
	if err := parseBody(c, req); err != nil {
		return respondError(c, err)
	}

	if req.UnitPrice == 0 && req.TotalPrice == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either unit_price or total_price is required",
		})
	}

	listing := models.Listing{
		SellerID:         currentUserID(c),
		Title:            req.Title,
		Location:         req.Location,
		TotalUnits:       req.TotalUnits,
		AvailableUnits:   req.TotalUnits,
		UnitPrice:        req.UnitPrice,
		TotalPrice:       req.TotalPrice,
		TotalAreaSize:    req.TotalAreaSize,
		OriginalAreaSize: req.TotalAreaSize,
		Status:           models.ListingDraft,
	}

	if err := database.DB.Create(&listing).Error; err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Listing created",
		"listing": listing,
	})
}

// PublishListing makes a draft listing purchasable.
func PublishListing(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var listing models.Listing
	if err := database.DB.First(&listing, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Listing not found",
			})
		}
		return respondError(c, err)
	}

	if listing.SellerID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the seller can publish this listing",
		})
	}
	if listing.Status != models.ListingDraft {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Only draft listings can be published",
		})
	}

	listing.Status = models.ListingPublished
	if err := database.DB.Save(&listing).Error; err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Listing published",
		"listing": listing,
	})
}

// AddInstallmentPackage attaches a financing plan to a listing.
func AddInstallmentPackage(c *fiber.Ctx) error {
	req := new(AddPackageRequest)
	if err := parseBody(c, req); err != nil {
		return respondError(c, err)
	}

	var listing models.Listing
	if err := database.DB.First(&listing, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Listing not found",
			})
		}
		return respondError(c, err)
	}

	if listing.SellerID != currentUserID(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the seller can add packages to this listing",
		})
	}

	pkg := models.InstallmentPackage{
		ListingID:      listing.ID,
		Name:           req.Name,
		DurationMonths: req.DurationMonths,
		InterestRate:   req.InterestRate,
		DepositPercent: req.DepositPercent,
	}
	if err := database.DB.Create(&pkg).Error; err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Installment package added",
		"package": pkg,
	})
}

// GetListings lists published listings.
func GetListings(c *fiber.Ctx) error {
	var listings []models.Listing
	if err := database.DB.
		Preload("Packages").
		Where("status = ?", models.ListingPublished).
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"count":    len(listings),
	})
}

// GetListingByID retrieves a single listing with its packages.
func GetListingByID(c *fiber.Ctx) error {
	var listing models.Listing
	if err := database.DB.
		Preload("Packages").
		Preload("Seller").
		First(&listing, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Listing not found",
			})
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"listing": listing,
	})
}
