package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/PeterAforo/ghanaland-sub000/internal/apperrors"
	"github.com/PeterAforo/ghanaland-sub000/internal/config"
	"github.com/PeterAforo/ghanaland-sub000/internal/database"
	"github.com/PeterAforo/ghanaland-sub000/internal/services"
)

var validate = validator.New()

var (
	gatewayService       *services.PaystackService
	notificationService  *services.NotificationService
	escrowService        *services.EscrowService
	paymentService       *services.PaymentService
	serviceEscrowService *services.ServiceEscrowService
	cloudinaryService    *services.CloudinaryService
)

// InitServices wires the domain services against the shared DB handle.
// Must run after database.Connect.
func InitServices(cfg config.Config) error {
	email := services.NewEmailService(cfg.ResendAPIKey, cfg.FromEmail)
	notificationService = services.NewNotificationService(database.DB, email)
	gatewayService = services.NewPaystackService(cfg.PaystackSecretKey, cfg.GatewayTimeout)

	escrowService = services.NewEscrowService(database.DB, cfg.LandFeePercent, gatewayService, notificationService)
	paymentService = services.NewPaymentService(database.DB, gatewayService, notificationService, cfg.CallbackBaseURL)
	serviceEscrowService = services.NewServiceEscrowService(database.DB, cfg.ServiceFeePercent, notificationService)

	if cfg.CloudinaryCloudName != "" {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			return err
		}
		cloudinaryService = cld
	} else {
		log.Warn("Cloudinary not configured, document uploads disabled")
	}

	return nil
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("user_id").(uint)
	return id
}

// respondError translates a service error into the status its class
// deserves. Unclassified errors are logged and reported generically.
func respondError(c *fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{
			"error": "Something went wrong, please try again",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, apperrors.Validationf("Invalid %s", name)
	}
	return uint(id), nil
}

func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.Validationf("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.Validationf("%s", err.Error())
	}
	return nil
}
