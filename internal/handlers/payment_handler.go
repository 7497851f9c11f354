package handlers

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// PaystackWebhook ingests gateway delivery attempts. It always returns 200
// so the provider stops retrying; reconciliation is idempotent, so replays
// and out-of-order deliveries are harmless.
func PaystackWebhook(c *fiber.Ctx) error {
	event, err := gatewayService.ParseWebhook(c.Body())
	if err != nil {
		log.Warnf("unparseable webhook payload: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	if _, err := paymentService.HandleWebhook(event); err != nil {
		log.Errorf("webhook reconciliation failed for reference %s: %v", event.Reference, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// VerifyPayment is the client-driven poll path: it asks the gateway for
// the charge outcome and reconciles the same way the webhook does.
func VerifyPayment(c *fiber.Ctx) error {
	reference := c.Params("reference")
	if reference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A payment reference is required",
		})
	}

	payment, err := paymentService.VerifyAndReconcile(reference)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"payment": fiber.Map{
			"reference": payment.Reference,
			"amount":    payment.Amount,
			"status":    payment.Status,
			"purpose":   payment.Type,
			"paid_at":   payment.PaidAt,
		},
	})
}
