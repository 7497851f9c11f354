package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/database"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
	"github.com/PeterAforo/ghanaland-sub000/internal/services"
)

type AcceptServiceRequestBody struct {
	Price float64 `json:"price" validate:"required,gt=0"`
}

type ConfirmServiceStepBody struct {
	Type models.ConfirmationType `json:"type" validate:"required"`
	Note string                  `json:"note"`
}

type AddReviewBody struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment"`
}

// CreateServiceRequest opens an engagement with a professional.
func CreateServiceRequest(c *fiber.Ctx) error {
	req := new(services.CreateServiceRequestInput)
	if err := parseBody(c, req); err != nil {
		return respondError(c, err)
	}

	sr, err := serviceEscrowService.CreateRequest(currentUserID(c), *req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":         "Service request sent",
		"service_request": sr,
	})
}

// AcceptServiceRequest - the professional accepts and sets the price.
func AcceptServiceRequest(c *fiber.Ctx) error {
	requestID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	body := new(AcceptServiceRequestBody)
	if err := parseBody(c, body); err != nil {
		return respondError(c, err)
	}

	sr, err := serviceEscrowService.Accept(currentUserID(c), requestID, body.Price)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Request accepted. The client can now fund the escrow.",
		"service_request": sr,
	})
}

// PayForServiceRequest starts the escrow charge for an accepted request.
func PayForServiceRequest(c *fiber.Ctx) error {
	requestID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	payment, err := paymentService.InitiateServicePayment(currentUserID(c), requestID)
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

// CancelServiceRequest - either party backs out while the table allows it.
func CancelServiceRequest(c *fiber.Ctx) error {
	requestID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	sr, err := serviceEscrowService.Transition(currentUserID(c), requestID, models.ServiceCancelled)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Service request cancelled",
		"service_request": sr,
	})
}

// DisputeServiceRequest freezes an active engagement for admin review.
func DisputeServiceRequest(c *fiber.Ctx) error {
	requestID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	sr, err := serviceEscrowService.Transition(currentUserID(c), requestID, models.ServiceDisputed)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Service request disputed. An admin will review it.",
		"service_request": sr,
	})
}

// ConfirmServiceStep records a checkpoint (documents received, work
// started, deliverables uploaded, work accepted).
func ConfirmServiceStep(c *fiber.Ctx) error {
	requestID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	body := new(ConfirmServiceStepBody)
	if err := parseBody(c, body); err != nil {
		return respondError(c, err)
	}

	sr, err := serviceEscrowService.Confirm(currentUserID(c), requestID, body.Type, body.Note)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Confirmation recorded",
		"service_request": sr,
	})
}

// UploadServiceDocument stores a document against the request. The file
// goes to Cloudinary; type and category come as form fields.
func UploadServiceDocument(c *fiber.Ctx) error {
	requestID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if cloudinaryService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Document uploads are not available",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A file is required",
		})
	}

	docType := models.DocumentType(c.FormValue("type"))
	category := models.DocumentCategory(c.FormValue("category"))

	result, err := cloudinaryService.UploadDocument(file, "service-requests")
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Upload failed, please try again",
		})
	}

	doc, err := serviceEscrowService.AddDocument(currentUserID(c), requestID, docType, category, result.URL, result.PublicID, file.Filename)
	if err != nil {
		// The upload succeeded but the attachment was rejected; drop the file.
		_ = cloudinaryService.DeleteDocument(result.PublicID)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Document uploaded",
		"document": doc,
	})
}

// GetMyServiceRequests lists requests the user is a party to.
func GetMyServiceRequests(c *fiber.Ctx) error {
	userID := currentUserID(c)

	query := database.DB.Preload("Client").Preload("Professional")
	switch c.Query("role") {
	case "client":
		query = query.Where("client_id = ?", userID)
	case "professional":
		query = query.Where("professional_id = ?", userID)
	default:
		query = query.Where("client_id = ? OR professional_id = ?", userID, userID)
	}

	var requests []models.ServiceRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"service_requests": requests,
		"count":            len(requests),
	})
}

// GetServiceRequestByID retrieves a request with its confirmations and
// documents, plus the document checklist for its professional type.
func GetServiceRequestByID(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var sr models.ServiceRequest
	if err := database.DB.
		Preload("Client").
		Preload("Professional").
		Preload("Confirmations").
		Preload("Documents").
		First(&sr, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Service request not found",
			})
		}
		return respondError(c, err)
	}

	if sr.ClientID != userID && sr.ProfessionalID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this service request",
		})
	}

	inputs, outputs := services.RequiredDocumentSets(sr.ProfessionalType)

	return c.JSON(fiber.Map{
		"service_request": sr,
		"required_documents": fiber.Map{
			"inputs":       inputs,
			"deliverables": outputs,
		},
	})
}

// AddServiceReview records the client's rating of a completed request.
func AddServiceReview(c *fiber.Ctx) error {
	requestID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	body := new(AddReviewBody)
	if err := parseBody(c, body); err != nil {
		return respondError(c, err)
	}

	review, err := serviceEscrowService.AddReview(currentUserID(c), requestID, body.Rating, body.Comment)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Review submitted",
		"review":  review,
	})
}
