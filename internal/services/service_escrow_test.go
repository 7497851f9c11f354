package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/apperrors"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
)

func newServiceFixture(t *testing.T) (*gorm.DB, *ServiceEscrowService, *PaymentService) {
	t.Helper()
	db := setupTestDB(t)
	notifier := NewNotificationService(db, nil)
	gateway := NewPaystackService("", time.Second)
	svc := NewServiceEscrowService(db, 10, notifier)
	payments := NewPaymentService(db, gateway, notifier, "http://localhost:8080")
	return db, svc, payments
}

// fundServiceRequest runs the real payment round trip: initiate, then apply
// a successful gateway outcome.
func fundServiceRequest(t *testing.T, payments *PaymentService, clientID, requestID uint) {
	t.Helper()
	payment, err := payments.InitiateServicePayment(clientID, requestID)
	require.NoError(t, err)
	_, err = payments.HandleWebhook(successEvent(payment.Reference))
	require.NoError(t, err)
}

func TestCreateServiceRequest(t *testing.T) {
	db, svc, _ := newServiceFixture(t)
	client := createUser(t, db, "Kofi Client", "kofi@example.com")
	surveyor := createProfessional(t, db, "Esi Surveyor", "esi@example.com", models.ProfessionalSurveyor)

	t.Run("creates a pending request", func(t *testing.T) {
		req, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
			ProfessionalID: surveyor.ID,
			Title:          "Survey my Oyibi plot",
		})
		require.NoError(t, err)
		assert.Equal(t, models.ServicePending, req.Status)
		assert.Equal(t, models.ServiceUnpaid, req.PaymentStatus)
		assert.Equal(t, models.ProfessionalSurveyor, req.ProfessionalType)
	})

	t.Run("rejects non-professionals", func(t *testing.T) {
		plain := createUser(t, db, "Yaw", "yaw@example.com")
		_, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
			ProfessionalID: plain.ID,
			Title:          "Anything",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})

	t.Run("rejects self-requests", func(t *testing.T) {
		_, err := svc.CreateRequest(surveyor.ID, CreateServiceRequestInput{
			ProfessionalID: surveyor.ID,
			Title:          "Survey for myself",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})
}

func TestAcceptServiceRequest(t *testing.T) {
	db, svc, _ := newServiceFixture(t)
	client := createUser(t, db, "Kofi Client", "kofi@example.com")
	surveyor := createProfessional(t, db, "Esi Surveyor", "esi@example.com", models.ProfessionalSurveyor)

	req, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
		ProfessionalID: surveyor.ID, Title: "Survey my Oyibi plot",
	})
	require.NoError(t, err)

	t.Run("only the requested professional can accept", func(t *testing.T) {
		_, err := svc.Accept(client.ID, req.ID, 1000)
		require.Error(t, err)
		assert.Equal(t, apperrors.Authorization, apperrors.KindOf(err))
	})

	t.Run("a price is required", func(t *testing.T) {
		_, err := svc.Accept(surveyor.ID, req.ID, 0)
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})

	t.Run("acceptance locks the fee split", func(t *testing.T) {
		accepted, err := svc.Accept(surveyor.ID, req.ID, 1000)
		require.NoError(t, err)
		assert.Equal(t, models.ServiceAccepted, accepted.Status)
		assert.Equal(t, 1000.0, accepted.AgreedPrice)
		assert.Equal(t, 100.0, accepted.PlatformFee)
		assert.Equal(t, 900.0, accepted.ProfessionalNet)
	})

	t.Run("accepting twice is rejected", func(t *testing.T) {
		_, err := svc.Accept(surveyor.ID, req.ID, 1200)
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})
}

func TestServiceLifecycle(t *testing.T) {
	db, svc, payments := newServiceFixture(t)
	client := createUser(t, db, "Kofi Client", "kofi@example.com")
	surveyor := createProfessional(t, db, "Esi Surveyor", "esi@example.com", models.ProfessionalSurveyor)
	stranger := createUser(t, db, "Efua", "efua@example.com")

	req, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
		ProfessionalID: surveyor.ID, Title: "Survey my Oyibi plot",
	})
	require.NoError(t, err)
	_, err = svc.Accept(surveyor.ID, req.ID, 1000)
	require.NoError(t, err)

	t.Run("payment cannot start before acceptance elsewhere", func(t *testing.T) {
		other, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
			ProfessionalID: surveyor.ID, Title: "Second survey",
		})
		require.NoError(t, err)
		_, err = payments.InitiateServicePayment(client.ID, other.ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})

	t.Run("work cannot start before funding", func(t *testing.T) {
		_, err := svc.Confirm(surveyor.ID, req.ID, models.ConfirmWorkStarted, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})

	fundServiceRequest(t, payments, client.ID, req.ID)

	t.Run("funding moves the request to escrow_funded", func(t *testing.T) {
		var fresh models.ServiceRequest
		db.First(&fresh, req.ID)
		assert.Equal(t, models.ServiceEscrowFunded, fresh.Status)
		assert.Equal(t, models.ServicePaidToEscrow, fresh.PaymentStatus)
	})

	t.Run("strangers cannot drive transitions", func(t *testing.T) {
		_, err := svc.Transition(stranger.ID, req.ID, models.ServiceCancelled)
		require.Error(t, err)
		assert.Equal(t, apperrors.Authorization, apperrors.KindOf(err))
	})

	t.Run("only the professional starts the work", func(t *testing.T) {
		_, err := svc.Confirm(client.ID, req.ID, models.ConfirmWorkStarted, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.Authorization, apperrors.KindOf(err))

		started, err := svc.Confirm(surveyor.ID, req.ID, models.ConfirmWorkStarted, "heading to the site")
		require.NoError(t, err)
		assert.Equal(t, models.ServiceInProgress, started.Status)
		require.NotNil(t, started.StartedAt)
	})

	t.Run("each confirmation happens at most once", func(t *testing.T) {
		_, err := svc.Confirm(surveyor.ID, req.ID, models.ConfirmWorkStarted, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})

	t.Run("delivery and acceptance", func(t *testing.T) {
		delivered, err := svc.Confirm(surveyor.ID, req.ID, models.ConfirmDeliverablesUploaded, "plan attached")
		require.NoError(t, err)
		assert.Equal(t, models.ServiceDelivered, delivered.Status)
		assert.True(t, delivered.ProfessionalConfirmedWork)

		accepted, err := svc.Confirm(client.ID, req.ID, models.ConfirmWorkAccepted, "looks good")
		require.NoError(t, err)
		assert.True(t, accepted.ClientConfirmedWork)
		assert.Equal(t, models.ServiceDelivered, accepted.Status)
	})
}

func TestServiceDocumentRoles(t *testing.T) {
	db, svc, payments := newServiceFixture(t)
	client := createUser(t, db, "Kofi Client", "kofi@example.com")
	surveyor := createProfessional(t, db, "Esi Surveyor", "esi@example.com", models.ProfessionalSurveyor)

	req, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
		ProfessionalID: surveyor.ID, Title: "Survey my Oyibi plot",
	})
	require.NoError(t, err)
	_, err = svc.Accept(surveyor.ID, req.ID, 1000)
	require.NoError(t, err)
	fundServiceRequest(t, payments, client.ID, req.ID)

	t.Run("client uploads inputs", func(t *testing.T) {
		doc, err := svc.AddDocument(client.ID, req.ID, models.DocumentInput, models.CategoryLandTitle, "https://cdn.example.com/title.pdf", "docs/title", "title.pdf")
		require.NoError(t, err)
		assert.Equal(t, models.DocumentInput, doc.Type)
	})

	t.Run("client cannot upload deliverables", func(t *testing.T) {
		_, err := svc.AddDocument(client.ID, req.ID, models.DocumentDeliverable, models.CategorySurveyPlan, "https://cdn.example.com/plan.pdf", "", "plan.pdf")
		require.Error(t, err)
		assert.Equal(t, apperrors.Authorization, apperrors.KindOf(err))
	})

	t.Run("professional cannot upload inputs", func(t *testing.T) {
		_, err := svc.AddDocument(surveyor.ID, req.ID, models.DocumentInput, models.CategoryIDDocument, "https://cdn.example.com/id.pdf", "", "id.pdf")
		require.Error(t, err)
		assert.Equal(t, apperrors.Authorization, apperrors.KindOf(err))
	})

	t.Run("a file and category are required", func(t *testing.T) {
		_, err := svc.AddDocument(client.ID, req.ID, models.DocumentInput, models.CategoryIDDocument, "", "", "")
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))

		_, err = svc.AddDocument(client.ID, req.ID, models.DocumentInput, "", "https://cdn.example.com/x.pdf", "", "x.pdf")
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})
}

func TestServiceReleaseChecklist(t *testing.T) {
	db, svc, payments := newServiceFixture(t)
	client := createUser(t, db, "Kofi Client", "kofi@example.com")
	surveyor := createProfessional(t, db, "Esi Surveyor", "esi@example.com", models.ProfessionalSurveyor)

	req, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
		ProfessionalID: surveyor.ID, Title: "Survey my Oyibi plot",
	})
	require.NoError(t, err)
	_, err = svc.Accept(surveyor.ID, req.ID, 1000)
	require.NoError(t, err)
	fundServiceRequest(t, payments, client.ID, req.ID)

	addInput := func(category models.DocumentCategory) {
		_, err := svc.AddDocument(client.ID, req.ID, models.DocumentInput, category, "https://cdn.example.com/"+string(category)+".pdf", "", string(category)+".pdf")
		require.NoError(t, err)
	}

	_, err = svc.Confirm(surveyor.ID, req.ID, models.ConfirmWorkStarted, "")
	require.NoError(t, err)
	_, err = svc.Confirm(surveyor.ID, req.ID, models.ConfirmDeliverablesUploaded, "")
	require.NoError(t, err)

	t.Run("release requires the client's acceptance", func(t *testing.T) {
		_, err := svc.Release(req.ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})

	_, err = svc.Confirm(client.ID, req.ID, models.ConfirmWorkAccepted, "")
	require.NoError(t, err)

	t.Run("release names the missing categories", func(t *testing.T) {
		_, err := svc.Release(req.ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
		assert.Contains(t, err.Error(), "land_title")
		assert.Contains(t, err.Error(), "survey_plan")
	})

	addInput(models.CategoryLandTitle)
	addInput(models.CategoryProofOfOwnership)
	addInput(models.CategoryIDDocument)

	t.Run("inputs alone are not enough", func(t *testing.T) {
		_, err := svc.Release(req.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "survey_plan")
		assert.NotContains(t, err.Error(), "land_title")
	})

	_, err = svc.AddDocument(surveyor.ID, req.ID, models.DocumentDeliverable, models.CategorySurveyPlan, "https://cdn.example.com/plan.pdf", "", "plan.pdf")
	require.NoError(t, err)

	t.Run("complete checklist releases exactly once", func(t *testing.T) {
		released, err := svc.Release(req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ServiceCompleted, released.Status)
		assert.Equal(t, models.ServicePaidOut, released.PaymentStatus)
		require.NotNil(t, released.CompletedAt)

		_, err = svc.Release(req.ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})
}

func TestServiceCancellation(t *testing.T) {
	db, svc, _ := newServiceFixture(t)
	client := createUser(t, db, "Kofi Client", "kofi@example.com")
	surveyor := createProfessional(t, db, "Esi Surveyor", "esi@example.com", models.ProfessionalSurveyor)

	req, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
		ProfessionalID: surveyor.ID, Title: "Survey my Oyibi plot",
	})
	require.NoError(t, err)

	cancelled, err := svc.Transition(client.ID, req.ID, models.ServiceCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.ServiceCancelled, cancelled.Status)

	t.Run("cancelled requests accept no documents", func(t *testing.T) {
		_, err := svc.AddDocument(client.ID, req.ID, models.DocumentInput, models.CategoryLandTitle, "https://cdn.example.com/x.pdf", "", "x.pdf")
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})

	t.Run("cancelled requests cannot be accepted", func(t *testing.T) {
		_, err := svc.Accept(surveyor.ID, req.ID, 1000)
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})
}

func TestResolveServiceDispute(t *testing.T) {
	newDisputed := func(t *testing.T) (*gorm.DB, *ServiceEscrowService, *models.ServiceRequest, *models.User, *models.User) {
		t.Helper()
		db, svc, payments := newServiceFixture(t)
		client := createUser(t, db, "Kofi Client", "kofi@example.com")
		surveyor := createProfessional(t, db, "Esi Surveyor", "esi@example.com", models.ProfessionalSurveyor)

		req, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
			ProfessionalID: surveyor.ID, Title: "Survey my Oyibi plot",
		})
		require.NoError(t, err)
		_, err = svc.Accept(surveyor.ID, req.ID, 1000)
		require.NoError(t, err)
		fundServiceRequest(t, payments, client.ID, req.ID)
		_, err = svc.Confirm(surveyor.ID, req.ID, models.ConfirmWorkStarted, "")
		require.NoError(t, err)
		disputed, err := svc.Transition(client.ID, req.ID, models.ServiceDisputed)
		require.NoError(t, err)
		return db, svc, disputed, client, surveyor
	}

	t.Run("only a disputed request can be resolved", func(t *testing.T) {
		db, svc, _ := newServiceFixture(t)
		client := createUser(t, db, "Kofi Client", "kofi@example.com")
		surveyor := createProfessional(t, db, "Esi Surveyor", "esi@example.com", models.ProfessionalSurveyor)
		req, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
			ProfessionalID: surveyor.ID, Title: "Survey my Oyibi plot",
		})
		require.NoError(t, err)

		_, err = svc.ResolveDispute(req.ID, true, "")
		require.Error(t, err)
	})

	t.Run("parties cannot leave the disputed state themselves", func(t *testing.T) {
		_, svc, req, client, surveyor := newDisputed(t)
		_, err := svc.Transition(client.ID, req.ID, models.ServiceCancelled)
		require.Error(t, err)
		assert.Equal(t, apperrors.Authorization, apperrors.KindOf(err))
		_, err = svc.Transition(surveyor.ID, req.ID, models.ServiceCompleted)
		require.Error(t, err)
		assert.Equal(t, apperrors.Authorization, apperrors.KindOf(err))
	})

	t.Run("release pays the professional and completes the request", func(t *testing.T) {
		db, svc, req, client, surveyor := newDisputed(t)
		resolved, err := svc.ResolveDispute(req.ID, true, "work was delivered as agreed")
		require.NoError(t, err)
		assert.Equal(t, models.ServiceCompleted, resolved.Status)
		assert.Equal(t, models.ServicePaidOut, resolved.PaymentStatus)
		require.NotNil(t, resolved.CompletedAt)

		var ruling models.ServiceConfirmation
		require.NoError(t, db.Where("service_request_id = ? AND type = ?", req.ID, models.ConfirmDisputeResolved).First(&ruling).Error)
		assert.Equal(t, models.ConfirmedByAdmin, ruling.Role)

		for _, userID := range []uint{client.ID, surveyor.ID} {
			var notifications int64
			db.Model(&models.Notification{}).
				Where("user_id = ? AND type = ?", userID, models.NotificationServiceDisputeResolved).
				Count(&notifications)
			assert.EqualValues(t, 1, notifications)
		}
	})

	t.Run("refund returns the escrow and cancels the request", func(t *testing.T) {
		_, svc, req, _, _ := newDisputed(t)
		resolved, err := svc.ResolveDispute(req.ID, false, "work never started")
		require.NoError(t, err)
		assert.Equal(t, models.ServiceCancelled, resolved.Status)
		assert.Equal(t, models.ServiceRefunded, resolved.PaymentStatus)
	})

	t.Run("resolving twice is rejected", func(t *testing.T) {
		_, svc, req, _, _ := newDisputed(t)
		_, err := svc.ResolveDispute(req.ID, false, "")
		require.NoError(t, err)
		_, err = svc.ResolveDispute(req.ID, true, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})
}

func TestAddReview(t *testing.T) {
	db, svc, payments := newServiceFixture(t)
	client := createUser(t, db, "Kofi Client", "kofi@example.com")
	surveyor := createProfessional(t, db, "Esi Surveyor", "esi@example.com", models.ProfessionalSurveyor)

	req, err := svc.CreateRequest(client.ID, CreateServiceRequestInput{
		ProfessionalID: surveyor.ID, Title: "Survey my Oyibi plot",
	})
	require.NoError(t, err)
	_, err = svc.Accept(surveyor.ID, req.ID, 1000)
	require.NoError(t, err)
	fundServiceRequest(t, payments, client.ID, req.ID)

	t.Run("only completed requests can be reviewed", func(t *testing.T) {
		_, err := svc.AddReview(client.ID, req.ID, 5, "great work")
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})

	// Walk the request to completion.
	_, err = svc.Confirm(surveyor.ID, req.ID, models.ConfirmWorkStarted, "")
	require.NoError(t, err)
	_, err = svc.Confirm(surveyor.ID, req.ID, models.ConfirmDeliverablesUploaded, "")
	require.NoError(t, err)
	_, err = svc.Confirm(client.ID, req.ID, models.ConfirmWorkAccepted, "")
	require.NoError(t, err)
	for _, cat := range []models.DocumentCategory{models.CategoryLandTitle, models.CategoryProofOfOwnership, models.CategoryIDDocument} {
		_, err = svc.AddDocument(client.ID, req.ID, models.DocumentInput, cat, "https://cdn.example.com/"+string(cat)+".pdf", "", string(cat)+".pdf")
		require.NoError(t, err)
	}
	_, err = svc.AddDocument(surveyor.ID, req.ID, models.DocumentDeliverable, models.CategorySurveyPlan, "https://cdn.example.com/plan.pdf", "", "plan.pdf")
	require.NoError(t, err)
	_, err = svc.Release(req.ID)
	require.NoError(t, err)

	t.Run("only the client reviews", func(t *testing.T) {
		_, err := svc.AddReview(surveyor.ID, req.ID, 5, "I was great")
		require.Error(t, err)
		assert.Equal(t, apperrors.Authorization, apperrors.KindOf(err))
	})

	t.Run("rating bounds", func(t *testing.T) {
		_, err := svc.AddReview(client.ID, req.ID, 6, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})

	t.Run("one review per request", func(t *testing.T) {
		review, err := svc.AddReview(client.ID, req.ID, 5, "prompt and precise")
		require.NoError(t, err)
		assert.Equal(t, 5, review.Rating)

		_, err = svc.AddReview(client.ID, req.ID, 4, "second thoughts")
		require.Error(t, err)
		assert.Equal(t, apperrors.StateConflict, apperrors.KindOf(err))
	})
}
