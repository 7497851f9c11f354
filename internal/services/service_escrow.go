package services

import (
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/apperrors"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
	"github.com/PeterAforo/ghanaland-sub000/internal/pricing"
	"github.com/PeterAforo/ghanaland-sub000/internal/statemachine"
)

// ServiceTransitions is the professional-service lifecycle. Funding comes
// only from payment reconciliation; completion only through the
// checklist-gated admin release.
var ServiceTransitions = statemachine.Table{
	string(models.ServicePending): {
		{To: string(models.ServiceAccepted), Actors: []statemachine.Actor{statemachine.ActorProfessional}},
		{To: string(models.ServiceCancelled), Actors: []statemachine.Actor{statemachine.ActorClient, statemachine.ActorProfessional}},
	},
	string(models.ServiceAccepted): {
		{To: string(models.ServiceEscrowFunded), Actors: []statemachine.Actor{statemachine.ActorSystem}},
		{To: string(models.ServiceCancelled), Actors: []statemachine.Actor{statemachine.ActorClient, statemachine.ActorProfessional}},
	},
	string(models.ServiceEscrowFunded): {
		{To: string(models.ServiceInProgress), Actors: []statemachine.Actor{statemachine.ActorProfessional}},
		{To: string(models.ServiceCancelled), Actors: []statemachine.Actor{statemachine.ActorClient, statemachine.ActorProfessional}},
	},
	string(models.ServiceInProgress): {
		{To: string(models.ServiceDelivered), Actors: []statemachine.Actor{statemachine.ActorProfessional}},
		{To: string(models.ServiceDisputed), Actors: []statemachine.Actor{statemachine.ActorClient, statemachine.ActorProfessional}},
		{To: string(models.ServiceCancelled), Actors: []statemachine.Actor{statemachine.ActorClient, statemachine.ActorProfessional}},
	},
	string(models.ServiceDelivered): {
		{To: string(models.ServiceCompleted), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
		{To: string(models.ServiceDisputed), Actors: []statemachine.Actor{statemachine.ActorClient, statemachine.ActorProfessional}},
	},
	// A disputed engagement only leaves that state through an admin ruling:
	// release the escrow to the professional or refund it to the client.
	string(models.ServiceDisputed): {
		{To: string(models.ServiceCompleted), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
		{To: string(models.ServiceCancelled), Actors: []statemachine.Actor{statemachine.ActorAdmin}},
	},
}

// requiredDocuments is the checklist keyed by professional type: which
// INPUT-typed categories the client must supply and which DELIVERABLE-typed
// categories the professional must produce before funds can be released.
var requiredDocuments = map[models.ProfessionalType]struct {
	Inputs  []models.DocumentCategory
	Outputs []models.DocumentCategory
}{
	models.ProfessionalSurveyor: {
		Inputs:  []models.DocumentCategory{models.CategoryLandTitle, models.CategoryProofOfOwnership, models.CategoryIDDocument},
		Outputs: []models.DocumentCategory{models.CategorySurveyPlan},
	},
	models.ProfessionalLawyer: {
		Inputs:  []models.DocumentCategory{models.CategoryLandTitle, models.CategoryIDDocument},
		Outputs: []models.DocumentCategory{models.CategoryLegalReport, models.CategoryContractAgreement},
	},
	models.ProfessionalArchitect: {
		Inputs:  []models.DocumentCategory{models.CategorySitePlan, models.CategoryIDDocument},
		Outputs: []models.DocumentCategory{models.CategoryBuildingDesign},
	},
}

// RequiredDocumentSets exposes the checklist for a professional type.
func RequiredDocumentSets(pt models.ProfessionalType) (inputs, outputs []models.DocumentCategory) {
	r := requiredDocuments[pt]
	return r.Inputs, r.Outputs
}

type confirmationRule struct {
	Role          models.ConfirmationRole
	AllowedStates []models.ServiceRequestStatus
	MovesTo       models.ServiceRequestStatus // empty: status unchanged
}

var confirmationRules = map[models.ConfirmationType]confirmationRule{
	models.ConfirmDocumentsReceived: {
		Role:          models.ConfirmedByProfessional,
		AllowedStates: []models.ServiceRequestStatus{models.ServiceAccepted, models.ServiceEscrowFunded},
	},
	models.ConfirmWorkStarted: {
		Role:          models.ConfirmedByProfessional,
		AllowedStates: []models.ServiceRequestStatus{models.ServiceEscrowFunded},
		MovesTo:       models.ServiceInProgress,
	},
	models.ConfirmDeliverablesUploaded: {
		Role:          models.ConfirmedByProfessional,
		AllowedStates: []models.ServiceRequestStatus{models.ServiceInProgress},
		MovesTo:       models.ServiceDelivered,
	},
	models.ConfirmWorkAccepted: {
		Role:          models.ConfirmedByClient,
		AllowedStates: []models.ServiceRequestStatus{models.ServiceDelivered},
	},
}

// ServiceEscrowService owns the professional-service engagement lifecycle.
type ServiceEscrowService struct {
	db         *gorm.DB
	feePercent float64
	notifier   *NotificationService
}

func NewServiceEscrowService(db *gorm.DB, feePercent float64, notifier *NotificationService) *ServiceEscrowService {
	return &ServiceEscrowService{db: db, feePercent: feePercent, notifier: notifier}
}

type CreateServiceRequestInput struct {
	ProfessionalID uint   `json:"professional_id" validate:"required"`
	Title          string `json:"title" validate:"required"`
	Description    string `json:"description"`
}

func (s *ServiceEscrowService) CreateRequest(clientID uint, in CreateServiceRequestInput) (*models.ServiceRequest, error) {
	if clientID == in.ProfessionalID {
		return nil, apperrors.Validationf("you cannot request your own services")
	}

	var professional models.User
	if err := s.db.First(&professional, in.ProfessionalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("professional not found")
		}
		return nil, err
	}
	if !professional.IsProfessional() {
		return nil, apperrors.Validationf("this user does not offer professional services")
	}

	req := models.ServiceRequest{
		ClientID:         clientID,
		ProfessionalID:   in.ProfessionalID,
		ProfessionalType: *professional.ProfessionalType,
		Title:            in.Title,
		Description:      in.Description,
		Status:           models.ServicePending,
		PaymentStatus:    models.ServiceUnpaid,
	}
	if err := s.db.Create(&req).Error; err != nil {
		return nil, err
	}

	var client models.User
	s.db.First(&client, clientID)
	if err := s.notifier.Notify(in.ProfessionalID, models.NotificationServiceRequested, map[string]interface{}{
		"request_id":  req.ID,
		"client_name": client.FullName,
		"title":       req.Title,
	}); err != nil {
		log.Warnf("service request notification failed for request %d: %v", req.ID, err)
	}

	return &req, nil
}

// Accept requires the professional to set the agreed price; platform fee
// and professional net are derived from it at the service fee rate.
func (s *ServiceEscrowService) Accept(professionalID, requestID uint, price float64) (*models.ServiceRequest, error) {
	req, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.ProfessionalID != professionalID {
		return nil, apperrors.Authorizationf("only the requested professional can accept")
	}
	if price <= 0 {
		return nil, apperrors.Validationf("an agreed price is required at acceptance")
	}
	if err := ServiceTransitions.Validate(string(req.Status), string(models.ServiceAccepted), statemachine.ActorProfessional); err != nil {
		return nil, err
	}

	fee, net := pricing.FeeSplit(pricing.Round2(price), s.feePercent)
	res := s.db.Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", req.ID, models.ServicePending).
		Updates(map[string]interface{}{
			"status":           models.ServiceAccepted,
			"agreed_price":     pricing.Round2(price),
			"platform_fee":     fee,
			"professional_net": net,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.StateConflictf("service request %d is no longer pending", req.ID)
	}

	if err := s.notifier.Notify(req.ClientID, models.NotificationServiceAccepted, map[string]interface{}{
		"request_id": req.ID,
		"amount":     pricing.Round2(price),
	}); err != nil {
		log.Warnf("acceptance notification failed for request %d: %v", req.ID, err)
	}

	return s.loadRequest(requestID)
}

// Transition drives a caller-initiated edge (cancel, dispute, deliver,
// start). Both the adjacency and the caller's role are validated against
// the transition table before anything is written.
func (s *ServiceEscrowService) Transition(userID, requestID uint, target models.ServiceRequestStatus) (*models.ServiceRequest, error) {
	req, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}

	actor, err := s.actorFor(req, userID)
	if err != nil {
		return nil, err
	}
	if err := ServiceTransitions.Validate(string(req.Status), string(target), actor); err != nil {
		return nil, err
	}
	if target == models.ServiceInProgress && req.PaymentStatus != models.ServicePaidToEscrow {
		return nil, apperrors.StateConflictf("work cannot start before the escrow is funded")
	}

	updates := map[string]interface{}{"status": target}
	if target == models.ServiceInProgress {
		now := time.Now()
		updates["started_at"] = &now
	}

	res := s.db.Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", req.ID, req.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.StateConflictf("service request %d changed state, try again", req.ID)
	}

	if target == models.ServiceDelivered {
		if err := s.notifier.Notify(req.ClientID, models.NotificationServiceDelivered, map[string]interface{}{
			"request_id": req.ID,
		}); err != nil {
			log.Warnf("delivery notification failed for request %d: %v", req.ID, err)
		}
	}

	return s.loadRequest(requestID)
}

// Confirm records a role-restricted checkpoint and drives the transition it
// maps to. Each confirmation type happens at most once per request.
func (s *ServiceEscrowService) Confirm(userID, requestID uint, ctype models.ConfirmationType, note string) (*models.ServiceRequest, error) {
	rule, ok := confirmationRules[ctype]
	if !ok {
		return nil, apperrors.Validationf("unknown confirmation type %q", ctype)
	}

	req, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}

	switch rule.Role {
	case models.ConfirmedByClient:
		if req.ClientID != userID {
			return nil, apperrors.Authorizationf("only the client may confirm %s", ctype)
		}
	case models.ConfirmedByProfessional:
		if req.ProfessionalID != userID {
			return nil, apperrors.Authorizationf("only the professional may confirm %s", ctype)
		}
	}

	stateOK := false
	for _, st := range rule.AllowedStates {
		if req.Status == st {
			stateOK = true
			break
		}
	}
	if !stateOK {
		return nil, apperrors.StateConflictf("confirmation %s is not valid while the request is %s", ctype, req.Status)
	}

	var count int64
	s.db.Model(&models.ServiceConfirmation{}).
		Where("service_request_id = ? AND type = ?", req.ID, ctype).
		Count(&count)
	if count > 0 {
		return nil, apperrors.StateConflictf("%s has already been confirmed for this request", ctype)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		confirmation := models.ServiceConfirmation{
			ServiceRequestID: req.ID,
			Role:             rule.Role,
			Type:             ctype,
			Note:             note,
		}
		if err := tx.Create(&confirmation).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		switch ctype {
		case models.ConfirmWorkAccepted:
			updates["client_confirmed_work"] = true
		case models.ConfirmDeliverablesUploaded:
			updates["professional_confirmed_work"] = true
		case models.ConfirmWorkStarted:
			now := time.Now()
			updates["started_at"] = &now
		}
		if rule.MovesTo != "" {
			updates["status"] = rule.MovesTo
		}
		if len(updates) == 0 {
			return nil
		}

		res := tx.Model(&models.ServiceRequest{}).
			Where("id = ? AND status = ?", req.ID, req.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.StateConflictf("service request %d changed state, try again", req.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.loadRequest(requestID)
}

// AddDocument attaches an uploaded document. Deliverables come from the
// professional; inputs, references and contracts from the client.
func (s *ServiceEscrowService) AddDocument(userID, requestID uint, docType models.DocumentType, category models.DocumentCategory, fileURL, publicID, fileName string) (*models.ServiceRequestDocument, error) {
	if fileURL == "" {
		return nil, apperrors.Validationf("a file is required")
	}
	if category == "" {
		return nil, apperrors.Validationf("a document category is required")
	}

	req, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, apperrors.StateConflictf("documents cannot be added to a %s request", req.Status)
	}

	switch docType {
	case models.DocumentDeliverable:
		if req.ProfessionalID != userID {
			return nil, apperrors.Authorizationf("only the professional can upload deliverables")
		}
	case models.DocumentInput, models.DocumentReference:
		if req.ClientID != userID {
			return nil, apperrors.Authorizationf("only the client can upload %s documents", docType)
		}
	case models.DocumentContract:
		if req.ClientID != userID && req.ProfessionalID != userID {
			return nil, apperrors.Authorizationf("you are not a party to this request")
		}
	default:
		return nil, apperrors.Validationf("unknown document type %q", docType)
	}

	doc := models.ServiceRequestDocument{
		ServiceRequestID: req.ID,
		UploadedBy:       userID,
		Type:             docType,
		Category:         category,
		FileURL:          fileURL,
		FilePublicID:     publicID,
		FileName:         fileName,
	}
	if err := s.db.Create(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// Release is the admin's checklist-gated payout. It succeeds only when the
// client has accepted the work and every required input and deliverable
// category for the professional's type is present; the payment_status
// predicate on the UPDATE makes it happen exactly once.
func (s *ServiceEscrowService) Release(requestID uint) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := s.db.Preload("Documents").First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("service request not found")
		}
		return nil, err
	}

	if err := ServiceTransitions.Validate(string(req.Status), string(models.ServiceCompleted), statemachine.ActorAdmin); err != nil {
		return nil, err
	}
	if req.PaymentStatus != models.ServicePaidToEscrow {
		return nil, apperrors.StateConflictf("escrow for service request %d is %s; only funded escrows can be released", req.ID, req.PaymentStatus)
	}
	if !req.ClientConfirmedWork {
		return nil, apperrors.StateConflictf("the client has not confirmed the work yet")
	}

	if missing := missingCategories(&req); len(missing) > 0 {
		return nil, apperrors.StateConflictf("cannot release: missing required documents: %s", strings.Join(missing, ", "))
	}

	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ServiceRequest{}).
			Where("id = ? AND payment_status = ?", req.ID, models.ServicePaidToEscrow).
			Updates(map[string]interface{}{
				"status":         models.ServiceCompleted,
				"payment_status": models.ServicePaidOut,
				"completed_at":   &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.StateConflictf("service request %d has already been released", req.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, userID := range []uint{req.ClientID, req.ProfessionalID} {
		if err := s.notifier.Notify(userID, models.NotificationServiceReleased, map[string]interface{}{
			"request_id": req.ID,
		}); err != nil {
			log.Warnf("release notification failed for user %d: %v", userID, err)
		}
	}

	return s.loadRequest(requestID)
}

// ResolveDispute is the admin ruling on a disputed engagement: either the
// escrow is released to the professional and the request completes, or it is
// refunded to the client and the request is cancelled. The ruling is recorded
// as an admin confirmation, whose unique index makes it happen at most once.
func (s *ServiceEscrowService) ResolveDispute(requestID uint, releaseToProfessional bool, note string) (*models.ServiceRequest, error) {
	req, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}

	target := models.ServiceCancelled
	paymentTarget := models.ServiceRefunded
	resolution := "escrow refunded to the client"
	if releaseToProfessional {
		target = models.ServiceCompleted
		paymentTarget = models.ServicePaidOut
		resolution = "escrow released to the professional"
	}

	if err := ServiceTransitions.Validate(string(req.Status), string(target), statemachine.ActorAdmin); err != nil {
		return nil, err
	}
	if req.PaymentStatus != models.ServicePaidToEscrow {
		return nil, apperrors.StateConflictf("escrow for service request %d is %s and cannot be resolved", req.ID, req.PaymentStatus)
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ServiceRequest{}).
			Where("id = ? AND status = ? AND payment_status = ?", req.ID, models.ServiceDisputed, models.ServicePaidToEscrow).
			Updates(map[string]interface{}{
				"status":         target,
				"payment_status": paymentTarget,
				"completed_at":   &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.StateConflictf("service request %d is no longer disputed", req.ID)
		}

		confirmation := models.ServiceConfirmation{
			ServiceRequestID: req.ID,
			Role:             models.ConfirmedByAdmin,
			Type:             models.ConfirmDisputeResolved,
			Note:             note,
		}
		return tx.Create(&confirmation).Error
	})
	if err != nil {
		return nil, err
	}

	for _, userID := range []uint{req.ClientID, req.ProfessionalID} {
		if err := s.notifier.Notify(userID, models.NotificationServiceDisputeResolved, map[string]interface{}{
			"request_id": req.ID,
			"resolution": resolution,
		}); err != nil {
			log.Warnf("resolution notification failed for user %d: %v", userID, err)
		}
	}

	return s.loadRequest(requestID)
}

// AddReview records the client's one-per-request rating once the
// engagement has completed.
func (s *ServiceEscrowService) AddReview(clientID, requestID uint, rating int, comment string) (*models.Review, error) {
	req, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.ClientID != clientID {
		return nil, apperrors.Authorizationf("only the client can review this request")
	}
	if req.Status != models.ServiceCompleted {
		return nil, apperrors.StateConflictf("only completed requests can be reviewed")
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.Validationf("rating must be between 1 and 5")
	}

	var count int64
	s.db.Model(&models.Review{}).
		Where("service_request_id = ? AND reviewer_id = ?", req.ID, clientID).
		Count(&count)
	if count > 0 {
		return nil, apperrors.StateConflictf("you have already reviewed this request")
	}

	review := models.Review{
		ServiceRequestID: req.ID,
		ReviewerID:       clientID,
		Rating:           rating,
		Comment:          comment,
	}
	if err := s.db.Create(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// missingCategories lists required categories with no matching uploaded
// document, required inputs first.
func missingCategories(req *models.ServiceRequest) []string {
	required := requiredDocuments[req.ProfessionalType]

	present := map[models.DocumentType]map[models.DocumentCategory]bool{
		models.DocumentInput:       {},
		models.DocumentDeliverable: {},
	}
	for _, doc := range req.Documents {
		if m, ok := present[doc.Type]; ok {
			m[doc.Category] = true
		}
	}

	var missing []string
	for _, cat := range required.Inputs {
		if !present[models.DocumentInput][cat] {
			missing = append(missing, string(cat))
		}
	}
	for _, cat := range required.Outputs {
		if !present[models.DocumentDeliverable][cat] {
			missing = append(missing, string(cat))
		}
	}
	return missing
}

func (s *ServiceEscrowService) actorFor(req *models.ServiceRequest, userID uint) (statemachine.Actor, error) {
	switch userID {
	case req.ClientID:
		return statemachine.ActorClient, nil
	case req.ProfessionalID:
		return statemachine.ActorProfessional, nil
	}
	return "", apperrors.Authorizationf("you are not a party to this service request")
}

func (s *ServiceEscrowService) loadRequest(requestID uint) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := s.db.First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("service request not found")
		}
		return nil, err
	}
	return &req, nil
}
