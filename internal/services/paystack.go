package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PaystackService wraps the Paystack REST API. With no secret key configured
// it runs in sandbox mode and returns deterministic responses so the escrow
// core can be exercised without live credentials.
type PaystackService struct {
	SecretKey string
	BaseURL   string
	client    *http.Client
}

func NewPaystackService(secretKey string, timeout time.Duration) *PaystackService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaystackService{
		SecretKey: secretKey,
		BaseURL:   "https://api.paystack.co",
		client:    &http.Client{Timeout: timeout},
	}
}

// Sandbox reports whether the service runs without live credentials.
func (ps *PaystackService) Sandbox() bool {
	return ps.SecretKey == ""
}

type InitializePaymentResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type VerifyPaymentResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID              int64  `json:"id"`
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		Amount          int    `json:"amount"` // pesewas (GH₵1 = 100 pesewas)
		GatewayResponse string `json:"gateway_response"`
		PaidAt          string `json:"paid_at"`
		Channel         string `json:"channel"`
		Currency        string `json:"currency"`
	} `json:"data"`
}

type InitiateTransferResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Amount       int    `json:"amount"`
		Currency     string `json:"currency"`
		Reason       string `json:"reason"`
		Status       string `json:"status"`
		TransferCode string `json:"transfer_code"`
		ID           int64  `json:"id"`
	} `json:"data"`
}

// WebhookEvent is the normalized shape the reconciliation engine consumes.
// Anything adapter-specific stays behind ParseWebhook.
type WebhookEvent struct {
	Reference string
	Success   bool
	Raw       json.RawMessage
}

func (ps *PaystackService) makeRequest(method, endpoint string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, ps.BaseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+ps.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	return ps.client.Do(req)
}

// InitializePayment starts a hosted checkout for the given reference.
func (ps *PaystackService) InitializePayment(email string, amount float64, reference, callbackURL string) (*InitializePaymentResponse, error) {
	if ps.Sandbox() {
		result := &InitializePaymentResponse{Status: true, Message: "sandbox"}
		result.Data.AuthorizationURL = "https://checkout.sandbox.local/" + reference
		result.Data.AccessCode = "sandbox_" + reference
		result.Data.Reference = reference
		return result, nil
	}

	amountInPesewas := int(amount * 100)

	payload := map[string]interface{}{
		"email":        email,
		"amount":       amountInPesewas,
		"reference":    reference,
		"callback_url": callbackURL,
		"currency":     "GHS",
	}

	resp, err := ps.makeRequest("POST", "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result InitializePaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Status {
		return nil, fmt.Errorf("paystack error: %s", result.Message)
	}

	return &result, nil
}

// VerifyPayment polls the gateway for the outcome of a charge.
func (ps *PaystackService) VerifyPayment(reference string) (*VerifyPaymentResponse, error) {
	if ps.Sandbox() {
		result := &VerifyPaymentResponse{Status: true, Message: "sandbox"}
		result.Data.Status = "success"
		result.Data.Reference = reference
		result.Data.Currency = "GHS"
		result.Data.PaidAt = time.Now().UTC().Format(time.RFC3339)
		return result, nil
	}

	resp, err := ps.makeRequest("GET", "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result VerifyPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Status {
		return nil, fmt.Errorf("paystack error: %s", result.Message)
	}

	return &result, nil
}

// InitiateTransfer pays out to a transfer recipient.
func (ps *PaystackService) InitiateTransfer(recipientCode string, amount float64, reason, reference string) (*InitiateTransferResponse, error) {
	if ps.Sandbox() {
		result := &InitiateTransferResponse{Status: true, Message: "sandbox"}
		result.Data.Status = "success"
		result.Data.TransferCode = "TRF_sandbox_" + reference
		return result, nil
	}

	amountInPesewas := int(amount * 100)

	payload := map[string]interface{}{
		"source":    "balance",
		"reason":    reason,
		"amount":    amountInPesewas,
		"recipient": recipientCode,
		"reference": reference,
	}

	resp, err := ps.makeRequest("POST", "/transfer", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result InitiateTransferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Status {
		return nil, fmt.Errorf("paystack error: %s", result.Message)
	}

	return &result, nil
}

// ParseWebhook normalizes an inbound Paystack event body. A payload without
// a reference yields an event with an empty Reference; the caller decides
// how to acknowledge it.
func (ps *PaystackService) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var payload struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	return &WebhookEvent{
		Reference: payload.Data.Reference,
		Success:   payload.Data.Status == "success",
		Raw:       json.RawMessage(body),
	}, nil
}
