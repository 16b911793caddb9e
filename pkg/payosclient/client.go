/**
 * @description
 * This package provides a client for the hosted-checkout payment gateway. It
 * encapsulates the logic for making authenticated HTTP requests to the gateway's
 * payment-request endpoint, signing request payloads, and parsing responses.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package payosclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is a client for the payment gateway API.
type Client struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	HTTPClient  *http.Client
}

// NewClient creates a new payment gateway client.
func NewClient(baseURL, clientID, apiKey, checksumKey string) *Client {
	return &Client{
		BaseURL:     baseURL,
		ClientID:    clientID,
		APIKey:      apiKey,
		ChecksumKey: checksumKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PaymentLinkRequest is the payload for creating a hosted payment link.
type PaymentLinkRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	BuyerName   string `json:"buyerName,omitempty"`
	BuyerEmail  string `json:"buyerEmail,omitempty"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

// PaymentLink is the hosted-checkout data returned by the gateway.
type PaymentLink struct {
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	OrderCode     int64  `json:"orderCode"`
	Status        string `json:"status"`
}

// paymentLinkEnvelope is the gateway's response envelope. A `code` of "00"
// signals success; anything else carries a human-readable `desc`.
type paymentLinkEnvelope struct {
	Code string       `json:"code"`
	Desc string       `json:"desc"`
	Data *PaymentLink `json:"data"`
}

// APIError represents a non-success response from the gateway.
type APIError struct {
	Code string
	Desc string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment gateway error: code=%s desc=%s", e.Code, e.Desc)
}

// CreatePaymentLink requests a hosted payment link from the gateway. The request
// is signed over its canonical form (amount, cancelUrl, description, orderCode,
// returnUrl) with the shared checksum key.
func (c *Client) CreatePaymentLink(ctx context.Context, orderCode, amount int64, description, buyerName, buyerEmail, returnURL, cancelURL string) (*PaymentLink, error) {
	payload := PaymentLinkRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: description,
		BuyerName:   buyerName,
		BuyerEmail:  buyerEmail,
		ReturnURL:   returnURL,
		CancelURL:   cancelURL,
	}
	payload.Signature = Sign(c.ChecksumKey, map[string]interface{}{
		"amount":      amount,
		"cancelUrl":   cancelURL,
		"description": description,
		"orderCode":   orderCode,
		"returnUrl":   returnURL,
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment link request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v2/payment-requests", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment link request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.ClientID)
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute payment link request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment link response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=payos_client op=create_payment_link status=%d msg=\"non-2xx response\"", resp.StatusCode)
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var envelope paymentLinkEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode payment link response: %w", err)
	}

	if envelope.Code != "00" {
		log.Printf("level=warn component=payos_client op=create_payment_link code=%s desc=%q", envelope.Code, envelope.Desc)
		return nil, &APIError{Code: envelope.Code, Desc: envelope.Desc}
	}
	if envelope.Data == nil || envelope.Data.CheckoutURL == "" {
		return nil, fmt.Errorf("payment gateway returned malformed success payload")
	}

	return envelope.Data, nil
}
