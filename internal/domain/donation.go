/**
 * @description
 * This file defines the core domain models for the donation workflow. These structs
 * represent the entities and data transfer objects (DTOs) used by the business logic,
 * database, and API layers.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit, which avoids
 *   floating-point inaccuracies with financial data.
 * - A donation row is keyed to the payment gateway by its unique order code; the
 *   gateway's webhook re-identifies the donation through that code.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Donation lifecycle statuses. A donation is created in `pending` when a payment
// link is issued and transitions exactly once, via a verified webhook, to
// `completed` or `failed`. Completed rows are never mutated again.
const (
	DonationStatusPending   = "pending"
	DonationStatusCompleted = "completed"
	DonationStatusFailed    = "failed"
)

// Donation represents one supporter contribution. Maps to the `donations` table.
type Donation struct {
	ID            uuid.UUID  `json:"id"`
	CampaignID    *uuid.UUID `json:"campaign_id,omitempty"` // nil for orphan reconciliation records
	DonorID       *uuid.UUID `json:"donor_id,omitempty"`    // nil for guest donations
	Amount        int64      `json:"amount"`                // in minor currency units
	PaymentMethod string     `json:"payment_method"`
	OrderCode     string     `json:"order_code"`
	Message       string     `json:"message,omitempty"`
	DonorName     string     `json:"donor_name,omitempty"`
	DonorEmail    string     `json:"donor_email,omitempty"`
	Anonymous     bool       `json:"anonymous"`
	Status        string     `json:"status"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreateDonationRequest is the DTO for incoming donation creation API requests.
type CreateDonationRequest struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Amount     int64     `json:"amount"` // in minor currency units
	Message    string    `json:"blessing,omitempty"`
	FullName   string    `json:"full_name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Anonymous  bool      `json:"anonymous,omitempty"`
}

// CreateDonationResponse is returned to the caller after a payment link has been
// issued by the gateway and the pending donation row persisted.
type CreateDonationResponse struct {
	Donation      *Donation `json:"donation"`
	PaymentURL    string    `json:"paymentUrl"`
	QRCode        string    `json:"qrCode"`
	BankName      string    `json:"bankName"`
	AccountNumber string    `json:"accountNumber"`
	AccountName   string    `json:"accountName"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description"`
}

// WebhookAck is the JSON acknowledgment body returned to the gateway for every
// successfully processed (or deliberately no-op) webhook delivery.
type WebhookAck struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
