/**
 * @description
 * Webhook ingestion for the payment gateway. Deliveries carry an HMAC-SHA256
 * signature over the canonical form of the `data` object; the signature is the
 * sole authenticity gate. Processing is idempotent: re-delivery for an
 * already-settled donation acknowledges without touching the campaign total.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/givehub/donation-service/pkg/payosclient"
	"github.com/givehub/donation-service/pkg/rabbitmq"
	"github.com/google/uuid"
)

// webhookEnvelope is the gateway's delivery shape. `data` stays a raw map so
// the signature can be recomputed over exactly the fields the gateway signed.
type webhookEnvelope struct {
	Code      string                 `json:"code"`
	Desc      string                 `json:"desc"`
	Signature string                 `json:"signature"`
	Data      map[string]interface{} `json:"data"`
}

// paid is the gateway's transaction status for a settled payment.
const gatewayStatusPaid = "PAID"

// ProcessWebhook validates and applies one gateway webhook delivery.
//
// Order of checks matters: keep-alive probes are acknowledged before any
// validation, the result code is checked before the signature is recomputed,
// and the donation lookup happens only for authenticated deliveries.
func (s *Service) ProcessWebhook(ctx context.Context, body []byte) (*domain.WebhookAck, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	// The gateway probes the endpoint with empty or data-less payloads; these
	// are acknowledged without further checks.
	if len(envelope.Data) == 0 && envelope.Signature == "" {
		log.Printf("level=info component=webhook msg=\"keep-alive delivery acknowledged\"")
		return &domain.WebhookAck{Success: true, Message: "ok"}, nil
	}

	if envelope.Code == "" || envelope.Signature == "" || len(envelope.Data) == 0 {
		return nil, fmt.Errorf("%w: missing code, data, or signature", ErrInvalidPayload)
	}

	if envelope.Code != "00" {
		return nil, fmt.Errorf("%w: gateway reported failure code=%s desc=%q", ErrInvalidPayload, envelope.Code, envelope.Desc)
	}

	ok, expected := payosclient.VerifySignature(s.cfg.PayOSChecksumKey, envelope.Data, envelope.Signature)
	if !ok {
		log.Printf("level=warn component=webhook msg=\"signature mismatch\" expected=%s received=%s", expected, envelope.Signature)
		return nil, ErrInvalidSignature
	}

	orderCode := webhookString(envelope.Data["orderCode"])
	if orderCode == "" {
		return nil, fmt.Errorf("%w: missing orderCode", ErrInvalidPayload)
	}
	// The gateway's webhook-confirmation flow delivers a signed test event with
	// orderCode 123; it matches no donation and must never create an orphan.
	if orderCode == "123" {
		log.Printf("level=info component=webhook msg=\"gateway test delivery acknowledged\" order_code=%s", orderCode)
		return &domain.WebhookAck{Success: true, Message: "ok"}, nil
	}
	status := webhookString(envelope.Data["status"])
	amount := webhookAmount(envelope.Data["amount"])

	if status == gatewayStatusPaid || status == "" {
		return s.applyCompletion(ctx, orderCode, amount, envelope.Desc)
	}
	return s.applyFailure(ctx, orderCode, status)
}

func (s *Service) applyCompletion(ctx context.Context, orderCode string, amount int64, desc string) (*domain.WebhookAck, error) {
	donation, alreadyProcessed, err := s.repo.CompleteDonation(ctx, orderCode)
	if err != nil {
		if errors.Is(err, store.ErrDonationNotFound) {
			return s.handleUnmatched(ctx, orderCode, amount)
		}
		return nil, err
	}
	if alreadyProcessed {
		log.Printf("level=info component=webhook msg=\"duplicate delivery ignored\" order_code=%s status=%s", orderCode, donation.Status)
		return &domain.WebhookAck{Success: true, Message: "already processed"}, nil
	}

	if amount > 0 && amount != donation.Amount {
		// The donation has already settled at its recorded amount; the mismatch
		// is surfaced for reconciliation rather than rolled back.
		log.Printf("level=warn component=webhook msg=\"amount mismatch\" order_code=%s recorded=%d reported=%d", orderCode, donation.Amount, amount)
	}

	log.Printf("level=info component=webhook msg=\"donation completed\" donation_id=%s order_code=%s amount=%d", donation.ID, orderCode, donation.Amount)
	s.publishEvent(RoutingKeyDonationCompleted, rabbitmq.DonationEvent{
		DonationID: donation.ID,
		CampaignID: donation.CampaignID,
		DonorID:    donation.DonorID,
		OrderCode:  donation.OrderCode,
		Amount:     donation.Amount,
		Status:     donation.Status,
		Timestamp:  time.Now().UTC(),
	})
	return &domain.WebhookAck{Success: true, Message: "donation completed"}, nil
}

func (s *Service) applyFailure(ctx context.Context, orderCode, status string) (*domain.WebhookAck, error) {
	reason := fmt.Sprintf("gateway status %s", status)
	donation, alreadyProcessed, err := s.repo.FailDonation(ctx, orderCode, reason)
	if err != nil {
		if errors.Is(err, store.ErrDonationNotFound) {
			log.Printf("level=warn component=webhook msg=\"failure delivery for unknown order code\" order_code=%s status=%s", orderCode, status)
			return &domain.WebhookAck{Success: true, Message: "no matching donation"}, nil
		}
		return nil, err
	}
	if alreadyProcessed {
		log.Printf("level=info component=webhook msg=\"duplicate delivery ignored\" order_code=%s status=%s", orderCode, donation.Status)
		return &domain.WebhookAck{Success: true, Message: "already processed"}, nil
	}

	log.Printf("level=info component=webhook msg=\"donation failed\" donation_id=%s order_code=%s reason=%q", donation.ID, orderCode, reason)
	s.publishEvent(RoutingKeyDonationFailed, rabbitmq.DonationEvent{
		DonationID: donation.ID,
		CampaignID: donation.CampaignID,
		DonorID:    donation.DonorID,
		OrderCode:  donation.OrderCode,
		Amount:     donation.Amount,
		Status:     donation.Status,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	})
	return &domain.WebhookAck{Success: true, Message: "donation failed"}, nil
}

// handleUnmatched decides what to do with an authenticated, paid delivery that
// matches no donation row. A missing match must not cause the gateway to retry
// indefinitely, so the delivery is acknowledged either way; when orphan
// creation is enabled a reconciliation record is parked for manual review.
func (s *Service) handleUnmatched(ctx context.Context, orderCode string, amount int64) (*domain.WebhookAck, error) {
	if !s.cfg.WebhookOrphanDonations {
		log.Printf("level=warn component=webhook msg=\"unmatched delivery acknowledged\" order_code=%s amount=%d", orderCode, amount)
		return &domain.WebhookAck{Success: true, Message: "no matching donation"}, nil
	}

	now := time.Now().UTC()
	orphan := &domain.Donation{
		ID:            uuid.New(),
		Amount:        amount,
		PaymentMethod: "payos",
		OrderCode:     orderCode,
		Anonymous:     true,
		Status:        domain.DonationStatusCompleted,
		CompletedAt:   &now,
	}
	if err := s.repo.CreateDonation(ctx, orphan); err != nil {
		return nil, err
	}
	log.Printf("level=warn component=webhook msg=\"orphan donation parked for reconciliation\" donation_id=%s order_code=%s amount=%d", orphan.ID, orderCode, amount)
	return &domain.WebhookAck{Success: true, Message: "orphan donation recorded"}, nil
}

// webhookString coerces a gateway data field that may arrive as a JSON string
// or number into its string form.
func webhookString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatInt(int64(value), 10)
	case json.Number:
		return value.String()
	default:
		return ""
	}
}

func webhookAmount(v interface{}) int64 {
	switch value := v.(type) {
	case float64:
		return int64(value)
	case string:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case json.Number:
		n, err := value.Int64()
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
