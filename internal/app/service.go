/**
 * @description
 * This file contains the core business logic for the donation-service. The
 * `Service` struct orchestrates the donation lifecycle, coordinating between the
 * database repository, the PayOS payment gateway client, and the message broker.
 *
 * Key features:
 * - Implements donation creation: validation, order-code generation, gateway
 *   payment link issuance, and persistence of the pending donation row.
 * - Order codes are cryptographically random 12-digit numbers backed by a
 *   uniqueness constraint, with a bounded regenerate-and-retry loop on conflict.
 * - A gateway failure leaves no partial donation row behind: the row is only
 *   inserted after the payment link has been issued.
 *
 * @dependencies
 * - context, crypto/rand, errors, fmt, log: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/payosclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strconv"
	"time"

	"github.com/givehub/donation-service/internal/config"
	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/givehub/donation-service/pkg/payosclient"
	"github.com/givehub/donation-service/pkg/rabbitmq"
	"github.com/google/uuid"
)

// orderCodeMaxAttempts bounds the regenerate-and-retry loop on order-code
// uniqueness conflicts.
const orderCodeMaxAttempts = 3

// Donation and approval event routing keys.
const (
	RoutingKeyDonationCompleted = "donation.completed"
	RoutingKeyDonationFailed    = "donation.failed"
	RoutingKeyCampaignApproved  = "campaign.approved"
	RoutingKeyCampaignRejected  = "campaign.rejected"
	RoutingKeyCampaignDaoVoted  = "campaign.dao_voted"
	RoutingKeyDaoApproved       = "dao.application.approved"
	RoutingKeyDaoRejected       = "dao.application.rejected"
)

// PaymentGateway is the subset of the PayOS client the service depends on.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, orderCode, amount int64, description, buyerName, buyerEmail, returnURL, cancelURL string) (*payosclient.PaymentLink, error)
}

// Service provides the core business logic for donations and approvals.
type Service struct {
	repo          store.Repository
	gateway       PaymentGateway
	eventProducer rabbitmq.Publisher
	cfg           config.Config
}

// NewService creates a new donation service instance.
func NewService(repo store.Repository, gateway PaymentGateway, producer rabbitmq.Publisher, cfg config.Config) *Service {
	return &Service{
		repo:          repo,
		gateway:       gateway,
		eventProducer: producer,
		cfg:           cfg,
	}
}

// CreateDonation validates the request, issues a hosted payment link with the
// gateway, and persists the pending donation row. The caller may be anonymous
// (donorID nil).
func (s *Service) CreateDonation(ctx context.Context, donorID *uuid.UUID, req domain.CreateDonationRequest) (*domain.CreateDonationResponse, error) {
	if req.Amount < s.cfg.MinDonationAmount {
		return nil, fmt.Errorf("%w: got %d, minimum %d", ErrAmountTooSmall, req.Amount, s.cfg.MinDonationAmount)
	}

	campaign, err := s.repo.FindCampaignByID(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != domain.CampaignStatusActive || campaign.ApprovalStatus != domain.ApprovalStatusApproved {
		return nil, ErrCampaignNotAccepting
	}

	description := fmt.Sprintf("Donation to %s", campaign.Title)
	if len(description) > 25 {
		// Gateway caps the payment description length.
		description = description[:25]
	}

	buyerName := req.FullName
	if req.Anonymous {
		buyerName = "Anonymous"
	}

	var lastErr error
	for attempt := 0; attempt < orderCodeMaxAttempts; attempt++ {
		orderCode, err := generateOrderCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate order code: %w", err)
		}

		link, err := s.gateway.CreatePaymentLink(ctx, orderCode, req.Amount, description,
			buyerName, req.Email, s.cfg.PaymentReturnURL, s.cfg.PaymentCancelURL)
		if err != nil {
			log.Printf("level=error component=donation_service msg=\"payment link creation failed\" campaign_id=%s order_code=%d err=%v", campaign.ID, orderCode, err)
			return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
		}

		donation := &domain.Donation{
			ID:            uuid.New(),
			CampaignID:    &campaign.ID,
			DonorID:       donorID,
			Amount:        req.Amount,
			PaymentMethod: "payos",
			OrderCode:     strconv.FormatInt(orderCode, 10),
			Message:       req.Message,
			DonorName:     req.FullName,
			DonorEmail:    req.Email,
			Anonymous:     req.Anonymous,
			Status:        domain.DonationStatusPending,
		}

		if err := s.repo.CreateDonation(ctx, donation); err != nil {
			if errors.Is(err, store.ErrDuplicateOrderCode) {
				log.Printf("level=warn component=donation_service msg=\"order code collision; regenerating\" order_code=%d attempt=%d", orderCode, attempt+1)
				lastErr = err
				continue
			}
			return nil, err
		}

		log.Printf("level=info component=donation_service msg=\"pending donation created\" donation_id=%s campaign_id=%s amount=%d order_code=%s",
			donation.ID, campaign.ID, donation.Amount, donation.OrderCode)

		return &domain.CreateDonationResponse{
			Donation:      donation,
			PaymentURL:    link.CheckoutURL,
			QRCode:        link.QRCode,
			BankName:      link.BankName,
			AccountNumber: link.AccountNumber,
			AccountName:   link.AccountName,
			Amount:        link.Amount,
			Description:   link.Description,
		}, nil
	}

	return nil, fmt.Errorf("failed to allocate a unique order code after %d attempts: %w", orderCodeMaxAttempts, lastErr)
}

// GetDonationByOrderCode retrieves a donation by its gateway order code.
func (s *Service) GetDonationByOrderCode(ctx context.Context, orderCode string) (*domain.Donation, error) {
	return s.repo.FindDonationByOrderCode(ctx, orderCode)
}

// ListCampaignDonations retrieves the completed donations for a campaign.
// Donor identity is blanked on rows flagged anonymous; the listing is public.
func (s *Service) ListCampaignDonations(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Donation, error) {
	if _, err := s.repo.FindCampaignByID(ctx, campaignID); err != nil {
		return nil, err
	}
	donations, err := s.repo.ListCompletedDonationsByCampaign(ctx, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range donations {
		if donations[i].Anonymous {
			donations[i].DonorID = nil
			donations[i].DonorName = "Anonymous"
			donations[i].DonorEmail = ""
		}
	}
	return donations, nil
}

// generateOrderCode returns a cryptographically random 12-digit order code.
// The range keeps the leading digit non-zero so the code round-trips through
// the gateway's numeric field without losing width.
func generateOrderCode() (int64, error) {
	const (
		low  = int64(100_000_000_000)
		high = int64(1_000_000_000_000)
	)
	n, err := rand.Int(rand.Reader, big.NewInt(high-low))
	if err != nil {
		return 0, err
	}
	return low + n.Int64(), nil
}

func (s *Service) publishEvent(routingKey string, body interface{}) {
	if s.eventProducer == nil {
		return
	}
	// Fire-and-forget with a bounded timeout so a slow broker never stalls the
	// request path.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.eventProducer.Publish(ctx, s.cfg.EventExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=donation_service msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
