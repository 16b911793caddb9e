/**
 * @description
 * Admin campaign approval workflow. A campaign becomes admin-decidable only
 * after DAO consensus; the decision itself is pending-only and final. Conflict
 * resolution for concurrent decisions lives in the store layer, which reports
 * losers as ErrAlreadyProcessed.
 */

package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/pkg/rabbitmq"
	"github.com/google/uuid"
)

// ListCampaignsPendingApproval returns DAO-approved campaigns awaiting the
// admin decision.
func (s *Service) ListCampaignsPendingApproval(ctx context.Context, limit, offset int) ([]domain.Campaign, error) {
	return s.repo.ListCampaignsPendingAdminApproval(ctx, limit, offset)
}

// ApproveCampaign records the admin approval and activates the campaign.
func (s *Service) ApproveCampaign(ctx context.Context, campaignID, adminID uuid.UUID) (*domain.Campaign, error) {
	campaign, err := s.repo.ApproveCampaign(ctx, campaignID, adminID)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=approval msg=\"campaign approved\" campaign_id=%s admin_id=%s", campaign.ID, adminID)
	s.publishEvent(RoutingKeyCampaignApproved, rabbitmq.CampaignDecisionEvent{
		CampaignID: campaign.ID,
		CharityID:  campaign.CharityID,
		Decision:   domain.ApprovalStatusApproved,
		DecidedBy:  &adminID,
		Timestamp:  time.Now().UTC(),
	})
	return campaign, nil
}

// RejectCampaign records the admin rejection. The reason is mandatory.
func (s *Service) RejectCampaign(ctx context.Context, campaignID, adminID uuid.UUID, reason string) (*domain.Campaign, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	campaign, err := s.repo.RejectCampaign(ctx, campaignID, adminID, reason)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=approval msg=\"campaign rejected\" campaign_id=%s admin_id=%s reason=%q", campaign.ID, adminID, reason)
	s.publishEvent(RoutingKeyCampaignRejected, rabbitmq.CampaignDecisionEvent{
		CampaignID: campaign.ID,
		CharityID:  campaign.CharityID,
		Decision:   domain.ApprovalStatusRejected,
		DecidedBy:  &adminID,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	})
	return campaign, nil
}
