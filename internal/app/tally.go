/**
 * @description
 * DAO campaign voting and the tally evaluator. Each dao_member may vote once
 * per campaign (database uniqueness, not a read-then-write check). Consensus is
 * evaluated after every vote and again periodically: once the vote count
 * reaches the quorum, the approval rate against the threshold decides
 * dao_approved or dao_rejected exactly once.
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

// CastVote records a DAO member's vote on a campaign and re-evaluates
// consensus.
func (s *Service) CastVote(ctx context.Context, voterID, campaignID uuid.UUID, req domain.CastVoteRequest) (*domain.CampaignVote, error) {
	decision := strings.ToLower(strings.TrimSpace(req.Decision))
	if decision != domain.VoteApprove && decision != domain.VoteReject {
		return nil, ErrInvalidVoteDecision
	}

	voter, err := s.repo.FindUserByID(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if voter.Role != domain.RoleDaoMember && voter.Role != domain.RoleAdmin {
		return nil, ErrNotDaoMember
	}

	campaign, err := s.repo.FindCampaignByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.DaoApprovalStatus != domain.DaoApprovalPending {
		return nil, ErrVotingClosed
	}

	vote := &domain.CampaignVote{
		ID:         uuid.New(),
		CampaignID: campaignID,
		VoterID:    voterID,
		Decision:   decision,
		Reason:     strings.TrimSpace(req.Reason),
	}
	if err := s.repo.CreateCampaignVote(ctx, vote); err != nil {
		return nil, err
	}
	log.Printf("level=info component=tally msg=\"vote recorded\" campaign_id=%s voter_id=%s decision=%s", campaignID, voterID, decision)

	if _, err := s.EvaluateDaoApproval(ctx, campaignID); err != nil {
		// The vote itself is durable; a failed evaluation is retried by the
		// periodic job.
		log.Printf("level=warn component=tally msg=\"post-vote evaluation failed\" campaign_id=%s err=%v", campaignID, err)
	}
	return vote, nil
}

// GetVoteTally returns the current tally for a campaign.
func (s *Service) GetVoteTally(ctx context.Context, campaignID uuid.UUID) (*domain.VoteTally, error) {
	if _, err := s.repo.FindCampaignByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.repo.TallyCampaignVotes(ctx, campaignID)
}

// ListVotes returns the recorded votes for a campaign.
func (s *Service) ListVotes(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignVote, error) {
	if _, err := s.repo.FindCampaignByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListCampaignVotes(ctx, campaignID)
}

// EvaluateDaoApproval applies the consensus rule to one campaign. Returns true
// when a DAO decision was reached and recorded by this call. Below quorum the
// campaign stays pending; at or above quorum the approval rate strictly above
// the threshold approves, anything else rejects. The store-level pending guard
// keeps concurrent evaluations from double-deciding.
func (s *Service) EvaluateDaoApproval(ctx context.Context, campaignID uuid.UUID) (bool, error) {
	tally, err := s.repo.TallyCampaignVotes(ctx, campaignID)
	if err != nil {
		return false, err
	}
	if tally.Total < s.cfg.DaoVoteQuorum {
		return false, nil
	}

	status := domain.DaoApprovalRejected
	if tally.ApprovalRate > s.cfg.DaoApprovalThreshold {
		status = domain.DaoApprovalApproved
	}

	transitioned, err := s.repo.SetDaoApprovalStatus(ctx, campaignID, status)
	if err != nil {
		return false, err
	}
	if !transitioned {
		return false, nil
	}

	log.Printf("level=info component=tally msg=\"dao consensus reached\" campaign_id=%s status=%s approve=%d reject=%d rate=%.2f",
		campaignID, status, tally.ApproveCount, tally.RejectCount, tally.ApprovalRate)
	s.publishEvent(RoutingKeyCampaignDaoVoted, rabbitmq.CampaignDecisionEvent{
		CampaignID: campaignID,
		Decision:   status,
		Timestamp:  time.Now().UTC(),
	})
	return true, nil
}

// EvaluatePendingDaoCampaigns runs the consensus rule over every campaign
// still awaiting DAO review. Used by the periodic scheduler job as a catch-up
// for evaluations that failed inline after a vote.
func (s *Service) EvaluatePendingDaoCampaigns(ctx context.Context) (int, error) {
	campaigns, err := s.repo.ListCampaignsAwaitingDaoEvaluation(ctx, 0)
	if err != nil {
		return 0, err
	}

	decided := 0
	for _, campaign := range campaigns {
		transitioned, err := s.EvaluateDaoApproval(ctx, campaign.ID)
		if err != nil {
			log.Printf("level=warn component=tally msg=\"periodic evaluation failed\" campaign_id=%s err=%v", campaign.ID, err)
			continue
		}
		if transitioned {
			decided++
		}
	}
	return decided, nil
}
