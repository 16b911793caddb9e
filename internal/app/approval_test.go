package app

import (
	"context"
	"errors"
	"testing"

	"github.com/givehub/donation-service/internal/config"
	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/google/uuid"
)

type approvalRepoStub struct {
	store.Repository

	approveErr error
	rejectErr  error

	approvedCampaign uuid.UUID
	rejectedCampaign uuid.UUID
	rejectedReason   string
}

func (s *approvalRepoStub) ApproveCampaign(ctx context.Context, campaignID, adminID uuid.UUID) (*domain.Campaign, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	s.approvedCampaign = campaignID
	return &domain.Campaign{
		ID:             campaignID,
		CharityID:      uuid.New(),
		ApprovalStatus: domain.ApprovalStatusApproved,
		Status:         domain.CampaignStatusActive,
	}, nil
}

func (s *approvalRepoStub) RejectCampaign(ctx context.Context, campaignID, adminID uuid.UUID, reason string) (*domain.Campaign, error) {
	if s.rejectErr != nil {
		return nil, s.rejectErr
	}
	s.rejectedCampaign = campaignID
	s.rejectedReason = reason
	return &domain.Campaign{
		ID:              campaignID,
		CharityID:       uuid.New(),
		ApprovalStatus:  domain.ApprovalStatusRejected,
		Status:          domain.CampaignStatusPending,
		RejectionReason: &reason,
	}, nil
}

func newApprovalService(repo store.Repository) *Service {
	return NewService(repo, nil, nil, config.Config{EventExchange: "givehub.events"})
}

func TestApproveCampaign_ActivatesCampaign(t *testing.T) {
	repo := &approvalRepoStub{}
	svc := newApprovalService(repo)

	campaignID := uuid.New()
	campaign, err := svc.ApproveCampaign(context.Background(), campaignID, uuid.New())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if campaign.ApprovalStatus != domain.ApprovalStatusApproved {
		t.Fatalf("expected approved status, got %s", campaign.ApprovalStatus)
	}
	if campaign.Status != domain.CampaignStatusActive {
		t.Fatalf("expected active campaign, got %s", campaign.Status)
	}
	if repo.approvedCampaign != campaignID {
		t.Fatal("expected the approval to target the requested campaign")
	}
}

func TestApproveCampaign_PropagatesConflict(t *testing.T) {
	repo := &approvalRepoStub{approveErr: store.ErrAlreadyProcessed}
	svc := newApprovalService(repo)

	_, err := svc.ApproveCampaign(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestRejectCampaign_RequiresReason(t *testing.T) {
	repo := &approvalRepoStub{}
	svc := newApprovalService(repo)

	for _, reason := range []string{"", "   "} {
		if _, err := svc.RejectCampaign(context.Background(), uuid.New(), uuid.New(), reason); !errors.Is(err, ErrReasonRequired) {
			t.Fatalf("expected ErrReasonRequired for reason %q, got %v", reason, err)
		}
	}
	if repo.rejectedCampaign != uuid.Nil {
		t.Fatal("expected no rejection without a reason")
	}
}

func TestRejectCampaign_TrimsAndRecordsReason(t *testing.T) {
	repo := &approvalRepoStub{}
	svc := newApprovalService(repo)

	campaign, err := svc.RejectCampaign(context.Background(), uuid.New(), uuid.New(), "  incomplete documentation  ")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.rejectedReason != "incomplete documentation" {
		t.Fatalf("expected trimmed reason, got %q", repo.rejectedReason)
	}
	if campaign.Status == domain.CampaignStatusActive {
		t.Fatal("expected rejected campaign to stay inactive")
	}
}
