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

type daoRepoStub struct {
	store.Repository

	user *domain.User

	createErr      error
	reopenErr      error
	reopenCalled   bool
	created        *domain.DaoApplication
	approveErr     error
	approvedRole   string
	rejectedReason string
}

func (s *daoRepoStub) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, store.ErrUserNotFound
	}
	return s.user, nil
}

func (s *daoRepoStub) CreateDaoApplication(ctx context.Context, app *domain.DaoApplication) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = app
	return nil
}

func (s *daoRepoStub) ReopenRejectedDaoApplication(ctx context.Context, app *domain.DaoApplication) (*domain.DaoApplication, error) {
	s.reopenCalled = true
	if s.reopenErr != nil {
		return nil, s.reopenErr
	}
	reopened := *app
	reopened.Status = domain.ApprovalStatusPending
	return &reopened, nil
}

func (s *daoRepoStub) ApproveDaoApplication(ctx context.Context, appID, adminID uuid.UUID) (*domain.DaoApplication, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	s.approvedRole = domain.RoleDaoMember
	return &domain.DaoApplication{
		ID:          appID,
		ApplicantID: s.user.ID,
		Status:      domain.ApprovalStatusApproved,
	}, nil
}

func (s *daoRepoStub) RejectDaoApplication(ctx context.Context, appID, adminID uuid.UUID, reason string) (*domain.DaoApplication, error) {
	s.rejectedReason = reason
	return &domain.DaoApplication{
		ID:              appID,
		ApplicantID:     s.user.ID,
		Status:          domain.ApprovalStatusRejected,
		RejectionReason: &reason,
	}, nil
}

func newDaoService(repo store.Repository, allowReapply bool) *Service {
	cfg := config.Config{
		DaoAllowReapply: allowReapply,
		EventExchange:   "givehub.events",
	}
	return NewService(repo, nil, nil, cfg)
}

func applicant() *domain.User {
	return &domain.User{ID: uuid.New(), Role: domain.RoleDonor}
}

func TestSubmitDaoApplication_CreatesPendingApplication(t *testing.T) {
	repo := &daoRepoStub{user: applicant()}
	svc := newDaoService(repo, false)

	application, err := svc.SubmitDaoApplication(context.Background(), repo.user.ID, domain.SubmitDaoApplicationRequest{
		Introduction: "  Long-time volunteer  ",
		Fundraising:  true,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if application.Status != domain.ApprovalStatusPending {
		t.Fatalf("expected pending status, got %s", application.Status)
	}
	if application.Introduction != "Long-time volunteer" {
		t.Fatalf("expected trimmed introduction, got %q", application.Introduction)
	}
	if repo.created == nil {
		t.Fatal("expected the application to be persisted")
	}
}

func TestSubmitDaoApplication_RepeatSubmissionConflicts(t *testing.T) {
	repo := &daoRepoStub{user: applicant(), createErr: store.ErrApplicationExists}
	svc := newDaoService(repo, false)

	_, err := svc.SubmitDaoApplication(context.Background(), repo.user.ID, domain.SubmitDaoApplicationRequest{})
	if !errors.Is(err, ErrReapplyNotAllowed) {
		t.Fatalf("expected ErrReapplyNotAllowed, got %v", err)
	}
	if repo.reopenCalled {
		t.Fatal("expected no reopen attempt when re-application is disabled")
	}
}

func TestSubmitDaoApplication_ReopensRejectedWhenEnabled(t *testing.T) {
	repo := &daoRepoStub{user: applicant(), createErr: store.ErrApplicationExists}
	svc := newDaoService(repo, true)

	application, err := svc.SubmitDaoApplication(context.Background(), repo.user.ID, domain.SubmitDaoApplicationRequest{
		Introduction: "second attempt",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !repo.reopenCalled {
		t.Fatal("expected the rejected application to be reopened")
	}
	if application.Status != domain.ApprovalStatusPending {
		t.Fatalf("expected reopened application to be pending, got %s", application.Status)
	}
}

func TestSubmitDaoApplication_ReapplyStillConflictsForPendingRow(t *testing.T) {
	repo := &daoRepoStub{
		user:      applicant(),
		createErr: store.ErrApplicationExists,
		reopenErr: store.ErrApplicationExists,
	}
	svc := newDaoService(repo, true)

	_, err := svc.SubmitDaoApplication(context.Background(), repo.user.ID, domain.SubmitDaoApplicationRequest{})
	if !errors.Is(err, store.ErrApplicationExists) {
		t.Fatalf("expected ErrApplicationExists, got %v", err)
	}
}

func TestApproveDaoApplication_PromotesApplicant(t *testing.T) {
	repo := &daoRepoStub{user: applicant()}
	svc := newDaoService(repo, false)

	application, err := svc.ApproveDaoApplication(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if application.Status != domain.ApprovalStatusApproved {
		t.Fatalf("expected approved status, got %s", application.Status)
	}
	if repo.approvedRole != domain.RoleDaoMember {
		t.Fatal("expected applicant role promotion to dao_member")
	}
}

func TestApproveDaoApplication_PropagatesConflict(t *testing.T) {
	repo := &daoRepoStub{user: applicant(), approveErr: store.ErrAlreadyProcessed}
	svc := newDaoService(repo, false)

	_, err := svc.ApproveDaoApplication(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestRejectDaoApplication_RequiresReason(t *testing.T) {
	repo := &daoRepoStub{user: applicant()}
	svc := newDaoService(repo, false)

	if _, err := svc.RejectDaoApplication(context.Background(), uuid.New(), uuid.New(), "   "); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if repo.rejectedReason != "" {
		t.Fatal("expected no rejection without a reason")
	}
}

func TestRejectDaoApplication_RecordsReason(t *testing.T) {
	repo := &daoRepoStub{user: applicant()}
	svc := newDaoService(repo, false)

	application, err := svc.RejectDaoApplication(context.Background(), uuid.New(), uuid.New(), "insufficient experience")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if application.Status != domain.ApprovalStatusRejected {
		t.Fatalf("expected rejected status, got %s", application.Status)
	}
	if repo.rejectedReason != "insufficient experience" {
		t.Fatalf("unexpected reason %q", repo.rejectedReason)
	}
}
