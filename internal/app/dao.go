/**
 * @description
 * DAO membership application workflow. A user submits at most one application;
 * an admin decision is pending-only and final, and approval promotes the
 * applicant's role to dao_member inside the store transaction. Re-application
 * after rejection is gated behind an explicit configuration flag.
 */

package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/givehub/donation-service/pkg/rabbitmq"
	"github.com/google/uuid"
)

// SubmitDaoApplication records a user's DAO membership application.
func (s *Service) SubmitDaoApplication(ctx context.Context, applicantID uuid.UUID, req domain.SubmitDaoApplicationRequest) (*domain.DaoApplication, error) {
	if _, err := s.repo.FindUserByID(ctx, applicantID); err != nil {
		return nil, err
	}

	application := &domain.DaoApplication{
		ID:             uuid.New(),
		ApplicantID:    applicantID,
		Introduction:   strings.TrimSpace(req.Introduction),
		Experience:     strings.TrimSpace(req.Experience),
		Fundraising:    req.Fundraising,
		Vetting:        req.Vetting,
		Community:      req.Community,
		Finance:        req.Finance,
		CertificateURL: req.CertificateURL,
		Status:         domain.ApprovalStatusPending,
	}

	err := s.repo.CreateDaoApplication(ctx, application)
	if err == nil {
		log.Printf("level=info component=dao msg=\"application submitted\" application_id=%s applicant_id=%s", application.ID, applicantID)
		return application, nil
	}
	if !errors.Is(err, store.ErrApplicationExists) {
		return nil, err
	}
	if !s.cfg.DaoAllowReapply {
		return nil, ErrReapplyNotAllowed
	}

	// Re-application reuses the rejected row; pending and approved rows still
	// refuse a second submission.
	reopened, err := s.repo.ReopenRejectedDaoApplication(ctx, application)
	if err != nil {
		if errors.Is(err, store.ErrApplicationExists) {
			return nil, store.ErrApplicationExists
		}
		return nil, err
	}
	log.Printf("level=info component=dao msg=\"rejected application reopened\" application_id=%s applicant_id=%s", reopened.ID, applicantID)
	return reopened, nil
}

// GetDaoApplication retrieves one application by ID.
func (s *Service) GetDaoApplication(ctx context.Context, appID uuid.UUID) (*domain.DaoApplication, error) {
	return s.repo.FindDaoApplicationByID(ctx, appID)
}

// ListDaoApplications returns applications in the given status for admin review.
func (s *Service) ListDaoApplications(ctx context.Context, status string, limit, offset int) ([]domain.DaoApplication, error) {
	if status == "" {
		status = domain.ApprovalStatusPending
	}
	return s.repo.ListDaoApplicationsByStatus(ctx, status, limit, offset)
}

// ApproveDaoApplication decides a pending application and promotes the
// applicant to dao_member.
func (s *Service) ApproveDaoApplication(ctx context.Context, appID, adminID uuid.UUID) (*domain.DaoApplication, error) {
	application, err := s.repo.ApproveDaoApplication(ctx, appID, adminID)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=dao msg=\"application approved\" application_id=%s applicant_id=%s admin_id=%s", application.ID, application.ApplicantID, adminID)
	s.publishEvent(RoutingKeyDaoApproved, rabbitmq.DaoMembershipEvent{
		ApplicationID: application.ID,
		ApplicantID:   application.ApplicantID,
		Decision:      domain.ApprovalStatusApproved,
		Timestamp:     time.Now().UTC(),
	})
	return application, nil
}

// RejectDaoApplication decides a pending application as rejected. The reason
// is mandatory and the applicant's role is untouched.
func (s *Service) RejectDaoApplication(ctx context.Context, appID, adminID uuid.UUID, reason string) (*domain.DaoApplication, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	application, err := s.repo.RejectDaoApplication(ctx, appID, adminID, reason)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=dao msg=\"application rejected\" application_id=%s applicant_id=%s admin_id=%s reason=%q", application.ID, application.ApplicantID, adminID, reason)
	s.publishEvent(RoutingKeyDaoRejected, rabbitmq.DaoMembershipEvent{
		ApplicationID: application.ID,
		ApplicantID:   application.ApplicantID,
		Decision:      domain.ApprovalStatusRejected,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
	})
	return application, nil
}
