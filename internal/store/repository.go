/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the donation-service. By defining an interface,
 * we decouple the application's business logic from the specific database
 * implementation (PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User methods
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// Campaign methods
	FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error)
	// Admin-facing pending listing: approval_status pending AND dao_approval_status
	// dao_approved. DAO consensus gates admin visibility.
	ListCampaignsPendingAdminApproval(ctx context.Context, limit, offset int) ([]domain.Campaign, error)
	// ApproveCampaign performs the pending-only admin approval transition and
	// activates the campaign. Returns ErrAlreadyProcessed when the campaign has
	// been decided, ErrCampaignNotFound when it does not exist.
	ApproveCampaign(ctx context.Context, campaignID, adminID uuid.UUID) (*domain.Campaign, error)
	RejectCampaign(ctx context.Context, campaignID, adminID uuid.UUID, reason string) (*domain.Campaign, error)
	// SetDaoApprovalStatus flips dao_approval_status out of pending. The returned
	// bool reports whether a row actually transitioned.
	SetDaoApprovalStatus(ctx context.Context, campaignID uuid.UUID, status string) (bool, error)
	ListCampaignsAwaitingDaoEvaluation(ctx context.Context, limit int) ([]domain.Campaign, error)

	// Donation methods
	CreateDonation(ctx context.Context, d *domain.Donation) error
	FindDonationByOrderCode(ctx context.Context, orderCode string) (*domain.Donation, error)
	// CompleteDonation atomically marks the donation completed and adds its amount
	// to the owning campaign's current_amount under a campaign row lock. A
	// donation already out of pending is left untouched and reported through the
	// alreadyProcessed flag.
	CompleteDonation(ctx context.Context, orderCode string) (d *domain.Donation, alreadyProcessed bool, err error)
	FailDonation(ctx context.Context, orderCode, reason string) (d *domain.Donation, alreadyProcessed bool, err error)
	ListCompletedDonationsByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Donation, error)
	// ExpireStalePendingDonations marks pending donations created before the
	// cutoff as failed and returns how many rows were swept.
	ExpireStalePendingDonations(ctx context.Context, cutoff time.Time, reason string) (int64, error)

	// Campaign vote methods
	CreateCampaignVote(ctx context.Context, vote *domain.CampaignVote) error
	TallyCampaignVotes(ctx context.Context, campaignID uuid.UUID) (*domain.VoteTally, error)
	ListCampaignVotes(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignVote, error)

	// DAO application methods
	CreateDaoApplication(ctx context.Context, app *domain.DaoApplication) error
	// ReopenRejectedDaoApplication resets the applicant's rejected row back to
	// pending with the new submission's fields. Returns ErrApplicationExists when
	// no rejected row is available to reopen.
	ReopenRejectedDaoApplication(ctx context.Context, app *domain.DaoApplication) (*domain.DaoApplication, error)
	FindDaoApplicationByID(ctx context.Context, appID uuid.UUID) (*domain.DaoApplication, error)
	ListDaoApplicationsByStatus(ctx context.Context, status string, limit, offset int) ([]domain.DaoApplication, error)
	// ApproveDaoApplication performs the pending-only decision and promotes the
	// applicant's user role to dao_member within the same transaction.
	ApproveDaoApplication(ctx context.Context, appID, adminID uuid.UUID) (*domain.DaoApplication, error)
	RejectDaoApplication(ctx context.Context, appID, adminID uuid.UUID, reason string) (*domain.DaoApplication, error)
}
