/**
 * @description
 * PostgreSQL implementation of the approval-workflow repository methods: the
 * campaign admin approval state machine, the DAO vote records and tally, and the
 * DAO membership application review. Pending-only transitions are expressed as
 * conditional UPDATEs guarded by the current status, so two concurrent decisions
 * on the same row resolve to exactly one winner at the database level.
 */

package store

import (
	"context"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const campaignColumns = `
	id, charity_id, title, COALESCE(description, ''), COALESCE(category, ''),
	goal_amount, current_amount, start_date, end_date,
	approval_status, dao_approval_status, status,
	approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	created_at, updated_at
`

func scanCampaign(row pgx.Row, c *domain.Campaign) error {
	return row.Scan(
		&c.ID, &c.CharityID, &c.Title, &c.Description, &c.Category,
		&c.GoalAmount, &c.CurrentAmount, &c.StartDate, &c.EndDate,
		&c.ApprovalStatus, &c.DaoApprovalStatus, &c.Status,
		&c.ApprovedBy, &c.ApprovedAt, &c.RejectedBy, &c.RejectedAt, &c.RejectionReason,
		&c.CreatedAt, &c.UpdatedAt,
	)
}

// FindCampaignByID retrieves a campaign by its ID.
func (r *PostgresRepository) FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	var c domain.Campaign
	err := scanCampaign(r.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, campaignID), &c)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCampaignsPendingAdminApproval retrieves campaigns awaiting the admin
// decision. The listing is pre-filtered to campaigns that already carry DAO
// consensus: admin approval is gated behind dao_approved.
func (r *PostgresRepository) ListCampaignsPendingAdminApproval(ctx context.Context, limit, offset int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE approval_status = $1 AND dao_approval_status = $2
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, domain.ApprovalStatusPending, domain.DaoApprovalApproved, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := scanCampaign(rows, &c); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// ApproveCampaign transitions a pending campaign to approved and flips its
// operational status to active, stamping the approver and timestamp. The guard
// `approval_status = 'pending'` makes concurrent approvals resolve to one
// winner; the loser gets ErrAlreadyProcessed.
func (r *PostgresRepository) ApproveCampaign(ctx context.Context, campaignID, adminID uuid.UUID) (*domain.Campaign, error) {
	query := `
		UPDATE campaigns
		SET approval_status = $1, status = $2, approved_by = $3, approved_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND approval_status = $5
		RETURNING ` + campaignColumns + `
	`
	var c domain.Campaign
	err := scanCampaign(r.db.QueryRow(ctx, query,
		domain.ApprovalStatusApproved, domain.CampaignStatusActive, adminID,
		campaignID, domain.ApprovalStatusPending,
	), &c)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.classifyUndecidableCampaign(ctx, campaignID)
		}
		return nil, err
	}
	return &c, nil
}

// RejectCampaign transitions a pending campaign to rejected with a reason. The
// operational status is deliberately left unchanged: a rejected campaign is
// never activated.
func (r *PostgresRepository) RejectCampaign(ctx context.Context, campaignID, adminID uuid.UUID, reason string) (*domain.Campaign, error) {
	query := `
		UPDATE campaigns
		SET approval_status = $1, rejected_by = $2, rejected_at = NOW(), rejection_reason = $3, updated_at = NOW()
		WHERE id = $4 AND approval_status = $5
		RETURNING ` + campaignColumns + `
	`
	var c domain.Campaign
	err := scanCampaign(r.db.QueryRow(ctx, query,
		domain.ApprovalStatusRejected, adminID, reason,
		campaignID, domain.ApprovalStatusPending,
	), &c)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.classifyUndecidableCampaign(ctx, campaignID)
		}
		return nil, err
	}
	return &c, nil
}

// classifyUndecidableCampaign distinguishes "campaign does not exist" from
// "campaign already decided" after a guarded UPDATE matched no rows.
func (r *PostgresRepository) classifyUndecidableCampaign(ctx context.Context, campaignID uuid.UUID) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM campaigns WHERE id = $1)`, campaignID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrAlreadyProcessed
	}
	return ErrCampaignNotFound
}

// SetDaoApprovalStatus flips dao_approval_status out of pending. Returns false
// when the campaign was missing or already evaluated.
func (r *PostgresRepository) SetDaoApprovalStatus(ctx context.Context, campaignID uuid.UUID, status string) (bool, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE campaigns SET dao_approval_status = $1, updated_at = NOW() WHERE id = $2 AND dao_approval_status = $3`,
		status, campaignID, domain.DaoApprovalPending,
	)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// ListCampaignsAwaitingDaoEvaluation retrieves campaigns whose DAO review is
// still open, oldest first, for the periodic tally evaluation job.
func (r *PostgresRepository) ListCampaignsAwaitingDaoEvaluation(ctx context.Context, limit int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE dao_approval_status = $1 AND approval_status = $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, domain.DaoApprovalPending, domain.ApprovalStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := scanCampaign(rows, &c); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// CreateCampaignVote inserts a DAO member's vote. The unique (campaign_id,
// voter_id) constraint surfaces a duplicate vote as ErrAlreadyVoted.
func (r *PostgresRepository) CreateCampaignVote(ctx context.Context, vote *domain.CampaignVote) error {
	query := `
		INSERT INTO campaign_votes (id, campaign_id, voter_id, decision, reason)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, vote.ID, vote.CampaignID, vote.VoterID, vote.Decision, vote.Reason)
	if err != nil && isUniqueViolation(err, "") {
		return ErrAlreadyVoted
	}
	return err
}

// TallyCampaignVotes aggregates the recorded votes for one campaign.
func (r *PostgresRepository) TallyCampaignVotes(ctx context.Context, campaignID uuid.UUID) (*domain.VoteTally, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE decision = 'approve') AS approve_count,
			COUNT(*) FILTER (WHERE decision = 'reject') AS reject_count,
			COUNT(*) AS total
		FROM campaign_votes
		WHERE campaign_id = $1
	`
	tally := domain.VoteTally{CampaignID: campaignID}
	if err := r.db.QueryRow(ctx, query, campaignID).Scan(&tally.ApproveCount, &tally.RejectCount, &tally.Total); err != nil {
		return nil, err
	}
	if tally.Total > 0 {
		tally.ApprovalRate = float64(tally.ApproveCount) / float64(tally.Total)
	}
	return &tally, nil
}

// ListCampaignVotes retrieves all votes for a campaign, newest first.
func (r *PostgresRepository) ListCampaignVotes(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignVote, error) {
	query := `
		SELECT id, campaign_id, voter_id, decision, COALESCE(reason, ''), created_at
		FROM campaign_votes
		WHERE campaign_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []domain.CampaignVote
	for rows.Next() {
		var v domain.CampaignVote
		if err := rows.Scan(&v.ID, &v.CampaignID, &v.VoterID, &v.Decision, &v.Reason, &v.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

const daoApplicationColumns = `
	id, applicant_id, COALESCE(introduction, ''), COALESCE(experience, ''),
	interest_fundraising, interest_vetting, interest_community, interest_finance,
	certificate_url, status, reviewed_by, reviewed_at, rejection_reason,
	created_at, updated_at
`

func scanDaoApplication(row pgx.Row, a *domain.DaoApplication) error {
	return row.Scan(
		&a.ID, &a.ApplicantID, &a.Introduction, &a.Experience,
		&a.Fundraising, &a.Vetting, &a.Community, &a.Finance,
		&a.CertificateURL, &a.Status, &a.ReviewedBy, &a.ReviewedAt, &a.RejectionReason,
		&a.CreatedAt, &a.UpdatedAt,
	)
}

// CreateDaoApplication inserts a membership application. The unique applicant
// constraint surfaces a repeat submission as ErrApplicationExists.
func (r *PostgresRepository) CreateDaoApplication(ctx context.Context, app *domain.DaoApplication) error {
	query := `
		INSERT INTO dao_applications (
			id, applicant_id, introduction, experience,
			interest_fundraising, interest_vetting, interest_community, interest_finance,
			certificate_url, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		app.ID, app.ApplicantID, app.Introduction, app.Experience,
		app.Fundraising, app.Vetting, app.Community, app.Finance,
		app.CertificateURL, app.Status,
	)
	if err != nil && isUniqueViolation(err, "") {
		return ErrApplicationExists
	}
	return err
}

// ReopenRejectedDaoApplication resets the applicant's rejected application back
// to pending with the new submission's fields. The guard on `status = 'rejected'`
// keeps pending and approved rows immutable.
func (r *PostgresRepository) ReopenRejectedDaoApplication(ctx context.Context, app *domain.DaoApplication) (*domain.DaoApplication, error) {
	query := `
		UPDATE dao_applications
		SET introduction = $1, experience = $2,
		    interest_fundraising = $3, interest_vetting = $4, interest_community = $5, interest_finance = $6,
		    certificate_url = $7, status = $8,
		    reviewed_by = NULL, reviewed_at = NULL, rejection_reason = NULL, updated_at = NOW()
		WHERE applicant_id = $9 AND status = $10
		RETURNING ` + daoApplicationColumns + `
	`
	var reopened domain.DaoApplication
	err := scanDaoApplication(r.db.QueryRow(ctx, query,
		app.Introduction, app.Experience,
		app.Fundraising, app.Vetting, app.Community, app.Finance,
		app.CertificateURL, domain.ApprovalStatusPending,
		app.ApplicantID, domain.ApprovalStatusRejected,
	), &reopened)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrApplicationExists
		}
		return nil, err
	}
	return &reopened, nil
}

// FindDaoApplicationByID retrieves a membership application by its ID.
func (r *PostgresRepository) FindDaoApplicationByID(ctx context.Context, appID uuid.UUID) (*domain.DaoApplication, error) {
	var a domain.DaoApplication
	err := scanDaoApplication(r.db.QueryRow(ctx, `SELECT `+daoApplicationColumns+` FROM dao_applications WHERE id = $1`, appID), &a)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListDaoApplicationsByStatus retrieves applications filtered by status,
// oldest first.
func (r *PostgresRepository) ListDaoApplicationsByStatus(ctx context.Context, status string, limit, offset int) ([]domain.DaoApplication, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + daoApplicationColumns + `
		FROM dao_applications
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.DaoApplication
	for rows.Next() {
		var a domain.DaoApplication
		if err := scanDaoApplication(rows, &a); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// ApproveDaoApplication decides a pending application and promotes the
// applicant's user role to dao_member, in one transaction. The pending-only
// guard makes repeat decisions fail with ErrAlreadyProcessed.
func (r *PostgresRepository) ApproveDaoApplication(ctx context.Context, appID, adminID uuid.UUID) (*domain.DaoApplication, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE dao_applications
		SET status = $1, reviewed_by = $2, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING ` + daoApplicationColumns + `
	`
	var a domain.DaoApplication
	err = scanDaoApplication(tx.QueryRow(ctx, query,
		domain.ApprovalStatusApproved, adminID, appID, domain.ApprovalStatusPending,
	), &a)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.classifyUndecidableApplication(ctx, appID)
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET role = $1, dao_approved_at = NOW() WHERE id = $2`,
		domain.RoleDaoMember, a.ApplicantID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &a, nil
}

// RejectDaoApplication decides a pending application as rejected, stamping
// rejection metadata on both the application and the user. The user's role is
// left untouched.
func (r *PostgresRepository) RejectDaoApplication(ctx context.Context, appID, adminID uuid.UUID, reason string) (*domain.DaoApplication, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE dao_applications
		SET status = $1, reviewed_by = $2, reviewed_at = NOW(), rejection_reason = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING ` + daoApplicationColumns + `
	`
	var a domain.DaoApplication
	err = scanDaoApplication(tx.QueryRow(ctx, query,
		domain.ApprovalStatusRejected, adminID, reason, appID, domain.ApprovalStatusPending,
	), &a)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.classifyUndecidableApplication(ctx, appID)
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET dao_rejected_at = NOW(), dao_rejection_reason = $1 WHERE id = $2`,
		reason, a.ApplicantID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepository) classifyUndecidableApplication(ctx context.Context, appID uuid.UUID) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dao_applications WHERE id = $1)`, appID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrAlreadyProcessed
	}
	return ErrApplicationNotFound
}
