/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface for
 * users, campaigns, and donations. It contains the SQL for the donation lifecycle,
 * including the transactional, row-locked campaign aggregate update that keeps
 * `current_amount` consistent under concurrent webhook deliveries.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrDonationNotFound    = errors.New("donation not found")
	ErrApplicationNotFound = errors.New("dao application not found")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrAlreadyVoted        = errors.New("voter has already voted on this campaign")
	ErrApplicationExists   = errors.New("dao application already exists for applicant")
	ErrDuplicateOrderCode  = errors.New("order code already in use")
)

// uniqueViolation is the PostgreSQL error code for unique-constraint violations.
const uniqueViolation = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return constraint == "" || pgErr.ConstraintName == constraint
	}
	return false
}

// FindUserByID retrieves a user from the database by their ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `
		SELECT id, email, COALESCE(full_name, ''), role, dao_approved_at, dao_rejected_at, dao_rejection_reason
		FROM users
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.Email, &user.FullName, &user.Role,
		&user.DaoApprovedAt, &user.DaoRejectedAt, &user.DaoRejectionReason,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

const donationColumns = `
	id, campaign_id, donor_id, amount, payment_method, order_code,
	COALESCE(message, ''), COALESCE(donor_name, ''), COALESCE(donor_email, ''),
	anonymous, status, failure_reason, completed_at, created_at
`

func scanDonation(row pgx.Row, d *domain.Donation) error {
	return row.Scan(
		&d.ID, &d.CampaignID, &d.DonorID, &d.Amount, &d.PaymentMethod, &d.OrderCode,
		&d.Message, &d.DonorName, &d.DonorEmail,
		&d.Anonymous, &d.Status, &d.FailureReason, &d.CompletedAt, &d.CreatedAt,
	)
}

// CreateDonation inserts a new donation record into the database.
// A duplicate order code surfaces as ErrDuplicateOrderCode so callers can
// regenerate and retry.
func (r *PostgresRepository) CreateDonation(ctx context.Context, d *domain.Donation) error {
	query := `
		INSERT INTO donations (
			id, campaign_id, donor_id, amount, payment_method, order_code,
			message, donor_name, donor_email, anonymous, status, failure_reason, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		d.ID, d.CampaignID, d.DonorID, d.Amount, d.PaymentMethod, d.OrderCode,
		d.Message, d.DonorName, d.DonorEmail, d.Anonymous, d.Status, d.FailureReason, d.CompletedAt,
	)
	if err != nil && isUniqueViolation(err, "") {
		return ErrDuplicateOrderCode
	}
	return err
}

// FindDonationByOrderCode retrieves a donation by its gateway order code.
func (r *PostgresRepository) FindDonationByOrderCode(ctx context.Context, orderCode string) (*domain.Donation, error) {
	var d domain.Donation
	err := scanDonation(r.db.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE order_code = $1`, orderCode), &d)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return &d, nil
}

// CompleteDonation flips a pending donation to completed and adds its amount to
// the owning campaign's running total, all inside one transaction. The donation
// row is locked first; if it has already left `pending` the transaction is a
// no-op and alreadyProcessed is reported, which makes webhook re-delivery safe.
// The campaign row is locked with FOR UPDATE so concurrent completions for the
// same campaign serialize instead of losing updates.
func (r *PostgresRepository) CompleteDonation(ctx context.Context, orderCode string) (*domain.Donation, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	var d domain.Donation
	err = scanDonation(tx.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE order_code = $1 FOR UPDATE`, orderCode), &d)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, ErrDonationNotFound
		}
		return nil, false, err
	}

	if d.Status != domain.DonationStatusPending {
		return &d, true, nil
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE donations SET status = $1, completed_at = $2 WHERE id = $3`,
		domain.DonationStatusCompleted, now, d.ID,
	); err != nil {
		return nil, false, err
	}

	if d.CampaignID != nil {
		// Lock the campaign row before touching the aggregate.
		var campaignID uuid.UUID
		err = tx.QueryRow(ctx, `SELECT id FROM campaigns WHERE id = $1 FOR UPDATE`, *d.CampaignID).Scan(&campaignID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, false, ErrCampaignNotFound
			}
			return nil, false, err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE campaigns SET current_amount = current_amount + $1, updated_at = NOW() WHERE id = $2`,
			d.Amount, campaignID,
		); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	d.Status = domain.DonationStatusCompleted
	d.CompletedAt = &now
	return &d, false, nil
}

// FailDonation flips a pending donation to failed with a reason. Donations that
// have already been decided are left untouched.
func (r *PostgresRepository) FailDonation(ctx context.Context, orderCode, reason string) (*domain.Donation, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	var d domain.Donation
	err = scanDonation(tx.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE order_code = $1 FOR UPDATE`, orderCode), &d)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, ErrDonationNotFound
		}
		return nil, false, err
	}

	if d.Status != domain.DonationStatusPending {
		return &d, true, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE donations SET status = $1, failure_reason = $2 WHERE id = $3`,
		domain.DonationStatusFailed, reason, d.ID,
	); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	d.Status = domain.DonationStatusFailed
	d.FailureReason = &reason
	return &d, false, nil
}

// ListCompletedDonationsByCampaign retrieves completed donations for a campaign,
// newest first.
func (r *PostgresRepository) ListCompletedDonationsByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Donation, error) {
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
		SELECT ` + donationColumns + `
		FROM donations
		WHERE campaign_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, campaignID, domain.DonationStatusCompleted, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		var d domain.Donation
		if err := scanDonation(rows, &d); err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// ExpireStalePendingDonations marks pending donations created before the cutoff
// as failed. Completed and failed rows are never touched.
func (r *PostgresRepository) ExpireStalePendingDonations(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE donations SET status = $1, failure_reason = $2 WHERE status = $3 AND created_at < $4`,
		domain.DonationStatusFailed, reason, domain.DonationStatusPending, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
