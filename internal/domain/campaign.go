/**
 * @description
 * Campaign and campaign-vote domain models. A campaign carries two independent
 * approval state machines: `approval_status` (admin decision) and
 * `dao_approval_status` (derived from DAO member votes). DAO consensus gates admin
 * visibility of pending campaigns, but the admin decision remains independent
 * and final.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Admin approval states. `pending` is the only state a decision may be taken from;
// `approved` and `rejected` are terminal.
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// DAO approval states, driven by the vote tally evaluator.
const (
	DaoApprovalPending  = "pending"
	DaoApprovalApproved = "dao_approved"
	DaoApprovalRejected = "dao_rejected"
)

// Operational campaign statuses.
const (
	CampaignStatusPending   = "pending"
	CampaignStatusActive    = "active"
	CampaignStatusCompleted = "completed"
	CampaignStatusCancelled = "cancelled"
)

// Vote decisions.
const (
	VoteApprove = "approve"
	VoteReject  = "reject"
)

// Campaign represents a fundraising campaign. Maps to the `campaigns` table.
// CurrentAmount is a derived accumulator: it changes only inside the same
// transaction that marks a donation completed, under a row lock.
type Campaign struct {
	ID                uuid.UUID  `json:"id"`
	CharityID         uuid.UUID  `json:"charity_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	GoalAmount        int64      `json:"goal_amount"`
	CurrentAmount     int64      `json:"current_amount"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	ApprovalStatus    string     `json:"approval_status"`
	DaoApprovalStatus string     `json:"dao_approval_status"`
	Status            string     `json:"status"`
	ApprovedBy        *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	RejectedBy        *uuid.UUID `json:"rejected_by,omitempty"`
	RejectedAt        *time.Time `json:"rejected_at,omitempty"`
	RejectionReason   *string    `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CampaignVote is one DAO member's vote on a campaign. At most one vote per
// (campaign, voter) pair, enforced by a database uniqueness constraint rather
// than a business-logic check.
type CampaignVote struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	VoterID    uuid.UUID `json:"voter_id"`
	Decision   string    `json:"decision"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CastVoteRequest is the DTO for a DAO member's vote submission.
type CastVoteRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// VoteTally aggregates the recorded votes for one campaign.
type VoteTally struct {
	CampaignID   uuid.UUID `json:"campaign_id"`
	ApproveCount int       `json:"approve_count"`
	RejectCount  int       `json:"reject_count"`
	Total        int       `json:"total"`
	ApprovalRate float64   `json:"approval_rate"` // 0 when no votes recorded
}

// RejectCampaignRequest carries the mandatory rejection reason.
type RejectCampaignRequest struct {
	Reason string `json:"reason"`
}
