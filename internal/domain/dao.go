/**
 * @description
 * DAO membership domain models: the simplified user view this service needs, and
 * the membership application reviewed by admins. An approved application promotes
 * the applicant's role to `dao_member`, which entitles them to cast campaign votes.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// User roles relevant to this service.
const (
	RoleDonor     = "donor"
	RoleCharity   = "charity"
	RoleDaoMember = "dao_member"
	RoleAdmin     = "admin"
)

// User represents a simplified view of a platform user, containing only the
// data needed by the donation-service.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	Role               string     `json:"role"`
	DaoApprovedAt      *time.Time `json:"dao_approved_at,omitempty"`
	DaoRejectedAt      *time.Time `json:"dao_rejected_at,omitempty"`
	DaoRejectionReason *string    `json:"dao_rejection_reason,omitempty"`
}

// DaoApplication is a user's application for DAO membership. A user may hold at
// most one application row ever (unique applicant constraint); once decided the
// row is immutable unless re-application after rejection is explicitly enabled.
type DaoApplication struct {
	ID              uuid.UUID  `json:"id"`
	ApplicantID     uuid.UUID  `json:"applicant_id"`
	Introduction    string     `json:"introduction"`
	Experience      string     `json:"experience"`
	Fundraising     bool       `json:"interest_fundraising"`
	Vetting         bool       `json:"interest_vetting"`
	Community       bool       `json:"interest_community"`
	Finance         bool       `json:"interest_finance"`
	CertificateURL  *string    `json:"certificate_url,omitempty"`
	Status          string     `json:"status"`
	ReviewedBy      *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SubmitDaoApplicationRequest is the DTO for a membership application submission.
type SubmitDaoApplicationRequest struct {
	Introduction   string  `json:"introduction"`
	Experience     string  `json:"experience"`
	Fundraising    bool    `json:"interest_fundraising"`
	Vetting        bool    `json:"interest_vetting"`
	Community      bool    `json:"interest_community"`
	Finance        bool    `json:"interest_finance"`
	CertificateURL *string `json:"certificate_url,omitempty"`
}

// RejectDaoApplicationRequest carries the reviewer's rejection reason.
type RejectDaoApplicationRequest struct {
	Reason string `json:"reason"`
}
