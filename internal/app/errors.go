package app

import "errors"

// Business-rule errors surfaced by the service layer. Handlers map these to
// HTTP statuses with errors.Is.
var (
	ErrAmountTooSmall       = errors.New("donation amount is below the minimum")
	ErrCampaignNotAccepting = errors.New("campaign is not accepting donations")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrInvalidSignature     = errors.New("webhook signature mismatch")
	ErrGatewayFailure       = errors.New("payment gateway request failed")
	ErrNotDaoMember         = errors.New("voter is not a dao member")
	ErrVotingClosed         = errors.New("campaign is not open for dao voting")
	ErrReasonRequired       = errors.New("a rejection reason is required")
	ErrInvalidVoteDecision  = errors.New("vote decision must be approve or reject")
	ErrReapplyNotAllowed    = errors.New("re-application after rejection is not enabled")
)
