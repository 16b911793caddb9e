/**
 * @description
 * DAO-facing handlers: membership application submission, campaign voting, and
 * the public vote tally. Voting routes require authentication; the membership
 * check itself (dao_member role) lives in the service layer so the store-level
 * uniqueness guarantee is the only vote-dedup mechanism.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/givehub/donation-service/internal/app"
	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/google/uuid"
)

// SubmitDaoApplicationHandler records the caller's DAO membership application.
func (h *DonationHandlers) SubmitDaoApplicationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req domain.SubmitDaoApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	application, err := h.service.SubmitDaoApplication(r.Context(), user.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrReapplyNotAllowed):
			h.writeError(w, http.StatusConflict, "Re-application after rejection is not enabled")
		case errors.Is(err, store.ErrApplicationExists):
			h.writeError(w, http.StatusConflict, "An application already exists for this user")
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("level=error component=api endpoint=submit_dao_application msg=\"submission failed\" applicant_id=%s err=%v", user.ID, err)
			h.writeError(w, http.StatusInternalServerError, "Could not submit application")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, application)
}

// CastVoteHandler records the caller's vote on a campaign awaiting DAO review.
func (h *DonationHandlers) CastVoteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	var req domain.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vote, err := h.service.CastVote(r.Context(), user.ID, campaignID, req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidVoteDecision):
			h.writeError(w, http.StatusBadRequest, "Vote decision must be approve or reject")
		case errors.Is(err, app.ErrNotDaoMember):
			h.writeError(w, http.StatusForbidden, "Only DAO members may vote")
		case errors.Is(err, app.ErrVotingClosed):
			h.writeError(w, http.StatusConflict, "Voting for this campaign has closed")
		case errors.Is(err, store.ErrAlreadyVoted):
			h.writeError(w, http.StatusConflict, "You have already voted on this campaign")
		case errors.Is(err, store.ErrCampaignNotFound):
			h.writeError(w, http.StatusNotFound, "Campaign not found")
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("level=error component=api endpoint=cast_vote msg=\"vote failed\" campaign_id=%s voter_id=%s err=%v", campaignID, user.ID, err)
			h.writeError(w, http.StatusInternalServerError, "Could not record vote")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, vote)
}

// GetVoteTallyHandler returns the current vote tally for a campaign.
func (h *DonationHandlers) GetVoteTallyHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	tally, err := h.service.GetVoteTally(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, store.ErrCampaignNotFound) {
			h.writeError(w, http.StatusNotFound, "Campaign not found")
			return
		}
		log.Printf("level=error component=api endpoint=vote_tally msg=\"tally failed\" campaign_id=%s err=%v", campaignID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not fetch vote tally")
		return
	}

	h.writeJSON(w, http.StatusOK, tally)
}

// ListVotesHandler returns the recorded votes for a campaign.
func (h *DonationHandlers) ListVotesHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	votes, err := h.service.ListVotes(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, store.ErrCampaignNotFound) {
			h.writeError(w, http.StatusNotFound, "Campaign not found")
			return
		}
		log.Printf("level=error component=api endpoint=list_votes msg=\"listing failed\" campaign_id=%s err=%v", campaignID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not list votes")
		return
	}
	if votes == nil {
		votes = []domain.CampaignVote{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"votes": votes})
}
