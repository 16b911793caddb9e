/**
 * @description
 * Admin moderation handlers: the campaign approval queue and DAO membership
 * application review. All routes here sit behind the admin role gate.
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

// ListPendingCampaignsHandler returns the admin approval queue: campaigns that
// hold DAO consensus and still await the admin decision.
func (h *DonationHandlers) ListPendingCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.parseListParams(w, r)
	if !ok {
		return
	}

	campaigns, err := h.service.ListCampaignsPendingApproval(r.Context(), limit, offset)
	if err != nil {
		log.Printf("level=error component=api endpoint=pending_campaigns msg=\"listing failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Could not list pending campaigns")
		return
	}
	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"campaigns": campaigns})
}

// ApproveCampaignHandler records the admin approval for a pending campaign.
func (h *DonationHandlers) ApproveCampaignHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	campaign, err := h.service.ApproveCampaign(r.Context(), campaignID, admin.ID)
	if err != nil {
		h.writeCampaignDecisionError(w, "approve_campaign", campaignID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, campaign)
}

// RejectCampaignHandler records the admin rejection for a pending campaign.
// The reason is mandatory.
func (h *DonationHandlers) RejectCampaignHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	var req domain.RejectCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	campaign, err := h.service.RejectCampaign(r.Context(), campaignID, admin.ID, req.Reason)
	if err != nil {
		if errors.Is(err, app.ErrReasonRequired) {
			h.writeError(w, http.StatusBadRequest, "A rejection reason is required")
			return
		}
		h.writeCampaignDecisionError(w, "reject_campaign", campaignID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, campaign)
}

func (h *DonationHandlers) writeCampaignDecisionError(w http.ResponseWriter, endpoint string, campaignID uuid.UUID, err error) {
	switch {
	case errors.Is(err, store.ErrCampaignNotFound):
		h.writeError(w, http.StatusNotFound, "Campaign not found")
	case errors.Is(err, store.ErrAlreadyProcessed):
		h.writeError(w, http.StatusConflict, "Campaign has already been processed")
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"decision failed\" campaign_id=%s err=%v", endpoint, campaignID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not process decision")
	}
}

// ListDaoApplicationsHandler returns DAO membership applications, filtered by
// status (pending by default).
func (h *DonationHandlers) ListDaoApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.parseListParams(w, r)
	if !ok {
		return
	}

	applications, err := h.service.ListDaoApplications(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_dao_applications msg=\"listing failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Could not list applications")
		return
	}
	if applications == nil {
		applications = []domain.DaoApplication{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"applications": applications})
}

// GetDaoApplicationHandler returns a single application for admin review.
func (h *DonationHandlers) GetDaoApplicationHandler(w http.ResponseWriter, r *http.Request) {
	appID, err := uuid.Parse(chi.URLParam(r, "applicationID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid application ID")
		return
	}

	application, err := h.service.GetDaoApplication(r.Context(), appID)
	if err != nil {
		if errors.Is(err, store.ErrApplicationNotFound) {
			h.writeError(w, http.StatusNotFound, "Application not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_dao_application msg=\"lookup failed\" application_id=%s err=%v", appID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not fetch application")
		return
	}

	h.writeJSON(w, http.StatusOK, application)
}

// ApproveDaoApplicationHandler approves a pending application and promotes the
// applicant to dao_member.
func (h *DonationHandlers) ApproveDaoApplicationHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	appID, err := uuid.Parse(chi.URLParam(r, "applicationID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid application ID")
		return
	}

	application, err := h.service.ApproveDaoApplication(r.Context(), appID, admin.ID)
	if err != nil {
		h.writeApplicationDecisionError(w, "approve_dao_application", appID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, application)
}

// RejectDaoApplicationHandler rejects a pending application with a mandatory
// reason.
func (h *DonationHandlers) RejectDaoApplicationHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	appID, err := uuid.Parse(chi.URLParam(r, "applicationID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid application ID")
		return
	}

	var req domain.RejectDaoApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	application, err := h.service.RejectDaoApplication(r.Context(), appID, admin.ID, req.Reason)
	if err != nil {
		if errors.Is(err, app.ErrReasonRequired) {
			h.writeError(w, http.StatusBadRequest, "A rejection reason is required")
			return
		}
		h.writeApplicationDecisionError(w, "reject_dao_application", appID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, application)
}

func (h *DonationHandlers) writeApplicationDecisionError(w http.ResponseWriter, endpoint string, appID uuid.UUID, err error) {
	switch {
	case errors.Is(err, store.ErrApplicationNotFound):
		h.writeError(w, http.StatusNotFound, "Application not found")
	case errors.Is(err, store.ErrAlreadyProcessed):
		h.writeError(w, http.StatusConflict, "Application has already been processed")
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"decision failed\" application_id=%s err=%v", endpoint, appID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not process decision")
	}
}
