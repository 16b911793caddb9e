/**
 * @description
 * This file contains the HTTP handlers for the donation endpoints. Handlers are
 * responsible for parsing incoming requests, calling the appropriate methods on
 * the application service, and writing the HTTP response. They act as the bridge
 * between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, io, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/givehub/donation-service/internal/app"
	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/google/uuid"
)

// maxWebhookBodyBytes caps the webhook body read to keep a misbehaving caller
// from exhausting memory.
const maxWebhookBodyBytes = 1 << 20

// DonationHandlers holds the application service that handlers will use.
type DonationHandlers struct {
	service           *app.Service
	limiter           *app.RedisDonationRateLimiter
	donationRateLimit int
}

// NewDonationHandlers creates a new instance of DonationHandlers.
func NewDonationHandlers(service *app.Service, limiter *app.RedisDonationRateLimiter, donationRateLimit int) *DonationHandlers {
	return &DonationHandlers{
		service:           service,
		limiter:           limiter,
		donationRateLimit: donationRateLimit,
	}
}

// CreateDonationHandler handles requests to create a donation and issue a
// hosted payment link. Guest callers are allowed; an authenticated caller's ID
// is attached as the donor.
func (h *DonationHandlers) CreateDonationHandler(w http.ResponseWriter, r *http.Request) {
	subject := clientIP(r)
	var donorID *uuid.UUID
	if user, ok := GetAuthUser(r.Context()); ok {
		donorID = &user.ID
		subject = user.ID.String()
	}

	if h.limiter != nil && h.donationRateLimit > 0 {
		count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "donation_create", subject, h.donationRateLimit, time.Minute)
		if err != nil {
			// Fail open: a limiter outage must not block donations.
			log.Printf("level=warn component=api endpoint=create_donation msg=\"rate limiter unavailable\" err=%v", err)
		} else if count > h.donationRateLimit {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			h.writeError(w, http.StatusTooManyRequests, "Too many donation attempts. Please try again shortly.")
			return
		}
	}

	var req domain.CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.service.CreateDonation(r.Context(), donorID, req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrAmountTooSmall), errors.Is(err, app.ErrCampaignNotAccepting):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrCampaignNotFound):
			h.writeError(w, http.StatusNotFound, "Campaign not found")
		case errors.Is(err, app.ErrGatewayFailure):
			h.writeError(w, http.StatusBadGateway, "Payment provider is unavailable. Please try again.")
		default:
			log.Printf("level=error component=api endpoint=create_donation msg=\"donation creation failed\" err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Could not create donation")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// GetDonationHandler returns a donation by its gateway order code.
func (h *DonationHandlers) GetDonationHandler(w http.ResponseWriter, r *http.Request) {
	orderCode := chi.URLParam(r, "orderCode")
	if orderCode == "" {
		h.writeError(w, http.StatusBadRequest, "Order code is required")
		return
	}

	donation, err := h.service.GetDonationByOrderCode(r.Context(), orderCode)
	if err != nil {
		if errors.Is(err, store.ErrDonationNotFound) {
			h.writeError(w, http.StatusNotFound, "Donation not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_donation msg=\"donation lookup failed\" order_code=%s err=%v", orderCode, err)
		h.writeError(w, http.StatusInternalServerError, "Could not fetch donation")
		return
	}

	h.writeJSON(w, http.StatusOK, donation)
}

// ListCampaignDonationsHandler returns the completed donations for a campaign.
func (h *DonationHandlers) ListCampaignDonationsHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	limit, offset, ok := h.parseListParams(w, r)
	if !ok {
		return
	}

	donations, err := h.service.ListCampaignDonations(r.Context(), campaignID, limit, offset)
	if err != nil {
		if errors.Is(err, store.ErrCampaignNotFound) {
			h.writeError(w, http.StatusNotFound, "Campaign not found")
			return
		}
		log.Printf("level=error component=api endpoint=list_donations msg=\"donation listing failed\" campaign_id=%s err=%v", campaignID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not list donations")
		return
	}
	if donations == nil {
		donations = []domain.Donation{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"donations": donations})
}

// WebhookHandler ingests payment gateway callbacks. Signature validation and
// idempotent state transitions happen in the service layer; this handler only
// maps outcomes to HTTP statuses.
func (h *DonationHandlers) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	ack, err := h.service.ProcessWebhook(r.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidPayload):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidSignature):
			h.writeError(w, http.StatusUnauthorized, "Invalid signature")
		default:
			log.Printf("level=error component=api endpoint=webhook msg=\"webhook processing failed\" err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Webhook processing failed")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, ack)
}

// parseListParams reads optional limit/offset query parameters, writing a 400
// response and returning ok=false on malformed input.
func (h *DonationHandlers) parseListParams(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, offset = 50, 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return 0, 0, false
		}
		limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid offset")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// clientIP extracts the caller address for rate-limit bucketing, preferring
// the first proxy-forwarded hop when present.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for i := 0; i < len(forwarded); i++ {
			if forwarded[i] == ',' {
				return forwarded[:i]
			}
		}
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON is a helper for writing JSON responses.
func (h *DonationHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *DonationHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
