/**
 * @description
 * This file sets up the HTTP router for the donation-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication and CORS.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/givehub/donation-service/internal/domain"
)

// Routes creates and returns the router for the donation service.
func Routes(h *DonationHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Gateway callback. Authenticity comes from the HMAC signature, not a JWT.
	r.Post("/webhooks/payos", h.WebhookHandler)

	// Public routes; donation creation accepts guests but attaches the caller
	// identity when a valid token is present.
	r.Group(func(r chi.Router) {
		r.Use(OptionalAuthMiddleware(jwtSecret))

		r.Post("/donations", h.CreateDonationHandler)
		r.Get("/donations/{orderCode}", h.GetDonationHandler)
		r.Get("/campaigns/{campaignID}/donations", h.ListCampaignDonationsHandler)
		r.Get("/campaigns/{campaignID}/votes", h.ListVotesHandler)
		r.Get("/campaigns/{campaignID}/votes/tally", h.GetVoteTallyHandler)
	})

	// Routes that require an authenticated caller.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Post("/dao/applications", h.SubmitDaoApplicationHandler)
		r.Post("/campaigns/{campaignID}/votes", h.CastVoteHandler)
	})

	// Admin moderation routes.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))
		r.Use(RequireRole(domain.RoleAdmin))

		r.Get("/admin/campaigns/pending", h.ListPendingCampaignsHandler)
		r.Post("/admin/campaigns/{campaignID}/approve", h.ApproveCampaignHandler)
		r.Post("/admin/campaigns/{campaignID}/reject", h.RejectCampaignHandler)

		r.Get("/admin/dao/applications", h.ListDaoApplicationsHandler)
		r.Get("/admin/dao/applications/{applicationID}", h.GetDaoApplicationHandler)
		r.Post("/admin/dao/applications/{applicationID}/approve", h.ApproveDaoApplicationHandler)
		r.Post("/admin/dao/applications/{applicationID}/reject", h.RejectDaoApplicationHandler)
	})

	return r
}
