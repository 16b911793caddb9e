package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/givehub/donation-service/internal/app"
	"github.com/givehub/donation-service/internal/config"
	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/givehub/donation-service/pkg/payosclient"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	testJWTSecret   = "test-jwt-secret"
	testChecksumKey = "test-checksum-key"
)

type apiRepoStub struct {
	store.Repository

	campaign   *domain.Campaign
	approveErr error

	completeCalled bool
}

func (s *apiRepoStub) FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	if s.campaign == nil || s.campaign.ID != campaignID {
		return nil, store.ErrCampaignNotFound
	}
	return s.campaign, nil
}

func (s *apiRepoStub) ApproveCampaign(ctx context.Context, campaignID, adminID uuid.UUID) (*domain.Campaign, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	return &domain.Campaign{
		ID:             campaignID,
		CharityID:      uuid.New(),
		ApprovalStatus: domain.ApprovalStatusApproved,
		Status:         domain.CampaignStatusActive,
	}, nil
}

func (s *apiRepoStub) CompleteDonation(ctx context.Context, orderCode string) (*domain.Donation, bool, error) {
	s.completeCalled = true
	return nil, false, store.ErrDonationNotFound
}

func newTestServer(repo store.Repository) http.Handler {
	cfg := config.Config{
		MinDonationAmount: 10000,
		PayOSChecksumKey:  testChecksumKey,
		EventExchange:     "givehub.events",
	}
	service := app.NewService(repo, nil, nil, cfg)
	handlers := NewDonationHandlers(service, nil, 0)
	return Routes(handlers, testJWTSecret)
}

func makeToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestWebhookEndpoint_AcknowledgesKeepAlive(t *testing.T) {
	router := newTestServer(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payos", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ack domain.WebhookAck
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if !ack.Success {
		t.Fatal("expected success ack for keep-alive")
	}
}

func TestWebhookEndpoint_RejectsBadSignature(t *testing.T) {
	repo := &apiRepoStub{}
	router := newTestServer(repo)

	body, _ := json.Marshal(map[string]interface{}{
		"code":      "00",
		"desc":      "success",
		"signature": "deadbeef",
		"data":      map[string]interface{}{"orderCode": "483920175634", "amount": 50000, "status": "PAID"},
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payos", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if repo.completeCalled {
		t.Fatal("expected no donation lookup for a bad signature")
	}
}

func TestWebhookEndpoint_RejectsMalformedBody(t *testing.T) {
	router := newTestServer(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payos", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhookEndpoint_ValidSignatureUnmatchedIsAcknowledged(t *testing.T) {
	repo := &apiRepoStub{}
	router := newTestServer(repo)

	data := map[string]interface{}{"orderCode": "483920175634", "amount": 50000, "status": "PAID"}
	body, _ := json.Marshal(map[string]interface{}{
		"code":      "00",
		"desc":      "success",
		"signature": payosclient.Sign(testChecksumKey, data),
		"data":      data,
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payos", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !repo.completeCalled {
		t.Fatal("expected a donation lookup for a valid delivery")
	}
}

func TestCreateDonationEndpoint_RejectsBelowMinimum(t *testing.T) {
	router := newTestServer(&apiRepoStub{})

	body, _ := json.Marshal(domain.CreateDonationRequest{
		CampaignID: uuid.New(),
		Amount:     500,
	})
	req := httptest.NewRequest(http.MethodPost, "/donations", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminApproveEndpoint_RequiresAuth(t *testing.T) {
	router := newTestServer(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodPost, "/admin/campaigns/"+uuid.NewString()+"/approve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminApproveEndpoint_RejectsNonAdminRole(t *testing.T) {
	router := newTestServer(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodPost, "/admin/campaigns/"+uuid.NewString()+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, uuid.New(), domain.RoleDonor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdminApproveEndpoint_ApprovesCampaign(t *testing.T) {
	router := newTestServer(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodPost, "/admin/campaigns/"+uuid.NewString()+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, uuid.New(), domain.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var campaign domain.Campaign
	if err := json.NewDecoder(rec.Body).Decode(&campaign); err != nil {
		t.Fatalf("failed to decode campaign: %v", err)
	}
	if campaign.Status != domain.CampaignStatusActive {
		t.Fatalf("expected activated campaign, got %s", campaign.Status)
	}
}

func TestAdminApproveEndpoint_DecidedCampaignConflicts(t *testing.T) {
	router := newTestServer(&apiRepoStub{approveErr: store.ErrAlreadyProcessed})

	req := httptest.NewRequest(http.MethodPost, "/admin/campaigns/"+uuid.NewString()+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, uuid.New(), domain.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCastVoteEndpoint_RequiresAuth(t *testing.T) {
	router := newTestServer(&apiRepoStub{})

	body, _ := json.Marshal(domain.CastVoteRequest{Decision: "approve"})
	req := httptest.NewRequest(http.MethodPost, "/campaigns/"+uuid.NewString()+"/votes", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

type listingRepoStub struct {
	store.Repository

	campaign  *domain.Campaign
	donations []domain.Donation
}

func (s *listingRepoStub) FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	if s.campaign == nil || s.campaign.ID != campaignID {
		return nil, store.ErrCampaignNotFound
	}
	return s.campaign, nil
}

func (s *listingRepoStub) ListCompletedDonationsByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Donation, error) {
	return s.donations, nil
}

func TestListCampaignDonationsEndpoint_HidesAnonymousDonorIdentity(t *testing.T) {
	campaignID := uuid.New()
	donorID := uuid.New()
	repo := &listingRepoStub{
		campaign: &domain.Campaign{ID: campaignID, CharityID: uuid.New()},
		donations: []domain.Donation{{
			ID:         uuid.New(),
			CampaignID: &campaignID,
			DonorID:    &donorID,
			Amount:     50000,
			DonorName:  "Jane Realname",
			DonorEmail: "jane@example.com",
			Anonymous:  true,
			Status:     domain.DonationStatusCompleted,
		}},
	}
	router := newTestServer(repo)

	req := httptest.NewRequest(http.MethodGet, "/campaigns/"+campaignID.String()+"/donations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if strings.Contains(body, "Jane Realname") || strings.Contains(body, "jane@example.com") {
		t.Fatalf("expected donor identity to be hidden, got %s", body)
	}
	var donations []domain.Donation
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&donations); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if len(donations) != 1 || donations[0].DonorName != "Anonymous" || donations[0].Amount != 50000 {
		t.Fatalf("expected one redacted donation with its amount, got %+v", donations)
	}
}
