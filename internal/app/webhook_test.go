package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/givehub/donation-service/internal/config"
	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/givehub/donation-service/pkg/payosclient"
	"github.com/google/uuid"
)

const testChecksumKey = "test-checksum-key"

type webhookRepoStub struct {
	store.Repository

	donation *domain.Donation

	completeCalled bool
	failCalled     bool
	failReason     string
	created        *domain.Donation
}

func (s *webhookRepoStub) CompleteDonation(ctx context.Context, orderCode string) (*domain.Donation, bool, error) {
	if s.donation == nil || s.donation.OrderCode != orderCode {
		return nil, false, store.ErrDonationNotFound
	}
	if s.donation.Status != domain.DonationStatusPending {
		return s.donation, true, nil
	}
	s.completeCalled = true
	now := time.Now().UTC()
	updated := *s.donation
	updated.Status = domain.DonationStatusCompleted
	updated.CompletedAt = &now
	s.donation = &updated
	return &updated, false, nil
}

func (s *webhookRepoStub) FailDonation(ctx context.Context, orderCode, reason string) (*domain.Donation, bool, error) {
	if s.donation == nil || s.donation.OrderCode != orderCode {
		return nil, false, store.ErrDonationNotFound
	}
	if s.donation.Status != domain.DonationStatusPending {
		return s.donation, true, nil
	}
	s.failCalled = true
	s.failReason = reason
	updated := *s.donation
	updated.Status = domain.DonationStatusFailed
	updated.FailureReason = &reason
	s.donation = &updated
	return &updated, false, nil
}

func (s *webhookRepoStub) CreateDonation(ctx context.Context, d *domain.Donation) error {
	s.created = d
	return nil
}

func newWebhookService(repo store.Repository, orphans bool) *Service {
	cfg := config.Config{
		PayOSChecksumKey:       testChecksumKey,
		WebhookOrphanDonations: orphans,
		EventExchange:          "givehub.events",
	}
	return NewService(repo, nil, nil, cfg)
}

func pendingDonation(orderCode string, amount int64) *domain.Donation {
	campaignID := uuid.New()
	return &domain.Donation{
		ID:         uuid.New(),
		CampaignID: &campaignID,
		Amount:     amount,
		OrderCode:  orderCode,
		Status:     domain.DonationStatusPending,
	}
}

func signedWebhookBody(t *testing.T, data map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"code":      "00",
		"desc":      "success",
		"signature": payosclient.Sign(testChecksumKey, data),
		"data":      data,
	})
	if err != nil {
		t.Fatalf("failed to marshal webhook body: %v", err)
	}
	return body
}

func TestProcessWebhook_AcknowledgesKeepAlive(t *testing.T) {
	repo := &webhookRepoStub{}
	svc := newWebhookService(repo, false)

	ack, err := svc.ProcessWebhook(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !ack.Success {
		t.Fatal("expected keep-alive to be acknowledged as success")
	}
	if repo.completeCalled || repo.failCalled || repo.created != nil {
		t.Fatal("expected keep-alive to mutate nothing")
	}
}

func TestProcessWebhook_RejectsMalformedBody(t *testing.T) {
	svc := newWebhookService(&webhookRepoStub{}, false)

	if _, err := svc.ProcessWebhook(context.Background(), []byte(`not json`)); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestProcessWebhook_RejectsMissingSignature(t *testing.T) {
	svc := newWebhookService(&webhookRepoStub{}, false)

	body := []byte(`{"code":"00","desc":"ok","data":{"orderCode":"111"}}`)
	if _, err := svc.ProcessWebhook(context.Background(), body); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestProcessWebhook_RejectsFailureCodeWithoutMutation(t *testing.T) {
	repo := &webhookRepoStub{donation: pendingDonation("483920175634", 50000)}
	svc := newWebhookService(repo, false)

	data := map[string]interface{}{"orderCode": "483920175634", "amount": 50000, "status": "PAID"}
	body, err := json.Marshal(map[string]interface{}{
		"code":      "01",
		"desc":      "internal gateway error",
		"signature": payosclient.Sign(testChecksumKey, data),
		"data":      data,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if _, err := svc.ProcessWebhook(context.Background(), body); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if repo.completeCalled || repo.failCalled {
		t.Fatal("expected no state mutation for a failure result code")
	}
}

func TestProcessWebhook_RejectsBadSignatureWithoutMutation(t *testing.T) {
	repo := &webhookRepoStub{donation: pendingDonation("483920175634", 50000)}
	svc := newWebhookService(repo, false)

	data := map[string]interface{}{"orderCode": "483920175634", "amount": 50000, "status": "PAID"}
	body, err := json.Marshal(map[string]interface{}{
		"code":      "00",
		"desc":      "success",
		"signature": "deadbeef",
		"data":      data,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if _, err := svc.ProcessWebhook(context.Background(), body); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if repo.completeCalled || repo.failCalled {
		t.Fatal("expected no state mutation for a signature mismatch")
	}
}

func TestProcessWebhook_CompletesPendingDonation(t *testing.T) {
	repo := &webhookRepoStub{donation: pendingDonation("483920175634", 50000)}
	svc := newWebhookService(repo, false)

	body := signedWebhookBody(t, map[string]interface{}{
		"orderCode": "483920175634",
		"amount":    50000,
		"status":    "PAID",
	})

	ack, err := svc.ProcessWebhook(context.Background(), body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !ack.Success {
		t.Fatal("expected successful ack")
	}
	if !repo.completeCalled {
		t.Fatal("expected donation to be completed")
	}
	if repo.donation.Status != domain.DonationStatusCompleted {
		t.Fatalf("expected completed status, got %s", repo.donation.Status)
	}
}

func TestProcessWebhook_ReplayDoesNotDoubleApply(t *testing.T) {
	donation := pendingDonation("483920175634", 50000)
	donation.Status = domain.DonationStatusCompleted
	repo := &webhookRepoStub{donation: donation}
	svc := newWebhookService(repo, false)

	body := signedWebhookBody(t, map[string]interface{}{
		"orderCode": "483920175634",
		"amount":    50000,
		"status":    "PAID",
	})

	ack, err := svc.ProcessWebhook(context.Background(), body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !ack.Success {
		t.Fatal("expected replay to be acknowledged")
	}
	if repo.completeCalled {
		t.Fatal("expected no second completion for a replayed delivery")
	}
}

func TestProcessWebhook_FailsDonationOnCancelledStatus(t *testing.T) {
	repo := &webhookRepoStub{donation: pendingDonation("483920175634", 50000)}
	svc := newWebhookService(repo, false)

	body := signedWebhookBody(t, map[string]interface{}{
		"orderCode": "483920175634",
		"amount":    50000,
		"status":    "CANCELLED",
	})

	ack, err := svc.ProcessWebhook(context.Background(), body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !ack.Success {
		t.Fatal("expected successful ack")
	}
	if !repo.failCalled {
		t.Fatal("expected donation to be failed")
	}
	if repo.failReason != "gateway status CANCELLED" {
		t.Fatalf("unexpected failure reason %q", repo.failReason)
	}
}

func TestProcessWebhook_UnmatchedAcknowledgedWhenOrphansDisabled(t *testing.T) {
	repo := &webhookRepoStub{}
	svc := newWebhookService(repo, false)

	body := signedWebhookBody(t, map[string]interface{}{
		"orderCode": "999999999999",
		"amount":    25000,
		"status":    "PAID",
	})

	ack, err := svc.ProcessWebhook(context.Background(), body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !ack.Success {
		t.Fatal("expected unmatched delivery to be acknowledged")
	}
	if repo.created != nil {
		t.Fatal("expected no orphan row when orphan creation is disabled")
	}
}

func TestProcessWebhook_UnmatchedCreatesOrphanWhenEnabled(t *testing.T) {
	repo := &webhookRepoStub{}
	svc := newWebhookService(repo, true)

	body := signedWebhookBody(t, map[string]interface{}{
		"orderCode": "999999999999",
		"amount":    25000,
		"status":    "PAID",
	})

	ack, err := svc.ProcessWebhook(context.Background(), body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !ack.Success {
		t.Fatal("expected orphan delivery to be acknowledged")
	}
	if repo.created == nil {
		t.Fatal("expected an orphan reconciliation row")
	}
	if repo.created.CampaignID != nil {
		t.Fatal("expected orphan row without a campaign")
	}
	if repo.created.Status != domain.DonationStatusCompleted {
		t.Fatalf("expected orphan row to be completed, got %s", repo.created.Status)
	}
	if repo.created.Amount != 25000 {
		t.Fatalf("expected orphan amount 25000, got %d", repo.created.Amount)
	}
	if repo.created.OrderCode != "999999999999" {
		t.Fatalf("unexpected orphan order code %q", repo.created.OrderCode)
	}
}

func TestProcessWebhook_NumericOrderCodeIsCoerced(t *testing.T) {
	repo := &webhookRepoStub{donation: pendingDonation("483920175634", 50000)}
	svc := newWebhookService(repo, false)

	body := signedWebhookBody(t, map[string]interface{}{
		"orderCode": 483920175634,
		"amount":    50000,
		"status":    "PAID",
	})

	if _, err := svc.ProcessWebhook(context.Background(), body); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !repo.completeCalled {
		t.Fatal("expected numeric order code to match the stored donation")
	}
}

func TestProcessWebhook_GatewayTestDeliveryIsNoOp(t *testing.T) {
	repo := &webhookRepoStub{}
	svc := newWebhookService(repo, true)

	body := signedWebhookBody(t, map[string]interface{}{
		"orderCode": 123,
		"amount":    3000,
		"status":    "PAID",
	})
	ack, err := svc.ProcessWebhook(context.Background(), body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !ack.Success {
		t.Fatal("expected the test delivery to be acknowledged")
	}
	if repo.completeCalled || repo.failCalled || repo.created != nil {
		t.Fatal("expected no donation lookup or orphan row for the gateway test delivery")
	}
}
