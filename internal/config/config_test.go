package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{
		"MIN_DONATION_AMOUNT", "DAO_VOTE_QUORUM", "DAO_APPROVAL_THRESHOLD",
		"DONATION_PENDING_TTL_HOURS", "DONATION_SWEEP_SCHEDULE", "DONATION_RATE_LIMIT_PER_MINUTE",
		"WEBHOOK_ORPHAN_DONATIONS", "DAO_ALLOW_REAPPLY",
	} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MinDonationAmount != 10000 {
		t.Fatalf("expected default MinDonationAmount 10000, got %d", cfg.MinDonationAmount)
	}
	if cfg.DaoVoteQuorum != 5 {
		t.Fatalf("expected default DaoVoteQuorum 5, got %d", cfg.DaoVoteQuorum)
	}
	if cfg.DaoApprovalThreshold != 0.5 {
		t.Fatalf("expected default DaoApprovalThreshold 0.5, got %f", cfg.DaoApprovalThreshold)
	}
	if cfg.DonationPendingTTLHours != 72 {
		t.Fatalf("expected default DonationPendingTTLHours 72, got %d", cfg.DonationPendingTTLHours)
	}
	if cfg.DonationSweepSchedule != "@hourly" {
		t.Fatalf("expected default sweep schedule @hourly, got %q", cfg.DonationSweepSchedule)
	}
	if cfg.WebhookOrphanDonations {
		t.Fatal("expected orphan donation creation to default off")
	}
	if cfg.DaoAllowReapply {
		t.Fatal("expected DAO re-application to default off")
	}
}

func TestLoadConfig_CoercesInvalidThreshold(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "DAO_APPROVAL_THRESHOLD", "1.5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DaoApprovalThreshold != 0.5 {
		t.Fatalf("expected out-of-range threshold to fall back to 0.5, got %f", cfg.DaoApprovalThreshold)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9999")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9999" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_TrimsPayOSBaseURL(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "PAYOS_API_BASE_URL", " https://api-merchant.payos.vn/ ")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PayOSAPIBaseURL != "https://api-merchant.payos.vn" {
		t.Fatalf("expected trimmed base URL, got %q", cfg.PayOSAPIBaseURL)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
