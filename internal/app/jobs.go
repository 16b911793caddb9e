/**
 * @description
 * Background maintenance jobs run by the cron scheduler: sweeping pending
 * donations whose payment link has clearly been abandoned, and the periodic
 * DAO consensus catch-up.
 */

package app

import (
	"context"
	"log"
	"time"
)

// staleDonationReason is recorded on donations expired by the sweep.
const staleDonationReason = "payment link expired"

// SweepStalePendingDonations fails pending donations older than the configured
// TTL. Completed and failed rows are never touched; a late webhook for a swept
// donation is ignored by the same status guard that makes replays idempotent.
func (s *Service) SweepStalePendingDonations(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(s.cfg.DonationPendingTTLHours) * time.Hour)
	swept, err := s.repo.ExpireStalePendingDonations(ctx, cutoff, staleDonationReason)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		log.Printf("level=info component=jobs msg=\"stale pending donations swept\" count=%d cutoff=%s", swept, cutoff.Format(time.RFC3339))
	}
	return swept, nil
}
