/**
 * @description
 * Cron scheduler setup for background maintenance jobs: the stale-donation
 * sweep and the periodic DAO consensus evaluation.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/givehub/donation-service/internal/config"
	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	config  config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(service *Service, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:    c,
		service: service,
		config:  cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.DonationSweepSchedule, s.runDonationSweep); err != nil {
		log.Printf("level=error component=scheduler msg=\"failed to schedule donation sweep\" schedule=%q err=%v", s.config.DonationSweepSchedule, err)
	} else {
		log.Printf("level=info component=scheduler msg=\"scheduled donation sweep\" schedule=%q", s.config.DonationSweepSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.DaoEvalSchedule, s.runDaoEvaluation); err != nil {
		log.Printf("level=error component=scheduler msg=\"failed to schedule dao evaluation\" schedule=%q err=%v", s.config.DaoEvalSchedule, err)
	} else {
		log.Printf("level=info component=scheduler msg=\"scheduled dao evaluation\" schedule=%q", s.config.DaoEvalSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runDonationSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := s.service.SweepStalePendingDonations(ctx); err != nil {
		log.Printf("level=error component=scheduler msg=\"donation sweep failed\" err=%v", err)
	}
}

func (s *Scheduler) runDaoEvaluation() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	decided, err := s.service.EvaluatePendingDaoCampaigns(ctx)
	if err != nil {
		log.Printf("level=error component=scheduler msg=\"dao evaluation failed\" err=%v", err)
		return
	}
	if decided > 0 {
		log.Printf("level=info component=scheduler msg=\"dao evaluation completed\" decided=%d", decided)
	}
}
