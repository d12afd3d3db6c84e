package services

import (
	"context"
	"time"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ExpirySweeper retires open offers nobody accepted. The sweep runs on every
// instance but only the leader executes it.
type ExpirySweeper struct {
	cron       *cron.Cron
	offers     *OfferService
	leader     domain.LeaderElection
	instanceID string
	maxAge     time.Duration
	log        logger.Logger
}

func NewExpirySweeper(offers *OfferService, leader domain.LeaderElection,
	instanceID string, maxAge time.Duration, log logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		cron:       cron.New(),
		offers:     offers,
		leader:     leader,
		instanceID: instanceID,
		maxAge:     maxAge,
		log:        log,
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.log.Info("Starting offer expiry sweeper", "max_age", s.maxAge)

	_, err := s.cron.AddFunc("@every 1m", func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *ExpirySweeper) Stop() error {
	s.log.Info("Stopping offer expiry sweeper")
	s.cron.Stop()
	return nil
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Failed to check leadership", "error", err)
		return
	}
	if !isLeader {
		return
	}

	if _, err := s.offers.ExpireStaleOffers(ctx, s.maxAge); err != nil {
		s.log.Error("Failed to expire stale offers", "error", err)
	}
}
