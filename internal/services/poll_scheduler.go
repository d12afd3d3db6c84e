package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cargo-dispatch/internal/domain"
	"cargo-dispatch/pkg/logger"

	"github.com/robfig/cron/v3"
)

const (
	// backgroundFloor is the minimum cadence the host grants a background
	// task. The configured interval is a hint; it is clamped, never lowered.
	backgroundFloor = time.Minute

	defaultForegroundInterval = 10 * time.Second

	checkDeadline = 15 * time.Second
)

// PollScheduler drives the accepted-offer check on two independent cadences:
// a coarse cron-registered background sweep that outlives the foreground
// session, and a fine foreground ticker plus an explicit Resume hook covering
// the window between backgrounding and the next sweep. Both cadences invoke
// the same checker and the same notifier gate, so the only divergence between
// the paths is when they fire, never what they decide.
type PollScheduler struct {
	checker  domain.OfferChecker
	notifier *OfferNotifier
	cron     *cron.Cron

	backgroundEvery time.Duration
	foregroundEvery time.Duration

	mu       sync.Mutex
	driverID string
	entryID  cron.EntryID
	stopCh   chan struct{}
	running  bool

	log logger.Logger
}

func NewPollScheduler(checker domain.OfferChecker, notifier *OfferNotifier,
	backgroundEvery, foregroundEvery time.Duration, log logger.Logger) *PollScheduler {

	if backgroundEvery < backgroundFloor {
		log.Warn("Background interval below floor, clamping",
			"requested", backgroundEvery, "floor", backgroundFloor)
		backgroundEvery = backgroundFloor
	}
	if foregroundEvery <= 0 {
		foregroundEvery = defaultForegroundInterval
	}

	return &PollScheduler{
		checker:         checker,
		notifier:        notifier,
		cron:            cron.New(),
		backgroundEvery: backgroundEvery,
		foregroundEvery: foregroundEvery,
		log:             log,
	}
}

// StartChecking begins both cadences for the given driver. Calling it again
// replaces the previous registration: the old ticker is torn down and the old
// handler is swapped out, never stacked.
func (s *PollScheduler) StartChecking(driverID string, onAccepted domain.AcceptedOfferHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()

	s.driverID = driverID
	s.notifier.SetHandler(onAccepted)

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.backgroundEvery), s.backgroundRun)
	if err != nil {
		// Degrade to foreground-only polling rather than failing entirely.
		s.log.Error("Background task registration failed, foreground polling only", "error", err)
	} else {
		s.entryID = entryID
	}
	s.cron.Start()

	s.stopCh = make(chan struct{})
	go s.foregroundLoop(s.stopCh)

	s.running = true
	s.log.Info("Offer checking started", "driver_id", driverID,
		"background_every", s.backgroundEvery, "foreground_every", s.foregroundEvery)
	return nil
}

// StopChecking tears down the foreground ticker and the background
// registration synchronously and disables the handler, so a check already in
// flight cannot surface anything after this returns.
func (s *PollScheduler) StopChecking() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.notifier.SetHandler(nil)
	s.log.Info("Offer checking stopped", "driver_id", s.driverID)
}

// Resume fires one immediate check. The host calls it on every
// return-to-foreground transition.
func (s *PollScheduler) Resume() {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if !running {
		return
	}
	s.runCheck()
}

// teardownLocked must be called with the mutex held.
func (s *PollScheduler) teardownLocked() {
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	s.running = false
}

func (s *PollScheduler) backgroundRun() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Background check panicked", "panic", r)
		}
	}()
	s.runCheck()
}

func (s *PollScheduler) foregroundLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.foregroundEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.runCheck()
		}
	}
}

// runCheck is the shared check-and-notify sequence. It reports whether new
// data was surfaced, mirroring the host scheduler's new-data/no-data result.
func (s *PollScheduler) runCheck() bool {
	s.mu.Lock()
	driverID := s.driverID
	running := s.running
	s.mu.Unlock()

	if !running || driverID == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkDeadline)
	defer cancel()

	offer := s.checker.Check(ctx, driverID)
	if offer == nil {
		return false
	}

	return s.notifier.NotifyIfNew(ctx, driverID, *offer)
}
