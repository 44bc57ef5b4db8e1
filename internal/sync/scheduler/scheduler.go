// Package scheduler runs the background drain loop. It decides WHEN the
// queue drains; the drainer decides HOW. Drains are triggered by a
// periodic ticker, by the device coming back online, by the app
// returning to the foreground, and on demand.
package scheduler

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/logging"
	syncpkg "github.com/repstack/backend/internal/sync"
)

// Scheduler owns the drain loop goroutine.
type Scheduler struct {
	drainer       *syncpkg.Drainer
	drainInterval time.Duration
	drainCh       chan struct{}
	stopCh        chan struct{}
	wg            stdsync.WaitGroup

	mu            stdsync.RWMutex
	isRunning     bool
	isOnline      bool
	lastDrainTime time.Time
	lastResult    *syncpkg.DrainResult
}

// Config holds scheduler configuration.
type Config struct {
	DrainInterval time.Duration // how often to attempt a drain while online
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{DrainInterval: time.Minute}
}

// New creates a Scheduler. The device is assumed online until the host
// reports otherwise.
func New(drainer *syncpkg.Drainer, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Scheduler{
		drainer:       drainer,
		drainInterval: config.DrainInterval,
		drainCh:       make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		isOnline:      true,
	}
}

// Start launches the drain loop. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.drainLoop(ctx)

	logging.Info("Sync scheduler started",
		map[string]interface{}{"drain_interval": s.drainInterval.String()})
}

// Stop shuts the drain loop down and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	logging.Info("Sync scheduler stopped", nil)
}

// SetOnlineStatus records the connectivity state reported by the host
// platform. An offline to online transition triggers an immediate drain;
// that is the moment queued mutations become deliverable.
func (s *Scheduler) SetOnlineStatus(isOnline bool) {
	s.mu.Lock()
	wasOnline := s.isOnline
	s.isOnline = isOnline
	s.mu.Unlock()

	if wasOnline == isOnline {
		return
	}

	logging.Info("Connectivity changed",
		map[string]interface{}{"was_online": wasOnline, "is_online": isOnline})

	if !wasOnline && isOnline {
		s.requestDrain()
	}
}

// NotifyForeground signals that the app returned to the foreground.
// Mobile platforms suspend timers in the background, so this is the
// reliable catch-up point.
func (s *Scheduler) NotifyForeground() {
	if s.IsOnline() {
		s.requestDrain()
	}
}

// DrainNow runs a drain cycle synchronously and returns its result. A
// nil result means another cycle was already running.
func (s *Scheduler) DrainNow(ctx context.Context) (*syncpkg.DrainResult, error) {
	result, err := s.drainer.Drain(ctx)
	if err != nil {
		return nil, err
	}
	if result != nil {
		s.recordResult(result)
	}
	return result, nil
}

// requestDrain nudges the drain loop without blocking. A pending nudge
// is enough; extra ones collapse into it.
func (s *Scheduler) requestDrain() {
	select {
	case s.drainCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) drainLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.IsOnline() {
				continue
			}
			s.runDrain(ctx)
		case <-s.drainCh:
			s.runDrain(ctx)
		}
	}
}

func (s *Scheduler) runDrain(ctx context.Context) {
	result, err := s.drainer.Drain(ctx)
	if err != nil {
		logging.ErrorWithCode("Background drain failed",
			string(errors.ErrSyncFailed), err, nil)
		return
	}
	if result != nil {
		s.recordResult(result)
	}
}

func (s *Scheduler) recordResult(result *syncpkg.DrainResult) {
	s.mu.Lock()
	s.lastDrainTime = time.Now()
	s.lastResult = result
	s.mu.Unlock()
}

// Status is a snapshot of the scheduler state.
type Status struct {
	IsRunning       bool                 `json:"is_running"`
	IsOnline        bool                 `json:"is_online"`
	DrainInProgress bool                 `json:"drain_in_progress"`
	LastDrainTime   *time.Time           `json:"last_drain_time,omitempty"`
	LastResult      *syncpkg.DrainResult `json:"last_result,omitempty"`
}

// GetStatus returns the current scheduler state.
func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		IsRunning:       s.isRunning,
		IsOnline:        s.isOnline,
		DrainInProgress: s.drainer.InProgress(),
		LastResult:      s.lastResult,
	}
	if !s.lastDrainTime.IsZero() {
		t := s.lastDrainTime
		status.LastDrainTime = &t
	}
	return status
}

// IsOnline reports the last connectivity state pushed by the host.
func (s *Scheduler) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isOnline
}

// IsRunning reports whether the drain loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
