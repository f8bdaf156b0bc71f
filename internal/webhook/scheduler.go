package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gistsync "github.com/schaermu/gistsync/internal/sync"
)

// Syncer runs a single sync
type Syncer interface {
	Sync(ctx context.Context, opts gistsync.Options) (*gistsync.Result, error)
}

// Status describes the most recent sync, served on /healthz
type Status struct {
	Running  bool      `json:"running"`
	LastRun  time.Time `json:"last_run"`
	LastErr  string    `json:"last_error,omitempty"`
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Deleted  int       `json:"deleted"`
	Syncs    int       `json:"syncs"`
	Failures int       `json:"failures"`
}

// scheduler serializes sync runs. At most one run is in flight and at most
// one more waits in the queue; further requests collapse into the queued one.
type scheduler struct {
	syncer Syncer
	opts   gistsync.Options
	logger *slog.Logger
	delay  time.Duration
	queue  chan struct{}

	mu     sync.Mutex // guards timer and status
	timer  *time.Timer
	status Status
}

func newScheduler(syncer Syncer, opts gistsync.Options, delay time.Duration, logger *slog.Logger) *scheduler {
	return &scheduler{
		syncer: syncer,
		opts:   opts,
		logger: logger,
		delay:  delay,
		queue:  make(chan struct{}, 1),
	}
}

// request queues a run unless one is already waiting
func (s *scheduler) request(reason string) {
	select {
	case s.queue <- struct{}{}:
		s.logger.Debug("sync queued", "reason", reason)
	default:
		s.logger.Debug("sync already queued", "reason", reason)
	}
}

// requestAfterQuiet queues a run once no further call arrived for the
// debounce delay
func (s *scheduler) requestAfterQuiet(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.request(reason) })
}

// cancelPending drops a debounce timer that has not fired yet
func (s *scheduler) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// loop services queued runs one at a time until ctx is canceled
func (s *scheduler) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.cancelPending()
			return
		case <-s.queue:
			s.run(ctx)
		}
	}
}

// run performs one sync and records its outcome. Callers make sure runs do
// not overlap: Start runs the initial sync before the loop exists.
func (s *scheduler) run(ctx context.Context) {
	s.mu.Lock()
	s.status.Running = true
	s.mu.Unlock()

	result, err := s.syncer.Sync(ctx, s.opts)
	if err != nil {
		s.logger.Error("sync failed", "error", err)
	} else {
		s.logger.Info("sync completed", "summary", result.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Running = false
	s.status.LastRun = time.Now()
	s.status.Syncs++
	if err != nil {
		s.status.Failures++
		s.status.LastErr = err.Error()
		return
	}
	s.status.LastErr = ""
	s.status.Created = result.Created
	s.status.Updated = result.Updated
	s.status.Deleted = result.Deleted
}

func (s *scheduler) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// tick requests a run every interval
func (s *scheduler) tick(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.request("interval")
		}
	}
}
