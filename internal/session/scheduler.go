package session

import (
	"context"
	"sync"
	"time"

	"screenhub/internal/observability"
)

const (
	defaultCheckInterval  = 5 * time.Minute
	defaultRefreshTimeout = 30 * time.Second
)

// SchedulerOptions tune the keep-alive loop. Zero values fall back to the
// defaults (5m interval, 12h threshold, 30s refresh timeout).
type SchedulerOptions struct {
	CheckInterval    time.Duration
	RefreshThreshold time.Duration
	RefreshTimeout   time.Duration
	Logger           *observability.Logger
}

// Scheduler periodically inspects the stored bearer token and renews it when
// it is close to expiry. One immediate tick runs at Start, then one per
// CheckInterval until Stop. Ticks are best-effort: a failed refresh is
// logged and the next tick retries.
type Scheduler struct {
	store     Store
	refresher *Refresher
	opts      SchedulerOptions

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	now     func() time.Time
}

func NewScheduler(store Store, refresher *Refresher, opts SchedulerOptions) *Scheduler {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = defaultCheckInterval
	}
	if opts.RefreshThreshold <= 0 {
		opts.RefreshThreshold = DefaultRefreshThreshold
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger()
	}

	return &Scheduler{
		store:     store,
		refresher: refresher,
		opts:      opts,
		now:       time.Now,
	}
}

// Start launches the loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stop, s.done)
}

// Stop cancels the loop and blocks until it has fully exited, so no tick
// fires after Stop returns. Safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	<-done
}

func (s *Scheduler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()

	s.Tick()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one refresh decision: skip when there is no token, skip when the
// token is already dead, refresh when it is inside the threshold window.
func (s *Scheduler) Tick() {
	token, ok := s.store.Token()
	if !ok {
		return
	}

	now := s.now().UTC()
	if IsExpired(token, now) {
		// An expired token cannot be renewed; the request path handles the
		// redirect to sign-in.
		return
	}
	if !ShouldRefresh(token, now, s.opts.RefreshThreshold) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RefreshTimeout)
	defer cancel()

	if _, err := s.refresher.Refresh(ctx); err != nil {
		s.opts.Logger.Warn("session_refresh_failed", map[string]any{"error": err.Error()})
	}
}
