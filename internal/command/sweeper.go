package command

import (
	"context"
	"sync"
	"time"
)

// Sweeper periodically expires dispatched commands that were never
// acknowledged within the configured deadline.
//
// Start launches the sweep loop; Stop blocks until it has exited. The
// loop also stops when the Start context is cancelled.
type Sweeper struct {
	queue    *Queue
	deadline time.Duration
	interval time.Duration
	logger   Logger

	stopCh chan struct{}
	doneWg sync.WaitGroup
	mu     sync.Mutex
	active bool
}

// NewSweeper creates an expiry sweeper.
func NewSweeper(queue *Queue, deadline, interval time.Duration) *Sweeper {
	return &Sweeper{
		queue:    queue,
		deadline: deadline,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the sweeper.
func (s *Sweeper) SetLogger(logger Logger) {
	s.logger = logger
}

// Start launches the background sweep loop. Calling Start on a running
// sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.stopCh = make(chan struct{})

	s.doneWg.Add(1)
	go s.run(ctx, s.stopCh)

	s.logger.Info("expiry sweeper started",
		"interval", s.interval.String(),
		"deadline", s.deadline.String(),
	)
}

// Stop terminates the sweep loop and waits for it to exit. Calling Stop
// on a stopped sweeper is a no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stopCh)
	s.mu.Unlock()

	s.doneWg.Wait()
	s.logger.Info("expiry sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, stopCh <-chan struct{}) {
	defer s.doneWg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := s.queue.ExpireSweep(ctx, s.deadline); err != nil {
				s.logger.Error("expiry sweep failed", "error", err)
			}
		}
	}
}
