package invitation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is used when the configured interval is not positive.
const DefaultSweepInterval = 24 * time.Hour

const sweepTimeout = time.Minute

// Expirer bulk-expires overdue invitations.
type Expirer interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically expires overdue pending invitations. The live
// check in resolve and accept stays authoritative; the sweep keeps stored
// statuses in listings accurate.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(expirer Expirer, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one every interval until Stop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info("invitation sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.expirer.SweepExpired(ctx); err != nil {
		s.logger.Error("invitation sweep failed", zap.Error(err))
	}
}
