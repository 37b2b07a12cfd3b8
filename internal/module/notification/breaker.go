package notification

import (
	"context"
	"errors"
	"time"

	"github.com/clusterhub/server/internal/utils/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig tunes BreakerSender.
type BreakerConfig struct {
	Timeout      time.Duration
	MaxFailures  uint32
	OpenDuration time.Duration
}

// BreakerSender bounds every delivery with a timeout and stops calling the
// wrapped sender after repeated failures.
type BreakerSender struct {
	next    Sender
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[struct{}]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewBreakerSender wraps next. metrics may be nil.
func NewBreakerSender(next Sender, cfg BreakerConfig, m *metrics.Metrics, logger *zap.Logger) *BreakerSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "email",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("email circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerSender{
		next:    next,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		metrics: m,
		logger:  logger,
	}
}

// SendInvitationEmail implements Sender.
func (s *BreakerSender) SendInvitationEmail(ctx context.Context, email InvitationEmail) error {
	return s.deliver(ctx, func(ctx context.Context) error {
		return s.next.SendInvitationEmail(ctx, email)
	})
}

// SendVerificationEmail implements VerificationSender. It fails with
// ErrVerificationUnsupported when the wrapped sender cannot send them.
func (s *BreakerSender) SendVerificationEmail(ctx context.Context, email VerificationEmail) error {
	next, ok := s.next.(VerificationSender)
	if !ok {
		return ErrVerificationUnsupported
	}
	return s.deliver(ctx, func(ctx context.Context) error {
		return next.SendVerificationEmail(ctx, email)
	})
}

func (s *BreakerSender) deliver(ctx context.Context, send func(ctx context.Context) error) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return struct{}{}, send(ctx)
	})

	switch {
	case err == nil:
		s.metrics.RecordEmailDelivery("sent")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		s.metrics.RecordEmailDelivery("unavailable")
		return ErrDeliveryUnavailable
	default:
		s.metrics.RecordEmailDelivery("failed")
		return err
	}
}

// State returns the breaker state.
func (s *BreakerSender) State() gobreaker.State {
	return s.breaker.State()
}
