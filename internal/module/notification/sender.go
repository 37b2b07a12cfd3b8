package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/clusterhub/server/internal/shared/config"
	"github.com/clusterhub/server/internal/utils/metrics"
	"go.uber.org/zap"
)

// ErrDeliveryUnavailable is returned while the delivery circuit is open.
var ErrDeliveryUnavailable = errors.New("email delivery temporarily unavailable")

// ErrVerificationUnsupported is returned by senders that only deliver invitations.
var ErrVerificationUnsupported = errors.New("verification email not supported by sender")

// InvitationEmail is the content of an investor invitation.
type InvitationEmail struct {
	To          string
	ProjectName string
	InviterName string
	Link        string
	Message     string
}

// VerificationEmail carries the link that confirms a local account's address.
type VerificationEmail struct {
	To   string
	Name string
	Link string
}

// Sender delivers invitation emails.
type Sender interface {
	SendInvitationEmail(ctx context.Context, email InvitationEmail) error
}

// VerificationSender delivers address verification emails.
type VerificationSender interface {
	SendVerificationEmail(ctx context.Context, email VerificationEmail) error
}

// Mailer sends every email the server produces.
type Mailer interface {
	Sender
	VerificationSender
}

// NoOpSender logs invitations instead of sending them.
type NoOpSender struct {
	logger *zap.Logger
}

// NewNoOpSender creates a sender that only logs.
func NewNoOpSender(logger *zap.Logger) *NoOpSender {
	return &NoOpSender{logger: logger}
}

// SendInvitationEmail implements Sender.
func (s *NoOpSender) SendInvitationEmail(_ context.Context, email InvitationEmail) error {
	s.logger.Info("invitation email skipped (noop sender)",
		zap.String("to", email.To),
		zap.String("project", email.ProjectName),
	)
	return nil
}

// SendVerificationEmail implements VerificationSender.
func (s *NoOpSender) SendVerificationEmail(_ context.Context, email VerificationEmail) error {
	s.logger.Info("verification email skipped (noop sender)", zap.String("to", email.To))
	return nil
}

// headerSafe strips line breaks so user supplied values cannot inject headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// NewFromConfig builds the configured sender wrapped in a BreakerSender.
func NewFromConfig(cfg *config.EmailConfig, m *metrics.Metrics, logger *zap.Logger) Mailer {
	var base Mailer
	switch strings.ToLower(cfg.Provider) {
	case "smtp":
		base = NewSMTPSender(&SMTPConfig{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			User:        cfg.SMTP.User,
			Password:    cfg.SMTP.Password,
			FromAddress: cfg.FromAddress,
			FromName:    cfg.FromName,
		}, logger)
	default:
		base = NewNoOpSender(logger)
	}

	return NewBreakerSender(base, BreakerConfig{
		Timeout:      cfg.Timeout,
		MaxFailures:  cfg.BreakerMaxFailures,
		OpenDuration: cfg.BreakerOpenDuration,
	}, m, logger)
}
