package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clusterhub/server/internal/module/notification"
	"github.com/clusterhub/server/internal/module/user"
	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/utils/metrics"
	"github.com/clusterhub/server/internal/utils/random"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 20
)

// UserStore is the slice of the user directory that local credentials need.
type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	CreateLocal(ctx context.Context, u *user.User) error
	SetVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	ConfirmEmail(ctx context.Context, token string, now time.Time) (*user.User, error)
}

// VerificationConfig configures email verification for local accounts.
type VerificationConfig struct {
	BaseURL string
	TTL     time.Duration
}

// Service provides local credential authentication.
type Service struct {
	users      UserStore
	jwt        *JWTManager
	mailer     notification.VerificationSender
	verify     VerificationConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// NewService creates a new auth service. metrics may be nil.
func NewService(
	users UserStore,
	jwt *JWTManager,
	mailer notification.VerificationSender,
	verify VerificationConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if verify.TTL <= 0 {
		verify.TTL = 48 * time.Hour
	}
	return &Service{
		users:      users,
		jwt:        jwt,
		mailer:     mailer,
		verify:     verify,
		metrics:    m,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Register creates a local account and signs the user in.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	if n := utf8.RuneCountInString(req.Password); n < minPasswordLength || n > maxPasswordLength {
		return nil, ErrInvalidPassword
	}

	role := authz.DefaultRole
	if req.Role != "" {
		r, ok := authz.ParseRole(req.Role)
		if !ok || !r.SelfAssignable() {
			return nil, ErrRoleNotAllowed
		}
		role = r
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)

	token, err := random.Token()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.verify.TTL)

	u := &user.User{
		Email:                 req.Email,
		Name:                  req.Username,
		Role:                  role,
		PasswordHash:          &hashed,
		VerificationToken:     &token,
		VerificationExpiresAt: &expiresAt,
	}
	if err := s.users.CreateLocal(ctx, u); err != nil {
		return nil, err
	}

	s.metrics.RecordAuthEvent("register")
	s.sendVerification(ctx, u, token)
	return s.issue(u)
}

// VerifyEmail confirms the address a verification token was mailed to.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*user.User, error) {
	u, err := s.users.ConfirmEmail(ctx, token, s.now())
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAuthEvent("email_verified")
	return u, nil
}

// ResendVerification replaces the caller's verification token and mails it again.
func (s *Service) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return user.ErrEmailAlreadyVerified
	}

	token, err := random.Token()
	if err != nil {
		return err
	}
	if err := s.users.SetVerificationToken(ctx, u.ID, token, s.now().Add(s.verify.TTL)); err != nil {
		return err
	}

	if err := s.mailVerification(ctx, u, token); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// sendVerification mails the token. A failed delivery does not undo the
// registration; the user can ask for a new email.
func (s *Service) sendVerification(ctx context.Context, u *user.User, token string) {
	if err := s.mailVerification(ctx, u, token); err != nil {
		s.logger.Warn("verification email not sent",
			zap.String("user_id", u.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) mailVerification(ctx context.Context, u *user.User, token string) error {
	if s.mailer == nil {
		return nil
	}
	return s.mailer.SendVerificationEmail(ctx, notification.VerificationEmail{
		To:   u.Email,
		Name: u.Name,
		Link: s.verificationLink(token),
	})
}

func (s *Service) verificationLink(token string) string {
	return strings.TrimRight(s.verify.BaseURL, "/") + "/verify-email?token=" + url.QueryEscape(token)
}

// Login verifies a password and returns an access token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	u, err := s.users.FindByEmail(ctx, user.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.metrics.RecordAuthEvent("login_failed")
		return nil, ErrInvalidCredentials
	}
	if !u.IsLocal() {
		s.metrics.RecordAuthEvent("login_failed")
		return nil, ErrNoLocalPassword
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(req.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("password compare failed", zap.String("user_id", u.ID.String()), zap.Error(err))
		}
		s.metrics.RecordAuthEvent("login_failed")
		return nil, ErrInvalidCredentials
	}

	s.metrics.RecordAuthEvent("login")
	s.logger.Info("user logged in", zap.String("user_id", u.ID.String()))
	return s.issue(u)
}

// Me returns the authenticated user's record.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return s.users.Get(ctx, userID)
}

func (s *Service) issue(u *user.User) (*TokenResponse, error) {
	token, expiresAt, err := s.jwt.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        u.ToResponse(),
	}, nil
}
