package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/shared/events"
	"github.com/clusterhub/server/internal/utils/pagination"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service provides user directory operations.
type Service struct {
	repo   Repository
	events events.Publisher
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, publisher events.Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		events: publisher,
		logger: logger,
	}
}

// ========== Lookups ==========

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByEmail returns the user with the given email, or nil when none exists.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return u, err
}

// DisplayNames returns display names keyed by user ID. Unknown IDs are omitted.
func (s *Service) DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	users, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}

// CurrentCaller returns the stored email and role for an authenticated user.
func (s *Service) CurrentCaller(ctx context.Context, id uuid.UUID) (authz.Caller, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return authz.Caller{}, err
	}
	return u.Caller(), nil
}

// GetProfile returns a user visible to the caller: themselves, or anyone for a super admin.
func (s *Service) GetProfile(ctx context.Context, caller authz.Caller, id uuid.UUID) (*User, error) {
	if caller.UserID != id && !caller.IsSuperAdmin() {
		return nil, ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

// List returns users matching the filter.
func (s *Service) List(ctx context.Context, filter *Filter, p *pagination.Pagination) ([]*User, int64, error) {
	return s.repo.List(ctx, filter, p)
}

// ========== Mutations ==========

// CreateLocal stores a user registered with local credentials. The address
// stays unverified until ConfirmEmail succeeds.
func (s *Service) CreateLocal(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	u.EmailVerified = false
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if !u.Role.Valid() {
		u.Role = authz.DefaultRole
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return err
	}

	s.logger.Info("local user registered",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
	)
	return nil
}

// SetVerificationToken replaces the pending email verification token.
func (s *Service) SetVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	return s.repo.Update(ctx, id, map[string]interface{}{
		"verification_token":      token,
		"verification_expires_at": expiresAt,
	})
}

// ConfirmEmail marks the address behind token as verified and consumes the token.
func (s *Service) ConfirmEmail(ctx context.Context, token string, now time.Time) (*User, error) {
	if token == "" {
		return nil, ErrInvalidVerificationToken
	}
	u, err := s.repo.GetByVerificationToken(ctx, token)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidVerificationToken
	}
	if err != nil {
		return nil, err
	}
	if u.VerificationExpiresAt != nil && !now.Before(*u.VerificationExpiresAt) {
		return nil, ErrVerificationTokenExpired
	}

	if err := s.repo.Update(ctx, u.ID, map[string]interface{}{
		"email_verified":          true,
		"verification_token":      nil,
		"verification_expires_at": nil,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("email verified", zap.String("user_id", u.ID.String()))
	return s.repo.GetByID(ctx, u.ID)
}

// ChangeRole sets a user's role. Only a super admin may do this.
func (s *Service) ChangeRole(ctx context.Context, caller authz.Caller, id uuid.UUID, role string) (*User, error) {
	if !caller.IsSuperAdmin() {
		return nil, ErrRoleChangeForbidden
	}
	r, ok := authz.ParseRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}

	if err := s.repo.Update(ctx, id, map[string]interface{}{"role": r}); err != nil {
		return nil, err
	}

	s.logger.Info("user role changed",
		zap.String("user_id", id.String()),
		zap.String("role", string(r)),
		zap.String("changed_by", caller.UserID.String()),
	)
	return s.repo.GetByID(ctx, id)
}

// ========== Identity Provider Sync ==========

// SyncIdentity upserts the local record for an identity provider user.
// On creation the role defaults to project_owner; on update an absent role
// leaves the stored one unchanged.
func (s *Service) SyncIdentity(ctx context.Context, data IdentityData, created bool) (*User, error) {
	if data.ID == "" {
		return nil, ErrInvalidUserID
	}
	email := data.PrimaryEmail()
	role, hasRole := data.RequestedRole()

	existing, err := s.repo.GetByExternalID(ctx, data.ID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("lookup by external id: %w", err)
	}
	linking := false
	if existing == nil && email != "" {
		// Link a local account registered with the same address.
		existing, err = s.repo.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("lookup by email: %w", err)
		}
		linking = existing != nil
	}

	if existing == nil {
		if email == "" {
			return nil, ErrMissingEmail
		}
		if !hasRole {
			role = authz.DefaultRole
		}
		externalID := data.ID
		u := &User{
			ID:            uuid.New(),
			ExternalID:    &externalID,
			Email:         email,
			Name:          data.DisplayName(),
			Role:          role,
			EmailVerified: true,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, err
		}
		s.logger.Info("identity user created",
			zap.String("user_id", u.ID.String()),
			zap.String("external_id", data.ID),
			zap.String("role", string(role)),
		)
		return u, nil
	}

	fields := map[string]interface{}{"external_id": data.ID}
	if email != "" {
		fields["email"] = email
		fields["email_verified"] = true
		fields["verification_token"] = nil
		fields["verification_expires_at"] = nil
	}
	if linking && !existing.EmailVerified {
		// Whoever registered this address locally never proved they own it,
		// so their password must not open the provider's account.
		fields["password_hash"] = nil
		s.logger.Warn("dropped password of unverified local account on identity link",
			zap.String("user_id", existing.ID.String()),
			zap.String("external_id", data.ID),
		)
	}
	if name := data.DisplayName(); name != "" {
		fields["name"] = name
	}
	if hasRole {
		fields["role"] = role
	}
	if err := s.repo.Update(ctx, existing.ID, fields); err != nil {
		return nil, err
	}

	s.logger.Info("identity user synced",
		zap.String("user_id", existing.ID.String()),
		zap.String("external_id", data.ID),
		zap.Bool("created_event", created),
	)
	return s.repo.GetByID(ctx, existing.ID)
}

// DeleteIdentity removes the user mapped to externalID and publishes
// UserDeleted so owned projects and memberships are cleaned up. It reports
// false when no such user exists.
func (s *Service) DeleteIdentity(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, ErrInvalidUserID
	}

	u, err := s.repo.GetByExternalID(ctx, externalID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.repo.Delete(ctx, u.ID); err != nil {
		return false, err
	}

	s.logger.Info("identity user deleted",
		zap.String("user_id", u.ID.String()),
		zap.String("external_id", externalID),
	)
	if s.events != nil {
		s.events.Publish(events.NewUserDeletedEvent(u.ID, externalID))
	}
	return true, nil
}
