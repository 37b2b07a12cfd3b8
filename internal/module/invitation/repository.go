package invitation

import (
	"context"
	"errors"
	"time"

	"github.com/clusterhub/server/internal/shared/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const onePendingIndex = "idx_invitations_one_pending"

// Repository defines the interface for invitation data access.
type Repository interface {
	// Lookups
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	FindLivePending(ctx context.Context, projectID uuid.UUID, email string, now time.Time) (*Invitation, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, status Status) ([]*View, error)
	ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]*View, error)

	// Transitions
	Accept(ctx context.Context, id, projectID, userID uuid.UUID, now time.Time) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ExpireStale(ctx context.Context, projectID uuid.UUID, email string, now time.Time) (int64, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)

	// Delivery bookkeeping
	RecordEmailFailure(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
	ClearEmailFailure(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new invitation repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ========== Lookups ==========

// Create inserts a pending invitation. A concurrent insert for the same
// project and email loses on the partial unique index.
func (r *repository) Create(ctx context.Context, inv *Invitation) error {
	err := r.db.WithContext(ctx).Create(inv).Error
	if database.IsUniqueViolation(err, onePendingIndex) {
		return ErrPendingExists
	}
	return err
}

// GetByID retrieves an invitation by ID.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByToken retrieves an invitation by its token.
func (r *repository) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	return r.first(ctx, "token = ?", token)
}

func (r *repository) first(ctx context.Context, query string, arg interface{}) (*Invitation, error) {
	var inv Invitation
	err := r.db.WithContext(ctx).Where(query, arg).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindLivePending returns the unexpired pending invitation for the pair,
// or nil when none exists.
func (r *repository) FindLivePending(ctx context.Context, projectID uuid.UUID, email string, now time.Time) (*Invitation, error) {
	var inv Invitation
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND invitee_email = ? AND status = ? AND expires_at > ?",
			projectID, email, StatusPending, now).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// ListByProject returns a project's invitations, newest first, with the
// inviter and recipient names resolved.
func (r *repository) ListByProject(ctx context.Context, projectID uuid.UUID, status Status) ([]*View, error) {
	query := r.views(ctx).Where("invitations.project_id = ?", projectID)
	if status != "" {
		query = query.Where("invitations.status = ?", status)
	}

	var views []*View
	err := query.Order("invitations.created_at DESC").Scan(&views).Error
	return views, err
}

// ListPendingByEmail returns the live invitations addressed to email.
func (r *repository) ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]*View, error) {
	var views []*View
	err := r.views(ctx).
		Where("invitations.invitee_email = ? AND invitations.status = ? AND invitations.expires_at > ?",
			email, StatusPending, now).
		Order("invitations.created_at DESC").
		Scan(&views).Error
	return views, err
}

func (r *repository) views(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("invitations").
		Select(`invitations.*,
			COALESCE(projects.name, '') AS project_name,
			COALESCE(NULLIF(inviter.name, ''), split_part(inviter.email, '@', 1), '') AS inviter_name,
			COALESCE(NULLIF(recipient.name, ''), split_part(recipient.email, '@', 1), '') AS recipient_name`).
		Joins("LEFT JOIN projects ON projects.id = invitations.project_id").
		Joins("LEFT JOIN users AS inviter ON inviter.id = invitations.inviter_id").
		Joins("LEFT JOIN users AS recipient ON recipient.email = invitations.invitee_email")
}

// ========== Transitions ==========

// Accept adds the investor and moves the invitation to accepted in one
// transaction. It reports whether the user was already an investor. When the
// invitation is no longer live pending the investor insert is rolled back
// and ErrStatusChanged is returned.
func (r *repository) Accept(ctx context.Context, id, projectID, userID uuid.UUID, now time.Time) (bool, error) {
	var alreadyInvestor bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`INSERT INTO project_investors (project_id, user_id, joined_at) VALUES (?, ?, ?)
			ON CONFLICT (project_id, user_id) DO NOTHING`,
			projectID, userID, now)
		if result.Error != nil {
			return result.Error
		}
		alreadyInvestor = result.RowsAffected == 0

		result = tx.Model(&Invitation{}).
			Where("id = ? AND status = ? AND expires_at > ?", id, StatusPending, now).
			Updates(map[string]interface{}{
				"status":      StatusAccepted,
				"accepted_at": now,
				"accepted_by": userID,
				"updated_at":  now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusChanged
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return alreadyInvestor, nil
}

// Cancel moves a live pending invitation to cancelled.
func (r *repository) Cancel(ctx context.Context, id uuid.UUID, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&Invitation{}).
		Where("id = ? AND status = ? AND expires_at > ?", id, StatusPending, now).
		Updates(map[string]interface{}{
			"status":     StatusCancelled,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

// MarkExpired moves one overdue pending invitation to expired.
func (r *repository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Invitation{}).
		Where("id = ? AND status = ? AND expires_at <= ?", id, StatusPending, now).
		Updates(map[string]interface{}{
			"status":     StatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected == 1, result.Error
}

// ExpireStale moves overdue pending invitations for the pair to expired so
// they no longer hold the pending unique index.
func (r *repository) ExpireStale(ctx context.Context, projectID uuid.UUID, email string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Invitation{}).
		Where("project_id = ? AND invitee_email = ? AND status = ? AND expires_at <= ?",
			projectID, email, StatusPending, now).
		Updates(map[string]interface{}{
			"status":     StatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// SweepExpired moves every overdue pending invitation to expired.
func (r *repository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Invitation{}).
		Where("status = ? AND expires_at <= ?", StatusPending, now).
		Updates(map[string]interface{}{
			"status":     StatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// ========== Delivery Bookkeeping ==========

// RecordEmailFailure flags the invitation for a resend.
func (r *repository) RecordEmailFailure(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&Invitation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email_send_failed":   true,
			"last_email_error":    reason,
			"last_email_error_at": at,
			"updated_at":          at,
		}).Error
}

// ClearEmailFailure clears the failure flag after a successful resend.
func (r *repository) ClearEmailFailure(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&Invitation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email_send_failed":   false,
			"last_email_error":    "",
			"last_email_error_at": nil,
			"updated_at":          time.Now(),
		}).Error
}
