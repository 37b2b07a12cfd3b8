package invitation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clusterhub/server/internal/module/notification"
	"github.com/clusterhub/server/internal/module/project"
	"github.com/clusterhub/server/internal/module/user"
	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/shared/events"
	"github.com/clusterhub/server/internal/utils/metrics"
	"github.com/clusterhub/server/internal/utils/random"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultExpiryDays is used when the configured expiry is not positive.
const DefaultExpiryDays = 7

// ProjectStore loads projects with their investors.
type ProjectStore interface {
	GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

// UserDirectory resolves users and display names.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// Config holds invitation engine settings.
type Config struct {
	ExpiryDays    int
	AcceptBaseURL string
}

// Service implements the invitation lifecycle.
type Service struct {
	repo     Repository
	projects ProjectStore
	users    UserDirectory
	sender   notification.Sender
	events   events.Publisher
	metrics  *metrics.Metrics
	config   Config
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new invitation service.
func NewService(
	repo Repository,
	projects ProjectStore,
	users UserDirectory,
	sender notification.Sender,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.ExpiryDays <= 0 {
		cfg.ExpiryDays = DefaultExpiryDays
	}
	return &Service{
		repo:     repo,
		projects: projects,
		users:    users,
		sender:   sender,
		events:   publisher,
		metrics:  m,
		config:   cfg,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// AcceptURL returns the landing page link for a token.
func (s *Service) AcceptURL(token string) string {
	return strings.TrimRight(s.config.AcceptBaseURL, "/") + "/invite/accept?token=" + url.QueryEscape(token)
}

// ========== Issue ==========

// Issue creates a pending invitation and attempts to email it. Delivery
// failures are recorded on the invitation and never fail the call. The
// returned invitation carries the plaintext token.
func (s *Service) Issue(ctx context.Context, caller authz.Caller, req *IssueRequest) (*Invitation, error) {
	email := user.NormalizeEmail(req.InviteeEmail)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	message := strings.TrimSpace(req.Message)
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	p, err := s.projects.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := p.VerifyOwner(caller); err != nil {
		return nil, err
	}
	if err := s.canInviteEmail(ctx, p, email); err != nil {
		return nil, err
	}

	now := s.now()
	if n, err := s.repo.ExpireStale(ctx, p.ID, email, now); err != nil {
		return nil, fmt.Errorf("expire stale invitations: %w", err)
	} else if n > 0 {
		s.metrics.RecordInvitationEvent("expired")
	}
	existing, err := s.repo.FindLivePending(ctx, p.ID, email, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPendingExists
	}

	token, err := random.Token()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	inv := &Invitation{
		ID:           uuid.New(),
		Token:        token,
		ProjectID:    p.ID,
		InviterID:    caller.UserID,
		InviteeEmail: email,
		Status:       StatusPending,
		Message:      message,
		ExpiresAt:    now.AddDate(0, 0, s.config.ExpiryDays),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	delivered := s.deliver(ctx, inv, p)

	s.events.Publish(events.NewInvitationIssuedEvent(inv.ID, p.ID, caller.UserID, email, delivered))
	s.metrics.RecordInvitationEvent("issued")
	s.logger.Info("invitation issued",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("project_id", p.ID.String()),
		zap.String("inviter_id", caller.UserID.String()),
		zap.Bool("email_delivered", delivered),
	)
	return inv, nil
}

// canInviteEmail rejects the owner's own address and existing investors.
func (s *Service) canInviteEmail(ctx context.Context, p *project.Project, email string) error {
	owner, err := s.users.Get(ctx, p.OwnerID)
	switch {
	case err == nil:
		if user.NormalizeEmail(owner.Email) == email {
			return ErrCannotInviteOwner
		}
	case !errors.Is(err, user.ErrUserNotFound):
		return err
	}

	invitee, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if invitee == nil {
		return nil
	}
	if p.IsOwner(invitee.ID) {
		return ErrCannotInviteOwner
	}
	if p.HasInvestor(invitee.ID) {
		return ErrAlreadyInvestor
	}
	return nil
}

// deliver sends the invitation email and records the outcome on the
// invitation. It reports whether the email was handed off.
func (s *Service) deliver(ctx context.Context, inv *Invitation, p *project.Project) bool {
	inviterName := ""
	names, err := s.users.DisplayNames(ctx, []uuid.UUID{inv.InviterID})
	if err != nil {
		s.logger.Warn("failed to resolve inviter name",
			zap.String("invitation_id", inv.ID.String()),
			zap.Error(err),
		)
	} else {
		inviterName = names[inv.InviterID]
	}

	err = s.sender.SendInvitationEmail(ctx, notification.InvitationEmail{
		To:          inv.InviteeEmail,
		ProjectName: p.Name,
		InviterName: inviterName,
		Link:        s.AcceptURL(inv.Token),
		Message:     inv.Message,
	})
	if err != nil {
		at := s.now()
		s.logger.Warn("failed to send invitation email",
			zap.String("invitation_id", inv.ID.String()),
			zap.String("project_id", p.ID.String()),
			zap.Error(err),
		)
		if rerr := s.repo.RecordEmailFailure(ctx, inv.ID, err.Error(), at); rerr != nil {
			s.logger.Error("failed to record email failure",
				zap.String("invitation_id", inv.ID.String()),
				zap.Error(rerr),
			)
		}
		inv.EmailSendFailed = true
		inv.LastEmailError = err.Error()
		inv.LastEmailErrorAt = &at
		return false
	}

	if inv.EmailSendFailed {
		if err := s.repo.ClearEmailFailure(ctx, inv.ID); err != nil {
			s.logger.Error("failed to clear email failure",
				zap.String("invitation_id", inv.ID.String()),
				zap.Error(err),
			)
		}
		inv.EmailSendFailed = false
		inv.LastEmailError = ""
		inv.LastEmailErrorAt = nil
	}
	return true
}

// ========== Resolve ==========

// Resolve returns a live invitation with its project summary. Any other
// state is reported as its state error.
func (s *Service) Resolve(ctx context.Context, token string) (*Resolution, error) {
	if token == "" {
		return nil, ErrInvitationNotFound
	}
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := inv.CheckLive(now); err != nil {
		return nil, err
	}

	p, err := s.projects.GetProject(ctx, inv.ProjectID)
	if err != nil {
		return nil, err
	}
	names, err := s.users.DisplayNames(ctx, []uuid.UUID{p.OwnerID, inv.InviterID})
	if err != nil {
		return nil, err
	}

	return &Resolution{
		Invitation: inv.ToResponse(now),
		Project: ProjectSummary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Status:      p.Status,
			OwnerName:   names[p.OwnerID],
		},
		InviterName: names[inv.InviterID],
	}, nil
}

// ========== Accept ==========

// AcceptAs accepts on behalf of the caller, using the email on record
// rather than anything the client supplied. The address must be verified.
func (s *Service) AcceptAs(ctx context.Context, caller authz.Caller, token string) (*AcceptResult, error) {
	u, err := s.verifiedUser(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.Accept(ctx, token, u.ID, u.Email)
}

func (s *Service) verifiedUser(ctx context.Context, caller authz.Caller) (*user.User, error) {
	u, err := s.users.Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return u, nil
}

// Accept converts a live invitation into investor membership for the
// identity whose verified email matches the invitee. Replaying an accepted
// invitation as the same identity succeeds with AlreadyInvestor set.
func (s *Service) Accept(ctx context.Context, token string, identityID uuid.UUID, identityEmail string) (*AcceptResult, error) {
	if token == "" {
		return nil, ErrInvitationNotFound
	}
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	email := user.NormalizeEmail(identityEmail)
	now := s.now()

	if result, err := s.replay(ctx, inv, identityID, email); result != nil || err != nil {
		return result, err
	}
	if err := s.checkLive(ctx, inv, now); err != nil {
		return nil, err
	}
	if email != inv.InviteeEmail {
		s.metrics.RecordInvitationEvent("email_mismatch")
		s.logger.Warn("invitation email mismatch",
			zap.String("invitation_id", inv.ID.String()),
			zap.String("user_id", identityID.String()),
		)
		return nil, ErrEmailMismatch
	}

	p, err := s.projects.GetProject(ctx, inv.ProjectID)
	if err != nil {
		return nil, err
	}
	if p.IsOwner(identityID) {
		return nil, ErrOwnerNotInvestable
	}

	alreadyInvestor, err := s.repo.Accept(ctx, inv.ID, p.ID, identityID, now)
	if errors.Is(err, ErrStatusChanged) {
		return s.reclassify(ctx, inv.ID, identityID, email)
	}
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	if !alreadyInvestor {
		p.Investors = append(p.Investors, project.Investor{ProjectID: p.ID, UserID: identityID, JoinedAt: now})
	}

	s.events.Publish(events.NewInvitationAcceptedEvent(inv.ID, p.ID, identityID, alreadyInvestor))
	s.metrics.RecordInvitationEvent("accepted")
	s.logger.Info("invitation accepted",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("project_id", p.ID.String()),
		zap.String("user_id", identityID.String()),
		zap.Bool("already_investor", alreadyInvestor),
	)
	return &AcceptResult{Project: p, AlreadyInvestor: alreadyInvestor}, nil
}

// replay returns a result when inv was already accepted by this identity.
// It returns nil, nil when the call is not a replay.
func (s *Service) replay(ctx context.Context, inv *Invitation, identityID uuid.UUID, email string) (*AcceptResult, error) {
	if inv.Status != StatusAccepted || email != inv.InviteeEmail {
		return nil, nil
	}
	p, err := s.projects.GetProject(ctx, inv.ProjectID)
	if err != nil {
		return nil, err
	}
	if !inv.WasAcceptedBy(identityID) && !p.HasInvestor(identityID) {
		return nil, nil
	}
	s.metrics.RecordInvitationEvent("replayed")
	return &AcceptResult{Project: p, AlreadyInvestor: true}, nil
}

// reclassify explains why the conditional accept matched nothing.
func (s *Service) reclassify(ctx context.Context, id, identityID uuid.UUID, email string) (*AcceptResult, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result, err := s.replay(ctx, current, identityID, email); result != nil || err != nil {
		return result, err
	}
	if err := s.checkLive(ctx, current, s.now()); err != nil {
		return nil, err
	}
	return nil, ErrInvitationInvalid
}

// checkLive runs the liveness check and opportunistically persists the
// expiry of an overdue pending invitation.
func (s *Service) checkLive(ctx context.Context, inv *Invitation, now time.Time) error {
	err := inv.CheckLive(now)
	if errors.Is(err, ErrInvitationExpired) && inv.Status == StatusPending {
		if ok, merr := s.repo.MarkExpired(ctx, inv.ID, now); merr != nil {
			s.logger.Warn("failed to mark invitation expired",
				zap.String("invitation_id", inv.ID.String()),
				zap.Error(merr),
			)
		} else if ok {
			inv.Status = StatusExpired
			s.metrics.RecordInvitationEvent("expired")
		}
	}
	return err
}

// ========== Cancel & Resend ==========

// Cancel withdraws a live pending invitation.
func (s *Service) Cancel(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Invitation, error) {
	inv, _, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.Cancel(ctx, id, now); err != nil {
		if !errors.Is(err, ErrStatusChanged) {
			return nil, err
		}
		current, gerr := s.repo.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if current.EffectiveStatus(now) == StatusExpired {
			return nil, ErrInvitationExpired
		}
		return nil, ErrNotPending
	}
	inv.Status = StatusCancelled
	inv.UpdatedAt = now

	s.events.Publish(events.NewInvitationCancelledEvent(inv.ID, inv.ProjectID, caller.UserID))
	s.metrics.RecordInvitationEvent("cancelled")
	s.logger.Info("invitation cancelled",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("project_id", inv.ProjectID.String()),
		zap.String("cancelled_by", caller.UserID.String()),
	)
	return inv, nil
}

// Resend re-delivers a live pending invitation's email.
func (s *Service) Resend(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Invitation, error) {
	inv, p, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := inv.CheckLive(s.now()); err != nil {
		if errors.Is(err, ErrInvitationExpired) {
			return nil, err
		}
		return nil, ErrNotPending
	}

	delivered := s.deliver(ctx, inv, p)
	s.metrics.RecordInvitationEvent("resent")
	s.logger.Info("invitation resent",
		zap.String("invitation_id", inv.ID.String()),
		zap.Bool("email_delivered", delivered),
	)
	return inv, nil
}

func (s *Service) loadOwned(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Invitation, *project.Project, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.projects.GetProject(ctx, inv.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	if err := p.VerifyOwner(caller); err != nil {
		return nil, nil, err
	}
	return inv, p, nil
}

// ========== Listing ==========

// ListByProject returns a project's invitations for its owner, optionally
// filtered by stored status.
func (s *Service) ListByProject(ctx context.Context, caller authz.Caller, projectID uuid.UUID, status string) ([]*View, error) {
	st := Status(status)
	if st != "" && !st.Valid() {
		return nil, ErrInvalidStatus
	}
	p, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := p.VerifyOwner(caller); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID, st)
}

// ListMine returns the live invitations addressed to the caller's verified
// email on record.
func (s *Service) ListMine(ctx context.Context, caller authz.Caller) ([]*View, error) {
	u, err := s.verifiedUser(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPendingByEmail(ctx, user.NormalizeEmail(u.Email), s.now())
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// ========== Expiry ==========

// SweepExpired moves every overdue pending invitation to expired and
// returns how many changed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.repo.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired invitations: %w", err)
	}
	s.metrics.RecordInvitationSweep(n, time.Since(start))
	s.logger.Info("expired invitations swept", zap.Int64("expired", n))
	return n, nil
}
