//go:build integration

package invitation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/clusterhub/server/internal/shared/database/testdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type seed struct {
	ownerID   uuid.UUID
	inviteeID uuid.UUID
	projectID uuid.UUID
}

func seedProject(t *testing.T, db *gorm.DB) seed {
	t.Helper()
	s := seed{ownerID: uuid.New(), inviteeID: uuid.New(), projectID: uuid.New()}

	require.NoError(t, db.Exec(`INSERT INTO users (id, email, name, role) VALUES (?, ?, ?, ?), (?, ?, ?, ?)`,
		s.ownerID, "owner@example.com", "Olive", "project_owner",
		s.inviteeID, "bob@example.com", "", "investor").Error)
	require.NoError(t, db.Exec(`INSERT INTO projects (id, name, owner_id) VALUES (?, ?, ?)`,
		s.projectID, "Solar", s.ownerID).Error)
	return s
}

func newPending(s seed, email string, expiresAt time.Time) *Invitation {
	return &Invitation{
		ID:           uuid.New(),
		Token:        strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		ProjectID:    s.projectID,
		InviterID:    s.ownerID,
		InviteeEmail: email,
		Status:       StatusPending,
		ExpiresAt:    expiresAt,
	}
}

func investorCount(t *testing.T, db *gorm.DB, projectID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table("project_investors").Where("project_id = ?", projectID).Count(&n).Error)
	return n
}

func TestRepository_Integration(t *testing.T) {
	tdb := testdb.Setup(t)
	repo := NewRepository(tdb.DB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("one pending per project and email", func(t *testing.T) {
		tdb.CleanTables(t)
		s := seedProject(t, tdb.DB)

		require.NoError(t, repo.Create(ctx, newPending(s, "bob@example.com", now.Add(time.Hour))))
		err := repo.Create(ctx, newPending(s, "bob@example.com", now.Add(time.Hour)))
		assert.ErrorIs(t, err, ErrPendingExists)

		require.NoError(t, repo.Create(ctx, newPending(s, "carol@example.com", now.Add(time.Hour))))
	})

	t.Run("stale pending frees the slot", func(t *testing.T) {
		tdb.CleanTables(t)
		s := seedProject(t, tdb.DB)

		require.NoError(t, repo.Create(ctx, newPending(s, "bob@example.com", now.Add(-time.Hour))))
		live, err := repo.FindLivePending(ctx, s.projectID, "bob@example.com", now)
		require.NoError(t, err)
		assert.Nil(t, live)

		n, err := repo.ExpireStale(ctx, s.projectID, "bob@example.com", now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, repo.Create(ctx, newPending(s, "bob@example.com", now.Add(time.Hour))))
	})

	t.Run("accept is atomic and single use", func(t *testing.T) {
		tdb.CleanTables(t)
		s := seedProject(t, tdb.DB)
		inv := newPending(s, "bob@example.com", now.Add(time.Hour))
		require.NoError(t, repo.Create(ctx, inv))

		already, err := repo.Accept(ctx, inv.ID, s.projectID, s.inviteeID, now)
		require.NoError(t, err)
		assert.False(t, already)
		assert.Equal(t, int64(1), investorCount(t, tdb.DB, s.projectID))

		got, err := repo.GetByToken(ctx, inv.Token)
		require.NoError(t, err)
		assert.Equal(t, StatusAccepted, got.Status)
		assert.True(t, got.WasAcceptedBy(s.inviteeID))

		// A second identity loses the conditional update and its insert rolls back.
		other := uuid.New()
		_, err = repo.Accept(ctx, inv.ID, s.projectID, other, now)
		assert.ErrorIs(t, err, ErrStatusChanged)
		assert.Equal(t, int64(1), investorCount(t, tdb.DB, s.projectID))
	})

	t.Run("accept reports existing membership", func(t *testing.T) {
		tdb.CleanTables(t)
		s := seedProject(t, tdb.DB)
		require.NoError(t, tdb.DB.Exec(`INSERT INTO project_investors (project_id, user_id) VALUES (?, ?)`,
			s.projectID, s.inviteeID).Error)
		inv := newPending(s, "bob@example.com", now.Add(time.Hour))
		require.NoError(t, repo.Create(ctx, inv))

		already, err := repo.Accept(ctx, inv.ID, s.projectID, s.inviteeID, now)
		require.NoError(t, err)
		assert.True(t, already)
		assert.Equal(t, int64(1), investorCount(t, tdb.DB, s.projectID))
	})

	t.Run("overdue cannot be accepted or cancelled", func(t *testing.T) {
		tdb.CleanTables(t)
		s := seedProject(t, tdb.DB)
		inv := newPending(s, "bob@example.com", now.Add(-time.Minute))
		require.NoError(t, repo.Create(ctx, inv))

		_, err := repo.Accept(ctx, inv.ID, s.projectID, s.inviteeID, now)
		assert.ErrorIs(t, err, ErrStatusChanged)
		assert.Zero(t, investorCount(t, tdb.DB, s.projectID))

		assert.ErrorIs(t, repo.Cancel(ctx, inv.ID, now), ErrStatusChanged)

		ok, err := repo.MarkExpired(ctx, inv.ID, now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("sweep expires exactly the overdue pending", func(t *testing.T) {
		tdb.CleanTables(t)
		s := seedProject(t, tdb.DB)

		overdue := newPending(s, "a@example.com", now.Add(-time.Hour))
		atExpiry := newPending(s, "b@example.com", now)
		live := newPending(s, "c@example.com", now.Add(time.Hour))
		cancelled := newPending(s, "d@example.com", now.Add(-time.Hour))
		for _, inv := range []*Invitation{overdue, atExpiry, live, cancelled} {
			require.NoError(t, repo.Create(ctx, inv))
		}
		require.NoError(t, tdb.DB.Model(&Invitation{}).Where("id = ?", cancelled.ID).
			Update("status", StatusCancelled).Error)

		n, err := repo.SweepExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		expect := map[uuid.UUID]Status{
			overdue.ID:   StatusExpired,
			atExpiry.ID:  StatusExpired,
			live.ID:      StatusPending,
			cancelled.ID: StatusCancelled,
		}
		for id, want := range expect {
			got, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want, got.Status)
		}
	})

	t.Run("listing joins names", func(t *testing.T) {
		tdb.CleanTables(t)
		s := seedProject(t, tdb.DB)
		require.NoError(t, repo.Create(ctx, newPending(s, "bob@example.com", now.Add(time.Hour))))
		require.NoError(t, repo.Create(ctx, newPending(s, "stranger@example.com", now.Add(time.Hour))))

		views, err := repo.ListByProject(ctx, s.projectID, "")
		require.NoError(t, err)
		require.Len(t, views, 2)
		for _, v := range views {
			assert.Equal(t, "Olive", v.InviterName)
			assert.Equal(t, "Solar", v.ProjectName)
		}

		mine, err := repo.ListPendingByEmail(ctx, "bob@example.com", now)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "bob", mine[0].RecipientName)
	})

	t.Run("email failure bookkeeping", func(t *testing.T) {
		tdb.CleanTables(t)
		s := seedProject(t, tdb.DB)
		inv := newPending(s, "bob@example.com", now.Add(time.Hour))
		require.NoError(t, repo.Create(ctx, inv))

		require.NoError(t, repo.RecordEmailFailure(ctx, inv.ID, "smtp down", now))
		got, err := repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, got.EmailSendFailed)
		assert.Equal(t, "smtp down", got.LastEmailError)

		require.NoError(t, repo.ClearEmailFailure(ctx, inv.ID))
		got, err = repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.False(t, got.EmailSendFailed)
		assert.Nil(t, got.LastEmailErrorAt)
	})
}
