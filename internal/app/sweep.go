package app

import (
	"context"
	"fmt"

	"github.com/clusterhub/server/internal/infra/events"
	"github.com/clusterhub/server/internal/module/invitation"
	"github.com/clusterhub/server/internal/module/notification"
	"github.com/clusterhub/server/internal/module/project"
	"github.com/clusterhub/server/internal/module/user"
	"github.com/clusterhub/server/internal/shared/config"
	"github.com/clusterhub/server/internal/shared/database"
	"github.com/clusterhub/server/internal/shared/logger"
)

// SweepInvitations runs a single expiry sweep without starting the HTTP stack.
func SweepInvitations(ctx context.Context, cfg *config.Config) (int64, error) {
	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return 0, fmt.Errorf("init zap logger: %w", err)
	}
	defer zapLog.Sync()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return 0, fmt.Errorf("init database: %w", err)
	}
	defer database.Close(db)

	bus := events.NewBus(zapLog)
	users := user.NewService(user.NewRepository(db), bus, zapLog)
	projects := project.NewService(project.NewRepository(db), users, zapLog)

	svc := invitation.NewService(
		invitation.NewRepository(db),
		projects,
		users,
		notification.NewNoOpSender(zapLog),
		bus,
		nil,
		invitation.Config{ExpiryDays: cfg.Invitation.ExpiryDays},
		zapLog,
	)
	return svc.SweepExpired(ctx)
}
