package project

import (
	"context"

	"github.com/clusterhub/server/internal/shared/events"
	"go.uber.org/zap"
)

// EventHandler cleans up projects when their users disappear.
type EventHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewEventHandler creates a new project event handler.
func NewEventHandler(service *Service, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

// Handles returns the list of event types this handler can process.
func (h *EventHandler) Handles() []string {
	return []string{
		events.UserDeletedType,
	}
}

// Handle processes the given event.
func (h *EventHandler) Handle(event events.Event) error {
	switch e := event.(type) {
	case *events.UserDeletedEvent:
		return h.handleUserDeleted(e)
	default:
		h.logger.Warn("unhandled event type",
			zap.String("event_type", event.EventType()),
		)
		return nil
	}
}

func (h *EventHandler) handleUserDeleted(event *events.UserDeletedEvent) error {
	if err := h.service.PurgeUser(context.Background(), event.UserID); err != nil {
		h.logger.Error("failed to purge deleted user's projects",
			zap.String("user_id", event.UserID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
