package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/email"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/logging"
	"go.uber.org/zap"
)

// Handler tails the event topic. Every event is logged, and new sign-ups get
// a welcome email when a sender is configured.
type Handler struct {
	sender email.Sender
	logger *zap.Logger
}

// NewHandler creates a new notification handler. sender may be nil.
func NewHandler(sender email.Sender, logger *zap.Logger) *Handler {
	return &Handler{
		sender: sender,
		logger: logging.Component(logger, "notifier"),
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("undecodable event: %w", err)
	}

	h.logger.Info("event",
		zap.String("aggregate_id", string(key)),
		zap.String("aggregate_type", event.AggregateType),
		zap.String("event_type", event.EventType),
		zap.Int("version", event.Version))

	if event.EventType == user.EventUserCreated {
		return h.handleUserCreated(event)
	}
	return nil
}

func (h *Handler) handleUserCreated(event store.Event) error {
	if h.sender == nil {
		return nil
	}

	var e user.UserCreated
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("undecodable %s: %w", event.EventType, err)
	}
	if e.Email == "" {
		return nil
	}

	if err := h.sender.SendWelcome(e.Email, e.Name); err != nil {
		return fmt.Errorf("failed to send welcome email to %s: %w", e.Email, err)
	}

	h.logger.Info("welcome email sent", zap.String("user_id", e.UserID))
	return nil
}
