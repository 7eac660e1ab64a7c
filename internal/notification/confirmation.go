package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/todolist/internal/core/events"
)

const confirmPath = "/api/v1/auth/confirm/"

// ConfirmationNotifier mails confirmation links to new or unconfirmed
// accounts.
type ConfirmationNotifier struct {
	mailer  Mailer
	baseURL string
	logger  *slog.Logger
}

func NewConfirmationNotifier(mailer Mailer, baseURL string, logger *slog.Logger) *ConfirmationNotifier {
	return &ConfirmationNotifier{
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (n *ConfirmationNotifier) HandleConfirmation(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ConfirmationEvent)
	if !ok {
		n.logger.Error("invalid event type for confirmation handler", "event_type", event.EventType())
		return fmt.Errorf("expected ConfirmationEvent, got %T", event)
	}

	msg := Message{
		To:      e.Email,
		Subject: "Confirm Your Account",
		Body: fmt.Sprintf("Dear %s,\n\nTo confirm your account please open:\n\n%s%s%s\n",
			e.Username, n.baseURL, confirmPath, e.Token),
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation to user %d: %w", e.UserID, err)
	}

	n.logger.Info("confirmation mail dispatched", "user_id", e.UserID, "event_id", e.EventID())
	return nil
}

func (n *ConfirmationNotifier) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeUserRegistered, n.HandleConfirmation)
	eventBus.Subscribe(events.EventTypeConfirmationRequested, n.HandleConfirmation)

	n.logger.Info("notification event handlers registered",
		"handlers", []string{events.EventTypeUserRegistered, events.EventTypeConfirmationRequested})
}
