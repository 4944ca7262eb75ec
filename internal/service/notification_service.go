package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/angocine/internal/config"
	"github.com/spec-kit/angocine/internal/events"
)

// NotificationEvents lists the event types NotificationService reacts to.
var NotificationEvents = []events.EventType{
	events.EventAccountRegistered,
	events.EventAccountDeleted,
	events.EventPasswordResetRequested,
}

// NotificationService turns account events into outgoing mail.
// Delivery is a logging stub.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		logger: logger,
		cfg:    cfg,
	}
}

// Handle processes one event.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventAccountRegistered:
		payload, ok := event.Payload.(events.AccountRegisteredPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", event.Payload)
		}
		n.sendEmailNotificationStub(ctx, event, payload.Email, "Welcome to AngoCine", "")
	case events.EventAccountDeleted:
		payload, ok := event.Payload.(events.AccountDeletedPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", event.Payload)
		}
		n.sendEmailNotificationStub(ctx, event, payload.Email, "Your AngoCine account was removed", "")
	case events.EventPasswordResetRequested:
		payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", event.Payload)
		}
		link, err := n.resetLink(payload.Token)
		if err != nil {
			return err
		}
		n.sendEmailNotificationStub(ctx, event, payload.Email, "Reset your AngoCine password", link)
	default:
		n.logger.Debug("ignoring event", zap.String("event_type", string(event.Type)))
	}
	return nil
}

func (n *NotificationService) resetLink(token string) (string, error) {
	u, err := url.Parse(n.cfg.ResetLinkBase)
	if err != nil {
		return "", fmt.Errorf("parse reset link base: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sendEmailNotificationStub records the mail that would be sent. The body
// may hold a secret link, so only its length is logged.
func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, to, subject, body string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || to == "" {
		return
	}
	n.logger.Info("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)),
		zap.String("account_id", event.AccountID),
		zap.String("event_type", string(event.Type)))
}
