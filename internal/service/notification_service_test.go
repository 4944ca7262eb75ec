package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/angocine/internal/config"
	"github.com/spec-kit/angocine/internal/events"
)

func TestNotificationStubNeverLogsResetToken(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := NewNotificationService(zap.New(core), config.NotificationConfig{
		EmailFrom:     "noreply@angocine.test",
		ResetLinkBase: "http://localhost:4200/reset-password",
	})

	event := events.New(events.EventPasswordResetRequested, "acc-1", events.PasswordResetRequestedPayload{
		Email:     "ana@angocine.test",
		Token:     "super-secret-token",
		ExpiresAt: time.Now().Add(time.Minute),
	})
	require.NoError(t, svc.Handle(context.Background(), event))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ana@angocine.test", entries[0].ContextMap()["to"])
	for _, v := range entries[0].ContextMap() {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "super-secret-token")
		}
	}
}

func TestNotificationRejectsWrongPayload(t *testing.T) {
	svc := NewNotificationService(zap.NewNop(), config.NotificationConfig{EmailFrom: "noreply@angocine.test"})

	err := svc.Handle(context.Background(), events.New(events.EventAccountRegistered, "acc-1", "not a payload"))
	assert.Error(t, err)
}

func TestResetLinkCarriesToken(t *testing.T) {
	svc := NewNotificationService(zap.NewNop(), config.NotificationConfig{ResetLinkBase: "https://angocine.ao/reset?lang=pt"})

	link, err := svc.resetLink("abc")
	require.NoError(t, err)
	assert.Equal(t, "https://angocine.ao/reset?lang=pt&token=abc", link)
}
