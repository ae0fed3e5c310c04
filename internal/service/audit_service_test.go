package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/events"
)

func TestAuditServiceLogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()
	ctx := context.Background()

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:      events.EventActionConsumed,
		SubjectID: "act-1",
		Payload: events.ActionConsumedPayload{
			UserID:    "u-1",
			Type:      domain.ActionTypeRegister,
			NewStatus: domain.UserStatusActive,
		},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:      events.EventUserDeleted,
		SubjectID: "u-1",
		Actor:     events.Actor{UserID: "admin", Role: domain.RoleAdmin},
	}))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "action_consumed", entries[0].Message)
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, "ACTIVE", entries[0].ContextMap()["user_status"])
	assert.Equal(t, "admin", entries[1].ContextMap()["actor_id"])
}
