package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DmytryS/user-actions-service/internal/events"
)

func TestPublishLogsHandlerFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventUserDeleted, func(context.Context, events.Event) error {
		return errors.New("audit sink down")
	})

	publish(context.Background(), dispatcher, zap.New(core), events.Event{
		Type:      events.EventUserDeleted,
		SubjectID: "u-1",
	})

	entries := logs.FilterMessage("event handlers failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "user_deleted", fields["event_type"])
	assert.Contains(t, fields["error"], "audit sink down")
}

func TestPublishIsQuietWhenHandlersSucceed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventUserDeleted, func(context.Context, events.Event) error { return nil })

	publish(context.Background(), dispatcher, zap.New(core), events.Event{Type: events.EventUserDeleted})
	publish(context.Background(), nil, zap.New(core), events.Event{Type: events.EventUserDeleted})

	assert.Zero(t, logs.Len())
}
