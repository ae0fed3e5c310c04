package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/DmytryS/user-actions-service/internal/events"
)

// AuditService writes an audit trail of domain events to the log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleActionIssued)
	a.dispatcher.Subscribe(events.EventPasswordResetRequested, a.handleActionIssued)
	a.dispatcher.Subscribe(events.EventActionConsumed, a.handleActionConsumed)
	for _, t := range []events.EventType{
		events.EventUserLoggedIn,
		events.EventUserUpdated,
		events.EventUserDeleted,
		events.EventNewsPublished,
		events.EventNewsDeleted,
	} {
		a.dispatcher.Subscribe(t, a.handleGeneric)
	}
}

func (a *AuditService) handleActionIssued(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.ActionIssuedPayload)
	a.logger.Info(string(event.Type),
		a.base(event,
			zap.String("action_id", payload.ActionID),
			zap.String("action_type", string(payload.Type)),
		)...,
	)
	return nil
}

func (a *AuditService) handleActionConsumed(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.ActionConsumedPayload)
	a.logger.Info(string(event.Type),
		a.base(event,
			zap.String("user_id", payload.UserID),
			zap.String("action_type", string(payload.Type)),
			zap.String("user_status", string(payload.NewStatus)),
		)...,
	)
	return nil
}

func (a *AuditService) handleGeneric(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), a.base(event, zap.Any("payload", event.Payload))...)
	return nil
}

func (a *AuditService) base(event events.Event, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("subject_id", event.SubjectID),
		zap.Time("at", event.Timestamp),
	}
	if event.Actor.UserID != "" {
		fields = append(fields, zap.String("actor_id", event.Actor.UserID), zap.String("actor_role", string(event.Actor.Role)))
	}
	return append(fields, extra...)
}
