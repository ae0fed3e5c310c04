package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/events"
	"github.com/DmytryS/user-actions-service/internal/mailer"
)

// Notifier delivers an action email. Implementations live in the mailer package.
type Notifier interface {
	Notify(ctx context.Context, to string, tpl mailer.Template, data mailer.TemplateData) error
}

// Caller is the authenticated user behind a request, nil for anonymous calls.
type Caller struct {
	ID   string
	Role domain.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == domain.RoleAdmin
}

func (c *Caller) actor() events.Actor {
	if c == nil {
		return events.Actor{}
	}
	return events.Actor{UserID: c.ID, Role: c.Role}
}

// publish fans the event out. Handler failures never fail the request that
// raised the event; they are logged instead.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err),
		)
	}
}
