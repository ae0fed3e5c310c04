package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DmytryS/user-actions-service/internal/auth"
	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/events"
	"github.com/DmytryS/user-actions-service/internal/repository"
	apperrors "github.com/DmytryS/user-actions-service/pkg/util"
)

var errUnknownActionType = errors.New("unknown action type")

// ActionView is the public shape of an action; it never carries the owner.
type ActionView struct {
	ID     string
	Status domain.ActionStatus
	Type   domain.ActionType
}

// ActionService executes single-use action tokens.
type ActionService struct {
	actions    repository.ActionRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	bcryptCost int
	logger     *zap.Logger
}

// ActionDependencies bundles collaborators for the action service.
type ActionDependencies struct {
	ActionRepo repository.ActionRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	BcryptCost int
	Logger     *zap.Logger
}

// NewActionService builds the service.
func NewActionService(deps ActionDependencies) *ActionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionService{
		actions:    deps.ActionRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		bcryptCost: deps.BcryptCost,
		logger:     logger,
	}
}

// GetByID returns the redacted view of an action.
func (s *ActionService) GetByID(ctx context.Context, id string) (*ActionView, error) {
	action, err := s.actions.GetByID(ctx, id)
	if err != nil {
		return nil, actionLookupError(id, err)
	}
	return &ActionView{ID: action.ID, Status: action.Status, Type: action.Type}, nil
}

// UpdateByID consumes the action with the supplied password. The action is
// marked USED and the user written in one step, so a second call conflicts.
// RESET_PASSWORD touches only the password hash; REGISTER also activates.
func (s *ActionService) UpdateByID(ctx context.Context, id, password string) error {
	action, err := s.actions.GetByID(ctx, id)
	if err != nil {
		return actionLookupError(id, err)
	}
	if !action.IsActive() {
		return apperrors.NewConflict("action already used", map[string]any{"id": id})
	}

	if _, err := s.users.GetByID(ctx, action.UserID); err != nil {
		return userLookupError(action.UserID, err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}

	// The effect is applied to the owner's record as the store reads it inside
	// the consume unit, so concurrent edits to other fields survive.
	updated, err := s.actions.Consume(ctx, action.ID, func(user *domain.User) error {
		next, err := applyAction(action, *user, hash)
		if err != nil {
			return err
		}
		*user = next
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errUnknownActionType):
			return apperrors.NewInvalidArgument(err.Error())
		case errors.Is(err, repository.ErrActionUsed):
			return apperrors.NewConflict("action already used", map[string]any{"id": id})
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NewNotFound("user", map[string]any{"id": action.UserID})
		}
		return apperrors.NewInternalError(err)
	}

	s.logger.Info("action consumed",
		zap.String("action_id", action.ID),
		zap.String("type", string(action.Type)),
		zap.String("user_id", updated.ID),
	)
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventActionConsumed,
		SubjectID: action.ID,
		Actor:     events.Actor{UserID: updated.ID, Role: updated.Role},
		Payload: events.ActionConsumedPayload{
			UserID:    updated.ID,
			Type:      action.Type,
			NewStatus: updated.Status,
		},
	})
	return nil
}

// applyAction computes the user record that results from executing action.
func applyAction(action *domain.Action, user domain.User, passwordHash string) (domain.User, error) {
	switch action.Type {
	case domain.ActionTypeRegister:
		user.PasswordHash = passwordHash
		user.Status = domain.UserStatusActive
	case domain.ActionTypeResetPassword:
		user.PasswordHash = passwordHash
	default:
		return domain.User{}, errUnknownActionType
	}
	return user, nil
}

func actionLookupError(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("action", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}
