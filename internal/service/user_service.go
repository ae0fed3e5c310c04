package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DmytryS/user-actions-service/internal/auth"
	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/events"
	"github.com/DmytryS/user-actions-service/internal/mailer"
	"github.com/DmytryS/user-actions-service/internal/repository"
	apperrors "github.com/DmytryS/user-actions-service/pkg/util"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// UserService coordinates registration, password reset, login and user administration.
type UserService struct {
	users         repository.UserRepository
	actions       repository.ActionRepository
	authenticator *auth.Authenticator
	notifier      Notifier
	dispatcher    events.Dispatcher
	uiURL         string
	logger        *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo      repository.UserRepository
	ActionRepo    repository.ActionRepository
	Authenticator *auth.Authenticator
	Notifier      Notifier
	Dispatcher    events.Dispatcher
	UIURL         string
	Logger        *zap.Logger
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:         deps.UserRepo,
		actions:       deps.ActionRepo,
		authenticator: deps.Authenticator,
		notifier:      deps.Notifier,
		dispatcher:    deps.Dispatcher,
		uiURL:         deps.UIURL,
		logger:        logger,
	}
}

// RegisterInput describes a registration request.
type RegisterInput struct {
	Email string
	Name  string
	Role  domain.Role
}

// UserUpdateInput carries the fields an admin may change. Nil fields are left as is.
type UserUpdateInput struct {
	Name   *string
	Role   *domain.Role
	Status *domain.UserStatus
}

// LoginResult is an issued access token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// Register creates a PENDING user, or reuses one that never finished
// registration, and mails a REGISTER action link. It returns the user id.
func (s *UserService) Register(ctx context.Context, caller *Caller, input RegisterInput) (string, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return "", apperrors.NewInvalidArgument("unknown role")
	}
	if role == domain.RoleAdmin && !caller.IsAdmin() {
		return "", apperrors.NewForbidden("only administrators can register administrators")
	}

	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Status != domain.UserStatusPending {
			return "", apperrors.NewConflict("user already exists", map[string]any{"email": email})
		}
		if err := s.refreshPending(ctx, user, name, input.Role); err != nil {
			return "", err
		}
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.createPending(ctx, email, name, role)
		if err != nil {
			return "", err
		}
	default:
		return "", apperrors.NewInternalError(err)
	}

	action, err := s.actions.FindOrCreateActive(ctx, user.ID, domain.ActionTypeRegister)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	// A REGISTER consume may have finished since the lookup; never mail a
	// fresh link to a user who already has a password.
	current, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return "", userLookupError(user.ID, err)
	}
	if current.Status != domain.UserStatusPending {
		return "", apperrors.NewConflict("user already exists", map[string]any{"email": email})
	}
	if err := s.notify(ctx, user.Email, mailer.TemplateRegister, action.ID); err != nil {
		return "", err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("action_id", action.ID),
	)
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventUserRegistered,
		SubjectID: user.ID,
		Actor:     caller.actor(),
		Payload: events.ActionIssuedPayload{
			ActionID: action.ID,
			Type:     action.Type,
			Status:   action.Status,
		},
	})
	return user.ID, nil
}

// refreshPending applies the details of a repeated registration to a user
// that never finished the first one. An empty name or role keeps the stored value.
func (s *UserService) refreshPending(ctx context.Context, user *domain.User, name string, role domain.Role) error {
	changed := false
	if name != "" && name != user.Name {
		user.Name = name
		changed = true
	}
	if role != "" && role != user.Role {
		user.Role = role
		changed = true
	}
	if !changed {
		return nil
	}
	err := s.users.UpdatePending(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewConflict("user already exists", map[string]any{"email": user.Email})
	}
	return apperrors.NewInternalError(err)
}

// createPending inserts a new PENDING user. Losing the unique-email race to a
// concurrent registration falls back to the winner's record.
func (s *UserService) createPending(ctx context.Context, email, name string, role domain.Role) (*domain.User, error) {
	user := &domain.User{
		Email:  email,
		Name:   name,
		Role:   role,
		Status: domain.UserStatusPending,
	}
	err := s.users.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.NewInternalError(err)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if existing.Status != domain.UserStatusPending {
		return nil, apperrors.NewConflict("user already exists", map[string]any{"email": email})
	}
	return existing, nil
}

// ResetPassword mails a RESET_PASSWORD action link to a user that already has a password.
func (s *UserService) ResetPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return apperrors.NewInternalError(err)
	}
	if !user.HasPassword() {
		return apperrors.NewMethodNotAllowed("user has no password to reset")
	}

	action, err := s.actions.FindOrCreateActive(ctx, user.ID, domain.ActionTypeResetPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.notify(ctx, user.Email, mailer.TemplateResetPassword, action.ID); err != nil {
		return err
	}

	s.logger.Info("password reset requested",
		zap.String("user_id", user.ID),
		zap.String("action_id", action.ID),
	)
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventPasswordResetRequested,
		SubjectID: user.ID,
		Payload: events.ActionIssuedPayload{
			ActionID: action.ID,
			Type:     action.Type,
			Status:   action.Status,
		},
	})
	return nil
}

// Login checks the credentials with the local strategy and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.authenticator.Authenticate(ctx, auth.StrategyLocal, auth.Credentials{
		Email:    normalizeEmail(email),
		Password: password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInactiveAccount) {
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, apperrors.NewInternalError(err)
	}

	token, exp, err := s.authenticator.Tokens().GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventUserLoggedIn,
		SubjectID: user.ID,
		Actor:     events.Actor{UserID: user.ID, Role: user.Role},
	})
	return &LoginResult{Token: token, ExpiresAt: exp}, nil
}

// Profile returns the caller's own record.
func (s *UserService) Profile(ctx context.Context, caller *Caller) (*domain.User, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return s.GetByID(ctx, caller.ID)
}

// GetUsers lists users page by page, optionally filtered by role.
func (s *UserService) GetUsers(ctx context.Context, skip, limit int, role *domain.Role) ([]domain.User, error) {
	if role != nil && !role.Valid() {
		return nil, apperrors.NewInvalidArgument("unknown role")
	}
	skip, limit = normalizePage(skip, limit)
	users, err := s.users.List(ctx, repository.UserFilter{Role: role, Skip: skip, Limit: limit})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// GetByID fetches one user.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userLookupError(id, err)
	}
	return user, nil
}

// UpdateByID applies an admin edit.
func (s *UserService) UpdateByID(ctx context.Context, caller *Caller, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userLookupError(id, err)
	}

	var fields []string
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
		fields = append(fields, "name")
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewInvalidArgument("unknown role")
		}
		user.Role = *input.Role
		fields = append(fields, "role")
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewInvalidArgument("unknown status")
		}
		user.Status = *input.Status
		fields = append(fields, "status")
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, userLookupError(id, err)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventUserUpdated,
		SubjectID: user.ID,
		Actor:     caller.actor(),
		Payload:   events.UserChangedPayload{Fields: fields},
	})
	return user, nil
}

// DeleteByID removes a user. Outstanding actions of the user are left in place.
func (s *UserService) DeleteByID(ctx context.Context, caller *Caller, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return userLookupError(id, err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventUserDeleted,
		SubjectID: id,
		Actor:     caller.actor(),
	})
	return nil
}

func (s *UserService) notify(ctx context.Context, to string, tpl mailer.Template, actionID string) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, to, tpl, mailer.TemplateData{ActionID: actionID, UIURL: s.uiURL}); err != nil {
		s.logger.Error("notify failed",
			zap.String("template", string(tpl)),
			zap.String("action_id", actionID),
			zap.Error(err),
		)
		return apperrors.NewInternalError(err)
	}
	return nil
}

func userLookupError(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return skip, limit
}
