package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/repository"
)

// StrategyKind selects how a caller proves its identity.
type StrategyKind string

const (
	// StrategyLocal checks an email and password against the stored hash.
	StrategyLocal StrategyKind = "local"
	// StrategyBearer checks a signed access token.
	StrategyBearer StrategyKind = "bearer"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInactiveAccount    = errors.New("account is not active")
	ErrUnknownStrategy    = errors.New("unknown authentication strategy")
)

// Credentials carries the inputs of every strategy; each strategy reads its own fields.
type Credentials struct {
	Email       string
	Password    string
	BearerToken string
}

// Authenticator resolves credentials to an ACTIVE user.
type Authenticator struct {
	users  repository.UserRepository
	tokens *TokenManager
}

// NewAuthenticator constructs an authenticator over the user store.
func NewAuthenticator(users repository.UserRepository, tokens *TokenManager) *Authenticator {
	return &Authenticator{users: users, tokens: tokens}
}

// Tokens exposes the token manager used by the bearer strategy.
func (a *Authenticator) Tokens() *TokenManager {
	return a.tokens
}

// Authenticate runs the selected strategy.
func (a *Authenticator) Authenticate(ctx context.Context, kind StrategyKind, creds Credentials) (*domain.User, error) {
	var (
		user *domain.User
		err  error
	)
	switch kind {
	case StrategyLocal:
		user, err = a.local(ctx, creds)
	case StrategyBearer:
		user, err = a.bearer(ctx, creds)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
	if err != nil {
		return nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, ErrInactiveAccount
	}
	return user, nil
}

func (a *Authenticator) local(ctx context.Context, creds Credentials) (*domain.User, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := a.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := ComparePassword(user.PasswordHash, creds.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (a *Authenticator) bearer(ctx context.Context, creds Credentials) (*domain.User, error) {
	if creds.BearerToken == "" {
		return nil, ErrInvalidToken
	}
	claims, err := a.tokens.ParseToken(creds.BearerToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := a.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}
