package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/DmytryS/user-actions-service/internal/domain"
	apperrors "github.com/DmytryS/user-actions-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User *domain.User
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.User.IsAdmin()
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	authenticator *Authenticator
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authenticator *Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}
	return m.authenticate(c)
}

// Optional loads the principal when an Authorization header is present and
// lets anonymous requests through. A present but invalid token is rejected.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return c.Next()
	}
	return m.authenticate(c)
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) error {
	token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	user, err := m.authenticator.Authenticate(c.UserContext(), StrategyBearer, Credentials{BearerToken: token})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			return apperrors.NewUnauthorized("invalid token")
		case errors.Is(err, ErrInactiveAccount):
			return apperrors.NewUnauthorized(err.Error())
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{User: user})
	return c.Next()
}

// bearerToken accepts "Bearer <token>" as well as a bare token.
func bearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	switch {
	case len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "":
		return strings.TrimSpace(parts[1]), nil
	case len(parts) == 1 && parts[0] != "":
		return parts[0], nil
	}
	return "", apperrors.NewUnauthorized("invalid authorization header")
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
