package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/DmytryS/user-actions-service/internal/api/http/handlers"
	"github.com/DmytryS/user-actions-service/internal/auth"
	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/events"
	"github.com/DmytryS/user-actions-service/internal/mailer"
	"github.com/DmytryS/user-actions-service/internal/observability"
	"github.com/DmytryS/user-actions-service/internal/persistence"
	"github.com/DmytryS/user-actions-service/internal/repository/memory"
	"github.com/DmytryS/user-actions-service/internal/service"
)

type sentMail struct {
	to   string
	tpl  mailer.Template
	data mailer.TemplateData
}

type outboxNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *outboxNotifier) Notify(_ context.Context, to string, tpl mailer.Template, data mailer.TemplateData) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{to: to, tpl: tpl, data: data})
	return nil
}

func (n *outboxNotifier) last(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	return n.sent[len(n.sent)-1]
}

func (n *outboxNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type testServer struct {
	app      *fiber.App
	store    *memory.Store
	notifier *outboxNotifier
	tokens   *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	notifier := &outboxNotifier{}
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	authenticator := auth.NewAuthenticator(store.Users(), tokens)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("test", "dev", &persistence.Postgres{}, nil, metrics),
		Users: handlers.NewUsersHandler(service.NewUserService(service.UserDependencies{
			UserRepo:      store.Users(),
			ActionRepo:    store.Actions(),
			Authenticator: authenticator,
			Notifier:      notifier,
			Dispatcher:    dispatcher,
			UIURL:         "http://ui.test",
			Logger:        logger,
		})),
		Actions: handlers.NewActionsHandler(service.NewActionService(service.ActionDependencies{
			ActionRepo: store.Actions(),
			UserRepo:   store.Users(),
			Dispatcher: dispatcher,
			BcryptCost: bcrypt.MinCost,
			Logger:     logger,
		})),
		News: handlers.NewNewsHandler(service.NewNewsService(service.NewsDependencies{
			NewsRepo:   store.News(),
			Dispatcher: dispatcher,
			Logger:     logger,
		})),
		AuthMiddleware: auth.NewAuthMiddleware(authenticator),
	})
	return &testServer{app: app, store: store, notifier: notifier, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *testServer) seedActive(t *testing.T, email, password string, role domain.Role) (*domain.User, string) {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{Name: "Seed", Email: email, Role: role, Status: domain.UserStatusActive, PasswordHash: hash}
	require.NoError(t, s.store.Users().Create(context.Background(), user))
	token, _, err := s.tokens.GenerateToken(user.ID, role)
	require.NoError(t, err)
	return user, token
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error.Code
}

func TestRegisterActivateLoginFlow(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPut, "/api/v1/users", map[string]string{"email": "a@b.com", "name": "Ann"}, "")
	require.Equal(t, fiber.StatusOK, status, string(body))
	var registered struct {
		ID string `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(body, &registered))
	require.NotEmpty(t, registered.ID)

	mail := s.notifier.last(t)
	assert.Equal(t, "a@b.com", mail.to)
	assert.Equal(t, mailer.TemplateRegister, mail.tpl)
	assert.Equal(t, "http://ui.test", mail.data.UIURL)
	actionPath := "/api/v1/actions/" + mail.data.ActionID

	status, body = s.do(t, fiber.MethodGet, actionPath, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"id":"`+mail.data.ActionID+`","status":"ACTIVE","type":"REGISTER"}`, string(body))

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/users/login", map[string]string{"email": "a@b.com", "password": "p1"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, fiber.MethodPost, actionPath, map[string]string{"password": "p1"}, "")
	require.Equal(t, fiber.StatusNoContent, status)

	status, body = s.do(t, fiber.MethodPost, actionPath, map[string]string{"password": "p2"}, "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(t, body))

	status, body = s.do(t, fiber.MethodPost, "/api/v1/users/login", map[string]string{"email": "A@B.com", "password": "p1"}, "")
	require.Equal(t, fiber.StatusOK, status, string(body))
	var login struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	claims, err := s.tokens.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID())
	assert.True(t, login.Expires.After(time.Now()))

	status, body = s.do(t, fiber.MethodGet, "/api/v1/users/profile", nil, login.Token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), `"status":"ACTIVE"`)
	assert.NotContains(t, string(body), "password")

	status, _ = s.do(t, fiber.MethodPut, "/api/v1/users", map[string]string{"email": "a@b.com", "name": "Ann"}, "")
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestUnknownActionIsNotFound(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/api/v1/actions/00000000-0000-0000-0000-000000000000", map[string]string{"password": "p"}, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	status, _ = s.do(t, fiber.MethodGet, "/api/v1/actions/garbage", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPerformActionRequiresPassword(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, fiber.MethodPut, "/api/v1/users", map[string]string{"email": "a@b.com", "name": "Ann"}, "")
	require.Equal(t, fiber.StatusOK, status)
	mail := s.notifier.last(t)

	status, body := s.do(t, fiber.MethodPost, "/api/v1/actions/"+mail.data.ActionID, map[string]string{}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestRegisterValidationAndRoles(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.seedActive(t, "user@b.com", "p", domain.RoleUser)
	_, adminToken := s.seedActive(t, "admin@b.com", "p", domain.RoleAdmin)

	status, body := s.do(t, fiber.MethodPut, "/api/v1/users", map[string]string{"email": "broken", "name": "X"}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	adminReq := map[string]string{"email": "new@b.com", "name": "N", "role": "ADMIN"}
	status, _ = s.do(t, fiber.MethodPut, "/api/v1/users", adminReq, "")
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = s.do(t, fiber.MethodPut, "/api/v1/users", adminReq, userToken)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = s.do(t, fiber.MethodPut, "/api/v1/users", adminReq, "not-a-jwt")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Zero(t, s.notifier.count())

	status, _ = s.do(t, fiber.MethodPut, "/api/v1/users", adminReq, adminToken)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, s.notifier.count())
}

func TestResetPasswordEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedActive(t, "a@b.com", "old", domain.RoleUser)
	status, _ := s.do(t, fiber.MethodPut, "/api/v1/users", map[string]string{"email": "pending@b.com", "name": "P"}, "")
	require.Equal(t, fiber.StatusOK, status)
	before := s.notifier.count()

	status, body := s.do(t, fiber.MethodPost, "/api/v1/users/reset-password", map[string]string{"email": "pending@b.com"}, "")
	assert.Equal(t, fiber.StatusMethodNotAllowed, status)
	assert.Equal(t, "METHOD_NOT_ALLOWED", errorCode(t, body))
	assert.Equal(t, before, s.notifier.count())

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/users/reset-password", map[string]string{"email": "ghost@b.com"}, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/users/reset-password", map[string]string{"email": "a@b.com"}, "")
	require.Equal(t, fiber.StatusNoContent, status)
	mail := s.notifier.last(t)
	assert.Equal(t, mailer.TemplateResetPassword, mail.tpl)

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/actions/"+mail.data.ActionID, map[string]string{"password": "new"}, "")
	require.Equal(t, fiber.StatusNoContent, status)
	status, _ = s.do(t, fiber.MethodPost, "/api/v1/users/login", map[string]string{"email": "a@b.com", "password": "new"}, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAdminUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	target, userToken := s.seedActive(t, "user@b.com", "p", domain.RoleUser)
	_, adminToken := s.seedActive(t, "admin@b.com", "p", domain.RoleAdmin)

	status, _ := s.do(t, fiber.MethodGet, "/api/v1/users", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = s.do(t, fiber.MethodGet, "/api/v1/users", nil, userToken)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := s.do(t, fiber.MethodGet, "/api/v1/users?role=admin&limit=5", nil, adminToken)
	require.Equal(t, fiber.StatusOK, status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "admin@b.com", list[0]["email"])

	status, body = s.do(t, fiber.MethodPost, "/api/v1/users/"+target.ID, map[string]string{"status": "BANNED"}, adminToken)
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"status":"BANNED"`)

	status, _ = s.do(t, fiber.MethodGet, "/api/v1/users/profile", nil, userToken)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, fiber.MethodDelete, "/api/v1/users/"+target.ID, nil, adminToken)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = s.do(t, fiber.MethodGet, "/api/v1/users/"+target.ID, nil, adminToken)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestNewsEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, authorToken := s.seedActive(t, "author@b.com", "p", domain.RoleUser)
	_, otherToken := s.seedActive(t, "other@b.com", "p", domain.RoleUser)

	status, _ := s.do(t, fiber.MethodGet, "/api/v1/news", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := s.do(t, fiber.MethodPut, "/api/v1/news", map[string]string{"name": "Hi", "text": "Body", "language": "uk"}, authorToken)
	require.Equal(t, fiber.StatusOK, status, string(body))
	var created struct {
		ID       string `json:"id"`
		Language string `json:"language"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "uk", created.Language)

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/news/"+created.ID, map[string]string{"name": "Mine"}, otherToken)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = s.do(t, fiber.MethodGet, "/api/v1/news", nil, otherToken)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), created.ID)

	status, _ = s.do(t, fiber.MethodDelete, "/api/v1/news/"+created.ID, nil, authorToken)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = s.do(t, fiber.MethodGet, "/api/v1/news/"+created.ID, nil, authorToken)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, fiber.MethodGet, "/health/live", nil, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body := s.do(t, fiber.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), `"postgres":"disabled"`)

	s.do(t, fiber.MethodGet, "/api/v1/actions/missing", nil, "")
	status, body = s.do(t, fiber.MethodGet, "/health/metrics", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), "NOT_FOUND")
}

func TestUnknownRouteRendersErrorBody(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fiber.MethodGet, "/api/v1/nowhere", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}
