package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/DmytryS/user-actions-service/internal/auth"
	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/events"
	"github.com/DmytryS/user-actions-service/internal/mailer"
	"github.com/DmytryS/user-actions-service/internal/repository"
	"github.com/DmytryS/user-actions-service/internal/repository/memory"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, to string, tpl mailer.Template, data mailer.TemplateData) error {
	return m.Called(ctx, to, tpl, data).Error(0)
}

type mockActions struct {
	mock.Mock
}

func (m *mockActions) FindOrCreateActive(ctx context.Context, userID string, actionType domain.ActionType) (*domain.Action, error) {
	args := m.Called(ctx, userID, actionType)
	action, _ := args.Get(0).(*domain.Action)
	return action, args.Error(1)
}

func (m *mockActions) GetByID(ctx context.Context, id string) (*domain.Action, error) {
	args := m.Called(ctx, id)
	action, _ := args.Get(0).(*domain.Action)
	return action, args.Error(1)
}

// Consume hands the configured user to mutate, mirroring the store contract.
func (m *mockActions) Consume(ctx context.Context, actionID string, mutate repository.UserMutation) (*domain.User, error) {
	args := m.Called(ctx, actionID)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	user, _ := args.Get(0).(*domain.User)
	if user != nil {
		if err := mutate(user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

var _ repository.ActionRepository = (*mockActions)(nil)

const testUIURL = "http://ui.test"

type fixture struct {
	store    *memory.Store
	notifier *mockNotifier
	tokens   *auth.TokenManager
	users    *UserService
	actions  *ActionService
	news     *NewsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	notifier := &mockNotifier{}
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	return &fixture{
		store:    store,
		notifier: notifier,
		tokens:   tokens,
		users: NewUserService(UserDependencies{
			UserRepo:      store.Users(),
			ActionRepo:    store.Actions(),
			Authenticator: auth.NewAuthenticator(store.Users(), tokens),
			Notifier:      notifier,
			Dispatcher:    dispatcher,
			UIURL:         testUIURL,
		}),
		actions: NewActionService(ActionDependencies{
			ActionRepo: store.Actions(),
			UserRepo:   store.Users(),
			Dispatcher: dispatcher,
			BcryptCost: bcrypt.MinCost,
		}),
		news: NewNewsService(NewsDependencies{
			NewsRepo:   store.News(),
			Dispatcher: dispatcher,
		}),
	}
}

// expectNotify records the action id the notifier receives.
func (f *fixture) expectNotify(to string, tpl mailer.Template, actionID *string) *mock.Call {
	return f.notifier.On("Notify", mock.Anything, to, tpl, mock.MatchedBy(func(d mailer.TemplateData) bool {
		return d.UIURL == testUIURL && d.ActionID != ""
	})).Run(func(args mock.Arguments) {
		if actionID != nil {
			*actionID = args.Get(3).(mailer.TemplateData).ActionID
		}
	}).Return(nil)
}

func (f *fixture) seedUser(t *testing.T, email, password string, role domain.Role, status domain.UserStatus) *domain.User {
	t.Helper()
	user := &domain.User{Name: "Seed", Email: email, Role: role, Status: status}
	if password != "" {
		hash, err := auth.HashPassword(password, bcrypt.MinCost)
		require.NoError(t, err)
		user.PasswordHash = hash
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}
