package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/repository"
)

func newPendingUser(t *testing.T, store *Store, email string) *domain.User {
	t.Helper()
	user := &domain.User{Name: "A", Email: email, Role: domain.RoleUser, Status: domain.UserStatusPending}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func activate(hash string) repository.UserMutation {
	return func(u *domain.User) error {
		u.PasswordHash = hash
		u.Status = domain.UserStatusActive
		return nil
	}
}

func TestUsersEmailIsCaseInsensitiveUnique(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	newPendingUser(t, store, "a@b.com")

	err := store.Users().Create(ctx, &domain.User{Email: "A@B.COM"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	found, err := store.Users().GetByEmail(ctx, "A@b.Com")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", found.Email)
}

func TestUpdatePendingOnlyTouchesPendingUsers(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := newPendingUser(t, store, "a@b.com")

	require.NoError(t, store.Users().UpdatePending(ctx, &domain.User{ID: user.ID, Name: "B", Role: domain.RoleAdmin}))
	got, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.Equal(t, "a@b.com", got.Email)

	action, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeRegister)
	require.NoError(t, err)
	_, err = store.Actions().Consume(ctx, action.ID, activate("h"))
	require.NoError(t, err)

	err = store.Users().UpdatePending(ctx, &domain.User{ID: user.ID, Name: "C", Role: domain.RoleUser})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	got, err = store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)
}

func TestUsersListFiltersAndPaginates(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	for _, email := range []string{"1@x.io", "2@x.io", "3@x.io"} {
		newPendingUser(t, store, email)
	}
	admin := &domain.User{Email: "admin@x.io", Role: domain.RoleAdmin, Status: domain.UserStatusActive}
	require.NoError(t, store.Users().Create(ctx, admin))

	page, err := store.Users().List(ctx, repository.UserFilter{Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2@x.io", page[0].Email)
	assert.Equal(t, "3@x.io", page[1].Email)

	role := domain.RoleAdmin
	admins, err := store.Users().List(ctx, repository.UserFilter{Role: &role, Limit: 10})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, admin.ID, admins[0].ID)

	empty, err := store.Users().List(ctx, repository.UserFilter{Skip: 10, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindOrCreateActiveReusesActiveAction(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := newPendingUser(t, store, "a@b.com")

	first, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeRegister)
	require.NoError(t, err)
	second, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeRegister)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	reset, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeResetPassword)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, reset.ID)

	_, err = store.Actions().Consume(ctx, first.ID, activate("hash"))
	require.NoError(t, err)

	third, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeRegister)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestConsumeIsSingleUse(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := newPendingUser(t, store, "a@b.com")
	action, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeRegister)
	require.NoError(t, err)

	consumed, err := store.Actions().Consume(ctx, action.ID, activate("hash"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, consumed.ID)

	stored, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, stored.Status)
	assert.Equal(t, "hash", stored.PasswordHash)

	got, err := store.Actions().GetByID(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusUsed, got.Status)

	_, err = store.Actions().Consume(ctx, action.ID, activate("other"))
	assert.ErrorIs(t, err, repository.ErrActionUsed)
}

func TestConsumeLeavesActionActiveWhenUserMissing(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := newPendingUser(t, store, "a@b.com")
	action, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeRegister)
	require.NoError(t, err)
	require.NoError(t, store.Users().Delete(ctx, user.ID))

	_, err = store.Actions().Consume(ctx, action.ID, activate("hash"))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := store.Actions().GetByID(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusActive, got.Status)
}

func TestConcurrentConsumeHasSingleWinner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := newPendingUser(t, store, "a@b.com")
	action, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeRegister)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		success atomic.Int32
		used    atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch _, err := store.Actions().Consume(ctx, action.ID, activate("hash")); err {
			case nil:
				success.Add(1)
			case repository.ErrActionUsed:
				used.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), success.Load())
	assert.Equal(t, int32(31), used.Load())
}

func TestConsumeMutatesCurrentRecord(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := newPendingUser(t, store, "a@b.com")
	action, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeResetPassword)
	require.NoError(t, err)

	user.Status = domain.UserStatusBanned
	require.NoError(t, store.Users().Update(ctx, user))

	consumed, err := store.Actions().Consume(ctx, action.ID, func(u *domain.User) error {
		assert.Equal(t, domain.UserStatusBanned, u.Status)
		u.PasswordHash = "hash"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusBanned, consumed.Status)
	assert.Equal(t, "hash", consumed.PasswordHash)
}

func TestConsumeAbortsOnMutationError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := newPendingUser(t, store, "a@b.com")
	action, err := store.Actions().FindOrCreateActive(ctx, user.ID, domain.ActionTypeRegister)
	require.NoError(t, err)
	boom := errors.New("boom")

	_, err = store.Actions().Consume(ctx, action.ID, func(*domain.User) error { return boom })
	assert.ErrorIs(t, err, boom)

	got, err := store.Actions().GetByID(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusActive, got.Status)
}

func TestNewsCRUD(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	news := &domain.News{Name: "N1", Text: "T1", Language: "en", CreatedBy: "u1"}
	require.NoError(t, store.News().Create(ctx, news))
	require.NotEmpty(t, news.ID)

	news.Name = "N2"
	require.NoError(t, store.News().Update(ctx, news))
	assert.Equal(t, "u1", news.CreatedBy)

	got, err := store.News().GetByID(ctx, news.ID)
	require.NoError(t, err)
	assert.Equal(t, "N2", got.Name)

	require.NoError(t, store.News().Delete(ctx, news.ID))
	assert.ErrorIs(t, store.News().Delete(ctx, news.ID), repository.ErrNotFound)
	_, err = store.News().GetByID(ctx, news.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
