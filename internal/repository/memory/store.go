// Package memory provides in-process implementations of the repository
// interfaces. A single mutex guards every collection so that action
// consumption and the matching user write happen atomically.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/repository"
)

// Store holds users, actions and news.
type Store struct {
	mu      sync.RWMutex
	seq     int64
	users   map[string]userRecord
	actions map[string]domain.Action
	news    map[string]newsRecord
	now     func() time.Time
}

type userRecord struct {
	user domain.User
	seq  int64
}

type newsRecord struct {
	news domain.News
	seq  int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[string]userRecord),
		actions: make(map[string]domain.Action),
		news:    make(map[string]newsRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Actions exposes the store as an ActionRepository.
func (s *Store) Actions() repository.ActionRepository { return (*actionRepo)(s) }

// News exposes the store as a NewsRepository.
func (s *Store) News() repository.NewsRepository { return (*newsRepo)(s) }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	now := s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = userRecord{user: *user, seq: s.nextSeq()}
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range s.users {
		if id != user.ID && strings.EqualFold(other.user.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.CreatedAt = rec.user.CreatedAt
	user.UpdatedAt = s.now()
	rec.user = *user
	s.users[user.ID] = rec
	return nil
}

func (r *userRepo) UpdatePending(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[user.ID]
	if !ok || rec.user.Status != domain.UserStatusPending {
		return repository.ErrNotFound
	}
	rec.user.Name = user.Name
	rec.user.Role = user.Role
	rec.user.UpdatedAt = s.now()
	s.users[user.ID] = rec
	user.UpdatedAt = rec.user.UpdatedAt
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := rec.user
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Email, email) {
			user := rec.user
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]userRecord, 0, len(s.users))
	for _, rec := range s.users {
		if filter.Role != nil && rec.user.Role != *filter.Role {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	start, end := window(len(records), filter.Skip, filter.Limit)
	users := make([]domain.User, 0, end-start)
	for _, rec := range records[start:end] {
		users = append(users, rec.user)
	}
	return users, nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type actionRepo Store

func (r *actionRepo) FindOrCreateActive(_ context.Context, userID string, actionType domain.ActionType) (*domain.Action, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, action := range s.actions {
		if action.UserID == userID && action.Type == actionType && action.Status == domain.ActionStatusActive {
			found := action
			return &found, nil
		}
	}

	now := s.now()
	action := domain.Action{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      actionType,
		Status:    domain.ActionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.actions[action.ID] = action
	return &action, nil
}

func (r *actionRepo) GetByID(_ context.Context, id string) (*domain.Action, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	action, ok := s.actions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &action, nil
}

func (r *actionRepo) Consume(_ context.Context, actionID string, mutate repository.UserMutation) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.actions[actionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if action.Status != domain.ActionStatusActive {
		return nil, repository.ErrActionUsed
	}
	rec, ok := s.users[action.UserID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	updated := rec.user
	if err := mutate(&updated); err != nil {
		return nil, err
	}

	now := s.now()
	action.Status = domain.ActionStatusUsed
	action.UpdatedAt = now
	s.actions[actionID] = action

	rec.user.PasswordHash = updated.PasswordHash
	rec.user.Status = updated.Status
	rec.user.UpdatedAt = now
	s.users[action.UserID] = rec

	out := rec.user
	return &out, nil
}

type newsRepo Store

func (r *newsRepo) Create(_ context.Context, news *domain.News) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	news.ID = uuid.NewString()
	news.CreatedAt = now
	news.UpdatedAt = now
	s.news[news.ID] = newsRecord{news: *news, seq: s.nextSeq()}
	return nil
}

func (r *newsRepo) Update(_ context.Context, news *domain.News) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.news[news.ID]
	if !ok {
		return repository.ErrNotFound
	}
	rec.news.Name = news.Name
	rec.news.Text = news.Text
	rec.news.Language = news.Language
	rec.news.UpdatedAt = s.now()
	s.news[news.ID] = rec
	*news = rec.news
	return nil
}

func (r *newsRepo) GetByID(_ context.Context, id string) (*domain.News, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.news[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	news := rec.news
	return &news, nil
}

func (r *newsRepo) List(_ context.Context, skip, limit int) ([]domain.News, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]newsRecord, 0, len(s.news))
	for _, rec := range s.news {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	start, end := window(len(records), skip, limit)
	items := make([]domain.News, 0, end-start)
	for _, rec := range records[start:end] {
		items = append(items, rec.news)
	}
	return items, nil
}

func (r *newsRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.news[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.news, id)
	return nil
}

// window clamps skip/limit to [0, n].
func window(n, skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if skip > n {
		skip = n
	}
	end := n
	if limit > 0 && skip+limit < n {
		end = skip + limit
	}
	return skip, end
}
