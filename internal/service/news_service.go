package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/events"
	"github.com/DmytryS/user-actions-service/internal/repository"
	apperrors "github.com/DmytryS/user-actions-service/pkg/util"
)

const defaultNewsLanguage = "en"

// NewsService manages published news.
type NewsService struct {
	news       repository.NewsRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewsDependencies bundles collaborators for the news service.
type NewsDependencies struct {
	NewsRepo   repository.NewsRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewsInput carries writable news fields. Nil fields are left as is on update.
type NewsInput struct {
	Name     *string
	Text     *string
	Language *string
}

// NewNewsService builds the service.
func NewNewsService(deps NewsDependencies) *NewsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsService{news: deps.NewsRepo, dispatcher: deps.Dispatcher, logger: logger}
}

// GetNews lists news, newest last.
func (s *NewsService) GetNews(ctx context.Context, skip, limit int) ([]domain.News, error) {
	skip, limit = normalizePage(skip, limit)
	items, err := s.news.List(ctx, skip, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// GetByID fetches one news item.
func (s *NewsService) GetByID(ctx context.Context, id string) (*domain.News, error) {
	item, err := s.news.GetByID(ctx, id)
	if err != nil {
		return nil, newsLookupError(id, err)
	}
	return item, nil
}

// Create publishes a news item authored by the caller.
func (s *NewsService) Create(ctx context.Context, caller *Caller, input NewsInput) (*domain.News, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	lang := defaultNewsLanguage
	if input.Language != nil {
		lang = *input.Language
	}
	canonical, err := canonicalLanguage(lang)
	if err != nil {
		return nil, err
	}

	item := &domain.News{
		Name:      strings.TrimSpace(deref(input.Name)),
		Text:      deref(input.Text),
		Language:  canonical,
		CreatedBy: caller.ID,
	}
	if err := s.news.Create(ctx, item); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("news published", zap.String("news_id", item.ID), zap.String("author", caller.ID))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventNewsPublished,
		SubjectID: item.ID,
		Actor:     caller.actor(),
		Payload:   events.NewsPayload{Name: item.Name, Language: item.Language},
	})
	return item, nil
}

// UpdateByID edits a news item. Only its author or an admin may do so.
func (s *NewsService) UpdateByID(ctx context.Context, caller *Caller, id string, input NewsInput) (*domain.News, error) {
	item, err := s.authorized(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		item.Name = strings.TrimSpace(*input.Name)
	}
	if input.Text != nil {
		item.Text = *input.Text
	}
	if input.Language != nil {
		canonical, err := canonicalLanguage(*input.Language)
		if err != nil {
			return nil, err
		}
		item.Language = canonical
	}
	if err := s.news.Update(ctx, item); err != nil {
		return nil, newsLookupError(id, err)
	}
	return item, nil
}

// DeleteByID removes a news item. Only its author or an admin may do so.
func (s *NewsService) DeleteByID(ctx context.Context, caller *Caller, id string) error {
	item, err := s.authorized(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.news.Delete(ctx, id); err != nil {
		return newsLookupError(id, err)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventNewsDeleted,
		SubjectID: id,
		Actor:     caller.actor(),
		Payload:   events.NewsPayload{Name: item.Name, Language: item.Language},
	})
	return nil
}

func (s *NewsService) authorized(ctx context.Context, caller *Caller, id string) (*domain.News, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	item, err := s.news.GetByID(ctx, id)
	if err != nil {
		return nil, newsLookupError(id, err)
	}
	if item.CreatedBy != caller.ID && !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("only the author or an administrator can change this news")
	}
	return item, nil
}

// canonicalLanguage validates a BCP 47 tag and returns its canonical form.
func canonicalLanguage(raw string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperrors.NewValidationError("invalid language", map[string]any{"language": raw})
	}
	return tag.String(), nil
}

func newsLookupError(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("news", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
