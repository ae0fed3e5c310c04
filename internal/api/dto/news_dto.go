package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/DmytryS/user-actions-service/internal/domain"
)

// CreateNewsRequest payload for PUT /news.
type CreateNewsRequest struct {
	Name     string  `json:"name"`
	Text     string  `json:"text"`
	Language *string `json:"language"`
}

func (r CreateNewsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Text, validation.Required),
		validation.Field(&r.Language, validation.NilOrNotEmpty, validation.Length(2, 35)),
	)
}

// UpdateNewsRequest payload for POST /news/:id.
type UpdateNewsRequest struct {
	Name     *string `json:"name"`
	Text     *string `json:"text"`
	Language *string `json:"language"`
}

func (r UpdateNewsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Text, validation.NilOrNotEmpty),
		validation.Field(&r.Language, validation.NilOrNotEmpty, validation.Length(2, 35)),
	)
}

// NewsResponse is the public view of a news item.
type NewsResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNewsResponse maps a domain news item.
func NewNewsResponse(n *domain.News) NewsResponse {
	return NewsResponse{
		ID:        n.ID,
		Name:      n.Name,
		Text:      n.Text,
		Language:  n.Language,
		CreatedBy: n.CreatedBy,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// NewNewsListResponse maps a page of news.
func NewNewsListResponse(items []domain.News) []NewsResponse {
	out := make([]NewsResponse, 0, len(items))
	for i := range items {
		out = append(out, NewNewsResponse(&items[i]))
	}
	return out
}
