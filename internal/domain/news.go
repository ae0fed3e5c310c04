package domain

import "time"

// News is a published article.
type News struct {
	ID        string
	Name      string
	Text      string
	Language  string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
