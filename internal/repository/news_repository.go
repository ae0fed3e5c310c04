package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DmytryS/user-actions-service/internal/domain"
)

// NewsRepository encapsulates news persistence.
type NewsRepository interface {
	Create(ctx context.Context, news *domain.News) error
	Update(ctx context.Context, news *domain.News) error
	GetByID(ctx context.Context, id string) (*domain.News, error)
	List(ctx context.Context, skip, limit int) ([]domain.News, error)
	Delete(ctx context.Context, id string) error
}

type newsRepository struct {
	pool *pgxpool.Pool
}

// NewNewsRepository instantiates repository.
func NewNewsRepository(pool *pgxpool.Pool) NewsRepository {
	return &newsRepository{pool: pool}
}

const newsColumns = `id, name, text, language, created_by, created_at, updated_at`

func scanNews(row rowScanner) (*domain.News, error) {
	var news domain.News
	if err := row.Scan(
		&news.ID,
		&news.Name,
		&news.Text,
		&news.Language,
		&news.CreatedBy,
		&news.CreatedAt,
		&news.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &news, nil
}

func (r *newsRepository) Create(ctx context.Context, news *domain.News) error {
	const query = `
        INSERT INTO news (name, text, language, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		news.Name,
		news.Text,
		news.Language,
		news.CreatedBy,
	).Scan(&news.ID, &news.CreatedAt, &news.UpdatedAt)
	return translateError("create news", err)
}

func (r *newsRepository) Update(ctx context.Context, news *domain.News) error {
	if !validID(news.ID) {
		return ErrNotFound
	}
	const query = `
        UPDATE news SET name=$1, text=$2, language=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		news.Name,
		news.Text,
		news.Language,
		news.ID,
	).Scan(&news.UpdatedAt)
	return translateError("update news", err)
}

func (r *newsRepository) GetByID(ctx context.Context, id string) (*domain.News, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	news, err := scanNews(r.pool.QueryRow(ctx, `SELECT `+newsColumns+` FROM news WHERE id=$1`, id))
	if err != nil {
		return nil, translateError("get news", err)
	}
	return news, nil
}

func (r *newsRepository) List(ctx context.Context, skip, limit int) ([]domain.News, error) {
	query := `SELECT ` + newsColumns + ` FROM news ORDER BY created_at, id OFFSET $1 LIMIT $2`
	rows, err := r.pool.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, translateError("list news", err)
	}
	defer rows.Close()

	items := make([]domain.News, 0, limit)
	for rows.Next() {
		news, err := scanNews(rows)
		if err != nil {
			return nil, translateError("scan news", err)
		}
		items = append(items, *news)
	}
	return items, translateError("list news", rows.Err())
}

func (r *newsRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM news WHERE id=$1`, id)
	if err != nil {
		return translateError("delete news", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
