package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DmytryS/user-actions-service/internal/domain"
)

// ActionRepository manages single-use action tokens.
type ActionRepository interface {
	// FindOrCreateActive returns the user's ACTIVE action of the given type,
	// creating one when none exists.
	FindOrCreateActive(ctx context.Context, userID string, actionType domain.ActionType) (*domain.Action, error)
	GetByID(ctx context.Context, id string) (*domain.Action, error)
	// Consume flips the action from ACTIVE to USED and applies mutate to the
	// owner's current record as one unit. It returns ErrActionUsed when the
	// action is no longer ACTIVE and ErrNotFound when the owner is gone. An
	// error from mutate aborts the unit and leaves the action ACTIVE.
	Consume(ctx context.Context, actionID string, mutate UserMutation) (*domain.User, error)
}

// UserMutation edits a user record in place. Only the password hash and the
// status it leaves behind are persisted.
type UserMutation func(user *domain.User) error

type actionRepository struct {
	pool *pgxpool.Pool
}

// NewActionRepository constructs repository.
func NewActionRepository(pool *pgxpool.Pool) ActionRepository {
	return &actionRepository{pool: pool}
}

const actionColumns = `id, user_id, type, status, created_at, updated_at`

// findOrCreateAttempts bounds the insert/select loop when the ACTIVE action
// is consumed between the two statements.
const findOrCreateAttempts = 3

func scanAction(row rowScanner) (*domain.Action, error) {
	var action domain.Action
	if err := row.Scan(
		&action.ID,
		&action.UserID,
		&action.Type,
		&action.Status,
		&action.CreatedAt,
		&action.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &action, nil
}

func (r *actionRepository) FindOrCreateActive(ctx context.Context, userID string, actionType domain.ActionType) (*domain.Action, error) {
	insert := `
        INSERT INTO actions (user_id, type, status)
        VALUES ($1, $2, 'ACTIVE')
        ON CONFLICT (user_id, type) WHERE status = 'ACTIVE' DO NOTHING
        RETURNING ` + actionColumns
	selectActive := `SELECT ` + actionColumns + ` FROM actions
        WHERE user_id=$1 AND type=$2 AND status='ACTIVE'`

	for attempt := 0; attempt < findOrCreateAttempts; attempt++ {
		action, err := scanAction(r.pool.QueryRow(ctx, insert, userID, actionType))
		if err == nil {
			return action, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, translateError("create action", err)
		}

		action, err = scanAction(r.pool.QueryRow(ctx, selectActive, userID, actionType))
		if err == nil {
			return action, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, translateError("get active action", err)
		}
	}
	return nil, ErrActionUsed
}

func (r *actionRepository) GetByID(ctx context.Context, id string) (*domain.Action, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id=$1`

	action, err := scanAction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateError("get action", err)
	}
	return action, nil
}

func (r *actionRepository) Consume(ctx context.Context, actionID string, mutate UserMutation) (_ *domain.User, err error) {
	if !validID(actionID) {
		return nil, ErrNotFound
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, translateError("begin consume", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// The row lock taken here makes a concurrent consumer wait and then see USED.
	var userID string
	err = tx.QueryRow(ctx, `
        UPDATE actions SET status='USED', updated_at=NOW()
        WHERE id=$1 AND status='ACTIVE'
        RETURNING user_id`, actionID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrActionUsed
			return nil, err
		}
		return nil, translateError("mark action used", err)
	}

	// Lock the owner so edits made while the action is consumed are not overwritten.
	user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1 FOR UPDATE`, userID))
	if err != nil {
		return nil, translateError("lock action owner", err)
	}
	if err = mutate(user); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
        UPDATE users SET password_hash=$1, status=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`,
		user.PasswordHash,
		user.Status,
		user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		return nil, translateError("apply action to user", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, translateError("commit consume", err)
	}
	return user, nil
}
