package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vertexautomation/site-server/internal/database"
	"github.com/vertexautomation/site-server/internal/model"
)

// AccessCodeRepository handles the one-time access code ledger.
// Rows are only ever inserted or flipped to used; nothing deletes them.
type AccessCodeRepository interface {
	Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error)
	FindValid(ctx context.Context, userID, code string) (*model.AccessCode, error)
	Consume(ctx context.Context, userID, code string) (*model.AccessCode, error)
	MarkUsed(ctx context.Context, id string) (bool, error)
	FindExpiredUnused(ctx context.Context, after *model.ExpiredCodeCursor, limit int) ([]model.AccessCode, error)
	Replace(ctx context.Context, staleID string, params model.CreateAccessCodeParams) (*model.AccessCode, error)
	CountValid(ctx context.Context) (int, error)
}

type accessCodeRepo struct {
	db *sqlx.DB
}

func NewAccessCodeRepository(db *sqlx.DB) AccessCodeRepository {
	return &accessCodeRepo{db: db}
}

func (r *accessCodeRepo) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	return insertAccessCode(ctx, r.db, params)
}

func insertAccessCode(ctx context.Context, db database.DBTX, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	var code model.AccessCode
	err := db.GetContext(ctx, &code, `
		INSERT INTO access_codes (user_id, code, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		RETURNING *
	`, params.UserID, params.Code, params.TTL.Seconds())
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// FindValid returns the matching unused, unexpired code for the user without
// modifying it. The code comparison ignores case.
func (r *accessCodeRepo) FindValid(ctx context.Context, userID, code string) (*model.AccessCode, error) {
	var ac model.AccessCode
	err := r.db.GetContext(ctx, &ac, `
		SELECT * FROM access_codes
		WHERE user_id = $1
		AND upper(code) = upper($2)
		AND used = false
		AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, code)
	return HandleNotFound(&ac, err)
}

// Consume verifies and marks a code used in one statement, so two concurrent
// submissions of the same code cannot both succeed.
func (r *accessCodeRepo) Consume(ctx context.Context, userID, code string) (*model.AccessCode, error) {
	var ac model.AccessCode
	err := r.db.GetContext(ctx, &ac, `
		UPDATE access_codes SET used = true
		WHERE id = (
			SELECT id FROM access_codes
			WHERE user_id = $1
			AND upper(code) = upper($2)
			AND used = false
			AND expires_at > NOW()
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		AND used = false
		RETURNING *
	`, userID, code)
	return HandleNotFound(&ac, err)
}

// MarkUsed reports whether this call flipped the row. Calling it on a row that
// is already used is a no-op.
func (r *accessCodeRepo) MarkUsed(ctx context.Context, id string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `
		UPDATE access_codes SET used = true
		WHERE id = $1 AND used = false
	`, id))
}

// FindExpiredUnused pages through expired unused codes in (expires_at, id)
// order, starting after the cursor. A nil cursor starts from the beginning.
// Rows that stay unused, such as ones that failed to renew, are not returned
// again on later pages.
func (r *accessCodeRepo) FindExpiredUnused(ctx context.Context, after *model.ExpiredCodeCursor, limit int) ([]model.AccessCode, error) {
	var (
		afterTime *time.Time
		afterID   *string
	)
	if after != nil {
		afterTime, afterID = &after.ExpiresAt, &after.ID
	}

	codes := []model.AccessCode{}
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM access_codes
		WHERE used = false AND expires_at < NOW()
		AND ($1::timestamptz IS NULL OR (expires_at, id) > ($1, $2::uuid))
		ORDER BY expires_at, id
		LIMIT $3
	`, afterTime, afterID, limit)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Replace marks the stale code used and inserts its replacement in one
// transaction. It returns nil, with nothing written, when the stale code was
// already used by someone else.
func (r *accessCodeRepo) Replace(ctx context.Context, staleID string, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	var replacement *model.AccessCode
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		ok, err := rowsChanged(tx.ExecContext(ctx, `
			UPDATE access_codes SET used = true
			WHERE id = $1 AND used = false
		`, staleID))
		if err != nil || !ok {
			return err
		}

		replacement, err = insertAccessCode(ctx, tx, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return replacement, nil
}

func (r *accessCodeRepo) CountValid(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM access_codes
		WHERE used = false AND expires_at > NOW()
	`)
	return count, err
}
