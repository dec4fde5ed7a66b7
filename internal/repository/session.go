package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vertexautomation/site-server/internal/model"
)

type UserSessionRepository interface {
	Create(ctx context.Context, params model.CreateUserSessionParams) (*model.UserSession, error)
	FindValidByTokenHash(ctx context.Context, tokenHash string) (*model.UserSession, error)
	MarkVerified(ctx context.Context, id string) (bool, error)
	Extend(ctx context.Context, id string, expiresAt time.Time) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type userSessionRepo struct {
	db *sqlx.DB
}

func NewUserSessionRepository(db *sqlx.DB) UserSessionRepository {
	return &userSessionRepo{db: db}
}

func (r *userSessionRepo) Create(ctx context.Context, params model.CreateUserSessionParams) (*model.UserSession, error) {
	purpose := params.Purpose
	if purpose == "" {
		purpose = model.SessionPurposeAdmin
	}

	var session model.UserSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO user_sessions (token_hash, user_id, purpose, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.TokenHash, params.UserID, purpose, params.UserAgent, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *userSessionRepo) FindValidByTokenHash(ctx context.Context, tokenHash string) (*model.UserSession, error) {
	var session model.UserSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM user_sessions
		WHERE token_hash = $1 AND expires_at > NOW()
	`, tokenHash)
	return HandleNotFound(&session, err)
}

// MarkVerified elevates an admin-login session. Member sessions never match.
func (r *userSessionRepo) MarkVerified(ctx context.Context, id string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `
		UPDATE user_sessions SET
			mfa_verified = true,
			verified_at = $2
		WHERE id = $1 AND purpose = 'admin' AND expires_at > NOW()
	`, id, time.Now()))
}

func (r *userSessionRepo) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_sessions SET expires_at = $2
		WHERE id = $1
	`, id, expiresAt)
	return err
}

func (r *userSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE token_hash = $1`, tokenHash))
}

func (r *userSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
