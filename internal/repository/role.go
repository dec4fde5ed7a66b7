package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vertexautomation/site-server/internal/model"
)

type RoleRepository interface {
	FindByUserID(ctx context.Context, userID string) ([]model.RoleAssignment, error)
	FindByUserIDs(ctx context.Context, userIDs []string) ([]model.RoleAssignment, error)
	Create(ctx context.Context, userID string, role model.Role) (*model.RoleAssignment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type roleRepo struct {
	db *sqlx.DB
}

func NewRoleRepository(db *sqlx.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindByUserID(ctx context.Context, userID string) ([]model.RoleAssignment, error) {
	roles := []model.RoleAssignment{}
	err := r.db.SelectContext(ctx, &roles, `
		SELECT * FROM user_roles
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepo) FindByUserIDs(ctx context.Context, userIDs []string) ([]model.RoleAssignment, error) {
	roles := []model.RoleAssignment{}
	if len(userIDs) == 0 {
		return roles, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM user_roles WHERE user_id IN (?) ORDER BY created_at`, userIDs)
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &roles, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return roles, nil
}

// Create always inserts. Holding the same role twice is allowed.
func (r *roleRepo) Create(ctx context.Context, userID string, role model.Role) (*model.RoleAssignment, error) {
	var assignment model.RoleAssignment
	err := r.db.GetContext(ctx, &assignment, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		RETURNING *
	`, userID, role)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *roleRepo) Delete(ctx context.Context, id string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE id = $1`, id))
}
