package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vertexautomation/site-server/internal/model"
)

type SettingsRepository interface {
	FindAll(ctx context.Context) ([]model.SiteSetting, error)
	Upsert(ctx context.Context, key, value string) (*model.SiteSetting, error)
	Delete(ctx context.Context, key string) (bool, error)
}

type settingsRepo struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) FindAll(ctx context.Context) ([]model.SiteSetting, error) {
	settings := []model.SiteSetting{}
	err := r.db.SelectContext(ctx, &settings, `SELECT * FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *settingsRepo) Upsert(ctx context.Context, key, value string) (*model.SiteSetting, error) {
	var setting model.SiteSetting
	err := r.db.GetContext(ctx, &setting, `
		INSERT INTO site_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
		RETURNING *
	`, key, value)
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingsRepo) Delete(ctx context.Context, key string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `DELETE FROM site_settings WHERE key = $1`, key))
}
