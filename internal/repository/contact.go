package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vertexautomation/site-server/internal/model"
)

type ContactRepository interface {
	Create(ctx context.Context, params model.CreateContactMessageParams) (*model.ContactMessage, error)
	FindAll(ctx context.Context, unreadOnly bool, limit, offset int) ([]model.ContactMessage, error)
	MarkRead(ctx context.Context, id string) (bool, error)
}

type contactRepo struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepo{db: db}
}

func (r *contactRepo) Create(ctx context.Context, p model.CreateContactMessageParams) (*model.ContactMessage, error) {
	var msg model.ContactMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO contact_messages (name, email, company, phone, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, p.Name, p.Email, p.Company, p.Phone, p.Message)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *contactRepo) FindAll(ctx context.Context, unreadOnly bool, limit, offset int) ([]model.ContactMessage, error) {
	messages := []model.ContactMessage{}
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM contact_messages
		WHERE ($1 = false OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, unreadOnly, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *contactRepo) MarkRead(ctx context.Context, id string) (bool, error) {
	return rowsChanged(r.db.ExecContext(ctx, `UPDATE contact_messages SET is_read = true WHERE id = $1`, id))
}
