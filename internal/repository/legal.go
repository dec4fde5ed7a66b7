package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/vertexautomation/site-server/internal/database"
	"github.com/vertexautomation/site-server/internal/model"
)

var errActivateTargetMissing = errors.New("activation target missing")

type LegalDocumentRepository interface {
	Create(ctx context.Context, params model.CreateLegalDocumentParams) (*model.LegalDocument, error)
	FindByID(ctx context.Context, id string) (*model.LegalDocument, error)
	FindAll(ctx context.Context, documentType *model.DocumentType) ([]model.LegalDocument, error)
	FindActive(ctx context.Context, documentType model.DocumentType) (*model.LegalDocument, error)
	FindAllActive(ctx context.Context) ([]model.LegalDocument, error)
	Update(ctx context.Context, id string, params model.UpdateLegalDocumentParams) (*model.LegalDocument, error)
	Activate(ctx context.Context, id string, documentType model.DocumentType) (bool, error)
}

type legalDocumentRepo struct {
	db *sqlx.DB
}

func NewLegalDocumentRepository(db *sqlx.DB) LegalDocumentRepository {
	return &legalDocumentRepo{db: db}
}

// Create inserts the document inactive. Activation is a separate step.
func (r *legalDocumentRepo) Create(ctx context.Context, params model.CreateLegalDocumentParams) (*model.LegalDocument, error) {
	var doc model.LegalDocument
	err := r.db.GetContext(ctx, &doc, `
		INSERT INTO legal_documents (document_type, version, title, content, effective_date, is_active)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING *
	`, params.DocumentType, params.Version, params.Title, params.Content, params.EffectiveDate)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *legalDocumentRepo) FindByID(ctx context.Context, id string) (*model.LegalDocument, error) {
	var doc model.LegalDocument
	err := r.db.GetContext(ctx, &doc, `SELECT * FROM legal_documents WHERE id = $1`, id)
	return HandleNotFound(&doc, err)
}

func (r *legalDocumentRepo) FindAll(ctx context.Context, documentType *model.DocumentType) ([]model.LegalDocument, error) {
	docs := []model.LegalDocument{}
	err := r.db.SelectContext(ctx, &docs, `
		SELECT * FROM legal_documents
		WHERE ($1::text IS NULL OR document_type = $1)
		ORDER BY document_type, created_at DESC
	`, documentType)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *legalDocumentRepo) FindActive(ctx context.Context, documentType model.DocumentType) (*model.LegalDocument, error) {
	var doc model.LegalDocument
	err := r.db.GetContext(ctx, &doc, `
		SELECT * FROM legal_documents
		WHERE document_type = $1 AND is_active = true
	`, documentType)
	return HandleNotFound(&doc, err)
}

func (r *legalDocumentRepo) FindAllActive(ctx context.Context) ([]model.LegalDocument, error) {
	docs := []model.LegalDocument{}
	err := r.db.SelectContext(ctx, &docs, `
		SELECT * FROM legal_documents
		WHERE is_active = true
		ORDER BY document_type
	`)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *legalDocumentRepo) Update(ctx context.Context, id string, params model.UpdateLegalDocumentParams) (*model.LegalDocument, error) {
	var doc model.LegalDocument
	err := r.db.GetContext(ctx, &doc, `
		UPDATE legal_documents SET
			version = COALESCE($2, version),
			title = COALESCE($3, title),
			content = COALESCE($4, content),
			effective_date = COALESCE($5, effective_date)
		WHERE id = $1
		RETURNING *
	`, id, params.Version, params.Title, params.Content, params.EffectiveDate)
	return HandleNotFound(&doc, err)
}

// Activate deactivates every other document of the type and activates the
// target in one transaction. It returns false, with nothing changed, when no
// document with that id and type exists.
func (r *legalDocumentRepo) Activate(ctx context.Context, id string, documentType model.DocumentType) (bool, error) {
	var activated bool
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		// Serialises concurrent activations of the same type.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(documentType)); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE legal_documents SET is_active = false
			WHERE document_type = $1 AND is_active = true AND id <> $2
		`, documentType, id); err != nil {
			return err
		}

		ok, err := rowsChanged(tx.ExecContext(ctx, `
			UPDATE legal_documents SET is_active = true
			WHERE id = $1 AND document_type = $2
		`, id, documentType))
		if err != nil {
			return err
		}
		if !ok {
			return errActivateTargetMissing
		}
		activated = true
		return nil
	})
	if errors.Is(err, errActivateTargetMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return activated, nil
}
