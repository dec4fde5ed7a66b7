package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vertexautomation/site-server/internal/database"
	"github.com/vertexautomation/site-server/internal/model"
)

// ConsentRepository owns the consent ledger and the document access log.
// Both tables are append-only.
type ConsentRepository interface {
	RecordConsents(ctx context.Context, consents []model.CreateConsentParams) ([]model.ConsentRecord, error)
	CreateAccessLog(ctx context.Context, params model.CreateAccessLogParams) error
	FindStatus(ctx context.Context, userID string) ([]model.ConsentStatus, error)
	FindAll(ctx context.Context, userID *string, limit, offset int) ([]model.ConsentRecord, error)
	FindAccessLogs(ctx context.Context, userID string, limit int) ([]model.AccessLog, error)
	Count(ctx context.Context) (int, error)
}

type consentRepo struct {
	db *sqlx.DB
}

func NewConsentRepository(db *sqlx.DB) ConsentRepository {
	return &consentRepo{db: db}
}

// RecordConsents writes one consent row and one "consent" access-log row per
// entry. Either every row is written or none is.
func (r *consentRepo) RecordConsents(ctx context.Context, consents []model.CreateConsentParams) ([]model.ConsentRecord, error) {
	records := make([]model.ConsentRecord, 0, len(consents))
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, c := range consents {
			var rec model.ConsentRecord
			err := tx.GetContext(ctx, &rec, `
				INSERT INTO user_consents (user_id, document_id, document_type, document_version, cookie_preferences, user_agent)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING *
			`, c.UserID, c.DocumentID, c.DocumentType, c.DocumentVersion, c.CookiePreferences, c.UserAgent)
			if err != nil {
				return err
			}

			if err := insertAccessLog(ctx, tx, model.CreateAccessLogParams{
				UserID:       c.UserID,
				DocumentID:   c.DocumentID,
				DocumentType: c.DocumentType,
				AccessType:   model.AccessTypeConsent,
				UserAgent:    c.UserAgent,
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *consentRepo) CreateAccessLog(ctx context.Context, params model.CreateAccessLogParams) error {
	return insertAccessLog(ctx, r.db, params)
}

func insertAccessLog(ctx context.Context, db database.DBTX, params model.CreateAccessLogParams) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO legal_document_access_logs (user_id, document_id, document_type, access_type, user_agent)
		VALUES ($1, $2, $3, $4, $5)
	`, params.UserID, params.DocumentID, params.DocumentType, params.AccessType, params.UserAgent)
	return err
}

// FindStatus compares, per active document type, the user's most recent
// consented version against the active version. A user with no consent for a
// type needs to consent.
func (r *consentRepo) FindStatus(ctx context.Context, userID string) ([]model.ConsentStatus, error) {
	statuses := []model.ConsentStatus{}
	err := r.db.SelectContext(ctx, &statuses, `
		SELECT
			d.document_type,
			d.version AS latest_version,
			(c.document_version IS DISTINCT FROM d.version) AS needs_consent
		FROM legal_documents d
		LEFT JOIN LATERAL (
			SELECT document_version FROM user_consents
			WHERE user_id = $1 AND document_type = d.document_type
			ORDER BY created_at DESC
			LIMIT 1
		) c ON true
		WHERE d.is_active = true
		ORDER BY d.document_type
	`, userID)
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *consentRepo) FindAll(ctx context.Context, userID *string, limit, offset int) ([]model.ConsentRecord, error) {
	records := []model.ConsentRecord{}
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM user_consents
		WHERE ($1::uuid IS NULL OR user_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *consentRepo) FindAccessLogs(ctx context.Context, userID string, limit int) ([]model.AccessLog, error) {
	logs := []model.AccessLog{}
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM legal_document_access_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *consentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_consents`)
	return count, err
}
