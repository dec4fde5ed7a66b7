package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CookiePreferences are stored as jsonb. Essential is always true.
type CookiePreferences struct {
	Essential bool `json:"essential"`
	Analytics bool `json:"analytics"`
	Marketing bool `json:"marketing"`
}

func NewCookiePreferences(analytics, marketing bool) CookiePreferences {
	return CookiePreferences{Essential: true, Analytics: analytics, Marketing: marketing}
}

func (p CookiePreferences) Value() (driver.Value, error) {
	p.Essential = true
	return json.Marshal(p)
}

func (p *CookiePreferences) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*p = NewCookiePreferences(false, false)
		return nil
	default:
		return fmt.Errorf("cookie preferences: unsupported type %T", src)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("cookie preferences: %w", err)
	}
	p.Essential = true
	return nil
}

type ConsentRecord struct {
	ID                string            `db:"id" json:"id"`
	UserID            string            `db:"user_id" json:"userId"`
	DocumentID        string            `db:"document_id" json:"documentId"`
	DocumentType      DocumentType      `db:"document_type" json:"documentType"`
	DocumentVersion   string            `db:"document_version" json:"documentVersion"`
	CookiePreferences CookiePreferences `db:"cookie_preferences" json:"cookiePreferences"`
	UserAgent         *string           `db:"user_agent" json:"userAgent,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
}

type CreateConsentParams struct {
	UserID            string
	DocumentID        string
	DocumentType      DocumentType
	DocumentVersion   string
	CookiePreferences CookiePreferences
	UserAgent         *string
}

type AccessType string

const (
	AccessTypeConsent AccessType = "consent"
	AccessTypeView    AccessType = "view"
)

type AccessLog struct {
	ID           string       `db:"id" json:"id"`
	UserID       string       `db:"user_id" json:"userId"`
	DocumentID   string       `db:"document_id" json:"documentId"`
	DocumentType DocumentType `db:"document_type" json:"documentType"`
	AccessType   AccessType   `db:"access_type" json:"accessType"`
	UserAgent    *string      `db:"user_agent" json:"userAgent,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

type CreateAccessLogParams struct {
	UserID       string
	DocumentID   string
	DocumentType DocumentType
	AccessType   AccessType
	UserAgent    *string
}

// ConsentStatus is one entry of the reconsent check, per document type.
type ConsentStatus struct {
	DocumentType  DocumentType `db:"document_type" json:"documentType"`
	NeedsConsent  bool         `db:"needs_consent" json:"needsConsent"`
	LatestVersion string       `db:"latest_version" json:"latestVersion"`
}
