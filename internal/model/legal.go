package model

import (
	"time"
)

type DocumentType string

const (
	DocumentTermsOfService DocumentType = "terms_of_service"
	DocumentPrivacyPolicy  DocumentType = "privacy_policy"
)

var DocumentTypes = []DocumentType{DocumentTermsOfService, DocumentPrivacyPolicy}

func (t DocumentType) Valid() bool {
	for _, dt := range DocumentTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// DefaultTitle is shown on public pages when no document of the type is active.
func (t DocumentType) DefaultTitle() string {
	switch t {
	case DocumentTermsOfService:
		return "Terms of Service"
	case DocumentPrivacyPolicy:
		return "Privacy Policy"
	default:
		return "Legal Document"
	}
}

type LegalDocument struct {
	ID            string       `db:"id" json:"id"`
	DocumentType  DocumentType `db:"document_type" json:"documentType"`
	Version       string       `db:"version" json:"version"`
	Title         string       `db:"title" json:"title"`
	Content       string       `db:"content" json:"content"`
	EffectiveDate time.Time    `db:"effective_date" json:"effectiveDate"`
	IsActive      bool         `db:"is_active" json:"isActive"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
}

type CreateLegalDocumentParams struct {
	DocumentType  DocumentType
	Version       string
	Title         string
	Content       string
	EffectiveDate time.Time
}

type UpdateLegalDocumentParams struct {
	Version       *string
	Title         *string
	Content       *string
	EffectiveDate *time.Time
}

// PublicLegalDocument is what the terms and privacy pages render.
type PublicLegalDocument struct {
	DocumentType DocumentType `json:"documentType"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	Version      string       `json:"version,omitempty"`
	DocumentID   string       `json:"documentId,omitempty"`
	Fallback     bool         `json:"fallback"`
}
