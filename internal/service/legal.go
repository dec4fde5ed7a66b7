package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/audit"
	"github.com/vertexautomation/site-server/internal/cache"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository"
)

const legalCachePrefix = "legal:"

type LegalService struct {
	repo     repository.LegalDocumentRepository
	consents repository.ConsentRepository
	cache    *cache.Cache
	now      func() time.Time
}

func NewLegalService(repo repository.LegalDocumentRepository, consents repository.ConsentRepository, c *cache.Cache) *LegalService {
	return &LegalService{repo: repo, consents: consents, cache: c, now: time.Now}
}

// Create stores a new inactive version. It has no effect on the public
// pages until activated.
func (s *LegalService) Create(ctx context.Context, params model.CreateLegalDocumentParams) (*model.LegalDocument, error) {
	if !params.DocumentType.Valid() {
		return nil, apperrors.InvalidInput("documentType", "must be terms_of_service or privacy_policy")
	}
	params.Version = strings.TrimSpace(params.Version)
	params.Title = strings.TrimSpace(params.Title)
	if params.Version == "" {
		return nil, apperrors.MissingRequired("version")
	}
	if params.Title == "" {
		return nil, apperrors.MissingRequired("title")
	}
	if params.EffectiveDate.IsZero() {
		params.EffectiveDate = s.now()
	}

	doc, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create legal document: %w", err)
	}
	return doc, nil
}

func (s *LegalService) List(ctx context.Context, documentType *model.DocumentType) ([]model.LegalDocument, error) {
	if documentType != nil && !documentType.Valid() {
		return nil, apperrors.InvalidInput("type", "unknown document type")
	}
	docs, err := s.repo.FindAll(ctx, documentType)
	if err != nil {
		return nil, fmt.Errorf("list legal documents: %w", err)
	}
	return docs, nil
}

func (s *LegalService) Get(ctx context.Context, id string) (*model.LegalDocument, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find legal document: %w", err)
	}
	if doc == nil {
		return nil, apperrors.NotFound("Legal document")
	}
	return doc, nil
}

func (s *LegalService) Update(ctx context.Context, id string, params model.UpdateLegalDocumentParams) (*model.LegalDocument, error) {
	if params.Version != nil && strings.TrimSpace(*params.Version) == "" {
		return nil, apperrors.InvalidInput("version", "must not be empty")
	}
	if params.Title != nil && strings.TrimSpace(*params.Title) == "" {
		return nil, apperrors.InvalidInput("title", "must not be empty")
	}

	doc, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return nil, fmt.Errorf("update legal document: %w", err)
	}
	if doc == nil {
		return nil, apperrors.NotFound("Legal document")
	}
	if doc.IsActive {
		s.cache.DeletePrefix(legalCachePrefix)
	}
	return doc, nil
}

// Activate makes id the only active document of its type.
func (s *LegalService) Activate(ctx context.Context, actorID, id string) (*model.LegalDocument, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.Activate(ctx, id, doc.DocumentType)
	if err != nil {
		return nil, fmt.Errorf("activate legal document: %w", err)
	}
	if !ok {
		return nil, apperrors.NotFound("Legal document")
	}
	s.cache.DeletePrefix(legalCachePrefix)
	doc.IsActive = true

	audit.Log(ctx, audit.Event{
		Type:   audit.EventDocumentActivated,
		UserID: actorID,
		Details: map[string]interface{}{
			"document_id":   id,
			"document_type": string(doc.DocumentType),
			"version":       doc.Version,
		},
	})
	return doc, nil
}

// ActiveDocuments reads the active set straight from the database, so a
// consent is always tagged with the versions in force right now.
func (s *LegalService) ActiveDocuments(ctx context.Context) ([]model.LegalDocument, error) {
	docs, err := s.repo.FindAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("find active legal documents: %w", err)
	}
	return docs, nil
}

// GetLatest returns the active document of a type for public rendering.
// When there is none, or it cannot be read, it returns a placeholder with the
// default title and no content.
func (s *LegalService) GetLatest(ctx context.Context, documentType model.DocumentType) (model.PublicLegalDocument, error) {
	if !documentType.Valid() {
		return model.PublicLegalDocument{}, apperrors.InvalidInput("type", "unknown document type")
	}

	doc, err := cache.Load(ctx, s.cache, legalCachePrefix+string(documentType), func(ctx context.Context) (model.PublicLegalDocument, error) {
		active, err := s.repo.FindActive(ctx, documentType)
		if err != nil {
			return model.PublicLegalDocument{}, err
		}
		if active == nil {
			// Uncached, so a document activated out of process shows up at once.
			return model.PublicLegalDocument{}, errNoActiveDocument
		}
		return model.PublicLegalDocument{
			DocumentType: active.DocumentType,
			Title:        active.Title,
			Content:      active.Content,
			Version:      active.Version,
			DocumentID:   active.ID,
		}, nil
	})
	if errors.Is(err, errNoActiveDocument) {
		return fallbackDocument(documentType), nil
	}
	if err != nil {
		log.Error().Err(err).Str("documentType", string(documentType)).Msg("failed to load legal document, serving fallback")
		return fallbackDocument(documentType), nil
	}
	return doc, nil
}

// RecordView appends a "view" access log row. Placeholders are not logged.
func (s *LegalService) RecordView(ctx context.Context, userID string, doc model.PublicLegalDocument, userAgent string) {
	if doc.Fallback || doc.DocumentID == "" || userID == "" {
		return
	}
	var ua *string
	if userAgent != "" {
		ua = &userAgent
	}
	err := s.consents.CreateAccessLog(ctx, model.CreateAccessLogParams{
		UserID:       userID,
		DocumentID:   doc.DocumentID,
		DocumentType: doc.DocumentType,
		AccessType:   model.AccessTypeView,
		UserAgent:    ua,
	})
	if err != nil {
		log.Warn().Err(err).Str("documentId", doc.DocumentID).Msg("failed to record document view")
	}
}

var errNoActiveDocument = errors.New("no active legal document")

func fallbackDocument(documentType model.DocumentType) model.PublicLegalDocument {
	return model.PublicLegalDocument{
		DocumentType: documentType,
		Title:        documentType.DefaultTitle(),
		Fallback:     true,
	}
}
