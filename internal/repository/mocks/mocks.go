// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository"
)

var (
	_ repository.UserRepository          = (*UserRepo)(nil)
	_ repository.UserSessionRepository   = (*SessionRepo)(nil)
	_ repository.RoleRepository          = (*RoleRepo)(nil)
	_ repository.AccessCodeRepository    = (*AccessCodeRepo)(nil)
	_ repository.LegalDocumentRepository = (*LegalRepo)(nil)
	_ repository.ConsentRepository       = (*ConsentRepo)(nil)
	_ repository.ContentRepository       = (*ContentRepo)(nil)
	_ repository.SettingsRepository      = (*SettingsRepo)(nil)
	_ repository.ContactRepository       = (*ContactRepo)(nil)
)

func ptr[T any](args mock.Arguments, i int) *T {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*T)
}

func slice[T any](args mock.Arguments, i int) []T {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).([]T)
}

type UserRepo struct{ mock.Mock }

func (m *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *UserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *UserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *UserRepo) FindAll(ctx context.Context, limit, offset int) ([]model.User, error) {
	args := m.Called(ctx, limit, offset)
	return slice[model.User](args, 0), args.Error(1)
}

func (m *UserRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type SessionRepo struct{ mock.Mock }

func (m *SessionRepo) Create(ctx context.Context, params model.CreateUserSessionParams) (*model.UserSession, error) {
	args := m.Called(ctx, params)
	return ptr[model.UserSession](args, 0), args.Error(1)
}

func (m *SessionRepo) FindValidByTokenHash(ctx context.Context, tokenHash string) (*model.UserSession, error) {
	args := m.Called(ctx, tokenHash)
	return ptr[model.UserSession](args, 0), args.Error(1)
}

func (m *SessionRepo) MarkVerified(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *SessionRepo) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	return m.Called(ctx, id, expiresAt).Error(0)
}

func (m *SessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type RoleRepo struct{ mock.Mock }

func (m *RoleRepo) FindByUserID(ctx context.Context, userID string) ([]model.RoleAssignment, error) {
	args := m.Called(ctx, userID)
	return slice[model.RoleAssignment](args, 0), args.Error(1)
}

func (m *RoleRepo) FindByUserIDs(ctx context.Context, userIDs []string) ([]model.RoleAssignment, error) {
	args := m.Called(ctx, userIDs)
	return slice[model.RoleAssignment](args, 0), args.Error(1)
}

func (m *RoleRepo) Create(ctx context.Context, userID string, role model.Role) (*model.RoleAssignment, error) {
	args := m.Called(ctx, userID, role)
	return ptr[model.RoleAssignment](args, 0), args.Error(1)
}

func (m *RoleRepo) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type AccessCodeRepo struct{ mock.Mock }

func (m *AccessCodeRepo) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	args := m.Called(ctx, params)
	return ptr[model.AccessCode](args, 0), args.Error(1)
}

func (m *AccessCodeRepo) FindValid(ctx context.Context, userID, code string) (*model.AccessCode, error) {
	args := m.Called(ctx, userID, code)
	return ptr[model.AccessCode](args, 0), args.Error(1)
}

func (m *AccessCodeRepo) Consume(ctx context.Context, userID, code string) (*model.AccessCode, error) {
	args := m.Called(ctx, userID, code)
	return ptr[model.AccessCode](args, 0), args.Error(1)
}

func (m *AccessCodeRepo) MarkUsed(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *AccessCodeRepo) FindExpiredUnused(ctx context.Context, after *model.ExpiredCodeCursor, limit int) ([]model.AccessCode, error) {
	args := m.Called(ctx, after, limit)
	return slice[model.AccessCode](args, 0), args.Error(1)
}

func (m *AccessCodeRepo) Replace(ctx context.Context, staleID string, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	args := m.Called(ctx, staleID, params)
	return ptr[model.AccessCode](args, 0), args.Error(1)
}

func (m *AccessCodeRepo) CountValid(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type LegalRepo struct{ mock.Mock }

func (m *LegalRepo) Create(ctx context.Context, params model.CreateLegalDocumentParams) (*model.LegalDocument, error) {
	args := m.Called(ctx, params)
	return ptr[model.LegalDocument](args, 0), args.Error(1)
}

func (m *LegalRepo) FindByID(ctx context.Context, id string) (*model.LegalDocument, error) {
	args := m.Called(ctx, id)
	return ptr[model.LegalDocument](args, 0), args.Error(1)
}

func (m *LegalRepo) FindAll(ctx context.Context, documentType *model.DocumentType) ([]model.LegalDocument, error) {
	args := m.Called(ctx, documentType)
	return slice[model.LegalDocument](args, 0), args.Error(1)
}

func (m *LegalRepo) FindActive(ctx context.Context, documentType model.DocumentType) (*model.LegalDocument, error) {
	args := m.Called(ctx, documentType)
	return ptr[model.LegalDocument](args, 0), args.Error(1)
}

func (m *LegalRepo) FindAllActive(ctx context.Context) ([]model.LegalDocument, error) {
	args := m.Called(ctx)
	return slice[model.LegalDocument](args, 0), args.Error(1)
}

func (m *LegalRepo) Update(ctx context.Context, id string, params model.UpdateLegalDocumentParams) (*model.LegalDocument, error) {
	args := m.Called(ctx, id, params)
	return ptr[model.LegalDocument](args, 0), args.Error(1)
}

func (m *LegalRepo) Activate(ctx context.Context, id string, documentType model.DocumentType) (bool, error) {
	args := m.Called(ctx, id, documentType)
	return args.Bool(0), args.Error(1)
}

type ConsentRepo struct{ mock.Mock }

func (m *ConsentRepo) RecordConsents(ctx context.Context, consents []model.CreateConsentParams) ([]model.ConsentRecord, error) {
	args := m.Called(ctx, consents)
	return slice[model.ConsentRecord](args, 0), args.Error(1)
}

func (m *ConsentRepo) CreateAccessLog(ctx context.Context, params model.CreateAccessLogParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *ConsentRepo) FindStatus(ctx context.Context, userID string) ([]model.ConsentStatus, error) {
	args := m.Called(ctx, userID)
	return slice[model.ConsentStatus](args, 0), args.Error(1)
}

func (m *ConsentRepo) FindAll(ctx context.Context, userID *string, limit, offset int) ([]model.ConsentRecord, error) {
	args := m.Called(ctx, userID, limit, offset)
	return slice[model.ConsentRecord](args, 0), args.Error(1)
}

func (m *ConsentRepo) FindAccessLogs(ctx context.Context, userID string, limit int) ([]model.AccessLog, error) {
	args := m.Called(ctx, userID, limit)
	return slice[model.AccessLog](args, 0), args.Error(1)
}

func (m *ConsentRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type ContentRepo struct{ mock.Mock }

func (m *ContentRepo) ListServices(ctx context.Context, publishedOnly bool) ([]model.Service, error) {
	args := m.Called(ctx, publishedOnly)
	return slice[model.Service](args, 0), args.Error(1)
}

func (m *ContentRepo) FindServiceBySlug(ctx context.Context, slug string) (*model.Service, error) {
	args := m.Called(ctx, slug)
	return ptr[model.Service](args, 0), args.Error(1)
}

func (m *ContentRepo) CreateService(ctx context.Context, params model.ServiceParams) (*model.Service, error) {
	args := m.Called(ctx, params)
	return ptr[model.Service](args, 0), args.Error(1)
}

func (m *ContentRepo) UpdateService(ctx context.Context, id string, params model.ServiceParams) (*model.Service, error) {
	args := m.Called(ctx, id, params)
	return ptr[model.Service](args, 0), args.Error(1)
}

func (m *ContentRepo) DeleteService(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *ContentRepo) ListCaseStudies(ctx context.Context, publishedOnly, featuredOnly bool) ([]model.CaseStudy, error) {
	args := m.Called(ctx, publishedOnly, featuredOnly)
	return slice[model.CaseStudy](args, 0), args.Error(1)
}

func (m *ContentRepo) FindCaseStudyBySlug(ctx context.Context, slug string) (*model.CaseStudy, error) {
	args := m.Called(ctx, slug)
	return ptr[model.CaseStudy](args, 0), args.Error(1)
}

func (m *ContentRepo) CreateCaseStudy(ctx context.Context, params model.CaseStudyParams) (*model.CaseStudy, error) {
	args := m.Called(ctx, params)
	return ptr[model.CaseStudy](args, 0), args.Error(1)
}

func (m *ContentRepo) UpdateCaseStudy(ctx context.Context, id string, params model.CaseStudyParams) (*model.CaseStudy, error) {
	args := m.Called(ctx, id, params)
	return ptr[model.CaseStudy](args, 0), args.Error(1)
}

func (m *ContentRepo) DeleteCaseStudy(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *ContentRepo) ListTestimonials(ctx context.Context, publishedOnly bool) ([]model.Testimonial, error) {
	args := m.Called(ctx, publishedOnly)
	return slice[model.Testimonial](args, 0), args.Error(1)
}

func (m *ContentRepo) CreateTestimonial(ctx context.Context, params model.TestimonialParams) (*model.Testimonial, error) {
	args := m.Called(ctx, params)
	return ptr[model.Testimonial](args, 0), args.Error(1)
}

func (m *ContentRepo) UpdateTestimonial(ctx context.Context, id string, params model.TestimonialParams) (*model.Testimonial, error) {
	args := m.Called(ctx, id, params)
	return ptr[model.Testimonial](args, 0), args.Error(1)
}

func (m *ContentRepo) DeleteTestimonial(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *ContentRepo) ListCertifications(ctx context.Context) ([]model.Certification, error) {
	args := m.Called(ctx)
	return slice[model.Certification](args, 0), args.Error(1)
}

func (m *ContentRepo) CreateCertification(ctx context.Context, params model.CertificationParams) (*model.Certification, error) {
	args := m.Called(ctx, params)
	return ptr[model.Certification](args, 0), args.Error(1)
}

func (m *ContentRepo) UpdateCertification(ctx context.Context, id string, params model.CertificationParams) (*model.Certification, error) {
	args := m.Called(ctx, id, params)
	return ptr[model.Certification](args, 0), args.Error(1)
}

func (m *ContentRepo) DeleteCertification(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *ContentRepo) ListClientLogos(ctx context.Context) ([]model.ClientLogo, error) {
	args := m.Called(ctx)
	return slice[model.ClientLogo](args, 0), args.Error(1)
}

func (m *ContentRepo) CreateClientLogo(ctx context.Context, params model.ClientLogoParams) (*model.ClientLogo, error) {
	args := m.Called(ctx, params)
	return ptr[model.ClientLogo](args, 0), args.Error(1)
}

func (m *ContentRepo) UpdateClientLogo(ctx context.Context, id string, params model.ClientLogoParams) (*model.ClientLogo, error) {
	args := m.Called(ctx, id, params)
	return ptr[model.ClientLogo](args, 0), args.Error(1)
}

func (m *ContentRepo) DeleteClientLogo(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *ContentRepo) CountAll(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

type SettingsRepo struct{ mock.Mock }

func (m *SettingsRepo) FindAll(ctx context.Context) ([]model.SiteSetting, error) {
	args := m.Called(ctx)
	return slice[model.SiteSetting](args, 0), args.Error(1)
}

func (m *SettingsRepo) Upsert(ctx context.Context, key, value string) (*model.SiteSetting, error) {
	args := m.Called(ctx, key, value)
	return ptr[model.SiteSetting](args, 0), args.Error(1)
}

func (m *SettingsRepo) Delete(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type ContactRepo struct{ mock.Mock }

func (m *ContactRepo) Create(ctx context.Context, params model.CreateContactMessageParams) (*model.ContactMessage, error) {
	args := m.Called(ctx, params)
	return ptr[model.ContactMessage](args, 0), args.Error(1)
}

func (m *ContactRepo) FindAll(ctx context.Context, unreadOnly bool, limit, offset int) ([]model.ContactMessage, error) {
	args := m.Called(ctx, unreadOnly, limit, offset)
	return slice[model.ContactMessage](args, 0), args.Error(1)
}

func (m *ContactRepo) MarkRead(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
