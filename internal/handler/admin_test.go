package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/middleware"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/service"
)

type memoryStore struct {
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://media.example/" + key + "?sig=x", nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestAdminHandler_Access(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		f := newSiteFixture(t, nil)

		rec := f.do(http.MethodGet, "/admin/api/stats", "", nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("pending session", func(t *testing.T) {
		f := newSiteFixture(t, nil)
		f.withSession("pending", false)

		rec := f.do(http.MethodGet, "/admin/api/stats", "pending", nil)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, apperrors.ErrCodeForbidden, errorCodeOf(t, rec))
	})
}

func TestAdminHandler_Stats(t *testing.T) {
	f := newSiteFixture(t, nil)
	token := f.asAdmin()
	f.content.On("CountAll", mock.Anything).Return(map[string]int{"services": 4}, nil)
	f.users.On("Count", mock.Anything).Return(3, nil)
	f.consents.On("Count", mock.Anything).Return(12, nil)
	f.codes.On("CountValid", mock.Anything).Return(1, nil)
	f.legal.On("FindAll", mock.Anything, mock.Anything).Return([]model.LegalDocument{
		{ID: "d1", IsActive: true}, {ID: "d2"},
	}, nil)

	rec := f.do(http.MethodGet, "/admin/api/stats", token, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decode[service.Stats](t, rec)
	assert.Equal(t, 4, stats.Content["services"])
	assert.Equal(t, 3, stats.Users)
	assert.Equal(t, 2, stats.Legal.Documents)
	assert.Equal(t, 1, stats.Legal.Active)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestAdminHandler_ServiceCRUD(t *testing.T) {
	f := newSiteFixture(t, nil)
	token := f.asAdmin()

	f.content.On("ListServices", mock.Anything, false).Return(nil, nil)
	rec := f.do(http.MethodGet, "/admin/api/services", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	f.content.On("CreateService", mock.Anything, mock.MatchedBy(func(p model.ServiceParams) bool {
		return p.Slug == "scada-integration"
	})).Return(&model.Service{ID: "s1", Slug: "scada-integration", Title: "SCADA"}, nil)
	rec = f.do(http.MethodPost, "/admin/api/services", token, model.ServiceParams{
		Slug: "scada-integration", Title: "SCADA", Summary: "Supervisory control", Body: "...",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/admin/api/services", token, model.ServiceParams{Slug: "Bad Slug", Title: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.content.On("UpdateService", mock.Anything, "missing", mock.Anything).Return(nil, nil)
	rec = f.do(http.MethodPut, "/admin/api/services/missing", token, model.ServiceParams{
		Slug: "scada", Title: "SCADA", Summary: "s", Body: "b",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.content.On("DeleteService", mock.Anything, "s1").Return(true, nil)
	rec = f.do(http.MethodDelete, "/admin/api/services/s1", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminHandler_Roles(t *testing.T) {
	f := newSiteFixture(t, nil)
	token := f.asAdmin()
	f.users.On("FindByID", mock.Anything, "user-2").Return(&model.User{ID: "user-2"}, nil)
	f.roles.On("Create", mock.Anything, "user-2", model.RoleModerator).
		Return(&model.RoleAssignment{ID: "r9", UserID: "user-2", Role: model.RoleModerator}, nil)

	rec := f.do(http.MethodPost, "/admin/api/users/user-2/roles", token, map[string]string{"role": "moderator"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/admin/api/users/user-2/roles", token, map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandler_ListConsents(t *testing.T) {
	f := newSiteFixture(t, nil)
	token := f.asAdmin()
	f.consents.On("FindAll", mock.Anything, mock.MatchedBy(func(id *string) bool {
		return id != nil && *id == "user-7"
	}), 10, 0).Return([]model.ConsentRecord{{ID: "c1", UserID: "user-7"}}, nil)
	f.consents.On("Count", mock.Anything).Return(1, nil)

	rec := f.do(http.MethodGet, "/admin/api/consents?userId=user-7&limit=10", token, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[listResponse[model.ConsentRecord]](t, rec)
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, 10, body.Limit)
	require.Len(t, body.Items, 1)
}

func TestAdminHandler_Legal(t *testing.T) {
	f := newSiteFixture(t, nil)
	token := f.asAdmin()
	f.legal.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateLegalDocumentParams) bool {
		return p.DocumentType == model.DocumentPrivacyPolicy && p.Version == "2.0" && !p.EffectiveDate.IsZero()
	})).Return(&model.LegalDocument{ID: "d3", DocumentType: model.DocumentPrivacyPolicy, Version: "2.0"}, nil)

	rec := f.do(http.MethodPost, "/admin/api/legal", token, map[string]string{
		"documentType": "privacy_policy", "version": "2.0", "title": "Privacy Policy", "content": "...",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/admin/api/legal", token, map[string]string{"documentType": "privacy_policy"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartUpload(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("folder", "client-logos"))
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="logo.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAdminHandler_Upload(t *testing.T) {
	send := func(f *siteFixture, token, contentType string) *httptest.ResponseRecorder {
		body, ct := multipartUpload(t, contentType, []byte("\x89PNG"))
		req := httptest.NewRequest(http.MethodPost, "/admin/api/uploads", body)
		req.Header.Set("Content-Type", ct)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("stores the image", func(t *testing.T) {
		store := newMemoryStore()
		f := newSiteFixture(t, store)

		rec := send(f, f.asAdmin(), "image/png")

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		result := decode[service.UploadResult](t, rec)
		assert.Contains(t, result.Key, "client-logos/")
		assert.Equal(t, []byte("\x89PNG"), store.objects[result.Key])
	})

	t.Run("rejects other content types", func(t *testing.T) {
		f := newSiteFixture(t, newMemoryStore())

		rec := send(f, f.asAdmin(), "application/pdf")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unavailable without storage", func(t *testing.T) {
		f := newSiteFixture(t, nil)

		rec := send(f, f.asAdmin(), "image/png")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
