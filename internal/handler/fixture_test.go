package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vertexautomation/site-server/internal/cache"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/httputil"
	"github.com/vertexautomation/site-server/internal/middleware"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository/mocks"
	"github.com/vertexautomation/site-server/internal/service"
	"github.com/vertexautomation/site-server/internal/storage"
	"github.com/vertexautomation/site-server/internal/util"
)

const testSecret = "handler-test-session-secret"

// siteFixture wires the real services over repository mocks and mounts every
// router the way the server does.
type siteFixture struct {
	users    *mocks.UserRepo
	sessions *mocks.SessionRepo
	roles    *mocks.RoleRepo
	codes    *mocks.AccessCodeRepo
	legal    *mocks.LegalRepo
	consents *mocks.ConsentRepo
	content  *mocks.ContentRepo
	settings *mocks.SettingsRepo
	contacts *mocks.ContactRepo

	router http.Handler
}

func newSiteFixture(t *testing.T, store storage.ObjectStore) *siteFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &siteFixture{
		users:    new(mocks.UserRepo),
		sessions: new(mocks.SessionRepo),
		roles:    new(mocks.RoleRepo),
		codes:    new(mocks.AccessCodeRepo),
		legal:    new(mocks.LegalRepo),
		consents: new(mocks.ConsentRepo),
		content:  new(mocks.ContentRepo),
		settings: new(mocks.SettingsRepo),
		contacts: new(mocks.ContactRepo),
	}

	limiter := service.NewRateLimiter(client)
	contentCache := cache.New(0)
	creds := service.NewCredentialStore(f.users, f.sessions, nil, testSecret)
	roles := service.NewRoleService(f.roles, f.users)
	legal := service.NewLegalService(f.legal, f.consents, contentCache)
	consents := service.NewConsentService(f.consents, legal)
	content := service.NewContentService(f.content, f.settings, contentCache)
	contact := service.NewContactService(f.contacts, limiter, nil, "")
	media := service.NewMediaService(store)
	flow := service.NewLoginFlow(creds, roles, service.NewAccessCodeLedger(f.codes), limiter, nil, false)

	sessionMW := middleware.NewSessionMiddleware(creds, roles)
	consentHandler := NewConsentHandler(consents, sessionMW.RequireAuth, false)
	consentGate := middleware.NewConsentGate(consents)

	r := chi.NewRouter()
	r.Use(sessionMW.Load)
	r.Mount("/auth", NewAuthHandler(flow, creds, nil, false).Routes())
	r.Mount("/api", NewPublicHandler(content, legal, contact, media, consentHandler, consentGate.RequireConsent).Routes())
	r.Mount("/admin", NewAdminHandler(AdminServices{
		Admin:    service.NewAdminService(f.content, f.users, f.consents, f.codes, f.legal),
		Content:  content,
		Legal:    legal,
		Roles:    roles,
		Consents: consents,
		Contact:  contact,
		Media:    media,
	}, sessionMW.RequireVerifiedAdmin, consentGate.RequireConsent, 0).Routes())
	f.router = r

	return f
}

// withSession makes token resolve to a session for user-1.
func (f *siteFixture) withSession(token string, verified bool) {
	f.sessions.On("FindValidByTokenHash", mock.Anything, util.HmacSHA256(testSecret, token)).
		Return(&model.UserSession{ID: "sess-" + token, UserID: "user-1", MFAVerified: verified}, nil)
	f.users.On("FindByID", mock.Anything, "user-1").
		Return(&model.User{ID: "user-1", Email: "admin@example.com"}, nil)
}

// asAdmin signs the request in as a verified admin who is up to date on
// consent.
func (f *siteFixture) asAdmin() string {
	f.asPendingAdmin()
	f.consents.On("FindStatus", mock.Anything, "user-1").Return([]model.ConsentStatus{}, nil)
	return "admin-token"
}

// asPendingAdmin is asAdmin without any consent status expectation.
func (f *siteFixture) asPendingAdmin() string {
	f.withSession("admin-token", true)
	f.roles.On("FindByUserID", mock.Anything, "user-1").
		Return([]model.RoleAssignment{{ID: "r1", UserID: "user-1", Role: model.RoleAdmin}}, nil)
	return "admin-token"
}

func (f *siteFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:1234"
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	return decode[httputil.ErrorResponse](t, rec).Code
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
