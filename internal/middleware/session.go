package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/audit"
	"github.com/vertexautomation/site-server/internal/config"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/service"
)

const (
	SessionCookie = "site_session"
	SessionMaxAge = config.UserSessionTTL
)

type SessionMiddleware struct {
	creds *service.CredentialStore
	roles *service.RoleService
}

func NewSessionMiddleware(creds *service.CredentialStore, roles *service.RoleService) *SessionMiddleware {
	return &SessionMiddleware{creds: creds, roles: roles}
}

// Load resolves the session token, if any, onto the request context. It never
// rejects a request.
func (m *SessionMiddleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := SessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, session, err := m.creds.CurrentUser(r.Context(), token)
		if err != nil {
			log.Error().Err(err).Msg("session middleware: lookup failed")
			next.ServeHTTP(w, r)
			return
		}
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user, session)))
	})
}

// RequireAuth rejects requests without a session. A pending (unverified)
// session counts as signed in.
func (m *SessionMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			writeError(w, apperrors.Unauthorized("Sign in required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireVerifiedAdmin admits only sessions that redeemed a login code and
// whose user still holds the admin role.
func (m *SessionMiddleware) RequireVerifiedAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		session := GetSession(r.Context())
		if user == nil || session == nil {
			writeError(w, apperrors.Unauthorized("Sign in required"))
			return
		}
		if !session.MFAVerified {
			writeError(w, apperrors.Forbidden("Access code verification required"))
			return
		}

		isAdmin, err := m.roles.IsAdmin(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !isAdmin {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAccessDenied, UserID: user.ID,
				Details: map[string]interface{}{"path": r.URL.Path}})
			writeError(w, apperrors.AccessDenied())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
