package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vertexautomation/site-server/internal/model"
)

type contextKey string

const (
	UserContextKey    contextKey = "user"
	SessionContextKey contextKey = "session"
)

func GetUser(ctx context.Context) *model.User {
	if user, ok := ctx.Value(UserContextKey).(*model.User); ok {
		return user
	}
	return nil
}

func GetSession(ctx context.Context) *model.UserSession {
	if session, ok := ctx.Value(SessionContextKey).(*model.UserSession); ok {
		return session
	}
	return nil
}

// UserID is "" for anonymous requests.
func UserID(ctx context.Context) string {
	if user := GetUser(ctx); user != nil {
		return user.ID
	}
	return ""
}

// WithIdentity stores the resolved user and session on the context.
func WithIdentity(ctx context.Context, user *model.User, session *model.UserSession) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return context.WithValue(ctx, SessionContextKey, session)
}

// SessionToken reads the session cookie, falling back to a bearer token.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
