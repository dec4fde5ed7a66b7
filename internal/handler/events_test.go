package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vertexautomation/site-server/internal/middleware"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/service"
)

type stubEventSource struct {
	events []service.AuthEvent
	userID string
}

func (s *stubEventSource) Subscribe(ctx context.Context, userID string) <-chan service.AuthEvent {
	s.userID = userID
	ch := make(chan service.AuthEvent, len(s.events))
	for _, e := range s.events {
		ch <- e
	}
	close(ch)
	return ch
}

func signedIn(r *http.Request, verified bool) *http.Request {
	ctx := middleware.WithIdentity(r.Context(),
		&model.User{ID: "u1", Email: "admin@example.com"},
		&model.UserSession{ID: "s1", UserID: "u1", MFAVerified: verified})
	return r.WithContext(ctx)
}

func TestEventsHandler_ServeHTTP(t *testing.T) {
	t.Run("returns 401 without a session", func(t *testing.T) {
		handler := NewEventsHandler(&stubEventSource{})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/api/events", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("streams events for the user", func(t *testing.T) {
		source := &stubEventSource{events: []service.AuthEvent{
			{Type: service.AuthEventTokenRefreshed, UserID: "u1", SessionID: "s1", At: time.Now()},
			{Type: service.AuthEventSignedOut, UserID: "u1", SessionID: "s2", At: time.Now()},
		}}
		handler := NewEventsHandler(source)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, signedIn(httptest.NewRequest(http.MethodGet, "/auth/api/events", nil), true))

		body := rec.Body.String()
		assert.Equal(t, "u1", source.userID)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Contains(t, body, "event: connected\n")
		assert.Contains(t, body, `"stage":"verified"`)
		assert.Contains(t, body, "event: TOKEN_REFRESHED\n")
		assert.Contains(t, body, "event: SIGNED_OUT\n")
	})

	t.Run("stops after its own sign out", func(t *testing.T) {
		source := &stubEventSource{events: []service.AuthEvent{
			{Type: service.AuthEventSignedOut, UserID: "u1", SessionID: "s1"},
			{Type: service.AuthEventSignedIn, UserID: "u1", SessionID: "s3"},
		}}
		rec := httptest.NewRecorder()

		NewEventsHandler(source).ServeHTTP(rec, signedIn(httptest.NewRequest(http.MethodGet, "/auth/api/events", nil), false))

		body := rec.Body.String()
		assert.Contains(t, body, "event: SIGNED_OUT\n")
		assert.NotContains(t, body, "event: SIGNED_IN\n")
	})
}

func TestEventsHandler_sendEvent(t *testing.T) {
	handler := &EventsHandler{}
	rec := httptest.NewRecorder()

	err := handler.sendEvent(rec, rec, "connected", map[string]any{"userId": "u1"})

	assert.NoError(t, err)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: connected\n"))
	assert.Contains(t, body, `data: {"userId":"u1"}`)
	assert.True(t, strings.HasSuffix(body, "\n\n"))
}
