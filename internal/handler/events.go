package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/middleware"
	"github.com/vertexautomation/site-server/internal/service"
)

const HeartbeatInterval = 30 * time.Second

type AuthEventSource interface {
	Subscribe(ctx context.Context, userID string) <-chan service.AuthEvent
}

// EventsHandler streams the signed-in user's session events over SSE, so an
// open admin tab notices a sign-out made elsewhere.
type EventsHandler struct {
	source    AuthEventSource
	heartbeat time.Duration
}

func NewEventsHandler(source AuthEventSource) *EventsHandler {
	return &EventsHandler{source: source, heartbeat: HeartbeatInterval}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	session := middleware.GetSession(r.Context())
	if user == nil || session == nil {
		writeError(w, apperrors.Unauthorized("Sign in required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	events := h.source.Subscribe(ctx, user.ID)

	log.Info().Str("userId", user.ID).Str("sessionId", session.ID).Msg("sse connection established")

	if err := h.sendEvent(w, flusher, "connected", map[string]any{
		"userId":    user.ID,
		"sessionId": session.ID,
		"stage":     service.StageOf(session),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("userId", user.ID).Msg("sse connection closed by client")
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if err := h.sendEvent(w, flusher, string(event.Type), event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}
			// This tab's own session is gone; nothing more to say.
			if event.Type == service.AuthEventSignedOut && event.SessionID == session.ID {
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().Str("userId", user.ID).Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
