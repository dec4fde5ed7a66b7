package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/audit"
	"github.com/vertexautomation/site-server/internal/cookieconsent"
	"github.com/vertexautomation/site-server/internal/httputil"
	"github.com/vertexautomation/site-server/internal/middleware"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/service"
)

type ConsentHandler struct {
	consents    *service.ConsentService
	requireAuth func(http.Handler) http.Handler
	secure      bool
	now         func() time.Time
}

func NewConsentHandler(consents *service.ConsentService, requireAuth func(http.Handler) http.Handler, secure bool) *ConsentHandler {
	return &ConsentHandler{
		consents:    consents,
		requireAuth: requireAuth,
		secure:      secure,
		now:         time.Now,
	}
}

// Register adds the consent routes to the public API router.
func (h *ConsentHandler) Register(r chi.Router) {
	r.With(h.requireAuth).Get("/consent/status", h.Status)
	r.With(h.requireAuth).Post("/consent", h.Submit)
	r.Get("/cookie-preferences", h.GetPreferences)
	r.Post("/cookie-preferences", h.SetPreferences)
}

type consentRequest struct {
	Mode      service.ConsentMode `json:"mode"`
	Analytics bool                `json:"analytics"`
	Marketing bool                `json:"marketing"`
}

// GET /api/consent/status
func (h *ConsentHandler) Status(w http.ResponseWriter, r *http.Request) {
	check, err := h.consents.Check(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// POST /api/consent
func (h *ConsentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.consents.Submit(r.Context(), h.submitRequest(r, req))
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeState(w, result.State)
	writeJSON(w, http.StatusOK, result)
}

// GET /api/cookie-preferences
func (h *ConsentHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	state, ok := cookieconsent.Read(r)
	prefs := model.NewCookiePreferences(false, false)
	if ok {
		prefs = state.Preferences
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"showBanner":  !ok,
		"preferences": prefs,
	})
}

// POST /api/cookie-preferences works without a session. A signed-in caller
// also gets consent records for the active documents, and if those cannot be
// written the cookie is not set.
func (h *ConsentHandler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if middleware.UserID(r.Context()) != "" {
		result, err := h.consents.Submit(r.Context(), h.submitRequest(r, req))
		if err != nil {
			writeError(w, err)
			return
		}
		h.writeState(w, result.State)
		writeJSON(w, http.StatusOK, map[string]any{"state": result.State, "recorded": len(result.Records)})
		return
	}

	prefs, err := service.ResolvePreferences(req.Mode, req.Analytics, req.Marketing)
	if err != nil {
		writeError(w, err)
		return
	}
	state := cookieconsent.NewState(prefs, h.now())
	h.writeState(w, state)
	writeJSON(w, http.StatusOK, map[string]any{"state": state, "recorded": 0})
}

func (h *ConsentHandler) submitRequest(r *http.Request, req consentRequest) service.SubmitConsentRequest {
	return service.SubmitConsentRequest{
		UserID:    middleware.UserID(r.Context()),
		Mode:      req.Mode,
		Analytics: req.Analytics,
		Marketing: req.Marketing,
		UserAgent: r.UserAgent(),
		IP:        audit.ClientIP(r),
	}
}

func (h *ConsentHandler) writeState(w http.ResponseWriter, state cookieconsent.State) {
	if err := cookieconsent.Write(w, state, h.secure); err != nil {
		log.Error().Err(err).Msg("failed to encode consent cookie")
	}
}
