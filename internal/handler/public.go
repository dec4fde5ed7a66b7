package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vertexautomation/site-server/internal/audit"
	"github.com/vertexautomation/site-server/internal/httputil"
	"github.com/vertexautomation/site-server/internal/middleware"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/service"
)

// PublicHandler serves the marketing site's read API and the contact form.
type PublicHandler struct {
	content *service.ContentService
	legal   *service.LegalService
	contact *service.ContactService
	media   *service.MediaService
	consent *ConsentHandler
	gate    func(http.Handler) http.Handler
}

func NewPublicHandler(
	content *service.ContentService,
	legal *service.LegalService,
	contact *service.ContactService,
	media *service.MediaService,
	consent *ConsentHandler,
	requireConsent func(http.Handler) http.Handler,
) *PublicHandler {
	return &PublicHandler{
		content: content,
		legal:   legal,
		contact: contact,
		media:   media,
		consent: consent,
		gate:    requireConsent,
	}
}

func (h *PublicHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Signed-in users with pending reconsent are held here. Legal documents,
	// media and the consent routes stay open so they can re-accept.
	r.Group(func(r chi.Router) {
		if h.gate != nil {
			r.Use(h.gate)
		}
		r.Get("/home", h.Home)
		r.Get("/about", h.About)
		r.Get("/settings", h.Settings)
		r.Get("/services", h.ListServices)
		r.Get("/services/{slug}", h.GetService)
		r.Get("/case-studies", h.ListCaseStudies)
		r.Get("/case-studies/{slug}", h.GetCaseStudy)
		r.Post("/contact", h.SubmitContact)
	})

	r.Get("/legal/{type}", h.GetLegalDocument)
	r.Get("/media/*", h.Media)

	if h.consent != nil {
		h.consent.Register(r)
	}

	return r
}

// respond writes v, or err when it is set.
func respond[T any](w http.ResponseWriter, v T, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	page, err := h.content.Home(r.Context())
	respond(w, page, err)
}

func (h *PublicHandler) About(w http.ResponseWriter, r *http.Request) {
	page, err := h.content.About(r.Context())
	respond(w, page, err)
}

func (h *PublicHandler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.content.Settings(r.Context())
	respond(w, settings, err)
}

func (h *PublicHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.content.PublishedServices(r.Context())
	respond(w, services, err)
}

func (h *PublicHandler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.content.ServiceBySlug(r.Context(), chi.URLParam(r, "slug"))
	respond(w, svc, err)
}

// GET /api/case-studies?featured=true
func (h *PublicHandler) ListCaseStudies(w http.ResponseWriter, r *http.Request) {
	featured := queryFlag(r, "featured")
	studies, err := h.content.PublishedCaseStudies(r.Context(), featured)
	respond(w, studies, err)
}

func (h *PublicHandler) GetCaseStudy(w http.ResponseWriter, r *http.Request) {
	study, err := h.content.CaseStudyBySlug(r.Context(), chi.URLParam(r, "slug"))
	respond(w, study, err)
}

// GET /api/legal/{type} never fails for a known type: with no active document
// it returns a placeholder. Signed-in readers get a view log row.
func (h *PublicHandler) GetLegalDocument(w http.ResponseWriter, r *http.Request) {
	docType := model.DocumentType(chi.URLParam(r, "type"))
	doc, err := h.legal.GetLatest(r.Context(), docType)
	if err != nil {
		writeError(w, err)
		return
	}

	if userID := middleware.UserID(r.Context()); userID != "" {
		h.legal.RecordView(r.Context(), userID, doc, r.UserAgent())
	}
	writeJSON(w, http.StatusOK, doc)
}

// POST /api/contact
func (h *PublicHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var params model.CreateContactMessageParams
	if err := httputil.DecodeJSON(r, &params); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.contact.Submit(r.Context(), audit.ClientIP(r), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": msg.ID, "success": true})
}

// GET /api/media/{key} redirects to a short-lived object URL.
func (h *PublicHandler) Media(w http.ResponseWriter, r *http.Request) {
	url, err := h.media.URL(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.Redirect(w, r, url, http.StatusFound)
}
