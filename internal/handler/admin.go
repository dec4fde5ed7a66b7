package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vertexautomation/site-server/internal/config"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/httputil"
	"github.com/vertexautomation/site-server/internal/middleware"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/service"
)

type AdminHandler struct {
	admin          *service.AdminService
	content        *service.ContentService
	legal          *service.LegalService
	roles          *service.RoleService
	consents       *service.ConsentService
	contact        *service.ContactService
	media          *service.MediaService
	requireAdmin   func(http.Handler) http.Handler
	requireConsent func(http.Handler) http.Handler
	userLimiter    *middleware.UserRateLimitMiddleware
}

type AdminServices struct {
	Admin    *service.AdminService
	Content  *service.ContentService
	Legal    *service.LegalService
	Roles    *service.RoleService
	Consents *service.ConsentService
	Contact  *service.ContactService
	Media    *service.MediaService
}

// NewAdminHandler builds the admin API. requireConsent runs after requireAdmin;
// nil leaves the reconsent gate off.
func NewAdminHandler(
	svc AdminServices,
	requireAdmin func(http.Handler) http.Handler,
	requireConsent func(http.Handler) http.Handler,
	rateLimitPerMin int,
) *AdminHandler {
	return &AdminHandler{
		admin:          svc.Admin,
		content:        svc.Content,
		legal:          svc.Legal,
		roles:          svc.Roles,
		consents:       svc.Consents,
		contact:        svc.Contact,
		media:          svc.Media,
		requireAdmin:   requireAdmin,
		requireConsent: requireConsent,
		userLimiter:    middleware.NewUserRateLimitMiddleware(rateLimitPerMin),
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		if h.requireConsent != nil {
			r.Use(h.requireConsent)
		}
		r.Use(h.userLimiter.Handler)

		r.Get("/api/stats", h.Stats)

		// Content
		r.Mount("/api/services", resource(h.content.ListServices, h.content.CreateService, h.content.UpdateService, h.content.DeleteService))
		r.Mount("/api/case-studies", resource(h.content.ListCaseStudies, h.content.CreateCaseStudy, h.content.UpdateCaseStudy, h.content.DeleteCaseStudy))
		r.Mount("/api/testimonials", resource(h.content.ListTestimonials, h.content.CreateTestimonial, h.content.UpdateTestimonial, h.content.DeleteTestimonial))
		r.Mount("/api/certifications", resource(h.content.ListCertifications, h.content.CreateCertification, h.content.UpdateCertification, h.content.DeleteCertification))
		r.Mount("/api/client-logos", resource(h.content.ListClientLogos, h.content.CreateClientLogo, h.content.UpdateClientLogo, h.content.DeleteClientLogo))

		// Uploads
		r.Post("/api/uploads", h.Upload)
		r.Delete("/api/uploads/*", h.DeleteUpload)

		// Settings
		r.Get("/api/settings", h.ListSettings)
		r.Put("/api/settings/{key}", h.PutSetting)
		r.Delete("/api/settings/{key}", h.DeleteSetting)

		// Legal documents
		r.Get("/api/legal", h.ListLegalDocuments)
		r.Post("/api/legal", h.CreateLegalDocument)
		r.Get("/api/legal/{id}", h.GetLegalDocument)
		r.Put("/api/legal/{id}", h.UpdateLegalDocument)
		r.Post("/api/legal/{id}/activate", h.ActivateLegalDocument)

		// Users and roles
		r.Get("/api/users", h.ListUsers)
		r.Post("/api/users/{id}/roles", h.GrantRole)
		r.Get("/api/users/{id}/access-logs", h.ListAccessLogs)
		r.Delete("/api/roles/{id}", h.RevokeRole)

		// Consents
		r.Get("/api/consents", h.ListConsents)

		// Contact messages
		r.Get("/api/contacts", h.ListContacts)
		r.Post("/api/contacts/{id}/read", h.MarkContactRead)
	})

	return r
}

// resource builds list/create/update/delete routes for one content table.
func resource[P, T any](
	list func(context.Context) ([]T, error),
	create func(context.Context, P) (*T, error),
	update func(context.Context, string, P) (*T, error),
	remove func(context.Context, string) error,
) chi.Router {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var params P
		if err := httputil.DecodeJSON(r, &params); err != nil {
			writeError(w, err)
			return
		}
		item, err := create(r.Context(), params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	})

	r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
		var params P
		if err := httputil.DecodeJSON(r, &params); err != nil {
			writeError(w, err)
			return
		}
		item, err := update(r.Context(), chi.URLParam(r, "id"), params)
		respond(w, item, err)
	})

	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		ok(w)
	})

	return r
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.GetStats(r.Context())
	respond(w, stats, err)
}

// POST /admin/api/uploads, multipart with "file" and an optional "folder".
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.media.Enabled() {
		writeError(w, apperrors.Unavailable("Uploads"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperrors.InvalidInput("file", "exceeds the upload size limit"))
			return
		}
		writeError(w, apperrors.ValidationError("Expected a multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperrors.MissingRequired("file"))
		return
	}
	defer file.Close()

	result, err := h.media.Upload(r.Context(), r.FormValue("folder"), file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *AdminHandler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	if err := h.media.Delete(r.Context(), chi.URLParam(r, "*")); err != nil {
		writeError(w, err)
		return
	}
	ok(w)
}

func (h *AdminHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.content.AllSettings(r.Context())
	respond(w, settings, err)
}

func (h *AdminHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	setting, err := h.content.PutSetting(r.Context(), chi.URLParam(r, "key"), req.Value)
	respond(w, setting, err)
}

func (h *AdminHandler) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteSetting(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, err)
		return
	}
	ok(w)
}

// GET /admin/api/legal?type=privacy_policy
func (h *AdminHandler) ListLegalDocuments(w http.ResponseWriter, r *http.Request) {
	var docType *model.DocumentType
	if t := r.URL.Query().Get("type"); t != "" {
		dt := model.DocumentType(t)
		docType = &dt
	}
	docs, err := h.legal.List(r.Context(), docType)
	respond(w, docs, err)
}

type legalDocumentRequest struct {
	DocumentType  model.DocumentType `json:"documentType"`
	Version       *string            `json:"version"`
	Title         *string            `json:"title"`
	Content       *string            `json:"content"`
	EffectiveDate *time.Time         `json:"effectiveDate"`
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func (h *AdminHandler) CreateLegalDocument(w http.ResponseWriter, r *http.Request) {
	var req legalDocumentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.legal.Create(r.Context(), model.CreateLegalDocumentParams{
		DocumentType:  req.DocumentType,
		Version:       deref(req.Version),
		Title:         deref(req.Title),
		Content:       deref(req.Content),
		EffectiveDate: deref(req.EffectiveDate),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *AdminHandler) GetLegalDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.legal.Get(r.Context(), chi.URLParam(r, "id"))
	respond(w, doc, err)
}

func (h *AdminHandler) UpdateLegalDocument(w http.ResponseWriter, r *http.Request) {
	var req legalDocumentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.legal.Update(r.Context(), chi.URLParam(r, "id"), model.UpdateLegalDocumentParams{
		Version:       req.Version,
		Title:         req.Title,
		Content:       req.Content,
		EffectiveDate: req.EffectiveDate,
	})
	respond(w, doc, err)
}

func (h *AdminHandler) ActivateLegalDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.legal.Activate(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	respond(w, doc, err)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	users, total, err := h.roles.ListUsers(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(users, total, p))
}

func (h *AdminHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role model.Role `json:"role"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	assignment, err := h.roles.Grant(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (h *AdminHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	if err := h.roles.Revoke(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	ok(w)
}

func (h *AdminHandler) ListAccessLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.consents.AccessLogs(r.Context(), chi.URLParam(r, "id"), ParsePagination(r).Limit)
	respond(w, logs, err)
}

// GET /admin/api/consents?userId=...
func (h *AdminHandler) ListConsents(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	var userID *string
	if id := r.URL.Query().Get("userId"); id != "" {
		userID = &id
	}

	records, total, err := h.consents.List(r.Context(), userID, p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(records, total, p))
}

// GET /admin/api/contacts?unread=true
func (h *AdminHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	msgs, err := h.contact.List(r.Context(), queryFlag(r, "unread"), p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []model.ContactMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *AdminHandler) MarkContactRead(w http.ResponseWriter, r *http.Request) {
	if err := h.contact.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	ok(w)
}
