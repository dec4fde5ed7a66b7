package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vertexautomation/site-server/internal/audit"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/httputil"
	"github.com/vertexautomation/site-server/internal/middleware"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/service"
)

type AuthHandler struct {
	flow         *service.LoginFlow
	creds        *service.CredentialStore
	events       *EventsHandler
	loginLimiter *middleware.LoginRateLimiter
	secure       bool
}

func NewAuthHandler(
	flow *service.LoginFlow,
	creds *service.CredentialStore,
	events *EventsHandler,
	secure bool,
) *AuthHandler {
	return &AuthHandler{
		flow:         flow,
		creds:        creds,
		events:       events,
		loginLimiter: middleware.NewLoginRateLimiter(),
		secure:       secure,
	}
}

// Routes expects the session middleware's Load to run first.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.loginLimiter.Handler).Post("/api/login", h.Login)
	r.With(h.loginLimiter.Handler).Post("/api/signin", h.SignIn)
	r.With(h.loginLimiter.Handler).Post("/api/register", h.Register)
	r.Post("/api/verify", h.Verify)
	r.Post("/api/back", h.Back)
	r.Post("/api/logout", h.Logout)
	r.Post("/api/refresh", h.Refresh)
	r.Get("/api/me", h.Me)
	if h.events != nil {
		r.Get("/api/events", h.events.ServeHTTP)
	}

	return r
}

type loginResponse struct {
	Stage     service.LoginStage `json:"stage"`
	User      *model.User        `json:"user"`
	Code      string             `json:"code"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// decodeCredentials reads an email/password body into a login request.
func decodeCredentials(r *http.Request) (service.LoginRequest, error) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return service.LoginRequest{}, err
	}
	if req.Email == "" {
		return service.LoginRequest{}, apperrors.MissingRequired("email")
	}
	if req.Password == "" {
		return service.LoginRequest{}, apperrors.MissingRequired("password")
	}
	return service.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IP:        audit.ClientIP(r),
	}, nil
}

// POST /auth/api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.flow.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, result.Token, h.secure)
	writeJSON(w, http.StatusOK, loginResponse{
		Stage:     service.StageCodeIssued,
		User:      result.User,
		Code:      result.Code,
		ExpiresAt: result.ExpiresAt,
	})
}

// POST /auth/api/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.flow.MemberSignIn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, result.Token, h.secure)
	writeJSON(w, http.StatusOK, map[string]any{
		"stage":     service.StageSignedIn,
		"user":      result.User,
		"expiresAt": result.ExpiresAt,
	})
}

// POST /auth/api/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Code == "" {
		writeError(w, apperrors.MissingRequired("code"))
		return
	}

	token := middleware.SessionToken(r)
	if token == "" {
		writeError(w, apperrors.Unauthorized("Sign in first"))
		return
	}

	state, err := h.flow.Verify(r.Context(), token, req.Code, audit.ClientIP(r))
	if err != nil {
		switch apperrors.GetCode(err) {
		case apperrors.ErrCodeAccessDenied, apperrors.ErrCodeUnauthorized:
			middleware.ClearSessionCookie(w, h.secure)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// POST /auth/api/back
func (h *AuthHandler) Back(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.flow.Back(r.Context(), token); err != nil {
			writeError(w, err)
			return
		}
	}

	middleware.ClearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]service.LoginStage{"stage": service.StageLoggedOut})
}

// POST /auth/api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.flow.Logout(r.Context(), token, audit.ClientIP(r)); err != nil {
			writeError(w, err)
			return
		}
	}

	middleware.ClearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]service.LoginStage{"stage": service.StageLoggedOut})
}

// POST /auth/api/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)
	if token == "" {
		writeError(w, apperrors.Unauthorized("Sign in required"))
		return
	}

	session, err := h.creds.Refresh(r.Context(), token)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeUnauthorized {
			middleware.ClearSessionCookie(w, h.secure)
		}
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, token, h.secure)
	writeJSON(w, http.StatusOK, map[string]any{
		"stage":     service.StageOf(session),
		"expiresAt": session.ExpiresAt,
	})
}

// GET /auth/api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	state, err := h.flow.State(r.Context(), middleware.SessionToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// POST /auth/api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		FullName *string `json:"fullName"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.creds.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}
