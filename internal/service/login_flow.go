package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/audit"
	"github.com/vertexautomation/site-server/internal/config"
	"github.com/vertexautomation/site-server/internal/email"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/metrics"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/util"
)

type LoginStage string

const (
	StageLoggedOut  LoginStage = "logged_out"
	StageSignedIn   LoginStage = "signed_in"
	StageCodeIssued LoginStage = "code_issued"
	StageVerified   LoginStage = "verified"
)

// StageOf maps a session to its place in the two-step login. Member sessions
// stay at signed_in.
func StageOf(session *model.UserSession) LoginStage {
	switch {
	case session == nil:
		return StageLoggedOut
	case session.IsMember():
		return StageSignedIn
	case session.MFAVerified:
		return StageVerified
	default:
		return StageCodeIssued
	}
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IP        string
}

type LoginResult struct {
	User      *model.User
	Token     string
	Code      string
	ExpiresAt time.Time
}

type LoginState struct {
	Stage LoginStage             `json:"stage"`
	User  *model.User            `json:"user,omitempty"`
	Roles []model.RoleAssignment `json:"roles"`
}

// LoginFlow drives the admin sign-in: password, admin role check, one-time
// code, verification. A session only grants admin access once verified.
type LoginFlow struct {
	creds      *CredentialStore
	roles      *RoleService
	ledger     *AccessCodeLedger
	limiter    *RateLimiter
	mailer     email.Sender
	emailCodes bool
}

func NewLoginFlow(
	creds *CredentialStore,
	roles *RoleService,
	ledger *AccessCodeLedger,
	limiter *RateLimiter,
	mailer email.Sender,
	emailCodes bool,
) *LoginFlow {
	return &LoginFlow{
		creds:      creds,
		roles:      roles,
		ledger:     ledger,
		limiter:    limiter,
		mailer:     mailer,
		emailCodes: emailCodes,
	}
}

func loginFailed(cause error) error {
	return apperrors.Internal("Login failed, please try again").WithCause(cause)
}

// Login checks the password and, for admins only, issues a login code. Any
// other outcome leaves no session behind.
func (f *LoginFlow) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	event := audit.Event{Email: util.NormalizeEmail(req.Email), IP: req.IP, UserAgent: req.UserAgent}

	signIn, err := f.creds.SignIn(ctx, req.Email, req.Password, req.UserAgent)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeAuthFailed {
			event.Type = audit.EventLoginFailure
			audit.Log(ctx, event)
			metrics.RecordLogin("auth_failed")
			return nil, err
		}
		metrics.RecordLogin("error")
		return nil, loginFailed(err)
	}
	event.UserID = signIn.User.ID

	isAdmin, err := f.roles.IsAdmin(ctx, signIn.User.ID)
	if err != nil {
		f.abandon(ctx, signIn.Token)
		metrics.RecordLogin("error")
		return nil, loginFailed(err)
	}
	if !isAdmin {
		f.abandon(ctx, signIn.Token)
		event.Type = audit.EventAccessDenied
		audit.Log(ctx, event)
		metrics.RecordLogin("access_denied")
		return nil, apperrors.AccessDenied()
	}

	code, err := f.ledger.Issue(ctx, signIn.User.ID, LoginCodePolicy)
	if err != nil {
		f.abandon(ctx, signIn.Token)
		metrics.RecordLogin("error")
		return nil, loginFailed(err)
	}

	if f.emailCodes && f.mailer != nil {
		f.sendCode(ctx, signIn.User.Email, code.Code)
	}

	event.Type = audit.EventCodeIssued
	event.Details = map[string]interface{}{"code": util.MaskCode(code.Code), "code_id": code.ID}
	audit.Log(ctx, event)
	metrics.RecordLogin("code_issued")

	return &LoginResult{
		User:      signIn.User,
		Token:     signIn.Token,
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
	}, nil
}

// MemberSignIn signs any account in without the admin checks. The session
// is enough for member routes such as consent, never for the admin area.
func (f *LoginFlow) MemberSignIn(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	event := audit.Event{Email: util.NormalizeEmail(req.Email), IP: req.IP, UserAgent: req.UserAgent}

	signIn, err := f.creds.SignInMember(ctx, req.Email, req.Password, req.UserAgent)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeAuthFailed {
			event.Type = audit.EventLoginFailure
			audit.Log(ctx, event)
			metrics.RecordLogin("auth_failed")
			return nil, err
		}
		metrics.RecordLogin("error")
		return nil, loginFailed(err)
	}

	event.Type = audit.EventLoginSuccess
	event.UserID = signIn.User.ID
	event.Details = map[string]interface{}{"purpose": string(model.SessionPurposeMember)}
	audit.Log(ctx, event)
	metrics.RecordLogin("member")

	return &LoginResult{
		User:      signIn.User,
		Token:     signIn.Token,
		ExpiresAt: signIn.Session.ExpiresAt,
	}, nil
}

// Verify redeems a login code for the session behind token. A wrong code
// leaves the session pending.
func (f *LoginFlow) Verify(ctx context.Context, token, submitted, ip string) (*LoginState, error) {
	user, session, err := f.creds.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.Unauthorized("Session expired")
	}
	if session.IsMember() {
		return nil, apperrors.Forbidden("Use the admin login to enter an access code")
	}
	if session.MFAVerified {
		return f.state(ctx, user, session)
	}

	limitKey := "verify:" + session.ID
	if allowed, _ := f.limiter.CheckLimit(ctx, limitKey, config.CodeVerifyMaxAttempts, config.CodeVerifyWindow); !allowed {
		audit.Log(ctx, audit.Event{Type: audit.EventRateLimitExceed, UserID: user.ID, IP: ip,
			Details: map[string]interface{}{"scope": "code_verify"}})
		metrics.RecordCodeVerification("rate_limited")
		return nil, apperrors.RateLimitExceeded()
	}

	code, err := f.ledger.Consume(ctx, user.ID, submitted)
	if err != nil {
		return nil, err
	}
	if code == nil {
		audit.Log(ctx, audit.Event{Type: audit.EventCodeRejected, UserID: user.ID, IP: ip})
		metrics.RecordCodeVerification("invalid")
		return nil, apperrors.InvalidAccessCode()
	}

	// Roles may have changed since the code was issued.
	isAdmin, err := f.roles.IsAdmin(ctx, user.ID)
	if err != nil {
		return nil, loginFailed(err)
	}
	if !isAdmin {
		f.abandon(ctx, token)
		audit.Log(ctx, audit.Event{Type: audit.EventAccessDenied, UserID: user.ID, IP: ip})
		metrics.RecordCodeVerification("access_denied")
		return nil, apperrors.AccessDenied()
	}

	if err := f.creds.MarkVerified(ctx, session.ID); err != nil {
		return nil, err
	}
	session.MFAVerified = true

	if err := f.limiter.Reset(ctx, limitKey); err != nil {
		log.Warn().Err(err).Msg("failed to reset verify limit")
	}
	audit.Log(ctx, audit.Event{Type: audit.EventCodeVerified, UserID: user.ID, IP: ip,
		Details: map[string]interface{}{"code_id": code.ID}})
	audit.Log(ctx, audit.Event{Type: audit.EventLoginSuccess, UserID: user.ID, Email: user.Email, IP: ip})
	metrics.RecordCodeVerification("verified")

	return f.state(ctx, user, session)
}

// Back abandons a pending login.
func (f *LoginFlow) Back(ctx context.Context, token string) error {
	return f.creds.SignOut(ctx, token)
}

func (f *LoginFlow) Logout(ctx context.Context, token, ip string) error {
	user, _, err := f.creds.CurrentUser(ctx, token)
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve session on logout")
	}
	if err := f.creds.SignOut(ctx, token); err != nil {
		return err
	}
	if user != nil {
		audit.Log(ctx, audit.Event{Type: audit.EventLogout, UserID: user.ID, IP: ip})
	}
	return nil
}

func (f *LoginFlow) State(ctx context.Context, token string) (*LoginState, error) {
	user, session, err := f.creds.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return f.state(ctx, user, session)
}

func (f *LoginFlow) state(ctx context.Context, user *model.User, session *model.UserSession) (*LoginState, error) {
	if user == nil || session == nil {
		return &LoginState{Stage: StageLoggedOut, Roles: []model.RoleAssignment{}}, nil
	}
	roles, err := f.roles.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []model.RoleAssignment{}
	}
	return &LoginState{Stage: StageOf(session), User: user, Roles: roles}, nil
}

func (f *LoginFlow) abandon(ctx context.Context, token string) {
	if err := f.creds.SignOut(ctx, token); err != nil {
		log.Error().Err(err).Msg("failed to sign out rejected login")
	}
}

func (f *LoginFlow) sendCode(ctx context.Context, to, code string) {
	msg, err := email.AccessCodeMessage(email.AccessCodeVars{
		Email: to,
		Code:  code,
		Role:  string(model.RoleAdmin),
		TTL:   LoginCodePolicy.TTL,
	})
	if err == nil {
		err = f.mailer.Send(ctx, msg)
	}
	if err != nil {
		log.Error().Err(fmt.Errorf("send access code: %w", err)).Msg("failed to email access code")
	}
}
