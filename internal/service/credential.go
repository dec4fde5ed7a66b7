package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/config"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository"
	"github.com/vertexautomation/site-server/internal/util"
)

const minPasswordLength = 8

// dummyHash is compared against when the email is unknown, so a miss costs the
// same bcrypt work as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := util.HashPassword("unknown-user-placeholder")
	return hash
})

// CredentialStore authenticates users and manages their opaque session tokens.
// Only the HMAC of a token is stored.
type CredentialStore struct {
	userRepo      repository.UserRepository
	sessionRepo   repository.UserSessionRepository
	events        AuthEventPublisher
	sessionSecret string
	now           func() time.Time
}

func NewCredentialStore(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	events AuthEventPublisher,
	sessionSecret string,
) *CredentialStore {
	return &CredentialStore{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		events:        events,
		sessionSecret: sessionSecret,
		now:           time.Now,
	}
}

type SignInResult struct {
	User    *model.User
	Session *model.UserSession
	Token   string
}

// SignIn checks the password and opens an admin-login session that is not yet
// verified. Unknown email and wrong password both return AuthFailed.
func (s *CredentialStore) SignIn(ctx context.Context, email, password, userAgent string) (*SignInResult, error) {
	return s.signIn(ctx, model.SessionPurposeAdmin, email, password, userAgent)
}

// SignInMember opens a plain member session. It can never be verified, so it
// never grants admin access whatever roles the user holds.
func (s *CredentialStore) SignInMember(ctx context.Context, email, password, userAgent string) (*SignInResult, error) {
	return s.signIn(ctx, model.SessionPurposeMember, email, password, userAgent)
}

func (s *CredentialStore) signIn(ctx context.Context, purpose model.SessionPurpose, email, password, userAgent string) (*SignInResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, util.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		util.CheckPasswordHash(password, dummyHash())
		return nil, apperrors.AuthFailed()
	}
	if !util.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.AuthFailed()
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	var ua *string
	if userAgent != "" {
		ua = &userAgent
	}
	session, err := s.sessionRepo.Create(ctx, model.CreateUserSessionParams{
		TokenHash: s.hash(token),
		UserID:    user.ID,
		Purpose:   purpose,
		UserAgent: ua,
		ExpiresAt: s.now().Add(config.UserSessionTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("failed to update last login")
	}
	s.publish(ctx, AuthEventSignedIn, user.ID, session.ID)

	return &SignInResult{User: user, Session: session, Token: token}, nil
}

// CurrentUser resolves a token to its user and session. It returns nils when
// the token is unknown or expired.
func (s *CredentialStore) CurrentUser(ctx context.Context, token string) (*model.User, *model.UserSession, error) {
	if token == "" {
		return nil, nil, nil
	}
	session, err := s.sessionRepo.FindValidByTokenHash(ctx, s.hash(token))
	if err != nil {
		return nil, nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, nil, nil
	}
	return user, session, nil
}

// SignOut deletes the session. Unknown tokens are not an error.
func (s *CredentialStore) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	tokenHash := s.hash(token)
	session, err := s.sessionRepo.FindValidByTokenHash(ctx, tokenHash)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	deleted, err := s.sessionRepo.DeleteByTokenHash(ctx, tokenHash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if deleted && session != nil {
		s.publish(ctx, AuthEventSignedOut, session.UserID, session.ID)
	}
	return nil
}

// Refresh pushes the session expiry out by a full TTL.
func (s *CredentialStore) Refresh(ctx context.Context, token string) (*model.UserSession, error) {
	session, err := s.sessionRepo.FindValidByTokenHash(ctx, s.hash(token))
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, apperrors.Unauthorized("Session expired")
	}

	expiresAt := s.now().Add(config.UserSessionTTL)
	if err := s.sessionRepo.Extend(ctx, session.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}
	session.ExpiresAt = expiresAt
	s.publish(ctx, AuthEventTokenRefreshed, session.UserID, session.ID)
	return session, nil
}

// MarkVerified records that the session holder passed the second factor.
func (s *CredentialStore) MarkVerified(ctx context.Context, sessionID string) error {
	ok, err := s.sessionRepo.MarkVerified(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("mark session verified: %w", err)
	}
	if !ok {
		return apperrors.Unauthorized("Session expired")
	}
	return nil
}

// Register creates an ordinary account holding the "user" role.
func (s *CredentialStore) Register(ctx context.Context, email, password string, fullName *string) (*model.User, error) {
	email = util.NormalizeEmail(email)
	if !util.IsValidEmail(email) {
		return nil, apperrors.InvalidInput("email", "must be a valid address")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.InvalidInput("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("User")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.userRepo.Create(ctx, model.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		InitialRole:  model.RoleUser,
	})
	if err != nil {
		// A concurrent registration can win the race past FindByEmail.
		if isUniqueViolation(err) {
			return nil, apperrors.AlreadyExists("User")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Info().Str("userId", user.ID).Msg("user registered")
	return user, nil
}

func (s *CredentialStore) CleanupExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx)
}

func (s *CredentialStore) hash(token string) string {
	return util.HmacSHA256(s.sessionSecret, token)
}

func (s *CredentialStore) publish(ctx context.Context, t AuthEventType, userID, sessionID string) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, AuthEvent{Type: t, UserID: userID, SessionID: sessionID, At: s.now().UTC()})
	if err != nil {
		log.Warn().Err(err).Str("type", string(t)).Msg("failed to publish auth event")
	}
}
