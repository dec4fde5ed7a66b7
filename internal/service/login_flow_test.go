package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vertexautomation/site-server/internal/email"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository/mocks"
)

type captureSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (s *captureSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

type loginFixture struct {
	*credentialFixture
	codes  *mocks.AccessCodeRepo
	mailer *captureSender
	flow   *LoginFlow
}

func newLoginFixture(t *testing.T, emailCodes bool) *loginFixture {
	_, client := newTestRedis(t)
	cf := newCredentialFixture()
	f := &loginFixture{
		credentialFixture: cf,
		codes:             new(mocks.AccessCodeRepo),
		mailer:            &captureSender{},
	}
	f.flow = NewLoginFlow(
		cf.store,
		NewRoleService(cf.roles, cf.users),
		NewAccessCodeLedger(f.codes),
		NewRateLimiter(client),
		f.mailer,
		emailCodes,
	)
	return f
}

func (f *loginFixture) expectSignIn(user *model.User) {
	f.users.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).
		Return(&model.UserSession{ID: "sess-1", UserID: user.ID}, nil)
	f.users.On("UpdateLastLogin", mock.Anything, user.ID).Return(nil)
}

func (f *loginFixture) expectSignOut() {
	f.sessions.On("FindValidByTokenHash", mock.Anything, mock.Anything).
		Return(&model.UserSession{ID: "sess-1", UserID: "user-1"}, nil).Maybe()
	f.sessions.On("DeleteByTokenHash", mock.Anything, mock.Anything).Return(true, nil)
}

func adminRoles() []model.RoleAssignment {
	return []model.RoleAssignment{{ID: "r1", UserID: "user-1", Role: model.RoleAdmin}}
}

func TestLoginFlow_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("admin receives a six character code", func(t *testing.T) {
		f := newLoginFixture(t, true)
		user := testUser(t, "pw-correct")
		f.expectSignIn(user)
		f.roles.On("FindByUserID", mock.Anything, "user-1").Return(adminRoles(), nil)
		f.codes.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateAccessCodeParams) bool {
			return p.UserID == "user-1" && len(p.Code) == 6
		})).Return(&model.AccessCode{ID: "c1", UserID: "user-1", Code: "ABC234"}, nil)

		result, err := f.flow.Login(ctx, LoginRequest{Email: user.Email, Password: "pw-correct"})
		require.NoError(t, err)
		assert.Equal(t, "ABC234", result.Code)
		assert.NotEmpty(t, result.Token)
		require.Len(t, f.mailer.sent, 1)
		assert.Contains(t, f.mailer.sent[0].TextBody, result.Code)
		f.sessions.AssertNotCalled(t, "DeleteByTokenHash", mock.Anything, mock.Anything)
	})

	t.Run("role sets without admin are signed out and get no code", func(t *testing.T) {
		roleSets := map[string][]model.Role{
			"none":           {},
			"user":           {model.RoleUser},
			"moderator":      {model.RoleModerator},
			"user+moderator": {model.RoleUser, model.RoleModerator},
			"user twice":     {model.RoleUser, model.RoleUser},
		}
		for name, roles := range roleSets {
			t.Run(name, func(t *testing.T) {
				f := newLoginFixture(t, false)
				user := testUser(t, "pw-correct")
				f.expectSignIn(user)
				f.expectSignOut()

				assignments := make([]model.RoleAssignment, 0, len(roles))
				for i, role := range roles {
					assignments = append(assignments, model.RoleAssignment{ID: fmt.Sprintf("r%d", i), UserID: "user-1", Role: role})
				}
				f.roles.On("FindByUserID", mock.Anything, "user-1").Return(assignments, nil)

				result, err := f.flow.Login(ctx, LoginRequest{Email: user.Email, Password: "pw-correct"})
				assert.Nil(t, result)
				assert.Equal(t, apperrors.ErrCodeAccessDenied, apperrors.GetCode(err))
				f.sessions.AssertCalled(t, "DeleteByTokenHash", mock.Anything, mock.Anything)
				f.codes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				assert.Empty(t, f.mailer.sent)
			})
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newLoginFixture(t, false)
		user := testUser(t, "pw-correct")
		f.users.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)

		_, err := f.flow.Login(ctx, LoginRequest{Email: user.Email, Password: "nope"})
		assert.Equal(t, apperrors.ErrCodeAuthFailed, apperrors.GetCode(err))
		f.roles.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
	})

	t.Run("role lookup failure is generic and signs out", func(t *testing.T) {
		f := newLoginFixture(t, false)
		user := testUser(t, "pw-correct")
		f.expectSignIn(user)
		f.expectSignOut()
		f.roles.On("FindByUserID", mock.Anything, "user-1").Return(nil, errors.New("relation user_roles does not exist"))

		_, err := f.flow.Login(ctx, LoginRequest{Email: user.Email, Password: "pw-correct"})
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeInternal, appErr.Code)
		assert.NotContains(t, appErr.Message, "user_roles")
		f.sessions.AssertCalled(t, "DeleteByTokenHash", mock.Anything, mock.Anything)
	})

	t.Run("issue failure is generic and signs out", func(t *testing.T) {
		f := newLoginFixture(t, false)
		user := testUser(t, "pw-correct")
		f.expectSignIn(user)
		f.expectSignOut()
		f.roles.On("FindByUserID", mock.Anything, "user-1").Return(adminRoles(), nil)
		f.codes.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed"))

		_, err := f.flow.Login(ctx, LoginRequest{Email: user.Email, Password: "pw-correct"})
		assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetCode(err))
		f.sessions.AssertCalled(t, "DeleteByTokenHash", mock.Anything, mock.Anything)
	})
}

func TestLoginFlow_Verify(t *testing.T) {
	ctx := context.Background()
	pending := &model.UserSession{ID: "sess-1", UserID: "user-1"}

	setup := func(t *testing.T) *loginFixture {
		f := newLoginFixture(t, false)
		f.sessions.On("FindValidByTokenHash", mock.Anything, mock.Anything).Return(pending, nil)
		f.users.On("FindByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1"}, nil)
		return f
	}

	t.Run("correct code elevates the session", func(t *testing.T) {
		f := setup(t)
		f.codes.On("Consume", mock.Anything, "user-1", "ABC234").Return(&model.AccessCode{ID: "c1"}, nil)
		f.roles.On("FindByUserID", mock.Anything, "user-1").Return(adminRoles(), nil)
		f.sessions.On("MarkVerified", mock.Anything, "sess-1").Return(true, nil)

		state, err := f.flow.Verify(ctx, "tok", "abc234", "")
		require.NoError(t, err)
		assert.Equal(t, StageVerified, state.Stage)
	})

	t.Run("wrong code stays pending", func(t *testing.T) {
		f := setup(t)
		f.codes.On("Consume", mock.Anything, "user-1", "WRONG1").Return(nil, nil)

		_, err := f.flow.Verify(ctx, "tok", "wrong1", "")
		assert.Equal(t, apperrors.ErrCodeInvalidAccessCode, apperrors.GetCode(err))
		f.sessions.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
		f.sessions.AssertNotCalled(t, "DeleteByTokenHash", mock.Anything, mock.Anything)
	})

	t.Run("attempts are limited per session", func(t *testing.T) {
		f := setup(t)
		f.codes.On("Consume", mock.Anything, "user-1", mock.Anything).Return(nil, nil)

		for i := 0; i < 5; i++ {
			_, err := f.flow.Verify(ctx, "tok", "XXXXXX", "")
			assert.Equal(t, apperrors.ErrCodeInvalidAccessCode, apperrors.GetCode(err))
		}
		_, err := f.flow.Verify(ctx, "tok", "XXXXXX", "")
		assert.Equal(t, apperrors.ErrCodeRateLimitExceeded, apperrors.GetCode(err))
		f.codes.AssertNumberOfCalls(t, "Consume", 5)
	})

	t.Run("no session", func(t *testing.T) {
		f := newLoginFixture(t, false)
		f.sessions.On("FindValidByTokenHash", mock.Anything, mock.Anything).Return(nil, nil)

		_, err := f.flow.Verify(ctx, "tok", "ABC234", "")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
	})

	t.Run("admin role removed before verification", func(t *testing.T) {
		f := setup(t)
		f.codes.On("Consume", mock.Anything, "user-1", "ABC234").Return(&model.AccessCode{ID: "c1"}, nil)
		f.roles.On("FindByUserID", mock.Anything, "user-1").Return([]model.RoleAssignment{}, nil)
		f.sessions.On("DeleteByTokenHash", mock.Anything, mock.Anything).Return(true, nil)

		_, err := f.flow.Verify(ctx, "tok", "ABC234", "")
		assert.Equal(t, apperrors.ErrCodeAccessDenied, apperrors.GetCode(err))
		f.sessions.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
	})
}

func TestLoginFlow_State(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t, false)

	state, err := f.flow.State(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StageLoggedOut, state.Stage)

	assert.Equal(t, StageCodeIssued, StageOf(&model.UserSession{}))
	assert.Equal(t, StageVerified, StageOf(&model.UserSession{MFAVerified: true}))
	assert.Equal(t, StageSignedIn, StageOf(&model.UserSession{Purpose: model.SessionPurposeMember}))
}

func TestLoginFlow_MemberSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("any account gets a member session without a code", func(t *testing.T) {
		f := newLoginFixture(t, true)
		user := testUser(t, "pw-correct")
		f.users.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
		f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateUserSessionParams) bool {
			return p.Purpose == model.SessionPurposeMember
		})).Return(&model.UserSession{ID: "sess-1", UserID: user.ID, Purpose: model.SessionPurposeMember}, nil)
		f.users.On("UpdateLastLogin", mock.Anything, user.ID).Return(nil)

		result, err := f.flow.MemberSignIn(ctx, LoginRequest{Email: user.Email, Password: "pw-correct"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Empty(t, result.Code)
		f.roles.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
		f.codes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Empty(t, f.mailer.sent)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newLoginFixture(t, false)
		user := testUser(t, "pw-correct")
		f.users.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)

		_, err := f.flow.MemberSignIn(ctx, LoginRequest{Email: user.Email, Password: "nope"})
		assert.Equal(t, apperrors.ErrCodeAuthFailed, apperrors.GetCode(err))
		f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("member sessions cannot redeem a code", func(t *testing.T) {
		f := newLoginFixture(t, false)
		f.sessions.On("FindValidByTokenHash", mock.Anything, mock.Anything).
			Return(&model.UserSession{ID: "sess-1", UserID: "user-1", Purpose: model.SessionPurposeMember}, nil)
		f.users.On("FindByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1"}, nil)

		_, err := f.flow.Verify(ctx, "tok", "ABC234", "")
		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
		f.codes.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything)
		f.sessions.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
	})
}

func TestLoginFlow_BackSignsOut(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t, false)
	f.expectSignOut()

	require.NoError(t, f.flow.Back(ctx, "tok"))
	f.sessions.AssertCalled(t, "DeleteByTokenHash", mock.Anything, mock.Anything)
	assert.Equal(t, []AuthEventType{AuthEventSignedOut}, f.events.types())
}
