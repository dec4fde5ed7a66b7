package model

import (
	"time"
)

type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     *string    `db:"full_name" json:"fullName,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     *string
	// InitialRole, when set, is granted in the same transaction as the insert.
	InitialRole Role
}

// SessionPurpose separates the admin login, which can be elevated with an
// access code, from a plain member sign-in, which never can.
type SessionPurpose string

const (
	SessionPurposeAdmin  SessionPurpose = "admin"
	SessionPurposeMember SessionPurpose = "member"
)

// UserSession is a credential-level session. MFAVerified is only set once the
// holder has redeemed an access code; until then the session grants no admin access.
type UserSession struct {
	ID          string         `db:"id" json:"id"`
	TokenHash   string         `db:"token_hash" json:"-"`
	UserID      string         `db:"user_id" json:"userId"`
	Purpose     SessionPurpose `db:"purpose" json:"purpose"`
	MFAVerified bool           `db:"mfa_verified" json:"mfaVerified"`
	UserAgent   *string        `db:"user_agent" json:"userAgent,omitempty"`
	ExpiresAt   time.Time      `db:"expires_at" json:"expiresAt"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	VerifiedAt  *time.Time     `db:"verified_at" json:"verifiedAt,omitempty"`
}

type CreateUserSessionParams struct {
	TokenHash string
	UserID    string
	Purpose   SessionPurpose
	UserAgent *string
	ExpiresAt time.Time
}

func (s *UserSession) IsMember() bool {
	return s.Purpose == SessionPurposeMember
}

type UserWithRoles struct {
	User
	Roles []RoleAssignment `json:"roles"`
}
