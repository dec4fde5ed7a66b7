package model

import (
	"time"
)

// AccessCode is a one-time second factor. Rows are never deleted.
type AccessCode struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	Used      bool      `db:"used" json:"used"`
}

// CreateAccessCodeParams carries a lifetime rather than a deadline; the
// database clock sets expires_at so issuance and validity checks agree.
type CreateAccessCodeParams struct {
	UserID string
	Code   string
	TTL    time.Duration
}

// ExpiredCodeCursor marks the last row seen while paging expired codes in
// (expires_at, id) order.
type ExpiredCodeCursor struct {
	ExpiresAt time.Time
	ID        string
}
