// Package auth issues and verifies bearer tokens and turns them into a Session.
package auth

import (
	"slices"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
)

var (
	ErrMissingToken   = apperr.New(apperr.ErrUnauthenticated, "missing bearer token")
	ErrMalformedToken = apperr.New(apperr.ErrUnauthenticated, "malformed authorization header")
	ErrInvalidToken   = apperr.New(apperr.ErrUnauthenticated, "invalid or expired token")
	ErrForbidden      = apperr.New(apperr.ErrForbidden, "insufficient role")
)

// Session is derived from a verified token on every request and never stored.
type Session struct {
	SubjectID string
	Roles     []string
	ExpiresAt time.Time
}

func (s *Session) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

func (s *Session) Require(role string) error {
	if !s.HasRole(role) {
		return ErrForbidden
	}
	return nil
}
