package auth

import (
	"testing"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(now *time.Time) *Manager {
	m := NewManager("test-secret", time.Hour)
	m.now = func() time.Time { return *now }
	return m
}

func TestManager_IssueAndVerify(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(&now)

	token, exp, err := m.Issue("user-1", []string{"customer"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	sess, err := m.VerifyHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.SubjectID)
	assert.Equal(t, []string{"customer"}, sess.Roles)
	assert.True(t, sess.ExpiresAt.Equal(exp))
}

func TestManager_ExpiredToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(&now)
	token, _, err := m.Issue("user-1", []string{"customer"})
	require.NoError(t, err)

	now = now.Add(61 * time.Minute)
	_, err = m.Verify(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.Contains(t, err.Error(), "expired")
}

func TestManager_RejectsBadTokens(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)
	other := NewManager("other-secret", time.Hour)
	foreign, _, err := other.Issue("user-1", nil)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{name: "missing", header: "", want: ErrMissingToken},
		{name: "wrong scheme", header: "Basic abc", want: ErrMalformedToken},
		{name: "no token", header: "Bearer ", want: ErrMalformedToken},
		{name: "garbage", header: "Bearer not.a.jwt", want: ErrInvalidToken},
		{name: "other secret", header: "Bearer " + foreign, want: ErrInvalidToken},
		{name: "alg none", header: "Bearer " + noneToken, want: ErrInvalidToken},
		{name: "no expiry", header: "Bearer " + noExpiry, want: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := m.VerifyHeader(tt.header)
			assert.Nil(t, sess)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
		})
	}
}

func TestSession_Require(t *testing.T) {
	sess := &Session{SubjectID: "u", Roles: []string{"customer"}}

	assert.NoError(t, sess.Require("customer"))
	err := sess.Require("admin")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
