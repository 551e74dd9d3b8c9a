package model

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := GenerateToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		assert.Len(t, raw, TokenBytes)

		assert.False(t, seen[tok], "duplicate token")
		seen[tok] = true
	}
}

func TestHashToken(t *testing.T) {
	assert.Equal(t,
		"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		HashToken("test"),
	)
	assert.NotEqual(t, HashToken("a"), HashToken("b"))
}

func TestSession_IsExpired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{IssuedAt: issued, ExpiresAt: issued.Add(time.Hour)}

	assert.Equal(t, time.Hour, s.Duration())
	assert.False(t, s.IsExpired(issued))
	assert.False(t, s.IsExpired(issued.Add(time.Hour-time.Nanosecond)))
	assert.True(t, s.IsExpired(issued.Add(time.Hour)))
	assert.True(t, s.IsExpired(issued.Add(2*time.Hour)))
}

func TestInvite_IsActive(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	inv := Invite{Status: InvitePending, CreatedAt: created, ExpiresAt: created.Add(24 * time.Hour)}

	assert.True(t, inv.IsActive(created))
	assert.False(t, inv.IsActive(created.Add(24*time.Hour)))

	inv.Status = InviteRevoked
	assert.False(t, inv.IsPending())
	assert.False(t, inv.IsActive(created))
}

func TestBeforeCreate_AssignsV7(t *testing.T) {
	u := &User{}
	require.NoError(t, u.BeforeCreate(nil))
	assert.Equal(t, uuid.Version(7), u.ID.Version())

	fixed := uuid.MustParse("0190a6e2-7c1e-7b3a-9d4e-5f6a7b8c9d0e")
	a := &Actor{ID: fixed}
	require.NoError(t, a.BeforeCreate(nil))
	assert.Equal(t, fixed, a.ID)
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe", (&User{FirstName: "Jane", LastName: "Doe"}).DisplayName())
	assert.Equal(t, "Jane", (&User{FirstName: "Jane"}).DisplayName())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}
