package credential

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayopay/cayopay-identity/pkg/errs"
)

// cheap parameters keep the suite fast; production uses DefaultParams.
var testParams = Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1}

func TestArgon2idHasher_RoundTrip(t *testing.T) {
	h := NewArgon2idHasher(testParams)

	hash, err := h.Hash(NewSecret("at-least-8-chars"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"), hash)

	ok, err := h.Verify(hash, NewSecret("at-least-8-chars"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(hash, NewSecret("at-least-8-chars!"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2idHasher_NonDeterministic(t *testing.T) {
	h := NewArgon2idHasher(testParams)
	secret := NewSecret("correct horse battery staple")

	first, err := h.Hash(secret)
	require.NoError(t, err)
	second, err := h.Hash(secret)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, hash := range []string{first, second} {
		ok, err := h.Verify(hash, secret)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestArgon2idHasher_VerifyUsesStoredParams(t *testing.T) {
	old := NewArgon2idHasher(testParams)
	hash, err := old.Hash(NewSecret("rotate-me-please"))
	require.NoError(t, err)

	current := NewArgon2idHasher(Params{MemoryKiB: 128, Iterations: 2, Parallelism: 1})
	ok, err := current.Verify(hash, NewSecret("rotate-me-please"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2idHasher_MalformedHash(t *testing.T) {
	h := NewArgon2idHasher(testParams)

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"bcrypt", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"},
		{"wrong version", "$argon2id$v=16$m=64,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5"},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5"},
		{"zero memory", "$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5"},
		{"bad salt", "$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5a2V5"},
		{"missing key", "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHQ$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify(tt.hash, NewSecret("whatever"))
			assert.False(t, ok)
			assert.ErrorIs(t, err, errs.ErrHashing)
		})
	}
}

func TestArgon2idHasher_RandFailure(t *testing.T) {
	h := NewArgon2idHasher(testParams)
	h.rand = func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

	_, err := h.Hash(NewSecret("at-least-8-chars"))
	assert.ErrorIs(t, err, errs.ErrHashing)
}

func TestNewArgon2idHasher_Defaults(t *testing.T) {
	h := NewArgon2idHasher(Params{})
	assert.Equal(t, DefaultParams, h.params)
}

func BenchmarkArgon2idHasher_Verify(b *testing.B) {
	h := NewArgon2idHasher(DefaultParams)
	secret := NewSecret("correct horse battery staple")
	hash, err := h.Hash(secret)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.Verify(hash, secret); err != nil {
			b.Fatal(err)
		}
	}
}
