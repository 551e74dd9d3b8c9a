package credential

import (
	"fmt"
	"log/slog"
)

const redacted = "[REDACTED]"

// Secret is a raw secret held in memory. Every printable or serialized form
// of it is redacted; Reveal is the only way to read it.
type Secret struct {
	b []byte
}

// NewSecret wraps a plaintext secret.
func NewSecret(s string) Secret {
	return Secret{b: []byte(s)}
}

// Reveal returns the plaintext bytes.
func (s Secret) Reveal() []byte {
	return s.b
}

// Len returns the length of the plaintext in bytes.
func (s Secret) Len() int {
	return len(s.b)
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return len(s.b) == 0
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return "credential.Secret(" + redacted + ")"
}

// Format makes every fmt verb print the redacted form.
func (s Secret) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		_, _ = f.Write([]byte(s.GoString()))
		return
	}
	_, _ = f.Write([]byte(redacted))
}

func (s Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
