package credential

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Redacts(t *testing.T) {
	s := NewSecret("hunter2-hunter2")

	outputs := []string{
		s.String(),
		fmt.Sprint(s),
		fmt.Sprintf("%s", s),
		fmt.Sprintf("%v", s),
		fmt.Sprintf("%+v", s),
		fmt.Sprintf("%#v", s),
		fmt.Sprintf("%q", s),
		fmt.Sprintf("%x", s),
		fmt.Sprintf("%+v", struct{ Password Secret }{s}),
	}
	for _, out := range outputs {
		assert.NotContains(t, out, "hunter2")
		assert.Contains(t, out, "REDACTED")
	}
}

func TestSecret_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]any{"password": NewSecret("hunter2-hunter2")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"password":"[REDACTED]"}`, string(data))
}

func TestSecret_Slog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("login", "password", NewSecret("hunter2-hunter2"))

	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestSecret_Reveal(t *testing.T) {
	s := NewSecret("hunter2-hunter2")
	assert.Equal(t, []byte("hunter2-hunter2"), s.Reveal())
	assert.Equal(t, 15, s.Len())
	assert.False(t, s.IsZero())
	assert.True(t, Secret{}.IsZero())
}
