package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayopay/cayopay-identity/pkg/logging"
	"github.com/cayopay/cayopay-identity/pkg/notify"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CAYOPAY_CONFIG_PATH", t.TempDir())

	c, err := Load()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 3000, c.Port)
	assert.Equal(t, 24*time.Hour, c.Session.TTL)
	assert.Equal(t, "cayopay_session", c.Session.CookieName)
	assert.Equal(t, 7*24*time.Hour, c.Invitations.TTL)
	assert.False(t, c.Invitations.RollbackOnNotifyFailure)
	assert.Equal(t, notify.DriverWriter, c.Notify.Driver)
	assert.Equal(t, SourceDefault, c.Source("port"))
	assert.Equal(t, "0.0.0.0:3000", c.Address())
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
port: 8080
log_level: debug
session:
  ttl: 2h
invitations:
  rollback_on_notify_failure: true
notify:
  driver: webhook
  webhook:
    url: https://hooks.example.com/invites
    secret: from-file
`)
	t.Setenv("CAYOPAY_CONFIG_PATH", dir)
	t.Setenv("CAYOPAY_SESSION_TTL", "30m")
	t.Setenv("DATABASE_URL", "postgres://app:hunter2@db:5432/identity")
	t.Setenv("CAYOPAY_NOTIFY_WEBHOOK_SECRET", "from-env")

	c, err := Load()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, SourceFile, c.Source("port"))
	assert.Equal(t, 30*time.Minute, c.Session.TTL)
	assert.Equal(t, SourceEnvironment, c.Source("session.ttl"))
	assert.True(t, c.Invitations.RollbackOnNotifyFailure)
	assert.Equal(t, SourceFile, c.Source("invitations.rollback_on_notify_failure"))
	assert.Equal(t, "from-env", c.Notify.Webhook.Secret)
	assert.Equal(t, SourceEnvironment, c.Source("notify.webhook.secret"))
	assert.Equal(t, "postgres://app:hunter2@db:5432/identity", c.DatabaseURL)
	assert.Equal(t, SourceEnvironment, c.Source("database_url"))
	assert.Equal(t, SourceDefault, c.Source("session.cookie_name"))

	n := c.Notification()
	assert.Equal(t, notify.DriverWebhook, n.Driver)
	assert.Equal(t, "https://hooks.example.com/invites", n.Webhook.URL)
}

func TestLoad_PrefixedWinsOverBare(t *testing.T) {
	t.Setenv("CAYOPAY_CONFIG_PATH", t.TempDir())
	t.Setenv("PORT", "4000")
	t.Setenv("CAYOPAY_PORT", "5000")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, c.Port)
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "port: [not a number\n")
	t.Setenv("CAYOPAY_CONFIG_PATH", dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BadEnvironment(t *testing.T) {
	t.Setenv("CAYOPAY_CONFIG_PATH", t.TempDir())
	t.Setenv("CAYOPAY_SESSION_TTL", "forever")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 0 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"authenticator", func(c *Config) { c.Authenticators = []string{"authn-ldap"} }},
		{"session ttl", func(c *Config) { c.Session.TTL = 0 }},
		{"invitation ttl", func(c *Config) { c.Invitations.TTL = -time.Second }},
		{"driver", func(c *Config) { c.Notify.Driver = "pigeon" }},
		{"smtp host", func(c *Config) { c.Notify.Driver = notify.DriverSMTP }},
		{"webhook secret", func(c *Config) {
			c.Notify.Driver = notify.DriverWebhook
			c.Notify.Webhook.URL = "https://hooks.example.com"
		}},
		{"argon2 memory", func(c *Config) { c.Argon2.Parallelism = 4; c.Argon2.MemoryKiB = 16 }},
		{"owner password", func(c *Config) { c.Owner.Email = "owner@example.com" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestAttributes_RedactSecrets(t *testing.T) {
	c := Default()
	c.DatabaseURL = "postgres://app:hunter2@db:5432/identity"
	c.Owner.Password = "owner-pass"
	c.Notify.SMTP.Password = "smtp-pass"

	text := c.FormatText()
	assert.NotContains(t, text, "hunter2")
	assert.NotContains(t, text, "owner-pass")
	assert.NotContains(t, text, "smtp-pass")
	assert.Contains(t, text, "postgres://app:[REDACTED]@db:5432/identity")

	out, err := c.FormatJSON()
	require.NoError(t, err)
	var decoded struct {
		Attributes []Attribute `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded.Attributes, len(attributeKeys))
	assert.NotContains(t, out, "hunter2")
}

func TestUnknownFileKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "port: 3001\nsesion:\n  ttl: 1h\n")
	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sesion.ttl"}, c.UnknownFileKeys())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		levels []string
	)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logging.Discard(), func(c *Config) {
			mu.Lock()
			defer mu.Unlock()
			levels = append(levels, c.LogLevel)
		})
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "log_level: debug\n")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(levels) > 0 && levels[len(levels)-1] == "debug"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
