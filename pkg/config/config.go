package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/logging"
	"github.com/cayopay/cayopay-identity/pkg/notify"
)

const (
	DefaultConfigPath = "/etc/cayopay"
	ConfigFileName    = "cayopay.yml"
	EnvPrefix         = "CAYOPAY_"
)

// Attribute sources.
const (
	SourceDefault     = "default"
	SourceFile        = "file"
	SourceEnvironment = "environment"
)

// ValidAuthenticators are the authenticators the HTTP layer can run.
var ValidAuthenticators = []string{"session", "password"}

const redacted = "[REDACTED]"

// Config holds every setting of the identity service.
type Config struct {
	BindAddress      string   `yaml:"bind_address" env:"BIND_ADDRESS"`
	Port             int      `yaml:"port" env:"PORT"`
	DatabaseURL      string   `yaml:"database_url" env:"DATABASE_URL"`
	AuditDatabaseURL string   `yaml:"audit_database_url" env:"AUDIT_DATABASE_URL"`
	LogLevel         string   `yaml:"log_level" env:"LOG_LEVEL"`
	Authenticators   []string `yaml:"authenticators" env:"AUTHENTICATORS"`

	Session     SessionConfig     `yaml:"session" envPrefix:"SESSION_"`
	Invitations InvitationsConfig `yaml:"invitations" envPrefix:"INVITATIONS_"`
	Notify      NotifyConfig      `yaml:"notify" envPrefix:"NOTIFY_"`
	Argon2      Argon2Config      `yaml:"argon2" envPrefix:"ARGON2_"`
	Owner       OwnerConfig       `yaml:"owner" envPrefix:"OWNER_"`

	// sources tracks where each value came from
	sources map[string]string

	configFilePath string
}

type SessionConfig struct {
	TTL          time.Duration `yaml:"ttl" env:"TTL"`
	CookieName   string        `yaml:"cookie_name" env:"COOKIE_NAME"`
	CookieSecure bool          `yaml:"cookie_secure" env:"COOKIE_SECURE"`
}

type InvitationsConfig struct {
	TTL                     time.Duration `yaml:"ttl" env:"TTL"`
	RollbackOnNotifyFailure bool          `yaml:"rollback_on_notify_failure" env:"ROLLBACK_ON_NOTIFY_FAILURE"`
	AcceptURL               string        `yaml:"accept_url" env:"ACCEPT_URL"`
}

type NotifyConfig struct {
	Driver  string        `yaml:"driver" env:"DRIVER"`
	SMTP    SMTPConfig    `yaml:"smtp" envPrefix:"SMTP_"`
	Webhook WebhookConfig `yaml:"webhook" envPrefix:"WEBHOOK_"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
	From     string `yaml:"from" env:"FROM"`
	SSL      bool   `yaml:"ssl" env:"SSL"`
}

type WebhookConfig struct {
	URL    string `yaml:"url" env:"URL"`
	Secret string `yaml:"secret" env:"SECRET"`
}

type Argon2Config struct {
	MemoryKiB   uint32 `yaml:"memory_kib" env:"MEMORY_KIB"`
	Iterations  uint32 `yaml:"iterations" env:"ITERATIONS"`
	Parallelism uint8  `yaml:"parallelism" env:"PARALLELISM"`
}

// OwnerConfig names the initial owner registered at startup.
type OwnerConfig struct {
	Email     string `yaml:"email" env:"EMAIL"`
	Password  string `yaml:"password" env:"PASSWORD"`
	FirstName string `yaml:"first_name" env:"FIRST_NAME"`
	LastName  string `yaml:"last_name" env:"LAST_NAME"`
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Default returns a config holding only built-in defaults.
func Default() *Config {
	return &Config{
		BindAddress:    "0.0.0.0",
		Port:           3000,
		LogLevel:       "info",
		Authenticators: []string{"session"},
		Session: SessionConfig{
			TTL:          24 * time.Hour,
			CookieName:   "cayopay_session",
			CookieSecure: true,
		},
		Invitations: InvitationsConfig{
			TTL: 7 * 24 * time.Hour,
		},
		Notify: NotifyConfig{
			Driver: notify.DriverWriter,
			SMTP:   SMTPConfig{Port: 587},
		},
		Argon2: Argon2Config{
			MemoryKiB:   credential.DefaultParams.MemoryKiB,
			Iterations:  credential.DefaultParams.Iterations,
			Parallelism: credential.DefaultParams.Parallelism,
		},
		sources: make(map[string]string),
	}
}

// FilePath returns the config file location selected by CAYOPAY_CONFIG_PATH.
func FilePath() string {
	dir := os.Getenv("CAYOPAY_CONFIG_PATH")
	if dir == "" {
		dir = DefaultConfigPath
	}
	return filepath.Join(dir, ConfigFileName)
}

// Load reads the config file chosen by CAYOPAY_CONFIG_PATH and applies the
// environment. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFile(FilePath())
}

// LoadFile reads the config file at path and applies the environment.
func LoadFile(path string) (*Config, error) {
	c := Default()
	c.configFilePath = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := c.applyFile(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyFile(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	var present map[string]any
	if err := yaml.Unmarshal(data, &present); err != nil {
		return err
	}
	for _, name := range flatten("", present) {
		c.sources[name] = SourceFile
	}
	return nil
}

func flatten(prefix string, m map[string]any) []string {
	var names []string
	for k, v := range m {
		name := prefix + k
		if nested, ok := v.(map[string]any); ok {
			names = append(names, flatten(name+".", nested)...)
			continue
		}
		names = append(names, name)
	}
	return names
}

// unprefixed are honoured when the CAYOPAY_ form is unset.
var unprefixed = map[string]string{
	"DATABASE_URL":       "database_url",
	"AUDIT_DATABASE_URL": "audit_database_url",
	"PORT":               "port",
	"BIND_ADDRESS":       "bind_address",
}

func (c *Config) applyEnv() error {
	onSet := func(tag string, _ any, isDefault bool) {
		if isDefault {
			return
		}
		if name, ok := envAttribute(tag); ok {
			c.sources[name] = SourceEnvironment
		}
	}

	var bare struct {
		BindAddress      string `env:"BIND_ADDRESS"`
		Port             int    `env:"PORT"`
		DatabaseURL      string `env:"DATABASE_URL"`
		AuditDatabaseURL string `env:"AUDIT_DATABASE_URL"`
	}
	if err := env.ParseWithOptions(&bare, env.Options{}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	for key, name := range unprefixed {
		if _, ok := os.LookupEnv(key); !ok {
			continue
		}
		switch name {
		case "bind_address":
			c.BindAddress = bare.BindAddress
		case "port":
			c.Port = bare.Port
		case "database_url":
			c.DatabaseURL = bare.DatabaseURL
		case "audit_database_url":
			c.AuditDatabaseURL = bare.AuditDatabaseURL
		}
		c.sources[name] = SourceEnvironment
	}

	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix, OnSet: onSet}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// envAttribute maps an environment key to its attribute name.
func envAttribute(key string) (string, bool) {
	for _, a := range attributeKeys {
		if a.env == key {
			return a.name, true
		}
	}
	return "", false
}

type attributeKey struct {
	name string
	env  string
}

var attributeKeys = []attributeKey{
	{"bind_address", "CAYOPAY_BIND_ADDRESS"},
	{"port", "CAYOPAY_PORT"},
	{"database_url", "CAYOPAY_DATABASE_URL"},
	{"audit_database_url", "CAYOPAY_AUDIT_DATABASE_URL"},
	{"log_level", "CAYOPAY_LOG_LEVEL"},
	{"authenticators", "CAYOPAY_AUTHENTICATORS"},
	{"session.ttl", "CAYOPAY_SESSION_TTL"},
	{"session.cookie_name", "CAYOPAY_SESSION_COOKIE_NAME"},
	{"session.cookie_secure", "CAYOPAY_SESSION_COOKIE_SECURE"},
	{"invitations.ttl", "CAYOPAY_INVITATIONS_TTL"},
	{"invitations.rollback_on_notify_failure", "CAYOPAY_INVITATIONS_ROLLBACK_ON_NOTIFY_FAILURE"},
	{"invitations.accept_url", "CAYOPAY_INVITATIONS_ACCEPT_URL"},
	{"notify.driver", "CAYOPAY_NOTIFY_DRIVER"},
	{"notify.smtp.host", "CAYOPAY_NOTIFY_SMTP_HOST"},
	{"notify.smtp.port", "CAYOPAY_NOTIFY_SMTP_PORT"},
	{"notify.smtp.username", "CAYOPAY_NOTIFY_SMTP_USERNAME"},
	{"notify.smtp.password", "CAYOPAY_NOTIFY_SMTP_PASSWORD"},
	{"notify.smtp.from", "CAYOPAY_NOTIFY_SMTP_FROM"},
	{"notify.smtp.ssl", "CAYOPAY_NOTIFY_SMTP_SSL"},
	{"notify.webhook.url", "CAYOPAY_NOTIFY_WEBHOOK_URL"},
	{"notify.webhook.secret", "CAYOPAY_NOTIFY_WEBHOOK_SECRET"},
	{"argon2.memory_kib", "CAYOPAY_ARGON2_MEMORY_KIB"},
	{"argon2.iterations", "CAYOPAY_ARGON2_ITERATIONS"},
	{"argon2.parallelism", "CAYOPAY_ARGON2_PARALLELISM"},
	{"owner.email", "CAYOPAY_OWNER_EMAIL"},
	{"owner.password", "CAYOPAY_OWNER_PASSWORD"},
	{"owner.first_name", "CAYOPAY_OWNER_FIRST_NAME"},
	{"owner.last_name", "CAYOPAY_OWNER_LAST_NAME"},
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if s, ok := c.sources[name]; ok {
		return s
	}
	return SourceDefault
}

// Address is the host:port the HTTP server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

// IsAuthenticatorEnabled checks if an authenticator is enabled
func (c *Config) IsAuthenticatorEnabled(name string) bool {
	for _, a := range c.Authenticators {
		if a == name {
			return true
		}
	}
	return false
}

// HashParams returns the argon2id parameters.
func (c *Config) HashParams() credential.Params {
	return credential.Params{
		MemoryKiB:   c.Argon2.MemoryKiB,
		Iterations:  c.Argon2.Iterations,
		Parallelism: c.Argon2.Parallelism,
	}
}

// Notification returns the notify gateway settings.
func (c *Config) Notification() notify.Config {
	return notify.Config{
		Driver:    c.Notify.Driver,
		AcceptURL: c.Invitations.AcceptURL,
		SMTP: notify.SMTPConfig{
			Host:     c.Notify.SMTP.Host,
			Port:     c.Notify.SMTP.Port,
			Username: c.Notify.SMTP.Username,
			Password: c.Notify.SMTP.Password,
			From:     c.Notify.SMTP.From,
			SSL:      c.Notify.SMTP.SSL,
		},
		Webhook: notify.WebhookConfig{
			URL:    c.Notify.Webhook.URL,
			Secret: c.Notify.Webhook.Secret,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level: %w", err))
	}
	for _, a := range c.Authenticators {
		if !contains(ValidAuthenticators, a) {
			errs = append(errs, fmt.Errorf("invalid authenticator type: %s", a))
		}
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session.ttl must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, fmt.Errorf("session.cookie_name is required"))
	}
	if c.Invitations.TTL <= 0 {
		errs = append(errs, fmt.Errorf("invitations.ttl must be positive"))
	}

	switch c.Notify.Driver {
	case notify.DriverWriter:
	case notify.DriverSMTP:
		if c.Notify.SMTP.Host == "" || c.Notify.SMTP.From == "" {
			errs = append(errs, fmt.Errorf("notify.smtp.host and notify.smtp.from are required for the smtp driver"))
		}
	case notify.DriverWebhook:
		if c.Notify.Webhook.URL == "" || c.Notify.Webhook.Secret == "" {
			errs = append(errs, fmt.Errorf("notify.webhook.url and notify.webhook.secret are required for the webhook driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid notify.driver: %s", c.Notify.Driver))
	}

	if c.Argon2.Parallelism == 0 || c.Argon2.Iterations == 0 {
		errs = append(errs, fmt.Errorf("argon2.iterations and argon2.parallelism must be positive"))
	} else if c.Argon2.MemoryKiB < 8*uint32(c.Argon2.Parallelism) {
		errs = append(errs, fmt.Errorf("argon2.memory_kib must be at least 8 * parallelism"))
	}

	if c.Owner.Email != "" && c.Owner.Password == "" {
		errs = append(errs, fmt.Errorf("owner.password is required when owner.email is set"))
	}

	return errors.Join(errs...)
}

// Attributes returns all configuration attributes with their values and
// sources. Secrets are redacted.
func (c *Config) Attributes() []Attribute {
	values := map[string]string{
		"bind_address":                           c.BindAddress,
		"port":                                   strconv.Itoa(c.Port),
		"database_url":                           redactURL(c.DatabaseURL),
		"audit_database_url":                     redactURL(c.AuditDatabaseURL),
		"log_level":                              c.LogLevel,
		"authenticators":                         strings.Join(c.Authenticators, ","),
		"session.ttl":                            c.Session.TTL.String(),
		"session.cookie_name":                    c.Session.CookieName,
		"session.cookie_secure":                  strconv.FormatBool(c.Session.CookieSecure),
		"invitations.ttl":                        c.Invitations.TTL.String(),
		"invitations.rollback_on_notify_failure": strconv.FormatBool(c.Invitations.RollbackOnNotifyFailure),
		"invitations.accept_url":                 c.Invitations.AcceptURL,
		"notify.driver":                          c.Notify.Driver,
		"notify.smtp.host":                       c.Notify.SMTP.Host,
		"notify.smtp.port":                       strconv.Itoa(c.Notify.SMTP.Port),
		"notify.smtp.username":                   c.Notify.SMTP.Username,
		"notify.smtp.password":                   redact(c.Notify.SMTP.Password),
		"notify.smtp.from":                       c.Notify.SMTP.From,
		"notify.smtp.ssl":                        strconv.FormatBool(c.Notify.SMTP.SSL),
		"notify.webhook.url":                     c.Notify.Webhook.URL,
		"notify.webhook.secret":                  redact(c.Notify.Webhook.Secret),
		"argon2.memory_kib":                      strconv.FormatUint(uint64(c.Argon2.MemoryKiB), 10),
		"argon2.iterations":                      strconv.FormatUint(uint64(c.Argon2.Iterations), 10),
		"argon2.parallelism":                     strconv.FormatUint(uint64(c.Argon2.Parallelism), 10),
		"owner.email":                            c.Owner.Email,
		"owner.password":                         redact(c.Owner.Password),
		"owner.first_name":                       c.Owner.FirstName,
		"owner.last_name":                        c.Owner.LastName,
	}

	attrs := make([]Attribute, 0, len(attributeKeys))
	for _, k := range attributeKeys {
		attrs = append(attrs, Attribute{Name: k.name, Value: values[k.name], Source: c.Source(k.name)})
	}
	return attrs
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-40s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-40s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-40s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnknownFileKeys lists keys present in the config file that no attribute
// uses, sorted.
func (c *Config) UnknownFileKeys() []string {
	var unknown []string
	for name, src := range c.sources {
		if src != SourceFile {
			continue
		}
		if _, ok := envKey(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func envKey(name string) (string, bool) {
	for _, a := range attributeKeys {
		if a.name == name {
			return a.env, true
		}
	}
	return "", false
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

// redactURL hides the password of a connection URL.
func redactURL(s string) string {
	i := strings.Index(s, "://")
	if i < 0 {
		return s
	}
	rest := s[i+3:]
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return s
	}
	userinfo := rest[:at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		userinfo = userinfo[:colon] + ":" + redacted
	}
	return s[:i+3] + userinfo + rest[at:]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
