package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cayopay/cayopay-identity/pkg/role"
)

// Invitation is what a gateway needs to tell someone they were invited.
type Invitation struct {
	Email       string
	Token       string
	InviterName string
	Role        role.Role
	ExpiresAt   time.Time
}

// Gateway delivers invitations.
type Gateway interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}

// Drivers accepted by New.
const (
	DriverSMTP    = "smtp"
	DriverWebhook = "webhook"
	DriverWriter  = "stdout"
)

// SMTPConfig configures the smtp driver.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SSL dials with implicit TLS instead of opportunistic STARTTLS.
	SSL bool
}

// WebhookConfig configures the webhook driver.
type WebhookConfig struct {
	URL    string
	Secret string
}

// Config selects and configures a driver.
type Config struct {
	Driver    string
	AcceptURL string
	SMTP      SMTPConfig
	Webhook   WebhookConfig
}

// New returns the gateway for cfg.Driver. The writer driver prints to out.
func New(cfg Config, out io.Writer) (Gateway, error) {
	renderer := NewRenderer(cfg.AcceptURL)
	switch cfg.Driver {
	case DriverSMTP:
		return NewSMTPGateway(cfg.SMTP, renderer)
	case DriverWebhook:
		return NewWebhookGateway(cfg.Webhook, renderer, http.DefaultClient)
	case DriverWriter, "":
		return NewWriterGateway(out, renderer), nil
	default:
		return nil, fmt.Errorf("notify: unknown driver %q", cfg.Driver)
	}
}
