package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cayopay/cayopay-identity/pkg/errs"
)

// WebhookIssuer is the issuer of webhook bearer tokens.
const WebhookIssuer = "cayopay-identity"

// WebhookClaims are carried by the bearer token on every webhook call.
type WebhookClaims struct {
	Event string `json:"event"`
	jwt.RegisteredClaims
}

// WebhookPayload is the JSON body posted for an invitation.
type WebhookPayload struct {
	Event       string `json:"event"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	InviterName string `json:"inviter_name"`
	Link        string `json:"link"`
	ExpiresAt   string `json:"expires_at"`
	Subject     string `json:"subject"`
	HTML        string `json:"html"`
}

// WebhookGateway posts invitations to an HTTP endpoint.
type WebhookGateway struct {
	url      string
	secret   []byte
	client   *http.Client
	renderer *Renderer
	now      func() time.Time
}

// NewWebhookGateway builds a gateway posting to cfg.URL and signing with
// cfg.Secret.
func NewWebhookGateway(cfg WebhookConfig, renderer *Renderer, client *http.Client) (*WebhookGateway, error) {
	if cfg.URL == "" || cfg.Secret == "" {
		return nil, errors.New("notify: webhook url and secret are required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookGateway{
		url:      cfg.URL,
		secret:   []byte(cfg.Secret),
		client:   client,
		renderer: renderer,
		now:      time.Now,
	}, nil
}

func (g *WebhookGateway) SendInvitation(ctx context.Context, inv Invitation) error {
	rendered, err := g.renderer.Render(inv)
	if err != nil {
		return errs.Notification(err)
	}

	body, err := json.Marshal(WebhookPayload{
		Event:       "invitation.created",
		Email:       inv.Email,
		Role:        inv.Role.String(),
		InviterName: inv.InviterName,
		Link:        rendered.Link,
		ExpiresAt:   inv.ExpiresAt.UTC().Format(time.RFC3339),
		Subject:     rendered.Subject,
		HTML:        rendered.HTML,
	})
	if err != nil {
		return errs.Notification(err)
	}

	bearer, err := g.sign(inv.Email)
	if err != nil {
		return errs.Notification(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return errs.Notification(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := g.client.Do(req)
	if err != nil {
		return errs.Notification(fmt.Errorf("webhook post: %w", err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.Notification(fmt.Errorf("webhook post: unexpected status %d", resp.StatusCode))
	}
	return nil
}

func (g *WebhookGateway) sign(subject string) (string, error) {
	now := g.now()
	claims := WebhookClaims{
		Event: "invitation.created",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    WebhookIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign webhook token: %w", err)
	}
	return signed, nil
}
