package notify

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/yuin/goldmark"
)

// Subject is the subject line of every invitation.
const Subject = "You have been invited to CayoPay"

const invitationTemplate = `# {{ .Subject }}

**{{ .InviterName }}** has invited you to join CayoPay as **{{ .Role }}**.

[Accept the invitation]({{ .Link }})

If the link does not work, paste this address into your browser:

    {{ .Link }}

This invitation expires on {{ .Expires }}. If you were not expecting it, you can ignore this message.
`

var tmpl = template.Must(template.New("invitation").Parse(invitationTemplate))

// Message is a rendered invitation.
type Message struct {
	To       string
	Subject  string
	Link     string
	Markdown string
	HTML     string
}

// Renderer turns invitations into messages.
type Renderer struct {
	acceptURL string
	md        goldmark.Markdown
}

// NewRenderer returns a Renderer that links to acceptURL with the token
// appended as a path segment. An empty acceptURL links to the bare token.
func NewRenderer(acceptURL string) *Renderer {
	return &Renderer{acceptURL: acceptURL, md: goldmark.New()}
}

// Link returns the accept link for token.
func (r *Renderer) Link(token string) string {
	if r.acceptURL == "" {
		return token
	}
	return strings.TrimSuffix(r.acceptURL, "/") + "/" + url.PathEscape(token)
}

// Render produces the Markdown and HTML bodies for inv.
func (r *Renderer) Render(inv Invitation) (Message, error) {
	inviter := inv.InviterName
	if strings.TrimSpace(inviter) == "" {
		inviter = "A CayoPay administrator"
	}

	var md bytes.Buffer
	err := tmpl.Execute(&md, map[string]string{
		"Subject":     Subject,
		"InviterName": inviter,
		"Role":        inv.Role.String(),
		"Link":        r.Link(inv.Token),
		"Expires":     inv.ExpiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render invitation: %w", err)
	}

	var html bytes.Buffer
	if err := r.md.Convert(md.Bytes(), &html); err != nil {
		return Message{}, fmt.Errorf("render invitation html: %w", err)
	}

	return Message{
		To:       inv.Email,
		Subject:  Subject,
		Link:     r.Link(inv.Token),
		Markdown: md.String(),
		HTML:     html.String(),
	}, nil
}
