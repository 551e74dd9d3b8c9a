package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/cayopay/cayopay-identity/pkg/errs"
)

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPGateway sends invitations as multipart email.
type SMTPGateway struct {
	from     string
	sender   mailSender
	renderer *Renderer
}

// NewSMTPGateway builds a gateway for cfg. Authentication is used when a
// username is set.
func NewSMTPGateway(cfg SMTPConfig, renderer *Renderer) (*SMTPGateway, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("notify: smtp host and from are required")
	}

	opts := []mail.Option{}
	if cfg.Port != 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp client: %w", err)
	}
	return &SMTPGateway{from: cfg.From, sender: client, renderer: renderer}, nil
}

func (g *SMTPGateway) SendInvitation(ctx context.Context, inv Invitation) error {
	msg, err := g.message(inv)
	if err != nil {
		return errs.Notification(err)
	}
	if err := g.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return errs.Notification(fmt.Errorf("smtp send to %s: %w", inv.Email, err))
	}
	return nil
}

func (g *SMTPGateway) message(inv Invitation) (*mail.Msg, error) {
	rendered, err := g.renderer.Render(inv)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(g.from); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(rendered.To); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(rendered.Subject)
	msg.SetBodyString(mail.TypeTextPlain, rendered.Markdown)
	msg.AddAlternativeString(mail.TypeTextHTML, rendered.HTML)
	return msg, nil
}
