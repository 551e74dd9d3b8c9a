package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cayopay/cayopay-identity/pkg/errs"
)

// WriterGateway prints invitations instead of delivering them.
type WriterGateway struct {
	mu       sync.Mutex
	w        io.Writer
	renderer *Renderer
}

func NewWriterGateway(w io.Writer, renderer *Renderer) *WriterGateway {
	return &WriterGateway{w: w, renderer: renderer}
}

func (g *WriterGateway) SendInvitation(_ context.Context, inv Invitation) error {
	msg, err := g.renderer.Render(inv)
	if err != nil {
		return errs.Notification(err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := fmt.Fprintf(g.w, "To: %s\nSubject: %s\n\n%s\n", msg.To, msg.Subject, msg.Markdown); err != nil {
		return errs.Notification(err)
	}
	return nil
}
