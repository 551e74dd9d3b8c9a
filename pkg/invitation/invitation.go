package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/cayopay/cayopay-identity/pkg/audit"
	"github.com/cayopay/cayopay-identity/pkg/authz"
	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/directory"
	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/notify"
	"github.com/cayopay/cayopay-identity/pkg/role"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// DefaultTTL is how long an invitation stays acceptable.
const DefaultTTL = 7 * 24 * time.Hour

const mintAttempts = 3

// Deps are the collaborators of a Manager. Invites, Directory and Gateway
// are required.
type Deps struct {
	Invites   store.InvitesStore
	Directory *directory.Directory
	Gateway   notify.Gateway
	TTL       time.Duration
	// RollbackOnNotifyFailure deletes an invitation whose notification
	// failed. When false the invitation is kept and can be resent.
	RollbackOnNotifyFailure bool
	Audit                   audit.Recorder
	Logger                  *slog.Logger
	Now                     func() time.Time
}

// Manager runs the invitation lifecycle.
type Manager struct {
	invites  store.InvitesStore
	dir      *directory.Directory
	gateway  notify.Gateway
	ttl      time.Duration
	rollback bool
	audit    audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
	mint     func() (string, error)
}

// New builds a Manager.
func New(deps Deps) (*Manager, error) {
	if deps.Invites == nil || deps.Directory == nil || deps.Gateway == nil {
		return nil, errors.New("invitation: invites, directory and gateway are required")
	}
	m := &Manager{
		invites:  deps.Invites,
		dir:      deps.Directory,
		gateway:  deps.Gateway,
		ttl:      deps.TTL,
		rollback: deps.RollbackOnNotifyFailure,
		audit:    deps.Audit,
		logger:   deps.Logger,
		now:      deps.Now,
		mint:     model.GenerateToken,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.audit == nil {
		m.audit = audit.Discard
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// DisplayName is the name a principal gives when accepting.
type DisplayName struct {
	FirstName string
	LastName  string
}

// Invite creates an invitation for email with role target and sends it. The
// caller needs invite_users and must be allowed to assign target.
//
// If delivery fails the error matches errs.ErrNotification. Unless the
// manager rolls back on notification failure, the stored invitation is
// returned together with that error.
func (m *Manager) Invite(ctx context.Context, gate *authz.Gate, email string, target role.Role) (*model.Invite, error) {
	email = model.NormalizeEmail(email)
	event := audit.InviteEvent{Email: email, Role: target.String(), Operation: audit.InviteCreate}
	if p := gate.Principal(); p != nil {
		event.Actor = p.Email
	}

	invite, err := m.invite(ctx, gate, email, target)
	event.Success = err == nil
	if err != nil {
		event.ErrorMessage = errMessage(err)
	}
	m.audit.Record(event)
	return invite, err
}

func (m *Manager) invite(ctx context.Context, gate *authz.Gate, email string, target role.Role) (*model.Invite, error) {
	if err := gate.Require(role.InviteUsers); err != nil {
		return nil, err
	}
	if err := gate.CanAssign(target); err != nil {
		return nil, err
	}
	inviter := gate.Principal()

	if _, err := m.dir.FindByAddress(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrAlreadyExists, email)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	if err := m.clearStale(ctx, email); err != nil {
		return nil, err
	}

	invite, err := m.create(ctx, inviter.ID, email, target)
	if err != nil {
		return nil, m.internal(ctx, "create", err)
	}

	err = m.gateway.SendInvitation(ctx, notify.Invitation{
		Email:       invite.Email,
		Token:       invite.Token,
		InviterName: inviter.DisplayName(),
		Role:        invite.Role,
		ExpiresAt:   invite.ExpiresAt,
	})
	if err == nil {
		m.logger.InfoContext(ctx, "invitation sent", "invite_id", invite.ID, "role", invite.Role)
		return invite, nil
	}

	err = errs.Notification(err)
	m.logger.ErrorContext(ctx, "invitation: delivery failed", "invite_id", invite.ID, "error", err)
	if !m.rollback {
		return invite, err
	}
	if _, derr := m.invites.Delete(ctx, invite.ID); derr != nil {
		m.logger.ErrorContext(ctx, "invitation: rollback after delivery failure failed", "invite_id", invite.ID, "error", derr)
	}
	return nil, err
}

// clearStale removes an existing invitation for email unless it is still
// pending and unexpired, in which case the address is already invited.
func (m *Manager) clearStale(ctx context.Context, email string) error {
	existing, err := m.invites.FindByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return m.internal(ctx, "lookup", err)
	}
	if existing.IsActive(m.now()) {
		return fmt.Errorf("%w: %s", errs.ErrAlreadyInvited, email)
	}
	if _, err := m.invites.Delete(ctx, existing.ID); err != nil {
		return m.internal(ctx, "replace", err)
	}
	if existing.IsPending() {
		m.recordExpired(existing)
	}
	return nil
}

func (m *Manager) create(ctx context.Context, inviter uuid.UUID, email string, target role.Role) (*model.Invite, error) {
	var invite *model.Invite
	backoff := retry.WithMaxRetries(mintAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		token, err := m.mint()
		if err != nil {
			return errs.Storage(fmt.Errorf("mint invitation token: %w", err))
		}
		now := m.now()
		inv := &model.Invite{
			InvitedBy: inviter,
			Email:     email,
			Token:     token,
			Role:      target,
			Status:    model.InvitePending,
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		}
		if err := m.invites.Create(ctx, inv); err != nil {
			if errors.Is(err, store.ErrDuplicateToken) {
				return retry.RetryableError(err)
			}
			return err
		}
		invite = inv
		return nil
	})
	if errors.Is(err, store.ErrDuplicateToken) {
		return nil, errs.Storage(fmt.Errorf("invitation token collision: %w", err))
	}
	return invite, err
}

// Accept registers a principal from the invitation behind token and
// consumes it. The invitation is deleted before the principal is written,
// so of two concurrent accepts the later one finds nothing to consume.
func (m *Manager) Accept(ctx context.Context, token string, secret credential.Secret, name DisplayName) (*model.User, error) {
	invite, err := m.lookup(ctx, token)
	if err != nil {
		m.recordOutcome(audit.InviteAccept, nil, err)
		return nil, err
	}

	user, err := m.dir.Register(ctx, directory.RegisterParams{
		Email:     invite.Email,
		Secret:    secret,
		FirstName: name.FirstName,
		LastName:  name.LastName,
		Role:      invite.Role,
		Source:    directory.SourceInvite,
	}, directory.Before(func(ctx context.Context, tx store.Tx) error {
		deleted, err := tx.Invites().Delete(ctx, invite.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return errs.ErrNotFound
		}
		return nil
	}))
	if errors.Is(err, errs.ErrAlreadyExists) && m.consumed(ctx, invite.ID) {
		err = errs.ErrNotFound
	}
	m.recordOutcome(audit.InviteAccept, invite, err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// consumed reports whether the invitation id is gone, meaning a concurrent
// accept registered its address first.
func (m *Manager) consumed(ctx context.Context, id uuid.UUID) bool {
	_, err := m.invites.FindByID(ctx, id)
	return errors.Is(err, errs.ErrNotFound)
}

// Decline marks the invitation behind token as declined.
func (m *Manager) Decline(ctx context.Context, token string) error {
	invite, err := m.lookup(ctx, token)
	if err == nil {
		err = m.invites.UpdateStatus(ctx, invite.ID, model.InviteDeclined)
		err = m.internal(ctx, "decline", err)
	}
	m.recordOutcome(audit.InviteDecline, invite, err)
	return err
}

// Revoke marks a pending invitation as revoked. Requires invite_users.
func (m *Manager) Revoke(ctx context.Context, gate *authz.Gate, id uuid.UUID) error {
	event := audit.InviteEvent{Operation: audit.InviteRevoke}
	if p := gate.Principal(); p != nil {
		event.Actor = p.Email
	}

	err := gate.Require(role.InviteUsers)
	if err == nil {
		var invite *model.Invite
		invite, err = m.invites.FindByID(ctx, id)
		if err == nil {
			event.Email = invite.Email
			event.Role = invite.Role.String()
			err = m.invites.UpdateStatus(ctx, id, model.InviteRevoked)
		}
		err = m.internal(ctx, "revoke", err)
	}

	event.Success = err == nil
	if err != nil {
		event.ErrorMessage = errMessage(err)
	}
	m.audit.Record(event)
	return err
}

// List returns every stored invitation. Requires invite_users.
func (m *Manager) List(ctx context.Context, gate *authz.Gate) ([]model.Invite, error) {
	if err := gate.Require(role.InviteUsers); err != nil {
		return nil, err
	}
	invites, err := m.invites.List(ctx)
	if err != nil {
		return nil, m.internal(ctx, "list", err)
	}
	return invites, nil
}

// lookup returns the pending, unexpired invitation behind token. An expired
// invitation is deleted and reported as errs.ErrExpired.
func (m *Manager) lookup(ctx context.Context, token string) (*model.Invite, error) {
	if token == "" {
		return nil, errs.ErrNotFound
	}
	invite, err := m.invites.FindByToken(ctx, token)
	if err != nil {
		return nil, m.internal(ctx, "lookup", err)
	}
	if !invite.IsPending() {
		return nil, errs.ErrNotFound
	}
	if invite.IsExpired(m.now()) {
		deleted, err := m.invites.Delete(ctx, invite.ID)
		if err != nil {
			m.logger.WarnContext(ctx, "invitation: delete expired failed", "invite_id", invite.ID, "error", err)
		} else if deleted {
			m.recordExpired(invite)
		}
		return nil, errs.ErrExpired
	}
	return invite, nil
}

func (m *Manager) recordExpired(invite *model.Invite) {
	m.audit.Record(audit.InviteEvent{
		Email:     invite.Email,
		Role:      invite.Role.String(),
		Operation: audit.InviteExpire,
		Success:   true,
	})
}

func (m *Manager) recordOutcome(op string, invite *model.Invite, err error) {
	event := audit.InviteEvent{Operation: op, Success: err == nil}
	if invite != nil {
		event.Actor = invite.Email
		event.Email = invite.Email
		event.Role = invite.Role.String()
	}
	if err != nil {
		event.ErrorMessage = errMessage(err)
	}
	m.audit.Record(event)
}

func (m *Manager) internal(ctx context.Context, op string, err error) error {
	if err != nil && errs.Internal(err) {
		m.logger.ErrorContext(ctx, "invitation: "+op+" failed", "error", err)
	}
	return err
}

func errMessage(err error) string {
	if k := errs.Kind(err); k != nil {
		return k.Error()
	}
	return err.Error()
}
