package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/cayopay/cayopay-identity/pkg/audit"
	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// DefaultTTL is the lifetime of a login session.
const DefaultTTL = 24 * time.Hour

// mintAttempts bounds how many fresh tokens Issue tries after hash collisions.
const mintAttempts = 3

// ErrTokenCollision is returned when every minted token collided with a
// stored one. It is a storage failure.
var ErrTokenCollision = fmt.Errorf("%w: session token collision", errs.ErrStorage)

// Authenticator checks an address and secret and returns the principal.
type Authenticator interface {
	Authenticate(ctx context.Context, email string, secret credential.Secret) (*model.User, error)
}

// ClientMeta is optional information about the client a session is issued to.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// Deps are the collaborators of a Manager. Sessions and Users are required.
type Deps struct {
	Sessions      store.SessionsStore
	Users         store.UsersStore
	Authenticator Authenticator
	TTL           time.Duration
	Audit         audit.Recorder
	Logger        *slog.Logger
	Now           func() time.Time
}

// Manager issues, validates and revokes sessions.
type Manager struct {
	sessions store.SessionsStore
	users    store.UsersStore
	authn    Authenticator
	ttl      time.Duration
	audit    audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
	mint     func() (string, error)
}

// New builds a Manager.
func New(deps Deps) (*Manager, error) {
	if deps.Sessions == nil || deps.Users == nil {
		return nil, errors.New("session: sessions and users stores are required")
	}
	m := &Manager{
		sessions: deps.Sessions,
		users:    deps.Users,
		authn:    deps.Authenticator,
		ttl:      deps.TTL,
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

// TTL is the lifetime Login issues sessions with.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a session for userID valid for d from now. The plaintext
// token is set on the returned Session and is not retrievable afterwards.
func (m *Manager) Issue(ctx context.Context, userID uuid.UUID, d time.Duration, meta ClientMeta) (*model.Session, error) {
	if d <= 0 {
		return nil, fmt.Errorf("session: non-positive duration %s", d)
	}

	var session *model.Session
	backoff := retry.WithMaxRetries(mintAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		token, err := m.mint()
		if err != nil {
			return errs.Storage(fmt.Errorf("mint session token: %w", err))
		}

		issued := m.now()
		s := &model.Session{
			UserID:    userID,
			Token:     token,
			IssuedAt:  issued,
			ExpiresAt: issued.Add(d),
			UserAgent: optional(meta.UserAgent),
			IPAddress: optional(meta.IPAddress),
		}
		if err := m.sessions.Create(ctx, s); err != nil {
			if errors.Is(err, store.ErrDuplicateToken) {
				return retry.RetryableError(err)
			}
			return err
		}
		session = s
		return nil
	})
	if errors.Is(err, store.ErrDuplicateToken) {
		err = ErrTokenCollision
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "session: issue failed", "user_id", userID, "error", err)
		return nil, err
	}

	m.audit.Record(audit.SessionEvent{
		UserID:    userID.String(),
		SessionID: session.ID.String(),
		Operation: audit.SessionIssue,
		ClientIP:  meta.IPAddress,
	})
	return session, nil
}

// Validate resolves token to its principal. Unknown and expired tokens fail
// with errs.ErrUnauthenticated; an expired session is deleted.
func (m *Manager) Validate(ctx context.Context, token string) (*model.User, error) {
	_, user, err := m.Resolve(ctx, token)
	return user, err
}

// Resolve is Validate that also returns the session.
func (m *Manager) Resolve(ctx context.Context, token string) (*model.Session, *model.User, error) {
	if token == "" {
		return nil, nil, errs.ErrUnauthenticated
	}

	session, err := m.sessions.FindByToken(ctx, token)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, errs.ErrUnauthenticated
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "session: lookup failed", "error", err)
		return nil, nil, err
	}

	if session.IsExpired(m.now()) {
		m.expire(ctx, session)
		return nil, nil, errs.ErrUnauthenticated
	}

	user, err := m.users.FindByID(ctx, session.UserID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, errs.ErrUnauthenticated
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "session: principal lookup failed", "session_id", session.ID, "error", err)
		return nil, nil, err
	}
	return session, user, nil
}

// Revoke deletes the session for token. Revoking an unknown token succeeds.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	session, err := m.sessions.FindByToken(ctx, token)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "session: revoke lookup failed", "error", err)
		return err
	}
	if err := m.sessions.Delete(ctx, session.ID); err != nil {
		m.logger.ErrorContext(ctx, "session: revoke failed", "session_id", session.ID, "error", err)
		return err
	}
	m.audit.Record(audit.SessionEvent{
		UserID:    session.UserID.String(),
		SessionID: session.ID.String(),
		Operation: audit.SessionRevoke,
	})
	return nil
}

// Login authenticates email and secret and issues a session with the
// configured TTL.
func (m *Manager) Login(ctx context.Context, email string, secret credential.Secret, meta ClientMeta) (*model.Session, *model.User, error) {
	if m.authn == nil {
		return nil, nil, errors.New("session: no authenticator configured")
	}
	user, err := m.authn.Authenticate(ctx, email, secret)
	m.audit.Record(audit.AuthenticateEvent{
		User:              model.NormalizeEmail(email),
		ClientIP:          meta.IPAddress,
		AuthenticatorName: "password",
		Success:           err == nil,
		ErrorMessage:      errMessage(err),
	})
	if err != nil {
		return nil, nil, err
	}

	session, err := m.Issue(ctx, user.ID, m.ttl, meta)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// ListForUser returns the active sessions of a user. Expired sessions found
// along the way are deleted.
func (m *Manager) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	all, err := m.sessions.ListByUser(ctx, userID)
	if err != nil {
		m.logger.ErrorContext(ctx, "session: list failed", "user_id", userID, "error", err)
		return nil, err
	}
	now := m.now()
	active := make([]model.Session, 0, len(all))
	for i := range all {
		if all[i].IsExpired(now) {
			m.expire(ctx, &all[i])
			continue
		}
		active = append(active, all[i])
	}
	return active, nil
}

// RevokeAllForUser deletes every session of a user and returns how many
// were removed.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := m.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		m.logger.ErrorContext(ctx, "session: revoke all failed", "user_id", userID, "error", err)
		return 0, err
	}
	return n, nil
}

// PurgeExpired deletes every session that is expired now.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		m.logger.ErrorContext(ctx, "session: purge failed", "error", err)
		return 0, err
	}
	if n > 0 {
		m.logger.InfoContext(ctx, "expired sessions purged", "count", n)
	}
	return n, nil
}

// expire deletes an expired session. A failed delete is logged; the caller
// still treats the session as gone.
func (m *Manager) expire(ctx context.Context, session *model.Session) {
	if err := m.sessions.Delete(ctx, session.ID); err != nil {
		m.logger.WarnContext(ctx, "session: delete expired failed", "session_id", session.ID, "error", err)
		return
	}
	m.audit.Record(audit.SessionEvent{
		UserID:    session.UserID.String(),
		SessionID: session.ID.String(),
		Operation: audit.SessionExpire,
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	if k := errs.Kind(err); k != nil {
		return k.Error()
	}
	return err.Error()
}
