package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/role"
)

// ErrDuplicateToken is returned when a token hash collides with a stored one.
var ErrDuplicateToken = errors.New("duplicate token")

// ActorsStore persists identity anchors.
type ActorsStore interface {
	// Create inserts an actor, assigning its ID if unset
	Create(ctx context.Context, actor *model.Actor) error

	// Count returns the number of actors
	Count(ctx context.Context) (int64, error)

	// List returns all actors ordered by creation
	List(ctx context.Context) ([]model.Actor, error)

	// FindByID returns the actor with the given ID
	FindByID(ctx context.Context, id uuid.UUID) (*model.Actor, error)

	// Delete removes an actor and reports whether a row was removed
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// UsersStore persists principals.
type UsersStore interface {
	// Create inserts a user; a taken email fails with errs.ErrAlreadyExists
	Create(ctx context.Context, user *model.User) error

	// FindByEmail returns the user with the given email
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID returns the user with the given ID
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// List returns all users ordered by creation
	List(ctx context.Context) ([]model.User, error)

	// UpdateRole changes a user's role
	UpdateRole(ctx context.Context, id uuid.UUID, r role.Role) error

	// LockByRole locks the rows of every user holding r until the
	// surrounding transaction ends and returns their IDs in ID order
	LockByRole(ctx context.Context, r role.Role) ([]uuid.UUID, error)

	// FindByActorID returns the user anchored at actorID
	FindByActorID(ctx context.Context, actorID uuid.UUID) (*model.User, error)

	// Delete removes a user and reports whether a row was removed
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// SessionsStore persists sessions by token hash.
type SessionsStore interface {
	// Create inserts a session; a colliding token fails with ErrDuplicateToken
	Create(ctx context.Context, session *model.Session) error

	// FindByToken hashes the plaintext token and returns the matching session
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// Delete removes a session by ID; deleting a missing row is not an error
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByToken removes the session for a plaintext token, if any
	DeleteByToken(ctx context.Context, token string) error

	// ListByUser returns the sessions of a user, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error)

	// DeleteByUser removes every session of a user
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteExpired removes sessions whose expiry is at or before now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// InvitesStore persists invitations by token hash.
type InvitesStore interface {
	// Create inserts an invite; an address that already has one fails with errs.ErrAlreadyInvited
	Create(ctx context.Context, invite *model.Invite) error

	// FindByToken hashes the plaintext token and returns the matching invite
	FindByToken(ctx context.Context, token string) (*model.Invite, error)

	// FindByEmail returns the invite addressed to email
	FindByEmail(ctx context.Context, email string) (*model.Invite, error)

	// FindByID returns the invite with the given ID
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invite, error)

	// Delete removes an invite and reports whether a row was removed
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// UpdateStatus moves a pending invite to status; a non-pending or missing invite fails with errs.ErrNotFound
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.InviteStatus) error

	// List returns all invites, newest first
	List(ctx context.Context) ([]model.Invite, error)

	// DeleteByInviter removes every invite sent by userID
	DeleteByInviter(ctx context.Context, userID uuid.UUID) (int64, error)
}

// WalletsStore persists the accounts opened at registration.
type WalletsStore interface {
	// Create inserts a wallet
	Create(ctx context.Context, wallet *model.Wallet) error

	// ListByOwner returns the wallets owned by an actor
	ListByOwner(ctx context.Context, actorID uuid.UUID) ([]model.Wallet, error)

	// DeleteByOwner removes the wallets owned by an actor
	DeleteByOwner(ctx context.Context, actorID uuid.UUID) (int64, error)
}

// Tx exposes stores bound to a single transaction.
type Tx interface {
	Actors() ActorsStore
	Users() UsersStore
	Wallets() WalletsStore
	Invites() InvitesStore
	Sessions() SessionsStore
}

// Transactor runs fn inside a transaction. The transaction commits if fn
// returns nil and rolls back otherwise; fn's error is returned unchanged.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// HealthStore checks database connectivity.
type HealthStore interface {
	// Ping checks if the database is reachable
	Ping(ctx context.Context) error
}
