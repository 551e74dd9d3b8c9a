package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cayopay/cayopay-identity/pkg/audit"
	"github.com/cayopay/cayopay-identity/pkg/authz"
	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/role"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// Registration sources recorded in the audit trail.
const (
	SourceInvite    = "invite"
	SourceBootstrap = "bootstrap"
)

// Deps are the collaborators of a Directory. Users, Transactor and Hasher
// are required.
type Deps struct {
	Users      store.UsersStore
	Transactor store.Transactor
	Hasher     credential.Hasher
	Accounts   AccountOpener
	Roles      *role.Model
	Audit      audit.Recorder
	Logger     *slog.Logger
}

// Directory creates, finds and authenticates principals.
type Directory struct {
	users     store.UsersStore
	tx        store.Transactor
	hasher    credential.Hasher
	accounts  AccountOpener
	roles     *role.Model
	audit     audit.Recorder
	logger    *slog.Logger
	dummyHash string
}

// New builds a Directory. It hashes a throwaway secret up front so that
// Authenticate can spend the same work on unknown addresses.
func New(deps Deps) (*Directory, error) {
	if deps.Users == nil || deps.Transactor == nil || deps.Hasher == nil {
		return nil, errors.New("directory: users, transactor and hasher are required")
	}
	d := &Directory{
		users:    deps.Users,
		tx:       deps.Transactor,
		hasher:   deps.Hasher,
		accounts: deps.Accounts,
		roles:    deps.Roles,
		audit:    deps.Audit,
		logger:   deps.Logger,
	}
	if d.accounts == nil {
		d.accounts = WalletOpener{}
	}
	if d.roles == nil {
		d.roles = role.Default
	}
	if d.audit == nil {
		d.audit = audit.Discard
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}

	secret, err := model.GenerateToken()
	if err != nil {
		return nil, errs.Hashing(err)
	}
	d.dummyHash, err = d.hasher.Hash(credential.NewSecret(secret))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// RegisterParams describe a principal to create. Inputs are expected to be
// validated by the caller.
type RegisterParams struct {
	Email     string
	Secret    credential.Secret
	FirstName string
	LastName  string
	Role      role.Role
	Source    string
}

type registerOptions struct {
	before []func(ctx context.Context, tx store.Tx) error
	within []func(ctx context.Context, tx store.Tx, user *model.User) error
}

// RegisterOption customises a registration.
type RegisterOption func(*registerOptions)

// Before runs fn inside the registration transaction before anything is
// written. An error from fn aborts the registration.
func Before(fn func(ctx context.Context, tx store.Tx) error) RegisterOption {
	return func(o *registerOptions) {
		o.before = append(o.before, fn)
	}
}

// Within runs fn inside the registration transaction after the anchor, user
// and account exist. An error from fn rolls everything back.
func Within(fn func(ctx context.Context, tx store.Tx, user *model.User) error) RegisterOption {
	return func(o *registerOptions) {
		o.within = append(o.within, fn)
	}
}

// FindByAddress returns the principal registered under email.
func (d *Directory) FindByAddress(ctx context.Context, email string) (*model.User, error) {
	user, err := d.users.FindByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		return nil, d.internal(ctx, "find by address", err)
	}
	return user, nil
}

// FindByID returns the principal with the given ID.
func (d *Directory) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := d.users.FindByID(ctx, id)
	if err != nil {
		return nil, d.internal(ctx, "find by id", err)
	}
	return user, nil
}

// Register creates the anchor, the principal and its account atomically.
func (d *Directory) Register(ctx context.Context, p RegisterParams, opts ...RegisterOption) (*model.User, error) {
	if !p.Role.Valid() {
		return nil, fmt.Errorf("register: %w: %q", role.ErrUnknownRole, p.Role)
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	email := model.NormalizeEmail(p.Email)

	// The unique index is the authority; this only avoids hashing for a known conflict.
	if _, err := d.users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrAlreadyExists, email)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, d.internal(ctx, "register", err)
	}

	hash, err := d.hasher.Hash(p.Secret)
	if err != nil {
		return nil, d.internal(ctx, "register", err)
	}

	var user *model.User
	err = d.tx.InTx(ctx, func(tx store.Tx) error {
		for _, fn := range o.before {
			if err := fn(ctx, tx); err != nil {
				return err
			}
		}

		actor := &model.Actor{}
		if err := tx.Actors().Create(ctx, actor); err != nil {
			return err
		}

		u := &model.User{
			ActorID:      actor.ID,
			Email:        email,
			PasswordHash: hash,
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			Role:         p.Role,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}

		if _, err := d.accounts.OpenAccount(ctx, tx, actor.ID); err != nil {
			return err
		}

		for _, fn := range o.within {
			if err := fn(ctx, tx, u); err != nil {
				return err
			}
		}

		user = u
		return nil
	})
	if err != nil {
		return nil, d.internal(ctx, "register", err)
	}

	d.audit.Record(audit.RegisterEvent{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role.String(),
		Source: p.Source,
	})
	d.logger.InfoContext(ctx, "principal registered", "user_id", user.ID, "role", user.Role, "source", p.Source)
	return user, nil
}

// Authenticate returns the principal for email if secret matches. Unknown
// addresses and wrong secrets both fail with errs.ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, email string, secret credential.Secret) (*model.User, error) {
	user, err := d.users.FindByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, errs.ErrNotFound) {
		_, _ = d.hasher.Verify(d.dummyHash, secret)
		return nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, d.internal(ctx, "authenticate", err)
	}

	ok, err := d.hasher.Verify(user.PasswordHash, secret)
	if err != nil {
		return nil, d.internal(ctx, "authenticate", fmt.Errorf("user %s: %w", user.ID, err))
	}
	if !ok {
		return nil, errs.ErrInvalidCredentials
	}
	return user, nil
}

// List returns every principal. Requires view_all_actors.
func (d *Directory) List(ctx context.Context, gate *authz.Gate) ([]model.User, error) {
	if err := gate.Require(role.ViewAllActors); err != nil {
		return nil, err
	}
	users, err := d.users.List(ctx)
	if err != nil {
		return nil, d.internal(ctx, "list", err)
	}
	return users, nil
}

// Get returns a principal. A principal may always read itself; anyone else
// needs view_all_actors.
func (d *Directory) Get(ctx context.Context, gate *authz.Gate, id uuid.UUID) (*model.User, error) {
	if p := gate.Principal(); p == nil || p.ID != id {
		if err := gate.Require(role.ViewAllActors); err != nil {
			return nil, err
		}
	}
	return d.FindByID(ctx, id)
}

// UpdateRole changes the role of the principal id. The caller needs
// configure_settings and must be allowed to assign target. The last owner
// cannot be demoted.
func (d *Directory) UpdateRole(ctx context.Context, gate *authz.Gate, id uuid.UUID, target role.Role) (*model.User, error) {
	event := audit.RoleUpdateEvent{Target: id.String(), To: target.String()}
	if p := gate.Principal(); p != nil {
		event.Actor = p.Email
	}

	user, err := d.updateRole(ctx, gate, id, target, &event)
	event.Success = err == nil
	if err != nil {
		event.ErrorMessage = errorKind(err)
	}
	d.audit.Record(event)
	return user, err
}

func (d *Directory) updateRole(ctx context.Context, gate *authz.Gate, id uuid.UUID, target role.Role, event *audit.RoleUpdateEvent) (*model.User, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("update role: %w: %q", role.ErrUnknownRole, target)
	}
	if err := gate.Require(role.ConfigureSettings); err != nil {
		return nil, err
	}
	if err := gate.CanAssign(target); err != nil {
		return nil, err
	}

	var (
		user    *model.User
		revoked int64
	)
	err := d.tx.InTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().FindByID(ctx, id)
		if err != nil {
			return err
		}
		event.Target = u.Email
		event.From = u.Role.String()
		user = u

		if u.Role == target {
			return nil
		}
		if u.Role == role.Owner {
			if err := keepsAnOwner(ctx, tx, u.ID); err != nil {
				return err
			}
		}
		if err := tx.Users().UpdateRole(ctx, id, target); err != nil {
			return err
		}
		u.Role = target

		revoked, err = tx.Sessions().DeleteByUser(ctx, id)
		return err
	})
	if err != nil {
		return nil, d.internal(ctx, "update role", err)
	}
	if revoked > 0 {
		d.logger.InfoContext(ctx, "sessions revoked after role change", "user_id", id, "count", revoked)
	}
	return user, nil
}

// keepsAnOwner locks every owner row for the rest of tx and fails unless an
// owner other than id remains. Concurrent demotions queue on the locks, so
// the later one sees the earlier one's result.
func keepsAnOwner(ctx context.Context, tx store.Tx, id uuid.UUID) error {
	owners, err := tx.Users().LockByRole(ctx, role.Owner)
	if err != nil {
		return err
	}
	for _, o := range owners {
		if o != id {
			return nil
		}
	}
	return fmt.Errorf("%w: the last owner must remain", errs.ErrForbidden)
}

// ListActors returns every actor with its principal. Requires view_all_actors.
func (d *Directory) ListActors(ctx context.Context, gate *authz.Gate) ([]model.ActorDetails, error) {
	if err := gate.Require(role.ViewAllActors); err != nil {
		return nil, err
	}

	var details []model.ActorDetails
	err := d.tx.InTx(ctx, func(tx store.Tx) error {
		actors, err := tx.Actors().List(ctx)
		if err != nil {
			return err
		}
		users, err := tx.Users().List(ctx)
		if err != nil {
			return err
		}
		byActor := make(map[uuid.UUID]*model.User, len(users))
		for i := range users {
			byActor[users[i].ActorID] = &users[i]
		}
		details = make([]model.ActorDetails, 0, len(actors))
		for _, a := range actors {
			details = append(details, model.ActorDetails{Actor: a, User: byActor[a.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, d.internal(ctx, "list actors", err)
	}
	return details, nil
}

// GetActor returns one actor with its principal. Requires view_all_actors.
func (d *Directory) GetActor(ctx context.Context, gate *authz.Gate, actorID uuid.UUID) (*model.ActorDetails, error) {
	if err := gate.Require(role.ViewAllActors); err != nil {
		return nil, err
	}

	var details *model.ActorDetails
	err := d.tx.InTx(ctx, func(tx store.Tx) error {
		actor, err := tx.Actors().FindByID(ctx, actorID)
		if err != nil {
			return err
		}
		details = &model.ActorDetails{Actor: *actor}
		user, err := tx.Users().FindByActorID(ctx, actorID)
		switch {
		case err == nil:
			details.User = user
		case !errors.Is(err, errs.ErrNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, d.internal(ctx, "get actor", err)
	}
	return details, nil
}

// Remove deletes an actor together with its principal, sessions, sent
// invitations and accounts. Requires configure_settings. The last owner
// cannot be removed.
func (d *Directory) Remove(ctx context.Context, gate *authz.Gate, actorID uuid.UUID) error {
	event := audit.RemoveEvent{ActorID: actorID.String()}
	if p := gate.Principal(); p != nil {
		event.Actor = p.Email
	}

	err := d.remove(ctx, gate, actorID, &event)
	event.Success = err == nil
	if err != nil {
		event.ErrorMessage = errorKind(err)
	}
	d.audit.Record(event)
	if err == nil {
		d.logger.InfoContext(ctx, "actor removed", "actor_id", actorID)
	}
	return err
}

func (d *Directory) remove(ctx context.Context, gate *authz.Gate, actorID uuid.UUID, event *audit.RemoveEvent) error {
	if err := gate.Require(role.ConfigureSettings); err != nil {
		return err
	}

	err := d.tx.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Actors().FindByID(ctx, actorID); err != nil {
			return err
		}

		user, err := tx.Users().FindByActorID(ctx, actorID)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			user = nil
		case err != nil:
			return err
		}

		if user != nil {
			event.Email = user.Email
			if user.Role == role.Owner {
				if err := keepsAnOwner(ctx, tx, user.ID); err != nil {
					return err
				}
			}
			if _, err := tx.Sessions().DeleteByUser(ctx, user.ID); err != nil {
				return err
			}
			if _, err := tx.Invites().DeleteByInviter(ctx, user.ID); err != nil {
				return err
			}
			if _, err := tx.Users().Delete(ctx, user.ID); err != nil {
				return err
			}
		}

		if _, err := tx.Wallets().DeleteByOwner(ctx, actorID); err != nil {
			return err
		}
		removed, err := tx.Actors().Delete(ctx, actorID)
		if err != nil {
			return err
		}
		if !removed {
			return errs.ErrNotFound
		}
		return nil
	})
	return d.internal(ctx, "remove", err)
}

// BootstrapParams describe the initial owner.
type BootstrapParams struct {
	Email     string
	Secret    credential.Secret
	FirstName string
	LastName  string
}

// Bootstrap registers the initial owner unless the address is already
// registered. It reports whether a principal was created.
func (d *Directory) Bootstrap(ctx context.Context, p BootstrapParams) (*model.User, bool, error) {
	existing, err := d.FindByAddress(ctx, p.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, false, err
	}

	user, err := d.Register(ctx, RegisterParams{
		Email:     p.Email,
		Secret:    p.Secret,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      role.Owner,
		Source:    SourceBootstrap,
	})
	if errors.Is(err, errs.ErrAlreadyExists) {
		existing, ferr := d.FindByAddress(ctx, p.Email)
		return existing, false, ferr
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// internal logs storage and hashing failures with their detail and returns
// err unchanged.
func (d *Directory) internal(ctx context.Context, op string, err error) error {
	if errs.Internal(err) {
		d.logger.ErrorContext(ctx, "directory: "+op+" failed", "error", err)
	}
	return err
}

func errorKind(err error) string {
	if k := errs.Kind(err); k != nil {
		return k.Error()
	}
	return err.Error()
}
