package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/role"
	"github.com/cayopay/cayopay-identity/pkg/store"
	"github.com/cayopay/cayopay-identity/pkg/store/gorm/gormtest"
)

func newUser(t *testing.T, s *UsersStore, email string, r role.Role) *model.User {
	t.Helper()
	u := &model.User{
		ActorID:      uuid.New(),
		Email:        email,
		PasswordHash: "$argon2id$stub",
		FirstName:    "Test",
		LastName:     "User",
		Role:         r,
	}
	require.NoError(t, s.Create(context.Background(), u))
	return u
}

func TestUsersStore(t *testing.T) {
	ctx := context.Background()
	db := gormtest.Open(t)
	users := NewUsersStore(db)

	alice := newUser(t, users, "alice@example.com", role.Owner)
	assert.NotEqual(t, uuid.Nil, alice.ID)

	t.Run("duplicate email", func(t *testing.T) {
		err := users.Create(ctx, &model.User{ActorID: uuid.New(), Email: "alice@example.com", Role: role.Admin})
		assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	})

	t.Run("find", func(t *testing.T) {
		got, err := users.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, role.Owner, got.Role)

		got, err = users.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)

		_, err = users.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, errs.ErrNotFound)
		_, err = users.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("update role", func(t *testing.T) {
		bob := newUser(t, users, "bob@example.com", role.Admin)
		require.NoError(t, users.UpdateRole(ctx, bob.ID, role.Owner))

		owners, err := users.LockByRole(ctx, role.Owner)
		require.NoError(t, err)
		assert.Len(t, owners, 2)

		assert.ErrorIs(t, users.UpdateRole(ctx, uuid.New(), role.Admin), errs.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		list, err := users.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("lock by role", func(t *testing.T) {
		ids, err := users.LockByRole(ctx, role.Owner)
		require.NoError(t, err)
		assert.Len(t, ids, 2)
		assert.Contains(t, ids, alice.ID)

		ids, err = users.LockByRole(ctx, role.Undefined)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("find by actor and delete", func(t *testing.T) {
		carol := newUser(t, users, "carol@example.com", role.Admin)

		got, err := users.FindByActorID(ctx, carol.ActorID)
		require.NoError(t, err)
		assert.Equal(t, carol.ID, got.ID)

		removed, err := users.Delete(ctx, carol.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = users.Delete(ctx, carol.ID)
		require.NoError(t, err)
		assert.False(t, removed)

		_, err = users.FindByActorID(ctx, carol.ActorID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("unknown stored role fails loudly", func(t *testing.T) {
		require.NoError(t, db.Exec(
			`INSERT INTO users (id, actor_id, email, password_hash, first_name, last_name, role) VALUES (?, ?, ?, '', '', '', 'superuser')`,
			uuid.NewString(), uuid.NewString(), "mallory@example.com",
		).Error)

		_, err := users.FindByEmail(ctx, "mallory@example.com")
		assert.ErrorIs(t, err, errs.ErrStorage)
		assert.ErrorIs(t, err, role.ErrUnknownRole)
	})
}

func TestSessionsStore(t *testing.T) {
	ctx := context.Background()
	db := gormtest.Open(t)
	sessions := NewSessionsStore(db)

	userID := uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	live := &model.Session{UserID: userID, Token: "live-token", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, sessions.Create(ctx, live))
	assert.Equal(t, model.HashToken("live-token"), live.TokenHash)

	stale := &model.Session{UserID: userID, Token: "stale-token", IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, sessions.Create(ctx, stale))

	t.Run("token hash is unique", func(t *testing.T) {
		err := sessions.Create(ctx, &model.Session{UserID: uuid.New(), Token: "live-token", IssuedAt: now, ExpiresAt: now})
		assert.ErrorIs(t, err, store.ErrDuplicateToken)
	})

	t.Run("plaintext is not stored", func(t *testing.T) {
		var stored []string
		require.NoError(t, db.Model(&model.Session{}).Pluck("token_hash", &stored).Error)
		assert.NotContains(t, stored, "live-token")
	})

	t.Run("find by token", func(t *testing.T) {
		got, err := sessions.FindByToken(ctx, "live-token")
		require.NoError(t, err)
		assert.Equal(t, live.ID, got.ID)
		assert.Empty(t, got.Token)

		_, err = sessions.FindByToken(ctx, "unknown")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("list by user", func(t *testing.T) {
		list, err := sessions.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, live.ID, list[0].ID)
	})

	t.Run("delete expired", func(t *testing.T) {
		n, err := sessions.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = sessions.FindByToken(ctx, "stale-token")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, sessions.DeleteByToken(ctx, "live-token"))
		require.NoError(t, sessions.DeleteByToken(ctx, "live-token"))
		require.NoError(t, sessions.Delete(ctx, live.ID))
	})

	t.Run("delete by user", func(t *testing.T) {
		other := uuid.New()
		for _, tok := range []string{"a", "b"} {
			require.NoError(t, sessions.Create(ctx, &model.Session{UserID: other, Token: tok, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}))
		}
		n, err := sessions.DeleteByUser(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestInvitesStore(t *testing.T) {
	ctx := context.Background()
	db := gormtest.Open(t)
	invites := NewInvitesStore(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := &model.Invite{
		InvitedBy: uuid.New(),
		Email:     "new@example.com",
		Token:     "invite-token",
		Role:      role.Admin,
		Status:    model.InvitePending,
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
	require.NoError(t, invites.Create(ctx, inv))

	t.Run("one invite per address", func(t *testing.T) {
		err := invites.Create(ctx, &model.Invite{
			InvitedBy: uuid.New(), Email: "new@example.com", Token: "other-token",
			Role: role.Admin, Status: model.InvitePending, CreatedAt: now, ExpiresAt: now,
		})
		assert.ErrorIs(t, err, errs.ErrAlreadyInvited)
	})

	t.Run("token collision", func(t *testing.T) {
		err := invites.Create(ctx, &model.Invite{
			InvitedBy: uuid.New(), Email: "else@example.com", Token: "invite-token",
			Role: role.Admin, Status: model.InvitePending, CreatedAt: now, ExpiresAt: now,
		})
		assert.ErrorIs(t, err, store.ErrDuplicateToken)
	})

	t.Run("find", func(t *testing.T) {
		got, err := invites.FindByToken(ctx, "invite-token")
		require.NoError(t, err)
		assert.Equal(t, inv.ID, got.ID)
		assert.Equal(t, role.Admin, got.Role)

		got, err = invites.FindByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, inv.ID, got.ID)

		_, err = invites.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("status only moves from pending", func(t *testing.T) {
		require.NoError(t, invites.UpdateStatus(ctx, inv.ID, model.InviteDeclined))
		assert.ErrorIs(t, invites.UpdateStatus(ctx, inv.ID, model.InviteRevoked), errs.ErrNotFound)
	})

	t.Run("delete reports removal", func(t *testing.T) {
		removed, err := invites.Delete(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = invites.Delete(ctx, inv.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("delete by inviter", func(t *testing.T) {
		inviter := uuid.New()
		for i, email := range []string{"x@example.com", "y@example.com"} {
			require.NoError(t, invites.Create(ctx, &model.Invite{
				InvitedBy: inviter, Email: email, Token: email + string(rune('a'+i)),
				Role: role.Admin, Status: model.InvitePending, CreatedAt: now, ExpiresAt: now,
			}))
		}
		n, err := invites.DeleteByInviter(ctx, inviter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestTransactor_RollsBackEverything(t *testing.T) {
	ctx := context.Background()
	db := gormtest.Open(t)
	tr := NewTransactor(db)

	restore := gormtest.FailCreatesOn(t, db, "wallets", errors.New("ledger unavailable"))

	err := tr.InTx(ctx, func(tx store.Tx) error {
		actor := &model.Actor{}
		if err := tx.Actors().Create(ctx, actor); err != nil {
			return err
		}
		if err := tx.Users().Create(ctx, &model.User{ActorID: actor.ID, Email: "jane@example.com", Role: role.Admin}); err != nil {
			return err
		}
		return tx.Wallets().Create(ctx, &model.Wallet{OwnerActorID: actor.ID})
	})
	assert.ErrorIs(t, err, errs.ErrStorage)

	assert.Zero(t, gormtest.Count(t, db, &model.Actor{}))
	assert.Zero(t, gormtest.Count(t, db, &model.User{}))
	assert.Zero(t, gormtest.Count(t, db, &model.Wallet{}))

	restore()

	err = tr.InTx(ctx, func(tx store.Tx) error {
		actor := &model.Actor{}
		if err := tx.Actors().Create(ctx, actor); err != nil {
			return err
		}
		return tx.Wallets().Create(ctx, &model.Wallet{OwnerActorID: actor.ID})
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), gormtest.Count(t, db, &model.Wallet{}))
}

func TestWalletsStore(t *testing.T) {
	ctx := context.Background()
	db := gormtest.Open(t)
	wallets := NewWalletsStore(db)

	owner := uuid.New()
	require.NoError(t, wallets.Create(ctx, &model.Wallet{OwnerActorID: owner, Label: "Main"}))

	list, err := wallets.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].Balance)
	assert.False(t, list[0].AllowOverdraft)

	n, err := wallets.DeleteByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, gormtest.Count(t, db, &model.Wallet{}))
}

func TestActorsStore(t *testing.T) {
	ctx := context.Background()
	db := gormtest.Open(t)
	actors := NewActorsStore(db)

	a, b := &model.Actor{}, &model.Actor{}
	require.NoError(t, actors.Create(ctx, a))
	require.NoError(t, actors.Create(ctx, b))

	list, err := actors.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := actors.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	removed, err := actors.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = actors.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	n, err := actors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHealthStore(t *testing.T) {
	db := gormtest.Open(t)
	assert.NoError(t, NewHealthStore(db).Ping(context.Background()))
}
