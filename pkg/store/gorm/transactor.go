package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/cayopay/cayopay-identity/pkg/store"
)

// Ensure Transactor implements store.Transactor
var _ store.Transactor = (*Transactor)(nil)

// Transactor implements store.Transactor with gorm's Transaction helper
type Transactor struct {
	db *gorm.DB
}

// NewTransactor creates a new Transactor
func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return t.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(txStores{db: gtx})
	})
}

type txStores struct {
	db *gorm.DB
}

func (t txStores) Actors() store.ActorsStore   { return NewActorsStore(t.db) }
func (t txStores) Users() store.UsersStore     { return NewUsersStore(t.db) }
func (t txStores) Wallets() store.WalletsStore { return NewWalletsStore(t.db) }
func (t txStores) Invites() store.InvitesStore { return NewInvitesStore(t.db) }
func (t txStores) Sessions() store.SessionsStore {
	return NewSessionsStore(t.db)
}
