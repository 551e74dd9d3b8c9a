package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// AccountOpener opens the initial account of a new principal inside the
// registration transaction.
type AccountOpener interface {
	OpenAccount(ctx context.Context, tx store.Tx, ownerActorID uuid.UUID) (*model.Wallet, error)
}

// WalletOpener opens a zero-balance wallet without overdraft.
type WalletOpener struct {
	Label string
}

func (o WalletOpener) OpenAccount(ctx context.Context, tx store.Tx, ownerActorID uuid.UUID) (*model.Wallet, error) {
	label := o.Label
	if label == "" {
		label = "Main"
	}
	wallet := &model.Wallet{
		OwnerActorID:   ownerActorID,
		Label:          label,
		Balance:        0,
		AllowOverdraft: false,
	}
	if err := tx.Wallets().Create(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}
