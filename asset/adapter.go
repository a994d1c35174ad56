// Package asset implements the value stores behind a ledger: native account
// balances and fungible-asset token accounts, both kept in the ledger
// database so a distribution and its transfers commit in one transaction.
package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfsorg/sharestore-go/revshare"
	"github.com/bitfsorg/sharestore-go/storage"
)

// For returns the adapter matching the ledger's asset kind. floor is the
// reserve retained by native ledgers and ignored for fungible ones.
func For(tx *storage.Tx, l *revshare.Ledger, floor uint64) revshare.AssetAdapter {
	if l.Kind.Fungible {
		return NewToken(tx, l)
	}
	return NewNative(tx, l.ID, floor)
}

// ---------------------------------------------------------------------------
// Native
// ---------------------------------------------------------------------------

// Native draws the pool from the ledger's own native balance. Destinations
// are holder accounts addressed directly by the holder identity.
type Native struct {
	tx      *storage.Tx
	account revshare.Identity
	floor   uint64
}

// Compile-time interface check.
var _ revshare.AssetAdapter = (*Native)(nil)

// NewNative returns a Native adapter for the ledger account.
func NewNative(tx *storage.Tx, account revshare.Identity, floor uint64) *Native {
	return &Native{tx: tx, account: account, floor: floor}
}

// PoolSize returns the ledger account balance.
func (n *Native) PoolSize(context.Context) (uint64, error) {
	return n.tx.Balance(n.account)
}

// ReservedFloor returns the balance the ledger account must retain.
func (n *Native) ReservedFloor(context.Context) (uint64, error) {
	return n.floor, nil
}

// ValidateDestination requires the destination to be the holder's own
// account. The ledger account itself is never a valid destination.
func (n *Native) ValidateDestination(_ context.Context, destination, owner revshare.Identity) error {
	if destination == n.account {
		return fmt.Errorf("%w: %s is the ledger account", revshare.ErrInvalidHolderAccount, destination)
	}
	if destination != owner {
		return fmt.Errorf("%w: got %s, want %s", revshare.ErrInvalidHolderAccount, destination, owner)
	}
	return nil
}

// Transfer moves amount from the ledger account to destination.
func (n *Native) Transfer(ctx context.Context, destination revshare.Identity, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return move(n.tx, n.account, destination, amount)
}

// ---------------------------------------------------------------------------
// Token
// ---------------------------------------------------------------------------

// Token draws the pool from the ledger's vault token account. Destinations
// are token accounts of the ledger's asset owned by the holder.
type Token struct {
	tx    *storage.Tx
	vault revshare.Identity
	asset revshare.Identity
}

// Compile-time interface check.
var _ revshare.AssetAdapter = (*Token)(nil)

// NewToken returns a Token adapter for a fungible ledger.
func NewToken(tx *storage.Tx, l *revshare.Ledger) *Token {
	return &Token{tx: tx, vault: revshare.DeriveVaultID(l.ID), asset: l.Kind.Asset}
}

// PoolSize returns the vault amount. A vault that was never funded holds zero.
func (t *Token) PoolSize(context.Context) (uint64, error) {
	acct, err := t.tx.TokenAccount(t.vault)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// ReservedFloor is always zero for token vaults.
func (t *Token) ReservedFloor(context.Context) (uint64, error) {
	return 0, nil
}

// ValidateDestination checks destination in a fixed order and reports the
// first failure:
//
//  1. the vault or a missing account: ErrInvalidHolderAccount
//  2. an account of another asset: ErrInvalidTokenMint
//  3. a frozen account: ErrFrozenDestination
//  4. an account not owned by owner: ErrWrongOwner
func (t *Token) ValidateDestination(_ context.Context, destination, owner revshare.Identity) error {
	if destination == t.vault {
		return fmt.Errorf("%w: %s is the ledger vault", revshare.ErrInvalidHolderAccount, destination)
	}
	acct, err := t.tx.TokenAccount(destination)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: no token account %s", revshare.ErrInvalidHolderAccount, destination)
	}
	if err != nil {
		return err
	}
	switch {
	case acct.Asset != t.asset:
		return fmt.Errorf("%w: account %s holds %s", revshare.ErrInvalidTokenMint, destination, acct.Asset)
	case acct.Frozen:
		return fmt.Errorf("%w: %s", revshare.ErrFrozenDestination, destination)
	case acct.Owner != owner:
		return fmt.Errorf("%w: account %s belongs to %s", revshare.ErrWrongOwner, destination, acct.Owner)
	}
	return nil
}

// Transfer moves amount from the vault to the destination token account.
func (t *Token) Transfer(ctx context.Context, destination revshare.Identity, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return moveTokens(t.tx, t.vault, destination, amount)
}
