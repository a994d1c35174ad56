package asset

import (
	"errors"
	"fmt"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"

	"github.com/bitfsorg/sharestore-go/revshare"
	"github.com/bitfsorg/sharestore-go/storage"
)

var tokenAccountSeed = []byte("token_account")

// TokenAccountID returns SHA256("token_account" || owner || asset), the
// default token account handle of owner for asset.
func TokenAccountID(owner, asset revshare.Identity) revshare.Identity {
	buf := make([]byte, 0, len(tokenAccountSeed)+2*revshare.IdentitySize)
	buf = append(buf, tokenAccountSeed...)
	buf = append(buf, owner[:]...)
	buf = append(buf, asset[:]...)
	var id revshare.Identity
	copy(id[:], bsvhash.Sha256(buf))
	return id
}

// ---------------------------------------------------------------------------
// Native balances
// ---------------------------------------------------------------------------

// Credit adds amount to a native account, e.g. when seeding from genesis.
func Credit(tx *storage.Tx, account revshare.Identity, amount uint64) error {
	bal, err := tx.Balance(account)
	if err != nil {
		return err
	}
	sum := bal + amount
	if sum < bal {
		return fmt.Errorf("%w: credit %d to %s", revshare.ErrArithmeticOverflow, amount, account)
	}
	return tx.SetBalance(account, sum)
}

// Deposit moves amount from the depositor's native account into a native
// ledger account.
func Deposit(tx *storage.Tx, from revshare.Identity, l *revshare.Ledger, amount uint64) error {
	if l.Kind.Fungible {
		return ErrNotNative
	}
	if amount == 0 {
		return revshare.ErrInvalidAmount
	}
	return move(tx, from, l.ID, amount)
}

func move(tx *storage.Tx, from, to revshare.Identity, amount uint64) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfTransfer, from)
	}
	fromBal, err := tx.Balance(from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", revshare.ErrInsufficientFunds, from, fromBal, amount)
	}
	if err := tx.SetBalance(from, fromBal-amount); err != nil {
		return err
	}
	return Credit(tx, to, amount)
}

// ---------------------------------------------------------------------------
// Token accounts
// ---------------------------------------------------------------------------

// OpenTokenAccount creates an empty token account for owner and asset under handle.
func OpenTokenAccount(tx *storage.Tx, handle, owner, asset revshare.Identity) error {
	_, err := tx.TokenAccount(handle)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrAccountExists, handle)
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}
	return tx.PutTokenAccount(handle, &storage.TokenAccount{Owner: owner, Asset: asset})
}

// OpenVault creates the vault token account of a fungible ledger, owned by
// the ledger itself.
func OpenVault(tx *storage.Tx, l *revshare.Ledger) error {
	if !l.Kind.Fungible {
		return ErrNotFungible
	}
	return OpenTokenAccount(tx, revshare.DeriveVaultID(l.ID), l.ID, l.Kind.Asset)
}

// MintTo increases the amount held by a token account.
func MintTo(tx *storage.Tx, handle revshare.Identity, amount uint64) error {
	acct, err := tx.TokenAccount(handle)
	if err != nil {
		return err
	}
	sum := acct.Amount + amount
	if sum < acct.Amount {
		return fmt.Errorf("%w: mint %d to %s", revshare.ErrArithmeticOverflow, amount, handle)
	}
	acct.Amount = sum
	return tx.PutTokenAccount(handle, acct)
}

// SetFrozen freezes or thaws a token account.
func SetFrozen(tx *storage.Tx, handle revshare.Identity, frozen bool) error {
	acct, err := tx.TokenAccount(handle)
	if err != nil {
		return err
	}
	acct.Frozen = frozen
	return tx.PutTokenAccount(handle, acct)
}

// DepositTokens moves amount from the depositor's token account into the
// vault of a fungible ledger. The source must be owned by from.
func DepositTokens(tx *storage.Tx, from, source revshare.Identity, l *revshare.Ledger, amount uint64) error {
	if !l.Kind.Fungible {
		return ErrNotFungible
	}
	if amount == 0 {
		return revshare.ErrInvalidAmount
	}
	acct, err := tx.TokenAccount(source)
	if err != nil {
		return err
	}
	switch {
	case acct.Owner != from:
		return fmt.Errorf("%w: account %s belongs to %s", revshare.ErrWrongOwner, source, acct.Owner)
	case acct.Asset != l.Kind.Asset:
		return fmt.Errorf("%w: account %s holds %s", revshare.ErrInvalidTokenMint, source, acct.Asset)
	case acct.Frozen:
		return fmt.Errorf("%w: %s", revshare.ErrFrozenDestination, source)
	}
	return moveTokens(tx, source, revshare.DeriveVaultID(l.ID), amount)
}

// TokenBalance returns the amount held by a token account.
func TokenBalance(tx *storage.Tx, handle revshare.Identity) (uint64, error) {
	acct, err := tx.TokenAccount(handle)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// moveTokens loads both accounts before writing either, so from and to
// must differ.
func moveTokens(tx *storage.Tx, from, to revshare.Identity, amount uint64) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfTransfer, from)
	}
	src, err := tx.TokenAccount(from)
	if err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", revshare.ErrInsufficientFunds, from, src.Amount, amount)
	}
	dst, err := tx.TokenAccount(to)
	if err != nil {
		return err
	}
	if dst.Asset != src.Asset {
		return fmt.Errorf("%w: %s holds %s", revshare.ErrInvalidTokenMint, to, dst.Asset)
	}
	if dst.Amount+amount < dst.Amount {
		return fmt.Errorf("%w: credit %d to %s", revshare.ErrArithmeticOverflow, amount, to)
	}
	src.Amount -= amount
	dst.Amount += amount
	if err := tx.PutTokenAccount(from, src); err != nil {
		return err
	}
	return tx.PutTokenAccount(to, dst)
}
