package asset

import "errors"

var (
	// ErrAccountExists indicates a token account already exists under the handle.
	ErrAccountExists = errors.New("asset: token account already exists")

	// ErrNotFungible indicates a token operation against a native ledger.
	ErrNotFungible = errors.New("asset: ledger is not bound to a fungible asset")

	// ErrNotNative indicates a native operation against a fungible ledger.
	ErrNotNative = errors.New("asset: ledger holds a fungible asset, not a native balance")

	// ErrSelfTransfer indicates a transfer whose source and destination are
	// the same account.
	ErrSelfTransfer = errors.New("asset: source and destination are the same account")
)
