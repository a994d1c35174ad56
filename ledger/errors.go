package ledger

import "errors"

var (
	// ErrGenesisMismatch indicates the store was seeded from a different genesis document.
	ErrGenesisMismatch = errors.New("ledger: store was initialised from a different genesis")

	// ErrInvalidGenesis indicates a genesis document that cannot be applied.
	ErrInvalidGenesis = errors.New("ledger: invalid genesis")
)
