package storage

import "github.com/bitfsorg/sharestore-go/revshare"

// Store persists ledgers together with the host value store they draw on.
// Every call to Update is one all-or-nothing unit: if fn returns an error,
// none of its writes (ledger records, balances, token accounts) survive.
type Store interface {
	// Update runs fn in an exclusive read-write transaction.
	Update(fn func(*Tx) error) error

	// View runs fn in a read-only transaction.
	View(fn func(*Tx) error) error

	// Close releases the underlying database.
	Close() error
}

// TokenAccount is a fungible-asset account: a balance of one asset owned by
// one identity.
type TokenAccount struct {
	Owner  revshare.Identity `json:"owner"`
	Asset  revshare.Identity `json:"asset"`
	Frozen bool              `json:"frozen"`
	Amount uint64            `json:"amount"`
}
