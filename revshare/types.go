package revshare

import (
	"encoding/hex"
	"fmt"
)

const (
	// IdentitySize is the length of a public identifier in bytes.
	IdentitySize = 32

	// MaxHolders is the registry capacity of a single ledger.
	MaxHolders = 16

	// TotalBasisPoints is the exact share sum of a distributable registry.
	TotalBasisPoints = 10000

	// MaxNameLen is the maximum ledger name length in bytes.
	MaxNameLen = 32
)

// Identity is a 32-byte public identifier of an administrator, holder,
// ledger, asset or destination account.
type Identity [IdentitySize]byte

// ParseIdentity decodes a 64-character hex string into an Identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("revshare: invalid identity hex: %w", err)
	}
	if len(b) != IdentitySize {
		return id, fmt.Errorf("revshare: identity must be %d bytes, got %d", IdentitySize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// String returns the lowercase hex encoding.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether every byte of the identity is zero.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Holder is a registered beneficiary and its share in basis points.
type Holder struct {
	Identity Identity `json:"identity" yaml:"identity"`
	ShareBps uint16   `json:"share_bps" yaml:"share_bps"`
}

// AssetKind tags a ledger as holding either a native balance or a
// quantity of one fungible asset.
type AssetKind struct {
	Fungible bool     `json:"fungible"`
	Asset    Identity `json:"asset"` // zero for native ledgers
	Decimals uint8    `json:"decimals"`
}

// NativeKind returns the asset kind of a native-balance ledger.
func NativeKind(decimals uint8) AssetKind {
	return AssetKind{Decimals: decimals}
}

// FungibleKind returns the asset kind of a ledger bound to one fungible asset.
func FungibleKind(asset Identity, decimals uint8) AssetKind {
	return AssetKind{Fungible: true, Asset: asset, Decimals: decimals}
}

// Ledger is the per-administrator, per-name record holding the holder
// registry and distribution bookkeeping.
type Ledger struct {
	ID                Identity  `json:"id"`
	Admin             Identity  `json:"admin"`
	Name              string    `json:"name"`
	Enabled           bool      `json:"enabled"`
	Kind              AssetKind `json:"kind"`
	Holders           []Holder  `json:"holders"`
	TotalDistributed  uint64    `json:"total_distributed"`
	LastDistributedAt int64     `json:"last_distributed_at"` // unix seconds, 0 = never
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	cpy := *l
	cpy.Holders = make([]Holder, len(l.Holders))
	copy(cpy.Holders, l.Holders)
	return &cpy
}

// Payout is the amount owed to one holder in a distribution.
type Payout struct {
	Holder      Identity `json:"holder"`
	Destination Identity `json:"destination"`
	Amount      uint64   `json:"amount"`
}

// Receipt describes the outcome of one distribution call. It is returned
// to the caller and never persisted.
type Receipt struct {
	LedgerID    Identity `json:"ledger_id"`
	Pool        uint64   `json:"pool"`
	Remainder   uint64   `json:"remainder"`
	Distributed uint64   `json:"distributed"`
	Payouts     []Payout `json:"payouts"`
	At          int64    `json:"at"`
}
