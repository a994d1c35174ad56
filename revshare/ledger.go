package revshare

import (
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

var (
	ledgerSeed = []byte("share_storage")
	vaultSeed  = []byte("share_vault")
)

// DeriveLedgerID returns SHA256("share_storage" || admin || name), the
// address of the ledger owned by admin under name.
func DeriveLedgerID(admin Identity, name string) Identity {
	buf := make([]byte, 0, len(ledgerSeed)+IdentitySize+len(name))
	buf = append(buf, ledgerSeed...)
	buf = append(buf, admin[:]...)
	buf = append(buf, name...)
	var id Identity
	copy(id[:], bsvhash.Sha256(buf))
	return id
}

// DeriveVaultID returns SHA256("share_vault" || ledgerID), the token account
// holding a fungible ledger's pool.
func DeriveVaultID(ledgerID Identity) Identity {
	buf := make([]byte, 0, len(vaultSeed)+IdentitySize)
	buf = append(buf, vaultSeed...)
	buf = append(buf, ledgerID[:]...)
	var id Identity
	copy(id[:], bsvhash.Sha256(buf))
	return id
}

// NewLedger creates an enabled ledger with an empty registry and zero totals.
func NewLedger(admin Identity, name string, kind AssetKind) (*Ledger, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if !kind.Fungible {
		kind.Asset = Identity{}
	}
	return &Ledger{
		ID:      DeriveLedgerID(admin, name),
		Admin:   admin,
		Name:    name,
		Enabled: true,
		Kind:    kind,
		Holders: []Holder{},
	}, nil
}

// IsAdmin reports whether id is the ledger administrator.
func (l *Ledger) IsAdmin(id Identity) bool {
	return l.Admin == id
}

// Authorize returns ErrUnauthorized unless caller is the administrator.
func (l *Ledger) Authorize(caller Identity) error {
	if !l.IsAdmin(caller) {
		return ErrUnauthorized
	}
	return nil
}

// SetEnabled toggles availability. Setting the current state again is a
// successful no-op.
func (l *Ledger) SetEnabled(caller Identity, enabled bool) error {
	if err := l.Authorize(caller); err != nil {
		return err
	}
	l.Enabled = enabled
	return nil
}

// SetHolders replaces the registry on behalf of caller.
func (l *Ledger) SetHolders(caller Identity, hs []Holder) error {
	if err := l.Authorize(caller); err != nil {
		return err
	}
	return l.ReplaceHolders(hs)
}

// AddHolderAs appends a holder on behalf of caller.
func (l *Ledger) AddHolderAs(caller Identity, h Holder) error {
	if err := l.Authorize(caller); err != nil {
		return err
	}
	return l.AddHolder(h)
}

// RemoveHolderAs removes a holder on behalf of caller.
func (l *Ledger) RemoveHolderAs(caller, id Identity) error {
	if err := l.Authorize(caller); err != nil {
		return err
	}
	return l.RemoveHolder(id)
}
