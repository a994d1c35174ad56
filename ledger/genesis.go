package ledger

import (
	"bytes"
	"fmt"
	"os"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/sharestore-go/asset"
	"github.com/bitfsorg/sharestore-go/revshare"
	"github.com/bitfsorg/sharestore-go/storage"
)

// Genesis is the initial state of a store: funded accounts, token accounts
// and pre-configured ledgers.
type Genesis struct {
	Accounts      []GenesisAccount      `yaml:"accounts"`
	TokenAccounts []GenesisTokenAccount `yaml:"token_accounts"`
	Ledgers       []GenesisLedger       `yaml:"ledgers"`
}

// GenesisAccount funds a native account.
type GenesisAccount struct {
	Identity revshare.Identity `yaml:"identity"`
	Balance  uint64            `yaml:"balance"`
}

// GenesisTokenAccount opens and funds the default token account of owner.
type GenesisTokenAccount struct {
	Owner  revshare.Identity `yaml:"owner"`
	Asset  revshare.Identity `yaml:"asset"`
	Amount uint64            `yaml:"amount"`
	Frozen bool              `yaml:"frozen"`
}

// GenesisLedger creates a ledger. A non-zero Asset makes it fungible. A
// ledger with no holders is left with an empty registry.
type GenesisLedger struct {
	Admin    revshare.Identity `yaml:"admin"`
	Name     string            `yaml:"name"`
	Asset    revshare.Identity `yaml:"asset"`
	Decimals uint8             `yaml:"decimals"`
	Disabled bool              `yaml:"disabled"`
	Holders  []revshare.Holder `yaml:"holders"`
}

// ParseGenesis decodes a YAML genesis document. Unknown fields are rejected.
func ParseGenesis(data []byte) (*Genesis, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var g Genesis
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGenesis, err)
	}
	return &g, nil
}

// LoadGenesis reads the genesis file at path and applies it.
func (s *Service) LoadGenesis(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ledger: read genesis: %w", err)
	}
	return s.ApplyGenesis(data)
}

// ApplyGenesis seeds an empty store from a YAML genesis document. Applying
// the same document again is a no-op; applying a different one fails with
// ErrGenesisMismatch.
func (s *Service) ApplyGenesis(data []byte) error {
	g, err := ParseGenesis(data)
	if err != nil {
		return err
	}
	digest := bsvhash.Sha256(data)

	var (
		applied bool
		count   int
	)
	err = s.store.Update(func(tx *storage.Tx) error {
		if prev := tx.GenesisHash(); prev != nil {
			if !bytes.Equal(prev, digest) {
				return ErrGenesisMismatch
			}
			return nil
		}
		if err := g.apply(tx); err != nil {
			return err
		}
		applied = true
		count = tx.CountLedgers()
		return tx.SetGenesisHash(digest)
	})
	if err != nil {
		return err
	}
	if applied {
		s.metrics.SetLedgerCount(count)
		s.log.Info("genesis applied",
			"accounts", len(g.Accounts),
			"token_accounts", len(g.TokenAccounts),
			"ledgers", len(g.Ledgers),
		)
	}
	return nil
}

func (g *Genesis) apply(tx *storage.Tx) error {
	for i, a := range g.Accounts {
		if err := asset.Credit(tx, a.Identity, a.Balance); err != nil {
			return fmt.Errorf("%w: account #%d: %w", ErrInvalidGenesis, i, err)
		}
	}
	for i, ta := range g.TokenAccounts {
		handle := asset.TokenAccountID(ta.Owner, ta.Asset)
		if err := asset.OpenTokenAccount(tx, handle, ta.Owner, ta.Asset); err != nil {
			return fmt.Errorf("%w: token account #%d: %w", ErrInvalidGenesis, i, err)
		}
		if err := asset.MintTo(tx, handle, ta.Amount); err != nil {
			return fmt.Errorf("%w: token account #%d: %w", ErrInvalidGenesis, i, err)
		}
		if ta.Frozen {
			if err := asset.SetFrozen(tx, handle, true); err != nil {
				return err
			}
		}
	}
	for i, gl := range g.Ledgers {
		if err := gl.create(tx); err != nil {
			return fmt.Errorf("%w: ledger #%d: %w", ErrInvalidGenesis, i, err)
		}
	}
	return nil
}

func (gl GenesisLedger) create(tx *storage.Tx) error {
	kind := revshare.NativeKind(gl.Decimals)
	if !gl.Asset.IsZero() {
		kind = revshare.FungibleKind(gl.Asset, gl.Decimals)
	}
	l, err := revshare.NewLedger(gl.Admin, gl.Name, kind)
	if err != nil {
		return err
	}
	if len(gl.Holders) > 0 {
		if err := l.ReplaceHolders(gl.Holders); err != nil {
			return err
		}
	}
	l.Enabled = !gl.Disabled
	if err := tx.CreateLedger(l); err != nil {
		return err
	}
	if kind.Fungible {
		return asset.OpenVault(tx, l)
	}
	return nil
}
