package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/sharestore-go/asset"
	"github.com/bitfsorg/sharestore-go/revshare"
)

func testGenesis() string {
	return fmt.Sprintf(`
accounts:
  - identity: "%s"
    balance: 1000
token_accounts:
  - owner: "%s"
    asset: "%s"
    amount: 50
ledgers:
  - admin: "%s"
    name: native
    decimals: 9
    holders:
      - identity: "%s"
        share_bps: 6000
      - identity: "%s"
        share_bps: 4000
  - admin: "%s"
    name: tokens
    asset: "%s"
    decimals: 6
    disabled: true
`, stranger, alice, mint, admin, alice, bob, admin, mint)
}

func TestApplyGenesis(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.ApplyGenesis([]byte(testGenesis())))

	bal, err := svc.Balance(stranger)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bal)

	acct, err := svc.TokenAccount(asset.TokenAccountID(alice, mint))
	require.NoError(t, err)
	assert.Equal(t, uint64(50), acct.Amount)
	assert.Equal(t, alice, acct.Owner)

	native, err := svc.GetLedger(revshare.DeriveLedgerID(admin, "native"))
	require.NoError(t, err)
	assert.True(t, native.Enabled)
	assert.Equal(t, []revshare.Holder{{Identity: alice, ShareBps: 6000}, {Identity: bob, ShareBps: 4000}}, native.Holders)

	tokens, err := svc.GetLedger(revshare.DeriveLedgerID(admin, "tokens"))
	require.NoError(t, err)
	assert.False(t, tokens.Enabled)
	assert.True(t, tokens.Kind.Fungible)
	assert.Equal(t, mint, tokens.Kind.Asset)
	assert.Empty(t, tokens.Holders)

	vault, err := svc.TokenAccount(revshare.DeriveVaultID(tokens.ID))
	require.NoError(t, err)
	assert.Equal(t, tokens.ID, vault.Owner)
}

func TestApplyGenesis_Reapply(t *testing.T) {
	svc, _ := newTestService(t)
	doc := []byte(testGenesis())
	require.NoError(t, svc.ApplyGenesis(doc))
	require.NoError(t, svc.ApplyGenesis(doc))

	bal, err := svc.Balance(stranger)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bal, "second apply must not credit again")

	err = svc.ApplyGenesis([]byte("accounts: []\n"))
	assert.ErrorIs(t, err, ErrGenesisMismatch)
}

func TestApplyGenesis_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "ledgerz: []\n"},
		{"bad identity", "accounts:\n  - identity: \"xyz\"\n    balance: 1\n"},
		{"bad shares", fmt.Sprintf("ledgers:\n  - admin: \"%s\"\n    name: x\n    holders:\n      - identity: \"%s\"\n        share_bps: 10\n", admin, alice)},
		{"empty name", fmt.Sprintf("ledgers:\n  - admin: \"%s\"\n    name: \"\"\n", admin)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			assert.ErrorIs(t, svc.ApplyGenesis([]byte(tt.doc)), ErrInvalidGenesis)

			ls, err := svc.ListByAdmin(admin)
			require.NoError(t, err)
			assert.Empty(t, ls)
		})
	}
}

func TestLoadGenesis_File(t *testing.T) {
	svc, _ := newTestService(t)
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testGenesis()), 0600))
	require.NoError(t, svc.LoadGenesis(path))

	assert.Error(t, svc.LoadGenesis(filepath.Join(t.TempDir(), "missing.yaml")))
}
