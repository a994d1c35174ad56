package revshare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeID(seed byte) Identity {
	var id Identity
	for i := range id {
		id[i] = seed
	}
	return id
}

func holders(pairs ...interface{}) []Holder {
	hs := make([]Holder, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		hs = append(hs, Holder{Identity: makeID(pairs[i].(byte)), ShareBps: uint16(pairs[i+1].(int))})
	}
	return hs
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(makeID(0xAD), "royalties", NativeKind(9))
	require.NoError(t, err)
	return l
}

// --- Ledger tests ---

func TestNewLedger(t *testing.T) {
	l := newTestLedger(t)
	assert.Equal(t, makeID(0xAD), l.Admin)
	assert.Equal(t, "royalties", l.Name)
	assert.True(t, l.Enabled)
	assert.Empty(t, l.Holders)
	assert.Zero(t, l.TotalDistributed)
	assert.Zero(t, l.LastDistributedAt)
	assert.Equal(t, DeriveLedgerID(l.Admin, l.Name), l.ID)
}

func TestNewLedger_InvalidName(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"33 bytes", "abcdefghijklmnopqrstuvwxyz0123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLedger(makeID(1), tt.in, NativeKind(0))
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}

	l, err := NewLedger(makeID(1), "abcdefghijklmnopqrstuvwxyz012345", NativeKind(0))
	require.NoError(t, err)
	assert.Len(t, l.Name, 32)
}

func TestNewLedger_NativeDropsAsset(t *testing.T) {
	l, err := NewLedger(makeID(1), "n", AssetKind{Asset: makeID(9)})
	require.NoError(t, err)
	assert.True(t, l.Kind.Asset.IsZero())
}

func TestDeriveLedgerID(t *testing.T) {
	a := DeriveLedgerID(makeID(1), "alpha")
	assert.Equal(t, a, DeriveLedgerID(makeID(1), "alpha"))
	assert.NotEqual(t, a, DeriveLedgerID(makeID(2), "alpha"))
	assert.NotEqual(t, a, DeriveLedgerID(makeID(1), "beta"))
	assert.NotEqual(t, a, DeriveVaultID(a))
}

func TestParseIdentity(t *testing.T) {
	id := makeID(0xAB)
	parsed, err := ParseIdentity(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseIdentity("zz")
	assert.Error(t, err)
	_, err = ParseIdentity("abcd")
	assert.Error(t, err)
}

// --- Authorization tests ---

func TestSetEnabled_Unauthorized(t *testing.T) {
	l := newTestLedger(t)
	err := l.SetEnabled(makeID(0x01), false)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, l.Enabled)
}

func TestSetEnabled_Idempotent(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.SetEnabled(l.Admin, true))
	assert.True(t, l.Enabled)
	require.NoError(t, l.SetEnabled(l.Admin, false))
	require.NoError(t, l.SetEnabled(l.Admin, false))
	assert.False(t, l.Enabled)
	require.NoError(t, l.SetEnabled(l.Admin, true))
	assert.True(t, l.Enabled)
}

func TestGuardedRegistryOps_Unauthorized(t *testing.T) {
	l := newTestLedger(t)
	stranger := makeID(0x66)

	assert.ErrorIs(t, l.SetHolders(stranger, holders(byte(1), 10000)), ErrUnauthorized)
	assert.ErrorIs(t, l.AddHolderAs(stranger, Holder{Identity: makeID(1), ShareBps: 1}), ErrUnauthorized)
	assert.ErrorIs(t, l.RemoveHolderAs(stranger, makeID(1)), ErrUnauthorized)
	assert.Empty(t, l.Holders)
}

func TestGuardRunsBeforeValidation(t *testing.T) {
	l := newTestLedger(t)
	err := l.SetHolders(makeID(0x66), holders(byte(1), 4000, byte(2), 4000))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// --- Registry tests ---

func TestAddHolder(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.AddHolder(Holder{Identity: makeID(1), ShareBps: 6000}))
	require.NoError(t, l.AddHolder(Holder{Identity: makeID(2), ShareBps: 1000}))

	require.Len(t, l.Holders, 2)
	assert.Equal(t, makeID(1), l.Holders[0].Identity)
	assert.Equal(t, makeID(2), l.Holders[1].Identity)
	// add/remove leave the registry mid-edit.
	assert.Equal(t, uint32(7000), l.TotalBasisPoints())
}

func TestAddHolder_Duplicate(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.AddHolder(Holder{Identity: makeID(1), ShareBps: 100}))
	err := l.AddHolder(Holder{Identity: makeID(1), ShareBps: 200})
	assert.ErrorIs(t, err, ErrHolderAlreadyExists)
	assert.Len(t, l.Holders, 1)
}

func TestAddHolder_Capacity(t *testing.T) {
	l := newTestLedger(t)
	for i := 0; i < MaxHolders; i++ {
		require.NoError(t, l.AddHolder(Holder{Identity: makeID(byte(i + 1)), ShareBps: 625}))
	}
	err := l.AddHolder(Holder{Identity: makeID(0xFF), ShareBps: 1})
	assert.ErrorIs(t, err, ErrTooManyHolders)
	assert.Len(t, l.Holders, MaxHolders)
}

func TestAddHolder_ShareAboveTotal(t *testing.T) {
	l := newTestLedger(t)
	err := l.AddHolder(Holder{Identity: makeID(1), ShareBps: 10001})
	assert.ErrorIs(t, err, ErrInvalidShareDistribution)
}

func TestRemoveHolder(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.ReplaceHolders(holders(byte(1), 2500, byte(2), 5000, byte(3), 2500)))

	require.NoError(t, l.RemoveHolder(makeID(2)))
	require.Len(t, l.Holders, 2)
	assert.Equal(t, makeID(1), l.Holders[0].Identity)
	assert.Equal(t, makeID(3), l.Holders[1].Identity)

	assert.ErrorIs(t, l.RemoveHolder(makeID(2)), ErrHolderNotFound)
	assert.ErrorIs(t, l.RemoveHolder(makeID(9)), ErrHolderNotFound)
}

func TestReplaceHolders(t *testing.T) {
	l := newTestLedger(t)
	hs := holders(byte(3), 2000, byte(1), 5000, byte(2), 3000)
	require.NoError(t, l.ReplaceHolders(hs))
	assert.Equal(t, hs, l.Holders)

	// The registry owns its copy.
	hs[0].ShareBps = 1
	assert.Equal(t, uint16(2000), l.Holders[0].ShareBps)
}

func TestReplaceHolders_AllOrNothing(t *testing.T) {
	original := holders(byte(1), 10000)

	tests := []struct {
		name    string
		in      []Holder
		wantErr error
	}{
		{"sum 8000", holders(byte(1), 4000, byte(2), 4000), ErrInvalidShareDistribution},
		{"sum above", holders(byte(1), 6000, byte(2), 6000), ErrInvalidShareDistribution},
		{"empty", nil, ErrInvalidShareDistribution},
		{"duplicate", holders(byte(1), 5000, byte(1), 5000), ErrHolderAlreadyExists},
		{"seventeen", func() []Holder {
			hs := make([]Holder, MaxHolders+1)
			for i := range hs {
				hs[i] = Holder{Identity: makeID(byte(i + 1)), ShareBps: 1}
			}
			return hs
		}(), ErrTooManyHolders},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			require.NoError(t, l.ReplaceHolders(original))
			err := l.ReplaceHolders(tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, original, l.Holders)
		})
	}
}

func TestValidateShareSet_CheckOrder(t *testing.T) {
	// Seventeen duplicates with a bad sum report capacity first.
	hs := make([]Holder, MaxHolders+1)
	for i := range hs {
		hs[i] = Holder{Identity: makeID(1), ShareBps: 1}
	}
	assert.ErrorIs(t, ValidateShareSet(hs), ErrTooManyHolders)

	// A bad sum is reported before duplicates.
	assert.ErrorIs(t, ValidateShareSet(holders(byte(1), 100, byte(1), 100)), ErrInvalidShareDistribution)
}

func TestValidateShareSet_SumWidth(t *testing.T) {
	// 16 × 65535 would wrap a 16-bit accumulator back near 10000.
	hs := make([]Holder, MaxHolders)
	for i := range hs {
		hs[i] = Holder{Identity: makeID(byte(i + 1)), ShareBps: 65535}
	}
	assert.ErrorIs(t, ValidateShareSet(hs), ErrInvalidShareDistribution)
}

// --- Record tests ---

func TestSerializeLedger_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		ledger *Ledger
	}{
		{"empty native", &Ledger{Admin: makeID(1), Name: "a", Enabled: true, Kind: NativeKind(9)}},
		{"fungible with holders", &Ledger{
			Admin: makeID(2), Name: "spl-share", Enabled: false,
			Kind:              FungibleKind(makeID(0xEE), 6),
			Holders:           holders(byte(0xAA), 2500, byte(0xBB), 5000, byte(0xCC), 2500),
			TotalDistributed:  1_000_000,
			LastDistributedAt: 1_700_000_000,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.ledger.ID = DeriveLedgerID(tt.ledger.Admin, tt.ledger.Name)
			data, err := SerializeLedger(tt.ledger)
			require.NoError(t, err)

			decoded, err := DeserializeLedger(data)
			require.NoError(t, err)
			if len(tt.ledger.Holders) == 0 {
				tt.ledger.Holders = []Holder{}
			}
			assert.Equal(t, tt.ledger, decoded)
		})
	}
}

func TestSerializeLedger_Size(t *testing.T) {
	l := &Ledger{Admin: makeID(1), Name: "four", Holders: holders(byte(1), 5000, byte(2), 5000)}
	data, err := SerializeLedger(l)
	require.NoError(t, err)
	// Expected: 34 + 4 + 52 + 34*2 = 158
	assert.Len(t, data, 158)
}

func TestDeserializeLedger_Malformed(t *testing.T) {
	valid, err := SerializeLedger(&Ledger{Admin: makeID(1), Name: "x", Holders: holders(byte(1), 10000)})
	require.NoError(t, err)

	badVersion := append([]byte(nil), valid...)
	badVersion[0] = 9

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{0x01, 0x02}},
		{"bad version", badVersion},
		{"truncated", valid[:len(valid)-1]},
		{"trailing", append(append([]byte(nil), valid...), 0x00)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeserializeLedger(tt.data)
			assert.ErrorIs(t, err, ErrInvalidLedgerData)
		})
	}
}

func TestHolderRecord_Layout(t *testing.T) {
	h := Holder{Identity: makeID(0x42), ShareBps: 1234}
	buf := make([]byte, holderRecordSize)
	putHolder(buf, h)

	assert.Equal(t, h.Identity[:], buf[:32])
	assert.Equal(t, []byte{0x04, 0xD2}, buf[32:])
	assert.Equal(t, h, getHolder(buf))
}
