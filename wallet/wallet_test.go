package wallet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/sharestore-go/auth"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// --- Mnemonic tests ---

func TestGenerateMnemonic(t *testing.T) {
	for bits, words := range map[int]int{Mnemonic12Words: 12, Mnemonic24Words: 24} {
		m, err := GenerateMnemonic(bits)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(m), words)
		assert.True(t, ValidateMnemonic(m))
	}

	_, err := GenerateMnemonic(64)
	assert.ErrorIs(t, err, ErrInvalidEntropy)
}

func TestSeedFromMnemonic(t *testing.T) {
	s1, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	assert.Len(t, s1, 64)

	s2, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	s3, err := SeedFromMnemonic(testMnemonic, "extra")
	require.NoError(t, err)
	assert.NotEqual(t, s1, s3)

	_, err = SeedFromMnemonic("not a mnemonic", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

// --- Seed encryption tests ---

func TestEncryptDecryptSeed_RoundTrip(t *testing.T) {
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = byte(i)
	}

	encrypted, err := EncryptSeed(seed, "test-password-123")
	require.NoError(t, err)
	assert.Len(t, encrypted, SaltLen+NonceLen+len(seed)+ChecksumLen+16)

	decrypted, err := DecryptSeed(encrypted, "test-password-123")
	require.NoError(t, err)
	assert.Equal(t, seed, decrypted)
}

func TestDecryptSeed_Failures(t *testing.T) {
	encrypted, err := EncryptSeed(make([]byte, 64), "correct-password")
	require.NoError(t, err)

	_, err = DecryptSeed(encrypted, "wrong-password")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	corrupted := append([]byte{}, encrypted...)
	corrupted[len(corrupted)-1] ^= 0xFF
	_, err = DecryptSeed(corrupted, "correct-password")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = DecryptSeed([]byte{0x01, 0x02, 0x03}, "password")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = EncryptSeed(nil, "password")
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestEncryptSeed_DifferentCiphertexts(t *testing.T) {
	seed := make([]byte, 64)
	enc1, err := EncryptSeed(seed, "same-password")
	require.NoError(t, err)
	enc2, err := EncryptSeed(seed, "same-password")
	require.NoError(t, err)
	assert.NotEqual(t, enc1, enc2, "salt and nonce are random")
}

// --- HD derivation tests ---

func newTestWallet(t *testing.T) *Wallet {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	w, err := NewWallet(seed)
	require.NoError(t, err)
	return w
}

func TestNewWallet_EmptySeed(t *testing.T) {
	_, err := NewWallet(nil)
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestDeriveSigningKey(t *testing.T) {
	w := newTestWallet(t)

	kp, err := w.DeriveSigningKey(0)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/236'/0'/0/0", kp.Path)
	assert.Equal(t, auth.IdentityFromPubKey(kp.PublicKey), kp.Identity)
	assert.Len(t, kp.PublicKey.Compressed(), 33)

	again, err := newTestWallet(t).DeriveSigningKey(0)
	require.NoError(t, err)
	assert.Equal(t, kp.Identity, again.Identity, "derivation is deterministic")

	next, err := w.DeriveSigningKey(1)
	require.NoError(t, err)
	assert.NotEqual(t, kp.Identity, next.Identity)

	_, err = w.DeriveSigningKey(MaxKeyIndex + 1)
	assert.ErrorIs(t, err, ErrKeyIndexOutOfRange)
}

func TestDeriveSigningKey_SignsRequests(t *testing.T) {
	kp, err := newTestWallet(t).DeriveSigningKey(3)
	require.NoError(t, err)

	creds, err := auth.SignRequest(kp.PrivateKey, "POST", "/v1/ledgers", nil)
	require.NoError(t, err)
	id, err := auth.VerifyRequest(creds.PubKey, creds.Signature, auth.RequestDigest("POST", "/v1/ledgers", creds.Timestamp, creds.Nonce, nil))
	require.NoError(t, err)
	assert.Equal(t, kp.Identity, id)
}

// --- Key state tests ---

func TestKeyState_Add(t *testing.T) {
	st := NewKeyState()
	k, err := st.Add("ops")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), k.Index)

	k, err = st.Add("treasury")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), k.Index)

	_, err = st.Add("ops")
	assert.ErrorIs(t, err, ErrKeyExists)
	_, err = st.Add("")
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := st.Lookup("treasury")
	require.NoError(t, err)
	assert.Equal(t, k, got)
	_, err = st.Lookup("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	assert.NoError(t, st.Validate())
}

func TestKeyState_Validate(t *testing.T) {
	tests := []struct {
		name  string
		state KeyState
	}{
		{"duplicate label", KeyState{Keys: []Key{{"a", 0}, {"a", 1}}, NextIndex: 2}},
		{"shared index", KeyState{Keys: []Key{{"a", 0}, {"b", 0}}, NextIndex: 1}},
		{"index not below next", KeyState{Keys: []Key{{"a", 3}}, NextIndex: 3}},
		{"empty label", KeyState{Keys: []Key{{"", 0}}, NextIndex: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.state.Validate(), ErrInvalidState)
		})
	}
}

// --- Keystore tests ---

func TestKeystore_InitAndOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	ks, err := InitKeystore(dir, testMnemonic, "", "pw")
	require.NoError(t, err)

	def, err := ks.Signer(DefaultKeyLabel)
	require.NoError(t, err)
	ops, err := ks.NewKey("ops")
	require.NoError(t, err)

	reopened, err := OpenKeystore(dir, "pw")
	require.NoError(t, err)
	assert.Equal(t, []Key{{DefaultKeyLabel, 0}, {"ops", 1}}, reopened.Keys())

	got, err := reopened.Signer("ops")
	require.NoError(t, err)
	assert.Equal(t, ops.Identity, got.Identity)
	got, err = reopened.Signer(DefaultKeyLabel)
	require.NoError(t, err)
	assert.Equal(t, def.Identity, got.Identity)

	_, err = OpenKeystore(dir, "wrong")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = InitKeystore(dir, testMnemonic, "", "pw")
	assert.ErrorIs(t, err, ErrKeystoreExists)
}

func TestOpenKeystore_CorruptState(t *testing.T) {
	dir := t.TempDir()
	_, err := InitKeystore(dir, testMnemonic, "", "pw")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFile), []byte("{"), 0600))

	_, err = OpenKeystore(dir, "pw")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOpenKeystore_Missing(t *testing.T) {
	_, err := OpenKeystore(t.TempDir(), "pw")
	assert.Error(t, err)
}
