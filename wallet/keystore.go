package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Keystore file names inside the keystore directory.
const (
	SeedFile  = "wallet.enc"
	StateFile = "keys.json"

	// DefaultKeyLabel is created by InitKeystore.
	DefaultKeyLabel = "default"
)

// Keystore is an unlocked wallet plus its key labels, backed by a directory.
type Keystore struct {
	dir    string
	wallet *Wallet
	state  *KeyState
}

// InitKeystore encrypts the seed of mnemonic into dir and creates the
// default key. It refuses to overwrite an existing keystore.
func InitKeystore(dir, mnemonic, passphrase, password string) (*Keystore, error) {
	seedPath := filepath.Join(dir, SeedFile)
	if _, err := os.Stat(seedPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeystoreExists, seedPath)
	}

	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	w, err := NewWallet(seed)
	if err != nil {
		return nil, err
	}
	encrypted, err := EncryptSeed(seed, password)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("wallet: create keystore directory: %w", err)
	}
	if err := os.WriteFile(seedPath, encrypted, 0600); err != nil {
		return nil, fmt.Errorf("wallet: write seed: %w", err)
	}

	ks := &Keystore{dir: dir, wallet: w, state: NewKeyState()}
	if _, err := ks.NewKey(DefaultKeyLabel); err != nil {
		return nil, err
	}
	return ks, nil
}

// OpenKeystore decrypts the keystore in dir.
func OpenKeystore(dir, password string) (*Keystore, error) {
	encrypted, err := os.ReadFile(filepath.Join(dir, SeedFile))
	if err != nil {
		return nil, fmt.Errorf("wallet: read seed: %w", err)
	}
	seed, err := DecryptSeed(encrypted, password)
	if err != nil {
		return nil, err
	}
	w, err := NewWallet(seed)
	if err != nil {
		return nil, err
	}
	state, err := loadKeyState(filepath.Join(dir, StateFile))
	if err != nil {
		return nil, err
	}
	return &Keystore{dir: dir, wallet: w, state: state}, nil
}

// Keys lists the labelled keys in creation order.
func (ks *Keystore) Keys() []Key {
	return append([]Key(nil), ks.state.Keys...)
}

// Signer returns the key pair with the given label.
func (ks *Keystore) Signer(label string) (*KeyPair, error) {
	k, err := ks.state.Lookup(label)
	if err != nil {
		return nil, err
	}
	return ks.wallet.DeriveSigningKey(k.Index)
}

// NewKey allocates and persists a new labelled key.
func (ks *Keystore) NewKey(label string) (*KeyPair, error) {
	k, err := ks.state.Add(label)
	if err != nil {
		return nil, err
	}
	if err := saveKeyState(filepath.Join(ks.dir, StateFile), ks.state); err != nil {
		return nil, err
	}
	return ks.wallet.DeriveSigningKey(k.Index)
}

func loadKeyState(path string) (*KeyState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewKeyState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: read key state: %w", err)
	}
	var st KeyState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &st, nil
}

// saveKeyState replaces the state file through a temp file and rename.
func saveKeyState(path string, st *KeyState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("wallet: encode key state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("wallet: write key state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("wallet: rename key state: %w", err)
	}
	return nil
}
