package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrKeyIndexOutOfRange indicates a key index above the BIP32 non-hardened maximum.
	ErrKeyIndexOutOfRange = errors.New("wallet: key index exceeds maximum (2^31-1)")

	// ErrKeyNotFound indicates no key carries the requested label.
	ErrKeyNotFound = errors.New("wallet: key not found")

	// ErrKeyExists indicates the key label is already taken.
	ErrKeyExists = errors.New("wallet: key already exists")

	// ErrDecryptionFailed indicates wrong password or corrupted wallet data.
	ErrDecryptionFailed = errors.New("wallet: seed decryption failed (wrong password or corrupted data)")

	// ErrChecksumMismatch indicates seed checksum verification failed after decryption.
	ErrChecksumMismatch = errors.New("wallet: seed checksum mismatch")

	// ErrInvalidSeed indicates the seed is empty.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrKeystoreExists indicates a keystore is already initialised in the directory.
	ErrKeystoreExists = errors.New("wallet: keystore already exists")

	// ErrInvalidState indicates an inconsistent key state file.
	ErrInvalidState = errors.New("wallet: invalid key state")
)
