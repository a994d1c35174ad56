package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/sharestore-go/auth"
	"github.com/bitfsorg/sharestore-go/revshare"
)

const (
	PurposeBIP44  = 44
	CoinType      = 236
	SigningAcct   = 0
	ExternalChain = 0

	MaxKeyIndex = 1<<31 - 1

	Hardened = 0x80000000
)

// Wallet derives signing keys from a BIP39 seed.
type Wallet struct {
	chain *bip32.ExtendedKey // m/44'/236'/0'/0
}

// KeyPair is a derived signing key and the ledger identity it controls.
type KeyPair struct {
	PrivateKey *ec.PrivateKey    `json:"-"`
	PublicKey  *ec.PublicKey     `json:"-"`
	Identity   revshare.Identity `json:"identity"`
	Path       string            `json:"path"`
}

// NewWallet creates a Wallet from a BIP39 seed.
func NewWallet(seed []byte) (*Wallet, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	master, err := bip32.NewMaster(seed, &chaincfg.MainNet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	key := master
	for _, step := range []uint32{PurposeBIP44 + Hardened, CoinType + Hardened, SigningAcct + Hardened, ExternalChain} {
		if key, err = key.Child(step); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
		}
	}
	return &Wallet{chain: key}, nil
}

// DeriveSigningKey derives the key at m/44'/236'/0'/0/index.
func (w *Wallet) DeriveSigningKey(index uint32) (*KeyPair, error) {
	if index > MaxKeyIndex {
		return nil, ErrKeyIndexOutOfRange
	}
	child, err := w.chain.Child(index)
	if err != nil {
		return nil, fmt.Errorf("%w: index %d: %w", ErrDerivationFailed, index, err)
	}
	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %w", ErrDerivationFailed, err)
	}
	pub := priv.PubKey()
	return &KeyPair{
		PrivateKey: priv,
		PublicKey:  pub,
		Identity:   auth.IdentityFromPubKey(pub),
		Path:       fmt.Sprintf("m/44'/%d'/%d'/%d/%d", CoinType, SigningAcct, ExternalChain, index),
	}, nil
}
