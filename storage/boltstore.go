package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/sharestore-go/revshare"
)

var (
	bucketLedgers       = []byte("ledgers")
	bucketAdminIndex    = []byte("admin_index")
	bucketAccounts      = []byte("accounts")
	bucketTokenAccounts = []byte("token_accounts")
	bucketMeta          = []byte("meta")

	keyGenesis = []byte("genesis")
)

const tokenAccountSize = 73 // owner(32) + asset(32) + frozen(1) + amount(8)

// BoltStore wraps a bbolt database holding ledgers, native account balances
// and token accounts. bbolt admits one writer at a time, which gives every
// ledger the single-writer guarantee distribution relies on.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if dbPath == "" {
		return nil, ErrInvalidPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketLedgers, bucketAdminIndex, bucketAccounts, bucketTokenAccounts, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Update runs fn in a read-write transaction. The transaction commits only
// if fn returns nil.
func (s *BoltStore) Update(fn func(*Tx) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// View runs fn in a read-only transaction.
func (s *BoltStore) View(fn func(*Tx) error) error {
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// Tx is a view of the store inside one bbolt transaction. It must not be
// used after the enclosing Update or View returns.
type Tx struct {
	btx *bbolt.Tx
}

// ---------------------------------------------------------------------------
// Ledgers
// ---------------------------------------------------------------------------

// Ledger loads the ledger with the given identity.
func (t *Tx) Ledger(id revshare.Identity) (*revshare.Ledger, error) {
	data := t.btx.Bucket(bucketLedgers).Get(id[:])
	if data == nil {
		return nil, fmt.Errorf("%w: %s", revshare.ErrLedgerNotFound, id)
	}
	l, err := revshare.DeserializeLedger(data)
	if err != nil {
		return nil, fmt.Errorf("boltstore: decode ledger %s: %w", id, err)
	}
	if l.ID != id {
		return nil, fmt.Errorf("%w: ledger %s stored under %s", ErrCorrupt, l.ID, id)
	}
	return l, nil
}

// CreateLedger stores a new ledger and indexes it by administrator.
// Returns revshare.ErrLedgerExists if the identity is taken.
func (t *Tx) CreateLedger(l *revshare.Ledger) error {
	b := t.btx.Bucket(bucketLedgers)
	if b.Get(l.ID[:]) != nil {
		return fmt.Errorf("%w: %q", revshare.ErrLedgerExists, l.Name)
	}
	if err := t.PutLedger(l); err != nil {
		return err
	}
	// Composite key: admin + ledgerID for prefix scanning.
	key := make([]byte, 2*revshare.IdentitySize)
	copy(key, l.Admin[:])
	copy(key[revshare.IdentitySize:], l.ID[:])
	if err := t.btx.Bucket(bucketAdminIndex).Put(key, []byte{}); err != nil {
		return fmt.Errorf("boltstore: put admin index: %w", err)
	}
	return nil
}

// PutLedger overwrites the stored record of l.
func (t *Tx) PutLedger(l *revshare.Ledger) error {
	data, err := revshare.SerializeLedger(l)
	if err != nil {
		return fmt.Errorf("boltstore: encode ledger: %w", err)
	}
	if err := t.btx.Bucket(bucketLedgers).Put(l.ID[:], data); err != nil {
		return fmt.Errorf("boltstore: put ledger: %w", err)
	}
	return nil
}

// LedgersByAdmin returns every ledger administered by admin, ordered by ledger ID.
func (t *Tx) LedgersByAdmin(admin revshare.Identity) ([]*revshare.Ledger, error) {
	var ledgers []*revshare.Ledger
	c := t.btx.Bucket(bucketAdminIndex).Cursor()
	prefix := admin[:]
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		var id revshare.Identity
		copy(id[:], k[revshare.IdentitySize:])
		l, err := t.Ledger(id)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, nil
}

// CountLedgers returns the number of stored ledgers.
func (t *Tx) CountLedgers() int {
	return t.btx.Bucket(bucketLedgers).Stats().KeyN
}

// ---------------------------------------------------------------------------
// Native balances
// ---------------------------------------------------------------------------

// Balance returns the native balance of account. Unknown accounts hold zero.
func (t *Tx) Balance(account revshare.Identity) (uint64, error) {
	data := t.btx.Bucket(bucketAccounts).Get(account[:])
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: balance of %s is %d bytes", ErrCorrupt, account, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// SetBalance stores the native balance of account. A zero balance removes
// the entry.
func (t *Tx) SetBalance(account revshare.Identity, amount uint64) error {
	b := t.btx.Bucket(bucketAccounts)
	if amount == 0 {
		if err := b.Delete(account[:]); err != nil {
			return fmt.Errorf("boltstore: delete balance: %w", err)
		}
		return nil
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, amount)
	if err := b.Put(account[:], buf); err != nil {
		return fmt.Errorf("boltstore: put balance: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Token accounts
// ---------------------------------------------------------------------------

// TokenAccount loads the token account stored under handle.
func (t *Tx) TokenAccount(handle revshare.Identity) (*TokenAccount, error) {
	data := t.btx.Bucket(bucketTokenAccounts).Get(handle[:])
	if data == nil {
		return nil, fmt.Errorf("%w: token account %s", ErrNotFound, handle)
	}
	if len(data) != tokenAccountSize {
		return nil, fmt.Errorf("%w: token account %s is %d bytes", ErrCorrupt, handle, len(data))
	}
	acct := &TokenAccount{}
	copy(acct.Owner[:], data[0:32])
	copy(acct.Asset[:], data[32:64])
	acct.Frozen = data[64] != 0
	acct.Amount = binary.BigEndian.Uint64(data[65:73])
	return acct, nil
}

// PutTokenAccount stores acct under handle.
func (t *Tx) PutTokenAccount(handle revshare.Identity, acct *TokenAccount) error {
	buf := make([]byte, tokenAccountSize)
	copy(buf[0:32], acct.Owner[:])
	copy(buf[32:64], acct.Asset[:])
	if acct.Frozen {
		buf[64] = 1
	}
	binary.BigEndian.PutUint64(buf[65:73], acct.Amount)
	if err := t.btx.Bucket(bucketTokenAccounts).Put(handle[:], buf); err != nil {
		return fmt.Errorf("boltstore: put token account: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Metadata
// ---------------------------------------------------------------------------

// GenesisHash returns the digest of the genesis document applied to the
// store, or nil if none was applied.
func (t *Tx) GenesisHash() []byte {
	v := t.btx.Bucket(bucketMeta).Get(keyGenesis)
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

// SetGenesisHash records the digest of the applied genesis document.
func (t *Tx) SetGenesisHash(digest []byte) error {
	if err := t.btx.Bucket(bucketMeta).Put(keyGenesis, digest); err != nil {
		return fmt.Errorf("boltstore: put genesis hash: %w", err)
	}
	return nil
}
