// Package ledger is the business layer over the share ledgers. The API
// server, the CLI and the daemon all call Service methods; each method runs
// as one storage transaction, so a failed call leaves no trace.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/bitfsorg/sharestore-go/asset"
	"github.com/bitfsorg/sharestore-go/logging"
	"github.com/bitfsorg/sharestore-go/metrics"
	"github.com/bitfsorg/sharestore-go/revshare"
	"github.com/bitfsorg/sharestore-go/storage"
)

// Service coordinates ledger state, the value store and bookkeeping.
type Service struct {
	store   storage.Store
	floor   uint64
	log     *slog.Logger
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for distribution timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the metrics registry. nil disables metrics.
func WithMetrics(m *metrics.LedgerMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithReserveFloor sets the balance every native ledger account retains.
func WithReserveFloor(floor uint64) Option {
	return func(s *Service) { s.floor = floor }
}

// New creates a Service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   logging.Discard(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// GetLedger returns the ledger with the given identity.
func (s *Service) GetLedger(id revshare.Identity) (*revshare.Ledger, error) {
	var l *revshare.Ledger
	err := s.store.View(func(tx *storage.Tx) error {
		var err error
		l, err = tx.Ledger(id)
		return err
	})
	return l, err
}

// ListByAdmin returns every ledger administered by admin.
func (s *Service) ListByAdmin(admin revshare.Identity) ([]*revshare.Ledger, error) {
	var ls []*revshare.Ledger
	err := s.store.View(func(tx *storage.Tx) error {
		var err error
		ls, err = tx.LedgersByAdmin(admin)
		return err
	})
	return ls, err
}

// Balance returns the native balance of account.
func (s *Service) Balance(account revshare.Identity) (uint64, error) {
	var bal uint64
	err := s.store.View(func(tx *storage.Tx) error {
		var err error
		bal, err = tx.Balance(account)
		return err
	})
	return bal, err
}

// TokenAccount returns the token account stored under handle.
func (s *Service) TokenAccount(handle revshare.Identity) (*storage.TokenAccount, error) {
	var acct *storage.TokenAccount
	err := s.store.View(func(tx *storage.Tx) error {
		var err error
		acct, err = tx.TokenAccount(handle)
		return err
	})
	return acct, err
}

// Destinations returns the default payout handle of every holder, in
// registry order: the holder identity for native ledgers and the holder's
// token account for fungible ones.
func Destinations(l *revshare.Ledger) []revshare.Identity {
	dests := make([]revshare.Identity, len(l.Holders))
	for i, h := range l.Holders {
		if l.Kind.Fungible {
			dests[i] = asset.TokenAccountID(h.Identity, l.Kind.Asset)
		} else {
			dests[i] = h.Identity
		}
	}
	return dests
}

// ---------------------------------------------------------------------------
// Administration
// ---------------------------------------------------------------------------

// CreateLedger creates a ledger named name administered by caller. Fungible
// ledgers get an empty vault token account.
func (s *Service) CreateLedger(caller revshare.Identity, name string, kind revshare.AssetKind) (*revshare.Ledger, error) {
	l, err := revshare.NewLedger(caller, name, kind)
	if err != nil {
		s.metrics.ObserveMutation("create", err)
		return nil, err
	}
	var count int
	err = s.store.Update(func(tx *storage.Tx) error {
		if err := tx.CreateLedger(l); err != nil {
			return err
		}
		if kind.Fungible {
			if err := asset.OpenVault(tx, l); err != nil {
				return err
			}
		}
		count = tx.CountLedgers()
		return nil
	})
	s.metrics.ObserveMutation("create", err)
	if err != nil {
		return nil, err
	}
	s.metrics.SetLedgerCount(count)
	s.log.Info("ledger created", "ledger", l.ID.String(), "admin", caller.String(), "name", name, "fungible", kind.Fungible)
	return l, nil
}

// SetHolders replaces the holder list of a ledger.
func (s *Service) SetHolders(caller, id revshare.Identity, hs []revshare.Holder) (*revshare.Ledger, error) {
	return s.mutate("set_holders", id, func(l *revshare.Ledger) error {
		return l.SetHolders(caller, hs)
	})
}

// AddHolder appends a holder to a ledger.
func (s *Service) AddHolder(caller, id revshare.Identity, h revshare.Holder) (*revshare.Ledger, error) {
	return s.mutate("add_holder", id, func(l *revshare.Ledger) error {
		return l.AddHolderAs(caller, h)
	})
}

// RemoveHolder removes a holder from a ledger.
func (s *Service) RemoveHolder(caller, id, holder revshare.Identity) (*revshare.Ledger, error) {
	return s.mutate("remove_holder", id, func(l *revshare.Ledger) error {
		return l.RemoveHolderAs(caller, holder)
	})
}

// Enable turns distribution on for a ledger.
func (s *Service) Enable(caller, id revshare.Identity) (*revshare.Ledger, error) {
	return s.mutate("enable", id, func(l *revshare.Ledger) error {
		return l.SetEnabled(caller, true)
	})
}

// Disable turns distribution off for a ledger.
func (s *Service) Disable(caller, id revshare.Identity) (*revshare.Ledger, error) {
	return s.mutate("disable", id, func(l *revshare.Ledger) error {
		return l.SetEnabled(caller, false)
	})
}

// mutate loads a ledger, applies fn and stores the result in one transaction.
func (s *Service) mutate(op string, id revshare.Identity, fn func(*revshare.Ledger) error) (*revshare.Ledger, error) {
	var l *revshare.Ledger
	err := s.store.Update(func(tx *storage.Tx) error {
		var err error
		if l, err = tx.Ledger(id); err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
		return tx.PutLedger(l)
	})
	s.metrics.ObserveMutation(op, err)
	if err != nil {
		s.log.Debug("ledger operation rejected", "op", op, "ledger", id.String(), "error", err)
		return nil, err
	}
	s.log.Info("ledger updated", "op", op, "ledger", id.String(), "holders", len(l.Holders), "enabled", l.Enabled)
	return l, nil
}

// ---------------------------------------------------------------------------
// Value movement
// ---------------------------------------------------------------------------

// Deposit moves amount from caller into a ledger: from the caller's native
// balance for native ledgers, or from the caller's token account of the
// ledger's asset for fungible ones.
func (s *Service) Deposit(caller, id revshare.Identity, amount uint64) error {
	err := s.store.Update(func(tx *storage.Tx) error {
		l, err := tx.Ledger(id)
		if err != nil {
			return err
		}
		if l.Kind.Fungible {
			return asset.DepositTokens(tx, caller, asset.TokenAccountID(caller, l.Kind.Asset), l, amount)
		}
		return asset.Deposit(tx, caller, l, amount)
	})
	s.metrics.ObserveMutation("deposit", err)
	if err != nil {
		return err
	}
	s.log.Info("deposit", "ledger", id.String(), "from", caller.String(), "amount", amount)
	return nil
}

// OpenTokenAccount opens the default token account of owner for assetID and
// returns its handle.
func (s *Service) OpenTokenAccount(owner, assetID revshare.Identity) (revshare.Identity, error) {
	handle := asset.TokenAccountID(owner, assetID)
	err := s.store.Update(func(tx *storage.Tx) error {
		return asset.OpenTokenAccount(tx, handle, owner, assetID)
	})
	if err != nil {
		return revshare.Identity{}, err
	}
	s.log.Info("token account opened", "handle", handle.String(), "owner", owner.String(), "asset", assetID.String())
	return handle, nil
}

// Distribute pays the ledger's distributable pool out to its holders.
// destinations lists one payout handle per holder in registry order. Anyone
// may call it.
func (s *Service) Distribute(ctx context.Context, id revshare.Identity, destinations []revshare.Identity) (*revshare.Receipt, error) {
	return s.distribute(ctx, id, func(*revshare.Ledger) []revshare.Identity { return destinations })
}

// DistributeDefault is Distribute paying every holder at the handle returned
// by Destinations, resolved against the registry inside the transaction.
func (s *Service) DistributeDefault(ctx context.Context, id revshare.Identity) (*revshare.Receipt, error) {
	return s.distribute(ctx, id, Destinations)
}

func (s *Service) distribute(ctx context.Context, id revshare.Identity, dests func(*revshare.Ledger) []revshare.Identity) (*revshare.Receipt, error) {
	var (
		receipt *revshare.Receipt
		kind    revshare.AssetKind
	)
	err := s.store.Update(func(tx *storage.Tx) error {
		l, err := tx.Ledger(id)
		if err != nil {
			return err
		}
		kind = l.Kind
		receipt, err = revshare.Distribute(ctx, l, asset.For(tx, l, s.floor), dests(l), s.now())
		if err != nil {
			return err
		}
		if receipt.Distributed == 0 {
			return nil
		}
		return tx.PutLedger(l)
	})
	s.metrics.ObserveDistribution(kind, receipt, err)
	if err != nil {
		s.log.Warn("distribution failed", "ledger", id.String(), "error", err)
		return nil, err
	}
	s.log.Info("distribution",
		"ledger", id.String(),
		"pool", revshare.FormatAmount(receipt.Pool, kind.Decimals),
		"remainder", receipt.Remainder,
		"holders", len(receipt.Payouts),
	)
	return receipt, nil
}
