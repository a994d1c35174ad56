package revshare

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
)

var bpsDenominator = uint256.NewInt(TotalBasisPoints)

// ComputePayouts splits pool across holders in proportion to their shares.
//
// Each amount is floor(pool * share / 10000), computed in 256-bit width so
// the product cannot overflow. The floor shortfall (at most n-1) is added
// entirely to the first holder, so the amounts always sum to pool exactly.
func ComputePayouts(pool uint64, holders []Holder) ([]uint64, uint64, error) {
	if len(holders) == 0 {
		return nil, 0, ErrNoHolders
	}
	if total := sumBasisPoints(holders); total != TotalBasisPoints {
		return nil, 0, fmt.Errorf("%w: got %d", ErrInvalidShareDistribution, total)
	}

	amounts := make([]uint64, len(holders))
	p := uint256.NewInt(pool)
	var distributed uint64

	for i, h := range holders {
		share := new(uint256.Int).Mul(p, uint256.NewInt(uint64(h.ShareBps)))
		share.Div(share, bpsDenominator)
		// share <= pool because ShareBps <= 10000 once the sum is exact.
		amounts[i] = share.Uint64()
		distributed += amounts[i]
	}

	remainder := pool - distributed
	amounts[0] += remainder
	return amounts, remainder, nil
}

// Distribute pays the adapter's distributable pool out to the ledger's
// holders. destinations must list one handle per holder, in registry order.
//
// Every gate and destination check runs before the first transfer, and the
// payout plan is checked against ValidatePayouts before any value moves. The
// ledger is mutated only after all transfers succeeded; a caller that gets
// an error must discard the adapter's effects (the storage transaction does
// this). An empty pool is a successful no-op.
func Distribute(ctx context.Context, l *Ledger, adapter AssetAdapter, destinations []Identity, now time.Time) (*Receipt, error) {
	if !l.Enabled {
		return nil, ErrShareStorageDisabled
	}
	n := len(l.Holders)
	if n == 0 {
		return nil, ErrNoHolders
	}
	if len(destinations) != n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidHolderAccounts, len(destinations), n)
	}
	if total := l.TotalBasisPoints(); total != TotalBasisPoints {
		return nil, fmt.Errorf("%w: registry holds %d", ErrInvalidShareDistribution, total)
	}
	for i, h := range l.Holders {
		if err := adapter.ValidateDestination(ctx, destinations[i], h.Identity); err != nil {
			return nil, fmt.Errorf("holder %d: %w", i, err)
		}
	}

	pool, err := DistributablePool(ctx, adapter)
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{LedgerID: l.ID, Pool: pool}
	if pool == 0 {
		return receipt, nil
	}

	amounts, remainder, err := ComputePayouts(pool, l.Holders)
	if err != nil {
		return nil, err
	}
	total, ok := checkedAdd(l.TotalDistributed, pool)
	if !ok {
		return nil, fmt.Errorf("%w: total %d + %d", ErrArithmeticOverflow, l.TotalDistributed, pool)
	}

	receipt.Payouts = make([]Payout, n)
	for i, h := range l.Holders {
		receipt.Payouts[i] = Payout{Holder: h.Identity, Destination: destinations[i], Amount: amounts[i]}
	}
	if err := ValidatePayouts(receipt.Payouts, l.Holders, pool); err != nil {
		return nil, err
	}

	for i, p := range receipt.Payouts {
		if p.Amount == 0 {
			continue
		}
		if err := adapter.Transfer(ctx, p.Destination, p.Amount); err != nil {
			return nil, fmt.Errorf("transfer to holder %d: %w", i, err)
		}
	}

	l.TotalDistributed = total
	if ts := now.Unix(); ts > l.LastDistributedAt {
		l.LastDistributedAt = ts
	}
	receipt.Remainder = remainder
	receipt.Distributed = pool
	receipt.At = l.LastDistributedAt
	return receipt, nil
}

func checkedAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

// FormatAmount renders a base-unit amount as a decimal string with the
// given number of fractional digits.
func FormatAmount(amount uint64, decimals uint8) string {
	s := strconv.FormatUint(amount, 10)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	return s[:len(s)-d] + "." + s[len(s)-d:]
}
