package revshare

import "fmt"

// ValidateShareSet checks a proposed full holder list. Checks run in order
// and stop at the first failure:
//
//  1. at most MaxHolders entries (ErrTooManyHolders)
//  2. shares sum to exactly 10000 (ErrInvalidShareDistribution)
//  3. identities are pairwise distinct (ErrHolderAlreadyExists)
func ValidateShareSet(hs []Holder) error {
	if len(hs) > MaxHolders {
		return fmt.Errorf("%w: got %d", ErrTooManyHolders, len(hs))
	}

	// 16 * 65535 still fits in 32 bits.
	if total := sumBasisPoints(hs); total != TotalBasisPoints {
		return fmt.Errorf("%w: got %d", ErrInvalidShareDistribution, total)
	}

	for i := 0; i < len(hs); i++ {
		for j := i + 1; j < len(hs); j++ {
			if hs[i].Identity == hs[j].Identity {
				return fmt.Errorf("%w: %s at positions %d and %d", ErrHolderAlreadyExists, hs[i].Identity, i, j)
			}
		}
	}
	return nil
}

// ValidateName checks that a ledger name is 1 to 32 bytes long.
func ValidateName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLen {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidName, len(name))
	}
	return nil
}

// ValidatePayouts checks that payouts match, entry by entry, the plan
// ComputePayouts derives for the same pool and registry, and that they sum
// to pool. Mismatches wrap ErrInvalidShareDistribution.
func ValidatePayouts(payouts []Payout, holders []Holder, pool uint64) error {
	if len(payouts) != len(holders) {
		return fmt.Errorf("%w: %d payouts for %d holders", ErrInvalidShareDistribution, len(payouts), len(holders))
	}

	expected, _, err := ComputePayouts(pool, holders)
	if err != nil {
		return err
	}

	var sum uint64
	for i := range payouts {
		if payouts[i].Holder != holders[i].Identity {
			return fmt.Errorf("%w: entry %d pays %s, want %s", ErrInvalidShareDistribution, i, payouts[i].Holder, holders[i].Identity)
		}
		if payouts[i].Amount != expected[i] {
			return fmt.Errorf("%w: entry %d amount %d, want %d", ErrInvalidShareDistribution, i, payouts[i].Amount, expected[i])
		}
		var ok bool
		if sum, ok = checkedAdd(sum, payouts[i].Amount); !ok {
			return fmt.Errorf("%w: payouts sum past %d", ErrArithmeticOverflow, sum)
		}
	}
	if sum != pool {
		return fmt.Errorf("%w: payouts sum to %d, pool is %d", ErrInvalidShareDistribution, sum, pool)
	}
	return nil
}
