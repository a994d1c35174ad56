package revshare

import (
	"context"
	"fmt"
)

// AssetAdapter is the value store behind a ledger. Implementations report
// the pool, check destinations and move value; the engine never transfers
// to a destination that has not passed ValidateDestination.
type AssetAdapter interface {
	// PoolSize returns the current balance held for the ledger.
	PoolSize(ctx context.Context) (uint64, error)

	// ReservedFloor returns the amount that must stay behind (zero for
	// fungible assets).
	ReservedFloor(ctx context.Context) (uint64, error)

	// ValidateDestination confirms destination can receive value on behalf of owner.
	ValidateDestination(ctx context.Context, destination, owner Identity) error

	// Transfer moves amount from the ledger to destination.
	Transfer(ctx context.Context, destination Identity, amount uint64) error
}

// DistributablePool returns the adapter balance above its reserved floor,
// or zero when the balance is at or below the floor.
func DistributablePool(ctx context.Context, adapter AssetAdapter) (uint64, error) {
	balance, err := adapter.PoolSize(ctx)
	if err != nil {
		return 0, fmt.Errorf("revshare: pool size: %w", err)
	}
	floor, err := adapter.ReservedFloor(ctx)
	if err != nil {
		return 0, fmt.Errorf("revshare: reserved floor: %w", err)
	}
	if balance <= floor {
		return 0, nil
	}
	return balance - floor, nil
}
