package revshare

import "fmt"

// FindHolder returns the index and entry for the given identity, or -1 if not found.
func (l *Ledger) FindHolder(id Identity) (int, *Holder) {
	for i := range l.Holders {
		if l.Holders[i].Identity == id {
			return i, &l.Holders[i]
		}
	}
	return -1, nil
}

// AddHolder appends a holder to the registry, preserving existing order.
// The 10000 basis point total is not enforced here; only ReplaceHolders
// establishes a distributable registry.
func (l *Ledger) AddHolder(h Holder) error {
	if len(l.Holders) >= MaxHolders {
		return ErrTooManyHolders
	}
	if h.ShareBps > TotalBasisPoints {
		return fmt.Errorf("%w: share %d exceeds %d", ErrInvalidShareDistribution, h.ShareBps, TotalBasisPoints)
	}
	if i, _ := l.FindHolder(h.Identity); i >= 0 {
		return fmt.Errorf("%w: %s", ErrHolderAlreadyExists, h.Identity)
	}
	l.Holders = append(l.Holders, h)
	return nil
}

// RemoveHolder removes the holder with the given identity. Subsequent
// entries shift left.
func (l *Ledger) RemoveHolder(id Identity) error {
	i, _ := l.FindHolder(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrHolderNotFound, id)
	}
	l.Holders = append(l.Holders[:i:i], l.Holders[i+1:]...)
	return nil
}

// ReplaceHolders validates hs and, on success, installs a copy of it as the
// registry in caller order. On failure the registry is left unchanged.
func (l *Ledger) ReplaceHolders(hs []Holder) error {
	if err := ValidateShareSet(hs); err != nil {
		return err
	}
	l.Holders = append([]Holder(nil), hs...)
	return nil
}

// TotalBasisPoints returns the sum of all current shares. The registry may
// be mid-edit, so the result can differ from 10000.
func (l *Ledger) TotalBasisPoints() uint32 {
	return sumBasisPoints(l.Holders)
}

func sumBasisPoints(hs []Holder) uint32 {
	var total uint32
	for _, h := range hs {
		total += uint32(h.ShareBps)
	}
	return total
}
