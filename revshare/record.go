package revshare

import (
	"encoding/binary"
	"fmt"
)

const (
	ledgerRecordVersion = 1

	// version(1) + admin(32) + name_len(1)
	ledgerHeaderSize = 34
	// enabled(1) + fungible(1) + asset(32) + decimals(1) + total(8) + last(8) + num_holders(1)
	ledgerBodySize = 52
)

// SerializeLedger encodes a Ledger to its persisted binary layout:
//
//	version | admin | name_len | name | enabled | fungible | asset |
//	decimals | total_distributed | last_distributed_at | n | n × holder
//
// The ledger ID is not stored; it is re-derived from admin and name.
func SerializeLedger(l *Ledger) ([]byte, error) {
	if err := ValidateName(l.Name); err != nil {
		return nil, err
	}
	if len(l.Holders) > MaxHolders {
		return nil, fmt.Errorf("%w: %d holders", ErrTooManyHolders, len(l.Holders))
	}

	size := ledgerHeaderSize + len(l.Name) + ledgerBodySize + holderRecordSize*len(l.Holders)
	buf := make([]byte, size)
	offset := 0

	buf[offset] = ledgerRecordVersion
	offset++

	copy(buf[offset:offset+32], l.Admin[:])
	offset += 32

	buf[offset] = byte(len(l.Name))
	offset++
	copy(buf[offset:], l.Name)
	offset += len(l.Name)

	buf[offset] = boolByte(l.Enabled)
	offset++
	buf[offset] = boolByte(l.Kind.Fungible)
	offset++

	copy(buf[offset:offset+32], l.Kind.Asset[:])
	offset += 32

	buf[offset] = l.Kind.Decimals
	offset++

	binary.BigEndian.PutUint64(buf[offset:offset+8], l.TotalDistributed)
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:offset+8], uint64(l.LastDistributedAt))
	offset += 8

	buf[offset] = byte(len(l.Holders))
	offset++

	for _, h := range l.Holders {
		putHolder(buf[offset:offset+holderRecordSize], h)
		offset += holderRecordSize
	}
	return buf, nil
}

// DeserializeLedger decodes binary data produced by SerializeLedger.
func DeserializeLedger(data []byte) (*Ledger, error) {
	if len(data) < ledgerHeaderSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidLedgerData, len(data))
	}
	offset := 0

	if v := data[offset]; v != ledgerRecordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidLedgerData, v)
	}
	offset++

	l := &Ledger{}
	copy(l.Admin[:], data[offset:offset+32])
	offset += 32

	nameLen := int(data[offset])
	offset++
	if nameLen == 0 || nameLen > MaxNameLen {
		return nil, fmt.Errorf("%w: name length %d", ErrInvalidLedgerData, nameLen)
	}
	if len(data) < offset+nameLen+ledgerBodySize {
		return nil, fmt.Errorf("%w: truncated body (%d bytes)", ErrInvalidLedgerData, len(data))
	}
	l.Name = string(data[offset : offset+nameLen])
	offset += nameLen

	l.Enabled = data[offset] != 0
	offset++
	l.Kind.Fungible = data[offset] != 0
	offset++

	copy(l.Kind.Asset[:], data[offset:offset+32])
	offset += 32

	l.Kind.Decimals = data[offset]
	offset++

	l.TotalDistributed = binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8
	l.LastDistributedAt = int64(binary.BigEndian.Uint64(data[offset : offset+8]))
	offset += 8

	numHolders := int(data[offset])
	offset++
	if numHolders > MaxHolders {
		return nil, fmt.Errorf("%w: %d holders", ErrInvalidLedgerData, numHolders)
	}

	expectedSize := offset + holderRecordSize*numHolders
	if len(data) != expectedSize {
		return nil, fmt.Errorf("%w: expected %d bytes for %d holders, got %d",
			ErrInvalidLedgerData, expectedSize, numHolders, len(data))
	}

	l.Holders = make([]Holder, numHolders)
	for i := 0; i < numHolders; i++ {
		l.Holders[i] = getHolder(data[offset : offset+holderRecordSize])
		offset += holderRecordSize
	}

	l.ID = DeriveLedgerID(l.Admin, l.Name)
	return l, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
