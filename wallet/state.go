package wallet

import "fmt"

// Key names one derived signing key.
type Key struct {
	Label string `json:"label"`
	Index uint32 `json:"index"`
}

// KeyState holds the persisted key labels. Indices are never reused.
type KeyState struct {
	Keys      []Key  `json:"keys"`
	NextIndex uint32 `json:"next_index"`
}

// NewKeyState creates an empty KeyState.
func NewKeyState() *KeyState {
	return &KeyState{Keys: []Key{}}
}

// Validate checks the integrity of a deserialized KeyState.
func (ks *KeyState) Validate() error {
	labels := make(map[string]bool)
	indices := make(map[uint32]string)
	for _, k := range ks.Keys {
		if k.Label == "" {
			return fmt.Errorf("%w: empty label at index %d", ErrInvalidState, k.Index)
		}
		if labels[k.Label] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidState, k.Label)
		}
		labels[k.Label] = true
		if prev, ok := indices[k.Index]; ok {
			return fmt.Errorf("%w: keys %q and %q share index %d", ErrInvalidState, prev, k.Label, k.Index)
		}
		indices[k.Index] = k.Label
		if k.Index > MaxKeyIndex || k.Index >= ks.NextIndex {
			return fmt.Errorf("%w: key %q index %d, next index %d", ErrInvalidState, k.Label, k.Index, ks.NextIndex)
		}
	}
	return nil
}

// Add allocates the next index for label.
func (ks *KeyState) Add(label string) (Key, error) {
	if label == "" {
		return Key{}, fmt.Errorf("%w: empty label", ErrInvalidState)
	}
	if _, err := ks.Lookup(label); err == nil {
		return Key{}, fmt.Errorf("%w: %q", ErrKeyExists, label)
	}
	if ks.NextIndex > MaxKeyIndex {
		return Key{}, ErrKeyIndexOutOfRange
	}
	k := Key{Label: label, Index: ks.NextIndex}
	ks.Keys = append(ks.Keys, k)
	ks.NextIndex++
	return k, nil
}

// Lookup finds the key with the given label.
func (ks *KeyState) Lookup(label string) (Key, error) {
	for _, k := range ks.Keys {
		if k.Label == label {
			return k, nil
		}
	}
	return Key{}, fmt.Errorf("%w: %q", ErrKeyNotFound, label)
}
