package auth

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bitfsorg/sharestore-go/revshare"
)

const (
	// DefaultMaxSkew is the clock skew accepted when none is configured.
	DefaultMaxSkew = 5 * time.Minute

	// DefaultReplayCapacity bounds the nonces remembered when none is configured.
	DefaultReplayCapacity = 65536
)

// ReplayGuard accepts each signed request at most once. A request is fresh
// while its timestamp is within maxSkew of the local clock; the guard
// remembers every nonce it accepted until that window closes, after which
// the timestamp check alone rejects the request.
type ReplayGuard struct {
	maxSkew  time.Duration
	capacity int
	now      func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time // identity|nonce -> moment the request goes stale
}

// NewReplayGuard returns a guard accepting timestamps within maxSkew and
// remembering at most capacity nonces. Non-positive values select the
// defaults.
func NewReplayGuard(maxSkew time.Duration, capacity int) *ReplayGuard {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	if capacity <= 0 {
		capacity = DefaultReplayCapacity
	}
	return &ReplayGuard{
		maxSkew:  maxSkew,
		capacity: capacity,
		now:      time.Now,
		seen:     make(map[string]time.Time),
	}
}

// Verify authenticates r like Caller and then records its nonce, rejecting
// stale timestamps and nonces already accepted for the same caller.
func (g *ReplayGuard) Verify(r *http.Request, body []byte) (revshare.Identity, error) {
	id, err := Caller(r, body)
	if err != nil {
		return revshare.Identity{}, err
	}
	ts, nonce, err := Stamp(r)
	if err != nil {
		return revshare.Identity{}, err
	}
	if err := g.Check(id, ts, nonce); err != nil {
		return revshare.Identity{}, err
	}
	return id, nil
}

// Check records nonce for id if timestamp is fresh and the pair is new.
func (g *ReplayGuard) Check(id revshare.Identity, timestamp int64, nonce string) error {
	now := g.now()
	signedAt := time.Unix(timestamp, 0)
	skew := now.Sub(signedAt)
	if skew < 0 {
		skew = -skew
	}
	if skew > g.maxSkew {
		return fmt.Errorf("%w: signed at %s", ErrStaleRequest, signedAt.UTC().Format(time.RFC3339))
	}

	key := id.String() + "|" + nonce
	g.mu.Lock()
	defer g.mu.Unlock()

	if expiry, ok := g.seen[key]; ok && !now.After(expiry) {
		return ErrReplayedRequest
	}
	g.prune(now)
	g.seen[key] = signedAt.Add(g.maxSkew)
	return nil
}

// Len returns the number of remembered nonces.
func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// prune drops nonces whose window has closed. When the guard is still full
// the entry closest to expiry is evicted.
func (g *ReplayGuard) prune(now time.Time) {
	if len(g.seen) < g.capacity {
		return
	}
	for key, expiry := range g.seen {
		if now.After(expiry) {
			delete(g.seen, key)
		}
	}
	for len(g.seen) >= g.capacity {
		var oldest string
		var oldestAt time.Time
		for key, expiry := range g.seen {
			if oldest == "" || expiry.Before(oldestAt) {
				oldest, oldestAt = key, expiry
			}
		}
		delete(g.seen, oldest)
	}
}
