package auth

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/sharestore-go/revshare"
)

func fixedGuard(skew time.Duration, capacity int, now *time.Time) *ReplayGuard {
	g := NewReplayGuard(skew, capacity)
	g.now = func() time.Time { return *now }
	return g
}

func TestReplayGuard_Defaults(t *testing.T) {
	g := NewReplayGuard(0, -1)
	assert.Equal(t, DefaultMaxSkew, g.maxSkew)
	assert.Equal(t, DefaultReplayCapacity, g.capacity)
}

func TestReplayGuard_SecondUseRejected(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	g := fixedGuard(time.Minute, 0, &now)
	id := revshare.Identity{0x01}

	require.NoError(t, g.Check(id, now.Unix(), "abc"))
	assert.ErrorIs(t, g.Check(id, now.Unix(), "abc"), ErrReplayedRequest)

	// Nonces are scoped per caller.
	assert.NoError(t, g.Check(revshare.Identity{0x02}, now.Unix(), "abc"))
	assert.NoError(t, g.Check(id, now.Unix(), "abd"))
}

func TestReplayGuard_Skew(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	g := fixedGuard(time.Minute, 0, &now)
	id := revshare.Identity{0x01}

	tests := []struct {
		name   string
		offset time.Duration
		want   error
	}{
		{"at edge past", -time.Minute, nil},
		{"at edge future", time.Minute, nil},
		{"too old", -time.Minute - time.Second, ErrStaleRequest},
		{"too new", time.Minute + time.Second, ErrStaleRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(id, now.Add(tt.offset).Unix(), tt.name)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReplayGuard_WindowCloses(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	now := start
	g := fixedGuard(time.Minute, 0, &now)
	id := revshare.Identity{0x01}

	require.NoError(t, g.Check(id, start.Unix(), "n"))

	now = start.Add(time.Minute)
	assert.ErrorIs(t, g.Check(id, start.Unix(), "n"), ErrReplayedRequest)

	now = start.Add(time.Minute + time.Second)
	assert.ErrorIs(t, g.Check(id, start.Unix(), "n"), ErrStaleRequest)
}

func TestReplayGuard_Capacity(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	now := start
	g := fixedGuard(time.Minute, 2, &now)
	id := revshare.Identity{0x01}

	require.NoError(t, g.Check(id, start.Unix(), "a"))
	require.NoError(t, g.Check(id, start.Unix()+1, "b"))
	require.NoError(t, g.Check(id, start.Unix()+2, "c"))
	assert.Equal(t, 2, g.Len())

	// The nonce closest to expiry made room; the newer ones are still held.
	assert.ErrorIs(t, g.Check(id, start.Unix()+1, "b"), ErrReplayedRequest)
	assert.ErrorIs(t, g.Check(id, start.Unix()+2, "c"), ErrReplayedRequest)

	// Expired entries are dropped before anything live is evicted.
	now = start.Add(time.Minute + 2*time.Second)
	require.NoError(t, g.Check(id, now.Unix(), "d"))
	assert.Equal(t, 2, g.Len())
	assert.ErrorIs(t, g.Check(id, start.Unix()+2, "c"), ErrReplayedRequest)
}

func TestReplayGuard_Verify(t *testing.T) {
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	g := fixedGuard(time.Minute, 0, &now)
	body := `{"amount":5}`

	creds, err := SignRequestAt(priv, "POST", "/v1/ledgers/abc/deposit", []byte(body), now)
	require.NoError(t, err)
	send := func() error {
		r := httptest.NewRequest("POST", "/v1/ledgers/abc/deposit", strings.NewReader(body))
		creds.Apply(r)
		_, err := g.Verify(r, []byte(body))
		return err
	}

	require.NoError(t, send())
	assert.ErrorIs(t, send(), ErrReplayedRequest)

	stale, err := SignRequestAt(priv, "POST", "/v1/ledgers/abc/deposit", []byte(body), now.Add(-2*time.Minute))
	require.NoError(t, err)
	r := httptest.NewRequest("POST", "/v1/ledgers/abc/deposit", strings.NewReader(body))
	stale.Apply(r)
	_, err = g.Verify(r, []byte(body))
	assert.ErrorIs(t, err, ErrStaleRequest)

	// A bad signature never consumes a nonce.
	forged := creds
	forged.Nonce = "feed"
	r = httptest.NewRequest("POST", "/v1/ledgers/abc/deposit", strings.NewReader(body))
	forged.Apply(r)
	_, err = g.Verify(r, []byte(body))
	assert.ErrorIs(t, err, ErrBadSignature)
	assert.Equal(t, 1, g.Len())
}
