package auth

import (
	"encoding/hex"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)

	body := []byte(`{"name":"alpha"}`)
	creds, err := SignRequest(priv, "POST", "/v1/ledgers", body)
	require.NoError(t, err)

	assert.Len(t, creds.Nonce, 2*nonceSize)
	assert.InDelta(t, time.Now().Unix(), creds.Timestamp, 5)

	id, err := VerifyRequest(creds.PubKey, creds.Signature, RequestDigest("POST", "/v1/ledgers", creds.Timestamp, creds.Nonce, body))
	require.NoError(t, err)
	assert.Equal(t, IdentityFromPubKey(priv.PubKey()), id)

	again, err := SignRequest(priv, "POST", "/v1/ledgers", body)
	require.NoError(t, err)
	assert.NotEqual(t, creds.Nonce, again.Nonce)
}

func TestVerify_TamperedRequest(t *testing.T) {
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	creds, err := SignRequest(priv, "POST", "/v1/ledgers/x/disable", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		ts     int64
		nonce  string
		body   []byte
	}{
		{"method", "PUT", "/v1/ledgers/x/disable", creds.Timestamp, creds.Nonce, nil},
		{"path", "POST", "/v1/ledgers/x/enable", creds.Timestamp, creds.Nonce, nil},
		{"timestamp", "POST", "/v1/ledgers/x/disable", creds.Timestamp + 1, creds.Nonce, nil},
		{"nonce", "POST", "/v1/ledgers/x/disable", creds.Timestamp, "00", nil},
		{"body", "POST", "/v1/ledgers/x/disable", creds.Timestamp, creds.Nonce, []byte("{}")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyRequest(creds.PubKey, creds.Signature, RequestDigest(tt.method, tt.path, tt.ts, tt.nonce, tt.body))
			assert.ErrorIs(t, err, ErrBadSignature)
		})
	}
}

func TestVerify_OtherKey(t *testing.T) {
	signer, err := ec.NewPrivateKey()
	require.NoError(t, err)
	other, err := ec.NewPrivateKey()
	require.NoError(t, err)

	creds, err := SignRequest(signer, "GET", "/", nil)
	require.NoError(t, err)
	_, err = VerifyRequest(hex.EncodeToString(other.PubKey().Compressed()), creds.Signature, RequestDigest("GET", "/", creds.Timestamp, creds.Nonce, nil))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_Malformed(t *testing.T) {
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	creds, err := SignRequest(priv, "GET", "/", nil)
	require.NoError(t, err)
	digest := RequestDigest("GET", "/", creds.Timestamp, creds.Nonce, nil)

	_, err = VerifyRequest("", creds.Signature, digest)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = VerifyRequest(creds.PubKey, "", digest)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = VerifyRequest("zz", creds.Signature, digest)
	assert.ErrorIs(t, err, ErrBadSignature)
	_, err = VerifyRequest("02abcd", creds.Signature, digest)
	assert.ErrorIs(t, err, ErrBadSignature)
	_, err = VerifyRequest(creds.PubKey, "3000", digest)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestRequestDigest_FieldBoundaries(t *testing.T) {
	assert.NotEqual(t, RequestDigest("GET", "/ab", 1, "n", nil), RequestDigest("GET", "/a", 1, "n", []byte("b")))
	assert.NotEqual(t, RequestDigest("GET", "/", 1, "2n", nil), RequestDigest("GET", "/", 12, "n", nil))
	assert.Len(t, RequestDigest("GET", "/", 1, "n", nil), 32)
}

func TestCaller(t *testing.T) {
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	body := `{"amount":5}`

	r := httptest.NewRequest("POST", "/v1/ledgers/abc/deposit", strings.NewReader(body))
	creds, err := SignRequest(priv, r.Method, r.URL.Path, []byte(body))
	require.NoError(t, err)
	creds.Apply(r)

	id, err := Caller(r, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, IdentityFromPubKey(priv.PubKey()), id)

	r.Header.Del(HeaderNonce)
	_, err = Caller(r, []byte(body))
	assert.ErrorIs(t, err, ErrMissingCredentials)

	r.Header.Set(HeaderNonce, creds.Nonce)
	r.Header.Set(HeaderTimestamp, "yesterday")
	_, err = Caller(r, []byte(body))
	assert.ErrorIs(t, err, ErrBadSignature)

	r.Header.Set(HeaderTimestamp, strconv.FormatInt(creds.Timestamp, 10))
	r.Header.Set(HeaderNonce, strings.Repeat("a", MaxNonceLen+1))
	_, err = Caller(r, []byte(body))
	assert.ErrorIs(t, err, ErrBadSignature)

	r.Header.Set(HeaderNonce, creds.Nonce)
	r.Header.Del(HeaderSignature)
	_, err = Caller(r, []byte(body))
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
