// Package auth identifies API callers. A caller signs a digest of the
// request with a secp256k1 key; its identity is the SHA256 of the
// compressed public key. Every signature also covers a timestamp and a
// random nonce so a ReplayGuard can refuse captured requests.
package auth

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"

	"github.com/bitfsorg/sharestore-go/revshare"
)

// Request headers carrying the caller credentials.
const (
	HeaderPubKey    = "X-Share-Pubkey"
	HeaderSignature = "X-Share-Signature"
	// HeaderTimestamp carries the signing time in unix seconds.
	HeaderTimestamp = "X-Share-Timestamp"
	// HeaderNonce carries a random value unique per signed request.
	HeaderNonce = "X-Share-Nonce"
)

// MaxNonceLen bounds the nonce header.
const MaxNonceLen = 64

const nonceSize = 16

var (
	// ErrMissingCredentials indicates the request carries no public key or signature.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrBadSignature indicates a malformed key or signature, or one that does not verify.
	ErrBadSignature = errors.New("auth: bad signature")

	// ErrStaleRequest indicates a timestamp outside the accepted clock skew.
	ErrStaleRequest = errors.New("auth: request timestamp outside allowed skew")

	// ErrReplayedRequest indicates a nonce already seen for the same caller.
	ErrReplayedRequest = errors.New("auth: request already processed")
)

var digestDomain = []byte("sharestore-request")

// IdentityFromPubKey returns the identity of a public key.
func IdentityFromPubKey(pub *ec.PublicKey) revshare.Identity {
	var id revshare.Identity
	copy(id[:], bsvhash.Sha256(pub.Compressed()))
	return id
}

// RequestDigest binds a signature to the method, path, timestamp, nonce
// and body of a request. Each field is length-prefixed so no two requests
// share a digest.
func RequestDigest(method, path string, timestamp int64, nonce string, body []byte) []byte {
	ts := strconv.FormatInt(timestamp, 10)
	parts := [][]byte{[]byte(method), []byte(path), []byte(ts), []byte(nonce), body}
	size := len(digestDomain)
	for _, part := range parts {
		size += 4 + len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, digestDomain...)
	for _, part := range parts {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(part)))
		buf = append(buf, part...)
	}
	return bsvhash.Sha256(buf)
}

// Credentials are the signed-request headers: the hex-encoded public key
// and DER signature plus the timestamp and nonce the signature covers.
type Credentials struct {
	PubKey    string
	Signature string
	Timestamp int64
	Nonce     string
}

// SignRequest signs the request with priv at the current time under a
// fresh nonce.
func SignRequest(priv *ec.PrivateKey, method, path string, body []byte) (Credentials, error) {
	return SignRequestAt(priv, method, path, body, time.Now())
}

// SignRequestAt is SignRequest with an explicit signing time.
func SignRequestAt(priv *ec.PrivateKey, method, path string, body []byte, at time.Time) (Credentials, error) {
	raw := make([]byte, nonceSize)
	if _, err := rand.Read(raw); err != nil {
		return Credentials{}, fmt.Errorf("auth: generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(raw)
	ts := at.Unix()

	sig, err := priv.Sign(RequestDigest(method, path, ts, nonce, body))
	if err != nil {
		return Credentials{}, fmt.Errorf("auth: sign request: %w", err)
	}
	return Credentials{
		PubKey:    hex.EncodeToString(priv.PubKey().Compressed()),
		Signature: hex.EncodeToString(sig.Serialize()),
		Timestamp: ts,
		Nonce:     nonce,
	}, nil
}

// Apply sets the credential headers on r.
func (c Credentials) Apply(r *http.Request) {
	r.Header.Set(HeaderPubKey, c.PubKey)
	r.Header.Set(HeaderSignature, c.Signature)
	r.Header.Set(HeaderTimestamp, strconv.FormatInt(c.Timestamp, 10))
	r.Header.Set(HeaderNonce, c.Nonce)
}

// VerifyRequest checks a signature over digest and returns the signer's identity.
func VerifyRequest(pubHex, sigHex string, digest []byte) (revshare.Identity, error) {
	if pubHex == "" || sigHex == "" {
		return revshare.Identity{}, ErrMissingCredentials
	}
	pubBytes, err := hex.DecodeString(pubHex)
	if err != nil {
		return revshare.Identity{}, fmt.Errorf("%w: public key: %v", ErrBadSignature, err)
	}
	pub, err := ec.PublicKeyFromBytes(pubBytes)
	if err != nil {
		return revshare.Identity{}, fmt.Errorf("%w: public key: %v", ErrBadSignature, err)
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return revshare.Identity{}, fmt.Errorf("%w: signature: %v", ErrBadSignature, err)
	}
	sig, err := ec.ParseDERSignature(sigBytes)
	if err != nil {
		return revshare.Identity{}, fmt.Errorf("%w: signature: %v", ErrBadSignature, err)
	}
	if !sig.Verify(digest, pub) {
		return revshare.Identity{}, ErrBadSignature
	}
	return IdentityFromPubKey(pub), nil
}

// Stamp returns the signed timestamp and nonce headers of r.
func Stamp(r *http.Request) (int64, string, error) {
	tsHeader := r.Header.Get(HeaderTimestamp)
	nonce := r.Header.Get(HeaderNonce)
	if tsHeader == "" || nonce == "" {
		return 0, "", ErrMissingCredentials
	}
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: timestamp: %v", ErrBadSignature, err)
	}
	if len(nonce) > MaxNonceLen {
		return 0, "", fmt.Errorf("%w: nonce exceeds %d bytes", ErrBadSignature, MaxNonceLen)
	}
	return ts, nonce, nil
}

// Caller verifies the credential headers of r against its method, path,
// stamp and the already-read body. It does not check freshness; see
// ReplayGuard.
func Caller(r *http.Request, body []byte) (revshare.Identity, error) {
	pubHex, sigHex := r.Header.Get(HeaderPubKey), r.Header.Get(HeaderSignature)
	if pubHex == "" || sigHex == "" {
		return revshare.Identity{}, ErrMissingCredentials
	}
	ts, nonce, err := Stamp(r)
	if err != nil {
		return revshare.Identity{}, err
	}
	return VerifyRequest(pubHex, sigHex, RequestDigest(r.Method, r.URL.Path, ts, nonce, body))
}
