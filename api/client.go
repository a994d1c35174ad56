package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/sharestore-go/auth"
	"github.com/bitfsorg/sharestore-go/revshare"
	"github.com/bitfsorg/sharestore-go/storage"
)

// ErrConnectionFailed indicates the server could not be reached.
var ErrConnectionFailed = errors.New("api: connection failed")

// ErrInvalidResponse indicates a response body that cannot be decoded.
var ErrInvalidResponse = errors.New("api: invalid response")

// ErrNoSigner indicates a signed call on a Client built without a key.
var ErrNoSigner = errors.New("api: client has no signing key")

// Client talks to a sharestore server. Calls that change ledger state are
// signed with the client's key; read-only calls and Distribute are not.
type Client struct {
	baseURL string
	key     *ec.PrivateKey
	client  *http.Client
}

// NewClient creates a client for the server at baseURL (for example
// "http://127.0.0.1:8646"). key may be nil for a read-only client.
func NewClient(baseURL string, key *ec.PrivateKey) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Identity returns the caller identity of the client's key.
func (c *Client) Identity() (revshare.Identity, error) {
	if c.key == nil {
		return revshare.Identity{}, ErrNoSigner
	}
	return auth.IdentityFromPubKey(c.key.PubKey()), nil
}

// CreateLedger creates a native ledger, or a fungible one when asset is non-nil.
func (c *Client) CreateLedger(ctx context.Context, name string, asset *revshare.Identity, decimals uint8) (*revshare.Ledger, error) {
	var l revshare.Ledger
	req := CreateLedgerRequest{Name: name, Asset: asset, Decimals: decimals}
	if err := c.do(ctx, http.MethodPost, "/v1/ledgers", true, req, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetLedger fetches one ledger.
func (c *Client) GetLedger(ctx context.Context, id revshare.Identity) (*revshare.Ledger, error) {
	var l revshare.Ledger
	if err := c.do(ctx, http.MethodGet, "/v1/ledgers/"+id.String(), false, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLedgers returns the ledgers administered by admin.
func (c *Client) ListLedgers(ctx context.Context, admin revshare.Identity) ([]*revshare.Ledger, error) {
	var resp LedgersResponse
	if err := c.do(ctx, http.MethodGet, "/v1/admins/"+admin.String()+"/ledgers", false, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Ledgers, nil
}

// SetHolders replaces the holder list of a ledger.
func (c *Client) SetHolders(ctx context.Context, id revshare.Identity, hs []revshare.Holder) (*revshare.Ledger, error) {
	return c.ledgerCall(ctx, http.MethodPut, "/v1/ledgers/"+id.String()+"/holders", SetHoldersRequest{Holders: hs})
}

// AddHolder appends a holder.
func (c *Client) AddHolder(ctx context.Context, id revshare.Identity, h revshare.Holder) (*revshare.Ledger, error) {
	return c.ledgerCall(ctx, http.MethodPost, "/v1/ledgers/"+id.String()+"/holders", h)
}

// RemoveHolder removes a holder.
func (c *Client) RemoveHolder(ctx context.Context, id, holder revshare.Identity) (*revshare.Ledger, error) {
	return c.ledgerCall(ctx, http.MethodDelete, "/v1/ledgers/"+id.String()+"/holders/"+holder.String(), nil)
}

// SetEnabled enables or disables distribution.
func (c *Client) SetEnabled(ctx context.Context, id revshare.Identity, enabled bool) (*revshare.Ledger, error) {
	action := "disable"
	if enabled {
		action = "enable"
	}
	return c.ledgerCall(ctx, http.MethodPost, "/v1/ledgers/"+id.String()+"/"+action, nil)
}

func (c *Client) ledgerCall(ctx context.Context, method, path string, body any) (*revshare.Ledger, error) {
	var l revshare.Ledger
	if err := c.do(ctx, method, path, true, body, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Deposit moves amount from the client's identity into a ledger.
func (c *Client) Deposit(ctx context.Context, id revshare.Identity, amount uint64) error {
	return c.do(ctx, http.MethodPost, "/v1/ledgers/"+id.String()+"/deposit", true, DepositRequest{Amount: amount}, nil)
}

// Distribute pays out a ledger's pool. With nil destinations the server pays
// every holder at its default handle.
func (c *Client) Distribute(ctx context.Context, id revshare.Identity, destinations []revshare.Identity) (*revshare.Receipt, error) {
	var receipt revshare.Receipt
	req := DistributeRequest{Destinations: destinations}
	if err := c.do(ctx, http.MethodPost, "/v1/ledgers/"+id.String()+"/distribute", false, req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// OpenTokenAccount opens the client's token account for asset and returns
// its handle.
func (c *Client) OpenTokenAccount(ctx context.Context, asset revshare.Identity) (revshare.Identity, error) {
	var resp TokenAccountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/token-accounts", true, OpenTokenAccountRequest{Asset: asset}, &resp); err != nil {
		return revshare.Identity{}, err
	}
	return resp.Handle, nil
}

// TokenAccount fetches a token account.
func (c *Client) TokenAccount(ctx context.Context, handle revshare.Identity) (*storage.TokenAccount, error) {
	var acct storage.TokenAccount
	if err := c.do(ctx, http.MethodGet, "/v1/token-accounts/"+handle.String(), false, nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Balance returns the native balance of account.
func (c *Client) Balance(ctx context.Context, account revshare.Identity) (uint64, error) {
	var resp BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+account.String()+"/balance", false, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// do sends one request. A non-nil in is encoded as the JSON body; a non-nil
// out receives the decoded 2xx response. Non-2xx responses are returned as
// *Error.
func (c *Client) do(ctx context.Context, method, path string, signed bool, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signed {
		if c.key == nil {
			return ErrNoSigner
		}
		creds, err := auth.SignRequest(c.key, method, req.URL.Path, body)
		if err != nil {
			return fmt.Errorf("api: sign request: %w", err)
		}
		creds.Apply(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var er ErrorResponse
		if json.Unmarshal(respBody, &er) != nil || er.Error == "" {
			er.Error = strings.TrimSpace(string(respBody))
		}
		return &Error{Status: resp.StatusCode, Code: er.Code, Message: er.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
	}
	return nil
}
