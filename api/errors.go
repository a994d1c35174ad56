package api

import (
	"errors"
	"net/http"

	"github.com/bitfsorg/sharestore-go/asset"
	"github.com/bitfsorg/sharestore-go/auth"
	"github.com/bitfsorg/sharestore-go/revshare"
	"github.com/bitfsorg/sharestore-go/storage"
)

// ErrBadRequest indicates a request body or path parameter that cannot be decoded.
var ErrBadRequest = errors.New("api: bad request")

// statusTable maps domain errors to HTTP status codes and to the stable
// code carried in ErrorResponse. The order matters only for errors that wrap
// more than one sentinel. Codes are part of the wire format; never reuse one.
var statusTable = []struct {
	err    error
	status int
	code   string
}{
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{revshare.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{revshare.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{asset.ErrNotFungible, http.StatusBadRequest, "not_fungible"},
	{asset.ErrNotNative, http.StatusBadRequest, "not_native"},
	{asset.ErrSelfTransfer, http.StatusBadRequest, "self_transfer"},

	{auth.ErrMissingCredentials, http.StatusUnauthorized, "missing_credentials"},
	{auth.ErrBadSignature, http.StatusUnauthorized, "bad_signature"},
	{auth.ErrStaleRequest, http.StatusUnauthorized, "stale_request"},
	{auth.ErrReplayedRequest, http.StatusUnauthorized, "replayed_request"},

	{revshare.ErrUnauthorized, http.StatusForbidden, "unauthorized"},

	{revshare.ErrLedgerNotFound, http.StatusNotFound, "ledger_not_found"},
	{revshare.ErrHolderNotFound, http.StatusNotFound, "holder_not_found"},
	{storage.ErrNotFound, http.StatusNotFound, "not_found"},

	{revshare.ErrLedgerExists, http.StatusConflict, "ledger_exists"},
	{revshare.ErrHolderAlreadyExists, http.StatusConflict, "holder_exists"},
	{asset.ErrAccountExists, http.StatusConflict, "account_exists"},
	{revshare.ErrShareStorageDisabled, http.StatusConflict, "ledger_disabled"},

	{revshare.ErrTooManyHolders, http.StatusUnprocessableEntity, "too_many_holders"},
	{revshare.ErrInvalidShareDistribution, http.StatusUnprocessableEntity, "invalid_share_distribution"},
	{revshare.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{revshare.ErrNoHolders, http.StatusUnprocessableEntity, "no_holders"},
	{revshare.ErrInvalidHolderAccounts, http.StatusUnprocessableEntity, "invalid_holder_accounts"},
	{revshare.ErrInvalidHolderAccount, http.StatusUnprocessableEntity, "invalid_holder_account"},
	{revshare.ErrInvalidTokenMint, http.StatusUnprocessableEntity, "invalid_token_mint"},
	{revshare.ErrFrozenDestination, http.StatusUnprocessableEntity, "frozen_destination"},
	{revshare.ErrWrongOwner, http.StatusUnprocessableEntity, "wrong_owner"},
	{revshare.ErrArithmeticOverflow, http.StatusUnprocessableEntity, "arithmetic_overflow"},
}

// CodeInternal is reported for errors with no entry in the table.
const CodeInternal = "internal"

// StatusFor returns the HTTP status code for err.
func StatusFor(err error) int {
	status, _ := classify(err)
	return status
}

// CodeFor returns the stable error code for err.
func CodeFor(err error) string {
	_, code := classify(err)
	return code
}

func classify(err error) (int, string) {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Error is a non-2xx response decoded by Client. It unwraps to the domain
// sentinel named by Code, so callers can match it with errors.Is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return "api: " + http.StatusText(e.Status) + ": " + e.Message
}

// Unwrap returns the domain sentinel for Code, or nil.
func (e *Error) Unwrap() error {
	for _, entry := range statusTable {
		if entry.code == e.Code {
			return entry.err
		}
	}
	return nil
}
