package revshare

import "errors"

var (
	// ErrTooManyHolders indicates the registry would exceed MaxHolders.
	ErrTooManyHolders = errors.New("revshare: too many holders (maximum is 16)")

	// ErrHolderAlreadyExists indicates a duplicate holder identity.
	ErrHolderAlreadyExists = errors.New("revshare: holder already exists")

	// ErrHolderNotFound indicates the identity is not in the registry.
	ErrHolderNotFound = errors.New("revshare: holder not found")

	// ErrShareStorageDisabled indicates the ledger is disabled.
	ErrShareStorageDisabled = errors.New("revshare: ledger is disabled")

	// ErrUnauthorized indicates the caller is not the ledger administrator.
	ErrUnauthorized = errors.New("revshare: unauthorized, only the administrator can perform this action")

	// ErrInvalidShareDistribution indicates the shares do not sum to exactly 10000 basis points.
	ErrInvalidShareDistribution = errors.New("revshare: invalid share distribution, total must equal exactly 10000 basis points")

	// ErrInsufficientFunds indicates the source balance cannot cover a deposit.
	ErrInsufficientFunds = errors.New("revshare: insufficient funds")

	// ErrInvalidAmount indicates a zero deposit amount.
	ErrInvalidAmount = errors.New("revshare: amount must be positive")

	// ErrInvalidName indicates the ledger name is empty or longer than 32 bytes.
	ErrInvalidName = errors.New("revshare: name must be between 1 and 32 characters")

	// ErrNoHolders indicates a distribution against an empty registry.
	ErrNoHolders = errors.New("revshare: no holders available for distribution")

	// ErrInvalidHolderAccounts indicates the destination count does not match the holder count.
	ErrInvalidHolderAccounts = errors.New("revshare: invalid number of holder accounts")

	// ErrInvalidHolderAccount indicates a destination does not match its holder.
	ErrInvalidHolderAccount = errors.New("revshare: holder account does not match expected identity")

	// ErrArithmeticOverflow indicates the cumulative total would overflow.
	ErrArithmeticOverflow = errors.New("revshare: arithmetic overflow")

	// ErrInvalidTokenMint indicates a destination holds a different asset than the ledger.
	ErrInvalidTokenMint = errors.New("revshare: invalid token mint")

	// ErrFrozenDestination indicates the destination account is frozen.
	ErrFrozenDestination = errors.New("revshare: destination account is frozen")

	// ErrWrongOwner indicates the destination account belongs to someone else.
	ErrWrongOwner = errors.New("revshare: destination account has the wrong owner")

	// ErrInvalidLedgerData indicates a persisted ledger record is malformed.
	ErrInvalidLedgerData = errors.New("revshare: invalid ledger data")

	// ErrLedgerExists indicates a ledger with the same administrator and name exists.
	ErrLedgerExists = errors.New("revshare: ledger already exists")

	// ErrLedgerNotFound indicates no ledger has the requested identity.
	ErrLedgerNotFound = errors.New("revshare: ledger not found")
)
