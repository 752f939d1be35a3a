package ports

import "errors"

// Errors returned by the ledgers the market interacts with.
var (
	// ErrInsufficientBalance ...
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance ...
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrTransferRejected is returned when a receiver does not acknowledge a
	// transfer of outcome tokens.
	ErrTransferRejected = errors.New("transfer rejected by receiver")
	// ErrNotApproved is returned when an operator moves tokens of a holder
	// that did not approve it.
	ErrNotApproved = errors.New("operator is not approved by the token holder")
)
