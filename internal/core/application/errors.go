package application

import "errors"

var (
	// ErrReentrantCall is returned when an operation is started while another
	// one is in flight on the same call chain, like from a ledger callback.
	ErrReentrantCall = errors.New("reentrant call to market maker")
	// ErrCollateralLimitExceeded is returned when a trade costs more than the
	// limit set by the trader.
	ErrCollateralLimitExceeded = errors.New("trade net cost exceeds collateral limit")
	// ErrNegativeFee ...
	ErrNegativeFee = errors.New("market fee must not be negative")
	// ErrInvalidCollateralLimit ...
	ErrInvalidCollateralLimit = errors.New("collateral limit must be a signed 256 bit value")
	// ErrInvalidCost ...
	ErrInvalidCost = errors.New("cost must be an unsigned 256 bit value")
	// ErrMarginalPricesNotSupported ...
	ErrMarginalPricesNotSupported = errors.New(
		"market making strategy does not support marginal prices",
	)
	// ErrFaucetDisabled ...
	ErrFaucetDisabled = errors.New("collateral faucet is disabled")
	// ErrInvalidFaucetAmount ...
	ErrInvalidFaucetAmount = errors.New("faucet amount must be positive")
)
