package domain

import "errors"

var (
	// ErrMarketNotRunning is returned when an operation requires the market to
	// be open for trading.
	ErrMarketNotRunning = errors.New("market must be running to perform this operation")
	// ErrMarketNotPaused is returned when an operation requires the market to
	// be paused.
	ErrMarketNotPaused = errors.New("market must be paused to perform this operation")
	// ErrMarketClosed is returned for any state change attempted on a closed
	// market.
	ErrMarketClosed = errors.New("market is closed")
	// ErrNotOwner ...
	ErrNotOwner = errors.New("caller is not the market owner")
	// ErrInvalidOutcomeTokenAmounts ...
	ErrInvalidOutcomeTokenAmounts = errors.New(
		"outcome token amounts must be one signed 256 bit value per outcome slot",
	)
	// ErrZeroFundingChange ...
	ErrZeroFundingChange = errors.New("funding change must not be zero")
	// ErrInvalidFee ...
	ErrInvalidFee = errors.New("fee must be in range [0, 1e18)")
	// ErrInvalidFunding is returned when a funding change would make the
	// funding negative or overflow.
	ErrInvalidFunding = errors.New("funding must be in range [0, 2^256)")
	// ErrInvalidOutcomeSlotCount ...
	ErrInvalidOutcomeSlotCount = errors.New("outcome slot count must be in range [2, 256]")
	// ErrInvalidOwner ...
	ErrInvalidOwner = errors.New("owner must not be the zero address")
	// ErrInvalidCollateral ...
	ErrInvalidCollateral = errors.New("collateral token must not be the zero address")
	// ErrInvalidConditionID ...
	ErrInvalidConditionID = errors.New("condition id must not be empty")
	// ErrMarketNotFound ...
	ErrMarketNotFound = errors.New("market not found")
	// ErrMarketAlreadyExists ...
	ErrMarketAlreadyExists = errors.New("market already exists")
)
