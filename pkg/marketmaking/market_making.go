package marketmaking

import (
	"errors"
	"math/big"
)

var (
	// ErrInvalidAmountsLength ...
	ErrInvalidAmountsLength = errors.New(
		"outcome token amounts must match the number of reserves",
	)
	// ErrTooFewOutcomes ...
	ErrTooFewOutcomes = errors.New("a market needs at least 2 outcome slots")
	// ErrMarketNotFunded ...
	ErrMarketNotFunded = errors.New("market has no funding to price against")
	// ErrInvalidReserve ...
	ErrInvalidReserve = errors.New("reserve balance must not be negative")
	// ErrInvalidOutcomeIndex ...
	ErrInvalidOutcomeIndex = errors.New("outcome index out of range")
)

// MarketState is the snapshot a strategy prices against: the funding backing
// the market and its own balance of each outcome token, by slot.
type MarketState struct {
	Funding  *big.Int
	Reserves []*big.Int
}

// Validate checks the state is priceable and amounts has one entry per slot.
func (s MarketState) Validate(amounts []*big.Int) error {
	if len(s.Reserves) < 2 {
		return ErrTooFewOutcomes
	}
	if amounts != nil && len(amounts) != len(s.Reserves) {
		return ErrInvalidAmountsLength
	}
	if s.Funding == nil || s.Funding.Sign() <= 0 {
		return ErrMarketNotFunded
	}
	for _, r := range s.Reserves {
		if r == nil || r.Sign() < 0 {
			return ErrInvalidReserve
		}
	}
	return nil
}

// PricingStrategy prices a trade. CalcNetCost must be a pure function of the
// state and the requested deltas: a positive result is owed by the trader, a
// negative one is owed to the trader.
type PricingStrategy interface {
	CalcNetCost(state MarketState, outcomeTokenAmounts []*big.Int) (*big.Int, error)
}

// MarginalPricer is implemented by strategies able to quote the instantaneous
// price of an outcome, as a fixed-point value scaled by 1e18.
type MarginalPricer interface {
	CalcMarginalPrice(state MarketState, outcomeIndex int) (*big.Int, error)
}

// MakingStrategy defines the automated market making strategy, using a
// formula to price the next trade.
type MakingStrategy struct {
	name        string
	description string
	formula     PricingStrategy
}

// NewStrategyFromFormula returns the strategy struct with the given name.
func NewStrategyFromFormula(
	name, description string, formula PricingStrategy,
) *MakingStrategy {
	return &MakingStrategy{
		name:        name,
		description: description,
		formula:     formula,
	}
}

// Name returns the short name of the MM strategy
func (ms *MakingStrategy) Name() string {
	return ms.name
}

// Description returns the long description of the MM strategy
func (ms *MakingStrategy) Description() string {
	return ms.description
}

// Formula returns the mathematical formula of the MM strategy
func (ms *MakingStrategy) Formula() PricingStrategy {
	return ms.formula
}

// MarginalPricer returns the formula as a MarginalPricer if it supports
// marginal prices.
func (ms *MakingStrategy) MarginalPricer() (MarginalPricer, bool) {
	p, ok := ms.formula.(MarginalPricer)
	return p, ok
}
