package application

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
)

// CreateMarketOpts are the arguments of the market factory. Funding is
// optional, when positive the market is funded by the owner and resumed.
type CreateMarketOpts struct {
	Owner       common.Address
	ConditionID common.Hash
	Fee         *big.Int
	Strategy    string
	Funding     *big.Int
}

// MarketInfo is the state of the market along with its balances.
type MarketInfo struct {
	domain.Market
	PositionIDs       []*big.Int
	Reserves          []*big.Int
	CollateralBalance *big.Int
	StrategyInfo      string
}

// Quote is the price of a trade.
type Quote struct {
	// OutcomeTokenNetCost is the cost computed by the pricing strategy.
	OutcomeTokenNetCost *big.Int
	Fees                *big.Int
	// NetCost is what the trader pays if positive, or receives if negative.
	NetCost *big.Int
}

// Balances of an account on the ledgers the market trades on.
type Balances struct {
	Collateral *big.Int
	// Allowance is what the market can spend of the account's collateral.
	Allowance *big.Int
	// Approved tells whether the market can move the account's outcome tokens.
	Approved      bool
	OutcomeTokens []*big.Int
}

// EventHandler is notified of events after their operation committed. It must
// not block.
type EventHandler func(event domain.Event)
