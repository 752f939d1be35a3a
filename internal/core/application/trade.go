package application

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
)

// Trade buys the positive and sells the negative amounts of outcome tokens on
// behalf of trader. It returns the net cost of the trade, fees included: if
// positive it's been paid by the trader, otherwise it's been paid to them.
// A non-zero collateralLimit caps the net cost.
func (s *Service) Trade(
	ctx context.Context, trader common.Address,
	outcomeTokenAmounts []*big.Int, collateralLimit *big.Int,
) (*big.Int, error) {
	if collateralLimit == nil {
		collateralLimit = big.NewInt(0)
	}
	if !mathutil.IsInt256(collateralLimit) {
		return nil, ErrInvalidCollateralLimit
	}

	var netCost *big.Int
	if err := s.execute(ctx, func(
		ctx context.Context, mkt *domain.Market,
	) ([]*domain.Event, error) {
		if err := mkt.CanTrade(); err != nil {
			return nil, err
		}

		quote, err := s.quote(ctx, mkt, outcomeTokenAmounts)
		if err != nil {
			return nil, err
		}
		if collateralLimit.Sign() != 0 && quote.NetCost.Cmp(collateralLimit) > 0 {
			return nil, ErrCollateralLimitExceeded
		}

		if err := s.settleTrade(ctx, mkt, trader, outcomeTokenAmounts, quote); err != nil {
			return nil, err
		}

		netCost = quote.NetCost
		return []*domain.Event{
			domain.NewTradeEvent(
				trader, outcomeTokenAmounts, quote.OutcomeTokenNetCost, quote.Fees,
			),
		}, nil
	}); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trader":   trader.Hex(),
		"amounts":  amountsToString(outcomeTokenAmounts),
		"net_cost": netCost.String(),
	}).Info("trade completed")

	return netCost, nil
}

// PreviewTrade quotes the trade without executing it.
func (s *Service) PreviewTrade(
	ctx context.Context, outcomeTokenAmounts []*big.Int,
) (*Quote, error) {
	var quote *Quote
	if err := s.view(ctx, func(ctx context.Context, mkt *domain.Market) error {
		if err := mkt.CanTrade(); err != nil {
			return err
		}
		q, err := s.quote(ctx, mkt, outcomeTokenAmounts)
		if err != nil {
			return err
		}
		quote = q
		return nil
	}); err != nil {
		return nil, err
	}
	return quote, nil
}

// CalcMarketFee returns the fee the market charges over the given cost.
func (s *Service) CalcMarketFee(
	ctx context.Context, cost *big.Int,
) (*big.Int, error) {
	if cost == nil {
		return nil, ErrInvalidCost
	}
	if cost.Sign() < 0 {
		return nil, ErrNegativeFee
	}
	if !mathutil.IsUint256(cost) {
		return nil, ErrInvalidCost
	}

	var fee *big.Int
	if err := s.view(ctx, func(_ context.Context, mkt *domain.Market) error {
		f, err := mathutil.CalcFee(cost, mkt.Fee)
		if err != nil {
			return err
		}
		fee = f
		return nil
	}); err != nil {
		return nil, err
	}
	return fee, nil
}

// MarginalPrices returns the instantaneous price of every outcome, scaled by
// 1e18, for strategies supporting it.
func (s *Service) MarginalPrices(ctx context.Context) ([]*big.Int, error) {
	var prices []*big.Int
	if err := s.view(ctx, func(ctx context.Context, mkt *domain.Market) error {
		strategy, err := s.pricingStrategy(mkt)
		if err != nil {
			return err
		}
		pricer, ok := strategy.MarginalPricer()
		if !ok {
			return ErrMarginalPricesNotSupported
		}

		state, err := s.marketState(ctx, mkt)
		if err != nil {
			return err
		}
		prices = make([]*big.Int, 0, mkt.OutcomeSlotCount)
		for i := 0; i < mkt.OutcomeSlotCount; i++ {
			price, err := pricer.CalcMarginalPrice(state, i)
			if err != nil {
				return err
			}
			prices = append(prices, price)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return prices, nil
}

// GetMarket returns the market along with its current balances.
func (s *Service) GetMarket(ctx context.Context) (*MarketInfo, error) {
	var info *MarketInfo
	if err := s.view(ctx, func(ctx context.Context, mkt *domain.Market) error {
		ids, err := mkt.PositionIDs()
		if err != nil {
			return err
		}
		state, err := s.marketState(ctx, mkt)
		if err != nil {
			return err
		}
		balance, err := s.collateral.BalanceOf(ctx, mkt.Address)
		if err != nil {
			return err
		}
		strategy, err := s.pricingStrategy(mkt)
		if err != nil {
			return err
		}

		info = &MarketInfo{
			Market:            *mkt,
			PositionIDs:       ids,
			Reserves:          state.Reserves,
			CollateralBalance: balance,
			StrategyInfo:      strategy.Description(),
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return info, nil
}

// quote prices the trade against the current state of the market. A trade
// of only zero amounts is never priced.
func (s *Service) quote(
	ctx context.Context, mkt *domain.Market, outcomeTokenAmounts []*big.Int,
) (*Quote, error) {
	if err := mkt.ValidateOutcomeTokenAmounts(outcomeTokenAmounts); err != nil {
		return nil, err
	}
	if allZero(outcomeTokenAmounts) {
		return &Quote{
			OutcomeTokenNetCost: big.NewInt(0),
			Fees:                big.NewInt(0),
			NetCost:             big.NewInt(0),
		}, nil
	}

	strategy, err := s.pricingStrategy(mkt)
	if err != nil {
		return nil, err
	}
	state, err := s.marketState(ctx, mkt)
	if err != nil {
		return nil, err
	}

	cost, err := strategy.Formula().CalcNetCost(state, outcomeTokenAmounts)
	if err != nil {
		return nil, fmt.Errorf("failed to price trade: %w", err)
	}
	if !mathutil.IsInt256(cost) {
		return nil, mathutil.ErrOverflow
	}

	fees, err := mathutil.CalcFee(mathutil.Abs(cost), mkt.Fee)
	if err != nil {
		return nil, err
	}
	netCost, err := mathutil.SignedAdd(cost, fees)
	if err != nil {
		return nil, err
	}

	return &Quote{
		OutcomeTokenNetCost: cost,
		Fees:                fees,
		NetCost:             netCost,
	}, nil
}

// settleTrade moves collateral and outcome tokens between the trader and the
// market according to the quote.
func (s *Service) settleTrade(
	ctx context.Context, mkt *domain.Market, trader common.Address,
	outcomeTokenAmounts []*big.Int, quote *Quote,
) error {
	cost := quote.OutcomeTokenNetCost

	if cost.Sign() > 0 {
		if err := s.collateral.TransferFrom(
			ctx, mkt.Address, trader, mkt.Address, quote.NetCost,
		); err != nil {
			return err
		}
		if err := s.split(ctx, mkt, cost); err != nil {
			return err
		}
	}

	ids, err := mkt.PositionIDs()
	if err != nil {
		return err
	}
	sold, soldAmounts, bought, boughtAmounts := splitDeltas(ids, outcomeTokenAmounts)

	if len(sold) > 0 {
		if err := s.ctf.SafeBatchTransferFrom(
			ctx, mkt.Address, trader, mkt.Address, sold, soldAmounts, nil,
		); err != nil {
			return err
		}
	}
	if len(bought) > 0 {
		if err := s.ctf.SafeBatchTransferFrom(
			ctx, mkt.Address, mkt.Address, trader, bought, boughtAmounts, nil,
		); err != nil {
			return err
		}
	}

	if cost.Sign() < 0 {
		if err := s.merge(ctx, mkt, mathutil.Abs(cost)); err != nil {
			return err
		}
	}
	if quote.NetCost.Sign() < 0 {
		return s.collateral.Transfer(
			ctx, mkt.Address, trader, mathutil.Abs(quote.NetCost),
		)
	}
	return nil
}

// split turns amount of the market's collateral into amount of every outcome
// token.
func (s *Service) split(
	ctx context.Context, mkt *domain.Market, amount *big.Int,
) error {
	partition, err := mkt.Partition()
	if err != nil {
		return err
	}
	if err := s.collateral.Approve(
		ctx, mkt.Address, s.ctf.Address(), amount,
	); err != nil {
		return err
	}
	return s.ctf.SplitPosition(
		ctx, mkt.Address, mkt.CollateralToken, common.Hash{}, mkt.ConditionID,
		partition, amount,
	)
}

// merge turns amount of every outcome token held by the market back into
// collateral.
func (s *Service) merge(
	ctx context.Context, mkt *domain.Market, amount *big.Int,
) error {
	partition, err := mkt.Partition()
	if err != nil {
		return err
	}
	return s.ctf.MergePositions(
		ctx, mkt.Address, mkt.CollateralToken, common.Hash{}, mkt.ConditionID,
		partition, amount,
	)
}

// splitDeltas separates the outcome tokens the trader sells to the market
// from those they buy. Zero amounts are skipped.
func splitDeltas(
	ids, amounts []*big.Int,
) (sold, soldAmounts, bought, boughtAmounts []*big.Int) {
	for i, amount := range amounts {
		switch amount.Sign() {
		case -1:
			sold = append(sold, ids[i])
			soldAmounts = append(soldAmounts, new(big.Int).Neg(amount))
		case 1:
			bought = append(bought, ids[i])
			boughtAmounts = append(boughtAmounts, new(big.Int).Set(amount))
		}
	}
	return
}

func allZero(amounts []*big.Int) bool {
	for _, a := range amounts {
		if a.Sign() != 0 {
			return false
		}
	}
	return true
}

func amountsToString(amounts []*big.Int) []string {
	str := make([]string, 0, len(amounts))
	for _, a := range amounts {
		str = append(str, a.String())
	}
	return str
}
