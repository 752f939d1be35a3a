// Package formula defines the formulas that implement the PricingStrategy
// interface
package formula

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
)

const (
	// digits kept by divisions, logarithms and exponentials
	lmsrPrecision int32 = 60
	// the result is rounded here before taking the ceiling so that the error
	// of the series expansions never costs the trader a whole unit
	lmsrRoundPlaces int32 = 24
	// e^-150 is far below lmsrPrecision, such terms are dropped
	lmsrExpCutoff = 150
)

var lmsrCutoff = decimal.NewFromInt(-lmsrExpCutoff)

// LMSR is the logarithmic market scoring rule. Given the market's reserves
// r_i, the outstanding quantity of outcome i is q_i = -r_i and the cost
// function is C(q) = b * ln(sum(exp(q_i / b))) with liquidity
// b = funding / ln(N). The net cost of a trade d is C(q + d) - C(q), rounded
// up so that rounding always favours the market.
type LMSR struct{}

// CalcNetCost implements marketmaking.PricingStrategy.
func (LMSR) CalcNetCost(
	state marketmaking.MarketState, outcomeTokenAmounts []*big.Int,
) (*big.Int, error) {
	if err := state.Validate(outcomeTokenAmounts); err != nil {
		return nil, err
	}

	b, err := lmsrLiquidity(state)
	if err != nil {
		return nil, err
	}

	before := make([]decimal.Decimal, 0, len(state.Reserves))
	after := make([]decimal.Decimal, 0, len(state.Reserves))
	for i, reserve := range state.Reserves {
		q := new(big.Int).Neg(reserve)
		before = append(before, decimal.NewFromBigInt(q, 0).DivRound(b, lmsrPrecision))

		q.Add(q, outcomeTokenAmounts[i])
		after = append(after, decimal.NewFromBigInt(q, 0).DivRound(b, lmsrPrecision))
	}

	costBefore, err := logSumExp(before)
	if err != nil {
		return nil, err
	}
	costAfter, err := logSumExp(after)
	if err != nil {
		return nil, err
	}

	netCost := b.Mul(costAfter.Sub(costBefore)).Round(lmsrRoundPlaces).Ceil()
	cost := netCost.BigInt()
	if !mathutil.IsInt256(cost) {
		return nil, mathutil.ErrOverflow
	}
	return cost, nil
}

// CalcMarginalPrice returns exp(q_i / b) / sum(exp(q_j / b)) scaled by 1e18.
func (LMSR) CalcMarginalPrice(
	state marketmaking.MarketState, outcomeIndex int,
) (*big.Int, error) {
	if err := state.Validate(nil); err != nil {
		return nil, err
	}
	if outcomeIndex < 0 || outcomeIndex >= len(state.Reserves) {
		return nil, marketmaking.ErrInvalidOutcomeIndex
	}

	b, err := lmsrLiquidity(state)
	if err != nil {
		return nil, err
	}

	exponents := make([]decimal.Decimal, 0, len(state.Reserves))
	for _, reserve := range state.Reserves {
		q := new(big.Int).Neg(reserve)
		exponents = append(exponents, decimal.NewFromBigInt(q, 0).DivRound(b, lmsrPrecision))
	}

	max := maxDecimal(exponents)
	sum := decimal.Zero
	var target decimal.Decimal
	for i, x := range exponents {
		e, err := expOffset(x, max)
		if err != nil {
			return nil, err
		}
		if i == outcomeIndex {
			target = e
		}
		sum = sum.Add(e)
	}

	price := target.DivRound(sum, lmsrPrecision).
		Mul(decimal.NewFromBigInt(mathutil.BigOne, 0)).
		Floor()
	return price.BigInt(), nil
}

func lmsrLiquidity(state marketmaking.MarketState) (decimal.Decimal, error) {
	n := decimal.NewFromInt(int64(len(state.Reserves)))
	lnN, err := n.Ln(lmsrPrecision)
	if err != nil {
		return decimal.Zero, err
	}
	funding := decimal.NewFromBigInt(state.Funding, 0)
	return funding.DivRound(lnN, lmsrPrecision), nil
}

// logSumExp returns ln(sum(exp(x_i))) computed around the largest exponent,
// so that every exp argument is <= 0.
func logSumExp(exponents []decimal.Decimal) (decimal.Decimal, error) {
	max := maxDecimal(exponents)

	sum := decimal.Zero
	for _, x := range exponents {
		e, err := expOffset(x, max)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(e)
	}

	// sum >= 1 since the largest exponent contributes exp(0)
	ln, err := sum.Ln(lmsrPrecision)
	if err != nil {
		return decimal.Zero, err
	}
	return max.Add(ln), nil
}

func expOffset(x, offset decimal.Decimal) (decimal.Decimal, error) {
	arg := x.Sub(offset)
	if arg.LessThan(lmsrCutoff) {
		return decimal.Zero, nil
	}
	return arg.ExpTaylor(lmsrPrecision)
}

func maxDecimal(values []decimal.Decimal) decimal.Decimal {
	max := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(max) {
			max = v
		}
	}
	return max
}
