package formula

import (
	"math/big"

	"github.com/tdex-network/ctf-amm/pkg/marketmaking"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
)

// FixedProduct generalizes the balanced reserves (x * y = k) formula to N
// outcomes: a trade d costs the smallest integer c such that every reserve
// r_i + c - d_i is positive and prod(r_i + c - d_i) >= prod(r_i). The
// collateral c is split into a full set of outcome tokens, so each reserve
// moves by c, minus what leaves the market.
type FixedProduct struct{}

// CalcNetCost implements marketmaking.PricingStrategy.
func (FixedProduct) CalcNetCost(
	state marketmaking.MarketState, outcomeTokenAmounts []*big.Int,
) (*big.Int, error) {
	if err := state.Validate(outcomeTokenAmounts); err != nil {
		return nil, err
	}

	invariant := big.NewInt(1)
	for _, r := range state.Reserves {
		if r.Sign() <= 0 {
			return nil, marketmaking.ErrMarketNotFunded
		}
		invariant.Mul(invariant, r)
	}

	// c must make every factor at least 1
	low := new(big.Int).Sub(outcomeTokenAmounts[0], state.Reserves[0])
	for i := 1; i < len(state.Reserves); i++ {
		diff := new(big.Int).Sub(outcomeTokenAmounts[i], state.Reserves[i])
		if diff.Cmp(low) > 0 {
			low = diff
		}
	}
	low.Add(low, big.NewInt(1))

	holds := func(c *big.Int) bool {
		return reservesProduct(state.Reserves, outcomeTokenAmounts, c).Cmp(invariant) >= 0
	}

	if holds(low) {
		return checkedCost(low)
	}

	// grow the upper bound exponentially, the product is increasing in c
	step := big.NewInt(1)
	high := new(big.Int).Add(low, step)
	for !holds(high) {
		step.Lsh(step, 1)
		high.Add(low, step)
		if high.BitLen() > 256 {
			return nil, mathutil.ErrOverflow
		}
	}

	// invariant: holds(high) && !holds(low)
	for new(big.Int).Sub(high, low).Cmp(big.NewInt(1)) > 0 {
		mid := new(big.Int).Add(low, high)
		mid.Rsh(mid, 1)
		if holds(mid) {
			high = mid
		} else {
			low = mid
		}
	}
	return checkedCost(high)
}

// CalcMarginalPrice returns prod_{j!=i}(r_j) / sum_k(prod_{j!=k}(r_j)) scaled
// by 1e18.
func (FixedProduct) CalcMarginalPrice(
	state marketmaking.MarketState, outcomeIndex int,
) (*big.Int, error) {
	if err := state.Validate(nil); err != nil {
		return nil, err
	}
	if outcomeIndex < 0 || outcomeIndex >= len(state.Reserves) {
		return nil, marketmaking.ErrInvalidOutcomeIndex
	}

	weights := make([]*big.Int, len(state.Reserves))
	total := new(big.Int)
	for k := range state.Reserves {
		w := big.NewInt(1)
		for j, r := range state.Reserves {
			if j != k {
				w.Mul(w, r)
			}
		}
		weights[k] = w
		total.Add(total, w)
	}
	if total.Sign() == 0 {
		return nil, marketmaking.ErrMarketNotFunded
	}

	price := new(big.Int).Mul(weights[outcomeIndex], mathutil.BigOne)
	return price.Quo(price, total), nil
}

func reservesProduct(reserves, amounts []*big.Int, c *big.Int) *big.Int {
	product := big.NewInt(1)
	factor := new(big.Int)
	for i, r := range reserves {
		factor.Add(r, c)
		factor.Sub(factor, amounts[i])
		product.Mul(product, factor)
	}
	return product
}

func checkedCost(cost *big.Int) (*big.Int, error) {
	if !mathutil.IsInt256(cost) {
		return nil, mathutil.ErrOverflow
	}
	return new(big.Int).Set(cost), nil
}
