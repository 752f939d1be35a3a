package formula

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
)

func bigs(values ...int64) []*big.Int {
	res := make([]*big.Int, 0, len(values))
	for _, v := range values {
		res = append(res, big.NewInt(v))
	}
	return res
}

func state(funding int64, reserves ...int64) marketmaking.MarketState {
	return marketmaking.MarketState{
		Funding:  big.NewInt(funding),
		Reserves: bigs(reserves...),
	}
}

func TestLMSR_CalcNetCost(t *testing.T) {
	t.Parallel()

	oneEther := mathutil.BigOne
	tenthEther := new(big.Int).Div(mathutil.BigOne, big.NewInt(10))

	tests := []struct {
		name            string
		state           marketmaking.MarketState
		amounts         []*big.Int
		expectedNetCost *big.Int
	}{
		{
			name:            "buy",
			state:           state(1000, 1000, 1000),
			amounts:         bigs(100, 0),
			expectedNetCost: big.NewInt(51),
		},
		{
			name:            "sell",
			state:           state(1000, 1000, 1000),
			amounts:         bigs(-100, 0),
			expectedNetCost: big.NewInt(-49),
		},
		{
			name:            "full set costs its face value",
			state:           state(1000, 1000, 1000),
			amounts:         bigs(100, 100),
			expectedNetCost: big.NewInt(100),
		},
		{
			name:            "no change",
			state:           state(1000, 1000, 1000),
			amounts:         bigs(0, 0),
			expectedNetCost: big.NewInt(0),
		},
		{
			name:            "three outcomes",
			state:           state(3000, 3000, 3000, 3000),
			amounts:         bigs(0, 500, -200),
			expectedNetCost: big.NewInt(117),
		},
		{
			name: "18 decimals",
			state: marketmaking.MarketState{
				Funding:  oneEther,
				Reserves: []*big.Int{oneEther, oneEther},
			},
			amounts:         []*big.Int{tenthEther, big.NewInt(0)},
			expectedNetCost: big.NewInt(50866260580896597),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			netCost, err := LMSR{}.CalcNetCost(tt.state, tt.amounts)
			require.NoError(t, err)
			require.Equal(t, 0, tt.expectedNetCost.Cmp(netCost), "got %s", netCost)
		})
	}
}

func TestFixedProduct_CalcNetCost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		state           marketmaking.MarketState
		amounts         []*big.Int
		expectedNetCost int64
	}{
		{"buy", state(100, 100, 100), bigs(10, 0), 6},
		{"sell", state(100, 100, 100), bigs(-10, 0), -4},
		{"no change", state(100, 100, 100), bigs(0, 0), 0},
		{"full set", state(1000, 1000, 1000), bigs(100, 100), 100},
		{"unbalanced three outcomes", state(100, 100, 200, 300), bigs(50, 0, -20), 27},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			netCost, err := FixedProduct{}.CalcNetCost(tt.state, tt.amounts)
			require.NoError(t, err)
			require.Equal(t, tt.expectedNetCost, netCost.Int64())
		})
	}
}

func TestCalcNetCostInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		state         marketmaking.MarketState
		amounts       []*big.Int
		expectedError error
	}{
		{
			name:          "amounts length mismatch",
			state:         state(100, 100, 100),
			amounts:       bigs(1, 2, 3),
			expectedError: marketmaking.ErrInvalidAmountsLength,
		},
		{
			name:          "single outcome",
			state:         state(100, 100),
			amounts:       bigs(1),
			expectedError: marketmaking.ErrTooFewOutcomes,
		},
		{
			name:          "not funded",
			state:         state(0, 0, 0),
			amounts:       bigs(1, 0),
			expectedError: marketmaking.ErrMarketNotFunded,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			for _, s := range []marketmaking.PricingStrategy{LMSR{}, FixedProduct{}} {
				_, err := s.CalcNetCost(tt.state, tt.amounts)
				require.ErrorIs(t, err, tt.expectedError)
			}
		})
	}
}

func TestCalcMarginalPrice(t *testing.T) {
	t.Parallel()

	t.Run("balanced", func(t *testing.T) {
		t.Parallel()

		half := new(big.Int).Div(mathutil.BigOne, big.NewInt(2))
		for _, p := range []marketmaking.MarginalPricer{LMSR{}, FixedProduct{}} {
			price, err := p.CalcMarginalPrice(state(1000, 1000, 1000), 0)
			require.NoError(t, err)
			require.InDelta(t, half.Int64(), price.Int64(), 1)
		}
	})

	t.Run("unbalanced", func(t *testing.T) {
		t.Parallel()

		price, err := LMSR{}.CalcMarginalPrice(state(1000, 900, 1100), 0)
		require.NoError(t, err)
		require.InDelta(t, int64(534601961380763517), price.Int64(), 1)

		price, err = FixedProduct{}.CalcMarginalPrice(state(100, 100, 300), 0)
		require.NoError(t, err)
		require.Equal(t, int64(750000000000000000), price.Int64())
	})

	t.Run("invalid index", func(t *testing.T) {
		t.Parallel()

		_, err := LMSR{}.CalcMarginalPrice(state(1000, 1000, 1000), 2)
		require.ErrorIs(t, err, marketmaking.ErrInvalidOutcomeIndex)
	})
}

func TestNewMakingStrategy(t *testing.T) {
	t.Parallel()

	for _, name := range SupportedStrategies() {
		s, err := NewMakingStrategy(name)
		require.NoError(t, err)
		require.Equal(t, name, s.Name())
		require.NotEmpty(t, s.Description())
		_, ok := s.MarginalPricer()
		require.True(t, ok)
	}

	_, err := NewMakingStrategy("balanced_reserves")
	require.ErrorIs(t, err, ErrUnknownStrategy)
}
