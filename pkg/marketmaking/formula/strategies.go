package formula

import (
	"errors"
	"sort"

	"github.com/tdex-network/ctf-amm/pkg/marketmaking"
)

const (
	// LMSRType ...
	LMSRType = "lmsr"
	// FixedProductType ...
	FixedProductType = "fixed_product"
)

// ErrUnknownStrategy ...
var ErrUnknownStrategy = errors.New("unknown market making strategy")

var strategies = map[string]*marketmaking.MakingStrategy{
	LMSRType: marketmaking.NewStrategyFromFormula(
		LMSRType,
		"logarithmic market scoring rule, liquidity proportional to funding",
		LMSR{},
	),
	FixedProductType: marketmaking.NewStrategyFromFormula(
		FixedProductType,
		"constant product of the outcome token reserves",
		FixedProduct{},
	),
}

// NewMakingStrategy returns the registered strategy with the given name.
func NewMakingStrategy(name string) (*marketmaking.MakingStrategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, ErrUnknownStrategy
	}
	return s, nil
}

// SupportedStrategies returns the names of the registered strategies.
func SupportedStrategies() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
