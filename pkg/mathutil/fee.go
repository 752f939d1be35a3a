package mathutil

import (
	"math/big"

	"github.com/holiman/uint256"
)

// FeeRange is the fixed-point scale of a market fee: a fee of FeeRange would
// be 100% of the amount.
var FeeRange = uint256.NewInt(1e18)

// IsValidFee tells whether fee is in the range [0, FeeRange).
func IsValidFee(fee *big.Int) bool {
	return fee != nil && fee.Sign() >= 0 && fee.Cmp(FeeRange.ToBig()) < 0
}

// CalcFee returns floor(amount * fee / FeeRange). The product is computed on
// 512 bits so that only a result not fitting 256 bits overflows.
func CalcFee(amount, fee *big.Int) (*big.Int, error) {
	a, f, err := toUint256(amount, fee)
	if err != nil {
		return nil, err
	}
	res, overflow := new(uint256.Int).MulDivOverflow(a, f, FeeRange)
	if overflow {
		return nil, ErrOverflow
	}
	return res.ToBig(), nil
}
