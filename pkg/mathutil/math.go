package mathutil

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when a result exceeds the 256 bit domain.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrNegativeOperand ...
	ErrNegativeOperand = errors.New("operand must not be negative")
)

var (
	// BigOne is the fixed-point representation of 1 at 18 decimals.
	BigOne = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	//MaxUint256 is 2^256 - 1
	MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	//MaxInt256 is 2^255 - 1
	MaxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	//MinInt256 is -2^255
	MinInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// IsUint256 tells whether x fits an unsigned 256 bit integer.
func IsUint256(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.BitLen() <= 256
}

// IsInt256 tells whether x fits a two's complement signed 256 bit integer.
func IsInt256(x *big.Int) bool {
	return x != nil && x.Cmp(MinInt256) >= 0 && x.Cmp(MaxInt256) <= 0
}

// Abs returns |x| as a new value.
func Abs(x *big.Int) *big.Int {
	return new(big.Int).Abs(x)
}

// SignedAdd takes two int256 numbers and returns x + y, or ErrOverflow if the
// sum leaves the int256 range.
func SignedAdd(x, y *big.Int) (*big.Int, error) {
	z := new(big.Int).Add(x, y)
	if !IsInt256(z) {
		return nil, ErrOverflow
	}
	return z, nil
}

// Add takes two uint256 numbers and returns x + y.
func Add(x, y *big.Int) (*big.Int, error) {
	X, Y, err := toUint256(x, y)
	if err != nil {
		return nil, err
	}
	z, overflow := new(uint256.Int).AddOverflow(X, Y)
	if overflow {
		return nil, ErrOverflow
	}
	return z.ToBig(), nil
}

// Sub takes two uint256 numbers and returns x - y. An underflow is reported as
// ErrOverflow, the caller maps it to a domain error.
func Sub(x, y *big.Int) (*big.Int, error) {
	X, Y, err := toUint256(x, y)
	if err != nil {
		return nil, err
	}
	z, underflow := new(uint256.Int).SubOverflow(X, Y)
	if underflow {
		return nil, ErrOverflow
	}
	return z.ToBig(), nil
}

func toUint256(values ...*big.Int) (*uint256.Int, *uint256.Int, error) {
	converted := make([]*uint256.Int, 0, len(values))
	for _, v := range values {
		if v == nil || v.Sign() < 0 {
			return nil, nil, ErrNegativeOperand
		}
		u, overflow := uint256.FromBig(v)
		if overflow {
			return nil, nil, ErrOverflow
		}
		converted = append(converted, u)
	}
	return converted[0], converted[1], nil
}
