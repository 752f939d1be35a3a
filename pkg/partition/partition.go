// Package partition derives the index sets and the position identifiers used
// to address outcome-token balances on a conditional-token ledger.
package partition

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxOutcomeSlots is the largest slot count an index set can encode in 256
// bits.
const MaxOutcomeSlots = 256

var (
	// ErrInvalidOutcomeSlotCount ...
	ErrInvalidOutcomeSlotCount = errors.New(
		"outcome slot count must be in range [1, 256]",
	)
	// ErrInvalidIndexSet ...
	ErrInvalidIndexSet = errors.New("index set must be a non negative 256 bit value")
)

// Generate returns the partition of n outcome slots into singletons, that is
// the list of index sets [2^0, 2^1, ..., 2^(n-1)].
func Generate(n int) ([]*big.Int, error) {
	if n < 1 || n > MaxOutcomeSlots {
		return nil, ErrInvalidOutcomeSlotCount
	}

	indexSets := make([]*big.Int, 0, n)
	for i := 0; i < n; i++ {
		indexSets = append(indexSets, new(big.Int).Lsh(big.NewInt(1), uint(i)))
	}
	return indexSets, nil
}

// FullIndexSet returns the index set including every one of the n slots.
func FullIndexSet(n int) (*big.Int, error) {
	if n < 1 || n > MaxOutcomeSlots {
		return nil, ErrInvalidOutcomeSlotCount
	}
	full := new(big.Int).Lsh(big.NewInt(1), uint(n))
	return full.Sub(full, big.NewInt(1)), nil
}

// CollectionID returns keccak256(conditionID ‖ uint256(indexSet)).
func CollectionID(
	conditionID common.Hash, indexSet *big.Int,
) (common.Hash, error) {
	if indexSet == nil || indexSet.Sign() < 0 || indexSet.BitLen() > 256 {
		return common.Hash{}, ErrInvalidIndexSet
	}
	return crypto.Keccak256Hash(
		conditionID.Bytes(), common.LeftPadBytes(indexSet.Bytes(), 32),
	), nil
}

// PositionID returns uint256(keccak256(collateral ‖ collectionID)).
func PositionID(collateral common.Address, collectionID common.Hash) *big.Int {
	hash := crypto.Keccak256(collateral.Bytes(), collectionID.Bytes())
	return new(big.Int).SetBytes(hash)
}

// AtomicPositionIDs returns the position ids of the singleton partition of the
// given condition, ordered by outcome slot.
func AtomicPositionIDs(
	collateral common.Address, conditionID common.Hash, n int,
) ([]*big.Int, error) {
	indexSets, err := Generate(n)
	if err != nil {
		return nil, err
	}

	ids := make([]*big.Int, 0, n)
	for _, indexSet := range indexSets {
		collectionID, err := CollectionID(conditionID, indexSet)
		if err != nil {
			return nil, err
		}
		ids = append(ids, PositionID(collateral, collectionID))
	}
	return ids, nil
}
