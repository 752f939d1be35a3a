package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
	"github.com/tdex-network/ctf-amm/pkg/partition"
)

var (
	// ErrConditionNotPrepared ...
	ErrConditionNotPrepared = errors.New("condition not prepared")
	// ErrConditionAlreadyPrepared ...
	ErrConditionAlreadyPrepared = errors.New("condition already prepared")
	// ErrInvalidOutcomeSlotCount ...
	ErrInvalidOutcomeSlotCount = errors.New("condition must have between 2 and 256 outcome slots")
	// ErrInvalidPartition ...
	ErrInvalidPartition = errors.New(
		"partition must be made of at least 2 disjoint non empty index sets",
	)
	// ErrNestedPosition is returned for splits and merges of positions deeper
	// than the collateral, which are not supported.
	ErrNestedPosition = errors.New("only positions on the collateral are supported")
	// ErrUnknownCollateral ...
	ErrUnknownCollateral = errors.New("collateral token not registered")
	// ErrLengthMismatch ...
	ErrLengthMismatch = errors.New("ids and amounts length mismatch")
)

// ConditionalTokens is a multi-token ledger where each token is a position on
// the outcomes of a condition, backed by collateral held by the ledger.
type ConditionalTokens struct {
	address     common.Address
	book        Book
	collaterals map[common.Address]ports.Collateral

	lock      *sync.RWMutex
	receivers map[common.Address]ports.TokenReceiver
}

// NewConditionalTokens returns a ledger at the given address, accepting the
// given collateral tokens.
func NewConditionalTokens(
	address common.Address, book Book, collaterals ...ports.Collateral,
) *ConditionalTokens {
	registry := make(map[common.Address]ports.Collateral)
	for _, c := range collaterals {
		registry[c.Address()] = c
	}
	return &ConditionalTokens{
		address:     address,
		book:        book,
		collaterals: registry,
		lock:        &sync.RWMutex{},
		receivers:   make(map[common.Address]ports.TokenReceiver),
	}
}

// RegisterReceiver makes the ledger ask the given receiver to acknowledge any
// token credited to the address.
func (c *ConditionalTokens) RegisterReceiver(
	address common.Address, receiver ports.TokenReceiver,
) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.receivers[address] = receiver
}

func (c *ConditionalTokens) Begin() (uow.Tx, error) {
	return c.book.Begin()
}

func (c *ConditionalTokens) ContextKey() interface{} {
	return c.book.ContextKey()
}

func (c *ConditionalTokens) Address() common.Address {
	return c.address
}

// PrepareCondition registers a condition with the given number of outcome
// slots and returns its id keccak256(oracle ‖ questionID ‖ outcomeSlotCount).
func (c *ConditionalTokens) PrepareCondition(
	ctx context.Context, oracle common.Address, questionID common.Hash,
	outcomeSlotCount int,
) (common.Hash, error) {
	if outcomeSlotCount < 2 || outcomeSlotCount > partition.MaxOutcomeSlots {
		return common.Hash{}, ErrInvalidOutcomeSlotCount
	}

	conditionID := ConditionID(oracle, questionID, outcomeSlotCount)
	if err := update(ctx, c.book, func(_ context.Context, kv KV) error {
		n, err := kv.Get(c.conditionKey(conditionID))
		if err != nil {
			return err
		}
		if n.Sign() > 0 {
			return ErrConditionAlreadyPrepared
		}
		return kv.Set(c.conditionKey(conditionID), big.NewInt(int64(outcomeSlotCount)))
	}); err != nil {
		return common.Hash{}, err
	}
	return conditionID, nil
}

func (c *ConditionalTokens) OutcomeSlotCount(
	ctx context.Context, conditionID common.Hash,
) (count int, err error) {
	err = view(ctx, c.book, func(kv KV) error {
		count, err = c.outcomeSlotCount(kv, conditionID)
		return err
	})
	return
}

func (c *ConditionalTokens) SplitPosition(
	ctx context.Context, caller, collateralToken common.Address,
	parentCollectionID, conditionID common.Hash,
	indexSets []*big.Int, amount *big.Int,
) error {
	if err := c.validateSplitArgs(parentCollectionID, amount); err != nil {
		return err
	}
	collateral, err := c.collateral(collateralToken)
	if err != nil {
		return err
	}

	return update(ctx, c.book, func(ctx context.Context, kv KV) error {
		n, err := c.outcomeSlotCount(kv, conditionID)
		if err != nil {
			return err
		}
		union, full, err := validatePartition(indexSets, n)
		if err != nil {
			return err
		}
		ids, err := positionIDs(collateralToken, conditionID, indexSets)
		if err != nil {
			return err
		}

		if full {
			if err := collateral.TransferFrom(
				ctx, c.address, caller, c.address, amount,
			); err != nil {
				return err
			}
		} else {
			unionID, err := positionIDs(collateralToken, conditionID, []*big.Int{union})
			if err != nil {
				return err
			}
			if err := c.debit(kv, caller, unionID[0], amount); err != nil {
				return err
			}
		}

		amounts := make([]*big.Int, 0, len(ids))
		for _, id := range ids {
			if err := c.credit(kv, caller, id, amount); err != nil {
				return err
			}
			amounts = append(amounts, amount)
		}
		return c.acceptBatch(ctx, caller, common.Address{}, caller, ids, amounts, nil)
	})
}

func (c *ConditionalTokens) MergePositions(
	ctx context.Context, caller, collateralToken common.Address,
	parentCollectionID, conditionID common.Hash,
	indexSets []*big.Int, amount *big.Int,
) error {
	if err := c.validateSplitArgs(parentCollectionID, amount); err != nil {
		return err
	}
	collateral, err := c.collateral(collateralToken)
	if err != nil {
		return err
	}

	return update(ctx, c.book, func(ctx context.Context, kv KV) error {
		n, err := c.outcomeSlotCount(kv, conditionID)
		if err != nil {
			return err
		}
		union, full, err := validatePartition(indexSets, n)
		if err != nil {
			return err
		}
		ids, err := positionIDs(collateralToken, conditionID, indexSets)
		if err != nil {
			return err
		}

		for _, id := range ids {
			if err := c.debit(kv, caller, id, amount); err != nil {
				return err
			}
		}

		if full {
			return collateral.Transfer(ctx, c.address, caller, amount)
		}

		unionID, err := positionIDs(collateralToken, conditionID, []*big.Int{union})
		if err != nil {
			return err
		}
		if err := c.credit(kv, caller, unionID[0], amount); err != nil {
			return err
		}
		return c.accept(ctx, caller, common.Address{}, caller, unionID[0], amount, nil)
	})
}

func (c *ConditionalTokens) BalanceOf(
	ctx context.Context, holder common.Address, positionID *big.Int,
) (balance *big.Int, err error) {
	err = view(ctx, c.book, func(kv KV) error {
		balance, err = kv.Get(c.balanceKey(holder, positionID))
		return err
	})
	return
}

func (c *ConditionalTokens) BalanceOfBatch(
	ctx context.Context, holders []common.Address, positionIDs []*big.Int,
) ([]*big.Int, error) {
	if len(holders) != len(positionIDs) {
		return nil, ErrLengthMismatch
	}

	balances := make([]*big.Int, 0, len(holders))
	err := view(ctx, c.book, func(kv KV) error {
		for i, holder := range holders {
			balance, err := kv.Get(c.balanceKey(holder, positionIDs[i]))
			if err != nil {
				return err
			}
			balances = append(balances, balance)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}

func (c *ConditionalTokens) SafeTransferFrom(
	ctx context.Context, operator, from, to common.Address,
	positionID, amount *big.Int, data []byte,
) error {
	return c.SafeBatchTransferFrom(
		ctx, operator, from, to,
		[]*big.Int{positionID}, []*big.Int{amount}, data,
	)
}

// SafeBatchTransferFrom moves the given amounts of positions. A transfer of a
// single position is acknowledged by the receiver as such, like with
// SafeTransferFrom.
func (c *ConditionalTokens) SafeBatchTransferFrom(
	ctx context.Context, operator, from, to common.Address,
	positionIDs, amounts []*big.Int, data []byte,
) error {
	if len(positionIDs) != len(amounts) {
		return ErrLengthMismatch
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	for _, amount := range amounts {
		if err := checkAmount(amount); err != nil {
			return err
		}
	}

	return update(ctx, c.book, func(ctx context.Context, kv KV) error {
		if operator != from {
			approved, err := c.isApproved(kv, from, operator)
			if err != nil {
				return err
			}
			if !approved {
				return fmt.Errorf(
					"%w: %s for %s", ports.ErrNotApproved, operator.Hex(), from.Hex(),
				)
			}
		}

		for i, id := range positionIDs {
			if err := c.debit(kv, from, id, amounts[i]); err != nil {
				return err
			}
			if err := c.credit(kv, to, id, amounts[i]); err != nil {
				return err
			}
		}

		if len(positionIDs) == 1 {
			return c.accept(ctx, operator, from, to, positionIDs[0], amounts[0], data)
		}
		return c.acceptBatch(ctx, operator, from, to, positionIDs, amounts, data)
	})
}

func (c *ConditionalTokens) SetApprovalForAll(
	ctx context.Context, owner, operator common.Address, approved bool,
) error {
	if operator == (common.Address{}) {
		return ErrZeroAddress
	}
	value := big.NewInt(0)
	if approved {
		value.SetInt64(1)
	}
	return update(ctx, c.book, func(_ context.Context, kv KV) error {
		return kv.Set(c.approvalKey(owner, operator), value)
	})
}

func (c *ConditionalTokens) IsApprovedForAll(
	ctx context.Context, owner, operator common.Address,
) (approved bool, err error) {
	err = view(ctx, c.book, func(kv KV) error {
		approved, err = c.isApproved(kv, owner, operator)
		return err
	})
	return
}

func (c *ConditionalTokens) accept(
	ctx context.Context, operator, from, to common.Address,
	id, amount *big.Int, data []byte,
) error {
	receiver, ok := c.receiver(to)
	if !ok {
		return nil
	}
	selector := receiver.OnERC1155Received(ctx, operator, from, id, amount, data)
	if selector != ports.ERC1155ReceivedSelector {
		return fmt.Errorf("%w: %s", ports.ErrTransferRejected, to.Hex())
	}
	return nil
}

func (c *ConditionalTokens) acceptBatch(
	ctx context.Context, operator, from, to common.Address,
	ids, amounts []*big.Int, data []byte,
) error {
	receiver, ok := c.receiver(to)
	if !ok {
		return nil
	}
	selector := receiver.OnERC1155BatchReceived(ctx, operator, from, ids, amounts, data)
	if selector != ports.ERC1155BatchReceivedSelector {
		return fmt.Errorf("%w: %s", ports.ErrTransferRejected, to.Hex())
	}
	return nil
}

func (c *ConditionalTokens) receiver(
	address common.Address,
) (ports.TokenReceiver, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	r, ok := c.receivers[address]
	return r, ok
}

func (c *ConditionalTokens) collateral(token common.Address) (ports.Collateral, error) {
	collateral, ok := c.collaterals[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollateral, token.Hex())
	}
	return collateral, nil
}

func (c *ConditionalTokens) validateSplitArgs(
	parentCollectionID common.Hash, amount *big.Int,
) error {
	if parentCollectionID != (common.Hash{}) {
		return ErrNestedPosition
	}
	return checkAmount(amount)
}

func (c *ConditionalTokens) outcomeSlotCount(
	kv KV, conditionID common.Hash,
) (int, error) {
	n, err := kv.Get(c.conditionKey(conditionID))
	if err != nil {
		return 0, err
	}
	if n.Sign() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrConditionNotPrepared, conditionID.Hex())
	}
	return int(n.Int64()), nil
}

func (c *ConditionalTokens) isApproved(
	kv KV, owner, operator common.Address,
) (bool, error) {
	v, err := kv.Get(c.approvalKey(owner, operator))
	if err != nil {
		return false, err
	}
	return v.Sign() > 0, nil
}

func (c *ConditionalTokens) debit(
	kv KV, holder common.Address, id, amount *big.Int,
) error {
	key := c.balanceKey(holder, id)
	balance, err := kv.Get(key)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf(
			"%w: %s holds %s of position %s, requested %s",
			ports.ErrInsufficientBalance, holder.Hex(), balance, id.Text(16), amount,
		)
	}
	balance, err = mathutil.Sub(balance, amount)
	if err != nil {
		return err
	}
	return kv.Set(key, balance)
}

func (c *ConditionalTokens) credit(
	kv KV, holder common.Address, id, amount *big.Int,
) error {
	key := c.balanceKey(holder, id)
	balance, err := kv.Get(key)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)
	if err := checkAmount(balance); err != nil {
		return err
	}
	return kv.Set(key, balance)
}

func (c *ConditionalTokens) balanceKey(holder common.Address, id *big.Int) string {
	return fmt.Sprintf("ctf/%s/balance/%s/%s", c.address.Hex(), holder.Hex(), id.Text(16))
}

func (c *ConditionalTokens) approvalKey(owner, operator common.Address) string {
	return fmt.Sprintf("ctf/%s/approval/%s/%s", c.address.Hex(), owner.Hex(), operator.Hex())
}

func (c *ConditionalTokens) conditionKey(conditionID common.Hash) string {
	return fmt.Sprintf("ctf/%s/condition/%s", c.address.Hex(), conditionID.Hex())
}

// ConditionID returns keccak256(oracle ‖ questionID ‖ uint256(outcomeSlotCount)).
func ConditionID(
	oracle common.Address, questionID common.Hash, outcomeSlotCount int,
) common.Hash {
	n := common.LeftPadBytes(big.NewInt(int64(outcomeSlotCount)).Bytes(), 32)
	return crypto.Keccak256Hash(oracle.Bytes(), questionID.Bytes(), n)
}

// validatePartition checks the index sets are non empty, disjoint and within
// the n outcome slots. It returns their union and whether it covers all slots.
func validatePartition(
	indexSets []*big.Int, n int,
) (*big.Int, bool, error) {
	if len(indexSets) < 2 {
		return nil, false, ErrInvalidPartition
	}
	fullIndexSet, err := partition.FullIndexSet(n)
	if err != nil {
		return nil, false, err
	}

	union := new(big.Int)
	for _, indexSet := range indexSets {
		if indexSet == nil || indexSet.Sign() <= 0 || indexSet.Cmp(fullIndexSet) > 0 {
			return nil, false, ErrInvalidPartition
		}
		if new(big.Int).And(union, indexSet).Sign() != 0 {
			return nil, false, ErrInvalidPartition
		}
		union.Or(union, indexSet)
	}
	return union, union.Cmp(fullIndexSet) == 0, nil
}

func positionIDs(
	collateral common.Address, conditionID common.Hash, indexSets []*big.Int,
) ([]*big.Int, error) {
	ids := make([]*big.Int, 0, len(indexSets))
	for _, indexSet := range indexSets {
		collectionID, err := partition.CollectionID(conditionID, indexSet)
		if err != nil {
			return nil, err
		}
		ids = append(ids, partition.PositionID(collateral, collectionID))
	}
	return ids, nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return ErrInvalidAmount
	}
	return nil
}
