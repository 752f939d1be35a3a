package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
)

var (
	// ERC1155ReceivedSelector is bytes4(keccak256(
	// "onERC1155Received(address,address,uint256,uint256,bytes)")).
	ERC1155ReceivedSelector = [4]byte{0xf2, 0x3a, 0x6e, 0x61}
	// ERC1155BatchReceivedSelector is bytes4(keccak256(
	// "onERC1155BatchReceived(address,address,uint256[],uint256[],bytes)")).
	ERC1155BatchReceivedSelector = [4]byte{0xbc, 0x19, 0x7c, 0x81}
)

// ConditionalTokens is the multi-token ledger holding the outcome tokens of
// conditions. Every write is attributed to an explicit caller.
type ConditionalTokens interface {
	uow.Transactional

	// Address is the account of the ledger itself, holding the collateral
	// backing outstanding positions.
	Address() common.Address
	// OutcomeSlotCount returns the number of slots of a prepared condition.
	OutcomeSlotCount(ctx context.Context, conditionID common.Hash) (int, error)
	// SplitPosition takes amount of collateral from caller and mints amount
	// of every position of the partition to caller.
	SplitPosition(
		ctx context.Context, caller, collateralToken common.Address,
		parentCollectionID, conditionID common.Hash,
		partition []*big.Int, amount *big.Int,
	) error
	// MergePositions burns amount of every position of the partition held by
	// caller and gives caller back amount of collateral.
	MergePositions(
		ctx context.Context, caller, collateralToken common.Address,
		parentCollectionID, conditionID common.Hash,
		partition []*big.Int, amount *big.Int,
	) error
	BalanceOf(
		ctx context.Context, holder common.Address, positionID *big.Int,
	) (*big.Int, error)
	BalanceOfBatch(
		ctx context.Context, holders []common.Address, positionIDs []*big.Int,
	) ([]*big.Int, error)
	SafeTransferFrom(
		ctx context.Context, operator, from, to common.Address,
		positionID, amount *big.Int, data []byte,
	) error
	SafeBatchTransferFrom(
		ctx context.Context, operator, from, to common.Address,
		positionIDs, amounts []*big.Int, data []byte,
	) error
	SetApprovalForAll(
		ctx context.Context, owner, operator common.Address, approved bool,
	) error
	IsApprovedForAll(
		ctx context.Context, owner, operator common.Address,
	) (bool, error)
}

// Collateral is the fungible token ledger the market is denominated in.
type Collateral interface {
	uow.Transactional

	Address() common.Address
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)
	Allowance(
		ctx context.Context, owner, spender common.Address,
	) (*big.Int, error)
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
	TransferFrom(
		ctx context.Context, spender, from, to common.Address, amount *big.Int,
	) error
	Approve(
		ctx context.Context, owner, spender common.Address, amount *big.Int,
	) error
}

// TokenReceiver is notified by the conditional tokens ledger of the tokens
// credited to it. A receiver that doesn't answer with the relative selector
// rejects the transfer.
type TokenReceiver interface {
	OnERC1155Received(
		ctx context.Context, operator, from common.Address,
		positionID, amount *big.Int, data []byte,
	) [4]byte
	OnERC1155BatchReceived(
		ctx context.Context, operator, from common.Address,
		positionIDs, amounts []*big.Int, data []byte,
	) [4]byte
}
