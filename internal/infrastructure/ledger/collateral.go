package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
)

var (
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount must be an unsigned 256 bit value")
	// ErrZeroAddress ...
	ErrZeroAddress = errors.New("zero address is not a valid account")
)

// Collateral is a fungible token ledger. An allowance equal to the max
// uint256 value is never decremented.
type Collateral struct {
	address common.Address
	symbol  string
	book    Book
}

// NewCollateral returns the ledger of the token at the given address.
func NewCollateral(address common.Address, symbol string, book Book) *Collateral {
	return &Collateral{address, symbol, book}
}

func (c *Collateral) Begin() (uow.Tx, error) {
	return c.book.Begin()
}

func (c *Collateral) ContextKey() interface{} {
	return c.book.ContextKey()
}

func (c *Collateral) Address() common.Address {
	return c.address
}

func (c *Collateral) Symbol() string {
	return c.symbol
}

func (c *Collateral) BalanceOf(
	ctx context.Context, holder common.Address,
) (balance *big.Int, err error) {
	err = view(ctx, c.book, func(kv KV) error {
		balance, err = kv.Get(c.balanceKey(holder))
		return err
	})
	return
}

func (c *Collateral) Allowance(
	ctx context.Context, owner, spender common.Address,
) (allowance *big.Int, err error) {
	err = view(ctx, c.book, func(kv KV) error {
		allowance, err = kv.Get(c.allowanceKey(owner, spender))
		return err
	})
	return
}

func (c *Collateral) TotalSupply(ctx context.Context) (supply *big.Int, err error) {
	err = view(ctx, c.book, func(kv KV) error {
		supply, err = kv.Get(c.supplyKey())
		return err
	})
	return
}

func (c *Collateral) Transfer(
	ctx context.Context, from, to common.Address, amount *big.Int,
) error {
	if !mathutil.IsUint256(amount) {
		return ErrInvalidAmount
	}
	return update(ctx, c.book, func(_ context.Context, kv KV) error {
		return c.move(kv, from, to, amount)
	})
}

func (c *Collateral) TransferFrom(
	ctx context.Context, spender, from, to common.Address, amount *big.Int,
) error {
	if !mathutil.IsUint256(amount) {
		return ErrInvalidAmount
	}
	return update(ctx, c.book, func(_ context.Context, kv KV) error {
		key := c.allowanceKey(from, spender)
		allowance, err := kv.Get(key)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return fmt.Errorf(
				"%w: %s allows %s to spend %s, requested %s",
				ports.ErrInsufficientAllowance, from.Hex(), spender.Hex(),
				allowance, amount,
			)
		}
		if allowance.Cmp(mathutil.MaxUint256) != 0 {
			left, err := mathutil.Sub(allowance, amount)
			if err != nil {
				return err
			}
			if err := kv.Set(key, left); err != nil {
				return err
			}
		}
		return c.move(kv, from, to, amount)
	})
}

func (c *Collateral) Approve(
	ctx context.Context, owner, spender common.Address, amount *big.Int,
) error {
	if !mathutil.IsUint256(amount) {
		return ErrInvalidAmount
	}
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	return update(ctx, c.book, func(_ context.Context, kv KV) error {
		return kv.Set(c.allowanceKey(owner, spender), amount)
	})
}

// Mint creates new tokens for the given account.
func (c *Collateral) Mint(
	ctx context.Context, to common.Address, amount *big.Int,
) error {
	if !mathutil.IsUint256(amount) {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	return update(ctx, c.book, func(_ context.Context, kv KV) error {
		supply, err := kv.Get(c.supplyKey())
		if err != nil {
			return err
		}
		if supply, err = mathutil.Add(supply, amount); err != nil {
			return err
		}
		if err := kv.Set(c.supplyKey(), supply); err != nil {
			return err
		}
		return c.credit(kv, to, amount)
	})
}

func (c *Collateral) move(
	kv KV, from, to common.Address, amount *big.Int,
) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := c.debit(kv, from, amount); err != nil {
		return err
	}
	return c.credit(kv, to, amount)
}

func (c *Collateral) debit(kv KV, holder common.Address, amount *big.Int) error {
	key := c.balanceKey(holder)
	balance, err := kv.Get(key)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf(
			"%w: %s holds %s %s, requested %s",
			ports.ErrInsufficientBalance, holder.Hex(), balance, c.symbol, amount,
		)
	}
	balance, err = mathutil.Sub(balance, amount)
	if err != nil {
		return err
	}
	return kv.Set(key, balance)
}

func (c *Collateral) credit(kv KV, holder common.Address, amount *big.Int) error {
	key := c.balanceKey(holder)
	balance, err := kv.Get(key)
	if err != nil {
		return err
	}
	balance, err = mathutil.Add(balance, amount)
	if err != nil {
		return err
	}
	return kv.Set(key, balance)
}

func (c *Collateral) balanceKey(holder common.Address) string {
	return fmt.Sprintf("collateral/%s/balance/%s", c.address.Hex(), holder.Hex())
}

func (c *Collateral) allowanceKey(owner, spender common.Address) string {
	return fmt.Sprintf(
		"collateral/%s/allowance/%s/%s", c.address.Hex(), owner.Hex(), spender.Hex(),
	)
}

func (c *Collateral) supplyKey() string {
	return fmt.Sprintf("collateral/%s/supply", c.address.Hex())
}
