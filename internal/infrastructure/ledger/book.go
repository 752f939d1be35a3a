package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
)

// ErrInvalidTx is returned when the transaction bound to a book's context key
// can't be used to read and write balances.
var ErrInvalidTx = errors.New("transaction does not support book operations")

// KV is the view of a book transaction: a map of non negative integers where
// missing keys read as zero.
type KV interface {
	Get(key string) (*big.Int, error)
	Set(key string, value *big.Int) error
}

// Book is the transactional store the ledgers keep their state in. The
// transactions returned by Begin must implement KV.
type Book interface {
	uow.Transactional
	uow.ContextProvider
}

// update runs fn within the transaction of the book carried by ctx. If there's
// none, a new one is started and bound to the context passed to fn, so that
// nested ledger calls join it.
func update(
	ctx context.Context, book Book,
	fn func(ctx context.Context, kv KV) error,
) (err error) {
	key := book.ContextKey()
	if tx, ok := uow.TxFromContext(ctx, key); ok {
		kv, ok := tx.(KV)
		if !ok {
			return ErrInvalidTx
		}
		return fn(ctx, kv)
	}

	return uow.NewUnitOfWork(book).Run(ctx, func(ctx context.Context) error {
		tx, _ := uow.TxFromContext(ctx, key)
		kv, ok := tx.(KV)
		if !ok {
			return ErrInvalidTx
		}
		return fn(ctx, kv)
	})
}

// view is like update but never commits a transaction it starts.
func view(ctx context.Context, book Book, fn func(kv KV) error) error {
	key := book.ContextKey()
	if tx, ok := uow.TxFromContext(ctx, key); ok {
		kv, ok := tx.(KV)
		if !ok {
			return ErrInvalidTx
		}
		return fn(kv)
	}

	tx, err := book.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	kv, ok := tx.(KV)
	if !ok {
		return ErrInvalidTx
	}
	return fn(kv)
}
