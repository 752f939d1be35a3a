package uow

import (
	"context"
	"fmt"
)

// Transactional begins a transaction
type Transactional interface {
	Begin() (Tx, error)
}

// Tx represents an all-or-nothing transaction, by committing or rolling back
// a set of read/write operations
type Tx interface {
	Commit() error
	Rollback() error
}

// ContextProvider returns a context key. Participants returning the same key
// share the same transaction.
type ContextProvider interface {
	ContextKey() interface{}
}

// UnitOfWork allows to run multiple transactions as one
type UnitOfWork struct {
	participants []Transactional
}

// NewUnitOfWork returns a new UnitOfWork with the given Transactional
// participants
func NewUnitOfWork(participants ...Transactional) *UnitOfWork {
	return &UnitOfWork{participants}
}

// Key returns the context key under which the transaction of the given
// participant is stored.
func Key(participant interface{}) interface{} {
	if cp, ok := participant.(ContextProvider); ok {
		return cp.ContextKey()
	}
	return participant
}

// TxFromContext returns the transaction bound to the given key by an enclosing
// Run, if any.
func TxFromContext(ctx context.Context, key interface{}) (Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(key).(Tx)
	return tx, ok
}

// Run executes the given function over the current UnitOfWork. The given
// function is likely making read/write operations to different participants in
// a transactional way and must use the context it receives, which carries a
// transaction for every participant. Run makes sure that all the transactions
// within the given function are either all committed to the relative storage
// or rolled back if any error occur.
// A participant whose transaction is already carried by ctx joins it: the
// enclosing Run is then in charge of committing or rolling it back.
func (u *UnitOfWork) Run(
	ctx context.Context, fn func(ctx context.Context) error,
) (err error) {
	txs := make([]Tx, 0, len(u.participants))

	defer func() {
		if err == nil {
			return
		}
		for _, tx := range txs {
			if _err := tx.Rollback(); _err != nil {
				err = fmt.Errorf("%s, rollback failed: %w", err, _err)
				return
			}
		}
	}()

	defer func() {
		if err != nil {
			return
		}
		for _, tx := range txs {
			if _err := tx.Commit(); _err != nil {
				// TODO: transactions committed before this one can't be
				// reverted, a two phase commit among participants would be needed.
				err = _err
				return
			}
		}
	}()

	defer func() {
		// panicking returns an error that causes txs rollback
		if rec := recover(); rec != nil {
			err = fmt.Errorf("recovered: %v", rec)
		}
	}()

	for _, p := range u.participants {
		key := Key(p)
		if _, ok := TxFromContext(ctx, key); ok {
			continue
		}

		tx, err := p.Begin()
		if err != nil {
			return err
		}
		ctx = context.WithValue(ctx, key, tx)
		txs = append(txs, tx)
	}

	return fn(ctx)
}
