package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const marketKey = "market"

type marketRepositoryImpl struct {
	db *DbManager
}

func (r marketRepositoryImpl) AddMarket(
	ctx context.Context, market *domain.Market,
) error {
	return r.db.update(ctx, func(txn *badger.Txn) error {
		if err := r.db.store.TxInsert(txn, marketKey, market); err != nil {
			if err == badgerhold.ErrKeyExists {
				return domain.ErrMarketAlreadyExists
			}
			return err
		}
		return nil
	})
}

func (r marketRepositoryImpl) GetMarket(
	ctx context.Context,
) (market *domain.Market, err error) {
	err = r.db.view(ctx, func(txn *badger.Txn) error {
		market, err = r.getMarket(txn)
		return err
	})
	return
}

func (r marketRepositoryImpl) UpdateMarket(
	ctx context.Context, updateFn func(m *domain.Market) (*domain.Market, error),
) error {
	return r.db.update(ctx, func(txn *badger.Txn) error {
		market, err := r.getMarket(txn)
		if err != nil {
			return err
		}

		updatedMarket, err := updateFn(market)
		if err != nil {
			return err
		}
		return r.db.store.TxUpdate(txn, marketKey, updatedMarket)
	})
}

func (r marketRepositoryImpl) getMarket(txn *badger.Txn) (*domain.Market, error) {
	var market domain.Market
	if err := r.db.store.TxGet(txn, marketKey, &market); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrMarketNotFound
		}
		return nil, err
	}
	return &market, nil
}
