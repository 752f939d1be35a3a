package inmemory

import (
	"context"

	"github.com/tdex-network/ctf-amm/internal/core/domain"
)

type marketRepositoryImpl struct {
	store *store
}

func (r marketRepositoryImpl) AddMarket(
	ctx context.Context, market *domain.Market,
) error {
	return r.store.withTx(ctx, func(tx *storeTx) error {
		if tx.getMarket() != nil {
			return domain.ErrMarketAlreadyExists
		}
		tx.setMarket(market)
		return nil
	})
}

func (r marketRepositoryImpl) GetMarket(ctx context.Context) (*domain.Market, error) {
	var market *domain.Market
	if err := r.store.withTx(ctx, func(tx *storeTx) error {
		market = tx.getMarket()
		return nil
	}); err != nil {
		return nil, err
	}
	if market == nil {
		return nil, domain.ErrMarketNotFound
	}
	return market, nil
}

func (r marketRepositoryImpl) UpdateMarket(
	ctx context.Context, updateFn func(m *domain.Market) (*domain.Market, error),
) error {
	return r.store.withTx(ctx, func(tx *storeTx) error {
		market := tx.getMarket()
		if market == nil {
			return domain.ErrMarketNotFound
		}

		updatedMarket, err := updateFn(market)
		if err != nil {
			return err
		}
		tx.setMarket(updatedMarket)
		return nil
	})
}
