package inmemory

import (
	"context"
	"sync"

	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
)

// RepoManager keeps the market and its audit log in memory. Both repositories
// share the same store and therefore the same transaction.
type RepoManager struct {
	store            *store
	marketRepository domain.MarketRepository
	eventRepository  domain.EventRepository
}

func NewRepoManager() ports.RepoManager {
	s := &store{lock: &sync.RWMutex{}}
	return &RepoManager{
		store:            s,
		marketRepository: marketRepositoryImpl{s},
		eventRepository:  eventRepositoryImpl{s},
	}
}

func (d *RepoManager) MarketRepository() domain.MarketRepository {
	return d.marketRepository
}

func (d *RepoManager) EventRepository() domain.EventRepository {
	return d.eventRepository
}

func (d *RepoManager) Transactionals() []uow.Transactional {
	return []uow.Transactional{d.store}
}

func (d *RepoManager) Close() {}

type store struct {
	lock   *sync.RWMutex
	market *domain.Market
	events []domain.Event
}

func (s *store) Begin() (uow.Tx, error) {
	return &storeTx{store: s}, nil
}

func (s *store) ContextKey() interface{} {
	return s
}

// withTx runs fn within the transaction carried by ctx or, if missing, in a
// transaction committed right after.
func (s *store) withTx(ctx context.Context, fn func(tx *storeTx) error) error {
	if tx, ok := uow.TxFromContext(ctx, s); ok {
		if stx, ok := tx.(*storeTx); ok {
			return fn(stx)
		}
	}

	tx := &storeTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// storeTx stages the changes to the store until commit.
type storeTx struct {
	store        *store
	market       *domain.Market
	marketStaged bool
	events       []domain.Event
}

func (t *storeTx) getMarket() *domain.Market {
	if t.marketStaged {
		return t.market.Clone()
	}

	t.store.lock.RLock()
	defer t.store.lock.RUnlock()

	if t.store.market == nil {
		return nil
	}
	return t.store.market.Clone()
}

func (t *storeTx) setMarket(m *domain.Market) {
	t.market = m.Clone()
	t.marketStaged = true
}

func (t *storeTx) listEvents() []domain.Event {
	t.store.lock.RLock()
	defer t.store.lock.RUnlock()

	events := make([]domain.Event, 0, len(t.store.events)+len(t.events))
	events = append(events, t.store.events...)
	return append(events, t.events...)
}

func (t *storeTx) nextSequence() uint64 {
	t.store.lock.RLock()
	defer t.store.lock.RUnlock()

	return uint64(len(t.store.events)+len(t.events)) + 1
}

func (t *storeTx) Commit() error {
	t.store.lock.Lock()
	defer t.store.lock.Unlock()

	if t.marketStaged {
		t.store.market = t.market
	}
	t.store.events = append(t.store.events, t.events...)

	t.market, t.marketStaged, t.events = nil, false, nil
	return nil
}

func (t *storeTx) Rollback() error {
	t.market, t.marketStaged, t.events = nil, false, nil
	return nil
}
