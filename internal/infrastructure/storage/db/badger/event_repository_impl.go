package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type eventRepositoryImpl struct {
	db *DbManager
}

func (r eventRepositoryImpl) AddEvent(
	ctx context.Context, event *domain.Event,
) error {
	seq, err := r.db.sequence.Next()
	if err != nil {
		return err
	}
	event.Sequence = seq + 1

	return r.db.update(ctx, func(txn *badger.Txn) error {
		return r.db.store.TxInsert(txn, event.Sequence, event)
	})
}

func (r eventRepositoryImpl) ListEvents(
	ctx context.Context, page domain.Page,
) ([]domain.Event, error) {
	query := badgerhold.Where("Sequence").Gt(uint64(0))
	return r.findEvents(ctx, query, page)
}

func (r eventRepositoryImpl) ListEventsByType(
	ctx context.Context, eventType domain.EventType, page domain.Page,
) ([]domain.Event, error) {
	query := badgerhold.Where("Type").Eq(eventType)
	return r.findEvents(ctx, query, page)
}

func (r eventRepositoryImpl) findEvents(
	ctx context.Context, query *badgerhold.Query, page domain.Page,
) (events []domain.Event, err error) {
	query = query.SortBy("Sequence").Skip(page.Offset()).Limit(page.Size)

	err = r.db.view(ctx, func(txn *badger.Txn) error {
		return r.db.store.TxFind(txn, &events, query)
	})
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = make([]domain.Event, 0)
	}
	return events, nil
}
