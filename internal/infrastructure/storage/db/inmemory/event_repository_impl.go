package inmemory

import (
	"context"

	"github.com/tdex-network/ctf-amm/internal/core/domain"
)

type eventRepositoryImpl struct {
	store *store
}

func (r eventRepositoryImpl) AddEvent(ctx context.Context, event *domain.Event) error {
	return r.store.withTx(ctx, func(tx *storeTx) error {
		event.Sequence = tx.nextSequence()
		tx.events = append(tx.events, *event)
		return nil
	})
}

func (r eventRepositoryImpl) ListEvents(
	ctx context.Context, page domain.Page,
) ([]domain.Event, error) {
	return r.listEvents(ctx, page, func(domain.Event) bool { return true })
}

func (r eventRepositoryImpl) ListEventsByType(
	ctx context.Context, eventType domain.EventType, page domain.Page,
) ([]domain.Event, error) {
	return r.listEvents(ctx, page, func(e domain.Event) bool {
		return e.Type == eventType
	})
}

func (r eventRepositoryImpl) listEvents(
	ctx context.Context, page domain.Page, filter func(domain.Event) bool,
) ([]domain.Event, error) {
	events := make([]domain.Event, 0)
	if err := r.store.withTx(ctx, func(tx *storeTx) error {
		for _, e := range tx.listEvents() {
			if filter(e) {
				events = append(events, e)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	start, end := page.Bounds(len(events))
	return events[start:end], nil
}
