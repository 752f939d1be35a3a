package domain

import "context"

// MarketRepository is the abstraction for any kind of database intended to
// persist the market.
type MarketRepository interface {
	// AddMarket stores the market, it fails if one already exists.
	AddMarket(ctx context.Context, market *Market) error
	// GetMarket returns the market or ErrMarketNotFound.
	GetMarket(ctx context.Context) (*Market, error)
	// UpdateMarket updates the state of the market. The closure function
	// lets to commit multiple changes to the market in a transactional way.
	UpdateMarket(
		ctx context.Context, updateFn func(m *Market) (*Market, error),
	) error
}

// EventRepository is the abstraction for the audit log of the market.
type EventRepository interface {
	// AddEvent appends the event, assigning it the next sequence number.
	AddEvent(ctx context.Context, event *Event) error
	// ListEvents returns a page of events in commit order.
	ListEvents(ctx context.Context, page Page) ([]Event, error)
	// ListEventsByType returns a page of the events of the given type in
	// commit order.
	ListEventsByType(
		ctx context.Context, eventType EventType, page Page,
	) ([]Event, error)
}
