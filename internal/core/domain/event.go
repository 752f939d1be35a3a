package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// EventType identifies the operation that produced a market event.
type EventType int

const (
	EventTrade EventType = iota
	EventFundingChanged
	EventFeeChanged
	EventPaused
	EventResumed
	EventClosed
	EventFeesWithdrawn
	EventOwnershipTransferred
	EventMarketCreated
)

var eventTypeNames = map[EventType]string{
	EventTrade:                "trade",
	EventFundingChanged:       "funding_changed",
	EventFeeChanged:           "fee_changed",
	EventPaused:               "paused",
	EventResumed:              "resumed",
	EventClosed:               "closed",
	EventFeesWithdrawn:        "fees_withdrawn",
	EventOwnershipTransferred: "ownership_transferred",
	EventMarketCreated:        "market_created",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// EventTypeFromString is the inverse of EventType.String.
func EventTypeFromString(name string) (EventType, bool) {
	for t, n := range eventTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Event is the audit record of a committed market operation. Only the fields
// relevant to the event type are set.
type Event struct {
	ID string
	// Sequence orders events by commit, it's assigned by the repository.
	Sequence  uint64
	Type      EventType
	Timestamp int64
	Caller    common.Address

	// trade
	OutcomeTokenAmounts []*big.Int
	OutcomeTokenNetCost *big.Int
	MarketFees          *big.Int

	// funding change and fee withdrawal
	Amount *big.Int
	// fee change
	Fee *big.Int
	// ownership transfer
	NewOwner common.Address
}

func newEvent(eventType EventType, caller common.Address) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Caller:    caller,
	}
}

// NewTradeEvent ...
func NewTradeEvent(
	trader common.Address, amounts []*big.Int, netCost, fees *big.Int,
) *Event {
	e := newEvent(EventTrade, trader)
	e.OutcomeTokenAmounts = copyAmounts(amounts)
	e.OutcomeTokenNetCost = new(big.Int).Set(netCost)
	e.MarketFees = new(big.Int).Set(fees)
	return e
}

// NewFundingChangedEvent ...
func NewFundingChangedEvent(owner common.Address, delta *big.Int) *Event {
	e := newEvent(EventFundingChanged, owner)
	e.Amount = new(big.Int).Set(delta)
	return e
}

// NewFeeChangedEvent ...
func NewFeeChangedEvent(owner common.Address, fee *big.Int) *Event {
	e := newEvent(EventFeeChanged, owner)
	e.Fee = new(big.Int).Set(fee)
	return e
}

// NewStageEvent returns the event for a transition to the given stage.
func NewStageEvent(owner common.Address, stage Stage) *Event {
	eventType := EventPaused
	switch stage {
	case StageRunning:
		eventType = EventResumed
	case StageClosed:
		eventType = EventClosed
	}
	return newEvent(eventType, owner)
}

// NewFeesWithdrawnEvent ...
func NewFeesWithdrawnEvent(owner common.Address, amount *big.Int) *Event {
	e := newEvent(EventFeesWithdrawn, owner)
	e.Amount = new(big.Int).Set(amount)
	return e
}

// NewOwnershipTransferredEvent ...
func NewOwnershipTransferredEvent(owner, newOwner common.Address) *Event {
	e := newEvent(EventOwnershipTransferred, owner)
	e.NewOwner = newOwner
	return e
}

// NewMarketCreatedEvent ...
func NewMarketCreatedEvent(market *Market) *Event {
	e := newEvent(EventMarketCreated, market.Owner)
	e.Fee = new(big.Int).Set(market.Fee)
	e.Amount = new(big.Int).Set(market.Funding)
	return e
}

// IsStageEvent returns true for pause, resume and close events.
func (e *Event) IsStageEvent() bool {
	return e.Type == EventPaused || e.Type == EventResumed || e.Type == EventClosed
}

func copyAmounts(amounts []*big.Int) []*big.Int {
	res := make([]*big.Int, 0, len(amounts))
	for _, a := range amounts {
		res = append(res, new(big.Int).Set(a))
	}
	return res
}
