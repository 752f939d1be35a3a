package application

import (
	"encoding/json"
	"math/big"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
)

var topicByEventType = map[domain.EventType]string{
	domain.EventTrade:                ports.TopicTrade,
	domain.EventFundingChanged:       ports.TopicFunding,
	domain.EventFeeChanged:           ports.TopicFee,
	domain.EventPaused:               ports.TopicStage,
	domain.EventResumed:              ports.TopicStage,
	domain.EventClosed:               ports.TopicStage,
	domain.EventMarketCreated:        ports.TopicStage,
	domain.EventFeesWithdrawn:        ports.TopicWithdrawal,
	domain.EventOwnershipTransferred: ports.TopicOwnership,
}

// TopicForEvent returns the pubsub topic of the given event.
func TopicForEvent(event domain.Event) string {
	return topicByEventType[event.Type]
}

// EventMessage is the JSON representation of an event, amounts are encoded
// as decimal strings.
type EventMessage struct {
	ID                  string   `json:"id"`
	Sequence            uint64   `json:"sequence"`
	Type                string   `json:"type"`
	Timestamp           int64    `json:"timestamp"`
	Caller              string   `json:"caller"`
	OutcomeTokenAmounts []string `json:"outcome_token_amounts,omitempty"`
	OutcomeTokenNetCost string   `json:"outcome_token_net_cost,omitempty"`
	MarketFees          string   `json:"market_fees,omitempty"`
	Amount              string   `json:"amount,omitempty"`
	Fee                 string   `json:"fee,omitempty"`
	NewOwner            string   `json:"new_owner,omitempty"`
}

// NewEventMessage ...
func NewEventMessage(event domain.Event) EventMessage {
	msg := EventMessage{
		ID:                  event.ID,
		Sequence:            event.Sequence,
		Type:                event.Type.String(),
		Timestamp:           event.Timestamp,
		Caller:              event.Caller.Hex(),
		OutcomeTokenNetCost: bigToString(event.OutcomeTokenNetCost),
		MarketFees:          bigToString(event.MarketFees),
		Amount:              bigToString(event.Amount),
		Fee:                 bigToString(event.Fee),
	}
	if len(event.OutcomeTokenAmounts) > 0 {
		msg.OutcomeTokenAmounts = amountsToString(event.OutcomeTokenAmounts)
	}
	if event.Type == domain.EventOwnershipTransferred {
		msg.NewOwner = event.NewOwner.Hex()
	}
	return msg
}

// NewPubSubHandler returns an event handler publishing every event on the
// given pubsub service. Publishing happens in background so that the market
// is never slowed down by webhooks.
func NewPubSubHandler(pubsub ports.PubSub) EventHandler {
	return func(event domain.Event) {
		topic := TopicForEvent(event)
		if topic == "" {
			return
		}

		message, err := json.Marshal(NewEventMessage(event))
		if err != nil {
			log.WithError(err).Warnf("failed to serialize %s event", event.Type)
			return
		}

		go func() {
			if err := pubsub.Publish(topic, string(message)); err != nil {
				log.WithError(err).Warnf(
					"failed to publish %s event on topic %s", event.Type, topic,
				)
				return
			}
			log.Debugf("published %s event on topic %s", event.Type, topic)
		}()
	}
}

func bigToString(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.String()
}
