package application_test

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ctf-amm/internal/core/application"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
)

type published struct {
	topic   string
	message string
}

type chanPubSub struct {
	ch chan published
}

func (p *chanPubSub) Subscribe(_, _, _ string) (string, error) { return "", nil }
func (p *chanPubSub) Unsubscribe(_, _ string) error            { return nil }
func (p *chanPubSub) ListSubscriptionsForTopic(_ string) []ports.Subscription {
	return nil
}
func (p *chanPubSub) Publish(topic, message string) error {
	p.ch <- published{topic, message}
	return nil
}
func (p *chanPubSub) Close() {}

func TestPubSubHandler(t *testing.T) {
	t.Parallel()

	pubsub := &chanPubSub{make(chan published, 10)}
	handler := application.NewPubSubHandler(pubsub)

	tests := []struct {
		event *domain.Event
		topic string
	}{
		{
			domain.NewTradeEvent(trader, amounts(10, -5), big.NewInt(100), big.NewInt(1)),
			ports.TopicTrade,
		},
		{domain.NewFundingChangedEvent(owner, big.NewInt(-400)), ports.TopicFunding},
		{domain.NewFeeChangedEvent(owner, onePercentFee), ports.TopicFee},
		{domain.NewStageEvent(owner, domain.StageClosed), ports.TopicStage},
		{domain.NewFeesWithdrawnEvent(owner, big.NewInt(3)), ports.TopicWithdrawal},
		{domain.NewOwnershipTransferredEvent(owner, stranger), ports.TopicOwnership},
	}

	for _, tt := range tests {
		handler(*tt.event)

		select {
		case p := <-pubsub.ch:
			require.Equal(t, tt.topic, p.topic)

			msg := application.EventMessage{}
			require.NoError(t, json.Unmarshal([]byte(p.message), &msg))
			require.Equal(t, tt.event.ID, msg.ID)
			require.Equal(t, tt.event.Type.String(), msg.Type)
			require.Equal(t, tt.event.Caller.Hex(), msg.Caller)
		case <-time.After(5 * time.Second):
			t.Fatalf("%s event not published", tt.event.Type)
		}
	}
}

func TestEventMessage(t *testing.T) {
	t.Parallel()

	trade := domain.NewTradeEvent(
		trader, amounts(10, -5), big.NewInt(100), big.NewInt(1),
	)
	msg := application.NewEventMessage(*trade)
	require.Equal(t, []string{"10", "-5"}, msg.OutcomeTokenAmounts)
	require.Equal(t, "100", msg.OutcomeTokenNetCost)
	require.Equal(t, "1", msg.MarketFees)
	require.Empty(t, msg.Amount)
	require.Empty(t, msg.NewOwner)

	transfer := domain.NewOwnershipTransferredEvent(owner, stranger)
	msg = application.NewEventMessage(*transfer)
	require.Equal(t, stranger.Hex(), msg.NewOwner)
	require.Empty(t, msg.OutcomeTokenAmounts)
}
