package domain_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
)

func TestNewTradeEvent(t *testing.T) {
	t.Parallel()

	amounts := []*big.Int{big.NewInt(10), big.NewInt(-5)}
	e := domain.NewTradeEvent(owner, amounts, big.NewInt(100), big.NewInt(1))
	require.NotEmpty(t, e.ID)
	require.Equal(t, domain.EventTrade, e.Type)
	require.NotZero(t, e.Timestamp)

	amounts[0].SetInt64(0)
	require.Equal(t, int64(10), e.OutcomeTokenAmounts[0].Int64())
}

func TestNewStageEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stage    domain.Stage
		expected domain.EventType
	}{
		{domain.StageRunning, domain.EventResumed},
		{domain.StagePaused, domain.EventPaused},
		{domain.StageClosed, domain.EventClosed},
	}

	for _, tt := range tests {
		e := domain.NewStageEvent(owner, tt.stage)
		require.Equal(t, tt.expected, e.Type)
		require.True(t, e.IsStageEvent())
	}
}

func TestEventTypeFromString(t *testing.T) {
	t.Parallel()

	for _, eventType := range []domain.EventType{
		domain.EventTrade, domain.EventFundingChanged, domain.EventFeeChanged,
		domain.EventPaused, domain.EventResumed, domain.EventClosed,
		domain.EventFeesWithdrawn, domain.EventOwnershipTransferred,
		domain.EventMarketCreated,
	} {
		got, ok := domain.EventTypeFromString(eventType.String())
		require.True(t, ok)
		require.Equal(t, eventType, got)
	}

	_, ok := domain.EventTypeFromString("swap")
	require.False(t, ok)
}

func TestPage(t *testing.T) {
	t.Parallel()

	p := domain.NewPage(0, 0)
	require.Equal(t, 1, p.Number)
	require.Equal(t, 10, p.Size)

	start, end := domain.NewPage(2, 3).Bounds(7)
	require.Equal(t, 3, start)
	require.Equal(t, 6, end)

	start, end = domain.NewPage(3, 3).Bounds(7)
	require.Equal(t, 6, start)
	require.Equal(t, 7, end)

	start, end = domain.NewPage(5, 3).Bounds(7)
	require.Equal(t, 7, start)
	require.Equal(t, 7, end)
}
