package application_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ctf-amm/internal/core/application"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
	"github.com/tdex-network/ctf-amm/internal/infrastructure/ledger"
	"github.com/tdex-network/ctf-amm/internal/infrastructure/storage/db/inmemory"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking/formula"
	"github.com/tdex-network/ctf-amm/pkg/partition"
)

var (
	ctx = context.Background()

	ctfAddress        = common.HexToAddress("0x00000000000000000000000000000000000c7f00")
	collateralAddress = common.HexToAddress("0x00000000000000000000000000000000000c0100")
	oracle            = common.HexToAddress("0x000000000000000000000000000000000000a11e")
	questionID        = common.HexToHash("0x7175657374696f6e")
	owner             = common.HexToAddress("0x000000000000000000000000000000000000000e")
	trader            = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	stranger          = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	onePercentFee = big.NewInt(1e16)
	tenPercentFee = big.NewInt(1e17)
)

type mockStrategy struct {
	mock.Mock
}

func (m *mockStrategy) CalcNetCost(
	state marketmaking.MarketState, amounts []*big.Int,
) (*big.Int, error) {
	args := m.Called(state, amounts)

	var res *big.Int
	if a := args.Get(0); a != nil {
		res = a.(*big.Int)
	}
	return res, args.Error(1)
}

// reentrantCollateral calls back into the service while moving collateral.
type reentrantCollateral struct {
	ports.Collateral
	call func(ctx context.Context) error
	err  error
}

func (c *reentrantCollateral) TransferFrom(
	ctx context.Context, spender, from, to common.Address, amount *big.Int,
) error {
	if c.call != nil {
		c.err = c.call(ctx)
	}
	return c.Collateral.TransferFrom(ctx, spender, from, to, amount)
}

type testMarket struct {
	svc         *application.Service
	collateral  *ledger.Collateral
	ctf         *ledger.ConditionalTokens
	address     common.Address
	conditionID common.Hash
	ids         []*big.Int

	lock   *sync.Mutex
	events []domain.Event
}

type testMarketOpts struct {
	n        int
	fee      *big.Int
	funding  int64
	strategy marketmaking.PricingStrategy
	// wrap lets the test decorate the collateral the service is given.
	wrap func(ports.Collateral) ports.Collateral
}

func newTestMarket(t *testing.T, opts testMarketOpts) *testMarket {
	book := ledger.NewInMemoryBook()
	collateral := ledger.NewCollateral(collateralAddress, "USD", book)
	ctf := ledger.NewConditionalTokens(ctfAddress, book, collateral)

	n := opts.n
	if n == 0 {
		n = 2
	}
	conditionID, err := ctf.PrepareCondition(ctx, oracle, questionID, n)
	require.NoError(t, err)
	ids, err := partition.AtomicPositionIDs(collateralAddress, conditionID, n)
	require.NoError(t, err)

	var svcCollateral ports.Collateral = collateral
	if opts.wrap != nil {
		svcCollateral = opts.wrap(collateral)
	}

	svc, err := application.NewService(ctx, application.ServiceOpts{
		RepoManager:       inmemory.NewRepoManager(),
		ConditionalTokens: ctf,
		Collateral:        svcCollateral,
		Minter:            collateral,
		Strategy:          opts.strategy,
	})
	require.NoError(t, err)

	address := application.MarketAddress(owner, collateralAddress, conditionID)
	ctf.RegisterReceiver(address, svc)

	m := &testMarket{
		svc:         svc,
		collateral:  collateral,
		ctf:         ctf,
		address:     address,
		conditionID: conditionID,
		ids:         ids,
		lock:        &sync.Mutex{},
	}
	svc.RegisterHandlerForEvent(func(e domain.Event) {
		m.lock.Lock()
		defer m.lock.Unlock()
		m.events = append(m.events, e)
	})

	funding := big.NewInt(opts.funding)
	if opts.funding > 0 {
		require.NoError(t, collateral.Mint(ctx, owner, funding))
		require.NoError(t, collateral.Approve(ctx, owner, address, funding))
	}

	fee := opts.fee
	if fee == nil {
		fee = big.NewInt(0)
	}
	_, err = svc.CreateMarket(ctx, application.CreateMarketOpts{
		Owner:       owner,
		ConditionID: conditionID,
		Fee:         fee,
		Strategy:    formula.LMSRType,
		Funding:     funding,
	})
	require.NoError(t, err)

	return m
}

// fundTrader gives the account the given collateral, allowing the market to
// spend it, and amount of every outcome token, allowing the market to move
// them.
func (m *testMarket) fundTrader(
	t *testing.T, account common.Address, collateral, outcomeTokens int64,
) {
	total := big.NewInt(collateral + outcomeTokens)
	require.NoError(t, m.svc.Faucet(ctx, account, total))

	if outcomeTokens > 0 {
		amount := big.NewInt(outcomeTokens)
		require.NoError(t, m.collateral.Approve(ctx, account, ctfAddress, amount))
		indexSets, err := partition.Generate(len(m.ids))
		require.NoError(t, err)
		require.NoError(t, m.ctf.SplitPosition(
			ctx, account, collateralAddress, common.Hash{}, m.conditionID,
			indexSets, amount,
		))
	}

	require.NoError(t, m.svc.ApproveCollateral(ctx, account, big.NewInt(collateral)))
	require.NoError(t, m.svc.ApproveOutcomeTokens(ctx, account, true))
}

func (m *testMarket) collateralBalance(t *testing.T, account common.Address) int64 {
	balance, err := m.collateral.BalanceOf(ctx, account)
	require.NoError(t, err)
	return balance.Int64()
}

func (m *testMarket) outcomeBalances(t *testing.T, account common.Address) []int64 {
	balances := make([]int64, 0, len(m.ids))
	for _, id := range m.ids {
		balance, err := m.ctf.BalanceOf(ctx, account, id)
		require.NoError(t, err)
		balances = append(balances, balance.Int64())
	}
	return balances
}

func (m *testMarket) eventTypes() []domain.EventType {
	m.lock.Lock()
	defer m.lock.Unlock()

	types := make([]domain.EventType, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.Type)
	}
	return types
}

func amounts(values ...int64) []*big.Int {
	res := make([]*big.Int, 0, len(values))
	for _, v := range values {
		res = append(res, big.NewInt(v))
	}
	return res
}

func TestCreateMarket(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t, testMarketOpts{fee: onePercentFee, funding: 1000})

	info, err := m.svc.GetMarket(ctx)
	require.NoError(t, err)
	require.Equal(t, m.address, info.Address)
	require.Equal(t, owner, info.Owner)
	require.Equal(t, 2, info.OutcomeSlotCount)
	require.True(t, info.IsRunning())
	require.Equal(t, int64(1000), info.Funding.Int64())
	require.Equal(t, m.ids, info.PositionIDs)
	require.Equal(t, amounts(1000, 1000), info.Reserves)
	require.Zero(t, info.CollateralBalance.Sign())

	require.Equal(t, []domain.EventType{
		domain.EventMarketCreated, domain.EventFundingChanged, domain.EventResumed,
	}, m.eventTypes())

	_, err = m.svc.CreateMarket(ctx, application.CreateMarketOpts{
		Owner:       owner,
		ConditionID: m.conditionID,
	})
	require.ErrorIs(t, err, domain.ErrMarketAlreadyExists)
}

func TestCreateMarketDuringTrade(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	strategy.On("CalcNetCost", mock.Anything, mock.Anything).
		Return(big.NewInt(10), nil)

	var wrapper *reentrantCollateral
	m := newTestMarket(t, testMarketOpts{
		funding:  1000,
		strategy: strategy,
		wrap: func(c ports.Collateral) ports.Collateral {
			wrapper = &reentrantCollateral{Collateral: c}
			return wrapper
		},
	})
	m.fundTrader(t, trader, 100, 0)

	// a concurrent CreateMarket, for another owner, waits for the trade
	// without touching the address the market acknowledges transfers for
	created := make(chan error, 1)
	wrapper.call = func(context.Context) error {
		go func() {
			_, err := m.svc.CreateMarket(ctx, application.CreateMarketOpts{
				Owner:       stranger,
				ConditionID: m.conditionID,
			})
			created <- err
		}()
		time.Sleep(50 * time.Millisecond)
		return nil
	}

	_, err := m.svc.Trade(ctx, trader, amounts(10, 0), nil)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 0}, m.outcomeBalances(t, trader))

	require.ErrorIs(t, <-created, domain.ErrMarketAlreadyExists)
	selector := m.svc.OnERC1155Received(ctx, m.address, trader, m.ids[0], big.NewInt(1), nil)
	require.Equal(t, ports.ERC1155ReceivedSelector, selector)
}

func TestCreateMarketInvalid(t *testing.T) {
	t.Parallel()

	book := ledger.NewInMemoryBook()
	collateral := ledger.NewCollateral(collateralAddress, "USD", book)
	ctf := ledger.NewConditionalTokens(ctfAddress, book, collateral)
	conditionID, err := ctf.PrepareCondition(ctx, oracle, questionID, 2)
	require.NoError(t, err)

	svc, err := application.NewService(ctx, application.ServiceOpts{
		RepoManager:       inmemory.NewRepoManager(),
		ConditionalTokens: ctf,
		Collateral:        collateral,
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		opts application.CreateMarketOpts
		err  error
	}{
		{
			name: "unknown strategy",
			opts: application.CreateMarketOpts{
				Owner: owner, ConditionID: conditionID, Strategy: "martingale",
			},
			err: formula.ErrUnknownStrategy,
		},
		{
			name: "invalid fee",
			opts: application.CreateMarketOpts{
				Owner: owner, ConditionID: conditionID, Fee: big.NewInt(1e18),
			},
			err: domain.ErrInvalidFee,
		},
		{
			name: "condition not prepared",
			opts: application.CreateMarketOpts{
				Owner: owner, ConditionID: common.HexToHash("0x01"),
			},
			err: ledger.ErrConditionNotPrepared,
		},
		{
			name: "unfunded owner",
			opts: application.CreateMarketOpts{
				Owner: owner, ConditionID: conditionID, Funding: big.NewInt(10),
			},
			err: ports.ErrInsufficientAllowance,
		},
	}
	for _, tt := range tests {
		_, err := svc.CreateMarket(ctx, tt.opts)
		require.ErrorIs(t, err, tt.err, tt.name)
	}

	// nothing has been stored by the failed attempts
	_, err = svc.GetMarket(ctx)
	require.ErrorIs(t, err, domain.ErrMarketNotFound)

	err = svc.Faucet(ctx, trader, big.NewInt(1))
	require.ErrorIs(t, err, application.ErrFaucetDisabled)
}

func TestTradeBuy(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	strategy.On("CalcNetCost", mock.Anything, amounts(10, -5)).
		Return(big.NewInt(100), nil)

	m := newTestMarket(t, testMarketOpts{
		fee: onePercentFee, funding: 1000, strategy: strategy,
	})
	m.fundTrader(t, trader, 500, 5)

	netCost, err := m.svc.Trade(ctx, trader, amounts(10, -5), nil)
	require.NoError(t, err)
	require.Equal(t, int64(101), netCost.Int64())

	require.Equal(t, int64(500-101), m.collateralBalance(t, trader))
	require.Equal(t, []int64{15, 0}, m.outcomeBalances(t, trader))
	require.Equal(t, []int64{1090, 1105}, m.outcomeBalances(t, m.address))
	// only fees are left as idle collateral of the market
	require.Equal(t, int64(1), m.collateralBalance(t, m.address))

	state := strategy.Calls[0].Arguments.Get(0).(marketmaking.MarketState)
	require.Equal(t, int64(1000), state.Funding.Int64())
	require.Equal(t, amounts(1000, 1000), state.Reserves)

	events, err := m.svc.ListEvents(ctx, eventType(domain.EventTrade), domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, trader, events[0].Caller)
	require.Equal(t, amounts(10, -5), events[0].OutcomeTokenAmounts)
	require.Equal(t, int64(100), events[0].OutcomeTokenNetCost.Int64())
	require.Equal(t, int64(1), events[0].MarketFees.Int64())

	withdrawn, err := m.svc.WithdrawFees(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, int64(1), withdrawn.Int64())
	require.Equal(t, int64(1), m.collateralBalance(t, owner))
	require.Zero(t, m.collateralBalance(t, m.address))
}

func TestTradeBuyWithoutFee(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	strategy.On("CalcNetCost", mock.Anything, amounts(100, 0)).
		Return(big.NewInt(100), nil)

	m := newTestMarket(t, testMarketOpts{funding: 1000, strategy: strategy})
	m.fundTrader(t, trader, 100, 0)

	netCost, err := m.svc.Trade(ctx, trader, amounts(100, 0), nil)
	require.NoError(t, err)
	require.Equal(t, int64(100), netCost.Int64())

	// exactly 100 collateral pulled from the trader and split into 100 of
	// every outcome token
	require.Zero(t, m.collateralBalance(t, trader))
	require.Equal(t, int64(1100), m.collateralBalance(t, ctfAddress))
	require.Equal(t, []int64{100, 0}, m.outcomeBalances(t, trader))
	require.Equal(t, []int64{1000, 1100}, m.outcomeBalances(t, m.address))
	// no fee, no idle collateral
	require.Zero(t, m.collateralBalance(t, m.address))

	events, err := m.svc.ListEvents(ctx, eventType(domain.EventTrade), domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, int64(100), events[0].OutcomeTokenNetCost.Int64())
	require.Zero(t, events[0].MarketFees.Sign())
}

func TestTradeSell(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	strategy.On("CalcNetCost", mock.Anything, amounts(-20, 20)).
		Return(big.NewInt(-50), nil)

	m := newTestMarket(t, testMarketOpts{
		fee: tenPercentFee, funding: 1000, strategy: strategy,
	})
	m.fundTrader(t, trader, 0, 30)

	quote, err := m.svc.PreviewTrade(ctx, amounts(-20, 20))
	require.NoError(t, err)
	require.Equal(t, int64(-50), quote.OutcomeTokenNetCost.Int64())
	require.Equal(t, int64(5), quote.Fees.Int64())
	require.Equal(t, int64(-45), quote.NetCost.Int64())

	netCost, err := m.svc.Trade(ctx, trader, amounts(-20, 20), big.NewInt(-40))
	require.NoError(t, err)
	require.Equal(t, int64(-45), netCost.Int64())

	require.Equal(t, int64(45), m.collateralBalance(t, trader))
	require.Equal(t, []int64{10, 50}, m.outcomeBalances(t, trader))
	require.Equal(t, []int64{970, 930}, m.outcomeBalances(t, m.address))
	require.Equal(t, int64(5), m.collateralBalance(t, m.address))
}

func TestTradeAllZero(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	m := newTestMarket(t, testMarketOpts{
		fee: onePercentFee, funding: 1000, strategy: strategy,
	})

	netCost, err := m.svc.Trade(ctx, trader, amounts(0, 0), nil)
	require.NoError(t, err)
	require.Zero(t, netCost.Sign())
	strategy.AssertNotCalled(t, "CalcNetCost", mock.Anything, mock.Anything)

	require.Equal(t, []int64{1000, 1000}, m.outcomeBalances(t, m.address))
	require.Zero(t, m.collateralBalance(t, m.address))

	events, err := m.svc.ListEvents(ctx, eventType(domain.EventTrade), domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Zero(t, events[0].OutcomeTokenNetCost.Sign())
}

func TestTradeCollateralLimit(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	strategy.On("CalcNetCost", mock.Anything, mock.Anything).
		Return(big.NewInt(100), nil)

	m := newTestMarket(t, testMarketOpts{
		fee: onePercentFee, funding: 1000, strategy: strategy,
	})
	m.fundTrader(t, trader, 500, 0)

	_, err := m.svc.Trade(ctx, trader, amounts(10, 0), big.NewInt(100))
	require.ErrorIs(t, err, application.ErrCollateralLimitExceeded)
	require.Equal(t, int64(500), m.collateralBalance(t, trader))

	netCost, err := m.svc.Trade(ctx, trader, amounts(10, 0), big.NewInt(101))
	require.NoError(t, err)
	require.Equal(t, int64(101), netCost.Int64())
}

func TestTradeRollback(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	strategy.On("CalcNetCost", mock.Anything, mock.Anything).
		Return(big.NewInt(100), nil)

	m := newTestMarket(t, testMarketOpts{
		fee: onePercentFee, funding: 1000, strategy: strategy,
	})
	m.fundTrader(t, trader, 500, 5)
	// the market can no longer move the trader's outcome tokens
	require.NoError(t, m.svc.ApproveOutcomeTokens(ctx, trader, false))

	eventsBefore := len(m.eventTypes())

	_, err := m.svc.Trade(ctx, trader, amounts(10, -5), nil)
	require.ErrorIs(t, err, ports.ErrNotApproved)

	require.Equal(t, int64(500), m.collateralBalance(t, trader))
	require.Equal(t, []int64{5, 5}, m.outcomeBalances(t, trader))
	require.Equal(t, []int64{1000, 1000}, m.outcomeBalances(t, m.address))
	require.Zero(t, m.collateralBalance(t, m.address))
	require.Len(t, m.eventTypes(), eventsBefore)

	events, err := m.svc.ListEvents(ctx, eventType(domain.EventTrade), domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Empty(t, events)

	// the trader can't afford the trade
	require.NoError(t, m.svc.ApproveOutcomeTokens(ctx, trader, true))
	require.NoError(t, m.svc.ApproveCollateral(ctx, trader, big.NewInt(50)))
	_, err = m.svc.Trade(ctx, trader, amounts(10, -5), nil)
	require.ErrorIs(t, err, ports.ErrInsufficientAllowance)
}

func TestTradeInvalidAmounts(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t, testMarketOpts{funding: 1000, strategy: &mockStrategy{}})

	tooBig := new(big.Int).Lsh(big.NewInt(1), 255)
	tests := []struct {
		name    string
		amounts []*big.Int
	}{
		{"too few amounts", amounts(1)},
		{"too many amounts", amounts(1, 2, 3)},
		{"amount out of range", []*big.Int{tooBig, big.NewInt(0)}},
	}
	for _, tt := range tests {
		_, err := m.svc.Trade(ctx, trader, tt.amounts, nil)
		require.ErrorIs(t, err, domain.ErrInvalidOutcomeTokenAmounts, tt.name)
	}
}

func TestTradeLMSR(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t, testMarketOpts{funding: 1000})
	m.fundTrader(t, trader, 100, 0)

	netCost, err := m.svc.Trade(ctx, trader, amounts(100, 0), nil)
	require.NoError(t, err)
	require.Equal(t, int64(51), netCost.Int64())
	require.Equal(t, []int64{951, 1051}, m.outcomeBalances(t, m.address))

	prices, err := m.svc.MarginalPrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	require.Equal(t, 1, prices[0].Cmp(prices[1]))
}

func TestStageGating(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	strategy.On("CalcNetCost", mock.Anything, mock.Anything).
		Return(big.NewInt(10), nil)

	m := newTestMarket(t, testMarketOpts{funding: 1000, strategy: strategy})
	m.fundTrader(t, trader, 100, 0)

	require.ErrorIs(t, m.svc.Pause(ctx, stranger), domain.ErrNotOwner)
	require.ErrorIs(t, m.svc.Resume(ctx, owner), domain.ErrMarketNotPaused)
	require.ErrorIs(t, m.svc.ChangeFee(ctx, owner, onePercentFee), domain.ErrMarketNotPaused)
	require.ErrorIs(
		t, m.svc.ChangeFunding(ctx, owner, big.NewInt(10)), domain.ErrMarketNotPaused,
	)

	require.NoError(t, m.svc.Pause(ctx, owner))
	_, err := m.svc.Trade(ctx, trader, amounts(10, 0), nil)
	require.ErrorIs(t, err, domain.ErrMarketNotRunning)
	_, err = m.svc.PreviewTrade(ctx, amounts(10, 0))
	require.ErrorIs(t, err, domain.ErrMarketNotRunning)

	require.ErrorIs(t, m.svc.ChangeFee(ctx, stranger, onePercentFee), domain.ErrNotOwner)
	require.ErrorIs(t, m.svc.ChangeFee(ctx, owner, big.NewInt(1e18)), domain.ErrInvalidFee)
	require.NoError(t, m.svc.ChangeFee(ctx, owner, onePercentFee))

	fee, err := m.svc.CalcMarketFee(ctx, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, int64(10), fee.Int64())
	_, err = m.svc.CalcMarketFee(ctx, big.NewInt(-1))
	require.ErrorIs(t, err, application.ErrNegativeFee)

	require.NoError(t, m.svc.Resume(ctx, owner))
	netCost, err := m.svc.Trade(ctx, trader, amounts(10, 0), nil)
	require.NoError(t, err)
	require.Equal(t, int64(10), netCost.Int64())

	require.ErrorIs(t, m.svc.Close(ctx, stranger), domain.ErrNotOwner)
	require.NoError(t, m.svc.Close(ctx, owner))

	// every outcome token held by the market goes to the owner
	require.Equal(t, []int64{1000, 1010}, m.outcomeBalances(t, owner))
	require.Equal(t, []int64{0, 0}, m.outcomeBalances(t, m.address))

	_, err = m.svc.Trade(ctx, trader, amounts(10, 0), nil)
	require.ErrorIs(t, err, domain.ErrMarketClosed)
	require.ErrorIs(t, m.svc.Pause(ctx, owner), domain.ErrMarketClosed)
	require.ErrorIs(t, m.svc.Resume(ctx, owner), domain.ErrMarketClosed)
	require.ErrorIs(t, m.svc.Close(ctx, owner), domain.ErrMarketClosed)
	require.ErrorIs(
		t, m.svc.TransferOwnership(ctx, owner, stranger), domain.ErrMarketClosed,
	)

	// fees can still be withdrawn
	withdrawn, err := m.svc.WithdrawFees(ctx, owner)
	require.NoError(t, err)
	require.Zero(t, withdrawn.Sign())

	require.Equal(t, []domain.EventType{
		domain.EventMarketCreated, domain.EventFundingChanged, domain.EventResumed,
		domain.EventPaused, domain.EventFeeChanged, domain.EventResumed,
		domain.EventTrade, domain.EventClosed, domain.EventFeesWithdrawn,
	}, m.eventTypes())
}

func TestChangeFunding(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t, testMarketOpts{funding: 1000, strategy: &mockStrategy{}})
	require.NoError(t, m.svc.Pause(ctx, owner))

	require.ErrorIs(
		t, m.svc.ChangeFunding(ctx, owner, big.NewInt(0)), domain.ErrZeroFundingChange,
	)
	require.ErrorIs(
		t, m.svc.ChangeFunding(ctx, stranger, big.NewInt(10)), domain.ErrNotOwner,
	)
	require.ErrorIs(
		t, m.svc.ChangeFunding(ctx, owner, big.NewInt(-1001)), domain.ErrInvalidFunding,
	)

	require.NoError(t, m.svc.ChangeFunding(ctx, owner, big.NewInt(-400)))
	require.Equal(t, int64(400), m.collateralBalance(t, owner))
	require.Equal(t, []int64{600, 600}, m.outcomeBalances(t, m.address))

	info, err := m.svc.GetMarket(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(600), info.Funding.Int64())

	// funding back needs the owner's allowance
	require.ErrorIs(
		t, m.svc.ChangeFunding(ctx, owner, big.NewInt(400)), ports.ErrInsufficientAllowance,
	)
	require.NoError(t, m.svc.ApproveCollateral(ctx, owner, big.NewInt(400)))
	require.NoError(t, m.svc.ChangeFunding(ctx, owner, big.NewInt(400)))

	require.Zero(t, m.collateralBalance(t, owner))
	require.Equal(t, []int64{1000, 1000}, m.outcomeBalances(t, m.address))
	require.Zero(t, m.collateralBalance(t, m.address))

	info, err = m.svc.GetMarket(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1000), info.Funding.Int64())

	events, err := m.svc.ListEvents(
		ctx, eventType(domain.EventFundingChanged), domain.NewPage(1, 10),
	)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, int64(-400), events[1].Amount.Int64())
	require.Equal(t, int64(400), events[2].Amount.Int64())
}

func TestChangeFundingInsufficientBasket(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	strategy.On("CalcNetCost", mock.Anything, mock.Anything).
		Return(big.NewInt(10), nil)

	m := newTestMarket(t, testMarketOpts{funding: 1000, strategy: strategy})
	m.fundTrader(t, trader, 100, 0)

	_, err := m.svc.Trade(ctx, trader, amounts(20, 0), nil)
	require.NoError(t, err)
	require.Equal(t, []int64{990, 1010}, m.outcomeBalances(t, m.address))

	require.NoError(t, m.svc.Pause(ctx, owner))
	err = m.svc.ChangeFunding(ctx, owner, big.NewInt(-1000))
	require.ErrorIs(t, err, ports.ErrInsufficientBalance)

	info, err := m.svc.GetMarket(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1000), info.Funding.Int64())
	require.Equal(t, []int64{990, 1010}, m.outcomeBalances(t, m.address))
	require.Zero(t, m.collateralBalance(t, owner))
}

func TestTransferOwnership(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t, testMarketOpts{funding: 10, strategy: &mockStrategy{}})

	require.ErrorIs(
		t, m.svc.TransferOwnership(ctx, stranger, stranger), domain.ErrNotOwner,
	)
	require.ErrorIs(
		t, m.svc.TransferOwnership(ctx, owner, common.Address{}), domain.ErrInvalidOwner,
	)
	require.NoError(t, m.svc.TransferOwnership(ctx, owner, stranger))

	require.ErrorIs(t, m.svc.Pause(ctx, owner), domain.ErrNotOwner)
	require.NoError(t, m.svc.Pause(ctx, stranger))
}

func TestReentrantCall(t *testing.T) {
	t.Parallel()

	strategy := &mockStrategy{}
	strategy.On("CalcNetCost", mock.Anything, mock.Anything).
		Return(big.NewInt(10), nil)

	var wrapper *reentrantCollateral
	m := newTestMarket(t, testMarketOpts{
		funding:  1000,
		strategy: strategy,
		wrap: func(c ports.Collateral) ports.Collateral {
			wrapper = &reentrantCollateral{Collateral: c}
			return wrapper
		},
	})
	wrapper.call = func(ctx context.Context) error {
		return m.svc.Pause(ctx, owner)
	}
	m.fundTrader(t, trader, 100, 0)

	_, err := m.svc.Trade(ctx, trader, amounts(10, 0), nil)
	require.NoError(t, err)
	require.ErrorIs(t, wrapper.err, application.ErrReentrantCall)

	info, err := m.svc.GetMarket(ctx)
	require.NoError(t, err)
	require.True(t, info.IsRunning())
}

func TestReentrantRead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		read func(ctx context.Context, svc *application.Service) error
	}{
		{
			name: "market",
			read: func(ctx context.Context, svc *application.Service) error {
				_, err := svc.GetMarket(ctx)
				return err
			},
		},
		{
			name: "preview",
			read: func(ctx context.Context, svc *application.Service) error {
				_, err := svc.PreviewTrade(ctx, amounts(1, 0))
				return err
			},
		},
		{
			name: "fee",
			read: func(ctx context.Context, svc *application.Service) error {
				_, err := svc.CalcMarketFee(ctx, big.NewInt(100))
				return err
			},
		},
		{
			name: "marginal prices",
			read: func(ctx context.Context, svc *application.Service) error {
				_, err := svc.MarginalPrices(ctx)
				return err
			},
		},
		{
			name: "balances",
			read: func(ctx context.Context, svc *application.Service) error {
				_, err := svc.GetBalances(ctx, trader)
				return err
			},
		},
		{
			name: "events",
			read: func(ctx context.Context, svc *application.Service) error {
				_, err := svc.ListEvents(ctx, nil, domain.NewPage(1, 10))
				return err
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			strategy := &mockStrategy{}
			strategy.On("CalcNetCost", mock.Anything, mock.Anything).
				Return(big.NewInt(10), nil)

			var wrapper *reentrantCollateral
			m := newTestMarket(t, testMarketOpts{
				funding:  1000,
				strategy: strategy,
				wrap: func(c ports.Collateral) ports.Collateral {
					wrapper = &reentrantCollateral{Collateral: c}
					return wrapper
				},
			})
			wrapper.call = func(ctx context.Context) error {
				return tt.read(ctx, m.svc)
			}
			m.fundTrader(t, trader, 100, 0)

			done := make(chan error, 1)
			go func() {
				_, err := m.svc.Trade(ctx, trader, amounts(10, 0), nil)
				done <- err
			}()

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("trade did not return")
			}
			require.ErrorIs(t, wrapper.err, application.ErrReentrantCall)

			// the writer lock has been released
			require.NotErrorIs(t, tt.read(ctx, m.svc), application.ErrReentrantCall)
		})
	}
}

func TestTokenReceiver(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t, testMarketOpts{funding: 1000, strategy: &mockStrategy{}})
	m.fundTrader(t, trader, 0, 10)

	selector := m.svc.OnERC1155Received(ctx, trader, trader, m.ids[0], big.NewInt(1), nil)
	require.Equal(t, [4]byte{}, selector)
	selector = m.svc.OnERC1155Received(ctx, m.address, trader, m.ids[0], big.NewInt(1), nil)
	require.Equal(t, ports.ERC1155ReceivedSelector, selector)
	batchSelector := m.svc.OnERC1155BatchReceived(
		ctx, m.address, trader, m.ids, amounts(1, 1), nil,
	)
	require.Equal(t, ports.ERC1155BatchReceivedSelector, batchSelector)

	// outcome tokens can't be sent to the market outside of a trade
	err := m.ctf.SafeTransferFrom(
		ctx, trader, trader, m.address, m.ids[0], big.NewInt(5), nil,
	)
	require.ErrorIs(t, err, ports.ErrTransferRejected)
	require.Equal(t, []int64{10, 10}, m.outcomeBalances(t, trader))
}

func TestGetBalances(t *testing.T) {
	t.Parallel()

	m := newTestMarket(t, testMarketOpts{funding: 1000, strategy: &mockStrategy{}})
	m.fundTrader(t, trader, 70, 30)

	balances, err := m.svc.GetBalances(ctx, trader)
	require.NoError(t, err)
	require.Equal(t, int64(70), balances.Collateral.Int64())
	require.Equal(t, int64(70), balances.Allowance.Int64())
	require.True(t, balances.Approved)
	require.Equal(t, amounts(30, 30), balances.OutcomeTokens)

	require.ErrorIs(
		t, m.svc.Faucet(ctx, trader, big.NewInt(0)), application.ErrInvalidFaucetAmount,
	)
}

func eventType(t domain.EventType) *domain.EventType {
	return &t
}
