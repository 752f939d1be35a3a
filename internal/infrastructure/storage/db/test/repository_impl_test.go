package db_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
	"github.com/tdex-network/ctf-amm/internal/infrastructure/ledger"
	dbbadger "github.com/tdex-network/ctf-amm/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/ctf-amm/internal/infrastructure/storage/db/inmemory"
	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
)

var (
	owner      = common.HexToAddress("0x000000000000000000000000000000000000bbbb")
	collateral = common.HexToAddress("0x000000000000000000000000000000000000cccc")
)

type repoManager struct {
	Name    string
	Manager ports.RepoManager
}

func createRepoManagers(t *testing.T) []repoManager {
	badgerManager, err := dbbadger.NewDbManager("", nil)
	require.NoError(t, err)

	return []repoManager{
		{"inmemory", inmemory.NewRepoManager()},
		{"badger", badgerManager},
	}
}

func TestRepositoryImplementations(t *testing.T) {
	for _, repo := range createRepoManagers(t) {
		repo := repo

		t.Run(repo.Name, func(t *testing.T) {
			defer repo.Manager.Close()

			t.Run("add_get_update_market", func(t *testing.T) {
				testMarketRepository(t, repo.Manager)
			})
			t.Run("add_and_list_events", func(t *testing.T) {
				testEventRepository(t, repo.Manager)
			})
			t.Run("rollback", func(t *testing.T) {
				testRollback(t, repo.Manager)
			})
		})
	}
}

func testMarketRepository(t *testing.T, manager ports.RepoManager) {
	ctx := context.Background()
	repo := manager.MarketRepository()

	_, err := repo.GetMarket(ctx)
	require.ErrorIs(t, err, domain.ErrMarketNotFound)

	err = repo.UpdateMarket(ctx, func(m *domain.Market) (*domain.Market, error) {
		return m, nil
	})
	require.ErrorIs(t, err, domain.ErrMarketNotFound)

	market := newMarket(t)
	require.NoError(t, repo.AddMarket(ctx, market))
	require.ErrorIs(t, repo.AddMarket(ctx, market), domain.ErrMarketAlreadyExists)

	got, err := repo.GetMarket(ctx)
	require.NoError(t, err)
	require.Equal(t, market.Owner, got.Owner)
	require.Equal(t, market.ConditionID, got.ConditionID)
	require.Equal(t, domain.StagePaused, got.Stage)
	require.Equal(t, 0, market.Fee.Cmp(got.Fee))

	err = repo.UpdateMarket(ctx, func(m *domain.Market) (*domain.Market, error) {
		if err := m.ChangeFunding(big.NewInt(1000)); err != nil {
			return nil, err
		}
		if err := m.Resume(); err != nil {
			return nil, err
		}
		return m, nil
	})
	require.NoError(t, err)

	got, err = repo.GetMarket(ctx)
	require.NoError(t, err)
	require.True(t, got.IsRunning())
	require.Equal(t, int64(1000), got.Funding.Int64())

	err = repo.UpdateMarket(ctx, func(m *domain.Market) (*domain.Market, error) {
		return nil, domain.ErrMarketNotPaused
	})
	require.ErrorIs(t, err, domain.ErrMarketNotPaused)
}

func testEventRepository(t *testing.T, manager ports.RepoManager) {
	ctx := context.Background()
	repo := manager.EventRepository()

	events, err := repo.ListEvents(ctx, domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Empty(t, events)

	for i := 0; i < 7; i++ {
		e := domain.NewTradeEvent(
			owner, []*big.Int{big.NewInt(int64(i)), big.NewInt(0)},
			big.NewInt(int64(i)), big.NewInt(0),
		)
		require.NoError(t, repo.AddEvent(ctx, e))
		require.NotZero(t, e.Sequence)

		if i%3 == 0 {
			require.NoError(t, repo.AddEvent(ctx, domain.NewStageEvent(owner, domain.StagePaused)))
		}
	}

	allEvents, err := repo.ListEvents(ctx, domain.NewPage(1, 100))
	require.NoError(t, err)
	require.Len(t, allEvents, 10)
	for i := 1; i < len(allEvents); i++ {
		require.Greater(t, allEvents[i].Sequence, allEvents[i-1].Sequence)
	}

	// pages concatenated match the whole list
	pagedEvents := make([]domain.Event, 0)
	for i := 1; i <= 4; i++ {
		page, err := repo.ListEvents(ctx, domain.NewPage(i, 3))
		require.NoError(t, err)
		pagedEvents = append(pagedEvents, page...)
	}
	require.Len(t, pagedEvents, 10)
	for i := range pagedEvents {
		require.Equal(t, allEvents[i].ID, pagedEvents[i].ID)
	}

	trades, err := repo.ListEventsByType(ctx, domain.EventTrade, domain.NewPage(1, 100))
	require.NoError(t, err)
	require.Len(t, trades, 7)
	require.Equal(t, int64(6), trades[6].OutcomeTokenNetCost.Int64())

	paused, err := repo.ListEventsByType(ctx, domain.EventPaused, domain.NewPage(2, 2))
	require.NoError(t, err)
	require.Len(t, paused, 1)

	closed, err := repo.ListEventsByType(ctx, domain.EventClosed, domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Empty(t, closed)
}

func testRollback(t *testing.T, manager ports.RepoManager) {
	ctx := context.Background()
	unit := uow.NewUnitOfWork(manager.Transactionals()...)

	before, err := manager.EventRepository().ListEvents(ctx, domain.NewPage(1, 100))
	require.NoError(t, err)
	market, err := manager.MarketRepository().GetMarket(ctx)
	require.NoError(t, err)

	errBoom := errors.New("boom")
	err = unit.Run(ctx, func(ctx context.Context) error {
		if err := manager.MarketRepository().UpdateMarket(
			ctx, func(m *domain.Market) (*domain.Market, error) {
				if err := m.Pause(); err != nil {
					return nil, err
				}
				return m, nil
			},
		); err != nil {
			return err
		}
		if err := manager.EventRepository().AddEvent(
			ctx, domain.NewStageEvent(owner, domain.StagePaused),
		); err != nil {
			return err
		}

		// the transaction sees its own writes
		m, err := manager.MarketRepository().GetMarket(ctx)
		require.NoError(t, err)
		require.True(t, m.IsPaused())
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	after, err := manager.EventRepository().ListEvents(ctx, domain.NewPage(1, 100))
	require.NoError(t, err)
	require.Len(t, after, len(before))

	got, err := manager.MarketRepository().GetMarket(ctx)
	require.NoError(t, err)
	require.Equal(t, market.Stage, got.Stage)
}

func TestBadgerBook(t *testing.T) {
	ctx := context.Background()

	db, err := dbbadger.NewDbManager("", nil)
	require.NoError(t, err)
	defer db.Close()

	alice := common.HexToAddress("0x0a")
	bob := common.HexToAddress("0x0b")
	c := ledger.NewCollateral(collateral, "USD", db)

	require.NoError(t, c.Mint(ctx, alice, big.NewInt(100)))

	// ledger and repositories share the same badger transaction
	unit := uow.NewUnitOfWork(append(db.Transactionals(), c)...)
	err = unit.Run(ctx, func(ctx context.Context) error {
		if err := c.Transfer(ctx, alice, bob, big.NewInt(40)); err != nil {
			return err
		}
		if err := db.MarketRepository().AddMarket(ctx, newMarket(t)); err != nil {
			return err
		}
		return c.Transfer(ctx, alice, bob, big.NewInt(61))
	})
	require.ErrorIs(t, err, ports.ErrInsufficientBalance)

	balance, err := c.BalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Int64())
	_, err = db.MarketRepository().GetMarket(ctx)
	require.ErrorIs(t, err, domain.ErrMarketNotFound)

	require.NoError(t, c.Transfer(ctx, alice, bob, big.NewInt(100)))
	balance, err = c.BalanceOf(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Int64())
	balance, err = c.BalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
}

func newMarket(t *testing.T) *domain.Market {
	m, err := domain.NewMarket(
		common.HexToAddress("0xaaaa"), owner, collateral, common.HexToHash("0x01"),
		2, big.NewInt(1e16), "lmsr",
	)
	require.NoError(t, err)
	return m
}
