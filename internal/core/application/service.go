package application

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking/formula"
)

// MarketMakerService is the automated market maker of a single market.
type MarketMakerService interface {
	CreateMarket(ctx context.Context, opts CreateMarketOpts) (*domain.Market, error)
	GetMarket(ctx context.Context) (*MarketInfo, error)

	Trade(
		ctx context.Context, trader common.Address,
		outcomeTokenAmounts []*big.Int, collateralLimit *big.Int,
	) (*big.Int, error)
	PreviewTrade(
		ctx context.Context, outcomeTokenAmounts []*big.Int,
	) (*Quote, error)
	CalcMarketFee(ctx context.Context, cost *big.Int) (*big.Int, error)
	MarginalPrices(ctx context.Context) ([]*big.Int, error)

	ChangeFunding(ctx context.Context, caller common.Address, delta *big.Int) error
	ChangeFee(ctx context.Context, caller common.Address, fee *big.Int) error
	Pause(ctx context.Context, caller common.Address) error
	Resume(ctx context.Context, caller common.Address) error
	Close(ctx context.Context, caller common.Address) error
	WithdrawFees(ctx context.Context, caller common.Address) (*big.Int, error)
	TransferOwnership(
		ctx context.Context, caller, newOwner common.Address,
	) error

	ListEvents(
		ctx context.Context, eventType *domain.EventType, page domain.Page,
	) ([]domain.Event, error)
	RegisterHandlerForEvent(handler EventHandler)
}

// LedgerService exposes the ledger operations a trader needs to interact
// with the market.
type LedgerService interface {
	ApproveCollateral(ctx context.Context, owner common.Address, amount *big.Int) error
	ApproveOutcomeTokens(ctx context.Context, owner common.Address, approved bool) error
	Faucet(ctx context.Context, to common.Address, amount *big.Int) error
	GetBalances(ctx context.Context, holder common.Address) (*Balances, error)
}

// Minter creates collateral out of thin air, it's used by the faucet.
type Minter interface {
	Mint(ctx context.Context, to common.Address, amount *big.Int) error
}

// ServiceOpts are the dependencies of the Service. Minter and Strategy are
// optional: without a minter the faucet is disabled, without a strategy the
// one named by the market is used.
type ServiceOpts struct {
	RepoManager       ports.RepoManager
	ConditionalTokens ports.ConditionalTokens
	Collateral        ports.Collateral
	Minter            Minter
	Strategy          marketmaking.PricingStrategy
}

func (o ServiceOpts) validate() error {
	if o.RepoManager == nil {
		return errors.New("missing repo manager")
	}
	if o.ConditionalTokens == nil {
		return errors.New("missing conditional tokens ledger")
	}
	if o.Collateral == nil {
		return errors.New("missing collateral ledger")
	}
	return nil
}

// Service implements MarketMakerService, LedgerService and
// ports.TokenReceiver. Every state change is applied by a single writer,
// within a unit of work spanning repositories and ledgers.
type Service struct {
	repoManager ports.RepoManager
	ctf         ports.ConditionalTokens
	collateral  ports.Collateral
	minter      Minter
	strategy    marketmaking.PricingStrategy
	unit        *uow.UnitOfWork

	lock          *sync.RWMutex
	marketAddress atomic.Value

	handlersLock *sync.RWMutex
	handlers     []EventHandler
}

// NewService returns a new Service. If the market already exists its address
// is loaded so that the service can acknowledge transfers to it.
func NewService(ctx context.Context, opts ServiceOpts) (*Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	participants := append(
		opts.RepoManager.Transactionals(), opts.ConditionalTokens, opts.Collateral,
	)
	svc := &Service{
		repoManager:  opts.RepoManager,
		ctf:          opts.ConditionalTokens,
		collateral:   opts.Collateral,
		minter:       opts.Minter,
		strategy:     opts.Strategy,
		unit:         uow.NewUnitOfWork(participants...),
		lock:         &sync.RWMutex{},
		handlersLock: &sync.RWMutex{},
	}

	mkt, err := opts.RepoManager.MarketRepository().GetMarket(ctx)
	if err != nil && !errors.Is(err, domain.ErrMarketNotFound) {
		return nil, err
	}
	if mkt != nil {
		svc.marketAddress.Store(mkt.Address)
	}
	return svc, nil
}

// MarketAddress returns the address of the market of the given owner and
// condition: keccak256(owner ‖ collateral ‖ conditionID)[12:].
func MarketAddress(
	owner, collateral common.Address, conditionID common.Hash,
) common.Address {
	hash := crypto.Keccak256(owner.Bytes(), collateral.Bytes(), conditionID.Bytes())
	return common.BytesToAddress(hash[12:])
}

// RegisterHandlerForEvent adds a handler notified of every committed event.
func (s *Service) RegisterHandlerForEvent(handler EventHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()

	s.handlers = append(s.handlers, handler)
}

// OnERC1155Received acknowledges transfers of outcome tokens initiated by the
// market itself.
func (s *Service) OnERC1155Received(
	_ context.Context, operator, _ common.Address, _, _ *big.Int, _ []byte,
) [4]byte {
	if addr, ok := s.address(); ok && operator == addr {
		return ports.ERC1155ReceivedSelector
	}
	return [4]byte{}
}

// OnERC1155BatchReceived is like OnERC1155Received, for batch transfers.
func (s *Service) OnERC1155BatchReceived(
	_ context.Context, operator, _ common.Address, _, _ []*big.Int, _ []byte,
) [4]byte {
	if addr, ok := s.address(); ok && operator == addr {
		return ports.ERC1155BatchReceivedSelector
	}
	return [4]byte{}
}

func (s *Service) address() (common.Address, bool) {
	addr, ok := s.marketAddress.Load().(common.Address)
	return addr, ok
}

type inFlightKey struct{}

type operation func(ctx context.Context) ([]*domain.Event, error)

type marketOperation func(
	ctx context.Context, mkt *domain.Market,
) ([]*domain.Event, error)

func isInFlight(ctx context.Context) bool {
	return ctx.Value(inFlightKey{}) != nil
}

// run applies op as the only writer, within a unit of work.
func (s *Service) run(ctx context.Context, op operation) error {
	return s.exclusive(ctx, func(ctx context.Context) error {
		return s.commit(ctx, op)
	})
}

// exclusive runs fn holding the writer lock, with ctx marked as carrying an
// in-flight operation.
func (s *Service) exclusive(
	ctx context.Context, fn func(ctx context.Context) error,
) error {
	if isInFlight(ctx) {
		return ErrReentrantCall
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	return fn(context.WithValue(ctx, inFlightKey{}, struct{}{}))
}

// commit runs op within a unit of work. The events returned by op are stored
// along with the changes, and are dispatched to the handlers only once
// committed. The writer lock must be held.
func (s *Service) commit(ctx context.Context, op operation) error {
	var events []*domain.Event
	if err := s.unit.Run(ctx, func(ctx context.Context) error {
		evs, err := op(ctx)
		if err != nil {
			return err
		}
		for _, e := range evs {
			if err := s.repoManager.EventRepository().AddEvent(ctx, e); err != nil {
				return err
			}
		}
		events = evs
		return nil
	}); err != nil {
		return err
	}

	s.dispatch(events)
	return nil
}

// execute runs op over the market, the changes it makes to the market are
// stored along with the others.
func (s *Service) execute(ctx context.Context, op marketOperation) error {
	return s.run(ctx, func(ctx context.Context) ([]*domain.Event, error) {
		var events []*domain.Event
		err := s.repoManager.MarketRepository().UpdateMarket(
			ctx, func(mkt *domain.Market) (*domain.Market, error) {
				evs, err := op(ctx, mkt)
				if err != nil {
					return nil, err
				}
				events = evs
				return mkt, nil
			},
		)
		return events, err
	})
}

// view runs fn over the last committed state of the market. Reads are not
// allowed from within an operation.
func (s *Service) view(
	ctx context.Context, fn func(ctx context.Context, mkt *domain.Market) error,
) error {
	if isInFlight(ctx) {
		return ErrReentrantCall
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	mkt, err := s.repoManager.MarketRepository().GetMarket(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, mkt)
}

func (s *Service) dispatch(events []*domain.Event) {
	s.handlersLock.RLock()
	defer s.handlersLock.RUnlock()

	for _, e := range events {
		log.WithFields(log.Fields{
			"event":    e.Type.String(),
			"sequence": e.Sequence,
			"caller":   e.Caller.Hex(),
		}).Debug("market event committed")

		for _, handler := range s.handlers {
			handler(*e)
		}
	}
}

func (s *Service) pricingStrategy(
	mkt *domain.Market,
) (*marketmaking.MakingStrategy, error) {
	if s.strategy != nil {
		return marketmaking.NewStrategyFromFormula(mkt.Strategy, "", s.strategy), nil
	}
	return formula.NewMakingStrategy(mkt.Strategy)
}

// marketState returns the funding and the outcome token reserves of the
// market, by slot.
func (s *Service) marketState(
	ctx context.Context, mkt *domain.Market,
) (marketmaking.MarketState, error) {
	ids, err := mkt.PositionIDs()
	if err != nil {
		return marketmaking.MarketState{}, err
	}

	holders := make([]common.Address, len(ids))
	for i := range holders {
		holders[i] = mkt.Address
	}
	reserves, err := s.ctf.BalanceOfBatch(ctx, holders, ids)
	if err != nil {
		return marketmaking.MarketState{}, err
	}

	return marketmaking.MarketState{
		Funding:  new(big.Int).Set(mkt.Funding),
		Reserves: reserves,
	}, nil
}
