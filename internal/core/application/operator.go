package application

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking/formula"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
)

// CreateMarket creates the market for the given condition, owned by
// opts.Owner. The market is created paused, if opts.Funding is positive it is
// funded by the owner and resumed.
func (s *Service) CreateMarket(
	ctx context.Context, opts CreateMarketOpts,
) (*domain.Market, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = formula.LMSRType
	}
	if _, err := formula.NewMakingStrategy(strategy); err != nil {
		return nil, err
	}
	fee := opts.Fee
	if fee == nil {
		fee = big.NewInt(0)
	}
	funding := opts.Funding
	if funding == nil {
		funding = big.NewInt(0)
	}
	if !mathutil.IsUint256(funding) {
		return nil, domain.ErrInvalidFunding
	}

	address := MarketAddress(opts.Owner, s.collateral.Address(), opts.ConditionID)

	var market *domain.Market
	createMarket := func(ctx context.Context) ([]*domain.Event, error) {
		n, err := s.ctf.OutcomeSlotCount(ctx, opts.ConditionID)
		if err != nil {
			return nil, err
		}

		mkt, err := domain.NewMarket(
			address, opts.Owner, s.collateral.Address(), opts.ConditionID,
			n, fee, strategy,
		)
		if err != nil {
			return nil, err
		}
		if err := s.repoManager.MarketRepository().AddMarket(ctx, mkt); err != nil {
			return nil, err
		}

		events := []*domain.Event{domain.NewMarketCreatedEvent(mkt)}
		if funding.Sign() > 0 {
			evs, err := s.changeFunding(ctx, mkt, opts.Owner, funding)
			if err != nil {
				return nil, err
			}
			if err := mkt.Resume(); err != nil {
				return nil, err
			}
			events = append(events, evs...)
			events = append(events, domain.NewStageEvent(mkt.Owner, mkt.Stage))

			if err := s.repoManager.MarketRepository().UpdateMarket(
				ctx, func(*domain.Market) (*domain.Market, error) {
					return mkt, nil
				},
			); err != nil {
				return nil, err
			}
		}

		market = mkt
		return events, nil
	}

	if err := s.exclusive(ctx, func(ctx context.Context) error {
		// The market must acknowledge the outcome tokens it's credited with
		// while being funded.
		prevAddress, hasPrevAddress := s.address()
		s.marketAddress.Store(address)

		if err := s.commit(ctx, createMarket); err != nil {
			if hasPrevAddress {
				s.marketAddress.Store(prevAddress)
			} else {
				s.marketAddress.Store(common.Address{})
			}
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"address":  market.Address.Hex(),
		"owner":    market.Owner.Hex(),
		"strategy": market.Strategy,
		"stage":    market.Stage.String(),
	}).Info("market created")

	return market, nil
}

// ChangeFunding adds or, if delta is negative, removes funding from the
// market. Added funding is paid by the caller, removed funding goes to the
// owner.
func (s *Service) ChangeFunding(
	ctx context.Context, caller common.Address, delta *big.Int,
) error {
	return s.execute(ctx, func(
		ctx context.Context, mkt *domain.Market,
	) ([]*domain.Event, error) {
		if err := mustBeOwner(mkt, caller); err != nil {
			return nil, err
		}
		return s.changeFunding(ctx, mkt, caller, delta)
	})
}

func (s *Service) changeFunding(
	ctx context.Context, mkt *domain.Market, caller common.Address,
	delta *big.Int,
) ([]*domain.Event, error) {
	if err := mkt.ChangeFunding(delta); err != nil {
		return nil, err
	}

	if delta.Sign() > 0 {
		if err := s.collateral.TransferFrom(
			ctx, mkt.Address, caller, mkt.Address, delta,
		); err != nil {
			return nil, err
		}
		if err := s.split(ctx, mkt, delta); err != nil {
			return nil, err
		}
	} else {
		amount := mathutil.Abs(delta)
		if err := s.merge(ctx, mkt, amount); err != nil {
			return nil, err
		}
		if err := s.collateral.Transfer(
			ctx, mkt.Address, mkt.Owner, amount,
		); err != nil {
			return nil, err
		}
	}

	log.Debugf("market funding changed by %s", delta)
	return []*domain.Event{domain.NewFundingChangedEvent(caller, delta)}, nil
}

// ChangeFee updates the fee rate of the paused market.
func (s *Service) ChangeFee(
	ctx context.Context, caller common.Address, fee *big.Int,
) error {
	return s.execute(ctx, func(
		_ context.Context, mkt *domain.Market,
	) ([]*domain.Event, error) {
		if err := mustBeOwner(mkt, caller); err != nil {
			return nil, err
		}
		if err := mkt.ChangeFee(fee); err != nil {
			return nil, err
		}
		return []*domain.Event{domain.NewFeeChangedEvent(caller, fee)}, nil
	})
}

// Pause suspends trading.
func (s *Service) Pause(ctx context.Context, caller common.Address) error {
	return s.execute(ctx, func(
		_ context.Context, mkt *domain.Market,
	) ([]*domain.Event, error) {
		if err := mustBeOwner(mkt, caller); err != nil {
			return nil, err
		}
		if err := mkt.Pause(); err != nil {
			return nil, err
		}
		return []*domain.Event{domain.NewStageEvent(caller, mkt.Stage)}, nil
	})
}

// Resume opens the market for trading again.
func (s *Service) Resume(ctx context.Context, caller common.Address) error {
	return s.execute(ctx, func(
		_ context.Context, mkt *domain.Market,
	) ([]*domain.Event, error) {
		if err := mustBeOwner(mkt, caller); err != nil {
			return nil, err
		}
		if err := mkt.Resume(); err != nil {
			return nil, err
		}
		return []*domain.Event{domain.NewStageEvent(caller, mkt.Stage)}, nil
	})
}

// Close closes the market forever and hands all the outcome tokens it holds
// over to the owner.
func (s *Service) Close(ctx context.Context, caller common.Address) error {
	return s.execute(ctx, func(
		ctx context.Context, mkt *domain.Market,
	) ([]*domain.Event, error) {
		if err := mustBeOwner(mkt, caller); err != nil {
			return nil, err
		}
		if err := mkt.Close(); err != nil {
			return nil, err
		}

		ids, err := mkt.PositionIDs()
		if err != nil {
			return nil, err
		}
		state, err := s.marketState(ctx, mkt)
		if err != nil {
			return nil, err
		}

		positions := make([]*big.Int, 0, len(ids))
		amounts := make([]*big.Int, 0, len(ids))
		for i, balance := range state.Reserves {
			if balance.Sign() == 0 {
				continue
			}
			positions = append(positions, ids[i])
			amounts = append(amounts, balance)
		}
		if len(positions) > 0 {
			if err := s.ctf.SafeBatchTransferFrom(
				ctx, mkt.Address, mkt.Address, mkt.Owner, positions, amounts, nil,
			); err != nil {
				return nil, err
			}
		}

		return []*domain.Event{domain.NewStageEvent(caller, mkt.Stage)}, nil
	})
}

// WithdrawFees transfers the collateral collected by the market to the owner
// and returns the withdrawn amount.
func (s *Service) WithdrawFees(
	ctx context.Context, caller common.Address,
) (*big.Int, error) {
	var amount *big.Int
	if err := s.execute(ctx, func(
		ctx context.Context, mkt *domain.Market,
	) ([]*domain.Event, error) {
		if err := mustBeOwner(mkt, caller); err != nil {
			return nil, err
		}

		balance, err := s.collateral.BalanceOf(ctx, mkt.Address)
		if err != nil {
			return nil, err
		}
		if balance.Sign() > 0 {
			if err := s.collateral.Transfer(
				ctx, mkt.Address, mkt.Owner, balance,
			); err != nil {
				return nil, err
			}
		}

		amount = balance
		return []*domain.Event{domain.NewFeesWithdrawnEvent(caller, balance)}, nil
	}); err != nil {
		return nil, err
	}
	return amount, nil
}

// TransferOwnership hands the market over to newOwner.
func (s *Service) TransferOwnership(
	ctx context.Context, caller, newOwner common.Address,
) error {
	return s.execute(ctx, func(
		_ context.Context, mkt *domain.Market,
	) ([]*domain.Event, error) {
		if err := mustBeOwner(mkt, caller); err != nil {
			return nil, err
		}
		if err := mkt.TransferOwnership(newOwner); err != nil {
			return nil, err
		}
		return []*domain.Event{
			domain.NewOwnershipTransferredEvent(caller, newOwner),
		}, nil
	})
}

// ListEvents returns a page of the audit log, optionally filtered by type.
func (s *Service) ListEvents(
	ctx context.Context, eventType *domain.EventType, page domain.Page,
) ([]domain.Event, error) {
	if isInFlight(ctx) {
		return nil, ErrReentrantCall
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	repo := s.repoManager.EventRepository()
	if eventType == nil {
		return repo.ListEvents(ctx, page)
	}
	return repo.ListEventsByType(ctx, *eventType, page)
}

func mustBeOwner(mkt *domain.Market, caller common.Address) error {
	if !mkt.IsOwner(caller) {
		return domain.ErrNotOwner
	}
	return nil
}
