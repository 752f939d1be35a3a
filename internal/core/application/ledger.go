package application

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
)

// ApproveCollateral lets the market spend amount of owner's collateral.
func (s *Service) ApproveCollateral(
	ctx context.Context, owner common.Address, amount *big.Int,
) error {
	return s.run(ctx, func(ctx context.Context) ([]*domain.Event, error) {
		mkt, err := s.repoManager.MarketRepository().GetMarket(ctx)
		if err != nil {
			return nil, err
		}
		return nil, s.collateral.Approve(ctx, owner, mkt.Address, amount)
	})
}

// ApproveOutcomeTokens lets the market move owner's outcome tokens, or
// revokes the approval.
func (s *Service) ApproveOutcomeTokens(
	ctx context.Context, owner common.Address, approved bool,
) error {
	return s.run(ctx, func(ctx context.Context) ([]*domain.Event, error) {
		mkt, err := s.repoManager.MarketRepository().GetMarket(ctx)
		if err != nil {
			return nil, err
		}
		return nil, s.ctf.SetApprovalForAll(ctx, owner, mkt.Address, approved)
	})
}

// Faucet mints amount of collateral to the given address, if a minter is
// configured.
func (s *Service) Faucet(
	ctx context.Context, to common.Address, amount *big.Int,
) error {
	if s.minter == nil {
		return ErrFaucetDisabled
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidFaucetAmount
	}

	if err := s.run(ctx, func(ctx context.Context) ([]*domain.Event, error) {
		return nil, s.minter.Mint(ctx, to, amount)
	}); err != nil {
		return err
	}

	log.Debugf("minted %s collateral to %s", amount, to.Hex())
	return nil
}

// GetBalances returns the collateral and outcome token balances of holder,
// along with the approvals granted to the market.
func (s *Service) GetBalances(
	ctx context.Context, holder common.Address,
) (*Balances, error) {
	var balances *Balances
	if err := s.view(ctx, func(ctx context.Context, mkt *domain.Market) error {
		collateral, err := s.collateral.BalanceOf(ctx, holder)
		if err != nil {
			return err
		}
		allowance, err := s.collateral.Allowance(ctx, holder, mkt.Address)
		if err != nil {
			return err
		}
		approved, err := s.ctf.IsApprovedForAll(ctx, holder, mkt.Address)
		if err != nil {
			return err
		}

		ids, err := mkt.PositionIDs()
		if err != nil {
			return err
		}
		holders := make([]common.Address, len(ids))
		for i := range holders {
			holders[i] = holder
		}
		outcomeTokens, err := s.ctf.BalanceOfBatch(ctx, holders, ids)
		if err != nil {
			return err
		}

		balances = &Balances{
			Collateral:    collateral,
			Allowance:     allowance,
			Approved:      approved,
			OutcomeTokens: outcomeTokens,
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return balances, nil
}

// IsFaucetEnabled tells whether the faucet can mint collateral.
func (s *Service) IsFaucetEnabled() bool {
	return s.minter != nil
}
