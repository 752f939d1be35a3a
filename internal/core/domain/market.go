package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
	"github.com/tdex-network/ctf-amm/pkg/partition"
)

// Stage is the lifecycle stage of a market.
type Stage int

const (
	// StageRunning means the market is open for trading.
	StageRunning Stage = iota
	// StagePaused means trading is suspended and the owner can change the
	// market parameters.
	StagePaused
	// StageClosed is terminal.
	StageClosed
)

func (s Stage) String() string {
	switch s {
	case StageRunning:
		return "running"
	case StagePaused:
		return "paused"
	case StageClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Market defines the market maker entity, holding the state of the unique
// market of this daemon.
type Market struct {
	// Address the market holds balances at on both ledgers.
	Address common.Address
	Owner   common.Address
	// CollateralToken is the address of the collateral ledger token.
	CollateralToken  common.Address
	ConditionID      common.Hash
	OutcomeSlotCount int
	Stage            Stage
	// Fee is a fixed-point rate scaled by 1e18.
	Fee *big.Int
	// Funding is the amount of collateral currently backing the basket of
	// outcome tokens.
	Funding *big.Int
	// Strategy is the name of the pricing strategy.
	Strategy string
}

// NewMarket returns a new paused and unfunded market.
func NewMarket(
	address, owner, collateralToken common.Address, conditionID common.Hash,
	outcomeSlotCount int, fee *big.Int, strategy string,
) (*Market, error) {
	if owner == (common.Address{}) {
		return nil, ErrInvalidOwner
	}
	if collateralToken == (common.Address{}) {
		return nil, ErrInvalidCollateral
	}
	if conditionID == (common.Hash{}) {
		return nil, ErrInvalidConditionID
	}
	if outcomeSlotCount < 2 || outcomeSlotCount > partition.MaxOutcomeSlots {
		return nil, ErrInvalidOutcomeSlotCount
	}
	if !mathutil.IsValidFee(fee) {
		return nil, ErrInvalidFee
	}

	return &Market{
		Address:          address,
		Owner:            owner,
		CollateralToken:  collateralToken,
		ConditionID:      conditionID,
		OutcomeSlotCount: outcomeSlotCount,
		Stage:            StagePaused,
		Fee:              new(big.Int).Set(fee),
		Funding:          big.NewInt(0),
		Strategy:         strategy,
	}, nil
}

// IsRunning returns true if the market is open for trading.
func (m *Market) IsRunning() bool {
	return m.Stage == StageRunning
}

// IsPaused ...
func (m *Market) IsPaused() bool {
	return m.Stage == StagePaused
}

// IsClosed ...
func (m *Market) IsClosed() bool {
	return m.Stage == StageClosed
}

// IsOwner returns whether the given address owns the market.
func (m *Market) IsOwner(addr common.Address) bool {
	return m.Owner == addr
}

// CanTrade returns an error if the market does not accept trades.
func (m *Market) CanTrade() error {
	if m.IsClosed() {
		return ErrMarketClosed
	}
	if !m.IsRunning() {
		return ErrMarketNotRunning
	}
	return nil
}

// Pause suspends trading.
func (m *Market) Pause() error {
	if err := m.CanTrade(); err != nil {
		return err
	}
	m.Stage = StagePaused
	return nil
}

// Resume opens the market for trading again.
func (m *Market) Resume() error {
	if err := m.mustBePaused(); err != nil {
		return err
	}
	m.Stage = StageRunning
	return nil
}

// Close makes the market closed forever.
func (m *Market) Close() error {
	if m.IsClosed() {
		return ErrMarketClosed
	}
	m.Stage = StageClosed
	return nil
}

// ChangeFee updates the fee rate. The market must be paused.
func (m *Market) ChangeFee(fee *big.Int) error {
	if err := m.mustBePaused(); err != nil {
		return err
	}
	if !mathutil.IsValidFee(fee) {
		return ErrInvalidFee
	}
	m.Fee = new(big.Int).Set(fee)
	return nil
}

// ChangeFunding adds the signed delta to the funding. The market must be
// paused and the resulting funding must fit an unsigned 256 bit integer.
func (m *Market) ChangeFunding(delta *big.Int) error {
	if err := m.mustBePaused(); err != nil {
		return err
	}
	if delta == nil || delta.Sign() == 0 {
		return ErrZeroFundingChange
	}

	funding := new(big.Int).Add(m.Funding, delta)
	if !mathutil.IsUint256(funding) {
		return ErrInvalidFunding
	}
	m.Funding = funding
	return nil
}

// TransferOwnership hands the market over to a new owner.
func (m *Market) TransferOwnership(newOwner common.Address) error {
	if m.IsClosed() {
		return ErrMarketClosed
	}
	if newOwner == (common.Address{}) {
		return ErrInvalidOwner
	}
	m.Owner = newOwner
	return nil
}

// Partition returns the singleton partition of the outcome slots.
func (m *Market) Partition() ([]*big.Int, error) {
	return partition.Generate(m.OutcomeSlotCount)
}

// PositionIDs returns the outcome token ids traded by the market, by slot.
func (m *Market) PositionIDs() ([]*big.Int, error) {
	return partition.AtomicPositionIDs(
		m.CollateralToken, m.ConditionID, m.OutcomeSlotCount,
	)
}

// ValidateOutcomeTokenAmounts checks there's one signed 256 bit amount per
// outcome slot.
func (m *Market) ValidateOutcomeTokenAmounts(amounts []*big.Int) error {
	if len(amounts) != m.OutcomeSlotCount {
		return ErrInvalidOutcomeTokenAmounts
	}
	for _, a := range amounts {
		if !mathutil.IsInt256(a) {
			return ErrInvalidOutcomeTokenAmounts
		}
	}
	return nil
}

// Clone returns a deep copy of the market.
func (m *Market) Clone() *Market {
	clone := *m
	if m.Fee != nil {
		clone.Fee = new(big.Int).Set(m.Fee)
	}
	if m.Funding != nil {
		clone.Funding = new(big.Int).Set(m.Funding)
	}
	return &clone
}

func (m *Market) mustBePaused() error {
	if m.IsClosed() {
		return ErrMarketClosed
	}
	if !m.IsPaused() {
		return ErrMarketNotPaused
	}
	return nil
}
