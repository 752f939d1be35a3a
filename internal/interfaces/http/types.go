package httpinterface

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tdex-network/ctf-amm/internal/core/application"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
)

// Amounts are encoded as base 10 strings everywhere in the API.

type TradeRequest struct {
	OutcomeTokenAmounts []string `json:"outcome_token_amounts"`
	CollateralLimit     string   `json:"collateral_limit,omitempty"`
}

type TradeReply struct {
	NetCost string `json:"net_cost"`
}

type PreviewRequest struct {
	OutcomeTokenAmounts []string `json:"outcome_token_amounts"`
}

type QuoteReply struct {
	OutcomeTokenNetCost string `json:"outcome_token_net_cost"`
	Fees                string `json:"fees"`
	NetCost             string `json:"net_cost"`
}

type FeeReply struct {
	Fee string `json:"fee"`
}

type MarketReply struct {
	Address           string   `json:"address"`
	Owner             string   `json:"owner"`
	CollateralToken   string   `json:"collateral_token"`
	ConditionID       string   `json:"condition_id"`
	OutcomeSlotCount  int      `json:"outcome_slot_count"`
	Stage             string   `json:"stage"`
	Fee               string   `json:"fee"`
	Funding           string   `json:"funding"`
	Strategy          string   `json:"strategy"`
	StrategyInfo      string   `json:"strategy_info,omitempty"`
	PositionIDs       []string `json:"position_ids"`
	Reserves          []string `json:"reserves"`
	CollateralBalance string   `json:"collateral_balance"`
	MarginalPrices    []string `json:"marginal_prices,omitempty"`
}

type ApproveRequest struct {
	Amount string `json:"amount"`
}

type ApproveAllRequest struct {
	Approved bool `json:"approved"`
}

type FaucetRequest struct {
	Amount string `json:"amount"`
}

type BalancesReply struct {
	Collateral    string   `json:"collateral"`
	Allowance     string   `json:"allowance"`
	Approved      bool     `json:"approved"`
	OutcomeTokens []string `json:"outcome_tokens"`
}

type FeeRequest struct {
	Fee string `json:"fee"`
}

type FundingRequest struct {
	Delta string `json:"delta"`
}

type WithdrawReply struct {
	Amount string `json:"amount"`
}

type OwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type WebhookRequest struct {
	Topic    string `json:"topic"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret,omitempty"`
}

type WebhookReply struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	Endpoint string `json:"endpoint"`
	Secured  bool   `json:"secured"`
}

type EventsReply struct {
	Events []application.EventMessage `json:"events"`
}

func parseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base 10 integer", ErrInvalidRequest, s)
	}
	return n, nil
}

// parseOptionalAmount returns zero for an empty string.
func parseOptionalAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	return parseAmount(s)
}

func parseAmounts(list []string) ([]*big.Int, error) {
	amounts := make([]*big.Int, 0, len(list))
	for _, s := range list {
		n, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, n)
	}
	return amounts, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf(
			"%w: %q is not a valid address", ErrInvalidRequest, s,
		)
	}
	return common.HexToAddress(s), nil
}

func toStrings(list []*big.Int) []string {
	res := make([]string, 0, len(list))
	for _, n := range list {
		res = append(res, n.String())
	}
	return res
}

func newMarketReply(info *application.MarketInfo, prices []*big.Int) MarketReply {
	reply := MarketReply{
		Address:           info.Address.Hex(),
		Owner:             info.Owner.Hex(),
		CollateralToken:   info.CollateralToken.Hex(),
		ConditionID:       info.ConditionID.Hex(),
		OutcomeSlotCount:  info.OutcomeSlotCount,
		Stage:             info.Stage.String(),
		Fee:               info.Fee.String(),
		Funding:           info.Funding.String(),
		Strategy:          info.Strategy,
		StrategyInfo:      info.StrategyInfo,
		PositionIDs:       toStrings(info.PositionIDs),
		Reserves:          toStrings(info.Reserves),
		CollateralBalance: info.CollateralBalance.String(),
	}
	if len(prices) > 0 {
		reply.MarginalPrices = toStrings(prices)
	}
	return reply
}

func newWebhookReply(sub ports.Subscription) WebhookReply {
	return WebhookReply{
		ID:       sub.Id(),
		Topic:    sub.Topic(),
		Endpoint: sub.NotifyAt(),
		Secured:  sub.IsSecured(),
	}
}
