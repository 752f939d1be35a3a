package httpinterface

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/application"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
)

var webhookTopics = []string{
	ports.AnyTopic,
	ports.TopicTrade,
	ports.TopicFunding,
	ports.TopicFee,
	ports.TopicStage,
	ports.TopicWithdrawal,
	ports.TopicOwnership,
}

type handler struct {
	marketSvc application.MarketMakerService
	ledgerSvc application.LedgerService
	pubsubSvc ports.PubSub
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, ErrInvalidRequest)
		return false
	}
	return true
}

/* trader */

func (h handler) getMarket(c *gin.Context) {
	ctx := c.Request.Context()
	info, err := h.marketSvc.GetMarket(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}

	prices, err := h.marketSvc.MarginalPrices(ctx)
	if err != nil {
		if !errors.Is(err, application.ErrMarginalPricesNotSupported) {
			log.WithError(err).Debug("failed to compute marginal prices")
		}
		prices = nil
	}
	c.JSON(http.StatusOK, newMarketReply(info, prices))
}

func (h handler) calcMarketFee(c *gin.Context) {
	cost, err := parseAmount(c.Query("cost"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	fee, err := h.marketSvc.CalcMarketFee(c.Request.Context(), cost)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, FeeReply{fee.String()})
}

func (h handler) previewTrade(c *gin.Context) {
	req := PreviewRequest{}
	if !bind(c, &req) {
		return
	}
	amounts, err := parseAmounts(req.OutcomeTokenAmounts)
	if err != nil {
		abortWithError(c, err)
		return
	}

	quote, err := h.marketSvc.PreviewTrade(c.Request.Context(), amounts)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, QuoteReply{
		OutcomeTokenNetCost: quote.OutcomeTokenNetCost.String(),
		Fees:                quote.Fees.String(),
		NetCost:             quote.NetCost.String(),
	})
}

func (h handler) trade(c *gin.Context) {
	req := TradeRequest{}
	if !bind(c, &req) {
		return
	}
	amounts, err := parseAmounts(req.OutcomeTokenAmounts)
	if err != nil {
		abortWithError(c, err)
		return
	}
	limit, err := parseOptionalAmount(req.CollateralLimit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	netCost, err := h.marketSvc.Trade(
		c.Request.Context(), callerFromContext(c), amounts, limit,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, TradeReply{netCost.String()})
}

func (h handler) listEvents(c *gin.Context) {
	var eventType *domain.EventType
	if name := c.Query("type"); name != "" {
		t, ok := domain.EventTypeFromString(name)
		if !ok {
			abortWithError(c, ErrInvalidRequest)
			return
		}
		eventType = &t
	}
	pageNumber, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("size"))

	events, err := h.marketSvc.ListEvents(
		c.Request.Context(), eventType, domain.NewPage(pageNumber, pageSize),
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	msgs := make([]application.EventMessage, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, application.NewEventMessage(e))
	}
	c.JSON(http.StatusOK, EventsReply{msgs})
}

/* ledger */

func (h handler) approveCollateral(c *gin.Context) {
	req := ApproveRequest{}
	if !bind(c, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := h.ledgerSvc.ApproveCollateral(
		c.Request.Context(), callerFromContext(c), amount,
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h handler) approveOutcomeTokens(c *gin.Context) {
	req := ApproveAllRequest{}
	if !bind(c, &req) {
		return
	}

	if err := h.ledgerSvc.ApproveOutcomeTokens(
		c.Request.Context(), callerFromContext(c), req.Approved,
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h handler) faucet(c *gin.Context) {
	req := FaucetRequest{}
	if !bind(c, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := h.ledgerSvc.Faucet(
		c.Request.Context(), callerFromContext(c), amount,
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h handler) getBalances(c *gin.Context) {
	holder, err := parseAddress(c.Param("address"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	balances, err := h.ledgerSvc.GetBalances(c.Request.Context(), holder)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalancesReply{
		Collateral:    balances.Collateral.String(),
		Allowance:     balances.Allowance.String(),
		Approved:      balances.Approved,
		OutcomeTokens: toStrings(balances.OutcomeTokens),
	})
}

/* operator */

func (h handler) pause(c *gin.Context) {
	if err := h.marketSvc.Pause(
		c.Request.Context(), callerFromContext(c),
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h handler) resume(c *gin.Context) {
	if err := h.marketSvc.Resume(
		c.Request.Context(), callerFromContext(c),
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h handler) close(c *gin.Context) {
	if err := h.marketSvc.Close(
		c.Request.Context(), callerFromContext(c),
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h handler) changeFee(c *gin.Context) {
	req := FeeRequest{}
	if !bind(c, &req) {
		return
	}
	fee, err := parseAmount(req.Fee)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := h.marketSvc.ChangeFee(
		c.Request.Context(), callerFromContext(c), fee,
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h handler) changeFunding(c *gin.Context) {
	req := FundingRequest{}
	if !bind(c, &req) {
		return
	}
	delta, err := parseAmount(req.Delta)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := h.marketSvc.ChangeFunding(
		c.Request.Context(), callerFromContext(c), delta,
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h handler) withdrawFees(c *gin.Context) {
	amount, err := h.marketSvc.WithdrawFees(
		c.Request.Context(), callerFromContext(c),
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, WithdrawReply{amount.String()})
}

func (h handler) transferOwnership(c *gin.Context) {
	req := OwnershipRequest{}
	if !bind(c, &req) {
		return
	}
	newOwner, err := parseAddress(req.NewOwner)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := h.marketSvc.TransferOwnership(
		c.Request.Context(), callerFromContext(c), newOwner,
	); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

/* webhooks */

func (h handler) addWebhook(c *gin.Context) {
	req := WebhookRequest{}
	if !bind(c, &req) {
		return
	}

	id, err := h.pubsubSvc.Subscribe(req.Topic, req.Endpoint, req.Secret)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, WebhookReply{
		ID:       id,
		Topic:    req.Topic,
		Endpoint: req.Endpoint,
		Secured:  len(req.Secret) > 0,
	})
}

func (h handler) removeWebhook(c *gin.Context) {
	if err := h.pubsubSvc.Unsubscribe("", c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// listWebhooks returns the webhooks of the given topic, or all of them.
func (h handler) listWebhooks(c *gin.Context) {
	topics := webhookTopics
	if topic := c.Query("topic"); topic != "" {
		topics = []string{topic}
	}

	seen := make(map[string]bool)
	hooks := make([]WebhookReply, 0)
	for _, topic := range topics {
		for _, sub := range h.pubsubSvc.ListSubscriptionsForTopic(topic) {
			if seen[sub.Id()] {
				continue
			}
			seen[sub.Id()] = true
			hooks = append(hooks, newWebhookReply(sub))
		}
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].ID < hooks[j].ID })

	c.JSON(http.StatusOK, gin.H{"webhooks": hooks})
}
