package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	httpinterface "github.com/tdex-network/ctf-amm/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var info = cli.Command{
	Name:   "info",
	Usage:  "get info about the market",
	Action: infoAction,
}

var events = cli.Command{
	Name:  "events",
	Usage: "list the events of the market",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "type",
			Usage: "filter events by type, eg. trade, fee_changed",
		},
		&cli.IntFlag{
			Name:  "page",
			Usage: "the number of the page to be listed",
		},
		&cli.IntFlag{
			Name:  "page_size",
			Usage: "the size of the page",
			Value: 10,
		},
	},
	Action: eventsAction,
}

var calcfee = cli.Command{
	Name:      "calcfee",
	Usage:     "calculate the fee charged on a trade with the given net cost",
	ArgsUsage: "<cost>",
	Action:    calcFeeAction,
}

func infoAction(ctx *cli.Context) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	reply := &httpinterface.MarketReply{}
	if err := c.get(ctx.Context, "/v1/market", nil, reply); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	rows := [][]string{
		{"address", reply.Address},
		{"owner", reply.Owner},
		{"collateral", reply.CollateralToken},
		{"condition", reply.ConditionID},
		{"outcomes", strconv.Itoa(reply.OutcomeSlotCount)},
		{"stage", reply.Stage},
		{"strategy", reply.Strategy},
		{"strategy info", reply.StrategyInfo},
		{"fee", reply.Fee},
		{"funding", reply.Funding},
		{"collateral balance", reply.CollateralBalance},
	}
	for _, row := range rows {
		if err := appendRow(table, row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	outcomes := tablewriter.NewWriter(os.Stdout)
	outcomes.Header("Outcome", "Position", "Reserve", "Price")
	for i, positionID := range reply.PositionIDs {
		price := "-"
		if i < len(reply.MarginalPrices) {
			price = reply.MarginalPrices[i]
		}
		reserve := ""
		if i < len(reply.Reserves) {
			reserve = reply.Reserves[i]
		}
		row := []string{strconv.Itoa(i), positionID, reserve, price}
		if err := appendRow(outcomes, row); err != nil {
			return err
		}
	}
	return outcomes.Render()
}

func eventsAction(ctx *cli.Context) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	query := map[string]string{
		"page": strconv.Itoa(ctx.Int("page")),
		"size": strconv.Itoa(ctx.Int("page_size")),
	}
	if t := ctx.String("type"); t != "" {
		query["type"] = t
	}

	reply := &httpinterface.EventsReply{}
	if err := c.get(ctx.Context, "/v1/events", query, reply); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Seq", "Type", "Caller", "Details")
	for _, e := range reply.Events {
		details := []string{}
		if len(e.OutcomeTokenAmounts) > 0 {
			details = append(details, "amounts="+strings.Join(e.OutcomeTokenAmounts, ","))
		}
		if e.OutcomeTokenNetCost != "" {
			details = append(details, "cost="+e.OutcomeTokenNetCost)
		}
		if e.MarketFees != "" {
			details = append(details, "fees="+e.MarketFees)
		}
		if e.Amount != "" {
			details = append(details, "amount="+e.Amount)
		}
		if e.Fee != "" {
			details = append(details, "fee="+e.Fee)
		}
		if e.NewOwner != "" {
			details = append(details, "new_owner="+e.NewOwner)
		}
		row := []string{
			strconv.FormatUint(e.Sequence, 10), e.Type, e.Caller,
			strings.Join(details, " "),
		}
		if err := appendRow(table, row); err != nil {
			return err
		}
	}
	return table.Render()
}

func calcFeeAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errors.New("missing cost")
	}
	c, err := getClient()
	if err != nil {
		return err
	}

	reply := &httpinterface.FeeReply{}
	query := map[string]string{"cost": ctx.Args().First()}
	if err := c.get(ctx.Context, "/v1/market/fee", query, reply); err != nil {
		return err
	}

	fmt.Println(reply.Fee)
	return nil
}
