package main

import (
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	httpinterface "github.com/tdex-network/ctf-amm/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var amountsFlag = cli.StringFlag{
	Name: "amounts",
	Usage: "comma separated outcome token amounts, positive to buy and " +
		"negative to sell, eg. 100,-50",
	Required: true,
}

var preview = cli.Command{
	Name:   "preview",
	Usage:  "preview the cost of a trade",
	Flags:  []cli.Flag{&amountsFlag},
	Action: previewAction,
}

var trade = cli.Command{
	Name:  "trade",
	Usage: "buy or sell outcome tokens",
	Flags: []cli.Flag{
		&amountsFlag,
		&cli.StringFlag{
			Name: "limit",
			Usage: "the max collateral to pay when buying, or the negated min " +
				"collateral to receive when selling, 0 for no limit",
			Value: "0",
		},
	},
	Action: tradeAction,
}

func previewAction(ctx *cli.Context) error {
	amounts, err := parseAmountsFlag(ctx.String("amounts"))
	if err != nil {
		return err
	}
	c, err := getClient()
	if err != nil {
		return err
	}

	reply := &httpinterface.QuoteReply{}
	req := httpinterface.PreviewRequest{OutcomeTokenAmounts: amounts}
	if err := c.public(
		ctx.Context, http.MethodPost, "/v1/trade/preview", req, reply,
	); err != nil {
		return err
	}

	printJSON(reply)
	return nil
}

func tradeAction(ctx *cli.Context) error {
	amounts, err := parseAmountsFlag(ctx.String("amounts"))
	if err != nil {
		return err
	}
	limit := ctx.String("limit")
	if _, ok := new(big.Int).SetString(limit, 10); !ok {
		return errors.Errorf("invalid limit %q", limit)
	}
	c, err := getClient()
	if err != nil {
		return err
	}

	reply := &httpinterface.TradeReply{}
	req := httpinterface.TradeRequest{
		OutcomeTokenAmounts: amounts,
		CollateralLimit:     limit,
	}
	if err := c.signed(
		ctx.Context, http.MethodPost, "/v1/trade", req, reply,
	); err != nil {
		return err
	}

	fmt.Printf("trade completed, net cost %s\n", reply.NetCost)
	return nil
}

func parseAmountsFlag(s string) ([]string, error) {
	list := strings.Split(s, ",")
	amounts := make([]string, 0, len(list))
	for _, a := range list {
		a = strings.TrimSpace(a)
		if _, ok := new(big.Int).SetString(a, 10); !ok {
			return nil, errors.Errorf("invalid amount %q", a)
		}
		amounts = append(amounts, a)
	}
	return amounts, nil
}
