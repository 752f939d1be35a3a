package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	httpinterface "github.com/tdex-network/ctf-amm/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var faucet = cli.Command{
	Name:      "faucet",
	Usage:     "mint collateral to the configured account, if the faucet is enabled",
	ArgsUsage: "<amount>",
	Action:    faucetAction,
}

var approve = cli.Command{
	Name:  "approve",
	Usage: "approve the market to move collateral or outcome tokens",
	Subcommands: []*cli.Command{
		{
			Name:      "collateral",
			Usage:     "set the collateral allowance of the market",
			ArgsUsage: "<amount>",
			Action:    approveCollateralAction,
		},
		{
			Name:  "outcomes",
			Usage: "approve, or revoke, the market as operator of the outcome tokens",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "revoke",
					Usage: "revoke the approval",
				},
			},
			Action: approveOutcomesAction,
		},
	},
}

var balances = cli.Command{
	Name:      "balances",
	Usage:     "get the balances of an account, the configured one by default",
	ArgsUsage: "[address]",
	Action:    balancesAction,
}

func faucetAction(ctx *cli.Context) error {
	amount, err := amountArg(ctx)
	if err != nil {
		return err
	}
	c, err := getClient()
	if err != nil {
		return err
	}

	req := httpinterface.FaucetRequest{Amount: amount}
	if err := c.signed(
		ctx.Context, http.MethodPost, "/v1/ledger/faucet", req, nil,
	); err != nil {
		return err
	}

	fmt.Printf("minted %s collateral\n", amount)
	return nil
}

func approveCollateralAction(ctx *cli.Context) error {
	amount, err := amountArg(ctx)
	if err != nil {
		return err
	}
	c, err := getClient()
	if err != nil {
		return err
	}

	req := httpinterface.ApproveRequest{Amount: amount}
	if err := c.signed(
		ctx.Context, http.MethodPost, "/v1/ledger/approve", req, nil,
	); err != nil {
		return err
	}

	fmt.Printf("collateral allowance set to %s\n", amount)
	return nil
}

func approveOutcomesAction(ctx *cli.Context) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	approved := !ctx.Bool("revoke")
	req := httpinterface.ApproveAllRequest{Approved: approved}
	if err := c.signed(
		ctx.Context, http.MethodPost, "/v1/ledger/approve-all", req, nil,
	); err != nil {
		return err
	}

	if approved {
		fmt.Println("market approved as operator of outcome tokens")
	} else {
		fmt.Println("market approval revoked")
	}
	return nil
}

func balancesAction(ctx *cli.Context) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	var holder common.Address
	if ctx.NArg() > 0 {
		addr := ctx.Args().First()
		if !common.IsHexAddress(addr) {
			return errors.Errorf("invalid address %q", addr)
		}
		holder = common.HexToAddress(addr)
	} else {
		if holder, err = c.address(); err != nil {
			return err
		}
	}

	reply := &httpinterface.BalancesReply{}
	if err := c.get(
		ctx.Context, "/v1/ledger/balances/"+holder.Hex(), nil, reply,
	); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Asset", "Balance")
	rows := [][]string{
		{"collateral", reply.Collateral},
		{"allowance", reply.Allowance},
		{"approved", strconv.FormatBool(reply.Approved)},
	}
	for i, balance := range reply.OutcomeTokens {
		rows = append(rows, []string{fmt.Sprintf("outcome %d", i), balance})
	}
	for _, row := range rows {
		if err := appendRow(table, row); err != nil {
			return err
		}
	}
	return table.Render()
}

func amountArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() < 1 {
		return "", errors.New("missing amount")
	}
	amount := ctx.Args().First()
	if !isBigUint(amount) {
		return "", errors.Errorf("invalid amount %q", amount)
	}
	return amount, nil
}
