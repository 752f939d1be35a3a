package main

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	httpinterface "github.com/tdex-network/ctf-amm/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var pause = cli.Command{
	Name:   "pause",
	Usage:  "pause the market, trades are rejected until resumed",
	Action: pauseAction,
}

var resume = cli.Command{
	Name:   "resume",
	Usage:  "resume a paused market",
	Action: resumeAction,
}

var closemarket = cli.Command{
	Name:   "close",
	Usage:  "close the market for good, funding is returned to the owner",
	Action: closeAction,
}

var fee = cli.Command{
	Name:      "fee",
	Usage:     "update the fee rate of the market, scaled by 1e18",
	ArgsUsage: "<fee>",
	Action:    feeAction,
}

var funding = cli.Command{
	Name:      "funding",
	Usage:     "add, or remove with a negative delta, funding of a paused market",
	ArgsUsage: "<delta>",
	Action:    fundingAction,
}

var withdraw = cli.Command{
	Name:   "withdraw",
	Usage:  "withdraw the collected fees to the owner",
	Action: withdrawAction,
}

var transferownership = cli.Command{
	Name:      "transfer-ownership",
	Usage:     "transfer the ownership of the market",
	ArgsUsage: "<address>",
	Action:    transferOwnershipAction,
}

func pauseAction(ctx *cli.Context) error {
	return stageAction(ctx, "/v1/operator/pause", "market is paused")
}

func resumeAction(ctx *cli.Context) error {
	return stageAction(ctx, "/v1/operator/resume", "market is running")
}

func closeAction(ctx *cli.Context) error {
	return stageAction(ctx, "/v1/operator/close", "market is closed")
}

func stageAction(ctx *cli.Context, path, msg string) error {
	c, err := getClient()
	if err != nil {
		return err
	}
	if err := c.operatorCall(ctx.Context, http.MethodPost, path, nil, nil); err != nil {
		return err
	}

	fmt.Println(msg)
	return nil
}

func feeAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errors.New("missing fee")
	}
	newFee := ctx.Args().First()
	if !isBigUint(newFee) {
		return errors.Errorf("invalid fee %q", newFee)
	}
	c, err := getClient()
	if err != nil {
		return err
	}

	req := httpinterface.FeeRequest{Fee: newFee}
	if err := c.operatorCall(
		ctx.Context, http.MethodPost, "/v1/operator/fee", req, nil,
	); err != nil {
		return err
	}

	fmt.Printf("market fee updated to %s\n", newFee)
	return nil
}

func fundingAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errors.New("missing delta")
	}
	delta := ctx.Args().First()
	if _, ok := new(big.Int).SetString(delta, 10); !ok {
		return errors.Errorf("invalid delta %q", delta)
	}
	c, err := getClient()
	if err != nil {
		return err
	}

	req := httpinterface.FundingRequest{Delta: delta}
	if err := c.operatorCall(
		ctx.Context, http.MethodPost, "/v1/operator/funding", req, nil,
	); err != nil {
		return err
	}

	fmt.Printf("market funding changed by %s\n", delta)
	return nil
}

func withdrawAction(ctx *cli.Context) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	reply := &httpinterface.WithdrawReply{}
	if err := c.operatorCall(
		ctx.Context, http.MethodPost, "/v1/operator/withdraw", nil, reply,
	); err != nil {
		return err
	}

	fmt.Printf("withdrawn %s collateral\n", reply.Amount)
	return nil
}

func transferOwnershipAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errors.New("missing new owner address")
	}
	newOwner := ctx.Args().First()
	if !common.IsHexAddress(newOwner) {
		return errors.Errorf("invalid address %q", newOwner)
	}
	c, err := getClient()
	if err != nil {
		return err
	}

	req := httpinterface.OwnershipRequest{NewOwner: newOwner}
	if err := c.operatorCall(
		ctx.Context, http.MethodPost, "/v1/operator/ownership", req, nil,
	); err != nil {
		return err
	}

	fmt.Printf("ownership transferred to %s\n", newOwner)
	fmt.Println("remember to update operator_address with 'config set'")
	return nil
}

func isBigUint(s string) bool {
	n, ok := new(big.Int).SetString(s, 10)
	return ok && n.Sign() >= 0
}
