package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"
)

const (
	rpcServerKey       = "rpcserver"
	operatorSecretKey  = "operator_secret"
	operatorAddressKey = "operator_address"
	privateKeyKey      = "private_key"
)

var (
	rpcFlag = cli.StringFlag{
		Name:  rpcServerKey,
		Usage: "ammd daemon address scheme://host:port",
		Value: "http://localhost:9945",
	}

	operatorSecretFlag = cli.StringFlag{
		Name:  operatorSecretKey,
		Usage: "the operator secret of the daemon, to authenticate operator commands",
	}

	operatorAddressFlag = cli.StringFlag{
		Name:  operatorAddressKey,
		Usage: "the address operator commands are sent on behalf of, usually the market owner",
	}

	privateKeyFlag = cli.StringFlag{
		Name:  privateKeyKey,
		Usage: "hex encoded private key used to sign trader commands",
	}
)

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the amm CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set a <key> <value> in the local state",
			Action: configSetAction,
		},
		{
			Name:   "init",
			Usage:  "initialize the local state with flags",
			Action: configInitAction,
			Flags: []cli.Flag{
				&rpcFlag,
				&operatorSecretFlag,
				&operatorAddressFlag,
				&privateKeyFlag,
			},
		},
	},
}

func configAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := state[key]
		if key == operatorSecretKey || key == privateKeyKey {
			value = "********"
		}
		fmt.Println(key + ": " + value)
	}

	return nil
}

func configInitAction(c *cli.Context) error {
	return setState(map[string]string{
		rpcServerKey:       c.String(rpcServerKey),
		operatorSecretKey:  c.String(operatorSecretKey),
		operatorAddressKey: c.String(operatorAddressKey),
		privateKeyKey:      c.String(privateKeyKey),
	})
}

func configSetAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.New("key and value are missing")
	}

	key := c.Args().Get(0)
	value := c.Args().Get(1)

	if err := setState(map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Printf("%s has been set\n", key)

	return nil
}
