package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"
)

var keygen = cli.Command{
	Name:  "keygen",
	Usage: "generate a new trader key",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "save",
			Usage: "store the key in the local state, replacing the current one",
		},
	},
	Action: keygenAction,
}

func keygenAction(ctx *cli.Context) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	address := crypto.PubkeyToAddress(key.PublicKey)

	if ctx.Bool("save") {
		if err := setState(map[string]string{
			privateKeyKey: hexutil.Encode(crypto.FromECDSA(key))[2:],
		}); err != nil {
			return err
		}
		fmt.Printf("address: %s\n", address.Hex())
		fmt.Println("key saved in local state")
		return nil
	}

	printJSON(map[string]string{
		"address":     address.Hex(),
		"private_key": hexutil.Encode(crypto.FromECDSA(key))[2:],
	})
	return nil
}
