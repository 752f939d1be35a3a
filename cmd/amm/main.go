package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var (
	ammDataDir = btcutil.AppDataDir("amm", false)
	statePath  = filepath.Join(ammDataDir, "state.json")
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "amm CLI"
	app.Usage = "Command line interface for ammd operators and traders"
	app.Commands = append(
		app.Commands,
		&config,
		&keygen,
		&info,
		&events,
		&calcfee,
		&preview,
		&trade,
		&faucet,
		&approve,
		&balances,
		&pause,
		&resume,
		&closemarket,
		&fee,
		&funding,
		&withdraw,
		&transferownership,
		&webhook,
	)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("invalid config state: %w", err)
	}

	return data, nil
}

func setState(data map[string]string) error {
	if _, err := os.Stat(ammDataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(ammDataDir, os.ModeDir|0755); err != nil {
			return err
		}
	}

	currentData, err := getState()
	if err != nil {
		currentData = map[string]string{}
	}

	jsonString, err := json.Marshal(merge(currentData, data))
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0600); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

func printJSON(resp interface{}) {
	buf, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}
	fmt.Println(string(buf))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[amm] %v\n", err)
	os.Exit(1)
}

func appendRow(table *tablewriter.Table, row []string) error {
	cells := make([]interface{}, 0, len(row))
	for _, cell := range row {
		cells = append(cells, cell)
	}
	return table.Append(cells...)
}
