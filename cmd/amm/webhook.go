package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	httpinterface "github.com/tdex-network/ctf-amm/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var webhook = cli.Command{
	Name:  "webhook",
	Usage: "manage the webhooks notified on market events",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "add a webhook for a topic of events",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name: "topic",
					Usage: "the topic of the events: trade, funding, fee, stage, " +
						"withdrawal, ownership or * for all",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "endpoint",
					Usage:    "the url the events are posted to",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "secret",
					Usage: "the secret used to sign the posted events",
				},
			},
			Action: addWebhookAction,
		},
		{
			Name:      "remove",
			Usage:     "remove a webhook",
			ArgsUsage: "<id>",
			Action:    removeWebhookAction,
		},
		{
			Name:  "list",
			Usage: "list the webhooks",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "topic",
					Usage: "list only the webhooks of the topic",
				},
			},
			Action: listWebhooksAction,
		},
	},
}

func addWebhookAction(ctx *cli.Context) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	req := httpinterface.WebhookRequest{
		Topic:    ctx.String("topic"),
		Endpoint: ctx.String("endpoint"),
		Secret:   ctx.String("secret"),
	}
	reply := &httpinterface.WebhookReply{}
	if err := c.operatorCall(
		ctx.Context, http.MethodPost, "/v1/operator/webhooks", req, reply,
	); err != nil {
		return err
	}

	printJSON(reply)
	return nil
}

func removeWebhookAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errors.New("missing webhook id")
	}
	c, err := getClient()
	if err != nil {
		return err
	}

	id := ctx.Args().First()
	if err := c.operatorCall(
		ctx.Context, http.MethodDelete, "/v1/operator/webhooks/"+id, nil, nil,
	); err != nil {
		return err
	}

	fmt.Printf("webhook %s removed\n", id)
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	path := "/v1/operator/webhooks"
	if topic := ctx.String("topic"); topic != "" {
		path += "?topic=" + topic
	}
	reply := &struct {
		Webhooks []httpinterface.WebhookReply `json:"webhooks"`
	}{}
	if err := c.operatorCall(ctx.Context, http.MethodGet, path, nil, reply); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Topic", "Endpoint", "Secured")
	for _, hook := range reply.Webhooks {
		row := []string{
			hook.ID, hook.Topic, hook.Endpoint, strconv.FormatBool(hook.Secured),
		}
		if err := appendRow(table, row); err != nil {
			return err
		}
	}
	return table.Render()
}
