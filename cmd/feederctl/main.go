package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "feederctl: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "feederctl"
	app.HelpName = "feederctl"
	app.Usage = "operate a running cat feeder"
	app.UsageText = "feederctl [global options] <command> [arguments...]"
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:    "history",
			Aliases: []string{"h"},
			Usage:   "list recent donations",
			Action:  history,
			Flags:   historyFlags,
		},
		{
			Name:  "sleep",
			Usage: "inspect or override the sleep window",
			Subcommands: []cli.Command{
				{
					Name:   "status",
					Usage:  "show the current sleep state",
					Action: sleepStatus,
				},
				{
					Name:      "set",
					Usage:     "force the feeder awake or asleep, or return to the schedule",
					ArgsUsage: "awake|asleep|auto",
					Action:    sleepSet,
				},
			},
		},
		{
			Name:   "queue",
			Usage:  "show dispatch queue counters and pending alerts",
			Action: queueStatus,
		},
		{
			Name:      "donate",
			Usage:     "send a test donation",
			ArgsUsage: "<amount>",
			Action:    donate,
			Flags:     donateFlags,
		},
		{
			Name:   "token",
			Usage:  "mint an operator token from the configured secret",
			Action: token,
			Flags:  tokenFlags,
		},
		{
			Name:  "config",
			Usage: "manage the configuration file",
			Subcommands: []cli.Command{
				{
					Name:   "init",
					Usage:  "write the default configuration",
					Action: configInit,
					Flags:  configInitFlags,
				},
			},
		},
	}
	return app
}
