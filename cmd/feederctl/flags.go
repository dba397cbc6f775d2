package main

import (
	"time"

	"github.com/urfave/cli"
)

var (
	serverURL   string
	bearer      string
	configPath  string
	historySize int
	donorName   string
	platform    string
	currency    string
	note        string
	subject     string
	tokenTTL    time.Duration
	overwrite   bool

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "server, s",
			Usage:       "base URL of the feeder API",
			Value:       "http://localhost:8080",
			EnvVar:      "FEEDER_URL",
			Destination: &serverURL,
		},
		cli.StringFlag{
			Name:        "token, t",
			Usage:       "operator bearer token",
			EnvVar:      "FEEDER_TOKEN",
			Destination: &bearer,
		},
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "configuration file",
			Value:       "config.yaml",
			EnvVar:      "CONFIG_PATH",
			Destination: &configPath,
		},
	}

	historyFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "number of donations to show",
			Value:       20,
			Destination: &historySize,
		},
	}

	donateFlags = []cli.Flag{
		cli.StringFlag{Name: "name", Value: "feederctl", Usage: "donor name", Destination: &donorName},
		cli.StringFlag{Name: "platform", Value: "Test", Usage: "donation platform", Destination: &platform},
		cli.StringFlag{Name: "currency", Value: "EUR", Usage: "ISO currency code", Destination: &currency},
		cli.StringFlag{Name: "message, m", Usage: "donor message", Destination: &note},
	}

	tokenFlags = []cli.Flag{
		cli.StringFlag{Name: "subject", Value: "operator", Usage: "token subject", Destination: &subject},
		cli.DurationFlag{Name: "ttl", Value: 30 * 24 * time.Hour, Usage: "token lifetime", Destination: &tokenTTL},
	}

	configInitFlags = []cli.Flag{
		cli.BoolFlag{Name: "force, f", Usage: "overwrite an existing file", Destination: &overwrite},
	}
)
