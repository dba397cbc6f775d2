package main

import (
	"context"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/Miquel-TA/cat-feeder/internal/infra"
	"github.com/Miquel-TA/cat-feeder/internal/middleware"
	"github.com/Miquel-TA/cat-feeder/internal/sleepwindow"
	"github.com/Miquel-TA/cat-feeder/internal/sources"
)

var appFs afero.Fs = afero.NewOsFs()

const requestTimeout = 15 * time.Second

func client() *apiClient { return newClient(serverURL, bearer) }

func history(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	items, err := client().History(ctx, historySize)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(c.App.Writer, "feederctl: no donations yet")
		return nil
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tDONOR\tPLATFORM\tAMOUNT\tTIER\tSTATUS\tMOTOR")
	for _, it := range items {
		motor := "-"
		if it.Actuated {
			motor = "fed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(it.CreatedAt), it.Username, it.Platform, it.DisplayAmount, it.Tier, it.Status, motor)
	}
	return tw.Flush()
}

func sleepStatus(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	state, err := client().Sleep(ctx)
	if err != nil {
		return err
	}
	printSleep(c, state)
	return nil
}

func sleepSet(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	override, err := sleepwindow.ParseOverride(c.Args().First())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	state, err := client().SetOverride(ctx, override.Sleeping())
	if err != nil {
		return err
	}
	printSleep(c, state)
	return nil
}

func printSleep(c *cli.Context, s sleepView) {
	mode := "awake"
	if s.Sleeping {
		mode = "asleep"
	}
	override := "schedule"
	if s.Override != nil {
		override = "manual"
	}
	fmt.Fprintf(c.App.Writer, "feeder is %s (%s), next change %s (%s)\n",
		mode, override, humanize.Time(s.NextTransition), s.NextTransition.Local().Format(time.RFC1123))
}

func queueStatus(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	q, err := client().Queue(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "pending %d, dispatched %d, failed %d, retried %d, dropped %d\n",
		q.Stats.Pending, q.Stats.Dispatched, q.Stats.Failed, q.Stats.Retried, q.Stats.Dropped)
	for _, p := range q.Pending {
		fmt.Fprintf(c.App.Writer, "  %s  %-20s %-10s %s (attempt %d)\n",
			p.DonationID, p.Username, p.Tier, humanize.Time(p.ExecuteAt), p.Attempt)
	}
	return nil
}

func donate(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	amount := c.Args().First()
	if _, err := sources.ParseAmount(amount); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	id, err := client().Donate(ctx, map[string]string{
		"username": donorName,
		"platform": platform,
		"amount":   amount,
		"currency": currency,
		"message":  note,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "donation %s queued\n", id)
	return nil
}

func token(c *cli.Context) error {
	cfg, err := infra.LoadConfigFS(appFs, configPath)
	if err != nil {
		return err
	}
	signed, err := middleware.SignOperatorToken(cfg.OperatorJWTSecret, subject, tokenTTL, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, signed)
	return nil
}

func configInit(c *cli.Context) error {
	exists, err := afero.Exists(appFs, configPath)
	if err != nil {
		return err
	}
	if exists && !overwrite {
		return fmt.Errorf("%s already exists, use --force to overwrite", configPath)
	}
	raw, err := infra.DefaultConfig().YAML()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := appFs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := afero.WriteFile(appFs, configPath, raw, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", configPath)
	return nil
}
