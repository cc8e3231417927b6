package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"trendscout/orchestrator"
	"trendscout/types"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run one research query and print the report",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Usage: "Session id the run is filed under"},
			&cli.StringFlag{Name: "settings", Usage: "Stored business settings to apply"},
			&cli.StringFlag{Name: "category", Usage: "Product category, e.g. home"},
			&cli.StringFlag{Name: "language", Usage: "Language hint, e.g. fr"},
			&cli.StringFlag{Name: "business-domain", Usage: "Own domain, excluded from results"},
			&cli.StringSliceFlag{Name: "competitor", Usage: "Competitor domain to exclude (repeatable)"},
			&cli.StringSliceFlag{Name: "geo", Usage: "Target geography (repeatable)"},
			&cli.BoolFlag{Name: "json", Usage: "Print the raw report as JSON"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a query is required, e.g. trendscout run \"Recent trends in sofa bed design in France\"")
	}

	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	svc, closer, err := orchestrator.Build(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	report, err := svc.Execute(c.Context, requestFromFlags(c, query))
	if err != nil {
		return err
	}
	return printReport(c.App.Writer, report, c.Bool("json"))
}

func requestFromFlags(c *cli.Context, query string) orchestrator.Request {
	return orchestrator.Request{
		Query:      query,
		SessionID:  c.String("session"),
		SettingsID: c.String("settings"),
		Session: types.SessionContext{
			LanguageHint:      c.String("language"),
			BusinessDomain:    c.String("business-domain"),
			CompetitorDomains: c.StringSlice("competitor"),
			TargetGeographies: c.StringSlice("geo"),
			Category:          c.String("category"),
		},
	}
}

func printReport(w io.Writer, report *types.RunReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, err := fmt.Fprintln(w, renderReport(report))
	return err
}
