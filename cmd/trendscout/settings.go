package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"trendscout/settings"
	"trendscout/types"
)

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Manage stored business settings",
		Subcommands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Create or replace settings",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category"},
					&cli.StringFlag{Name: "language"},
					&cli.StringFlag{Name: "business-domain"},
					&cli.StringSliceFlag{Name: "competitor"},
					&cli.StringSliceFlag{Name: "geo"},
				},
				Action: withSettings(func(c *cli.Context, store settings.Store) error {
					rec, err := store.Put(c.Context, c.Args().First(), types.SessionContext{
						LanguageHint:      c.String("language"),
						BusinessDomain:    c.String("business-domain"),
						CompetitorDomains: c.StringSlice("competitor"),
						TargetGeographies: c.StringSlice("geo"),
						Category:          c.String("category"),
					})
					if err != nil {
						return err
					}
					return printJSON(c, rec)
				}),
			},
			{
				Name:      "get",
				ArgsUsage: "<id>",
				Action: withSettings(func(c *cli.Context, store settings.Store) error {
					rec, err := store.Get(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					return printJSON(c, rec)
				}),
			},
			{
				Name: "list",
				Action: withSettings(func(c *cli.Context, store settings.Store) error {
					recs, err := store.List(c.Context)
					if err != nil {
						return err
					}
					return printJSON(c, recs)
				}),
			},
			{
				Name:      "delete",
				ArgsUsage: "<id>",
				Action: withSettings(func(c *cli.Context, store settings.Store) error {
					return store.Delete(c.Context, c.Args().First())
				}),
			},
		},
	}
}

func withSettings(fn func(*cli.Context, settings.Store) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, logger, err := setup(c)
		if err != nil {
			return err
		}
		defer logger.Sync()
		if cfg.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is not configured")
		}
		store, err := settings.OpenSQLite(c.Context, cfg.SQLite.Path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(c, store)
	}
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
