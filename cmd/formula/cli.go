package main

import (
	"github.com/urfave/cli/v2"
)

// sharedFlags mirrors config.LoadConfig's expected cli.Context keys, the
// same flag set both subcommands need to build a Config.
func sharedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "mode", Value: "offline", Usage: "\"online\" or \"offline\" analysis mode"},
		&cli.BoolFlag{Name: "refined", Usage: "recorded in the config log line and the summary cache key; the analysis itself does not read it"},
		&cli.IntFlag{Name: "max-iter", Value: 4, Usage: "maximum IFLOOP unroll count before a path's back-edge is cut"},
		&cli.Int64Flag{Name: "chain-id", Usage: "chain id the resolver should query for external calls"},
		&cli.StringFlag{Name: "chain-rpc", Usage: "JSON-RPC endpoint online mode dials for the current chain head"},
		&cli.StringFlag{Name: "db-host", EnvVars: []string{"FORMULA_DB_HOST"}, Usage: "summary/contract cache Postgres host (enables caching when set)"},
		&cli.IntFlag{Name: "db-port", EnvVars: []string{"FORMULA_DB_PORT"}},
		&cli.StringFlag{Name: "db-name", EnvVars: []string{"FORMULA_DB_NAME"}},
		&cli.StringFlag{Name: "db-user", EnvVars: []string{"FORMULA_DB_USER"}},
		&cli.StringFlag{Name: "db-password", EnvVars: []string{"FORMULA_DB_PASSWORD"}},
		&cli.StringFlag{Name: "etherscan-key", EnvVars: []string{"ETHERSCAN_API_KEY"}},
		&cli.StringFlag{Name: "bscscan-key", EnvVars: []string{"BSCSCAN_API_KEY"}},
		&cli.StringFlag{Name: "cache-dir", Value: "./resolver_cache", Usage: "on-disk ABI/source cache directory for online-mode resolver lookups"},
	}
}

// NewCli builds the formula CLI app.
func NewCli() *cli.App {
	return &cli.App{
		Name:        "formula",
		Version:     "v0.1.0",
		Description: "Symbolic execution engine that summarizes a Solidity function's post-state as a formula over its state variables",
		Commands: []*cli.Command{
			{
				Name:        "analyze",
				Description: "Analyze a single function from a compiled IR file",
				Flags: append(sharedFlags(),
					&cli.StringFlag{Name: "ir", Required: true, Usage: "path to a JSON-encoded symir.Contract"},
					&cli.StringFlag{Name: "function", Required: true, Usage: "name of the function to analyze"},
					&cli.StringFlag{Name: "output", Value: "table", Usage: "\"table\" or \"sexpr\""},
				),
				Action: runAnalyze,
			},
			{
				Name:        "batch",
				Description: "Analyze every function in a compiled IR file concurrently",
				Flags: append(sharedFlags(),
					&cli.StringFlag{Name: "ir", Required: true, Usage: "path to a JSON-encoded symir.Contract"},
					&cli.IntFlag{Name: "workers", Value: 4, Usage: "maximum number of functions analyzed concurrently"},
					&cli.StringFlag{Name: "output", Value: "table", Usage: "\"table\" or \"sexpr\""},
				),
				Action: runBatch,
			},
			{
				Name:        "version",
				Description: "print the formula version",
				Action: func(ctx *cli.Context) error {
					cli.ShowVersion(ctx)
					return nil
				},
			},
		},
	}
}
