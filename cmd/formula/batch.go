package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/bossjoker1/formula/config"
	"github.com/bossjoker1/formula/summaryfmt"
)

type batchResult struct {
	function string
	rows     []summaryfmt.Row
	sexpr    string
	err      error
}

func runBatch(cliCtx *cli.Context) error {
	cfg, err := config.LoadConfig(cliCtx)
	if err != nil {
		return err
	}

	contract, err := loadContract(cliCtx.String("ir"))
	if err != nil {
		return err
	}
	if len(contract.Functions) == 0 {
		return fmt.Errorf("contract %q has no functions to analyze", contract.Name)
	}

	engine, blockHeight, cleanup, err := buildEngine(cliCtx.Context, cfg, contract)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := openCache(cliCtx.Context, cfg)
	if err != nil {
		log.Warn("summary cache unavailable, continuing without it", "err", err)
		store = nil
	} else if store != nil {
		defer store.Close()
	}

	names := make([]string, 0, len(contract.Functions))
	for name := range contract.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]batchResult, len(names))
	group, groupCtx := errgroup.WithContext(cliCtx.Context)
	group.SetLimit(cliCtx.Int("workers"))

	for i, name := range names {
		i, name := i, name
		fn := contract.Functions[name]
		group.Go(func() error {
			result, err := engine.Analyze(groupCtx, contract, fn)
			if err != nil {
				results[i] = batchResult{function: name, err: fmt.Errorf("analyze %s.%s: %w", contract.Name, name, err)}
				return nil
			}
			rows := summaryfmt.Rows(result)
			results[i] = batchResult{function: name, rows: rows, sexpr: summaryfmt.SExpr(rows)}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	format := cliCtx.String("output")
	failures := 0
	for _, r := range results {
		if r.err != nil {
			failures++
			log.Error("batch analysis failed", "function", r.function, "err", r.err)
			continue
		}
		if err := emit(os.Stdout, format, fmt.Sprintf("%s.%s", contract.Name, r.function), r.rows); err != nil {
			return err
		}
		if store != nil {
			if err := store.SaveSummary(cliCtx.Context, contract.Name, r.function, string(cfg.Mode), cfg.Refined, blockHeight, r.sexpr); err != nil {
				log.Warn("failed to save summary to cache", "function", r.function, "err", err)
			}
		}
	}

	log.Info("batch analysis complete", "contract", contract.Name, "functions", len(names), "failed", failures, "stats", engine.Stats.Snapshot().Report())
	if failures > 0 {
		return fmt.Errorf("%d of %d functions failed to analyze", failures, len(names))
	}
	return nil
}
