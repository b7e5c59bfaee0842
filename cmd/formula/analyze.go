package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/bossjoker1/formula/config"
	"github.com/bossjoker1/formula/summaryfmt"
)

func runAnalyze(cliCtx *cli.Context) error {
	cfg, err := config.LoadConfig(cliCtx)
	if err != nil {
		return err
	}

	contract, err := loadContract(cliCtx.String("ir"))
	if err != nil {
		return err
	}
	fnName := cliCtx.String("function")
	fn, ok := contract.Functions[fnName]
	if !ok {
		return fmt.Errorf("function %q not found in contract %q", fnName, contract.Name)
	}

	engine, blockHeight, cleanup, err := buildEngine(cliCtx.Context, cfg, contract)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := engine.Analyze(cliCtx.Context, contract, fn)
	if err != nil {
		return fmt.Errorf("analyze %s.%s: %w", contract.Name, fnName, err)
	}

	rows := summaryfmt.Rows(result)
	if err := emit(os.Stdout, cliCtx.String("output"), fmt.Sprintf("%s.%s", contract.Name, fnName), rows); err != nil {
		return err
	}

	store, err := openCache(cliCtx.Context, cfg)
	if err != nil {
		log.Warn("summary cache unavailable, continuing without it", "err", err)
	} else if store != nil {
		defer store.Close()
		summary := summaryfmt.SExpr(rows)
		if err := store.SaveSummary(cliCtx.Context, contract.Name, fnName, string(cfg.Mode), cfg.Refined, blockHeight, summary); err != nil {
			log.Warn("failed to save summary to cache", "err", err)
		}
	}

	log.Info("analysis complete", "contract", contract.Name, "function", fnName, "stats", engine.Stats.Snapshot().Report())
	return nil
}

// emit writes rows to w in the requested format ("table" or "sexpr").
func emit(w *os.File, format, title string, rows []summaryfmt.Row) error {
	switch format {
	case "sexpr":
		summaryfmt.WriteSExpr(w, rows)
		return nil
	case "table", "":
		summaryfmt.WriteTable(w, title, rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q, expected \"table\" or \"sexpr\"", format)
	}
}
