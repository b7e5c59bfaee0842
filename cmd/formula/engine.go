package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/bossjoker1/formula/cache"
	"github.com/bossjoker1/formula/callproc"
	"github.com/bossjoker1/formula/chainctx"
	"github.com/bossjoker1/formula/config"
	"github.com/bossjoker1/formula/driver"
	"github.com/bossjoker1/formula/resolver"
	"github.com/bossjoker1/formula/solver"
	"github.com/bossjoker1/formula/symir"
)

// loadContract decodes a JSON-encoded symir.Contract — the compiled IR
// a separate extraction step (out of this engine's scope) is expected
// to have produced.
func loadContract(path string) (*symir.Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ir file: %w", err)
	}
	var contract symir.Contract
	if err := json.Unmarshal(data, &contract); err != nil {
		return nil, fmt.Errorf("decode ir file: %w", err)
	}
	return &contract, nil
}

// buildEngine wires a driver.Engine from cfg: a chain provider and
// block-explorer resolver for online mode, or a nil resolver for
// offline mode. The returned *big.Int is the chain head analyzed
// against in online mode, nil otherwise.
func buildEngine(ctx context.Context, cfg *config.Config, contract *symir.Contract) (*driver.Engine, *big.Int, func(), error) {
	reg := callproc.MapRegistry{contract.Name: contract}

	var res resolver.ContractResolver
	var blockHeight *big.Int
	var closers []func()

	if cfg.Mode == config.ModeOnline {
		provider, err := chainctx.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("dial chain: %w", err)
		}
		closers = append(closers, provider.Close)

		head, err := provider.Head(ctx)
		if err != nil {
			provider.Close()
			return nil, nil, nil, fmt.Errorf("resolve chain head: %w", err)
		}
		log.Info("resolved chain head for online analysis", "chainId", head.ChainID, "block", head.BlockNumber)
		blockHeight = head.BlockNumber

		res = resolver.NewExplorer(cfg.CacheDir, []resolver.ChainConfig{
			{ChainID: cfg.Chain.ChainID, ExplorerAPI: explorerAPIFor(cfg.Chain.ChainID), APIKey: explorerKeyFor(cfg, cfg.Chain.ChainID)},
		})
	}

	engine := driver.New(solver.NewReference(), reg, res, cfg.Chain.ChainID, cfg.MaxIter)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return engine, blockHeight, cleanup, nil
}

func explorerAPIFor(chainID int64) string {
	for _, c := range resolver.DefaultChains() {
		if c.ChainID == chainID {
			return c.ExplorerAPI
		}
	}
	return ""
}

func explorerKeyFor(cfg *config.Config, chainID int64) string {
	switch chainID {
	case 56:
		return cfg.BscscanAPIKey
	default:
		return cfg.EtherscanAPIKey
	}
}

// openCache opens the summary cache when cfg names a DB host, returning
// a nil Store (caching disabled) otherwise.
func openCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.DB.Host == "" {
		return nil, nil
	}
	return cache.Open(ctx, cfg.DB)
}
