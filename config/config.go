// Package config loads and validates the engine's run configuration,
// the Go shape of spec.md §6's option set plus the DB connection
// settings the summary cache needs. Grounded on the teacher's
// config.LoadConfig/NewConfig pattern.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

// Mode selects whether the engine may reach out to a live chain and
// block explorer (online) or must work only from IR and local caches
// (offline).
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// ChainInfo names the chain a run targets and, for online mode, the RPC
// endpoint chainctx dials to resolve the current head.
type ChainInfo struct {
	ChainID int64
	RPCURL  string
}

// DBConfig is the cache package's Postgres connection target.
type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// Config is the fully-resolved configuration for one engine invocation.
type Config struct {
	Mode    Mode
	Refined bool
	MaxIter int

	Chain ChainInfo
	DB    DBConfig

	EtherscanAPIKey string
	BscscanAPIKey   string

	CacheDir string
}

// LoadConfig builds a Config from a urfave/cli Context, the same
// entrypoint shape as the teacher's config.LoadConfig(cliCtx).
func LoadConfig(cliCtx *cli.Context) (*Config, error) {
	cfg := &Config{
		Mode:    Mode(cliCtx.String("mode")),
		Refined: cliCtx.Bool("refined"),
		MaxIter: cliCtx.Int("max-iter"),
		Chain: ChainInfo{
			ChainID: cliCtx.Int64("chain-id"),
			RPCURL:  cliCtx.String("chain-rpc"),
		},
		DB: DBConfig{
			Host:     cliCtx.String("db-host"),
			Port:     cliCtx.Int("db-port"),
			Name:     cliCtx.String("db-name"),
			User:     cliCtx.String("db-user"),
			Password: cliCtx.String("db-password"),
		},
		EtherscanAPIKey: cliCtx.String("etherscan-key"),
		BscscanAPIKey:   cliCtx.String("bscscan-key"),
		CacheDir:        cliCtx.String("cache-dir"),
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeOffline
	}
	if cfg.MaxIter == 0 {
		cfg.MaxIter = 4
	}

	if err := Validate(cfg).Err(); err != nil {
		return nil, err
	}
	log.Info("loaded engine configuration", "mode", cfg.Mode, "refined", cfg.Refined, "maxIter", cfg.MaxIter)
	return cfg, nil
}

// DefaultWaitBeforeRetry matches the teacher's chain-facing retry spacing
// default. chainctx dials once without retrying, and no package reads
// this constant.
const DefaultWaitBeforeRetry = 2 * time.Second

func (c *Config) String() string {
	return fmt.Sprintf("Config{mode=%s refined=%v maxIter=%d chainId=%d}", c.Mode, c.Refined, c.MaxIter, c.Chain.ChainID)
}
