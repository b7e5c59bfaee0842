// Package cache persists what ContractResolver fetches and what the
// driver emits across runs: resolved ABI/source metadata and
// function-level summaries, keyed by chain/contract/function. Grounded
// on the teacher's database/db.go connection setup and
// database/common/blocks.go's gorm table pattern.
package cache

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bossjoker1/formula/config"
	_ "github.com/bossjoker1/formula/cache/serializers"
)

// CachedContract is one resolver.ContractModel persisted to survive
// across runs, avoiding a repeat block-explorer round trip for the same
// address.
type CachedContract struct {
	GUID    uuid.UUID      `gorm:"primaryKey;DEFAULT replace(uuid_generate_v4()::text,'-','')"`
	ChainID int64          `gorm:"index:idx_contract_lookup"`
	Address common.Address `gorm:"serializer:bytes;index:idx_contract_lookup"`
	ABIJSON string
	Source  string
}

func (CachedContract) TableName() string { return "cached_contracts" }

// CachedSummary is one function's emitted FormulaMap summary, formatted
// by summaryfmt, alongside the chain height it was resolved against so
// a stale summary can be distinguished from a fresh one.
type CachedSummary struct {
	GUID        uuid.UUID `gorm:"primaryKey;DEFAULT replace(uuid_generate_v4()::text,'-','')"`
	Contract    string    `gorm:"index:idx_summary_lookup"`
	Function    string    `gorm:"index:idx_summary_lookup"`
	Mode        string
	Refined     bool
	BlockHeight *big.Int `gorm:"serializer:u256"`
	Summary     string
}

func (CachedSummary) TableName() string { return "cached_summaries" }

// Store is what the resolver and driver consult to avoid redundant
// network calls and re-analysis.
type Store interface {
	SaveContract(ctx context.Context, chainID int64, addr common.Address, abiJSON, source string) error
	LoadContract(ctx context.Context, chainID int64, addr common.Address) (abiJSON, source string, ok bool, err error)

	SaveSummary(ctx context.Context, contract, function, mode string, refined bool, blockHeight *big.Int, summary string) error
	LoadSummary(ctx context.Context, contract, function, mode string, refined bool) (summary string, ok bool, err error)

	Close() error
}

// Gorm is a Store backed by Postgres.
type Gorm struct {
	db *gorm.DB
}

// Open connects to dbCfg and migrates the cache tables, mirroring the
// teacher's NewDB.
func Open(ctx context.Context, dbCfg config.DBConfig) (*Gorm, error) {
	dsn := fmt.Sprintf("host=%s dbname=%s sslmode=disable", dbCfg.Host, dbCfg.Name)
	if dbCfg.Port != 0 {
		dsn += fmt.Sprintf(" port=%d", dbCfg.Port)
	}
	if dbCfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", dbCfg.User)
	}
	if dbCfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", dbCfg.Password)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, errors.Wrap(err, "open cache database")
	}
	if err := db.WithContext(ctx).AutoMigrate(&CachedContract{}, &CachedSummary{}); err != nil {
		return nil, errors.Wrap(err, "migrate cache schema")
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) SaveContract(ctx context.Context, chainID int64, addr common.Address, abiJSON, source string) error {
	row := CachedContract{ChainID: chainID, Address: addr, ABIJSON: abiJSON, Source: source}
	result := g.db.WithContext(ctx).
		Where(CachedContract{ChainID: chainID, Address: addr}).
		Assign(CachedContract{ABIJSON: abiJSON, Source: source}).
		FirstOrCreate(&row)
	return errors.Wrap(result.Error, "save cached contract")
}

func (g *Gorm) LoadContract(ctx context.Context, chainID int64, addr common.Address) (string, string, bool, error) {
	var row CachedContract
	result := g.db.WithContext(ctx).Where(&CachedContract{ChainID: chainID, Address: addr}).Take(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", "", false, nil
	}
	if result.Error != nil {
		return "", "", false, errors.Wrap(result.Error, "load cached contract")
	}
	return row.ABIJSON, row.Source, true, nil
}

func (g *Gorm) SaveSummary(ctx context.Context, contract, function, mode string, refined bool, blockHeight *big.Int, summary string) error {
	row := CachedSummary{Contract: contract, Function: function, Mode: mode, Refined: refined, BlockHeight: blockHeight, Summary: summary}
	result := g.db.WithContext(ctx).
		Where(CachedSummary{Contract: contract, Function: function, Mode: mode, Refined: refined}).
		Assign(CachedSummary{BlockHeight: blockHeight, Summary: summary}).
		FirstOrCreate(&row)
	return errors.Wrap(result.Error, "save cached summary")
}

func (g *Gorm) LoadSummary(ctx context.Context, contract, function, mode string, refined bool) (string, bool, error) {
	var row CachedSummary
	result := g.db.WithContext(ctx).
		Where(&CachedSummary{Contract: contract, Function: function, Mode: mode, Refined: refined}).
		Order("guid DESC").
		Take(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if result.Error != nil {
		return "", false, errors.Wrap(result.Error, "load cached summary")
	}
	return row.Summary, true, nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Store = (*Gorm)(nil)
