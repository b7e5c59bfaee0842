// Package resolver implements ContractResolver, the collaborator the
// engine consults whenever a high-level or low-level call's callee
// cannot be analyzed purely from the IR already in hand: recovering the
// target's address, fetching verified source/ABI, and mapping a 4-byte
// selector back to a human-readable signature. Grounded on the block
// explorer client the teacher repo built for the same purpose.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/bossjoker1/formula/formulaerr"
)

// ContractModel is what the resolver returns for one on-chain contract:
// its parsed ABI (for selector recovery and high-level call argument
// typing) and, when available, its verified Solidity source.
type ContractModel struct {
	Address common.Address
	ChainID int64
	ABI     *gethabi.ABI
	Source  string
}

// ContractResolver is the interface the driver's callproc layer consults
// to turn an external call's target address into analyzable metadata.
type ContractResolver interface {
	ResolveAddress(ctx context.Context, chainID int64, raw string) (common.Address, error)
	ContractFor(ctx context.Context, chainID int64, addr common.Address) (*ContractModel, error)
	SourceCodeFor(ctx context.Context, chainID int64, addr common.Address) (string, error)
	SelectorToSignature(model *ContractModel, selector [4]byte) (string, bool)
}

// ChainConfig names one chain's block-explorer endpoint.
type ChainConfig struct {
	ChainID     int64
	Name        string
	ExplorerAPI string
	APIKey      string
}

// Explorer is a ContractResolver backed by Etherscan-family "getabi"/
// "getsourcecode" endpoints, with an in-memory + on-disk cache layered
// in front exactly like the teacher's ABIManager.
type Explorer struct {
	chains     map[int64]*ChainConfig
	cache      *cache
	httpClient *http.Client
	retry      RetryPolicy
}

// RetryPolicy controls Explorer's exponential-backoff retry of transient
// network/API failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy matches the teacher's ErrorRecovery defaults.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}

// NewExplorer builds an Explorer seeded with the given chains, caching
// ABI/source lookups under cacheDir.
func NewExplorer(cacheDir string, chains []ChainConfig) *Explorer {
	if cacheDir == "" {
		cacheDir = "./resolver_cache"
	}
	_ = os.MkdirAll(cacheDir, 0o755)

	byID := make(map[int64]*ChainConfig, len(chains))
	for i := range chains {
		byID[chains[i].ChainID] = &chains[i]
	}

	return &Explorer{
		chains:     byID,
		cache:      newCache(cacheDir),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      DefaultRetryPolicy,
	}
}

// DefaultChains mirrors the teacher's seeded Ethereum mainnet + BSC
// configuration, reading API keys from the environment.
func DefaultChains() []ChainConfig {
	return []ChainConfig{
		{ChainID: 1, Name: "ethereum", ExplorerAPI: "https://api.etherscan.io/api", APIKey: os.Getenv("ETHERSCAN_API_KEY")},
		{ChainID: 56, Name: "bsc", ExplorerAPI: "https://api.bscscan.com/api", APIKey: os.Getenv("BSCSCAN_API_KEY")},
	}
}

// ResolveAddress parses raw (a 0x-prefixed hex address, the only form the
// IR ever carries for a resolved low-level call target) into a checksum
// address.
func (e *Explorer) ResolveAddress(_ context.Context, _ int64, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, formulaerr.New(formulaerr.UnresolvedCallee, "not a valid address").WithContext("raw", raw)
	}
	return common.HexToAddress(raw), nil
}

// ContractFor fetches (or returns cached) ABI + source for addr.
func (e *Explorer) ContractFor(ctx context.Context, chainID int64, addr common.Address) (*ContractModel, error) {
	key := fmt.Sprintf("%d_%s", chainID, addr.Hex())
	if m := e.cache.get(key); m != nil {
		return m, nil
	}
	if m := e.cache.loadFromFile(key); m != nil {
		e.cache.set(key, m)
		return m, nil
	}

	chain, ok := e.chains[chainID]
	if !ok {
		return nil, formulaerr.New(formulaerr.Config, "unsupported chain id").WithContext("chain_id", chainID)
	}

	model, err := e.fetchWithRetry(ctx, chain, addr)
	if err != nil {
		return nil, formulaerr.UnresolvedCalleeErr(addr.Hex(), err)
	}

	e.cache.set(key, model)
	e.cache.saveToFile(key, model)
	return model, nil
}

// SourceCodeFor is a convenience wrapper returning just the source text.
func (e *Explorer) SourceCodeFor(ctx context.Context, chainID int64, addr common.Address) (string, error) {
	m, err := e.ContractFor(ctx, chainID, addr)
	if err != nil {
		return "", err
	}
	return m.Source, nil
}

// SelectorToSignature looks up the human-readable signature for a 4-byte
// selector within model's ABI.
func (e *Explorer) SelectorToSignature(model *ContractModel, selector [4]byte) (string, bool) {
	if model == nil || model.ABI == nil {
		return "", false
	}
	for name, m := range model.ABI.Methods {
		if m.ID != nil && len(m.ID) == 4 && [4]byte(m.ID[:4]) == selector {
			return name + m.Sig, true
		}
	}
	return "", false
}

func (e *Explorer) fetchWithRetry(ctx context.Context, chain *ChainConfig, addr common.Address) (*ContractModel, error) {
	var lastErr error
	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.retry.BaseDelay * (1 << uint(attempt-1))
			if delay > e.retry.MaxDelay {
				delay = e.retry.MaxDelay
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		model, err := e.fetchOnce(ctx, chain, addr)
		if err == nil {
			return model, nil
		}
		lastErr = err
		log.Warn("resolver fetch failed, retrying", "chain", chain.Name, "addr", addr.Hex(), "attempt", attempt, "err", err)
	}
	return nil, lastErr
}

func (e *Explorer) fetchOnce(ctx context.Context, chain *ChainConfig, addr common.Address) (*ContractModel, error) {
	abiJSON, err := e.callExplorer(ctx, chain, "getabi", addr)
	if err != nil {
		return nil, err
	}
	parsed, err := gethabi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	source, _ := e.callExplorer(ctx, chain, "getsourcecode", addr)

	return &ContractModel{Address: addr, ChainID: chain.ChainID, ABI: &parsed, Source: source}, nil
}

func (e *Explorer) callExplorer(ctx context.Context, chain *ChainConfig, action string, addr common.Address) (string, error) {
	url := fmt.Sprintf("%s?module=contract&action=%s&address=%s", chain.ExplorerAPI, action, addr.Hex())
	if chain.APIKey != "" {
		url += "&apikey=" + chain.APIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Result  string `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode explorer response: %w", err)
	}
	if parsed.Status != "1" {
		return "", fmt.Errorf("explorer error: %s", parsed.Message)
	}
	return parsed.Result, nil
}

// cache layers an in-memory map in front of a JSON-on-disk store, mirroring
// the teacher's ABICache.
type cache struct {
	mu  sync.RWMutex
	m   map[string]*ContractModel
	dir string
}

func newCache(dir string) *cache {
	return &cache{m: make(map[string]*ContractModel), dir: dir}
}

func (c *cache) get(key string) *ContractModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[key]
}

func (c *cache) set(key string, m *ContractModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = m
}

type diskModel struct {
	Address string          `json:"address"`
	ChainID int64           `json:"chainId"`
	ABI     json.RawMessage `json:"abi"`
	Source  string          `json:"source"`
}

func (c *cache) loadFromFile(key string) *ContractModel {
	data, err := os.ReadFile(filepath.Join(c.dir, key+".json"))
	if err != nil {
		return nil
	}
	var dm diskModel
	if err := json.Unmarshal(data, &dm); err != nil {
		return nil
	}
	parsed, err := gethabi.JSON(strings.NewReader(string(dm.ABI)))
	if err != nil {
		return nil
	}
	return &ContractModel{Address: common.HexToAddress(dm.Address), ChainID: dm.ChainID, ABI: &parsed, Source: dm.Source}
}

func (c *cache) saveToFile(key string, m *ContractModel) {
	abiJSON, err := json.Marshal(m.ABI)
	if err != nil {
		return
	}
	dm := diskModel{Address: m.Address.Hex(), ChainID: m.ChainID, ABI: abiJSON, Source: m.Source}
	data, err := json.Marshal(dm)
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(c.dir, key+".json"), data, 0o644)
}
