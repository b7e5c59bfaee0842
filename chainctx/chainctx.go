// Package chainctx resolves the live chain_info (chain id, current
// block) an online-mode run needs, grounded on the teacher's
// synchronizer/node EthClient dial/header-fetch pattern but narrowed to
// the single lookup the engine actually needs (no block-range traversal
// or reorg handling, which belonged to that package's indexing role).
package chainctx

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
)

// Info is the chain_info snapshot the driver stamps onto a run: the
// chain id the resolver should query the block explorer with, and the
// head block height/hash at analysis time.
type Info struct {
	ChainID     int64
	BlockNumber *big.Int
	BlockHash   [32]byte
}

// Provider fetches Info for online-mode runs. Offline mode never
// constructs one; driver falls back to the configured chain id with a
// nil block height.
type Provider interface {
	Head(ctx context.Context) (Info, error)
	Close()
}

// client is a Provider backed by a live JSON-RPC endpoint.
type client struct {
	eth     *ethclient.Client
	chainID int64
}

// Dial connects to rpcURL and confirms the endpoint reports the
// expected chain id, the same sanity check the teacher's node package
// performs before trusting a provider.
func Dial(ctx context.Context, rpcURL string, expectedChainID int64) (Provider, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	reportedID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if expectedChainID != 0 && reportedID.Int64() != expectedChainID {
		eth.Close()
		return nil, fmt.Errorf("rpc endpoint reports chain id %d, expected %d", reportedID.Int64(), expectedChainID)
	}

	return &client{eth: eth, chainID: reportedID.Int64()}, nil
}

func (c *client) Head(ctx context.Context) (Info, error) {
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return Info{}, fmt.Errorf("fetch latest header: %w", err)
	}
	log.Debug("resolved chain head", "chainId", c.chainID, "block", header.Number, "hash", header.Hash())
	return Info{ChainID: c.chainID, BlockNumber: header.Number, BlockHash: header.Hash()}, nil
}

func (c *client) Close() {
	c.eth.Close()
}

// Static is a Provider for offline mode or tests: it always returns the
// same fixed Info without dialing anything.
type Static struct {
	Info Info
}

func (s Static) Head(context.Context) (Info, error) { return s.Info, nil }
func (s Static) Close()                              {}

var _ Provider = (*client)(nil)
var _ Provider = Static{}
