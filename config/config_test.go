package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := &Config{Mode: "sideways", MaxIter: 4}
	result := Validate(cfg)
	require.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
}

func TestValidateRejectsNonPositiveMaxIter(t *testing.T) {
	cfg := &Config{Mode: ModeOffline, MaxIter: 0}
	require.False(t, Validate(cfg).Valid)
}

func TestValidateOnlineModeRequiresRPC(t *testing.T) {
	cfg := &Config{Mode: ModeOnline, MaxIter: 4, Chain: ChainInfo{ChainID: 1}}
	result := Validate(cfg)
	require.False(t, result.Valid)

	cfg.Chain.RPCURL = "https://example-rpc.invalid"
	require.True(t, Validate(cfg).Valid)
}

func TestValidateOfflineModeAllowsEmptyChain(t *testing.T) {
	cfg := &Config{Mode: ModeOffline, MaxIter: 4}
	require.True(t, Validate(cfg).Valid)
}

func TestValidateWarnsWithoutExplorerKey(t *testing.T) {
	cfg := &Config{Mode: ModeOnline, MaxIter: 4, Chain: ChainInfo{ChainID: 1, RPCURL: "https://example-rpc.invalid"}}
	result := Validate(cfg)
	require.True(t, result.Valid)
	require.NotEmpty(t, result.Warnings)
}
