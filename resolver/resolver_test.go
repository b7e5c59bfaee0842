package resolver

import (
	"context"
	"strings"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const sampleABI = `[{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

func TestResolveAddressRejectsGarbage(t *testing.T) {
	e := NewExplorer(t.TempDir(), DefaultChains())
	if _, err := e.ResolveAddress(context.Background(), 1, "not-an-address"); err == nil {
		t.Fatal("expected an error for a non-hex address")
	}
}

func TestResolveAddressAcceptsHex(t *testing.T) {
	e := NewExplorer(t.TempDir(), DefaultChains())
	addr, err := e.ResolveAddress(context.Background(), 1, "0x0000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != common.HexToAddress("0x1") {
		t.Errorf("unexpected address %s", addr.Hex())
	}
}

func TestSelectorToSignature(t *testing.T) {
	parsed, err := gethabi.JSON(strings.NewReader(sampleABI))
	if err != nil {
		t.Fatalf("failed to parse fixture ABI: %v", err)
	}
	model := &ContractModel{ABI: &parsed}

	method := parsed.Methods["transfer"]
	var sel [4]byte
	copy(sel[:], method.ID)

	sig, ok := (&Explorer{}).SelectorToSignature(model, sel)
	if !ok {
		t.Fatal("expected the transfer selector to resolve")
	}
	if !strings.HasPrefix(sig, "transfer") {
		t.Errorf("expected signature to start with transfer, got %s", sig)
	}
}

func TestSelectorToSignatureMissingModel(t *testing.T) {
	if _, ok := (&Explorer{}).SelectorToSignature(nil, [4]byte{}); ok {
		t.Error("expected a nil model to fail resolution")
	}
}

func TestCacheRoundTripsToDisk(t *testing.T) {
	dir := t.TempDir()
	parsed, err := gethabi.JSON(strings.NewReader(sampleABI))
	if err != nil {
		t.Fatalf("failed to parse fixture ABI: %v", err)
	}
	model := &ContractModel{Address: common.HexToAddress("0x1"), ChainID: 1, ABI: &parsed, Source: "contract Foo {}"}

	c := newCache(dir)
	c.saveToFile("1_0x1", model)

	loaded := c.loadFromFile("1_0x1")
	if loaded == nil {
		t.Fatal("expected the cached model to load back from disk")
	}
	if loaded.Source != model.Source {
		t.Errorf("expected source to round-trip, got %q", loaded.Source)
	}
}
