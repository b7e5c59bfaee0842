package cache

import (
	"context"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/bossjoker1/formula/config"
)

// openTestStore skips the test unless a real Postgres DSN is provided,
// since the cache package has no in-process fake for gorm's postgres
// driver (matching how the teacher's own database tests require a live
// instance rather than mocking gorm).
func openTestStore(t *testing.T) *Gorm {
	t.Helper()
	host := os.Getenv("FORMULA_TEST_DB_HOST")
	if host == "" {
		t.Skip("FORMULA_TEST_DB_HOST not set, skipping cache integration test")
	}
	store, err := Open(context.Background(), config.DBConfig{
		Host: host,
		Name: os.Getenv("FORMULA_TEST_DB_NAME"),
		User: os.Getenv("FORMULA_TEST_DB_USER"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestContractRoundTrip(t *testing.T) {
	store := openTestStore(t)
	addr := common.HexToAddress("0x1")

	require.NoError(t, store.SaveContract(context.Background(), 1, addr, `[]`, "contract Foo {}"))

	abiJSON, source, ok, err := store.LoadContract(context.Background(), 1, addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[]`, abiJSON)
	require.Equal(t, "contract Foo {}", source)
}

func TestSummaryRoundTrip(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveSummary(context.Background(), "Vault", "withdraw", "offline", false, big.NewInt(100), "balance = (- balance amount)"))

	summary, ok, err := store.LoadSummary(context.Background(), "Vault", "withdraw", "offline", false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "balance = (- balance amount)", summary)
}
