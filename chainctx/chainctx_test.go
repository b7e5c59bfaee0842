package chainctx

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticProviderReturnsFixedInfo(t *testing.T) {
	s := Static{Info: Info{ChainID: 1, BlockNumber: big.NewInt(100)}}
	info, err := s.Head(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), info.ChainID)
	require.Equal(t, big.NewInt(100), info.BlockNumber)
}

func TestDialRejectsUnreachableEndpoint(t *testing.T) {
	_, err := Dial(context.Background(), "http://127.0.0.1:0", 1)
	require.Error(t, err)
}
