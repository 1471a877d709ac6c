package asset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOnEvmChain(t *testing.T) {
	tests := map[string]struct {
		asset Asset
		want  bool
	}{
		"native eth": {
			asset: Asset{Identifier: "ETH", Symbol: "ETH", Type: TypeOwnChain, EvmChain: "ethereum"},
			want:  true,
		},
		"erc20 token": {
			asset: Asset{Identifier: "eip155:1/erc20:0xdac17f", Symbol: "USDT", Type: TypeEvmToken, EvmChain: "ethereum"},
			want:  true,
		},
		"non evm chain asset": {
			asset: Asset{Identifier: "BTC", Symbol: "BTC", Type: TypeOwnChain},
			want:  false,
		},
		"fiat": {
			asset: Asset{Identifier: "USD", Symbol: "USD", Type: TypeFiat},
			want:  false,
		},
		"nft on evm chain": {
			asset: Asset{Identifier: "nft:0xabc_1", Type: TypeNFT, EvmChain: "ethereum"},
			want:  false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.asset.OnEvmChain())
		})
	}
}

func TestStaticResolver(t *testing.T) {
	eth := Asset{Identifier: "ETH", Name: "Ethereum", Symbol: "ETH", Type: TypeOwnChain, EvmChain: "ethereum"}
	resolver := NewStaticResolver([]Asset{eth}, []string{"XYZ"})
	ctx := context.Background()

	t.Run("known symbol", func(t *testing.T) {
		got, err := resolver.FromExchangeSymbol(ctx, "eth")
		require.NoError(t, err)
		require.Equal(t, eth, got)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := resolver.FromExchangeSymbol(ctx, "NOPE")
		require.ErrorIs(t, err, ErrUnknownAsset)
	})

	t.Run("unsupported symbol", func(t *testing.T) {
		_, err := resolver.FromExchangeSymbol(ctx, "xyz")
		require.ErrorIs(t, err, ErrUnsupportedAsset)
	})

	t.Run("empty symbol", func(t *testing.T) {
		_, err := resolver.FromExchangeSymbol(ctx, "  ")
		require.ErrorIs(t, err, ErrUnknownAsset)
	})
}
