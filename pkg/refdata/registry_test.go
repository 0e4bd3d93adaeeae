package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assetListJSON = `{
  "chain_name": "osmosis",
  "assets": [
    {"base": "uosmo", "symbol": "OSMO"},
    {"base": "ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2", "symbol": "ATOM"},
    {"coinMinimalDenom": "uion", "symbol": "ION"},
    {"base": "unamed"}
  ]
}`

const poolsJSON = `{
  "pools": [
    {"@type": "/osmosis.gamm.v1beta1.Pool", "id": "1",
     "pool_assets": [
       {"token": {"denom": "ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2", "amount": "1"}, "weight": "1"},
       {"token": {"denom": "uosmo", "amount": "1"}, "weight": "1"}
     ]},
    {"@type": "/osmosis.gamm.poolmodels.stableswap.v1beta1.Pool", "id": "833",
     "pool_liquidity": [{"denom": "uusdc", "amount": "1"}, {"denom": "uusdt", "amount": "1"}]},
    {"@type": "/osmosis.concentratedliquidity.v1beta1.Pool", "id": "1066", "token0": "uosmo", "token1": "uusdc"},
    {"@type": "/osmosis.cosmwasmpool.v1beta1.CosmWasmPool", "pool_id": "1200"}
  ]
}`

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	_, ok := r.ResolveAssetSymbol("uosmo")
	assert.False(t, ok)
	_, ok = r.ResolvePoolAssets("1")
	assert.False(t, ok)
}

func TestLoadAssets(t *testing.T) {
	r := NewRegistry()
	n, err := r.LoadAssets([]byte(assetListJSON))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sym, ok := r.ResolveAssetSymbol("uosmo")
	require.True(t, ok)
	assert.Equal(t, "OSMO", sym)

	sym, ok = r.ResolveAssetSymbol("uion")
	require.True(t, ok)
	assert.Equal(t, "ION", sym)

	_, ok = r.ResolveAssetSymbol("unamed")
	assert.False(t, ok)
}

func TestLoadPools(t *testing.T) {
	r := NewRegistry()
	n, err := r.LoadPools([]byte(poolsJSON))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	cases := map[string][]string{
		"1":    {"ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2", "uosmo"},
		"833":  {"uusdc", "uusdt"},
		"1066": {"uosmo", "uusdc"},
	}
	for id, want := range cases {
		got, ok := r.ResolvePoolAssets(id)
		require.True(t, ok, id)
		assert.Equal(t, want, got, id)
	}

	_, ok := r.ResolvePoolAssets("1200")
	assert.False(t, ok)

	assets, pools := r.Size()
	assert.Equal(t, 0, assets)
	assert.Equal(t, 3, pools)
}

func TestResolvePoolAssetsReturnsCopy(t *testing.T) {
	r := NewRegistry()
	_, err := r.LoadPools([]byte(poolsJSON))
	require.NoError(t, err)

	got, _ := r.ResolvePoolAssets("833")
	got[0] = "mutated"
	again, _ := r.ResolvePoolAssets("833")
	assert.Equal(t, "uusdc", again[0])
}

func TestLoadMalformed(t *testing.T) {
	r := NewRegistry()
	_, err := r.LoadAssets([]byte("not json"))
	require.Error(t, err)
	_, err = r.LoadPools([]byte(`{"pools": 5}`))
	require.Error(t, err)
}
