package refdata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// Registry resolves denoms and pool ids to display data. It is only used to enrich messages.
type Registry struct {
	symbols *xsync.Map[string, string]
	pools   *xsync.Map[string, []string]
}

// NewRegistry creates an empty Registry. Every lookup on it is unresolved.
func NewRegistry() *Registry {
	return &Registry{
		symbols: xsync.NewMap[string, string](),
		pools:   xsync.NewMap[string, []string](),
	}
}

// ResolveAssetSymbol returns the ticker for denom.
func (r *Registry) ResolveAssetSymbol(denom string) (string, bool) {
	return r.symbols.Load(denom)
}

// ResolvePoolAssets returns the denoms held by a pool, in pool order.
func (r *Registry) ResolvePoolAssets(poolID string) ([]string, bool) {
	assets, ok := r.pools.Load(poolID)
	if !ok {
		return nil, false
	}
	return append([]string(nil), assets...), true
}

// Size returns the number of known assets and pools.
func (r *Registry) Size() (assets, pools int) {
	return r.symbols.Size(), r.pools.Size()
}

type assetList struct {
	Assets []struct {
		Base             string `json:"base"`
		CoinMinimalDenom string `json:"coinMinimalDenom"`
		Symbol           string `json:"symbol"`
	} `json:"assets"`
}

// LoadAssets merges a chain-registry style asset list into the registry.
func (r *Registry) LoadAssets(data []byte) (int, error) {
	var list assetList
	if err := json.Unmarshal(data, &list); err != nil {
		return 0, fmt.Errorf("failed to decode asset list: %w", err)
	}
	n := 0
	for _, a := range list.Assets {
		denom := a.Base
		if denom == "" {
			denom = a.CoinMinimalDenom
		}
		if denom == "" || a.Symbol == "" {
			continue
		}
		r.symbols.Store(denom, a.Symbol)
		n++
	}
	return n, nil
}

type poolEntry struct {
	ID         json.Number `json:"id"`
	PoolID     json.Number `json:"pool_id"`
	PoolAssets []struct {
		Token struct {
			Denom string `json:"denom"`
		} `json:"token"`
	} `json:"pool_assets"`
	PoolLiquidity []struct {
		Denom string `json:"denom"`
	} `json:"pool_liquidity"`
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
}

func (p poolEntry) id() string {
	if p.ID != "" {
		return p.ID.String()
	}
	return p.PoolID.String()
}

// denoms covers balancer (pool_assets), stableswap (pool_liquidity) and concentrated (token0/token1) pools.
func (p poolEntry) denoms() []string {
	var out []string
	switch {
	case len(p.PoolAssets) > 0:
		for _, a := range p.PoolAssets {
			out = append(out, a.Token.Denom)
		}
	case len(p.PoolLiquidity) > 0:
		for _, l := range p.PoolLiquidity {
			out = append(out, l.Denom)
		}
	case p.Token0 != "" || p.Token1 != "":
		out = append(out, p.Token0, p.Token1)
	}
	filtered := out[:0]
	for _, d := range out {
		if strings.TrimSpace(d) != "" {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// LoadPools merges an all-pools response ({"pools": [...]}) into the registry.
// Pools whose layout is not recognised are skipped.
func (r *Registry) LoadPools(data []byte) (int, error) {
	var resp struct {
		Pools []json.RawMessage `json:"pools"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode pool list: %w", err)
	}
	n := 0
	for _, raw := range resp.Pools {
		var p poolEntry
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		id := p.id()
		denoms := p.denoms()
		if id == "" || len(denoms) == 0 {
			continue
		}
		r.pools.Store(id, denoms)
		n++
	}
	return n, nil
}
