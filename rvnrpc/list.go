package rvnrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/rvnlabs/rvnassets/asset"
	"github.com/tidwall/gjson"
)

const (
	// allAssets is the filter that matches every asset.
	allAssets = "*"

	// maxListCount is the node's default and largest page size.
	maxListCount = math.MaxInt32
)

// ListFilter selects a page of assets by name. An empty pattern matches all
// assets, a trailing "*" matches by prefix. A count of zero lists everything.
type ListFilter struct {
	Pattern string
	Count   int32
	Start   int32
}

func (f ListFilter) params() []interface{} {
	pattern := f.Pattern
	if pattern == "" {
		pattern = allAssets
	}

	count := f.Count
	if count <= 0 {
		count = maxListCount
	}

	return []interface{}{pattern, false, count, f.Start}
}

// ListAssets returns the names of the assets that were created on chain.
func (c *Client) ListAssets(ctx context.Context,
	filter ListFilter) ([]string, error) {

	resp, err := c.rawQuery(ctx, "listassets", filter.params()...)
	if err != nil {
		return nil, err
	}

	names := gjson.ParseBytes(resp)
	if !names.IsArray() {
		return nil, fmt.Errorf("%w: expected asset list",
			ErrMalformedResponse)
	}

	result := make([]string, 0, len(names.Array()))
	for _, name := range names.Array() {
		result = append(result, name.String())
	}

	return result, nil
}

// ListMyAssets returns the balances of the node wallet's assets.
func (c *Client) ListMyAssets(ctx context.Context,
	filter ListFilter) (map[string]float64, error) {

	resp, err := c.rawQuery(ctx, "listmyassets", filter.params()...)
	if err != nil {
		return nil, err
	}

	return parseBalances(resp)
}

// ListAddressesByAsset returns the balance of every address holding an
// asset. The node needs the asset index for this call.
func (c *Client) ListAddressesByAsset(ctx context.Context,
	name string) (map[string]float64, error) {

	assetName, err := asset.ParseFullName(name)
	if err != nil {
		return nil, err
	}

	resp, err := c.rawQuery(
		ctx, "listaddressesbyasset", assetName.FullName(),
	)
	if err != nil {
		return nil, err
	}

	return parseBalances(resp)
}

// ListAssetBalancesByAddress returns the asset balances of an address. The
// node needs the asset index for this call.
func (c *Client) ListAssetBalancesByAddress(ctx context.Context,
	addr string) (map[string]float64, error) {

	if addr == "" {
		return nil, fmt.Errorf("%w: no address given",
			ErrInvalidAddress)
	}
	if err := c.checkAddress(addr); err != nil {
		return nil, err
	}

	resp, err := c.rawQuery(ctx, "listassetbalancesbyaddress", addr)
	if err != nil {
		return nil, err
	}

	return parseBalances(resp)
}

// parseBalances reads an object that maps names to balances.
func parseBalances(resp json.RawMessage) (map[string]float64, error) {
	balances := gjson.ParseBytes(resp)
	if !balances.IsObject() {
		return nil, fmt.Errorf("%w: expected balances",
			ErrMalformedResponse)
	}

	result := make(map[string]float64)
	balances.ForEach(func(key, value gjson.Result) bool {
		result[key.String()] = value.Float()
		return true
	})

	return result, nil
}
