package rvnrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rvnlabs/rvnassets/asset"
	"github.com/rvnlabs/rvnassets/fn"
	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidQuantity is returned for non-positive quantities.
	ErrInvalidQuantity = errors.New("rvnrpc: quantity must be positive")

	// ErrInvalidUnits is returned for divisors above asset.MaxDivisor.
	ErrInvalidUnits = errors.New("rvnrpc: invalid units")

	// ErrInvalidAddress is returned for addresses that don't belong to the
	// client's network.
	ErrInvalidAddress = errors.New("rvnrpc: invalid address")

	// ErrInvalidIssue is returned when the requested asset can't be
	// issued with the given parameters.
	ErrInvalidIssue = errors.New("rvnrpc: invalid issue request")
)

// keepUnits tells the node to keep the current divisor when reissuing.
const keepUnits = -1

// IssueRequest describes a new asset to issue.
type IssueRequest struct {
	// Name is the full name of the new asset. Root, sub and unique
	// names can be issued, ownership tokens are created by the node.
	Name string

	// Quantity is the amount to issue in display units.
	Quantity float64

	// ToAddress receives the new asset. The node picks an address of
	// its wallet if empty.
	ToAddress string

	// ChangeAddress receives the change of the burn payment.
	ChangeAddress string

	// Units is the number of decimal places of the asset.
	Units uint8

	// Reissuable allows the owner to issue more of the asset later.
	Reissuable bool

	// IPFSHash is an optional base58 IPFS hash or hex txid attached to
	// the asset.
	IPFSHash string
}

// ReissueRequest describes a reissuance of an existing asset.
type ReissueRequest struct {
	// Name is the full name of the asset.
	Name string

	// Quantity is the additional amount in display units.
	Quantity float64

	// ToAddress receives the new amount.
	ToAddress string

	// ChangeAddress receives the change of the burn payment.
	ChangeAddress string

	// Reissuable can be set to false to lock the supply for good.
	Reissuable bool

	// NewUnits changes the divisor if set. It can only grow.
	NewUnits *uint8

	// NewIPFSHash replaces the attached reference if set.
	NewIPFSHash string
}

// AssetData is the node's record of an issued asset.
type AssetData struct {
	Name       string
	Amount     float64
	Units      uint8
	Reissuable bool
	HasIPFS    bool
	IPFSHash   string
}

// checkAddress makes sure an optional address belongs to the client's
// network.
func (c *Client) checkAddress(addr string) error {
	if addr == "" {
		return nil
	}

	decoded, err := btcutil.DecodeAddress(addr, c.params.Params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if !decoded.IsForNet(c.params.Params) {
		return fmt.Errorf("%w: %v is not a %v address",
			ErrInvalidAddress, addr, c.params.Name)
	}

	return nil
}

// checkReference makes sure an optional reference can be put on chain.
func checkReference(ref string) error {
	if ref == "" {
		return nil
	}

	_, err := asset.ParseReference(ref)
	return err
}

// validateIssue runs the local checks of an issue request.
func (c *Client) validateIssue(req *IssueRequest) (*asset.Name, error) {
	name, err := asset.ParseFullName(req.Name)
	if err != nil {
		return nil, err
	}
	if name.IsOwnership() {
		return nil, fmt.Errorf("%w: ownership tokens can't be issued "+
			"directly", ErrInvalidIssue)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuantity,
			req.Quantity)
	}
	if req.Units > asset.MaxDivisor {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidUnits,
			req.Units, asset.MaxDivisor)
	}
	if name.Kind() == asset.KindUnique {
		if req.Quantity != 1 || req.Units != 0 || req.Reissuable {
			return nil, fmt.Errorf("%w: unique assets have a "+
				"quantity of 1, no units and can't be "+
				"reissued", ErrInvalidIssue)
		}
	}
	if err := checkReference(req.IPFSHash); err != nil {
		return nil, err
	}
	if err := c.checkAddress(req.ToAddress); err != nil {
		return nil, err
	}
	if err := c.checkAddress(req.ChangeAddress); err != nil {
		return nil, err
	}

	return name, nil
}

// Issue issues a new asset. The request is validated locally before the
// node is asked to create and broadcast the transaction.
func (c *Client) Issue(ctx context.Context,
	req IssueRequest) ([]chainhash.Hash, error) {

	name, err := c.validateIssue(&req)
	if err != nil {
		return nil, err
	}

	log.Infof("Issuing %v %v (units=%d, reissuable=%v)", req.Quantity,
		name, req.Units, req.Reissuable)

	resp, err := c.send(
		ctx, "issue", name.FullName(), req.Quantity, req.ToAddress,
		req.ChangeAddress, req.Units, req.Reissuable,
		req.IPFSHash != "", req.IPFSHash,
	)
	if err != nil {
		return nil, err
	}

	return parseTxids(resp)
}

// IssueUnique issues unique assets under an existing root or sub asset, one
// per tag. Reference hashes are optional, if given there must be one per tag.
func (c *Client) IssueUnique(ctx context.Context, parent string, tags,
	ipfsHashes []string, toAddress, changeAddress string) ([]chainhash.Hash,
	error) {

	parentName, err := asset.ParseFullName(parent)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: no tags", ErrInvalidIssue)
	}
	for _, tag := range tags {
		if _, err := asset.NewUniqueName(tag, parentName); err != nil {
			return nil, err
		}
	}
	if len(ipfsHashes) != 0 && len(ipfsHashes) != len(tags) {
		return nil, fmt.Errorf("%w: %d hashes for %d tags",
			ErrInvalidIssue, len(ipfsHashes), len(tags))
	}
	for _, ref := range ipfsHashes {
		if err := checkReference(ref); err != nil {
			return nil, err
		}
	}
	if err := c.checkAddress(toAddress); err != nil {
		return nil, err
	}
	if err := c.checkAddress(changeAddress); err != nil {
		return nil, err
	}

	log.Infof("Issuing %d unique assets under %v", len(tags), parentName)

	var hashes interface{}
	if len(ipfsHashes) != 0 {
		hashes = ipfsHashes
	}
	resp, err := c.send(
		ctx, "issueunique", parentName.FullName(), tags, hashes,
		toAddress, changeAddress,
	)
	if err != nil {
		return nil, err
	}

	return parseTxids(resp)
}

// Reissue issues more of an existing reissuable asset.
func (c *Client) Reissue(ctx context.Context,
	req ReissueRequest) ([]chainhash.Hash, error) {

	name, err := asset.ParseFullName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuantity,
			req.Quantity)
	}
	newUnits := keepUnits
	if req.NewUnits != nil {
		if *req.NewUnits > asset.MaxDivisor {
			return nil, fmt.Errorf("%w: %d > %d", ErrInvalidUnits,
				*req.NewUnits, asset.MaxDivisor)
		}
		newUnits = int(*req.NewUnits)
	}
	if err := checkReference(req.NewIPFSHash); err != nil {
		return nil, err
	}
	if err := c.checkAddress(req.ToAddress); err != nil {
		return nil, err
	}
	if err := c.checkAddress(req.ChangeAddress); err != nil {
		return nil, err
	}

	params := []interface{}{
		name.FullName(), req.Quantity, req.ToAddress,
		req.ChangeAddress, req.Reissuable, newUnits,
	}
	if req.NewIPFSHash != "" {
		params = append(params, req.NewIPFSHash)
	}

	resp, err := c.send(ctx, "reissue", params...)
	if err != nil {
		return nil, err
	}

	return parseTxids(resp)
}

// Transfer sends an amount of an asset to an address.
func (c *Client) Transfer(ctx context.Context, name string, quantity float64,
	toAddress string) ([]chainhash.Hash, error) {

	assetName, err := asset.ParseFullName(name)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuantity, quantity)
	}
	if toAddress == "" {
		return nil, fmt.Errorf("%w: missing destination",
			ErrInvalidAddress)
	}
	if err := c.checkAddress(toAddress); err != nil {
		return nil, err
	}

	resp, err := c.send(
		ctx, "transfer", assetName.FullName(), quantity, toAddress,
	)
	if err != nil {
		return nil, err
	}

	return parseTxids(resp)
}

// AssetData fetches the node's record of an asset.
func (c *Client) AssetData(ctx context.Context, name string) (*AssetData,
	error) {

	assetName, err := asset.ParseFullName(name)
	if err != nil {
		return nil, err
	}

	resp, err := c.rawQuery(ctx, "getassetdata", assetName.FullName())
	if err != nil {
		return nil, err
	}

	data := gjson.ParseBytes(resp)
	if !data.IsObject() {
		return nil, fmt.Errorf("%w: unknown asset %v",
			ErrMalformedResponse, assetName)
	}

	return &AssetData{
		Name:       data.Get("name").String(),
		Amount:     data.Get("amount").Float(),
		Units:      uint8(data.Get("units").Uint()),
		Reissuable: data.Get("reissuable").Bool(),
		HasIPFS:    data.Get("has_ipfs").Bool(),
		IPFSHash:   data.Get("ipfs_hash").String(),
	}, nil
}

// parseTxids reads the list of transaction ids returned by the spending
// calls.
func parseTxids(resp json.RawMessage) ([]chainhash.Hash, error) {
	txids := gjson.ParseBytes(resp)
	if !txids.IsArray() {
		return nil, fmt.Errorf("%w: expected txid list",
			ErrMalformedResponse)
	}

	return fn.MapErr(txids.Array(), func(txid gjson.Result) (chainhash.Hash,
		error) {

		hash, err := chainhash.NewHashFromStr(txid.String())
		if err != nil {
			return chainhash.Hash{}, fmt.Errorf("%w: %v",
				ErrMalformedResponse, err)
		}

		return *hash, nil
	})
}
