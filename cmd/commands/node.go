package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rvnlabs/rvnassets/chainscan"
	"github.com/rvnlabs/rvnassets/rvnrpc"
	"github.com/urfave/cli"
)

var nodeCommands = []cli.Command{
	{
		Name:     "node",
		Usage:    "Interact with the node's asset RPCs.",
		Category: "Node",
		Subcommands: []cli.Command{
			issueCommand,
			issueUniqueCommand,
			reissueCommand,
			transferCommand,
			assetDataCommand,
			listAssetsCommand,
			holdersCommand,
			balancesCommand,
			scanCommand,
		},
	},
}

type txidsResponse struct {
	Txids []string `json:"txids"`
}

func newTxidsResponse(hashes []chainhash.Hash) txidsResponse {
	resp := txidsResponse{
		Txids: make([]string, 0, len(hashes)),
	}
	for _, h := range hashes {
		resp.Txids = append(resp.Txids, h.String())
	}

	return resp
}

var issueCommand = cli.Command{
	Name:      "issue",
	ShortName: "i",
	Usage:     "issue a new asset",
	ArgsUsage: "full_name",
	Description: `
	Issues a new root, sub or unique asset. The request is checked locally
	before the node creates the transaction and pays the burn.
	`,
	Flags: []cli.Flag{
		cli.Float64Flag{
			Name:  quantityName,
			Usage: "the amount to issue in display units",
			Value: 1,
		},
		cli.UintFlag{
			Name:  unitsName,
			Usage: "the number of decimal places of the asset",
		},
		cli.BoolFlag{
			Name:  reissuableName,
			Usage: "allow more of the asset to be issued later",
		},
		cli.StringFlag{
			Name:  referenceName,
			Usage: "an IPFS hash or hex txid to attach",
		},
		cli.StringFlag{
			Name:  toAddrName,
			Usage: "the address receiving the asset",
		},
		cli.StringFlag{
			Name:  changeAddrName,
			Usage: "the address receiving the change of the burn",
		},
	},
	Action: issue,
}

func issue(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "issue")
	}

	units := ctx.Uint(unitsName)
	if units > 0xff {
		return fmt.Errorf("invalid units: %d", units)
	}

	ctxc := getContext()
	client, cleanUp, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	txids, err := client.Issue(ctxc, rvnrpc.IssueRequest{
		Name:          ctx.Args().First(),
		Quantity:      ctx.Float64(quantityName),
		ToAddress:     ctx.String(toAddrName),
		ChangeAddress: ctx.String(changeAddrName),
		Units:         uint8(units),
		Reissuable:    ctx.Bool(reissuableName),
		IPFSHash:      ctx.String(referenceName),
	})
	if err != nil {
		return fmt.Errorf("unable to issue asset: %w", err)
	}

	return printJSON(ctx, newTxidsResponse(txids))
}

var issueUniqueCommand = cli.Command{
	Name:      "issueunique",
	ShortName: "u",
	Usage:     "issue unique assets under an existing asset",
	ArgsUsage: "parent",
	Flags: []cli.Flag{
		cli.StringSliceFlag{
			Name:  tagsName,
			Usage: "a unique tag to issue, can be repeated",
		},
		cli.StringSliceFlag{
			Name: referenceName,
			Usage: "an IPFS hash or hex txid per tag, can be " +
				"repeated",
		},
		cli.StringFlag{
			Name:  toAddrName,
			Usage: "the address receiving the assets",
		},
		cli.StringFlag{
			Name:  changeAddrName,
			Usage: "the address receiving the change of the burn",
		},
	},
	Action: issueUnique,
}

func issueUnique(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "issueunique")
	}

	ctxc := getContext()
	client, cleanUp, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	txids, err := client.IssueUnique(
		ctxc, ctx.Args().First(), ctx.StringSlice(tagsName),
		ctx.StringSlice(referenceName), ctx.String(toAddrName),
		ctx.String(changeAddrName),
	)
	if err != nil {
		return fmt.Errorf("unable to issue unique assets: %w", err)
	}

	return printJSON(ctx, newTxidsResponse(txids))
}

var reissueCommand = cli.Command{
	Name:      "reissue",
	ShortName: "r",
	Usage:     "issue more of a reissuable asset",
	ArgsUsage: "full_name",
	Flags: []cli.Flag{
		cli.Float64Flag{
			Name:  quantityName,
			Usage: "the additional amount in display units",
		},
		cli.IntFlag{
			Name:  unitsName,
			Usage: "the new number of decimal places, -1 keeps them",
			Value: -1,
		},
		cli.BoolTFlag{
			Name: reissuableName,
			Usage: "keep the asset reissuable, set to false to " +
				"lock the supply",
		},
		cli.StringFlag{
			Name:  referenceName,
			Usage: "a new IPFS hash or hex txid to attach",
		},
		cli.StringFlag{
			Name:  toAddrName,
			Usage: "the address receiving the new amount",
		},
		cli.StringFlag{
			Name:  changeAddrName,
			Usage: "the address receiving the change of the burn",
		},
	},
	Action: reissue,
}

func reissue(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "reissue")
	}

	req := rvnrpc.ReissueRequest{
		Name:          ctx.Args().First(),
		Quantity:      ctx.Float64(quantityName),
		ToAddress:     ctx.String(toAddrName),
		ChangeAddress: ctx.String(changeAddrName),
		Reissuable:    ctx.BoolT(reissuableName),
		NewIPFSHash:   ctx.String(referenceName),
	}
	switch units := ctx.Int(unitsName); {
	case units > 0xff:
		return fmt.Errorf("invalid units: %d", units)

	case units >= 0:
		newUnits := uint8(units)
		req.NewUnits = &newUnits
	}

	ctxc := getContext()
	client, cleanUp, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	txids, err := client.Reissue(ctxc, req)
	if err != nil {
		return fmt.Errorf("unable to reissue asset: %w", err)
	}

	return printJSON(ctx, newTxidsResponse(txids))
}

var transferCommand = cli.Command{
	Name:      "transfer",
	ShortName: "t",
	Usage:     "send an amount of an asset to an address",
	ArgsUsage: "full_name",
	Flags: []cli.Flag{
		cli.Float64Flag{
			Name:  quantityName,
			Usage: "the amount to send in display units",
		},
		cli.StringFlag{
			Name:  toAddrName,
			Usage: "the destination address",
		},
	},
	Action: transfer,
}

func transfer(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "transfer")
	}

	ctxc := getContext()
	client, cleanUp, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	txids, err := client.Transfer(
		ctxc, ctx.Args().First(), ctx.Float64(quantityName),
		ctx.String(toAddrName),
	)
	if err != nil {
		return fmt.Errorf("unable to transfer asset: %w", err)
	}

	return printJSON(ctx, newTxidsResponse(txids))
}

var assetDataCommand = cli.Command{
	Name:      "data",
	ShortName: "d",
	Usage:     "show the node's record of an asset",
	ArgsUsage: "full_name",
	Action:    assetData,
}

type assetDataResponse struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Units      uint8   `json:"units"`
	Reissuable bool    `json:"reissuable"`
	HasIPFS    bool    `json:"has_ipfs"`
	IPFSHash   string  `json:"ipfs_hash,omitempty"`
}

func assetData(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "data")
	}

	ctxc := getContext()
	client, cleanUp, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	data, err := client.AssetData(ctxc, ctx.Args().First())
	if err != nil {
		return err
	}

	return printJSON(ctx, assetDataResponse{
		Name:       data.Name,
		Amount:     data.Amount,
		Units:      data.Units,
		Reissuable: data.Reissuable,
		HasIPFS:    data.HasIPFS,
		IPFSHash:   data.IPFSHash,
	})
}

var listAssetsCommand = cli.Command{
	Name:      "list",
	ShortName: "l",
	Usage:     "list the assets known to the node",
	Description: `
	Lists the names of all assets created on chain, or with --mine the
	balances of the assets held by the node's wallet.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  patternName,
			Usage: "only list assets matching the name, a trailing " +
				"'*' matches by prefix",
		},
		cli.IntFlag{
			Name:  countName,
			Usage: "the maximum number of assets to list, 0 for all",
		},
		cli.IntFlag{
			Name:  startName,
			Usage: "the number of assets to skip",
		},
		cli.BoolFlag{
			Name:  mineName,
			Usage: "list the wallet's balances instead",
		},
	},
	Action: listAssets,
}

type listAssetsResponse struct {
	Assets []string `json:"assets"`
}

type balancesResponse struct {
	Balances map[string]float64 `json:"balances"`
}

func listAssets(ctx *cli.Context) error {
	ctxc := getContext()
	client, cleanUp, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	filter := rvnrpc.ListFilter{
		Pattern: ctx.String(patternName),
		Count:   int32(ctx.Int(countName)),
		Start:   int32(ctx.Int(startName)),
	}

	if ctx.Bool(mineName) {
		balances, err := client.ListMyAssets(ctxc, filter)
		if err != nil {
			return err
		}

		return printJSON(ctx, balancesResponse{Balances: balances})
	}

	names, err := client.ListAssets(ctxc, filter)
	if err != nil {
		return err
	}

	return printJSON(ctx, listAssetsResponse{Assets: names})
}

var holdersCommand = cli.Command{
	Name:      "holders",
	ShortName: "o",
	Usage:     "show the addresses holding an asset",
	ArgsUsage: "full_name",
	Action:    holders,
}

func holders(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "holders")
	}

	ctxc := getContext()
	client, cleanUp, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	balances, err := client.ListAddressesByAsset(
		ctxc, ctx.Args().First(),
	)
	if err != nil {
		return err
	}

	return printJSON(ctx, balancesResponse{Balances: balances})
}

var balancesCommand = cli.Command{
	Name:      "balances",
	ShortName: "b",
	Usage:     "show the asset balances of an address",
	ArgsUsage: "addr",
	Action:    addressBalances,
}

func addressBalances(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "balances")
	}

	ctxc := getContext()
	client, cleanUp, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	balances, err := client.ListAssetBalancesByAddress(
		ctxc, ctx.Args().First(),
	)
	if err != nil {
		return err
	}

	return printJSON(ctx, balancesResponse{Balances: balances})
}

var scanCommand = cli.Command{
	Name:      "scan",
	ShortName: "s",
	Usage:     "decode the asset payloads of a range of blocks",
	Description: `
	Fetches a range of blocks from the node and prints every asset payload
	found in their outputs. Nothing is written to the scanner database.
	`,
	Flags: []cli.Flag{
		cli.Int64Flag{
			Name:  "start",
			Usage: "the first block to scan",
		},
		cli.Int64Flag{
			Name:  "end",
			Usage: "the last block to scan, -1 scans up to the tip",
			Value: -1,
		},
		cli.BoolFlag{
			Name:  "skip_null_data",
			Usage: "leave out payloads without the asset prefix",
		},
	},
	Action: scanBlocks,
}

// collectSink keeps scanned blocks in memory.
type collectSink struct {
	mtx    sync.Mutex
	blocks []*chainscan.ScannedBlock
}

func (c *collectSink) StoreBlock(_ context.Context,
	block *chainscan.ScannedBlock) error {

	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.blocks = append(c.blocks, block)
	return nil
}

func (c *collectSink) LastHeight(context.Context) (int64, bool, error) {
	return 0, false, nil
}

// jsonScannedPayload is the printed form of a payload found on chain.
type jsonScannedPayload struct {
	Height  int64       `json:"height"`
	Txid    string      `json:"txid"`
	Vout    uint32      `json:"vout"`
	Index   uint32      `json:"index"`
	Payload jsonPayload `json:"payload"`
}

func newJSONScannedPayloads(
	payloads []chainscan.ScannedPayload) []jsonScannedPayload {

	resp := make([]jsonScannedPayload, 0, len(payloads))
	for _, p := range payloads {
		resp = append(resp, jsonScannedPayload{
			Height:  p.Height,
			Txid:    p.TxID.String(),
			Vout:    p.Vout,
			Index:   p.Index,
			Payload: newJSONPayload(p.Payload),
		})
	}

	return resp
}

type scanResponse struct {
	Blocks   int64                `json:"blocks"`
	Outputs  int64                `json:"outputs"`
	Failures int64                `json:"failures"`
	Payloads []jsonScannedPayload `json:"payloads"`
}

func scanBlocks(ctx *cli.Context) error {
	ctxc := getContext()
	client, cleanUp, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	sink := &collectSink{}
	scanner := chainscan.New(&chainscan.Config{
		Source:       client,
		Sink:         sink,
		SkipNullData: ctx.Bool("skip_null_data"),
	})

	stats, err := scanner.Scan(ctxc, ctx.Int64("start"), ctx.Int64("end"))
	if err != nil {
		return err
	}

	resp := scanResponse{
		Blocks:   stats.Blocks,
		Outputs:  stats.Outputs,
		Failures: stats.Failures,
		Payloads: []jsonScannedPayload{},
	}
	for _, block := range sink.blocks {
		resp.Payloads = append(
			resp.Payloads, newJSONScannedPayloads(block.Payloads)...,
		)
	}

	return printJSON(ctx, resp)
}
