package commands

import (
	"fmt"
	"strconv"

	"github.com/rvnlabs/rvnassets/asset"
	"github.com/urfave/cli"
)

var storeCommands = []cli.Command{
	{
		Name:      "store",
		ShortName: "s",
		Usage:     "Query the database of the chain scanner.",
		Category:  "Store",
		Subcommands: []cli.Command{
			storeHeightCommand,
			storeBlockCommand,
			storeAssetCommand,
			storeRollbackCommand,
		},
	},
}

var storeHeightCommand = cli.Command{
	Name:   "height",
	Usage:  "show the height of the last scanned block",
	Action: storeHeight,
}

type heightResponse struct {
	Height  int64 `json:"height"`
	Scanned bool  `json:"scanned"`
}

func storeHeight(ctx *cli.Context) error {
	ctxc := getContext()
	store, cleanUp, err := getStore(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	height, found, err := store.LastHeight(ctxc)
	if err != nil {
		return err
	}

	return printJSON(ctx, heightResponse{
		Height:  height,
		Scanned: found,
	})
}

var storeBlockCommand = cli.Command{
	Name:      "block",
	ShortName: "b",
	Usage:     "show the payloads stored for a block",
	ArgsUsage: "height",
	Action:    storeBlock,
}

type blockResponse struct {
	Height   int64                `json:"height"`
	Hash     string               `json:"hash"`
	Payloads []jsonScannedPayload `json:"payloads"`
}

func storeBlock(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "block")
	}

	height, err := strconv.ParseInt(ctx.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid height: %w", err)
	}

	ctxc := getContext()
	store, cleanUp, err := getStore(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	block, err := store.FetchBlock(ctxc, height)
	if err != nil {
		return err
	}

	return printJSON(ctx, blockResponse{
		Height:   block.Height,
		Hash:     block.Hash.String(),
		Payloads: newJSONScannedPayloads(block.Payloads),
	})
}

var storeAssetCommand = cli.Command{
	Name:      "asset",
	ShortName: "a",
	Usage:     "show the stored history of an asset",
	ArgsUsage: "full_name",
	Description: `
	Lists every stored payload of an asset in chain order, including the
	issuance, reissuances and transfers.
	`,
	Action: storeAsset,
}

type assetHistoryResponse struct {
	Name     string               `json:"name"`
	Payloads []jsonScannedPayload `json:"payloads"`
}

func storeAsset(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "asset")
	}

	name, err := asset.ParseFullName(ctx.Args().First())
	if err != nil {
		return err
	}

	ctxc := getContext()
	store, cleanUp, err := getStore(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	payloads, err := store.FetchByName(ctxc, name.FullName())
	if err != nil {
		return err
	}

	return printJSON(ctx, assetHistoryResponse{
		Name:     name.FullName(),
		Payloads: newJSONScannedPayloads(payloads),
	})
}

var storeRollbackCommand = cli.Command{
	Name:      "rollback",
	ShortName: "r",
	Usage:     "remove all blocks at or above a height",
	Description: `
	Removes the stored blocks and payloads at or above the given height, so
	the scanner picks them up again the next time it runs. rvnscand must not
	be running while the database is changed.
	`,
	Flags: []cli.Flag{
		cli.Int64Flag{
			Name:  heightName,
			Usage: "the first height to remove",
			Value: -1,
		},
		cli.BoolFlag{
			Name:  forceName,
			Usage: "don't ask for confirmation",
		},
	},
	Action: storeRollback,
}

func storeRollback(ctx *cli.Context) error {
	height := ctx.Int64(heightName)
	if height < 0 {
		return cli.ShowCommandHelp(ctx, "rollback")
	}

	if !ctx.Bool(forceName) {
		msg := fmt.Sprintf("Remove all blocks from height %d? "+
			"(yes/no): ", height)
		if !promptForConfirmation(msg) {
			return nil
		}
	}

	ctxc := getContext()
	store, cleanUp, err := getStore(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	if err := store.DisconnectFrom(ctxc, height); err != nil {
		return err
	}

	newHeight, found, err := store.LastHeight(ctxc)
	if err != nil {
		return err
	}

	return printJSON(ctx, heightResponse{
		Height:  newHeight,
		Scanned: found,
	})
}
