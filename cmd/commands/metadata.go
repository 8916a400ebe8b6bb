package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rvnlabs/rvnassets/metadata"
	"github.com/rvnlabs/rvnassets/rvncfg"
	"github.com/urfave/cli"
)

var metadataCommands = []cli.Command{
	{
		Name:      "metadata",
		ShortName: "m",
		Usage:     "Check the metadata document of an asset.",
		Category:  "Names",
		ArgsUsage: "file",
		Description: `
	Parses and validates an asset metadata document, as it is published by
	issuers behind the IPFS reference of an asset. The document is read from
	stdin if the file is "-". The known fields are printed back in document
	order.
	`,
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name: skipValidationName,
				Usage: "don't check the format of the contract " +
					"hash",
			},
		},
		Action: parseMetadata,
	},
}

func parseMetadata(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "metadata")
	}

	var (
		doc  []byte
		err  error
		file = ctx.Args().First()
	)
	if file == "-" {
		doc, err = io.ReadAll(os.Stdin)
	} else {
		doc, err = os.ReadFile(rvncfg.CleanAndExpandPath(file))
	}
	if err != nil {
		return fmt.Errorf("unable to read metadata: %w", err)
	}

	var opts []metadata.Option
	if ctx.Bool(skipValidationName) {
		opts = append(opts, metadata.WithoutValidation())
	}

	meta, err := metadata.Parse(doc, opts...)
	if err != nil {
		return err
	}

	return printJSON(ctx, meta)
}
