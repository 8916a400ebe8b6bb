package commands

import (
	"fmt"

	"github.com/rvnlabs/rvnassets/address"
	"github.com/rvnlabs/rvnassets/asset"
	"github.com/rvnlabs/rvnassets/messaging"
	"github.com/urfave/cli"
)

var nameCommands = []cli.Command{
	{
		Name:      "names",
		ShortName: "n",
		Usage:     "Validate asset and channel names.",
		Category:  "Names",
		Subcommands: []cli.Command{
			parseNameCommand,
			validateNameCommand,
			channelNameCommand,
		},
	},
}

// jsonName is the printed form of a validated name.
type jsonName struct {
	FullName  string `json:"full_name"`
	Kind      string `json:"kind"`
	Segment   string `json:"segment"`
	Parent    string `json:"parent,omitempty"`
	Ownership bool   `json:"ownership"`
	BurnKind  string `json:"burn_kind"`
}

func newJSONName(name *asset.Name) jsonName {
	resp := jsonName{
		FullName:  name.FullName(),
		Kind:      name.Kind().String(),
		Segment:   name.Segment(),
		Ownership: name.IsOwnership(),
		BurnKind:  address.BurnKindForName(name).String(),
	}
	if parent := name.Parent(); parent != nil {
		resp.Parent = parent.FullName()
	}

	return resp
}

var parseNameCommand = cli.Command{
	Name:      "parse",
	ShortName: "p",
	Usage:     "parse and validate a full asset name",
	ArgsUsage: "full_name",
	Description: `
	Splits a full asset name such as ROOT/SUB#TAG into its segments and
	validates every one of them.
	`,
	Action: parseName,
}

func parseName(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "parse")
	}

	name, err := asset.ParseFullName(ctx.Args().First())
	if err != nil {
		return err
	}

	return printJSON(ctx, newJSONName(name))
}

var validateNameCommand = cli.Command{
	Name:      "validate",
	ShortName: "v",
	Usage:     "validate a single name segment",
	ArgsUsage: "segment",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  kindName,
			Usage: "the kind of the segment, one of root, sub or unique",
			Value: asset.KindRoot.String(),
		},
		cli.StringFlag{
			Name:  parentName,
			Usage: "the full name of the parent asset",
		},
		cli.BoolFlag{
			Name:  ownershipName,
			Usage: "validate the name of an ownership token",
		},
	},
	Action: validateName,
}

// parseNameKind maps the name of a name kind to its value.
func parseNameKind(name string) (asset.NameKind, error) {
	for _, k := range []asset.NameKind{
		asset.KindRoot, asset.KindSub, asset.KindUnique,
	} {
		if k.String() == name {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown name kind: %v", name)
}

// parseParent parses the optional parent flag.
func parseParent(ctx *cli.Context) (*asset.Name, error) {
	parent := ctx.String(parentName)
	if parent == "" {
		return nil, nil
	}

	return asset.ParseFullName(parent)
}

func validateName(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "validate")
	}

	kind, err := parseNameKind(ctx.String(kindName))
	if err != nil {
		return err
	}
	parent, err := parseParent(ctx)
	if err != nil {
		return err
	}

	name, err := asset.ValidateName(
		ctx.Args().First(), kind, parent, ctx.Bool(ownershipName),
	)
	if err != nil {
		return err
	}

	return printJSON(ctx, newJSONName(name))
}

var channelNameCommand = cli.Command{
	Name:      "channel",
	ShortName: "c",
	Usage:     "validate a message channel name",
	ArgsUsage: "channel",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  parentName,
			Usage: "the full name of the asset owning the channel",
		},
	},
	Action: channelName,
}

type channelResponse struct {
	FullName string `json:"full_name"`
	Channel  string `json:"channel"`
	Parent   string `json:"parent"`
}

func channelName(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "channel")
	}

	parent, err := parseParent(ctx)
	if err != nil {
		return err
	}

	channel, err := messaging.NewChannel(ctx.Args().First(), parent)
	if err != nil {
		return err
	}

	return printJSON(ctx, channelResponse{
		FullName: channel.FullName(),
		Channel:  channel.Name(),
		Parent:   channel.Parent().FullName(),
	})
}

var burnCommands = []cli.Command{
	{
		Name:      "burn",
		ShortName: "b",
		Usage:     "Show the burn addresses and amounts of the network.",
		Category:  "Names",
		ArgsUsage: "[full_name]",
		Description: `
	Without arguments, every burn address of the network is listed. Given
	a full asset name, only the burn that has to be paid to issue that
	name is shown.
	`,
		Action: burnInfo,
	},
}

type jsonBurn struct {
	Kind    string  `json:"kind"`
	Address string  `json:"address"`
	Amount  int64   `json:"amount"`
	Coins   float64 `json:"coins"`
}

func newJSONBurn(params *address.ChainParams,
	kind address.BurnKind) (jsonBurn, error) {

	addr, err := params.BurnAddress(kind)
	if err != nil {
		return jsonBurn{}, err
	}
	amount, err := params.BurnAmount(kind)
	if err != nil {
		return jsonBurn{}, err
	}

	return jsonBurn{
		Kind:    kind.String(),
		Address: addr,
		Amount:  int64(amount),
		Coins:   amount.ToBTC(),
	}, nil
}

type burnResponse struct {
	Network string     `json:"network"`
	Burns   []jsonBurn `json:"burns"`
}

func burnInfo(ctx *cli.Context) error {
	params, err := getParams(ctx)
	if err != nil {
		return err
	}

	kinds := []address.BurnKind{
		address.BurnIssue, address.BurnReissue, address.BurnIssueSub,
		address.BurnIssueUnique, address.BurnGlobal,
	}
	if ctx.NArg() == 1 {
		name, err := asset.ParseFullName(ctx.Args().First())
		if err != nil {
			return err
		}
		kinds = []address.BurnKind{address.BurnKindForName(name)}
	}

	resp := burnResponse{
		Network: params.Name,
	}
	for _, kind := range kinds {
		burn, err := newJSONBurn(params, kind)
		if err != nil {
			return err
		}
		resp.Burns = append(resp.Burns, burn)
	}

	return printJSON(ctx, resp)
}
