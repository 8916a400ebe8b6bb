package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/rvnlabs/rvnassets/address"
	"github.com/rvnlabs/rvnassets/asset"
	"github.com/urfave/cli"
)

var payloadCommands = []cli.Command{
	{
		Name:      "payloads",
		ShortName: "p",
		Usage:     "Decode and encode asset payloads.",
		Category:  "Payloads",
		Subcommands: []cli.Command{
			decodePayloadCommand,
			decodeScriptCommand,
			encodePayloadCommand,
		},
	},
}

var (
	payloadTypeName    = "type"
	assetNameName      = "name"
	amountName         = "amount"
	divisorName        = "divisor"
	reissuableName     = "reissuable"
	referenceName      = "reference"
	addrName           = "addr"
	parentName         = "parent"
	kindName           = "kind"
	ownershipName      = "ownership"
	forceName          = "force"
	heightName         = "height"
	quantityName       = "quantity"
	unitsName          = "units"
	toAddrName         = "to_addr"
	changeAddrName     = "change_addr"
	tagsName           = "tag"
	skipValidationName = "skip_validation"
	patternName        = "pattern"
	countName          = "count"
	startName          = "start"
	mineName           = "mine"
)

// jsonReference is the text form of an attached reference.
type jsonReference struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// jsonPayload is the printed form of a decoded payload.
type jsonPayload struct {
	Type       string         `json:"type"`
	Name       string         `json:"name,omitempty"`
	Amount     int64          `json:"amount"`
	Quantity   float64        `json:"quantity"`
	Divisor    *uint8         `json:"divisor,omitempty"`
	Reissuable *bool          `json:"reissuable,omitempty"`
	HasIPFS    *bool          `json:"has_ipfs,omitempty"`
	Reference  *jsonReference `json:"reference,omitempty"`
	NullKind   string         `json:"null_kind,omitempty"`
	Raw        string         `json:"raw,omitempty"`
}

func newJSONPayload(p *asset.Payload) jsonPayload {
	resp := jsonPayload{
		Type:       p.Type.String(),
		Name:       p.Name,
		Amount:     p.Amount,
		Quantity:   p.Quantity(address.UnitScale),
		Divisor:    p.Divisor,
		Reissuable: p.Reissuable,
		HasIPFS:    p.HasIPFS,
	}
	if p.Reference != nil {
		resp.Reference = &jsonReference{
			Kind:  p.Reference.Kind.String(),
			Value: p.Reference.String(),
		}
	}
	if p.NullData != nil {
		resp.NullKind = p.NullData.Kind.String()
		resp.Raw = hex.EncodeToString(p.NullData.Raw)
	}

	return resp
}

var decodePayloadCommand = cli.Command{
	Name:      "decode",
	ShortName: "d",
	Usage:     "decode a hex encoded asset payload",
	ArgsUsage: "payload_hex",
	Description: `
	Decodes the bytes that follow the asset marker opcode of an output
	script. Payloads without the asset prefix are classified as null asset
	data instead.
	`,
	Action: decodePayload,
}

func decodePayload(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "decode")
	}

	payload, err := asset.DecodePayloadHex(ctx.Args().First())
	if err != nil {
		return err
	}

	return printJSON(ctx, newJSONPayload(payload))
}

var decodeScriptCommand = cli.Command{
	Name:      "script",
	ShortName: "s",
	Usage:     "decode the asset payloads of an output script",
	ArgsUsage: "script_hex",
	Description: `
	Extracts and decodes every payload of a hex encoded output script. The
	script is also checked against the burn addresses of the network.
	`,
	Action: decodeScript,
}

type scriptResponse struct {
	Payloads []jsonPayload `json:"payloads"`
	BurnKind string        `json:"burn_kind,omitempty"`
}

func decodeScript(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "script")
	}

	params, err := getParams(ctx)
	if err != nil {
		return err
	}

	pkScript, err := hex.DecodeString(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid script hex: %w", err)
	}

	payloads, err := asset.DecodeScript(pkScript)
	if err != nil {
		return err
	}

	resp := scriptResponse{
		Payloads: make([]jsonPayload, 0, len(payloads)),
	}
	for _, p := range payloads {
		resp.Payloads = append(resp.Payloads, newJSONPayload(p))
	}
	if kind, ok := params.IsBurnScript(pkScript); ok {
		resp.BurnKind = kind.String()
	}

	return printJSON(ctx, resp)
}

var encodePayloadCommand = cli.Command{
	Name:      "encode",
	ShortName: "e",
	Usage:     "encode an asset payload",
	Description: `
	Encodes an asset payload and the script section that carries it. If an
	address is given, the full output script paying the asset to that
	address is returned as well.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name: payloadTypeName,
			Usage: "the asset operation, one of new, transfer, " +
				"reissue or admin",
			Value: asset.TypeTransfer.String(),
		},
		cli.StringFlag{
			Name:  assetNameName,
			Usage: "the full name of the asset",
		},
		cli.Int64Flag{
			Name:  amountName,
			Usage: "the amount in base units",
		},
		cli.IntFlag{
			Name: divisorName,
			Usage: "the number of decimal places, only for new " +
				"and reissue payloads; -1 leaves the trailer " +
				"out",
			Value: -1,
		},
		cli.BoolFlag{
			Name:  reissuableName,
			Usage: "mark the asset as reissuable",
		},
		cli.StringFlag{
			Name: referenceName,
			Usage: "an IPFS hash or hex txid to attach, requires " +
				"--divisor",
		},
		cli.StringFlag{
			Name:  addrName,
			Usage: "the address the output pays to",
		},
	},
	Action: encodePayload,
}

// parsePayloadType maps the name of an asset operation to its type tag.
func parsePayloadType(name string) (asset.Type, error) {
	for _, t := range []asset.Type{
		asset.TypeNew, asset.TypeTransfer, asset.TypeReissue,
		asset.TypeAdmin,
	} {
		if t.String() == name {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unknown payload type: %v", name)
}

type encodeResponse struct {
	Payload  string `json:"payload"`
	Script   string `json:"script"`
	PkScript string `json:"pk_script,omitempty"`
}

func encodePayload(ctx *cli.Context) error {
	payloadType, err := parsePayloadType(ctx.String(payloadTypeName))
	if err != nil {
		return err
	}

	name, err := asset.ParseFullName(ctx.String(assetNameName))
	if err != nil {
		return err
	}

	payload := &asset.Payload{
		Type:   payloadType,
		Name:   name.FullName(),
		Amount: ctx.Int64(amountName),
	}

	switch divisor := ctx.Int(divisorName); {
	case divisor < 0:
		if ctx.String(referenceName) != "" {
			return fmt.Errorf("a reference requires --%s",
				divisorName)
		}

	case divisor > asset.MaxDivisor:
		return fmt.Errorf("divisor must be at most %d",
			asset.MaxDivisor)

	case payloadType == asset.TypeNew || payloadType == asset.TypeReissue:
		d := uint8(divisor)
		reissuable := ctx.Bool(reissuableName)
		payload.Divisor = &d
		payload.Reissuable = &reissuable

		var ref *asset.Reference
		if refStr := ctx.String(referenceName); refStr != "" {
			ref, err = asset.ParseReference(refStr)
			if err != nil {
				return err
			}
			payload.Reference = ref
		}
		if payloadType == asset.TypeNew {
			hasIPFS := ref != nil
			payload.HasIPFS = &hasIPFS
		}

	default:
		return fmt.Errorf("--%s is only valid for new and reissue "+
			"payloads", divisorName)
	}

	raw, err := asset.EncodePayload(payload)
	if err != nil {
		return err
	}
	script, err := asset.PayloadScript(payload)
	if err != nil {
		return err
	}

	resp := encodeResponse{
		Payload: hex.EncodeToString(raw),
		Script:  hex.EncodeToString(script),
	}

	if addrStr := ctx.String(addrName); addrStr != "" {
		params, err := getParams(ctx)
		if err != nil {
			return err
		}

		addr, err := btcutil.DecodeAddress(addrStr, params.Params)
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
		if !addr.IsForNet(params.Params) {
			return fmt.Errorf("%v is not a %v address", addrStr,
				params.Name)
		}

		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return err
		}
		resp.PkScript = hex.EncodeToString(append(pkScript, script...))
	}

	return printJSON(ctx, resp)
}
