package asset

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	// PayloadPrefix is the magic that starts every asset payload. Payloads
	// without it are treated as null asset data.
	PayloadPrefix = "rvn"

	// MaxDivisor is the highest number of decimal places an asset can be
	// divided into.
	MaxDivisor = 8

	// IPFSHashLen is the length of a raw sha2-256 multihash, the only
	// reference that is presented as base58 text.
	IPFSHashLen = 34

	// TxIDRefSentinel is the first trailer byte that announces an explicit
	// length byte for the reference that follows. It doubles as the
	// marker for txid style references.
	TxIDRefSentinel = 84
)

// Type denotes the kind of asset operation a payload encodes.
type Type uint8

const (
	// TypeNullAssetData is assigned to every payload that doesn't carry
	// the asset prefix.
	TypeNullAssetData Type = 0x00

	// TypeNew issues a new asset.
	TypeNew Type = 'q'

	// TypeAdmin moves the ownership token of an asset.
	TypeAdmin Type = 'o'

	// TypeReissue reissues an existing asset.
	TypeReissue Type = 'r'

	// TypeTransfer transfers an amount of an asset.
	TypeTransfer Type = 't'
)

// String returns a human-readable description of the type.
func (t Type) String() string {
	switch t {
	case TypeNullAssetData:
		return "nullassetdata"
	case TypeNew:
		return "new"
	case TypeAdmin:
		return "admin"
	case TypeReissue:
		return "reissue"
	case TypeTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// IsKnown returns true if the type is one of the four asset operation tags.
func (t Type) IsKnown() bool {
	switch t {
	case TypeNew, TypeAdmin, TypeReissue, TypeTransfer:
		return true
	default:
		return false
	}
}

// hasTrailer returns true for the types that may carry the optional
// divisor/reissuable/reference trailer.
func (t Type) hasTrailer() bool {
	return t == TypeNew || t == TypeReissue
}

// ReferenceKind tells how a reference was framed on the wire.
type ReferenceKind uint8

const (
	// RefIPFS is a raw multihash written without a length prefix.
	RefIPFS ReferenceKind = iota

	// RefTxID is a reference framed by the TxIDRefSentinel byte and an
	// explicit length byte.
	RefTxID
)

// String returns a human-readable description of the reference kind.
func (k ReferenceKind) String() string {
	switch k {
	case RefIPFS:
		return "ipfs"
	case RefTxID:
		return "txid"
	default:
		return "<unknown>"
	}
}

var (
	// ErrInvalidReference is returned when a reference string is neither
	// a base58 multihash nor a hex encoded txid.
	ErrInvalidReference = errors.New("asset: invalid reference")
)

// Reference is the IPFS hash or txid attached to a new or reissued asset.
type Reference struct {
	// Kind is the wire framing of the reference.
	Kind ReferenceKind

	// Data is the raw reference. For RefIPFS this includes the multihash
	// prefix bytes.
	Data []byte
}

// String presents the reference as text: base58 for 34 byte multihashes,
// hex for anything else.
func (r *Reference) String() string {
	if len(r.Data) == IPFSHashLen {
		return base58.Encode(r.Data)
	}

	return hex.EncodeToString(r.Data)
}

// ParseReference parses the text form of a reference. A base58 string that
// decodes to a 34 byte multihash becomes a RefIPFS reference, a 64 character
// hex string becomes a RefTxID reference.
func ParseReference(s string) (*Reference, error) {
	if len(s) == hex.EncodedLen(32) {
		if txid, err := hex.DecodeString(s); err == nil {
			return &Reference{Kind: RefTxID, Data: txid}, nil
		}
	}

	decoded := base58.Decode(s)
	if len(decoded) == IPFSHashLen && decoded[0] != TxIDRefSentinel {
		return &Reference{Kind: RefIPFS, Data: decoded}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidReference, s)
}

// NullAssetData is the classification attached to payloads that don't carry
// the asset prefix.
type NullAssetData struct {
	// Kind is the best effort shape classification of the raw bytes.
	Kind NullAssetKind

	// Raw is the payload as found after the marker opcode.
	Raw []byte
}

// Payload is the decoded form of the data following the asset marker opcode
// in an output script.
type Payload struct {
	// Type is the asset operation. Payloads without the asset prefix are
	// always TypeNullAssetData.
	Type Type

	// Name is the full asset name as found on chain. It is not validated
	// by the decoder, use AssetName for that.
	Name string

	// Amount is the amount in base units. It is not set for admin
	// payloads.
	Amount int64

	// Divisor is the number of decimal places of the asset, if present.
	Divisor *uint8

	// Reissuable is the reissuable flag, if present.
	Reissuable *bool

	// HasIPFS is the has-reference flag of new assets, if present. The
	// flag is carried along but the presence of Reference doesn't depend
	// on it.
	HasIPFS *bool

	// Reference is the IPFS hash or txid reference, if present.
	Reference *Reference

	// NullData is only set for TypeNullAssetData payloads.
	NullData *NullAssetData
}

// AssetName parses and validates the payload's asset name.
func (p *Payload) AssetName() (*Name, error) {
	return ParseFullName(p.Name)
}

// Quantity returns the amount scaled down to display units given the unit
// scale of a network, e.g. 1e8.
func (p *Payload) Quantity(unitScale int64) float64 {
	if unitScale == 0 {
		return float64(p.Amount)
	}

	return float64(p.Amount) / float64(unitScale)
}

// IsNullData returns true if the payload didn't carry the asset prefix.
func (p *Payload) IsNullData() bool {
	return p.Type == TypeNullAssetData
}

// String returns a short human-readable description of the payload.
func (p *Payload) String() string {
	if p.IsNullData() {
		kind := NullUnknown
		if p.NullData != nil {
			kind = p.NullData.Kind
		}
		return fmt.Sprintf("Payload(type=%v, kind=%v)", p.Type, kind)
	}

	return fmt.Sprintf("Payload(type=%v, name=%v, amount=%d)", p.Type,
		p.Name, p.Amount)
}
