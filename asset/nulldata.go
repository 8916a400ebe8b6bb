package asset

import "github.com/btcsuite/btcd/txscript"

// NullAssetKind is the shape of a null asset data payload.
type NullAssetKind int8

const (
	// NullUnknown is returned when a payload matches none of the known
	// null asset data shapes.
	NullUnknown NullAssetKind = -1

	// NullAsset is a 20 byte hash prefixed null asset record.
	NullAsset NullAssetKind = 0

	// GlobalRestriction is a global restriction record.
	GlobalRestriction NullAssetKind = 1

	// Verifier is a verifier string record.
	Verifier NullAssetKind = 2
)

const (
	// nullAssetHashPush is the push opcode of the 20 byte hash that starts
	// a null asset record.
	nullAssetHashPush = 0x14
)

// String returns a human-readable description of the kind.
func (k NullAssetKind) String() string {
	switch k {
	case NullAsset:
		return "nullasset"
	case GlobalRestriction:
		return "globalrestriction"
	case Verifier:
		return "verifier"
	default:
		return "unknown"
	}
}

// ClassifyNullData sniffs the shape of a payload that didn't carry the asset
// prefix. The length gates are tried in order and only the first one that
// applies is checked, so a long payload that doesn't start with the hash push
// is never tried as a restriction or verifier. A false result means the
// payload couldn't be classified, it is not an error.
func ClassifyNullData(raw []byte) (bool, NullAssetKind) {
	switch {
	case len(raw) > 22:
		if raw[0] == nullAssetHashPush {
			return true, NullAsset
		}

	case len(raw) > 5:
		if isReservedPair(raw) {
			return true, GlobalRestriction
		}

	case len(raw) > 2:
		if isReservedPair(raw) {
			return true, Verifier
		}
	}

	return false, NullUnknown
}

// isReservedPair returns true if the first two bytes are both OP_RESERVED.
func isReservedPair(raw []byte) bool {
	return raw[0] == txscript.OP_RESERVED && raw[1] == txscript.OP_RESERVED
}
