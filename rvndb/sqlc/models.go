package sqlc

import (
	"database/sql"
)

// ScannedBlock is a row of the scanned_blocks table.
type ScannedBlock struct {
	Height      int64
	BlockHash   []byte
	NumPayloads int32
}

// AssetPayload is a row of the asset_payloads table.
type AssetPayload struct {
	PayloadID    int64
	Height       int64
	Txid         []byte
	Vout         int32
	PayloadIndex int32
	PayloadType  int16
	AssetName    sql.NullString
	Amount       int64
	RawPayload   []byte
}
