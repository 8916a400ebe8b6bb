package sqlc

import (
	"context"
	"database/sql"
)

const insertBlock = `
INSERT INTO scanned_blocks (
    height, block_hash, num_payloads
) VALUES (
    ?, ?, ?
)
`

// InsertBlockParams holds the arguments of InsertBlock.
type InsertBlockParams struct {
	Height      int64
	BlockHash   []byte
	NumPayloads int32
}

func (q *Queries) InsertBlock(ctx context.Context,
	arg InsertBlockParams) error {

	_, err := q.db.ExecContext(
		ctx, insertBlock, arg.Height, arg.BlockHash, arg.NumPayloads,
	)
	return err
}

const insertPayload = `
INSERT INTO asset_payloads (
    height, txid, vout, payload_index, payload_type, asset_name, amount,
    raw_payload
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?
)
`

// InsertPayloadParams holds the arguments of InsertPayload.
type InsertPayloadParams struct {
	Height       int64
	Txid         []byte
	Vout         int32
	PayloadIndex int32
	PayloadType  int16
	AssetName    sql.NullString
	Amount       int64
	RawPayload   []byte
}

func (q *Queries) InsertPayload(ctx context.Context,
	arg InsertPayloadParams) error {

	_, err := q.db.ExecContext(ctx, insertPayload,
		arg.Height,
		arg.Txid,
		arg.Vout,
		arg.PayloadIndex,
		arg.PayloadType,
		arg.AssetName,
		arg.Amount,
		arg.RawPayload,
	)
	return err
}

const lastBlock = `
SELECT height, block_hash, num_payloads
FROM scanned_blocks
ORDER BY height DESC
LIMIT 1
`

func (q *Queries) LastBlock(ctx context.Context) (ScannedBlock, error) {
	row := q.db.QueryRowContext(ctx, lastBlock)
	var i ScannedBlock
	err := row.Scan(&i.Height, &i.BlockHash, &i.NumPayloads)
	return i, err
}

const fetchBlock = `
SELECT height, block_hash, num_payloads
FROM scanned_blocks
WHERE height = ?
`

func (q *Queries) FetchBlock(ctx context.Context,
	height int64) (ScannedBlock, error) {

	row := q.db.QueryRowContext(ctx, fetchBlock, height)
	var i ScannedBlock
	err := row.Scan(&i.Height, &i.BlockHash, &i.NumPayloads)
	return i, err
}

const payloadsByName = `
SELECT payload_id, height, txid, vout, payload_index, payload_type,
    asset_name, amount, raw_payload
FROM asset_payloads
WHERE asset_name = ?
ORDER BY height, payload_id
`

func (q *Queries) PayloadsByName(ctx context.Context,
	assetName sql.NullString) ([]AssetPayload, error) {

	return q.queryPayloads(ctx, payloadsByName, assetName)
}

const payloadsByHeight = `
SELECT payload_id, height, txid, vout, payload_index, payload_type,
    asset_name, amount, raw_payload
FROM asset_payloads
WHERE height = ?
ORDER BY payload_id
`

func (q *Queries) PayloadsByHeight(ctx context.Context,
	height int64) ([]AssetPayload, error) {

	return q.queryPayloads(ctx, payloadsByHeight, height)
}

// queryPayloads runs a query returning full asset_payloads rows.
func (q *Queries) queryPayloads(ctx context.Context, query string,
	args ...interface{}) ([]AssetPayload, error) {

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AssetPayload
	for rows.Next() {
		var i AssetPayload
		if err := rows.Scan(
			&i.PayloadID,
			&i.Height,
			&i.Txid,
			&i.Vout,
			&i.PayloadIndex,
			&i.PayloadType,
			&i.AssetName,
			&i.Amount,
			&i.RawPayload,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

const deletePayloadsFrom = `
DELETE FROM asset_payloads
WHERE height >= ?
`

func (q *Queries) DeletePayloadsFrom(ctx context.Context, height int64) error {
	_, err := q.db.ExecContext(ctx, deletePayloadsFrom, height)
	return err
}

const deleteBlocksFrom = `
DELETE FROM scanned_blocks
WHERE height >= ?
`

func (q *Queries) DeleteBlocksFrom(ctx context.Context, height int64) error {
	_, err := q.db.ExecContext(ctx, deleteBlocksFrom, height)
	return err
}
