package rvndb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rvnlabs/rvnassets/asset"
	"github.com/rvnlabs/rvnassets/chainscan"
	"github.com/rvnlabs/rvnassets/fn"
	"github.com/rvnlabs/rvnassets/rvndb/sqlc"
)

type (
	// NewBlock is a type alias for the params to insert a scanned block.
	NewBlock = sqlc.InsertBlockParams

	// NewPayload is a type alias for the params to insert a payload.
	NewPayload = sqlc.InsertPayloadParams

	// PayloadRow is a type alias for a stored payload row.
	PayloadRow = sqlc.AssetPayload
)

// ErrBlockNotFound is returned when a block wasn't scanned yet.
var ErrBlockNotFound = errors.New("rvndb: block not found")

// AssetQueries is the set of queries the AssetStore needs.
type AssetQueries interface {
	// InsertBlock inserts a scanned block.
	InsertBlock(ctx context.Context, arg NewBlock) error

	// InsertPayload inserts a payload of a scanned block.
	InsertPayload(ctx context.Context, arg NewPayload) error

	// LastBlock returns the scanned block with the greatest height.
	LastBlock(ctx context.Context) (sqlc.ScannedBlock, error)

	// FetchBlock returns the scanned block at a height.
	FetchBlock(ctx context.Context, height int64) (sqlc.ScannedBlock,
		error)

	// PayloadsByName returns all payloads of an asset in chain order.
	PayloadsByName(ctx context.Context,
		assetName sql.NullString) ([]PayloadRow, error)

	// PayloadsByHeight returns the payloads of a block.
	PayloadsByHeight(ctx context.Context, height int64) ([]PayloadRow,
		error)

	// DeletePayloadsFrom removes the payloads at or above a height.
	DeletePayloadsFrom(ctx context.Context, height int64) error

	// DeleteBlocksFrom removes the blocks at or above a height.
	DeleteBlocksFrom(ctx context.Context, height int64) error
}

// AssetStoreTxOptions defines the set of db txn options the AssetStore
// understands.
type AssetStoreTxOptions struct {
	// readOnly governs if a read only transaction is needed or not.
	readOnly bool
}

// ReadOnly returns true if the transaction should be read only.
//
// NOTE: This implements the TxOptions interface.
func (a *AssetStoreTxOptions) ReadOnly() bool {
	return a.readOnly
}

// NewAssetStoreReadTx creates a new read transaction option set.
func NewAssetStoreReadTx() AssetStoreTxOptions {
	return AssetStoreTxOptions{
		readOnly: true,
	}
}

// BatchedAssetQueries is a version of AssetQueries that's capable of batched
// database operations.
type BatchedAssetQueries interface {
	AssetQueries

	BatchedTx[AssetQueries]
}

// AssetStore keeps the results of the chain scanner.
type AssetStore struct {
	db BatchedAssetQueries
}

// NewAssetStore creates a new AssetStore given an open BatchedAssetQueries
// storage backend.
func NewAssetStore(db BatchedAssetQueries) *AssetStore {
	return &AssetStore{
		db: db,
	}
}

// NewSqliteAssetStore creates an AssetStore on top of a sqlite database.
func NewSqliteAssetStore(db *SqliteStore) *AssetStore {
	txCreator := func(tx *sql.Tx) AssetQueries {
		return db.WithTx(tx)
	}

	return NewAssetStore(NewTransactionExecutor(db, txCreator))
}

// A compile-time assertion to ensure AssetStore satisfies the
// chainscan.Sink interface.
var _ chainscan.Sink = (*AssetStore)(nil)

// StoreBlock stores a scanned block and its payloads. A block that is stored
// again replaces the stored block at that height and everything above it,
// which is what happens when the chain reorganizes.
//
// NOTE: This is part of the chainscan.Sink interface.
func (a *AssetStore) StoreBlock(ctx context.Context,
	block *chainscan.ScannedBlock) error {

	rows, err := fn.MapErr(block.Payloads, newPayloadRow)
	if err != nil {
		return err
	}

	var writeTxOpts AssetStoreTxOptions
	return a.db.ExecTx(ctx, &writeTxOpts, func(q AssetQueries) error {
		if err := disconnectFrom(ctx, q, block.Height); err != nil {
			return err
		}

		err := q.InsertBlock(ctx, NewBlock{
			Height:      block.Height,
			BlockHash:   block.Hash[:],
			NumPayloads: sqlInt32(len(rows)),
		})
		if err != nil {
			return fmt.Errorf("unable to insert block %d: %w",
				block.Height, err)
		}

		for _, row := range rows {
			if err := q.InsertPayload(ctx, row); err != nil {
				return fmt.Errorf("unable to insert payload: %w",
					err)
			}
		}

		return nil
	})
}

// newPayloadRow maps a scanned payload to its database row.
func newPayloadRow(p chainscan.ScannedPayload) (NewPayload, error) {
	raw, err := asset.EncodePayload(p.Payload)
	if err != nil {
		return NewPayload{}, fmt.Errorf("unable to encode payload of "+
			"%v:%d: %w", p.TxID, p.Vout, err)
	}

	// A nil blob is bound as NULL, an empty push is stored as an empty
	// blob.
	if raw == nil {
		raw = []byte{}
	}

	var name sql.NullString
	if !p.Payload.IsNullData() {
		name = sqlStr(p.Payload.Name)
	}

	return NewPayload{
		Height:       p.Height,
		Txid:         p.TxID[:],
		Vout:         sqlInt32(p.Vout),
		PayloadIndex: sqlInt32(p.Index),
		PayloadType:  sqlInt16(p.Payload.Type),
		AssetName:    name,
		Amount:       p.Payload.Amount,
		RawPayload:   raw,
	}, nil
}

// disconnectFrom removes everything stored at or above the given height.
func disconnectFrom(ctx context.Context, q AssetQueries, height int64) error {
	if err := q.DeletePayloadsFrom(ctx, height); err != nil {
		return fmt.Errorf("unable to delete payloads: %w", err)
	}
	if err := q.DeleteBlocksFrom(ctx, height); err != nil {
		return fmt.Errorf("unable to delete blocks: %w", err)
	}

	return nil
}

// DisconnectFrom removes all blocks and payloads at or above the given
// height, so they are scanned again.
func (a *AssetStore) DisconnectFrom(ctx context.Context, height int64) error {
	log.Infof("Disconnecting blocks from height %d", height)

	var writeTxOpts AssetStoreTxOptions
	return a.db.ExecTx(ctx, &writeTxOpts, func(q AssetQueries) error {
		return disconnectFrom(ctx, q, height)
	})
}

// LastHeight returns the height of the last stored block.
//
// NOTE: This is part of the chainscan.Sink interface.
func (a *AssetStore) LastHeight(ctx context.Context) (int64, bool, error) {
	var (
		height int64
		found  bool
	)

	readOpts := NewAssetStoreReadTx()
	dbErr := a.db.ExecTx(ctx, &readOpts, func(q AssetQueries) error {
		block, err := q.LastBlock(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil

		case err != nil:
			return err
		}

		height = block.Height
		found = true

		return nil
	})
	if dbErr != nil {
		return 0, false, fmt.Errorf("unable to fetch last block: %w",
			dbErr)
	}

	return height, found, nil
}

// FetchBlock returns a stored block with its payloads.
func (a *AssetStore) FetchBlock(ctx context.Context,
	height int64) (*chainscan.ScannedBlock, error) {

	var block *chainscan.ScannedBlock

	readOpts := NewAssetStoreReadTx()
	dbErr := a.db.ExecTx(ctx, &readOpts, func(q AssetQueries) error {
		row, err := q.FetchBlock(ctx, height)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("%w: %d", ErrBlockNotFound, height)

		case err != nil:
			return err
		}

		hash, err := chainhash.NewHash(row.BlockHash)
		if err != nil {
			return err
		}

		payloads, err := q.PayloadsByHeight(ctx, height)
		if err != nil {
			return err
		}

		block = &chainscan.ScannedBlock{
			Height: row.Height,
			Hash:   *hash,
		}
		block.Payloads, err = fn.MapErr(payloads, parsePayloadRow)

		return err
	})
	if dbErr != nil {
		return nil, dbErr
	}

	return block, nil
}

// FetchByName returns every stored payload of an asset in chain order. The
// name must be the full name as it appears on chain.
func (a *AssetStore) FetchByName(ctx context.Context,
	name string) ([]chainscan.ScannedPayload, error) {

	var payloads []chainscan.ScannedPayload

	readOpts := NewAssetStoreReadTx()
	dbErr := a.db.ExecTx(ctx, &readOpts, func(q AssetQueries) error {
		rows, err := q.PayloadsByName(ctx, sqlStr(name))
		if err != nil {
			return err
		}

		payloads, err = fn.MapErr(rows, parsePayloadRow)
		return err
	})
	if dbErr != nil {
		return nil, fmt.Errorf("unable to fetch payloads of %v: %w",
			name, dbErr)
	}

	return payloads, nil
}

// FetchByHeight returns the stored payloads of a block.
func (a *AssetStore) FetchByHeight(ctx context.Context,
	height int64) ([]chainscan.ScannedPayload, error) {

	var payloads []chainscan.ScannedPayload

	readOpts := NewAssetStoreReadTx()
	dbErr := a.db.ExecTx(ctx, &readOpts, func(q AssetQueries) error {
		rows, err := q.PayloadsByHeight(ctx, height)
		if err != nil {
			return err
		}

		payloads, err = fn.MapErr(rows, parsePayloadRow)
		return err
	})
	if dbErr != nil {
		return nil, fmt.Errorf("unable to fetch payloads at height "+
			"%d: %w", height, dbErr)
	}

	return payloads, nil
}

// parsePayloadRow maps a database row back to a scanned payload.
func parsePayloadRow(row PayloadRow) (chainscan.ScannedPayload, error) {
	txid, err := chainhash.NewHash(row.Txid)
	if err != nil {
		return chainscan.ScannedPayload{}, err
	}

	payload, err := asset.DecodePayload(row.RawPayload)
	if err != nil {
		return chainscan.ScannedPayload{}, fmt.Errorf("unable to "+
			"decode stored payload %d: %w", row.PayloadID, err)
	}

	return chainscan.ScannedPayload{
		Height:  row.Height,
		TxID:    *txid,
		Vout:    extractSqlInt32[uint32](row.Vout),
		Index:   extractSqlInt32[uint32](row.PayloadIndex),
		Payload: payload,
	}, nil
}
