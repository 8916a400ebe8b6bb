package rvndb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/rvnlabs/rvnassets/asset"
	"github.com/rvnlabs/rvnassets/chainscan"
	"github.com/stretchr/testify/require"
)

// newTestSqliteDB creates a sqlite database in a temporary directory that is
// removed once the test is done.
func newTestSqliteDB(t *testing.T) *SqliteStore {
	t.Helper()

	db, err := NewSqliteStore(&SqliteConfig{
		DatabaseFileName: filepath.Join(t.TempDir(), "tmp.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, db.DB.Close())
	})

	return db
}

func newTestAssetStore(t *testing.T) *AssetStore {
	return NewSqliteAssetStore(newTestSqliteDB(t))
}

func testHash(s string) chainhash.Hash {
	return chainhash.DoubleHashH([]byte(s))
}

func divisor(d uint8) *uint8 {
	return &d
}

func flag(b bool) *bool {
	return &b
}

// testBlock builds a block with a new asset, a transfer and a null data
// payload.
func testBlock(height int64) *chainscan.ScannedBlock {
	txid := testHash(fmt.Sprintf("tx-%d", height))

	return &chainscan.ScannedBlock{
		Height: height,
		Hash:   testHash(fmt.Sprintf("block-%d", height)),
		Payloads: []chainscan.ScannedPayload{{
			Height: height,
			TxID:   txid,
			Vout:   0,
			Payload: &asset.Payload{
				Type:       asset.TypeNew,
				Name:       "NUKA",
				Amount:     21_000_000 * 1e8,
				Divisor:    divisor(8),
				Reissuable: flag(true),
				HasIPFS:    flag(false),
			},
		}, {
			Height: height,
			TxID:   txid,
			Vout:   1,
			Payload: &asset.Payload{
				Type:   asset.TypeTransfer,
				Name:   "NUKA",
				Amount: 1e8,
			},
		}, {
			Height: height,
			TxID:   txid,
			Vout:   1,
			Index:  1,
			Payload: &asset.Payload{
				Type: asset.TypeNullAssetData,
				NullData: &asset.NullAssetData{
					Kind: asset.Verifier,
					Raw:  []byte{0x50, 0x50, 0x41},
				},
			},
		}},
	}
}

// TestStoreAndFetch tests that stored blocks can be read back by height and
// by asset name.
func TestStoreAndFetch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestAssetStore(t)

	_, found, err := store.LastHeight(ctx)
	require.NoError(t, err)
	require.False(t, found)

	empty := &chainscan.ScannedBlock{
		Height: 100,
		Hash:   testHash("block-100"),
	}
	require.NoError(t, store.StoreBlock(ctx, empty))

	block := testBlock(101)
	require.NoError(t, store.StoreBlock(ctx, block))

	height, found, err := store.LastHeight(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 101, height)

	// Empty blocks are tracked too.
	dbBlock, err := store.FetchBlock(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, empty.Hash, dbBlock.Hash)
	require.Empty(t, dbBlock.Payloads)

	dbBlock, err = store.FetchBlock(ctx, 101)
	require.NoError(t, err)
	require.Equal(t, block, dbBlock)

	_, err = store.FetchBlock(ctx, 102)
	require.ErrorIs(t, err, ErrBlockNotFound)

	payloads, err := store.FetchByHeight(ctx, 101)
	require.NoError(t, err)
	require.Equal(t, block.Payloads, payloads)

	// Null data payloads aren't indexed by name.
	byName, err := store.FetchByName(ctx, "NUKA")
	require.NoError(t, err)
	require.Equal(t, block.Payloads[:2], byName)

	byName, err = store.FetchByName(ctx, "COLA")
	require.NoError(t, err)
	require.Empty(t, byName)
}

// TestStoreBlockReplaces tests that storing a block again replaces the block
// and everything above it.
func TestStoreBlockReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestAssetStore(t)

	for height := int64(1); height <= 5; height++ {
		require.NoError(t, store.StoreBlock(ctx, testBlock(height)))
	}

	reorged := &chainscan.ScannedBlock{
		Height: 3,
		Hash:   testHash("reorged-3"),
	}
	require.NoError(t, store.StoreBlock(ctx, reorged))

	height, found, err := store.LastHeight(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 3, height)

	// Payloads of the blocks 1 and 2 survive.
	byName, err := store.FetchByName(ctx, "NUKA")
	require.NoError(t, err)
	require.Len(t, byName, 4)
	for _, p := range byName {
		require.Less(t, p.Height, int64(3))
	}

	require.NoError(t, store.DisconnectFrom(ctx, 2))
	height, found, err = store.LastHeight(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 1, height)
}

// TestStoreDuplicatePayload tests that a payload location can only be stored
// once.
func TestStoreDuplicatePayload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestAssetStore(t)

	block := testBlock(1)
	block.Payloads = append(block.Payloads, block.Payloads[0])

	err := store.StoreBlock(ctx, block)
	require.Error(t, err)
	require.True(t, IsUniqueConstraintViolation(err))

	// The failed block left nothing behind.
	_, found, err := store.LastHeight(ctx)
	require.NoError(t, err)
	require.False(t, found)
}

// TestStoreAsScannerSink tests the store as the sink of a chain scanner.
func TestStoreAsScannerSink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestAssetStore(t)

	var sink chainscan.Sink = store
	for height := int64(0); height < 3; height++ {
		require.NoError(t, sink.StoreBlock(ctx, testBlock(height)))
	}

	payloads, err := store.FetchByName(ctx, "NUKA")
	require.NoError(t, err)
	require.Len(t, payloads, 6)
	for i := 1; i < len(payloads); i++ {
		require.LessOrEqual(t, payloads[i-1].Height, payloads[i].Height)
	}
}

// TestStoreEmptyPush tests that an empty push after the asset marker can be
// stored and read back as empty null data.
func TestStoreEmptyPush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestAssetStore(t)

	payloads, err := asset.DecodeScript([]byte{
		asset.MarkerOpcode, txscript.OP_0, txscript.OP_DROP,
	})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	require.True(t, payloads[0].IsNullData())

	txid := testHash("empty-push")
	block := &chainscan.ScannedBlock{
		Height: 7,
		Hash:   testHash("block-7"),
		Payloads: []chainscan.ScannedPayload{{
			Height:  7,
			TxID:    txid,
			Payload: payloads[0],
		}, {
			Height: 7,
			TxID:   txid,
			Vout:   1,
			Payload: &asset.Payload{
				Type:     asset.TypeNullAssetData,
				NullData: &asset.NullAssetData{},
			},
		}},
	}
	require.NoError(t, store.StoreBlock(ctx, block))

	dbBlock, err := store.FetchBlock(ctx, 7)
	require.NoError(t, err)
	require.Len(t, dbBlock.Payloads, 2)
	for _, p := range dbBlock.Payloads {
		require.True(t, p.Payload.IsNullData())
		require.Equal(t, asset.NullUnknown, p.Payload.NullData.Kind)
		require.Empty(t, p.Payload.NullData.Raw)
	}
}
