package chainscan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/rvnlabs/rvnassets/asset"
	"github.com/stretchr/testify/require"
)

const (
	testTimeout = 5 * time.Second

	// pollInterval is long enough to never fire during a test, ticks are
	// forced instead.
	pollInterval = time.Hour
)

// mockSource is an in-memory chain.
type mockSource struct {
	sync.Mutex

	blocks [][]*wire.MsgTx
	err    error
}

func (m *mockSource) addBlock(txs ...*wire.MsgTx) {
	m.Lock()
	defer m.Unlock()

	m.blocks = append(m.blocks, txs)
}

func blockHash(height int64) chainhash.Hash {
	return chainhash.DoubleHashH([]byte(fmt.Sprintf("block-%d", height)))
}

func (m *mockSource) BlockCount(context.Context) (int64, error) {
	m.Lock()
	defer m.Unlock()

	return int64(len(m.blocks)) - 1, m.err
}

func (m *mockSource) BlockHash(_ context.Context,
	height int64) (*chainhash.Hash, error) {

	m.Lock()
	defer m.Unlock()

	if height >= int64(len(m.blocks)) {
		return nil, fmt.Errorf("unknown block %d", height)
	}

	hash := blockHash(height)
	return &hash, nil
}

func (m *mockSource) BlockTransactions(_ context.Context,
	hash *chainhash.Hash) ([]*wire.MsgTx, error) {

	m.Lock()
	defer m.Unlock()

	for height, txs := range m.blocks {
		if blockHash(int64(height)) == *hash {
			return txs, nil
		}
	}

	return nil, fmt.Errorf("unknown block %v", hash)
}

// mockSink keeps scanned blocks in memory.
type mockSink struct {
	sync.Mutex

	blocks []*ScannedBlock
	err    error
}

func (m *mockSink) StoreBlock(_ context.Context, block *ScannedBlock) error {
	m.Lock()
	defer m.Unlock()

	if m.err != nil {
		return m.err
	}

	m.blocks = append(m.blocks, block)
	return nil
}

func (m *mockSink) LastHeight(context.Context) (int64, bool, error) {
	m.Lock()
	defer m.Unlock()

	if len(m.blocks) == 0 {
		return 0, false, nil
	}

	return m.blocks[len(m.blocks)-1].Height, true, nil
}

func (m *mockSink) payloads() []ScannedPayload {
	m.Lock()
	defer m.Unlock()

	var payloads []ScannedPayload
	for _, block := range m.blocks {
		payloads = append(payloads, block.Payloads...)
	}

	return payloads
}

// assetOutput builds a pay-to-pubkey-hash output followed by the asset
// section carrying the given raw payloads.
func assetOutput(t *testing.T, raws ...[]byte) *wire.TxOut {
	builder := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(make([]byte, 20)).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG)

	if len(raws) > 0 {
		builder.AddOp(asset.MarkerOpcode)
		for _, raw := range raws {
			builder.AddData(raw)
		}
		builder.AddOp(txscript.OP_DROP)
	}

	script, err := builder.Script()
	require.NoError(t, err)

	return wire.NewTxOut(0, script)
}

func encode(t *testing.T, p *asset.Payload) []byte {
	raw, err := asset.EncodePayload(p)
	require.NoError(t, err)

	return raw
}

func newTx(outs ...*wire.TxOut) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{})
	for _, out := range outs {
		tx.AddTxOut(out)
	}

	return tx
}

var (
	transferPayload = &asset.Payload{
		Type:   asset.TypeTransfer,
		Name:   "NUKA/COLA/CAP",
		Amount: 973_700_000_000,
	}

	adminPayload = &asset.Payload{
		Type: asset.TypeAdmin,
		Name: "NUKA!",
	}

	corruptPayload = []byte("rvnx\x04NUKA")

	nullPayload = []byte{0x50, 0x50, 0x41}
)

type scannerHarness struct {
	t       *testing.T
	source  *mockSource
	sink    *mockSink
	ticker  *ticker.Force
	errChan chan error
	scanner *Scanner
}

func newHarness(t *testing.T, skipNullData bool) *scannerHarness {
	h := &scannerHarness{
		t:       t,
		source:  &mockSource{},
		sink:    &mockSink{},
		ticker:  ticker.NewForce(pollInterval),
		errChan: make(chan error, 1),
	}
	h.scanner = New(&Config{
		Source:       h.source,
		Sink:         h.sink,
		PollTicker:   h.ticker,
		SkipNullData: skipNullData,
		ErrChan:      h.errChan,
	})

	return h
}

// populate adds a small chain: an empty genesis, a block with two asset
// outputs and a block with a corrupt and a null data payload.
func (h *scannerHarness) populate() (*wire.MsgTx, *wire.MsgTx) {
	h.source.addBlock(newTx(assetOutput(h.t)))

	assetTx := newTx(
		assetOutput(h.t),
		assetOutput(h.t, encode(h.t, transferPayload)),
		assetOutput(h.t, encode(h.t, adminPayload)),
	)
	h.source.addBlock(assetTx)

	mixedTx := newTx(assetOutput(h.t, corruptPayload, nullPayload))
	h.source.addBlock(newTx(assetOutput(h.t)), mixedTx)

	return assetTx, mixedTx
}

func (h *scannerHarness) waitForHeight(height int64) {
	require.Eventually(h.t, func() bool {
		last, ok, err := h.sink.LastHeight(context.Background())
		require.NoError(h.t, err)
		return ok && last == height
	}, testTimeout, 10*time.Millisecond)
}

// TestScan tests a single scan over a fixed range.
func TestScan(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	assetTx, mixedTx := h.populate()

	stats, err := h.scanner.Scan(context.Background(), 0, -1)
	require.NoError(t, err)
	require.Equal(t, Stats{
		Blocks:   3,
		Outputs:  3,
		Payloads: 3,
		Failures: 1,
	}, stats)
	require.Equal(t, stats, h.scanner.Stats())

	// Every block is handed to the sink, even the ones without payloads.
	require.Len(t, h.sink.blocks, 3)
	for i, block := range h.sink.blocks {
		require.EqualValues(t, i, block.Height)
		require.Equal(t, blockHash(int64(i)), block.Hash)
	}
	require.Empty(t, h.sink.blocks[0].Payloads)

	payloads := h.sink.payloads()
	require.Len(t, payloads, 3)

	require.Equal(t, ScannedPayload{
		Height:  1,
		TxID:    assetTx.TxHash(),
		Vout:    1,
		Payload: transferPayload,
	}, payloads[0])
	require.Equal(t, ScannedPayload{
		Height:  1,
		TxID:    assetTx.TxHash(),
		Vout:    2,
		Payload: adminPayload,
	}, payloads[1])

	// The corrupt payload is skipped, the null data payload after it in
	// the same output is kept.
	null := payloads[2]
	require.EqualValues(t, 2, null.Height)
	require.Equal(t, mixedTx.TxHash(), null.TxID)
	require.EqualValues(t, 1, null.Index)
	require.True(t, null.Payload.IsNullData())
	require.Equal(t, nullPayload, null.Payload.NullData.Raw)
}

// TestScanSkipNullData tests that null data payloads can be dropped.
func TestScanSkipNullData(t *testing.T) {
	t.Parallel()

	h := newHarness(t, true)
	h.populate()

	stats, err := h.scanner.Scan(context.Background(), 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Blocks)
	require.EqualValues(t, 2, stats.Payloads)
	require.EqualValues(t, 1, stats.Failures)

	for _, p := range h.sink.payloads() {
		require.False(t, p.Payload.IsNullData())
	}
}

// TestScanErrors tests that source and sink failures abort a scan.
func TestScanErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.populate()

	_, err := h.scanner.Scan(context.Background(), 2, 1)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = h.scanner.Scan(context.Background(), 0, 5)
	require.ErrorContains(t, err, "unknown block 3")
	require.Len(t, h.sink.blocks, 3)

	errSink := errors.New("disk full")
	h.sink.err = errSink
	_, err = h.scanner.Scan(context.Background(), 0, 0)
	require.ErrorIs(t, err, errSink)

	errSource := errors.New("connection refused")
	h.source.err = errSource
	_, err = h.scanner.Scan(context.Background(), 0, -1)
	require.ErrorIs(t, err, errSource)
}

// TestCatchUp tests that scanning resumes after the sink's last block.
func TestCatchUp(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.populate()

	_, err := h.scanner.Scan(context.Background(), 0, 1)
	require.NoError(t, err)

	stats, err := h.scanner.CatchUp(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Blocks)
	require.Len(t, h.sink.blocks, 3)

	// Nothing left to do at the tip.
	stats, err = h.scanner.CatchUp(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.Blocks)
}

// TestFollowChain tests that the running scanner picks up new blocks on every
// tick.
func TestFollowChain(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.populate()

	require.NoError(t, h.scanner.Start())
	t.Cleanup(func() {
		require.NoError(t, h.scanner.Stop())
	})

	h.waitForHeight(2)

	h.source.addBlock(newTx(assetOutput(t, encode(t, transferPayload))))

	select {
	case h.ticker.Force <- time.Now():
	case <-time.After(testTimeout):
		t.Fatalf("scanner didn't wait for a tick")
	}

	h.waitForHeight(3)
	require.Len(t, h.sink.payloads(), 4)
}

// TestFollowChainError tests that errors while following the chain are
// reported.
func TestFollowChainError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	h.populate()
	h.sink.err = errors.New("disk full")

	require.NoError(t, h.scanner.Start())
	t.Cleanup(func() {
		require.NoError(t, h.scanner.Stop())
	})

	select {
	case err := <-h.errChan:
		require.ErrorIs(t, err, h.sink.err)
	case <-time.After(testTimeout):
		t.Fatalf("no error reported")
	}
}

// TestScanEmptyPush tests that an empty push after the asset marker is kept
// as empty null data instead of failing the block.
func TestScanEmptyPush(t *testing.T) {
	t.Parallel()

	h := newHarness(t, false)
	tx := newTx(assetOutput(t, []byte{}))
	h.source.addBlock(tx)

	script := tx.TxOut[0].PkScript
	require.Equal(t, []byte{
		asset.MarkerOpcode, txscript.OP_0, txscript.OP_DROP,
	}, script[len(script)-3:])

	stats, err := h.scanner.Scan(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, Stats{
		Blocks:   1,
		Outputs:  1,
		Payloads: 1,
	}, stats)

	payloads := h.sink.payloads()
	require.Len(t, payloads, 1)
	require.True(t, payloads[0].Payload.IsNullData())
	require.NotNil(t, payloads[0].Payload.NullData.Raw)
	require.Empty(t, payloads[0].Payload.NullData.Raw)
}
