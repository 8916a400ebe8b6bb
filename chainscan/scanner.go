package chainscan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/rvnlabs/rvnassets/asset"
	"github.com/rvnlabs/rvnassets/fn"
)

var (
	// ErrInvalidRange is returned when the end of a scan range lies before
	// its start.
	ErrInvalidRange = errors.New("chainscan: invalid block range")

	// ErrScannerShuttingDown is returned by the scanner once Stop has been
	// called.
	ErrScannerShuttingDown = errors.New("chainscan: scanner shutting down")
)

// ChainSource is the view of the chain the scanner needs.
type ChainSource interface {
	// BlockCount returns the height of the best block.
	BlockCount(ctx context.Context) (int64, error)

	// BlockHash returns the hash of the main chain block at a height.
	BlockHash(ctx context.Context, height int64) (*chainhash.Hash, error)

	// BlockTransactions returns the transactions of a block in block
	// order.
	BlockTransactions(ctx context.Context,
		hash *chainhash.Hash) ([]*wire.MsgTx, error)
}

// Sink receives the results of a scan, one block at a time and in height
// order.
type Sink interface {
	// StoreBlock persists the payloads found in a block. It is called for
	// blocks without payloads too, so the sink can track progress.
	StoreBlock(ctx context.Context, block *ScannedBlock) error

	// LastHeight returns the height of the last stored block. The boolean
	// is false if no block was stored yet.
	LastHeight(ctx context.Context) (int64, bool, error)
}

// ScannedPayload is a payload found on chain together with its location.
type ScannedPayload struct {
	// Height is the height of the block the payload was found in.
	Height int64

	// TxID is the id of the transaction carrying the payload.
	TxID chainhash.Hash

	// Vout is the output index within the transaction.
	Vout uint32

	// Index is the position of the payload within the output's script.
	// Scripts with a single marker have one payload at index 0.
	Index uint32

	// Payload is the decoded payload.
	Payload *asset.Payload
}

// ScannedBlock is a block that was scanned for payloads.
type ScannedBlock struct {
	// Height is the block's height.
	Height int64

	// Hash is the block's hash.
	Hash chainhash.Hash

	// Payloads holds the payloads of the block in transaction and output
	// order.
	Payloads []ScannedPayload
}

// Stats counts what a scan has seen.
type Stats struct {
	// Blocks is the number of blocks scanned.
	Blocks int64

	// Outputs is the number of outputs carrying the asset marker.
	Outputs int64

	// Payloads is the number of payloads decoded.
	Payloads int64

	// Failures is the number of payloads that couldn't be decoded.
	Failures int64
}

// add adds the counters of another Stats.
func (s *Stats) add(o Stats) {
	s.Blocks += o.Blocks
	s.Outputs += o.Outputs
	s.Payloads += o.Payloads
	s.Failures += o.Failures
}

// String returns the counters in a log friendly format.
func (s Stats) String() string {
	return fmt.Sprintf("blocks=%d, outputs=%d, payloads=%d, failures=%d",
		s.Blocks, s.Outputs, s.Payloads, s.Failures)
}

// Config holds the dependencies of the Scanner.
type Config struct {
	// Source is where blocks are fetched from.
	Source ChainSource

	// Sink receives the scanned blocks.
	Sink Sink

	// StartHeight is the height the scanner starts at if the sink hasn't
	// stored any block yet.
	StartHeight int64

	// PollTicker signals the scanner to check the chain for new blocks
	// while following the tip.
	PollTicker ticker.Ticker

	// SkipNullData drops payloads without the asset prefix instead of
	// handing them to the sink.
	SkipNullData bool

	// ErrChan is used to report errors that stop the scanner.
	ErrChan chan<- error
}

// Scanner walks the chain block by block, decodes every payload found after
// the asset marker and hands the results to a Sink.
type Scanner struct {
	started sync.Once
	stopped sync.Once

	cfg *Config

	statsMtx sync.Mutex
	stats    Stats

	wg   sync.WaitGroup
	quit chan struct{}
}

// New creates a new scanner.
func New(cfg *Config) *Scanner {
	return &Scanner{
		cfg:  cfg,
		quit: make(chan struct{}),
	}
}

// Start launches the goroutine that follows the chain tip.
func (s *Scanner) Start() error {
	s.started.Do(func() {
		log.Infof("Starting chain scanner")

		s.cfg.PollTicker.Resume()

		s.wg.Add(1)
		go s.followChain()
	})

	return nil
}

// Stop signals the scanner to exit and waits for it.
func (s *Scanner) Stop() error {
	s.stopped.Do(func() {
		log.Infof("Stopping chain scanner")

		close(s.quit)
		s.wg.Wait()

		s.cfg.PollTicker.Stop()
	})

	return nil
}

// Stats returns the totals of all scans done by this scanner.
func (s *Scanner) Stats() Stats {
	s.statsMtx.Lock()
	defer s.statsMtx.Unlock()

	return s.stats
}

// withCancel derives a context that is canceled once the scanner quits.
func (s *Scanner) withCancel(ctx context.Context) (context.Context,
	func()) {

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// followChain catches up with the chain and then polls for new blocks on
// every tick.
//
// NOTE: This MUST be run as a goroutine.
func (s *Scanner) followChain() {
	defer s.wg.Done()

	ctx, cancel := s.withCancel(context.Background())
	defer cancel()

	for {
		_, err := s.CatchUp(ctx)
		switch {
		case err == nil:

		case fn.IsCanceled(err),
			errors.Is(err, ErrScannerShuttingDown):

			return

		default:
			log.Errorf("Unable to scan chain: %v", err)
			s.reportErr(err)
			return
		}

		select {
		case <-s.cfg.PollTicker.Ticks():

		case <-s.quit:
			return
		}
	}
}

// reportErr hands an error to the error channel unless the scanner quits
// first.
func (s *Scanner) reportErr(err error) {
	if s.cfg.ErrChan == nil {
		return
	}

	select {
	case s.cfg.ErrChan <- err:
	case <-s.quit:
	}
}

// CatchUp scans all blocks between the sink's last height and the current
// tip.
func (s *Scanner) CatchUp(ctx context.Context) (Stats, error) {
	start := s.cfg.StartHeight
	last, ok, err := s.cfg.Sink.LastHeight(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("unable to fetch last height: %w",
			err)
	}
	if ok && last+1 > start {
		start = last + 1
	}

	tip, err := s.cfg.Source.BlockCount(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("unable to fetch block count: %w",
			err)
	}
	if start > tip {
		log.Tracef("Scanner at tip %d", tip)
		return Stats{}, nil
	}

	return s.Scan(ctx, start, tip)
}

// Scan scans the blocks from start to end, both inclusive. A negative end
// scans up to the current tip. Blocks are stored in height order, the
// outputs of a block are decoded in parallel.
func (s *Scanner) Scan(ctx context.Context, start, end int64) (Stats,
	error) {

	var stats Stats

	if end < 0 {
		tip, err := s.cfg.Source.BlockCount(ctx)
		if err != nil {
			return stats, fmt.Errorf("unable to fetch block "+
				"count: %w", err)
		}
		end = tip
	}
	if start < 0 || end < start {
		return stats, fmt.Errorf("%w: %d..%d", ErrInvalidRange, start,
			end)
	}

	log.Infof("Scanning blocks %d..%d", start, end)

	for height := start; height <= end; height++ {
		select {
		case <-s.quit:
			return stats, ErrScannerShuttingDown
		default:
		}

		blockStats, err := s.scanBlock(ctx, height)
		if err != nil {
			return stats, err
		}
		stats.add(blockStats)

		s.statsMtx.Lock()
		s.stats.add(blockStats)
		s.statsMtx.Unlock()
	}

	log.Infof("Scanned blocks %d..%d: %v", start, end, stats)

	return stats, nil
}

// markedOutput is an output carrying the asset marker.
type markedOutput struct {
	txid     chainhash.Hash
	vout     uint32
	pkScript []byte
}

// decodedOutput holds the payloads found in one output.
// txOutputs lists the outputs of a transaction.
func txOutputs(tx *wire.MsgTx) []markedOutput {
	txid := tx.TxHash()

	outputs := make([]markedOutput, len(tx.TxOut))
	for vout, txOut := range tx.TxOut {
		outputs[vout] = markedOutput{
			txid:     txid,
			vout:     uint32(vout),
			pkScript: txOut.PkScript,
		}
	}

	return outputs
}

type decodedOutput struct {
	payloads []ScannedPayload
	failures int64
}

// scanBlock scans a single block and hands it to the sink.
func (s *Scanner) scanBlock(ctx context.Context, height int64) (Stats,
	error) {

	hash, err := s.cfg.Source.BlockHash(ctx, height)
	if err != nil {
		return Stats{}, fmt.Errorf("unable to fetch hash of block "+
			"%d: %w", height, err)
	}

	txs, err := s.cfg.Source.BlockTransactions(ctx, hash)
	if err != nil {
		return Stats{}, fmt.Errorf("unable to fetch block %v: %w",
			hash, err)
	}

	outputs := fn.Filter(
		fn.Flatten(fn.Map(txs, txOutputs)),
		func(out markedOutput) bool {
			return asset.HasAssetMarker(out.pkScript)
		},
	)

	decoded, err := fn.ParMap(
		ctx, outputs, func(_ context.Context,
			out markedOutput) (decodedOutput, error) {

			return s.decodeOutput(height, out), nil
		},
	)
	if err != nil {
		return Stats{}, err
	}

	block := &ScannedBlock{
		Height: height,
		Hash:   *hash,
	}
	stats := Stats{
		Blocks:  1,
		Outputs: int64(len(outputs)),
	}
	block.Payloads = fn.Flatten(fn.Map(
		decoded, func(d decodedOutput) []ScannedPayload {
			return d.payloads
		},
	))
	for _, d := range decoded {
		stats.Failures += d.failures
	}
	stats.Payloads = int64(len(block.Payloads))

	if err := s.cfg.Sink.StoreBlock(ctx, block); err != nil {
		return Stats{}, fmt.Errorf("unable to store block %d: %w",
			height, err)
	}

	log.Debugf("Scanned block %d (%v): %v", height, hash, stats)

	return stats, nil
}

// decodeOutput decodes all payloads of a marked output. Payloads that fail
// to decode are logged and counted.
func (s *Scanner) decodeOutput(height int64, out markedOutput) decodedOutput {
	var result decodedOutput

	rawPayloads, err := asset.ExtractPayloads(out.pkScript)
	if err != nil {
		log.Warnf("Unable to parse script of %v:%d: %v", out.txid,
			out.vout, err)
		result.failures++
		return result
	}

	for i, raw := range rawPayloads {
		payload, err := asset.DecodePayload(raw)
		switch {
		case err == nil:

		case fn.ErrorAs[*asset.DecodeError](err):
			log.Warnf("Corrupt asset payload in %v:%d at height "+
				"%d: %v", out.txid, out.vout, height, err)
			result.failures++
			continue

		default:
			log.Warnf("Unable to decode payload in %v:%d: %v",
				out.txid, out.vout, err)
			result.failures++
			continue
		}

		if s.cfg.SkipNullData && payload.IsNullData() {
			continue
		}

		log.Tracef("Decoded payload in %v:%d: %v", out.txid, out.vout,
			spewPayload(payload))

		result.payloads = append(result.payloads, ScannedPayload{
			Height:  height,
			TxID:    out.txid,
			Vout:    out.vout,
			Index:   uint32(i),
			Payload: payload,
		})
	}

	return result
}
