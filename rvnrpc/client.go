package rvnrpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/rvnlabs/rvnassets/address"
	"github.com/rvnlabs/rvnassets/fn"
	"github.com/tidwall/gjson"
)

// verbosityTxDetails makes getblock return every transaction with its raw hex
// encoding. Blocks are never deserialized as a whole since their header
// differs from the bitcoin header.
const verbosityTxDetails = 2

var (
	// ErrMalformedResponse is returned when the node's response doesn't
	// have the expected shape.
	ErrMalformedResponse = errors.New("rvnrpc: malformed response")
)

// Config holds the connection parameters of the node's JSON-RPC interface.
//
//nolint:lll
type Config struct {
	Host     string `long:"host" description:"The host:port of the node's JSON-RPC interface"`
	User     string `long:"user" description:"Username for RPC connections"`
	Pass     string `long:"pass" default-mask:"-" description:"Password for RPC connections"`
	TLS      bool   `long:"tls" description:"Connect to the node over TLS, the node's own RPC server only speaks plain HTTP"`
	CertPath string `long:"rpccert" description:"File containing the certificate of a TLS proxy in front of the node"`
}

// nodeConn is the subset of the btcd RPC client the Client uses.
type nodeConn interface {
	GetBlockCount() (int64, error)
	GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
	RawRequest(method string, params []json.RawMessage) (json.RawMessage,
		error)
	Shutdown()
}

// Client is a thin wrapper around a node's JSON-RPC interface. Every call
// checks the context before going out to the node. Read-only calls are
// retried on transport failures, calls that spend funds are not.
type Client struct {
	conn   nodeConn
	params *address.ChainParams
	retry  fn.RetryConfig
}

// New connects to the node described by the config. The connection uses HTTP
// POST mode, so no connection is made until the first call.
func New(cfg *Config, params *address.ChainParams,
	certs []byte) (*Client, error) {

	conn, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   !cfg.TLS,
		Certificates: certs,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create rpc client: %w", err)
	}

	return newClient(conn, params), nil
}

// newClient wraps an existing connection.
func newClient(conn nodeConn, params *address.ChainParams) *Client {
	return &Client{
		conn:   conn,
		params: params,
		retry:  fn.DefaultRetryConfig(),
	}
}

// Params returns the network parameters the client was created for.
func (c *Client) Params() *address.ChainParams {
	return c.params
}

// Stop shuts down the underlying connection.
func (c *Client) Stop() {
	c.conn.Shutdown()
}

// isPermanent returns true for errors reported by the node itself, which
// won't go away by retrying.
func isPermanent(err error) bool {
	return fn.ErrorAs[*btcjson.RPCError](err)
}

// query runs a read-only call, retrying on transport failures.
func query[T any](ctx context.Context, c *Client, method string,
	call func() (T, error)) (T, error) {

	var (
		zero      T
		permanent error
	)
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	log.Tracef("Calling %v", method)

	result, err := fn.RetryFuncN(ctx, c.retry, func() (T, error) {
		result, err := call()
		switch {
		case err == nil:
			return result, nil

		case isPermanent(err):
			permanent = err
			return zero, nil

		default:
			log.Debugf("Call to %v failed, retrying: %v", method,
				err)
			return zero, err
		}
	})
	if permanent != nil {
		return zero, fmt.Errorf("%v failed: %w", method, permanent)
	}
	if err != nil {
		return zero, fmt.Errorf("%v failed: %w", method, err)
	}

	return result, nil
}

// send runs a call exactly once.
func (c *Client) send(ctx context.Context, method string,
	params ...interface{}) (json.RawMessage, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rawParams, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	log.Debugf("Calling %v", method)

	resp, err := c.conn.RawRequest(method, rawParams)
	if err != nil {
		return nil, fmt.Errorf("%v failed: %w", method, err)
	}

	return resp, nil
}

// rawQuery runs a read-only raw call.
func (c *Client) rawQuery(ctx context.Context, method string,
	params ...interface{}) (json.RawMessage, error) {

	rawParams, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	return query(ctx, c, method, func() (json.RawMessage, error) {
		return c.conn.RawRequest(method, rawParams)
	})
}

func marshalParams(params []interface{}) ([]json.RawMessage, error) {
	return fn.MapErr(params, func(p interface{}) (json.RawMessage, error) {
		return json.Marshal(p)
	})
}

// BlockCount returns the height of the node's best block.
func (c *Client) BlockCount(ctx context.Context) (int64, error) {
	return query(ctx, c, "getblockcount", c.conn.GetBlockCount)
}

// BlockHash returns the hash of the main chain block at the given height.
func (c *Client) BlockHash(ctx context.Context,
	height int64) (*chainhash.Hash, error) {

	return query(ctx, c, "getblockhash", func() (*chainhash.Hash, error) {
		return c.conn.GetBlockHash(height)
	})
}

// BlockTransactions returns the transactions of a block in block order.
func (c *Client) BlockTransactions(ctx context.Context,
	hash *chainhash.Hash) ([]*wire.MsgTx, error) {

	resp, err := c.rawQuery(
		ctx, "getblock", hash.String(), verbosityTxDetails,
	)
	if err != nil {
		return nil, err
	}

	txs := gjson.GetBytes(resp, "tx")
	if !txs.IsArray() {
		return nil, fmt.Errorf("%w: block %v has no transactions",
			ErrMalformedResponse, hash)
	}

	return fn.MapErr(txs.Array(), func(tx gjson.Result) (*wire.MsgTx,
		error) {

		return decodeTx(tx.Get("hex").String())
	})
}

// decodeTx deserializes a hex encoded transaction.
func decodeTx(txHex string) (*wire.MsgTx, error) {
	if txHex == "" {
		return nil, fmt.Errorf("%w: transaction without hex",
			ErrMalformedResponse)
	}

	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("unable to deserialize tx: %w", err)
	}

	return &tx, nil
}
