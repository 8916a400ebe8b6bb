package asset

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

const (
	// MarkerOpcode is the OP_RVN_ASSET opcode that announces asset data in
	// an output script. On chain it is followed by the payload push and a
	// terminating OP_DROP.
	MarkerOpcode = 0xc0

	// scriptVersion is the only script version the tokenizer is run with.
	scriptVersion = 0
)

// HasAssetMarker returns true if the script contains the asset marker opcode
// at an opcode boundary.
func HasAssetMarker(pkScript []byte) bool {
	tokenizer := txscript.MakeScriptTokenizer(scriptVersion, pkScript)
	for tokenizer.Next() {
		if tokenizer.Opcode() == MarkerOpcode {
			return true
		}
	}

	return false
}

// ExtractPayloads returns the data pushes that follow every asset marker
// opcode in the script. Collection after a marker stops at the next opcode
// that isn't a data push, so the terminating OP_DROP is never included.
//
// Every push is returned on its own and collection also stops at
// OP_RESERVED. Null asset, global restriction and verifier sections are
// therefore never returned as a single raw section, callers that need them
// classify the bytes after the marker with ClassifyNullData themselves.
func ExtractPayloads(pkScript []byte) ([][]byte, error) {
	var (
		payloads  [][]byte
		collect   bool
		tokenizer = txscript.MakeScriptTokenizer(
			scriptVersion, pkScript,
		)
	)
	for tokenizer.Next() {
		op := tokenizer.Opcode()

		switch {
		case op == MarkerOpcode:
			collect = true

		case collect && op <= txscript.OP_PUSHDATA4:
			data := append([]byte(nil), tokenizer.Data()...)
			payloads = append(payloads, data)

		default:
			collect = false
		}
	}
	if err := tokenizer.Err(); err != nil {
		return nil, fmt.Errorf("unable to parse script: %w", err)
	}

	return payloads, nil
}

// DecodeScript extracts and decodes every asset payload of an output script.
// The first payload that fails to decode aborts the whole script.
func DecodeScript(pkScript []byte) ([]*Payload, error) {
	raws, err := ExtractPayloads(pkScript)
	if err != nil {
		return nil, err
	}

	payloads := make([]*Payload, 0, len(raws))
	for _, raw := range raws {
		p, err := DecodePayload(raw)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}

	return payloads, nil
}

// PayloadScript builds the asset section of an output script for the given
// payload: the marker opcode, the payload push and OP_DROP. It is appended to
// a regular pay-to-address script by wallets.
func PayloadScript(p *Payload) ([]byte, error) {
	raw, err := EncodePayload(p)
	if err != nil {
		return nil, err
	}

	return txscript.NewScriptBuilder().
		AddOp(MarkerOpcode).
		AddData(raw).
		AddOp(txscript.OP_DROP).
		Script()
}
