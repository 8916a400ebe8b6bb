package asset

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrUnknownType is returned when a payload carries the asset prefix
	// but an unknown type tag. This either means the payload uses an
	// operation this version doesn't know about, or it is corrupt.
	ErrUnknownType = errors.New("asset: unknown asset type")

	// ErrTruncated is returned when a payload ends before a mandatory
	// field.
	ErrTruncated = errors.New("asset: truncated payload")

	// ErrInvalidHex is returned when a hex encoded payload can't be
	// decoded.
	ErrInvalidHex = errors.New("asset: invalid hex payload")

	// ErrNonASCIIName is returned when the asset name of a payload isn't
	// plain ASCII.
	ErrNonASCIIName = errors.New("asset: non-ASCII asset name")

	// ErrNameTooLongToEncode is returned when a name doesn't fit the single
	// name length byte.
	ErrNameTooLongToEncode = errors.New("asset: name too long to encode")

	// ErrReferenceTooLong is returned when a txid style reference doesn't
	// fit its length byte.
	ErrReferenceTooLong = errors.New("asset: reference too long")

	// ErrAmbiguousReference is returned when a raw reference starts with
	// the sentinel byte, which would be read back as a txid reference.
	ErrAmbiguousReference = errors.New("asset: raw reference starts " +
		"with the txid sentinel")

	// ErrInvalidTrailer is returned when the optional trailer fields of a
	// payload can't be written, e.g. a reference without a divisor.
	ErrInvalidTrailer = errors.New("asset: invalid optional trailer")
)

// DecodeError is returned for payloads that carry the asset prefix but can't
// be decoded.
type DecodeError struct {
	// Offset is the byte offset into the payload where decoding failed.
	Offset int

	// Err is the reason decoding failed.
	Err error
}

// Error returns a human-readable description of the failure.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode asset payload at offset %d: %v",
		e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// byteCursor is a forward only, length checked reader over a payload.
type byteCursor struct {
	buf []byte
	pos int
}

// remaining returns the number of unread bytes.
func (c *byteCursor) remaining() int {
	return len(c.buf) - c.pos
}

// truncated builds the error for a read of n bytes that doesn't fit.
func (c *byteCursor) truncated(n int, field string) error {
	return &DecodeError{
		Offset: c.pos,
		Err: fmt.Errorf("%w: need %d bytes for %s, have %d",
			ErrTruncated, n, field, c.remaining()),
	}
}

// readByte reads a single byte.
func (c *byteCursor) readByte(field string) (byte, error) {
	if c.remaining() < 1 {
		return 0, c.truncated(1, field)
	}

	b := c.buf[c.pos]
	c.pos++

	return b, nil
}

// readN reads the next n bytes. The returned slice is a copy.
func (c *byteCursor) readN(n int, field string) ([]byte, error) {
	if c.remaining() < n {
		return nil, c.truncated(n, field)
	}

	out := make([]byte, n)
	copy(out, c.buf[c.pos:c.pos+n])
	c.pos += n

	return out, nil
}

// readRest reads all unread bytes.
func (c *byteCursor) readRest() []byte {
	out, _ := c.readN(c.remaining(), "")
	return out
}

// readInt64LE reads a little-endian signed 64-bit integer.
func (c *byteCursor) readInt64LE(field string) (int64, error) {
	b, err := c.readN(8, field)
	if err != nil {
		return 0, err
	}

	return int64(binary.LittleEndian.Uint64(b)), nil
}

// DecodePayloadHex decodes the hex form of an asset payload.
func DecodePayloadHex(s string) (*Payload, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{
			Err: fmt.Errorf("%w: %v", ErrInvalidHex, err),
		}
	}

	return DecodePayload(raw)
}

// DecodePayload decodes the bytes following the asset marker opcode of an
// output script. Payloads without the asset prefix never fail, they're
// returned as classified null asset data. Payloads with the prefix fail with
// a *DecodeError if the type tag is unknown or a mandatory field is cut
// short.
func DecodePayload(raw []byte) (*Payload, error) {
	if len(raw) < len(PayloadPrefix) ||
		!bytes.Equal(raw[:len(PayloadPrefix)], []byte(PayloadPrefix)) {

		return decodeNullData(raw), nil
	}

	c := &byteCursor{buf: raw, pos: len(PayloadPrefix)}

	tag, err := c.readByte("type tag")
	if err != nil {
		return nil, err
	}
	assetType := Type(tag)
	if !assetType.IsKnown() {
		return nil, &DecodeError{
			Offset: c.pos - 1,
			Err: fmt.Errorf("%w: 0x%02x", ErrUnknownType,
				tag),
		}
	}

	nameLen, err := c.readByte("name length")
	if err != nil {
		return nil, err
	}
	nameOffset := c.pos
	nameBytes, err := c.readN(int(nameLen), "asset name")
	if err != nil {
		return nil, err
	}
	for _, b := range nameBytes {
		if b > 0x7f {
			return nil, &DecodeError{
				Offset: nameOffset,
				Err:    ErrNonASCIIName,
			}
		}
	}

	p := &Payload{
		Type: assetType,
		Name: string(nameBytes),
	}

	if assetType == TypeAdmin {
		return p, nil
	}

	p.Amount, err = c.readInt64LE("amount")
	if err != nil {
		return nil, err
	}

	if assetType.hasTrailer() {
		if err := decodeTrailer(c, p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// decodeTrailer reads the optional trailer of new and reissue payloads. The
// whole trailer stops as soon as the cursor runs out of bytes.
func decodeTrailer(c *byteCursor, p *Payload) error {
	if c.remaining() == 0 {
		return nil
	}
	divisor, _ := c.readByte("divisor")
	p.Divisor = &divisor

	if c.remaining() == 0 {
		return nil
	}
	reissuable, _ := c.readByte("reissuable")
	isReissuable := reissuable != 0
	p.Reissuable = &isReissuable

	if p.Type == TypeNew {
		if c.remaining() == 0 {
			return nil
		}
		hasIPFS, _ := c.readByte("has ipfs")
		flag := hasIPFS != 0
		p.HasIPFS = &flag
	}

	if c.remaining() == 0 {
		return nil
	}

	ref, err := decodeReference(c)
	if err != nil {
		return err
	}
	p.Reference = ref

	return nil
}

// decodeReference reads the reference at the end of a trailer. A leading
// sentinel byte is followed by an explicit length byte, anything else is the
// first byte of a raw multihash that runs to the end of the payload.
func decodeReference(c *byteCursor) (*Reference, error) {
	first, _ := c.readByte("reference")
	if first != TxIDRefSentinel {
		data := append([]byte{first}, c.readRest()...)
		return &Reference{Kind: RefIPFS, Data: data}, nil
	}

	refLen, err := c.readByte("reference length")
	if err != nil {
		return nil, err
	}
	data, err := c.readN(int(refLen), "reference")
	if err != nil {
		return nil, err
	}

	return &Reference{Kind: RefTxID, Data: data}, nil
}

// decodeNullData wraps a payload without the asset prefix. The raw bytes are
// never nil, not even for an empty push.
func decodeNullData(raw []byte) *Payload {
	_, kind := ClassifyNullData(raw)

	return &Payload{
		Type: TypeNullAssetData,
		NullData: &NullAssetData{
			Kind: kind,
			Raw:  append([]byte{}, raw...),
		},
	}
}

// Encode writes the wire form of the payload. Decoding the written bytes
// yields the same payload again.
func (p *Payload) Encode(w io.Writer) error {
	if p.Type == TypeNullAssetData {
		if p.NullData == nil {
			return nil
		}
		_, err := w.Write(p.NullData.Raw)
		return err
	}

	if !p.Type.IsKnown() {
		return fmt.Errorf("%w: 0x%02x", ErrUnknownType, uint8(p.Type))
	}
	if len(p.Name) > math.MaxUint8 {
		return fmt.Errorf("%w: %d bytes", ErrNameTooLongToEncode,
			len(p.Name))
	}
	for i := 0; i < len(p.Name); i++ {
		if p.Name[i] > 0x7f {
			return ErrNonASCIIName
		}
	}

	var b bytes.Buffer
	b.WriteString(PayloadPrefix)
	b.WriteByte(byte(p.Type))
	b.WriteByte(byte(len(p.Name)))
	b.WriteString(p.Name)

	if p.Type != TypeAdmin {
		var amount [8]byte
		binary.LittleEndian.PutUint64(amount[:], uint64(p.Amount))
		b.Write(amount[:])
	}

	if p.Type.hasTrailer() {
		if err := p.encodeTrailer(&b); err != nil {
			return err
		}
	}

	_, err := w.Write(b.Bytes())
	return err
}

// encodeTrailer writes the optional trailer fields up to the last one that is
// set. A field can only be written if all fields before it are set.
func (p *Payload) encodeTrailer(b *bytes.Buffer) error {
	fields := []bool{p.Divisor != nil, p.Reissuable != nil}
	if p.Type == TypeNew {
		fields = append(fields, p.HasIPFS != nil)
	}
	fields = append(fields, p.Reference != nil)

	for i := 1; i < len(fields); i++ {
		if fields[i] && !fields[i-1] {
			return ErrInvalidTrailer
		}
	}
	if p.Type == TypeReissue && p.HasIPFS != nil {
		return fmt.Errorf("%w: reissue payloads have no ipfs flag",
			ErrInvalidTrailer)
	}

	if p.Divisor == nil {
		return nil
	}
	b.WriteByte(*p.Divisor)

	if p.Reissuable == nil {
		return nil
	}
	b.WriteByte(boolByte(*p.Reissuable))

	if p.Type == TypeNew {
		if p.HasIPFS == nil {
			return nil
		}
		b.WriteByte(boolByte(*p.HasIPFS))
	}

	if p.Reference == nil {
		return nil
	}

	return encodeReference(b, p.Reference)
}

// encodeReference writes a reference with the framing of its kind.
func encodeReference(b *bytes.Buffer, ref *Reference) error {
	switch ref.Kind {
	case RefIPFS:
		if len(ref.Data) == 0 {
			return fmt.Errorf("%w: empty reference",
				ErrInvalidTrailer)
		}
		if ref.Data[0] == TxIDRefSentinel {
			return ErrAmbiguousReference
		}
		b.Write(ref.Data)

	case RefTxID:
		if len(ref.Data) > math.MaxUint8 {
			return fmt.Errorf("%w: %d bytes", ErrReferenceTooLong,
				len(ref.Data))
		}
		b.WriteByte(TxIDRefSentinel)
		b.WriteByte(byte(len(ref.Data)))
		b.Write(ref.Data)

	default:
		return fmt.Errorf("%w: unknown reference kind %d",
			ErrInvalidTrailer, ref.Kind)
	}

	return nil
}

// EncodePayload returns the wire form of a payload.
func EncodePayload(p *Payload) ([]byte, error) {
	var b bytes.Buffer
	if err := p.Encode(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}

	return 0
}
