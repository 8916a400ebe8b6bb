package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Keys of the metadata document, in the order they're presented.
const (
	KeyContractURL       = "contract_url"
	KeyContractHash      = "contract_hash"
	KeyContractSignature = "contract_signature"
	KeyContractAddress   = "contract_address"
	KeySymbol            = "symbol"
	KeyName              = "name"
	KeyIssuer            = "issuer"
	KeyDescription       = "description"
	KeyDescriptionMIME   = "description_mime"
	KeyType              = "type"
	KeyWebsiteURL        = "website_url"
	KeyIcon              = "icon"
	KeyImageURL          = "image_url"
	KeyContactName       = "contact_name"
	KeyContactEmail      = "contact_email"
	KeyContactAddress    = "contact_address"
	KeyContactPhone      = "contact_phone"
	KeyForSale           = "forsale"
	KeyForSalePrice      = "forsale_price"
	KeyRestricted        = "restricted"

	// keyForSaleCurrency is only accepted as input, it is folded into
	// the for sale price.
	keyForSaleCurrency = "forsale_price_currency"
)

var sha256Hex = regexp.MustCompile(`^[A-Fa-f0-9]{64}$`)

var (
	// ErrInvalidContractHash is returned when a non-empty contract hash
	// isn't a hex encoded sha256 hash.
	ErrInvalidContractHash = errors.New("metadata: contract_hash must " +
		"be a sha256 hash in ascii hex")

	// ErrInvalidDocument is returned when a metadata document isn't valid
	// JSON or doesn't have the expected shape.
	ErrInvalidDocument = errors.New("metadata: invalid document")
)

// MetadataError is returned when a metadata field is rejected.
type MetadataError struct {
	// Field is the key of the rejected field.
	Field string

	// Value is the rejected value.
	Value string

	// Err is the reason the field was rejected.
	Err error
}

// Error returns a human-readable description of the failure.
func (e *MetadataError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%v: %s=%q", e.Err, e.Field, e.Value)
}

// Unwrap returns the underlying sentinel error.
func (e *MetadataError) Unwrap() error {
	return e.Err
}

// Fields are the inputs of a metadata record. Every string field is optional.
type Fields struct {
	ContractURL       string
	ContractHash      string
	ContractSignature string
	ContractAddress   string
	Symbol            string
	Name              string
	Issuer            string
	Description       string
	DescriptionMIME   string
	Type              string
	WebsiteURL        string
	Icon              string
	ImageURL          string
	ContactName       string
	ContactEmail      string
	ContactAddress    string
	ContactPhone      string

	// ForSale is tri-state: unset, for sale or not for sale.
	ForSale *bool

	// ForSalePrice is either a plain price, or a formatted price such as
	// "1000 USD" if ForSalePriceCurrency is empty.
	ForSalePrice string

	// ForSalePriceCurrency is appended to ForSalePrice if both are set.
	ForSalePriceCurrency string

	Restricted string
}

type options struct {
	validate bool
}

// Option changes how a metadata record is built.
type Option func(*options)

// WithoutValidation skips the contract hash format check.
func WithoutValidation() Option {
	return func(o *options) {
		o.validate = false
	}
}

func defaultOptions() *options {
	return &options{
		validate: true,
	}
}

// KeyValue is a single present field of a metadata record.
type KeyValue struct {
	Key   string
	Value any
}

// Metadata is the descriptive document attached to an asset by its issuer. It
// is immutable once created.
type Metadata struct {
	fields Fields
}

// New builds a metadata record. The only check that is run is the format of a
// non-empty contract hash, and only if validation isn't disabled.
func New(fields Fields, opts ...Option) (*Metadata, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.validate && fields.ContractHash != "" &&
		!sha256Hex.MatchString(fields.ContractHash) {

		return nil, &MetadataError{
			Field: KeyContractHash,
			Value: fields.ContractHash,
			Err:   ErrInvalidContractHash,
		}
	}

	if fields.ForSalePrice != "" && fields.ForSalePriceCurrency != "" {
		fields.ForSalePrice = fields.ForSalePrice + " " +
			fields.ForSalePriceCurrency
	}
	fields.ForSalePriceCurrency = ""

	if fields.ForSale != nil {
		forSale := *fields.ForSale
		fields.ForSale = &forSale
	}

	return &Metadata{fields: fields}, nil
}

// Fields returns a copy of the record's fields. The currency is always folded
// into ForSalePrice.
func (m *Metadata) Fields() Fields {
	fields := m.fields
	if fields.ForSale != nil {
		forSale := *fields.ForSale
		fields.ForSale = &forSale
	}

	return fields
}

// ForSalePrice returns the display price of the asset.
func (m *Metadata) ForSalePrice() string {
	return m.fields.ForSalePrice
}

// CompactMap returns the non-empty fields of the record in document order.
func (m *Metadata) CompactMap() []KeyValue {
	f := &m.fields

	strs := []KeyValue{
		{KeyContractURL, f.ContractURL},
		{KeyContractHash, f.ContractHash},
		{KeyContractSignature, f.ContractSignature},
		{KeyContractAddress, f.ContractAddress},
		{KeySymbol, f.Symbol},
		{KeyName, f.Name},
		{KeyIssuer, f.Issuer},
		{KeyDescription, f.Description},
		{KeyDescriptionMIME, f.DescriptionMIME},
		{KeyType, f.Type},
		{KeyWebsiteURL, f.WebsiteURL},
		{KeyIcon, f.Icon},
		{KeyImageURL, f.ImageURL},
		{KeyContactName, f.ContactName},
		{KeyContactEmail, f.ContactEmail},
		{KeyContactAddress, f.ContactAddress},
		{KeyContactPhone, f.ContactPhone},
	}

	var kvs []KeyValue
	for _, kv := range strs {
		if kv.Value != "" {
			kvs = append(kvs, kv)
		}
	}
	if f.ForSale != nil {
		kvs = append(kvs, KeyValue{KeyForSale, *f.ForSale})
	}
	if f.ForSalePrice != "" {
		kvs = append(kvs, KeyValue{KeyForSalePrice, f.ForSalePrice})
	}
	if f.Restricted != "" {
		kvs = append(kvs, KeyValue{KeyRestricted, f.Restricted})
	}

	return kvs
}

// MarshalJSON encodes the non-empty fields as a JSON object, keeping the
// document order of CompactMap.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, kv := range m.CompactMap() {
		if i > 0 {
			b.WriteByte(',')
		}

		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}

		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')

	return b.Bytes(), nil
}

// String returns the JSON form of the record.
func (m *Metadata) String() string {
	b, err := m.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid metadata: %v>", err)
	}

	return string(b)
}
