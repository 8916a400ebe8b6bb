package metadata

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/qri-io/jsonschema"
	"github.com/tidwall/gjson"
)

//go:embed schema.json
var schemaJSON []byte

// documentSchema is the shape every metadata document must have.
var documentSchema = mustLoadSchema(schemaJSON)

func mustLoadSchema(data []byte) *jsonschema.Schema {
	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(data, schema); err != nil {
		panic(fmt.Sprintf("metadata: reading schema failed: %v", err))
	}

	return schema
}

// Parse reads a metadata document as published by issuers, e.g. fetched from
// the IPFS reference of an asset. Unknown keys are ignored.
func Parse(data []byte, opts ...Option) (*Metadata, error) {
	if !gjson.ValidBytes(data) {
		return nil, &MetadataError{Err: ErrInvalidDocument}
	}

	keyErrs, err := documentSchema.ValidateBytes(context.Background(), data)
	if err != nil {
		return nil, &MetadataError{
			Err: fmt.Errorf("%w: %v", ErrInvalidDocument, err),
		}
	}
	if len(keyErrs) > 0 {
		keyErr := keyErrs[0]
		return nil, &MetadataError{
			Field: keyErr.PropertyPath,
			Value: fmt.Sprintf("%v", keyErr.InvalidValue),
			Err: fmt.Errorf("%w: %s", ErrInvalidDocument,
				keyErr.Message),
		}
	}

	doc := gjson.ParseBytes(data)
	fields := Fields{
		ContractURL:          doc.Get(KeyContractURL).String(),
		ContractHash:         doc.Get(KeyContractHash).String(),
		ContractSignature:    doc.Get(KeyContractSignature).String(),
		ContractAddress:      doc.Get(KeyContractAddress).String(),
		Symbol:               doc.Get(KeySymbol).String(),
		Name:                 doc.Get(KeyName).String(),
		Issuer:               doc.Get(KeyIssuer).String(),
		Description:          doc.Get(KeyDescription).String(),
		DescriptionMIME:      doc.Get(KeyDescriptionMIME).String(),
		Type:                 doc.Get(KeyType).String(),
		WebsiteURL:           doc.Get(KeyWebsiteURL).String(),
		Icon:                 doc.Get(KeyIcon).String(),
		ImageURL:             doc.Get(KeyImageURL).String(),
		ContactName:          doc.Get(KeyContactName).String(),
		ContactEmail:         doc.Get(KeyContactEmail).String(),
		ContactAddress:       doc.Get(KeyContactAddress).String(),
		ContactPhone:         doc.Get(KeyContactPhone).String(),
		ForSalePrice:         doc.Get(KeyForSalePrice).String(),
		ForSalePriceCurrency: doc.Get(keyForSaleCurrency).String(),
		Restricted:           doc.Get(KeyRestricted).String(),
	}
	if forSale := doc.Get(KeyForSale); forSale.Exists() {
		v := forSale.Bool()
		fields.ForSale = &v
	}

	return New(fields, opts...)
}
