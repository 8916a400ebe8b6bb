package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var validHash = strings.Repeat("aB3", 21) + "f"

// TestContractHash tests validation of the contract hash.
func TestContractHash(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		hash     string
		opts     []Option
		validErr bool
	}{{
		name: "empty hash is always accepted",
		hash: "",
	}, {
		name: "sha256 hex",
		hash: validHash,
	}, {
		name:     "too short",
		hash:     validHash[:63],
		validErr: true,
	}, {
		name:     "too long",
		hash:     validHash + "0",
		validErr: true,
	}, {
		name:     "not hex",
		hash:     strings.Repeat("g", 64),
		validErr: true,
	}, {
		name: "validation disabled",
		hash: "not a hash",
		opts: []Option{WithoutValidation()},
	}}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			meta, err := New(Fields{ContractHash: tc.hash}, tc.opts...)
			if tc.validErr {
				require.ErrorIs(t, err, ErrInvalidContractHash)

				var metaErr *MetadataError
				require.ErrorAs(t, err, &metaErr)
				require.Equal(t, KeyContractHash, metaErr.Field)
				require.Equal(t, tc.hash, metaErr.Value)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.hash, meta.Fields().ContractHash)
		})
	}
}

// TestForSalePrice tests how the price and currency are combined.
func TestForSalePrice(t *testing.T) {
	t.Parallel()

	meta, err := New(Fields{
		ForSalePrice:         "1000",
		ForSalePriceCurrency: "USD",
	})
	require.NoError(t, err)
	require.Equal(t, "1000 USD", meta.ForSalePrice())
	require.Empty(t, meta.Fields().ForSalePriceCurrency)

	meta, err = New(Fields{ForSalePrice: "1000 RVN"})
	require.NoError(t, err)
	require.Equal(t, "1000 RVN", meta.ForSalePrice())

	// A currency without a price is dropped.
	meta, err = New(Fields{ForSalePriceCurrency: "USD"})
	require.NoError(t, err)
	require.Empty(t, meta.ForSalePrice())
	require.Empty(t, meta.CompactMap())
}

// TestCompactMap tests that only present fields are returned, in document
// order.
func TestCompactMap(t *testing.T) {
	t.Parallel()

	notForSale := false
	meta, err := New(Fields{
		Restricted:   "no",
		Name:         "Nuka Cola",
		ContractURL:  "https://example.com/contract",
		ForSale:      &notForSale,
		ContactEmail: "nuka@example.com",
	})
	require.NoError(t, err)

	// The record must not alias the caller's flag.
	notForSale = true

	require.Equal(t, []KeyValue{
		{KeyContractURL, "https://example.com/contract"},
		{KeyName, "Nuka Cola"},
		{KeyContactEmail, "nuka@example.com"},
		{KeyForSale, false},
		{KeyRestricted, "no"},
	}, meta.CompactMap())

	require.Equal(
		t, `{"contract_url":"https://example.com/contract",`+
			`"name":"Nuka Cola","contact_email":"nuka@example.com",`+
			`"forsale":false,"restricted":"no"}`, meta.String(),
	)

	empty, err := New(Fields{})
	require.NoError(t, err)
	require.Empty(t, empty.CompactMap())
	require.Equal(t, "{}", empty.String())
}

// TestParse tests reading metadata documents.
func TestParse(t *testing.T) {
	t.Parallel()

	meta, err := Parse([]byte(`{
		"name": "Nuka Cola",
		"symbol": "NUKA",
		"contract_hash": "` + validHash + `",
		"forsale": true,
		"forsale_price": "5",
		"forsale_price_currency": "RVN",
		"unrelated": {"nested": [1, 2, 3]}
	}`))
	require.NoError(t, err)

	fields := meta.Fields()
	require.Equal(t, "Nuka Cola", fields.Name)
	require.Equal(t, "NUKA", fields.Symbol)
	require.Equal(t, validHash, fields.ContractHash)
	require.NotNil(t, fields.ForSale)
	require.True(t, *fields.ForSale)
	require.Equal(t, "5 RVN", fields.ForSalePrice)

	// The contract hash is still validated.
	_, err = Parse([]byte(`{"contract_hash": "abc"}`))
	require.ErrorIs(t, err, ErrInvalidContractHash)

	_, err = Parse(
		[]byte(`{"contract_hash": "abc"}`), WithoutValidation(),
	)
	require.NoError(t, err)

	// Documents must have the expected shape.
	_, err = Parse([]byte(`{"forsale": "yes"}`))
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Parse([]byte(`{"name": 5}`))
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Parse([]byte(`["name"]`))
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Parse([]byte(`{"name": `))
	require.ErrorIs(t, err, ErrInvalidDocument)
}
