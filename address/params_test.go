package address

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/rvnlabs/rvnassets/asset"
	"github.com/stretchr/testify/require"
)

var allParams = []*ChainParams{&MainNetParams, &TestNetParams, &RegTestParams}

// TestParamsForNet tests the lookup of registered networks.
func TestParamsForNet(t *testing.T) {
	t.Parallel()

	for _, params := range allParams {
		found, err := ParamsForNet(params.Name)
		require.NoError(t, err)
		require.Same(t, params, found)
	}

	_, err := ParamsForNet("simnet")
	require.ErrorIs(t, err, ErrUnknownNetwork)

	// Networks can't be registered twice.
	require.Error(t, Register(&MainNetParams))
}

// TestBurnAddresses makes sure every burn address decodes on its own network
// and maps back from its script.
func TestBurnAddresses(t *testing.T) {
	t.Parallel()

	for _, params := range allParams {
		params := params

		t.Run(params.Name, func(t *testing.T) {
			t.Parallel()

			for kind := BurnIssue; kind < numBurnKinds; kind++ {
				addr, err := params.DecodeBurnAddress(kind)
				require.NoError(t, err, kind)
				require.True(t, addr.IsForNet(params.Params))
				require.IsType(
					t, &btcutil.AddressPubKeyHash{}, addr,
				)

				script, err := params.BurnScript(kind)
				require.NoError(t, err)

				found, ok := params.IsBurnScript(script)
				require.True(t, ok)
				require.Equal(t, kind, found)
			}
		})
	}
}

// TestBurnAmounts tests the burn amounts of the asset operations.
func TestBurnAmounts(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		kind   BurnKind
		amount btcutil.Amount
	}{
		{BurnIssue, 500 * UnitScale},
		{BurnReissue, 100 * UnitScale},
		{BurnIssueSub, 100 * UnitScale},
		{BurnIssueUnique, 5 * UnitScale},
		{BurnGlobal, 0},
	}
	for _, tc := range testCases {
		amt, err := MainNetParams.BurnAmount(tc.kind)
		require.NoError(t, err)
		require.Equal(t, tc.amount, amt)
	}

	_, err := MainNetParams.BurnAmount(numBurnKinds)
	require.ErrorIs(t, err, ErrUnknownBurnKind)

	_, err = TestNetParams.BurnAddress(BurnKind(42))
	require.ErrorIs(t, err, ErrUnknownBurnKind)
}

// TestBurnAddressNetworks makes sure burn addresses of one network are
// rejected by the other.
func TestBurnAddressNetworks(t *testing.T) {
	t.Parallel()

	mainAddr, err := MainNetParams.BurnAddress(BurnIssue)
	require.NoError(t, err)

	_, err = btcutil.DecodeAddress(mainAddr, TestNetParams.Params)
	require.ErrorIs(t, err, btcutil.ErrUnknownAddressType)

	mainScript, err := MainNetParams.BurnScript(BurnIssue)
	require.NoError(t, err)
	_, ok := TestNetParams.IsBurnScript(mainScript)
	require.False(t, ok)

	// Regular scripts and asset scripts aren't burns.
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		Script()
	require.NoError(t, err)
	_, ok = MainNetParams.IsBurnScript(script)
	require.False(t, ok)

	assetScript, err := asset.PayloadScript(&asset.Payload{
		Type: asset.TypeTransfer,
		Name: "NUKA",
	})
	require.NoError(t, err)
	_, ok = MainNetParams.IsBurnScript(append(mainScript, assetScript...))
	require.False(t, ok)
}

// TestBurnKindForName tests which burn pays for which kind of name.
func TestBurnKindForName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		kind BurnKind
	}{
		{"NUKA", BurnIssue},
		{"NUKA!", BurnIssue},
		{"NUKA/COLA", BurnIssueSub},
		{"NUKA/COLA#CAP", BurnIssueUnique},
	}
	for _, tc := range testCases {
		name, err := asset.ParseFullName(tc.name)
		require.NoError(t, err)
		require.Equal(t, tc.kind, BurnKindForName(name), tc.name)
	}
}
