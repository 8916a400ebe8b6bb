package address

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/rvnlabs/rvnassets/asset"
)

// Network magics of the supported networks.
const (
	MainNetMagic wire.BitcoinNet = 0x4e564152 // RAVN
	TestNetMagic wire.BitcoinNet = 0x544e5652 // RVNT
	RegTestMagic wire.BitcoinNet = 0x574f5243 // CROW
)

// UnitScale is the number of base units in one whole coin or asset.
const UnitScale = btcutil.SatoshiPerBitcoin

var (
	// ErrUnknownNetwork is returned when parameters are requested for a
	// network name that isn't registered.
	ErrUnknownNetwork = errors.New("address: unknown network")

	// ErrUnknownBurnKind is returned for burn kinds outside the known set.
	ErrUnknownBurnKind = errors.New("address: unknown burn kind")
)

// BurnKind is the asset operation a burn output pays for.
type BurnKind uint8

const (
	// BurnIssue pays for the issuance of a root asset.
	BurnIssue BurnKind = iota

	// BurnReissue pays for the reissuance of an asset.
	BurnReissue

	// BurnIssueSub pays for the issuance of a sub asset.
	BurnIssueSub

	// BurnIssueUnique pays for the issuance of a unique asset.
	BurnIssueUnique

	// BurnGlobal is the catch-all burn address without a fixed amount.
	BurnGlobal

	numBurnKinds
)

// String returns a human-readable description of the burn kind.
func (k BurnKind) String() string {
	switch k {
	case BurnIssue:
		return "issue"
	case BurnReissue:
		return "reissue"
	case BurnIssueSub:
		return "issue_sub"
	case BurnIssueUnique:
		return "issue_unique"
	case BurnGlobal:
		return "global"
	default:
		return "<unknown>"
	}
}

// BurnKindForName returns the burn that has to be paid to issue the given
// asset name.
func BurnKindForName(name *asset.Name) BurnKind {
	switch name.Kind() {
	case asset.KindSub:
		return BurnIssueSub
	case asset.KindUnique:
		return BurnIssueUnique
	default:
		return BurnIssue
	}
}

// ChainParams defines an asset supporting network by its parameters. These
// include the base chaincfg.Params with the network's magic and address
// versions, as well as the burn addresses and amounts of the asset
// operations. Parameters are always passed explicitly, there is no process
// wide current network.
type ChainParams struct {
	*chaincfg.Params

	// UnitScale is the number of base units in one whole coin.
	UnitScale int64

	// BurnAddresses holds the burn address of each BurnKind.
	BurnAddresses [numBurnKinds]string

	// BurnAmounts holds the amount that must be paid to each burn
	// address. The global burn address has no fixed amount.
	BurnAmounts [numBurnKinds]btcutil.Amount
}

// chainParams copies the base parameters and applies the network's magic,
// name, port and address versions.
func chainParams(base chaincfg.Params, name string, net wire.BitcoinNet,
	port string, pubKeyHashID, scriptHashID, privKeyID byte) *chaincfg.Params {

	params := base
	params.Name = name
	params.Net = net
	params.DefaultPort = port
	params.PubKeyHashAddrID = pubKeyHashID
	params.ScriptHashAddrID = scriptHashID
	params.PrivateKeyID = privKeyID
	params.Bech32HRPSegwit = ""
	params.DNSSeeds = nil
	params.Checkpoints = nil

	return &params
}

var burnAmounts = [numBurnKinds]btcutil.Amount{
	BurnIssue:       500 * UnitScale,
	BurnReissue:     100 * UnitScale,
	BurnIssueSub:    100 * UnitScale,
	BurnIssueUnique: 5 * UnitScale,
	BurnGlobal:      0,
}

var (
	// MainNetParams are the parameters of the main network.
	MainNetParams = ChainParams{
		Params: chainParams(
			chaincfg.MainNetParams, "mainnet", MainNetMagic,
			"8767", 60, 122, 128,
		),
		UnitScale: UnitScale,
		BurnAddresses: [numBurnKinds]string{
			BurnIssue:       "RXissueAssetXXXXXXXXXXXXXXXXXhhZGt",
			BurnReissue:     "RXReissueAssetXXXXXXXXXXXXXXVEFAWu",
			BurnIssueSub:    "RXissueSubAssetXXXXXXXXXXXXXWcwhwL",
			BurnIssueUnique: "RXissueUniqueAssetXXXXXXXXXXWEAe58",
			BurnGlobal:      "RXBurnXXXXXXXXXXXXXXXXXXXXXXWUo9FV",
		},
		BurnAmounts: burnAmounts,
	}

	// TestNetParams are the parameters of the test network.
	TestNetParams = ChainParams{
		Params: chainParams(
			chaincfg.TestNet3Params, "testnet", TestNetMagic,
			"18770", 111, 196, 239,
		),
		UnitScale:     UnitScale,
		BurnAddresses: testBurnAddresses,
		BurnAmounts:   burnAmounts,
	}

	// RegTestParams are the parameters of the regression test network.
	// It shares address versions and burn addresses with the test
	// network.
	RegTestParams = ChainParams{
		Params: chainParams(
			chaincfg.RegressionNetParams, "regtest", RegTestMagic,
			"18444", 111, 196, 239,
		),
		UnitScale:     UnitScale,
		BurnAddresses: testBurnAddresses,
		BurnAmounts:   burnAmounts,
	}

	testBurnAddresses = [numBurnKinds]string{
		BurnIssue:       "n1issueAssetXXXXXXXXXXXXXXXXWdnemQ",
		BurnReissue:     "n1ReissueAssetXXXXXXXXXXXXXXWG9NLd",
		BurnIssueSub:    "n1issueSubAssetXXXXXXXXXXXXXbNiH6v",
		BurnIssueUnique: "n1issueUniqueAssetXXXXXXXXXXS4695i",
		BurnGlobal:      "n1BurnXXXXXXXXXXXXXXXXXXXXXXU1qejP",
	}
)

var (
	netsMtx sync.RWMutex
	nets    = make(map[string]*ChainParams)
)

// Register registers the network with chaincfg and makes it available to
// ParamsForNet.
func Register(params *ChainParams) error {
	err := chaincfg.Register(params.Params)
	if err != nil {
		return err
	}

	netsMtx.Lock()
	nets[params.Name] = params
	netsMtx.Unlock()

	return nil
}

// ParamsForNet returns the parameters of a registered network by name, e.g.
// "mainnet", "testnet" or "regtest".
func ParamsForNet(name string) (*ChainParams, error) {
	netsMtx.RLock()
	defer netsMtx.RUnlock()

	params, ok := nets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
	}

	return params, nil
}

// BurnAddress returns the burn address of the given kind.
func (p *ChainParams) BurnAddress(kind BurnKind) (string, error) {
	if kind >= numBurnKinds {
		return "", fmt.Errorf("%w: %d", ErrUnknownBurnKind, kind)
	}

	return p.BurnAddresses[kind], nil
}

// BurnAmount returns the amount that must be burned for the given kind.
func (p *ChainParams) BurnAmount(kind BurnKind) (btcutil.Amount, error) {
	if kind >= numBurnKinds {
		return 0, fmt.Errorf("%w: %d", ErrUnknownBurnKind, kind)
	}

	return p.BurnAmounts[kind], nil
}

// DecodeBurnAddress decodes the burn address of the given kind for this
// network.
func (p *ChainParams) DecodeBurnAddress(kind BurnKind) (btcutil.Address,
	error) {

	addr, err := p.BurnAddress(kind)
	if err != nil {
		return nil, err
	}

	decoded, err := btcutil.DecodeAddress(addr, p.Params)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %v burn address: %w",
			kind, err)
	}

	return decoded, nil
}

// BurnScript returns the output script paying to the burn address of the
// given kind.
func (p *ChainParams) BurnScript(kind BurnKind) ([]byte, error) {
	addr, err := p.DecodeBurnAddress(kind)
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(addr)
}

// IsBurnScript returns the burn kind of an output script that pays to one of
// the network's burn addresses.
func (p *ChainParams) IsBurnScript(pkScript []byte) (BurnKind, bool) {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, p.Params)
	if err != nil || len(addrs) != 1 {
		return 0, false
	}

	encoded := addrs[0].EncodeAddress()
	for kind := BurnIssue; kind < numBurnKinds; kind++ {
		if p.BurnAddresses[kind] == encoded {
			return kind, true
		}
	}

	return 0, false
}

func init() {
	// Register all default networks when the package is initialized.
	for _, params := range []*ChainParams{
		&MainNetParams, &TestNetParams, &RegTestParams,
	} {
		if err := Register(params); err != nil {
			panic(fmt.Sprintf("unable to register %s: %v",
				params.Name, err))
		}
	}
}
