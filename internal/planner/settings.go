package planner

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ggonzalez94/swap-bridge-relayer/internal/chain"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/metrics"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers"
)

// TokenConfig is one whitelisted token on the source chain.
type TokenConfig struct {
	Symbol  string
	Address common.Address
}

// Settings carries the already-validated configuration a build pass needs.
// Addresses are parsed and checksummed by the config loader.
type Settings struct {
	SourceChainID      int64
	DestinationChainID int64

	HoldingAccount        common.Address
	DestinationContract   common.Address
	BridgeRouter          common.Address
	SettlementToken       common.Address
	RemoteSettlementToken common.Address
	RemoteRecipient       common.Address

	Whitelist         []TokenConfig
	DustThreshold     *big.Int
	SlippageTolerance decimal.Decimal
	MaxSlippage       string

	// RouterABI enables bridge calldata diagnostics when set.
	RouterABI *abi.ABI
}

// Deps are the collaborators of a build pass.
type Deps struct {
	Reader  chain.Reader
	Router  providers.RouteQuoter
	Bridge  providers.BridgeQuoter
	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

func (d Deps) logger() logrus.FieldLogger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}
