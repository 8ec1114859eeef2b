package registry

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

// Public RPC endpoints used when a chain entry has no rpc_url.
var defaultRPCByChainID = map[int64]string{
	1:     "https://eth.llamarpc.com",
	10:    "https://mainnet.optimism.io",
	137:   "https://polygon-rpc.com",
	8453:  "https://mainnet.base.org",
	42161: "https://arb1.arbitrum.io/rpc",
}

func DefaultRPCURL(chainID int64) (string, bool) {
	value, ok := defaultRPCByChainID[chainID]
	return value, ok
}

func ResolveRPCURL(override string, chainID int64) (string, error) {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override), nil
	}
	if value, ok := DefaultRPCURL(chainID); ok {
		return value, nil
	}
	return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("no default rpc configured for chain id %d; set rpc_url", chainID))
}
