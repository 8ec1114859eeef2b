package execution

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/planner"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/registry"
)

var revenueBridgerABI = mustABI(registry.RevenueBridgerABI)

// EncodeSwapAndBridge packs the plan into swapAndBridge calldata. Plan
// entries map onto the contract tuples by field name.
func EncodeSwapAndBridge(plan *planner.ExecutionPlan) ([]byte, error) {
	if plan == nil {
		return nil, clierr.New(clierr.CodeInternal, "missing execution plan")
	}
	data, err := revenueBridgerABI.Pack("swapAndBridge",
		plan.InputTokens(),
		plan.OutputTokens(),
		plan.Executors(),
		plan.MinSettlementOut(),
		plan.CallTarget(),
		plan.CallData(),
		plan.NativeValue(),
	)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "encode swapAndBridge calldata", err)
	}
	return data, nil
}

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
