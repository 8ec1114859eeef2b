package planner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/id"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/registry"
)

type WarningKind string

const (
	WarnInsufficientAllowance WarningKind = "insufficient_allowance"
	WarnInsufficientNative    WarningKind = "insufficient_native"
	WarnTargetMismatch        WarningKind = "target_mismatch"
)

// PreflightWarning is an advisory finding a caller may deliberately proceed
// past. It is never returned as an error.
type PreflightWarning struct {
	Kind    WarningKind
	Token   string
	Message string
}

type TokenValidation struct {
	Token     common.Address
	Symbol    string
	Required  *big.Int
	Balance   *big.Int
	Allowance *big.Int
}

func (v TokenValidation) HasAllowance() bool {
	return v.Allowance != nil && v.Required != nil && v.Allowance.Cmp(v.Required) >= 0
}

type BridgeValidation struct {
	CallTarget          common.Address
	NativeBalance       *big.Int
	RequiredNative      *big.Int
	HasSufficientNative bool
	TargetMatchesRouter bool
}

// NativeFundingBuffer is the fixed native headroom required on top of the
// bridge call value: a flat gas allowance at a flat price.
func NativeFundingBuffer() *big.Int {
	return new(big.Int).Mul(
		big.NewInt(registry.NativeFundingBufferGas),
		big.NewInt(registry.NativeFundingBufferGasPrice),
	)
}

// ValidateSwapInputs re-reads balance and allowance for every input token.
// A balance below the planned amount is a hard failure; a short allowance is
// recorded and reported as a warning.
func ValidateSwapInputs(ctx context.Context, deps Deps, s Settings, swap SwapResult) ([]TokenValidation, []PreflightWarning, error) {
	if len(swap.InputTokens) == 0 {
		return nil, nil, clierr.New(clierr.CodeIneligible, "inputTokens array is empty")
	}
	if len(swap.OutputTokens) == 0 {
		return nil, nil, clierr.New(clierr.CodeIneligible, "outputTokens array is empty")
	}
	if len(swap.Executors) == 0 {
		return nil, nil, clierr.New(clierr.CodeIneligible, "executors array is empty")
	}

	symbols := make(map[common.Address]string, len(s.Whitelist))
	for _, t := range s.Whitelist {
		symbols[t.Address] = t.Symbol
	}

	log := deps.logger()
	results := make([]TokenValidation, 0, len(swap.InputTokens))
	var warnings []PreflightWarning
	for _, in := range swap.InputTokens {
		symbol, ok := symbols[in.Token]
		if !ok {
			symbol = "UNKNOWN"
		}
		balance, err := deps.Reader.BalanceOf(ctx, in.Token, s.HoldingAccount)
		if err != nil {
			return nil, nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("re-read %s balance", symbol), err)
		}
		allowance, err := deps.Reader.AllowanceOf(ctx, in.Token, s.HoldingAccount, s.DestinationContract)
		if err != nil {
			return nil, nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read %s allowance", symbol), err)
		}
		if balance.Cmp(in.AmountIn) < 0 {
			return nil, nil, clierr.New(clierr.CodeValidation, fmt.Sprintf(
				"holding account balance for %s (%s) is %s, but transaction requires %s",
				symbol, in.Token.Hex(), balance, in.AmountIn,
			))
		}
		v := TokenValidation{
			Token:     in.Token,
			Symbol:    symbol,
			Required:  new(big.Int).Set(in.AmountIn),
			Balance:   balance,
			Allowance: allowance,
		}
		if !v.HasAllowance() {
			msg := fmt.Sprintf("allowance for %s (%s) is %s, required %s", symbol, in.Token.Hex(), allowance, in.AmountIn)
			log.WithFields(logrus.Fields{"symbol": symbol, "token": in.Token.Hex()}).Warn(msg)
			warnings = append(warnings, PreflightWarning{Kind: WarnInsufficientAllowance, Token: in.Token.Hex(), Message: msg})
		}
		results = append(results, v)
	}
	return results, warnings, nil
}

// ValidateExecutors checks that executor calls are structurally sound and
// aligned with the input tokens that fund them.
func ValidateExecutors(log logrus.FieldLogger, inputs []InputToken, executors []ExecutorCall) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(inputs) != len(executors) {
		return clierr.New(clierr.CodeValidation, fmt.Sprintf("inputTokens (%d) and executors (%d) are not index-aligned", len(inputs), len(executors)))
	}
	for i, exec := range executors {
		n := i + 1
		if exec.Executor == (common.Address{}) {
			return clierr.New(clierr.CodeValidation, fmt.Sprintf("executor #%d has zero address", n))
		}
		if exec.Data == nil {
			return clierr.New(clierr.CodeValidation, fmt.Sprintf("executor #%d is missing its payload", n))
		}
		if inputs[i].TransferTo != exec.Executor {
			return clierr.New(clierr.CodeValidation, fmt.Sprintf("input token #%d transfers to %s, expected executor %s", n, inputs[i].TransferTo.Hex(), exec.Executor.Hex()))
		}
		if exec.Value != nil && exec.Value.Sign() != 0 {
			log.WithField("executor", exec.Executor.Hex()).Warnf("executor #%d sends unexpected native value %s", n, exec.Value)
		}
	}
	return nil
}

// ValidateBridgeCall rejects a zero call target and reports router mismatch
// and native funding shortfall as warnings.
func ValidateBridgeCall(log logrus.FieldLogger, s Settings, call BridgeCall, nativeBalance *big.Int) (BridgeValidation, []PreflightWarning, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if call.CallTarget == (common.Address{}) {
		return BridgeValidation{}, nil, clierr.New(clierr.CodeValidation, "callTarget is the zero address")
	}
	if nativeBalance == nil {
		nativeBalance = new(big.Int)
	}
	value := call.NativeValue
	if value == nil {
		value = new(big.Int)
	}

	var warnings []PreflightWarning
	result := BridgeValidation{
		CallTarget:          call.CallTarget,
		NativeBalance:       new(big.Int).Set(nativeBalance),
		RequiredNative:      new(big.Int).Add(value, NativeFundingBuffer()),
		TargetMatchesRouter: call.CallTarget == s.BridgeRouter,
	}
	if !result.TargetMatchesRouter {
		msg := fmt.Sprintf("callTarget %s differs from expected bridge router %s", call.CallTarget.Hex(), s.BridgeRouter.Hex())
		log.Warn(msg)
		warnings = append(warnings, PreflightWarning{Kind: WarnTargetMismatch, Message: msg})
	}
	result.HasSufficientNative = result.NativeBalance.Cmp(result.RequiredNative) >= 0
	if !result.HasSufficientNative {
		msg := fmt.Sprintf("signer native balance %s ETH is below required %s ETH",
			id.FormatDecimal(result.NativeBalance, 18), id.FormatDecimal(result.RequiredNative, 18))
		log.Warn(msg)
		warnings = append(warnings, PreflightWarning{Kind: WarnInsufficientNative, Message: msg})
	}
	return result, warnings, nil
}
