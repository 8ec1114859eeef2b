package planner

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

// ExecutionPlan is the validated input of one swapAndBridge call. It is
// built once per run and never reused; accessors return copies.
type ExecutionPlan struct {
	signer           common.Address
	swap             SwapResult
	bridge           BridgeCall
	tokenValidations []TokenValidation
	bridgeValidation BridgeValidation
	warnings         []PreflightWarning
}

// Prepare runs swap building, executor and input validation, bridge building
// and bridge validation in that order. Any hard failure aborts the pass.
func Prepare(ctx context.Context, deps Deps, s Settings, signer common.Address) (*ExecutionPlan, error) {
	timer := deps.Metrics.BuildTimer()
	defer timer.ObserveDuration()
	log := deps.logger()

	swap, err := BuildSwap(ctx, deps, s)
	if err != nil {
		return nil, err
	}
	if err := ValidateExecutors(log, swap.InputTokens, swap.Executors); err != nil {
		return nil, err
	}
	tokenValidations, warnings, err := ValidateSwapInputs(ctx, deps, s, swap)
	if err != nil {
		return nil, err
	}

	bridge, err := BuildBridge(ctx, deps, s, swap.MinTotal)
	if err != nil {
		return nil, err
	}
	nativeBalance, err := deps.Reader.NativeBalance(ctx, signer)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "read signer native balance", err)
	}
	bridgeValidation, bridgeWarnings, err := ValidateBridgeCall(log, s, bridge, nativeBalance)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, bridgeWarnings...)
	for _, w := range warnings {
		deps.Metrics.Warning(string(w.Kind))
	}

	return &ExecutionPlan{
		signer:           signer,
		swap:             swap,
		bridge:           bridge,
		tokenValidations: tokenValidations,
		bridgeValidation: bridgeValidation,
		warnings:         warnings,
	}, nil
}

func (p *ExecutionPlan) Signer() common.Address { return p.signer }

func (p *ExecutionPlan) InputTokens() []InputToken {
	out := make([]InputToken, len(p.swap.InputTokens))
	for i, in := range p.swap.InputTokens {
		out[i] = InputToken{Token: in.Token, AmountIn: cloneInt(in.AmountIn), TransferTo: in.TransferTo}
	}
	return out
}

func (p *ExecutionPlan) OutputTokens() []OutputToken {
	out := make([]OutputToken, len(p.swap.OutputTokens))
	for i, o := range p.swap.OutputTokens {
		out[i] = OutputToken{Token: o.Token, Recipient: o.Recipient, AmountOutMin: cloneInt(o.AmountOutMin)}
	}
	return out
}

func (p *ExecutionPlan) Executors() []ExecutorCall {
	out := make([]ExecutorCall, len(p.swap.Executors))
	for i, e := range p.swap.Executors {
		out[i] = ExecutorCall{Executor: e.Executor, Value: cloneInt(e.Value), Data: cloneBytes(e.Data)}
	}
	return out
}

func (p *ExecutionPlan) MinSettlementOut() *big.Int { return cloneInt(p.swap.MinTotal) }

func (p *ExecutionPlan) AssumedSettlementOut() *big.Int { return cloneInt(p.swap.AssumedTotal) }

func (p *ExecutionPlan) CallTarget() common.Address { return p.bridge.CallTarget }

func (p *ExecutionPlan) CallData() []byte { return cloneBytes(p.bridge.CallData) }

func (p *ExecutionPlan) NativeValue() *big.Int { return cloneInt(p.bridge.NativeValue) }

func (p *ExecutionPlan) Quotes() []TokenQuote {
	out := make([]TokenQuote, len(p.swap.Quotes))
	for i, q := range p.swap.Quotes {
		q.Balance = cloneInt(q.Balance)
		q.AssumedOut = cloneInt(q.AssumedOut)
		q.MinOut = cloneInt(q.MinOut)
		out[i] = q
	}
	return out
}

func (p *ExecutionPlan) Skipped() []SkippedToken {
	return append([]SkippedToken(nil), p.swap.Skipped...)
}

func (p *ExecutionPlan) Bridge() BridgeCall {
	b := p.bridge
	b.CallData = cloneBytes(b.CallData)
	b.NativeValue = cloneInt(b.NativeValue)
	b.BridgeAmount = cloneInt(b.BridgeAmount)
	b.ContractBalance = cloneInt(b.ContractBalance)
	b.MinTotalSettlement = cloneInt(b.MinTotalSettlement)
	b.Diagnostics.Args = append([]DiagnosticArg(nil), b.Diagnostics.Args...)
	return b
}

func (p *ExecutionPlan) TokenValidations() []TokenValidation {
	out := make([]TokenValidation, len(p.tokenValidations))
	for i, v := range p.tokenValidations {
		v.Required = cloneInt(v.Required)
		v.Balance = cloneInt(v.Balance)
		v.Allowance = cloneInt(v.Allowance)
		out[i] = v
	}
	return out
}

func (p *ExecutionPlan) BridgeValidation() BridgeValidation {
	v := p.bridgeValidation
	v.NativeBalance = cloneInt(v.NativeBalance)
	v.RequiredNative = cloneInt(v.RequiredNative)
	return v
}

func (p *ExecutionPlan) Warnings() []PreflightWarning {
	return append([]PreflightWarning(nil), p.warnings...)
}

func (p *ExecutionPlan) HasWarnings() bool { return len(p.warnings) > 0 }

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func cloneBytes(v []byte) []byte {
	if v == nil {
		return nil
	}
	return append([]byte{}, v...)
}
