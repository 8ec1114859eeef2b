package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ggonzalez94/swap-bridge-relayer/internal/config"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/execution"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/model"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/planner"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/route"
)

func planView(plan *planner.ExecutionPlan, settings config.Settings) model.Plan {
	view := model.Plan{
		SourceChain:          settings.Source.Chain.Slug,
		DestinationChain:     settings.Destination.Chain.Slug,
		HoldingAccount:       settings.HoldingAccount.Hex(),
		DestinationContract:  settings.DestinationContract.Hex(),
		Signer:               plan.Signer().Hex(),
		MinSettlementOut:     amount(plan.MinSettlementOut()),
		AssumedSettlementOut: amount(plan.AssumedSettlementOut()),
		Tokens:               []model.TokenQuote{},
		Skipped:              []model.SkippedToken{},
		Executors:            []model.ExecutorCall{},
		Warnings:             []model.PreflightWarning{},
	}
	for _, q := range plan.Quotes() {
		view.Tokens = append(view.Tokens, model.TokenQuote{
			Symbol:     q.Symbol,
			Token:      q.Token.Hex(),
			Balance:    amount(q.Balance),
			AssumedOut: amount(q.AssumedOut),
			MinOut:     amount(q.MinOut),
			Executor:   q.Executor.Hex(),
			Shape:      q.Shape,
		})
	}
	for _, sk := range plan.Skipped() {
		view.Skipped = append(view.Skipped, model.SkippedToken{
			Symbol: sk.Symbol,
			Token:  sk.Token.Hex(),
			Reason: string(sk.Reason),
			Detail: sk.Detail,
		})
	}
	for _, e := range plan.Executors() {
		view.Executors = append(view.Executors, model.ExecutorCall{
			Executor: e.Executor.Hex(),
			Value:    amount(e.Value),
			Data:     hexutil.Encode(e.Data),
		})
	}

	bridge := plan.Bridge()
	view.Bridge = model.BridgeCall{
		Tool:            bridge.Tool,
		CallTarget:      bridge.CallTarget.Hex(),
		CallData:        hexutil.Encode(bridge.CallData),
		NativeValue:     amount(bridge.NativeValue),
		BridgeAmount:    amount(bridge.BridgeAmount),
		ContractBalance: amount(bridge.ContractBalance),
		ToAmountMin:     bridge.ToAmountMin,
		Diagnostics: model.BridgeDiagnostics{
			Selector: bridge.Diagnostics.Selector,
			Method:   bridge.Diagnostics.Method,
			Note:     bridge.Diagnostics.Note,
		},
	}
	for _, arg := range bridge.Diagnostics.Args {
		view.Bridge.Diagnostics.Args = append(view.Bridge.Diagnostics.Args, model.DiagnosticArg{Name: arg.Name, Value: arg.Value})
	}

	bv := plan.BridgeValidation()
	view.Validation = model.Validation{
		Tokens:              []model.TokenValidation{},
		NativeBalance:       amount(bv.NativeBalance),
		RequiredNative:      amount(bv.RequiredNative),
		HasSufficientNative: bv.HasSufficientNative,
		TargetMatchesRouter: bv.TargetMatchesRouter,
	}
	for _, tv := range plan.TokenValidations() {
		view.Validation.Tokens = append(view.Validation.Tokens, model.TokenValidation{
			Symbol:       tv.Symbol,
			Token:        tv.Token.Hex(),
			Required:     amount(tv.Required),
			Balance:      amount(tv.Balance),
			Allowance:    amount(tv.Allowance),
			HasAllowance: tv.HasAllowance(),
		})
	}
	for _, w := range plan.Warnings() {
		view.Warnings = append(view.Warnings, model.PreflightWarning{
			Kind:    string(w.Kind),
			Token:   w.Token,
			Message: w.Message,
		})
	}
	return view
}

func warningMessages(plan *planner.ExecutionPlan) []string {
	var out []string
	for _, w := range plan.Warnings() {
		out = append(out, w.Message)
	}
	return out
}

func executionView(res execution.Result) model.Execution {
	return model.Execution{
		Mode:           string(res.Mode),
		From:           res.From.Hex(),
		Contract:       res.Contract.Hex(),
		Calldata:       hexutil.Encode(res.Calldata),
		Value:          amount(res.Value),
		Gas:            res.Gas.Gas,
		GasLimit:       res.Gas.GasLimit,
		FallbackGas:    res.Gas.Fallback,
		GasPrice:       amount(res.Gas.GasPrice),
		MaxPriorityFee: amount(res.Gas.MaxPriorityFee),
		MaxFee:         amount(res.Gas.MaxFee),
		EstimatedCost:  amount(res.Gas.EstimatedCost),
		Status:         res.Status,
		TxHash:         res.TxHash,
		BlockNumber:    res.BlockNumber,
		GasUsed:        res.GasUsed,
	}
}

func decodedView(d route.Decoded) model.DecodedRoute {
	view := model.DecodedRoute{
		Version:   d.Version,
		Shape:     d.Shape,
		Method:    d.Method,
		Inputs:    []model.RouteInput{},
		Outputs:   []model.RouteOutput{},
		Executors: []model.ExecutorCall{},
	}
	for _, in := range d.Inputs {
		view.Inputs = append(view.Inputs, model.RouteInput{
			Token:      in.Token.Hex(),
			AmountIn:   amount(in.AmountIn),
			TransferTo: in.TransferTo.Hex(),
		})
	}
	for _, o := range d.Outputs {
		view.Outputs = append(view.Outputs, model.RouteOutput{
			Token:        o.Token.Hex(),
			Recipient:    o.Recipient.Hex(),
			AmountOutMin: amount(o.AmountOutMin),
		})
	}
	for _, e := range d.Executors {
		view.Executors = append(view.Executors, model.ExecutorCall{
			Executor: e.Address.Hex(),
			Value:    amount(e.Value),
			Data:     hexutil.Encode(e.Data),
		})
	}
	return view
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
