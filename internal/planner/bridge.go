package planner

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/id"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers"
)

// BridgeCall is the (target, data, value) triple handed to swapAndBridge plus
// the amounts it was derived from.
type BridgeCall struct {
	CallTarget         common.Address
	CallData           []byte
	NativeValue        *big.Int
	BridgeAmount       *big.Int
	ContractBalance    *big.Int
	MinTotalSettlement *big.Int
	Tool               string
	ToAmountMin        string
	Diagnostics        BridgeDiagnostics
}

// BridgeDiagnostics is a best-effort decode of the bridge calldata. It never
// affects the plan.
type BridgeDiagnostics struct {
	Target   string
	Selector string
	Method   string
	Args     []DiagnosticArg
	Note     string
}

type DiagnosticArg struct {
	Name  string
	Value string
}

func BuildBridge(ctx context.Context, deps Deps, s Settings, minTotal *big.Int) (BridgeCall, error) {
	if minTotal == nil || minTotal.Sign() < 0 {
		return BridgeCall{}, clierr.New(clierr.CodeInternal, "bridge minimum must be a non-negative amount")
	}
	log := deps.logger()

	contractBalance, err := deps.Reader.BalanceOf(ctx, s.SettlementToken, s.DestinationContract)
	if err != nil {
		return BridgeCall{}, clierr.Wrap(clierr.CodeUnavailable, "read settlement balance of destination contract", err)
	}
	bridgeAmount := new(big.Int).Add(contractBalance, minTotal)

	quote, err := deps.Bridge.QuoteBridge(ctx, providers.BridgeQuoteRequest{
		FromChainID: s.SourceChainID,
		ToChainID:   s.DestinationChainID,
		FromToken:   s.SettlementToken,
		ToToken:     s.RemoteSettlementToken,
		FromAmount:  bridgeAmount,
		FromAddress: s.DestinationContract,
		ToAddress:   s.RemoteRecipient,
	})
	if err != nil {
		if _, ok := clierr.As(err); ok {
			return BridgeCall{}, err
		}
		return BridgeCall{}, clierr.Wrap(clierr.CodeUnavailable, "fetch bridge quote", err)
	}

	target, data, value, err := parseTransactionRequest(quote.TransactionRequest)
	if err != nil {
		return BridgeCall{}, err
	}

	call := BridgeCall{
		CallTarget:         target,
		CallData:           data,
		NativeValue:        value,
		BridgeAmount:       bridgeAmount,
		ContractBalance:    new(big.Int).Set(contractBalance),
		MinTotalSettlement: new(big.Int).Set(minTotal),
		Tool:               quote.Tool,
		ToAmountMin:        quote.ToAmountMin,
	}
	call.Diagnostics = diagnoseBridgeCall(s, target, data)
	if call.Diagnostics.Note != "" {
		log.WithField("target", target.Hex()).Debug("bridge diagnostics: " + call.Diagnostics.Note)
	}
	deps.Metrics.ObserveBridge(bridgeAmount)

	log.WithFields(logrus.Fields{
		"target":           target.Hex(),
		"bridge_amount":    bridgeAmount.String(),
		"contract_balance": contractBalance.String(),
		"min_total":        minTotal.String(),
		"native_value":     value.String(),
	}).Info("prepared bridge call")
	return call, nil
}

func parseTransactionRequest(tx *providers.TransactionRequest) (common.Address, []byte, *big.Int, error) {
	if tx == nil {
		return common.Address{}, nil, nil, clierr.New(clierr.CodeQuote, "bridge quote missing transactionRequest")
	}
	if strings.TrimSpace(tx.To) == "" {
		return common.Address{}, nil, nil, clierr.New(clierr.CodeQuote, "bridge quote missing transactionRequest.to")
	}
	if strings.TrimSpace(tx.Data) == "" {
		return common.Address{}, nil, nil, clierr.New(clierr.CodeQuote, "bridge quote missing transactionRequest.data")
	}
	if strings.TrimSpace(tx.Value) == "" {
		return common.Address{}, nil, nil, clierr.New(clierr.CodeQuote, "bridge quote missing transactionRequest.value")
	}

	target, err := id.ParseAddress("transactionRequest.to", tx.To)
	if err != nil {
		return common.Address{}, nil, nil, clierr.Wrap(clierr.CodeQuote, "invalid bridge call target", err)
	}
	data, err := hexutil.Decode(ensureHexPrefix(tx.Data))
	if err != nil {
		return common.Address{}, nil, nil, clierr.Wrap(clierr.CodeQuote, "invalid bridge call data", err)
	}
	value, err := hexToBigInt(tx.Value)
	if err != nil {
		return common.Address{}, nil, nil, clierr.Wrap(clierr.CodeQuote, "invalid bridge native value", err)
	}
	return target, data, value, nil
}

func diagnoseBridgeCall(s Settings, target common.Address, data []byte) BridgeDiagnostics {
	diag := BridgeDiagnostics{Target: target.Hex()}
	if len(data) >= 4 {
		diag.Selector = hexutil.Encode(data[:4])
	}
	if target != s.BridgeRouter {
		diag.Note = "call target is not the configured bridge router"
		return diag
	}
	if s.RouterABI == nil {
		diag.Note = "bridge router ABI not configured"
		return diag
	}
	if len(data) < 4 {
		diag.Note = "calldata shorter than a selector"
		return diag
	}
	method, err := s.RouterABI.MethodById(data[:4])
	if err != nil {
		diag.Note = fmt.Sprintf("failed to decode payload: %v", err)
		return diag
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		diag.Note = fmt.Sprintf("failed to decode payload: %v", err)
		return diag
	}
	diag.Method = method.Name
	for i, input := range method.Inputs {
		if i >= len(values) {
			break
		}
		diag.Args = append(diag.Args, DiagnosticArg{Name: input.Name, Value: fmt.Sprintf("%v", values[i])})
	}
	return diag
}

func hexToBigInt(v string) (*big.Int, error) {
	clean := strings.TrimSpace(v)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	if clean == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(clean, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", v)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative hex quantity %q", v)
	}
	return n, nil
}

func ensureHexPrefix(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return "0x" + v[2:]
	}
	return "0x" + v
}
