package execution

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/execution/signer"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/planner"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/registry"
)

const testPrivateKey = "59c6995e998f97a5a0044976f0945388cf9b7e5e5f4f9d2d9d8f1f5b7f6d11d1"

var (
	holding     = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	destination = common.HexToAddress("0x00000000000000000000000000000000000000BB")
	remote      = common.HexToAddress("0x00000000000000000000000000000000000000CC")
	tokenAERO   = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	executor1   = common.HexToAddress("0x00000000000000000000000000000000000000E1")
	usdcBase    = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	usdcMainnet = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	lifi        = common.HexToAddress(registry.LiFiDiamondAddress)
)

type stubReader struct {
	native *big.Int
}

func (stubReader) ChainID() int64 { return 8453 }

func (stubReader) BalanceOf(_ context.Context, token, owner common.Address) (*big.Int, error) {
	switch {
	case token == tokenAERO && owner == holding:
		return big.NewInt(1000), nil
	case token == usdcBase && owner == destination:
		return big.NewInt(500), nil
	}
	return new(big.Int), nil
}

func (stubReader) AllowanceOf(context.Context, common.Address, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (r stubReader) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int).Set(r.native), nil
}

func (stubReader) BlockNumber(context.Context) (uint64, error) { return 99, nil }

type stubRouter struct{ route []byte }

func (r stubRouter) QuoteSwap(context.Context, providers.SwapQuoteRequest) (providers.SwapRouteResponse, error) {
	return providers.SwapRouteResponse{RouteData: r.route, AssumedAmountOut: big.NewInt(2_000_000)}, nil
}

type stubBridge struct{}

func (stubBridge) QuoteBridge(context.Context, providers.BridgeQuoteRequest) (providers.BridgeQuoteResponse, error) {
	return providers.BridgeQuoteResponse{
		Tool: "across",
		TransactionRequest: &providers.TransactionRequest{
			To:    registry.LiFiDiamondAddress,
			Data:  "0xabcdef01",
			Value: "0x3e8",
		},
	}, nil
}

type routeInput struct {
	Token      common.Address
	AmountIn   *big.Int
	TransferTo common.Address
}

type routeOutput struct {
	Token        common.Address
	Recipient    common.Address
	AmountOutMin *big.Int
}

type routeExecutor struct {
	Executor common.Address
	Value    *big.Int
	Data     []byte
}

func testSigner(t *testing.T) *signer.LocalSigner {
	t.Helper()
	s, err := signer.NewLocalSigner(signer.LocalSignerConfig{PrivateKeyHex: testPrivateKey})
	if err != nil {
		t.Fatalf("create signer: %v", err)
	}
	return s
}

func testPlan(t *testing.T, from common.Address, native *big.Int) *planner.ExecutionPlan {
	t.Helper()
	route, err := mustABI(registry.SnwapMultipleABI).Pack("snwapMultiple",
		[]routeInput{{Token: tokenAERO, AmountIn: big.NewInt(1000), TransferTo: executor1}},
		[]routeOutput{{Token: usdcBase, Recipient: destination, AmountOutMin: big.NewInt(1)}},
		[]routeExecutor{{Executor: executor1, Value: big.NewInt(0), Data: []byte{0x01, 0x02}}},
	)
	if err != nil {
		t.Fatalf("pack route: %v", err)
	}
	logger, _ := test.NewNullLogger()
	deps := planner.Deps{
		Reader: stubReader{native: native},
		Router: stubRouter{route: route},
		Bridge: stubBridge{},
		Log:    logger,
	}
	settings := planner.Settings{
		SourceChainID:         8453,
		DestinationChainID:    1,
		HoldingAccount:        holding,
		DestinationContract:   destination,
		BridgeRouter:          lifi,
		SettlementToken:       usdcBase,
		RemoteSettlementToken: usdcMainnet,
		RemoteRecipient:       remote,
		Whitelist:             []planner.TokenConfig{{Symbol: "AERO", Address: tokenAERO}},
		DustThreshold:         big.NewInt(1_000_000),
		SlippageTolerance:     decimal.RequireFromString("0.98"),
		MaxSlippage:           "0.005",
	}
	plan, err := planner.Prepare(context.Background(), deps, settings, from)
	if err != nil {
		t.Fatalf("prepare plan: %v", err)
	}
	return plan
}

func fundedNative() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

type fakeBackend struct {
	gas          uint64
	estimateErr  error
	gasPrice     *big.Int
	tip          *big.Int
	tipErr       error
	nonce        uint64
	receipt      *types.Receipt
	estimateMsgs []ethereum.CallMsg
	sent         []*types.Transaction
	receiptCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		gas:      200_000,
		gasPrice: big.NewInt(10_000_000),
		tip:      big.NewInt(1_000_000),
		nonce:    7,
		receipt:  &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(4242), GasUsed: 180_000},
	}
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.estimateMsgs = append(f.estimateMsgs, msg)
	return f.gas, f.estimateErr
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return f.gasPrice, nil }

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return f.tip, f.tipErr }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.receiptCalls++
	if f.receiptCalls < 2 {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func fastOptions(mode Mode) Options {
	opts := DefaultOptions()
	opts.Mode = mode
	opts.PollInterval = time.Millisecond
	opts.ReceiptTimeout = 5 * time.Second
	return opts
}

func TestSubmitDryRunEstimatesOnly(t *testing.T) {
	txSigner := testSigner(t)
	plan := testPlan(t, txSigner.Address(), fundedNative())
	backend := newFakeBackend()
	logger, _ := test.NewNullLogger()

	res, err := NewSubmitter(backend, txSigner, destination, 8453, logger).Submit(context.Background(), plan, fastOptions(ModeDryRun))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Status != StatusEstimated || len(backend.sent) != 0 {
		t.Fatalf("dry run must not broadcast: status=%s sent=%d", res.Status, len(backend.sent))
	}
	if res.Gas.Gas != 200_000 || res.Gas.GasLimit != 220_000 || res.Gas.Fallback {
		t.Fatalf("unexpected gas parameters: %+v", res.Gas)
	}
	if res.Gas.MaxFee.Cmp(big.NewInt(11_000_000)) != 0 {
		t.Fatalf("expected fee cap gasPrice+tip, got %s", res.Gas.MaxFee)
	}
	if res.Gas.EstimatedCost.Cmp(big.NewInt(2_000_000_000_000)) != 0 {
		t.Fatalf("unexpected estimated cost %s", res.Gas.EstimatedCost)
	}

	msg := backend.estimateMsgs[0]
	if msg.From != txSigner.Address() || *msg.To != destination || msg.Value.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected estimate call: from=%s to=%s value=%s", msg.From.Hex(), msg.To.Hex(), msg.Value)
	}
	method := revenueBridgerABI.Methods["swapAndBridge"]
	if !strings.HasPrefix(string(msg.Data), string(method.ID)) {
		t.Fatal("calldata does not start with the swapAndBridge selector")
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		t.Fatalf("unpack calldata: %v", err)
	}
	if minOut, ok := args[3].(*big.Int); !ok || minOut.Cmp(big.NewInt(1_960_000)) != 0 {
		t.Fatalf("unexpected minUsdcOut %v", args[3])
	}
	if target, ok := args[4].(common.Address); !ok || target != lifi {
		t.Fatalf("unexpected callTarget %v", args[4])
	}
	if data, ok := args[5].([]byte); !ok || len(data) != 4 || data[0] != 0xab {
		t.Fatalf("unexpected callData %v", args[5])
	}
}

func TestSubmitSendSignsAndWaits(t *testing.T) {
	txSigner := testSigner(t)
	plan := testPlan(t, txSigner.Address(), fundedNative())
	backend := newFakeBackend()
	logger, _ := test.NewNullLogger()

	res, err := NewSubmitter(backend, txSigner, destination, 8453, logger).Submit(context.Background(), plan, fastOptions(ModeSend))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Status != StatusConfirmed || res.BlockNumber != 4242 || res.GasUsed != 180_000 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(backend.sent))
	}
	tx := backend.sent[0]
	if tx.Hash().Hex() != res.TxHash {
		t.Fatalf("result hash %s differs from sent tx %s", res.TxHash, tx.Hash().Hex())
	}
	if tx.Type() != types.DynamicFeeTxType || tx.Nonce() != 7 || tx.Gas() != 220_000 {
		t.Fatalf("unexpected tx fields: type=%d nonce=%d gas=%d", tx.Type(), tx.Nonce(), tx.Gas())
	}
	if tx.GasFeeCap().Cmp(big.NewInt(11_000_000)) != 0 || tx.GasTipCap().Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("unexpected fees: cap=%s tip=%s", tx.GasFeeCap(), tx.GasTipCap())
	}
	if *tx.To() != destination || tx.Value().Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected destination or value")
	}
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), tx)
	if err != nil || from != txSigner.Address() {
		t.Fatalf("unexpected sender %s (%v)", from.Hex(), err)
	}
	if backend.receiptCalls != 2 {
		t.Fatalf("expected receipt polling to retry once, got %d calls", backend.receiptCalls)
	}
}

func TestSubmitSendFallsBackOnEstimateFailure(t *testing.T) {
	txSigner := testSigner(t)
	plan := testPlan(t, txSigner.Address(), fundedNative())
	backend := newFakeBackend()
	backend.estimateErr = errors.New("execution reverted")
	backend.tipErr = errors.New("method not found")
	logger, hook := test.NewNullLogger()

	res, err := NewSubmitter(backend, txSigner, destination, 8453, logger).Submit(context.Background(), plan, fastOptions(ModeSend))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !res.Gas.Fallback || res.Gas.Gas != FallbackGasLimit || backend.sent[0].Gas() != 1_100_000 {
		t.Fatalf("expected fallback gas, got %+v", res.Gas)
	}
	if res.Gas.MaxPriorityFee.Cmp(backend.gasPrice) != 0 || res.Gas.MaxFee.Cmp(big.NewInt(20_000_000)) != 0 {
		t.Fatalf("expected tip to fall back to gas price, got %+v", res.Gas)
	}
	var warned bool
	for _, entry := range hook.AllEntries() {
		if strings.Contains(entry.Message, "fallback gas limit") {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected fallback warning")
	}
}

type revertError struct{ data string }

func (e revertError) Error() string { return "execution reverted" }

func (e revertError) ErrorData() interface{} { return e.data }

func encodeErrorString(t *testing.T, reason string) []byte {
	t.Helper()
	typ, err := abi.NewType("string", "", nil)
	if err != nil {
		t.Fatalf("string type: %v", err)
	}
	packed, err := abi.Arguments{{Type: typ}}.Pack(reason)
	if err != nil {
		t.Fatalf("pack reason: %v", err)
	}
	return append(common.FromHex("0x08c379a0"), packed...)
}

func TestSubmitDryRunReportsRevertReason(t *testing.T) {
	txSigner := testSigner(t)
	plan := testPlan(t, txSigner.Address(), fundedNative())
	backend := newFakeBackend()
	backend.estimateErr = revertError{data: "0x" + common.Bytes2Hex(encodeErrorString(t, "insufficient output amount"))}
	logger, _ := test.NewNullLogger()

	_, err := NewSubmitter(backend, txSigner, destination, 8453, logger).Submit(context.Background(), plan, fastOptions(ModeDryRun))
	if !clierr.Is(err, clierr.CodeSimulation) {
		t.Fatalf("expected simulation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "insufficient output amount") {
		t.Fatalf("expected decoded reason in error, got %v", err)
	}
}

func TestSubmitRefusesWarningsUnlessAllowed(t *testing.T) {
	txSigner := testSigner(t)
	plan := testPlan(t, txSigner.Address(), big.NewInt(1))
	if !plan.HasWarnings() {
		t.Fatal("expected insufficient native warning in fixture")
	}
	logger, _ := test.NewNullLogger()

	backend := newFakeBackend()
	_, err := NewSubmitter(backend, txSigner, destination, 8453, logger).Submit(context.Background(), plan, fastOptions(ModeSend))
	if !clierr.Is(err, clierr.CodeWarnings) {
		t.Fatalf("expected warnings refusal, got %v", err)
	}
	if len(backend.estimateMsgs) != 0 || len(backend.sent) != 0 {
		t.Fatal("refused submission must not touch the backend")
	}

	if _, err := NewSubmitter(backend, txSigner, destination, 8453, logger).Submit(context.Background(), plan, fastOptions(ModeDryRun)); err != nil {
		t.Fatalf("dry run must proceed despite warnings: %v", err)
	}

	opts := fastOptions(ModeSend)
	opts.AllowWarnings = true
	if _, err := NewSubmitter(backend, txSigner, destination, 8453, logger).Submit(context.Background(), plan, opts); err != nil {
		t.Fatalf("allowed warnings must submit: %v", err)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(backend.sent))
	}
}

func TestSubmitReportsRevertedReceipt(t *testing.T) {
	txSigner := testSigner(t)
	plan := testPlan(t, txSigner.Address(), fundedNative())
	backend := newFakeBackend()
	backend.receipt.Status = types.ReceiptStatusFailed
	logger, _ := test.NewNullLogger()

	res, err := NewSubmitter(backend, txSigner, destination, 8453, logger).Submit(context.Background(), plan, fastOptions(ModeSend))
	if !clierr.Is(err, clierr.CodeSimulation) {
		t.Fatalf("expected revert error, got %v", err)
	}
	if res.Status != StatusReverted || res.TxHash == "" {
		t.Fatalf("expected reverted result with hash, got %+v", res)
	}
}

func TestSubmitRejectsForeignSigner(t *testing.T) {
	txSigner := testSigner(t)
	plan := testPlan(t, holding, fundedNative())
	_, err := NewSubmitter(newFakeBackend(), txSigner, destination, 8453, nil).Submit(context.Background(), plan, fastOptions(ModeDryRun))
	if !clierr.Is(err, clierr.CodeSigner) {
		t.Fatalf("expected signer error, got %v", err)
	}
}

func TestDecodeRevertData(t *testing.T) {
	if got := decodeRevertData(encodeErrorString(t, "slippage too high")); got != "slippage too high" {
		t.Fatalf("expected decoded revert reason, got %q", got)
	}
	if got := decodeRevertData(common.FromHex("0x12345678")); !strings.Contains(got, "0x12345678") {
		t.Fatalf("expected custom error selector, got %q", got)
	}
	if got := decodeRevertFromError(errors.New("plain")); got != "" {
		t.Fatalf("expected no reason for plain error, got %q", got)
	}
}
