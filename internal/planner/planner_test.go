package planner

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/registry"
)

var (
	holding     = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	destination = common.HexToAddress("0x00000000000000000000000000000000000000BB")
	remote      = common.HexToAddress("0x00000000000000000000000000000000000000CC")
	signerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000DD")
	router      = common.HexToAddress(registry.LiFiDiamondAddress)
	usdcBase    = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	usdcMainnet = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	tokenAERO = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	tokenDAI  = common.HexToAddress("0x00000000000000000000000000000000000000A2")
	tokenWETH = common.HexToAddress("0x00000000000000000000000000000000000000A3")

	executor1 = common.HexToAddress("0x00000000000000000000000000000000000000E1")
	executor2 = common.HexToAddress("0x00000000000000000000000000000000000000E2")

	snwapMultiple = mustTestABI(registry.SnwapMultipleABI)
)

type balanceKey struct {
	token common.Address
	owner common.Address
}

type fakeReader struct {
	balances   map[balanceKey]*big.Int
	allowances map[balanceKey]*big.Int
	native     *big.Int
	block      uint64
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		balances:   map[balanceKey]*big.Int{},
		allowances: map[balanceKey]*big.Int{},
		native:     new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		block:      1234,
	}
}

func (f *fakeReader) setBalance(token, owner common.Address, v int64) {
	f.balances[balanceKey{token, owner}] = big.NewInt(v)
}

func (f *fakeReader) setAllowance(token common.Address, v int64) {
	f.allowances[balanceKey{token, holding}] = big.NewInt(v)
}

func (f *fakeReader) ChainID() int64 { return 8453 }

func (f *fakeReader) BalanceOf(_ context.Context, token, owner common.Address) (*big.Int, error) {
	if v, ok := f.balances[balanceKey{token, owner}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *fakeReader) AllowanceOf(_ context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if spender != destination {
		return new(big.Int), nil
	}
	if v, ok := f.allowances[balanceKey{token, owner}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *fakeReader) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.native), nil
}

func (f *fakeReader) BlockNumber(context.Context) (uint64, error) { return f.block, nil }

type routeResult struct {
	resp providers.SwapRouteResponse
	err  error
}

type fakeRouter struct {
	results  map[common.Address]routeResult
	requests []providers.SwapQuoteRequest
}

func (f *fakeRouter) QuoteSwap(_ context.Context, req providers.SwapQuoteRequest) (providers.SwapRouteResponse, error) {
	f.requests = append(f.requests, req)
	r, ok := f.results[req.TokenIn]
	if !ok {
		return providers.SwapRouteResponse{}, errors.New("no route")
	}
	return r.resp, r.err
}

type fakeBridge struct {
	resp     providers.BridgeQuoteResponse
	err      error
	requests []providers.BridgeQuoteRequest
}

func (f *fakeBridge) QuoteBridge(_ context.Context, req providers.BridgeQuoteRequest) (providers.BridgeQuoteResponse, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

type testInput struct {
	Token      common.Address
	AmountIn   *big.Int
	TransferTo common.Address
}

type testOutput struct {
	Token        common.Address
	Recipient    common.Address
	AmountOutMin *big.Int
}

type testExecutor struct {
	Executor common.Address
	Value    *big.Int
	Data     []byte
}

func routePayload(t *testing.T, token, executor common.Address, payload []byte) []byte {
	t.Helper()
	data, err := snwapMultiple.Pack("snwapMultiple",
		[]testInput{{Token: token, AmountIn: big.NewInt(1), TransferTo: executor}},
		[]testOutput{{Token: usdcBase, Recipient: destination, AmountOutMin: big.NewInt(1)}},
		[]testExecutor{{Executor: executor, Value: big.NewInt(0), Data: payload}},
	)
	if err != nil {
		t.Fatalf("pack route payload: %v", err)
	}
	return data
}

func quoteFor(t *testing.T, token, executor common.Address, assumedOut int64) routeResult {
	return routeResult{resp: providers.SwapRouteResponse{
		RouteData:        routePayload(t, token, executor, []byte{0x01, 0x02}),
		AssumedAmountOut: big.NewInt(assumedOut),
	}}
}

func testSettings(tokens ...TokenConfig) Settings {
	return Settings{
		SourceChainID:         8453,
		DestinationChainID:    1,
		HoldingAccount:        holding,
		DestinationContract:   destination,
		BridgeRouter:          router,
		SettlementToken:       usdcBase,
		RemoteSettlementToken: usdcMainnet,
		RemoteRecipient:       remote,
		Whitelist:             tokens,
		DustThreshold:         big.NewInt(1_000_000),
		SlippageTolerance:     decimal.RequireFromString("0.98"),
		MaxSlippage:           "0.005",
	}
}

func testBridgeResponse(target string, value string) providers.BridgeQuoteResponse {
	return providers.BridgeQuoteResponse{
		Tool: "across",
		TransactionRequest: &providers.TransactionRequest{
			To:    target,
			Data:  "0xabcdef01",
			Value: value,
		},
	}
}

func mustTestABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

func nullDeps(reader *fakeReader, rt *fakeRouter, br *fakeBridge) (Deps, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return Deps{Reader: reader, Router: rt, Bridge: br, Log: logger}, hook
}

func nullLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}
