package providers

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RouteQuoter quotes a single-token swap route into the settlement asset.
type RouteQuoter interface {
	QuoteSwap(ctx context.Context, req SwapQuoteRequest) (SwapRouteResponse, error)
}

// BridgeQuoter quotes the bridge leg for the aggregated settlement amount.
type BridgeQuoter interface {
	QuoteBridge(ctx context.Context, req BridgeQuoteRequest) (BridgeQuoteResponse, error)
}

type SwapQuoteRequest struct {
	TokenIn     common.Address
	TokenOut    common.Address
	AmountIn    *big.Int
	MaxSlippage string
	Sender      common.Address
	Recipient   common.Address
}

// SwapRouteResponse is a successful route quote. RouteData is the raw router
// calldata; it is opaque until decoded by the route package.
type SwapRouteResponse struct {
	Router           common.Address
	RouteData        []byte
	AmountIn         *big.Int
	AssumedAmountOut *big.Int
}

type BridgeQuoteRequest struct {
	FromChainID int64
	ToChainID   int64
	FromToken   common.Address
	ToToken     common.Address
	FromAmount  *big.Int
	FromAddress common.Address
	ToAddress   common.Address
}

// TransactionRequest is the bridge call envelope exactly as quoted. Fields
// stay as raw hex strings; the bridge builder parses and validates them.
type TransactionRequest struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

type BridgeQuoteResponse struct {
	Tool               string
	ToAmount           string
	ToAmountMin        string
	TransactionRequest *TransactionRequest
}
