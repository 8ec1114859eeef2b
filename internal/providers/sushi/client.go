package sushi

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/httpx"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers"
)

const statusSuccess = "Success"

type Client struct {
	http    *httpx.Client
	baseURL string
}

// New returns a route quoter for the per-chain swap endpoint, for example
// https://api.sushi.com/swap/v7/8453.
func New(httpClient *httpx.Client, endpoint string) *Client {
	return &Client{http: httpClient, baseURL: strings.TrimSpace(endpoint)}
}

type swapResponse struct {
	Status           string  `json:"status"`
	AmountIn         flexInt `json:"amountIn"`
	AssumedAmountOut flexInt `json:"assumedAmountOut"`
	Tx               *swapTx `json:"tx"`
}

type swapTx struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

func (c *Client) QuoteSwap(ctx context.Context, req providers.SwapQuoteRequest) (providers.SwapRouteResponse, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return providers.SwapRouteResponse{}, clierr.New(clierr.CodeUsage, "swap quote amount must be positive")
	}
	recipient := req.Recipient
	if recipient == (common.Address{}) {
		recipient = req.Sender
	}
	vals := url.Values{}
	vals.Set("tokenIn", req.TokenIn.Hex())
	vals.Set("tokenOut", req.TokenOut.Hex())
	vals.Set("amount", req.AmountIn.String())
	if req.MaxSlippage != "" {
		vals.Set("maxSlippage", req.MaxSlippage)
	}
	vals.Set("sender", req.Sender.Hex())
	vals.Set("recipient", recipient.Hex())

	var resp swapResponse
	if err := c.http.GetJSON(ctx, c.baseURL, vals, &resp); err != nil {
		return providers.SwapRouteResponse{}, clierr.Wrap(clierr.CodeUnavailable, "fetch sushi route", err)
	}

	if resp.Status != statusSuccess {
		return providers.SwapRouteResponse{}, clierr.New(clierr.CodeQuote, fmt.Sprintf("sushi returned non-success status %q", resp.Status))
	}
	if resp.Tx == nil || strings.TrimSpace(resp.Tx.Data) == "" {
		return providers.SwapRouteResponse{}, clierr.New(clierr.CodeQuote, "sushi response missing transaction payload")
	}
	data, err := hexutil.Decode(ensureHexPrefix(resp.Tx.Data))
	if err != nil {
		return providers.SwapRouteResponse{}, clierr.Wrap(clierr.CodeQuote, "decode sushi transaction payload", err)
	}
	amountIn, err := resp.AmountIn.bigInt("amountIn")
	if err != nil {
		return providers.SwapRouteResponse{}, err
	}
	assumedOut, err := resp.AssumedAmountOut.bigInt("assumedAmountOut")
	if err != nil {
		return providers.SwapRouteResponse{}, err
	}

	out := providers.SwapRouteResponse{
		RouteData:        data,
		AmountIn:         amountIn,
		AssumedAmountOut: assumedOut,
	}
	if common.IsHexAddress(resp.Tx.To) {
		out.Router = common.HexToAddress(resp.Tx.To)
	}
	return out, nil
}

// flexInt accepts integer amounts encoded either as JSON strings or numbers.
type flexInt string

func (f *flexInt) UnmarshalJSON(b []byte) error {
	*f = flexInt(strings.Trim(strings.TrimSpace(string(b)), `"`))
	return nil
}

func (f flexInt) bigInt(field string) (*big.Int, error) {
	raw := strings.TrimSpace(string(f))
	if raw == "" || raw == "null" {
		return nil, clierr.New(clierr.CodeQuote, fmt.Sprintf("sushi response missing %s", field))
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok || n.Sign() < 0 {
		return nil, clierr.New(clierr.CodeQuote, fmt.Sprintf("sushi response has invalid %s %q", field, raw))
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
