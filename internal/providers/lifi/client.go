package lifi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/httpx"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers"
)

type Client struct {
	http    *httpx.Client
	baseURL string
}

// New returns a bridge quoter for a LiFi-compatible /quote endpoint.
func New(httpClient *httpx.Client, quoteURL string) *Client {
	return &Client{http: httpClient, baseURL: strings.TrimSpace(quoteURL)}
}

type quoteResponse struct {
	Tool     string `json:"tool"`
	Estimate struct {
		ToAmount    string `json:"toAmount"`
		ToAmountMin string `json:"toAmountMin"`
	} `json:"estimate"`
	TransactionRequest *struct {
		providers.TransactionRequest
		ChainID int64 `json:"chainId"`
	} `json:"transactionRequest"`
}

func (c *Client) QuoteBridge(ctx context.Context, req providers.BridgeQuoteRequest) (providers.BridgeQuoteResponse, error) {
	if req.FromAmount == nil || req.FromAmount.Sign() < 0 {
		return providers.BridgeQuoteResponse{}, clierr.New(clierr.CodeUsage, "bridge quote amount must be non-negative")
	}
	vals := url.Values{}
	vals.Set("fromChain", strconv.FormatInt(req.FromChainID, 10))
	vals.Set("toChain", strconv.FormatInt(req.ToChainID, 10))
	vals.Set("fromToken", req.FromToken.Hex())
	vals.Set("toToken", req.ToToken.Hex())
	vals.Set("fromAmount", req.FromAmount.String())
	vals.Set("fromAddress", req.FromAddress.Hex())
	vals.Set("toAddress", req.ToAddress.Hex())

	var resp quoteResponse
	if err := c.http.GetJSON(ctx, c.baseURL, vals, &resp); err != nil {
		return providers.BridgeQuoteResponse{}, clierr.Wrap(clierr.CodeUnavailable, "fetch lifi quote", err)
	}
	if resp.TransactionRequest == nil {
		return providers.BridgeQuoteResponse{}, clierr.New(clierr.CodeQuote, "lifi quote missing transactionRequest")
	}
	if resp.TransactionRequest.ChainID != 0 && resp.TransactionRequest.ChainID != req.FromChainID {
		return providers.BridgeQuoteResponse{}, clierr.New(clierr.CodeQuote, fmt.Sprintf("lifi transaction chain %d does not match source chain %d", resp.TransactionRequest.ChainID, req.FromChainID))
	}

	tx := resp.TransactionRequest.TransactionRequest
	return providers.BridgeQuoteResponse{
		Tool:               resp.Tool,
		ToAmount:           resp.Estimate.ToAmount,
		ToAmountMin:        resp.Estimate.ToAmountMin,
		TransactionRequest: &tx,
	}, nil
}
