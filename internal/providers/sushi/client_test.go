package sushi

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/httpx"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers"
)

var (
	weth = common.HexToAddress("0x4200000000000000000000000000000000000006")
	usdc = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	hold = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	dest = common.HexToAddress("0x00000000000000000000000000000000000000BB")
)

func TestQuoteSwap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("tokenIn") != weth.Hex() || q.Get("tokenOut") != usdc.Hex() {
			t.Fatalf("unexpected tokens: %s", r.URL.RawQuery)
		}
		if q.Get("amount") != "1000000000000000000" || q.Get("maxSlippage") != "0.005" {
			t.Fatalf("unexpected amount params: %s", r.URL.RawQuery)
		}
		if q.Get("sender") != hold.Hex() || q.Get("recipient") != dest.Hex() {
			t.Fatalf("unexpected parties: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{
			"status": "Success",
			"amountIn": "1000000000000000000",
			"assumedAmountOut": 2000000,
			"tx": {"to": "0xAC4c6e212A361c968F1725b4d055b47E63F80b75", "data": "0xdeadbeef"}
		}`)
	}))
	defer srv.Close()

	amount, _ := new(big.Int).SetString("1000000000000000000", 10)
	c := New(httpx.New(2*time.Second), srv.URL)
	resp, err := c.QuoteSwap(context.Background(), providers.SwapQuoteRequest{
		TokenIn:     weth,
		TokenOut:    usdc,
		AmountIn:    amount,
		MaxSlippage: "0.005",
		Sender:      hold,
		Recipient:   dest,
	})
	if err != nil {
		t.Fatalf("QuoteSwap failed: %v", err)
	}
	if resp.AssumedAmountOut.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("unexpected assumed out: %s", resp.AssumedAmountOut)
	}
	if resp.AmountIn.Cmp(amount) != 0 {
		t.Fatalf("unexpected amount in: %s", resp.AmountIn)
	}
	if len(resp.RouteData) != 4 || resp.RouteData[0] != 0xde {
		t.Fatalf("unexpected route data: %x", resp.RouteData)
	}
	if resp.Router == (common.Address{}) {
		t.Fatal("expected router address")
	}
}

func TestQuoteSwapRejectsBadEnvelopes(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		code   clierr.Code
	}{
		"non-success":    {http.StatusOK, `{"status":"NoWay"}`, clierr.CodeQuote},
		"missing tx":     {http.StatusOK, `{"status":"Success","amountIn":"1","assumedAmountOut":"1"}`, clierr.CodeQuote},
		"missing amount": {http.StatusOK, `{"status":"Success","amountIn":"1","tx":{"data":"0x01"}}`, clierr.CodeQuote},
		"server error":   {http.StatusBadGateway, `{"error":"upstream"}`, clierr.CodeUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			c := New(httpx.New(2*time.Second), srv.URL)
			_, err := c.QuoteSwap(context.Background(), providers.SwapQuoteRequest{
				TokenIn:  weth,
				TokenOut: usdc,
				AmountIn: big.NewInt(1),
				Sender:   hold,
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if !clierr.Is(err, tc.code) {
				t.Fatalf("expected code %d, got %v", tc.code, err)
			}
		})
	}
}
