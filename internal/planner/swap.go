package planner

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/id"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/route"
)

type InputToken struct {
	Token      common.Address
	AmountIn   *big.Int
	TransferTo common.Address
}

type OutputToken struct {
	Token        common.Address
	Recipient    common.Address
	AmountOutMin *big.Int
}

type ExecutorCall struct {
	Executor common.Address
	Value    *big.Int
	Data     []byte
}

// SwapQuote is a decoded route quote for one token. It lives for a single
// build pass.
type SwapQuote struct {
	Executor         common.Address
	ExecutorData     []byte
	ChainID          int64
	Recipient        common.Address
	AmountIn         *big.Int
	AssumedAmountOut *big.Int
	BlockNumber      uint64
	Shape            string
}

type TokenQuote struct {
	Symbol     string
	Token      common.Address
	Balance    *big.Int
	AssumedOut *big.Int
	MinOut     *big.Int
	Executor   common.Address
	Shape      string
}

type SkipReason string

const (
	SkipZeroBalance    SkipReason = "zero_balance"
	SkipQuoteFailed    SkipReason = "quote_failed"
	SkipBelowThreshold SkipReason = "below_threshold"
)

type SkippedToken struct {
	Symbol string
	Token  common.Address
	Reason SkipReason
	Detail string
}

// SwapResult is the swap leg: index-aligned input/executor arrays and a single
// output entry carrying the pooled minimum.
type SwapResult struct {
	InputTokens  []InputToken
	OutputTokens []OutputToken
	Executors    []ExecutorCall
	MinTotal     *big.Int
	AssumedTotal *big.Int
	Quotes       []TokenQuote
	Skipped      []SkippedToken
}

// SortedWhitelist returns the whitelist ordered by symbol.
func SortedWhitelist(tokens []TokenConfig) []TokenConfig {
	out := append([]TokenConfig(nil), tokens...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func BuildSwap(ctx context.Context, deps Deps, s Settings) (SwapResult, error) {
	tokens := SortedWhitelist(s.Whitelist)
	if len(tokens) == 0 {
		return SwapResult{}, clierr.New(clierr.CodeUsage, "no whitelisted tokens configured")
	}
	log := deps.logger()

	res := SwapResult{MinTotal: new(big.Int), AssumedTotal: new(big.Int)}
	skip := func(token TokenConfig, reason SkipReason, detail string) {
		res.Skipped = append(res.Skipped, SkippedToken{Symbol: token.Symbol, Token: token.Address, Reason: reason, Detail: detail})
		deps.Metrics.TokenSkipped(string(reason))
	}

	for _, token := range tokens {
		deps.Metrics.TokenConsidered()
		fields := logrus.Fields{"symbol": token.Symbol, "token": token.Address.Hex()}

		balance, err := deps.Reader.BalanceOf(ctx, token.Address, s.HoldingAccount)
		if err != nil {
			return SwapResult{}, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read %s balance of holding account", token.Symbol), err)
		}
		if balance.Sign() == 0 {
			log.WithFields(fields).Info("skip token: holding account balance is zero")
			skip(token, SkipZeroBalance, "balance is zero")
			continue
		}

		quote, err := quoteToken(ctx, deps, s, token, balance)
		if err != nil {
			log.WithFields(fields).WithError(err).Warn("skip token: route quote failed")
			skip(token, SkipQuoteFailed, err.Error())
			continue
		}

		if quote.AssumedAmountOut.Cmp(s.DustThreshold) < 0 {
			detail := fmt.Sprintf("quote %s below threshold %s", quote.AssumedAmountOut, s.DustThreshold)
			log.WithFields(fields).WithField("assumed_out", quote.AssumedAmountOut.String()).Info("skip token: " + detail)
			skip(token, SkipBelowThreshold, detail)
			continue
		}

		minOut := id.ApplySlippageFloor(quote.AssumedAmountOut, s.SlippageTolerance)

		res.InputTokens = append(res.InputTokens, InputToken{
			Token:      token.Address,
			AmountIn:   new(big.Int).Set(balance),
			TransferTo: quote.Executor,
		})
		res.Executors = append(res.Executors, ExecutorCall{
			Executor: quote.Executor,
			Value:    new(big.Int),
			Data:     quote.ExecutorData,
		})
		res.AssumedTotal.Add(res.AssumedTotal, quote.AssumedAmountOut)
		res.MinTotal.Add(res.MinTotal, minOut)
		res.Quotes = append(res.Quotes, TokenQuote{
			Symbol:     token.Symbol,
			Token:      token.Address,
			Balance:    new(big.Int).Set(balance),
			AssumedOut: quote.AssumedAmountOut,
			MinOut:     minOut,
			Executor:   quote.Executor,
			Shape:      quote.Shape,
		})
		deps.Metrics.TokenIncluded()
		log.WithFields(fields).WithFields(logrus.Fields{
			"balance":     balance.String(),
			"assumed_out": quote.AssumedAmountOut.String(),
			"min_out":     minOut.String(),
			"executor":    quote.Executor.Hex(),
			"block":       quote.BlockNumber,
		}).Info("token included in swap leg")
	}

	if len(res.InputTokens) == 0 {
		return SwapResult{}, clierr.New(clierr.CodeIneligible, "no eligible input tokens after applying thresholds")
	}

	res.OutputTokens = []OutputToken{{
		Token:        s.SettlementToken,
		Recipient:    s.DestinationContract,
		AmountOutMin: new(big.Int).Set(res.MinTotal),
	}}
	deps.Metrics.ObserveSwap(res.MinTotal, res.AssumedTotal)
	return res, nil
}

// quoteToken fetches and decodes one route. Every failure here is scoped to
// the token.
func quoteToken(ctx context.Context, deps Deps, s Settings, token TokenConfig, balance *big.Int) (SwapQuote, error) {
	resp, err := deps.Router.QuoteSwap(ctx, providers.SwapQuoteRequest{
		TokenIn:     token.Address,
		TokenOut:    s.SettlementToken,
		AmountIn:    balance,
		MaxSlippage: s.MaxSlippage,
		Sender:      s.DestinationContract,
		Recipient:   s.DestinationContract,
	})
	if err != nil {
		return SwapQuote{}, err
	}
	if resp.AssumedAmountOut == nil {
		return SwapQuote{}, clierr.New(clierr.CodeQuote, "route quote missing assumed output")
	}
	decoded, err := route.DecodeRoute(resp.RouteData)
	if err != nil {
		return SwapQuote{}, err
	}
	block, err := deps.Reader.BlockNumber(ctx)
	if err != nil {
		return SwapQuote{}, err
	}
	amountIn := resp.AmountIn
	if amountIn == nil {
		amountIn = balance
	}
	return SwapQuote{
		Executor:         decoded.Executor.Address,
		ExecutorData:     decoded.Executor.Data,
		ChainID:          s.SourceChainID,
		Recipient:        s.DestinationContract,
		AmountIn:         amountIn,
		AssumedAmountOut: resp.AssumedAmountOut,
		BlockNumber:      block,
		Shape:            decoded.Shape,
	}, nil
}
