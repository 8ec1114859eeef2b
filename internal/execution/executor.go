package execution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/execution/signer"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/id"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/planner"
)

type Mode string

const (
	ModeDryRun Mode = "dry-run"
	ModeSend   Mode = "send"
)

const (
	StatusEstimated = "estimated"
	StatusConfirmed = "confirmed"
	StatusReverted  = "reverted"
)

// FallbackGasLimit is used when estimation fails in send mode.
const FallbackGasLimit uint64 = 1_000_000

// Backend is the slice of an Ethereum client the submitter needs.
type Backend interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Backend = (*ethclient.Client)(nil)

type Options struct {
	Mode           Mode
	AllowWarnings  bool
	PollInterval   time.Duration
	ReceiptTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Mode:           ModeDryRun,
		PollInterval:   2 * time.Second,
		ReceiptTimeout: 5 * time.Minute,
	}
}

// GasParameters are the EIP-1559 fee fields of a submission. Gas is the raw
// estimate (or fallback); GasLimit carries the 10% buffer.
type GasParameters struct {
	Gas            uint64
	GasLimit       uint64
	GasPrice       *big.Int
	MaxPriorityFee *big.Int
	MaxFee         *big.Int
	EstimatedCost  *big.Int
	Fallback       bool
}

type Result struct {
	Mode        Mode
	From        common.Address
	Contract    common.Address
	Calldata    []byte
	Value       *big.Int
	Gas         GasParameters
	TxHash      string
	Status      string
	BlockNumber uint64
	GasUsed     uint64
}

// Submitter sends a prepared plan to the destination contract.
type Submitter struct {
	backend  Backend
	signer   signer.Signer
	contract common.Address
	chainID  *big.Int
	log      logrus.FieldLogger
}

func NewSubmitter(backend Backend, txSigner signer.Signer, contract common.Address, chainID int64, log logrus.FieldLogger) *Submitter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Submitter{
		backend:  backend,
		signer:   txSigner,
		contract: contract,
		chainID:  big.NewInt(chainID),
		log:      log,
	}
}

// Submit estimates and, in send mode, signs, broadcasts and waits for the
// swapAndBridge transaction. Dry runs stop after estimation.
func (s *Submitter) Submit(ctx context.Context, plan *planner.ExecutionPlan, opts Options) (Result, error) {
	if plan == nil {
		return Result{}, clierr.New(clierr.CodeInternal, "missing execution plan")
	}
	if s.signer == nil {
		return Result{}, clierr.New(clierr.CodeSigner, "missing signer")
	}
	if plan.Signer() != s.signer.Address() {
		return Result{}, clierr.New(clierr.CodeSigner, fmt.Sprintf("plan was prepared for %s but signer is %s", plan.Signer().Hex(), s.signer.Address().Hex()))
	}
	if opts.Mode != ModeDryRun && opts.Mode != ModeSend {
		return Result{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported execution mode %q", opts.Mode))
	}
	if opts.Mode == ModeSend && plan.HasWarnings() && !opts.AllowWarnings {
		return Result{}, clierr.New(clierr.CodeWarnings, fmt.Sprintf("plan has %d preflight warning(s); pass --allow-warnings to submit anyway", len(plan.Warnings())))
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 5 * time.Minute
	}

	data, err := EncodeSwapAndBridge(plan)
	if err != nil {
		return Result{}, err
	}
	from := s.signer.Address()
	value := plan.NativeValue()
	res := Result{Mode: opts.Mode, From: from, Contract: s.contract, Calldata: data, Value: value}

	msg := ethereum.CallMsg{From: from, To: &s.contract, Value: value, Data: data}
	gas, estimateErr := s.backend.EstimateGas(ctx, msg)
	fallback := false
	if estimateErr != nil {
		if opts.Mode == ModeDryRun {
			return res, wrapEVMExecutionError(clierr.CodeSimulation, "estimate swapAndBridge gas", estimateErr)
		}
		s.log.WithError(estimateErr).Warn("gas estimation failed, using fallback gas limit")
		gas = FallbackGasLimit
		fallback = true
	}
	params, err := s.feeParameters(ctx, gas)
	if err != nil {
		return res, err
	}
	params.Fallback = fallback
	res.Gas = params
	s.logGas(params)

	if opts.Mode == ModeDryRun {
		res.Status = StatusEstimated
		return res, nil
	}

	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return res, clierr.Wrap(clierr.CodeUnavailable, "fetch nonce", err)
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: params.MaxPriorityFee,
		GasFeeCap: params.MaxFee,
		Gas:       params.GasLimit,
		To:        &s.contract,
		Value:     value,
		Data:      data,
	})
	signed, err := s.signer.SignTx(s.chainID, tx)
	if err != nil {
		return res, clierr.Wrap(clierr.CodeSigner, "sign transaction", err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return res, clierr.Wrap(clierr.CodeUnavailable, "broadcast transaction", err)
	}
	res.TxHash = signed.Hash().Hex()
	s.log.WithField("tx_hash", res.TxHash).Info("transaction broadcast, awaiting confirmation")

	receipt, err := s.waitReceipt(ctx, signed.Hash(), opts)
	if err != nil {
		return res, err
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	res.GasUsed = receipt.GasUsed
	fields := logrus.Fields{"tx_hash": res.TxHash, "block": res.BlockNumber, "gas_used": res.GasUsed}
	if receipt.Status != types.ReceiptStatusSuccessful {
		res.Status = StatusReverted
		s.log.WithFields(fields).Error("transaction reverted")
		return res, clierr.New(clierr.CodeSimulation, "transaction reverted on-chain")
	}
	res.Status = StatusConfirmed
	s.log.WithFields(fields).Info("transaction confirmed")
	return res, nil
}

// feeParameters prices gas the way the node suggests: the tip falls back to
// the gas price when the node cannot suggest one, and the fee cap is their sum.
func (s *Submitter) feeParameters(ctx context.Context, gas uint64) (GasParameters, error) {
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return GasParameters{}, clierr.Wrap(clierr.CodeUnavailable, "fetch gas price", err)
	}
	tip, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		s.log.WithError(err).Debug("node did not suggest a priority fee, using gas price")
		tip = new(big.Int).Set(gasPrice)
	}
	return GasParameters{
		Gas:            gas,
		GasLimit:       gas + gas/10,
		GasPrice:       gasPrice,
		MaxPriorityFee: tip,
		MaxFee:         new(big.Int).Add(gasPrice, tip),
		EstimatedCost:  new(big.Int).Mul(new(big.Int).SetUint64(gas), gasPrice),
	}, nil
}

func (s *Submitter) logGas(p GasParameters) {
	label := "estimate"
	if p.Fallback {
		label = "fallback"
	}
	s.log.WithFields(logrus.Fields{
		"gas":            p.Gas,
		"gas_limit":      p.GasLimit,
		"max_fee_gwei":   id.FormatDecimal(p.MaxFee, 9),
		"priority_gwei":  id.FormatDecimal(p.MaxPriorityFee, 9),
		"estimated_cost": id.FormatDecimal(p.EstimatedCost, 18),
	}).Info(label + " gas parameters")
}

func (s *Submitter) waitReceipt(ctx context.Context, hash common.Hash, opts Options) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, opts.ReceiptTimeout)
	defer cancel()
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := s.backend.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) && waitCtx.Err() == nil {
			s.log.WithError(err).Debug("receipt poll failed")
		}
		select {
		case <-waitCtx.Done():
			return nil, clierr.Wrap(clierr.CodeUnavailable, "timed out waiting for receipt", waitCtx.Err())
		case <-ticker.C:
		}
	}
}
