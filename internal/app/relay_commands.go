package app

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ggonzalez94/swap-bridge-relayer/internal/chain"
	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/execution"
	execsigner "github.com/ggonzalez94/swap-bridge-relayer/internal/execution/signer"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/httpx"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/lock"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/model"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/planner"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/policy"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers/lifi"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/providers/sushi"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/route"
)

const (
	outcomePlanned = "planned"
	outcomeDryRun  = "dry_run"
	outcomeSent    = "sent"
)

// session holds what one plan or run needs for its whole lifetime: the run
// lock, the source chain connection and the signer.
type session struct {
	lock   *lock.RunLock
	client *chain.Client
	signer execsigner.Signer
}

func (s *runtimeState) openSession(ctx context.Context) (*session, error) {
	runLock, err := lock.Acquire(ctx, s.settings.LockDir, s.settings.HoldingAccount, s.settings.LockWait)
	if err != nil {
		return nil, err
	}
	s.log.WithField("lock", runLock.Path()).Debug("run lock acquired")

	txSigner, err := execsigner.NewLocalSignerFromEnv(s.settings.KeySource)
	if err != nil {
		_ = runLock.Release()
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()
	src := s.settings.Source
	client, err := chain.Dial(dialCtx, src.RPCURL, src.Chain.EVMChainID, src.ConnectionID, s.handles)
	if err != nil {
		_ = runLock.Release()
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"chain":      src.Chain.Slug,
		"connection": client.ConnectionID(),
		"signer":     txSigner.Address().Hex(),
	}).Info("connected to source chain")
	return &session{lock: runLock, client: client, signer: txSigner}, nil
}

func (ss *session) close(s *runtimeState) {
	ss.client.Close()
	if err := ss.lock.Release(); err != nil {
		s.log.WithError(err).Warn("release run lock")
	}
}

func (s *runtimeState) preparePlan(ctx context.Context, ss *session) (*planner.ExecutionPlan, error) {
	httpClient := httpx.New(s.settings.Timeout)
	deps := planner.Deps{
		Reader:  chain.WithTimeout(ss.client, s.settings.Timeout),
		Router:  sushi.New(httpClient, s.settings.SushiSwapURL),
		Bridge:  lifi.New(httpClient, s.settings.LiFiQuoteURL),
		Log:     s.log,
		Metrics: s.metrics,
	}
	plan, err := planner.Prepare(ctx, deps, s.settings.Planner(), ss.signer.Address())
	if err != nil {
		return nil, err
	}
	for _, w := range plan.Warnings() {
		s.log.WithFields(logrus.Fields{"kind": string(w.Kind), "token": w.Token}).Warn(w.Message)
	}
	return plan, nil
}

func (s *runtimeState) newPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Quote, validate and print the swapAndBridge plan without submitting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := policy.CheckCommandAllowed(s.settings.EnableCommands, "plan"); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			ss, err := s.openSession(ctx)
			if err != nil {
				return err
			}
			defer ss.close(s)

			plan, err := s.preparePlan(ctx, ss)
			if err != nil {
				return err
			}
			warnings := warningMessages(plan)
			s.captureWarnings(warnings)
			s.outcome = outcomePlanned
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), planView(plan, s.settings), warnings)
		},
	}
}

func (s *runtimeState) newRunCommand() *cobra.Command {
	var (
		dryRun         bool
		send           bool
		allowWarnings  bool
		pollInterval   time.Duration
		receiptTimeout time.Duration
	)
	defaults := execution.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the plan, then estimate (--dry-run) or submit (--send) swapAndBridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun && send {
				return clierr.New(clierr.CodeUsage, "use only one of --dry-run or --send")
			}
			opts := execution.Options{
				Mode:           execution.ModeDryRun,
				AllowWarnings:  allowWarnings,
				PollInterval:   pollInterval,
				ReceiptTimeout: receiptTimeout,
			}
			if send {
				opts.Mode = execution.ModeSend
			}
			if err := policy.CheckCommandAllowed(s.settings.EnableCommands, "run "+string(opts.Mode)); err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			ss, err := s.openSession(ctx)
			if err != nil {
				return err
			}
			defer ss.close(s)

			plan, err := s.preparePlan(ctx, ss)
			if err != nil {
				return err
			}
			warnings := warningMessages(plan)
			s.captureWarnings(warnings)

			src := s.settings.Source.Chain
			submitter := execution.NewSubmitter(ss.client.Backend(), ss.signer, s.settings.DestinationContract, src.EVMChainID, s.log)
			res, err := submitter.Submit(ctx, plan, opts)
			if err != nil {
				return err
			}
			s.outcome = outcomeDryRun
			if opts.Mode == execution.ModeSend {
				s.outcome = outcomeSent
			}
			data := model.Run{Plan: planView(plan, s.settings), Execution: executionView(res)}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, warnings)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Estimate gas and fees only (default)")
	cmd.Flags().BoolVar(&send, "send", false, "Sign and broadcast the transaction, then wait for the receipt")
	cmd.Flags().BoolVar(&allowWarnings, "allow-warnings", false, "Submit even when preflight warnings were raised")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", defaults.PollInterval, "Receipt polling interval")
	cmd.Flags().DurationVar(&receiptTimeout, "receipt-timeout", defaults.ReceiptTimeout, "How long to wait for the receipt after broadcast")
	return cmd
}

func (s *runtimeState) newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [payload]",
		Short: "Decode a raw route payload (hex); reads stdin when no payload is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) == 1 {
				raw = args[0]
			} else {
				buf, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return clierr.Wrap(clierr.CodeUsage, "read payload from stdin", err)
				}
				raw = string(buf)
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				return clierr.New(clierr.CodeUsage, "route payload is required")
			}
			if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
				raw = "0x" + raw
			}
			data, err := hexutil.Decode("0x" + raw[2:])
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "route payload is not valid hex", err)
			}
			decoded, err := route.DecodeRoute(data)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), decodedView(decoded), nil)
		},
	}
}
