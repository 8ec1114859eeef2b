package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ggonzalez94/swap-bridge-relayer/internal/chain"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/config"
	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/metrics"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/model"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/out"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/schema"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/version"
)

type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdin:  os.Stdin,
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner       *Runner
	flags        config.GlobalFlags
	selectFields string
	resultsOnly  bool
	settings     config.Settings
	loaded       bool
	root         *cobra.Command
	started      time.Time
	lastCommand  string
	lastWarnings []string
	outcome      string

	log      *logrus.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	handles  *chain.HandleCache
}

func (r *Runner) Run(args []string) int {
	registry := prometheus.NewRegistry()
	state := &runtimeState{
		runner:   r,
		started:  r.now(),
		log:      newLogger(r.stderr),
		registry: registry,
		metrics:  metrics.NewMetrics(registry),
		handles:  chain.NewHandleCache(),
	}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	if err != nil {
		state.renderError("", err, state.lastWarnings)
		state.outcome = clierr.Kind(codeOf(err))
	}
	state.finishMetrics()
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Swap whitelisted balances into the settlement token and bridge them in one transaction",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := trimRootPath(cmd.CommandPath())
			s.lastCommand = path
			if !needsConfig(path) {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.loaded = true
			s.configureLogger()
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().StringVar(&s.selectFields, "select", "", "Select fields from data (comma-separated, dots for nested fields)")
	cmd.PersistentFlags().BoolVar(&s.resultsOnly, "results-only", false, "Output only data payload")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&s.flags.EnvFile, "env-file", "", "Path to a .env file loaded before the environment is read")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Per-request timeout for RPC and quote calls")
	cmd.PersistentFlags().StringVar(&s.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&s.flags.MetricsTextfile, "metrics-textfile", "", "Write run metrics to this node-exporter textfile")
	cmd.PersistentFlags().StringVar(&s.flags.RPCURL, "rpc-url", "", "Source chain RPC URL")
	cmd.PersistentFlags().StringVar(&s.flags.LockDir, "lock-dir", "", "Directory for per-holding-account run locks")
	cmd.PersistentFlags().StringVar(&s.flags.LockWait, "lock-wait", "", "How long to wait for a concurrent run to release the lock")
	cmd.PersistentFlags().StringVar(&s.flags.KeySource, "key-source", "", "Signer key source (auto, env, file, keystore)")
	cmd.PersistentFlags().StringVar(&s.flags.EnableCommands, "enable-commands", "", "Allowlist command paths (comma-separated, e.g. \"plan,run dry-run\")")

	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(s.newPlanCommand())
	cmd.AddCommand(s.newRunCommand())
	cmd.AddCommand(s.newDecodeCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Build(s.root, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta:     s.meta(commandPath),
	}
	return out.Render(s.runner.stdout, env, s.renderOptions())
}

func (s *runtimeState) renderError(commandPath string, err error, warnings []string) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	code := clierr.ExitCode(err)
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
	}

	opts := s.renderOptions()
	opts.ResultsOnly = false
	opts.SelectFields = nil
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Error: &model.ErrorBody{
			Code:    code,
			Type:    clierr.Kind(clierr.Code(code)),
			Message: message,
		},
		Warnings: warnings,
		Meta:     s.meta(commandPath),
	}
	_ = out.Render(s.runner.stderr, env, opts)
}

func (s *runtimeState) meta(commandPath string) model.EnvelopeMeta {
	m := model.EnvelopeMeta{
		RequestID:  newRequestID(),
		Timestamp:  s.runner.now().UTC(),
		Command:    commandPath,
		DurationMS: s.runner.now().Sub(s.started).Milliseconds(),
	}
	if s.loaded {
		m.SourceChain = s.settings.Source.Chain.Slug
	}
	return m
}

// renderOptions falls back to flag values when configuration never loaded,
// so usage errors still honor --plain.
func (s *runtimeState) renderOptions() out.Options {
	mode := s.settings.OutputMode
	if !s.loaded {
		mode = out.ModeJSON
		if s.flags.Plain && !s.flags.JSON {
			mode = out.ModePlain
		}
	}
	return out.Options{
		Mode:         mode,
		SelectFields: splitCSV(s.selectFields),
		ResultsOnly:  s.resultsOnly,
	}
}

func (s *runtimeState) configureLogger() {
	s.log.SetLevel(s.settings.LogLevel)
	if s.settings.OutputMode == out.ModeJSON {
		s.log.SetFormatter(&logrus.JSONFormatter{})
	}
}

// finishMetrics records the run outcome and writes the textfile. Write
// failures are logged only; they never change the exit code.
func (s *runtimeState) finishMetrics() {
	if !s.loaded || s.outcome == "" {
		return
	}
	s.metrics.RunFinished(s.outcome)
	if err := metrics.WriteTextfile(s.settings.MetricsTextfile, s.registry); err != nil {
		s.log.WithError(err).Warn("metrics textfile not written")
	}
}

func (s *runtimeState) captureWarnings(warnings []string) {
	if len(warnings) == 0 {
		s.lastWarnings = nil
		return
	}
	s.lastWarnings = append([]string(nil), warnings...)
}

func newLogger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	return log
}

func newRequestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		norm := strings.TrimSpace(part)
		if norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func needsConfig(commandPath string) bool {
	switch normalizeCommandPath(commandPath) {
	case "", "help", "version", "decode", "schema":
		return false
	default:
		return true
	}
}

func normalizeCommandPath(commandPath string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(commandPath))), " ")
}

func codeOf(err error) clierr.Code {
	if cErr, ok := clierr.As(err); ok {
		return cErr.Code
	}
	return clierr.CodeInternal
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// commandContext is cancelled on interrupt so in-flight RPC and quote calls
// unwind before the run lock is released.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
