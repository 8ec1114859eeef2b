package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ggonzalez94/swap-bridge-relayer/internal/chain"
	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/id"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/planner"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/registry"
)

const configFileName = "relayer.yaml"

type GlobalFlags struct {
	ConfigPath      string
	EnvFile         string
	JSON            bool
	Plain           bool
	Timeout         string
	LogLevel        string
	MetricsTextfile string
	RPCURL          string
	LockDir         string
	LockWait        string
	KeySource       string
	EnableCommands  string
}

type ChainSettings struct {
	Chain        id.Chain
	RPCURL       string
	ConnectionID string
}

type Settings struct {
	OutputMode      string
	LogLevel        logrus.Level
	Timeout         time.Duration
	MetricsTextfile string
	LockDir         string
	LockWait        time.Duration
	KeySource       string
	EnableCommands  []string

	Source      ChainSettings
	Destination ChainSettings

	HoldingAccount        common.Address
	DestinationContract   common.Address
	BridgeRouter          common.Address
	SettlementToken       common.Address
	RemoteSettlementToken common.Address
	RemoteRecipient       common.Address

	Whitelist         []planner.TokenConfig
	DustThreshold     *big.Int
	SlippageTolerance decimal.Decimal
	MaxSlippage       string

	SushiSwapURL  string
	LiFiQuoteURL  string
	RouterABIPath string
	RouterABI     *abi.ABI
}

// Planner returns the build-pass view of the settings.
func (s Settings) Planner() planner.Settings {
	return planner.Settings{
		SourceChainID:         s.Source.Chain.EVMChainID,
		DestinationChainID:    s.Destination.Chain.EVMChainID,
		HoldingAccount:        s.HoldingAccount,
		DestinationContract:   s.DestinationContract,
		BridgeRouter:          s.BridgeRouter,
		SettlementToken:       s.SettlementToken,
		RemoteSettlementToken: s.RemoteSettlementToken,
		RemoteRecipient:       s.RemoteRecipient,
		Whitelist:             append([]planner.TokenConfig(nil), s.Whitelist...),
		DustThreshold:         new(big.Int).Set(s.DustThreshold),
		SlippageTolerance:     s.SlippageTolerance,
		MaxSlippage:           s.MaxSlippage,
		RouterABI:             s.RouterABI,
	}
}

// inputs holds raw values while file, env and flag layers are applied.
type inputs struct {
	output          string
	logLevel        string
	timeout         string
	metricsTextfile string
	lockDir         string
	lockWait        string
	keySource       string
	enableCommands  string

	sourceChain        string
	sourceRPCURL       string
	sourceConnectionID string
	destChain          string

	holdingAccount        string
	destinationContract   string
	bridgeRouter          string
	settlementToken       string
	remoteSettlementToken string
	remoteRecipient       string
	routerABIPath         string

	whitelist map[string]string

	usdcThreshold     string
	slippageTolerance string
	maxSlippage       string

	sushiSwapURL string
	lifiQuoteURL string
}

type chainConfig struct {
	Chain        string `yaml:"chain"`
	RPCURL       string `yaml:"rpc_url"`
	ConnectionID string `yaml:"connection_id"`
}

type fileConfig struct {
	Output   string `yaml:"output"`
	LogLevel string `yaml:"log_level"`
	Timeout  string `yaml:"timeout"`
	Chains   struct {
		Source      chainConfig `yaml:"source"`
		Destination chainConfig `yaml:"destination"`
	} `yaml:"chains"`
	Contracts struct {
		HoldingAccount        string `yaml:"holding_account"`
		DestinationContract   string `yaml:"destination_contract"`
		BridgeRouter          string `yaml:"bridge_router"`
		BridgeRouterABI       string `yaml:"bridge_router_abi"`
		SettlementToken       string `yaml:"settlement_token"`
		RemoteSettlementToken string `yaml:"remote_settlement_token"`
		RemoteRecipient       string `yaml:"remote_recipient"`
	} `yaml:"contracts"`
	WhitelistedTokens map[string]string `yaml:"whitelisted_tokens"`
	Defaults          struct {
		USDCThreshold     string `yaml:"usdc_threshold"`
		SlippageTolerance string `yaml:"slippage_tolerance"`
		MaxSlippage       string `yaml:"max_slippage"`
	} `yaml:"defaults"`
	APIURLs struct {
		SushiSwap string `yaml:"sushi_swap"`
		LiFiQuote string `yaml:"lifi_quote"`
	} `yaml:"api_urls"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
	Lock struct {
		Dir  string `yaml:"dir"`
		Wait string `yaml:"wait"`
	} `yaml:"lock"`
	Signer struct {
		KeySource string `yaml:"key_source"`
	} `yaml:"signer"`
	EnableCommands []string `yaml:"enable_commands"`
}

// Load resolves settings from the config file, then RELAYER_* environment
// variables, then flags. A .env file is loaded first without overriding
// variables already set.
func Load(flags GlobalFlags) (Settings, error) {
	if err := loadDotEnv(flags.EnvFile); err != nil {
		return Settings{}, err
	}

	in, err := defaultInputs()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, explicit, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, explicit, &in); err != nil {
		return Settings{}, err
	}

	applyEnv(&in)

	if err := applyFlags(flags, &in); err != nil {
		return Settings{}, err
	}

	return in.resolve()
}

func defaultInputs() (inputs, error) {
	lockDir, err := defaultLockDir()
	if err != nil {
		return inputs{}, err
	}
	return inputs{
		output:      "json",
		logLevel:    "info",
		timeout:     "10s",
		lockDir:     lockDir,
		keySource:   "auto",
		sourceChain: "base",
		destChain:   "ethereum",
	}, nil
}

func loadDotEnv(path string) error {
	if strings.TrimSpace(path) != "" {
		if err := godotenv.Load(path); err != nil {
			return clierr.Wrap(clierr.CodeUsage, "load env file", err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return clierr.Wrap(clierr.CodeUsage, "load .env", err)
	}
	return nil
}

func resolveConfigPath(input string) (string, bool, error) {
	if strings.TrimSpace(input) != "" {
		return input, true, nil
	}
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, false, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false, clierr.Wrap(clierr.CodeUsage, "resolve config directory", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "relayer", configFileName), false, nil
}

func defaultLockDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", clierr.Wrap(clierr.CodeUsage, "resolve cache directory", err)
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "relayer", "locks"), nil
}

func applyFileConfig(path string, explicit bool, in *inputs) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return clierr.Wrap(clierr.CodeUsage, "read config", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return clierr.Wrap(clierr.CodeUsage, "parse config yaml", err)
	}

	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&in.output, strings.ToLower(cfg.Output))
	set(&in.logLevel, cfg.LogLevel)
	set(&in.timeout, cfg.Timeout)
	set(&in.sourceChain, cfg.Chains.Source.Chain)
	set(&in.sourceRPCURL, cfg.Chains.Source.RPCURL)
	set(&in.sourceConnectionID, cfg.Chains.Source.ConnectionID)
	set(&in.destChain, cfg.Chains.Destination.Chain)
	set(&in.holdingAccount, cfg.Contracts.HoldingAccount)
	set(&in.destinationContract, cfg.Contracts.DestinationContract)
	set(&in.bridgeRouter, cfg.Contracts.BridgeRouter)
	set(&in.routerABIPath, cfg.Contracts.BridgeRouterABI)
	set(&in.settlementToken, cfg.Contracts.SettlementToken)
	set(&in.remoteSettlementToken, cfg.Contracts.RemoteSettlementToken)
	set(&in.remoteRecipient, cfg.Contracts.RemoteRecipient)
	set(&in.usdcThreshold, cfg.Defaults.USDCThreshold)
	set(&in.slippageTolerance, cfg.Defaults.SlippageTolerance)
	set(&in.maxSlippage, cfg.Defaults.MaxSlippage)
	set(&in.sushiSwapURL, cfg.APIURLs.SushiSwap)
	set(&in.lifiQuoteURL, cfg.APIURLs.LiFiQuote)
	set(&in.metricsTextfile, cfg.Metrics.Textfile)
	set(&in.lockDir, cfg.Lock.Dir)
	set(&in.lockWait, cfg.Lock.Wait)
	set(&in.keySource, cfg.Signer.KeySource)
	set(&in.enableCommands, strings.Join(cfg.EnableCommands, ","))
	if len(cfg.WhitelistedTokens) > 0 {
		in.whitelist = cfg.WhitelistedTokens
	}
	return nil
}

func applyEnv(in *inputs) {
	envs := []struct {
		name string
		dst  *string
	}{
		{"RELAYER_OUTPUT", &in.output},
		{"RELAYER_LOG_LEVEL", &in.logLevel},
		{"RELAYER_TIMEOUT", &in.timeout},
		{"RPC_URL", &in.sourceRPCURL},
		{"RELAYER_SOURCE_RPC_URL", &in.sourceRPCURL},
		{"RELAYER_CONNECTION_ID", &in.sourceConnectionID},
		{"RELAYER_HOLDING_ACCOUNT", &in.holdingAccount},
		{"RELAYER_DESTINATION_CONTRACT", &in.destinationContract},
		{"RELAYER_REMOTE_RECIPIENT", &in.remoteRecipient},
		{"RELAYER_USDC_THRESHOLD", &in.usdcThreshold},
		{"RELAYER_SLIPPAGE_TOLERANCE", &in.slippageTolerance},
		{"RELAYER_MAX_SLIPPAGE", &in.maxSlippage},
		{"RELAYER_SUSHI_SWAP_URL", &in.sushiSwapURL},
		{"RELAYER_LIFI_QUOTE_URL", &in.lifiQuoteURL},
		{"RELAYER_METRICS_TEXTFILE", &in.metricsTextfile},
		{"RELAYER_LOCK_DIR", &in.lockDir},
		{"RELAYER_LOCK_WAIT", &in.lockWait},
		{"RELAYER_KEY_SOURCE", &in.keySource},
		{"RELAYER_ENABLE_COMMANDS", &in.enableCommands},
	}
	for _, e := range envs {
		if v := strings.TrimSpace(os.Getenv(e.name)); v != "" {
			*e.dst = v
		}
	}
	in.output = strings.ToLower(in.output)
}

func applyFlags(flags GlobalFlags, in *inputs) error {
	if flags.JSON && flags.Plain {
		return clierr.New(clierr.CodeUsage, "cannot use --json and --plain together")
	}
	if flags.JSON {
		in.output = "json"
	}
	if flags.Plain {
		in.output = "plain"
	}
	overrides := []struct {
		value string
		dst   *string
	}{
		{flags.Timeout, &in.timeout},
		{flags.LogLevel, &in.logLevel},
		{flags.MetricsTextfile, &in.metricsTextfile},
		{flags.RPCURL, &in.sourceRPCURL},
		{flags.LockDir, &in.lockDir},
		{flags.LockWait, &in.lockWait},
		{flags.KeySource, &in.keySource},
		{flags.EnableCommands, &in.enableCommands},
	}
	for _, o := range overrides {
		if strings.TrimSpace(o.value) != "" {
			*o.dst = strings.TrimSpace(o.value)
		}
	}
	return nil
}

func (in inputs) resolve() (Settings, error) {
	var s Settings
	var err error

	if in.output != "json" && in.output != "plain" {
		return Settings{}, clierr.New(clierr.CodeUsage, "output must be json or plain")
	}
	s.OutputMode = in.output
	if s.LogLevel, err = logrus.ParseLevel(in.logLevel); err != nil {
		return Settings{}, clierr.Wrap(clierr.CodeUsage, "parse log level", err)
	}
	if s.Timeout, err = parseTimeout("timeout", in.timeout); err != nil {
		return Settings{}, err
	}
	if strings.TrimSpace(in.lockWait) != "" {
		if s.LockWait, err = time.ParseDuration(in.lockWait); err != nil || s.LockWait < 0 {
			return Settings{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("lock wait must be a non-negative duration, got %q", in.lockWait))
		}
	}
	s.MetricsTextfile = in.metricsTextfile
	s.LockDir = in.lockDir
	s.KeySource = in.keySource
	s.EnableCommands = splitCSV(in.enableCommands)

	if s.Source.Chain, err = id.ParseChain(in.sourceChain); err != nil {
		return Settings{}, err
	}
	if s.Destination.Chain, err = id.ParseChain(in.destChain); err != nil {
		return Settings{}, err
	}
	if s.Source.Chain.EVMChainID == s.Destination.Chain.EVMChainID {
		return Settings{}, clierr.New(clierr.CodeUsage, "source and destination chains must differ")
	}
	if s.Source.RPCURL, err = registry.ResolveRPCURL(in.sourceRPCURL, s.Source.Chain.EVMChainID); err != nil {
		return Settings{}, err
	}
	s.Source.ConnectionID = in.sourceConnectionID
	if s.Source.ConnectionID == "" {
		s.Source.ConnectionID = chain.ConnectionID(s.Source.Chain.EVMChainID, s.Source.RPCURL)
	}

	required := []struct {
		field string
		value string
		dst   *common.Address
	}{
		{"contracts.holding_account", in.holdingAccount, &s.HoldingAccount},
		{"contracts.destination_contract", in.destinationContract, &s.DestinationContract},
		{"contracts.remote_recipient", in.remoteRecipient, &s.RemoteRecipient},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return Settings{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s is required", r.field))
		}
		if *r.dst, err = id.ParseNonZeroAddress(r.field, r.value); err != nil {
			return Settings{}, err
		}
	}

	defaulted := []struct {
		field    string
		value    string
		fallback string
		dst      *common.Address
	}{
		{"contracts.bridge_router", in.bridgeRouter, registry.LiFiDiamondAddress, &s.BridgeRouter},
		{"contracts.settlement_token", in.settlementToken, usdcFor(s.Source.Chain.EVMChainID), &s.SettlementToken},
		{"contracts.remote_settlement_token", in.remoteSettlementToken, usdcFor(s.Destination.Chain.EVMChainID), &s.RemoteSettlementToken},
	}
	for _, d := range defaulted {
		value := d.value
		if strings.TrimSpace(value) == "" {
			value = d.fallback
		}
		if strings.TrimSpace(value) == "" {
			return Settings{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s is required for this chain pair", d.field))
		}
		if *d.dst, err = id.ParseNonZeroAddress(d.field, value); err != nil {
			return Settings{}, err
		}
	}

	if s.Whitelist, err = parseWhitelist(in.whitelist); err != nil {
		return Settings{}, err
	}

	if strings.TrimSpace(in.usdcThreshold) == "" {
		return Settings{}, clierr.New(clierr.CodeUsage, "defaults.usdc_threshold is required")
	}
	if s.DustThreshold, err = id.ParseBaseUnits("defaults.usdc_threshold", in.usdcThreshold); err != nil {
		return Settings{}, err
	}
	if s.DustThreshold.Sign() <= 0 {
		return Settings{}, clierr.New(clierr.CodeUsage, "defaults.usdc_threshold must be positive")
	}
	if strings.TrimSpace(in.slippageTolerance) == "" {
		return Settings{}, clierr.New(clierr.CodeUsage, "defaults.slippage_tolerance is required")
	}
	if s.SlippageTolerance, err = id.ParseFraction("defaults.slippage_tolerance", in.slippageTolerance, true); err != nil {
		return Settings{}, err
	}
	if strings.TrimSpace(in.maxSlippage) == "" {
		return Settings{}, clierr.New(clierr.CodeUsage, "defaults.max_slippage is required")
	}
	maxSlippage, err := id.ParseFraction("defaults.max_slippage", in.maxSlippage, false)
	if err != nil {
		return Settings{}, err
	}
	s.MaxSlippage = maxSlippage.String()

	s.SushiSwapURL = in.sushiSwapURL
	if s.SushiSwapURL == "" {
		s.SushiSwapURL = registry.SushiSwapURL(s.Source.Chain.EVMChainID)
	}
	s.LiFiQuoteURL = in.lifiQuoteURL
	if s.LiFiQuoteURL == "" {
		s.LiFiQuoteURL = registry.LiFiQuoteURL
	}
	for field, endpoint := range map[string]string{"api_urls.sushi_swap": s.SushiSwapURL, "api_urls.lifi_quote": s.LiFiQuoteURL} {
		if !registry.IsAllowedQuoteURL(endpoint) {
			return Settings{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be an https url (http allowed for loopback only), got %q", field, endpoint))
		}
	}

	if strings.TrimSpace(in.routerABIPath) != "" {
		s.RouterABIPath = in.routerABIPath
		if s.RouterABI, err = loadRouterABI(in.routerABIPath); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

func parseWhitelist(tokens map[string]string) ([]planner.TokenConfig, error) {
	if len(tokens) == 0 {
		return nil, clierr.New(clierr.CodeUsage, "whitelisted_tokens cannot be empty")
	}
	out := make([]planner.TokenConfig, 0, len(tokens))
	seen := make(map[common.Address]string, len(tokens))
	for symbol, raw := range tokens {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			return nil, clierr.New(clierr.CodeUsage, "whitelisted token symbol cannot be empty")
		}
		addr, err := id.ParseNonZeroAddress("whitelisted token "+symbol, raw)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[addr]; ok {
			return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("whitelisted tokens %s and %s share address %s", prev, symbol, addr.Hex()))
		}
		seen[addr] = symbol
		out = append(out, planner.TokenConfig{Symbol: symbol, Address: addr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be positive", field))
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("parse %s", field), err)
	}
	if d <= 0 {
		return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be positive", field))
	}
	return d, nil
}

// loadRouterABI reads a bare ABI array or a build artifact with an "abi" key.
func loadRouterABI(path string) (*abi.ABI, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "read bridge router abi", err)
	}
	raw := buf
	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(buf, &artifact); err == nil && len(artifact.ABI) > 0 {
		raw = artifact.ABI
	}
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "parse bridge router abi", err)
	}
	return &parsed, nil
}

func usdcFor(chainID int64) string {
	v, _ := registry.USDCAddress(chainID)
	return v
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
