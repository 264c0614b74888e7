package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/gasless/op-gasless/config"
	"github.com/mantlenetworkio/gasless/op-gasless/gasless"
	opservice "github.com/mantlenetworkio/gasless/op-service"
	"github.com/mantlenetworkio/gasless/op-service/cliutil"
	oplog "github.com/mantlenetworkio/gasless/op-service/log"
	opmetrics "github.com/mantlenetworkio/gasless/op-service/metrics"
	"github.com/mantlenetworkio/gasless/op-service/sources"
)

const EnvVarPrefix = "OP_GASLESS"

const (
	EstimationCategory = "2. ESTIMATION"
	RPCCategory        = "3. RPC"
)

func prefixEnvVars(name string) []string {
	return opservice.PrefixEnvVar(EnvVarPrefix, name)
}

// DefaultFlagValues are the defaults of the tuning flags.
type DefaultFlagValues struct {
	GasHint                 uint64
	EstimationMaxDuration   time.Duration
	EstimationRetryInterval time.Duration
	EstimationGasStep       uint64
	EstimationGasCeiling    uint64
	DialAttempts            int
	DialBackoff             time.Duration
	DialTimeout             time.Duration
	CallTimeout             time.Duration
	CallRetries             int
	RelayMethod             string
	WithdrawAmount          string
}

var DefaultValues = DefaultFlagValues{
	GasHint:                 gasless.DefaultGasHint,
	EstimationMaxDuration:   gasless.DefaultEstimationMaxDuration,
	EstimationRetryInterval: gasless.DefaultEstimationRetryInterval,
	EstimationGasStep:       gasless.DefaultGasStep,
	EstimationGasCeiling:    gasless.DefaultGasCeiling,
	DialAttempts:            10,
	DialBackoff:             3 * time.Second,
	DialTimeout:             30 * time.Second,
	CallTimeout:             15 * time.Second,
	CallRetries:             3,
	RelayMethod:             sources.DefaultRelayMethod,
	WithdrawAmount:          "0x123456789",
}

var (
	KeyFlag = &cli.StringFlag{
		Name:    "key",
		Usage:   "Hex-formatted key for signing. A new key is generated when omitted",
		EnvVars: prefixEnvVars("KEY"),
	}
	RelayerRPCFlag = &cli.StringFlag{
		Name:    "gas-relayer-server-rpc-url",
		Usage:   "Gas relayer server RPC URL",
		EnvVars: prefixEnvVars("GAS_RELAYER_SERVER_RPC_URL"),
	}
	ChainRPCFlag = &cli.StringFlag{
		Name:    "chain-rpc-url",
		Usage:   "Chain RPC URL",
		EnvVars: prefixEnvVars("CHAIN_RPC_URL"),
	}
	ForwarderFlag = &cli.StringFlag{
		Name:    "trusted-forwarder-contract-address",
		Usage:   "Trusted forwarder contract address",
		EnvVars: prefixEnvVars("TRUSTED_FORWARDER_CONTRACT_ADDRESS"),
	}
	RecipientFlag = &cli.StringFlag{
		Name:    "recipient-contract-address",
		Usage:   "Recipient contract address",
		EnvVars: prefixEnvVars("RECIPIENT_CONTRACT_ADDRESS"),
	}
	DomainNameFlag = &cli.StringFlag{
		Name:    "domain-name",
		Usage:   "Domain name (must be registered before)",
		EnvVars: prefixEnvVars("DOMAIN_NAME"),
	}
	DomainVersionFlag = &cli.StringFlag{
		Name:    "domain-version",
		Usage:   "Domain version (must be registered before)",
		EnvVars: prefixEnvVars("DOMAIN_VERSION"),
	}
	TypeNameFlag = &cli.StringFlag{
		Name:    "type-name",
		Usage:   "Type name (must be registered before)",
		EnvVars: prefixEnvVars("TYPE_NAME"),
	}
	TypeSuffixDataFlag = &cli.StringFlag{
		Name:    "type-suffix-data",
		Usage:   "Type suffix data (must be registered before), e.g. 'bytes32 ABCDEFGHIJKLMNOPQRSTGSN)'",
		EnvVars: prefixEnvVars("TYPE_SUFFIX_DATA"),
	}
	DeploymentFlag = &cli.PathFlag{
		Name:    "deployment",
		Usage:   "YAML file with the forwarder deployment (addresses, domain and type). Explicit flags take precedence",
		EnvVars: prefixEnvVars("DEPLOYMENT"),
	}
	SkipPromptFlag = &cli.BoolFlag{
		Name:    "skip-prompt",
		Aliases: []string{"s"},
		Usage:   "Skips the confirmation prompt",
		EnvVars: prefixEnvVars("SKIP_PROMPT"),
	}
	GasHintFlag = &cli.Uint64Flag{
		Name:     "gas-hint",
		Usage:    "Gas the request is built and estimated with, before the estimate replaces it",
		EnvVars:  prefixEnvVars("GAS_HINT"),
		Value:    DefaultValues.GasHint,
		Category: EstimationCategory,
	}
	EstimationMaxDurationFlag = &cli.DurationFlag{
		Name:     "estimation.max-duration",
		Usage:    "Maximum time spent retrying gas estimation",
		EnvVars:  prefixEnvVars("ESTIMATION_MAX_DURATION"),
		Value:    DefaultValues.EstimationMaxDuration,
		Category: EstimationCategory,
	}
	EstimationRetryIntervalFlag = &cli.DurationFlag{
		Name:     "estimation.retry-interval",
		Usage:    "Wait between failed gas estimation attempts",
		EnvVars:  prefixEnvVars("ESTIMATION_RETRY_INTERVAL"),
		Value:    DefaultValues.EstimationRetryInterval,
		Category: EstimationCategory,
	}
	EstimationGasStepFlag = &cli.Uint64Flag{
		Name:     "estimation.gas-step",
		Usage:    "Gas added to a successful estimate",
		EnvVars:  prefixEnvVars("ESTIMATION_GAS_STEP"),
		Value:    DefaultValues.EstimationGasStep,
		Category: EstimationCategory,
	}
	EstimationGasCeilingFlag = &cli.Uint64Flag{
		Name:     "estimation.gas-ceiling",
		Usage:    "Upper bound of the gas signed into the request",
		EnvVars:  prefixEnvVars("ESTIMATION_GAS_CEILING"),
		Value:    DefaultValues.EstimationGasCeiling,
		Category: EstimationCategory,
	}
	DialAttemptsFlag = &cli.IntFlag{
		Name:     "rpc.dial-attempts",
		Usage:    "Attempts to reach the chain RPC at startup",
		EnvVars:  prefixEnvVars("RPC_DIAL_ATTEMPTS"),
		Value:    DefaultValues.DialAttempts,
		Category: RPCCategory,
	}
	DialBackoffFlag = &cli.DurationFlag{
		Name:     "rpc.dial-backoff",
		Usage:    "Wait between dial attempts and between retried chain calls",
		EnvVars:  prefixEnvVars("RPC_DIAL_BACKOFF"),
		Value:    DefaultValues.DialBackoff,
		Category: RPCCategory,
	}
	DialTimeoutFlag = &cli.DurationFlag{
		Name:     "rpc.dial-timeout",
		Usage:    "Overall timeout for establishing the RPC connections",
		EnvVars:  prefixEnvVars("RPC_DIAL_TIMEOUT"),
		Value:    DefaultValues.DialTimeout,
		Category: RPCCategory,
	}
	CallTimeoutFlag = &cli.DurationFlag{
		Name:     "rpc.call-timeout",
		Usage:    "Timeout of a single RPC request",
		EnvVars:  prefixEnvVars("RPC_CALL_TIMEOUT"),
		Value:    DefaultValues.CallTimeout,
		Category: RPCCategory,
	}
	CallRetriesFlag = &cli.IntFlag{
		Name:     "rpc.call-retries",
		Usage:    "Retries of chain RPC requests that failed in transport. Relay submissions are never retried",
		EnvVars:  prefixEnvVars("RPC_CALL_RETRIES"),
		Value:    DefaultValues.CallRetries,
		Category: RPCCategory,
	}
	RelayMethodFlag = &cli.StringFlag{
		Name:     "relay.method",
		Usage:    "JSON-RPC method the gas relayer accepts relay requests on",
		EnvVars:  prefixEnvVars("RELAY_METHOD"),
		Value:    DefaultValues.RelayMethod,
		Category: RPCCategory,
	}
	WithdrawAmountFlag = &cli.StringFlag{
		Name:    "withdraw-amount-in-hex",
		Usage:   "Amount to withdraw from the faucet, hex-encoded",
		EnvVars: prefixEnvVars("WITHDRAW_AMOUNT_IN_HEX"),
		Value:   DefaultValues.WithdrawAmount,
	}
)

var requiredFlags = []cli.Flag{
	RelayerRPCFlag,
	ChainRPCFlag,
}

var optionalFlags = []cli.Flag{
	KeyFlag,
	ForwarderFlag,
	RecipientFlag,
	DomainNameFlag,
	DomainVersionFlag,
	TypeNameFlag,
	TypeSuffixDataFlag,
	DeploymentFlag,
	SkipPromptFlag,
	GasHintFlag,
	EstimationMaxDurationFlag,
	EstimationRetryIntervalFlag,
	EstimationGasStepFlag,
	EstimationGasCeilingFlag,
	DialAttemptsFlag,
	DialBackoffFlag,
	DialTimeoutFlag,
	CallTimeoutFlag,
	CallRetriesFlag,
	RelayMethodFlag,
}

// Flags returns the flags shared by all subcommands.
// The log flags carry mutable values, so every call builds a fresh set.
func Flags() []cli.Flag {
	var out []cli.Flag
	out = append(out, requiredFlags...)
	out = append(out, optionalFlags...)
	out = append(out, oplog.CLIFlags(EnvVarPrefix)...)
	out = append(out, opmetrics.CLIFlags(EnvVarPrefix, "op-gasless")...)
	return out
}

// FaucetFlags returns the flags of the faucet-withdraw subcommand.
func FaucetFlags() []cli.Flag {
	return append(Flags(), WithdrawAmountFlag)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

// ConfigFromCLI reads the run configuration. Fields the flags leave empty are
// filled from the deployment profile, if one is given.
func ConfigFromCLI(ctx *cli.Context, version string) (*config.Config, error) {
	cfg := &config.Config{
		Version:       version,
		LogConfig:     oplog.ReadCLIConfig(ctx),
		MetricsConfig: opmetrics.ReadCLIConfig(ctx),
	}
	if err := cliutil.PopulateStruct(cfg, ctx); err != nil {
		return nil, err
	}
	if cfg.Deployment != "" {
		d, err := config.LoadDeployment(cfg.Deployment)
		if err != nil {
			return nil, err
		}
		cfg.ApplyDeployment(d)
	}
	return cfg, nil
}
