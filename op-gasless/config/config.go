package config

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/holiman/uint256"

	"github.com/mantlenetworkio/gasless/op-gasless/gasless"
	oplog "github.com/mantlenetworkio/gasless/op-service/log"
	opmetrics "github.com/mantlenetworkio/gasless/op-service/metrics"
	"github.com/mantlenetworkio/gasless/op-service/signer"
)

// Config is the configuration of a single op-gasless run.
// The cli tags name the flags the fields are populated from.
type Config struct {
	Version       string
	LogConfig     oplog.CLIConfig
	MetricsConfig opmetrics.CLIConfig

	PrivateKey     string         `cli:"key"`
	RelayerRPC     string         `cli:"gas-relayer-server-rpc-url"`
	ChainRPC       string         `cli:"chain-rpc-url"`
	Forwarder      common.Address `cli:"trusted-forwarder-contract-address"`
	Recipient      common.Address `cli:"recipient-contract-address"`
	DomainName     string         `cli:"domain-name"`
	DomainVersion  string         `cli:"domain-version"`
	TypeName       string         `cli:"type-name"`
	TypeSuffixData string         `cli:"type-suffix-data"`
	Deployment     string         `cli:"deployment"`
	SkipPrompt     bool           `cli:"skip-prompt"`
	// WithdrawAmount is only set for the faucet-withdraw command.
	WithdrawAmount *uint256.Int `cli:"withdraw-amount-in-hex,hex"`

	GasHint                 uint64        `cli:"gas-hint"`
	EstimationMaxDuration   time.Duration `cli:"estimation.max-duration"`
	EstimationRetryInterval time.Duration `cli:"estimation.retry-interval"`
	EstimationGasStep       uint64        `cli:"estimation.gas-step"`
	EstimationGasCeiling    uint64        `cli:"estimation.gas-ceiling"`

	DialAttempts int           `cli:"rpc.dial-attempts"`
	DialBackoff  time.Duration `cli:"rpc.dial-backoff"`
	DialTimeout  time.Duration `cli:"rpc.dial-timeout"`
	CallTimeout  time.Duration `cli:"rpc.call-timeout"`
	CallRetries  int           `cli:"rpc.call-retries"`
	RelayMethod  string        `cli:"relay.method"`
}

func (c *Config) RelayConfig() gasless.RelayConfig {
	return gasless.RelayConfig{
		Forwarder:      c.Forwarder,
		Recipient:      c.Recipient,
		DomainName:     c.DomainName,
		DomainVersion:  c.DomainVersion,
		TypeName:       c.TypeName,
		TypeSuffixData: c.TypeSuffixData,
		GasHint:        c.GasHint,
		Estimation: gasless.EstimationConfig{
			MaxDuration:   c.EstimationMaxDuration,
			RetryInterval: c.EstimationRetryInterval,
			GasStep:       c.EstimationGasStep,
			GasCeiling:    c.EstimationGasCeiling,
		},
	}
}

// ApplyDeployment fills the fields the flags left empty from the deployment profile.
func (c *Config) ApplyDeployment(d *Deployment) {
	if c.Forwarder == (common.Address{}) && d.Forwarder != "" {
		c.Forwarder = common.HexToAddress(d.Forwarder)
	}
	if c.Recipient == (common.Address{}) && d.Recipient != "" {
		c.Recipient = common.HexToAddress(d.Recipient)
	}
	if c.DomainName == "" {
		c.DomainName = d.DomainName
	}
	if c.DomainVersion == "" {
		c.DomainVersion = d.DomainVersion
	}
	if c.TypeName == "" {
		c.TypeName = d.TypeName
	}
	if c.TypeSuffixData == "" {
		c.TypeSuffixData = d.TypeSuffixData
	}
}

func (c *Config) Check() error {
	var result *multierror.Error
	if c.RelayerRPC == "" {
		result = multierror.Append(result, errors.New("gas relayer server RPC URL is required"))
	}
	if c.ChainRPC == "" {
		result = multierror.Append(result, errors.New("chain RPC URL is required"))
	}
	if c.PrivateKey != "" {
		if _, err := signer.ParsePrivateKey(c.PrivateKey); err != nil {
			result = multierror.Append(result, err)
		}
	}
	relayCfg := c.RelayConfig()
	if err := relayCfg.Check(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.DialAttempts < 1 {
		result = multierror.Append(result, errors.New("at least one dial attempt is required"))
	}
	if c.DialTimeout <= 0 {
		result = multierror.Append(result, errors.New("dial timeout must be positive"))
	}
	if c.CallTimeout <= 0 {
		result = multierror.Append(result, errors.New("call timeout must be positive"))
	}
	if c.CallRetries < 0 {
		result = multierror.Append(result, errors.New("call retries must not be negative"))
	}
	if c.RelayMethod == "" {
		result = multierror.Append(result, errors.New("relay method is required"))
	}
	if err := c.MetricsConfig.Check(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
