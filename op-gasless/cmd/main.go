package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/gasless/op-gasless/config"
	"github.com/mantlenetworkio/gasless/op-gasless/flags"
	"github.com/mantlenetworkio/gasless/op-gasless/gasless"
	"github.com/mantlenetworkio/gasless/op-gasless/metrics"
	opservice "github.com/mantlenetworkio/gasless/op-service"
	"github.com/mantlenetworkio/gasless/op-service/client"
	"github.com/mantlenetworkio/gasless/op-service/clock"
	"github.com/mantlenetworkio/gasless/op-service/dial"
	oplog "github.com/mantlenetworkio/gasless/op-service/log"
	opmetrics "github.com/mantlenetworkio/gasless/op-service/metrics"
	"github.com/mantlenetworkio/gasless/op-service/signer"
	"github.com/mantlenetworkio/gasless/op-service/sources"
)

var (
	Version   = "v0.0.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := run(ctx, os.Stdout, os.Stderr, os.Args, newTerminalPrompter())
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx context.Context, w io.Writer, ew io.Writer, args []string, prompter Prompter) error {
	oplog.SetupDefaults()

	app := cli.NewApp()
	app.Writer = w
	app.ErrWriter = ew
	app.Version = opservice.FormatVersion(Version, GitCommit, GitDate, "")
	app.Name = "op-gasless"
	app.Usage = "Relay contract calls through a trusted forwarder without paying for gas."
	app.Description = "Signs an EIP-712 forward request with a funds-less key and hands it to a gas relayer.\n" +
		" The relayer pays for the transaction that executes the call."
	app.Commands = []*cli.Command{
		{
			Name:   "counter-increment",
			Usage:  "Increments the counter of the recipient contract",
			Flags:  flags.Flags(),
			Action: relayAction(app.Version, prompter, counterIncrement),
		},
		{
			Name:   "faucet-withdraw",
			Usage:  "Withdraws funds from the recipient faucet contract",
			Flags:  flags.FaucetFlags(),
			Action: relayAction(app.Version, prompter, faucetWithdraw),
		},
	}
	return app.RunContext(ctx, args)
}

func counterIncrement(*config.Config) gasless.CalldataStrategy {
	return gasless.IncrementCall{}
}

func faucetWithdraw(cfg *config.Config) gasless.CalldataStrategy {
	return gasless.FaucetWithdrawCall{Amount: cfg.WithdrawAmount}
}

func relayAction(version string, prompter Prompter, strategyFn func(cfg *config.Config) gasless.CalldataStrategy) cli.ActionFunc {
	return func(cliCtx *cli.Context) error {
		if err := flags.CheckRequired(cliCtx); err != nil {
			return fmt.Errorf("%w: %w", gasless.ErrInput, err)
		}
		cfg, err := flags.ConfigFromCLI(cliCtx, version)
		if err != nil {
			return fmt.Errorf("%w: %w", gasless.ErrInput, err)
		}
		if err := cfg.Check(); err != nil {
			return fmt.Errorf("%w: invalid configuration: %w", gasless.ErrInput, err)
		}

		logger := oplog.NewLogger(oplog.AppOut(cliCtx), cfg.LogConfig)
		oplog.SetGlobalLogHandler(logger.Handler())

		return relay(cliCtx.Context, oplog.AppOut(cliCtx), logger, cfg, prompter, strategyFn(cfg))
	}
}

func relay(ctx context.Context, out io.Writer, logger log.Logger, cfg *config.Config, prompter Prompter, strategy gasless.CalldataStrategy) error {
	fmt.Fprintf(out, "op-gasless version %s\n", cfg.Version)

	m := metrics.NewMetrics("default")
	m.RecordInfo(cfg.Version)
	if cfg.MetricsConfig.Enabled() {
		defer pushMetrics(logger, cfg.MetricsConfig, m)
	}

	s, err := signer.LoadLocalSigner(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: %w", gasless.ErrInput, err)
	}
	defer s.Close()
	color.New(color.FgGreen).Fprintf(out, "Loaded keys: '%s'\n", s.Address())

	chain, relayClient, err := dialEndpoints(ctx, logger, m, cfg)
	if err != nil {
		return err
	}
	defer chain.Close()
	defer relayClient.Close()

	chainCtx, err := gasless.NewChainContext(ctx, chain, relayClient)
	if err != nil {
		return err
	}
	logger.Info("Running against chain", "chain_id", chainCtx.ChainID(), "chain_rpc", cfg.ChainRPC,
		"relayer_rpc", cfg.RelayerRPC, "forwarder", cfg.Forwarder, "recipient", cfg.Recipient, "flow", strategy.Name())

	writeSummary(out, cfg, chainCtx, s.Address(), strategy)
	if !cfg.SkipPrompt {
		ok, err := prompter.PromptConfirm(fmt.Sprintf("Relay %s from %s on chain %s?", strategy.Name(), s.Address(), chainCtx.ChainID()))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("Aborted, nothing was submitted")
			return nil
		}
	}

	pending, err := gasless.NewRelayer(logger, m, cfg.RelayConfig(), s, clock.SystemClock).BuildAndRelay(ctx, chainCtx, strategy)
	if err != nil {
		return err
	}
	logger.Info("Pending transaction", "hash", pending.Hash)
	return nil
}

// dialEndpoints connects to the chain and the relayer concurrently.
func dialEndpoints(ctx context.Context, logger log.Logger, m metrics.Metricer, cfg *config.Config) (*sources.EthClient, *sources.RelayClient, error) {
	var (
		chain       *sources.EthClient
		relayClient *sources.RelayClient
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chain, err = dial.DialEthClientWithTimeout(gctx, cfg.DialTimeout, logger.New("endpoint", "chain"), cfg.ChainRPC,
			client.WithDialAttempts(cfg.DialAttempts),
			client.WithFixedDialBackoff(cfg.DialBackoff),
			client.WithCallTimeout(cfg.CallTimeout),
			client.WithCallRetries(cfg.CallRetries, cfg.DialBackoff),
			client.WithRPCMetrics("chain", m))
		if err != nil {
			return fmt.Errorf("%w: failed to dial chain RPC: %w", gasless.ErrChainQuery, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		relayClient, err = dial.DialRelayClientWithTimeout(gctx, cfg.DialTimeout, logger.New("endpoint", "relayer"), cfg.RelayerRPC, cfg.RelayMethod,
			client.WithCallTimeout(cfg.CallTimeout),
			client.WithRPCMetrics("relayer", m))
		if err != nil {
			return fmt.Errorf("%w: failed to dial gas relayer RPC: %w", gasless.ErrSubmission, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if chain != nil {
			chain.Close()
		}
		if relayClient != nil {
			relayClient.Close()
		}
		return nil, nil, err
	}
	return chain, relayClient, nil
}

// pushMetrics pushes once, on exit. A failed push does not fail the run.
func pushMetrics(logger log.Logger, cfg opmetrics.CLIConfig, m *metrics.Metrics) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opmetrics.Push(ctx, cfg, m.Registry()); err != nil {
		logger.Warn("Failed to push metrics", "err", err)
		return
	}
	logger.Debug("Pushed metrics", "url", cfg.PushURL, "job", cfg.Job)
}
