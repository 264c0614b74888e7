package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/urfave/cli/v2"

	opservice "github.com/mantlenetworkio/gasless/op-service"
)

const (
	PushURLFlagName = "metrics.push-url"
	JobFlagName     = "metrics.job"
)

// CLIFlags configure pushing metrics to a Prometheus Pushgateway.
// Short-lived commands exit before a scraper could reach them, so they push once on exit.
func CLIFlags(envPrefix string, defaultJob string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    PushURLFlagName,
			Usage:   "Pushgateway URL to push metrics to on exit. Metrics are not pushed when empty",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "METRICS_PUSH_URL"),
		},
		&cli.StringFlag{
			Name:    JobFlagName,
			Usage:   "Job label of the pushed metrics",
			Value:   defaultJob,
			EnvVars: opservice.PrefixEnvVar(envPrefix, "METRICS_JOB"),
		},
	}
}

type CLIConfig struct {
	PushURL string
	Job     string
}

func (c CLIConfig) Enabled() bool {
	return c.PushURL != ""
}

func (c CLIConfig) Check() error {
	if !c.Enabled() {
		return nil
	}
	u, err := url.Parse(c.PushURL)
	if err != nil {
		return fmt.Errorf("invalid metrics push url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid metrics push url scheme %q", u.Scheme)
	}
	if c.Job == "" {
		return errors.New("metrics job is required when pushing metrics")
	}
	return nil
}

func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	return CLIConfig{
		PushURL: ctx.String(PushURLFlagName),
		Job:     ctx.String(JobFlagName),
	}
}

// Push replaces the metrics of the configured job on the Pushgateway with the contents of g.
func Push(ctx context.Context, cfg CLIConfig, g prometheus.Gatherer) error {
	if err := push.New(cfg.PushURL, cfg.Job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", cfg.PushURL, err)
	}
	return nil
}
