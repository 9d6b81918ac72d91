package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/internal/metrics"
	"gitlab.bluewillows.net/root/dnsupd/internal/updater"
	"gitlab.bluewillows.net/root/dnsupd/pkg/dnsupdate"
)

// errUsage marks command line errors detected by cobra.
var errUsage = errors.New("usage error")

// app holds what one invocation shares between the root command and the
// set and delete subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// newTransport builds the DNS transport once the configuration is known.
	newTransport func(cfg *config.Config, logger *slog.Logger) updater.Transport
	// newKeys builds the key loader once the configuration is known.
	newKeys func(cfg *config.Config, logger *slog.Logger) updater.KeyLoader

	configPath      string
	envFile         string
	logFormat       string
	verbose         bool
	debug           bool
	metricsTextfile string

	cfg     *config.Config
	logger  *slog.Logger
	audit   *slog.Logger
	closer  io.Closer
	metrics *metrics.Metrics
}

func newApp() *app {
	return &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		newTransport: func(cfg *config.Config, logger *slog.Logger) updater.Transport {
			return dnsupdate.NewClient(dnsupdate.Config{
				Timeout: cfg.Timeout,
				UseTCP:  cfg.UseTCP,
				Port:    cfg.Port,
			}, dnsupdate.WithLogger(logger))
		},
		newKeys: func(cfg *config.Config, logger *slog.Logger) updater.KeyLoader {
			return newKeyLoader(cfg, logger)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dnsupd",
		Short:   "Update DNS records with RFC 2136 dynamic updates",
		Long:    "dnsupd adds, replaces and deletes DNS records on authoritative servers\nusing TSIG-signed dynamic updates, keeping reverse PTR records in step.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Configuration file (env DNSUPD_CONFIG) (default "+config.DefaultConfigPath+")")
	flags.StringVar(&a.envFile, "env-file", "", "Load environment variables from a dotenv file first")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (text|json)")
	flags.BoolVar(&a.verbose, "verbose", false, "Log informational messages")
	flags.BoolVar(&a.debug, "debug", false, "Log debug messages")
	flags.StringVar(&a.metricsTextfile, "metrics-textfile", "", "Write metrics in node_exporter textfile format to this file at exit")

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdSet(a))
	cmd.AddCommand(newCmdDelete(a))
	return cmd
}

// setup loads the configuration and builds the loggers and metrics.
func (a *app) setup() error {
	cfg, err := config.Load(config.LoadOptions{Path: a.configPath, EnvFile: a.envFile})
	if err != nil {
		return err
	}
	if a.logFormat != "" {
		switch a.logFormat {
		case "json", "text":
			cfg.LogFormat = a.logFormat
		default:
			return fmt.Errorf("%w: invalid --log-format %q (must be json or text)", errUsage, a.logFormat)
		}
	}
	if a.metricsTextfile != "" {
		cfg.MetricsTextfile = a.metricsTextfile
	}
	a.cfg = cfg

	a.logger = setupLogger(a.stderr, logLevel(cfg.LogLevel, a.verbose, a.debug), cfg.LogFormat).
		With(slog.String("run_id", uuid.NewString()))
	slog.SetDefault(a.logger)

	a.audit, a.closer = setupAuditLogger(cfg.Audit)

	if cfg.MetricsTextfile != "" {
		a.metrics = metrics.New()
		a.metrics.SetBuildInfo(version, runtime.Version())
	}

	a.logger.Debug("configuration loaded",
		slog.String("path", cfg.Path),
		slog.Int("zones", len(cfg.Store.Zones())),
		slog.Duration("timeout", cfg.Timeout),
		slog.Bool("tcp", cfg.UseTCP),
	)
	return nil
}

func (a *app) newUpdater() *updater.Updater {
	opts := []updater.Option{updater.WithLogger(a.logger)}
	if a.audit != nil {
		opts = append(opts, updater.WithAuditLogger(a.audit))
	}
	if a.metrics != nil {
		opts = append(opts, updater.WithObserver(a.metrics))
	}
	return updater.New(a.cfg.Store, a.newTransport(a.cfg, a.logger), a.newKeys(a.cfg, a.logger), opts...)
}

// run sets up the invocation, runs fn and reports its result.
func (a *app) run(ctx context.Context, fn func(ctx context.Context, u *updater.Updater) (*updater.Result, error)) error {
	if err := a.setup(); err != nil {
		return err
	}
	defer a.teardown()

	result, err := fn(ctx, a.newUpdater())
	if result != nil {
		for _, line := range result.Lines() {
			fmt.Fprintln(a.stdout, line)
		}
		if len(result.Outcomes) > 0 {
			a.logger.Info(result.Summary(),
				slog.String("command", result.Command),
				slog.Int("operations", len(result.Outcomes)),
				slog.Int("exchanges", result.Exchanges),
				slog.Duration("duration", result.Duration()),
			)
		}
	}
	return err
}

func (a *app) teardown() {
	if a.metrics != nil {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
			a.logger.Warn("failed to write metrics textfile",
				slog.String("path", a.cfg.MetricsTextfile),
				slog.String("error", err.Error()),
			)
		}
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.logger.Warn("failed to close audit log",
				slog.String("path", a.cfg.Audit.File),
				slog.String("error", err.Error()),
			)
		}
	}
}

// minimumArgs is cobra.MinimumNArgs with the error marked as a usage error.
func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}
