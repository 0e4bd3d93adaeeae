package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/canopy-network/gaugewatch/app/gaugewatch"
	"github.com/canopy-network/gaugewatch/pkg/classify"
	"github.com/canopy-network/gaugewatch/pkg/config"
	"github.com/canopy-network/gaugewatch/pkg/logging"
	"github.com/canopy-network/gaugewatch/pkg/notify"
	"github.com/canopy-network/gaugewatch/pkg/redis"
)

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"lcd":                     "lcd_endpoints",
	"data-dir":                "data_dir",
	"no-persist":              "no_persist",
	"strict":                  "strict_snapshots",
	"continue-on-fetch-error": "continue_on_fetch_error",
	"schedule":                "schedule",
	"addr":                    "addr",
}

type cli struct {
	v      *viper.Viper
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	root, _ := buildRoot()
	return root
}

func buildRoot() (*cobra.Command, *cli) {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "gaugewatch",
		Short: "Watch Osmosis incentive gauges and notify on notable changes",
		Long: `gaugewatch polls the node's incentives API, compares the gauge list with the
previous poll and reports new external, internal and superfluid gauges as well
as gauges whose remaining epochs match their bonding duration.

Without a subcommand a single run is performed.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE:              c.runOnce,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: ./gaugewatch.yaml)")
	flags.StringSlice("lcd", nil, "LCD endpoints, tried in order")
	flags.String("data-dir", "", "directory for snapshots, results and caches")
	flags.Bool("no-persist", false, "do not write snapshots or results (dry run)")
	flags.Bool("strict", false, "fail the run when a snapshot cannot be parsed")
	flags.Bool("continue-on-fetch-error", false, "end the run cleanly when gauges cannot be fetched")
	flags.String("schedule", "", "cron schedule with seconds field for watch mode")
	flags.String("addr", "", "probe listen address for watch mode")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Perform one poll, diff and notify pass",
			Args:  cobra.NoArgs,
			RunE:  c.runOnce,
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Run on a cron schedule and serve health probes",
			Args:  cobra.NoArgs,
			RunE:  c.watch,
		},
		c.tailCmd(),
	)
	return root, c
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil {
			if err := c.v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	if path, _ := flags.GetString("config"); path != "" {
		c.v.SetConfigFile(path)
	}

	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := logging.New()
	if err != nil {
		return fmt.Errorf("unable to build logger: %w", err)
	}
	c.logger = logger
	return nil
}

func (c *cli) runOnce(cmd *cobra.Command, _ []string) error {
	defer func() { _ = c.logger.Sync() }()

	app, err := gaugewatch.Initialize(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func (c *cli) watch(cmd *cobra.Command, _ []string) error {
	defer func() { _ = c.logger.Sync() }()
	ctx := cmd.Context()

	app, err := gaugewatch.Initialize(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}

	if err := app.SetupScheduler(ctx, c.cfg.Schedule); err != nil {
		app.Close()
		return fmt.Errorf("invalid schedule %q: %w", c.cfg.Schedule, err)
	}

	// Immediate pass before cron
	_, _ = app.RunOnce(ctx)

	app.StartCron()
	app.SetupServer()
	app.Start(ctx)
	return nil
}

func (c *cli) tailCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print events from the redis stream as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer func() { _ = c.logger.Sync() }()
			if !c.cfg.RedisEnabled() {
				return errors.New("redis_addr is not configured")
			}
			ctx := cmd.Context()
			rc, err := redis.NewClient(ctx, redis.Options{
				Addr:     c.cfg.RedisAddr,
				Password: c.cfg.RedisPassword,
				DB:       c.cfg.RedisDB,
			}, c.logger)
			if err != nil {
				return err
			}
			defer rc.Close()

			formatter, err := notify.NewFormatter(nil, c.logger)
			if err != nil {
				return err
			}
			err = rc.Tail(ctx, redis.TailConfig{Stream: c.cfg.RedisStream, LastID: from}, func(_ context.Context, id, runID string, ev classify.Event) error {
				msg, err := formatter.Format(ev)
				if err != nil {
					msg = string(ev.Type) + " gauge " + ev.Gauge.ID
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s %s]\n%s\n\n", runID, id, msg)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "$", `stream id to read after ("0" replays everything)`)
	return cmd
}
