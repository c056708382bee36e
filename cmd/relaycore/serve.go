// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/relaymesh/relaycore/internal/config"
	"github.com/relaymesh/relaycore/internal/ident"
	"github.com/relaymesh/relaycore/internal/logging"
	"github.com/relaymesh/relaycore/internal/observability"
	"github.com/relaymesh/relaycore/internal/throttle"
	"github.com/relaymesh/relaycore/internal/watch"
)

// newServeCmd creates the serve subcommand. Flag names mirror the
// config file keys so either source can set them.
func newServeCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the identity and admission core",
		Long: `Run the identity and admission core: client, channel, and watch
tables plus connection throttling, with metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, defaultConfigPath(*configFile))
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.String("server.name", defaults.Server.Name, "network-visible server name")
	flags.String("log.format", defaults.Log.Format, "log format (json or text)")
	flags.String("metrics.addr", defaults.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	flags.Int("throttle.period", defaults.Throttle.PeriodSeconds, "throttle window in seconds (0 = disabled)")
	flags.Int("throttle.limit", defaults.Throttle.Limit, "attempts allowed per window (0 = disabled)")

	return cmd
}

// core bundles the subsystems the serve command hosts.
type core struct {
	idents   *ident.Registry
	watches  *watch.Registry
	throttle *throttle.Store
	sweeper  *throttle.Sweeper
}

// buildCore wires the identity, watch, and throttle subsystems from the
// loaded configuration. reg may be nil when metrics are disabled.
func buildCore(cfg config.Config, reg prometheus.Registerer) (*core, error) {
	idents, err := ident.NewRegistry(cfg.Tables.ClientBuckets, cfg.Tables.ChannelBuckets, nil)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "relaycore_clients",
				Help: "Clients currently indexed by nickname",
			}, func() float64 { return float64(idents.Stats().Clients) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "relaycore_client_ids",
				Help: "Clients currently indexed by ID",
			}, func() float64 { return float64(idents.Stats().IDs) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "relaycore_channels",
				Help: "Channels currently indexed",
			}, func() float64 { return float64(idents.Stats().Channels) }),
		)
	}

	watches, err := watch.NewRegistryWithMetrics(cfg.Tables.WatchBuckets, logNotifier{}, nil, reg)
	if err != nil {
		return nil, err
	}

	exceptions, err := throttle.NewMaskList(map[throttle.Category][]string{
		throttle.CategoryConnect: cfg.Throttle.Exceptions,
	})
	if err != nil {
		return nil, err
	}
	store, err := throttle.NewStoreWithMetrics(throttle.Config{
		Period:  cfg.Throttle.Period(),
		Limit:   cfg.Throttle.Limit,
		Buckets: cfg.Tables.ThrottleBuckets,
	}, exceptions, nil, reg)
	if err != nil {
		return nil, err
	}

	return &core{
		idents:   idents,
		watches:  watches,
		throttle: store,
		sweeper:  throttle.StartSweeper(store),
	}, nil
}

// Close stops the background sweeper. The in-memory tables need no
// teardown of their own.
func (c *core) Close() {
	c.sweeper.Close()
}

// logNotifier is the serve-mode watch Notifier. With no protocol
// surface attached yet, fan-out decisions land in the log.
type logNotifier struct{}

func (logNotifier) Notify(sub watch.Subscriber, ev watch.Event) {
	to := "?"
	if c, ok := sub.(*ident.Client); ok {
		to = c.Name
	}
	slog.Debug("watch notification",
		"to", to,
		"kind", ev.Kind.String(),
		"nick", ev.Nick,
	)
}

func runServe(ctx context.Context, cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("relaycore", version, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer *observability.Server
	var reg prometheus.Registerer
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, ready.Load)
		reg = obsServer.Registry()
	}

	c, err := buildCore(cfg, reg)
	if err != nil {
		return err
	}
	defer c.Close()

	if obsServer != nil {
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return startErr
		}
		go func() {
			if obsErr, ok := <-obsErrCh; ok && obsErr != nil {
				slog.Error("observability server failed, shutting down", "error", obsErr)
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
				slog.Warn("error stopping observability server", "error", stopErr)
			}
		}()
	}

	ready.Store(true)
	slog.Info("core ready",
		"server", cfg.Server.Name,
		"throttle_enabled", cfg.Throttle.Period() > 0 && cfg.Throttle.Limit > 0,
	)
	cmd.Println("relaycore started")

	<-ctx.Done()
	ready.Store(false)
	slog.Info("shutting down")
	return nil
}
