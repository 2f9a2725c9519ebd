package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/brettbedarf/zkfs/config"
	"github.com/brettbedarf/zkfs/internal/util"
	"github.com/brettbedarf/zkfs/server"
	"github.com/brettbedarf/zkfs/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type options struct {
	verbose     int
	configPath  string
	umount      bool
	metricsAddr string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "zkfs [flags] <target> <mountpoint>",
		Short: "Mount a ZooKeeper tree as a filesystem",
		Long: `Mount a ZooKeeper tree as a filesystem.

A node's children appear as the directory "name" and its payload as the file
"name.contents". The target is host:port[,host:port...][/chroot], optionally
prefixed with a store scheme (zk:// or mem://).

Examples:
  zkfs localhost:2181 /mnt/zk
  zkfs -v 4 zk1:2181,zk2:2181/app /mnt/app
  zkfs mem:// /tmp/scratch`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0], args[1])
		},
	}
	cmd.Flags().IntVarP(&opts.verbose, "verbose", "v", config.InfoVerbose,
		"Log verbosity level between 1 (error) and 5 (trace)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML or JSON config override file")
	cmd.Flags().BoolVarP(&opts.umount, "umount", "u", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9102)")
	return cmd
}

// loadConfig layers flags over the override file over defaults
func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	override := &config.ConfigOverride{}
	if opts.configPath != "" {
		fileOverride, err := config.LoadConfigOverrideFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		override = fileOverride
	}
	if cmd.Flags().Changed("verbose") || override.LogLvl == nil {
		override.LogLvl = util.Pointer(opts.verbose)
	}
	if cmd.Flags().Changed("metrics-addr") {
		override.MetricsAddr = util.Pointer(opts.metricsAddr)
	}
	return config.NewConfig(override), nil
}

func run(cmd *cobra.Command, opts options, target, mnt string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")
	logger.Info().Str("target", target).Str("mnt", mnt).Msg("zkfs initializing")

	// Try unmount if requested
	if opts.umount {
		// we ignore error here if not already mounted
		exec.Command("fusermount", "-u", mnt).Run() // nolint:errcheck
	}

	store.RegisterBuiltins()

	var metrics *store.Metrics
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = store.NewMetrics(reg)
		metricsSrv = serveMetrics(cfg.MetricsAddr, reg)
	}

	st, err := store.Open(cmd.Context(), target, cfg, metrics)
	if err != nil {
		logger.Error().Err(err).Str("target", target).Msg("Failed to open store")
		return err
	}

	zfs := server.New(cfg, st)
	if err := zfs.Serve(mnt); err != nil {
		logger.Error().Err(err).Str("mnt", mnt).Msg("Failed to mount filesystem")
		_ = zfs.Close()
		return err
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(signalChan)
	go func() {
		sig, ok := <-signalChan
		if !ok {
			return
		}
		logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")
		if err := zfs.Unmount(); err != nil {
			logger.Error().Err(err).Msg("Failed to unmount filesystem")
		}
	}()

	logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")
	zfs.Wait()
	logger.Info().Msg("Filesystem unmounted, shutting down")

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}
	if err := zfs.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close store")
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	logger := util.GetLogger("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics listener failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("Serving metrics")
	return srv
}
