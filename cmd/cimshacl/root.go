package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/geoknoesis/cimshacl/config"
	log "github.com/geoknoesis/cimshacl/internal/logging"
)

// app holds what the commands share.
type app struct {
	configPath string
	cfg        *config.Config
	stdout     io.Writer
	stderr     io.Writer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cimshacl",
		Short: "validate CIM instance data against SHACL constraints",
		Long: "cimshacl merges CIM instance files and archives into one graph, resolves " +
			"the owl:imports closure of the constraint files and hands both to a SHACL engine.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.persistentPreRunE,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default: cimshacl.yaml in the working directory or a parent)")
	flags.String("log-level", "", `log level ("trace", "debug", "info", "warn", "error")`)
	flags.String("log-format", "", `log format ("auto", "json", "console")`)
	flags.String("metrics-listen", "", "address serving Prometheus metrics, e.g. localhost:9090")

	registerValidateCmd(rootCmd, a)
	registerWatchCmd(rootCmd, a)
	registerMergeCmd(rootCmd, a)
	registerImportsCmd(rootCmd, a)
	registerConfigCmd(rootCmd, a)
	registerVersionCmd(rootCmd)
	return rootCmd
}

// persistentPreRunE loads the config, applies flag overrides and sets up logging.
func (a *app) persistentPreRunE(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := (&config.Loader{}).Load(a.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := log.New(a.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	log.SetGlobalLogger(logger)
	color.NoColor = !isTerminal(a.stdout)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// serveMetrics starts the metrics endpoint when one is configured. The
// returned function shuts it down.
func (a *app) serveMetrics() func() {
	addr := a.cfg.Metrics.Listen
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
