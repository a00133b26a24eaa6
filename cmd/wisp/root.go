package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wispweb/wisp/config"
	"github.com/wispweb/wisp/engine"
	"github.com/wispweb/wisp/hostfunc"
	"github.com/wispweb/wisp/interp"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "wisp",
	Short: "HTTP server for interpreter scripts",
	Long: `wisp serves a directory of interpreter scripts over HTTP.

Each request mapped to a script compiles it, injects the request context,
executes it, and returns the script output as the response body. Non-script
paths are served as static files.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringSlice("debug", nil, "Debug flags: requests, resolver, interp, all")
	rootCmd.PersistentFlags().String("runtime", "", "Path to the interpreter WASI binary")
}

// loadConfig reads the config file and overlays flags that were set
// explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug, _ = cmd.Flags().GetStringSlice("debug")
	}
	if cmd.Flags().Changed("runtime") {
		cfg.Runtime, _ = cmd.Flags().GetString("runtime")
	}

	overlay := map[string]*string{
		"listen":     &cfg.Listen,
		"webroot":    &cfg.WebRoot,
		"webhome":    &cfg.WebHome,
		"script-ext": &cfg.ScriptExt,
		"log-file":   &cfg.LogFile,
	}
	for name, dst := range overlay {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	if f := cmd.Flags().Lookup("allow-host"); f != nil && f.Changed {
		cfg.AllowedHosts, _ = cmd.Flags().GetStringSlice("allow-host")
	}

	return cfg, nil
}

func newLogger(debug config.Debug) *slog.Logger {
	level := slog.LevelInfo
	if debug != config.DebugNone {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildTable assembles the process-wide host function table. Registration
// order is fixed here and identical for every program.
func buildTable(cfg *config.Config) (*hostfunc.Table, error) {
	table := hostfunc.NewTable()

	kv := hostfunc.NewKVStore()
	entries := []hostfunc.Entry{
		{Name: "server_time", Fn: hostfunc.ServerTime},
		{Name: "server_env", Fn: hostfunc.NewServerEnv(version)},
		{Name: "kv_get", Fn: kv.Get},
		{Name: "kv_set", Fn: kv.Set},
		{Name: "kv_delete", Fn: kv.Delete},
		{Name: "kv_keys", Fn: kv.Keys},
	}

	if len(cfg.AllowedHosts) > 0 {
		httpCfg := hostfunc.HTTPConfig{AllowedHosts: cfg.AllowedHosts}
		entries = append(entries,
			hostfunc.Entry{Name: "http_request", Fn: hostfunc.NewHTTP(httpCfg).Request},
			hostfunc.Entry{Name: "http_get", Fn: hostfunc.NewHTTPGet(httpCfg)},
		)
	}

	for _, e := range entries {
		if err := table.Register(e.Name, e.Fn); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// buildEngine loads the interpreter binary and assembles the engine with
// the process-wide configuration.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	binary, err := os.ReadFile(cfg.Runtime)
	if err != nil {
		return nil, fmt.Errorf("load interpreter runtime: %w", err)
	}

	var iopts []interp.Option
	if cfg.DebugFlags().Has(config.DebugInterp) {
		iopts = append(iopts, interp.WithStderrLogging())
	}
	rt, err := interp.New(ctx, binary, iopts...)
	if err != nil {
		return nil, err
	}

	table, err := buildTable(cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	eng, err := engine.New(rt, cfg.WebRoot, cfg.WebHome,
		engine.WithLogger(logger),
		engine.WithTable(table),
		engine.WithScriptLib(cfg.ScriptLib),
	)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return eng, nil
}
