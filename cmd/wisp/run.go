package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wispweb/wisp/bridge"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a single script and print its output",
	Long: `Run one script through the same pipeline the server uses.

The script's directory becomes the web root, so relative includes resolve
the same way they would under serve. A synthetic GET request head is
injected.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	script, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("script: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.WebRoot = filepath.Dir(script)
	cfg.WebHome = ""
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.DebugFlags())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close(context.Background())

	resolver, err := bridge.NewResolver(cfg.WebRoot, cfg.WebHome, bridge.WithResolverLogger(logger))
	if err != nil {
		return err
	}
	handler := bridge.NewHandler(eng, resolver, bridge.WithHandlerLogger(logger))

	head := []byte("GET /" + filepath.Base(script) + " HTTP/1.1\r\nHost: localhost\r\n\r\n")
	res := handler.Run(ctx, script, head)

	switch res.Outcome {
	case bridge.OutcomeOutput:
		os.Stdout.Write(res.Body)
		return nil
	case bridge.OutcomeNoOutput:
		return nil
	default:
		return fmt.Errorf("script failed: %s", res.Outcome)
	}
}
