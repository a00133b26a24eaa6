package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/wispweb/wisp/bridge"
	"github.com/wispweb/wisp/engine"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive script console",
	Long: `Read-eval-print loop against the script engine.

Each snippet is written to a scratch file and run through the full pipeline.
End a line with a backslash to continue it on the next line. Type "exit" or
press Ctrl-D to quit.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	scratch, err := os.MkdirTemp("", "wisp-console-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	cfg.WebRoot = scratch
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

	home, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "wisp> ",
		HistoryFile:     filepath.Join(home, ".wisp_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("wisp console " + version + " (exit or Ctrl-D to quit)")

	var n int
	for {
		snippet, err := readSnippet(rl)
		if err != nil {
			return nil
		}
		if snippet == "" {
			continue
		}
		if snippet == "exit" || snippet == "quit" {
			return nil
		}

		n++
		path := filepath.Join(scratch, fmt.Sprintf("snippet_%d%s", n, cfg.ScriptExt))
		src := snippet
		if !strings.HasPrefix(src, "<?") {
			src = "<?php\n" + src
		}
		if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		head := []byte("GET /console HTTP/1.1\r\nHost: localhost\r\n\r\n")
		res := handler.Run(ctx, path, head)
		printResult(res, eng)
	}
}

// readSnippet reads one logical snippet, joining lines that end with a
// trailing backslash.
func readSnippet(rl *readline.Instance) (string, error) {
	var lines []string
	prompt := rl.Config.Prompt
	defer rl.SetPrompt(prompt)

	for {
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		if strings.HasSuffix(line, "\\") {
			lines = append(lines, strings.TrimSuffix(line, "\\"))
			rl.SetPrompt("  ... ")
			continue
		}
		lines = append(lines, line)
		return strings.TrimSpace(strings.Join(lines, "\n")), nil
	}
}

func printResult(res bridge.Result, eng *engine.Engine) {
	switch res.Outcome {
	case bridge.OutcomeOutput:
		os.Stdout.Write(res.Body)
		if len(res.Body) > 0 && res.Body[len(res.Body)-1] != '\n' {
			fmt.Println()
		}
	case bridge.OutcomeNoOutput:
	default:
		fmt.Fprintf(os.Stderr, "error: %s\n", res.Outcome)
		if log := eng.ErrorLog(); log != "" {
			fmt.Fprintln(os.Stderr, log)
		}
	}
}
