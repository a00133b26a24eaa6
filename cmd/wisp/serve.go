package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wispweb/wisp/bridge"
	"github.com/wispweb/wisp/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scripts and static files over HTTP",
	Long: `Start the HTTP server.

Requests ending in the script extension run through the script pipeline;
everything else, and any script file that does not exist, is handled by the
static file server rooted at webroot/webhome.`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringP("listen", "l", ":8080", "Listen address")
	serveCmd.Flags().String("webroot", "", "Web root directory")
	serveCmd.Flags().String("webhome", "", "App home under the web root, e.g. /admin")
	serveCmd.Flags().String("script-ext", ".php", "Script file extension")
	serveCmd.Flags().String("log-file", "", "Log path clients are pointed at on compile errors")
	serveCmd.Flags().StringSlice("allow-host", nil, "Allow script HTTP to host (repeatable)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		cmd.PrintErrf("Error: %v\n", err)
		os.Exit(1)
	}

	debug := cfg.DebugFlags()
	logger := newLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// An engine that fails to come up disables the script pipeline for the
	// life of the process; static serving continues.
	var scripts *bridge.Handler
	eng, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Error("script engine unavailable", "error", err)
	} else {
		defer eng.Close(context.Background())

		resolver, rerr := bridge.NewResolver(cfg.WebRoot, cfg.WebHome,
			bridge.WithResolverLogger(logger),
			bridge.WithResolverDebug(debug.Has(config.DebugResolver)),
		)
		if rerr != nil {
			cmd.PrintErrf("Error: %v\n", rerr)
			os.Exit(1)
		}

		opts := []bridge.HandlerOption{bridge.WithHandlerLogger(logger)}
		if cfg.LogFile != "" {
			opts = append(opts, bridge.WithLogHint(cfg.LogFile))
		}
		scripts = bridge.NewHandler(eng, resolver, opts...)
	}

	appRoot := filepath.Join(cfg.WebRoot, cfg.WebHome)
	static := http.FileServer(http.Dir(appRoot))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/", newRootHandler(scripts, static, cfg.ScriptExt, logger, debug))

	srv := &http.Server{Addr: cfg.Listen, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "webroot", appRoot)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
}

// newRootHandler routes script-extension paths through the pipeline and
// everything else to the static file server. Path-traversal hardening lives
// here, before the resolver ever sees the path.
func newRootHandler(scripts *bridge.Handler, static http.Handler, ext string, logger *slog.Logger, debug config.Debug) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "..") {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		r.URL.Path = path.Clean("/" + r.URL.Path)

		if strings.HasSuffix(r.URL.Path, ext) {
			if scripts == nil {
				http.Error(w, "script engine unavailable", http.StatusServiceUnavailable)
				return
			}
			if scripts.ServeScript(w, r) {
				if debug.Has(config.DebugRequests) {
					logger.Debug("script request handled", "path", r.URL.Path)
				}
				return
			}
			// Not handled: the static server applies its own 404 logic.
		}
		static.ServeHTTP(w, r)
	})
}
