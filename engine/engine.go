package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/wispweb/wisp/hostfunc"
)

// DefaultScriptLib is the subdirectory under the app root holding
// host-provided script libraries.
const DefaultScriptLib = "scripts/lib"

// Engine is the process-wide handle over the interpreter runtime. It owns
// the include-path list and the host function table, both computed once at
// construction and read-only afterwards, so concurrent request handlers can
// share it without locking. The Engine must outlive every in-flight request.
type Engine struct {
	rt           Runtime
	logger       *slog.Logger
	table        *hostfunc.Table
	includePaths []string
}

type Option func(*options)

type options struct {
	logger    *slog.Logger
	table     *hostfunc.Table
	scriptLib string
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTable sets the host function table bound into every program.
func WithTable(table *hostfunc.Table) Option {
	return func(o *options) {
		o.table = table
	}
}

// WithScriptLib overrides the script-library subdirectory relative to the
// app root.
func WithScriptLib(dir string) Option {
	return func(o *options) {
		o.scriptLib = dir
	}
}

// New builds the Engine over the given runtime. The two include paths,
// the app root (webRoot joined with webHome) and its script-library
// subdirectory, are computed here and reused for every request.
func New(rt Runtime, webRoot, webHome string, opts ...Option) (*Engine, error) {
	if rt == nil {
		return nil, fmt.Errorf("engine: nil runtime")
	}
	if webRoot == "" {
		return nil, fmt.Errorf("engine: web root must not be empty")
	}

	o := options{
		logger:    slog.Default(),
		table:     hostfunc.NewTable(),
		scriptLib: DefaultScriptLib,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.table.Seal()

	appRoot := filepath.Join(webRoot, webHome)
	e := &Engine{
		rt:     rt,
		logger: o.logger,
		table:  o.table,
		includePaths: []string{
			appRoot,
			filepath.Join(appRoot, o.scriptLib),
		},
	}

	rt.SetDiagnosticSink(e.consumeDiagnostic)
	return e, nil
}

// consumeDiagnostic is the runtime's error-log sink: strip exactly one
// trailing newline if present and forward the rest tagged as an
// interpreter-originated error. Must not panic.
func (e *Engine) consumeDiagnostic(msg []byte) {
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	e.logger.Error("interpreter error", "detail", string(msg))
}

// Compile builds a program from the script at path. Errors are classified
// per Runtime.Compile; a partially built program is released here so no
// error branch leaks one.
func (e *Engine) Compile(ctx context.Context, path string) (Program, error) {
	prog, err := e.rt.Compile(ctx, path)
	if err != nil {
		if prog != nil {
			prog.Release()
		}
		return nil, err
	}
	return prog, nil
}

// Prepare configures a compiled program for execution: request head, error
// reporting, include paths in search order, then every host function in
// table order. Each step is independently fallible and non-fatal: failures
// are logged and execution is still attempted.
func (e *Engine) Prepare(prog Program, head []byte) {
	if err := prog.SetRequestHead(head); err != nil {
		e.logger.Warn("failed to inject request head", "error", err)
	}
	if err := prog.EnableErrorReporting(); err != nil {
		e.logger.Warn("failed to enable error reporting", "error", err)
	}
	for _, dir := range e.includePaths {
		if err := prog.AddIncludePath(dir); err != nil {
			e.logger.Warn("failed to register include path", "dir", dir, "error", err)
		}
	}
	for _, entry := range e.table.Entries() {
		if err := prog.Bind(entry.Name, entry.Fn); err != nil {
			e.logger.Error("failed to register host function", "name", entry.Name, "error", err)
		}
	}
}

// ErrorLog returns the runtime's detailed log of the most recent compile
// failure.
func (e *Engine) ErrorLog() string {
	return e.rt.ErrorLog()
}

// IncludePaths returns the cached include paths in search order.
func (e *Engine) IncludePaths() []string {
	out := make([]string, len(e.includePaths))
	copy(out, e.includePaths)
	return out
}

// Close tears the runtime down. Call only at process shutdown, with no
// requests in flight.
func (e *Engine) Close(ctx context.Context) error {
	return e.rt.Close(ctx)
}
