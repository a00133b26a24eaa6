// Package interp backs the engine with a WASI build of the script
// interpreter executed under wazero.
//
// The interpreter binary is compiled to machine code once at startup; each
// request then instantiates it twice at most: a lint pass that backs
// Compile, and the execution pass that runs the script with the request
// context in its environment. Host functions are reachable from the guest
// through a framed stderr protocol, with results delivered on stdin.
package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"github.com/wispweb/wisp/engine"
)

// Runtime implements engine.Runtime over a wazero-hosted interpreter.
type Runtime struct {
	wrt      wazero.Runtime
	compiled wazero.CompiledModule
	cfg      config

	mu     sync.Mutex
	sink   engine.DiagnosticSink
	errLog string
}

type config struct {
	mounts           []string // extra read-only host dirs visible to scripts
	memoryLimitPages uint32
	logStderr        bool
}

type Option func(*config)

// WithDirMount makes an additional host directory readable by scripts, at
// the same path inside the guest.
func WithDirMount(dir string) Option {
	return func(c *config) {
		c.mounts = append(c.mounts, dir)
	}
}

// WithMemoryLimit caps guest memory. Each page is 64KB; 0 means the wazero
// default.
func WithMemoryLimit(pages uint32) Option {
	return func(c *config) {
		c.memoryLimitPages = pages
	}
}

// WithStderrLogging forwards the guest's plain stderr to the diagnostic
// sink on every run. Without it, stderr is forwarded only when the run
// fails.
func WithStderrLogging() Option {
	return func(c *config) {
		c.logStderr = true
	}
}

// New compiles the interpreter binary and prepares the WASI host. The
// returned Runtime is safe for concurrent Compile calls.
func New(ctx context.Context, interpreter []byte, opts ...Option) (*Runtime, error) {
	if len(interpreter) == 0 {
		return nil, fmt.Errorf("interp: empty interpreter binary")
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	wrt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, wrt); err != nil {
		wrt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	compiled, err := wrt.CompileModule(ctx, interpreter)
	if err != nil {
		wrt.Close(ctx)
		return nil, fmt.Errorf("compile interpreter: %w", err)
	}

	return &Runtime{wrt: wrt, compiled: compiled, cfg: cfg}, nil
}

func (r *Runtime) SetDiagnosticSink(sink engine.DiagnosticSink) {
	r.mu.Lock()
	r.sink = sink
	r.mu.Unlock()
}

// Compile checks that the script exists and is readable, then runs the
// interpreter's lint pass over it. A nonzero lint exit is a compile error;
// a failure to bring the interpreter up at all is a VM error.
func (r *Runtime) Compile(ctx context.Context, path string) (engine.Program, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, engine.ErrIO)
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("open %s: %w", abs, engine.ErrIO)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", abs, engine.ErrIO)
	}
	f.Close()

	var stdout, stderr bytes.Buffer
	mc := wazero.NewModuleConfig().
		WithArgs("php", "-n", "-l", abs).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithFSConfig(r.fsConfig([]string{filepath.Dir(abs)})).
		WithName("")

	mod, err := r.wrt.InstantiateModule(ctx, r.compiled, mc)
	if mod != nil {
		mod.Close(ctx)
	}

	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == 0 {
				// Clean exit reported through the error path.
				return r.newProgram(abs), nil
			}
			detail := stderr.Bytes()
			if len(detail) == 0 {
				detail = stdout.Bytes()
			}
			r.recordCompileFailure(detail)
			return nil, &engine.CompileError{Code: int(exitErr.ExitCode())}
		}
		return nil, fmt.Errorf("interpreter startup: %w", engine.ErrVM)
	}

	return r.newProgram(abs), nil
}

func (r *Runtime) newProgram(path string) *program {
	return &program{rt: r, path: path}
}

func (r *Runtime) recordCompileFailure(detail []byte) {
	r.mu.Lock()
	r.errLog = string(detail)
	r.mu.Unlock()

	r.emitDiagnostic(detail)
}

func (r *Runtime) emitDiagnostic(detail []byte) {
	r.mu.Lock()
	sink := r.sink
	r.mu.Unlock()

	if sink != nil && len(detail) > 0 {
		sink(detail)
	}
}

func (r *Runtime) ErrorLog() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errLog
}

// fsConfig mounts each host directory read-only at its own path, so script
// paths mean the same thing inside and outside the guest.
func (r *Runtime) fsConfig(dirs []string) wazero.FSConfig {
	fs := wazero.NewFSConfig()
	seen := make(map[string]bool)
	for _, dir := range append(append([]string{}, dirs...), r.cfg.mounts...) {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		fs = fs.WithReadOnlyDirMount(dir, dir)
	}
	return fs
}

func (r *Runtime) Close(ctx context.Context) error {
	return r.wrt.Close(ctx)
}
