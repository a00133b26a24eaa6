package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/sys"
	"github.com/wispweb/wisp/hostfunc"
)

// program is one lint-checked script, configured and executed by a single
// request. Not safe for concurrent use; the owning request is the only user.
type program struct {
	rt   *Runtime
	path string

	head         []byte
	includes     []string
	bindings     []hostfunc.Entry
	bound        map[string]bool
	reportErrors bool

	output   bytes.Buffer
	executed bool
	released bool
}

var errReleased = errors.New("program already released")

func (p *program) SetRequestHead(head []byte) error {
	if p.released {
		return errReleased
	}
	p.head = append([]byte(nil), head...)
	return nil
}

func (p *program) EnableErrorReporting() error {
	if p.released {
		return errReleased
	}
	p.reportErrors = true
	return nil
}

func (p *program) AddIncludePath(dir string) error {
	if p.released {
		return errReleased
	}
	if dir == "" {
		return fmt.Errorf("empty include path")
	}
	p.includes = append(p.includes, dir)
	return nil
}

func (p *program) Bind(name string, fn hostfunc.Func) error {
	if p.released {
		return errReleased
	}
	if p.bound == nil {
		p.bound = make(map[string]bool)
	}
	if p.bound[name] {
		return fmt.Errorf("function %s already bound", name)
	}
	p.bound[name] = true
	p.bindings = append(p.bindings, hostfunc.Entry{Name: name, Fn: fn})
	return nil
}

func (p *program) lookup(name string) (hostfunc.Func, bool) {
	for _, b := range p.bindings {
		if b.Name == name {
			return b.Fn, true
		}
	}
	return nil, false
}

// Execute runs the script to completion. The request head, include paths
// and error-reporting flag travel to the guest through its environment;
// stdout is captured as the script output and stderr carries the host-call
// protocol.
func (p *program) Execute(ctx context.Context) error {
	if p.released {
		return errReleased
	}
	if p.executed {
		return errors.New("program already executed")
	}
	p.executed = true

	stdinReader, stdinWriter := io.Pipe()
	router := newCallRouter(ctx, p.lookup, stdinWriter)

	mc := wazero.NewModuleConfig().
		WithArgs("php", p.path).
		WithStdout(&p.output).
		WithStderr(router).
		WithStdin(stdinReader).
		WithEnv("SCRIPT_FILENAME", p.path).
		WithEnv("REQUEST_HEAD", string(p.head)).
		WithEnv("INCLUDE_PATH", strings.Join(p.includes, ":")).
		WithFSConfig(p.rt.fsConfig(append([]string{filepath.Dir(p.path)}, p.includes...))).
		WithName("")
	if p.reportErrors {
		mc = mc.WithEnv("REPORT_ERRORS", "1")
	}

	mod, err := p.rt.wrt.InstantiateModule(ctx, p.rt.compiled, mc)
	if mod != nil {
		mod.Close(ctx)
	}
	stdinWriter.Close()

	var execErr error
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() != 0 {
				execErr = fmt.Errorf("script exited with status %d", exitErr.ExitCode())
			}
		} else {
			execErr = fmt.Errorf("execution failed: %w", err)
		}
	}

	p.reportStderr(router, execErr)
	return execErr
}

// reportStderr forwards the guest's plain stderr to the diagnostic sink:
// always on a failed run, and on successful runs too when stderr logging
// is enabled on the runtime.
func (p *program) reportStderr(router *callRouter, execErr error) {
	text := router.Stderr()
	if text == "" {
		return
	}
	if execErr == nil && !p.rt.cfg.logStderr {
		return
	}
	p.rt.emitDiagnostic([]byte(text))
}

func (p *program) Output() []byte {
	return p.output.Bytes()
}

// Release resets the captured output and marks the program dead. Further
// calls on the program fail.
func (p *program) Release() {
	if p.released {
		return
	}
	p.released = true
	p.output.Reset()
	p.bindings = nil
	p.head = nil
}
