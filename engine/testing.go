package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/wispweb/wisp/hostfunc"
)

// FakeScript describes how the FakeRuntime behaves for one script path.
type FakeScript struct {
	Output     string
	CompileErr error            // ErrIO, ErrVM, or *CompileError
	CompileLog string           // detailed log recorded on CompileErr
	ExecErr    error            // returned by Execute
	BindErrs   map[string]error // per-name Bind failures
}

// FakeRuntime is an in-memory Runtime for exercising the pipeline without
// an interpreter. It counts created and released programs so tests can
// verify the release invariant.
type FakeRuntime struct {
	mu       sync.Mutex
	scripts  map[string]FakeScript
	sink     DiagnosticSink
	errLog   string
	created  int
	released int
	closed   bool
	last     *FakeProgram
}

func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{scripts: make(map[string]FakeScript)}
}

// AddScript registers behavior for path. Paths without behavior compile
// with an IO error, like a missing file.
func (f *FakeRuntime) AddScript(path string, script FakeScript) {
	f.mu.Lock()
	f.scripts[path] = script
	f.mu.Unlock()
}

func (f *FakeRuntime) SetDiagnosticSink(sink DiagnosticSink) {
	f.mu.Lock()
	f.sink = sink
	f.mu.Unlock()
}

func (f *FakeRuntime) Compile(ctx context.Context, path string) (Program, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	script, ok := f.scripts[path]
	if !ok {
		// Missing file: no program resource is ever allocated.
		return nil, fmt.Errorf("open %s: %w", path, ErrIO)
	}

	switch script.CompileErr {
	case nil:
		f.created++
		f.last = &FakeProgram{rt: f, script: script}
		return f.last, nil
	case ErrIO:
		return nil, fmt.Errorf("open %s: %w", path, ErrIO)
	case ErrVM:
		return nil, fmt.Errorf("compile %s: %w", path, ErrVM)
	default:
		// Compilation started, so a partial program exists and the caller
		// must release it.
		f.created++
		f.errLog = script.CompileLog
		if f.sink != nil && script.CompileLog != "" {
			f.sink([]byte(script.CompileLog))
		}
		f.last = &FakeProgram{rt: f, script: script}
		return f.last, script.CompileErr
	}
}

// LastProgram returns the most recently compiled program, or nil.
func (f *FakeRuntime) LastProgram() *FakeProgram {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *FakeRuntime) ErrorLog() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errLog
}

func (f *FakeRuntime) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Created returns how many programs were allocated.
func (f *FakeRuntime) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// Released returns how many programs were released.
func (f *FakeRuntime) Released() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func (f *FakeRuntime) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type FakeProgram struct {
	rt     *FakeRuntime
	script FakeScript

	Head         []byte
	Includes     []string
	Bound        []string
	ErrReporting bool
	executed     bool
	released     bool
}

func (p *FakeProgram) SetRequestHead(head []byte) error {
	p.Head = append([]byte(nil), head...)
	return nil
}

func (p *FakeProgram) EnableErrorReporting() error {
	p.ErrReporting = true
	return nil
}

func (p *FakeProgram) AddIncludePath(dir string) error {
	p.Includes = append(p.Includes, dir)
	return nil
}

func (p *FakeProgram) Bind(name string, fn hostfunc.Func) error {
	if err, ok := p.script.BindErrs[name]; ok {
		return err
	}
	p.Bound = append(p.Bound, name)
	return nil
}

func (p *FakeProgram) Execute(ctx context.Context) error {
	p.executed = true
	return p.script.ExecErr
}

func (p *FakeProgram) Output() []byte {
	if p.script.ExecErr != nil {
		return nil
	}
	return []byte(p.script.Output)
}

func (p *FakeProgram) Release() {
	if p.released {
		return
	}
	p.released = true
	p.rt.mu.Lock()
	p.rt.released++
	p.rt.mu.Unlock()
}
