package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/wispweb/wisp/hostfunc"
)

// Compile failure classes. IO errors are delegated back to the transport so
// it can apply its own not-found handling; everything else is handled here.
var (
	// ErrIO means the script file is missing or unreadable.
	ErrIO = errors.New("script io error")
	// ErrVM means the interpreter could not allocate execution state.
	ErrVM = errors.New("vm initialization error")
)

// CompileError is a syntax or semantic error in the script itself. The
// detailed diagnostic text lives in the runtime's error log, not here;
// clients only ever see a generic message.
type CompileError struct {
	Code int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error (%d)", e.Code)
}

// DiagnosticSink receives interpreter-originated diagnostic text.
type DiagnosticSink func(msg []byte)

// Runtime is the opaque interpreter capability backing the Engine: it
// compiles script files into programs and retains the diagnostic log of the
// most recent compile failure.
type Runtime interface {
	// Compile builds an executable program from the script at path. On
	// failure the error is ErrIO, ErrVM, or a *CompileError; a non-nil
	// program returned alongside an error is partially built and must be
	// released by the caller.
	Compile(ctx context.Context, path string) (Program, error)

	// SetDiagnosticSink installs the consumer for interpreter diagnostics,
	// both compile failures and execution stderr. Called once before any
	// Compile.
	SetDiagnosticSink(sink DiagnosticSink)

	// ErrorLog returns the detailed text of the most recent compile
	// failure, or "" if none.
	ErrorLog() string

	Close(ctx context.Context) error
}

// Program is one compiled script, owned exclusively by the request that
// compiled it. Release must be called on every exit path.
type Program interface {
	// SetRequestHead hands the raw HTTP request head (request line, headers,
	// terminating blank line) to the interpreter, which decodes query and
	// server variables from it itself.
	SetRequestHead(head []byte) error

	// EnableErrorReporting turns on script run-time error reporting.
	EnableErrorReporting() error

	// AddIncludePath appends a directory to the program's include search
	// path. Earlier entries are searched first.
	AddIncludePath(dir string) error

	// Bind makes a host function callable from the script under name.
	Bind(name string, fn hostfunc.Func) error

	// Execute runs the program to completion.
	Execute(ctx context.Context) error

	// Output returns the bytes the script produced. Valid after a
	// successful Execute.
	Output() []byte

	// Release resets and frees the program. Extra calls are no-ops.
	Release()
}
