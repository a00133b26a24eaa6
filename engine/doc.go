// Package engine manages the process-wide script interpreter handle and the
// per-request compile/configure/execute cycle behind it.
//
// # Overview
//
// The interpreter itself is an opaque capability expressed by the [Runtime]
// and [Program] interfaces: compile a script file into a program, configure
// the program with the request context, run it, extract its output. The
// [Engine] wraps a Runtime with the process-wide configuration every program
// receives (the ordered include-path list and the host function table)
// plus the diagnostic sink that routes interpreter error text into the log.
//
//	rt, err := interp.New(ctx, wasmBinary)
//	eng, err := engine.New(rt, "/var/www/html", "/admin",
//	    engine.WithTable(table),
//	    engine.WithLogger(logger),
//	)
//	defer eng.Close(ctx)
//
//	prog, err := eng.Compile(ctx, path)   // classify: ErrIO, ErrVM, *CompileError
//	defer prog.Release()
//	eng.Prepare(prog, requestHead)
//	err = prog.Execute(ctx)
//	body := prog.Output()
//
// # Lifecycle
//
// Build the Engine once before the first request and close it once after the
// last; its configuration is written at construction and only read
// afterwards, so request handlers share it without locking. Programs, by
// contrast, are strictly per-request: compiled, executed, and released
// within a single request, on every exit path, never cached or shared.
//
// [FakeRuntime] provides a counting in-memory Runtime so the pipeline's
// control flow and the release invariant can be tested without a real
// interpreter.
package engine
