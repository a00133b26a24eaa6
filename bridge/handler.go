package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wispweb/wisp/engine"
)

// Handler drives the per-request pipeline: resolve the script path, compile,
// configure, execute, and translate the outcome to the HTTP boundary. One
// Handler serves all requests; all per-request state lives on the stack of
// the serving goroutine.
type Handler struct {
	eng      *engine.Engine
	resolver *Resolver
	logger   *slog.Logger
	logHint  string
}

type HandlerOption func(*Handler)

// WithHandlerLogger sets the structured logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithLogHint sets the location clients are pointed at when a script fails
// to compile, e.g. a log file path. Defaults to "the server log".
func WithLogHint(hint string) HandlerOption {
	return func(h *Handler) {
		h.logHint = hint
	}
}

func NewHandler(eng *engine.Engine, resolver *Resolver, opts ...HandlerOption) *Handler {
	h := &Handler{
		eng:      eng,
		resolver: resolver,
		logger:   slog.Default(),
		logHint:  "the server log",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeScript runs the pipeline for one request. The returned boolean is
// the handled signal: false means the transport should apply its own
// handling (missing script); true means this pipeline produced or
// deliberately suppressed the response.
func (h *Handler) ServeScript(w http.ResponseWriter, r *http.Request) bool {
	path := h.resolver.Resolve(r.URL.Path)
	result := h.Run(r.Context(), path, RequestHead(r))
	return h.translate(w, result)
}

// Run executes the compile-configure-execute-extract sequence for the
// script at path, converting every failure into a definite Result. No error
// escapes past this point, and a compiled program is released on every exit.
func (h *Handler) Run(ctx context.Context, path string, head []byte) Result {
	prog, err := h.eng.Compile(ctx, path)
	if err != nil {
		return h.classifyCompile(path, err)
	}
	defer prog.Release()

	h.eng.Prepare(prog, head)

	if err := prog.Execute(ctx); err != nil {
		h.logger.Error("script execution error", "path", path, "error", err)
		return Result{Outcome: OutcomeRuntimeError}
	}

	out := prog.Output()
	if len(out) == 0 {
		return Result{Outcome: OutcomeNoOutput}
	}
	return Result{Outcome: OutcomeOutput, Body: out}
}

func (h *Handler) classifyCompile(path string, err error) Result {
	switch {
	case errors.Is(err, engine.ErrIO):
		h.logger.Info("io error while opening script", "path", path, "error", err)
		return Result{Outcome: OutcomeCompileIO}
	case errors.Is(err, engine.ErrVM):
		h.logger.Error("vm initialization error", "path", path, "error", err)
		return Result{Outcome: OutcomeCompileVM}
	default:
		var ce *engine.CompileError
		code := 0
		if errors.As(err, &ce) {
			code = ce.Code
		}
		h.logger.Error("script compile error", "path", path, "code", code)
		if detail := h.eng.ErrorLog(); len(detail) > 0 {
			h.logger.Error("compile error detail", "path", path, "detail", detail)
		}
		return Result{Outcome: OutcomeCompileOther, Code: code}
	}
}

// translate maps a Result onto the response writer and produces the handled
// signal. Clients never see script source or interpreter detail: either the
// full output, a generic pointer at the server log, or nothing.
func (h *Handler) translate(w http.ResponseWriter, result Result) bool {
	switch result.Outcome {
	case OutcomeOutput:
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write(result.Body)
		return true
	case OutcomeNoOutput:
		return true
	case OutcomeCompileIO:
		return false
	case OutcomeCompileOther:
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Script compilation error, check %s for further details.", h.logHint)
		return true
	default: // OutcomeCompileVM, OutcomeRuntimeError: suppress, log only
		return true
	}
}

// RequestHead rebuilds the raw request head (request line, Host, headers,
// terminating blank line) so the interpreter can decode query and server
// variables from it the same way it would off the wire.
func RequestHead(r *http.Request) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s %s\r\n", r.Method, r.URL.RequestURI(), r.Proto)
	if r.Host != "" {
		fmt.Fprintf(&b, "Host: %s\r\n", r.Host)
	}
	r.Header.WriteSubset(&b, map[string]bool{"Host": true})
	b.WriteString("\r\n")
	return b.Bytes()
}
