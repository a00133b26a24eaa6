package interp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/wispweb/wisp/hostfunc"
)

// Host-call framing. The guest writes \x00WISP:{json}\x00 to stderr; the
// response arrives as one JSON line on stdin. Everything outside the frames
// is ordinary stderr output and passes through.
const (
	framePrefix = "\x00WISP:"
	frameSuffix = "\x00"
)

type callRequest struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

type callResponse struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// callRouter intercepts the guest's stderr, dispatching framed host calls
// to the program's bound functions and letting plain output through.
type callRouter struct {
	ctx         context.Context
	lookup      func(name string) (hostfunc.Func, bool)
	stdinWriter *io.PipeWriter

	mu          sync.Mutex
	passthrough bytes.Buffer
	buf         bytes.Buffer
}

func newCallRouter(ctx context.Context, lookup func(string) (hostfunc.Func, bool), stdinWriter *io.PipeWriter) *callRouter {
	return &callRouter{
		ctx:         ctx,
		lookup:      lookup,
		stdinWriter: stdinWriter,
	}
}

func (c *callRouter) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf.Write(data)

	for {
		payload, ok := c.nextFrame()
		if !ok {
			break
		}

		var req callRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			c.respond(callResponse{Error: "invalid call format"})
			continue
		}
		c.respond(c.dispatch(req))
	}

	return len(data), nil
}

// nextFrame consumes buffered stderr up to and including the next complete
// frame, moving non-frame bytes to the passthrough buffer. Returns the frame
// payload, or ok=false when no complete frame is buffered.
func (c *callRouter) nextFrame() (payload string, ok bool) {
	content := c.buf.String()

	start := strings.Index(content, framePrefix)
	if start == -1 {
		c.passthrough.WriteString(content)
		c.buf.Reset()
		return "", false
	}
	c.passthrough.WriteString(content[:start])

	rest := content[start+len(framePrefix):]
	end := strings.Index(rest, frameSuffix)
	if end == -1 {
		// Incomplete frame; keep it buffered.
		c.buf.Reset()
		c.buf.WriteString(content[start:])
		return "", false
	}

	c.buf.Reset()
	c.buf.WriteString(rest[end+len(frameSuffix):])
	return rest[:end], true
}

func (c *callRouter) dispatch(req callRequest) callResponse {
	fn, ok := c.lookup(req.Fn)
	if !ok {
		return callResponse{Error: "unknown function: " + req.Fn}
	}

	result, err := fn(c.ctx, req.Args)
	if err != nil {
		return callResponse{Error: err.Error()}
	}
	return callResponse{Data: result}
}

func (c *callRouter) respond(resp callResponse) {
	data, _ := json.Marshal(resp)
	go c.stdinWriter.Write(append(data, '\n'))
}

// Stderr returns the guest's plain stderr output seen so far.
func (c *callRouter) Stderr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passthrough.String()
}
