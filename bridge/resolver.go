package bridge

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Resolver maps a request URI path to an absolute script path under the app
// root. It performs no `..` or symlink normalization of its own; rejecting
// unsafe paths is the transport's job before this pipeline runs.
type Resolver struct {
	root   string
	logger *slog.Logger
	debug  bool
}

// NewResolver builds a resolver rooted at webRoot joined with webHome.
// webRoot must be non-empty.
func NewResolver(webRoot, webHome string, opts ...ResolverOption) (*Resolver, error) {
	if webRoot == "" {
		return nil, fmt.Errorf("bridge: web root must not be empty")
	}

	r := &Resolver{
		root:   filepath.Join(webRoot, webHome),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger for debug output.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithResolverDebug enables logging of every resolved path.
func WithResolverDebug(debug bool) ResolverOption {
	return func(r *Resolver) {
		r.debug = debug
	}
}

// Resolve joins the app root with the URI path. uriPath is expected to start
// with a slash.
func (r *Resolver) Resolve(uriPath string) string {
	full := filepath.Join(r.root, strings.TrimPrefix(uriPath, "/"))
	if r.debug {
		r.logger.Debug("resolved script path", "uri", uriPath, "path", full)
	}
	return full
}

// Root returns the app root the resolver is anchored at.
func (r *Resolver) Root() string {
	return r.root
}
