package hostfunc

import (
	"context"
	"os"
	"time"
)

// ServerTime reports the host wall clock as fractional Unix seconds.
func ServerTime(ctx context.Context, args map[string]any) (any, error) {
	return float64(time.Now().UnixNano()) / 1e9, nil
}

// NewServerEnv returns a host function exposing a fixed set of host facts.
// Nothing request-scoped goes here; the table is built once per process.
func NewServerEnv(version string) Func {
	hostname, _ := os.Hostname()
	pid := os.Getpid()
	started := time.Now().Unix()

	return func(ctx context.Context, args map[string]any) (any, error) {
		return map[string]any{
			"hostname": hostname,
			"pid":      pid,
			"started":  started,
			"version":  version,
		}, nil
	}
}
