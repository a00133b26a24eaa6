// Package config loads the server configuration file and the debug flag
// bitmask consumed by the pipeline.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Debug is a bitmask of diagnostic switches. Flags gate advisory logging
// only; they never change pipeline behavior.
type Debug uint8

const (
	DebugRequests Debug = 1 << iota // log every script request outcome
	DebugResolver                   // log every resolved script path
	DebugInterp                     // log interpreter passthrough stderr

	DebugNone Debug = 0
)

var debugNames = map[string]Debug{
	"requests": DebugRequests,
	"resolver": DebugResolver,
	"interp":   DebugInterp,
	"all":      DebugRequests | DebugResolver | DebugInterp,
}

// Has reports whether flag is set.
func (d Debug) Has(flag Debug) bool {
	return d&flag != 0
}

// ParseDebug folds flag names into a bitmask.
func ParseDebug(names []string) (Debug, error) {
	var d Debug
	for _, name := range names {
		flag, ok := debugNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return DebugNone, fmt.Errorf("unknown debug flag %q", name)
		}
		d |= flag
	}
	return d, nil
}

// Config is the serve-time configuration. WebRoot is the only field without
// a usable default.
type Config struct {
	Listen    string `yaml:"listen"`
	WebRoot   string `yaml:"webroot"`
	WebHome   string `yaml:"webhome"`
	ScriptLib string `yaml:"script_lib"`
	ScriptExt string `yaml:"script_ext"`

	// Runtime is the path to the interpreter's WASI binary.
	Runtime string `yaml:"runtime"`

	// LogFile is where clients are pointed on compile errors. Empty means
	// a generic "the server log".
	LogFile string `yaml:"log_file"`

	Debug        []string `yaml:"debug"`
	AllowedHosts []string `yaml:"allowed_hosts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:    ":8080",
		WebHome:   "",
		ScriptLib: "scripts/lib",
		ScriptExt: ".php",
		Runtime:   "php-cgi.wasm",
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged. Callers validate after applying flag overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the constraints the pipeline depends on.
func (c *Config) Validate() error {
	if c.WebRoot == "" {
		return fmt.Errorf("config: webroot must not be empty")
	}
	if c.WebHome != "" && !strings.HasPrefix(c.WebHome, "/") {
		return fmt.Errorf("config: webhome must start with /")
	}
	if c.ScriptExt == "" || !strings.HasPrefix(c.ScriptExt, ".") {
		return fmt.Errorf("config: script_ext must start with a dot")
	}
	if _, err := ParseDebug(c.Debug); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DebugFlags returns the parsed bitmask. Call after Validate.
func (c *Config) DebugFlags() Debug {
	d, _ := ParseDebug(c.Debug)
	return d
}
