package common

import (
	"os"
	"regexp"

	"github.com/goccy/go-yaml"

	"github.com/WhisperCapital/go-yd/internal/diag"
)

// ABI selects the C++ object model the native library was compiled with.
type ABI string

const (
	ABIItanium ABI = "itanium" // gcc/clang: two destructor slots, long is 64-bit
	ABIMSVC    ABI = "msvc"    // one deleting destructor slot, long is 32-bit
)

// OverflowPolicy is what a bounded callback queue does when full.
type OverflowPolicy string

const (
	DropOldest OverflowPolicy = "drop-oldest"
	DropNewest OverflowPolicy = "drop-newest"
)

type QueueConfig struct {
	Capacity int            `yaml:"capacity"` // 0 means unbounded
	Overflow OverflowPolicy `yaml:"overflow"`
}

type CgoConfig struct {
	CPPFlags string `yaml:"cppflags"` // preprocessor flags, applied to C and C++ sources; include paths go here
	CFlags   string `yaml:"cflags"`
	CXXFlags string `yaml:"cxxflags"`
	LDFlags  string `yaml:"ldflags"`
}

type Config struct {
	Package        string      `yaml:"package"`        // e.g. "yd"
	Output         string      `yaml:"output"`         // directory the bindings are written to
	Declarations   string      `yaml:"declarations"`   // declaration dump produced by the front-end
	Include        string      `yaml:"include"`        // native header as the C++ shim includes it, e.g. "ydApi.h"
	ABI            ABI         `yaml:"abi"`            // "itanium" or "msvc"
	CallbackSuffix string      `yaml:"callbackSuffix"` // records ending in it are callback contracts, e.g. "Listener"
	Callbacks      []string    `yaml:"callbacks"`      // extra callback contracts by name
	Active         []string    `yaml:"active"`         // outbound API records, e.g. "YDApi"
	SessionStart   string      `yaml:"sessionStart"`   // method that hands a listener to the library, e.g. "start"
	SkippedMethods []string    `yaml:"skippedMethods"` // "Record::method" or bare function names
	SkipNameRegex  []string    `yaml:"skipNameRegex"`
	LifetimeMarker string      `yaml:"lifetimeMarker"` // annotation on payload fields that borrow native memory
	Queue          QueueConfig `yaml:"queue"`
	Cgo            CgoConfig   `yaml:"cgo"`
}

// DefaultConfig returns the settings used for the YD client API.
func DefaultConfig() *Config {
	return &Config{
		Package:        "yd",
		Output:         "./yd",
		Declarations:   "./ydapi.yaml",
		Include:        "ydApi.h",
		ABI:            ABIItanium,
		CallbackSuffix: "Listener",
		Active:         []string{"YDApi"},
		SessionStart:   "start",
		LifetimeMarker: "borrowed",
		Queue:          QueueConfig{Overflow: DropOldest},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults. An empty
// path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, config.Validate()
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.New(diag.PhaseLoad, diag.KindInvalidInput).
			Path(path).
			Detail("reading config").
			Cause(err).
			Build()
	}

	err = yaml.Unmarshal(bytes, config)
	if err != nil {
		return nil, diag.New(diag.PhaseLoad, diag.KindInvalidInput).
			Path(path).
			Detail("decoding config").
			Cause(err).
			Build()
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return diag.New(diag.PhaseLoad, diag.KindInvalidInput).Path("config").Detail(format, args...).Build()
	}

	if c.Package == "" {
		return invalid("package name is required")
	}
	if c.ABI != ABIItanium && c.ABI != ABIMSVC {
		return invalid("abi must be %q or %q, got %q", ABIItanium, ABIMSVC, c.ABI)
	}
	if c.Queue.Capacity < 0 {
		return invalid("queue capacity must not be negative")
	}
	if c.Queue.Overflow != DropOldest && c.Queue.Overflow != DropNewest {
		return invalid("queue overflow must be %q or %q, got %q", DropOldest, DropNewest, c.Queue.Overflow)
	}
	for _, expr := range c.SkipNameRegex {
		if _, err := regexp.Compile(expr); err != nil {
			return invalid("skipNameRegex %q: %v", expr, err)
		}
	}
	return nil
}
