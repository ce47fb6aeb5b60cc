// Package logger builds the zerolog logger shared by cmd/api and cmd/notifier.
//
// Init configures the process-wide logger once; Get returns it afterwards.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is trace, debug, info, warn or error. Anything else means info.
	Level string
	// Pretty switches to the coloured console writer for local runs.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service is attached to every entry so both binaries can share a sink.
	Service string
}

var (
	mu      sync.RWMutex
	current *zerolog.Logger
)

// Init builds the process logger. Only the first call configures it; later
// calls return the existing logger unchanged.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return *current
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	lvl := parseLevel(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	fields := zerolog.New(out).Level(lvl).With().Timestamp().Caller()
	if opts.Service != "" {
		fields = fields.Str("service", opts.Service)
	}
	l := fields.Logger()
	current = &l
	return l
}

// Get returns the logger built by Init and panics if Init has not run.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		panic("logger: Get() called before Init()")
	}
	return *current
}

// Component derives a child logger tagged with the emitting subsystem.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// Reset forgets the configured logger. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = nil
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	switch s {
	case "trace", "debug", "info", "warn", "error":
		lvl, err := zerolog.ParseLevel(s)
		if err == nil {
			return lvl
		}
	}
	return zerolog.InfoLevel
}
