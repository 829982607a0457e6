package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/windlass-marine/windlass-core/internal/infrastructure/config"
)

// serviceName tags every record so fleet-side log aggregation can tell
// the core apart from shore services sharing the same sink.
const serviceName = "windlass-core"

// Logger wraps slog with the core's default fields and a mutable level.
// Every record carries service and version; WithVessel adds the vessel
// identity once the configuration is known.
//
// The level can be changed at runtime with SetLevel, which applies to
// this logger and everything derived from it via With or WithVessel.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New builds a logger from configuration. Output goes to stdout unless
// the config says stderr; format defaults to JSON with "text" as the
// human-readable alternative for bench testing.
func New(cfg config.LoggingConfig, version string) *Logger {
	var sink io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		sink = os.Stderr
	}
	return newLogger(cfg, version, sink)
}

// newLogger is the writer-injectable constructor shared with tests.
func newLogger(cfg config.LoggingConfig, version string, sink io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(sink, opts)
	} else {
		handler = slog.NewJSONHandler(sink, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
		level:  level,
	}
}

// parseLevel maps a config string onto a slog level. Unrecognised
// values fall back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level at runtime. Useful for turning on
// debug while chasing a discovery or uplink fault without restarting
// the vessel process.
func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLevel(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// WithVessel stamps the vessel identity onto every record. Called once
// after the configuration is loaded; shore aggregation keys on this
// field when several vessels feed one sink.
func (l *Logger) WithVessel(id string) *Logger {
	if id == "" {
		return l
	}
	return l.With("vessel", id)
}

// With returns a derived logger carrying extra default attributes,
// typically a component tag:
//
//	busLog := log.With("component", "bus")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		level:  l.level,
	}
}

// Default is the bootstrap logger used before the configuration is
// loaded: JSON to stdout at info, version "dev".
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
