// Package logger builds the zerolog loggers used across the service.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config controls service-wide logging and the OneID failure log.
type Config struct {
	// Enabled gates the structured OneID failure log. Request logs are unaffected.
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
	Channel string `mapstructure:"channel"`
	Format  string `mapstructure:"format"`
	Output  string `mapstructure:"output"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Channel == "" {
		c.Channel = "default"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// syslogLevels maps the RFC 5424 names used by ONEID_LOG_LEVEL that zerolog
// does not know. Events are written with WithLevel, so fatal and panic never
// exit.
var syslogLevels = map[string]zerolog.Level{
	"notice":    zerolog.InfoLevel,
	"warning":   zerolog.WarnLevel,
	"critical":  zerolog.FatalLevel,
	"alert":     zerolog.FatalLevel,
	"emergency": zerolog.PanicLevel,
}

// ParseLevel returns the zerolog level for cfg.Level, falling back to info.
func (c Config) ParseLevel() zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(c.Level))
	if level, ok := syslogLevels[name]; ok {
		return level
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// New creates the base service logger writing to cfg.Output.
func New(cfg Config, service string) zerolog.Logger {
	return NewWithWriter(cfg, service, outputWriter(cfg.Output))
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg Config, service string, w io.Writer) zerolog.Logger {
	cfg.ApplyDefaults()
	if strings.EqualFold(cfg.Format, "console") || strings.EqualFold(cfg.Format, "pretty") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Channel returns the logger used for OneID protocol events, or a no-op
// logger when the OneID log is disabled.
func Channel(base zerolog.Logger, cfg Config) zerolog.Logger {
	if !cfg.Enabled {
		return zerolog.Nop()
	}
	cfg.ApplyDefaults()
	return base.With().
		Str("package", "oneid").
		Str("channel", cfg.Channel).
		Logger()
}

func outputWriter(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}
