package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, Config{Level: "WARN"}.ParseLevel())
	assert.Equal(t, zerolog.InfoLevel, Config{Level: "bogus"}.ParseLevel())
	assert.Equal(t, zerolog.InfoLevel, Config{}.ParseLevel())
}

func TestParseLevel_SyslogNames(t *testing.T) {
	tests := map[string]zerolog.Level{
		"notice":    zerolog.InfoLevel,
		"warning":   zerolog.WarnLevel,
		"Warning":   zerolog.WarnLevel,
		"error":     zerolog.ErrorLevel,
		"critical":  zerolog.FatalLevel,
		"alert":     zerolog.FatalLevel,
		"emergency": zerolog.PanicLevel,
	}
	for name, want := range tests {
		assert.Equal(t, want, Config{Level: name}.ParseLevel(), name)
	}
}

func TestNewWithWriter_WarningThresholdDropsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "warning"}, "oneid", &buf)

	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestChannel_DisabledIsNop(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(Config{Level: "debug"}, "oneid", &buf)

	l := Channel(base, Config{Enabled: false})
	l.Error().Msg("should not appear")

	assert.Zero(t, buf.Len())
}

func TestChannel_AddsPackageAndChannel(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(Config{Level: "debug"}, "oneid", &buf)

	l := Channel(base, Config{Enabled: true, Channel: "auth"})
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "oneid", entry["package"])
	assert.Equal(t, "auth", entry["channel"])
	assert.Equal(t, "oneid", entry["service"])
	assert.Equal(t, "hello", entry["message"])
}
