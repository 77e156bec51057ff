package utils

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer

	l := NewLogger("debug", &buf)
	assert.Equal(t, zerolog.DebugLevel, l.GetLevel())

	l = NewLogger("invalid", &buf)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())

	l = NewLogger("", &buf)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestSetLoggerCapturesOutput(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	var buf bytes.Buffer
	SetLogger(NewLogger("debug", &buf))
	log := GetLogger()
	log.Warn().Str("component", "test").Msg("hello")

	assert.Contains(t, buf.String(), `"component":"test"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestConfigureWritesToFile(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	path := filepath.Join(t.TempDir(), "sim.log")
	require.NoError(t, Configure("warn", path))
	assert.Equal(t, zerolog.WarnLevel, GetLogger().GetLevel())
}
