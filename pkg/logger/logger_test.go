package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/sadwiik06/SocialFlow/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLoggerIsSafe(t *testing.T) {
	logger = nil
	assert.NotPanics(t, func() {
		Debug("test debug", "key", "value")
		Info("test info")
		Warn("test warn", "a", 1, "b", 2.5)
		Error("test error", "err", "boom")
	})
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, log.WarnLevel)

	Info("hidden")
	Warn("shown", "count", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "count=3")
}

func TestInitWritesConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.Init(filepath.Join(dir, "config.toml")))

	Init(true)
	Debug("written to file")
	require.NotNil(t, GetLogger())

	data, err := os.ReadFile(filepath.Join(dir, "socialflow.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
