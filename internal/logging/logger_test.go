package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrNopHandlesNilInterface(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	OrNop(nil).Info("must not panic")
}

func TestOrNopHandlesTypedNil(t *testing.T) {
	var typed *slogPrintfLogger
	logger := OrNop(typed)
	assert.NotNil(t, logger)
	logger.Error("must not panic")
}

func TestOrNopPassesThroughRealLogger(t *testing.T) {
	logger := NewComponentLogger("test")
	assert.Equal(t, logger, OrNop(logger))
}

func TestConfigureLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf})
	defer Configure(Config{Level: "info"})

	logger := NewComponentLogger("filter")
	logger.Debug("hidden %s", "message")
	logger.Info("visible %s", "message")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible message")
	assert.Contains(t, out, "component=filter")
}

func TestConfigureJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Format: "json", Output: &buf})
	defer Configure(Config{Level: "info"})

	NewComponentLogger("json-test").Warn("count=%d", 3)

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "{"), "expected JSON output, got %q", line)
	assert.Contains(t, line, `"msg":"count=3"`)
}
