package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestSetupLevelFallback tests that unparsable levels become info
func TestSetupLevelFallback(t *testing.T) {
	Setup("nonsense", true, &bytes.Buffer{})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	Setup("debug", true, &bytes.Buffer{})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

// TestSetupJSONOutput tests the machine-readable format
func TestSetupJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup("info", true, &buf)

	Logger.Info().Msg("pass finished")
	assert.Contains(t, buf.String(), `"message":"pass finished"`)
}

// TestChildLoggers tests the scoped field constructors
func TestChildLoggers(t *testing.T) {
	var buf bytes.Buffer
	Setup("info", true, &buf)

	WithComponent("index").Info().Msg("x")
	WithRepo("local//src/demo").Info().Msg("y")
	WithFile("/src/demo/a.txt").Info().Msg("z")

	out := buf.String()
	assert.Contains(t, out, `"component":"index"`)
	assert.Contains(t, out, `"repo_ref":"local//src/demo"`)
	assert.Contains(t, out, `"file":"/src/demo/a.txt"`)
}
