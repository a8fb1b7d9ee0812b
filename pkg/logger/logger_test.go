package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupakrantina/backoffice/pkg/config"
)

func testConfig(level, format string) *config.Config {
	return &config.Config{
		Env:       "development",
		LogLevel:  level,
		LogFormat: format,
		Report:    config.ReportConfig{SystemName: "TupakRantina"},
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestNewSetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := NewWithWriter(testConfig(tt.level, "json"), &bytes.Buffer{})
			require.NotNil(t, log)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"fatal", zerolog.FatalLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.input), tt.input)
	}
}

func TestJSONOutputCarriesBaseFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(testConfig("info", "json"), &buf)

	log.Info("reporte generado")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "reporte generado", entry["message"])
	assert.Equal(t, "development", entry["env"])
	assert.Equal(t, "TupakRantina", entry["system"])
	assert.Contains(t, entry, "time")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(testConfig("info", "json"), &buf).WithComponent("scoring")

	log.Infof("scored %d records", 3)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "scoring", entry["component"])
	assert.Equal(t, "scored 3 records", entry["message"])
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(testConfig("info", "json"), &buf).
		WithFields(map[string]interface{}{"run_id": "abc", "pages": 4}).
		WithError(errors.New("boom"))

	log.Error("render failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, float64(4), entry["pages"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(testConfig("warn", "json"), &buf)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(testConfig("info", "console"), &buf)

	log.WithField("asesor", "ANA").Info("hola")

	out := buf.String()
	assert.Contains(t, out, "hola")
	assert.Contains(t, out, "asesor=")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("discarded")
	log.WithComponent("x").Info("discarded")
}
