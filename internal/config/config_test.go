package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/attribution/internal/reverse"
)

const sample = `
tracing:
  reapply_on_copied_nodes: true
reverse:
  return_all: true
  clip: {min: -1, max: 1}
  project_bottlenecks: {min: 0, max: 2}
logging:
  level: debug
  format: json
telemetry:
  trace_exporter: stdout
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.True(t, cfg.Tracing.ReapplyOnCopiedNodes)
	assert.True(t, cfg.Reverse.ReturnAll)
	require.NotNil(t, cfg.Reverse.Clip)
	assert.Equal(t, Range{Min: -1, Max: 1}, *cfg.Reverse.Clip)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg.Reverse.Clip)
	assert.False(t, cfg.Reverse.ReturnAll)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty range", "reverse:\n  clip: {min: 1, max: 1}\n"},
		{"inverted range", "reverse:\n  project_bottlenecks: {min: 2, max: -2}\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"unknown key", "reverse:\n  clamp: true\n"},
		{"bad exporter", "telemetry:\n  trace_exporter: zipkin\n"},
		{"not yaml", "reverse: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attribution.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Reverse.ReturnAll)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestToReverse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	rc := cfg.ToReverse(&buf)
	assert.True(t, rc.ReapplyOnCopiedNodes)
	assert.True(t, rc.ReturnAll)
	assert.Equal(t, &reverse.Range{Lo: -1, Hi: 1}, rc.Clip)
	assert.Equal(t, &reverse.Range{Lo: 0, Hi: 2}, rc.ProjectBottlenecks)
	assert.NotNil(t, rc.Head)
	assert.NotNil(t, rc.Backend)

	rc.Logger.Debug("probe")
	assert.Contains(t, buf.String(), `"msg":"probe"`)
	assert.Contains(t, buf.String(), `"component":"reverse"`)
}

func TestExport(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	ec := cfg.Export(&buf)
	assert.Equal(t, "stdout", ec.TraceExporter)
	assert.Empty(t, ec.MetricExporter)
	assert.Same(t, &buf, ec.Writer)
}
