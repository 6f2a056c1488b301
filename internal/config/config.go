// Package config loads reversal settings from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/attribution/internal/reverse"
	"github.com/born-ml/attribution/internal/telemetry"
)

// Config is the on-disk form of the tracing, reversal and logging settings.
//
// Example:
//
//	tracing:
//	  reapply_on_copied_nodes: true
//	reverse:
//	  return_all: false
//	  clip: {min: -1, max: 1}
//	  project_bottlenecks: {min: -1, max: 1}
//	logging:
//	  level: debug
//	telemetry:
//	  trace_exporter: stdout
type Config struct {
	Tracing   TracingConfig   `yaml:"tracing"`
	Reverse   ReverseConfig   `yaml:"reverse"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TracingConfig configures graph tracing.
type TracingConfig struct {
	ReapplyOnCopiedNodes bool `yaml:"reapply_on_copied_nodes"`
}

// ReverseConfig configures reversal runs.
type ReverseConfig struct {
	ReturnAll          bool   `yaml:"return_all"`
	Clip               *Range `yaml:"clip"`
	ProjectBottlenecks *Range `yaml:"project_bottlenecks"`
}

// Range is a closed interval; Max must exceed Min.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max" validate:"gtfield=Min"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// TelemetryConfig selects the span and metric exporters.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	TraceExporter  string `yaml:"trace_exporter" validate:"omitempty,oneof=none stdout"`
	MetricExporter string `yaml:"metric_exporter" validate:"omitempty,oneof=none stdout"`
}

var validate = validator.New()

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML data. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &cfg, nil
}

// Apply copies the settings onto cfg.
func (c *Config) Apply(cfg *reverse.Config) {
	cfg.ReapplyOnCopiedNodes = c.Tracing.ReapplyOnCopiedNodes
	cfg.ReturnAll = c.Reverse.ReturnAll
	if r := c.Reverse.Clip; r != nil {
		cfg.Clip = &reverse.Range{Lo: r.Min, Hi: r.Max}
	}
	if r := c.Reverse.ProjectBottlenecks; r != nil {
		cfg.ProjectBottlenecks = &reverse.Range{Lo: r.Min, Hi: r.Max}
	}
}

// ToReverse returns reverse.DefaultConfig with the settings applied and a
// logger writing to w.
func (c *Config) ToReverse(w io.Writer) reverse.Config {
	cfg := reverse.DefaultConfig()
	c.Apply(&cfg)
	cfg.Logger = c.Logger(w).With(slog.String("component", "reverse"))
	return cfg
}

// Logger builds a slog logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: telemetry.ParseLevel(c.Logging.Level)}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Export returns the telemetry exporter settings writing to w.
func (c *Config) Export(w io.Writer) telemetry.ExportConfig {
	return telemetry.ExportConfig{
		ServiceName:    c.Telemetry.ServiceName,
		TraceExporter:  c.Telemetry.TraceExporter,
		MetricExporter: c.Telemetry.MetricExporter,
		Writer:         w,
	}
}
