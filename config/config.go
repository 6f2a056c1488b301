// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config loads tracing, reversal, logging and telemetry settings from
// YAML.
//
// Example:
//
//	cfg, err := config.Load("attribution.yaml")
//	if err != nil {
//	    return err
//	}
//	shutdown, err := config.StartTelemetry(ctx, cfg, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(ctx)
//	res, err := reverse.Reverse(ctx, model, rules, cfg.ToReverse(os.Stderr))
package config

import (
	"context"
	"io"

	"github.com/born-ml/attribution/internal/config"
	"github.com/born-ml/attribution/internal/telemetry"
)

type (
	// Config is the on-disk settings file.
	Config = config.Config

	// TracingConfig configures graph tracing.
	TracingConfig = config.TracingConfig

	// ReverseConfig configures reversal runs.
	ReverseConfig = config.ReverseConfig

	// Range is a closed interval.
	Range = config.Range

	// LoggingConfig configures logging.
	LoggingConfig = config.LoggingConfig

	// TelemetryConfig selects span and metric exporters.
	TelemetryConfig = config.TelemetryConfig
)

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	return config.Load(path)
}

// Parse decodes and validates YAML data.
func Parse(data []byte) (*Config, error) {
	return config.Parse(data)
}

// StartTelemetry installs the exporters named in cfg, writing to w. The
// returned function flushes and stops them.
func StartTelemetry(ctx context.Context, cfg *Config, w io.Writer) (func(context.Context) error, error) {
	return telemetry.Init(ctx, cfg.Export(w))
}
