// Package config provides querytrace.ConfigSource implementations backed by the
// process environment and by YAML files. Both re-read their backing store on
// every call so that updated settings are picked up without a restart.
package config

import (
	"fmt"

	"github.com/jeanmolossi/querytrace"
	"github.com/kelseyhightower/envconfig"
)

// DefaultPrefix is the environment prefix used when EnvSource.Prefix is empty.
const DefaultPrefix = "QUERYTRACE"

type envSpec struct {
	querytrace.Config

	// Disabled maps a tracer name, or "app/tracer", to its disabled flag,
	// e.g. QUERYTRACE_DISABLED=shop.tracer:true.
	Disabled querytrace.Flags `envconfig:"DISABLED"`
}

// EnvSource reads the configuration from environment variables:
//
//	QUERYTRACE_OWNING_APPLICATION
//	QUERYTRACE_TRACER
//	QUERYTRACE_SERVICE_NAME
//	QUERYTRACE_DISABLED
type EnvSource struct {
	Prefix string
}

func (s EnvSource) prefix() string {
	if s.Prefix != "" {
		return s.Prefix
	}

	return DefaultPrefix
}

func (s EnvSource) process() (envSpec, error) {
	var spec envSpec
	if err := envconfig.Process(s.prefix(), &spec); err != nil {
		return envSpec{}, fmt.Errorf("config: read environment: %w", err)
	}

	return spec, nil
}

// Load implements querytrace.ConfigSource.
func (s EnvSource) Load() (querytrace.Snapshot, error) {
	spec, err := s.process()
	if err != nil {
		return querytrace.Snapshot{}, err
	}

	return querytrace.Snapshot{
		Config:   spec.Config,
		Disabled: spec.Disabled.Disabled,
	}, nil
}
