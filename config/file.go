package config

import (
	"fmt"
	"os"

	"github.com/jeanmolossi/querytrace"
	"gopkg.in/yaml.v3"
)

type fileSpec struct {
	querytrace.Config `yaml:",inline"`

	Disabled querytrace.Flags `yaml:"disabled"`
}

// FileSource reads the configuration from a YAML file:
//
//	owning_application: shop
//	tracer: shop.tracer
//	service_name: shop-db
//	disabled:
//	  shop.tracer: false
type FileSource struct {
	Path string
}

func (s FileSource) read() (fileSpec, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return fileSpec{}, fmt.Errorf("config: read %s: %w", s.Path, err)
	}

	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return fileSpec{}, fmt.Errorf("config: parse %s: %w", s.Path, err)
	}

	return spec, nil
}

// Load implements querytrace.ConfigSource. The file is read once per call.
func (s FileSource) Load() (querytrace.Snapshot, error) {
	spec, err := s.read()
	if err != nil {
		return querytrace.Snapshot{}, err
	}

	return querytrace.Snapshot{
		Config:   spec.Config,
		Disabled: spec.Disabled.Disabled,
	}, nil
}
