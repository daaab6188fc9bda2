package querytrace

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// DefaultServiceName is reported on spans when Config.ServiceName is empty.
const DefaultServiceName = "sql"

// ErrMissingConfig is returned when a required configuration key is not set.
var ErrMissingConfig = errors.New("querytrace: missing required configuration")

// Config holds the tracing settings of the application that issues queries.
type Config struct {
	// OwningApplication names the application the tracer belongs to. Required.
	OwningApplication string `yaml:"owning_application" envconfig:"OWNING_APPLICATION"`
	// Tracer names the tracer the spans are reported to. Required.
	Tracer string `yaml:"tracer" envconfig:"TRACER"`
	// ServiceName is the service label of every span. Defaults to DefaultServiceName.
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
}

// Validate reports every missing required key.
func (c Config) Validate() error {
	var err error

	if c.OwningApplication == "" {
		err = multierr.Append(err, fmt.Errorf("%w: owning application", ErrMissingConfig))
	}

	if c.Tracer == "" {
		err = multierr.Append(err, fmt.Errorf("%w: tracer", ErrMissingConfig))
	}

	return err
}

// Service returns the configured service name or DefaultServiceName.
func (c Config) Service() string {
	if c.ServiceName != "" {
		return c.ServiceName
	}

	return DefaultServiceName
}

// Flags maps a tracer name, or "app/tracer", to its disabled flag.
type Flags map[string]bool

// Disabled reports the flag for the tracer of app. An "app/tracer" entry wins
// over a tracer-only entry.
func (f Flags) Disabled(app, tracer string) bool {
	if v, ok := f[app+"/"+tracer]; ok {
		return v
	}

	return f[tracer]
}

// Snapshot is the tracing configuration as read in one pass from a ConfigSource.
type Snapshot struct {
	Config Config
	// Disabled reports whether tracing is switched off for the tracer of app.
	// Nil means tracing is enabled everywhere.
	Disabled func(app, tracer string) bool
}

// IsDisabled calls Disabled when set.
func (s Snapshot) IsDisabled(app, tracer string) bool {
	if s.Disabled == nil {
		return false
	}

	return s.Disabled(app, tracer)
}

// ConfigSource provides the current tracing configuration.
//
// Load is called on every query so that a source may refresh its settings. The
// configuration and the disabled flags of a Snapshot come from the same read.
type ConfigSource interface {
	Load() (Snapshot, error)
}

// StaticSource is an in-memory ConfigSource. It is safe for concurrent use.
type StaticSource struct {
	mu       sync.RWMutex
	cfg      Config
	disabled Flags
}

// NewStaticSource returns a source serving cfg with tracing enabled.
func NewStaticSource(cfg Config) *StaticSource {
	return &StaticSource{cfg: cfg, disabled: Flags{}}
}

// Load implements ConfigSource. The returned flags are a copy.
func (s *StaticSource) Load() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flags := make(Flags, len(s.disabled))
	for k, v := range s.disabled {
		flags[k] = v
	}

	return Snapshot{Config: s.cfg, Disabled: flags.Disabled}, nil
}

// Set replaces the stored configuration.
func (s *StaticSource) Set(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
}

// SetDisabled switches tracing off (or back on) for the tracer of app.
func (s *StaticSource) SetDisabled(app, tracer string, disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled == nil {
		s.disabled = Flags{}
	}

	s.disabled[app+"/"+tracer] = disabled
}
