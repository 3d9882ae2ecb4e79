package fsm

import (
	"errors"
	"fmt"
)

// NewDynamic builds a definition from a YAML Config. States and events are
// plain strings and the transition data is a Data map. A nil registry means
// NewRegistry(). All binding problems are reported together.
func NewDynamic(cfg *Config, reg *Registry) (*Definition[string, string, Data], error) {
	if err := cfg.Validate(); err != nil {
		recordBuild(cfg.Name, err)

		return nil, err
	}

	if reg == nil {
		reg = NewRegistry()
	}

	builder := NewBuilder[string, string, Data](cfg.Name).Initial(cfg.InitialState)

	for _, t := range cfg.Transitions {
		builder.Allow(t.From, t.To)
	}

	for _, a := range cfg.Actions {
		fn, err := reg.CreateAction(a)
		if err != nil {
			builder.fail(err)

			continue
		}

		builder.Action(a.State, a.Name, a.Phase(), fn)
	}

	for _, g := range cfg.Guards {
		fn, err := reg.CreateGuard(g)
		if err != nil {
			builder.fail(err)

			continue
		}

		builder.Guard(g.State, g.Name, fn)
	}

	return builder.Build()
}

// LoadDefinition reads a YAML file and builds it with the given registry.
func LoadDefinition(path string, reg *Registry) (*Definition[string, string, Data], error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	def, err := NewDynamic(cfg, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return def, nil
}

// IsConfigurationError reports whether err is a construction-time error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
