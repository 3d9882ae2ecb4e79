package fsm

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML form of a state machine definition.
type Config struct {
	Name         string             `json:"name"         yaml:"name"`
	InitialState string             `json:"initialState" yaml:"initialState"`
	Transitions  []TransitionConfig `json:"transitions"  yaml:"transitions"`
	Actions      []ActionConfig     `json:"actions"      yaml:"actions"`
	Guards       []GuardConfig      `json:"guards"       yaml:"guards"`
}

// TransitionConfig is one allowed transition.
type TransitionConfig struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to"   yaml:"to"`
}

// ActionConfig binds a registered action type to a state. OnEntry defaults
// to true and OnExit to false.
type ActionConfig struct {
	Name    string         `json:"name"    yaml:"name"`
	State   string         `json:"state"   yaml:"state"`
	Type    string         `json:"type"    yaml:"type"`
	OnEntry bool           `json:"onEntry" yaml:"onEntry"`
	OnExit  bool           `json:"onExit"  yaml:"onExit"`
	Params  map[string]any `json:"params"  yaml:"params"`
}

// Phase converts the OnEntry/OnExit flags.
func (a ActionConfig) Phase() Phase {
	var phase Phase

	if a.OnEntry {
		phase |= OnEntry
	}

	if a.OnExit {
		phase |= OnExit
	}

	return phase
}

// UnmarshalYAML applies the phase defaults and rejects phase flags that are
// not YAML booleans.
func (a *ActionConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name    string         `yaml:"name"`
		State   string         `yaml:"state"`
		Type    string         `yaml:"type"`
		OnEntry *yaml.Node     `yaml:"onEntry"`
		OnExit  *yaml.Node     `yaml:"onExit"`
		Params  map[string]any `yaml:"params"`
	}

	if err := node.Decode(&raw); err != nil {
		return err
	}

	onEntry, err := boolAttribute(raw.Name, "onEntry", raw.OnEntry, true)
	if err != nil {
		return err
	}

	onExit, err := boolAttribute(raw.Name, "onExit", raw.OnExit, false)
	if err != nil {
		return err
	}

	*a = ActionConfig{
		Name:    raw.Name,
		State:   raw.State,
		Type:    raw.Type,
		OnEntry: onEntry,
		OnExit:  onExit,
		Params:  raw.Params,
	}

	return nil
}

func boolAttribute(binding, attribute string, node *yaml.Node, dfl bool) (bool, error) {
	if node == nil {
		return dfl, nil
	}

	if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!bool" {
		return false, &AttributeTypeError{
			Binding:   binding,
			Attribute: attribute,
			Want:      "a boolean",
			Got:       fmt.Sprintf("%s %q", node.ShortTag(), node.Value),
		}
	}

	var val bool
	if err := node.Decode(&val); err != nil {
		return false, err
	}

	return val, nil
}

// GuardConfig binds a guard to a state. Exactly one of Expression and Ref
// must be set; Ref names a guard registered on the Registry.
type GuardConfig struct {
	Name       string `json:"name"       yaml:"name"`
	State      string `json:"state"      yaml:"state"`
	Expression string `json:"expression" yaml:"expression"`
	Ref        string `json:"ref"        yaml:"ref"`
}

// LoadConfig reads a YAML definition from a file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromFS reads a YAML definition from a filesystem such as embed.FS.
func LoadConfigFromFS(fsys fs.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses and validates a YAML definition. Input in a
// legacy or UTF-16 encoding is converted to UTF-8 first, and names are
// normalized to NFC.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	data, err := toUTF8(data)
	if err != nil {
		return nil, err
	}

	var config Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the shape of the configuration. Semantic checks such as
// duplicate bindings happen when the definition is built.
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrConfigNameRequired
	}

	if c.InitialState == "" {
		return ErrMissingInitialState
	}

	if len(c.Transitions) == 0 {
		return ErrNoTransitions
	}

	for i, t := range c.Transitions {
		if t.From == "" || t.To == "" {
			return fmt.Errorf("transition %d: %w", i, ErrMissingState)
		}
	}

	for i, a := range c.Actions {
		switch {
		case a.Name == "":
			return fmt.Errorf("action %d: %w", i, ErrBindingNameRequired)
		case a.State == "":
			return fmt.Errorf("action %s: %w", a.Name, ErrMissingState)
		case a.Type == "":
			return fmt.Errorf("action %s: %w", a.Name, ErrActionTypeRequired)
		}
	}

	for i, g := range c.Guards {
		switch {
		case g.Name == "":
			return fmt.Errorf("guard %d: %w", i, ErrBindingNameRequired)
		case g.State == "":
			return fmt.Errorf("guard %s: %w", g.Name, ErrMissingState)
		case (g.Expression == "") == (g.Ref == ""):
			return fmt.Errorf("guard %s: %w", g.Name, ErrGuardSource)
		}
	}

	return nil
}
