package fsm

// StateInfo describes one state of a definition.
type StateInfo struct {
	Name     string `json:"name"               yaml:"name"`
	Entry    string `json:"entry,omitempty"    yaml:"entry,omitempty"`
	Exit     string `json:"exit,omitempty"     yaml:"exit,omitempty"`
	Guard    string `json:"guard,omitempty"    yaml:"guard,omitempty"`
	Terminal bool   `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

// Description is a type-erased snapshot of a definition, used by tooling
// such as the validator and visualizer.
type Description struct {
	Name        string         `json:"name"        yaml:"name"`
	Initial     string         `json:"initial"     yaml:"initial"`
	Fingerprint string         `json:"fingerprint" yaml:"fingerprint"`
	States      []StateInfo    `json:"states"      yaml:"states"`
	Edges       []Edge[string] `json:"edges"       yaml:"edges"`
}

// Describe returns a snapshot of the definition with states and bindings
// reduced to their names.
func (d *Definition[S, E, D]) Describe() Description {
	desc := Description{
		Name:        d.name,
		Initial:     string(d.initial),
		Fingerprint: d.fingerprint,
		States:      make([]StateInfo, 0, len(d.table.states)),
		Edges:       make([]Edge[string], 0, len(d.table.edges)),
	}

	for _, state := range d.table.states {
		rec := d.table.records[state]
		info := StateInfo{
			Name:     string(state),
			Terminal: d.table.IsTerminal(state),
		}

		if rec.Entry != nil {
			info.Entry = rec.Entry.Name
		}

		if rec.Exit != nil {
			info.Exit = rec.Exit.Name
		}

		if rec.Guard != nil {
			info.Guard = rec.Guard.Name
		}

		desc.States = append(desc.States, info)
	}

	for _, edge := range d.table.edges {
		desc.Edges = append(desc.Edges, Edge[string]{From: string(edge.From), To: string(edge.To)})
	}

	return desc
}

// State returns the info of the named state.
func (d Description) State(name string) (StateInfo, bool) {
	for _, s := range d.States {
		if s.Name == name {
			return s, true
		}
	}

	return StateInfo{}, false
}

// Outgoing returns the destinations of a state in declaration order.
func (d Description) Outgoing(name string) []string {
	var out []string

	for _, e := range d.Edges {
		if e.From == name {
			out = append(out, e.To)
		}
	}

	return out
}
