package fsm

import (
	"fmt"
	"slices"

	"github.com/zeebo/xxh3"
)

// Definition is a named, compiled state machine: an initial state and an
// immutable transition table. It is safe for concurrent use and is the
// factory for Machine instances.
type Definition[S ~string, E, D any] struct {
	name        string
	initial     S
	table       *Table[S, E, D]
	fingerprint string
}

func newDefinition[S ~string, E, D any](name string, initial S, table *Table[S, E, D]) *Definition[S, E, D] {
	def := &Definition[S, E, D]{
		name:    name,
		initial: initial,
		table:   table,
	}

	def.fingerprint = def.computeFingerprint()

	return def
}

// NewMachine creates a machine whose current state is the initial state.
func (d *Definition[S, E, D]) NewMachine(opts ...Option) *Machine[S, E, D] {
	return newMachine(d, opts...)
}

func (d *Definition[S, E, D]) Name() string {
	return d.name
}

func (d *Definition[S, E, D]) Initial() S { //nolint:ireturn
	return d.initial
}

func (d *Definition[S, E, D]) Table() *Table[S, E, D] {
	return d.table
}

func (d *Definition[S, E, D]) States() []S {
	return d.table.States()
}

func (d *Definition[S, E, D]) Edges() []Edge[S] {
	return d.table.Edges()
}

// IsTerminal reports whether a state has no outgoing transitions.
func (d *Definition[S, E, D]) IsTerminal(state S) bool {
	return d.table.IsTerminal(state)
}

// Fingerprint identifies the shape of the definition: its name, initial
// state, edges and bindings, independent of declaration order. Two replicas
// built from the same declarations report the same fingerprint.
func (d *Definition[S, E, D]) Fingerprint() string {
	return d.fingerprint
}

func (d *Definition[S, E, D]) computeFingerprint() string {
	lines := make([]string, 0, len(d.table.edges)+len(d.table.states))

	for _, edge := range d.table.edges {
		lines = append(lines, "edge:"+edge.String())
	}

	for _, state := range d.table.states {
		rec := d.table.records[state]

		if rec.Entry != nil {
			lines = append(lines, fmt.Sprintf("entry:%s:%s", state, rec.Entry.Name))
		}

		if rec.Exit != nil {
			lines = append(lines, fmt.Sprintf("exit:%s:%s", state, rec.Exit.Name))
		}

		if rec.Guard != nil {
			lines = append(lines, fmt.Sprintf("guard:%s:%s", state, rec.Guard.Name))
		}
	}

	slices.Sort(lines)

	hasher := xxh3.New()
	_, _ = hasher.WriteString(d.name + "\n" + string(d.initial) + "\n")

	for _, line := range lines {
		_, _ = hasher.WriteString(line + "\n")
	}

	return fmt.Sprintf("%016x", hasher.Sum64())
}
