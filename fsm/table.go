package fsm

import (
	"errors"
	"slices"
)

// StateRecord holds what the table knows about one state: its entry and
// exit actions and its entry guard. Any of them may be nil.
type StateRecord[S ~string, E, D any] struct {
	State S
	Entry *ActionBinding[S, E, D]
	Exit  *ActionBinding[S, E, D]
	Guard *GuardBinding[S, D]
}

// Route is one resolved table entry: the record of the origin (whose exit
// action runs) and the record of the destination (whose guard and entry
// action run).
type Route[S ~string, E, D any] struct {
	From *StateRecord[S, E, D]
	To   *StateRecord[S, E, D]
}

// Table is the compiled transition table. It is never modified after
// BuildTable returns and may be shared freely between goroutines.
type Table[S ~string, E, D any] struct {
	states  []S
	edges   []Edge[S]
	records map[S]*StateRecord[S, E, D]
	routes  map[S]map[S]Route[S, E, D]
	order   map[S][]S
}

// BuildTable compiles edges and bindings into a Table. Every conflict found
// in the bindings is reported in the returned error, which always matches
// ErrConfiguration. No partial table is returned.
func BuildTable[S ~string, E, D any](
	edges []Edge[S],
	actions []ActionBinding[S, E, D],
	guards []GuardBinding[S, D],
) (*Table[S, E, D], error) {
	if len(edges) == 0 {
		return nil, ErrNoTransitions
	}

	tbl := &Table[S, E, D]{
		records: make(map[S]*StateRecord[S, E, D]),
		routes:  make(map[S]map[S]Route[S, E, D]),
		order:   make(map[S][]S),
	}

	var errs []error

	for _, edge := range edges {
		if edge.From == "" || edge.To == "" {
			errs = append(errs, &ConfigError{Binding: "transition " + edge.String(), Err: ErrMissingState})

			continue
		}

		tbl.declare(edge.From)
		tbl.declare(edge.To)
	}

	for i := range actions {
		if err := tbl.bindAction(actions[i]); err != nil {
			errs = append(errs, err)
		}
	}

	for i := range guards {
		if err := tbl.bindGuard(guards[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, edge := range edges {
		tbl.connect(edge)
	}

	return tbl, nil
}

func (t *Table[S, E, D]) declare(state S) {
	if _, ok := t.records[state]; ok {
		return
	}

	t.states = append(t.states, state)
	t.records[state] = &StateRecord[S, E, D]{State: state}
}

func (t *Table[S, E, D]) bindAction(binding ActionBinding[S, E, D]) error {
	if err := binding.check(); err != nil {
		return err
	}

	rec, ok := t.records[binding.State]
	if !ok {
		return &ConfigError{Binding: binding.Name, State: string(binding.State), Err: ErrUndeclaredState}
	}

	bound := &binding

	var errs []error

	if binding.Phase.Has(OnEntry) {
		if rec.Entry != nil {
			errs = append(errs, &ConfigError{
				Binding:  binding.Name,
				State:    string(binding.State),
				Conflict: rec.Entry.Name,
				Err:      ErrDuplicateEntryAction,
			})
		} else {
			rec.Entry = bound
		}
	}

	if binding.Phase.Has(OnExit) {
		if rec.Exit != nil {
			errs = append(errs, &ConfigError{
				Binding:  binding.Name,
				State:    string(binding.State),
				Conflict: rec.Exit.Name,
				Err:      ErrDuplicateExitAction,
			})
		} else {
			rec.Exit = bound
		}
	}

	return errors.Join(errs...)
}

func (t *Table[S, E, D]) bindGuard(binding GuardBinding[S, D]) error {
	if err := binding.check(); err != nil {
		return err
	}

	rec, ok := t.records[binding.State]
	if !ok {
		return &ConfigError{Binding: binding.Name, State: string(binding.State), Err: ErrUndeclaredState}
	}

	if rec.Guard != nil {
		return &ConfigError{
			Binding:  binding.Name,
			State:    string(binding.State),
			Conflict: rec.Guard.Name,
			Err:      ErrDuplicateGuard,
		}
	}

	rec.Guard = &binding

	return nil
}

func (t *Table[S, E, D]) connect(edge Edge[S]) {
	dests, ok := t.routes[edge.From]
	if !ok {
		dests = make(map[S]Route[S, E, D])
		t.routes[edge.From] = dests
	}

	if _, dup := dests[edge.To]; dup {
		return
	}

	dests[edge.To] = Route[S, E, D]{From: t.records[edge.From], To: t.records[edge.To]}
	t.order[edge.From] = append(t.order[edge.From], edge.To)
	t.edges = append(t.edges, edge)
}

// Lookup returns the route from one state to another. The first boolean
// reports whether from has any outgoing transition at all; the second
// whether the specific pair is allowed.
func (t *Table[S, E, D]) Lookup(from, to S) (Route[S, E, D], bool, bool) {
	dests, ok := t.routes[from]
	if !ok {
		return Route[S, E, D]{}, false, false
	}

	route, ok := dests[to]

	return route, true, ok
}

// States returns every state in order of first appearance in the edges.
func (t *Table[S, E, D]) States() []S {
	return slices.Clone(t.states)
}

// Edges returns the distinct edges in declaration order.
func (t *Table[S, E, D]) Edges() []Edge[S] {
	return slices.Clone(t.edges)
}

// Destinations returns the states reachable from state in one step, in
// declaration order.
func (t *Table[S, E, D]) Destinations(state S) []S {
	return slices.Clone(t.order[state])
}

// Record returns the record of a state.
func (t *Table[S, E, D]) Record(state S) (StateRecord[S, E, D], bool) {
	rec, ok := t.records[state]
	if !ok {
		return StateRecord[S, E, D]{}, false
	}

	return *rec, true
}

// Has reports whether state appears in any edge.
func (t *Table[S, E, D]) Has(state S) bool {
	_, ok := t.records[state]

	return ok
}

// IsTerminal reports whether state has no outgoing transitions.
func (t *Table[S, E, D]) IsTerminal(state S) bool {
	_, ok := t.routes[state]

	return !ok
}
