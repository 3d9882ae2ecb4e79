package visualizer

// Direction is the flow direction of a diagram.
type Direction string

const (
	TopDown   Direction = "TD"
	LeftRight Direction = "LR"
)

// Options configures the rendered diagram.
type Options struct {
	// ShowActions adds entry and exit action names to state nodes
	ShowActions bool

	// ShowGuards labels transitions into guarded states with the guard name
	ShowGuards bool

	// MarkTerminal draws an edge from terminal states to the end marker
	MarkTerminal bool

	// Direction controls diagram flow
	Direction Direction

	// HighlightPath highlights states, and the edges between consecutive ones
	HighlightPath []string
}

// DefaultOptions returns the options used by Mermaid and DOT.
func DefaultOptions() Options {
	return Options{
		ShowActions:  true,
		ShowGuards:   true,
		MarkTerminal: true,
		Direction:    TopDown,
	}
}

// WithShowActions enables/disables action details.
func (o Options) WithShowActions(show bool) Options {
	o.ShowActions = show

	return o
}

// WithShowGuards enables/disables guard labels.
func (o Options) WithShowGuards(show bool) Options {
	o.ShowGuards = show

	return o
}

// WithMarkTerminal enables/disables end markers on terminal states.
func (o Options) WithMarkTerminal(mark bool) Options {
	o.MarkTerminal = mark

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction Direction) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path ...string) Options {
	o.HighlightPath = path

	return o
}

func (o Options) highlights() (map[string]bool, map[[2]string]bool) {
	states := make(map[string]bool, len(o.HighlightPath))
	edges := make(map[[2]string]bool, len(o.HighlightPath))

	for i, state := range o.HighlightPath {
		states[state] = true

		if i > 0 {
			edges[[2]string{o.HighlightPath[i-1], state}] = true
		}
	}

	return states, edges
}
