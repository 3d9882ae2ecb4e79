// Package visualizer renders state machine definitions as Mermaid or
// Graphviz DOT diagrams.
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/fsm"
)

// ErrNoInitialState is returned for descriptions without an initial state.
var ErrNoInitialState = errors.New("definition must have an initial state")

// Mermaid renders a Mermaid state diagram with the default options.
func Mermaid(desc fsm.Description) (string, error) {
	return MermaidWithOptions(desc, DefaultOptions())
}

// MermaidFromFile loads a YAML definition and renders it as Mermaid.
func MermaidFromFile(path string, reg *fsm.Registry, opts Options) (string, error) {
	def, err := fsm.LoadDefinition(path, reg)
	if err != nil {
		return "", fmt.Errorf("failed to load definition: %w", err)
	}

	return MermaidWithOptions(def.Describe(), opts)
}

// MermaidWithOptions renders a Mermaid state diagram.
func MermaidWithOptions(desc fsm.Description, opts Options) (string, error) {
	if desc.Initial == "" {
		return "", ErrNoInitialState
	}

	states, edges := opts.highlights()
	guards := guardsByState(desc)
	ids := mermaidIDs(desc)

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	fmt.Fprintf(&sb, "stateDiagram-v2\n    direction %s\n", opts.Direction)
	fmt.Fprintf(&sb, "    [*] --> %s\n", ids.of(desc.Initial))

	for _, state := range desc.States {
		id := ids.of(state.Name)

		if opts.ShowActions && (state.Entry != "" || state.Exit != "") {
			fmt.Fprintf(&sb, "    %s: %s\\n%s\n", id, state.Name, actionLabel(state, "\\n"))
		} else if id != state.Name {
			fmt.Fprintf(&sb, "    %s: %s\n", id, state.Name)
		}

		switch {
		case states[state.Name]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", id)
		case state.Terminal:
			fmt.Fprintf(&sb, "    class %s terminalState\n", id)
		case state.Guard != "":
			fmt.Fprintf(&sb, "    class %s guardedState\n", id)
		}
	}

	for _, edge := range desc.Edges {
		label := ""
		if opts.ShowGuards && guards[edge.To] != "" {
			label = ": [" + guards[edge.To] + "]"
		}

		if edges[[2]string{edge.From, edge.To}] {
			label += " ★"
		}

		fmt.Fprintf(&sb, "    %s --> %s%s\n", ids.of(edge.From), ids.of(edge.To), label)
	}

	if opts.MarkTerminal {
		for _, state := range desc.States {
			if state.Terminal {
				fmt.Fprintf(&sb, "    %s --> [*]\n", ids.of(state.Name))
			}
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef guardedState fill:#e1f5ff,stroke:#01579b,stroke-width:2px\n")
	sb.WriteString("    classDef terminalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")
	sb.WriteString("```\n")

	return sb.String(), nil
}

// DOT renders a Graphviz digraph with the default options.
func DOT(desc fsm.Description) (string, error) {
	return DOTWithOptions(desc, DefaultOptions())
}

// DOTWithOptions renders a Graphviz digraph.
func DOTWithOptions(desc fsm.Description, opts Options) (string, error) {
	if desc.Initial == "" {
		return "", ErrNoInitialState
	}

	states, edges := opts.highlights()
	guards := guardsByState(desc)

	var sb strings.Builder

	fmt.Fprintf(&sb, "digraph %s {\n", dotQuote(desc.Name))
	fmt.Fprintf(&sb, "    rankdir=%s;\n", dotRankDir(opts.Direction))
	sb.WriteString("    node [shape=box, style=rounded];\n")
	sb.WriteString("    __start [shape=point];\n")
	fmt.Fprintf(&sb, "    __start -> %s;\n", dotQuote(desc.Initial))

	for _, state := range desc.States {
		var attrs []string

		label := state.Name
		if opts.ShowActions && (state.Entry != "" || state.Exit != "") {
			label += "\n" + actionLabel(state, "\n")
		}

		attrs = append(attrs, "label="+dotQuote(label))

		switch {
		case states[state.Name]:
			attrs = append(attrs, `style="rounded,filled"`, `fillcolor="#fff9c4"`, "penwidth=3")
		case state.Terminal && opts.MarkTerminal:
			attrs = append(attrs, "peripheries=2")
		}

		fmt.Fprintf(&sb, "    %s [%s];\n", dotQuote(state.Name), strings.Join(attrs, ", "))
	}

	for _, edge := range desc.Edges {
		var attrs []string

		if opts.ShowGuards && guards[edge.To] != "" {
			attrs = append(attrs, "label="+dotQuote("["+guards[edge.To]+"]"))
		}

		if edges[[2]string{edge.From, edge.To}] {
			attrs = append(attrs, `color="#f57f17"`, "penwidth=3")
		}

		fmt.Fprintf(&sb, "    %s -> %s", dotQuote(edge.From), dotQuote(edge.To))

		if len(attrs) > 0 {
			fmt.Fprintf(&sb, " [%s]", strings.Join(attrs, ", "))
		}

		sb.WriteString(";\n")
	}

	sb.WriteString("}\n")

	return sb.String(), nil
}

func guardsByState(desc fsm.Description) map[string]string {
	guards := make(map[string]string)

	for _, state := range desc.States {
		if state.Guard != "" {
			guards[state.Name] = state.Guard
		}
	}

	return guards
}

func actionLabel(state fsm.StateInfo, sep string) string {
	var parts []string

	if state.Entry != "" {
		parts = append(parts, "entry/ "+state.Entry)
	}

	if state.Exit != "" {
		parts = append(parts, "exit/ "+state.Exit)
	}

	return strings.Join(parts, sep)
}

type idTable map[string]string

func (t idTable) of(name string) string {
	if id, ok := t[name]; ok {
		return id
	}

	return mermaidID(name)
}

// mermaidIDs assigns every state a distinct Mermaid identifier. Names that
// are already identifiers keep them; the others are sanitized and suffixed
// with a counter when the sanitized form is taken.
func mermaidIDs(desc fsm.Description) idTable {
	ids := make(idTable, len(desc.States))
	taken := make(map[string]bool, len(desc.States))

	for _, state := range desc.States {
		if mermaidID(state.Name) == state.Name {
			ids[state.Name] = state.Name
			taken[state.Name] = true
		}
	}

	for _, state := range desc.States {
		if _, ok := ids[state.Name]; ok {
			continue
		}

		base := mermaidID(state.Name)
		id := base

		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s_%d", base, n)
		}

		ids[state.Name] = id
		taken[id] = true
	}

	return ids
}

// mermaidID maps a state name to a valid Mermaid identifier.
func mermaidID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func dotQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)

	return `"` + s + `"`
}

func dotRankDir(d Direction) string {
	if d == LeftRight {
		return "LR"
	}

	return "TB"
}
