package validator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Severity defines the severity level of an issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Rule checks a definition for one kind of problem.
type Rule interface {
	Name() string
	Check(desc fsm.Description) []Issue
}

// DefaultRules returns the standard set of rules.
func DefaultRules() []Rule {
	return []Rule{
		unreachableStateRule{},
		terminalStateRule{},
		guardedInitialRule{},
		selfLoopRule{},
		namingConventionRule{},
	}
}

// unreachableStateRule reports states that cannot be reached from the initial state.
type unreachableStateRule struct{}

func (unreachableStateRule) Name() string { return "UnreachableState" }

func (unreachableStateRule) Check(desc fsm.Description) []Issue {
	reachable := map[string]bool{desc.Initial: true}
	queue := []string{desc.Initial}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range desc.Outgoing(current) {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	var issues []Issue

	for _, state := range desc.States {
		if reachable[state.Name] {
			continue
		}

		issues = append(issues, Issue{
			Code:     "UNREACHABLE_STATE",
			Message:  fmt.Sprintf("state %q cannot be reached from initial state %q", state.Name, desc.Initial),
			State:    state.Name,
			Severity: SeverityError,
			Fix:      fmt.Sprintf("add a transition into %q or remove its transitions", state.Name),
		})
	}

	return issues
}

// terminalStateRule lists states with no way out. Machines entering them
// fail every later transition with ErrInvalidState.
type terminalStateRule struct{}

func (terminalStateRule) Name() string { return "TerminalState" }

func (terminalStateRule) Check(desc fsm.Description) []Issue {
	var issues []Issue

	for _, state := range desc.States {
		if !state.Terminal {
			continue
		}

		issues = append(issues, Issue{
			Code:     "TERMINAL_STATE",
			Message:  fmt.Sprintf("state %q has no outgoing transitions", state.Name),
			State:    state.Name,
			Severity: SeverityWarning,
		})

		if state.Exit != "" {
			issues = append(issues, Issue{
				Code:     "EXIT_ACTION_NEVER_RUNS",
				Message:  fmt.Sprintf("exit action %q of terminal state %q can never run", state.Exit, state.Name),
				State:    state.Name,
				Severity: SeverityWarning,
			})
		}
	}

	return issues
}

// guardedInitialRule flags a guard on the initial state: machines start
// there without consulting it.
type guardedInitialRule struct{}

func (guardedInitialRule) Name() string { return "GuardedInitialState" }

func (guardedInitialRule) Check(desc fsm.Description) []Issue {
	state, ok := desc.State(desc.Initial)
	if !ok || state.Guard == "" {
		return nil
	}

	return []Issue{{
		Code:     "GUARDED_INITIAL_STATE",
		Message:  fmt.Sprintf("guard %q on initial state %q is only consulted on re-entry", state.Guard, state.Name),
		State:    state.Name,
		Severity: SeverityWarning,
	}}
}

// selfLoopRule notes transitions from a state to itself, which run the
// state's exit and entry actions.
type selfLoopRule struct{}

func (selfLoopRule) Name() string { return "SelfLoop" }

func (selfLoopRule) Check(desc fsm.Description) []Issue {
	var issues []Issue

	for _, edge := range desc.Edges {
		if edge.From != edge.To {
			continue
		}

		issues = append(issues, Issue{
			Code:     "SELF_LOOP",
			Message:  fmt.Sprintf("state %q transitions to itself; its exit and entry actions both run", edge.From),
			State:    edge.From,
			Severity: SeverityInfo,
		})
	}

	return issues
}

// namingConventionRule asks for snake_case state and binding names.
type namingConventionRule struct{}

func (namingConventionRule) Name() string { return "NamingConvention" }

func (namingConventionRule) Check(desc fsm.Description) []Issue {
	var issues []Issue

	check := func(kind, name, state string) {
		if name == "" || isSnakeCase(name) {
			return
		}

		issues = append(issues, Issue{
			Code:     "NAMING_CONVENTION",
			Message:  fmt.Sprintf("%s %q is not snake_case", kind, name),
			State:    state,
			Severity: SeverityWarning,
			Fix:      fmt.Sprintf("rename to %q", toSnakeCase(name)),
		})
	}

	for _, state := range desc.States {
		check("state", state.Name, state.Name)
		check("entry action", state.Entry, state.Name)
		check("guard", state.Guard, state.Name)

		if state.Exit != state.Entry {
			check("exit action", state.Exit, state.Name)
		}
	}

	return issues
}

func isSnakeCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) || r == '-' || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

func toSnakeCase(s string) string {
	var sb strings.Builder

	for i, r := range s {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				sb.WriteRune('_')
			}

			sb.WriteRune(unicode.ToLower(r))
		case r == '-' || unicode.IsSpace(r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
