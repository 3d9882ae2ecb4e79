// Package validator lints compiled state machine definitions for problems
// the builder accepts but which are usually mistakes, such as states that
// can never be reached.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/amp-fsm/fsm"
)

// Issue is one finding of a rule.
type Issue struct {
	Code     string
	Message  string
	State    string
	Severity Severity
	Fix      string
}

// Result contains the findings of a validation run.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

type options struct {
	strict bool
	rules  []Rule
}

// Option configures Validate.
type Option func(*options)

// Strict promotes every warning to an error.
func Strict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(o *options) {
		o.rules = rules
	}
}

// Validate runs the rules over a definition description. Findings are
// ordered naturally by state name, then by code.
func Validate(desc fsm.Description, opts ...Option) Result {
	o := &options{rules: DefaultRules()}

	for _, opt := range opts {
		opt(o)
	}

	var result Result

	for _, rule := range o.rules {
		for _, issue := range rule.Check(desc) {
			if issue.Severity == SeverityError || o.strict {
				issue.Severity = SeverityError
				result.Errors = append(result.Errors, issue)
			} else {
				result.Warnings = append(result.Warnings, issue)
			}
		}
	}

	sortIssues(result.Errors)
	sortIssues(result.Warnings)

	result.Valid = len(result.Errors) == 0

	return result
}

// ValidateDefinition is Validate over def.Describe().
func ValidateDefinition[S ~string, E, D any](def *fsm.Definition[S, E, D], opts ...Option) Result {
	return Validate(def.Describe(), opts...)
}

// ValidateFile loads, builds and validates a YAML definition. Build errors
// are returned as an error; lint findings are in the Result.
func ValidateFile(path string, reg *fsm.Registry, opts ...Option) (Result, error) {
	def, err := fsm.LoadDefinition(path, reg)
	if err != nil {
		return Result{
			Errors: []Issue{{
				Code:     "DEFINITION_INVALID",
				Message:  err.Error(),
				Severity: SeverityError,
			}},
		}, err
	}

	return ValidateDefinition(def, opts...), nil
}

func sortIssues(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		if c := compareStates(a.State, b.State); c != 0 {
			return c
		}

		return strings.Compare(a.Code, b.Code)
	})
}

// compareStates orders state names naturally. Names natsort considers
// equivalent, such as "a01" and "a1", fall back to byte order.
func compareStates(a, b string) int {
	switch {
	case a == b:
		return 0
	case natsort.Compare(a, b):
		return -1
	case natsort.Compare(b, a):
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// HasErrors returns true if the result has any errors.
func (r Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary.
func (r Result) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("✓ definition is valid\n")
	} else {
		fmt.Fprintf(&sb, "✗ definition has %d error(s)\n", len(r.Errors))
		writeIssues(&sb, r.Errors)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "⚠ %d warning(s)\n", len(r.Warnings))
		writeIssues(&sb, r.Warnings)
	}

	return sb.String()
}

func writeIssues(sb *strings.Builder, issues []Issue) {
	for _, issue := range issues {
		fmt.Fprintf(sb, "  [%s] %s", issue.Code, issue.Message)

		if issue.State != "" {
			fmt.Fprintf(sb, " (state: %s)", issue.State)
		}

		sb.WriteString("\n")

		if issue.Fix != "" {
			fmt.Fprintf(sb, "    fix: %s\n", issue.Fix)
		}
	}
}
