package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/fsm/validator"
	"github.com/amp-labs/amp-fsm/fsm/visualizer"
	"github.com/manifoldco/promptui"
	"gopkg.in/yaml.v3"
)

const usage = `usage:
  fsmctl validate [--strict] <file>
  fsmctl render [--dot] [--lr] [--highlight a,b,...] [--no-actions] [--no-guards] <file>
  fsmctl run [--set key=value]... [--script a,b,...] [--verbose] <file>
`

var (
	ErrUsage             = errors.New("invalid usage")
	ErrInvalidDefinition = errors.New("definition has errors")
)

const (
	choiceSetData = "… set data"
	choiceQuit    = "… quit"
	cliEvent      = "fsmctl"
)

type app struct {
	out      io.Writer
	prompter *cli.Prompter
	registry *fsm.Registry
}

func newApp(out io.Writer, prompter *cli.Prompter) *app {
	return &app{
		out:      out,
		prompter: prompter,
		registry: fsm.NewRegistry(),
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}

	switch args[0] {
	case "validate":
		return a.validate(args[1:])
	case "render":
		return a.render(args[1:])
	case "run":
		return a.drive(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)

		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	return fs
}

// file parses the flag set and returns the single positional argument.
func file(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", err
		}

		return "", fmt.Errorf("%w: %w", ErrUsage, err)
	}

	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s expects exactly one file", ErrUsage, fs.Name())
	}

	return fs.Arg(0), nil
}

func (a *app) validate(args []string) error {
	fs := a.flags("validate")
	strict := fs.Bool("strict", false, "treat warnings as errors")

	path, err := file(fs, args)
	if err != nil {
		return err
	}

	var opts []validator.Option
	if *strict {
		opts = append(opts, validator.Strict())
	}

	result, err := validator.ValidateFile(path, a.registry, opts...)

	fmt.Fprint(a.out, result.String())

	if err != nil {
		return err
	}

	if !result.Valid {
		return ErrInvalidDefinition
	}

	return nil
}

func (a *app) render(args []string) error {
	fs := a.flags("render")
	dot := fs.Bool("dot", false, "emit Graphviz DOT instead of Mermaid")
	lr := fs.Bool("lr", false, "lay the diagram out left to right")
	highlight := fs.String("highlight", "", "comma-separated path of states to highlight")
	noActions := fs.Bool("no-actions", false, "omit action names")
	noGuards := fs.Bool("no-guards", false, "omit guard labels")

	path, err := file(fs, args)
	if err != nil {
		return err
	}

	def, err := fsm.LoadDefinition(path, a.registry)
	if err != nil {
		return err
	}

	opts := visualizer.DefaultOptions().
		WithShowActions(!*noActions).
		WithShowGuards(!*noGuards).
		WithHighlightPath(splitList(*highlight)...)

	if *lr {
		opts = opts.WithDirection(visualizer.LeftRight)
	}

	render := visualizer.MermaidWithOptions
	if *dot {
		render = visualizer.DOTWithOptions
	}

	out, err := render(def.Describe(), opts)
	if err != nil {
		return err
	}

	fmt.Fprint(a.out, out)

	return nil
}

func (a *app) drive(ctx context.Context, args []string) error {
	data := make(fsm.Data)

	fs := a.flags("run")
	fs.Var((*dataFlag)(&data), "set", "initial transition data as key=value (repeatable)")
	script := fs.String("script", "", "comma-separated destinations to run without prompting")
	verbose := fs.Bool("verbose", false, "log every transition step")

	path, err := file(fs, args)
	if err != nil {
		return err
	}

	def, err := fsm.LoadDefinition(path, a.registry)
	if err != nil {
		return err
	}

	var opts []fsm.Option
	if *verbose {
		opts = append(opts, fsm.WithObserver(fsm.NewLogObserver()))
	}

	machine := def.NewMachine(opts...)

	if *script != "" {
		return a.runScript(ctx, machine, splitList(*script), data)
	}

	return a.interactive(ctx, machine, data)
}

func (a *app) runScript(ctx context.Context, machine *fsm.Machine[string, string, fsm.Data], steps []string, data fsm.Data) error {
	var errs []error

	for _, to := range steps {
		from := machine.State()

		if _, err := machine.Transition(ctx, to, cliEvent, data); err != nil {
			fmt.Fprintf(a.out, "✗ %s -> %s: %v\n", from, to, err)

			errs = append(errs, err)

			continue
		}

		fmt.Fprintf(a.out, "✓ %s -> %s\n", from, to)
	}

	fmt.Fprintf(a.out, "final state: %s\n", machine.State())

	return errors.Join(errs...)
}

func (a *app) interactive(ctx context.Context, machine *fsm.Machine[string, string, fsm.Data], data fsm.Data) error {
	name := machine.Definition().Name()

	for ctx.Err() == nil {
		fmt.Fprint(a.out, cli.BannerFor(ctx, fmt.Sprintf("%s: %s", name, machine.State()), cli.AlignCenter))

		if machine.IsTerminal() {
			fmt.Fprintln(a.out, "terminal state reached")

			return nil
		}

		choices := append(machine.Destinations(), choiceSetData, choiceQuit)

		_, choice, err := a.prompter.Select("Transition to", choices...)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}

			return err
		}

		switch choice {
		case choiceQuit:
			return nil
		case choiceSetData:
			key, value, err := a.prompter.Assignment("key=value")
			if err != nil {
				return err
			}

			data[key] = parseValue(value)
		default:
			if _, err := machine.Transition(ctx, choice, cliEvent, data); err != nil {
				fmt.Fprintf(a.out, "✗ %v\n", err)
			}
		}
	}

	return nil
}

// dataFlag collects repeated --set key=value flags.
type dataFlag fsm.Data

func (d *dataFlag) String() string {
	if d == nil {
		return ""
	}

	keys := make([]string, 0, len(*d))
	for k := range *d {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, (*d)[k]))
	}

	return strings.Join(parts, ",")
}

func (d *dataFlag) Set(s string) error {
	key, value, err := cli.ParseAssignment(s)
	if err != nil {
		return err
	}

	(*d)[key] = parseValue(value)

	return nil
}

// parseValue interprets a scalar the way YAML does, so "true" is a bool and
// "3" an int. Anything unparseable stays a string.
func parseValue(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}

	switch v.(type) {
	case map[string]any, []any:
		return s
	default:
		return v
	}
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
