package cli

import (
	"strings"

	"github.com/manifoldco/promptui"
)

// Select shows choices and returns the index and value picked. Typing
// filters the list by prefix.
func (p *Prompter) Select(label string, choices ...string) (int, string, error) {
	if len(choices) == 0 {
		return -1, "", ErrNoChoices
	}

	sel := &promptui.Select{
		Label:    label,
		Items:    choices,
		Size:     min(len(choices), 10), //nolint:mnd
		Searcher: PrefixSearcher(choices),
		Stdin:    p.Stdin,
		Stdout:   p.Stdout,
	}

	return sel.Run()
}

// PrefixSearcher matches list entries starting with the typed input,
// ignoring case.
func PrefixSearcher(choices []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" || index < 0 || index >= len(choices) {
			return false
		}

		return strings.HasPrefix(strings.ToLower(choices[index]), strings.ToLower(input))
	}
}
