// Package cli holds the terminal helpers used by fsmctl: boxed banners and
// promptui-based prompts.
package cli

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/amp-labs/amp-fsm/envutil"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

const (
	DefaultTerminalWidth = 80

	borderWidth = 2
)

// BannersSuppressed reports whether FSM_NO_BANNER asks for plain output.
func BannersSuppressed(ctx context.Context) bool {
	return envutil.Bool(ctx, "FSM_NO_BANNER", envutil.Default(false)).ValueOrElse(false)
}

// Divider returns a horizontal rule of the given width.
func Divider(width int) string {
	if width < borderWidth {
		width = borderWidth
	}

	return dividerLeft + strings.Repeat(dividerMiddle, width-borderWidth) + dividerRight + "\n"
}

// Banner draws s inside a box of the given width. Lines wider than the box
// are truncated with an ellipsis.
func Banner(s string, width int, alignment Alignment) string {
	if width <= borderWidth {
		return ""
	}

	inner := width - borderWidth
	parts := []string{boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight}

	for _, l := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		parts = append(parts, boxSide+pad(l, inner, alignment)+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n") + "\n"
}

// BannerFor is Banner at the default width, or s unchanged when banners are suppressed.
func BannerFor(ctx context.Context, s string, alignment Alignment) string {
	if BannersSuppressed(ctx) {
		return s + "\n"
	}

	return Banner(s, DefaultTerminalWidth, alignment)
}

func pad(text string, width int, alignment Alignment) string {
	length := utf8.RuneCountInString(text)

	if length > width {
		runes := []rune(text)
		text = string(runes[:width-1]) + ellipsis
		length = width
	}

	diff := width - length

	switch alignment {
	case AlignCenter:
		left := diff / 2 //nolint:mnd

		return fmt.Sprintf("%s%s%s", strings.Repeat(" ", left), text, strings.Repeat(" ", diff-left))
	case AlignRight:
		return strings.Repeat(" ", diff) + text
	default:
		return text + strings.Repeat(" ", diff)
	}
}
