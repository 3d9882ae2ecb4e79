package cli_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanner(t *testing.T) {
	t.Parallel()

	out := cli.Banner("hello", 11, cli.AlignCenter)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "╒═════════╕", lines[0])
	assert.Equal(t, "│  hello  │", lines[1])
	assert.Equal(t, "└─────────┘", lines[2])

	assert.Contains(t, cli.Banner("hello", 9, cli.AlignLeft), "│hello  │")
	assert.Contains(t, cli.Banner("hello", 9, cli.AlignRight), "│  hello│")
	assert.Empty(t, cli.Banner("hello", 2, cli.AlignLeft))
}

func TestBannerTruncates(t *testing.T) {
	t.Parallel()

	lines := strings.Split(cli.Banner("a very long line", 8, cli.AlignLeft), "\n")
	assert.Equal(t, "│a ver…│", lines[1])
	assert.Equal(t, 8, utf8.RuneCountInString(lines[1]))
}

func TestBannerFor(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), "FSM_NO_BANNER", "true")
	assert.Equal(t, "plain\n", cli.BannerFor(ctx, "plain", cli.AlignLeft))

	ctx = envutil.WithEnvOverride(t.Context(), "FSM_NO_BANNER", "false")
	assert.Contains(t, cli.BannerFor(ctx, "boxed", cli.AlignLeft), "╒")
}

func TestDivider(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "┠───┨\n", cli.Divider(5))
}

func TestParseAssignment(t *testing.T) {
	t.Parallel()

	key, value, err := cli.ParseAssignment(" electricity = true ")
	require.NoError(t, err)
	assert.Equal(t, "electricity", key)
	assert.Equal(t, "true", value)

	_, _, err = cli.ParseAssignment("novalue")
	require.ErrorIs(t, err, cli.ErrBadAssignment)

	_, _, err = cli.ParseAssignment("=x")
	require.ErrorIs(t, err, cli.ErrBadAssignment)
}

func TestPrefixSearcher(t *testing.T) {
	t.Parallel()

	search := cli.PrefixSearcher([]string{"off", "on", "broken"})

	assert.True(t, search("o", 0))
	assert.True(t, search("ON", 1))
	assert.False(t, search("o", 2))
	assert.False(t, search("", 0))
	assert.False(t, search("o", 5))
}

func TestSelectWithoutChoices(t *testing.T) {
	t.Parallel()

	_, _, err := cli.NewPrompter().Select("pick")
	require.ErrorIs(t, err, cli.ErrNoChoices)
}
