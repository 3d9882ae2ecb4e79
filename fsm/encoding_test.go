package fsm

import (
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestLoadConfigUTF16(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile("testdata/lightbulb.yaml")
	require.NoError(t, err)

	for _, endian := range []unicode.Endianness{unicode.LittleEndian, unicode.BigEndian} {
		encoded, err := unicode.UTF16(endian, unicode.UseBOM).NewEncoder().Bytes(data)
		require.NoError(t, err)

		cfg, err := LoadConfigFromBytes(encoded)
		require.NoError(t, err)
		assert.Equal(t, "lightbulb", cfg.Name)
		assert.Len(t, cfg.Transitions, 4)
	}
}

func TestLoadConfigUTF8BOM(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile("testdata/lightbulb.yaml")
	require.NoError(t, err)

	cfg, err := LoadConfigFromBytes(append([]byte("\xef\xbb\xbf"), data...))
	require.NoError(t, err)
	assert.Equal(t, "lightbulb", cfg.Name)
}

func TestLoadConfigLatin1(t *testing.T) {
	t.Parallel()

	src := `# Machine à café : la préparation commence après la sélection du café.
# Le café est versé dès que l'eau a été chauffée à la température idéale.
name: cafétière
initialState: prête
transitions:
  - {from: prête, to: préparation}
  - {from: préparation, to: prête}
`

	latin1, err := charmap.ISO8859_1.NewEncoder().String(src)
	require.NoError(t, err)
	require.False(t, utf8.ValidString(latin1))

	cfg, err := LoadConfigFromBytes([]byte(latin1))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(cfg.Name))
	assert.True(t, strings.HasPrefix(cfg.Name, "caf"))
	assert.True(t, strings.HasPrefix(cfg.InitialState, "pr"))
}

func TestConfigNamesAreNFC(t *testing.T) {
	t.Parallel()

	const (
		composed   = "caf\u00e9"
		decomposed = "cafe\u0301"
	)

	src := "name: n\ninitialState: " + decomposed + "\n" +
		"transitions:\n  - {from: " + composed + ", to: closed}\n" +
		"guards:\n  - {name: g, state: " + decomposed + ", expression: always}\n"

	cfg, err := LoadConfigFromBytes([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, composed, cfg.InitialState)
	assert.Equal(t, composed, cfg.Guards[0].State)

	def, err := NewDynamic(cfg, NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, composed, def.Initial())
	assert.Len(t, def.States(), 2)
}
