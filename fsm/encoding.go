package fsm

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// toUTF8 returns definition source as UTF-8. A UTF-8 or UTF-16 byte order
// mark selects the encoding; otherwise valid UTF-8 without NUL bytes is
// taken as is and anything else goes through charset detection.
func toUTF8(data []byte) ([]byte, error) {
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data),
		unicode.BOMOverride(transform.Nop)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigEncoding, err)
	}

	if utf8.Valid(decoded) && bytes.IndexByte(decoded, 0) < 0 {
		return decoded, nil
	}

	best, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigEncoding, err)
	}

	rdr, err := charset.NewReaderLabel(best.Charset, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: charset %s: %w", ErrConfigEncoding, best.Charset, err)
	}

	decoded, err = io.ReadAll(rdr)
	if err != nil {
		return nil, fmt.Errorf("%w: charset %s: %w", ErrConfigEncoding, best.Charset, err)
	}

	if !utf8.Valid(decoded) {
		return nil, fmt.Errorf("%w: charset %s", ErrConfigEncoding, best.Charset)
	}

	return decoded, nil
}

// normalize rewrites every name in the configuration to Unicode NFC so that
// visually identical state names compare equal.
func (c *Config) normalize() {
	c.Name = norm.NFC.String(c.Name)
	c.InitialState = norm.NFC.String(c.InitialState)

	for i := range c.Transitions {
		c.Transitions[i].From = norm.NFC.String(c.Transitions[i].From)
		c.Transitions[i].To = norm.NFC.String(c.Transitions[i].To)
	}

	for i := range c.Actions {
		c.Actions[i].Name = norm.NFC.String(c.Actions[i].Name)
		c.Actions[i].State = norm.NFC.String(c.Actions[i].State)
	}

	for i := range c.Guards {
		c.Guards[i].Name = norm.NFC.String(c.Guards[i].Name)
		c.Guards[i].State = norm.NFC.String(c.Guards[i].State)
	}
}
