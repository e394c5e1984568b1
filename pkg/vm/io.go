package vm

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"
	"unicode/utf8"
)

// DefaultPrompt is printed when INPUT-NUMBER reads a line that is not an integer.
const DefaultPrompt = "[INTERPRETER] Please enter a number"

// IO is the blocking character/number adapter used by the I/O instructions.
type IO struct {
	in         *bufio.Reader
	out        io.Writer
	prompt     io.Writer
	promptText string
}

// NewIO wraps in (reusing it if it is already a *bufio.Reader, so that
// other readers of the same stream see consistent buffering).
func NewIO(in io.Reader, out, prompt io.Writer, promptText string) *IO {
	if prompt == nil {
		prompt = io.Discard
	}
	return &IO{
		in:         bufio.NewReader(in),
		out:        out,
		prompt:     prompt,
		promptText: promptText,
	}
}

// ReadChar blocks for one UTF-8 encoded character.
func (c *IO) ReadChar() (rune, error) {
	r, _, err := c.in.ReadRune()
	if err != nil {
		return 0, err
	}
	return r, nil
}

// ReadNumber blocks for a line holding a decimal integer, re-prompting
// until one arrives. It fails only when the input ends or errors.
func (c *IO) ReadNumber() (*big.Int, error) {
	for {
		line, err := c.in.ReadString('\n')
		text := strings.TrimSpace(line)
		if n, ok := parseNumber(text); ok {
			return n, nil
		}
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if c.promptText != "" {
			fmt.Fprintln(c.prompt, c.promptText)
		}
	}
}

// parseNumber accepts an optionally signed decimal integer. Single
// underscores may separate digits, as in 1_000_000.
func parseNumber(text string) (*big.Int, bool) {
	digits := strings.TrimLeft(text, "+-")
	if len(text)-len(digits) > 1 || digits == "" {
		return nil, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] != '_' {
			continue
		}
		if i == 0 || i == len(digits)-1 || digits[i-1] == '_' {
			return nil, false
		}
	}
	return new(big.Int).SetString(strings.ReplaceAll(text, "_", ""), 10)
}

// WriteChar writes r as UTF-8.
func (c *IO) WriteChar(r rune) error {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	_, err := c.out.Write(buf[:n])
	return err
}

// WriteNumber writes n in decimal.
func (c *IO) WriteNumber(n *big.Int) error {
	_, err := io.WriteString(c.out, n.String())
	return err
}
