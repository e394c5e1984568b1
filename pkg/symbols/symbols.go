// Package symbols implements the Whitespace symbol stream.
// Only space, tab and line-feed are significant; every other byte is a comment.
package symbols

import (
	"fmt"
	"io"
	"strings"
)

// Symbol is one of the three meaningful source bytes.
type Symbol byte

const (
	Space Symbol = ' '
	Tab   Symbol = '\t'
	LF    Symbol = '\n'
)

// IsSymbol reports whether b is significant.
func IsSymbol(b byte) bool {
	return b == byte(Space) || b == byte(Tab) || b == byte(LF)
}

// Letter returns the one-letter visible form of a symbol (S, T or L).
func (s Symbol) Letter() byte {
	switch s {
	case Space:
		return 'S'
	case Tab:
		return 'T'
	case LF:
		return 'L'
	}
	return '?'
}

// String returns the bracketed name used in diagnostics.
func (s Symbol) String() string {
	switch s {
	case Space:
		return "[Space]"
	case Tab:
		return "[Tab]"
	case LF:
		return "[LF]"
	}
	return fmt.Sprintf("[%#02x]", byte(s))
}

// Program is the filtered program buffer.
type Program []Symbol

// Len implements the decoder's symbol source.
func (p Program) Len() int { return len(p) }

// SymbolAt implements the decoder's symbol source.
func (p Program) SymbolAt(i int) (Symbol, bool) {
	if i < 0 || i >= len(p) {
		return 0, false
	}
	return p[i], true
}

// Bytes returns the program as raw source bytes.
func (p Program) Bytes() []byte {
	b := make([]byte, len(p))
	for i, s := range p {
		b[i] = byte(s)
	}
	return b
}

// Stats describes what the loader kept and dropped.
type Stats struct {
	Bytes   int // input size
	Symbols int // significant symbols kept
	Dropped int // comment bytes discarded
}

// Filter drops every non-symbol byte from data.
func Filter(data []byte) (Program, Stats) {
	prog := make(Program, 0, len(data))
	for _, b := range data {
		if IsSymbol(b) {
			prog = append(prog, Symbol(b))
		}
	}
	return prog, Stats{
		Bytes:   len(data),
		Symbols: len(prog),
		Dropped: len(data) - len(prog),
	}
}

// Load reads r to EOF and filters it.
func Load(r io.Reader) (Program, Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("reading program: %w", err)
	}
	prog, stats := Filter(data)
	return prog, stats, nil
}

// Visible renders a sequence as S/T/L letters.
func Visible(seq []Symbol) string {
	var sb strings.Builder
	sb.Grow(len(seq))
	for _, s := range seq {
		sb.WriteByte(s.Letter())
	}
	return sb.String()
}

// Describe renders a sequence as [Space][Tab][LF] names.
func Describe(seq []Symbol) string {
	var sb strings.Builder
	for _, s := range seq {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// ParseVisible is the inverse of Visible. Letters are case-insensitive.
func ParseVisible(s string) (Program, error) {
	prog := make(Program, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'S', 's':
			prog = append(prog, Space)
		case 'T', 't':
			prog = append(prog, Tab)
		case 'L', 'l':
			prog = append(prog, LF)
		default:
			return nil, fmt.Errorf("invalid symbol letter %q at offset %d", s[i], i)
		}
	}
	return prog, nil
}

// MustParseVisible is ParseVisible for literals known to be valid.
func MustParseVisible(s string) Program {
	prog, err := ParseVisible(s)
	if err != nil {
		panic(err)
	}
	return prog
}
