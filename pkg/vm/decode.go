package vm

import (
	"errors"
	"math/big"

	"github.com/wsLang/ws/pkg/symbols"
)

// SymbolSource is anything the decoder can read symbols from. Positions
// holding a non-symbol value report ok=false.
type SymbolSource interface {
	Len() int
	SymbolAt(i int) (symbols.Symbol, bool)
}

// ErrUnterminated is returned when an operand has no terminating LF.
var ErrUnterminated = errors.New("operand is not terminated by LF")

// Label is a label key: the operand symbols including the terminating LF.
type Label string

// Symbols returns the key as a symbol sequence.
func (k Label) Symbols() []symbols.Symbol {
	seq := make([]symbols.Symbol, len(k))
	for i := 0; i < len(k); i++ {
		seq[i] = symbols.Symbol(k[i])
	}
	return seq
}

// String renders the key as [Space][Tab][LF] names.
func (k Label) String() string { return symbols.Describe(k.Symbols()) }

// Visible renders the key as S/T/L letters.
func (k Label) Visible() string { return symbols.Visible(k.Symbols()) }

// Identify returns the instruction whose pattern starts at ip, or nil.
func Identify(src SymbolSource, ip int) *Instruction {
	for i := range Instructions {
		inst := &Instructions[i]
		if inst.Op == OpNone {
			continue
		}
		if matches(src, ip, inst.Pattern) {
			return inst
		}
	}
	return nil
}

func matches(src SymbolSource, ip int, pattern []symbols.Symbol) bool {
	if ip < 0 || ip+len(pattern) > src.Len() {
		return false
	}
	for k, want := range pattern {
		got, ok := src.SymbolAt(ip + k)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// DecodeNumber decodes a signed number starting at ip. The first symbol is
// the sign (space positive, tab negative) and the rest are magnitude bits,
// most significant first. It returns the value and the number of positions
// consumed including the terminator. Non-symbol cells inside the operand are
// skipped.
func DecodeNumber(src SymbolSource, ip int) (*big.Int, int, error) {
	n := new(big.Int)
	signed, negative := false, false
	for i := ip; i < src.Len(); i++ {
		sym, ok := src.SymbolAt(i)
		if !ok {
			continue
		}
		if sym == symbols.LF {
			if negative {
				n.Neg(n)
			}
			return n, i - ip + 1, nil
		}
		if !signed {
			signed = true
			negative = sym == symbols.Tab
			continue
		}
		n.Lsh(n, 1)
		if sym == symbols.Tab {
			n.SetBit(n, 0, 1)
		}
	}
	return nil, 0, ErrUnterminated
}

// DecodeLabel decodes a label key starting at ip. The key includes the
// terminating LF.
func DecodeLabel(src SymbolSource, ip int) (Label, int, error) {
	var key []byte
	for i := ip; i < src.Len(); i++ {
		sym, ok := src.SymbolAt(i)
		if !ok {
			continue
		}
		key = append(key, byte(sym))
		if sym == symbols.LF {
			return Label(key), i - ip + 1, nil
		}
	}
	return "", 0, ErrUnterminated
}

// EncodeNumber is the inverse of DecodeNumber. Zero and negative numbers
// take the tab sign; zero has a single zero magnitude bit.
func EncodeNumber(n *big.Int) []symbols.Symbol {
	var seq []symbols.Symbol
	if n.Sign() > 0 {
		seq = append(seq, symbols.Space)
	} else {
		seq = append(seq, symbols.Tab)
	}
	for _, c := range new(big.Int).Abs(n).Text(2) {
		if c == '1' {
			seq = append(seq, symbols.Tab)
		} else {
			seq = append(seq, symbols.Space)
		}
	}
	return append(seq, symbols.LF)
}
