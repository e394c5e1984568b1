package asm

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wsLang/ws/pkg/symbols"
	"github.com/wsLang/ws/pkg/vm"
)

// maxLayouts bounds how many label assignments Assemble tries before
// giving up on a program whose operands keep capturing its labels.
const maxLayouts = 64

// Assemble converts .wsa source to a Whitespace program
func Assemble(source string) (symbols.Program, error) {
	file, err := Parse("", source)
	if err != nil {
		return nil, err
	}
	return AssembleFile(file)
}

// AssembleFile generates code for a parsed file. Named labels get keys
// that differ from every raw key in the file. If an operand happens to
// contain an earlier definition of a generated key, the key is retired
// and the file is laid out again.
func AssembleFile(file *File) (symbols.Program, error) {
	retired := make(map[vm.Label]bool)
	for i := 0; i < maxLayouts; i++ {
		a := newAssembler(retired)
		if err := a.assemble(file); err != nil {
			return nil, err
		}
		shadowed := a.b.Shadowed()
		if len(shadowed) == 0 {
			return a.b.Program()
		}
		for _, key := range shadowed {
			retired[key] = true
		}
	}
	return nil, fmt.Errorf("could not place labels after %d layouts", maxLayouts)
}

type assembler struct {
	b       *Builder
	named   map[string]vm.Label
	defined map[string]bool
	used    map[string]int // first line referencing a named label
}

func newAssembler(retired map[vm.Label]bool) *assembler {
	b := NewBuilder()
	for key := range retired {
		b.Reserve(key)
	}
	return &assembler{
		b:       b,
		named:   make(map[string]vm.Label),
		defined: make(map[string]bool),
		used:    make(map[string]int),
	}
}

func (a *assembler) assemble(file *File) error {
	// Raw keys are reserved first so that generated keys never alias them.
	for _, line := range file.Lines {
		if line.Label != nil && isRaw(*line.Label) {
			key, err := rawKey(*line.Label)
			if err != nil {
				return fmt.Errorf("line %d: %w", line.Pos.Line, err)
			}
			a.b.Reserve(key)
		}
		if in := line.Instr; in != nil && in.Arg != nil && in.Arg.Raw != nil && !strings.EqualFold(in.Mnemonic, "raw") {
			if key, err := rawKey(*in.Arg.Raw); err == nil {
				a.b.Reserve(key)
			}
		}
	}

	for _, line := range file.Lines {
		if line.Label != nil {
			if err := a.define(*line.Label); err != nil {
				return fmt.Errorf("line %d: %w", line.Pos.Line, err)
			}
		}
		if line.Instr != nil {
			if err := a.instruction(line.Instr); err != nil {
				return fmt.Errorf("line %d: %w", line.Instr.Pos.Line, err)
			}
		}
	}

	var missing string
	for name, line := range a.used {
		if !a.defined[name] && (missing == "" || line < a.used[missing]) {
			missing = name
		}
	}
	if missing != "" {
		return fmt.Errorf("line %d: undefined label: %s", a.used[missing], missing)
	}
	return nil
}

func (a *assembler) define(name string) error {
	if isRaw(name) {
		key, err := rawKey(name)
		if err != nil {
			return err
		}
		a.b.Mark(key)
		return nil
	}
	if a.defined[name] {
		return fmt.Errorf("label %s redefined", name)
	}
	a.defined[name] = true
	a.b.Mark(a.key(name))
	return nil
}

// key returns the generated key for a named label
func (a *assembler) key(name string) vm.Label {
	k, ok := a.named[name]
	if !ok {
		k = a.b.NewLabel()
		a.named[name] = k
	}
	return k
}

func (a *assembler) instruction(in *Instruction) error {
	mnemonic := strings.ToLower(in.Mnemonic)

	switch mnemonic {
	case "print":
		if in.Arg == nil || in.Arg.String == nil {
			return errors.New("print expects a string literal")
		}
		s, err := strconv.Unquote(*in.Arg.String)
		if err != nil {
			return fmt.Errorf("bad string %s: %w", *in.Arg.String, err)
		}
		a.b.PrintString(s)
		return nil

	case "raw":
		if in.Arg == nil || in.Arg.Raw == nil {
			return errors.New("raw expects a $STL operand")
		}
		a.b.Raw(symbols.MustParseVisible((*in.Arg.Raw)[1:])...)
		return nil
	}

	op, ok := vm.OpByMnemonic[mnemonic]
	if !ok {
		return fmt.Errorf("unknown instruction: %s", in.Mnemonic)
	}
	inst := vm.Lookup(op)

	switch inst.Param {
	case vm.ParamNone:
		if in.Arg != nil {
			return fmt.Errorf("%s takes no operand", mnemonic)
		}
		a.b.emit(op)

	case vm.ParamNumber:
		n, err := number(mnemonic, in.Arg)
		if err != nil {
			return err
		}
		a.b.emitNumber(op, n)

	case vm.ParamLabel:
		if in.Arg == nil {
			return fmt.Errorf("%s expects a label", mnemonic)
		}
		switch {
		case in.Arg.Raw != nil:
			key, err := rawKey(*in.Arg.Raw)
			if err != nil {
				return err
			}
			if op == vm.OpLabel {
				a.b.Mark(key)
			} else {
				a.b.emitLabel(op, key)
			}
		case in.Arg.Name != nil:
			name := *in.Arg.Name
			if op == vm.OpLabel {
				return a.define(name)
			}
			if _, seen := a.used[name]; !seen {
				a.used[name] = in.Pos.Line
			}
			a.b.emitLabel(op, a.key(name))
		default:
			return fmt.Errorf("%s expects a label", mnemonic)
		}
	}
	return nil
}

func number(mnemonic string, arg *Operand) (*big.Int, error) {
	switch {
	case arg == nil:
		return nil, fmt.Errorf("%s expects a number", mnemonic)
	case arg.Int != nil:
		n, ok := new(big.Int).SetString(*arg.Int, 10)
		if !ok {
			return nil, fmt.Errorf("bad number %s", *arg.Int)
		}
		return n, nil
	case arg.Char != nil:
		s, err := strconv.Unquote(*arg.Char)
		if err != nil || utf8.RuneCountInString(s) != 1 {
			return nil, fmt.Errorf("bad character literal %s", *arg.Char)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return big.NewInt(int64(r)), nil
	}
	return nil, fmt.Errorf("%s expects a number", mnemonic)
}

func isRaw(s string) bool { return strings.HasPrefix(s, "$") }

// rawKey converts $ST... to a label key with the implied LF.
func rawKey(s string) (vm.Label, error) {
	body := strings.ToUpper(strings.TrimPrefix(s, "$"))
	if strings.ContainsRune(body, 'L') {
		return "", fmt.Errorf("label key %s may only hold S and T", s)
	}
	prog := symbols.MustParseVisible(body + "L")
	return labelOf(prog), nil
}
