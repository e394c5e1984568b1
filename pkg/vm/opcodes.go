// Package vm implements the Whitespace virtual machine.
//
// Instruction encoding (S = space, T = tab, L = line-feed):
//
//	IMP   family            opcodes
//	S     stack             S n | LS | TS n | LT | LL | TL n
//	TS    arithmetic        SS | ST | SL | TS | TT
//	TT    heap              S | T
//	L     flow control      SS l | ST l | SL l | TS l | TT l | TL | LL
//	TL    I/O               SS | ST | TS | TT
//
// n is a signed number (sign, magnitude bits MSB first, L); l is a label
// (any S/T sequence, L). The patterns are prefix-free, so at most one
// instruction matches at a given position.
package vm

import "github.com/wsLang/ws/pkg/symbols"

// Op identifies an instruction.
type Op uint8

const (
	OpNone Op = iota

	// Stack manipulation (IMP: S)
	OpPush
	OpDup
	OpCopy
	OpSwap
	OpDiscard
	OpSlide

	// Arithmetic (IMP: TS)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	// Heap access (IMP: TT)
	OpStore
	OpRetrieve

	// Flow control (IMP: L)
	OpLabel
	OpCall
	OpJump
	OpJumpZero
	OpJumpNeg
	OpReturn
	OpEnd

	// I/O (IMP: TL)
	OpOutChar
	OpOutNum
	OpInChar
	OpInNum

	numOps
)

// Param is the kind of operand following an opcode.
type Param uint8

const (
	ParamNone Param = iota
	ParamNumber
	ParamLabel
)

func (p Param) String() string {
	switch p {
	case ParamNumber:
		return "number"
	case ParamLabel:
		return "label"
	}
	return "none"
}

// Instruction is one row of the instruction table.
type Instruction struct {
	Op          Op
	Name        string
	Mnemonic    string // assembler spelling
	Pattern     []symbols.Symbol
	Param       Param
	Description string
}

const (
	sp = symbols.Space
	tb = symbols.Tab
	lf = symbols.LF
)

// Instructions is indexed by Op. Entry 0 (OpNone) is unused.
var Instructions = [numOps]Instruction{
	OpPush:    {OpPush, "PUSH", "push", []symbols.Symbol{sp, sp}, ParamNumber, "Push the number onto the stack"},
	OpDup:     {OpDup, "SDUPLI", "dup", []symbols.Symbol{sp, lf, sp}, ParamNone, "Duplicate the top item on the stack"},
	OpCopy:    {OpCopy, "SCOPY", "copy", []symbols.Symbol{sp, tb, sp}, ParamNumber, "Copy the nth item on the stack onto the top of the stack"},
	OpSwap:    {OpSwap, "SSWAP", "swap", []symbols.Symbol{sp, lf, tb}, ParamNone, "Swap the top two items on the stack"},
	OpDiscard: {OpDiscard, "SDISCARD", "drop", []symbols.Symbol{sp, lf, lf}, ParamNone, "Discard the top item on the stack"},
	OpSlide:   {OpSlide, "SSLIDE", "slide", []symbols.Symbol{sp, tb, lf}, ParamNumber, "Slide n items off the stack, keeping the top item"},

	OpAdd: {OpAdd, "ADD", "add", []symbols.Symbol{tb, sp, sp, sp}, ParamNone, "Addition"},
	OpSub: {OpSub, "SUB", "sub", []symbols.Symbol{tb, sp, sp, tb}, ParamNone, "Subtraction"},
	OpMul: {OpMul, "MUL", "mul", []symbols.Symbol{tb, sp, sp, lf}, ParamNone, "Multiplication"},
	OpDiv: {OpDiv, "DIV", "div", []symbols.Symbol{tb, sp, tb, sp}, ParamNone, "Integer division"},
	OpMod: {OpMod, "MOD", "mod", []symbols.Symbol{tb, sp, tb, tb}, ParamNone, "Modulo"},

	OpStore:    {OpStore, "STORE", "store", []symbols.Symbol{tb, tb, sp}, ParamNone, "Store"},
	OpRetrieve: {OpRetrieve, "RETRIEVE", "retrieve", []symbols.Symbol{tb, tb, tb}, ParamNone, "Retrieve"},

	OpLabel:    {OpLabel, "LABEL", "label", []symbols.Symbol{lf, sp, sp}, ParamLabel, "Mark a location in the program"},
	OpCall:     {OpCall, "CALL", "call", []symbols.Symbol{lf, sp, tb}, ParamLabel, "Call a subroutine"},
	OpJump:     {OpJump, "JUMP", "jmp", []symbols.Symbol{lf, sp, lf}, ParamLabel, "Jump unconditionally to a label"},
	OpJumpZero: {OpJumpZero, "JUMP-ZERO", "jz", []symbols.Symbol{lf, tb, sp}, ParamLabel, "Jump to a label if the top of the stack is zero"},
	OpJumpNeg:  {OpJumpNeg, "JUMP-NEG", "jn", []symbols.Symbol{lf, tb, tb}, ParamLabel, "Jump to a label if the top of the stack is negative"},
	OpReturn:   {OpReturn, "RETURN", "ret", []symbols.Symbol{lf, tb, lf}, ParamNone, "End of subroutine"},
	OpEnd:      {OpEnd, "END", "end", []symbols.Symbol{lf, lf, lf}, ParamNone, "End the program"},

	OpOutChar: {OpOutChar, "OUT-CHAR", "outc", []symbols.Symbol{tb, lf, sp, sp}, ParamNone, "Output the character at the top of the stack"},
	OpOutNum:  {OpOutNum, "OUT-NUM", "outn", []symbols.Symbol{tb, lf, sp, tb}, ParamNone, "Output the number at the top of the stack"},
	OpInChar:  {OpInChar, "IN-CHAR", "inc", []symbols.Symbol{tb, lf, tb, sp}, ParamNone, "Read a character and place it in the location given by the top of the stack"},
	OpInNum:   {OpInNum, "IN-NUM", "inn", []symbols.Symbol{tb, lf, tb, tb}, ParamNone, "Read a number and place it in the location given by the top of the stack"},
}

// Lookup returns the table entry for op, or nil for OpNone and unknown values.
func Lookup(op Op) *Instruction {
	if op == OpNone || op >= numOps {
		return nil
	}
	return &Instructions[op]
}

// String returns the instruction name.
func (op Op) String() string {
	if inst := Lookup(op); inst != nil {
		return inst.Name
	}
	return "?"
}

// OpByMnemonic maps assembler spellings (including aliases) to opcodes.
var OpByMnemonic = map[string]Op{
	"push":     OpPush,
	"dup":      OpDup,
	"copy":     OpCopy,
	"pick":     OpCopy,
	"swap":     OpSwap,
	"drop":     OpDiscard,
	"discard":  OpDiscard,
	"slide":    OpSlide,
	"add":      OpAdd,
	"sub":      OpSub,
	"mul":      OpMul,
	"div":      OpDiv,
	"mod":      OpMod,
	"store":    OpStore,
	"retrieve": OpRetrieve,
	"load":     OpRetrieve,
	"label":    OpLabel,
	"mark":     OpLabel,
	"call":     OpCall,
	"jmp":      OpJump,
	"jump":     OpJump,
	"jz":       OpJumpZero,
	"jn":       OpJumpNeg,
	"ret":      OpReturn,
	"return":   OpReturn,
	"end":      OpEnd,
	"exit":     OpEnd,
	"outc":     OpOutChar,
	"printc":   OpOutChar,
	"outn":     OpOutNum,
	"printn":   OpOutNum,
	"inc":      OpInChar,
	"readc":    OpInChar,
	"inn":      OpInNum,
	"readn":    OpInNum,
}
