package asm

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/wsLang/ws/pkg/symbols"
	"github.com/wsLang/ws/pkg/vm"
)

// DefaultHeapBase is the first address handed out by Alloc. Programs
// built with heap allocations must stay shorter than this.
const DefaultHeapBase = 1 << 15

// Builder generates Whitespace code one instruction at a time
type Builder struct {
	// HeapBase is the first cell Alloc returns. The heap shares its
	// address space with the program, so it must lie past the code.
	HeapBase int

	code      symbols.Program
	nextLabel int64
	heap      int
	reserved  map[vm.Label]bool
	generated map[vm.Label]bool
	marks     map[vm.Label]int
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{
		HeapBase:  DefaultHeapBase,
		code:      make(symbols.Program, 0, 256),
		reserved:  make(map[vm.Label]bool),
		generated: make(map[vm.Label]bool),
		marks:     make(map[vm.Label]int),
	}
}

// Reserve marks keys that NewLabel must never return.
func (b *Builder) Reserve(keys ...vm.Label) {
	for _, k := range keys {
		b.reserved[k] = true
	}
}

// NewLabel returns a fresh label key. Keys are the number encodings of a
// counter, skipping any reserved key.
func (b *Builder) NewLabel() vm.Label {
	for {
		k := labelKey(b.nextLabel)
		b.nextLabel++
		if !b.reserved[k] {
			b.reserved[k] = true
			b.generated[k] = true
			return k
		}
	}
}

func labelKey(n int64) vm.Label {
	return labelOf(vm.EncodeNumber(big.NewInt(n)))
}

func labelOf(seq []symbols.Symbol) vm.Label {
	buf := make([]byte, len(seq))
	for i, s := range seq {
		buf[i] = byte(s)
	}
	return vm.Label(buf)
}

// Alloc reserves n heap cells and returns the address of the first one.
func (b *Builder) Alloc(n int) int {
	addr := b.HeapBase + b.heap
	b.heap += n
	return addr
}

// Len is the number of symbols emitted so far.
func (b *Builder) Len() int { return len(b.code) }

// Shadowed lists the NewLabel keys that resolve somewhere other than
// their Mark. The resolver records the first L S S sequence at any
// offset, so a key can be captured by symbols inside an earlier operand.
func (b *Builder) Shadowed() []vm.Label {
	var out []vm.Label
	resolved := vm.ResolveLabels(b.code, len(b.code))
	for key, at := range b.marks {
		if b.generated[key] && resolved[key] != at {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return b.marks[out[i]] < b.marks[out[j]] })
	return out
}

// Program returns the generated code. It fails when heap cells were
// allocated inside the code or a generated label is shadowed.
func (b *Builder) Program() (symbols.Program, error) {
	if b.heap > 0 && len(b.code) > b.HeapBase {
		return nil, fmt.Errorf("program of %d symbols overlaps heap at %d", len(b.code), b.HeapBase)
	}
	if shadowed := b.Shadowed(); len(shadowed) > 0 {
		return nil, fmt.Errorf("label %s is shadowed by an earlier definition", shadowed[0])
	}
	return append(symbols.Program(nil), b.code...), nil
}

// Raw appends symbols verbatim.
func (b *Builder) Raw(seq ...symbols.Symbol) {
	b.code = append(b.code, seq...)
}

func (b *Builder) emit(op vm.Op) {
	b.code = append(b.code, vm.Lookup(op).Pattern...)
}

func (b *Builder) emitNumber(op vm.Op, n *big.Int) {
	b.emit(op)
	b.code = append(b.code, vm.EncodeNumber(n)...)
}

func (b *Builder) emitLabel(op vm.Op, key vm.Label) {
	b.emit(op)
	b.code = append(b.code, key.Symbols()...)
}

// Stack manipulation

func (b *Builder) Push(n *big.Int) { b.emitNumber(vm.OpPush, n) }
func (b *Builder) PushInt(n int64) { b.Push(big.NewInt(n)) }
func (b *Builder) Dup() { b.emit(vm.OpDup) }
func (b *Builder) Copy(n int64) { b.emitNumber(vm.OpCopy, big.NewInt(n)) }
func (b *Builder) Swap() { b.emit(vm.OpSwap) }
func (b *Builder) Drop() { b.emit(vm.OpDiscard) }
func (b *Builder) Slide(n int64) { b.emitNumber(vm.OpSlide, big.NewInt(n)) }

// Arithmetic

func (b *Builder) Add() { b.emit(vm.OpAdd) }
func (b *Builder) Sub() { b.emit(vm.OpSub) }
func (b *Builder) Mul() { b.emit(vm.OpMul) }
func (b *Builder) Div() { b.emit(vm.OpDiv) }
func (b *Builder) Mod() { b.emit(vm.OpMod) }

// Heap access

func (b *Builder) Store() { b.emit(vm.OpStore) }
func (b *Builder) Retrieve() { b.emit(vm.OpRetrieve) }

// StoreAt stores the top of the stack at addr.
func (b *Builder) StoreAt(addr int) {
	b.PushInt(int64(addr))
	b.Swap()
	b.Store()
}

// RetrieveFrom pushes the value held at addr.
func (b *Builder) RetrieveFrom(addr int) {
	b.PushInt(int64(addr))
	b.Retrieve()
}

// Flow control

// Mark defines key at the current position.
func (b *Builder) Mark(key vm.Label) {
	b.emitLabel(vm.OpLabel, key)
	if _, ok := b.marks[key]; !ok {
		b.marks[key] = len(b.code)
	}
}

func (b *Builder) Call(key vm.Label) { b.emitLabel(vm.OpCall, key) }
func (b *Builder) Jump(key vm.Label) { b.emitLabel(vm.OpJump, key) }
func (b *Builder) JumpZero(key vm.Label) { b.emitLabel(vm.OpJumpZero, key) }
func (b *Builder) JumpNeg(key vm.Label) { b.emitLabel(vm.OpJumpNeg, key) }
func (b *Builder) Return() { b.emit(vm.OpReturn) }
func (b *Builder) End() { b.emit(vm.OpEnd) }

// I/O

func (b *Builder) OutChar() { b.emit(vm.OpOutChar) }
func (b *Builder) OutNum() { b.emit(vm.OpOutNum) }
func (b *Builder) InChar() { b.emit(vm.OpInChar) }
func (b *Builder) InNum() { b.emit(vm.OpInNum) }

// PrintString prints s one character at a time.
func (b *Builder) PrintString(s string) {
	for _, r := range s {
		b.PushInt(int64(r))
		b.OutChar()
	}
}

// Loop emits body count times using a counter cell on the heap. The body
// always runs at least once.
func (b *Builder) Loop(count int64, body func()) {
	counter := b.Alloc(1)
	top := b.NewLabel()
	b.PushInt(-count)
	b.StoreAt(counter)
	b.Mark(top)
	body()
	b.RetrieveFrom(counter)
	b.PushInt(1)
	b.Add()
	b.Dup()
	b.StoreAt(counter)
	b.JumpNeg(top)
}
