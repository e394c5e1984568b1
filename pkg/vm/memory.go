package vm

import (
	"math/big"

	"github.com/wsLang/ws/pkg/symbols"
)

// DefaultSlack is the number of heap cells after the loaded program.
const DefaultSlack = 65536

// Memory is the single address space shared by the program and the heap.
// Cells below the program length start out holding the program symbols
// (as their byte codes); the rest start at zero.
type Memory struct {
	cells []*big.Int // nil means zero
}

// NewMemory loads prog followed by slack zeroed cells.
func NewMemory(prog symbols.Program, slack int) *Memory {
	if slack < 0 {
		slack = 0
	}
	m := &Memory{cells: make([]*big.Int, len(prog)+slack)}
	for i, sym := range prog {
		m.cells[i] = big.NewInt(int64(sym))
	}
	return m
}

// Len returns the number of addressable cells.
func (m *Memory) Len() int { return len(m.cells) }

// InRange reports whether addr is a valid cell index.
func (m *Memory) InRange(addr int) bool {
	return addr >= 0 && addr < len(m.cells)
}

// Get returns a copy of the value at addr. Out-of-range reads yield zero;
// the VM checks bounds before calling.
func (m *Memory) Get(addr int) *big.Int {
	if !m.InRange(addr) || m.cells[addr] == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(m.cells[addr])
}

// Set stores a copy of v at addr. It reports false if addr is out of range.
func (m *Memory) Set(addr int, v *big.Int) bool {
	if !m.InRange(addr) {
		return false
	}
	m.cells[addr] = new(big.Int).Set(v)
	return true
}

// SymbolAt interprets the cell at i as a symbol. Cells holding anything
// other than the codes of space, tab or line-feed are not symbols.
func (m *Memory) SymbolAt(i int) (symbols.Symbol, bool) {
	if !m.InRange(i) {
		return 0, false
	}
	v := m.cells[i]
	if v == nil || !v.IsInt64() {
		return 0, false
	}
	n := v.Int64()
	if n < 0 || n > 0xFF || !symbols.IsSymbol(byte(n)) {
		return 0, false
	}
	return symbols.Symbol(n), true
}

// addrOf converts v to a cell index, reporting whether it is in range.
func (m *Memory) addrOf(v *big.Int) (int, bool) {
	if !v.IsInt64() {
		return 0, false
	}
	n := v.Int64()
	if n < 0 || n >= int64(len(m.cells)) {
		return 0, false
	}
	return int(n), true
}
