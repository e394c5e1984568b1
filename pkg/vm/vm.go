package vm

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/wsLang/ws/pkg/symbols"
)

// State is the engine state.
type State int

const (
	Running State = iota
	Halted
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Halted:
		return "HALTED"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config is fixed for the lifetime of a VM.
type Config struct {
	// MemorySlack is the number of heap cells after the program.
	MemorySlack int

	Input      io.Reader
	Output     io.Writer
	Prompt     io.Writer // receives PromptText on malformed number input
	PromptText string

	// Hooks run after every executed instruction, in order.
	Hooks []Hook
}

// DefaultConfig uses the standard streams and the default heap size.
func DefaultConfig() Config {
	return Config{
		MemorySlack: DefaultSlack,
		Input:       os.Stdin,
		Output:      os.Stdout,
		Prompt:      os.Stderr,
		PromptText:  DefaultPrompt,
	}
}

// Step describes one executed instruction. It is passed to hooks.
type Step struct {
	IP     int // address of the opcode
	Inst   *Instruction
	Number *big.Int // ParamNumber operand
	Label  Label    // ParamLabel operand
	Length int      // operand length in cells
	NextIP int
	VM     *VM
}

// Operand renders the operand for traces. Labels show their resolved
// address, or <???> if they have none.
func (s *Step) Operand() string {
	switch s.Inst.Param {
	case ParamNumber:
		return s.Number.String()
	case ParamLabel:
		if addr, ok := s.VM.labels[s.Label]; ok {
			return fmt.Sprintf("%d", addr)
		}
		return "<???>"
	}
	return ""
}

// Hook observes execution. A non-nil error stops the VM and is returned
// from Step/Run unchanged.
type Hook interface {
	OnStep(s *Step) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(s *Step) error

func (f HookFunc) OnStep(s *Step) error { return f(s) }

// VM is the Whitespace execution engine.
type VM struct {
	cfg     Config
	io      *IO
	mem     *Memory
	progLen int
	labels  map[Label]int

	stack []*big.Int
	calls []int

	ip    int
	state State
	err   error
	steps uint64
}

// New loads prog into a fresh memory and resolves its labels.
func New(prog symbols.Program, cfg Config) *VM {
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	mem := NewMemory(prog, cfg.MemorySlack)
	return &VM{
		cfg:     cfg,
		io:      NewIO(cfg.Input, cfg.Output, cfg.Prompt, cfg.PromptText),
		mem:     mem,
		progLen: len(prog),
		labels:  ResolveLabels(mem, len(prog)),
		stack:   make([]*big.Int, 0, 64),
	}
}

// Run executes until END or a failure.
func (vm *VM) Run() error {
	for vm.state == Running {
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return vm.err
}

// Step executes one instruction, skipping over positions where no
// instruction matches.
func (vm *VM) Step() error {
	switch vm.state {
	case Halted:
		return nil
	case Failed:
		return vm.err
	}

	var inst *Instruction
	for {
		if vm.ip >= vm.mem.Len() {
			return vm.fail(errorf(ErrEndOfMemory, vm.ip, "execution ran past the end of memory without END"))
		}
		if inst = Identify(vm.mem, vm.ip); inst != nil {
			break
		}
		vm.ip++
	}

	st := &Step{IP: vm.ip, Inst: inst, VM: vm}
	at := vm.ip + len(inst.Pattern)
	switch inst.Param {
	case ParamNumber:
		n, length, err := DecodeNumber(vm.mem, at)
		if err != nil {
			return vm.fail(&Error{Kind: ErrMalformedOperand, IP: st.IP, Msg: inst.Name + " number", Err: err})
		}
		st.Number, st.Length = n, length
	case ParamLabel:
		key, length, err := DecodeLabel(vm.mem, at)
		if err != nil {
			return vm.fail(&Error{Kind: ErrMalformedOperand, IP: st.IP, Msg: inst.Name + " label", Err: err})
		}
		st.Label, st.Length = key, length
	}

	next, err := vm.exec(st, at+st.Length)
	if err != nil {
		return vm.fail(err)
	}
	st.NextIP = next
	vm.ip = next
	vm.steps++

	for _, h := range vm.cfg.Hooks {
		if err := h.OnStep(st); err != nil {
			return vm.fail(err)
		}
	}
	return nil
}

func (vm *VM) fail(err error) error {
	vm.state = Failed
	vm.err = err
	return err
}

// exec applies the effect of one decoded instruction and returns the next
// ip. Every failure is detected before the stack or memory is touched.
func (vm *VM) exec(st *Step, next int) (int, error) {
	ip := st.IP
	name := st.Inst.Name

	switch st.Inst.Op {
	// *** Stack manipulation ***
	case OpPush:
		vm.push(new(big.Int).Set(st.Number))

	case OpDup:
		if err := vm.need(ip, name, 1); err != nil {
			return 0, err
		}
		vm.push(new(big.Int).Set(vm.peek(0)))

	case OpCopy:
		k, err := vm.depth(ip, name, st.Number)
		if err != nil {
			return 0, err
		}
		vm.push(new(big.Int).Set(vm.peek(k)))

	case OpSwap:
		if err := vm.need(ip, name, 2); err != nil {
			return 0, err
		}
		n := len(vm.stack)
		vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]

	case OpDiscard:
		if len(vm.stack) > 0 {
			vm.pop()
		}

	case OpSlide:
		k, err := vm.depth(ip, name, st.Number)
		if err != nil {
			return 0, err
		}
		top := vm.pop()
		vm.stack = vm.stack[:len(vm.stack)-k]
		vm.push(top)

	// *** Arithmetic ***
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		if err := vm.arith(ip, st.Inst); err != nil {
			return 0, err
		}

	// *** Heap access ***
	case OpStore:
		if err := vm.need(ip, name, 2); err != nil {
			return 0, err
		}
		addr, err := vm.address(ip, name, vm.peek(1))
		if err != nil {
			return 0, err
		}
		value := vm.pop()
		vm.pop()
		vm.mem.Set(addr, value)

	case OpRetrieve:
		if err := vm.need(ip, name, 1); err != nil {
			return 0, err
		}
		addr, err := vm.address(ip, name, vm.peek(0))
		if err != nil {
			return 0, err
		}
		vm.pop()
		vm.push(vm.mem.Get(addr))

	// *** Flow control ***
	case OpLabel:
		// resolved before execution

	case OpCall:
		target, err := vm.target(ip, name, st.Label)
		if err != nil {
			return 0, err
		}
		vm.calls = append(vm.calls, next)
		return target, nil

	case OpJump:
		return vm.target(ip, name, st.Label)

	case OpJumpZero, OpJumpNeg:
		if err := vm.need(ip, name, 1); err != nil {
			return 0, err
		}
		taken := vm.peek(0).Sign() == 0
		if st.Inst.Op == OpJumpNeg {
			taken = vm.peek(0).Sign() < 0
		}
		if !taken {
			vm.pop()
			return next, nil
		}
		target, err := vm.target(ip, name, st.Label)
		if err != nil {
			return 0, err
		}
		vm.pop()
		return target, nil

	case OpReturn:
		if len(vm.calls) == 0 {
			return 0, errorf(ErrEmptyCallStack, ip, "%s with empty call stack", name)
		}
		ret := vm.calls[len(vm.calls)-1]
		vm.calls = vm.calls[:len(vm.calls)-1]
		return ret, nil

	case OpEnd:
		vm.state = Halted

	// *** I/O ***
	case OpOutChar:
		if err := vm.need(ip, name, 1); err != nil {
			return 0, err
		}
		v := vm.peek(0)
		if !v.IsInt64() || !utf8.ValidRune(rune(v.Int64())) || int64(rune(v.Int64())) != v.Int64() {
			return 0, errorf(ErrInvalidOperand, ip, "%s with %s, not a character", name, v)
		}
		if err := vm.io.WriteChar(rune(v.Int64())); err != nil {
			return 0, &Error{Kind: ErrIO, IP: ip, Msg: name, Err: err}
		}
		vm.pop()

	case OpOutNum:
		if err := vm.need(ip, name, 1); err != nil {
			return 0, err
		}
		if err := vm.io.WriteNumber(vm.peek(0)); err != nil {
			return 0, &Error{Kind: ErrIO, IP: ip, Msg: name, Err: err}
		}
		vm.pop()

	case OpInChar:
		if err := vm.need(ip, name, 1); err != nil {
			return 0, err
		}
		addr, err := vm.address(ip, name, vm.peek(0))
		if err != nil {
			return 0, err
		}
		r, err := vm.io.ReadChar()
		if err != nil {
			return 0, &Error{Kind: ErrIO, IP: ip, Msg: name, Err: err}
		}
		vm.pop()
		vm.mem.Set(addr, big.NewInt(int64(r)))

	case OpInNum:
		if err := vm.need(ip, name, 1); err != nil {
			return 0, err
		}
		addr, err := vm.address(ip, name, vm.peek(0))
		if err != nil {
			return 0, err
		}
		n, err := vm.io.ReadNumber()
		if err != nil {
			return 0, &Error{Kind: ErrIO, IP: ip, Msg: name, Err: err}
		}
		vm.pop()
		vm.mem.Set(addr, n)

	default:
		return 0, errorf(ErrInvalidOperand, ip, "no handler for %s", name)
	}

	return next, nil
}

// arith pops b then a and pushes a op b. Division and modulo round
// toward negative infinity; the remainder takes the sign of b.
func (vm *VM) arith(ip int, inst *Instruction) error {
	if err := vm.need(ip, inst.Name, 2); err != nil {
		return err
	}
	b, a := vm.peek(0), vm.peek(1)
	r := new(big.Int)
	switch inst.Op {
	case OpAdd:
		r.Add(a, b)
	case OpSub:
		r.Sub(a, b)
	case OpMul:
		r.Mul(a, b)
	case OpDiv, OpMod:
		if b.Sign() == 0 {
			return errorf(ErrArithmetic, ip, "%s by zero", inst.Name)
		}
		q, m := floorDivMod(a, b)
		if inst.Op == OpDiv {
			r = q
		} else {
			r = m
		}
	}
	vm.pop()
	vm.pop()
	vm.push(r)
	return nil
}

func floorDivMod(a, b *big.Int) (*big.Int, *big.Int) {
	q, m := new(big.Int).QuoRem(a, b, new(big.Int))
	if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
		m.Add(m, b)
	}
	return q, m
}

func (vm *VM) need(ip int, name string, n int) error {
	if len(vm.stack) < n {
		if n == 1 {
			return errorf(ErrStackUnderflow, ip, "%s with empty stack", name)
		}
		return errorf(ErrStackUnderflow, ip, "%s with less than %d elements", name, n)
	}
	return nil
}

// depth validates a COPY/SLIDE argument: the stack must hold at least n+1
// items.
func (vm *VM) depth(ip int, name string, n *big.Int) (int, error) {
	if n.Sign() < 0 {
		return 0, errorf(ErrInvalidOperand, ip, "%s with negative argument %s", name, n)
	}
	if len(vm.stack) == 0 {
		return 0, errorf(ErrStackUnderflow, ip, "%s with empty stack", name)
	}
	if !n.IsInt64() || n.Int64() >= int64(len(vm.stack)) {
		return 0, errorf(ErrInvalidOperand, ip, "%s argument %s out of range for %d elements", name, n, len(vm.stack))
	}
	return int(n.Int64()), nil
}

func (vm *VM) address(ip int, name string, v *big.Int) (int, error) {
	addr, ok := vm.mem.addrOf(v)
	if !ok {
		return 0, errorf(ErrMemoryBounds, ip, "%s address %s outside memory [0, %d)", name, v, vm.mem.Len())
	}
	return addr, nil
}

func (vm *VM) target(ip int, name string, key Label) (int, error) {
	addr, ok := vm.labels[key]
	if !ok {
		return 0, errorf(ErrUnknownLabel, ip, "%s to unknown label %s", name, key)
	}
	return addr, nil
}

func (vm *VM) push(v *big.Int) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() *big.Int {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// peek returns the item k positions below the top.
func (vm *VM) peek(k int) *big.Int { return vm.stack[len(vm.stack)-1-k] }

// State returns the engine state.
func (vm *VM) State() State { return vm.state }

// Err returns the failure that stopped the VM, if any.
func (vm *VM) Err() error { return vm.err }

// IP returns the instruction pointer.
func (vm *VM) IP() int { return vm.ip }

// Steps returns the number of instructions executed.
func (vm *VM) Steps() uint64 { return vm.steps }

// ProgramLen returns the number of symbols loaded.
func (vm *VM) ProgramLen() int { return vm.progLen }

// Memory exposes the address space.
func (vm *VM) Memory() *Memory { return vm.mem }

// Stack returns a copy of the operand stack, bottom first.
func (vm *VM) Stack() []*big.Int {
	out := make([]*big.Int, len(vm.stack))
	for i, v := range vm.stack {
		out[i] = new(big.Int).Set(v)
	}
	return out
}

// StackDepth returns the number of items on the operand stack.
func (vm *VM) StackDepth() int { return len(vm.stack) }

// CallDepth returns the number of pending returns.
func (vm *VM) CallDepth() int { return len(vm.calls) }

// Top returns a copy of the top of the stack, or nil if it is empty.
func (vm *VM) Top() *big.Int {
	if len(vm.stack) == 0 {
		return nil
	}
	return new(big.Int).Set(vm.peek(0))
}

// CallStack returns a copy of the pending return addresses.
func (vm *VM) CallStack() []int {
	return append([]int(nil), vm.calls...)
}

// Labels returns a copy of the label table.
func (vm *VM) Labels() map[Label]int {
	out := make(map[Label]int, len(vm.labels))
	for k, v := range vm.labels {
		out[k] = v
	}
	return out
}

// StackDump formats the operand stack, bottom first.
func (vm *VM) StackDump() string {
	parts := make([]string, len(vm.stack))
	for i, v := range vm.stack {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// CallStackDump formats the call stack, oldest first.
func (vm *VM) CallStackDump() string {
	parts := make([]string, len(vm.calls))
	for i, v := range vm.calls {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
