package monitor

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/wsLang/ws/pkg/asm"
	"github.com/wsLang/ws/pkg/vm"
)

// Helper to run .wsa source with the given hooks
func runWith(t *testing.T, src string, hooks ...vm.Hook) (*vm.VM, error) {
	t.Helper()
	prog, err := asm.Assemble(src)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	cfg := vm.DefaultConfig()
	cfg.Input = strings.NewReader("")
	cfg.Output = io.Discard
	cfg.Prompt = io.Discard
	cfg.Hooks = hooks
	m := vm.New(prog, cfg)
	return m, m.Run()
}

func TestFormatStep(t *testing.T) {
	var lines []string
	collect := vm.HookFunc(func(st *vm.Step) error {
		lines = append(lines, FormatStep(st))
		return nil
	})
	if _, err := runWith(t, "push -5\njmp $T\n$T:\nend", collect); err != nil {
		t.Fatalf("Runtime error: %v", err)
	}
	expected := []string{
		"0\tPUSH -5\t;Push the number onto the stack",
		"7\tJUMP 17\t;Jump unconditionally to a label",
		"17\tEND\t;End the program",
	}
	if strings.Join(lines, "\n") != strings.Join(expected, "\n") {
		t.Errorf("Expected\n%s\ngot\n%s", strings.Join(expected, "\n"), strings.Join(lines, "\n"))
	}
}

func TestFormatStepUnknownLabel(t *testing.T) {
	var jz string
	collect := vm.HookFunc(func(st *vm.Step) error {
		if st.Inst.Op == vm.OpJumpZero {
			jz = FormatStep(st)
		}
		return nil
	})
	// not taken, so the missing label is not an error
	if _, err := runWith(t, "push 1\njz $TT\nend", collect); err != nil {
		t.Fatalf("Runtime error: %v", err)
	}
	if !strings.Contains(jz, "JUMP-ZERO <???>") {
		t.Errorf("Expected unresolved label marker, got %q", jz)
	}
}

func TestTracerRuns(t *testing.T) {
	if _, err := runWith(t, "push 1\noutn\nend", NewTracer(nil)); err != nil {
		t.Errorf("Tracer stopped execution: %v", err)
	}
}

func TestTracerLeavesProgramOutputAlone(t *testing.T) {
	prog, err := asm.Assemble("push 1\noutn\nend")
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	var out bytes.Buffer
	cfg := vm.DefaultConfig()
	cfg.Input = strings.NewReader("")
	cfg.Output = &out
	cfg.Hooks = []vm.Hook{NewTracer(nil)}
	if err := vm.New(prog, cfg).Run(); err != nil {
		t.Fatalf("Runtime error: %v", err)
	}
	if out.String() != "1" {
		t.Errorf("Expected only program output, got %q", out.String())
	}
}

func TestStackDumper(t *testing.T) {
	var out bytes.Buffer
	if _, err := runWith(t, "push 1\npush 2\ncall $S\nend\n$S:\nret", NewStackDumper(&out)); err != nil {
		t.Fatalf("Runtime error: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 10 {
		t.Fatalf("Expected 10 lines for 5 steps, got %d:\n%s", len(lines), out.String())
	}
	if lines[0] != "Stack: [1]" || lines[1] != "Call stack: []" {
		t.Errorf("Unexpected first dump %q / %q", lines[0], lines[1])
	}
	if lines[4] != "Stack: [1, 2]" || !strings.HasPrefix(lines[5], "Call stack: [") || lines[5] == "Call stack: []" {
		t.Errorf("Expected a pending return after CALL, got %q / %q", lines[4], lines[5])
	}
	if lines[7] != "Call stack: []" {
		t.Errorf("Expected empty call stack after RET, got %q", lines[7])
	}
}

const subroutine = `
	call sub
	end
sub:
	push 1
	drop
	ret
`

func TestStepperPausesEveryInstruction(t *testing.T) {
	// CALL, PUSH, DROP and RET pause; END does not.
	var out bytes.Buffer
	s := NewStepper(strings.NewReader("x\nx\nx\nx\nq\n"), &out)
	if _, err := runWith(t, subroutine, s); err != nil {
		t.Fatalf("Runtime error: %v", err)
	}
	if strings.Count(out.String(), "CALL instruction") != 1 {
		t.Errorf("Expected one CALL notice, got %q", out.String())
	}
	if strings.Contains(out.String(), "End of subroutine") {
		t.Errorf("Did not step over, got %q", out.String())
	}

	s = NewStepper(strings.NewReader("x\nx\nq\n"), io.Discard)
	m, err := runWith(t, subroutine, s)
	if err != ErrInterrupted {
		t.Fatalf("Expected ErrInterrupted, got %v", err)
	}
	if m.State() != vm.Failed {
		t.Errorf("Expected FAILED, got %s", m.State())
	}
}

func TestStepperStepsOverCall(t *testing.T) {
	// s at the CALL skips PUSH and DROP; RET reaches the return address
	// and pauses again. A third pause would quit.
	var out bytes.Buffer
	s := NewStepper(strings.NewReader("s\n\nq\n"), &out)
	if _, err := runWith(t, subroutine, s); err != nil {
		t.Fatalf("Runtime error: %v", err)
	}
	if strings.Count(out.String(), "[INTERPRETER] End of subroutine") != 1 {
		t.Errorf("Expected one end-of-subroutine notice, got %q", out.String())
	}
}

func TestStepperStepsOverRecursiveCall(t *testing.T) {
	// down calls itself; stepping over the outer call must not stop at any
	// of the inner returns.
	src := `
	push 3
	call down
	end
down:
	push 1
	sub
	dup
	jz base
	call down
base:
	ret
`
	var out bytes.Buffer
	s := NewStepper(strings.NewReader("x\ns\n\nq\n"), &out)
	if _, err := runWith(t, src, s); err != nil {
		t.Fatalf("Runtime error: %v", err)
	}
	if strings.Count(out.String(), "End of subroutine") != 1 {
		t.Errorf("Expected one end-of-subroutine notice, got %q", out.String())
	}
}

func TestStepperRunsOnAtEOF(t *testing.T) {
	s := NewStepper(strings.NewReader(""), io.Discard)
	m, err := runWith(t, subroutine, s)
	if err != nil {
		t.Fatalf("Runtime error: %v", err)
	}
	if m.State() != vm.Halted {
		t.Errorf("Expected HALTED, got %s", m.State())
	}
}
