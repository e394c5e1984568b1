package monitor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wsLang/ws/pkg/vm"
)

// ErrInterrupted is returned by the Stepper when the user quits.
var ErrInterrupted = errors.New("interrupted by user")

const (
	keyCtrlC = 3
	keyCtrlD = 4
)

// Stepper pauses after every instruction until a key is pressed. After a
// CALL, pressing s or S runs the subroutine without pausing until it
// returns to the caller.
type Stepper struct {
	keys *bufio.Reader
	out  io.Writer
	fd   int // terminal put in raw mode while waiting, or -1

	// step-over state: the return address and the call depth it returns to
	returnTo    int
	returnDepth int
	disabled    bool
}

// NewStepper reads keys from keys and writes its messages to out. keys
// should be the same *bufio.Reader the VM takes its input from, so that
// both see one buffered stream.
func NewStepper(keys io.Reader, out io.Writer) *Stepper {
	return &Stepper{keys: bufio.NewReader(keys), out: out, fd: -1, returnTo: -1}
}

// UseTerminal switches f to raw mode while waiting for a key, so that a
// single key press is enough. It does nothing if f is not a terminal.
func (s *Stepper) UseTerminal(f *os.File) {
	if fd := int(f.Fd()); term.IsTerminal(fd) {
		s.fd = fd
	}
}

// OnStep implements vm.Hook.
func (s *Stepper) OnStep(st *vm.Step) error {
	if s.disabled || st.VM.State() != vm.Running {
		return nil
	}

	if s.returnTo >= 0 {
		if st.NextIP != s.returnTo || st.VM.CallDepth() != s.returnDepth {
			return nil
		}
		s.returnTo = -1
		fmt.Fprintln(s.out, "[INTERPRETER] End of subroutine")
	}

	isCall := st.Inst.Op == vm.OpCall
	if isCall {
		fmt.Fprintln(s.out, "[INTERPRETER] CALL instruction: press S to step over")
	}

	c, err := s.readKey()
	switch {
	case err == io.EOF:
		// nothing left to step with: run to completion
		log.Notice("no more input, pausing disabled")
		s.disabled = true
		return nil
	case err != nil:
		return err
	}

	switch c {
	case keyCtrlC, keyCtrlD, 'q', 'Q':
		return ErrInterrupted
	case 's', 'S':
		if isCall {
			s.returnTo = st.IP + len(st.Inst.Pattern) + st.Length
			s.returnDepth = st.VM.CallDepth() - 1
			log.Debugf("stepping over call at %d, returning to %d", st.IP, s.returnTo)
		}
	}
	return nil
}

// readKey returns one key press. Without a terminal, input is read a line
// at a time and the first character counts; an empty line is '\n'.
func (s *Stepper) readKey() (byte, error) {
	if s.fd >= 0 {
		state, err := term.MakeRaw(s.fd)
		if err != nil {
			return 0, fmt.Errorf("entering raw mode: %w", err)
		}
		defer term.Restore(s.fd, state)
		return s.keys.ReadByte()
	}

	line, err := s.keys.ReadString('\n')
	if line == "" && err != nil {
		return 0, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return '\n', nil
	}
	return line[0], nil
}
