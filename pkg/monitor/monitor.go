// Package monitor provides the interactive and diagnostic hooks of the
// interpreter: instruction tracing, stack dumps and single stepping.
package monitor

import (
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/wsLang/ws/pkg/vm"
)

var log = commonlog.GetLogger("ws.monitor")

// FormatStep renders an executed instruction as
//
//	ip<TAB>NAME operand<TAB>;description
//
// Label operands show the resolved address, or <???>.
func FormatStep(st *vm.Step) string {
	if st.Inst.Param == vm.ParamNone {
		return fmt.Sprintf("%d\t%s\t;%s", st.IP, st.Inst.Name, st.Inst.Description)
	}
	return fmt.Sprintf("%d\t%s %s\t;%s", st.IP, st.Inst.Name, st.Operand(), st.Inst.Description)
}

// Tracer logs every executed instruction at info level.
type Tracer struct {
	log commonlog.Logger
}

// NewTracer creates a tracer writing to logger, or to the ws.monitor
// logger if logger is nil.
func NewTracer(logger commonlog.Logger) *Tracer {
	if logger == nil {
		logger = log
	}
	return &Tracer{log: logger}
}

// OnStep implements vm.Hook.
func (t *Tracer) OnStep(st *vm.Step) error {
	t.log.Info(FormatStep(st))
	return nil
}

// StackDumper prints both stacks after every instruction.
type StackDumper struct {
	w io.Writer
}

// NewStackDumper creates a dumper writing to w.
func NewStackDumper(w io.Writer) *StackDumper {
	return &StackDumper{w: w}
}

// OnStep implements vm.Hook.
func (d *StackDumper) OnStep(st *vm.Step) error {
	_, err := fmt.Fprintf(d.w, "Stack: %s\nCall stack: %s\n", st.VM.StackDump(), st.VM.CallStackDump())
	return err
}
