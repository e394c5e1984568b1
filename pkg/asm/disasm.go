package asm

import (
	"fmt"
	"strings"

	"github.com/wsLang/ws/pkg/symbols"
	"github.com/wsLang/ws/pkg/vm"
)

// Disassemble renders prog as .wsa source, one instruction per line with
// its address in a trailing comment. Symbols that do not start an
// instruction, and operands that would not re-encode to the same symbols,
// are kept as raw lines, so Assemble(Disassemble(p)) reproduces p.
func Disassemble(prog symbols.Program) string {
	var sb strings.Builder
	rawStart := -1

	flush := func(end int) {
		if rawStart >= 0 {
			line(&sb, rawStart, rawText(prog, rawStart, end))
			rawStart = -1
		}
	}

	for ip := 0; ip < len(prog); {
		text, n := decodeAt(prog, ip)
		if n == 0 {
			if rawStart < 0 {
				rawStart = ip
			}
			ip++
			continue
		}
		flush(ip)
		line(&sb, ip, text)
		ip += n
	}
	flush(len(prog))
	return sb.String()
}

func line(sb *strings.Builder, addr int, text string) {
	fmt.Fprintf(sb, "%-24s ; %d\n", text, addr)
}

// decodeAt returns the source text of the instruction at ip and its
// length in symbols, or 0 if it must be kept raw.
func decodeAt(prog symbols.Program, ip int) (string, int) {
	inst := vm.Identify(prog, ip)
	if inst == nil {
		return "", 0
	}
	at := ip + len(inst.Pattern)

	switch inst.Param {
	case vm.ParamNumber:
		n, length, err := vm.DecodeNumber(prog, at)
		if err != nil {
			return "", 0
		}
		// SL, SSSTL and friends decode fine but re-encode differently
		if symbols.Visible(vm.EncodeNumber(n)) != symbols.Visible(prog[at:at+length]) {
			return rawText(prog, ip, at+length), at + length - ip
		}
		return inst.Mnemonic + " " + n.String(), at + length - ip

	case vm.ParamLabel:
		key, length, err := vm.DecodeLabel(prog, at)
		if err != nil {
			return "", 0
		}
		v := key.Visible()
		return inst.Mnemonic + " $" + v[:len(v)-1], at + length - ip
	}
	return inst.Mnemonic, len(inst.Pattern)
}

func rawText(prog symbols.Program, from, to int) string {
	return "raw $" + symbols.Visible(prog[from:to])
}
