package asm

import (
	"strings"
	"testing"

	"github.com/wsLang/ws/pkg/symbols"
)

func TestDisassembleListing(t *testing.T) {
	prog := mustAssemble(t, "push 5\n$ST:\ndup\njz $ST\nend")
	got := Disassemble(prog)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	expected := []struct {
		text string
		addr string
	}{
		{"push 5", "; 0"},
		{"label $ST", "; 7"},
		{"dup", "; 13"},
		{"jz $ST", "; 16"},
		{"end", "; 22"},
	}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(expected), len(lines), got)
	}
	for i, e := range expected {
		if !strings.HasPrefix(lines[i], e.text+" ") || !strings.HasSuffix(lines[i], e.addr) {
			t.Errorf("Line %d: expected %q ... %q, got %q", i, e.text, e.addr, lines[i])
		}
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  string // visible symbols
	}{
		{"empty", ""},
		{"junk", "TTL"},
		{"junk-then-end", "TTLLLL"},
		{"non-canonical-zero", "SSSL" + "LLL"},
		{"leading-zero-bits", "SSSSSTL"},
		{"bare-lf-label", "LSSL" + "LSLL"},
		{"unterminated-push", "SSSTT"},
		{"unterminated-label", "LSTST"},
		{"mixed", "SSSTLTLSTTTLLSSTTLLLL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := symbols.MustParseVisible(tt.src)
			text := Disassemble(prog)
			back, err := Assemble(text)
			if err != nil {
				t.Fatalf("Assemble error: %v\n%s", err, text)
			}
			if got := symbols.Visible(back); got != tt.src {
				t.Errorf("Expected %s, got %s\n%s", tt.src, got, text)
			}
		})
	}
}

func TestDisassembleAssembledSource(t *testing.T) {
	src := `
	push 3
loop:
	dup
	outn
	push 1
	sub
	dup
	jz done
	jmp loop
done:
	print "ok"
	end`
	prog := mustAssemble(t, src)
	back := mustAssemble(t, Disassemble(prog))
	if symbols.Visible(back) != symbols.Visible(prog) {
		t.Errorf("Round trip changed the program")
	}
	if out := run(t, back, ""); out != "321ok" {
		t.Errorf("Expected 321ok, got %q", out)
	}
}
