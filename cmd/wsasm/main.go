// wsasm assembles .wsa source into Whitespace programs, and disassembles
// Whitespace programs back into .wsa.
//
// Usage:
//
//	wsasm [-o out.ws] [-visible] prog.wsa
//	wsasm -d prog.ws
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/wsLang/ws/pkg/asm"
	"github.com/wsLang/ws/pkg/symbols"
)

var log = commonlog.GetLogger("ws")

func main() {
	out := flag.String("o", "", "Output file (default: input name with .ws extension, - for stdout)")
	disasm := flag.Bool("d", false, "Disassemble a whitespace program to .wsa")
	visible := flag.Bool("visible", false, "Write S/T/L letters instead of whitespace")
	verbose := flag.Int("verbosity", 0, "Log verbosity")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: wsasm [-o out] [-d] [-visible] <file>...")
		flag.PrintDefaults()
		os.Exit(1)
	}
	commonlog.Configure(*verbose, nil)

	for _, path := range flag.Args() {
		var err error
		if *disasm {
			err = disassembleFile(path, *out)
		} else {
			err = assembleFile(path, *out, *visible)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func assembleFile(path, out string, visible bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	prog, err := asm.Assemble(string(data))
	if err != nil {
		return fmt.Errorf("assembly error in %s: %w", path, err)
	}

	code := prog.Bytes()
	if visible {
		code = []byte(symbols.Visible(prog) + "\n")
	}
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ".ws"
	}
	if err := write(out, code); err != nil {
		return err
	}
	log.Infof("%s: %s symbols -> %s", path, humanize.Comma(int64(len(prog))), out)
	return nil
}

func disassembleFile(path, out string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	prog, stats, err := symbols.Load(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("%s: %s, %s symbols", path, humanize.Bytes(uint64(stats.Bytes)), humanize.Comma(int64(stats.Symbols)))

	if out == "" {
		out = "-"
	}
	return write(out, []byte(asm.Disassemble(prog)))
}

func write(out string, data []byte) error {
	if out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}
