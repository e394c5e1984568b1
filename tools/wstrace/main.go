// wstrace prints an execution trace recorded with ws -trace.
//
// Usage: wstrace [-n limit] [-summary] run.trace
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/wsLang/ws/pkg/trace"
)

func main() {
	limit := flag.Int("n", 0, "Print at most n records (0 = all)")
	summaryOnly := flag.Bool("summary", false, "Only print the header, summary and opcode counts")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: wstrace [-n limit] [-summary] <file.trace>")
		os.Exit(1)
	}

	if err := dump(flag.Arg(0), *limit, *summaryOnly); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dump(path string, limit int, summaryOnly bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	tr, err := trace.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer tr.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	h := tr.Header
	fmt.Fprintf(out, "Run:      %s\n", h.RunID)
	fmt.Fprintf(out, "Program:  %s (%s symbols)\n", h.Program, humanize.Comma(int64(h.ProgramLen)))
	fmt.Fprintf(out, "Started:  %s (%s)\n", h.Started.Local().Format("2006-01-02 15:04:05"), humanize.Time(h.Started))
	fmt.Fprintf(out, "File:     %s", humanize.Bytes(uint64(info.Size())))
	if tr.Compressed {
		fmt.Fprint(out, ", zstd")
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out)

	counts := make(map[string]uint64)
	var n uint64
	for {
		rec, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		n++
		counts[rec.Op]++
		if !summaryOnly && (limit == 0 || n <= uint64(limit)) {
			fmt.Fprintln(out, rec)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records:  %s\n", humanize.Comma(int64(n)))
	if sum := tr.Summary(); sum != nil {
		fmt.Fprintf(out, "State:    %s after %s steps in %s\n", sum.State, humanize.Comma(int64(sum.Steps)), sum.Duration)
		if sum.Error != "" {
			fmt.Fprintf(out, "Error:    %s\n", sum.Error)
		}
	} else if tr.Truncated {
		fmt.Fprintln(out, "State:    trace is cut short inside a record")
	} else {
		fmt.Fprintln(out, "State:    trace ends without a summary")
	}

	ops := make([]string, 0, len(counts))
	for op := range counts {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return counts[ops[i]] > counts[ops[j]] || counts[ops[i]] == counts[ops[j]] && ops[i] < ops[j] })
	for _, op := range ops {
		fmt.Fprintf(out, "  %-10s %s\n", op, humanize.Comma(int64(counts[op])))
	}
	return nil
}
