// ws runs Whitespace programs.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/wsLang/ws/pkg/asm"
	"github.com/wsLang/ws/pkg/config"
	"github.com/wsLang/ws/pkg/monitor"
	"github.com/wsLang/ws/pkg/symbols"
	"github.com/wsLang/ws/pkg/trace"
	"github.com/wsLang/ws/pkg/vm"
)

var log = commonlog.GetLogger("ws")

var (
	flagVerbose = flag.Bool("v", false, "Activate verbose mode (trace every instruction)")
	flagStack   = flag.Bool("s", false, "Show the stack after each instruction execution")
	flagPause   = flag.Bool("p", false, "Pause the execution after each instruction")
	flagConfig  = flag.String("config", "", "Configuration file (default: nearest ws.toml)")
	flagTrace   = flag.String("trace", "", "Record a binary execution trace to this file")
	flagAsm     = flag.Bool("asm", false, "Treat the program as .wsa assembly source")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	path := flag.Arg(0)
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	verbosity := cfg.Log.Verbosity
	if cfg.Run.Verbose && verbosity < 1 {
		verbosity = 1
	}
	commonlog.Configure(verbosity, cfg.LogPath())

	if err := run(cfg, path, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Please specify the filename of the program")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage: ws [options] <program.ws|program.wsa>")
	flag.PrintDefaults()
}

func loadConfig(path string) (*config.Config, error) {
	if *flagConfig != "" {
		return config.Load(*flagConfig)
	}
	return config.FindAndLoad(filepath.Dir(path))
}

// applyFlags lets flags given on the command line override the file.
func applyFlags(cfg *config.Config) error {
	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Run.Verbose = *flagVerbose
		case "s":
			cfg.Run.Stack = *flagStack
		case "p":
			cfg.Run.Pause = *flagPause
		case "trace":
			err = cfg.SetTraceOutput(*flagTrace)
		}
	})
	return err
}

// loadProgram reads a whitespace program, or assembles a .wsa file.
func loadProgram(path string, assemble bool) (symbols.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if assemble || strings.EqualFold(filepath.Ext(path), ".wsa") {
		prog, err := asm.Assemble(string(data))
		if err != nil {
			return nil, fmt.Errorf("assembly error in %s: %w", path, err)
		}
		log.Infof("Program assembled, %s symbols", humanize.Comma(int64(len(prog))))
		return prog, nil
	}

	prog, stats := symbols.Filter(data)
	log.Infof("Program read, %s", humanize.Bytes(uint64(stats.Bytes)))
	if stats.Dropped > 0 {
		log.Infof("Ignored %s non-whitespace characters", humanize.Comma(int64(stats.Dropped)))
	}
	return prog, nil
}

func run(cfg *config.Config, path string, stdin io.Reader, stdout io.Writer) error {
	prog, err := loadProgram(path, *flagAsm)
	if err != nil {
		return err
	}

	// the stepper and the program share one buffered view of stdin
	input := bufio.NewReader(stdin)

	vcfg := cfg.VM()
	vcfg.Input = input
	vcfg.Output = stdout

	if cfg.Run.Verbose {
		vcfg.Hooks = append(vcfg.Hooks, monitor.NewTracer(nil))
	}
	if cfg.Run.Stack {
		vcfg.Hooks = append(vcfg.Hooks, monitor.NewStackDumper(stdout))
	}
	if cfg.Run.Pause {
		stepper := monitor.NewStepper(input, stdout)
		if f, ok := stdin.(*os.File); ok {
			stepper.UseTerminal(f)
		}
		vcfg.Hooks = append(vcfg.Hooks, stepper)
	}

	var rec *trace.Recorder
	if out := cfg.TracePath(); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating trace: %w", err)
		}
		defer f.Close()
		w := bufio.NewWriter(f)
		defer w.Flush()
		rec, err = trace.NewRecorder(w, filepath.Base(path), len(prog), cfg.Trace.Compress)
		if err != nil {
			return err
		}
		vcfg.Hooks = append(vcfg.Hooks, rec)
		log.Infof("Recording trace %s to %s", rec.Header.RunID, out)
	}

	m := vm.New(prog, vcfg)
	log.Infof("Program loaded, %s positions in memory", humanize.Comma(int64(m.ProgramLen())))
	log.Infof("%d labels found", len(m.Labels()))
	log.Info("Set ip=0 to start execution")

	runErr := m.Run()
	log.Infof("Executed %s instructions", humanize.Comma(int64(m.Steps())))

	if rec != nil {
		if err := rec.Finish(m); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return fmt.Errorf("runtime error in %s: %w", path, runErr)
	}
	return nil
}
