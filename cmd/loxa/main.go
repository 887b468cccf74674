// Loxa CLI - compiles and runs Loxa programs.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/loxa-lang/loxa/compiler"
	"github.com/loxa-lang/loxa/config"
	"github.com/loxa-lang/loxa/store"
	"github.com/loxa-lang/loxa/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	eval := flag.String("e", "", "Evaluate a program given on the command line")
	trace := flag.Bool("trace", false, "Trace each executed instruction")
	disasm := flag.Bool("disasm", false, "Print the compiled bytecode listing instead of executing")
	noCache := flag.Bool("no-cache", false, "Skip the compiled-chunk cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loxa [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the given script, or starts a REPL when no script is given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  loxa                       # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  loxa script.loxa           # Run a script\n")
		fmt.Fprintf(os.Stderr, "  loxa -e 'print 1 + 2;'     # Evaluate one program\n")
		fmt.Fprintf(os.Stderr, "  loxa -disasm script.loxa   # Show compiled bytecode\n")
		fmt.Fprintf(os.Stderr, "\nExit codes: 0 success, 65 compile error, 70 runtime error.\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	}

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		cfg = config.Default()
	}

	newVM := func() *vm.VM {
		return vm.New(
			vm.WithGCThreshold(cfg.VM.GCThreshold),
			vm.WithTrace(cfg.VM.Trace || *trace),
		)
	}

	if flagProvided(flag.CommandLine, "e") {
		os.Exit(newVM().Interpret(*eval).ExitCode())
	}

	args := flag.Args()
	if len(args) == 0 {
		repl(newVM())
		return
	}
	if len(args) > 1 {
		flag.Usage()
		os.Exit(64)
	}

	os.Exit(runFile(args[0], cfg, newVM(), *disasm, *noCache, *verbose))
}

// flagProvided reports whether a flag was given on the command line,
// which an empty value alone cannot distinguish ("-e ''" is a valid,
// empty program).
func flagProvided(fs *flag.FlagSet, name string) bool {
	provided := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			provided = true
		}
	})
	return provided
}

// runFile executes a script file and returns its exit code.
func runFile(path string, cfg *config.Config, machine *vm.VM, disasm, noCache, verbose bool) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 74
	}
	source := string(data)

	if disasm {
		chunk, err := compiler.Compile(source)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return vm.ResultCompileError.ExitCode()
		}
		fmt.Print(chunk.DisassembleWithName(path))
		return 0
	}

	var cache *store.Cache
	if cfg.Cache.Enabled && !noCache && cfg.Cache.Path != "" {
		cache, err = store.Open(cfg.Cache.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
		} else {
			defer cache.Close()
		}
	}

	if cache != nil {
		if chunk, err := cache.Get(source); err == nil {
			if verbose {
				fmt.Fprintf(os.Stderr, "Loaded cached chunk for %s\n", path)
			}
			return machine.RunChunk(chunk).ExitCode()
		}
	}

	chunk, err := compiler.Compile(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return vm.ResultCompileError.ExitCode()
	}

	if cache != nil {
		if err := cache.Put(source, chunk); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache write failed: %v\n", err)
		}
	}

	return machine.RunChunk(chunk).ExitCode()
}

// repl reads one program per line and interprets it. Errors are printed
// and the session continues.
func repl(machine *vm.VM) {
	fmt.Println("Loxa REPL. Ctrl-D to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("loxa> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		machine.Interpret(line)
	}
}
