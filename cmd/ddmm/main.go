// Command ddmm is the front end for the Drake Maye bracket dialect: it runs
// .ddmm files and inline programs through the rewriter and a Python engine,
// converts source in both directions, validates bracket matching, and hosts
// an interactive console.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"
	"github.com/peterh/liner"

	ddmm "github.com/dhevinnandyala/ddmm"
)

const (
	appName     = "ddmm"
	historyFile = ".ddmm_history"
	promptMain  = "ddmm>>> "
	promptCont  = "ddmm... "
)

var banner = fmt.Sprintf(`ddmm %s — where every bracket tells a story.

  Bracket reference:
    drake / maye   ->  ( )   parentheses
    Drake / Maye   ->  { }   curly braces
    DRAKE / MAYE   ->  [ ]   square brackets

Ctrl+C cancels input, Ctrl+D exits. Type :quit to exit.`, ddmm.Version)

func main() {
	if len(os.Args) < 2 {
		// Bare invocation starts the console, like the host interpreter.
		os.Exit(cmdRepl(nil))
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "eval":
		os.Exit(cmdEval(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "show":
		os.Exit(cmdShow(os.Args[2:]))
	case "convert":
		os.Exit(cmdConvert(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "version":
		fmt.Println(ddmm.Version)
		return
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`ddmm %s (built %s)

Usage:
  %s run [-i] [-m mod] [file.ddmm | -] [args...]   Run a script ("-" reads stdin)
  %s eval <code> [args...]                         Run an inline program
  %s repl                                          Start the interactive console
  %s show <file.ddmm>                              Print the transformed host source
  %s convert <file.py>                             Convert host source to ddmm
  %s check <file.ddmm>                             Validate bracket matching
  %s version                                       Print the version

Bracket mapping:
  drake / maye  ->  ( )   parentheses
  Drake / Maye  ->  { }   curly braces
  DRAKE / MAYE  ->  [ ]   square brackets

`, ddmm.Version, ddmm.BuildDate, appName, appName, appName, appName, appName, appName, appName)
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, color.RedString("%s: %v", appName, err))
	return 1
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	opts, optind, err := getopt.Getopts(args, "im:")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 2
	}
	inspect := false
	module := ""
	for _, opt := range opts {
		switch opt.Option {
		case 'i':
			inspect = true
		case 'm':
			module = opt.Value
		}
	}
	rest := args[optind:]

	engine := ddmm.NewPythonEngine()
	ctx := context.Background()

	if module != "" {
		loader := ddmm.NewLoader()
		mod, err := loader.Load(module, "")
		if err != nil {
			return fail(err)
		}
		if rerr := engine.Run(ctx, mod.Source, mod.Path, rest); rerr != nil {
			return exitCode(rerr)
		}
		return 0
	}

	if len(rest) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run [-i] [-m mod] [file.ddmm | -] [args...]\n", appName)
		return 2
	}

	file := rest[0]
	argv := rest[1:]

	var source, name string
	if file == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fail(err)
		}
		source, name = string(b), "<stdin>"
	} else {
		b, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: can't open file '%s': %v\n", appName, file, err)
			return 2
		}
		source, name = string(b), file
	}

	code := 0
	if rerr := engine.Run(ctx, ddmm.Transform(source), name, argv); rerr != nil {
		code = exitCode(rerr)
	}
	if inspect {
		return cmdRepl(nil)
	}
	return code
}

// exitCode maps an engine failure to a process exit code, preserving the
// child's own code when there is one.
func exitCode(err error) int {
	var exit *osexec.ExitError
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	fmt.Fprintln(os.Stderr, color.RedString("%v", err))
	return 1
}

// -----------------------------------------------------------------------------
// eval
// -----------------------------------------------------------------------------

func cmdEval(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s eval <code> [args...]\n", appName)
		return 2
	}
	engine := ddmm.NewPythonEngine()
	if err := engine.Run(context.Background(), ddmm.Transform(args[0]), "<string>", args[1:]); err != nil {
		return exitCode(err)
	}
	return 0
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(_ []string) int {
	fmt.Println(color.CyanString(banner))

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	// The console consumes ddmm syntax through the preprocessor registry,
	// the same path an embedding shell would use.
	hook := ddmm.NewHook("repl-transform", ddmm.Transform)
	hook.Install()
	defer hook.Uninstall()

	engine := ddmm.NewPythonEngine()
	ctx := context.Background()

	for {
		code, ok := readByCompleteProbe(ctx, engine, ln)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return 0
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}

		if err := engine.Run(ctx, ddmm.Preprocess(code), "<ddmm-repl>", nil); err != nil {
			var exit *osexec.ExitError
			if !errors.As(err, &exit) {
				fmt.Fprintln(os.Stderr, color.RedString("%v", err))
			}
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return 0
}

// readByCompleteProbe collects input lines until the engine says the
// (preprocessed) text forms a complete statement. A bracket-balance probe on
// the keyword source keeps multi-line drake...maye constructs open even when
// the engine is unreachable.
func readByCompleteProbe(ctx context.Context, engine ddmm.Engine, ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C or a read error abandons the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
			if line == "" {
				// Blank continuation line always submits, like the host
				// console closing an open block.
				return b.String(), true
			}
		}
		b.WriteString(line)

		src := b.String()
		if hasUnclosedBrackets(src) {
			continue
		}
		complete, perr := engine.Complete(ctx, ddmm.Preprocess(src)+"\n")
		if perr != nil || complete {
			return src, true
		}
	}
}

func hasUnclosedBrackets(src string) bool {
	for _, d := range ddmm.CheckBracketMatching(src, "<ddmm-repl>") {
		if strings.HasPrefix(d.Message, "Unclosed") {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// show / convert / check
// -----------------------------------------------------------------------------

func cmdShow(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s show <file.ddmm>\n", appName)
		return 2
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return fail(err)
	}
	fmt.Println(ddmm.Transform(string(b)))
	return 0
}

func cmdConvert(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s convert <file.py>\n", appName)
		return 2
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return fail(err)
	}
	fmt.Println(ddmm.ReverseTransform(string(b)))
	return 0
}

func cmdCheck(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s check <file.ddmm>\n", appName)
		return 2
	}
	file := args[0]
	b, err := os.ReadFile(file)
	if err != nil {
		return fail(err)
	}
	diags := ddmm.CheckBracketMatching(string(b), file)
	if len(diags) == 0 {
		fmt.Println(color.GreenString("%s: All brackets match!", file))
		return 0
	}
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, color.RedString("%s", d.Error()))
	}
	return 1
}
