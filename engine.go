// engine.go: the host compile-and-run collaborator.
//
// The rewriter core has no opinion about what executes the transformed text;
// it only promises 1:1 line numbering so positioned errors map back to the
// original source. Engine is that opaque service, and PythonEngine is the
// default implementation, shelling out to a CPython binary.
package ddmm

import (
	"context"
	"errors"
	"io"
	"os"
	osexec "os/exec"
	"strings"
)

// Engine executes transformed source under a display name. Implementations
// report failures through their own positioned errors; the caller must not
// assume any particular shape beyond "failed".
type Engine interface {
	// Run compiles and executes src. name is the display name attached to
	// the compiled code (tracebacks show it); argv becomes the program's
	// argument vector.
	Run(ctx context.Context, src, name string, argv []string) error

	// Complete reports whether src forms a complete top-level statement.
	// Interactive consoles use it to decide whether to keep prompting for
	// continuation lines.
	Complete(ctx context.Context, src string) (bool, error)
}

// runStub compiles stdin under the display name passed as the first argument
// so tracebacks point at the original file, then executes it as __main__.
const runStub = `import sys
name = sys.argv[1]
sys.argv = sys.argv[1:]
code = compile(sys.stdin.read(), name, "exec")
exec(code, {"__name__": "__main__", "__file__": name})
`

// completeStub exits 0 when stdin is a complete statement (or a broken one:
// the real compiler gets to report that), 3 when more input is needed.
const completeStub = `import codeop, sys
try:
    more = codeop.compile_command(sys.stdin.read(), "<input>", "exec") is None
except (SyntaxError, OverflowError, ValueError):
    sys.exit(0)
sys.exit(3 if more else 0)
`

// PythonEngine runs transformed source with an external python3 binary.
// The zero value is not usable; construct with NewPythonEngine.
type PythonEngine struct {
	Python string // interpreter binary
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewPythonEngine returns an engine bound to the "python3" binary on PATH
// and the process's standard streams.
func NewPythonEngine() *PythonEngine {
	return &PythonEngine{
		Python: "python3",
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (e *PythonEngine) Run(ctx context.Context, src, name string, argv []string) error {
	args := append([]string{"-c", runStub, name}, argv...)
	cmd := osexec.CommandContext(ctx, e.Python, args...)
	cmd.Stdin = strings.NewReader(src)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	return cmd.Run()
}

func (e *PythonEngine) Complete(ctx context.Context, src string) (bool, error) {
	cmd := osexec.CommandContext(ctx, e.Python, "-c", completeStub)
	cmd.Stdin = strings.NewReader(src)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exit *osexec.ExitError
	if errors.As(err, &exit) && exit.ExitCode() == 3 {
		return false, nil
	}
	// The probe itself failed (no binary, killed, ...). Report complete so
	// the caller hands the text to Run, which surfaces the real problem.
	return true, err
}
