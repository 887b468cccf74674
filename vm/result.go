package vm

// Result is the terminal outcome of one interpretation: the chunk ran to
// completion, compilation failed before any execution, or a runtime error
// halted the dispatch loop.
type Result int

const (
	ResultOK Result = iota
	ResultCompileError
	ResultRuntimeError
)

// String returns a human-readable name for Result.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultCompileError:
		return "compile error"
	case ResultRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// ExitCode maps the result to a distinct process exit status:
// 0 for success, 65 for compile errors, 70 for runtime errors.
func (r Result) ExitCode() int {
	switch r {
	case ResultCompileError:
		return 65
	case ResultRuntimeError:
		return 70
	default:
		return 0
	}
}
