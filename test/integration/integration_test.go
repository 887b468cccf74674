package integration_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/loxa-lang/loxa/bytecode"
	"github.com/loxa-lang/loxa/compiler"
	"github.com/loxa-lang/loxa/store"
	"github.com/loxa-lang/loxa/vm"
)

// ---------------------------------------------------------------------------
// Integration test helpers
// ---------------------------------------------------------------------------

// run compiles and executes a program, returning the result and its output.
func run(t *testing.T, source string) (vm.Result, string) {
	t.Helper()

	var out strings.Builder
	machine := vm.New(vm.WithOutput(&out), vm.WithErrorOutput(&strings.Builder{}))
	return machine.Interpret(source), out.String()
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			"arithmetic and comparison",
			`print (1 + 2) * 3;
print 10 / 4;
print 3 > 2;
print 3 <= 2;`,
			"9\n2.5\ntrue\nfalse\n",
		},
		{
			"equality semantics",
			`print 1 == 1;
print 1 == 1.0;
print nil == nil;
print nil == false;
print "ab" == "ab";
print "ab" != "ba";`,
			"true\nfalse\ntrue\nfalse\ntrue\ntrue\n",
		},
		{
			"truthiness",
			`print !nil;
print !false;
print !0;
print !"";`,
			"true\ntrue\nfalse\nfalse\n",
		},
		{
			"mixed statements",
			`print 1 == 1; print nil; print 3 - 1;`,
			"true\nnil\n2\n",
		},
		{
			"comments and blank lines",
			`// header
print 1; // trailing

print 2;`,
			"1\n2\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, out := run(t, tt.source)
			if result != vm.ResultOK {
				t.Fatalf("result = %v, want ResultOK", result)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

// TestCachedExecution drives the full pipeline: compile once, round-trip
// the chunk through the SQLite cache's wire encoding, and run the cached
// copy with identical observable behavior.
func TestCachedExecution(t *testing.T) {
	source := `print "cached"; print 1 + 1;`
	want := "\"cached\"\n2\n"

	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	chunk, err := compiler.Compile(source)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := cache.Put(source, chunk); err != nil {
		t.Fatalf("Put: %v", err)
	}

	cached, err := cache.Get(source)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var fresh, replayed strings.Builder

	machine := vm.New(vm.WithOutput(&fresh), vm.WithErrorOutput(&strings.Builder{}))
	if result := machine.RunChunk(chunk); result != vm.ResultOK {
		t.Fatalf("fresh run = %v, want ResultOK", result)
	}
	machine = vm.New(vm.WithOutput(&replayed), vm.WithErrorOutput(&strings.Builder{}))
	if result := machine.RunChunk(cached); result != vm.ResultOK {
		t.Fatalf("cached run = %v, want ResultOK", result)
	}

	if fresh.String() != want {
		t.Errorf("fresh output = %q, want %q", fresh.String(), want)
	}
	if replayed.String() != fresh.String() {
		t.Errorf("cached output = %q, fresh output = %q; want identical", replayed.String(), fresh.String())
	}
}

// TestWireRoundTripExecution checks that serialization alone preserves
// behavior, independent of the cache layer.
func TestWireRoundTripExecution(t *testing.T) {
	source := `print 2 * 3 - 1; print "wire";`

	chunk, err := compiler.Compile(source)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	data, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("MarshalChunk: %v", err)
	}
	decoded, err := bytecode.UnmarshalChunk(data)
	if err != nil {
		t.Fatalf("UnmarshalChunk: %v", err)
	}

	var out strings.Builder
	machine := vm.New(vm.WithOutput(&out), vm.WithErrorOutput(&strings.Builder{}))
	if result := machine.RunChunk(decoded); result != vm.ResultOK {
		t.Fatalf("result = %v, want ResultOK", result)
	}
	if got, want := out.String(), "5\n\"wire\"\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

// TestMalformedCachedChunk runs a chunk that decodes cleanly from the
// cache but is not well-formed bytecode. Execution must end in a
// runtime error rather than crashing the process.
func TestMalformedCachedChunk(t *testing.T) {
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	// OpAdd with nothing on the stack, then a dangling OpConstant
	// opcode with no operand byte.
	bad := bytecode.NewChunk()
	bad.Write(byte(bytecode.OpAdd), 1)
	bad.Write(byte(bytecode.OpConstant), 1)

	source := "malformed"
	if err := cache.Put(source, bad); err != nil {
		t.Fatalf("Put: %v", err)
	}
	cached, err := cache.Get(source)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var errOut strings.Builder
	machine := vm.New(vm.WithOutput(&strings.Builder{}), vm.WithErrorOutput(&errOut))
	if result := machine.RunChunk(cached); result != vm.ResultRuntimeError {
		t.Fatalf("result = %v, want ResultRuntimeError", result)
	}
	if !strings.Contains(errOut.String(), "runtime error") {
		t.Errorf("stderr = %q, want a runtime error diagnostic", errOut.String())
	}
}

func TestErrorPipeline(t *testing.T) {
	var out, errOut strings.Builder
	machine := vm.New(vm.WithOutput(&out), vm.WithErrorOutput(&errOut))

	if result := machine.Interpret("print -true;"); result != vm.ResultRuntimeError {
		t.Fatalf("result = %v, want ResultRuntimeError", result)
	}
	if code := vm.ResultRuntimeError.ExitCode(); code != 70 {
		t.Errorf("ExitCode = %d, want 70", code)
	}
	if !strings.Contains(errOut.String(), "operand must be a number") {
		t.Errorf("stderr = %q, want operand diagnostic", errOut.String())
	}
}
