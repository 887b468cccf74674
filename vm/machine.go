// Package vm implements the execution core: the tagged value
// representation, the garbage-collected heap, and the stack-based
// dispatch loop that interprets compiled chunks.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/loxa-lang/loxa/bytecode"
	"github.com/loxa-lang/loxa/compiler"
)

// StackMax is the fixed operand stack capacity.
const StackMax = 256

// VM is the execution context for one interpretation: the current chunk
// (borrowed, not owned), the instruction pointer, the operand stack with
// its top cursor, and the garbage-collected heap. A VM drives one chunk
// at a time to completion and is not safe for concurrent use.
type VM struct {
	chunk *bytecode.Chunk
	ip    int
	stack [StackMax]Value
	sp    int
	heap  *Heap

	out    io.Writer
	errOut io.Writer
	trace  bool
	log    commonlog.Logger
}

// Option configures a VM.
type Option func(*VM)

// WithOutput directs program output (OpPrint) to w.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithErrorOutput directs diagnostics to w.
func WithErrorOutput(w io.Writer) Option {
	return func(vm *VM) { vm.errOut = w }
}

// WithGCThreshold sets the heap's initial collection threshold.
func WithGCThreshold(n int) Option {
	return func(vm *VM) { vm.heap = NewHeapWithThreshold(n) }
}

// WithTrace enables per-instruction execution tracing on the error stream.
func WithTrace(trace bool) Option {
	return func(vm *VM) { vm.trace = trace }
}

// New creates a VM with an empty stack and an empty heap.
func New(opts ...Option) *VM {
	vm := &VM{
		heap:   NewHeap(),
		out:    os.Stdout,
		errOut: os.Stderr,
		log:    commonlog.GetLogger("loxa.vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Heap returns the VM's heap.
func (vm *VM) Heap() *Heap {
	return vm.heap
}

// Interpret compiles source text and runs the resulting chunk to
// completion or first runtime error. Compile errors short-circuit before
// any bytecode runs.
func (vm *VM) Interpret(source string) Result {
	chunk, err := compiler.Compile(source)
	if err != nil {
		fmt.Fprintln(vm.errOut, err)
		return ResultCompileError
	}
	return vm.RunChunk(chunk)
}

// RunChunk executes a compiled chunk from its first instruction. The
// chunk is borrowed for the duration of the run and released afterward.
func (vm *VM) RunChunk(chunk *bytecode.Chunk) Result {
	vm.chunk = chunk
	vm.ip = 0
	vm.sp = 0

	result := vm.run()
	vm.chunk = nil
	return result
}

// run is the fetch-decode-execute loop.
func (vm *VM) run() Result {
	for {
		if vm.ip >= vm.chunk.Len() {
			// Well-formed chunks end with OpReturn; reaching here means
			// the compiler or a cache handed us a truncated chunk.
			return vm.runtimeErrorf("internal error: instruction pointer ran off the end of the chunk")
		}

		if vm.trace {
			text, _ := vm.chunk.DisassembleInstruction(vm.ip)
			fmt.Fprintf(vm.errOut, "%-40s sp=%d\n", text, vm.sp)
		}

		op := bytecode.Opcode(vm.chunk.Read(vm.ip))
		vm.ip++

		// Chunks can arrive from outside the compiler (wire decoding, the
		// cache), so the operand and stack preconditions in the metadata
		// table are checked before any handler touches memory.
		info := bytecode.GetOpcodeInfo(op)
		if vm.ip+info.OperandLen > vm.chunk.Len() {
			return vm.runtimeErrorf("internal error: truncated operand for %s at offset %d", op, vm.ip-1)
		}
		if vm.sp < info.StackPop {
			return vm.runtimeErrorf("internal error: stack underflow on %s at offset %d", op, vm.ip-1)
		}

		switch op {
		case bytecode.OpConstant:
			idx := int(vm.chunk.Read(vm.ip))
			vm.ip++
			if idx >= vm.chunk.ConstantCount() {
				return vm.runtimeErrorf("internal error: constant index %d out of range", idx)
			}
			if vm.sp == StackMax {
				return vm.runtimeErrorf("stack overflow")
			}
			vm.push(vm.constantValue(vm.chunk.ConstantAt(idx)))

		case bytecode.OpNil:
			if vm.sp == StackMax {
				return vm.runtimeErrorf("stack overflow")
			}
			vm.push(Nil)

		case bytecode.OpTrue:
			if vm.sp == StackMax {
				return vm.runtimeErrorf("stack overflow")
			}
			vm.push(True)

		case bytecode.OpFalse:
			if vm.sp == StackMax {
				return vm.runtimeErrorf("stack overflow")
			}
			vm.push(False)

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(FromBool(vm.heap.ValuesEqual(a, b)))

		case bytecode.OpGreater:
			b := vm.pop()
			a := vm.pop()
			vm.push(FromBool(a.Number() > b.Number()))

		case bytecode.OpLess:
			b := vm.pop()
			a := vm.pop()
			vm.push(FromBool(a.Number() < b.Number()))

		case bytecode.OpAdd:
			b := vm.pop()
			a := vm.pop()
			vm.push(FromFloat(a.Number() + b.Number()))

		case bytecode.OpSubtract:
			b := vm.pop()
			a := vm.pop()
			vm.push(FromFloat(a.Number() - b.Number()))

		case bytecode.OpMultiply:
			b := vm.pop()
			a := vm.pop()
			vm.push(FromFloat(a.Number() * b.Number()))

		case bytecode.OpDivide:
			b := vm.pop()
			a := vm.pop()
			vm.push(FromFloat(a.Number() / b.Number()))

		case bytecode.OpNot:
			vm.push(FromBool(!vm.pop().IsTruthy()))

		case bytecode.OpNegate:
			v := vm.pop()
			if !v.IsNumber() {
				return vm.runtimeErrorf("operand must be a number")
			}
			vm.push(FromFloat(-v.Number()))

		case bytecode.OpPrint:
			fmt.Fprintln(vm.out, vm.heap.FormatValue(vm.pop()))

		case bytecode.OpReturn:
			return ResultOK

		default:
			return vm.runtimeErrorf("internal error: unknown opcode 0x%02X at offset %d", byte(op), vm.ip-1)
		}
	}
}

// constantValue converts a constant pool entry into a runtime value.
// String constants are boxed on the heap so the collector governs them
// like any other string.
func (vm *VM) constantValue(k bytecode.Constant) Value {
	switch k.Kind {
	case bytecode.ConstBool:
		return FromBool(k.Bool)
	case bytecode.ConstInt:
		return FromInt(k.Int)
	case bytecode.ConstFloat:
		return FromFloat(k.Float)
	case bytecode.ConstString:
		return FromHandle(vm.heap.Alloc(k.Str, vm.stack[:vm.sp]))
	default:
		return Nil
	}
}

// Stack helpers. Bounds are the caller's responsibility: the dispatch
// loop checks each opcode's pop count before its handler runs, and the
// push-only opcodes check for overflow before calling push.

func (vm *VM) push(v Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

// runtimeErrorf reports a runtime error with the current source line and
// halts execution. The stack and heap are left in their last-mutated
// state; the collector reclaims on its own schedule.
func (vm *VM) runtimeErrorf(format string, args ...interface{}) Result {
	line := 0
	if vm.ip > 0 && vm.ip <= vm.chunk.Len() {
		line = vm.chunk.Line(vm.ip - 1)
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(vm.errOut, "[line %d] runtime error: %s\n", line, msg)
	vm.log.Errorf("runtime error at line %d: %s", line, msg)
	return ResultRuntimeError
}
