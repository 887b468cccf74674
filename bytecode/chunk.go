// Package bytecode defines the compiled instruction format: opcodes, the
// chunk container with its constant pool and line table, a disassembler,
// and the wire encoding used to persist compiled chunks.
package bytecode

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxConstants is the fixed upper bound on constant pool entries per chunk.
const MaxConstants = 65536

// ErrTooManyConstants is returned by AddConstant when the pool is full.
// This is fatal for compilation, not recoverable.
var ErrTooManyConstants = errors.New("too many constants in one chunk")

// ConstantKind identifies the type of a constant pool entry.
type ConstantKind uint8

const (
	ConstNil ConstantKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstString
)

// Constant is a literal value stored in a chunk's constant pool.
// Only the field selected by Kind is meaningful.
type Constant struct {
	Kind  ConstantKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

// IntConstant creates an integer pool entry.
func IntConstant(n int64) Constant { return Constant{Kind: ConstInt, Int: n} }

// FloatConstant creates a float pool entry.
func FloatConstant(f float64) Constant { return Constant{Kind: ConstFloat, Float: f} }

// StringConstant creates a string pool entry.
func StringConstant(s string) Constant { return Constant{Kind: ConstString, Str: s} }

// String returns a display form of the constant for listings and errors.
func (k Constant) String() string {
	switch k.Kind {
	case ConstNil:
		return "nil"
	case ConstBool:
		if k.Bool {
			return "true"
		}
		return "false"
	case ConstInt:
		return strconv.FormatInt(k.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(k.Float, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(k.Str)
	default:
		return fmt.Sprintf("Constant(%d)", k.Kind)
	}
}

// Chunk is a compiled unit of bytecode: the instruction stream, a parallel
// line table for diagnostics, and the constant pool referenced by OpConstant.
// Chunks are append-only during compilation and read-only during execution.
type Chunk struct {
	code      []byte
	lines     []int
	constants []Constant
}

// NewChunk creates a new empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// growCapacity returns the next buffer capacity: doubling, minimum 8.
func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}

// Write appends one instruction byte and its source line.
// The code and line buffers stay 1:1 and grow together.
func (c *Chunk) Write(b byte, line int) {
	if cap(c.code) < len(c.code)+1 {
		newCap := growCapacity(cap(c.code))
		code := make([]byte, len(c.code), newCap)
		copy(code, c.code)
		c.code = code
		lines := make([]int, len(c.lines), newCap)
		copy(lines, c.lines)
		c.lines = lines
	}
	c.code = append(c.code, b)
	c.lines = append(c.lines, line)
}

// WriteOp appends an opcode with operand bytes, all attributed to line.
func (c *Chunk) WriteOp(op Opcode, line int, operands ...byte) {
	c.Write(byte(op), line)
	for _, b := range operands {
		c.Write(b, line)
	}
}

// AddConstant appends a value to the constant pool and returns its index.
// Deduplication is not performed; the index is assigned at insertion time.
func (c *Chunk) AddConstant(k Constant) (int, error) {
	if len(c.constants) == MaxConstants {
		return 0, ErrTooManyConstants
	}
	c.constants = append(c.constants, k)
	return len(c.constants) - 1, nil
}

// Read returns the instruction byte at the given offset.
func (c *Chunk) Read(offset int) byte {
	return c.code[offset]
}

// Len returns the length of the instruction stream.
func (c *Chunk) Len() int {
	return len(c.code)
}

// Line returns the source line recorded for the instruction byte at offset.
func (c *Chunk) Line(offset int) int {
	return c.lines[offset]
}

// ConstantAt returns the constant pool entry at the given index.
func (c *Chunk) ConstantAt(index int) Constant {
	return c.constants[index]
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.constants)
}
