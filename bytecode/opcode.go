package bytecode

import "fmt"

// Opcode represents a single-byte bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Constants and literals (0x00-0x0F)
	// ========================================================================

	OpConstant Opcode = 0x00 // Push constant from pool: OpConstant <index:u8>
	OpNil      Opcode = 0x01 // Push nil
	OpTrue     Opcode = 0x02 // Push true
	OpFalse    Opcode = 0x03 // Push false

	// ========================================================================
	// Comparison (0x10-0x1F)
	// ========================================================================

	OpEqual   Opcode = 0x10 // Pop two, push structural equality
	OpGreater Opcode = 0x11 // Pop two, push a > b (numeric)
	OpLess    Opcode = 0x12 // Pop two, push a < b (numeric)

	// ========================================================================
	// Arithmetic (0x20-0x2F)
	// ========================================================================

	OpAdd      Opcode = 0x20 // Pop two, push sum
	OpSubtract Opcode = 0x21 // Pop two, push difference (a - b where b is TOS)
	OpMultiply Opcode = 0x22 // Pop two, push product
	OpDivide   Opcode = 0x23 // Pop two, push quotient

	// ========================================================================
	// Logical (0x30-0x3F)
	// ========================================================================

	OpNot    Opcode = 0x30 // Pop one, push logical complement of truthiness
	OpNegate Opcode = 0x31 // Pop one number, push its arithmetic negation

	// ========================================================================
	// Side effects and termination (0xF0-0xFF)
	// ========================================================================

	OpPrint  Opcode = 0xF0 // Pop one, write its textual form plus newline
	OpReturn Opcode = 0xF1 // Halt execution, signal success
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", 0, 1, 1},
	OpNil:      {"NIL", 0, 1, 0},
	OpTrue:     {"TRUE", 0, 1, 0},
	OpFalse:    {"FALSE", 0, 1, 0},

	OpEqual:   {"EQUAL", 2, 1, 0},
	OpGreater: {"GREATER", 2, 1, 0},
	OpLess:    {"LESS", 2, 1, 0},

	OpAdd:      {"ADD", 2, 1, 0},
	OpSubtract: {"SUBTRACT", 2, 1, 0},
	OpMultiply: {"MULTIPLY", 2, 1, 0},
	OpDivide:   {"DIVIDE", 2, 1, 0},

	OpNot:    {"NOT", 1, 1, 0},
	OpNegate: {"NEGATE", 1, 1, 0},

	OpPrint:  {"PRINT", 1, 0, 0},
	OpReturn: {"RETURN", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsReturn returns true if this opcode terminates execution.
func (op Opcode) IsReturn() bool {
	return op == OpReturn
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}
