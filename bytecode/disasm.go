package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}

	if len(c.constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, k := range c.constants {
			display := k.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, display))
		}
		sb.WriteString("\n")
	}

	offset := 0
	for offset < len(c.code) {
		line, next := c.DisassembleInstruction(offset)
		sb.WriteString(line)
		sb.WriteString("\n")
		offset = next
	}

	return sb.String()
}

// DisassembleInstruction formats the instruction at offset and returns the
// formatted line plus the offset of the next instruction. Used both for
// whole-chunk listings and for per-instruction execution tracing.
func (c *Chunk) DisassembleInstruction(offset int) (string, int) {
	op := Opcode(c.code[offset])
	info := GetOpcodeInfo(op)

	lineCol := fmt.Sprintf("%4d", c.lines[offset])
	if offset > 0 && c.lines[offset] == c.lines[offset-1] {
		lineCol = "   |"
	}

	switch op {
	case OpConstant:
		if offset+1 >= len(c.code) {
			return fmt.Sprintf("%04d %s %-12s <truncated>", offset, lineCol, info.Name), len(c.code)
		}
		idx := int(c.code[offset+1])
		operand := "<bad index>"
		if idx < len(c.constants) {
			operand = c.constants[idx].String()
		}
		return fmt.Sprintf("%04d %s %-12s %3d  ; %s", offset, lineCol, info.Name, idx, operand), offset + 2
	default:
		return fmt.Sprintf("%04d %s %s", offset, lineCol, info.Name), offset + info.OperandLen + 1
	}
}
