package testutil

import "github.com/roach88/msig/internal/ir"

// Opcodes used by fixtures. Values are arbitrary but stable.
const (
	OpMov  uint8 = 0x04
	OpAdd  uint8 = 0x0C
	OpCall uint8 = 0x38
	OpJz   uint8 = 0x2B
	OpGoto uint8 = 0x37
	OpRet  uint8 = 0x3A
	OpLdx  uint8 = 0x02
)

// Reg is a register operand of the given size.
func Reg(size int32) ir.Operand { return ir.Operand{Kind: ir.KindRegister, Size: size} }

// Stack is a stack slot operand of the given size.
func Stack(size int32) ir.Operand { return ir.Operand{Kind: ir.KindStack, Size: size} }

// Global is a global variable operand of the given size.
func Global(size int32) ir.Operand { return ir.Operand{Kind: ir.KindGlobal, Size: size} }

// Num is an immediate number operand.
func Num(v uint64, size int32) ir.Operand {
	return ir.Operand{Kind: ir.KindNumber, Size: size, Value: v}
}

// BlockRef is a jump target naming block i.
func BlockRef(i int32) ir.Operand {
	return ir.Operand{Kind: ir.KindBlock, Block: i}
}

// Helper is a call target naming a helper function.
func Helper(name string) ir.Operand {
	return ir.Operand{Kind: ir.KindHelper, Text: name}
}

// Nested wraps an instruction whose result is used as an operand.
func Nested(insn ir.Instruction, size int32) ir.Operand {
	return ir.Operand{Kind: ir.KindNested, Size: size, Insn: &insn}
}

// Insn builds one instruction.
func Insn(op uint8, l, r, d ir.Operand) ir.Instruction {
	return ir.Instruction{Opcode: op, L: l, R: r, D: d}
}

// Func assembles a function from blocks of instructions.
func Func(name string, entry uint64, blocks ...[]ir.Instruction) *ir.Function {
	fn := &ir.Function{Entry: entry, Name: name}
	for _, insns := range blocks {
		fn.Blocks = append(fn.Blocks, ir.Block{Insns: insns})
	}
	return fn
}

// Counter builds a small loop that increments a location until it reaches
// limit. loc picks the location operand, so the same shape can be produced
// with registers, globals or stack slots.
func Counter(name string, entry uint64, loc func(int32) ir.Operand, limit uint64) *ir.Function {
	return Func(name, entry,
		[]ir.Instruction{
			Insn(OpMov, Num(0, 4), ir.Operand{}, loc(4)),
		},
		[]ir.Instruction{
			Insn(OpAdd, loc(4), Num(1, 4), loc(4)),
			Insn(OpJz, loc(4), Num(limit, 4), BlockRef(1)),
		},
		[]ir.Instruction{
			Insn(OpRet, ir.Operand{}, ir.Operand{}, ir.Operand{}),
		},
	)
}

// Caller builds a function that calls a helper and returns its result.
func Caller(name string, entry uint64, helper string) *ir.Function {
	call := Insn(OpCall, Helper(helper), ir.Operand{Kind: ir.KindArgs}, Reg(8))
	return Func(name, entry,
		[]ir.Instruction{
			Insn(OpMov, Nested(call, 8), ir.Operand{}, Reg(8)),
			Insn(OpRet, ir.Operand{}, ir.Operand{}, ir.Operand{}),
		},
	)
}

// Empty builds a function without instructions. Its canonical encoding is
// empty, which is below the minimum signature length.
func Empty(name string, entry uint64) *ir.Function {
	return &ir.Function{Entry: entry, Name: name}
}
