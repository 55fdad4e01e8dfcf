package x86

import "golang.org/x/arch/x86/x86asm"

// opOther is used for mnemonics outside the table. The mnemonic is then
// carried as a helper operand.
const opOther uint8 = 0xFF

// opMem is the opcode of the nested instruction describing a memory
// reference.
const opMem uint8 = 0xFE

// opScale is the opcode of the nested index*scale term of a memory
// reference.
const opScale uint8 = 0xFD

// opTable assigns microcode opcodes by position. Append only: reordering
// changes every signature.
var opTable = []x86asm.Op{
	x86asm.MOV, x86asm.MOVZX, x86asm.MOVSX, x86asm.MOVSXD, x86asm.LEA,
	x86asm.PUSH, x86asm.POP, x86asm.XCHG,
	x86asm.ADD, x86asm.ADC, x86asm.SUB, x86asm.SBB,
	x86asm.IMUL, x86asm.MUL, x86asm.DIV, x86asm.IDIV,
	x86asm.AND, x86asm.OR, x86asm.XOR, x86asm.NOT, x86asm.NEG,
	x86asm.INC, x86asm.DEC,
	x86asm.SHL, x86asm.SHR, x86asm.SAR, x86asm.ROL, x86asm.ROR,
	x86asm.CMP, x86asm.TEST,
	x86asm.JMP, x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE,
	x86asm.JE, x86asm.JNE, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE,
	x86asm.JO, x86asm.JNO, x86asm.JS, x86asm.JNS, x86asm.JP, x86asm.JNP,
	x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ,
	x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE,
	x86asm.CALL, x86asm.RET, x86asm.LRET, x86asm.LEAVE,
	x86asm.CMOVA, x86asm.CMOVAE, x86asm.CMOVB, x86asm.CMOVBE,
	x86asm.CMOVE, x86asm.CMOVNE, x86asm.CMOVG, x86asm.CMOVGE,
	x86asm.CMOVL, x86asm.CMOVLE, x86asm.CMOVS, x86asm.CMOVNS,
	x86asm.SETA, x86asm.SETAE, x86asm.SETB, x86asm.SETBE,
	x86asm.SETE, x86asm.SETNE, x86asm.SETG, x86asm.SETGE,
	x86asm.SETL, x86asm.SETLE, x86asm.SETS, x86asm.SETNS,
	x86asm.HLT, x86asm.UD2, x86asm.INT,
}

var opcodes = func() map[x86asm.Op]uint8 {
	m := make(map[x86asm.Op]uint8, len(opTable))
	for i, op := range opTable {
		m[op] = uint8(i + 1)
	}
	return m
}()

func opcodeOf(op x86asm.Op) (uint8, bool) {
	code, ok := opcodes[op]
	return code, ok
}

func isBranch(op x86asm.Op) bool {
	switch op {
	case x86asm.JMP, x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE,
		x86asm.JE, x86asm.JNE, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE,
		x86asm.JO, x86asm.JNO, x86asm.JS, x86asm.JNS, x86asm.JP, x86asm.JNP,
		x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ,
		x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return true
	}
	return false
}

// endsBlock reports whether control does not simply fall through to the
// next instruction.
func endsBlock(op x86asm.Op) bool {
	switch op {
	case x86asm.RET, x86asm.LRET, x86asm.HLT, x86asm.UD2, x86asm.IRETQ:
		return true
	}
	return isBranch(op)
}

// isPadding reports NOP and INT3, which compilers emit for alignment.
func isPadding(inst *x86asm.Inst) bool {
	switch inst.Op {
	case x86asm.NOP:
		return true
	case x86asm.INT:
		imm, ok := inst.Args[0].(x86asm.Imm)
		return ok && imm == 3
	}
	return false
}

// layout describes which machine arguments fill the microcode slots.
type layout int

const (
	layoutUse    layout = iota // l=a0 r=a1
	layoutDef                  // d=a0
	layoutMove                 // l=a1 d=a0
	layoutUnary                // l=a0 d=a0
	layoutBinary               // l=a0 r=a1 d=a0
)

func layoutOf(inst *x86asm.Inst) layout {
	switch inst.Op {
	case x86asm.POP,
		x86asm.SETA, x86asm.SETAE, x86asm.SETB, x86asm.SETBE,
		x86asm.SETE, x86asm.SETNE, x86asm.SETG, x86asm.SETGE,
		x86asm.SETL, x86asm.SETLE, x86asm.SETS, x86asm.SETNS:
		return layoutDef
	case x86asm.MOV, x86asm.MOVZX, x86asm.MOVSX, x86asm.MOVSXD, x86asm.LEA,
		x86asm.CMOVA, x86asm.CMOVAE, x86asm.CMOVB, x86asm.CMOVBE,
		x86asm.CMOVE, x86asm.CMOVNE, x86asm.CMOVG, x86asm.CMOVGE,
		x86asm.CMOVL, x86asm.CMOVLE, x86asm.CMOVS, x86asm.CMOVNS:
		return layoutMove
	case x86asm.NOT, x86asm.NEG, x86asm.INC, x86asm.DEC:
		return layoutUnary
	case x86asm.ADD, x86asm.ADC, x86asm.SUB, x86asm.SBB,
		x86asm.AND, x86asm.OR, x86asm.XOR, x86asm.XCHG,
		x86asm.SHL, x86asm.SHR, x86asm.SAR, x86asm.ROL, x86asm.ROR:
		return layoutBinary
	case x86asm.IMUL:
		if inst.Args[1] != nil {
			return layoutBinary
		}
	}
	return layoutUse
}
