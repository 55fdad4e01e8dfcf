package x86

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/arch/x86/x86asm"

	"github.com/roach88/msig/internal/ir"
)

// ErrEmpty is returned when a function body holds no instructions.
var ErrEmpty = errors.New("empty function body")

// decoded is one machine instruction and its address.
type decoded struct {
	addr uint64
	inst x86asm.Inst
}

// Lift decodes code as the body of one 64-bit function loaded at entry and
// converts it to microcode. The whole slice is decoded; trailing padding
// is harmless.
func Lift(code []byte, entry uint64, name string) (*ir.Function, error) {
	insns, err := decode(code, entry)
	if err != nil {
		return nil, err
	}
	if len(insns) == 0 {
		return nil, ErrEmpty
	}

	l := &lifter{
		start:  entry,
		end:    entry + uint64(len(code)),
		blocks: leaders(insns, entry, entry+uint64(len(code))),
	}

	fn := &ir.Function{
		Entry:  entry,
		Name:   name,
		Blocks: make([]ir.Block, len(l.blocks)),
	}
	cur := -1
	for i := range insns {
		d := &insns[i]
		if idx, ok := l.blockOf(d.addr); ok {
			cur = idx
		}
		if isPadding(&d.inst) {
			continue
		}
		fn.Blocks[cur].Insns = append(fn.Blocks[cur].Insns, l.instruction(d))
	}
	return fn, nil
}

func decode(code []byte, entry uint64) ([]decoded, error) {
	var insns []decoded
	for off := 0; off < len(code); {
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil {
			return nil, fmt.Errorf("decode at %#x: %w", entry+uint64(off), err)
		}
		insns = append(insns, decoded{addr: entry + uint64(off), inst: inst})
		off += inst.Len
	}
	return insns, nil
}

// leaders returns the sorted start addresses of the basic blocks: the
// entry, every in-function branch target that starts an instruction, and
// every instruction that follows a block terminator.
func leaders(insns []decoded, start, end uint64) []uint64 {
	starts := make(map[uint64]bool, len(insns))
	for _, d := range insns {
		starts[d.addr] = true
	}

	set := map[uint64]bool{start: true}
	for _, d := range insns {
		if !endsBlock(d.inst.Op) {
			continue
		}
		next := d.addr + uint64(d.inst.Len)
		if next < end {
			set[next] = true
		}
		if !isBranch(d.inst.Op) {
			continue
		}
		if rel, ok := d.inst.Args[0].(x86asm.Rel); ok {
			target := uint64(int64(next) + int64(rel))
			if target >= start && target < end && starts[target] {
				set[target] = true
			}
		}
	}

	out := make([]uint64, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	slices.Sort(out)
	return out
}

type lifter struct {
	start, end uint64
	blocks     []uint64
}

func (l *lifter) blockOf(addr uint64) (int, bool) {
	return slices.BinarySearch(l.blocks, addr)
}

func (l *lifter) instruction(d *decoded) ir.Instruction {
	inst := &d.inst
	next := d.addr + uint64(inst.Len)

	code, known := opcodeOf(inst.Op)
	if !known {
		return ir.Instruction{
			Opcode: opOther,
			L:      ir.Operand{Kind: ir.KindHelper, Text: inst.Op.String()},
			R:      l.operand(inst, 0, next),
			D:      l.operand(inst, 1, next),
		}
	}

	out := ir.Instruction{Opcode: code}
	switch layoutOf(inst) {
	case layoutUse:
		out.L = l.operand(inst, 0, next)
		out.R = l.operand(inst, 1, next)
	case layoutDef:
		out.D = l.operand(inst, 0, next)
	case layoutMove:
		out.L = l.operand(inst, 1, next)
		out.D = l.operand(inst, 0, next)
	case layoutUnary:
		out.L = l.operand(inst, 0, next)
		out.D = l.operand(inst, 0, next)
	case layoutBinary:
		if inst.Args[2] != nil {
			// imul r, r/m, imm
			out.L = l.operand(inst, 1, next)
			out.R = l.operand(inst, 2, next)
		} else {
			out.L = l.operand(inst, 0, next)
			out.R = l.operand(inst, 1, next)
		}
		out.D = l.operand(inst, 0, next)
	}
	return out
}

func (l *lifter) operand(inst *x86asm.Inst, i int, next uint64) ir.Operand {
	switch arg := inst.Args[i].(type) {
	case nil:
		return ir.Operand{}
	case x86asm.Reg:
		return ir.Operand{Kind: ir.KindRegister, Size: regSize(arg)}
	case x86asm.Imm:
		return ir.Operand{Kind: ir.KindNumber, Size: dataSize(inst), Value: uint64(arg)}
	case x86asm.Rel:
		target := uint64(int64(next) + int64(arg))
		if target >= l.start && target < l.end {
			if idx, ok := l.blockOf(target); ok {
				return ir.Operand{Kind: ir.KindBlock, Block: int32(idx)}
			}
		}
		return external()
	case x86asm.Mem:
		return memory(arg, int32(inst.MemBytes))
	default:
		return ir.Operand{Kind: ir.KindHelper, Text: arg.String()}
	}
}

// external is the operand for a branch or call leaving the function. The
// target address differs between binaries, so only its kind is kept.
func external() ir.Operand {
	return ir.Operand{
		Kind: ir.KindAddress,
		Size: 8,
		Ref:  &ir.Operand{Kind: ir.KindGlobal, Size: 8},
	}
}

func memory(m x86asm.Mem, size int32) ir.Operand {
	switch {
	case m.Index == 0 && isFrameReg(m.Base):
		return ir.Operand{Kind: ir.KindStack, Size: size}
	case m.Base == x86asm.RIP || m.Base == x86asm.EIP || (m.Base == 0 && m.Index == 0):
		return ir.Operand{Kind: ir.KindGlobal, Size: size}
	}

	addr := ir.Instruction{
		Opcode: opMem,
		R:      ir.Operand{Kind: ir.KindNumber, Size: 8, Value: uint64(m.Disp)},
	}
	if m.Base != 0 {
		addr.L = ir.Operand{Kind: ir.KindRegister, Size: regSize(m.Base)}
	}
	if m.Index != 0 {
		addr.D = ir.Operand{
			Kind: ir.KindNested,
			Size: regSize(m.Index),
			Insn: &ir.Instruction{
				Opcode: opScale,
				L:      ir.Operand{Kind: ir.KindRegister, Size: regSize(m.Index)},
				R:      ir.Operand{Kind: ir.KindNumber, Size: 1, Value: uint64(m.Scale)},
			},
		}
	}
	return ir.Operand{Kind: ir.KindNested, Size: size, Insn: &addr}
}

func isFrameReg(r x86asm.Reg) bool {
	switch r {
	case x86asm.RSP, x86asm.RBP, x86asm.ESP, x86asm.EBP:
		return true
	}
	return false
}

// regSize returns the width in bytes of a general purpose register, 16 for
// vector registers and 8 for everything else.
func regSize(r x86asm.Reg) int32 {
	switch {
	case r >= x86asm.AL && r <= x86asm.R15B:
		return 1
	case r >= x86asm.AX && r <= x86asm.R15W:
		return 2
	case r >= x86asm.EAX && r <= x86asm.R15L:
		return 4
	case r >= x86asm.X0 && r <= x86asm.X15:
		return 16
	}
	return 8
}

func dataSize(inst *x86asm.Inst) int32 {
	if inst.DataSize == 0 {
		return 8
	}
	return int32(inst.DataSize / 8)
}
