package ir

import "encoding/binary"

// Canonical produces the canonical encoding of a function's microcode.
// CRITICAL: This is the ONLY encoding that may feed a signature digest.
// Two functions that differ only in register or stack allocation produce
// byte-identical output.
func Canonical(fn *Function) []byte {
	if fn == nil {
		return nil
	}
	return AppendFunction(nil, fn)
}

// AppendFunction appends every instruction of every block, in block order.
func AppendFunction(buf []byte, fn *Function) []byte {
	for _, blk := range fn.Blocks {
		for i := range blk.Insns {
			buf = AppendInstruction(buf, &blk.Insns[i])
		}
	}
	return buf
}

// AppendInstruction appends the opcode followed by the left, right and
// destination operands. All three slots are always written so that operand
// arity stays positionally encoded.
func AppendInstruction(buf []byte, insn *Instruction) []byte {
	buf = append(buf, insn.Opcode)
	buf = AppendOperand(buf, &insn.L)
	buf = AppendOperand(buf, &insn.R)
	buf = AppendOperand(buf, &insn.D)
	return buf
}

// AppendOperand appends the tag, the size and the kind-specific payload of
// one operand.
func AppendOperand(buf []byte, op *Operand) []byte {
	// All locations are treated as one kind
	if op.Kind.IsLocation() {
		buf = append(buf, byte(KindStack))
	} else {
		buf = append(buf, byte(op.Kind))
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(op.Size))

	switch op.Kind {
	case KindNumber:
		buf = binary.LittleEndian.AppendUint64(buf, op.Value)
	case KindNested:
		if op.Insn != nil {
			buf = AppendInstruction(buf, op.Insn)
		}
	case KindBlock:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(op.Block))
	case KindArgs:
		// Argument contents are not part of the signature.
	case KindAddress:
		if op.Ref != nil {
			buf = AppendOperand(buf, op.Ref)
		}
	case KindHelper, KindString, KindFloat:
		buf = append(buf, op.Text...)
	case KindCases:
		for _, t := range op.Targets {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(t))
		}
	case KindPair:
		if op.Lo != nil {
			buf = AppendOperand(buf, op.Lo)
		}
		if op.Hi != nil {
			buf = AppendOperand(buf, op.Hi)
		}
	}
	return buf
}
