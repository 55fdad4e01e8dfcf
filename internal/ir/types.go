package ir

import "fmt"

// Kind is the operand type tag. Values follow the decompiler's numbering
// and are written verbatim into the canonical encoding.
type Kind uint8

const (
	KindNone      Kind = 0  // absent operand
	KindRegister  Kind = 1  // micro register
	KindNumber    Kind = 2  // immediate constant
	KindString    Kind = 3  // string literal
	KindNested    Kind = 4  // result of a nested instruction
	KindStack     Kind = 5  // stack slot
	KindGlobal    Kind = 6  // global or virtual location
	KindBlock     Kind = 7  // basic block reference
	KindArgs      Kind = 8  // call argument list
	KindLocal     Kind = 9  // local variable
	KindAddress   Kind = 10 // address of another operand
	KindHelper    Kind = 11 // helper function name
	KindCases     Kind = 12 // jump table targets
	KindFloat     Kind = 13 // floating point constant
	KindPair      Kind = 14 // low/high operand pair
	KindScattered Kind = 15 // scattered location
)

var kindNames = map[Kind]string{
	KindNone:      "none",
	KindRegister:  "reg",
	KindNumber:    "num",
	KindString:    "str",
	KindNested:    "insn",
	KindStack:     "stack",
	KindGlobal:    "global",
	KindBlock:     "block",
	KindArgs:      "args",
	KindLocal:     "local",
	KindAddress:   "addr",
	KindHelper:    "helper",
	KindCases:     "cases",
	KindFloat:     "float",
	KindPair:      "pair",
	KindScattered: "scattered",
}

// String returns the short kind name used in IR files.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsLocation reports whether operands of this kind name a storage
// location whose identity depends on register or stack allocation.
func (k Kind) IsLocation() bool {
	return k == KindRegister || k == KindGlobal || k == KindStack
}

// ParseKind resolves a kind name as written in IR files.
func ParseKind(name string) (Kind, error) {
	if name == "" {
		return KindNone, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("unknown operand kind %q", name)
}

// Operand is a tagged variant over the microcode operand kinds.
// Kind selects which payload field is meaningful:
//
//	KindNumber            Value
//	KindNested            Insn
//	KindBlock             Block
//	KindAddress           Ref
//	KindHelper, KindString, KindFloat  Text
//	KindCases             Targets
//	KindArgs              Args
//	KindPair              Lo, Hi
//
// The location kinds carry no payload besides Size. The zero Operand is an
// absent operand.
type Operand struct {
	Kind    Kind
	Size    int32
	Value   uint64
	Insn    *Instruction
	Block   int32
	Ref     *Operand
	Text    string
	Targets []int32
	Args    []Operand
	Lo, Hi  *Operand
}

// Instruction is one microcode instruction: an opcode and its left, right
// and destination operands. Unused operand slots stay zero.
type Instruction struct {
	Opcode  uint8
	L, R, D Operand
}

// Block is a basic block: instructions in execution order.
type Block struct {
	Insns []Instruction
}

// Function is the microcode of one decompiled function. Entry and Name are
// supplied by the host, not derived from the blocks.
type Function struct {
	Entry  uint64
	Name   string
	Blocks []Block
}

// InsnCount returns the number of top-level instructions across all blocks.
func (f *Function) InsnCount() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Insns)
	}
	return n
}
