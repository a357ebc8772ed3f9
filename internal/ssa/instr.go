package ssa

import "latc/internal/ltypes"

// Op enumerates every non-terminator, non-phi instruction kind spec.md §3
// lists: arithmetic/compare binary ops, unary neg/not, load, store, GEP,
// and call (direct or indirect).
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpSDiv
	OpSRem
	OpICmpEq
	OpICmpNe
	OpICmpSlt // strictly less-than: `<`
	OpICmpSle // less-or-equal: `<=` — kept distinct from Slt per spec.md §9's open question
	OpICmpSgt
	OpICmpSge
	OpNeg
	OpNot
	OpLoad
	OpStore
	OpGEP
	OpCallDirect
	OpCallIndirect
	OpBitcastNull // zero bit-cast of `null` to a class/array pointer type
)

// GEPKind distinguishes the four getelementptr shapes the generator
// emits, so the printer can pick the right index sequence without
// re-deriving it from the operand types.
type GEPKind int

const (
	GEPField GEPKind = iota
	GEPVTableSlot
	GEPArrayElem
	GEPArrayLength
)

// Instr is a single non-terminator instruction. Dst is meaningless (zero
// value, never referenced) for Store. Args holds operand values in a
// fixed, op-specific order shared by the emitting code in internal/codegen
// and the printer in internal/irprint.
type Instr struct {
	Op     Op
	Dst    int
	Type   ltypes.Type
	Args   []Value
	GEP    GEPKind
	Slot   int    // field slot / vtable slot / array-header offset, depending on GEP
	Callee string // direct-call target name; empty for indirect calls
}

// Incoming is one (value, predecessor) pair of a phi node.
type Incoming struct {
	Value Value
	Pred  string
}

// Phi is spec.md §3's phi pseudo-instruction: exactly one incoming value
// per predecessor label in the owning block's Predecessors set.
type Phi struct {
	Dst  int
	Type ltypes.Type
	Incs []Incoming
}

// TermKind enumerates the four terminator shapes every basic block ends
// in exactly one of.
type TermKind int

const (
	TermBr TermKind = iota
	TermCondBr
	TermRet
	TermRetVoid
)

type Terminator struct {
	Kind    TermKind
	Cond    Value  // TermCondBr
	Target  string // TermBr
	IfTrue  string // TermCondBr
	IfFalse string // TermCondBr
	Value   Value  // TermRet
}
