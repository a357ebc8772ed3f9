// Package ssa implements the in-memory SSA IR of spec.md §3: values,
// instructions, basic blocks, and whole functions in SSA form, plus the
// BlockBuilder machinery spec.md §4.4.3 calls out as the trickiest part
// of the generator — reconciling loop-header phis, whose incoming values
// aren't known until the loop body has been lowered, with a register
// numbering scheme that must stay internally consistent.
package ssa

import "latc/internal/ltypes"

// ConstKind distinguishes the four literal forms spec.md §3 allows as a
// Value: int, bool, a dedup'd string-literal handle, and null.
type ConstKind int

const (
	CInt ConstKind = iota
	CBool
	CStr
	CNull
	CGlobalAddr // address of a module-level global (a class's vtable)
)

// Const is a compile-time-known value. For CStr, Handle indexes the
// module's (per spec.md §9, process-local) string pool; Str itself is
// kept only for readability in tests and debug output. For CGlobalAddr,
// Str holds the referenced global's symbol name.
type Const struct {
	Kind   ConstKind
	Int    int64
	Bool   bool
	Str    string
	Handle int
}

// Value is either a constant or a register handle, exactly as spec.md §3
// defines it. Reg == -1 marks a constant value; a non-negative Reg is a
// register handle `%k`.
type Value struct {
	Reg   int
	Const *Const
	Type  ltypes.Type
}

func ConstInt(v int64) Value  { return Value{Reg: -1, Const: &Const{Kind: CInt, Int: v}, Type: ltypes.Int} }
func ConstBool(v bool) Value  { return Value{Reg: -1, Const: &Const{Kind: CBool, Bool: v}, Type: ltypes.Bool} }
func ConstNull(t ltypes.Type) Value {
	return Value{Reg: -1, Const: &Const{Kind: CNull}, Type: t}
}
func ConstStr(s string, handle int) Value {
	return Value{Reg: -1, Const: &Const{Kind: CStr, Str: s, Handle: handle}, Type: ltypes.Str}
}

// ConstGlobalAddr references a module-level global by name (used for a
// class's vtable address when writing it into a fresh object's slot 0).
func ConstGlobalAddr(name string, t ltypes.Type) Value {
	return Value{Reg: -1, Const: &Const{Kind: CGlobalAddr, Str: name}, Type: t}
}

func Reg(id int, t ltypes.Type) Value { return Value{Reg: id, Type: t} }

func (v Value) IsConst() bool { return v.Const != nil }
func (v Value) IsReg() bool   { return v.Const == nil }

// ValuesEqual reports whether two values are the same constant or the
// same register — used both by trivial-phi elimination and by codegen's
// control-flow merge logic to decide whether a join actually needs a phi.
func ValuesEqual(a, b Value) bool {
	if a.IsReg() != b.IsReg() {
		return false
	}
	if a.IsReg() {
		return a.Reg == b.Reg
	}
	if a.Const.Kind != b.Const.Kind {
		return false
	}
	switch a.Const.Kind {
	case CInt:
		return a.Const.Int == b.Const.Int
	case CBool:
		return a.Const.Bool == b.Const.Bool
	case CStr:
		return a.Const.Handle == b.Const.Handle
	case CNull:
		return true
	case CGlobalAddr:
		return a.Const.Str == b.Const.Str
	}
	return false
}
