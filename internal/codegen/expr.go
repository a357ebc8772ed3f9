package codegen

import (
	"latc/internal/ast"
	"latc/internal/diagnostics"
	"latc/internal/ltypes"
	"latc/internal/runtimeabi"
	"latc/internal/ssa"
)

func (fg *funcGen) lowerExpr(e ast.Expr) ssa.Value {
	switch n := e.(type) {
	case *ast.IntLit:
		return ssa.ConstInt(n.Value)
	case *ast.BoolLit:
		return ssa.ConstBool(n.Value)
	case *ast.StringLit:
		h := fg.g.module.Strings.Intern(n.Value)
		return ssa.ConstStr(n.Value, h)
	case *ast.NullLit:
		return ssa.ConstNull(n.Meta.Type)
	case *ast.Ident:
		return fg.lowerIdent(n)
	case *ast.SelfExpr:
		return fg.selfVal
	case *ast.Unary:
		return fg.lowerUnary(n)
	case *ast.Binary:
		return fg.lowerBinary(n)
	case *ast.Call:
		return fg.lowerCall(n)
	case *ast.FieldAccess:
		return fg.lowerFieldAccess(n)
	case *ast.IndexExpr:
		return fg.lowerIndex(n)
	case *ast.NewObject:
		return fg.lowerNewObject(n)
	case *ast.NewArray:
		return fg.lowerNewArray(n)
	case *ast.Cast:
		// The checker only ever accepts `(T) null` — every other cast form
		// is rejected before codegen ever sees it.
		return ssa.ConstNull(n.Target)
	case *ast.ArrayLenExpr:
		return fg.lowerArrayLen(n)
	default:
		diagnostics.Fail("codegen.lowerExpr", "unhandled expression node %T", e)
		return ssa.Value{}
	}
}

func (fg *funcGen) lowerIdent(n *ast.Ident) ssa.Value {
	if n.Meta.Binding != nil && n.Meta.Binding.Kind == ast.BindField {
		return fg.loadField(fg.selfVal, n.Meta.Binding.Slot, n.Meta.Type)
	}
	v, ok := fg.env.lookup(n.Name)
	if !ok {
		diagnostics.Fail("codegen.lowerIdent", "unbound identifier %q reached codegen", n.Name)
	}
	return v
}

func (fg *funcGen) loadField(recv ssa.Value, slot int, fieldType ltypes.Type) ssa.Value {
	ptr := fg.fieldPtr(recv, slot, fieldType)
	return fg.cur.Emit(ssa.Instr{Op: ssa.OpLoad, Dst: fg.fn.NewReg(), Type: fieldType, Args: []ssa.Value{ptr}})
}

func (fg *funcGen) lowerFieldAccess(n *ast.FieldAccess) ssa.Value {
	recv := fg.lowerExpr(n.Recv)
	ci, ok := fg.g.classes.Lookup(recv.Type.Name)
	if !ok {
		diagnostics.Fail("codegen.lowerFieldAccess", "receiver type %q is not a known class", recv.Type.Name)
	}
	field, ok := ci.FieldOffset(n.Name)
	if !ok {
		diagnostics.Fail("codegen.lowerFieldAccess", "class %q has no field %q", ci.Name, n.Name)
	}
	return fg.loadField(recv, field.Slot, field.Type)
}

func (fg *funcGen) lowerIndex(n *ast.IndexExpr) ssa.Value {
	arr := fg.lowerExpr(n.Array)
	idx := fg.lowerExpr(n.Index)
	elemType := n.Meta.Type
	ptr := fg.cur.Emit(ssa.Instr{Op: ssa.OpGEP, Dst: fg.fn.NewReg(), Type: elemType, Args: []ssa.Value{arr, idx}, GEP: ssa.GEPArrayElem})
	return fg.cur.Emit(ssa.Instr{Op: ssa.OpLoad, Dst: fg.fn.NewReg(), Type: elemType, Args: []ssa.Value{ptr}})
}

func (fg *funcGen) lowerArrayLen(n *ast.ArrayLenExpr) ssa.Value {
	arr := fg.lowerExpr(n.Array)
	ptr := fg.cur.Emit(ssa.Instr{Op: ssa.OpGEP, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{arr}, GEP: ssa.GEPArrayLength})
	return fg.cur.Emit(ssa.Instr{Op: ssa.OpLoad, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{ptr}})
}

func (fg *funcGen) lowerUnary(n *ast.Unary) ssa.Value {
	x := fg.lowerExpr(n.X)
	switch n.Op {
	case "-":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpNeg, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{x}})
	case "!":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpNot, Dst: fg.fn.NewReg(), Type: ltypes.Bool, Args: []ssa.Value{x}})
	default:
		diagnostics.Fail("codegen.lowerUnary", "unknown unary operator %q", n.Op)
		return ssa.Value{}
	}
}

func (fg *funcGen) lowerBinary(n *ast.Binary) ssa.Value {
	switch n.Op {
	case "&&":
		return fg.lowerAnd(n)
	case "||":
		return fg.lowerOr(n)
	}

	l := fg.lowerExpr(n.Left)
	r := fg.lowerExpr(n.Right)
	leftType := ast.MetaOf(n.Left).Type

	switch n.Op {
	case "+":
		if leftType.Kind == ltypes.KStr {
			return fg.cur.Emit(ssa.Instr{Op: ssa.OpCallDirect, Dst: fg.fn.NewReg(), Type: ltypes.Str, Args: []ssa.Value{l, r}, Callee: runtimeabi.StrConcat.Name})
		}
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpAdd, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{l, r}})
	case "-":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpSub, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{l, r}})
	case "*":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpMul, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{l, r}})
	case "/":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpSDiv, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{l, r}})
	case "%":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpSRem, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{l, r}})
	case "<":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpICmpSlt, Dst: fg.fn.NewReg(), Type: ltypes.Bool, Args: []ssa.Value{l, r}})
	case "<=":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpICmpSle, Dst: fg.fn.NewReg(), Type: ltypes.Bool, Args: []ssa.Value{l, r}})
	case ">":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpICmpSgt, Dst: fg.fn.NewReg(), Type: ltypes.Bool, Args: []ssa.Value{l, r}})
	case ">=":
		return fg.cur.Emit(ssa.Instr{Op: ssa.OpICmpSge, Dst: fg.fn.NewReg(), Type: ltypes.Bool, Args: []ssa.Value{l, r}})
	case "==":
		return fg.lowerEquality(true, leftType, l, r)
	case "!=":
		return fg.lowerEquality(false, leftType, l, r)
	default:
		diagnostics.Fail("codegen.lowerBinary", "unknown binary operator %q", n.Op)
		return ssa.Value{}
	}
}

// lowerEquality handles spec.md §4.4.1's string-equality gap: strings
// compare via a runtime call (no LLVM primitive compares string content),
// everything else — int, bool, object/array identity, null — compares
// directly. eq selects `==` (true) vs `!=` (false).
func (fg *funcGen) lowerEquality(eq bool, operandType ltypes.Type, l, r ssa.Value) ssa.Value {
	if operandType.Kind == ltypes.KStr {
		res := fg.cur.Emit(ssa.Instr{Op: ssa.OpCallDirect, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{l, r}, Callee: runtimeabi.StrEq.Name})
		op := ssa.OpICmpNe
		if eq {
			op = ssa.OpICmpEq
		}
		return fg.cur.Emit(ssa.Instr{Op: op, Dst: fg.fn.NewReg(), Type: ltypes.Bool, Args: []ssa.Value{res, ssa.ConstInt(0)}})
	}
	op := ssa.OpICmpEq
	if !eq {
		op = ssa.OpICmpNe
	}
	return fg.cur.Emit(ssa.Instr{Op: op, Dst: fg.fn.NewReg(), Type: ltypes.Bool, Args: []ssa.Value{l, r}})
}

// lowerAnd/lowerOr lower `&&`/`||` as explicit control flow with a join
// phi, per spec.md §4.4.1's literal description — never as an eager
// OpAnd/OpOr, so the right operand is only ever evaluated when it can
// affect the result.
func (fg *funcGen) lowerAnd(n *ast.Binary) ssa.Value {
	l := fg.lowerExpr(n.Left)
	entryLabel := fg.cur.Label()
	rhsLabel := fg.fn.NewLabel("and.rhs")
	doneLabel := fg.fn.NewLabel("and.end")

	fg.cur.SetCondBr(l, rhsLabel, doneLabel)
	fg.cur.Finalize()

	fg.openBlock(rhsLabel)
	r := fg.lowerExpr(n.Right)
	rhsLabelActual := fg.cur.Label()
	fg.cur.SetBr(doneLabel)
	fg.cur.Finalize()

	fg.openBlock(doneLabel)
	reg := fg.fn.NewReg()
	fg.cur.AddPhi(&ssa.Phi{Dst: reg, Type: ltypes.Bool, Incs: []ssa.Incoming{
		{Value: ssa.ConstBool(false), Pred: entryLabel},
		{Value: r, Pred: rhsLabelActual},
	}})
	return ssa.Reg(reg, ltypes.Bool)
}

func (fg *funcGen) lowerOr(n *ast.Binary) ssa.Value {
	l := fg.lowerExpr(n.Left)
	entryLabel := fg.cur.Label()
	rhsLabel := fg.fn.NewLabel("or.rhs")
	doneLabel := fg.fn.NewLabel("or.end")

	fg.cur.SetCondBr(l, doneLabel, rhsLabel)
	fg.cur.Finalize()

	fg.openBlock(rhsLabel)
	r := fg.lowerExpr(n.Right)
	rhsLabelActual := fg.cur.Label()
	fg.cur.SetBr(doneLabel)
	fg.cur.Finalize()

	fg.openBlock(doneLabel)
	reg := fg.fn.NewReg()
	fg.cur.AddPhi(&ssa.Phi{Dst: reg, Type: ltypes.Bool, Incs: []ssa.Incoming{
		{Value: ssa.ConstBool(true), Pred: entryLabel},
		{Value: r, Pred: rhsLabelActual},
	}})
	return ssa.Reg(reg, ltypes.Bool)
}

func (fg *funcGen) lowerCall(n *ast.Call) ssa.Value {
	if n.Recv == nil {
		return fg.lowerFreeCall(n)
	}
	return fg.lowerMethodCall(n)
}

// lowerFreeCall handles both user-declared free functions and the four
// implicit builtins (printInt/printString/readInt/readString) uniformly:
// neither case mangles its callee name, since Latte free functions share
// one flat namespace (spec.md §4.3).
func (fg *funcGen) lowerFreeCall(n *ast.Call) ssa.Value {
	args := make([]ssa.Value, 0, len(n.Args))
	for _, a := range n.Args {
		args = append(args, fg.lowerExpr(a))
	}
	retType := n.Meta.Type
	instr := ssa.Instr{Op: ssa.OpCallDirect, Type: retType, Args: args, Callee: n.Name}
	if retType.Kind != ltypes.KVoid {
		instr.Dst = fg.fn.NewReg()
		return fg.cur.Emit(instr)
	}
	fg.cur.Emit(instr)
	return ssa.Value{}
}

// lowerMethodCall resolves the receiver's static class, loads its vtable
// pointer from slot 0, indexes the method's slot to get a function
// pointer, then calls it indirectly with recv prepended as the implicit
// first argument (spec.md §4.4.4's virtual dispatch).
func (fg *funcGen) lowerMethodCall(n *ast.Call) ssa.Value {
	recv := fg.lowerExpr(n.Recv)
	ci, ok := fg.g.classes.Lookup(recv.Type.Name)
	if !ok {
		diagnostics.Fail("codegen.lowerMethodCall", "receiver type %q is not a known class", recv.Type.Name)
	}
	slot, ok := ci.MethodSlot(n.Name)
	if !ok {
		diagnostics.Fail("codegen.lowerMethodCall", "class %q has no method %q", ci.Name, n.Name)
	}

	paramTypes := make([]ltypes.Type, 0, len(slot.Decl.Params)+1)
	paramTypes = append(paramTypes, recv.Type)
	for _, p := range slot.Decl.Params {
		paramTypes = append(paramTypes, p.Type)
	}
	fnType := ltypes.Function(slot.Decl.ReturnType, paramTypes)

	vtablePtr := fg.vtablePtrSlot(recv)
	vtableVal := fg.cur.Emit(ssa.Instr{Op: ssa.OpLoad, Dst: fg.fn.NewReg(), Type: recv.Type, Args: []ssa.Value{vtablePtr}})
	fnPtrAddr := fg.cur.Emit(ssa.Instr{Op: ssa.OpGEP, Dst: fg.fn.NewReg(), Type: fnType, Args: []ssa.Value{vtableVal}, GEP: ssa.GEPVTableSlot, Slot: slot.Slot})
	fnPtr := fg.cur.Emit(ssa.Instr{Op: ssa.OpLoad, Dst: fg.fn.NewReg(), Type: fnType, Args: []ssa.Value{fnPtrAddr}})

	args := make([]ssa.Value, 0, len(n.Args)+1)
	args = append(args, recv)
	for _, a := range n.Args {
		args = append(args, fg.lowerExpr(a))
	}

	retType := n.Meta.Type
	instr := ssa.Instr{Op: ssa.OpCallIndirect, Type: retType, Args: append([]ssa.Value{fnPtr}, args...)}
	if retType.Kind != ltypes.KVoid {
		instr.Dst = fg.fn.NewReg()
		return fg.cur.Emit(instr)
	}
	fg.cur.Emit(instr)
	return ssa.Value{}
}

// lowerNewObject allocates a zeroed object through the shared
// __array_init__ runtime entry point (spec.md §6 gives no separate
// object-allocation symbol; it takes a byte count and returns zeroed
// memory), then writes the class's vtable address into the reserved
// slot 0 — every other field is left at the allocator's zero fill: 0 for
// int, false for boolean, and null for string, array and class fields.
func (fg *funcGen) lowerNewObject(n *ast.NewObject) ssa.Value {
	ci, ok := fg.g.classes.Lookup(n.ClassName)
	if !ok {
		diagnostics.Fail("codegen.lowerNewObject", "unknown class %q reached codegen", n.ClassName)
	}
	classType := ltypes.Class(n.ClassName)
	words := int64(1 + len(ci.Fields))
	bytes := ssa.ConstInt(words * WordBytes)

	obj := fg.cur.Emit(ssa.Instr{Op: ssa.OpCallDirect, Dst: fg.fn.NewReg(), Type: classType, Args: []ssa.Value{bytes}, Callee: runtimeabi.ArrayInit.Name})

	vtableAddr := ssa.ConstGlobalAddr(n.ClassName+".vtable", classType)
	slotPtr := fg.vtablePtrSlot(obj)
	fg.cur.Emit(ssa.Instr{Op: ssa.OpStore, Type: classType, Args: []ssa.Value{slotPtr, vtableAddr}})
	return obj
}

// lowerNewArray allocates size+1 words (one header word for the length,
// then size element words), again through __array_init__, and records
// the element count in the header.
func (fg *funcGen) lowerNewArray(n *ast.NewArray) ssa.Value {
	size := fg.lowerExpr(n.Size)
	arrType := ltypes.Array(n.ElemType)

	elemWords := fg.cur.Emit(ssa.Instr{Op: ssa.OpMul, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{size, ssa.ConstInt(WordBytes)}})
	bytes := fg.cur.Emit(ssa.Instr{Op: ssa.OpAdd, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{elemWords, ssa.ConstInt(WordBytes)}})

	arr := fg.cur.Emit(ssa.Instr{Op: ssa.OpCallDirect, Dst: fg.fn.NewReg(), Type: arrType, Args: []ssa.Value{bytes}, Callee: runtimeabi.ArrayInit.Name})

	lenPtr := fg.cur.Emit(ssa.Instr{Op: ssa.OpGEP, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{arr}, GEP: ssa.GEPArrayLength})
	fg.cur.Emit(ssa.Instr{Op: ssa.OpStore, Type: ltypes.Int, Args: []ssa.Value{lenPtr, size}})
	return arr
}
