package codegen

import (
	"fmt"

	"latc/internal/ast"
	"latc/internal/check"
	"latc/internal/diagnostics"
	"latc/internal/ltypes"
	"latc/internal/ssa"
)

// funcGen is one function's FunctionContext (spec.md §4.4): the builder
// accumulating registers and blocks, the live variable environment, the
// block currently receiving instructions, and (for methods) the implicit
// self value.
type funcGen struct {
	g       *gen
	fn      *ssa.FunctionBuilder
	env     *env
	cur     *ssa.BlockBuilder
	class   *check.ClassInfo
	selfVal ssa.Value

	// terminated is true exactly when cur has just been given a
	// terminator and finalized — nothing may be emitted into it until a
	// fresh block is opened.
	terminated bool
	tmpSeq     int
}

func (g *gen) lowerFunction(fn *ast.FuncDecl, owner *check.ClassInfo) *ssa.FunctionIR {
	name := fn.Name
	ownerName := ""
	if owner != nil {
		name = methodSymbol(owner.Name, fn.Name)
		ownerName = owner.Name
	}

	builder := ssa.NewFunctionBuilder(name, ownerName, fn.ReturnType)
	fg := &funcGen{g: g, fn: builder, env: newEnv(), class: owner}

	if owner != nil {
		selfType := ltypes.Class(owner.Name)
		reg := builder.AddParam("self", selfType)
		fg.selfVal = ssa.Reg(reg, selfType)
	}
	for _, p := range fn.Params {
		reg := builder.AddParam(p.Name, p.Type)
		fg.env.declare(p.Name, ssa.Reg(reg, p.Type))
	}

	fg.openBlock(builder.NewLabel("entry"))
	fg.lowerBlock(fn.Body)

	if !fg.terminated {
		// Only a block the normalizer proved unreachable at run time ends
		// here unterminated (after `if (true) return ...;` or the exit of
		// `while (true)`); close it so the IR stays well formed.
		if fn.ReturnType.Kind == ltypes.KVoid {
			fg.cur.SetRetVoid()
		} else {
			fg.cur.SetRet(fg.zeroValue(fn.ReturnType))
		}
		fg.cur.Finalize()
	}

	return builder.Finish()
}

func (fg *funcGen) openBlock(label string) {
	fg.cur = fg.fn.NewBlock(label)
	fg.terminated = false
}

func (fg *funcGen) freshTemp(prefix string) string {
	fg.tmpSeq++
	return fmt.Sprintf("$%s%d", prefix, fg.tmpSeq)
}

// ---- Statements ----

func (fg *funcGen) lowerBlock(b *ast.Block) {
	fg.env.push()
	defer fg.env.pop()
	for _, s := range b.Stmts {
		if fg.terminated {
			return
		}
		fg.lowerStmt(s)
	}
}

func (fg *funcGen) lowerStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		fg.lowerBlock(n)
	case *ast.EmptyStmt:
	case *ast.DeclStmt:
		fg.lowerDecl(n)
	case *ast.AssignStmt:
		fg.lowerAssign(n)
	case *ast.IncDecStmt:
		fg.lowerIncDec(n)
	case *ast.ReturnStmt:
		fg.lowerReturn(n)
	case *ast.ExprStmt:
		fg.lowerExpr(n.X)
	case *ast.IfStmt:
		fg.lowerIf(n)
	case *ast.WhileStmt:
		fg.lowerWhile(n)
	case *ast.ForEachStmt:
		fg.lowerForEach(n)
	default:
		diagnostics.Fail("codegen.lowerStmt", "unhandled statement node %T", s)
	}
}

func (fg *funcGen) lowerDecl(n *ast.DeclStmt) {
	for _, it := range n.Items {
		var v ssa.Value
		if it.Init != nil {
			v = fg.lowerExpr(it.Init)
		} else {
			v = fg.zeroValue(n.Type)
		}
		fg.env.declare(it.Name, v)
	}
}

func (fg *funcGen) zeroValue(t ltypes.Type) ssa.Value {
	switch t.Kind {
	case ltypes.KInt:
		return ssa.ConstInt(0)
	case ltypes.KBool:
		return ssa.ConstBool(false)
	case ltypes.KStr:
		h := fg.g.module.Strings.Intern("")
		return ssa.ConstStr("", h)
	default: // KClass, KArray
		return ssa.ConstNull(t)
	}
}

func (fg *funcGen) lowerAssign(n *ast.AssignStmt) {
	v := fg.lowerExpr(n.Value)
	fg.storeTo(n.Target, v)
}

func (fg *funcGen) lowerIncDec(n *ast.IncDecStmt) {
	cur := fg.lowerExpr(n.Target)
	op := ssa.OpAdd
	if n.Op == "--" {
		op = ssa.OpSub
	}
	next := fg.cur.Emit(ssa.Instr{Op: op, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{cur, ssa.ConstInt(1)}})
	fg.storeTo(n.Target, next)
}

func (fg *funcGen) lowerReturn(n *ast.ReturnStmt) {
	if n.Value == nil {
		fg.cur.SetRetVoid()
	} else {
		fg.cur.SetRet(fg.lowerExpr(n.Value))
	}
	fg.cur.Finalize()
	fg.terminated = true
}

// storeTo writes v to an assignable expression: a local/param updates the
// environment binding directly (spec.md §4.4.2 — "no store"); a field or
// array element is real memory, reached through a GEP then a store.
func (fg *funcGen) storeTo(target ast.Expr, v ssa.Value) {
	switch n := target.(type) {
	case *ast.Ident:
		if n.Meta.Binding != nil && n.Meta.Binding.Kind == ast.BindField {
			ptr := fg.fieldPtr(fg.selfVal, n.Meta.Binding.Slot, n.Meta.Type)
			fg.cur.Emit(ssa.Instr{Op: ssa.OpStore, Type: v.Type, Args: []ssa.Value{ptr, v}})
			return
		}
		fg.env.assign(n.Name, v)
	case *ast.FieldAccess:
		recv := fg.lowerExpr(n.Recv)
		ci, _ := fg.g.classes.Lookup(recv.Type.Name)
		field, _ := ci.FieldOffset(n.Name)
		ptr := fg.fieldPtr(recv, field.Slot, field.Type)
		fg.cur.Emit(ssa.Instr{Op: ssa.OpStore, Type: v.Type, Args: []ssa.Value{ptr, v}})
	case *ast.IndexExpr:
		arr := fg.lowerExpr(n.Array)
		idx := fg.lowerExpr(n.Index)
		ptr := fg.cur.Emit(ssa.Instr{Op: ssa.OpGEP, Dst: fg.fn.NewReg(), Type: v.Type, Args: []ssa.Value{arr, idx}, GEP: ssa.GEPArrayElem})
		fg.cur.Emit(ssa.Instr{Op: ssa.OpStore, Type: v.Type, Args: []ssa.Value{ptr, v}})
	default:
		diagnostics.Fail("codegen.storeTo", "unassignable target %T", target)
	}
}

// fieldPtr computes the address of field slot fieldSlot within recv.
// Slot 0 is always the vtable pointer (spec.md §6), so field slots are
// offset by one from the resolved layout's own numbering.
func (fg *funcGen) fieldPtr(recv ssa.Value, fieldSlot int, fieldType ltypes.Type) ssa.Value {
	return fg.cur.Emit(ssa.Instr{Op: ssa.OpGEP, Dst: fg.fn.NewReg(), Type: fieldType, Args: []ssa.Value{recv}, GEP: ssa.GEPField, Slot: fieldSlot + 1})
}

func (fg *funcGen) vtablePtrSlot(recv ssa.Value) ssa.Value {
	return fg.cur.Emit(ssa.Instr{Op: ssa.OpGEP, Dst: fg.fn.NewReg(), Type: recv.Type, Args: []ssa.Value{recv}, GEP: ssa.GEPField, Slot: 0})
}

// ---- Control flow ----

func (fg *funcGen) liveNames() map[string]bool {
	names := map[string]bool{}
	for k := range fg.env.snapshot() {
		names[k] = true
	}
	return names
}

func envFromSnapshot(shape *env, snap map[string]ssa.Value) *env {
	e := shape.clone()
	for name, v := range snap {
		e.assign(name, v)
	}
	return e
}

func (fg *funcGen) lowerIf(n *ast.IfStmt) {
	cond := fg.lowerExpr(n.Cond)

	thenLabel := fg.fn.NewLabel("if.then")
	joinLabel := fg.fn.NewLabel("if.end")
	hasElse := n.Else != nil
	elseLabel := joinLabel
	if hasElse {
		elseLabel = fg.fn.NewLabel("if.else")
	}

	entryLabel := fg.cur.Label()
	fg.cur.SetCondBr(cond, thenLabel, elseLabel)
	fg.cur.Finalize()
	fg.terminated = true

	base := fg.env.clone()

	fg.env = base.clone()
	fg.openBlock(thenLabel)
	fg.lowerStmt(n.Then)
	thenReaches := !fg.terminated
	var thenSnap map[string]ssa.Value
	thenLabelActual := thenLabel
	if thenReaches {
		thenSnap = fg.env.snapshot()
		thenLabelActual = fg.cur.Label()
		fg.cur.SetBr(joinLabel)
		fg.cur.Finalize()
		fg.terminated = true
	}

	var elseReaches bool
	var elseSnap map[string]ssa.Value
	elseLabelActual := entryLabel
	if hasElse {
		fg.env = base.clone()
		fg.openBlock(elseLabel)
		fg.lowerStmt(n.Else)
		elseReaches = !fg.terminated
		if elseReaches {
			elseSnap = fg.env.snapshot()
			elseLabelActual = fg.cur.Label()
			fg.cur.SetBr(joinLabel)
			fg.cur.Finalize()
			fg.terminated = true
		}
	} else {
		elseReaches = true
		elseSnap = base.snapshot()
	}

	if !thenReaches && !elseReaches {
		// Both branches terminate; nothing reaches the join at all, so
		// don't bother opening it — the enclosing block is done too.
		fg.terminated = true
		return
	}

	fg.openBlock(joinLabel)
	switch {
	case thenReaches && elseReaches:
		merged := base.clone()
		for _, name := range sortedNames(base.snapshot()) {
			tv, ev := thenSnap[name], elseSnap[name]
			if ssa.ValuesEqual(tv, ev) {
				merged.assign(name, tv)
				continue
			}
			reg := fg.fn.NewReg()
			phi := &ssa.Phi{Dst: reg, Type: tv.Type, Incs: []ssa.Incoming{
				{Value: tv, Pred: thenLabelActual},
				{Value: ev, Pred: elseLabelActual},
			}}
			fg.cur.AddPhi(phi)
			merged.assign(name, ssa.Reg(reg, tv.Type))
		}
		fg.env = merged
	case thenReaches:
		fg.env = envFromSnapshot(base, thenSnap)
	default:
		fg.env = envFromSnapshot(base, elseSnap)
	}
}

// lowerLoopCFG builds the header/body/after template spec.md §4.4.2
// describes, used by both while and for-each. carriedNames lists every
// variable the header needs a placeholder phi for; lowerCond/lowerBody
// run with fg.cur pointed at the right block and fg.env holding the
// right bindings.
func (fg *funcGen) lowerLoopCFG(carriedNames []string, lowerCond func() ssa.Value, lowerBody func()) {
	preLabel := fg.cur.Label()
	headerLabel := fg.fn.NewLabel("loop.header")
	bodyLabel := fg.fn.NewLabel("loop.body")
	afterLabel := fg.fn.NewLabel("loop.end")

	fg.cur.SetBr(headerLabel)
	fg.cur.Finalize()
	fg.terminated = true

	base := fg.env.clone()
	baseSnap := base.snapshot()

	fg.openBlock(headerLabel)
	header := fg.cur
	headerEnv := base.clone()
	phis := make(map[string]*ssa.Phi, len(carriedNames))
	for _, name := range carriedNames {
		bv := baseSnap[name]
		reg := fg.fn.NewReg()
		phi := &ssa.Phi{Dst: reg, Type: bv.Type, Incs: []ssa.Incoming{{Value: bv, Pred: preLabel}}}
		header.AddPhi(phi)
		headerEnv.assign(name, ssa.Reg(reg, bv.Type))
		phis[name] = phi
	}
	fg.env = headerEnv

	cond := lowerCond()
	fg.cur.SetCondBr(cond, bodyLabel, afterLabel)
	fg.cur.Finalize()
	fg.terminated = true

	fg.env = headerEnv.clone()
	fg.openBlock(bodyLabel)
	lowerBody()
	if !fg.terminated {
		bodySnap := fg.env.snapshot()
		bodyLabelActual := fg.cur.Label()
		fg.cur.SetBr(headerLabel)
		fg.cur.Finalize()
		fg.terminated = true
		for _, name := range carriedNames {
			phis[name].Incs = append(phis[name].Incs, ssa.Incoming{Value: bodySnap[name], Pred: bodyLabelActual})
		}
	}

	fg.env = headerEnv.clone()
	fg.openBlock(afterLabel)
}

func (fg *funcGen) lowerWhile(n *ast.WhileStmt) {
	carried := carriedVars(n.Body, fg.liveNames())
	fg.lowerLoopCFG(carried,
		func() ssa.Value { return fg.lowerExpr(n.Cond) },
		func() { fg.lowerStmt(n.Body) },
	)
}

// lowerForEach desugars `for (T x : arr) body` into an index-counted
// while loop over a length snapshotted once at loop entry (spec.md §9's
// resolution of the for-each-during-mutation open question): the array
// length is read before the loop, not on every iteration, so appending
// to (or otherwise growing) arr mid-loop — not that Latte exposes a way
// to do so — could never extend the iteration.
func (fg *funcGen) lowerForEach(n *ast.ForEachStmt) {
	arrVal := fg.lowerExpr(n.Array)
	lenPtr := fg.cur.Emit(ssa.Instr{Op: ssa.OpGEP, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{arrVal}, GEP: ssa.GEPArrayLength})
	lenVal := fg.cur.Emit(ssa.Instr{Op: ssa.OpLoad, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{lenPtr}})

	idxName := fg.freshTemp("idx")
	fg.env.declare(idxName, ssa.ConstInt(0))

	carried := append([]string{idxName}, carriedVars(n.Body, fg.liveNames())...)

	fg.lowerLoopCFG(carried,
		func() ssa.Value {
			idxVal, _ := fg.env.lookup(idxName)
			return fg.cur.Emit(ssa.Instr{Op: ssa.OpICmpSlt, Dst: fg.fn.NewReg(), Type: ltypes.Bool, Args: []ssa.Value{idxVal, lenVal}})
		},
		func() {
			idxVal, _ := fg.env.lookup(idxName)
			elemPtr := fg.cur.Emit(ssa.Instr{Op: ssa.OpGEP, Dst: fg.fn.NewReg(), Type: n.ElemType, Args: []ssa.Value{arrVal, idxVal}, GEP: ssa.GEPArrayElem})
			elemVal := fg.cur.Emit(ssa.Instr{Op: ssa.OpLoad, Dst: fg.fn.NewReg(), Type: n.ElemType, Args: []ssa.Value{elemPtr}})

			fg.env.push()
			fg.env.declare(n.VarName, elemVal)
			fg.lowerStmt(n.Body)
			fg.env.pop()

			if !fg.terminated {
				idxVal, _ = fg.env.lookup(idxName)
				next := fg.cur.Emit(ssa.Instr{Op: ssa.OpAdd, Dst: fg.fn.NewReg(), Type: ltypes.Int, Args: []ssa.Value{idxVal, ssa.ConstInt(1)}})
				fg.env.assign(idxName, next)
			}
		},
	)
}
