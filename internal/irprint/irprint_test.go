package irprint

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"latc/internal/ltypes"
	"latc/internal/ssa"
)

// TestPrint_StraightLineFunction pins the simplest possible module: one
// function, one block, no phis, no strings, no classes.
func TestPrint_StraightLineFunction(t *testing.T) {
	m := ssa.NewModule()
	fb := ssa.NewFunctionBuilder("main", "", ltypes.Int)
	entry := fb.NewBlock(fb.NewLabel("entry"))
	sum := entry.Emit(ssa.Instr{Op: ssa.OpAdd, Dst: fb.NewReg(), Type: ltypes.Int, Args: []ssa.Value{ssa.ConstInt(1), ssa.ConstInt(2)}})
	entry.SetRet(sum)
	entry.Finalize()
	m.Functions = append(m.Functions, fb.Finish())

	snaps.MatchSnapshot(t, "straight_line", Print(m))
}

// TestPrint_LoopWithPhi exercises the phi-printing path (and its
// predecessor-sorted incoming list) along with a runtime ABI call, so the
// emitted declaration block and the `call` instruction shape are both
// pinned.
func TestPrint_LoopWithPhi(t *testing.T) {
	m := ssa.NewModule()
	fb := ssa.NewFunctionBuilder("main", "", ltypes.Void)

	pre := fb.NewBlock(fb.NewLabel("entry"))
	pre.SetBr("header0")
	pre.Finalize()

	header := fb.NewBlock("header0")
	iReg := fb.NewReg()
	phi := &ssa.Phi{Dst: iReg, Type: ltypes.Int, Incs: []ssa.Incoming{{Value: ssa.ConstInt(0), Pred: "entry0"}}}
	header.AddPhi(phi)
	cond := header.Emit(ssa.Instr{Op: ssa.OpICmpSlt, Dst: fb.NewReg(), Type: ltypes.Bool, Args: []ssa.Value{ssa.Reg(iReg, ltypes.Int), ssa.ConstInt(3)}})
	header.SetCondBr(cond, "body0", "after0")
	header.Finalize()

	body := fb.NewBlock("body0")
	body.Emit(ssa.Instr{Op: ssa.OpCallDirect, Dst: fb.NewReg(), Type: ltypes.Void, Callee: "printInt", Args: []ssa.Value{ssa.Reg(iReg, ltypes.Int)}})
	next := body.Emit(ssa.Instr{Op: ssa.OpAdd, Dst: fb.NewReg(), Type: ltypes.Int, Args: []ssa.Value{ssa.Reg(iReg, ltypes.Int), ssa.ConstInt(1)}})
	body.SetBr("header0")
	body.Finalize()
	phi.Incs = append(phi.Incs, ssa.Incoming{Value: next, Pred: "body0"})

	after := fb.NewBlock("after0")
	after.SetRetVoid()
	after.Finalize()

	m.Functions = append(m.Functions, fb.Finish())

	snaps.MatchSnapshot(t, "loop_with_phi", Print(m))
}

// TestPrint_ClassWithVTable pins the vtable-global and string-pool
// printing paths together.
func TestPrint_ClassWithVTable(t *testing.T) {
	m := ssa.NewModule()
	m.Strings.Intern("hello")
	m.Classes = append(m.Classes, &ssa.ClassIR{
		Name:        "Shape",
		FieldTypes:  []ltypes.Type{ltypes.Int},
		FieldNames:  []string{"side"},
		VTableFuncs: []string{"Shape$area"},
	})

	fb := ssa.NewFunctionBuilder("Shape$area", "Shape", ltypes.Int)
	entry := fb.NewBlock(fb.NewLabel("entry"))
	entry.SetRet(ssa.ConstInt(0))
	entry.Finalize()
	m.Functions = append(m.Functions, fb.Finish())

	snaps.MatchSnapshot(t, "class_with_vtable", Print(m))
}

// TestPrint_Determinism directly pins spec.md §8's determinism invariant
// at the printer layer: printing the same Module twice must produce
// byte-identical text.
func TestPrint_Determinism(t *testing.T) {
	build := func() *ssa.Module {
		m := ssa.NewModule()
		m.Strings.Intern("a")
		m.Strings.Intern("b")
		fb := ssa.NewFunctionBuilder("main", "", ltypes.Int)
		entry := fb.NewBlock(fb.NewLabel("entry"))
		entry.SetRet(ssa.ConstInt(0))
		entry.Finalize()
		m.Functions = append(m.Functions, fb.Finish())
		return m
	}

	first := Print(build())
	second := Print(build())
	if first != second {
		t.Fatalf("printer is not deterministic:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}
