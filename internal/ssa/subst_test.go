package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"latc/internal/ltypes"
)

// TestTrivialValue_SingleIncoming checks that a phi with only one distinct
// incoming value (ignoring a possible self-reference on a back edge) is
// recognized as trivial, per spec.md §4.4.3's Braun-et-al. elimination.
func TestTrivialValue_SingleIncoming(t *testing.T) {
	p := &Phi{Dst: 3, Type: ltypes.Int, Incs: []Incoming{
		{Value: Reg(1, ltypes.Int), Pred: "a"},
		{Value: Reg(1, ltypes.Int), Pred: "b"},
	}}
	v, ok := trivialValue(p)
	assert.True(t, ok)
	assert.True(t, ValuesEqual(v, Reg(1, ltypes.Int)))
}

func TestTrivialValue_SelfReferenceIgnored(t *testing.T) {
	p := &Phi{Dst: 5, Type: ltypes.Int, Incs: []Incoming{
		{Value: Reg(2, ltypes.Int), Pred: "entry"},
		{Value: Reg(5, ltypes.Int), Pred: "loop.body"}, // back-edge self-reference
	}}
	v, ok := trivialValue(p)
	assert.True(t, ok)
	assert.True(t, ValuesEqual(v, Reg(2, ltypes.Int)))
}

func TestTrivialValue_GenuinelyDivergent(t *testing.T) {
	p := &Phi{Dst: 3, Type: ltypes.Int, Incs: []Incoming{
		{Value: Reg(1, ltypes.Int), Pred: "a"},
		{Value: Reg(2, ltypes.Int), Pred: "b"},
	}}
	_, ok := trivialValue(p)
	assert.False(t, ok)
}

func TestEliminateTrivialPhis_ChainCollapses(t *testing.T) {
	// %1 is a loop-header phi carrying a variable the body never actually
	// reassigns (its only non-self incoming is the pre-loop value %0); %2
	// is a second phi that is always exactly %1. Both must be removed by
	// the fixpoint pass (spec.md §4.4.3), and a later use of %2 should
	// resolve all the way through to %0.
	entry := &BasicBlock{Label: "entry", Terminator: Terminator{Kind: TermBr, Target: "header"}}
	header := &BasicBlock{
		Label: "header",
		Phis: []*Phi{
			{Dst: 1, Type: ltypes.Int, Incs: []Incoming{
				{Value: Reg(0, ltypes.Int), Pred: "entry"},
				{Value: Reg(1, ltypes.Int), Pred: "header"},
			}},
			{Dst: 2, Type: ltypes.Int, Incs: []Incoming{
				{Value: Reg(1, ltypes.Int), Pred: "entry"},
				{Value: Reg(1, ltypes.Int), Pred: "header"},
			}},
		},
		Body:       []Instr{{Op: OpAdd, Dst: 3, Type: ltypes.Int, Args: []Value{Reg(2, ltypes.Int), ConstInt(1)}}},
		Terminator: Terminator{Kind: TermRet, Value: Reg(3, ltypes.Int)},
	}
	blocks := []*BasicBlock{entry, header}
	subst := map[int]int{}

	eliminateTrivialPhis(blocks, subst)
	rewriteRegisters(blocks, subst)

	assert.Empty(t, header.Phis, "both phis should have collapsed")
	assert.True(t, ValuesEqual(header.Body[0].Args[0], Reg(0, ltypes.Int)), "uses of %%2 should resolve through %%1 all the way to %%0")
}

func TestComputePredecessors(t *testing.T) {
	a := &BasicBlock{Label: "a", Terminator: Terminator{Kind: TermCondBr, IfTrue: "b", IfFalse: "c"}}
	b := &BasicBlock{Label: "b", Terminator: Terminator{Kind: TermBr, Target: "c"}}
	c := &BasicBlock{Label: "c", Terminator: Terminator{Kind: TermRetVoid}}
	blocks := []*BasicBlock{a, b, c}

	computePredecessors(blocks)

	assert.Empty(t, a.Predecessors)
	assert.Equal(t, []string{"a"}, b.Predecessors)
	assert.ElementsMatch(t, []string{"a", "b"}, c.Predecessors)
}
