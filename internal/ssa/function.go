package ssa

import (
	"fmt"

	"latc/internal/ltypes"
)

// ParamIR is a lowered function's formal parameter: its source name (not
// used by the printer, which names every register %rN), declared type,
// and the register handle bound to it on entry.
type ParamIR struct {
	Name string
	Type ltypes.Type
	Reg  int
}

// FunctionIR is the ordered list of basic blocks spec.md §3 describes,
// with the entry block always first.
type FunctionIR struct {
	Name       string
	OwnerClass string // "" for free functions
	Params     []ParamIR
	ReturnType ltypes.Type
	Blocks     []*BasicBlock
}

// ClassIR is the generator's per-class emission unit (spec.md §4.4.4): the
// struct layout (vtable pointer implicit at slot 0, then parent fields,
// then own fields) and the vtable's function-name ordering.
type ClassIR struct {
	Name        string
	Parent      string
	FieldTypes  []ltypes.Type
	FieldNames  []string
	VTableFuncs []string // fully-qualified lowered function name per slot
}

// Module is everything a compilation unit's SSA lowering produces: every
// function, every class layout, and the deduplicated string-literal pool.
type Module struct {
	Functions []*FunctionIR
	Classes   []*ClassIR
	Strings   *StringPool
}

func NewModule() *Module {
	return &Module{Strings: NewStringPool()}
}

// StringPool is the process-local (spec.md §9), per-compilation dedup map
// from literal content to a stable pool index.
type StringPool struct {
	order   []string
	index   map[string]int
}

func NewStringPool() *StringPool {
	return &StringPool{index: map[string]int{}}
}

func (p *StringPool) Intern(s string) int {
	if idx, ok := p.index[s]; ok {
		return idx
	}
	idx := len(p.order)
	p.order = append(p.order, s)
	p.index[s] = idx
	return idx
}

func (p *StringPool) Entries() []string { return p.order }

// FunctionBuilder is the live FunctionContext of spec.md §4.4: a
// monotonically increasing register counter, the blocks published so
// far, and the register-substitution map trivial-phi elimination fills
// in (see subst.go).
type FunctionBuilder struct {
	Name       string
	OwnerClass string
	Params     []ParamIR
	ReturnType ltypes.Type

	nextReg    int
	labelSeq   map[string]int
	blocks     []*BasicBlock
	subst      map[int]int
}

func NewFunctionBuilder(name, ownerClass string, ret ltypes.Type) *FunctionBuilder {
	return &FunctionBuilder{
		Name: name, OwnerClass: ownerClass, ReturnType: ret,
		labelSeq: map[string]int{},
		subst:    map[int]int{},
	}
}

// NewReg hands out the next register id. Ids are never reused; a register
// retired by trivial-phi elimination just leaves a gap.
func (f *FunctionBuilder) NewReg() int {
	id := f.nextReg
	f.nextReg++
	return id
}

// NewLabel generates a unique block label from a human-readable prefix,
// e.g. "if.then", "while.header" — for readability in emitted IR.
func (f *FunctionBuilder) NewLabel(prefix string) string {
	n := f.labelSeq[prefix]
	f.labelSeq[prefix] = n + 1
	return fmt.Sprintf("%s%d", prefix, n)
}

func (f *FunctionBuilder) NewBlock(label string) *BlockBuilder {
	return newBlockBuilder(f, label)
}

func (f *FunctionBuilder) publish(b *BasicBlock) {
	f.blocks = append(f.blocks, b)
}

// AddParam records a formal parameter and allocates its entry register.
func (f *FunctionBuilder) AddParam(name string, t ltypes.Type) int {
	reg := f.NewReg()
	f.Params = append(f.Params, ParamIR{Name: name, Type: t, Reg: reg})
	return reg
}

// Finish runs trivial-phi elimination to a fixpoint (subst.go), rewrites
// every remaining operand register through the resulting substitution,
// recomputes each block's predecessor set from the final terminators, and
// returns the immutable FunctionIR. This is the one point in the pipeline
// where the "BlockBuilder register renumbering" discipline of spec.md
// §4.4.3 actually runs.
func (f *FunctionBuilder) Finish() *FunctionIR {
	eliminateTrivialPhis(f.blocks, f.subst)
	rewriteRegisters(f.blocks, f.subst)
	computePredecessors(f.blocks)

	return &FunctionIR{
		Name: f.Name, OwnerClass: f.OwnerClass,
		Params: f.Params, ReturnType: f.ReturnType,
		Blocks: f.blocks,
	}
}

func computePredecessors(blocks []*BasicBlock) {
	byLabel := make(map[string]*BasicBlock, len(blocks))
	for _, b := range blocks {
		b.Predecessors = nil
		byLabel[b.Label] = b
	}
	for _, b := range blocks {
		switch b.Terminator.Kind {
		case TermBr:
			if t, ok := byLabel[b.Terminator.Target]; ok {
				t.addPredecessor(b.Label)
			}
		case TermCondBr:
			if t, ok := byLabel[b.Terminator.IfTrue]; ok {
				t.addPredecessor(b.Label)
			}
			if t, ok := byLabel[b.Terminator.IfFalse]; ok {
				t.addPredecessor(b.Label)
			}
		}
	}
}
