package ssa

// BasicBlock is spec.md §3's block shape: a label, an ordered phi list,
// an ordered body of non-terminator instructions, exactly one terminator,
// and the set of predecessor labels every phi must cover.
type BasicBlock struct {
	Label        string
	Phis         []*Phi
	Body         []Instr
	Terminator   Terminator
	Predecessors []string
}

func (b *BasicBlock) addPredecessor(label string) {
	for _, p := range b.Predecessors {
		if p == label {
			return
		}
	}
	b.Predecessors = append(b.Predecessors, label)
}

// BlockBuilder is the append-only construction buffer spec.md §4.4.3 and
// §9 describe: a block accumulates phis and body instructions while it is
// "open", and is only handed to the function's block list when Finalize
// is called. A loop header is published as soon as its conditional branch
// is set, before its body is lowered; its phis stay reachable through the
// *Phi pointers the generator keeps, and the back-edge incoming values are
// appended to them after the body has been lowered.
type BlockBuilder struct {
	fn    *FunctionBuilder
	block *BasicBlock
}

func newBlockBuilder(fn *FunctionBuilder, label string) *BlockBuilder {
	return &BlockBuilder{fn: fn, block: &BasicBlock{Label: label}}
}

func (bb *BlockBuilder) Label() string { return bb.block.Label }

// Emit appends a non-terminator instruction and returns its Value.
func (bb *BlockBuilder) Emit(in Instr) Value {
	bb.block.Body = append(bb.block.Body, in)
	return Reg(in.Dst, in.Type)
}

// AddPhi opens a phi with no incoming values yet — a placeholder, per
// spec.md §4.4.3, that is completed later by appending to its Incs (the
// caller keeps the *Phi) once the block(s)
// that branch into this one are known (the defining case is a while
// loop's header, whose back-edge predecessor is only known after the
// loop body has been lowered).
func (bb *BlockBuilder) AddPhi(p *Phi) { bb.block.Phis = append(bb.block.Phis, p) }

// SetBr/SetCondBr/SetRet/SetRetVoid set this block's terminator. Calling
// more than one of these on the same builder is a codegen bug (the
// generator never does it) and simply leaves the last call's terminator
// in place — blocks are internal to a single codegen pass, not a public
// API that needs to defend against misuse.
func (bb *BlockBuilder) SetBr(target string) {
	bb.block.Terminator = Terminator{Kind: TermBr, Target: target}
}

func (bb *BlockBuilder) SetCondBr(cond Value, ifTrue, ifFalse string) {
	bb.block.Terminator = Terminator{Kind: TermCondBr, Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}
}

func (bb *BlockBuilder) SetRet(v Value) {
	bb.block.Terminator = Terminator{Kind: TermRet, Value: v}
}

func (bb *BlockBuilder) SetRetVoid() {
	bb.block.Terminator = Terminator{Kind: TermRetVoid}
}

// Finalize appends this block to the function's block list (predecessor
// edges are derived from the terminators later, in Finish), returning the now-immutable-by-convention *BasicBlock. The pointer
// stays reachable through FunctionBuilder so a later trivial-phi
// elimination pass (see subst.go) can still rewrite its instructions'
// operands in place even after publication.
func (bb *BlockBuilder) Finalize() *BasicBlock {
	bb.fn.publish(bb.block)
	return bb.block
}
