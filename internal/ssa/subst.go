package ssa

// eliminateTrivialPhis implements the Braun et al. trivial-phi removal
// spec.md §4.4.3 gestures at: a phi is trivial once every incoming value
// is either its own result (a self-reference on a back edge) or a single
// other value repeated. Such a phi contributes nothing and is replaced
// everywhere by that one other value. Removing one trivial phi can make
// another phi trivial (a chain through loop-carried variables), so each
// phi's incomings are resolved through subst before it is examined and
// this runs to a fixpoint.
//
// subst accumulates Dst -> replacement-register mappings; replacement may
// itself later be substituted again, so callers resolve through it with
// resolve (rewriteRegisters does so for every operand at the end).
func eliminateTrivialPhis(blocks []*BasicBlock, subst map[int]int) {
	for {
		changed := false
		for _, b := range blocks {
			kept := b.Phis[:0]
			for _, p := range b.Phis {
				for i := range p.Incs {
					if p.Incs[i].Value.IsReg() {
						p.Incs[i].Value.Reg = resolve(subst, p.Incs[i].Value.Reg)
					}
				}
				if same, ok := trivialValue(p); ok {
					if same.IsReg() {
						subst[p.Dst] = same.Reg
					} else {
						// A phi trivially equal to a constant has no
						// register to alias to; leave it in place with
						// its incomings as they are. Such a phi (e.g. a
						// header phi for a name the body only shadows,
						// or one whose back edge never arrives) is still
						// valid IR, so it is not modeled further.
						kept = append(kept, p)
						continue
					}
					changed = true
					continue
				}
				kept = append(kept, p)
			}
			b.Phis = kept
		}
		if !changed {
			return
		}
	}
}

// trivialValue reports the single distinct non-self incoming value of a
// phi, if one exists. A phi with only itself as an incoming value (never
// produced by the generator, but handled defensively) is not considered
// trivial here since it has no replacement.
func trivialValue(p *Phi) (Value, bool) {
	var found Value
	has := false
	for _, inc := range p.Incs {
		if inc.Value.IsReg() && inc.Value.Reg == p.Dst {
			continue // self-reference, ignore
		}
		if !has {
			found = inc.Value
			has = true
			continue
		}
		if !ValuesEqual(found, inc.Value) {
			return Value{}, false
		}
	}
	return found, has
}

// resolve follows the subst chain to its end, e.g. when phi A was
// replaced by register B, and B was itself later replaced by C.
func resolve(subst map[int]int, reg int) int {
	seen := map[int]bool{}
	for {
		next, ok := subst[reg]
		if !ok || seen[reg] {
			return reg
		}
		seen[reg] = true
		reg = next
	}
}

// rewriteRegisters applies subst (following each chain via resolve) to
// every register operand in every block: phi incomings, instruction args,
// and terminator operands. This is the "propagate the substitution to
// any block that transitively references those registers" step spec.md
// §4.4.3 calls out.
func rewriteRegisters(blocks []*BasicBlock, subst map[int]int) {
	if len(subst) == 0 {
		return
	}
	rewriteValue := func(v Value) Value {
		if v.IsReg() {
			v.Reg = resolve(subst, v.Reg)
		}
		return v
	}
	for _, b := range blocks {
		for _, p := range b.Phis {
			for i := range p.Incs {
				p.Incs[i].Value = rewriteValue(p.Incs[i].Value)
			}
		}
		for i := range b.Body {
			for j := range b.Body[i].Args {
				b.Body[i].Args[j] = rewriteValue(b.Body[i].Args[j])
			}
		}
		switch b.Terminator.Kind {
		case TermCondBr:
			b.Terminator.Cond = rewriteValue(b.Terminator.Cond)
		case TermRet:
			b.Terminator.Value = rewriteValue(b.Terminator.Value)
		}
	}
}
