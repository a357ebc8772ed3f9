package codegen

import (
	"sort"

	"latc/internal/ssa"
)

// env is the per-function value environment spec.md §4.4 calls out: a
// stack of scopes mapping a source variable name to the register (or
// constant) currently holding its value. Only locals and parameters live
// here — fields and array elements are memory, reached through GEP/load/
// store, never through this map.
type env struct {
	frames []map[string]ssa.Value
}

func newEnv() *env {
	return &env{frames: []map[string]ssa.Value{{}}}
}

func (e *env) push() { e.frames = append(e.frames, map[string]ssa.Value{}) }
func (e *env) pop()  { e.frames = e.frames[:len(e.frames)-1] }

func (e *env) declare(name string, v ssa.Value) {
	e.frames[len(e.frames)-1][name] = v
}

// assign updates name's binding in whichever enclosing frame declared it.
// The checker has already guaranteed name resolves to a local or param,
// so the walk always finds it.
func (e *env) assign(name string, v ssa.Value) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if _, ok := e.frames[i][name]; ok {
			e.frames[i][name] = v
			return
		}
	}
}

func (e *env) lookup(name string) (ssa.Value, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if v, ok := e.frames[i][name]; ok {
			return v, true
		}
	}
	return ssa.Value{}, false
}

// clone deep-copies the frame stack so two branches of a conditional (or
// a loop header vs. its body) can diverge independently before being
// merged back at a join point.
func (e *env) clone() *env {
	frames := make([]map[string]ssa.Value, len(e.frames))
	for i, f := range e.frames {
		nf := make(map[string]ssa.Value, len(f))
		for k, v := range f {
			nf[k] = v
		}
		frames[i] = nf
	}
	return &env{frames: frames}
}

// snapshot flattens the visible bindings into one map, innermost frame
// winning. Used only to compare two branches' end states at a join.
func (e *env) snapshot() map[string]ssa.Value {
	flat := map[string]ssa.Value{}
	for _, f := range e.frames {
		for k, v := range f {
			flat[k] = v
		}
	}
	return flat
}

// sortedNames returns m's keys in a fixed order. Iterating a Go map
// directly would make phi-insertion order (and hence the printed IR)
// depend on map hash randomization; sorting keeps codegen deterministic
// (spec.md §8).
func sortedNames(m map[string]ssa.Value) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
