// Package runtimeabi is the one source of truth for the C runtime's
// symbol table spec.md §6 fixes bit-exact: names and signatures that
// codegen calls into and the printer declares. Signatures are built from
// github.com/llir/llvm/ir/types value objects rather than hand-formatted
// strings, so the canonical LLVM type syntax (".String()") can never drift
// between a call site and its declaration.
package runtimeabi

import "github.com/llir/llvm/ir/types"

// Symbol is a single runtime helper: its linkage name and its LLVM
// function signature.
type Symbol struct {
	Name   string
	Sig    *types.FuncType
}

// Declaration renders this symbol's `declare` line the way the printer
// wants it: return type, name, and parenthesized parameter list, all via
// the types package's own String() so it can never diverge from what a
// call site's Sig also renders.
func (s Symbol) Declaration() string {
	params := ""
	for i, p := range s.Sig.Params {
		if i > 0 {
			params += ", "
		}
		params += p.String()
	}
	return "declare " + s.Sig.RetType.String() + " @" + s.Name + "(" + params + ")"
}

var i8ptr = types.NewPointer(types.I8)

var (
	PrintInt    = Symbol{Name: "printInt", Sig: types.NewFunc(types.Void, types.I32)}
	PrintString = Symbol{Name: "printString", Sig: types.NewFunc(types.Void, i8ptr)}
	ReadInt     = Symbol{Name: "readInt", Sig: types.NewFunc(types.I32)}
	ReadString  = Symbol{Name: "readString", Sig: types.NewFunc(i8ptr)}
	Error       = Symbol{Name: "error", Sig: types.NewFunc(types.Void)}
	StrInit     = Symbol{Name: "__str_init__", Sig: types.NewFunc(i8ptr, types.I32)}
	StrConcat   = Symbol{Name: "__str_concat__", Sig: types.NewFunc(i8ptr, i8ptr, i8ptr)}
	ArrayInit   = Symbol{Name: "__array_init__", Sig: types.NewFunc(i8ptr, types.I32)}
	// StrEq is not in spec.md's §6 ABI table, but §4.4.1 requires a
	// runtime equality call for string ==/!=, compared against 0 the way
	// C's strcmp is. Added here rather than invented ad hoc at the call
	// site so codegen and the printer share one declaration of it.
	StrEq = Symbol{Name: "__str_eq__", Sig: types.NewFunc(types.I32, i8ptr, i8ptr)}
)

// All lists every runtime symbol in the stable declaration order the
// printer emits them in, regardless of which ones a given program
// actually references.
var All = []Symbol{PrintInt, PrintString, ReadInt, ReadString, Error, StrInit, StrConcat, ArrayInit, StrEq}

// ByName indexes All for the printer's UsedSymbols, which only knows a
// call's callee name (e.g. the free-function names `printInt`/`readString`/... Latte
// source is allowed to call directly).
var ByName = func() map[string]Symbol {
	m := make(map[string]Symbol, len(All))
	for _, s := range All {
		m[s.Name] = s
	}
	return m
}()

// PointerType is the universal pointer-sized representation spec.md §6
// gives every object and array reference: i8* cast at the use site to
// the word pointer the printer addresses slots through.
var PointerType = i8ptr
