// Package codegen implements spec.md §4.4: the SSA code generator that
// walks a fully-checked AST one function at a time and lowers it into the
// internal/ssa IR, including class struct layouts and vtables (§4.4.4).
// It never reports a diagnostic — every shape it refuses to handle is a
// type-checker contract violation, reported via diagnostics.Fail.
package codegen

import (
	"latc/internal/ast"
	"latc/internal/check"
	"latc/internal/ssa"
)

// WordBytes is the pointer/word width spec.md §6's "all pointer-sized"
// object and array layouts are measured in: every struct slot and every
// array element occupies one word, and allocation sizes are computed as
// a word count regardless of a field's logical Latte type. The printer
// is responsible for bitcasting a generic word to the concrete LLVM type
// a load or store actually needs.
const WordBytes = 8

// methodSymbol is the lowered, linker-visible name of a method: the
// declaring class and the method name joined so two classes can each
// declare a method of the same name without colliding (free functions
// are never mangled, since Latte has only one flat free-function
// namespace).
func methodSymbol(className, methodName string) string {
	return className + "$" + methodName
}

type gen struct {
	module  *ssa.Module
	classes *check.ClassTable
	funcs   map[string]*ast.FuncDecl
}

// Generate lowers a fully type-checked program into a whole-module SSA
// IR: every free function, every class's struct/vtable layout, and every
// method, plus the deduplicated string pool codegen filled in along the
// way.
func Generate(res *check.Result) *ssa.Module {
	g := &gen{module: ssa.NewModule(), classes: res.Classes, funcs: res.Funcs}

	for _, fn := range res.Program.Functions {
		g.module.Functions = append(g.module.Functions, g.lowerFunction(fn, nil))
	}

	for _, cd := range res.Program.Classes {
		ci, ok := res.Classes.Lookup(cd.Name)
		if !ok {
			continue // not in the class table; nothing to lower
		}
		g.module.Classes = append(g.module.Classes, g.buildClassIR(ci))
		for _, m := range cd.Methods {
			g.module.Functions = append(g.module.Functions, g.lowerFunction(m, ci))
		}
	}

	return g.module
}

func (g *gen) buildClassIR(ci *check.ClassInfo) *ssa.ClassIR {
	parent := ""
	if ci.Parent != nil {
		parent = ci.Parent.Name
	}
	out := &ssa.ClassIR{Name: ci.Name, Parent: parent}
	for _, f := range ci.Fields {
		out.FieldTypes = append(out.FieldTypes, f.Type)
		out.FieldNames = append(out.FieldNames, f.Name)
	}
	for _, m := range ci.VTable {
		out.VTableFuncs = append(out.VTableFuncs, methodSymbol(m.DeclClass, m.Name))
	}
	return out
}
