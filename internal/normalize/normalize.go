// Package normalize implements spec.md §4.2's block normalizer: it
// decides, per function, whether the body "definitely returns" on every
// reachable path, reports MissingReturn for non-void functions that
// don't, and appends an implicit `return;` to void functions that don't
// already terminate.
//
// Folding must run before this phase: `if(true) S`/`if(false) S` and
// `while(true) S` only analyze as definitely-returning once their
// condition is a literal (spec.md §4.2).
package normalize

import (
	"latc/internal/ast"
	"latc/internal/diagnostics"
	"latc/internal/ltypes"
)

// Normalize walks every function and method body, reporting MissingReturn
// into bag for non-void functions whose body isn't definitely-returning,
// and appending an implicit return to void functions that need one.
func Normalize(prog *ast.Program, bag *diagnostics.Bag) {
	for _, fn := range prog.Functions {
		normalizeFunc(fn, bag)
	}
	for _, cd := range prog.Classes {
		for _, m := range cd.Methods {
			normalizeFunc(m, bag)
		}
	}
}

func normalizeFunc(fn *ast.FuncDecl, bag *diagnostics.Bag) {
	if fn.ReturnType.Kind == ltypes.KVoid {
		if !definitelyReturns(fn.Body) {
			fn.Body.Stmts = append(fn.Body.Stmts, &ast.ReturnStmt{Meta: fn.Body.Meta})
		}
		return
	}
	if !definitelyReturns(fn.Body) {
		bag.AddAt(fn.Meta.Offset, diagnostics.MissingReturn,
			"function \""+fn.Name+"\" does not return on every path")
	}
}

// definitelyReturns implements the rules of spec.md §4.2 exactly.
func definitelyReturns(s ast.Stmt) bool {
	switch n := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.Block:
		if len(n.Stmts) == 0 {
			return false
		}
		return definitelyReturns(n.Stmts[len(n.Stmts)-1])
	case *ast.IfStmt:
		if lit, ok := n.Cond.(*ast.BoolLit); ok {
			if lit.Value {
				return definitelyReturns(n.Then)
			}
			if n.Else != nil {
				return definitelyReturns(n.Else)
			}
			return false
		}
		if n.Else == nil {
			return false
		}
		return definitelyReturns(n.Then) && definitelyReturns(n.Else)
	case *ast.WhileStmt:
		if lit, ok := n.Cond.(*ast.BoolLit); ok && lit.Value {
			// `while(true) S` with no reachable break — the language has
			// no break statement, so the loop only exits via a `return`
			// inside the body (or never).
			return true
		}
		return false
	default:
		return false
	}
}
