package codegen

import "latc/internal/ast"

// carriedVars syntactically pre-scans a loop body for every variable name
// that is reassigned somewhere inside it, restricted to names already
// live at loop entry (known). This is the pre-scan spec.md §4.4.2/§4.4.3
// requires so the header's placeholder phis can be allocated before the
// body is lowered: a variable's register only needs a header phi if the
// body can actually redefine it.
//
// The scan deliberately does not try to determine whether an inner block
// shadows a carried name with its own declaration first — it is always
// safe to over-approximate the carried set (an unnecessary phi is just
// trivial: the SSA builder's own substitution pass removes it when its
// one value is a register and keeps it, still valid, when that value is a
// constant), but unsafe to under-approximate it.
func carriedVars(body ast.Stmt, known map[string]bool) []string {
	seen := map[string]bool{}
	var order []string
	add := func(name string) {
		if known[name] && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	var walkExpr func(ast.Expr)
	walkExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Unary:
			walkExpr(n.X)
		case *ast.Binary:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.Call:
			if n.Recv != nil {
				walkExpr(n.Recv)
			}
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.FieldAccess:
			walkExpr(n.Recv)
		case *ast.IndexExpr:
			walkExpr(n.Array)
			walkExpr(n.Index)
		case *ast.ArrayLenExpr:
			walkExpr(n.Array)
		case *ast.NewArray:
			walkExpr(n.Size)
		case *ast.Cast:
			walkExpr(n.X)
		}
	}
	var walk func(ast.Stmt)
	walk = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.Block:
			for _, st := range n.Stmts {
				walk(st)
			}
		case *ast.DeclStmt:
			for _, it := range n.Items {
				if it.Init != nil {
					walkExpr(it.Init)
				}
			}
		case *ast.AssignStmt:
			if id, ok := n.Target.(*ast.Ident); ok {
				add(id.Name)
			}
			walkExpr(n.Target)
			walkExpr(n.Value)
		case *ast.IncDecStmt:
			if id, ok := n.Target.(*ast.Ident); ok {
				add(id.Name)
			}
			walkExpr(n.Target)
		case *ast.ReturnStmt:
			if n.Value != nil {
				walkExpr(n.Value)
			}
		case *ast.ExprStmt:
			walkExpr(n.X)
		case *ast.IfStmt:
			walkExpr(n.Cond)
			walk(n.Then)
			if n.Else != nil {
				walk(n.Else)
			}
		case *ast.WhileStmt:
			walkExpr(n.Cond)
			walk(n.Body)
		case *ast.ForEachStmt:
			walkExpr(n.Array)
			walk(n.Body)
		}
	}
	walk(body)
	return order
}
