// Package constfold implements the purely syntactic constant folder of
// spec.md §4.1: it rewrites literal-only subexpressions to literals,
// including short-circuit collapsing of && / || against a constant left
// operand (a constant right operand is left as is), and traps division/modulo by zero in literal context as a
// ConstOverflow diagnostic. Folding never touches non-literal operands,
// so running it twice is idempotent (spec.md §8).
package constfold

import (
	"latc/internal/ast"
	"latc/internal/diagnostics"
)

// Fold rewrites every function body and method body in prog, returning
// a new Program value (rewrites produce new expression nodes,
// never mutate the input tree in place, per spec.md §3's "Lifecycles").
func Fold(prog *ast.Program, bag *diagnostics.Bag) *ast.Program {
	f := &folder{bag: bag}
	out := &ast.Program{}
	for _, fn := range prog.Functions {
		out.Functions = append(out.Functions, f.foldFunc(fn))
	}
	for _, cd := range prog.Classes {
		nc := *cd
		nc.Methods = nil
		for _, m := range cd.Methods {
			nc.Methods = append(nc.Methods, f.foldFunc(m))
		}
		out.Classes = append(out.Classes, &nc)
	}
	return out
}

type folder struct{ bag *diagnostics.Bag }

func (f *folder) foldFunc(fn *ast.FuncDecl) *ast.FuncDecl {
	nf := *fn
	nf.Body = f.foldBlock(fn.Body)
	return &nf
}

func (f *folder) foldBlock(b *ast.Block) *ast.Block {
	nb := &ast.Block{Meta: b.Meta}
	for _, s := range b.Stmts {
		nb.Stmts = append(nb.Stmts, f.foldStmt(s))
	}
	return nb
}

func (f *folder) foldStmt(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.Block:
		return f.foldBlock(n)
	case *ast.DeclStmt:
		nd := *n
		nd.Items = nil
		for _, it := range n.Items {
			ni := it
			if it.Init != nil {
				ni.Init = f.foldExpr(it.Init)
			}
			nd.Items = append(nd.Items, ni)
		}
		return &nd
	case *ast.AssignStmt:
		nn := *n
		nn.Value = f.foldExpr(n.Value)
		return &nn
	case *ast.IncDecStmt:
		return n
	case *ast.ReturnStmt:
		nn := *n
		if n.Value != nil {
			nn.Value = f.foldExpr(n.Value)
		}
		return &nn
	case *ast.ExprStmt:
		nn := *n
		nn.X = f.foldExpr(n.X)
		return &nn
	case *ast.IfStmt:
		nn := *n
		nn.Cond = f.foldExpr(n.Cond)
		nn.Then = f.foldStmt(n.Then)
		if n.Else != nil {
			nn.Else = f.foldStmt(n.Else)
		}
		return &nn
	case *ast.WhileStmt:
		nn := *n
		nn.Cond = f.foldExpr(n.Cond)
		nn.Body = f.foldStmt(n.Body)
		return &nn
	case *ast.ForEachStmt:
		nn := *n
		nn.Array = f.foldExpr(n.Array)
		nn.Body = f.foldStmt(n.Body)
		return &nn
	default:
		return s
	}
}

func (f *folder) foldExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.Unary:
		x := f.foldExpr(n.X)
		if lit, ok := x.(*ast.IntLit); ok && n.Op == "-" {
			return &ast.IntLit{Value: -lit.Value, Meta: n.Meta}
		}
		if lit, ok := x.(*ast.BoolLit); ok && n.Op == "!" {
			return &ast.BoolLit{Value: !lit.Value, Meta: n.Meta}
		}
		return &ast.Unary{Op: n.Op, X: x, Meta: n.Meta}
	case *ast.Binary:
		return f.foldBinary(n)
	case *ast.Call:
		nn := *n
		if n.Recv != nil {
			nn.Recv = f.foldExpr(n.Recv)
		}
		nn.Args = nil
		for _, a := range n.Args {
			nn.Args = append(nn.Args, f.foldExpr(a))
		}
		return &nn
	case *ast.FieldAccess:
		nn := *n
		nn.Recv = f.foldExpr(n.Recv)
		return &nn
	case *ast.ArrayLenExpr:
		nn := *n
		nn.Array = f.foldExpr(n.Array)
		return &nn
	case *ast.IndexExpr:
		nn := *n
		nn.Array = f.foldExpr(n.Array)
		nn.Index = f.foldExpr(n.Index)
		return &nn
	case *ast.NewArray:
		nn := *n
		nn.Size = f.foldExpr(n.Size)
		return &nn
	case *ast.Cast:
		nn := *n
		nn.X = f.foldExpr(n.X)
		return &nn
	default:
		return e
	}
}

func (f *folder) foldBinary(n *ast.Binary) ast.Expr {
	left := f.foldExpr(n.Left)
	right := f.foldExpr(n.Right)

	if n.Op == "&&" || n.Op == "||" {
		if lit, ok := left.(*ast.BoolLit); ok {
			// Short-circuit collapse: constant left operand decides
			// whether the result is always `left` or always `right`,
			// per the language's left-to-right short-circuit semantics.
			if n.Op == "&&" {
				if !lit.Value {
					return &ast.BoolLit{Value: false, Meta: n.Meta}
				}
				return right
			}
			if lit.Value {
				return &ast.BoolLit{Value: true, Meta: n.Meta}
			}
			return right
		}
		return &ast.Binary{Op: n.Op, Left: left, Right: right, Meta: n.Meta}
	}

	li, lok := left.(*ast.IntLit)
	ri, rok := right.(*ast.IntLit)
	if lok && rok {
		switch n.Op {
		case "+":
			return &ast.IntLit{Value: li.Value + ri.Value, Meta: n.Meta}
		case "-":
			return &ast.IntLit{Value: li.Value - ri.Value, Meta: n.Meta}
		case "*":
			return &ast.IntLit{Value: li.Value * ri.Value, Meta: n.Meta}
		case "/":
			if ri.Value == 0 {
				f.bag.AddAt(n.Meta.Offset, diagnostics.ConstOverflow, "division by zero in constant expression")
				return &ast.Binary{Op: n.Op, Left: left, Right: right, Meta: n.Meta}
			}
			return &ast.IntLit{Value: li.Value / ri.Value, Meta: n.Meta}
		case "%":
			if ri.Value == 0 {
				f.bag.AddAt(n.Meta.Offset, diagnostics.ConstOverflow, "modulo by zero in constant expression")
				return &ast.Binary{Op: n.Op, Left: left, Right: right, Meta: n.Meta}
			}
			return &ast.IntLit{Value: li.Value % ri.Value, Meta: n.Meta}
		case "<":
			return &ast.BoolLit{Value: li.Value < ri.Value, Meta: n.Meta}
		case "<=":
			return &ast.BoolLit{Value: li.Value <= ri.Value, Meta: n.Meta}
		case ">":
			return &ast.BoolLit{Value: li.Value > ri.Value, Meta: n.Meta}
		case ">=":
			return &ast.BoolLit{Value: li.Value >= ri.Value, Meta: n.Meta}
		case "==":
			return &ast.BoolLit{Value: li.Value == ri.Value, Meta: n.Meta}
		case "!=":
			return &ast.BoolLit{Value: li.Value != ri.Value, Meta: n.Meta}
		}
	}

	lb, lbok := left.(*ast.BoolLit)
	rb, rbok := right.(*ast.BoolLit)
	if lbok && rbok {
		switch n.Op {
		case "==":
			return &ast.BoolLit{Value: lb.Value == rb.Value, Meta: n.Meta}
		case "!=":
			return &ast.BoolLit{Value: lb.Value != rb.Value, Meta: n.Meta}
		}
	}

	ls, lsok := left.(*ast.StringLit)
	rs, rsok := right.(*ast.StringLit)
	if lsok && rsok && n.Op == "+" {
		return &ast.StringLit{Value: ls.Value + rs.Value, Meta: n.Meta}
	}

	return &ast.Binary{Op: n.Op, Left: left, Right: right, Meta: n.Meta}
}
