package check

import (
	"strconv"

	"latc/internal/ast"
	"latc/internal/diagnostics"
	"latc/internal/ltypes"
)

// Result is everything later phases need out of the type checker: the
// resolved class table, the free-function table (the source program's
// functions plus the builtins printInt, printString, readInt and
// readString, which have no body), and the program as a now fully
// annotated AST (Meta.Type/Meta.Binding filled in on every node).
type Result struct {
	Classes *ClassTable
	Funcs   map[string]*ast.FuncDecl
	Program *ast.Program
}

// builtins seeds the function table with the four runtime I/O helpers a
// Latte program may call without declaring (spec.md §6's runtime ABI
// minus `error`, which generated code never calls directly from source).
// They carry no body; codegen recognizes them by name and never looks
// for a lowered definition.
func builtins() []*ast.FuncDecl {
	return []*ast.FuncDecl{
		{Name: "printInt", ReturnType: ltypes.Void, Params: []ast.Param{{Type: ltypes.Int, Name: "n"}}},
		{Name: "printString", ReturnType: ltypes.Void, Params: []ast.Param{{Type: ltypes.Str, Name: "s"}}},
		{Name: "readInt", ReturnType: ltypes.Int},
		{Name: "readString", ReturnType: ltypes.Str},
	}
}

// Check runs the single top-down pass of spec.md §4.3, annotating prog in
// place and collecting every independent violation into bag.
func Check(prog *ast.Program, bag *diagnostics.Bag) *Result {
	classes := buildClassTable(prog.Classes, bag)

	funcs := make(map[string]*ast.FuncDecl, len(prog.Functions))
	for _, b := range builtins() {
		funcs[b.Name] = b
	}
	for _, fn := range prog.Functions {
		if _, dup := funcs[fn.Name]; dup {
			bag.AddAt(fn.Meta.Offset, diagnostics.Redeclaration, "function \""+fn.Name+"\" is already declared")
			continue
		}
		funcs[fn.Name] = fn
	}

	checkEntryPoint(funcs, bag)

	c := &checker{bag: bag, classes: classes, funcs: funcs}
	for _, fn := range prog.Functions {
		c.checkFunc(fn, nil)
	}
	for _, cd := range prog.Classes {
		ci, ok := classes.Lookup(cd.Name)
		if !ok {
			continue
		}
		for _, m := range cd.Methods {
			c.checkFunc(m, ci)
		}
	}

	return &Result{Classes: classes, Funcs: funcs, Program: prog}
}

func checkEntryPoint(funcs map[string]*ast.FuncDecl, bag *diagnostics.Bag) {
	main, ok := funcs["main"]
	if !ok {
		bag.AddAt(0, diagnostics.BadEntry, "program has no \"main\" function")
		return
	}
	if !main.ReturnType.Equal(ltypes.Int) {
		bag.AddAt(main.Meta.Offset, diagnostics.BadEntry, "\"main\" must return int")
	}
	if len(main.Params) != 0 {
		bag.AddAt(main.Meta.Offset, diagnostics.BadEntry, "\"main\" must take no parameters")
	}
}

type checker struct {
	bag     *diagnostics.Bag
	classes *ClassTable
	funcs   map[string]*ast.FuncDecl
	class   *ClassInfo // current enclosing class, nil for free functions
	fn      *ast.FuncDecl
	scopes  *scopes
}

func (c *checker) checkFunc(fn *ast.FuncDecl, owner *ClassInfo) {
	prevClass, prevFn, prevScopes := c.class, c.fn, c.scopes
	c.class, c.fn, c.scopes = owner, fn, newScopes()
	defer func() { c.class, c.fn, c.scopes = prevClass, prevFn, prevScopes }()

	for i, p := range fn.Params {
		if c.scopes.declare(p.Name, symbol{typ: p.Type, declaredAt: p.Meta.Offset, kind: symParam, slot: i}) {
			c.bag.AddAt(p.Meta.Offset, diagnostics.Redeclaration, "parameter \""+p.Name+"\" is already declared")
		}
	}
	c.checkBlock(fn.Body)
}

func (c *checker) checkBlock(b *ast.Block) {
	c.scopes.push()
	defer c.scopes.pop()
	for _, s := range b.Stmts {
		c.checkStmt(s)
	}
}

func (c *checker) checkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		c.checkBlock(n)
	case *ast.EmptyStmt:
	case *ast.DeclStmt:
		c.checkDecl(n)
	case *ast.AssignStmt:
		c.checkAssign(n)
	case *ast.IncDecStmt:
		t := c.checkExpr(n.Target)
		if !t.Equal(ltypes.Int) {
			c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "operator \""+n.Op+"\" requires an int operand, found "+t.String())
		}
	case *ast.ReturnStmt:
		c.checkReturn(n)
	case *ast.ExprStmt:
		c.checkExpr(n.X)
	case *ast.IfStmt:
		c.checkCond(n.Cond)
		c.checkStmt(n.Then)
		if n.Else != nil {
			c.checkStmt(n.Else)
		}
	case *ast.WhileStmt:
		c.checkCond(n.Cond)
		c.checkStmt(n.Body)
	case *ast.ForEachStmt:
		c.checkForEach(n)
	default:
		diagnostics.Fail("check.checkStmt", "unhandled statement node %T", s)
	}
}

func (c *checker) checkCond(cond ast.Expr) {
	t := c.checkExpr(cond)
	if !t.Equal(ltypes.Bool) {
		c.bag.AddAt(ast.MetaOf(cond).Offset, diagnostics.TypeMismatch, "condition must be boolean, found "+t.String())
	}
}

func (c *checker) checkDecl(n *ast.DeclStmt) {
	for i := range n.Items {
		it := &n.Items[i]
		if it.Init != nil {
			vt := c.checkExpr(it.Init)
			if !ltypes.IsSubtype(vt, n.Type, c.classes) {
				c.bag.AddAt(it.Meta.Offset, diagnostics.TypeMismatch,
					"cannot initialize \""+it.Name+"\" of type "+n.Type.String()+" with value of type "+vt.String())
			}
		}
		if c.scopes.declare(it.Name, symbol{typ: n.Type, declaredAt: it.Meta.Offset, kind: symLocal}) {
			c.bag.AddAt(it.Meta.Offset, diagnostics.Redeclaration, "\""+it.Name+"\" is already declared in this scope")
		}
	}
}

func (c *checker) checkAssign(n *ast.AssignStmt) {
	lt := c.checkExpr(n.Target)
	switch n.Target.(type) {
	case *ast.Ident, *ast.FieldAccess, *ast.IndexExpr:
	default:
		c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "left-hand side of assignment is not assignable")
	}
	vt := c.checkExpr(n.Value)
	if !ltypes.IsSubtype(vt, lt, c.classes) {
		c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch,
			"cannot assign value of type "+vt.String()+" to target of type "+lt.String())
	}
}

func (c *checker) checkReturn(n *ast.ReturnStmt) {
	declared := c.fn.ReturnType
	if n.Value == nil {
		if declared.Kind != ltypes.KVoid {
			c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "missing return value, expected "+declared.String())
		}
		return
	}
	vt := c.checkExpr(n.Value)
	if declared.Kind == ltypes.KVoid {
		c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "void function must not return a value")
		return
	}
	if !ltypes.IsSubtype(vt, declared, c.classes) {
		c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch,
			"return value of type "+vt.String()+" is not compatible with declared return type "+declared.String())
	}
}

func (c *checker) checkForEach(n *ast.ForEachStmt) {
	at := c.checkExpr(n.Array)
	if at.Kind != ltypes.KArray {
		c.bag.AddAt(n.Meta.Offset, diagnostics.BadIndex, "for-each requires an array, found "+at.String())
	} else if !n.ElemType.Equal(*at.Elem) {
		c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch,
			"for-each element type "+n.ElemType.String()+" does not match array element type "+at.Elem.String())
	}
	c.scopes.push()
	defer c.scopes.pop()
	c.scopes.declare(n.VarName, symbol{typ: n.ElemType, declaredAt: n.Meta.Offset, kind: symLocal})
	c.checkStmt(n.Body)
}

// ---- Expressions ----

func (c *checker) checkExpr(e ast.Expr) ltypes.Type {
	t := c.inferExpr(e)
	ast.SetMetaType(e, t)
	return t
}

func (c *checker) inferExpr(e ast.Expr) ltypes.Type {
	switch n := e.(type) {
	case *ast.IntLit:
		return ltypes.Int
	case *ast.BoolLit:
		return ltypes.Bool
	case *ast.StringLit:
		return ltypes.Str
	case *ast.NullLit:
		return ltypes.Null
	case *ast.SelfExpr:
		if c.class == nil {
			c.bag.AddAt(n.Meta.Offset, diagnostics.UnresolvedName, "\"self\" used outside of a method")
			return ltypes.Void
		}
		return ltypes.Class(c.class.Name)
	case *ast.Ident:
		return c.resolveIdent(n)
	case *ast.Unary:
		return c.inferUnary(n)
	case *ast.Binary:
		return c.inferBinary(n)
	case *ast.Call:
		return c.inferCall(n)
	case *ast.FieldAccess:
		return c.inferFieldAccess(n)
	case *ast.ArrayLenExpr:
		at := c.checkExpr(n.Array)
		if at.Kind != ltypes.KArray {
			c.bag.AddAt(n.Meta.Offset, diagnostics.BadIndex, "\".length\" requires an array, found "+at.String())
		}
		return ltypes.Int
	case *ast.IndexExpr:
		return c.inferIndex(n)
	case *ast.NewObject:
		if _, ok := c.classes.Lookup(n.ClassName); !ok {
			c.bag.AddAt(n.Meta.Offset, diagnostics.UnresolvedName, "unknown class \""+n.ClassName+"\"")
			return ltypes.Void
		}
		return ltypes.Class(n.ClassName)
	case *ast.NewArray:
		c.checkArrayElemType(n.ElemType, n.Meta.Offset)
		st := c.checkExpr(n.Size)
		if !st.Equal(ltypes.Int) {
			c.bag.AddAt(n.Meta.Offset, diagnostics.BadIndex, "array size must be int, found "+st.String())
		}
		return ltypes.Array(n.ElemType)
	case *ast.Cast:
		if _, ok := n.X.(*ast.NullLit); !ok {
			c.bag.AddAt(n.Meta.Offset, diagnostics.BadCast, "only \"(T) null\" casts are supported")
		}
		ast.SetMetaType(n.X, ltypes.Null)
		if n.Target.Kind != ltypes.KClass && n.Target.Kind != ltypes.KArray {
			c.bag.AddAt(n.Meta.Offset, diagnostics.BadCast, "cast target must be a class or array type, found "+n.Target.String())
		}
		return n.Target
	default:
		diagnostics.Fail("check.inferExpr", "unhandled expression node %T", e)
		return ltypes.Void
	}
}

func (c *checker) checkArrayElemType(t ltypes.Type, offset int) {
	if t.Kind == ltypes.KClass {
		if _, ok := c.classes.Lookup(t.Name); !ok {
			c.bag.AddAt(offset, diagnostics.UnresolvedName, "unknown class \""+t.Name+"\"")
		}
	}
}

func (c *checker) resolveIdent(n *ast.Ident) ltypes.Type {
	if sym, ok := c.scopes.lookup(n.Name); ok {
		kind := ast.BindLocal
		if sym.kind == symParam {
			kind = ast.BindParam
		}
		ast.SetBinding(n, &ast.Binding{Kind: kind, Slot: sym.slot})
		return sym.typ
	}
	if c.class != nil {
		if field, ok := c.class.FieldOffset(n.Name); ok {
			ast.SetBinding(n, &ast.Binding{Kind: ast.BindField, Slot: field.Slot, Owner: c.class.Name})
			return field.Type
		}
	}
	c.bag.AddAt(n.Meta.Offset, diagnostics.UnresolvedName, "undefined name \""+n.Name+"\"")
	return ltypes.Void
}

func (c *checker) inferUnary(n *ast.Unary) ltypes.Type {
	xt := c.checkExpr(n.X)
	switch n.Op {
	case "-":
		if !xt.Equal(ltypes.Int) {
			c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "unary \"-\" requires int, found "+xt.String())
			return ltypes.Int
		}
		return ltypes.Int
	case "!":
		if !xt.Equal(ltypes.Bool) {
			c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "unary \"!\" requires boolean, found "+xt.String())
			return ltypes.Bool
		}
		return ltypes.Bool
	default:
		diagnostics.Fail("check.inferUnary", "unknown unary operator %q", n.Op)
		return ltypes.Void
	}
}

func (c *checker) inferBinary(n *ast.Binary) ltypes.Type {
	lt := c.checkExpr(n.Left)
	rt := c.checkExpr(n.Right)
	switch n.Op {
	case "+":
		if lt.Equal(ltypes.Int) && rt.Equal(ltypes.Int) {
			return ltypes.Int
		}
		if lt.Equal(ltypes.Str) && rt.Equal(ltypes.Str) {
			return ltypes.Str
		}
		c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "\"+\" requires (int,int) or (string,string), found ("+lt.String()+","+rt.String()+")")
		return ltypes.Int
	case "-", "*", "/", "%":
		if !lt.Equal(ltypes.Int) || !rt.Equal(ltypes.Int) {
			c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "\""+n.Op+"\" requires (int,int), found ("+lt.String()+","+rt.String()+")")
		}
		return ltypes.Int
	case "<", "<=", ">", ">=":
		if !lt.Equal(ltypes.Int) || !rt.Equal(ltypes.Int) {
			c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "\""+n.Op+"\" requires (int,int), found ("+lt.String()+","+rt.String()+")")
		}
		return ltypes.Bool
	case "==", "!=":
		if !ltypes.IsSubtype(lt, rt, c.classes) && !ltypes.IsSubtype(rt, lt, c.classes) {
			c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "\""+n.Op+"\" requires operands with a common type, found ("+lt.String()+","+rt.String()+")")
		}
		return ltypes.Bool
	case "&&", "||":
		if !lt.Equal(ltypes.Bool) || !rt.Equal(ltypes.Bool) {
			c.bag.AddAt(n.Meta.Offset, diagnostics.TypeMismatch, "\""+n.Op+"\" requires (boolean,boolean), found ("+lt.String()+","+rt.String()+")")
		}
		return ltypes.Bool
	default:
		diagnostics.Fail("check.inferBinary", "unknown binary operator %q", n.Op)
		return ltypes.Void
	}
}

func (c *checker) inferCall(n *ast.Call) ltypes.Type {
	if n.Recv == nil {
		fn, ok := c.funcs[n.Name]
		if !ok {
			c.bag.AddAt(n.Meta.Offset, diagnostics.UnresolvedName, "undefined function \""+n.Name+"\"")
			for _, a := range n.Args {
				c.checkExpr(a)
			}
			return ltypes.Void
		}
		c.checkArgs(n, fn.Params)
		ast.SetBinding(n, &ast.Binding{Kind: ast.BindFunction})
		return fn.ReturnType
	}

	rt := c.checkExpr(n.Recv)
	if rt.Kind != ltypes.KClass {
		c.bag.AddAt(n.Meta.Offset, diagnostics.BadReceiver, "method call on non-class receiver of type "+rt.String())
		for _, a := range n.Args {
			c.checkExpr(a)
		}
		return ltypes.Void
	}
	ci, ok := c.classes.Lookup(rt.Name)
	if !ok {
		for _, a := range n.Args {
			c.checkExpr(a)
		}
		return ltypes.Void
	}
	slot, ok := ci.MethodSlot(n.Name)
	if !ok {
		c.bag.AddAt(n.Meta.Offset, diagnostics.UnresolvedName, "class \""+rt.Name+"\" has no method \""+n.Name+"\"")
		for _, a := range n.Args {
			c.checkExpr(a)
		}
		return ltypes.Void
	}
	c.checkArgs(n, slot.Decl.Params)
	ast.SetBinding(n, &ast.Binding{Kind: ast.BindMethod, Slot: slot.Slot, Owner: slot.DeclClass})
	return slot.Decl.ReturnType
}

func (c *checker) checkArgs(n *ast.Call, params []ast.Param) {
	if len(n.Args) != len(params) {
		c.bag.AddAt(n.Meta.Offset, diagnostics.BadCall,
			"call to \""+n.Name+"\" expects "+strconv.Itoa(len(params))+" argument(s), found "+strconv.Itoa(len(n.Args)))
	}
	for i, a := range n.Args {
		at := c.checkExpr(a)
		if i < len(params) && !ltypes.IsSubtype(at, params[i].Type, c.classes) {
			c.bag.AddAt(ast.MetaOf(a).Offset, diagnostics.BadCall,
				"argument "+strconv.Itoa(i+1)+" to \""+n.Name+"\" has type "+at.String()+", expected "+params[i].Type.String())
		}
	}
}

func (c *checker) inferFieldAccess(n *ast.FieldAccess) ltypes.Type {
	rt := c.checkExpr(n.Recv)
	if rt.Kind != ltypes.KClass {
		c.bag.AddAt(n.Meta.Offset, diagnostics.BadReceiver, "field access on non-class receiver of type "+rt.String())
		return ltypes.Void
	}
	ci, ok := c.classes.Lookup(rt.Name)
	if !ok {
		return ltypes.Void
	}
	field, ok := ci.FieldOffset(n.Name)
	if !ok {
		c.bag.AddAt(n.Meta.Offset, diagnostics.UnresolvedName, "class \""+rt.Name+"\" has no field \""+n.Name+"\"")
		return ltypes.Void
	}
	ast.SetBinding(n, &ast.Binding{Kind: ast.BindField, Slot: field.Slot, Owner: rt.Name})
	return field.Type
}

func (c *checker) inferIndex(n *ast.IndexExpr) ltypes.Type {
	at := c.checkExpr(n.Array)
	it := c.checkExpr(n.Index)
	if !it.Equal(ltypes.Int) {
		c.bag.AddAt(n.Meta.Offset, diagnostics.BadIndex, "array index must be int, found "+it.String())
	}
	if at.Kind != ltypes.KArray {
		c.bag.AddAt(n.Meta.Offset, diagnostics.BadIndex, "indexing requires an array, found "+at.String())
		return ltypes.Void
	}
	return *at.Elem
}

