// Package parser is a hand-written recursive-descent parser for Latte:
// pre-scan the whole token stream, walk it with a cursor, and accumulate
// errors into a bag instead of aborting on the first mistake, so one run
// reports every parse error it finds. The driver runs no later phase once
// this one has reported an error.
//
// It is deliberately the thinnest layer in the pipeline — spec.md §1
// scopes the parser adapter out as an external collaborator; this is
// the minimum needed to have an AST for the core to operate on.
package parser

import (
	"fmt"
	"strconv"

	"latc/internal/ast"
	"latc/internal/diagnostics"
	"latc/internal/ltypes"
	"latc/internal/token"
)

type Parser struct {
	toks []token.Token
	pos  int
	bag  *diagnostics.Bag
}

func New(toks []token.Token, bag *diagnostics.Bag) *Parser {
	return &Parser{toks: toks, bag: bag}
}

func Parse(toks []token.Token, bag *diagnostics.Bag) *ast.Program {
	p := New(toks, bag)
	return p.parseProgram()
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) curType() token.Type { return p.toks[p.pos].Type }

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(t token.Type) bool { return p.curType() == t }

func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(t token.Type, what string) token.Token {
	if p.check(t) {
		return p.advance()
	}
	cur := p.cur()
	p.bag.AddAt(cur.Offset, diagnostics.ParseError,
		fmt.Sprintf("expected %s but found %q", what, cur.Lexeme))
	return cur
}

// synchronize skips tokens until a likely statement/declaration boundary,
// so one parse error doesn't cascade into hundreds of bogus follow-on
// errors.
func (p *Parser) synchronize() {
	for !p.check(token.EOF) {
		if p.check(token.Semicolon) {
			p.advance()
			return
		}
		switch p.curType() {
		case token.If, token.While, token.For, token.Return, token.Class, token.RBrace:
			return
		}
		p.advance()
	}
}

// ---- Program ----

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.check(token.EOF) {
		start := p.pos
		if p.check(token.Class) {
			prog.Classes = append(prog.Classes, p.parseClass())
		} else if p.isTypeStart() {
			prog.Functions = append(prog.Functions, p.parseFunc(""))
		} else {
			p.bag.AddAt(p.cur().Offset, diagnostics.ParseError,
				fmt.Sprintf("expected class or function declaration, found %q", p.cur().Lexeme))
			p.advance()
		}
		if p.pos == start {
			p.advance()
		}
	}
	return prog
}

func (p *Parser) isTypeStart() bool {
	switch p.curType() {
	case token.Int, token.Boolean, token.Void, token.Str, token.Ident:
		return true
	}
	return false
}

func (p *Parser) parseType() ltypes.Type {
	var t ltypes.Type
	switch p.curType() {
	case token.Int:
		p.advance()
		t = ltypes.Int
	case token.Boolean:
		p.advance()
		t = ltypes.Bool
	case token.Void:
		p.advance()
		t = ltypes.Void
	case token.Str:
		p.advance()
		t = ltypes.Str
	case token.Ident:
		name := p.advance().Lexeme
		t = ltypes.Class(name)
	default:
		p.bag.AddAt(p.cur().Offset, diagnostics.ParseError, "expected a type")
		p.advance()
		return ltypes.Void
	}
	for p.check(token.LBracket) {
		p.advance()
		p.expect(token.RBracket, "]")
		t = ltypes.Array(t)
	}
	return t
}

func (p *Parser) parseFunc(ownerClass string) *ast.FuncDecl {
	offset := p.cur().Offset
	retType := p.parseType()
	name := p.expect(token.Ident, "function name").Lexeme
	p.expect(token.LParen, "(")
	var params []ast.Param
	for !p.check(token.RParen) && !p.check(token.EOF) {
		pt := p.parseType()
		pn := p.expect(token.Ident, "parameter name")
		params = append(params, ast.Param{Type: pt, Name: pn.Lexeme, Meta: ast.Meta{Offset: pn.Offset}})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, ")")
	body := p.parseBlock()
	return &ast.FuncDecl{
		Name: name, ReturnType: retType, Params: params, Body: body,
		Meta: ast.Meta{Offset: offset}, OwnerClass: ownerClass,
	}
}

func (p *Parser) parseClass() *ast.ClassDecl {
	offset := p.advance().Offset // 'class'
	name := p.expect(token.Ident, "class name").Lexeme
	parent := ""
	if p.match(token.Extends) {
		parent = p.expect(token.Ident, "parent class name").Lexeme
	}
	p.expect(token.LBrace, "{")
	cd := &ast.ClassDecl{Name: name, Parent: parent, Meta: ast.Meta{Offset: offset}}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if !p.isTypeStart() {
			p.bag.AddAt(p.cur().Offset, diagnostics.ParseError, "expected field or method declaration")
			p.advance()
			continue
		}
		memberStart := p.pos
		t := p.parseType()
		memberName := p.expect(token.Ident, "member name")
		if p.check(token.LParen) {
			// rewind to the member's type so parseFunc reads the whole header
			p.pos = memberStart
			cd.Methods = append(cd.Methods, p.parseFunc(name))
		} else {
			p.expect(token.Semicolon, ";")
			cd.Fields = append(cd.Fields, ast.Field{Type: t, Name: memberName.Lexeme, Meta: ast.Meta{Offset: memberName.Offset}})
		}
	}
	p.expect(token.RBrace, "}")
	return cd
}

// ---- Statements ----

func (p *Parser) parseBlock() *ast.Block {
	offset := p.expect(token.LBrace, "{").Offset
	b := &ast.Block{Meta: ast.Meta{Offset: offset}}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		before := p.pos
		b.Stmts = append(b.Stmts, p.parseStmt())
		if p.pos == before {
			p.synchronize()
		}
	}
	p.expect(token.RBrace, "}")
	return b
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.curType() {
	case token.LBrace:
		return p.parseBlock()
	case token.Semicolon:
		off := p.advance().Offset
		return &ast.EmptyStmt{Meta: ast.Meta{Offset: off}}
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.For:
		return p.parseFor()
	case token.Return:
		return p.parseReturn()
	case token.Int, token.Boolean, token.Void, token.Str:
		return p.parseDecl()
	case token.Ident:
		return p.parseIdentLedStmt()
	default:
		return p.parseExprStmt()
	}
}

// parseIdentLedStmt disambiguates `Foo x = ...;`, `Foo[] x = ...;`,
// `x = e;`, `x++;`, and a bare expression statement, all of which start
// with IDENT.
func (p *Parser) parseIdentLedStmt() ast.Stmt {
	save := p.pos
	if p.looksLikeClassTypeDecl() {
		return p.parseDecl()
	}
	p.pos = save
	return p.parseExprStmt()
}

func (p *Parser) looksLikeClassTypeDecl() bool {
	// IDENT ('[' ']')* IDENT (',' | '=' | ';')
	if !p.check(token.Ident) {
		return false
	}
	save := p.pos
	defer func() { p.pos = save }()
	p.advance()
	for p.check(token.LBracket) {
		p.advance()
		if !p.check(token.RBracket) {
			return false
		}
		p.advance()
	}
	if !p.check(token.Ident) {
		return false
	}
	p.advance()
	switch p.curType() {
	case token.Assign, token.Semicolon, token.Comma:
		return true
	default:
		return false
	}
}

func (p *Parser) parseDecl() ast.Stmt {
	offset := p.cur().Offset
	t := p.parseType()
	decl := &ast.DeclStmt{Type: t, Meta: ast.Meta{Offset: offset}}
	for {
		nameTok := p.expect(token.Ident, "variable name")
		item := ast.DeclItem{Name: nameTok.Lexeme, Meta: ast.Meta{Offset: nameTok.Offset}}
		if p.match(token.Assign) {
			item.Init = p.parseExpr()
		}
		decl.Items = append(decl.Items, item)
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.Semicolon, ";")
	return decl
}

func (p *Parser) parseIf() ast.Stmt {
	offset := p.advance().Offset // 'if'
	p.expect(token.LParen, "(")
	cond := p.parseExpr()
	p.expect(token.RParen, ")")
	then := p.parseStmt()
	var els ast.Stmt
	if p.match(token.Else) {
		els = p.parseStmt()
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: els, Meta: ast.Meta{Offset: offset}}
}

func (p *Parser) parseWhile() ast.Stmt {
	offset := p.advance().Offset // 'while'
	p.expect(token.LParen, "(")
	cond := p.parseExpr()
	p.expect(token.RParen, ")")
	body := p.parseStmt()
	return &ast.WhileStmt{Cond: cond, Body: body, Meta: ast.Meta{Offset: offset}}
}

func (p *Parser) parseFor() ast.Stmt {
	offset := p.advance().Offset // 'for'
	p.expect(token.LParen, "(")
	elemType := p.parseType()
	varName := p.expect(token.Ident, "loop variable name").Lexeme
	p.expect(token.Colon, ":")
	arr := p.parseExpr()
	p.expect(token.RParen, ")")
	body := p.parseStmt()
	return &ast.ForEachStmt{ElemType: elemType, VarName: varName, Array: arr, Body: body, Meta: ast.Meta{Offset: offset}}
}

func (p *Parser) parseReturn() ast.Stmt {
	offset := p.advance().Offset // 'return'
	var val ast.Expr
	if !p.check(token.Semicolon) {
		val = p.parseExpr()
	}
	p.expect(token.Semicolon, ";")
	return &ast.ReturnStmt{Value: val, Meta: ast.Meta{Offset: offset}}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	offset := p.cur().Offset
	x := p.parseExpr()
	if p.match(token.Assign) {
		val := p.parseExpr()
		p.expect(token.Semicolon, ";")
		return &ast.AssignStmt{Target: x, Value: val, Meta: ast.Meta{Offset: offset}}
	}
	if p.check(token.Plus) && p.peekLexeme(1) == "+" {
		// not reached: "++"/"--" are scanned as two '+' tokens; handled below.
	}
	if p.checkIncDec() {
		op := p.consumeIncDec()
		p.expect(token.Semicolon, ";")
		return &ast.IncDecStmt{Target: x, Op: op, Meta: ast.Meta{Offset: offset}}
	}
	p.expect(token.Semicolon, ";")
	return &ast.ExprStmt{X: x, Meta: ast.Meta{Offset: offset}}
}

func (p *Parser) peekLexeme(off int) string {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return ""
	}
	return p.toks[idx].Lexeme
}

func (p *Parser) checkIncDec() bool {
	if p.check(token.Plus) && p.peekLexeme(1) == "+" {
		return true
	}
	if p.check(token.Minus) && p.peekLexeme(1) == "-" {
		return true
	}
	return false
}

func (p *Parser) consumeIncDec() string {
	if p.check(token.Plus) {
		p.advance()
		p.advance()
		return "++"
	}
	p.advance()
	p.advance()
	return "--"
}

// ---- Expressions (standard Java precedence, lowest to highest) ----
// ||  &&  ==/!=  </<=/>/>=  +/-  * / %  unary !/-  primary (calls, ., [])

func (p *Parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.check(token.OrOr) {
		off := p.advance().Offset
		right := p.parseAnd()
		left = &ast.Binary{Op: "||", Left: left, Right: right, Meta: ast.Meta{Offset: off}}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	for p.check(token.AndAnd) {
		off := p.advance().Offset
		right := p.parseEquality()
		left = &ast.Binary{Op: "&&", Left: left, Right: right, Meta: ast.Meta{Offset: off}}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for p.check(token.EQ) || p.check(token.NE) {
		opTok := p.advance()
		right := p.parseRelational()
		left = &ast.Binary{Op: string(opTok.Type), Left: left, Right: right, Meta: ast.Meta{Offset: opTok.Offset}}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	for p.check(token.LT) || p.check(token.LE) || p.check(token.GT) || p.check(token.GE) {
		opTok := p.advance()
		right := p.parseAdditive()
		left = &ast.Binary{Op: string(opTok.Type), Left: left, Right: right, Meta: ast.Meta{Offset: opTok.Offset}}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.check(token.Plus) || p.check(token.Minus) {
		// `x++`/`x--` arrive as two adjacent +/- tokens; leave them to
		// parseExprStmt instead of reading the second one as an operand.
		if p.checkIncDec() && p.toks[p.pos+1].Offset == p.cur().Offset+1 {
			break
		}
		opTok := p.advance()
		right := p.parseMultiplicative()
		left = &ast.Binary{Op: string(opTok.Type), Left: left, Right: right, Meta: ast.Meta{Offset: opTok.Offset}}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Pct) {
		opTok := p.advance()
		right := p.parseUnary()
		left = &ast.Binary{Op: string(opTok.Type), Left: left, Right: right, Meta: ast.Meta{Offset: opTok.Offset}}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.check(token.Not) || p.check(token.Minus) {
		opTok := p.advance()
		x := p.parseUnary()
		return &ast.Unary{Op: string(opTok.Type), X: x, Meta: ast.Meta{Offset: opTok.Offset}}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch {
		case p.check(token.Dot):
			off := p.advance().Offset
			name := p.expect(token.Ident, "member name").Lexeme
			if p.check(token.LParen) {
				args := p.parseArgs()
				x = &ast.Call{Recv: x, Name: name, Args: args, Meta: ast.Meta{Offset: off}}
			} else if name == "length" {
				x = &ast.ArrayLenExpr{Array: x, Meta: ast.Meta{Offset: off}}
			} else {
				x = &ast.FieldAccess{Recv: x, Name: name, Meta: ast.Meta{Offset: off}}
			}
		case p.check(token.LBracket):
			off := p.advance().Offset
			idx := p.parseExpr()
			p.expect(token.RBracket, "]")
			x = &ast.IndexExpr{Array: x, Index: idx, Meta: ast.Meta{Offset: off}}
		default:
			return x
		}
	}
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(token.LParen, "(")
	var args []ast.Expr
	for !p.check(token.RParen) && !p.check(token.EOF) {
		args = append(args, p.parseExpr())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, ")")
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur()
	switch tok.Type {
	case token.IntLit:
		p.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.bag.AddAt(tok.Offset, diagnostics.ParseError, "invalid integer literal "+tok.Lexeme)
		}
		return &ast.IntLit{Value: v, Meta: ast.Meta{Offset: tok.Offset}}
	case token.StrLit:
		p.advance()
		return &ast.StringLit{Value: tok.Lexeme, Meta: ast.Meta{Offset: tok.Offset}}
	case token.True:
		p.advance()
		return &ast.BoolLit{Value: true, Meta: ast.Meta{Offset: tok.Offset}}
	case token.False:
		p.advance()
		return &ast.BoolLit{Value: false, Meta: ast.Meta{Offset: tok.Offset}}
	case token.Null:
		p.advance()
		return &ast.NullLit{Meta: ast.Meta{Offset: tok.Offset}}
	case token.Self:
		p.advance()
		return &ast.SelfExpr{Meta: ast.Meta{Offset: tok.Offset}}
	case token.New:
		return p.parseNew()
	case token.LParen:
		return p.parseParenOrCast()
	case token.Ident:
		p.advance()
		if p.check(token.LParen) {
			args := p.parseArgs()
			return &ast.Call{Name: tok.Lexeme, Args: args, Meta: ast.Meta{Offset: tok.Offset}}
		}
		return &ast.Ident{Name: tok.Lexeme, Meta: ast.Meta{Offset: tok.Offset}}
	default:
		p.bag.AddAt(tok.Offset, diagnostics.ParseError, fmt.Sprintf("unexpected token %q", tok.Lexeme))
		p.advance()
		return &ast.IntLit{Value: 0, Meta: ast.Meta{Offset: tok.Offset}}
	}
}

func (p *Parser) parseNew() ast.Expr {
	offset := p.advance().Offset // 'new'
	switch p.curType() {
	case token.Int, token.Boolean, token.Str:
		elem := p.parseTypeBase()
		p.expect(token.LBracket, "[")
		size := p.parseExpr()
		p.expect(token.RBracket, "]")
		return &ast.NewArray{ElemType: elem, Size: size, Meta: ast.Meta{Offset: offset}}
	case token.Ident:
		name := p.advance().Lexeme
		if p.check(token.LBracket) {
			p.advance()
			size := p.parseExpr()
			p.expect(token.RBracket, "]")
			return &ast.NewArray{ElemType: ltypes.Class(name), Size: size, Meta: ast.Meta{Offset: offset}}
		}
		return &ast.NewObject{ClassName: name, Meta: ast.Meta{Offset: offset}}
	default:
		p.bag.AddAt(p.cur().Offset, diagnostics.ParseError, "expected a type or class name after 'new'")
		p.advance()
		return &ast.NewObject{ClassName: "", Meta: ast.Meta{Offset: offset}}
	}
}

// parseTypeBase parses a single non-array base type, without consuming any
// trailing `[]` — `new` already consumed the one pair of brackets that
// denotes the array being constructed.
func (p *Parser) parseTypeBase() ltypes.Type {
	switch p.curType() {
	case token.Int:
		p.advance()
		return ltypes.Int
	case token.Boolean:
		p.advance()
		return ltypes.Bool
	case token.Str:
		p.advance()
		return ltypes.Str
	default:
		return p.parseType()
	}
}

// parseParenOrCast disambiguates `(expr)` from Latte's one cast form,
// `(T) null`.
func (p *Parser) parseParenOrCast() ast.Expr {
	offset := p.advance().Offset // '('
	if p.isTypeStart() && p.peekLooksLikeCastClose() {
		t := p.parseType()
		p.expect(token.RParen, ")")
		x := p.parseUnary()
		return &ast.Cast{Target: t, X: x, Meta: ast.Meta{Offset: offset}}
	}
	x := p.parseExpr()
	p.expect(token.RParen, ")")
	return x
}

// peekLooksLikeCastClose scans ahead from the current position (just past
// the leading '(') for a type expression immediately followed by ')',
// without consuming any tokens, to tell a cast apart from a parenthesized
// expression that happens to start with an identifier.
func (p *Parser) peekLooksLikeCastClose() bool {
	save := p.pos
	defer func() { p.pos = save }()
	switch p.curType() {
	case token.Int, token.Boolean, token.Void, token.Str, token.Ident:
		p.advance()
	default:
		return false
	}
	for p.check(token.LBracket) {
		p.advance()
		if !p.check(token.RBracket) {
			return false
		}
		p.advance()
	}
	return p.check(token.RParen)
}
