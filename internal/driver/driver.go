// Package driver orchestrates the compiler pipeline (SPEC_FULL.md
// §4.7): lex, parse, fold, normalize, check, lower, print — stopping at
// the first phase that reports a non-empty diagnostic bag.
package driver

import (
	"fmt"
	"os"

	"latc/internal/check"
	"latc/internal/codegen"
	"latc/internal/constfold"
	"latc/internal/diagnostics"
	"latc/internal/irprint"
	"latc/internal/lexer"
	"latc/internal/normalize"
	"latc/internal/parser"
	"latc/internal/runtimeabi"
	"latc/internal/source"
)

// Result is a successful compilation's output: the printed IR text and
// the runtime ABI symbols the program actually references, so a caller
// (cmd/latc) only links what's needed.
type Result struct {
	IR      string
	Symbols []runtimeabi.Symbol
}

// Diagnostic is a driver-facing diagnostic with its offset already
// resolved to a line:column position, ready for direct rendering.
type Diagnostic struct {
	Kind     diagnostics.Kind
	Position string
	Message  string
}

// Error wraps one phase's accumulated diagnostics. cmd/latc renders
// Diagnostics one per line under the mandated `ERROR` header.
type Error struct {
	Diagnostics []Diagnostic
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d diagnostic(s)", len(e.Diagnostics))
}

// Compile reads path, runs the full pipeline, and returns the textual IR
// plus the referenced runtime symbols, or a *Error carrying every
// diagnostic from the first phase that failed.
func Compile(path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return CompileSource(string(src))
}

// CompileSource runs the pipeline over already-read source text —
// split out from Compile so tests can drive the pipeline without a
// filesystem round trip.
func CompileSource(src string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			if internal, ok := r.(diagnostics.Internal); ok {
				err = internal
				return
			}
			panic(r)
		}
	}()

	positions := source.NewMap(src)

	bag := diagnostics.NewBag()
	toks := lexer.New(src, bag).ScanTokens()
	if !bag.Empty() {
		return nil, asDriverError(bag, positions)
	}

	prog := parser.Parse(toks, bag)
	if !bag.Empty() {
		return nil, asDriverError(bag, positions)
	}

	prog = constfold.Fold(prog, bag)
	if !bag.Empty() {
		return nil, asDriverError(bag, positions)
	}

	normalize.Normalize(prog, bag)
	if !bag.Empty() {
		return nil, asDriverError(bag, positions)
	}

	res := check.Check(prog, bag)
	if !bag.Empty() {
		return nil, asDriverError(bag, positions)
	}

	module := codegen.Generate(res)
	irText := irprint.Print(module)
	return &Result{IR: irText, Symbols: irprint.UsedSymbols(module)}, nil
}

func asDriverError(bag *diagnostics.Bag, positions *source.Map) *Error {
	items := bag.Items()
	out := make([]Diagnostic, len(items))
	for i, d := range items {
		out[i] = Diagnostic{Kind: d.Kind, Position: positions.Format(d.Offset), Message: d.Message}
	}
	return &Error{Diagnostics: out}
}
