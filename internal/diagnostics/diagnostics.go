// Package diagnostics collects and renders the compiler's user-facing
// error population, keeping it distinct from internal contract violations.
package diagnostics

import "fmt"

// Kind enumerates every user (compile-time) error kind from the language
// report. Lexical and parse errors are folded in so the whole pipeline can
// share one diagnostic type.
type Kind string

const (
	LexError        Kind = "LexError"
	ParseError      Kind = "ParseError"
	UnresolvedName  Kind = "UnresolvedName"
	Redeclaration   Kind = "Redeclaration"
	TypeMismatch    Kind = "TypeMismatch"
	BadCall         Kind = "BadCall"
	BadReceiver     Kind = "BadReceiver"
	BadIndex        Kind = "BadIndex"
	BadCast         Kind = "BadCast"
	BadEntry        Kind = "BadEntry"
	InheritanceCycle Kind = "InheritanceCycle"
	BadOverride     Kind = "BadOverride"
	MissingReturn   Kind = "MissingReturn"
	ConstOverflow   Kind = "ConstOverflow"
)

// Diagnostic is a single recoverable user error, anchored to a byte offset
// in the original source. The driver resolves offsets to line:column just
// before rendering, so every earlier phase can stay offset-only.
type Diagnostic struct {
	Kind    Kind
	Offset  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Bag accumulates diagnostics across a single phase (or the whole
// pipeline). Phases that can report more than one independent error take a
// *Bag and keep going after a recoverable mistake instead of aborting.
type Bag struct {
	items []Diagnostic
}

func NewBag() *Bag { return &Bag{} }

func (b *Bag) Add(kind Kind, offset int, format string, args ...any) {
	b.items = append(b.items, Diagnostic{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)})
}

func (b *Bag) AddAt(offset int, kind Kind, message string) {
	b.items = append(b.items, Diagnostic{Kind: kind, Offset: offset, Message: message})
}

func (b *Bag) Empty() bool { return len(b.items) == 0 }

func (b *Bag) Len() int { return len(b.items) }

func (b *Bag) Items() []Diagnostic { return b.items }

// Merge appends another bag's diagnostics onto this one, preserving order.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

// Internal signals a contract violation the type checker should have
// already rejected: the code generator hit an AST shape that is not
// supposed to reach it. This is always a compiler bug, never a user
// error, and is reported by panicking with this type so the driver's
// top-level recover can tell the two populations apart.
type Internal struct {
	Where string
	Msg   string
}

func (e Internal) Error() string {
	return fmt.Sprintf("internal compiler error in %s: %s", e.Where, e.Msg)
}

// Fail panics with an Internal error. Used by the code generator per
// spec.md §4.4.5: any shape the type checker should have rejected is a
// compiler bug, not a user error.
func Fail(where, format string, args ...any) {
	panic(Internal{Where: where, Msg: fmt.Sprintf(format, args...)})
}
