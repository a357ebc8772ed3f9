// Package check implements the type checker of spec.md §4.3: a
// single top-down pass that resolves names, assigns a type to every
// expression and statement, computes class inheritance, field layouts,
// and virtual-method tables, and reports every violation it finds as an
// independent diagnostic rather than stopping at the first one.
package check

import (
	"latc/internal/ast"
	"latc/internal/diagnostics"
	"latc/internal/ltypes"
)

// FieldSlot is one resolved entry of a class's field layout.
type FieldSlot struct {
	Name string
	Type ltypes.Type
	Slot int
}

// MethodSlot is one resolved entry of a class's virtual-method table. Decl
// is the *overriding* method (the one actually invoked at this slot);
// DeclClass names the class it's declared on, needed by codegen to find
// the right lowered function.
type MethodSlot struct {
	Name      string
	Slot      int
	Decl      *ast.FuncDecl
	DeclClass string
}

// ClassInfo is the resolved layout of spec.md §3: an ordered field list
// (parent's first, then this class's own) and a vtable ordered by first-
// declaring ancestor, with overrides replacing slot contents but keeping
// the slot index.
type ClassInfo struct {
	Name    string
	Parent  *ClassInfo // nil for a root class
	Decl    *ast.ClassDecl
	Fields  []FieldSlot
	VTable  []MethodSlot
}

func (c *ClassInfo) FieldOffset(name string) (FieldSlot, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSlot{}, false
}

func (c *ClassInfo) MethodSlot(name string) (MethodSlot, bool) {
	for _, m := range c.VTable {
		if m.Name == name {
			return m, true
		}
	}
	return MethodSlot{}, false
}

// ClassTable is the global class namespace, also satisfying
// ltypes.ClassTable for subtype queries.
type ClassTable struct {
	byName map[string]*ClassInfo
}

func (ct *ClassTable) Lookup(name string) (*ClassInfo, bool) {
	c, ok := ct.byName[name]
	return c, ok
}

func (ct *ClassTable) IsSubclass(child, ancestor string) bool {
	c, ok := ct.byName[child]
	if !ok {
		return false
	}
	for c != nil {
		if c.Name == ancestor {
			return true
		}
		c = c.Parent
	}
	return false
}

// dfsColor marks cycle-detection state during the iterative resolution
// fixpoint: white = unvisited, gray = on the current resolution path,
// black = fully resolved.
type dfsColor int

const (
	white dfsColor = iota
	gray
	black
)

// buildClassTable resolves every class's parent link and layout,
// tolerating forward references (a class may extend one declared later in
// the file) by resolving via DFS over the declaration map rather than
// declaration order, and reporting InheritanceCycle via classic
// color-marking cycle detection (spec.md §4.3).
func buildClassTable(classes []*ast.ClassDecl, bag *diagnostics.Bag) *ClassTable {
	declByName := make(map[string]*ast.ClassDecl, len(classes))
	for _, cd := range classes {
		if _, dup := declByName[cd.Name]; dup {
			bag.AddAt(cd.Meta.Offset, diagnostics.Redeclaration, "class \""+cd.Name+"\" is already declared")
			continue
		}
		declByName[cd.Name] = cd
	}

	ct := &ClassTable{byName: make(map[string]*ClassInfo, len(declByName))}
	color := make(map[string]dfsColor, len(declByName))

	var resolve func(name string) *ClassInfo
	resolve = func(name string) *ClassInfo {
		if ci, ok := ct.byName[name]; ok {
			return ci
		}
		cd, ok := declByName[name]
		if !ok {
			return nil
		}
		switch color[name] {
		case gray:
			bag.AddAt(cd.Meta.Offset, diagnostics.InheritanceCycle, "class \""+name+"\" participates in an inheritance cycle")
			return nil
		case black:
			return ct.byName[name]
		}
		color[name] = gray

		var parent *ClassInfo
		if cd.Parent != "" {
			if _, exists := declByName[cd.Parent]; !exists {
				bag.AddAt(cd.Meta.Offset, diagnostics.UnresolvedName, "unknown parent class \""+cd.Parent+"\"")
			} else {
				parent = resolve(cd.Parent)
			}
		}

		ci := buildLayout(cd, parent, bag)
		ct.byName[name] = ci
		color[name] = black
		return ci
	}

	for name := range declByName {
		resolve(name)
	}
	return ct
}

// buildLayout appends cd's own fields after parent's (parent-first field
// ordering, spec.md §3), and computes the vtable: parent's slots first
// (replaced in place by any overriding method, same slot index), then new
// slots for methods cd introduces that no ancestor declares.
func buildLayout(cd *ast.ClassDecl, parent *ClassInfo, bag *diagnostics.Bag) *ClassInfo {
	ci := &ClassInfo{Name: cd.Name, Parent: parent, Decl: cd}

	seen := map[string]bool{}
	if parent != nil {
		ci.Fields = append(ci.Fields, parent.Fields...)
		for _, f := range parent.Fields {
			seen[f.Name] = true
		}
		ci.VTable = append(ci.VTable, parent.VTable...)
	}

	for _, f := range cd.Fields {
		if seen[f.Name] {
			bag.AddAt(f.Meta.Offset, diagnostics.Redeclaration,
				"field \""+f.Name+"\" shadows a field already declared in an ancestor")
			continue
		}
		seen[f.Name] = true
		ci.Fields = append(ci.Fields, FieldSlot{Name: f.Name, Type: f.Type, Slot: len(ci.Fields)})
	}

	methodNames := map[string]bool{}
	for _, f := range cd.Fields {
		methodNames[f.Name] = true // fields & methods share one shadow namespace within a class
	}
	for _, m := range cd.Methods {
		if methodNames[m.Name] {
			bag.AddAt(m.Meta.Offset, diagnostics.Redeclaration,
				"member \""+m.Name+"\" is declared more than once in class \""+cd.Name+"\"")
			continue
		}
		methodNames[m.Name] = true

		if slot, ok := ci.MethodSlot(m.Name); ok {
			if !sameSignature(slot.Decl, m) {
				bag.AddAt(m.Meta.Offset, diagnostics.BadOverride,
					"method \""+m.Name+"\" overrides \""+slot.DeclClass+"."+m.Name+"\" with a different signature")
			}
			ci.VTable[slot.Slot] = MethodSlot{Name: m.Name, Slot: slot.Slot, Decl: m, DeclClass: cd.Name}
		} else {
			ci.VTable = append(ci.VTable, MethodSlot{Name: m.Name, Slot: len(ci.VTable), Decl: m, DeclClass: cd.Name})
		}
	}

	return ci
}

func sameSignature(a, b *ast.FuncDecl) bool {
	if !a.ReturnType.Equal(b.ReturnType) {
		return false
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !a.Params[i].Type.Equal(b.Params[i].Type) {
			return false
		}
	}
	return true
}
