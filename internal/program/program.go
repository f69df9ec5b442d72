package program

import (
	"iter"

	"ravens/internal/source"
	"ravens/internal/types"
)

// Program is the resolved whole program handed over by semantic analysis:
// an arena of immutable declarations plus the type interner and file set
// their spans and signatures refer to.
type Program struct {
	Name  string
	Files *source.FileSet
	Types *types.Interner

	decls  *Arena[Decl]
	byPath map[string]DeclID
	doc    Document // canonical form, used for hashing
}

func newProgram(name string, capHint int) *Program {
	if capHint < 0 {
		capHint = 0
	}
	return &Program{
		Name:   name,
		Files:  source.NewFileSet(),
		Types:  types.NewInterner(),
		decls:  NewArena[Decl](uint(capHint)),
		byPath: make(map[string]DeclID, capHint),
	}
}

func (p *Program) add(d Decl) DeclID {
	id := DeclID(p.decls.Allocate(d))
	p.decls.Get(uint32(id)).ID = id
	p.byPath[d.Path] = id
	return id
}

// Decl returns the declaration for id or nil. The returned value is shared
// with the program and must be treated as read-only.
func (p *Program) Decl(id DeclID) *Decl {
	if p == nil {
		return nil
	}
	return p.decls.Get(uint32(id))
}

// Lookup finds a declaration by qualified path.
func (p *Program) Lookup(path string) (DeclID, bool) {
	id, ok := p.byPath[path]
	return id, ok
}

// MustLookup panics when path is not declared. Intended for tests and tools.
func (p *Program) MustLookup(path string) DeclID {
	id, ok := p.Lookup(path)
	if !ok {
		panic("program: unknown declaration " + path)
	}
	return id
}

// Len returns the number of declarations.
func (p *Program) Len() int {
	if p == nil {
		return 0
	}
	return int(p.decls.Len())
}

// IDs yields declaration ids in ascending order.
func (p *Program) IDs() iter.Seq[DeclID] {
	return func(yield func(DeclID) bool) {
		for i := 1; i <= p.Len(); i++ {
			if !yield(DeclID(i)) { //nolint:gosec // bounded by arena length
				return
			}
		}
	}
}

// Decls returns the declaration slice in id order. READONLY.
func (p *Program) Decls() []Decl {
	return p.decls.Slice()
}

// Path returns the qualified path of id, or "<none>".
func (p *Program) Path(id DeclID) string {
	if d := p.Decl(id); d != nil {
		return d.Path
	}
	return "<none>"
}

// Document returns the canonical document the program was built from.
func (p *Program) Document() Document {
	return p.doc
}
