package program

import (
	"fmt"
	"strings"

	"ravens/internal/source"
	"ravens/internal/types"
)

// DeclID identifies a top-level declaration. 0 is NoDeclID.
type DeclID uint32

const NoDeclID DeclID = 0

func (id DeclID) IsValid() bool { return id != NoDeclID }

// DeclKind classifies top-level declarations.
type DeclKind uint8

const (
	KindFn DeclKind = iota + 1
	KindComponent
	KindType
)

func (k DeclKind) String() string {
	switch k {
	case KindFn:
		return "fn"
	case KindComponent:
		return "component"
	case KindType:
		return "type"
	}
	return fmt.Sprintf("DeclKind(%d)", k)
}

// ParseDeclKind accepts the document spelling of a declaration kind.
func ParseDeclKind(s string) (DeclKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fn", "function", "":
		return KindFn, nil
	case "component":
		return KindComponent, nil
	case "type", "struct", "record":
		return KindType, nil
	}
	return 0, fmt.Errorf("unknown declaration kind %q (expected: fn|component|type)", s)
}

// Tag is an explicit placement annotation written by the user.
type Tag uint8

const (
	TagServer Tag = iota + 1
	TagClient
	TagShared
)

func (t Tag) String() string {
	switch t {
	case TagServer:
		return "server"
	case TagClient:
		return "client"
	case TagShared:
		return "shared"
	}
	return fmt.Sprintf("Tag(%d)", t)
}

// ParseTag accepts "server", "@server", "client", "shared".
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@")) {
	case "server":
		return TagServer, nil
	case "client":
		return TagClient, nil
	case "shared":
		return TagShared, nil
	}
	return 0, fmt.Errorf("unknown placement annotation %q (expected: server|client|shared)", s)
}

// Annotation is one explicit placement tag and where it was written.
type Annotation struct {
	Tag  Tag
	Span source.Span
}

// RefKind is the kind of a reference site inside a declaration body.
type RefKind uint8

const (
	RefCall RefKind = iota + 1
	RefType
	RefField
)

func (k RefKind) String() string {
	switch k {
	case RefCall:
		return "call"
	case RefType:
		return "typeReference"
	case RefField:
		return "fieldReference"
	}
	return fmt.Sprintf("RefKind(%d)", k)
}

// Ref is one resolved reference site. Target keeps the path as written so an
// unresolved reference can be named in the internal error.
type Ref struct {
	Kind      RefKind
	Target    string
	Resolved  DeclID
	Span      source.Span
	Signature bool // type used by the declaration's signature (params, result, fields)
}

// CapabilityUse records a runtime-exclusive operation attached by the type checker.
type CapabilityUse struct {
	Cap  Capability
	Span source.Span
}

// Param is a positional parameter of a function or component.
type Param struct {
	Name string
	Type types.TypeID
}

// Decl is one top-level unit of the program. Decls are created by the loader
// (or a front end) and never modified afterwards; every analysis keeps its
// results in side tables keyed by DeclID.
type Decl struct {
	ID           DeclID
	Path         string // qualified path, segments joined with "::"
	Kind         DeclKind
	Annotations  []Annotation
	Capabilities []CapabilityUse
	Params       []Param
	Result       types.TypeID // fn/component result; Unit when absent
	Type         types.TypeID // fn type for callables, struct type for type decls
	Refs         []Ref
	Span         source.Span
}

// Name returns the last path segment.
func (d *Decl) Name() string {
	if i := strings.LastIndex(d.Path, "::"); i >= 0 {
		return d.Path[i+2:]
	}
	return d.Path
}

// Segments splits the qualified path.
func (d *Decl) Segments() []string {
	return strings.Split(d.Path, "::")
}

// Callable reports whether the declaration can be the target of a call.
func (d *Decl) Callable() bool {
	return d.Kind == KindFn || d.Kind == KindComponent
}

// ExclusiveSide returns the runtime side demanded by the declaration's
// capability tags, with the first capability that demands it.
// Mixed demands return SideNone and ok=false.
func (d *Decl) ExclusiveSide() (side Side, first CapabilityUse, ok bool) {
	for _, use := range d.Capabilities {
		s := use.Cap.Side()
		if s == SideNone {
			continue
		}
		if side == SideNone {
			side, first = s, use
			continue
		}
		if s != side {
			return SideNone, CapabilityUse{}, false
		}
	}
	return side, first, true
}
