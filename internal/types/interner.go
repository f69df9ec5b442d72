package types

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"

	"ravens/internal/source"
)

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Unit   TypeID
	Bool   TypeID
	Int    TypeID
	Number TypeID
	String TypeID
}

// StructField describes a single field inside a nominal aggregate.
type StructField struct {
	Name string
	Type TypeID
}

// StructInfo stores metadata for a struct type.
type StructInfo struct {
	Name   string
	Decl   source.Span
	Fields []StructField
}

// FnInfo stores metadata for function types.
type FnInfo struct {
	Params []TypeID
	Result TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Structs are nominal: every RegisterStruct call yields a fresh id.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	structs  []StructInfo
	byName   map[string]TypeID
	fns      []FnInfo
	fnIndex  map[string]TypeID
	names    []string // handle / param names
	named    map[nameKey]TypeID
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Key     TypeID
	Payload uint32
}

type nameKey struct {
	kind Kind
	name string
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		types:   []Type{{Kind: KindInvalid}}, // 0 is NoTypeID
		index:   make(map[typeKey]TypeID, 64),
		byName:  make(map[string]TypeID),
		fnIndex: make(map[string]TypeID),
		named:   make(map[nameKey]TypeID),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve 0 as invalid sentinel
	in.fns = append(in.fns, FnInfo{})
	in.names = append(in.names, "")
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Number = in.Intern(Type{Kind: KindNumber})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided structural descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	id := in.internRaw(t)
	in.index[key] = id
	return id
}

func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	in.types = append(in.types, t)
	return TypeID(n)
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len returns the number of interned types including the invalid slot.
func (in *Interner) Len() int {
	return len(in.types)
}

// RegisterStruct allocates a nominal struct type slot and returns its TypeID.
// Registering the same name twice returns the first id.
func (in *Interner) RegisterStruct(name string, decl source.Span) TypeID {
	if id, ok := in.byName[name]; ok {
		return id
	}
	in.structs = append(in.structs, StructInfo{Name: name, Decl: decl})
	slot := in.slot(len(in.structs) - 1)
	id := in.internRaw(Type{Kind: KindStruct, Payload: slot})
	in.byName[name] = id
	return id
}

// StructByName finds a registered aggregate.
func (in *Interner) StructByName(name string) (TypeID, bool) {
	id, ok := in.byName[name]
	return id, ok
}

// SetStructFields stores the resolved field descriptors for the struct type.
func (in *Interner) SetStructFields(id TypeID, fields []StructField) {
	info := in.structInfo(id)
	if info == nil {
		return
	}
	info.Fields = slices.Clone(fields)
}

// StructInfo returns metadata for the provided struct TypeID.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	info := in.structInfo(id)
	return info, info != nil
}

func (in *Interner) structInfo(id TypeID) *StructInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindStruct {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.structs) {
		return nil
	}
	return &in.structs[tt.Payload]
}

// RegisterFn creates or finds a function type.
func (in *Interner) RegisterFn(params []TypeID, result TypeID) TypeID {
	var sb strings.Builder
	for _, p := range params {
		fmt.Fprintf(&sb, "%d,", p)
	}
	fmt.Fprintf(&sb, "->%d", result)
	key := sb.String()
	if id, ok := in.fnIndex[key]; ok {
		return id
	}
	in.fns = append(in.fns, FnInfo{Params: slices.Clone(params), Result: result})
	id := in.internRaw(Type{Kind: KindFn, Payload: in.slot(len(in.fns) - 1)})
	in.fnIndex[key] = id
	return id
}

// FnInfo retrieves function type metadata by TypeID.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFn || int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}

// Handle interns an opaque resource type, e.g. "File" or "DbConn".
func (in *Interner) Handle(name string) TypeID {
	return in.internNamed(KindHandle, name)
}

// Param interns an unresolved generic parameter.
func (in *Interner) Param(name string) TypeID {
	return in.internNamed(KindParam, name)
}

func (in *Interner) internNamed(kind Kind, name string) TypeID {
	key := nameKey{kind: kind, name: name}
	if id, ok := in.named[key]; ok {
		return id
	}
	in.names = append(in.names, name)
	id := in.internRaw(Type{Kind: kind, Payload: in.slot(len(in.names) - 1)})
	in.named[key] = id
	return id
}

// Name returns the name of a handle, param or struct type.
func (in *Interner) Name(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return ""
	}
	switch tt.Kind {
	case KindHandle, KindParam:
		if int(tt.Payload) < len(in.names) {
			return in.names[tt.Payload]
		}
	case KindStruct:
		if info := in.structInfo(id); info != nil {
			return info.Name
		}
	}
	return ""
}

func (in *Interner) slot(n int) uint32 {
	s, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("type payload overflow: %w", err))
	}
	return s
}
