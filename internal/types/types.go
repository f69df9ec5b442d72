package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindNumber
	KindString
	KindArray    // ordered sequence [T]
	KindMap      // mapping {K: V}
	KindOptional // T?
	KindStruct   // nominal aggregate
	KindFn       // function value
	KindHandle   // opaque runtime resource (file, socket, db connection)
	KindParam    // unresolved generic parameter
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "void"
	case KindBool:
		return "Boolean"
	case KindInt:
		return "Int"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindOptional:
		return "optional"
	case KindStruct:
		return "struct"
	case KindFn:
		return "fn"
	case KindHandle:
		return "handle"
	case KindParam:
		return "param"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsScalar reports whether the kind is a primitive scalar.
func (k Kind) IsScalar() bool {
	switch k {
	case KindBool, KindInt, KindNumber, KindString:
		return true
	}
	return false
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // array/optional element, map value
	Key     TypeID // map key
	Payload uint32 // index into kind-specific side tables (structs, fns, names)
}

// MakeArray describes an ordered sequence of elem.
func MakeArray(elem TypeID) Type {
	return Type{Kind: KindArray, Elem: elem}
}

// MakeMap describes a mapping from key to value.
func MakeMap(key, value TypeID) Type {
	return Type{Kind: KindMap, Key: key, Elem: value}
}

// MakeOptional describes T?.
func MakeOptional(elem TypeID) Type {
	return Type{Kind: KindOptional, Elem: elem}
}
