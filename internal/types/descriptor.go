package types

// Descriptor is the emitter-facing, interner-independent shape of a type that
// crosses the client/server boundary. Aggregates are described inline once per
// descriptor tree; a recursive occurrence is emitted as Kind "ref" carrying
// only the aggregate name.
type Descriptor struct {
	Kind   string            `json:"kind" msgpack:"kind" yaml:"kind"`
	Name   string            `json:"name,omitempty" msgpack:"name,omitempty" yaml:"name,omitempty"`
	Elem   *Descriptor       `json:"elem,omitempty" msgpack:"elem,omitempty" yaml:"elem,omitempty"`
	Key    *Descriptor       `json:"key,omitempty" msgpack:"key,omitempty" yaml:"key,omitempty"`
	Fields []FieldDescriptor `json:"fields,omitempty" msgpack:"fields,omitempty" yaml:"fields,omitempty"`
}

// FieldDescriptor is one named field of an aggregate descriptor.
type FieldDescriptor struct {
	Name string     `json:"name" msgpack:"name" yaml:"name"`
	Type Descriptor `json:"type" msgpack:"type" yaml:"type"`
}

// Descriptor kinds.
const (
	DescBoolean  = "Boolean"
	DescInt      = "Int"
	DescNumber   = "Number"
	DescString   = "String"
	DescArray    = "array"
	DescMap      = "map"
	DescOptional = "optional"
	DescStruct   = "struct"
	DescRef      = "ref"
	DescVoid     = "void" // return schema of a call without a result
)

// Describe converts a serializable TypeID into a Descriptor. Callers must
// validate serializability first; non-wire kinds yield a descriptor with the
// kind name and no structure.
func (in *Interner) Describe(id TypeID) Descriptor {
	return in.describe(id, make(map[TypeID]bool))
}

func (in *Interner) describe(id TypeID, active map[TypeID]bool) Descriptor {
	tt, ok := in.Lookup(id)
	if !ok {
		return Descriptor{Kind: KindInvalid.String()}
	}
	switch tt.Kind {
	case KindArray:
		elem := in.describe(tt.Elem, active)
		return Descriptor{Kind: DescArray, Elem: &elem}
	case KindMap:
		key := in.describe(tt.Key, active)
		elem := in.describe(tt.Elem, active)
		return Descriptor{Kind: DescMap, Key: &key, Elem: &elem}
	case KindOptional:
		elem := in.describe(tt.Elem, active)
		return Descriptor{Kind: DescOptional, Elem: &elem}
	case KindStruct:
		name := in.Name(id)
		if active[id] {
			return Descriptor{Kind: DescRef, Name: name}
		}
		active[id] = true
		defer delete(active, id)
		info, _ := in.StructInfo(id)
		desc := Descriptor{Kind: DescStruct, Name: name}
		if info != nil {
			desc.Fields = make([]FieldDescriptor, len(info.Fields))
			for i, f := range info.Fields {
				desc.Fields[i] = FieldDescriptor{Name: f.Name, Type: in.describe(f.Type, active)}
			}
		}
		return desc
	case KindHandle, KindParam:
		return Descriptor{Kind: tt.Kind.String(), Name: in.Name(id)}
	default:
		return Descriptor{Kind: tt.Kind.String()}
	}
}

// String renders the descriptor in type-expression form.
func (d Descriptor) String() string {
	switch d.Kind {
	case DescArray:
		return "[" + d.Elem.String() + "]"
	case DescMap:
		return "{" + d.Key.String() + ": " + d.Elem.String() + "}"
	case DescOptional:
		return d.Elem.String() + "?"
	case DescStruct, DescRef:
		return d.Name
	}
	if d.Name != "" {
		return d.Kind + " " + d.Name
	}
	return d.Kind
}
