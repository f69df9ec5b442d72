package types

import (
	"testing"

	"ravens/internal/source"
)

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID || b.Number == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	num, _ := in.Lookup(b.Number)
	if num.Kind != KindNumber {
		t.Fatalf("expected number kind, got %v", num.Kind)
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().String
	arr1 := in.Intern(MakeArray(elem))
	arr2 := in.Intern(MakeArray(elem))
	if arr1 != arr2 {
		t.Fatalf("array types should be deduplicated")
	}
	m1 := in.Intern(MakeMap(elem, arr1))
	m2 := in.Intern(MakeMap(elem, arr2))
	if m1 != m2 {
		t.Fatalf("map types should be deduplicated")
	}
	f1 := in.RegisterFn([]TypeID{elem}, in.Builtins().Bool)
	f2 := in.RegisterFn([]TypeID{elem}, in.Builtins().Bool)
	if f1 != f2 {
		t.Fatalf("fn types should be deduplicated")
	}
}

func TestStructsAreNominal(t *testing.T) {
	in := NewInterner()
	a := in.RegisterStruct("User", source.Span{})
	b := in.RegisterStruct("Order", source.Span{})
	if a == b {
		t.Fatalf("distinct aggregates must not share ids")
	}
	if again := in.RegisterStruct("User", source.Span{}); again != a {
		t.Fatalf("re-registering a name must return the first id")
	}
}

func TestParseExprRoundTrip(t *testing.T) {
	in := NewInterner()
	user := in.RegisterStruct("User", source.Span{})
	in.SetStructFields(user, []StructField{{Name: "name", Type: in.Builtins().String}})

	exprs := []string{
		"Number",
		"[String]",
		"{String: [Int]}",
		"User?",
		"fn(Int, String) -> Boolean",
		"fn()",
		"handle File",
		"'T",
		"[{String: User?}]",
	}
	for _, src := range exprs {
		id, err := in.ParseExpr(src)
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", src, err)
		}
		if got := Label(in, id); got != src {
			t.Fatalf("Label(ParseExpr(%q)) = %q", src, got)
		}
	}
}

func TestParseExprErrors(t *testing.T) {
	in := NewInterner()
	for _, src := range []string{"", "[Int", "{String Int}", "Unknown", "handle", "Int extra"} {
		if _, err := in.ParseExpr(src); err == nil {
			t.Fatalf("ParseExpr(%q) succeeded, want error", src)
		}
	}
}

func TestDescribeRecursiveAggregate(t *testing.T) {
	in := NewInterner()
	node := in.RegisterStruct("Node", source.Span{})
	children := in.Intern(MakeArray(node))
	in.SetStructFields(node, []StructField{
		{Name: "value", Type: in.Builtins().Int},
		{Name: "children", Type: children},
	})
	d := in.Describe(node)
	if d.Kind != DescStruct || len(d.Fields) != 2 {
		t.Fatalf("unexpected descriptor %+v", d)
	}
	inner := d.Fields[1].Type
	if inner.Kind != DescArray || inner.Elem == nil || inner.Elem.Kind != DescRef || inner.Elem.Name != "Node" {
		t.Fatalf("recursive occurrence must be a ref, got %+v", inner)
	}
	if got := inner.String(); got != "[Node]" {
		t.Fatalf("String() = %q", got)
	}
}
