package partition

import (
	"strings"
	"testing"

	"ravens/internal/source"
	"ravens/internal/types"
)

func newTestInterner(t *testing.T, structs map[string]map[string]string, order ...string) *types.Interner {
	t.Helper()
	in := types.NewInterner()
	for _, name := range order {
		in.RegisterStruct(name, source.Span{})
	}
	for _, name := range order {
		var fields []types.StructField
		for _, fname := range sortedKeys(structs[name]) {
			id, err := in.ParseExpr(structs[name][fname])
			if err != nil {
				t.Fatalf("parse %s.%s: %v", name, fname, err)
			}
			fields = append(fields, types.StructField{Name: fname, Type: id})
		}
		sid, _ := in.StructByName(name)
		in.SetStructFields(sid, fields)
	}
	return in
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func TestValidatorVerdicts(t *testing.T) {
	in := newTestInterner(t, map[string]map[string]string{
		"Handler": {"cb": "fn() -> void", "name": "String"},
		"Row":     {"id": "Int", "tags": "[String]"},
	}, "Handler", "Row")
	v := NewValidator(in)

	tests := []struct {
		expr   string
		ok     bool
		path   string
		reason string
	}{
		{"Number", true, "", ""},
		{"[Row]", true, "", ""},
		{"{String: Row?}", true, "", ""},
		{"fn(Int) -> Int", false, "", "function value"},
		{"handle File", false, "", "resource handle File"},
		{"'T", false, "", "generic parameter"},
		{"[Handler]", false, "[].cb", "function value"},
		{"{String: Handler}", false, "{}.cb", "function value"},
		{"{Int: String}", false, "{key}", "map key Int is not String"},
		{"Handler?", false, ".cb", "function value"},
		{"void", false, "", "void value"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			id, err := in.ParseExpr(tt.expr)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			f := v.Check(id)
			if f.OK != tt.ok || f.Path != tt.path || !strings.Contains(f.Reason, tt.reason) {
				t.Fatalf("Check(%s) = %+v, want ok=%v path=%q reason~%q", tt.expr, f, tt.ok, tt.path, tt.reason)
			}
		})
	}

	unit, _ := in.ParseExpr("void")
	if f := v.CheckResult(unit); !f.OK {
		t.Fatalf("void must be allowed as a result")
	}
}

func TestValidatorMemoizes(t *testing.T) {
	in := newTestInterner(t, map[string]map[string]string{
		"Row": {"id": "Int"},
	}, "Row")
	v := NewValidator(in)
	row, _ := in.StructByName("Row")
	v.Check(row)
	misses := v.Misses
	v.Check(row)
	if v.Misses != misses || v.Hits == 0 {
		t.Fatalf("second check must be served from the memo (hits=%d misses=%d->%d)", v.Hits, misses, v.Misses)
	}
}

func TestValidatorRecursiveAggregates(t *testing.T) {
	structs := map[string]map[string]string{
		"A":    {"b": "B", "f": "fn() -> void"},
		"B":    {"a": "A"},
		"Tree": {"children": "[Tree]", "label": "String"},
	}
	t.Run("outer first", func(t *testing.T) {
		in := newTestInterner(t, structs, "A", "B", "Tree")
		v := NewValidator(in)
		a, _ := in.StructByName("A")
		b, _ := in.StructByName("B")
		if f := v.Check(a); f.OK || f.Path != ".f" {
			t.Fatalf("A: %+v", f)
		}
		// B was only provisionally fine while A was being checked
		if f := v.Check(b); f.OK || f.Path != ".a.f" {
			t.Fatalf("B: %+v", f)
		}
	})
	t.Run("inner first", func(t *testing.T) {
		in := newTestInterner(t, structs, "A", "B", "Tree")
		v := NewValidator(in)
		b, _ := in.StructByName("B")
		if f := v.Check(b); f.OK || f.Path != ".a.f" {
			t.Fatalf("B: %+v", f)
		}
	})
	t.Run("self recursive", func(t *testing.T) {
		in := newTestInterner(t, structs, "A", "B", "Tree")
		v := NewValidator(in)
		tree, _ := in.StructByName("Tree")
		if f := v.Check(tree); !f.OK {
			t.Fatalf("Tree must be serializable: %+v", f)
		}
	})
}

func TestArgumentPathsArePositional(t *testing.T) {
	prog := mustProgram(t, `
program: paths
decls:
  - path: Handler
    kind: type
    fields: [{name: cb, type: "fn() -> void"}]
  - path: subscribe
    placement: server
    params:
      - {name: topic, type: String}
      - {name: handlers, type: "[Handler]"}
  - path: ui
    placement: client
    calls: [subscribe]
`)
	res := mustRun(t, prog, Options{})
	if !strings.Contains(dumpDiags(res, prog), "arg2[].cb") {
		t.Fatalf("expected arg2[].cb in diagnostics:\n%s", dumpDiags(res, prog))
	}
}
