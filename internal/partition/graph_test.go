package partition

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ravens/internal/program"
)

func TestBuildGraphReportsUnresolvedReferences(t *testing.T) {
	prog := mustProgram(t, `
program: broken
decls:
  - path: ui
    calls: [missing, other::missing]
`)
	_, err := BuildGraph(prog)
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Fatalf("expected ErrUnresolvedReference, got %v", err)
	}
}

func TestGraphEdgesAndComponents(t *testing.T) {
	prog := mustProgram(t, `
program: g
decls:
  - path: a
    calls: [b, b]
  - path: b
    reads: [C.x]
  - path: C
    kind: type
    fields: [{name: x, type: Int}]
  - path: d
  - path: e
    calls: [d]
`)
	g, err := BuildGraph(prog)
	if err != nil {
		t.Fatal(err)
	}
	a := prog.MustLookup("a")
	if got := len(g.Out(a)); got != 2 {
		t.Fatalf("duplicate call sites must be kept, got %d edges", got)
	}
	b := prog.MustLookup("b")
	if out := g.Out(b); len(out) != 1 || out[0].Kind != EdgeField || out[0].To != prog.MustLookup("C") {
		t.Fatalf("field read must point at the aggregate: %+v", out)
	}
	if got := len(g.In(b)); got != 2 {
		t.Fatalf("In(b) = %d edges", got)
	}

	var comps [][]string
	for _, c := range g.Components() {
		comps = append(comps, paths(prog, c))
	}
	want := [][]string{{"C", "a", "b"}, {"d", "e"}}
	if diff := cmp.Diff(want, comps); diff != "" {
		t.Fatalf("components mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclIDAt(t *testing.T) {
	if got := declIDAt(3); got != 3 {
		t.Fatalf("declIDAt(3) = %d", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("negative index must panic")
		}
	}()
	declIDAt(-1)
}

func TestPlacementWriterDetectsDoubleWrite(t *testing.T) {
	w := newPlacementWriter(3)
	res := componentResult{members: []program.DeclID{1, 2}, placements: []Placement{Server, Shared}}
	if err := w.claim(0, res); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	overlap := componentResult{members: []program.DeclID{2, 3}, placements: []Placement{Client, Client}}
	if err := w.claim(1, overlap); !errors.Is(err, ErrConcurrentPlacementWrite) {
		t.Fatalf("expected ErrConcurrentPlacementWrite, got %v", err)
	}
	if w.m.Get(2) != Shared {
		t.Fatalf("first writer must win, got %s", w.m.Get(2))
	}
}

func TestEmissionOrder(t *testing.T) {
	prog := mustProgram(t, `
program: order
decls:
  - path: main
    calls: [render, fetch]
  - path: render
    calls: [fmt]
  - path: fetch
    calls: [fmt]
  - path: fmt
  - path: ping
    calls: [pong]
  - path: pong
    calls: [ping]
`)
	g, err := BuildGraph(prog)
	if err != nil {
		t.Fatal(err)
	}
	var all []program.DeclID
	for id := range prog.IDs() {
		all = append(all, id)
	}
	topo := EmissionOrder(g, all)
	want := []string{"fmt", "fetch", "render", "main", "ping", "pong"}
	if diff := cmp.Diff(want, paths(prog, topo.Order)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ping", "pong"}, paths(prog, topo.Cycles)); diff != "" {
		t.Fatalf("cycles mismatch (-want +got):\n%s", diff)
	}
}

func TestStubTableVerification(t *testing.T) {
	ok := []RpcStub{{StableName: "a.load"}, {StableName: "b"}}
	if err := VerifyTable(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range [][]RpcStub{
		{{StableName: "b"}, {StableName: "a"}},
		{{StableName: "x", Path: "x"}, {StableName: "x", Path: "x"}},
	} {
		if err := VerifyTable(bad); !errors.Is(err, ErrStubTable) {
			t.Fatalf("expected ErrStubTable for %+v, got %v", bad, err)
		}
	}
	// composed and decomposed é normalize to the same name
	if StableName("caf\u00e9::get") != StableName("cafe\u0301::get") {
		t.Fatalf("stable names must be NFC-normalized")
	}
}
