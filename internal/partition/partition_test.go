package partition

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ravens/internal/diag"
	"ravens/internal/project"
	"ravens/internal/types"
)

func TestSharedDuplication(t *testing.T) {
	prog := mustProgram(t, `
program: shared
decls:
  - path: api
    placement: server
    calls: [format]
  - path: ui
    placement: client
    calls: [format]
  - path: format
    params: [{name: s, type: String}]
    result: String
`)
	res := mustRun(t, prog, Options{})
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", dumpDiags(res, prog))
	}
	if got := placementOfPath(t, prog, res, "format"); got != Shared {
		t.Fatalf("format placed %s, want shared", got)
	}
	out := res.Output
	if diff := cmp.Diff([]string{"format", "api"}, paths(prog, out.Server)); diff != "" {
		t.Fatalf("server set mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"format", "ui"}, paths(prog, out.Client)); diff != "" {
		t.Fatalf("client set mismatch (-want +got):\n%s", diff)
	}
	if len(out.Stubs) != 0 || len(out.Boundary) != 0 {
		t.Fatalf("shared declaration must not be stubbed: %+v", out.Stubs)
	}
}

func TestSerializableBoundaryProducesOneStub(t *testing.T) {
	prog := mustProgram(t, `
program: todo
decls:
  - path: save
    placement: server
    params: [{name: x, type: Number}]
    result: Boolean
  - path: ui
    placement: client
    calls:
      - {target: save, at: app.rv:10:3}
      - {target: save, at: app.rv:12:3}
`)
	res := mustRun(t, prog, Options{})
	if err := res.Err(); err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, dumpDiags(res, prog))
	}
	stubs := res.Output.Stubs
	if len(stubs) != 1 {
		t.Fatalf("expected exactly one stub, got %d", len(stubs))
	}
	s := stubs[0]
	if s.StableName != "save" || s.ServerDecl != prog.MustLookup("save") {
		t.Fatalf("unexpected stub identity: %+v", s)
	}
	wantArgs := []types.Descriptor{{Kind: types.DescNumber}}
	if diff := cmp.Diff(wantArgs, s.ArgSchema); diff != "" {
		t.Fatalf("arg schema mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(types.Descriptor{Kind: types.DescBoolean}, s.ReturnSchema); diff != "" {
		t.Fatalf("return schema mismatch (-want +got):\n%s", diff)
	}
	if !s.Proxy.Async || !s.Proxy.Stateless || s.Proxy.Returns != "Async<Envelope<Boolean>>" {
		t.Fatalf("proxy must be async and stateless: %+v", s.Proxy)
	}
	if s.Handler.Register != "save" || s.Handler.Envelope.Err.Name != "RpcError" {
		t.Fatalf("handler must register under the stable name: %+v", s.Handler)
	}
	if len(res.Output.Boundary) != 1 || len(res.Output.Boundary[0].Sites) != 2 {
		t.Fatalf("call sites must collapse into one boundary call: %+v", res.Output.Boundary)
	}
}

func TestNonSerializableBoundaryFails(t *testing.T) {
	prog := mustProgram(t, `
program: todo
decls:
  - path: Reply
    kind: type
    fields:
      - {name: ok, type: Boolean}
      - {name: callback, type: "fn(String) -> void"}
  - path: load
    placement: server
    result: Reply
  - path: ui
    placement: client
    calls: [load]
`)
	res := mustRun(t, prog, Options{})
	d, ok := findDiag(res, diag.PlcNonSerializableBoundaryType)
	if !ok {
		t.Fatalf("expected NonSerializableBoundaryType, got:\n%s", dumpDiags(res, prog))
	}
	if !strings.Contains(d.Message, "result.callback") {
		t.Fatalf("diagnostic must name the field path: %q", d.Message)
	}
	if res.Output != nil || res.Err() == nil {
		t.Fatalf("fatal diagnostic must suppress output")
	}
}

func TestIllegalDirectionRejected(t *testing.T) {
	prog := mustProgram(t, `
program: bad
decls:
  - path: S
    placement: server
    calls: [C]
  - path: C
    placement: client
`)
	res := mustRun(t, prog, Options{})
	d, ok := findDiag(res, diag.PlcInvalidBoundaryDirection)
	if !ok {
		t.Fatalf("expected InvalidBoundaryDirection, got:\n%s", dumpDiags(res, prog))
	}
	if !strings.Contains(d.Message, "`S` → `C`") {
		t.Fatalf("diagnostic must name S → C: %q", d.Message)
	}
	if res.Output != nil {
		t.Fatalf("no output expected")
	}
}

func TestNonCallCrossingRejected(t *testing.T) {
	prog := mustProgram(t, `
program: bad
decls:
  - path: Secret
    kind: type
    placement: server
    fields: [{name: key, type: String}]
  - path: ui
    placement: client
    types: [Secret]
`)
	res := mustRun(t, prog, Options{})
	d, ok := findDiag(res, diag.PlcInvalidBoundaryDirection)
	if !ok || !strings.Contains(d.Message, "only calls can cross") {
		t.Fatalf("expected non-call crossing error, got:\n%s", dumpDiags(res, prog))
	}
}

func TestConflictingAnnotationRejected(t *testing.T) {
	prog := mustProgram(t, `
program: bad
decls:
  - path: both
    placement: [server, client]
  - path: ok
    placement: client
`)
	res := mustRun(t, prog, Options{})
	d, ok := findDiag(res, diag.PlcConflictingAnnotation)
	if !ok {
		t.Fatalf("expected ConflictingAnnotation, got:\n%s", dumpDiags(res, prog))
	}
	if len(d.Notes) != 2 {
		t.Fatalf("expected one note per tag, got %d", len(d.Notes))
	}
	if res.Output != nil || res.Err() == nil {
		t.Fatalf("no partial output may be emitted")
	}
	if got := placementOfPath(t, prog, res, "both"); got != Unresolved {
		t.Fatalf("conflicted declaration placed %s", got)
	}
}

func TestRepeatedTagIsNotAConflict(t *testing.T) {
	prog := mustProgram(t, `
program: ok
decls:
  - path: api
    placement: [server, "@server"]
`)
	res := mustRun(t, prog, Options{})
	if res.Err() != nil {
		t.Fatalf("unexpected error: %v", res.Err())
	}
}

func TestAmbiguousPlacementNamesBothPaths(t *testing.T) {
	prog := mustProgram(t, `
program: amb
decls:
  - path: api
    placement: server
    calls: [helper]
  - path: ui
    placement: client
    calls: [helper]
  - path: helper
    calls: [db::write]
  - path: db::write
    capabilities: storage
`)
	res := mustRun(t, prog, Options{})
	d, ok := findDiag(res, diag.PlcAmbiguousPlacement)
	if !ok {
		t.Fatalf("expected AmbiguousPlacement, got:\n%s", dumpDiags(res, prog))
	}
	notes := notesText(d)
	for _, want := range []string{"server path: api → helper → db::write", "client path: ui → helper → db::write"} {
		if !strings.Contains(notes, want) {
			t.Fatalf("notes missing %q:\n%s", want, notes)
		}
	}
	// helper → db::write is not reported a second time as a shared edge
	if got := res.Bag.Count(diag.PlcAmbiguousPlacement); got != 1 {
		t.Fatalf("AmbiguousPlacement reported %d times:\n%s", got, dumpDiags(res, prog))
	}
}

func TestSharedEdgeToOneSidedDeclaration(t *testing.T) {
	tests := []struct {
		name   string
		decls  string
		shared string
		code   diag.Code
		msg    string
		note   string
	}{
		{
			name: "inferred shared calls server",
			decls: `
  - path: api
    placement: server
    calls: [helper]
  - path: ui
    placement: client
    calls: [helper]
  - path: helper
    calls: [db]
  - path: db
    placement: server
`,
			shared: "helper",
			code:   diag.PlcAmbiguousPlacement,
			msg:    "calls server-only `db`",
			note:   "client path: ui → helper",
		},
		{
			name: "explicit shared calls server",
			decls: `
  - path: helper
    placement: shared
    calls: [db]
  - path: db
    placement: server
`,
			shared: "helper",
			code:   diag.PlcAmbiguousPlacement,
			msg:    "annotate `helper` with @server or @client",
			note:   "`helper` is annotated @shared",
		},
		{
			name: "dead shared calls server",
			decls: `
  - path: api
    placement: server
  - path: orphan
    calls: [api]
`,
			shared: "orphan",
			code:   diag.PlcAmbiguousPlacement,
			msg:    "calls server-only `api`",
			note:   "`orphan` is unreachable and emitted on both sides",
		},
		{
			name: "inferred shared calls client",
			decls: `
  - path: api
    placement: server
    calls: [helper]
  - path: ui
    placement: client
    calls: [helper]
  - path: helper
    calls: [render]
  - path: render
    placement: client
`,
			shared: "helper",
			code:   diag.PlcInvalidBoundaryDirection,
			msg:    "`helper` → `render`",
			note:   "server path: api → helper",
		},
		{
			name: "shared uses server type",
			decls: `
  - path: Secret
    kind: type
    placement: server
    fields: [{name: key, type: String}]
  - path: api
    placement: server
    calls: [helper]
  - path: ui
    placement: client
    calls: [helper]
  - path: helper
    types: [Secret]
`,
			shared: "helper",
			code:   diag.PlcInvalidBoundaryDirection,
			msg:    "shared code uses server-only `Secret` by typeReference",
			note:   "`Secret` is placed on the server",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustProgram(t, "program: edge\ndecls:"+tt.decls)
			res := mustRun(t, prog, Options{})
			d, ok := findDiag(res, tt.code)
			if !ok {
				t.Fatalf("expected %s, got:\n%s", tt.code, dumpDiags(res, prog))
			}
			if !strings.Contains(d.Message, tt.msg) {
				t.Fatalf("message %q missing %q", d.Message, tt.msg)
			}
			if notes := notesText(d); !strings.Contains(notes, tt.note) {
				t.Fatalf("notes missing %q:\n%s", tt.note, notes)
			}
			if res.Output != nil || res.Err() == nil {
				t.Fatalf("shared edge to one-sided code must be fatal")
			}
			if got := placementOfPath(t, prog, res, tt.shared); got != Shared {
				t.Fatalf("%s placed %s, want shared", tt.shared, got)
			}
		})
	}
}

func TestCapabilityReachedFromOppositeSide(t *testing.T) {
	prog := mustProgram(t, `
program: amb
decls:
  - path: ui
    placement: client
    calls: [persist]
  - path: persist
    capabilities: [storage]
`)
	res := mustRun(t, prog, Options{})
	d, ok := findDiag(res, diag.PlcAmbiguousPlacement)
	if !ok || !strings.Contains(d.Message, "reached only from client code") {
		t.Fatalf("expected single-side capability error, got:\n%s", dumpDiags(res, prog))
	}
}

func TestCapabilityOnMatchingSideIsInferred(t *testing.T) {
	prog := mustProgram(t, `
program: ok
decls:
  - path: api
    placement: server
    calls: [persist]
  - path: persist
    capabilities: [storage]
`)
	res := mustRun(t, prog, Options{})
	if res.Err() != nil {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	if got := placementOfPath(t, prog, res, "persist"); got != Server {
		t.Fatalf("persist placed %s, want server", got)
	}
}

func TestBoundaryTypesReachBothSides(t *testing.T) {
	prog := mustProgram(t, `
program: todo
decls:
  - path: Item
    kind: type
    fields: [{name: title, type: String}, {name: tags, type: "[Tag]"}]
  - path: Tag
    kind: type
    fields: [{name: name, type: String}]
  - path: store::save
    placement: server
    params: [{name: item, type: Item}]
    result: Boolean
    calls: [audit]
  - path: audit
    capabilities: [env]
  - path: ui
    placement: client
    calls: [store::save]
`)
	res := mustRun(t, prog, Options{})
	if err := res.Err(); err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, dumpDiags(res, prog))
	}
	want := map[string]Placement{
		"Item":        Shared,
		"Tag":         Shared,
		"audit":       Server,
		"store::save": Server,
		"ui":          Client,
	}
	for path, p := range want {
		if got := placementOfPath(t, prog, res, path); got != p {
			t.Fatalf("%s placed %s, want %s", path, got, p)
		}
	}
	s := res.Output.Stubs[0]
	if s.StableName != "store.save" || s.Handler.Symbol != "handleStoreSave" || s.Proxy.Symbol != "storeSave" {
		t.Fatalf("unexpected naming: %s %s %s", s.StableName, s.Handler.Symbol, s.Proxy.Symbol)
	}
	if s.ArgSchema[0].Kind != types.DescStruct || s.ArgSchema[0].Fields[1].Type.Elem.Name != "Tag" {
		t.Fatalf("argument schema must describe Item inline: %s", s.ArgSchema[0])
	}
}

func TestDeadCodePolicies(t *testing.T) {
	src := `
program: dead
decls:
  - path: api
    placement: server
  - path: unused
  - path: unusedStore
    capabilities: [storage]
`
	tests := []struct {
		policy      project.DeadCodePolicy
		warnings    int
		unused      Placement
		unusedStore Placement
		dropped     int
	}{
		{project.DeadCodeShared, 2, Shared, Server, 0},
		{project.DeadCodeKeep, 0, Shared, Server, 0},
		{project.DeadCodeDrop, 2, Shared, Server, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			prog := mustProgram(t, src)
			res := mustRun(t, prog, Options{DeadCode: tt.policy})
			if got := res.Bag.Count(diag.PlcDeadCode); got != tt.warnings {
				t.Fatalf("dead-code warnings = %d, want %d", got, tt.warnings)
			}
			if res.Output == nil {
				t.Fatalf("dead code must not be fatal:\n%s", dumpDiags(res, prog))
			}
			if got := placementOfPath(t, prog, res, "unused"); got != tt.unused {
				t.Fatalf("unused placed %s", got)
			}
			if got := placementOfPath(t, prog, res, "unusedStore"); got != tt.unusedStore {
				t.Fatalf("unusedStore placed %s", got)
			}
			if len(res.Output.Dropped) != tt.dropped {
				t.Fatalf("dropped = %v", res.Output.Dropped)
			}
			inClient := false
			for _, id := range res.Output.Client {
				inClient = inClient || id == prog.MustLookup("unused")
			}
			if inClient == (tt.dropped > 0) {
				t.Fatalf("unused in client set = %v with policy %s", inClient, tt.policy)
			}
		})
	}
}

func TestDeterministicAcrossRunsJobsAndOrder(t *testing.T) {
	const decls = `
  - path: b::save
    placement: server
    params: [{name: n, type: Int}]
  - path: a::load
    placement: server
    result: "{String: [Number]}"
  - path: ui
    placement: client
    calls: [b::save, a::load, fmt]
  - path: admin
    placement: client
    calls: [a::load]
  - path: fmt
  - path: island
    placement: server
    calls: [lonely]
  - path: lonely
`
	reversed := `
  - path: lonely
  - path: island
    placement: server
    calls: [lonely]
  - path: fmt
  - path: admin
    placement: client
    calls: [a::load]
  - path: ui
    placement: client
    calls: [b::save, a::load, fmt]
  - path: a::load
    placement: server
    result: "{String: [Number]}"
  - path: b::save
    placement: server
    params: [{name: n, type: Int}]
`
	encode := func(src string, jobs int) []byte {
		prog := mustProgram(t, "program: det\ndecls:"+src)
		res := mustRun(t, prog, Options{Jobs: jobs})
		if res.Output == nil {
			t.Fatalf("unexpected failure:\n%s", dumpDiags(res, prog))
		}
		data, err := res.Output.Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return data
	}
	first := encode(decls, 1)
	for _, other := range [][]byte{encode(decls, 1), encode(decls, 4), encode(reversed, 4)} {
		if !bytes.Equal(first, other) {
			t.Fatalf("outputs differ between runs")
		}
	}

	prog := mustProgram(t, "program: det\ndecls:"+decls)
	res := mustRun(t, prog, Options{})
	var names []string
	for _, s := range res.Output.Stubs {
		names = append(names, s.StableName)
	}
	if diff := cmp.Diff([]string{"a.load", "b.save"}, names); diff != "" {
		t.Fatalf("stub table must be sorted by stable name (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"admin", "ui"}, paths(prog, res.Output.Stubs[0].Callers)); diff != "" {
		t.Fatalf("callers mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxDiagnosticsNeverHidesFatal(t *testing.T) {
	prog := mustProgram(t, `
program: many
decls:
  - path: a
  - path: b
  - path: c
  - path: zz
    placement: [server, client]
`)
	res := mustRun(t, prog, Options{MaxDiagnostics: 1})
	if res.Bag.Len() != 1 || res.Truncated() != 3 {
		t.Fatalf("bag len=%d truncated=%d", res.Bag.Len(), res.Truncated())
	}
	if res.Err() == nil || res.Output != nil {
		t.Fatalf("fatal diagnostic must survive truncation")
	}
}
