package partition

import (
	"fmt"
	"slices"

	"ravens/internal/diag"
	"ravens/internal/program"
	"ravens/internal/source"
)

// Direction of a call crossing the boundary.
type Direction uint8

const (
	ClientToServer Direction = iota + 1
	ServerToClient
)

func (d Direction) String() string {
	switch d {
	case ClientToServer:
		return "client->server"
	case ServerToClient:
		return "server->client"
	}
	return "none"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "client->server":
		*d = ClientToServer
	case "server->client":
		*d = ServerToClient
	default:
		return fmt.Errorf("unknown boundary direction %q", text)
	}
	return nil
}

// BoundaryCall is a caller/callee pair whose call crosses placements.
// Every call site between the pair collapses into one record.
type BoundaryCall struct {
	Caller    program.DeclID `json:"caller" msgpack:"caller"`
	Callee    program.DeclID `json:"callee" msgpack:"callee"`
	Direction Direction      `json:"direction" msgpack:"direction"`
	Sites     []source.Span  `json:"-" msgpack:"sites"`
}

// Legal reports whether the call can be bridged by a stub.
func (c BoundaryCall) Legal() bool { return c.Direction == ClientToServer }

// boundaryEdge reports whether an edge between from and to crosses placements.
// Shared edges into one-sided code are rejected earlier by the solver.
func boundaryEdge(from, to Placement) bool {
	if from == to || from == Shared || to == Shared {
		return false
	}
	return from.Concrete() && to.Concrete()
}

type boundaryKey struct {
	from, to program.DeclID
	kind     EdgeKind
}

// DetectBoundaries scans the stabilized placements. Client-to-server calls
// become BoundaryCalls; server-to-client calls and any non-call reference
// across placements are reported as InvalidBoundaryDirection. The returned
// calls are sorted by (callee, caller) and include the illegal ones.
func DetectBoundaries(prog *program.Program, g *Graph, pm *PlacementMap, r diag.Reporter) []BoundaryCall {
	calls := make(map[boundaryKey]*BoundaryCall)
	reported := make(map[boundaryKey]bool)
	for i := range g.Edges {
		e := &g.Edges[i]
		from, to := pm.Get(e.From), pm.Get(e.To)
		if !boundaryEdge(from, to) {
			continue
		}
		key := boundaryKey{from: e.From, to: e.To, kind: e.Kind}
		if e.Kind != EdgeCall {
			if !reported[key] {
				reported[key] = true
				reportNonCallCrossing(prog, e, from, to, r)
			}
			continue
		}
		dir := ClientToServer
		if from == Server {
			dir = ServerToClient
		}
		call, ok := calls[key]
		if !ok {
			call = &BoundaryCall{Caller: e.From, Callee: e.To, Direction: dir}
			calls[key] = call
			if dir == ServerToClient {
				reportServerToClient(prog, e, r)
			}
		}
		call.Sites = append(call.Sites, e.Span)
	}

	out := make([]BoundaryCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b BoundaryCall) int {
		if a.Callee != b.Callee {
			return int(a.Callee) - int(b.Callee)
		}
		return int(a.Caller) - int(b.Caller)
	})
	return out
}

func reportServerToClient(prog *program.Program, e *Edge, r diag.Reporter) {
	caller, callee := prog.Decl(e.From), prog.Decl(e.To)
	diag.ReportError(r, diag.PlcInvalidBoundaryDirection, e.Span,
		fmt.Sprintf("invalid boundary direction `%s` → `%s`: server code cannot call client code", caller.Path, callee.Path)).
		WithNote(caller.Span, fmt.Sprintf("`%s` is placed on the server", caller.Path)).
		WithNote(callee.Span, fmt.Sprintf("`%s` is placed on the client", callee.Path)).
		Emit()
}

func reportNonCallCrossing(prog *program.Program, e *Edge, from, to Placement, r diag.Reporter) {
	caller, callee := prog.Decl(e.From), prog.Decl(e.To)
	diag.ReportError(r, diag.PlcInvalidBoundaryDirection, e.Span,
		fmt.Sprintf("invalid boundary direction `%s` → `%s`: %s code uses %s-only `%s` by %s; only calls can cross the boundary",
			caller.Path, callee.Path, from, to, callee.Path, e.Kind)).
		WithNote(callee.Span, fmt.Sprintf("`%s` is placed on the %s", callee.Path, to)).
		Emit()
}
