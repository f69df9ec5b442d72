package partition

import (
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"ravens/internal/diag"
	"ravens/internal/program"
	"ravens/internal/project"
	"ravens/internal/source"
	"ravens/internal/trace"
)

// solver owns the closure state of one connected component. It is created
// per component, used once and dropped, so components can be solved on
// separate goroutines without sharing anything mutable.
type solver struct {
	prog     *program.Program
	g        *Graph
	members  []program.DeclID
	seeds    *seedSet
	policy   project.DeadCodePolicy
	tracer   trace.Tracer
	parentID uint64

	reach     map[program.DeclID]reach
	parent    [2]map[program.DeclID]program.DeclID // predecessor per side, for path reporting
	ambiguous mapset.Set[program.DeclID]           // already reported, skipped by checkSharedEdges
	bag       *diag.Bag
}

type componentResult struct {
	members    []program.DeclID
	placements []Placement // parallel to members
	dropped    []program.DeclID
	bag        *diag.Bag
}

func newSolver(prog *program.Program, g *Graph, members []program.DeclID, seeds *seedSet, policy project.DeadCodePolicy) *solver {
	return &solver{
		prog:    prog,
		g:       g,
		members: members,
		seeds:   seeds,
		policy:  policy,
		tracer:  trace.Nop,
		reach:   make(map[program.DeclID]reach, len(members)),
		parent: [2]map[program.DeclID]program.DeclID{
			make(map[program.DeclID]program.DeclID),
			make(map[program.DeclID]program.DeclID),
		},
		ambiguous: mapset.NewThreadUnsafeSet[program.DeclID](),
		bag:       diag.NewBag(0),
	}
}

func sideIndex(side reach) int {
	if side == reachClient {
		return 1
	}
	return 0
}

var bothSides = [...]reach{reachServer, reachClient}

type workItem struct {
	id   program.DeclID
	side reach
}

// run propagates reach breadth-first from the seeds and then classifies
// every member. The worklist is seeded in id order, so the recorded paths
// are the shortest ones and identical between runs.
func (s *solver) run(ctx context.Context) (componentResult, error) {
	queue := make([]workItem, 0, len(s.members))
	for _, id := range s.members {
		p, ok := s.seeds.explicit[id]
		if !ok {
			continue
		}
		s.reach[id] = p.reach()
		for _, side := range bothSides {
			if p.reach().has(side) {
				queue = append(queue, workItem{id: id, side: side})
			}
		}
	}

	for head := 0; head < len(queue); head++ {
		if head%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return componentResult{}, err
			}
		}
		it := queue[head]
		own, explicit := s.seeds.explicit[it.id]
		// a side that reached an explicit declaration from outside only
		// needs the types of its signature, never its body
		foreign := explicit && !own.reach().has(it.side)
		for _, idx := range s.g.out[it.id] {
			e := &s.g.Edges[idx]
			if foreign && !e.Signature {
				continue
			}
			if s.reach[e.To].has(it.side) {
				continue
			}
			s.reach[e.To] |= it.side
			s.parent[sideIndex(it.side)][e.To] = it.id
			queue = append(queue, workItem{id: e.To, side: it.side})
		}
	}

	res := componentResult{
		members:    s.members,
		placements: make([]Placement, len(s.members)),
		bag:        s.bag,
	}
	for i, id := range s.members {
		res.placements[i] = s.classify(id, &res)
		trace.Point(s.tracer, trace.ScopeDecl, "place",
			fmt.Sprintf("%s -> %s", s.prog.Path(id), res.placements[i]), s.parentID)
	}
	s.checkSharedEdges(&res)
	return res, nil
}

// checkSharedEdges rejects shared code that depends on a one-sided
// declaration: one of its two copies would reference something absent from
// that side. Shared never takes part in a boundary call, so such an edge
// is reported instead of stubbed.
func (s *solver) checkSharedEdges(res *componentResult) {
	placed := make(map[program.DeclID]Placement, len(res.members))
	for i, id := range res.members {
		placed[id] = res.placements[i]
	}
	for _, id := range res.dropped {
		delete(placed, id)
	}
	r := diag.BagReporter{Bag: s.bag}
	seen := mapset.NewThreadUnsafeSet[boundaryKey]()
	for _, id := range res.members {
		if placed[id] != Shared {
			continue
		}
		for _, idx := range s.g.out[id] {
			e := &s.g.Edges[idx]
			to, ok := placed[e.To]
			if !ok || (to != Server && to != Client) || s.ambiguous.Contains(e.To) {
				continue
			}
			if !seen.Add(boundaryKey{from: e.From, to: e.To, kind: e.Kind}) {
				continue
			}
			switch {
			case e.Kind != EdgeCall:
				reportNonCallCrossing(s.prog, e, Shared, to, r)
			case to == Server:
				s.reportSharedCallsServer(e)
			default:
				s.reportSharedCallsClient(e)
			}
		}
	}
}

// reportSharedCallsServer: клиентская копия не может вызвать серверную функцию,
// а заглушку для shared вызова не строим.
func (s *solver) reportSharedCallsServer(e *Edge) {
	caller, callee := s.prog.Decl(e.From), s.prog.Decl(e.To)
	b := diag.ReportError(diag.BagReporter{Bag: s.bag}, diag.PlcAmbiguousPlacement, e.Span,
		fmt.Sprintf("`%s` is shared but calls server-only `%s`, which its client copy cannot reach; annotate `%s` with @server or @client",
			caller.Path, callee.Path, caller.Path))
	s.noteSharedOrigin(b, caller, reachClient)
	b.WithNote(callee.Span, fmt.Sprintf("`%s` is placed on the server", callee.Path)).Emit()
}

func (s *solver) reportSharedCallsClient(e *Edge) {
	caller, callee := s.prog.Decl(e.From), s.prog.Decl(e.To)
	b := diag.ReportError(diag.BagReporter{Bag: s.bag}, diag.PlcInvalidBoundaryDirection, e.Span,
		fmt.Sprintf("invalid boundary direction `%s` → `%s`: the server copy of shared `%s` cannot call client code",
			caller.Path, callee.Path, caller.Path))
	s.noteSharedOrigin(b, caller, reachServer)
	b.WithNote(callee.Span, fmt.Sprintf("`%s` is placed on the client", callee.Path)).Emit()
}

// noteSharedOrigin explains how the copy on side came to exist.
func (s *solver) noteSharedOrigin(b *diag.ReportBuilder, d *program.Decl, side reach) {
	switch {
	case s.seeds.explicit[d.ID] == Shared:
		b.WithNote(firstSpan(d, program.TagShared), fmt.Sprintf("`%s` is annotated @shared", d.Path))
	case s.reach[d.ID].has(side):
		path := s.path(d.ID, side)
		b.WithNote(s.prog.Decl(path[0]).Span, fmt.Sprintf("%s path: %s", side, s.formatPath(path)))
	default:
		b.WithNote(d.Span, fmt.Sprintf("`%s` is unreachable and emitted on both sides", d.Path))
	}
}

func (s *solver) classify(id program.DeclID, res *componentResult) Placement {
	if s.seeds.conflicted.Contains(id) {
		return Unresolved
	}
	if p, ok := s.seeds.explicit[id]; ok {
		return p
	}
	d := s.prog.Decl(id)
	side, use, ok := d.ExclusiveSide()
	if !ok {
		s.reportMixedCapabilities(d)
		return Unresolved
	}
	r := s.reach[id]
	switch {
	case r == 0:
		return s.dead(d, side, res)
	case side == program.SideNone:
		return r.placement()
	case r == reachBoth:
		s.reportAmbiguous(d, use, reachBoth)
	case r.placement() != sidePlacement(side):
		s.reportAmbiguous(d, use, r)
	}
	return sidePlacement(side)
}

func sidePlacement(side program.Side) Placement {
	switch side {
	case program.SideServer:
		return Server
	case program.SideClient:
		return Client
	}
	return Shared
}

func (s *solver) dead(d *program.Decl, side program.Side, res *componentResult) Placement {
	place := sidePlacement(side)
	var outcome string
	switch s.policy {
	case project.DeadCodeDrop:
		res.dropped = append(res.dropped, d.ID)
		outcome = "dropped from both outputs"
	case project.DeadCodeKeep:
		return place
	default:
		if place == Shared {
			outcome = "emitted on both sides"
		} else {
			outcome = "placed on the " + place.String() + " by its capabilities"
		}
	}
	diag.ReportWarning(diag.BagReporter{Bag: s.bag}, diag.PlcDeadCode, d.Span,
		fmt.Sprintf("`%s` is not reachable from any @server, @client or @shared declaration; %s", d.Path, outcome)).
		Emit()
	return place
}

func (s *solver) reportAmbiguous(d *program.Decl, use program.CapabilityUse, r reach) {
	only := use.Cap.Side().String() + "-only"
	var msg string
	if r == reachBoth {
		msg = fmt.Sprintf("`%s` uses %s capability `%s` but is reached from both server and client code; add an explicit placement to it or to one of its callers",
			d.Path, only, use.Cap)
	} else {
		msg = fmt.Sprintf("`%s` uses %s capability `%s` but is reached only from %s code",
			d.Path, only, use.Cap, r)
	}
	s.ambiguous.Add(d.ID)
	b := diag.ReportError(diag.BagReporter{Bag: s.bag}, diag.PlcAmbiguousPlacement, d.Span, msg)
	for _, side := range bothSides {
		if !r.has(side) {
			continue
		}
		path := s.path(d.ID, side)
		b.WithNote(s.prog.Decl(path[0]).Span, fmt.Sprintf("%s path: %s", side, s.formatPath(path)))
	}
	b.WithNote(use.Span, fmt.Sprintf("capability `%s` used here", use.Cap)).Emit()
}

func (s *solver) reportMixedCapabilities(d *program.Decl) {
	b := diag.ReportError(diag.BagReporter{Bag: s.bag}, diag.PlcAmbiguousPlacement, d.Span,
		fmt.Sprintf("`%s` uses both server-only and client-only capabilities and cannot be placed on either side", d.Path))
	for _, use := range d.Capabilities {
		if use.Cap.Side() == program.SideNone {
			continue
		}
		b.WithNote(use.Span, fmt.Sprintf("%s-only capability `%s`", use.Cap.Side(), use.Cap))
	}
	b.Emit()
}

// path returns the seed-to-id chain along which side reached id.
func (s *solver) path(id program.DeclID, side reach) []program.DeclID {
	parents := s.parent[sideIndex(side)]
	chain := []program.DeclID{id}
	for cur := id; ; {
		prev, ok := parents[cur]
		if !ok {
			break
		}
		chain = append(chain, prev)
		cur = prev
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (s *solver) formatPath(chain []program.DeclID) string {
	parts := make([]string, len(chain))
	for i, id := range chain {
		parts[i] = s.prog.Path(id)
	}
	return strings.Join(parts, " → ")
}

// seedSet is the validated set of explicit annotations shared read-only by
// all component solvers.
type seedSet struct {
	explicit   map[program.DeclID]Placement
	conflicted mapset.Set[program.DeclID]
}

// firstSpan returns the span of the first annotation carrying tag.
func firstSpan(d *program.Decl, tag program.Tag) source.Span {
	for _, a := range d.Annotations {
		if a.Tag == tag {
			return a.Span
		}
	}
	return d.Span
}
