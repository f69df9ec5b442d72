package partition

import (
	"errors"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"

	"ravens/internal/program"
	"ravens/internal/source"
)

// ErrUnresolvedReference marks a reference the resolver failed to bind.
// It is an input contract violation, not a user diagnostic.
var ErrUnresolvedReference = errors.New("unresolved reference")

// EdgeKind classifies a dependency edge.
type EdgeKind = program.RefKind

const (
	EdgeCall  = program.RefCall
	EdgeType  = program.RefType
	EdgeField = program.RefField
)

// Edge is one reference site from a declaration to another.
type Edge struct {
	From      program.DeclID
	To        program.DeclID
	Kind      EdgeKind
	Span      source.Span
	Signature bool // type edge contributed by the caller's signature
}

// Graph is the directed reference graph. Duplicate edges are kept, one per
// reference site; adjacency lists preserve site order.
type Graph struct {
	Edges []Edge
	out   [][]int
	in    [][]int
}

// BuildGraph records one edge per reference site of every declaration.
// All unresolved references are reported together.
func BuildGraph(prog *program.Program) (*Graph, error) {
	n := prog.Len()
	g := &Graph{
		out: make([][]int, n+1),
		in:  make([][]int, n+1),
	}
	var errs *multierror.Error
	for id := range prog.IDs() {
		d := prog.Decl(id)
		for _, ref := range d.Refs {
			if !ref.Resolved.IsValid() || int(ref.Resolved) > n {
				errs = multierror.Append(errs, fmt.Errorf("%w: %s %s -> %q at %s",
					ErrUnresolvedReference, d.Path, ref.Kind, ref.Target, prog.Files.Format(ref.Span)))
				continue
			}
			g.add(Edge{From: id, To: ref.Resolved, Kind: ref.Kind, Span: ref.Span, Signature: ref.Signature})
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) add(e Edge) {
	idx := len(g.Edges)
	g.Edges = append(g.Edges, e)
	g.out[e.From] = append(g.out[e.From], idx)
	g.in[e.To] = append(g.in[e.To], idx)
}

// Len returns the number of declarations the graph spans.
func (g *Graph) Len() int { return len(g.out) - 1 }

// Out returns the edges leaving id in site order.
func (g *Graph) Out(id program.DeclID) []Edge {
	return g.pick(g.out, id)
}

// In returns the edges entering id.
func (g *Graph) In(id program.DeclID) []Edge {
	return g.pick(g.in, id)
}

func (g *Graph) pick(adj [][]int, id program.DeclID) []Edge {
	if int(id) >= len(adj) {
		return nil
	}
	out := make([]Edge, 0, len(adj[id]))
	for _, idx := range adj[id] {
		out = append(out, g.Edges[idx])
	}
	return out
}

// Components splits the declarations into weakly connected components.
// Each component is sorted by id and components are ordered by their
// smallest member, so the split is deterministic.
func (g *Graph) Components() [][]program.DeclID {
	seen := mapset.NewThreadUnsafeSetWithSize[program.DeclID](g.Len())
	var comps [][]program.DeclID
	for i := 1; i <= g.Len(); i++ {
		root := declIDAt(i)
		if seen.Contains(root) {
			continue
		}
		seen.Add(root)
		comp := []program.DeclID{root}
		for head := 0; head < len(comp); head++ {
			cur := comp[head]
			for _, idx := range g.out[cur] {
				if to := g.Edges[idx].To; seen.Add(to) {
					comp = append(comp, to)
				}
			}
			for _, idx := range g.in[cur] {
				if from := g.Edges[idx].From; seen.Add(from) {
					comp = append(comp, from)
				}
			}
		}
		slices.Sort(comp)
		comps = append(comps, comp)
	}
	return comps
}
