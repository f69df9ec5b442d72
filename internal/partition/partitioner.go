package partition

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"ravens/internal/diag"
	"ravens/internal/observ"
	"ravens/internal/program"
	"ravens/internal/project"
	"ravens/internal/trace"
)

// ErrConcurrentPlacementWrite means two component solvers wrote the same
// declaration. Components are disjoint, so this is always a bug.
var ErrConcurrentPlacementWrite = errors.New("placement written by more than one solver")

// collectSeeds validates explicit annotations. Repeating the same tag is
// harmless; two different tags on one declaration are a ConflictingAnnotation
// and the declaration is left out of the seeds.
func collectSeeds(prog *program.Program, r diag.Reporter) *seedSet {
	seeds := &seedSet{
		explicit:   make(map[program.DeclID]Placement),
		conflicted: mapset.NewThreadUnsafeSet[program.DeclID](),
	}
	for id := range prog.IDs() {
		d := prog.Decl(id)
		var tags []program.Tag
		for _, a := range d.Annotations {
			if !slices.Contains(tags, a.Tag) {
				tags = append(tags, a.Tag)
			}
		}
		switch len(tags) {
		case 0:
			continue
		case 1:
			seeds.explicit[id] = placementOf(tags[0])
			continue
		}
		seeds.conflicted.Add(id)
		slices.Sort(tags)
		b := diag.ReportError(r, diag.PlcConflictingAnnotation, d.Span,
			fmt.Sprintf("`%s` carries conflicting placement annotations", d.Path))
		for _, tag := range tags {
			b.WithNote(firstSpan(d, tag), fmt.Sprintf("annotated @%s here", tag))
		}
		b.Emit()
	}
	return seeds
}

// placementWriter merges component results into one PlacementMap and
// rejects a second write to any declaration.
type placementWriter struct {
	mu    sync.Mutex
	m     *PlacementMap
	owner []int // component index + 1, 0 when unclaimed
}

func newPlacementWriter(n int) *placementWriter {
	return &placementWriter{m: NewPlacementMap(n), owner: make([]int, n+1)}
}

func (w *placementWriter) claim(comp int, res componentResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, id := range res.members {
		if prev := w.owner[id]; prev != 0 {
			return fmt.Errorf("%w: declaration #%d claimed by components %d and %d",
				ErrConcurrentPlacementWrite, id, prev-1, comp)
		}
		w.owner[id] = comp + 1
		w.m.set(id, res.placements[i])
	}
	return nil
}

type solveOutcome struct {
	placements *PlacementMap
	dropped    []program.DeclID
	components int
}

// solvePlacements runs one solver per weakly connected component, in
// parallel when jobs > 1, and merges their results.
func solvePlacements(ctx context.Context, prog *program.Program, g *Graph, opts Options, r diag.Reporter) (solveOutcome, error) {
	seeds := collectSeeds(prog, r)
	comps := g.Components()
	writer := newPlacementWriter(prog.Len())
	results := make([]componentResult, len(comps))
	tracer := trace.FromContext(ctx)
	parentID := trace.CurrentSpan(ctx)

	solveOne := func(ctx context.Context, ci int) error {
		span := trace.Begin(tracer, trace.ScopeComponent, fmt.Sprintf("component#%d", ci), parentID)
		s := newSolver(prog, g, comps[ci], seeds, opts.DeadCode)
		s.tracer, s.parentID = tracer, span.ID()
		res, err := s.run(ctx)
		if err != nil {
			span.End("cancelled")
			return err
		}
		span.WithExtra("decls", fmt.Sprint(len(comps[ci]))).End("")
		results[ci] = res
		return writer.claim(ci, res)
	}

	jobs := opts.jobs()
	if jobs <= 1 || len(comps) < 2 {
		for ci := range comps {
			if err := solveOne(ctx, ci); err != nil {
				return solveOutcome{}, err
			}
		}
	} else {
		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(jobs)
		for ci := range comps {
			eg.Go(func() error { return solveOne(gctx, ci) })
		}
		if err := eg.Wait(); err != nil {
			return solveOutcome{}, err
		}
	}

	out := solveOutcome{placements: writer.m, components: len(comps)}
	for _, res := range results {
		for _, d := range res.bag.Items() {
			r.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
		}
		out.dropped = append(out.dropped, res.dropped...)
	}
	slices.Sort(out.dropped)
	return out, nil
}

// Options configures Run.
type Options struct {
	DeadCode       project.DeadCodePolicy
	Jobs           int // component solvers run concurrently; 0 means GOMAXPROCS
	MaxDiagnostics int // 0 keeps every diagnostic
	Timer          *observ.Timer
}

func (o Options) jobs() int {
	if o.Jobs > 0 {
		return o.Jobs
	}
	return runtime.GOMAXPROCS(0)
}
