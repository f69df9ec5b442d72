package partition

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/vmihailenco/msgpack/v5"

	"ravens/internal/diag"
	"ravens/internal/program"
	"ravens/internal/trace"
)

// ErrUnresolvedPlacement means the closure finished without error
// diagnostics yet left a declaration without a placement.
var ErrUnresolvedPlacement = errors.New("declaration left without a placement")

// DeclEntry is one row of the final placement map.
type DeclEntry struct {
	ID        program.DeclID `json:"id" msgpack:"id"`
	Path      string         `json:"path" msgpack:"path"`
	Kind      string         `json:"kind" msgpack:"kind"`
	Placement Placement      `json:"placement" msgpack:"placement"`
	Dropped   bool           `json:"dropped,omitempty" msgpack:"dropped,omitempty"`
}

// Output is what the emitters receive. Server and Client list the
// declarations of each side in emission order; Shared declarations appear
// in both, unmodified, and once more in Shared.
type Output struct {
	Program    string           `json:"program" msgpack:"program"`
	Placements []DeclEntry      `json:"placements" msgpack:"placements"`
	Server     []program.DeclID `json:"server" msgpack:"server"`
	Client     []program.DeclID `json:"client" msgpack:"client"`
	Shared     []program.DeclID `json:"shared" msgpack:"shared"`
	Dropped    []program.DeclID `json:"dropped,omitempty" msgpack:"dropped,omitempty"`
	Boundary   []BoundaryCall   `json:"boundary" msgpack:"boundary"`
	Stubs      []RpcStub        `json:"stubs" msgpack:"stubs"`
}

// Encode returns the canonical msgpack bytes of the output. Equal inputs
// produce byte-identical encodings.
func (o *Output) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(o); err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	return buf.Bytes(), nil
}

// Stats summarizes a run for timings and the CLI.
type Stats struct {
	Decls           int `json:"decls" msgpack:"decls"`
	Edges           int `json:"edges" msgpack:"edges"`
	Components      int `json:"components" msgpack:"components"`
	BoundaryCalls   int `json:"boundary_calls" msgpack:"boundary_calls"`
	Stubs           int `json:"stubs" msgpack:"stubs"`
	ValidatorHits   int `json:"validator_hits" msgpack:"validator_hits"`
	ValidatorMisses int `json:"validator_misses" msgpack:"validator_misses"`
}

// Result of one Run. Output is nil while any fatal diagnostic exists.
type Result struct {
	Bag        *diag.Bag
	Placements *PlacementMap
	Boundary   []BoundaryCall // every cross-placement call, illegal ones included
	Output     *Output
	Stats      Stats

	fatal     []diag.Diagnostic
	truncated int
}

// Truncated returns how many diagnostics were dropped by MaxDiagnostics.
func (r *Result) Truncated() int { return r.truncated }

// Err folds the fatal diagnostics into one error, nil when there are none.
// Truncation never hides a fatal diagnostic from Err.
func (r *Result) Err() error {
	if r == nil {
		return nil
	}
	var errs *multierror.Error
	for _, d := range r.fatal {
		errs = multierror.Append(errs, &DiagnosticError{Diagnostic: d})
	}
	return errs.ErrorOrNil()
}

// DiagnosticError adapts a fatal diagnostic to the error interface.
type DiagnosticError struct {
	Diagnostic diag.Diagnostic
}

func (e *DiagnosticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Diagnostic.Code.ID(), e.Diagnostic.Message)
}

// Run partitions prog. User errors come back as diagnostics in the Result;
// the error return is reserved for broken input invariants, internal bugs
// and cancellation.
func Run(ctx context.Context, prog *program.Program, opts Options) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, trace.ScopePass, "partition")
	defer span.End("")

	all := diag.NewBag(0)
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: all})
	res := &Result{Stats: Stats{Decls: prog.Len()}}

	done := opts.Timer.Track("graph")
	_, gspan := trace.StartSpan(ctx, trace.ScopePass, "partition/graph")
	g, err := BuildGraph(prog)
	gspan.End("")
	done("")
	if err != nil {
		return nil, err
	}
	res.Stats.Edges = len(g.Edges)

	done = opts.Timer.Track("solve")
	sctx, sspan := trace.StartSpan(ctx, trace.ScopePass, "partition/solve")
	solved, err := solvePlacements(sctx, prog, g, opts, rep)
	sspan.End("")
	if err != nil {
		done("failed")
		return nil, err
	}
	done(fmt.Sprintf("%d components", solved.components))
	res.Placements = solved.placements
	res.Stats.Components = solved.components
	if !all.HasErrors() {
		if missing := res.Placements.Unresolved(); len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedPlacement, prog.Path(missing[0]))
		}
	}

	done = opts.Timer.Track("boundary")
	_, bspan := trace.StartSpan(ctx, trace.ScopePass, "partition/boundary")
	res.Boundary = DetectBoundaries(prog, g, res.Placements, rep)
	bspan.End("")
	done("")
	res.Stats.BoundaryCalls = len(res.Boundary)

	done = opts.Timer.Track("serialize")
	_, vspan := trace.StartSpan(ctx, trace.ScopePass, "partition/serialize")
	v := NewValidator(prog.Types)
	valid := validateCalls(prog, v, res.Boundary, rep)
	vspan.End("")
	done("")
	res.Stats.ValidatorHits, res.Stats.ValidatorMisses = v.Hits, v.Misses

	var stubs []RpcStub
	if !all.HasErrors() {
		done = opts.Timer.Track("stubs")
		_, tspan := trace.StartSpan(ctx, trace.ScopePass, "partition/stubs")
		stubs, err = SynthesizeStubs(prog, valid, res.Placements)
		tspan.End("")
		done("")
		if err != nil {
			return nil, err
		}
		res.Stats.Stubs = len(stubs)
	}

	all.Sort()
	res.finishDiagnostics(all, opts.MaxDiagnostics)
	if len(res.fatal) == 0 {
		res.Output = buildOutput(prog, g, res.Placements, solved.dropped, valid, stubs)
	}
	return res, nil
}

// validateCalls checks each distinct callee of the legal calls once and
// returns the calls whose callee passed.
func validateCalls(prog *program.Program, v *Validator, calls []BoundaryCall, r diag.Reporter) []BoundaryCall {
	verdict := make(map[program.DeclID]bool)
	var valid []BoundaryCall
	for _, c := range calls {
		if !c.Legal() {
			continue
		}
		ok, seen := verdict[c.Callee]
		if !seen {
			ok = v.ValidateCall(prog, c, r)
			verdict[c.Callee] = ok
		}
		if ok {
			valid = append(valid, c)
		}
	}
	return valid
}

func (r *Result) finishDiagnostics(all *diag.Bag, limit int) {
	r.Bag = diag.NewBag(limit)
	for _, d := range all.Items() {
		if d.Severity >= diag.SevError {
			r.fatal = append(r.fatal, d)
		}
		if !r.Bag.Add(d) {
			r.truncated++
		}
	}
}

func buildOutput(prog *program.Program, g *Graph, pm *PlacementMap, dropped []program.DeclID, calls []BoundaryCall, stubs []RpcStub) *Output {
	isDropped := make(map[program.DeclID]bool, len(dropped))
	for _, id := range dropped {
		isDropped[id] = true
	}
	out := &Output{
		Program:    prog.Name,
		Placements: make([]DeclEntry, 0, pm.Len()),
		Dropped:    dropped,
		Boundary:   calls,
		Stubs:      stubs,
	}
	var server, client []program.DeclID
	for id, p := range pm.All() {
		d := prog.Decl(id)
		out.Placements = append(out.Placements, DeclEntry{
			ID: id, Path: d.Path, Kind: d.Kind.String(), Placement: p, Dropped: isDropped[id],
		})
		if isDropped[id] {
			continue
		}
		if p == Server || p == Shared {
			server = append(server, id)
		}
		if p == Client || p == Shared {
			client = append(client, id)
		}
		if p == Shared {
			out.Shared = append(out.Shared, id)
		}
	}
	out.Server = EmissionOrder(g, server).Order
	out.Client = EmissionOrder(g, client).Order
	if out.Boundary == nil {
		out.Boundary = []BoundaryCall{}
	}
	if out.Stubs == nil {
		out.Stubs = []RpcStub{}
	}
	return out
}
