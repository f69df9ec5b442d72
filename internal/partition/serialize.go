package partition

import (
	"fmt"
	"math"

	"ravens/internal/diag"
	"ravens/internal/program"
	"ravens/internal/types"
)

// Fact is the memoized wire verdict for one type. Path is relative to the
// type itself (".handler", "[].cb", "{}.fn"); empty when the type itself is
// the offender.
type Fact struct {
	OK     bool
	Path   string
	Reason string
}

// Validator decides which types may cross the boundary. Verdicts are cached
// per TypeID and shared by every boundary call of a run.
type Validator struct {
	in     *types.Interner
	memo   map[types.TypeID]Fact
	active map[types.TypeID]int // aggregates on the current walk, by depth

	Hits, Misses int
}

// NewValidator returns an empty validator bound to in.
func NewValidator(in *types.Interner) *Validator {
	return &Validator{
		in:     in,
		memo:   make(map[types.TypeID]Fact),
		active: make(map[types.TypeID]int),
	}
}

// Check returns the verdict for id in a non-return position.
func (v *Validator) Check(id types.TypeID) Fact {
	f, _ := v.check(id, 0)
	return f
}

// CheckResult is Check for a return type, where void is allowed.
func (v *Validator) CheckResult(id types.TypeID) Fact {
	if t, ok := v.in.Lookup(id); ok && t.Kind == types.KindUnit {
		return Fact{OK: true}
	}
	return v.Check(id)
}

const noAssumption = math.MaxInt

// check returns the verdict and the shallowest depth of an aggregate that
// was assumed serializable because it was still being checked. A positive
// verdict resting on such an assumption is provisional and is not cached
// until the assumed aggregate itself finishes.
func (v *Validator) check(id types.TypeID, depth int) (Fact, int) {
	if f, ok := v.memo[id]; ok {
		v.Hits++
		return f, noAssumption
	}
	if d, ok := v.active[id]; ok {
		return Fact{OK: true}, d
	}
	v.Misses++

	t, ok := v.in.Lookup(id)
	if !ok {
		return v.remember(id, Fact{Reason: "unknown type"}), noAssumption
	}
	var (
		f       Fact
		assumed = noAssumption
	)
	switch t.Kind {
	case types.KindBool, types.KindInt, types.KindNumber, types.KindString:
		f = Fact{OK: true}
	case types.KindUnit:
		f = Fact{Reason: "void value"}
	case types.KindFn:
		f = Fact{Reason: "function value " + types.Label(v.in, id)}
	case types.KindHandle:
		f = Fact{Reason: "resource " + types.Label(v.in, id)}
	case types.KindParam:
		f = Fact{Reason: "unresolved generic parameter " + types.Label(v.in, id)}
	case types.KindOptional:
		f, assumed = v.check(t.Elem, depth+1)
	case types.KindArray:
		f, assumed = v.nested(t.Elem, "[]", depth)
	case types.KindMap:
		if kt, ok := v.in.Lookup(t.Key); !ok || kt.Kind != types.KindString {
			f = Fact{Path: "{key}", Reason: "map key " + types.Label(v.in, t.Key) + " is not String"}
			break
		}
		f, assumed = v.nested(t.Elem, "{}", depth)
	case types.KindStruct:
		f, assumed = v.aggregate(id, depth)
	default:
		f = Fact{Reason: "unsupported type " + types.Label(v.in, id)}
	}

	if !f.OK || assumed >= depth {
		return v.remember(id, f), noAssumption
	}
	return f, assumed
}

func (v *Validator) nested(elem types.TypeID, seg string, depth int) (Fact, int) {
	f, assumed := v.check(elem, depth+1)
	if !f.OK {
		f.Path = seg + f.Path
	}
	return f, assumed
}

func (v *Validator) aggregate(id types.TypeID, depth int) (Fact, int) {
	info, ok := v.in.StructInfo(id)
	if !ok {
		return Fact{Reason: "unknown aggregate"}, noAssumption
	}
	v.active[id] = depth
	defer delete(v.active, id)

	assumed := noAssumption
	for _, field := range info.Fields {
		f, a := v.check(field.Type, depth+1)
		if !f.OK {
			f.Path = "." + field.Name + f.Path
			return f, noAssumption
		}
		assumed = min(assumed, a)
	}
	return Fact{OK: true}, assumed
}

func (v *Validator) remember(id types.TypeID, f Fact) Fact {
	v.memo[id] = f
	return f
}

// ValidateCall checks the callee signature of a legal boundary call. It
// reports at most one diagnostic per offending position and returns whether
// the whole signature can cross.
func (v *Validator) ValidateCall(prog *program.Program, call BoundaryCall, r diag.Reporter) bool {
	callee := prog.Decl(call.Callee)
	ok := true
	report := func(pos string, f Fact) {
		ok = false
		b := diag.ReportError(r, diag.PlcNonSerializableBoundaryType, callee.Span,
			fmt.Sprintf("`%s` is called from the client but %s%s cannot cross the boundary: %s",
				callee.Path, pos, f.Path, f.Reason))
		if len(call.Sites) > 0 {
			b.WithNote(call.Sites[0], fmt.Sprintf("called from `%s` here", prog.Path(call.Caller)))
		}
		b.Emit()
	}
	for i, p := range callee.Params {
		if f := v.Check(p.Type); !f.OK {
			report(fmt.Sprintf("arg%d", i+1), f)
		}
	}
	if f := v.CheckResult(callee.Result); !f.OK {
		report("result", f)
	}
	return ok
}
