package partition

import (
	"slices"

	"ravens/internal/diag"
)

// Snapshot is the serializable form of a Result, stored by the driver's
// result cache. Spans refer to the FileSet of the program the result was
// computed for; equal program digests intern files in the same order.
type Snapshot struct {
	Diagnostics []diag.Diagnostic `msgpack:"diagnostics"`
	Fatal       []diag.Diagnostic `msgpack:"fatal"`
	Truncated   int               `msgpack:"truncated"`
	MaxDiags    int               `msgpack:"max_diags"`
	Placements  []Placement       `msgpack:"placements"` // index = DeclID-1
	Boundary    []BoundaryCall    `msgpack:"boundary"`
	Output      *Output           `msgpack:"output"`
	Stats       Stats             `msgpack:"stats"`
}

// Snapshot captures r for caching.
func (r *Result) Snapshot() Snapshot {
	s := Snapshot{
		Diagnostics: slices.Clone(r.Bag.Items()),
		Fatal:       r.fatal,
		Truncated:   r.truncated,
		MaxDiags:    r.Bag.Cap(),
		Boundary:    r.Boundary,
		Output:      r.Output,
		Stats:       r.Stats,
	}
	if r.Placements != nil {
		s.Placements = r.Placements.entries[1:]
	}
	return s
}

// Restore rebuilds a Result from a cached snapshot.
func (s Snapshot) Restore() *Result {
	r := &Result{
		Bag:        diag.NewBag(s.MaxDiags),
		Placements: NewPlacementMap(len(s.Placements)),
		Boundary:   s.Boundary,
		Output:     s.Output,
		Stats:      s.Stats,
		fatal:      s.Fatal,
		truncated:  s.Truncated,
	}
	for _, d := range s.Diagnostics {
		r.Bag.Add(d)
	}
	copy(r.Placements.entries[1:], s.Placements)
	return r
}
