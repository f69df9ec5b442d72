package partition

import (
	"fmt"
	"iter"

	"fortio.org/safecast"

	"ravens/internal/program"
)

// Placement is the side a declaration is emitted to.
type Placement uint8

const (
	Unresolved Placement = iota
	Server
	Client
	Shared
)

func (p Placement) String() string {
	switch p {
	case Server:
		return "server"
	case Client:
		return "client"
	case Shared:
		return "shared"
	}
	return "unresolved"
}

// Concrete reports whether p is a final placement.
func (p Placement) Concrete() bool {
	return p == Server || p == Client || p == Shared
}

func (p Placement) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Placement) UnmarshalText(text []byte) error {
	switch string(text) {
	case "server":
		*p = Server
	case "client":
		*p = Client
	case "shared":
		*p = Shared
	case "unresolved":
		*p = Unresolved
	default:
		return fmt.Errorf("unknown placement %q", text)
	}
	return nil
}

// placementOf maps an explicit tag to its placement.
func placementOf(tag program.Tag) Placement {
	switch tag {
	case program.TagServer:
		return Server
	case program.TagClient:
		return Client
	case program.TagShared:
		return Shared
	}
	return Unresolved
}

// reach is the set of sides a declaration is reached from.
type reach uint8

const (
	reachServer reach = 1 << iota
	reachClient

	reachBoth = reachServer | reachClient
)

func (r reach) has(side reach) bool { return r&side != 0 }

func (p Placement) reach() reach {
	switch p {
	case Server:
		return reachServer
	case Client:
		return reachClient
	case Shared:
		return reachBoth
	}
	return 0
}

func (r reach) placement() Placement {
	switch r {
	case reachServer:
		return Server
	case reachClient:
		return Client
	case reachBoth:
		return Shared
	}
	return Unresolved
}

func (r reach) String() string {
	if r == reachClient {
		return "client"
	}
	return "server"
}

// PlacementMap holds one placement per declaration id. Index 0 is unused.
type PlacementMap struct {
	entries []Placement
}

// NewPlacementMap returns a map for n declarations, all Unresolved.
func NewPlacementMap(n int) *PlacementMap {
	return &PlacementMap{entries: make([]Placement, n+1)}
}

// Get returns the placement of id, Unresolved when out of range.
func (m *PlacementMap) Get(id program.DeclID) Placement {
	if m == nil || int(id) >= len(m.entries) {
		return Unresolved
	}
	return m.entries[id]
}

func (m *PlacementMap) set(id program.DeclID, p Placement) {
	m.entries[id] = p
}

// Len returns the number of declarations covered.
func (m *PlacementMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries) - 1
}

// All yields (id, placement) pairs in id order.
func (m *PlacementMap) All() iter.Seq2[program.DeclID, Placement] {
	return func(yield func(program.DeclID, Placement) bool) {
		for i := 1; i < len(m.entries); i++ {
			if !yield(declIDAt(i), m.entries[i]) {
				return
			}
		}
	}
}

// Unresolved returns the ids still lacking a concrete placement.
func (m *PlacementMap) Unresolved() []program.DeclID {
	var out []program.DeclID
	for id, p := range m.All() {
		if !p.Concrete() {
			out = append(out, id)
		}
	}
	return out
}

// declIDAt converts a 1-based slice index into a DeclID.
func declIDAt(i int) program.DeclID {
	n, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Errorf("declaration index overflow: %w", err))
	}
	return program.DeclID(n)
}
