package partition

import (
	"slices"

	"ravens/internal/program"
)

// Topo is the emission order of one side: every declaration appears after
// the declarations it depends on, ties broken by id.
type Topo struct {
	Order   []program.DeclID   // линейный порядок
	Batches [][]program.DeclID // волны независимых объявлений
	Cycles  []program.DeclID   // в цикле или за ним, добавлены в конец по id
}

// EmissionOrder orders the members of one side with Kahn's algorithm over
// the dependency edges between them. Declarations in a reference cycle
// (mutual recursion), or depending on one, are appended in id order.
func EmissionOrder(g *Graph, members []program.DeclID) *Topo {
	in := make(map[program.DeclID]bool, len(members))
	for _, id := range members {
		in[id] = true
	}
	deps := make(map[program.DeclID]int, len(members))
	users := make(map[program.DeclID][]program.DeclID, len(members))
	seen := make(map[[2]program.DeclID]bool)
	for _, id := range members {
		for _, idx := range g.out[id] {
			to := g.Edges[idx].To
			if to == id || !in[to] || seen[[2]program.DeclID{id, to}] {
				continue
			}
			seen[[2]program.DeclID{id, to}] = true
			deps[id]++
			users[to] = append(users[to], id)
		}
	}

	topo := &Topo{Order: make([]program.DeclID, 0, len(members))}
	current := make([]program.DeclID, 0, len(members))
	for _, id := range members {
		if deps[id] == 0 {
			current = append(current, id)
		}
	}
	slices.Sort(current)

	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)
		var next []program.DeclID
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			for _, user := range users[id] {
				deps[user]--
				if deps[user] == 0 {
					next = append(next, user)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(topo.Order) != len(members) {
		for _, id := range members {
			if deps[id] > 0 {
				topo.Cycles = append(topo.Cycles, id)
			}
		}
		slices.Sort(topo.Cycles)
		topo.Order = append(topo.Order, topo.Cycles...)
	}
	return topo
}
