package transition

import "laundry-notifier/internal/model"

// Generation maps machine id to the snapshot produced by one poll cycle.
// A Generation is never modified after Diff returns it.
type Generation struct {
	snapshots map[string]model.Snapshot
	order     []string
}

// NewGeneration builds a generation from snaps. Later duplicates of an id
// replace earlier ones but keep the first position.
func NewGeneration(snaps []model.Snapshot) *Generation {
	g := &Generation{snapshots: make(map[string]model.Snapshot, len(snaps))}
	for _, s := range snaps {
		g.put(s)
	}
	return g
}

func (g *Generation) put(s model.Snapshot) {
	if _, exists := g.snapshots[s.ID]; !exists {
		g.order = append(g.order, s.ID)
	}
	g.snapshots[s.ID] = s
}

// Get returns the snapshot for id. A nil Generation is empty.
func (g *Generation) Get(id string) (model.Snapshot, bool) {
	if g == nil {
		return model.Snapshot{}, false
	}
	s, ok := g.snapshots[id]
	return s, ok
}

// Len returns the number of machines in the generation.
func (g *Generation) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// Snapshots returns all snapshots in feed order.
func (g *Generation) Snapshots() []model.Snapshot {
	if g == nil {
		return nil
	}
	out := make([]model.Snapshot, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.snapshots[id])
	}
	return out
}

// Diff evaluates every machine in snaps against prev and returns the
// cycle's events together with the generation that replaces prev.
//
// Machines listed in skipped failed to decode this cycle: they produce no
// event and their previous snapshot, if any, is carried into next. Machines
// missing from both snaps and skipped are dropped.
func Diff(prev *Generation, snaps []model.Snapshot, skipped []string) ([]model.TransitionEvent, *Generation) {
	next := NewGeneration(snaps)

	events := make([]model.TransitionEvent, 0, next.Len())
	for _, id := range next.order {
		cur := next.snapshots[id]
		var before *model.Snapshot
		if p, ok := prev.Get(id); ok {
			before = &p
		}
		events = append(events, Detect(before, cur))
	}

	for _, id := range skipped {
		if _, fresh := next.snapshots[id]; fresh {
			continue
		}
		if p, ok := prev.Get(id); ok {
			next.put(p)
		}
	}

	return events, next
}
