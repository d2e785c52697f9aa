package combat

import (
	"sort"

	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// Target is a unit that can take hits.
type Target struct {
	Unit    galaxy.Unit
	Cost    int
	Sustain bool
}

// Allocation records where hits landed.
type Allocation struct {
	Destroyed []galaxy.UnitID `json:"destroyed,omitempty"`
	Damaged   []galaxy.UnitID `json:"damaged,omitempty"`
}

// Empty reports whether no unit was hit.
func (a Allocation) Empty() bool {
	return len(a.Destroyed) == 0 && len(a.Damaged) == 0
}

// HitAssigner decides which targets absorb a number of hits. Extra hits
// beyond what the targets can take are dropped.
type HitAssigner interface {
	Assign(hits int, targets []Target) Allocation
}

// HighestCostFirst sends every hit to the most expensive remaining target,
// breaking ties by unit ID. A target that can sustain damage and is not yet
// damaged absorbs one hit before it can be destroyed; the next hit still
// goes to that target, so sustain is not spread across the fleet before
// cheaper units are lost.
type HighestCostFirst struct{}

// Assign implements HitAssigner.
func (HighestCostFirst) Assign(hits int, targets []Target) Allocation {
	ordered := append([]Target(nil), targets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Cost != ordered[j].Cost {
			return ordered[i].Cost > ordered[j].Cost
		}
		return ordered[i].Unit.ID < ordered[j].Unit.ID
	})
	var out Allocation
	for _, t := range ordered {
		if hits == 0 {
			break
		}
		if t.Sustain && !t.Unit.Status.Damaged {
			out.Damaged = append(out.Damaged, t.Unit.ID)
			hits--
			if hits == 0 {
				break
			}
		}
		out.Destroyed = append(out.Destroyed, t.Unit.ID)
		hits--
	}
	return out
}

// InOrder destroys targets in the order given, without sustaining damage.
// Space cannon defense uses it so removals follow commitment order.
type InOrder struct{}

// Assign implements HitAssigner.
func (InOrder) Assign(hits int, targets []Target) Allocation {
	var out Allocation
	for _, t := range targets {
		if hits == 0 {
			break
		}
		out.Destroyed = append(out.Destroyed, t.Unit.ID)
		hits--
	}
	return out
}
