package movement

import (
	"slices"

	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// route is a candidate path. Its cost is hops minus the rift bonus earned
// by every hop that leaves a gravity rift.
type route struct {
	systems []galaxy.SystemID
	net     int
	rifts   int
}

func (r route) hops() int { return len(r.systems) - 1 }

// before orders routes by net cost, then hop count, then system IDs.
func (r route) before(o route) bool {
	if r.net != o.net {
		return r.net < o.net
	}
	if len(r.systems) != len(o.systems) {
		return len(r.systems) < len(o.systems)
	}
	return slices.Compare(r.systems, o.systems) < 0
}

// search bounds which systems a route may use.
type search struct {
	state     galaxy.GameState
	riftBonus int
	// enter reports whether a route may land in id; last marks the
	// destination, which may be entered under looser rules.
	enter func(id galaxy.SystemID, last bool) bool
}

// shortest runs Dijkstra from one system to another. Edge costs are never
// negative because the rift bonus is at most one per hop.
func (s search) shortest(from, to galaxy.SystemID) (route, bool) {
	best := map[galaxy.SystemID]route{from: {systems: []galaxy.SystemID{from}}}
	settled := make(map[galaxy.SystemID]bool)
	for {
		var cur galaxy.SystemID
		found := false
		for id, r := range best {
			if settled[id] {
				continue
			}
			if !found || r.before(best[cur]) {
				cur, found = id, true
			}
		}
		if !found {
			return route{}, false
		}
		if cur == to {
			return best[cur], true
		}
		settled[cur] = true

		r := best[cur]
		sys, _ := s.state.System(cur)
		leavesRift := sys.HasAnomaly(galaxy.GravityRift)
		for _, n := range s.state.Neighbors(cur) {
			if settled[n] || !s.enter(n, n == to) {
				continue
			}
			next := route{
				systems: append(slices.Clone(r.systems), n),
				net:     r.net + 1,
				rifts:   r.rifts,
			}
			if leavesRift {
				next.net -= s.riftBonus
				next.rifts++
			}
			if prev, ok := best[n]; !ok || next.before(prev) {
				best[n] = next
			}
		}
	}
}
