// Package compliance answers rule-legality questions over a game state. Every
// predicate is pure: it never mutates the state and never returns an error.
package compliance

import (
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// ActivationRestriction is consulted before a system may be activated. It
// returns true when some rule outside the tactical action (a law in effect,
// for example) forbids the activation.
type ActivationRestriction func(state galaxy.GameState, player galaxy.PlayerID, system galaxy.SystemID) bool

// Validator evaluates rule predicates against a catalog.
type Validator struct {
	catalog  *catalog.Catalog
	restrict ActivationRestriction
}

// Option configures a Validator.
type Option func(*Validator)

// WithActivationRestriction installs the activation restriction callback.
func WithActivationRestriction(r ActivationRestriction) Option {
	return func(v *Validator) {
		v.restrict = r
	}
}

// New returns a validator over c.
func New(c *catalog.Catalog, opts ...Option) *Validator {
	v := &Validator{catalog: c}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Catalog returns the catalog the validator reads from.
func (v *Validator) Catalog() *catalog.Catalog { return v.catalog }

// CanActivateSystem reports whether player may activate system: the system
// is not already activated by that player, the player still has a tactic
// token, and no restriction forbids it.
func (v *Validator) CanActivateSystem(system galaxy.SystemID, player galaxy.PlayerID, state galaxy.GameState) bool {
	if _, ok := state.System(system); !ok {
		return false
	}
	p, ok := state.Player(player)
	if !ok {
		return false
	}
	if state.HasToken(system, player) {
		return false
	}
	if state.ActiveSystem() == system && state.ActivePlayer() == player {
		return false
	}
	if p.Tokens.Tactic < 1 {
		return false
	}
	if v.restrict != nil && v.restrict(state, player, system) {
		return false
	}
	return true
}

// RequiresSpaceCombat reports whether two or more mutually non-allied
// players have ships in the system's space area.
func (v *Validator) RequiresSpaceCombat(system galaxy.SystemID, state galaxy.GameState) bool {
	sys, ok := state.System(system)
	if !ok {
		return false
	}
	owners := sys.ShipOwners()
	for i := range owners {
		for j := i + 1; j < len(owners); j++ {
			if !state.Allied(owners[i], owners[j]) {
				return true
			}
		}
	}
	return false
}

// HasSpaceSuperiority reports whether no ship hostile to player remains in
// the system's space area.
func (v *Validator) HasSpaceSuperiority(system galaxy.SystemID, player galaxy.PlayerID, state galaxy.GameState) bool {
	sys, ok := state.System(system)
	if !ok {
		return false
	}
	for _, owner := range sys.ShipOwners() {
		if !state.Allied(owner, player) {
			return false
		}
	}
	return true
}

// CanCommitGroundForces reports whether player may land ground forces in
// system: it holds space superiority, the system has a planet, and at least
// one of its ground units is in the space area.
func (v *Validator) CanCommitGroundForces(system galaxy.SystemID, player galaxy.PlayerID, state galaxy.GameState) bool {
	sys, ok := state.System(system)
	if !ok || len(sys.Planets) == 0 {
		return false
	}
	if !v.HasSpaceSuperiority(system, player, state) {
		return false
	}
	for _, u := range sys.SpaceUnitsOf(player) {
		if u.Kind.IsGround() {
			return true
		}
	}
	return false
}

// CanResolveProductionAbilities reports whether the unit has the production
// ability. The current numeric production value does not matter: a unit
// whose production is computed from its planet has a base value of zero.
func (v *Validator) CanResolveProductionAbilities(unit galaxy.Unit, state galaxy.GameState) bool {
	stats, err := v.catalog.Stats(unit.Kind)
	if err != nil {
		return false
	}
	return stats.HasProduction
}

// HasPlanetaryShield reports whether any unit on the planet has a
// planetary shield.
func (v *Validator) HasPlanetaryShield(planet galaxy.PlanetID, state galaxy.GameState) bool {
	sysID, ok := state.PlanetSystem(planet)
	if !ok {
		return false
	}
	sys, _ := state.System(sysID)
	p, _ := sys.Planet(planet)
	for _, u := range p.Units {
		stats, err := v.catalog.Stats(u.Kind)
		if err == nil && stats.HasPlanetaryShield {
			return true
		}
	}
	return false
}

// Usage summarises the transport and fleet supply use of one player in a
// space area.
type Usage struct {
	Ground      int
	Fighters    int
	Ships       int
	Docks       int
	FleetSupply int
	SupplyLimit int
}

// Exceeded reports whether the carried units overflow the available
// capacity. Dock capacity only covers fighters.
func (c Usage) Exceeded() bool {
	fighters := c.Fighters - c.Docks
	if fighters < 0 {
		fighters = 0
	}
	return c.Ground+fighters > c.Ships
}

// UsageIn counts the transport and fleet supply usage of player in the
// space area of system.
func (v *Validator) UsageIn(system galaxy.SystemID, player galaxy.PlayerID, state galaxy.GameState) Usage {
	var out Usage
	sys, ok := state.System(system)
	if !ok {
		return out
	}
	if p, ok := state.Player(player); ok {
		out.SupplyLimit = p.Tokens.Fleet
	}
	for _, u := range sys.SpaceUnitsOf(player) {
		stats, err := v.catalog.Stats(u.Kind)
		if err != nil {
			continue
		}
		if v.catalog.NeedsCapacity(u.Kind) {
			if u.Kind.IsFighter() {
				out.Fighters++
			} else {
				out.Ground++
			}
		}
		if u.Kind.IsShip() {
			out.Ships += stats.Capacity
		}
		if v.catalog.CountsAgainstFleetSupply(u.Kind) {
			out.FleetSupply++
		}
	}
	for _, planet := range sys.Planets {
		if c, _ := state.Controller(planet.ID); c != player {
			continue
		}
		for _, u := range planet.UnitsOf(player) {
			if stats, err := v.catalog.Stats(u.Kind); err == nil && u.Kind.IsStructure() {
				out.Docks += stats.Capacity
			}
		}
	}
	return out
}

// CapacityRespected reports whether player's ships in system can carry
// every unit that needs transport.
func (v *Validator) CapacityRespected(system galaxy.SystemID, player galaxy.PlayerID, state galaxy.GameState) bool {
	return !v.UsageIn(system, player, state).Exceeded()
}

// FleetSupplyRespected reports whether player's ships in system fit its
// fleet supply.
func (v *Validator) FleetSupplyRespected(system galaxy.SystemID, player galaxy.PlayerID, state galaxy.GameState) bool {
	c := v.UsageIn(system, player, state)
	return c.FleetSupply <= c.SupplyLimit
}
