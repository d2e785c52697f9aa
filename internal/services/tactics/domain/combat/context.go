package combat

import (
	"fmt"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// Side is one player's participating units in declaration order.
type Side struct {
	Player   galaxy.PlayerID `json:"player"`
	Units    []galaxy.Unit   `json:"units"`
	Modifier int             `json:"modifier,omitempty"`
}

// Context is one combat in one place: the system (and planet, for ground
// combat), the round number and both sides with their roll modifiers.
type Context struct {
	System   galaxy.SystemID `json:"system"`
	Planet   galaxy.PlanetID `json:"planet,omitempty"`
	Round    int             `json:"round"`
	Attacker Side            `json:"attacker"`
	Defender Side            `json:"defender"`
}

// Sides returns attacker then defender.
func (c Context) Sides() [2]Side {
	return [2]Side{c.Attacker, c.Defender}
}

// NewSpaceContext collects the ships of attacker and of the first
// non-allied player with ships in the system. A nebula gives the defender
// the catalog's nebula bonus.
func NewSpaceContext(state galaxy.GameState, system galaxy.SystemID, attacker galaxy.PlayerID, round int, c *catalog.Catalog) (Context, error) {
	sys, ok := state.System(system)
	if !ok {
		return Context{}, apperrors.WithMetadata(apperrors.CodeSystemNotFound,
			fmt.Sprintf("system %s not found", system),
			map[string]string{apperrors.MetaSystemID: string(system)})
	}
	ctx := Context{System: system, Round: round, Attacker: Side{Player: attacker}}
	for _, owner := range sys.ShipOwners() {
		if !state.Allied(owner, attacker) {
			ctx.Defender.Player = owner
			break
		}
	}
	for _, u := range sys.SpaceUnits {
		if !u.Kind.IsShip() {
			continue
		}
		switch {
		case u.Owner == attacker:
			ctx.Attacker.Units = append(ctx.Attacker.Units, u)
		case ctx.Defender.Player != "" && u.Owner == ctx.Defender.Player:
			ctx.Defender.Units = append(ctx.Defender.Units, u)
		}
	}
	if sys.HasAnomaly(galaxy.Nebula) {
		ctx.Defender.Modifier += c.Rules().NebulaDefenseBonus
	}
	return ctx, nil
}

// NewGroundContext collects the ground forces of attacker and of the
// planet's other non-allied owner on one planet.
func NewGroundContext(state galaxy.GameState, planet galaxy.PlanetID, attacker galaxy.PlayerID, round int) (Context, error) {
	sysID, ok := state.PlanetSystem(planet)
	if !ok {
		return Context{}, apperrors.WithMetadata(apperrors.CodePlanetNotFound,
			fmt.Sprintf("planet %s not found", planet),
			map[string]string{apperrors.MetaPlanetID: string(planet)})
	}
	sys, _ := state.System(sysID)
	p, _ := sys.Planet(planet)
	ctx := Context{System: sysID, Planet: planet, Round: round, Attacker: Side{Player: attacker}}
	for _, u := range p.Units {
		if !u.Kind.IsGround() {
			continue
		}
		if u.Owner == attacker {
			ctx.Attacker.Units = append(ctx.Attacker.Units, u)
			continue
		}
		if state.Allied(u.Owner, attacker) {
			continue
		}
		if ctx.Defender.Player == "" {
			ctx.Defender.Player = u.Owner
		}
		if u.Owner == ctx.Defender.Player {
			ctx.Defender.Units = append(ctx.Defender.Units, u)
		}
	}
	return ctx, nil
}
