package combat

import (
	"fmt"

	"github.com/louisbranch/hexfleet/internal/core/dice"
	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// Commitment sends one ground unit from the space area to a planet.
type Commitment struct {
	Unit   galaxy.UnitID   `json:"unit" yaml:"unit"`
	Planet galaxy.PlanetID `json:"planet" yaml:"planet"`
}

// CheckCommitments verifies that every commitment names a ground unit of
// player in the space area of system and a planet of that system.
func CheckCommitments(state galaxy.GameState, system galaxy.SystemID, player galaxy.PlayerID, commitments []Commitment) error {
	sys, ok := state.System(system)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeSystemNotFound,
			fmt.Sprintf("system %s not found", system),
			map[string]string{apperrors.MetaSystemID: string(system)})
	}
	seen := make(map[galaxy.UnitID]bool, len(commitments))
	for _, c := range commitments {
		u, loc, ok := state.Locate(c.Unit)
		switch {
		case !ok:
			return commitmentError(c, "unit not found")
		case seen[c.Unit]:
			return commitmentError(c, "unit committed twice")
		case u.Owner != player:
			return commitmentError(c, "unit belongs to "+string(u.Owner))
		case !u.Kind.IsGround():
			return commitmentError(c, "not a ground force")
		case loc.System != system || !loc.InSpace():
			return commitmentError(c, "unit is not in the space area of "+string(system))
		}
		if _, ok := sys.Planet(c.Planet); !ok {
			return commitmentError(c, "planet is not in "+string(system))
		}
		seen[c.Unit] = true
	}
	return nil
}

func commitmentError(c Commitment, reason string) error {
	return apperrors.WithMetadata(apperrors.CodeInvasionInvalidCommitment,
		fmt.Sprintf("commitment of %s to %s: %s", c.Unit, c.Planet, reason),
		map[string]string{
			apperrors.MetaUnitID:   string(c.Unit),
			apperrors.MetaPlanetID: string(c.Planet),
			apperrors.MetaDetail:   reason,
		})
}

// SpaceCannonDefense fires every non-allied space cannon on the planets of
// system at the ground forces committed by invader. Ships in space are never
// targeted. Hits remove committed units in commitment order.
func (r *Resolver) SpaceCannonDefense(state galaxy.GameState, system galaxy.SystemID, invader galaxy.PlayerID, commitments []Commitment, roller *dice.Roller, opts Options) (Outcome, error) {
	if err := CheckCommitments(state, system, invader, commitments); err != nil {
		return Outcome{}, err
	}
	sys, _ := state.System(system)

	var committed []Target
	for _, c := range commitments {
		u, _, _ := state.Locate(c.Unit)
		committed = append(committed, Target{Unit: u})
	}

	volleys := make(map[galaxy.PlayerID]*Volley)
	var order []galaxy.PlayerID
	for _, planet := range sys.Planets {
		for _, u := range planet.Units {
			if u.Owner == invader || state.Allied(u.Owner, invader) {
				continue
			}
			stats, err := r.catalog.Stats(u.Kind)
			if err != nil {
				return Outcome{}, err
			}
			if err := catalog.CheckAbility(u.Kind, AbilitySpaceCannon, stats.SpaceCannon); err != nil {
				return Outcome{}, err
			}
			if !stats.HasSpaceCannon {
				continue
			}
			if !stats.SpaceCannon.Present() {
				return Outcome{}, apperrors.WithMetadata(apperrors.CodeMissingCapability,
					fmt.Sprintf("%s has space cannon but no space cannon dice", u.Kind),
					map[string]string{
						apperrors.MetaUnitID: string(u.ID),
						apperrors.MetaDetail: u.Kind.String(),
					})
			}
			v, ok := volleys[u.Owner]
			if !ok {
				v = &Volley{}
				volleys[u.Owner] = v
				order = append(order, u.Owner)
				if p, ok := state.Player(u.Owner); ok {
					stats.SpaceCannon.Dice += r.catalog.SpaceCannonExtraDice(p)
				}
			}
			v.add(u.ID, stats.SpaceCannon.Hit, stats.SpaceCannon.Dice, roller)
		}
	}

	out := Outcome{}
	for _, player := range order {
		v := volleys[player]
		if err := applyRerolls(v, opts.Rerolls[player], roller); err != nil {
			return Outcome{}, err
		}
		out.Fire = append(out.Fire, Fire{Player: player, Ability: AbilitySpaceCannon, Volley: *v})
	}
	remaining := committed
	for i := range out.Fire {
		f := &out.Fire[i]
		f.Hits = f.Volley.Hits()
		f.Allocation = InOrder{}.Assign(f.Hits, remaining)
		remaining = remaining[len(f.Allocation.Destroyed):]
	}
	out.Delta = allocationDelta(nil, out.Fire)
	return out, nil
}

// BombardmentTargets returns the planets of system that attacker may
// bombard: planets holding non-allied ground forces and no planetary
// shield. It reads state directly and caches nothing.
func (r *Resolver) BombardmentTargets(state galaxy.GameState, system galaxy.SystemID, attacker galaxy.PlayerID) []galaxy.PlanetID {
	sys, ok := state.System(system)
	if !ok {
		return nil
	}
	var out []galaxy.PlanetID
	for _, planet := range sys.Planets {
		if r.validator.HasPlanetaryShield(planet.ID, state) {
			continue
		}
		for _, u := range planet.Units {
			if u.Kind.IsGround() && u.Owner != attacker && !state.Allied(u.Owner, attacker) {
				out = append(out, planet.ID)
				break
			}
		}
	}
	return out
}

// Bombardment fires attacker's bombardment units in system at the ground
// forces on every eligible planet, recomputed from state. No eligible
// planet or no bombarding unit is a normal empty outcome.
func (r *Resolver) Bombardment(state galaxy.GameState, system galaxy.SystemID, attacker galaxy.PlayerID, roller *dice.Roller, opts Options) (Outcome, error) {
	sys, ok := state.System(system)
	if !ok {
		return Outcome{}, apperrors.WithMetadata(apperrors.CodeSystemNotFound,
			fmt.Sprintf("system %s not found", system),
			map[string]string{apperrors.MetaSystemID: string(system)})
	}
	out := Outcome{Planets: r.BombardmentTargets(state, system, attacker)}
	if len(out.Planets) == 0 {
		return out, nil
	}

	v := Volley{}
	extra := 0
	if p, ok := state.Player(attacker); ok {
		extra = r.catalog.BombardExtraDice(p)
	}
	for _, u := range sys.SpaceUnitsOf(attacker) {
		stats, err := r.catalog.Stats(u.Kind)
		if err != nil {
			return Outcome{}, err
		}
		if err := catalog.CheckAbility(u.Kind, AbilityBombardment, stats.Bombardment); err != nil {
			return Outcome{}, err
		}
		if !stats.Bombardment.Present() {
			continue
		}
		v.add(u.ID, stats.Bombardment.Hit, stats.Bombardment.Dice+extra, roller)
		extra = 0
	}
	if len(v.Dice) == 0 {
		return out, nil
	}
	if err := applyRerolls(&v, opts.Rerolls[attacker], roller); err != nil {
		return Outcome{}, err
	}

	var ground []galaxy.Unit
	for _, id := range out.Planets {
		p, _ := sys.Planet(id)
		for _, u := range p.Units {
			if u.Kind.IsGround() && u.Owner != attacker && !state.Allied(u.Owner, attacker) {
				ground = append(ground, u)
			}
		}
	}
	targets, err := r.targets(ground)
	if err != nil {
		return Outcome{}, err
	}
	f := Fire{Player: attacker, Ability: AbilityBombardment, Volley: v}
	f.Hits = f.Volley.Hits()
	f.Allocation = opts.assigner(attacker).Assign(f.Hits, targets)
	out.Fire = []Fire{f}
	out.Delta = allocationDelta(ground, out.Fire)
	return out, nil
}

// Landing moves committed units onto their planets and marks them
// committed.
func Landing(state galaxy.GameState, commitments []Commitment) galaxy.Delta {
	var d galaxy.Delta
	for _, c := range commitments {
		u, _, ok := state.Locate(c.Unit)
		if !ok {
			continue
		}
		sysID, _ := state.PlanetSystem(c.Planet)
		d.Relocations = append(d.Relocations, galaxy.Relocation{Unit: c.Unit, To: galaxy.OnPlanet(sysID, c.Planet)})
		status := u.Status
		status.Committed = true
		d.Statuses = append(d.Statuses, galaxy.StatusChange{Unit: c.Unit, Status: status})
	}
	return d
}

// Settle resolves planet once ground combat is over. The committed flags
// of player's ground forces always clear. If only player's ground forces
// remain, player takes control and the previous controller's structures
// are destroyed.
func Settle(state galaxy.GameState, planet galaxy.PlanetID, player galaxy.PlayerID) galaxy.Delta {
	var d galaxy.Delta
	sysID, ok := state.PlanetSystem(planet)
	if !ok {
		return d
	}
	sys, _ := state.System(sysID)
	p, _ := sys.Planet(planet)
	own, enemy := 0, 0
	var structures []galaxy.UnitID
	for _, u := range p.Units {
		if u.Kind.IsStructure() && u.Owner != player && !state.Allied(u.Owner, player) {
			structures = append(structures, u.ID)
		}
		if !u.Kind.IsGround() {
			continue
		}
		if u.Owner != player {
			enemy++
			continue
		}
		own++
		if u.Status.Committed {
			status := u.Status
			status.Committed = false
			d.Statuses = append(d.Statuses, galaxy.StatusChange{Unit: u.ID, Status: status})
		}
	}
	if own == 0 || enemy > 0 {
		return d
	}
	if c, _ := state.Controller(planet); c != player {
		d.Control = append(d.Control, galaxy.ControlChange{Planet: planet, Player: player})
		d.Removals = append(d.Removals, structures...)
	}
	return d
}
