// Package movement validates and resolves the movement step of a tactical
// action. It proposes a delta; it never changes the state it is given.
package movement

import (
	"fmt"

	"github.com/louisbranch/hexfleet/internal/core/check"
	"github.com/louisbranch/hexfleet/internal/core/dice"
	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/compliance"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// Engine resolves movement plans.
type Engine struct {
	validator *compliance.Validator
	catalog   *catalog.Catalog
}

// NewEngine returns an engine that checks legality through v.
func NewEngine(v *compliance.Validator) *Engine {
	return &Engine{validator: v, catalog: v.Catalog()}
}

// mover is a unit with its own movement value.
type mover struct {
	unit     galaxy.Unit
	move     Move
	path     Path
	capacity int
}

// passenger is a unit carried by a mover.
type passenger struct {
	unit    galaxy.Unit
	move    Move
	carrier int
}

// Execute validates every move of plan against state and, when all of them
// are legal, rolls rift destruction checks with roller and returns the
// proposed placement. Any illegal move rejects the whole plan with a
// *Violation and no dice are rolled.
func (e *Engine) Execute(state galaxy.GameState, plan Plan, roller *dice.Roller) (Result, error) {
	player, err := e.checkPlan(state, plan)
	if err != nil {
		return Result{}, err
	}

	var movers []mover
	var passengers []passenger
	seen := make(map[galaxy.UnitID]bool, len(plan.Moves))
	for _, mv := range plan.Moves {
		unit, stats, err := e.checkMove(state, plan, mv, seen)
		if err != nil {
			return Result{}, err
		}
		switch {
		case unit.Kind.IsShip() && stats.Movement > 0:
			path, err := e.route(state, player, unit, stats, mv, plan.ActiveSystem)
			if err != nil {
				return Result{}, err
			}
			movers = append(movers, mover{unit: unit, move: mv, path: path, capacity: stats.Capacity})
		case unit.Kind.IsGround() || unit.Kind.IsFighter():
			passengers = append(passengers, passenger{unit: unit, move: mv, carrier: -1})
		default:
			return Result{}, violation(apperrors.CodeMovementOutOfRange, unit.ID, 1, mv.From,
				fmt.Sprintf("%s cannot move", unit.Kind))
		}
	}
	if err := e.board(movers, passengers); err != nil {
		return Result{}, err
	}

	preview, err := state.Apply(relocate(movers, passengers, nil, plan.ActiveSystem))
	if err != nil {
		return Result{}, err
	}
	if !e.validator.CapacityRespected(plan.ActiveSystem, plan.Player, preview) {
		unit := galaxy.UnitID("")
		if len(passengers) > 0 {
			unit = passengers[0].unit.ID
		}
		return Result{}, violation(apperrors.CodeMovementCapacityExceeded, unit, 0, plan.ActiveSystem,
			"ships in the active system cannot carry every unit that needs capacity")
	}
	if !e.validator.FleetSupplyRespected(plan.ActiveSystem, plan.Player, preview) {
		unit := galaxy.UnitID("")
		if len(movers) > 0 {
			unit = movers[len(movers)-1].unit.ID
		}
		return Result{}, violation(apperrors.CodeMovementFleetSupplyExceeded, unit, 0, plan.ActiveSystem,
			"fleet supply exceeded in the active system")
	}

	var result Result
	destroyed := make(map[galaxy.UnitID]bool)
	threshold := e.catalog.Rules().RiftDestroyThreshold
	for _, m := range movers {
		for i := 0; i < m.path.Hops; i++ {
			sysID := m.path.Systems[i]
			sys, _ := state.System(sysID)
			if !sys.HasAnomaly(galaxy.GravityRift) {
				continue
			}
			face := roller.RollD10()
			lost := check.AtOrBelow(face, threshold)
			result.RiftRolls = append(result.RiftRolls, RiftRoll{Unit: m.unit.ID, System: sysID, Face: face, Destroyed: lost})
			if lost {
				destroyed[m.unit.ID] = true
				break
			}
		}
	}
	for _, p := range passengers {
		if destroyed[movers[p.carrier].unit.ID] {
			destroyed[p.unit.ID] = true
		}
	}

	result.Delta = relocate(movers, passengers, destroyed, plan.ActiveSystem)
	for _, m := range movers {
		result.Paths = append(result.Paths, m.path)
		if destroyed[m.unit.ID] {
			result.Destroyed = append(result.Destroyed, m.unit.ID)
		}
	}
	for _, p := range passengers {
		path := movers[p.carrier].path
		path.Unit = p.unit.ID
		path.Carrier = movers[p.carrier].unit.ID
		result.Paths = append(result.Paths, path)
		if destroyed[p.unit.ID] {
			result.Destroyed = append(result.Destroyed, p.unit.ID)
		}
	}
	return result, nil
}

func (e *Engine) checkPlan(state galaxy.GameState, plan Plan) (galaxy.Player, error) {
	player, ok := state.Player(plan.Player)
	if !ok {
		return galaxy.Player{}, apperrors.WithMetadata(apperrors.CodePlayerNotFound,
			fmt.Sprintf("player %s not found", plan.Player),
			map[string]string{apperrors.MetaPlayerID: string(plan.Player)})
	}
	if _, ok := state.System(plan.ActiveSystem); !ok {
		return galaxy.Player{}, apperrors.WithMetadata(apperrors.CodeSystemNotFound,
			fmt.Sprintf("system %s not found", plan.ActiveSystem),
			map[string]string{apperrors.MetaSystemID: string(plan.ActiveSystem)})
	}
	if active := state.ActiveSystem(); active != "" && active != plan.ActiveSystem {
		return galaxy.Player{}, violation(apperrors.CodeMovementNotActiveSystem, "", 0, active,
			fmt.Sprintf("plan declares %s but %s is active", plan.ActiveSystem, active))
	}
	return player, nil
}

func (e *Engine) checkMove(state galaxy.GameState, plan Plan, mv Move, seen map[galaxy.UnitID]bool) (galaxy.Unit, catalog.UnitStats, error) {
	unit, at, ok := state.Locate(mv.Unit)
	if !ok {
		return galaxy.Unit{}, catalog.UnitStats{}, violation(apperrors.CodeUnitNotFound, mv.Unit, 0, mv.From, "unit is not on the board")
	}
	if seen[mv.Unit] {
		return galaxy.Unit{}, catalog.UnitStats{}, violation(apperrors.CodeMovementDuplicateUnit, mv.Unit, 0, mv.From, "unit is moved twice")
	}
	seen[mv.Unit] = true
	if unit.Owner != plan.Player {
		return galaxy.Unit{}, catalog.UnitStats{}, violation(apperrors.CodeMovementNotOwner, mv.Unit, 0, mv.From,
			fmt.Sprintf("unit belongs to %s", unit.Owner))
	}
	if at.System != mv.From {
		return galaxy.Unit{}, catalog.UnitStats{}, violation(apperrors.CodeMovementWrongOrigin, mv.Unit, 0, mv.From,
			fmt.Sprintf("unit is in %s", at.System))
	}
	if mv.To != plan.ActiveSystem {
		return galaxy.Unit{}, catalog.UnitStats{}, violation(apperrors.CodeMovementNotActiveSystem, mv.Unit, 0, plan.ActiveSystem,
			fmt.Sprintf("destination %s is not the active system", mv.To))
	}
	if mv.From == plan.ActiveSystem || state.HasToken(mv.From, plan.Player) {
		return galaxy.Unit{}, catalog.UnitStats{}, violation(apperrors.CodeMovementOriginLocked, mv.Unit, 0, mv.From,
			"origin holds the player's command token")
	}
	stats, err := e.catalog.Stats(unit.Kind)
	if err != nil {
		return galaxy.Unit{}, catalog.UnitStats{}, err
	}
	if !at.InSpace() && !unit.Kind.IsGround() {
		return galaxy.Unit{}, catalog.UnitStats{}, violation(apperrors.CodeMovementWrongOrigin, mv.Unit, 0, mv.From,
			"only ground forces are picked up from planets")
	}
	return unit, stats, nil
}

// route finds the legal path of a unit that moves on its own and checks it
// against the unit's effective movement.
func (e *Engine) route(state galaxy.GameState, player galaxy.Player, unit galaxy.Unit, stats catalog.UnitStats, mv Move, active galaxy.SystemID) (Path, error) {
	rules := e.catalog.Rules()
	dest, _ := state.System(active)
	nebula := dest.HasAnomaly(galaxy.Nebula)

	base := stats.Movement + e.catalog.MovementBonus(player)
	bonus := rules.RiftBonus
	if nebula {
		base = rules.NebulaMoveValue
		bonus = 0
	}

	legal := search{
		state:     state,
		riftBonus: bonus,
		enter: func(id galaxy.SystemID, last bool) bool {
			return e.blockedBy(state, player, unit.Kind, id, last) == ""
		},
	}
	r, ok := legal.shortest(mv.From, active)
	if !ok {
		return Path{}, e.diagnose(state, player, unit, mv.From, active)
	}
	effective := base + bonus*r.rifts
	if r.hops() > effective {
		return Path{}, violation(apperrors.CodeMovementOutOfRange, unit.ID, effective+1, active,
			fmt.Sprintf("path needs %d hops but movement is %d", r.hops(), effective))
	}
	return Path{
		Unit:              unit.ID,
		Systems:           r.systems,
		Hops:              r.hops(),
		RiftsExited:       r.rifts,
		EffectiveMovement: effective,
	}, nil
}

// blockedBy names what stops kind from landing in id, or returns "".
// Nebulae may end a move but never be passed through.
func (e *Engine) blockedBy(state galaxy.GameState, player galaxy.Player, kind galaxy.UnitKind, id galaxy.SystemID, last bool) string {
	sys, ok := state.System(id)
	if !ok {
		return "unknown system"
	}
	for _, a := range sys.Anomalies {
		if a.BlocksMovement() && !e.catalog.CanBypass(kind, player, a) {
			return a.String()
		}
		if a == galaxy.Nebula && !last {
			return a.String()
		}
	}
	return ""
}

// diagnose explains why no legal path exists by walking the shortest path
// that ignores anomalies.
func (e *Engine) diagnose(state galaxy.GameState, player galaxy.Player, unit galaxy.Unit, from, to galaxy.SystemID) error {
	open := search{
		state: state,
		enter: func(galaxy.SystemID, bool) bool { return true },
	}
	r, ok := open.shortest(from, to)
	if !ok {
		return violation(apperrors.CodeMovementUnreachable, unit.ID, 0, to, "no path connects origin and destination")
	}
	for i := 1; i < len(r.systems); i++ {
		id := r.systems[i]
		if reason := e.blockedBy(state, player, unit.Kind, id, i == len(r.systems)-1); reason != "" {
			return violation(apperrors.CodeMovementBlocked, unit.ID, i, id, reason)
		}
	}
	return violation(apperrors.CodeMovementUnreachable, unit.ID, 0, to, "no legal path connects origin and destination")
}

// board assigns each passenger to the first mover from the same origin with
// spare capacity, in declaration order.
func (e *Engine) board(movers []mover, passengers []passenger) error {
	spare := make([]int, len(movers))
	for i, m := range movers {
		spare[i] = m.capacity
	}
	for i := range passengers {
		p := &passengers[i]
		for j, m := range movers {
			if m.move.From == p.move.From && spare[j] > 0 {
				p.carrier = j
				spare[j]--
				break
			}
		}
		if p.carrier < 0 {
			return violation(apperrors.CodeMovementCapacityExceeded, p.unit.ID, 0, p.move.From,
				"no ship moving from the same origin has capacity left")
		}
	}
	return nil
}

func relocate(movers []mover, passengers []passenger, destroyed map[galaxy.UnitID]bool, to galaxy.SystemID) galaxy.Delta {
	var d galaxy.Delta
	for _, m := range movers {
		if destroyed[m.unit.ID] {
			d.Removals = append(d.Removals, m.unit.ID)
			continue
		}
		d.Relocations = append(d.Relocations, galaxy.Relocation{Unit: m.unit.ID, To: galaxy.Space(to)})
	}
	for _, p := range passengers {
		if destroyed[p.unit.ID] {
			d.Removals = append(d.Removals, p.unit.ID)
			continue
		}
		d.Relocations = append(d.Relocations, galaxy.Relocation{Unit: p.unit.ID, To: galaxy.Space(to)})
	}
	return d
}
