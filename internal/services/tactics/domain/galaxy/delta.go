package galaxy

import (
	"maps"
	"slices"
)

// Relocation moves an existing unit to another location.
type Relocation struct {
	Unit UnitID   `json:"unit"`
	To   Location `json:"to"`
}

// Placement puts a new unit on the board.
type Placement struct {
	Unit Unit     `json:"unit"`
	At   Location `json:"at"`
}

// StatusChange replaces a unit's status.
type StatusChange struct {
	Unit   UnitID     `json:"unit"`
	Status UnitStatus `json:"status"`
}

// TradeGoodsChange adds Amount (possibly negative) to a player's trade goods.
type TradeGoodsChange struct {
	Player PlayerID `json:"player"`
	Amount int      `json:"amount"`
}

// ControlChange sets a planet's controller; an empty Player clears control.
type ControlChange struct {
	Planet PlanetID `json:"planet"`
	Player PlayerID `json:"player,omitempty"`
}

// Activation spends one tactic token of Player into System and marks the
// system as active.
type Activation struct {
	Player PlayerID `json:"player"`
	System SystemID `json:"system"`
}

// Delta is a proposed change to a GameState. Engines and resolvers build
// deltas; only the tactical coordinator applies them.
type Delta struct {
	Removals       []UnitID           `json:"removals,omitempty"`
	Relocations    []Relocation       `json:"relocations,omitempty"`
	Placements     []Placement        `json:"placements,omitempty"`
	Statuses       []StatusChange     `json:"statuses,omitempty"`
	ExhaustPlanets []PlanetID         `json:"exhaust_planets,omitempty"`
	RefreshPlanets []PlanetID         `json:"refresh_planets,omitempty"`
	TradeGoods     []TradeGoodsChange `json:"trade_goods,omitempty"`
	Control        []ControlChange    `json:"control,omitempty"`
	Activation     *Activation        `json:"activation,omitempty"`
	ClearActive    bool               `json:"clear_active,omitempty"`
	SerialAdvance  int                `json:"serial_advance,omitempty"`
}

// IsEmpty reports whether applying the delta would change nothing.
func (d Delta) IsEmpty() bool {
	return len(d.Removals) == 0 &&
		len(d.Relocations) == 0 &&
		len(d.Placements) == 0 &&
		len(d.Statuses) == 0 &&
		len(d.ExhaustPlanets) == 0 &&
		len(d.RefreshPlanets) == 0 &&
		len(d.TradeGoods) == 0 &&
		len(d.Control) == 0 &&
		d.Activation == nil &&
		!d.ClearActive &&
		d.SerialAdvance == 0
}

// Merge returns a delta holding the changes of d followed by those of o.
func (d Delta) Merge(o Delta) Delta {
	out := Delta{
		Removals:       append(slices.Clone(d.Removals), o.Removals...),
		Relocations:    append(slices.Clone(d.Relocations), o.Relocations...),
		Placements:     append(slices.Clone(d.Placements), o.Placements...),
		Statuses:       append(slices.Clone(d.Statuses), o.Statuses...),
		ExhaustPlanets: append(slices.Clone(d.ExhaustPlanets), o.ExhaustPlanets...),
		RefreshPlanets: append(slices.Clone(d.RefreshPlanets), o.RefreshPlanets...),
		TradeGoods:     append(slices.Clone(d.TradeGoods), o.TradeGoods...),
		Control:        append(slices.Clone(d.Control), o.Control...),
		Activation:     d.Activation,
		ClearActive:    d.ClearActive || o.ClearActive,
		SerialAdvance:  d.SerialAdvance + o.SerialAdvance,
	}
	if o.Activation != nil {
		out.Activation = o.Activation
	}
	return out
}

// Apply returns a new state with the delta applied. Changes are applied in
// field order: removals, relocations, placements, statuses, planets, trade
// goods, control, activation. Either every change applies and the result
// passes Validate, or the receiver is returned unchanged with an error.
func (s GameState) Apply(d Delta) (GameState, error) {
	next := s.clone()
	for _, id := range d.Removals {
		if _, _, ok := next.takeUnit(id); !ok {
			return s, invariantError("cannot remove unit %s: not on the board", id)
		}
	}
	for _, r := range d.Relocations {
		u, _, ok := next.takeUnit(r.Unit)
		if !ok {
			return s, invariantError("cannot relocate unit %s: not on the board", r.Unit)
		}
		if err := next.putUnit(u, r.To); err != nil {
			return s, err
		}
	}
	for _, p := range d.Placements {
		if _, _, exists := next.Locate(p.Unit.ID); exists {
			return s, invariantError("cannot place unit %s: id already in use", p.Unit.ID)
		}
		if err := next.putUnit(p.Unit, p.At); err != nil {
			return s, err
		}
	}
	for _, st := range d.Statuses {
		if !next.setStatus(st.Unit, st.Status) {
			return s, invariantError("cannot update status of unit %s: not on the board", st.Unit)
		}
	}
	for _, id := range d.ExhaustPlanets {
		if !next.setExhausted(id, true) {
			return s, invariantError("cannot exhaust unknown planet %s", id)
		}
	}
	for _, id := range d.RefreshPlanets {
		if !next.setExhausted(id, false) {
			return s, invariantError("cannot refresh unknown planet %s", id)
		}
	}
	for _, tg := range d.TradeGoods {
		p, ok := next.players[tg.Player]
		if !ok {
			return s, invariantError("trade goods change for unknown player %s", tg.Player)
		}
		p.TradeGoods += tg.Amount
		next.players[tg.Player] = p
	}
	for _, c := range d.Control {
		if c.Player == "" {
			delete(next.control, c.Planet)
			continue
		}
		next.control[c.Planet] = c.Player
	}
	if d.ClearActive {
		next.activeSystem = ""
		next.activePlayer = ""
	}
	if a := d.Activation; a != nil {
		p, ok := next.players[a.Player]
		if !ok {
			return s, invariantError("activation by unknown player %s", a.Player)
		}
		if p.Tokens.Tactic < 1 {
			return s, invariantError("player %s has no tactic token to spend", a.Player)
		}
		if next.HasToken(a.System, a.Player) {
			return s, invariantError("player %s already has a token in %s", a.Player, a.System)
		}
		p.Tokens.Tactic--
		next.players[a.Player] = p
		next.tokens[a.System] = append(slices.Clone(next.tokens[a.System]), a.Player)
		next.activeSystem = a.System
		next.activePlayer = a.Player
	}
	if d.SerialAdvance < 0 {
		return s, invariantError("unit serial cannot move backwards")
	}
	next.unitSerial += d.SerialAdvance
	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

// clone deep-copies the state so the copy can be edited during Apply.
func (s GameState) clone() GameState {
	out := s
	out.systemOrder = slices.Clone(s.systemOrder)
	out.playerOrder = slices.Clone(s.playerOrder)
	out.systems = make(map[SystemID]System, len(s.systems))
	for id, sys := range s.systems {
		out.systems[id] = sys.clone()
	}
	out.players = make(map[PlayerID]Player, len(s.players))
	for id, p := range s.players {
		out.players[id] = p.clone()
	}
	out.control = maps.Clone(s.control)
	if out.control == nil {
		out.control = make(map[PlanetID]PlayerID)
	}
	out.tokens = make(map[SystemID][]PlayerID, len(s.tokens))
	for id, players := range s.tokens {
		out.tokens[id] = slices.Clone(players)
	}
	return out
}

// takeUnit removes a unit from the working copy.
func (s *GameState) takeUnit(id UnitID) (Unit, Location, bool) {
	for _, sysID := range s.systemOrder {
		sys := s.systems[sysID]
		if i := slices.IndexFunc(sys.SpaceUnits, func(u Unit) bool { return u.ID == id }); i >= 0 {
			u := sys.SpaceUnits[i]
			sys.SpaceUnits = slices.Delete(sys.SpaceUnits, i, i+1)
			s.systems[sysID] = sys
			return u, Space(sysID), true
		}
		for pi := range sys.Planets {
			units := sys.Planets[pi].Units
			if i := slices.IndexFunc(units, func(u Unit) bool { return u.ID == id }); i >= 0 {
				u := units[i]
				sys.Planets[pi].Units = slices.Delete(units, i, i+1)
				s.systems[sysID] = sys
				return u, OnPlanet(sysID, sys.Planets[pi].ID), true
			}
		}
	}
	return Unit{}, Location{}, false
}

func (s *GameState) putUnit(u Unit, at Location) error {
	sys, ok := s.systems[at.System]
	if !ok {
		return invariantError("cannot put unit %s in unknown system %s", u.ID, at.System)
	}
	if at.InSpace() {
		sys.SpaceUnits = append(sys.SpaceUnits, u)
		s.systems[at.System] = sys
		return nil
	}
	for pi := range sys.Planets {
		if sys.Planets[pi].ID == at.Planet {
			sys.Planets[pi].Units = append(sys.Planets[pi].Units, u)
			s.systems[at.System] = sys
			return nil
		}
	}
	return invariantError("cannot put unit %s on planet %s: not in system %s", u.ID, at.Planet, at.System)
}

func (s *GameState) setStatus(id UnitID, status UnitStatus) bool {
	for _, sysID := range s.systemOrder {
		sys := s.systems[sysID]
		for i := range sys.SpaceUnits {
			if sys.SpaceUnits[i].ID == id {
				sys.SpaceUnits[i].Status = status
				return true
			}
		}
		for pi := range sys.Planets {
			for i := range sys.Planets[pi].Units {
				if sys.Planets[pi].Units[i].ID == id {
					sys.Planets[pi].Units[i].Status = status
					return true
				}
			}
		}
	}
	return false
}

func (s *GameState) setExhausted(id PlanetID, exhausted bool) bool {
	for _, sysID := range s.systemOrder {
		sys := s.systems[sysID]
		for pi := range sys.Planets {
			if sys.Planets[pi].ID == id {
				sys.Planets[pi].Exhausted = exhausted
				return true
			}
		}
	}
	return false
}
