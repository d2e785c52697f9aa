package galaxy

import (
	"fmt"
	"slices"
	"sort"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
)

// Setup is the plain-value description of a game state. It is the input of
// NewGameState and the output of GameState.Setup, and is the shape that gets
// persisted.
type Setup struct {
	Round        int                     `json:"round" yaml:"round"`
	Phase        Phase                   `json:"phase" yaml:"phase"`
	ActiveSystem SystemID                `json:"active_system,omitempty" yaml:"active_system,omitempty"`
	ActivePlayer PlayerID                `json:"active_player,omitempty" yaml:"active_player,omitempty"`
	UnitSerial   int                     `json:"unit_serial" yaml:"unit_serial"`
	Systems      []System                `json:"systems" yaml:"systems"`
	Players      []Player                `json:"players" yaml:"players"`
	Control      map[PlanetID]PlayerID   `json:"control,omitempty" yaml:"control,omitempty"`
	Tokens       map[SystemID][]PlayerID `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// GameState is an immutable snapshot of the board. Accessors return copies;
// the only way to derive another state is Apply.
type GameState struct {
	round        int
	phase        Phase
	activeSystem SystemID
	activePlayer PlayerID
	unitSerial   int

	systemOrder []SystemID
	systems     map[SystemID]System
	playerOrder []PlayerID
	players     map[PlayerID]Player
	control     map[PlanetID]PlayerID
	tokens      map[SystemID][]PlayerID
}

// NewGameState builds a state from setup and checks every board invariant.
func NewGameState(setup Setup) (GameState, error) {
	s := GameState{
		round:        setup.Round,
		phase:        setup.Phase,
		activeSystem: setup.ActiveSystem,
		activePlayer: setup.ActivePlayer,
		unitSerial:   setup.UnitSerial,
		systems:      make(map[SystemID]System, len(setup.Systems)),
		players:      make(map[PlayerID]Player, len(setup.Players)),
		control:      make(map[PlanetID]PlayerID, len(setup.Control)),
		tokens:       make(map[SystemID][]PlayerID, len(setup.Tokens)),
	}
	for _, sys := range setup.Systems {
		if _, dup := s.systems[sys.ID]; dup {
			return GameState{}, invariantError("duplicate system %s", sys.ID)
		}
		s.systemOrder = append(s.systemOrder, sys.ID)
		s.systems[sys.ID] = sys.clone()
	}
	for _, p := range setup.Players {
		if _, dup := s.players[p.ID]; dup {
			return GameState{}, invariantError("duplicate player %s", p.ID)
		}
		s.playerOrder = append(s.playerOrder, p.ID)
		s.players[p.ID] = p.clone()
	}
	for planet, player := range setup.Control {
		if player == "" {
			continue
		}
		s.control[planet] = player
	}
	for system, players := range setup.Tokens {
		if len(players) == 0 {
			continue
		}
		s.tokens[system] = slices.Clone(players)
	}
	if err := s.Validate(); err != nil {
		return GameState{}, err
	}
	return s, nil
}

// Setup returns a deep copy of the state as plain values.
func (s GameState) Setup() Setup {
	out := Setup{
		Round:        s.round,
		Phase:        s.phase,
		ActiveSystem: s.activeSystem,
		ActivePlayer: s.activePlayer,
		UnitSerial:   s.unitSerial,
		Systems:      s.Systems(),
		Players:      s.Players(),
		Control:      s.ControlTable(),
		Tokens:       make(map[SystemID][]PlayerID, len(s.tokens)),
	}
	for system, players := range s.tokens {
		out.Tokens[system] = slices.Clone(players)
	}
	return out
}

// Validate checks the board invariants: every unit is owned by an existing
// player and sits in exactly one location, adjacency and control entries
// reference existing systems, planets and players.
func (s GameState) Validate() error {
	planets := make(map[PlanetID]SystemID)
	units := make(map[UnitID]Location)
	for _, id := range s.systemOrder {
		sys := s.systems[id]
		if sys.ID == "" {
			return invariantError("system with empty id")
		}
		for _, adj := range sys.Adjacent {
			if _, ok := s.systems[adj]; !ok {
				return invariantError("system %s is adjacent to unknown system %s", sys.ID, adj)
			}
		}
		if err := s.checkUnits(sys.SpaceUnits, Space(sys.ID), units); err != nil {
			return err
		}
		for _, p := range sys.Planets {
			if p.ID == "" {
				return invariantError("planet with empty id in %s", sys.ID)
			}
			if prev, dup := planets[p.ID]; dup {
				return invariantError("planet %s appears in %s and %s", p.ID, prev, sys.ID)
			}
			planets[p.ID] = sys.ID
			if err := s.checkUnits(p.Units, OnPlanet(sys.ID, p.ID), units); err != nil {
				return err
			}
		}
	}
	for planet, player := range s.control {
		if _, ok := planets[planet]; !ok {
			return invariantError("control table names unknown planet %s", planet)
		}
		if _, ok := s.players[player]; !ok {
			return invariantError("planet %s controlled by unknown player %s", planet, player)
		}
	}
	for system, players := range s.tokens {
		if _, ok := s.systems[system]; !ok {
			return invariantError("command token in unknown system %s", system)
		}
		for _, player := range players {
			if _, ok := s.players[player]; !ok {
				return invariantError("command token of unknown player %s in %s", player, system)
			}
		}
	}
	for _, id := range s.playerOrder {
		p := s.players[id]
		if p.TradeGoods < 0 {
			return invariantError("player %s has negative trade goods", id)
		}
		if p.Tokens.Tactic < 0 || p.Tokens.Fleet < 0 || p.Tokens.Strategy < 0 {
			return invariantError("player %s has a negative token pool", id)
		}
	}
	if s.activeSystem != "" {
		if _, ok := s.systems[s.activeSystem]; !ok {
			return invariantError("active system %s does not exist", s.activeSystem)
		}
	}
	return nil
}

func (s GameState) checkUnits(list []Unit, at Location, seen map[UnitID]Location) error {
	for _, u := range list {
		if u.ID == "" {
			return invariantError("unit with empty id in %s", describe(at))
		}
		if !u.Kind.Valid() {
			return invariantError("unit %s has no kind", u.ID)
		}
		if _, ok := s.players[u.Owner]; !ok {
			return invariantError("unit %s owned by unknown player %q", u.ID, u.Owner)
		}
		if prev, dup := seen[u.ID]; dup {
			return invariantError("unit %s is in both %s and %s", u.ID, describe(prev), describe(at))
		}
		seen[u.ID] = at
	}
	return nil
}

func describe(l Location) string {
	if l.InSpace() {
		return string(l.System) + "/space"
	}
	return string(l.System) + "/" + string(l.Planet)
}

func invariantError(format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return apperrors.WithMetadata(apperrors.CodeStateInvariant, "state invariant violated: "+detail, map[string]string{
		apperrors.MetaDetail: detail,
	})
}

// Round returns the game round marker.
func (s GameState) Round() int { return s.round }

// Phase returns the round phase marker.
func (s GameState) Phase() Phase { return s.phase }

// ActiveSystem returns the system activated by the current tactical action.
func (s GameState) ActiveSystem() SystemID { return s.activeSystem }

// ActivePlayer returns the player taking the current tactical action.
func (s GameState) ActivePlayer() PlayerID { return s.activePlayer }

// UnitSerial returns the next free serial for newly placed units.
func (s GameState) UnitSerial() int { return s.unitSerial }

// System returns a copy of the system.
func (s GameState) System(id SystemID) (System, bool) {
	sys, ok := s.systems[id]
	if !ok {
		return System{}, false
	}
	return sys.clone(), true
}

// SystemIDs returns system IDs in board order.
func (s GameState) SystemIDs() []SystemID {
	return slices.Clone(s.systemOrder)
}

// Systems returns copies of every system in board order.
func (s GameState) Systems() []System {
	out := make([]System, 0, len(s.systemOrder))
	for _, id := range s.systemOrder {
		out = append(out, s.systems[id].clone())
	}
	return out
}

// Player returns a copy of the player.
func (s GameState) Player(id PlayerID) (Player, bool) {
	p, ok := s.players[id]
	if !ok {
		return Player{}, false
	}
	return p.clone(), true
}

// Players returns copies of every player in seating order.
func (s GameState) Players() []Player {
	out := make([]Player, 0, len(s.playerOrder))
	for _, id := range s.playerOrder {
		out = append(out, s.players[id].clone())
	}
	return out
}

// Controller returns the controller of a planet from the control table.
func (s GameState) Controller(planet PlanetID) (PlayerID, bool) {
	p, ok := s.control[planet]
	return p, ok
}

// ControlTable returns a copy of the control table.
func (s GameState) ControlTable() map[PlanetID]PlayerID {
	out := make(map[PlanetID]PlayerID, len(s.control))
	for k, v := range s.control {
		out[k] = v
	}
	return out
}

// HasToken reports whether player has a command token in system.
func (s GameState) HasToken(system SystemID, player PlayerID) bool {
	return slices.Contains(s.tokens[system], player)
}

// Allied reports whether two players are the same or allied.
func (s GameState) Allied(a, b PlayerID) bool {
	if a == b {
		return true
	}
	pa, ok := s.players[a]
	if ok && pa.IsAlliedWith(b) {
		return true
	}
	pb, ok := s.players[b]
	return ok && pb.IsAlliedWith(a)
}

// Locate finds a unit and where it stands.
func (s GameState) Locate(id UnitID) (Unit, Location, bool) {
	for _, sysID := range s.systemOrder {
		sys := s.systems[sysID]
		for _, u := range sys.SpaceUnits {
			if u.ID == id {
				return u, Space(sysID), true
			}
		}
		for _, p := range sys.Planets {
			for _, u := range p.Units {
				if u.ID == id {
					return u, OnPlanet(sysID, p.ID), true
				}
			}
		}
	}
	return Unit{}, Location{}, false
}

// PlanetSystem returns the system that holds a planet.
func (s GameState) PlanetSystem(planet PlanetID) (SystemID, bool) {
	for _, sysID := range s.systemOrder {
		for _, p := range s.systems[sysID].Planets {
			if p.ID == planet {
				return sysID, true
			}
		}
	}
	return "", false
}

// ControlledPlanets returns the planets a player controls, in board order.
func (s GameState) ControlledPlanets(player PlayerID) []Planet {
	var out []Planet
	for _, sysID := range s.systemOrder {
		for _, p := range s.systems[sysID].Planets {
			if s.control[p.ID] == player {
				out = append(out, p.clone())
			}
		}
	}
	return out
}

// Adjacent reports whether a and b are adjacent, either through an explicit
// link in either direction or through a matching wormhole tag.
func (s GameState) Adjacent(a, b SystemID) bool {
	if a == b {
		return false
	}
	sa, okA := s.systems[a]
	sb, okB := s.systems[b]
	if !okA || !okB {
		return false
	}
	if slices.Contains(sa.Adjacent, b) || slices.Contains(sb.Adjacent, a) {
		return true
	}
	return sa.SharesWormhole(sb)
}

// Neighbors returns every system adjacent to id, sorted by ID.
func (s GameState) Neighbors(id SystemID) []SystemID {
	if _, ok := s.systems[id]; !ok {
		return nil
	}
	var out []SystemID
	for _, other := range s.systemOrder {
		if s.Adjacent(id, other) {
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
