package galaxy

import "slices"

// Hex is an axial hex coordinate.
type Hex struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// Distance returns the hex-grid distance between two coordinates.
func (h Hex) Distance(o Hex) int {
	dq := h.Q - o.Q
	dr := h.R - o.R
	return (abs(dq) + abs(dr) + abs(dq+dr)) / 2
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// UnitStatus is the per-turn mutable status of a unit.
type UnitStatus struct {
	Exhausted bool `json:"exhausted,omitempty" yaml:"exhausted,omitempty"`
	Damaged   bool `json:"damaged,omitempty" yaml:"damaged,omitempty"`
	Committed bool `json:"committed,omitempty" yaml:"committed,omitempty"`
}

// Unit is a single piece on the board. Base statistics come from the
// catalog, keyed by Kind.
type Unit struct {
	ID     UnitID     `json:"id" yaml:"id"`
	Kind   UnitKind   `json:"kind" yaml:"kind"`
	Owner  PlayerID   `json:"owner" yaml:"owner"`
	Status UnitStatus `json:"status" yaml:"status"`
}

// Planet belongs to exactly one system. Its controller is read from the
// game state's control table; a planet carries no controller of its own.
type Planet struct {
	ID        PlanetID `json:"id" yaml:"id"`
	Resources int      `json:"resources" yaml:"resources"`
	Influence int      `json:"influence" yaml:"influence"`
	Exhausted bool     `json:"exhausted,omitempty" yaml:"exhausted,omitempty"`
	Units     []Unit   `json:"units,omitempty" yaml:"units,omitempty"`
}

func (p Planet) clone() Planet {
	p.Units = slices.Clone(p.Units)
	return p
}

// UnitsOf returns the planet's units owned by player, in board order.
func (p Planet) UnitsOf(player PlayerID) []Unit {
	return filterOwned(p.Units, player)
}

// System is a board tile: planets, a space area, adjacency, wormholes and
// anomalies.
type System struct {
	ID         SystemID   `json:"id" yaml:"id"`
	Position   Hex        `json:"position" yaml:"position"`
	Planets    []Planet   `json:"planets,omitempty" yaml:"planets,omitempty"`
	SpaceUnits []Unit     `json:"space_units,omitempty" yaml:"space_units,omitempty"`
	Adjacent   []SystemID `json:"adjacent,omitempty" yaml:"adjacent,omitempty"`
	Wormholes  []Wormhole `json:"wormholes,omitempty" yaml:"wormholes,omitempty"`
	Anomalies  []Anomaly  `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
}

func (s System) clone() System {
	planets := make([]Planet, len(s.Planets))
	for i, p := range s.Planets {
		planets[i] = p.clone()
	}
	s.Planets = planets
	s.SpaceUnits = slices.Clone(s.SpaceUnits)
	s.Adjacent = slices.Clone(s.Adjacent)
	s.Wormholes = slices.Clone(s.Wormholes)
	s.Anomalies = slices.Clone(s.Anomalies)
	return s
}

// HasAnomaly reports whether the system carries the anomaly tag.
func (s System) HasAnomaly(a Anomaly) bool {
	return slices.Contains(s.Anomalies, a)
}

// HasWormhole reports whether the system carries the wormhole tag.
func (s System) HasWormhole(w Wormhole) bool {
	return slices.Contains(s.Wormholes, w)
}

// SharesWormhole reports whether two systems carry a matching tag.
func (s System) SharesWormhole(o System) bool {
	for _, w := range s.Wormholes {
		if o.HasWormhole(w) {
			return true
		}
	}
	return false
}

// Planet returns the planet with the given ID.
func (s System) Planet(id PlanetID) (Planet, bool) {
	for _, p := range s.Planets {
		if p.ID == id {
			return p.clone(), true
		}
	}
	return Planet{}, false
}

// SpaceUnitsOf returns the space units owned by player, in board order.
func (s System) SpaceUnitsOf(player PlayerID) []Unit {
	return filterOwned(s.SpaceUnits, player)
}

// Units returns every unit in the system: space first, then each planet in
// board order.
func (s System) Units() []Unit {
	out := slices.Clone(s.SpaceUnits)
	for _, p := range s.Planets {
		out = append(out, p.Units...)
	}
	return out
}

// ShipOwners returns the distinct owners of ships in the space area, in
// order of first appearance.
func (s System) ShipOwners() []PlayerID {
	var owners []PlayerID
	for _, u := range s.SpaceUnits {
		if u.Kind.IsShip() && !slices.Contains(owners, u.Owner) {
			owners = append(owners, u.Owner)
		}
	}
	return owners
}

func filterOwned(units []Unit, player PlayerID) []Unit {
	var out []Unit
	for _, u := range units {
		if u.Owner == player {
			out = append(out, u)
		}
	}
	return out
}

// CommandTokens are a player's token pools.
type CommandTokens struct {
	Tactic   int `json:"tactic" yaml:"tactic"`
	Fleet    int `json:"fleet" yaml:"fleet"`
	Strategy int `json:"strategy" yaml:"strategy"`
}

// Player holds per-player resources.
type Player struct {
	ID           PlayerID      `json:"id" yaml:"id"`
	TradeGoods   int           `json:"trade_goods" yaml:"trade_goods"`
	Tokens       CommandTokens `json:"tokens" yaml:"tokens"`
	Technologies []Technology  `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	Allies       []PlayerID    `json:"allies,omitempty" yaml:"allies,omitempty"`
}

func (p Player) clone() Player {
	p.Technologies = slices.Clone(p.Technologies)
	p.Allies = slices.Clone(p.Allies)
	return p
}

// HasTechnology reports whether the player researched tech.
func (p Player) HasTechnology(tech Technology) bool {
	return slices.Contains(p.Technologies, tech)
}

// IsAlliedWith reports whether other is the player or one of its allies.
func (p Player) IsAlliedWith(other PlayerID) bool {
	return p.ID == other || slices.Contains(p.Allies, other)
}

// Location is a system's space area (Planet empty) or one of its planets.
type Location struct {
	System SystemID `json:"system" yaml:"system"`
	Planet PlanetID `json:"planet,omitempty" yaml:"planet,omitempty"`
}

// InSpace reports whether the location is a space area.
func (l Location) InSpace() bool {
	return l.Planet == ""
}

// Space returns the space area of a system.
func Space(system SystemID) Location {
	return Location{System: system}
}

// OnPlanet returns a planet location.
func OnPlanet(system SystemID, planet PlanetID) Location {
	return Location{System: system, Planet: planet}
}
