package galaxy

import (
	"fmt"
	"strings"
)

// PlayerID identifies a seated player.
type PlayerID string

// SystemID identifies a system tile.
type SystemID string

// PlanetID identifies a planet. Planet IDs are unique across the board.
type PlanetID string

// UnitID identifies a single unit piece.
type UnitID string

// UnitKind is the closed set of unit types. It doubles as the index into
// catalog stat tables, so an unknown kind can never silently miss.
type UnitKind uint8

const (
	KindUnspecified UnitKind = iota
	Fighter
	FighterII
	Infantry
	InfantryII
	Mech
	Destroyer
	Cruiser
	Carrier
	Dreadnought
	WarSun
	Flagship
	PDS
	SpaceDock

	unitKindCount
)

// UnitKindCount is the number of defined kinds, including KindUnspecified.
const UnitKindCount = int(unitKindCount)

// UnitClass groups kinds by where they live on the board.
type UnitClass uint8

const (
	ClassShip UnitClass = iota + 1
	ClassGround
	ClassStructure
)

var unitKindNames = [unitKindCount]string{
	KindUnspecified: "unspecified",
	Fighter:         "fighter",
	FighterII:       "fighter_ii",
	Infantry:        "infantry",
	InfantryII:      "infantry_ii",
	Mech:            "mech",
	Destroyer:       "destroyer",
	Cruiser:         "cruiser",
	Carrier:         "carrier",
	Dreadnought:     "dreadnought",
	WarSun:          "war_sun",
	Flagship:        "flagship",
	PDS:             "pds",
	SpaceDock:       "space_dock",
}

var unitKindClasses = [unitKindCount]UnitClass{
	Fighter:     ClassShip,
	FighterII:   ClassShip,
	Infantry:    ClassGround,
	InfantryII:  ClassGround,
	Mech:        ClassGround,
	Destroyer:   ClassShip,
	Cruiser:     ClassShip,
	Carrier:     ClassShip,
	Dreadnought: ClassShip,
	WarSun:      ClassShip,
	Flagship:    ClassShip,
	PDS:         ClassStructure,
	SpaceDock:   ClassStructure,
}

// UnitKinds returns every defined kind in declaration order.
func UnitKinds() []UnitKind {
	out := make([]UnitKind, 0, UnitKindCount-1)
	for k := Fighter; k < unitKindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k is a defined, non-zero kind.
func (k UnitKind) Valid() bool {
	return k > KindUnspecified && k < unitKindCount
}

func (k UnitKind) String() string {
	if k >= unitKindCount {
		return fmt.Sprintf("unit_kind(%d)", uint8(k))
	}
	return unitKindNames[k]
}

// Class returns the board class of the kind; zero for invalid kinds.
func (k UnitKind) Class() UnitClass {
	if !k.Valid() {
		return 0
	}
	return unitKindClasses[k]
}

// IsShip reports whether the kind occupies the space area.
func (k UnitKind) IsShip() bool { return k.Class() == ClassShip }

// IsGround reports whether the kind is a ground force.
func (k UnitKind) IsGround() bool { return k.Class() == ClassGround }

// IsStructure reports whether the kind is a planet-bound structure.
func (k UnitKind) IsStructure() bool { return k.Class() == ClassStructure }

// IsFighter reports whether the kind is any fighter subtype, base or upgraded.
func (k UnitKind) IsFighter() bool {
	return k == Fighter || k == FighterII
}

// ParseUnitKind maps a name such as "carrier" or "fighter_ii" to its kind.
func ParseUnitKind(name string) (UnitKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for k := Fighter; k < unitKindCount; k++ {
		if unitKindNames[k] == normalized {
			return k, nil
		}
	}
	return KindUnspecified, fmt.Errorf("unknown unit kind %q", name)
}

// MarshalText encodes the kind by name.
func (k UnitKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot encode unit kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *UnitKind) UnmarshalText(text []byte) error {
	parsed, err := ParseUnitKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Anomaly is a system tag that changes movement or combat.
type Anomaly uint8

const (
	AnomalyNone Anomaly = iota
	GravityRift
	Nebula
	AsteroidField
	Supernova

	anomalyCount
)

var anomalyNames = [anomalyCount]string{
	AnomalyNone:   "none",
	GravityRift:   "gravity_rift",
	Nebula:        "nebula",
	AsteroidField: "asteroid_field",
	Supernova:     "supernova",
}

func (a Anomaly) String() string {
	if a >= anomalyCount {
		return fmt.Sprintf("anomaly(%d)", uint8(a))
	}
	return anomalyNames[a]
}

// BlocksMovement reports whether ships without a bypass may not enter.
func (a Anomaly) BlocksMovement() bool {
	return a == AsteroidField || a == Supernova
}

// ParseAnomaly maps a name such as "gravity_rift" to its anomaly.
func ParseAnomaly(name string) (Anomaly, error) {
	normalized := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	for a := GravityRift; a < anomalyCount; a++ {
		if anomalyNames[a] == normalized {
			return a, nil
		}
	}
	return AnomalyNone, fmt.Errorf("unknown anomaly %q", name)
}

// MarshalText encodes the anomaly by name.
func (a Anomaly) MarshalText() ([]byte, error) {
	if a == AnomalyNone || a >= anomalyCount {
		return nil, fmt.Errorf("cannot encode anomaly %d", uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes an anomaly name.
func (a *Anomaly) UnmarshalText(text []byte) error {
	parsed, err := ParseAnomaly(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Wormhole tags connect systems regardless of distance. Only equal tags
// connect: alpha never reaches beta.
type Wormhole string

const (
	WormholeAlpha Wormhole = "alpha"
	WormholeBeta  Wormhole = "beta"
	WormholeGamma Wormhole = "gamma"
	WormholeDelta Wormhole = "delta"
)

// Technology names a researched technology that the catalog gives effects to.
type Technology string

const (
	AntimassDeflectors Technology = "antimass_deflectors"
	GravityDrive       Technology = "gravity_drive"
	PlasmaScoring      Technology = "plasma_scoring"
	FighterIITech      Technology = "fighter_ii"
	InfantryIITech     Technology = "infantry_ii"
)

// Phase marks the round phase the game is in.
type Phase string

const (
	PhaseStrategy Phase = "strategy"
	PhaseAction   Phase = "action"
	PhaseStatus   Phase = "status"
	PhaseAgenda   Phase = "agenda"
)
