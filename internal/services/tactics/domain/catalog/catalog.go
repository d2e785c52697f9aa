// Package catalog holds the read-only unit, technology and rules tables the
// tactical engine resolves against. A Catalog is built once and passed in;
// there is no package-level default instance.
package catalog

import (
	"fmt"
	"slices"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// Ability is a dice-based ability: Dice rolls, each hitting on Hit or more.
type Ability struct {
	Dice int `yaml:"dice" json:"dice"`
	Hit  int `yaml:"hit" json:"hit"`
}

// Present reports whether the ability rolls any dice.
func (a Ability) Present() bool { return a.Dice > 0 }

// UnitStats are the immutable base statistics of a unit kind.
type UnitStats struct {
	Cost       int  `yaml:"cost" json:"cost"`
	Batch      int  `yaml:"batch,omitempty" json:"batch,omitempty"`
	Producible bool `yaml:"producible" json:"producible"`

	Movement            int  `yaml:"movement" json:"movement"`
	Capacity            int  `yaml:"capacity,omitempty" json:"capacity,omitempty"`
	IndependentMovement bool `yaml:"independent_movement,omitempty" json:"independent_movement,omitempty"`

	Combat             Ability `yaml:"combat" json:"combat"`
	AntiFighterBarrage Ability `yaml:"anti_fighter_barrage,omitempty" json:"anti_fighter_barrage,omitempty"`
	SpaceCannon        Ability `yaml:"space_cannon,omitempty" json:"space_cannon,omitempty"`
	Bombardment        Ability `yaml:"bombardment,omitempty" json:"bombardment,omitempty"`

	Production        int  `yaml:"production,omitempty" json:"production,omitempty"`
	HasProduction     bool `yaml:"has_production,omitempty" json:"has_production,omitempty"`
	DynamicProduction bool `yaml:"dynamic_production,omitempty" json:"dynamic_production,omitempty"`
	ProductionBonus   int  `yaml:"production_bonus,omitempty" json:"production_bonus,omitempty"`

	HasSpaceCannon     bool `yaml:"has_space_cannon,omitempty" json:"has_space_cannon,omitempty"`
	HasPlanetaryShield bool `yaml:"has_planetary_shield,omitempty" json:"has_planetary_shield,omitempty"`
	SustainDamage      bool `yaml:"sustain_damage,omitempty" json:"sustain_damage,omitempty"`
	IgnoresSupernova   bool `yaml:"ignores_supernova,omitempty" json:"ignores_supernova,omitempty"`
}

// UnitsPerCost returns how many units one payment of Cost produces.
func (s UnitStats) UnitsPerCost() int {
	if s.Batch < 1 {
		return 1
	}
	return s.Batch
}

// TechnologyEffect is what a researched technology changes.
type TechnologyEffect struct {
	MovementBonus        int              `yaml:"movement_bonus,omitempty" json:"movement_bonus,omitempty"`
	Bypass               []galaxy.Anomaly `yaml:"bypass,omitempty" json:"bypass,omitempty"`
	SpaceCannonExtraDice int              `yaml:"space_cannon_extra_dice,omitempty" json:"space_cannon_extra_dice,omitempty"`
	BombardExtraDice     int              `yaml:"bombard_extra_dice,omitempty" json:"bombard_extra_dice,omitempty"`
	UpgradeFrom          galaxy.UnitKind  `yaml:"upgrade_from,omitempty" json:"upgrade_from,omitempty"`
	UpgradeTo            galaxy.UnitKind  `yaml:"upgrade_to,omitempty" json:"upgrade_to,omitempty"`
}

// SupplyRule decides which units count against the fleet supply pool and
// which need transport capacity. The two pools are independent.
type SupplyRule struct {
	// IndependentFightersCount puts fighters with independent movement
	// into the fleet supply count alongside non-fighter ships.
	IndependentFightersCount bool `yaml:"independent_fighters_count" json:"independent_fighters_count"`
	// IndependentFightersNeedCapacity keeps fighters with independent
	// movement in the capacity count.
	IndependentFightersNeedCapacity bool `yaml:"independent_fighters_need_capacity" json:"independent_fighters_need_capacity"`
}

// Rules are the numeric rule constants of the tactical action.
type Rules struct {
	RiftBonus            int        `yaml:"rift_bonus" json:"rift_bonus"`
	RiftDestroyThreshold int        `yaml:"rift_destroy_threshold" json:"rift_destroy_threshold"`
	NebulaMoveValue      int        `yaml:"nebula_move_value" json:"nebula_move_value"`
	NebulaDefenseBonus   int        `yaml:"nebula_defense_bonus" json:"nebula_defense_bonus"`
	MaxCombatRounds      int        `yaml:"max_combat_rounds" json:"max_combat_rounds"`
	FleetSupply          SupplyRule `yaml:"fleet_supply" json:"fleet_supply"`
}

// Catalog is the read-only rules data passed into every engine.
type Catalog struct {
	units   [galaxy.UnitKindCount]UnitStats
	defined [galaxy.UnitKindCount]bool
	techs   map[galaxy.Technology]TechnologyEffect
	rules   Rules
}

// New builds a catalog from explicit tables. It does not validate; use
// Validate, or build through Default or Load.
func New(units map[galaxy.UnitKind]UnitStats, techs map[galaxy.Technology]TechnologyEffect, rules Rules) *Catalog {
	c := &Catalog{
		techs: make(map[galaxy.Technology]TechnologyEffect, len(techs)),
		rules: rules,
	}
	for kind, stats := range units {
		if !kind.Valid() {
			continue
		}
		c.units[kind] = stats
		c.defined[kind] = true
	}
	for tech, effect := range techs {
		effect.Bypass = slices.Clone(effect.Bypass)
		c.techs[tech] = effect
	}
	return c
}

// Stats returns the base statistics of a kind.
func (c *Catalog) Stats(kind galaxy.UnitKind) (UnitStats, error) {
	if !kind.Valid() || !c.defined[kind] {
		return UnitStats{}, apperrors.WithMetadata(apperrors.CodeCatalogUnknownKind,
			fmt.Sprintf("no stats for unit kind %s", kind),
			map[string]string{apperrors.MetaDetail: kind.String()})
	}
	return c.units[kind], nil
}

// Rules returns the rule constants.
func (c *Catalog) Rules() Rules { return c.rules }

// Technology returns the effect of a technology.
func (c *Catalog) Technology(t galaxy.Technology) (TechnologyEffect, bool) {
	e, ok := c.techs[t]
	return e, ok
}

func (c *Catalog) effects(p galaxy.Player) []TechnologyEffect {
	var out []TechnologyEffect
	for _, t := range p.Technologies {
		if e, ok := c.techs[t]; ok {
			out = append(out, e)
		}
	}
	return out
}

// MovementBonus sums the technology movement bonuses of a player's ships.
func (c *Catalog) MovementBonus(p galaxy.Player) int {
	total := 0
	for _, e := range c.effects(p) {
		total += e.MovementBonus
	}
	return total
}

// CanBypass reports whether a unit of kind owned by p may enter a system
// with the given anomaly.
func (c *Catalog) CanBypass(kind galaxy.UnitKind, p galaxy.Player, a galaxy.Anomaly) bool {
	if !a.BlocksMovement() {
		return true
	}
	if a == galaxy.Supernova {
		stats, err := c.Stats(kind)
		return err == nil && stats.IgnoresSupernova
	}
	for _, e := range c.effects(p) {
		if slices.Contains(e.Bypass, a) {
			return true
		}
	}
	return false
}

// SpaceCannonExtraDice returns the extra space cannon dice p rolls per volley.
func (c *Catalog) SpaceCannonExtraDice(p galaxy.Player) int {
	total := 0
	for _, e := range c.effects(p) {
		total += e.SpaceCannonExtraDice
	}
	return total
}

// BombardExtraDice returns the extra bombardment dice p rolls per volley.
func (c *Catalog) BombardExtraDice(p galaxy.Player) int {
	total := 0
	for _, e := range c.effects(p) {
		total += e.BombardExtraDice
	}
	return total
}

// ProducedKind returns the kind a player actually builds when ordering kind,
// applying unit upgrades it researched.
func (c *Catalog) ProducedKind(kind galaxy.UnitKind, p galaxy.Player) galaxy.UnitKind {
	for _, e := range c.effects(p) {
		if e.UpgradeFrom == kind && e.UpgradeTo.Valid() {
			return e.UpgradeTo
		}
	}
	return kind
}

// NeedsCapacity reports whether a unit must be carried by a ship's capacity
// while in space or in transit.
func (c *Catalog) NeedsCapacity(kind galaxy.UnitKind) bool {
	if kind.IsGround() {
		return true
	}
	if !kind.IsFighter() {
		return false
	}
	stats, err := c.Stats(kind)
	if err != nil || !stats.IndependentMovement {
		return true
	}
	return c.rules.FleetSupply.IndependentFightersNeedCapacity
}

// CountsAgainstFleetSupply reports whether a ship occupies fleet supply.
func (c *Catalog) CountsAgainstFleetSupply(kind galaxy.UnitKind) bool {
	if !kind.IsShip() {
		return false
	}
	if !kind.IsFighter() {
		return true
	}
	stats, err := c.Stats(kind)
	if err != nil || !stats.IndependentMovement {
		return false
	}
	return c.rules.FleetSupply.IndependentFightersCount
}

// Validate checks every table entry and fails on the first malformed one.
func (c *Catalog) Validate() error {
	for _, kind := range galaxy.UnitKinds() {
		if !c.defined[kind] {
			return apperrors.WithMetadata(apperrors.CodeCatalogUnknownKind,
				fmt.Sprintf("no stats for unit kind %s", kind),
				map[string]string{apperrors.MetaDetail: kind.String()})
		}
		if err := validateStats(kind, c.units[kind]); err != nil {
			return err
		}
	}
	for tech, e := range c.techs {
		if e.UpgradeFrom != galaxy.KindUnspecified && (!e.UpgradeFrom.Valid() || !e.UpgradeTo.Valid()) {
			return invalid(fmt.Sprintf("technology %s upgrades an unknown kind", tech))
		}
		if e.SpaceCannonExtraDice < 0 || e.BombardExtraDice < 0 {
			return invalid(fmt.Sprintf("technology %s removes dice", tech))
		}
	}
	r := c.rules
	if r.NebulaMoveValue < 0 || r.NebulaDefenseBonus < 0 {
		return invalid("rule modifiers must not be negative")
	}
	// Path search treats each hop out of a rift as a non-negative cost.
	if r.RiftBonus < 0 || r.RiftBonus > 1 {
		return invalid("rift bonus must be 0 or 1")
	}
	if r.RiftDestroyThreshold < 0 || r.RiftDestroyThreshold > 10 {
		return invalid("rift destroy threshold must be between 0 and 10")
	}
	if r.MaxCombatRounds < 1 {
		return invalid("max combat rounds must be positive")
	}
	return nil
}

func validateStats(kind galaxy.UnitKind, s UnitStats) error {
	abilities := []struct {
		name string
		a    Ability
	}{
		{"combat", s.Combat},
		{"anti_fighter_barrage", s.AntiFighterBarrage},
		{"space_cannon", s.SpaceCannon},
		{"bombardment", s.Bombardment},
	}
	for _, ab := range abilities {
		if err := CheckAbility(kind, ab.name, ab.a); err != nil {
			return err
		}
	}
	if s.Cost < 0 || s.Batch < 0 || s.Movement < 0 || s.Capacity < 0 || s.Production < 0 || s.ProductionBonus < 0 {
		return invalid(fmt.Sprintf("%s has a negative statistic", kind))
	}
	if s.HasSpaceCannon && !s.SpaceCannon.Present() {
		return invalid(fmt.Sprintf("%s has space cannon but no space cannon dice", kind))
	}
	if s.DynamicProduction && !s.HasProduction {
		return invalid(fmt.Sprintf("%s has dynamic production without the production ability", kind))
	}
	return nil
}

// CheckAbility fails with a configuration error when an ability has a
// negative dice count or an impossible hit value.
func CheckAbility(kind galaxy.UnitKind, name string, a Ability) error {
	if a.Dice < 0 {
		return apperrors.WithMetadata(apperrors.CodeNegativeDice,
			fmt.Sprintf("%s %s has %d dice", kind, name, a.Dice),
			map[string]string{
				apperrors.MetaUnitID: kind.String(),
				apperrors.MetaDetail: name,
			})
	}
	if a.Dice > 0 && (a.Hit < 1 || a.Hit > 10) {
		return invalid(fmt.Sprintf("%s %s hit value %d is outside 1-10", kind, name, a.Hit))
	}
	return nil
}

func invalid(detail string) error {
	return apperrors.WithMetadata(apperrors.CodeCatalogInvalid, "invalid catalog: "+detail,
		map[string]string{apperrors.MetaDetail: detail})
}
