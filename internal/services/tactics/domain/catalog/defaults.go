package catalog

import "github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"

// DefaultRules are the base-game rule constants.
func DefaultRules() Rules {
	return Rules{
		RiftBonus:            1,
		RiftDestroyThreshold: 3,
		NebulaMoveValue:      1,
		NebulaDefenseBonus:   1,
		MaxCombatRounds:      20,
		FleetSupply: SupplyRule{
			IndependentFightersCount:        true,
			IndependentFightersNeedCapacity: false,
		},
	}
}

func defaultUnits() map[galaxy.UnitKind]UnitStats {
	return map[galaxy.UnitKind]UnitStats{
		galaxy.Fighter: {
			Cost:       1,
			Batch:      2,
			Producible: true,
			Combat:     Ability{Dice: 1, Hit: 9},
		},
		galaxy.FighterII: {
			Cost:                1,
			Batch:               2,
			Producible:          true,
			Movement:            2,
			IndependentMovement: true,
			Combat:              Ability{Dice: 1, Hit: 8},
		},
		galaxy.Infantry: {
			Cost:       1,
			Batch:      2,
			Producible: true,
			Combat:     Ability{Dice: 1, Hit: 8},
		},
		galaxy.InfantryII: {
			Cost:       1,
			Batch:      2,
			Producible: true,
			Combat:     Ability{Dice: 1, Hit: 7},
		},
		galaxy.Mech: {
			Cost:          2,
			Producible:    true,
			Combat:        Ability{Dice: 1, Hit: 6},
			SustainDamage: true,
		},
		galaxy.Destroyer: {
			Cost:               1,
			Producible:         true,
			Movement:           2,
			Combat:             Ability{Dice: 1, Hit: 9},
			AntiFighterBarrage: Ability{Dice: 2, Hit: 9},
		},
		galaxy.Cruiser: {
			Cost:       2,
			Producible: true,
			Movement:   2,
			Combat:     Ability{Dice: 1, Hit: 7},
		},
		galaxy.Carrier: {
			Cost:       3,
			Producible: true,
			Movement:   1,
			Capacity:   4,
			Combat:     Ability{Dice: 1, Hit: 9},
		},
		galaxy.Dreadnought: {
			Cost:          4,
			Producible:    true,
			Movement:      1,
			Capacity:      1,
			Combat:        Ability{Dice: 1, Hit: 5},
			Bombardment:   Ability{Dice: 1, Hit: 5},
			SustainDamage: true,
		},
		galaxy.WarSun: {
			Cost:          12,
			Producible:    true,
			Movement:      2,
			Capacity:      6,
			Combat:        Ability{Dice: 3, Hit: 3},
			Bombardment:   Ability{Dice: 3, Hit: 3},
			SustainDamage: true,
		},
		galaxy.Flagship: {
			Cost:             8,
			Producible:       true,
			Movement:         1,
			Capacity:         3,
			Combat:           Ability{Dice: 2, Hit: 7},
			SustainDamage:    true,
			IgnoresSupernova: true,
		},
		galaxy.PDS: {
			SpaceCannon:        Ability{Dice: 1, Hit: 6},
			HasSpaceCannon:     true,
			HasPlanetaryShield: true,
		},
		galaxy.SpaceDock: {
			Capacity:          3,
			HasProduction:     true,
			DynamicProduction: true,
			ProductionBonus:   2,
		},
	}
}

func defaultTechnologies() map[galaxy.Technology]TechnologyEffect {
	return map[galaxy.Technology]TechnologyEffect{
		galaxy.GravityDrive:       {MovementBonus: 1},
		galaxy.AntimassDeflectors: {Bypass: []galaxy.Anomaly{galaxy.AsteroidField}},
		galaxy.PlasmaScoring:      {SpaceCannonExtraDice: 1, BombardExtraDice: 1},
		galaxy.FighterIITech:      {UpgradeFrom: galaxy.Fighter, UpgradeTo: galaxy.FighterII},
		galaxy.InfantryIITech:     {UpgradeFrom: galaxy.Infantry, UpgradeTo: galaxy.InfantryII},
	}
}

// Default returns the base-game catalog.
func Default() *Catalog {
	return New(defaultUnits(), defaultTechnologies(), DefaultRules())
}
