package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeSystemNotFound                = "SYSTEM_NOT_FOUND"
	CodePlayerNotFound                = "PLAYER_NOT_FOUND"
	CodePlanetNotFound                = "PLANET_NOT_FOUND"
	CodeUnitNotFound                  = "UNIT_NOT_FOUND"
	CodeActivationNotAllowed          = "ACTIVATION_NOT_ALLOWED"
	CodeMovementOutOfRange            = "MOVEMENT_OUT_OF_RANGE"
	CodeMovementBlocked               = "MOVEMENT_BLOCKED_BY_ANOMALY"
	CodeMovementUnreachable           = "MOVEMENT_UNREACHABLE"
	CodeMovementNotActiveSystem       = "MOVEMENT_NOT_ACTIVE_SYSTEM"
	CodeMovementNotOwner              = "MOVEMENT_NOT_OWNER"
	CodeMovementWrongOrigin           = "MOVEMENT_WRONG_ORIGIN"
	CodeMovementOriginLocked          = "MOVEMENT_ORIGIN_LOCKED"
	CodeMovementDuplicateUnit         = "MOVEMENT_DUPLICATE_UNIT"
	CodeMovementCapacityExceeded      = "MOVEMENT_CAPACITY_EXCEEDED"
	CodeMovementFleetSupplyExceeded   = "MOVEMENT_FLEET_SUPPLY_EXCEEDED"
	CodeCombatBarrageAfterFirstRound  = "COMBAT_BARRAGE_AFTER_FIRST_ROUND"
	CodeCombatNoParticipants          = "COMBAT_NO_PARTICIPANTS"
	CodeRerollRepeated                = "REROLL_REPEATED"
	CodeRerollSealed                  = "REROLL_SEALED"
	CodeRerollOutOfRange              = "REROLL_OUT_OF_RANGE"
	CodeInvasionInvalidCommitment     = "INVASION_INVALID_COMMITMENT"
	CodeProductionNoProducer          = "PRODUCTION_NO_PRODUCER"
	CodeProductionNotProducible       = "PRODUCTION_NOT_PRODUCIBLE"
	CodeProductionInsufficientFunds   = "PRODUCTION_INSUFFICIENT_RESOURCES"
	CodeProductionPlacementIllegal    = "PRODUCTION_PLACEMENT_ILLEGAL"
	CodeProductionLimitExceeded       = "PRODUCTION_LIMIT_EXCEEDED"
	CodeProductionCapacityExceeded    = "PRODUCTION_CAPACITY_EXCEEDED"
	CodeProductionFleetSupplyExceeded = "PRODUCTION_FLEET_SUPPLY_EXCEEDED"
	CodeProductionBlockaded           = "PRODUCTION_BLOCKADED"
	CodeProductionNotSpent            = "PRODUCTION_NOT_SPENT"
	CodeProductionAlreadyRolledBack   = "PRODUCTION_ALREADY_ROLLED_BACK"
	CodeProductionAlreadyCommitted    = "PRODUCTION_ALREADY_COMMITTED"
	CodeProductionInvalidQuantity     = "PRODUCTION_INVALID_QUANTITY"
	CodeProductionPlanetNotControlled = "PRODUCTION_PLANET_NOT_CONTROLLED"
	CodeStepOutOfOrder                = "TACTICAL_STEP_OUT_OF_ORDER"
	CodeNotFound                      = "NOT_FOUND"
	CodeCatalogInvalid                = "CATALOG_INVALID"
	CodeCatalogUnknownKind            = "CATALOG_UNKNOWN_UNIT_KIND"
	CodeNegativeDice                  = "CONFIG_NEGATIVE_DICE"
	CodeMissingCapability             = "CONFIG_MISSING_CAPABILITY"
	CodeStateInvariant                = "STATE_INVARIANT_VIOLATED"
	CodeControlDiverged               = "STATE_CONTROL_DIVERGED"
	CodeSnapshotCorrupt               = "SNAPSHOT_CHECKSUM_MISMATCH"
	CodeReplayDiverged                = "REPLAY_DIVERGED"
)

var enUSCatalog = &Catalog{
	locale: BaseLocale,
	messages: map[Code]string{
		// Lookup errors
		CodeSystemNotFound: "System {{.SystemID}} does not exist",
		CodePlayerNotFound: "Player {{.PlayerID}} is not seated in this game",
		CodePlanetNotFound: "Planet {{.PlanetID}} does not exist",
		CodeUnitNotFound:   "Unit {{.UnitID}} is not on the board",

		// Activation
		CodeActivationNotAllowed: "{{.PlayerID}} cannot activate system {{.SystemID}}",

		// Movement
		CodeMovementOutOfRange:          "Unit {{.UnitID}} cannot reach {{.SystemID}}: hop {{.Hop}} exceeds its movement",
		CodeMovementBlocked:             "Unit {{.UnitID}} cannot enter {{.SystemID}} at hop {{.Hop}}: {{.Detail}} blocks movement",
		CodeMovementUnreachable:         "Unit {{.UnitID}} has no path to {{.SystemID}}",
		CodeMovementNotActiveSystem:     "Unit {{.UnitID}} must move into the active system {{.SystemID}}",
		CodeMovementNotOwner:            "Unit {{.UnitID}} does not belong to {{.PlayerID}}",
		CodeMovementWrongOrigin:         "Unit {{.UnitID}} is not in system {{.SystemID}}",
		CodeMovementOriginLocked:        "Unit {{.UnitID}} cannot leave {{.SystemID}}, which holds its owner's command token",
		CodeMovementDuplicateUnit:       "Unit {{.UnitID}} appears more than once in the movement plan",
		CodeMovementCapacityExceeded:    "Ships moving into {{.SystemID}} cannot carry every transported unit",
		CodeMovementFleetSupplyExceeded: "{{.PlayerID}} would exceed fleet supply in {{.SystemID}}",

		// Combat
		CodeCombatBarrageAfterFirstRound: "Anti-fighter barrage only fires before the first combat round",
		CodeCombatNoParticipants:         "Combat in {{.SystemID}} needs two opposing sides",
		CodeRerollRepeated:               "Ability {{.Detail}} has already rerolled this die",
		CodeRerollSealed:                 "Rerolls are closed for this volley",
		CodeRerollOutOfRange:             "No die at position {{.Detail}} in this volley",

		// Invasion
		CodeInvasionInvalidCommitment: "Unit {{.UnitID}} cannot be committed to planet {{.PlanetID}}",

		// Production
		CodeProductionNoProducer:          "No unit with production is available for {{.PlayerID}} in {{.SystemID}}",
		CodeProductionNotProducible:       "{{.Detail}} cannot be produced",
		CodeProductionInsufficientFunds:   "{{.PlayerID}} cannot afford this production",
		CodeProductionPlacementIllegal:    "{{.Detail}} cannot be placed there",
		CodeProductionLimitExceeded:       "Unit {{.UnitID}} has no production capacity left",
		CodeProductionCapacityExceeded:    "Not enough capacity in {{.SystemID}} for the new units",
		CodeProductionFleetSupplyExceeded: "{{.PlayerID}} would exceed fleet supply in {{.SystemID}}",
		CodeProductionBlockaded:           "Ships cannot be produced in {{.SystemID}} while enemy ships are present",
		CodeProductionNotSpent:            "Nothing was spent for this production request",
		CodeProductionAlreadyRolledBack:   "This production request was already rolled back",
		CodeProductionAlreadyCommitted:    "This production request was already committed",
		CodeProductionInvalidQuantity:     "Production quantity must be positive",
		CodeProductionPlanetNotControlled: "{{.PlayerID}} does not control planet {{.PlanetID}}",

		// Coordinator
		CodeStepOutOfOrder: "The {{.Detail}} step cannot run now",

		// Storage
		CodeNotFound: "Record not found",

		// Configuration
		CodeCatalogInvalid:     "Catalog data is invalid: {{.Detail}}",
		CodeCatalogUnknownKind: "Catalog has no entry for unit kind {{.Detail}}",
		CodeNegativeDice:       "Unit {{.UnitID}} has a negative dice count",
		CodeMissingCapability:  "Unit {{.UnitID}} lacks the {{.Detail}} ability",

		// Invalid state
		CodeStateInvariant:  "Game state is inconsistent: {{.Detail}}",
		CodeControlDiverged: "Planet {{.PlanetID}} control disagrees with the control table",
		CodeSnapshotCorrupt: "Stored snapshot failed its integrity check",
		CodeReplayDiverged:  "Replay diverged from the recorded outcome",
	},
}
