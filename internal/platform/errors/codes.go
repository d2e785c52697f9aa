// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

// Kind classifies codes into the engine's failure taxonomy.
type Kind int

const (
	// KindUnknown is reported for errors that carry no engine code.
	KindUnknown Kind = iota
	// KindValidation marks illegal input under the current rules. The
	// caller may correct the request and try again; state is unchanged.
	KindValidation
	// KindConfiguration marks malformed catalog or stat data. It is fatal
	// for the current operation.
	KindConfiguration
	// KindInvalidState marks a broken state invariant. The engine refuses
	// to proceed.
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "unknown"
	}
}

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Lookup errors
	CodeSystemNotFound Code = "SYSTEM_NOT_FOUND"
	CodePlayerNotFound Code = "PLAYER_NOT_FOUND"
	CodePlanetNotFound Code = "PLANET_NOT_FOUND"
	CodeUnitNotFound   Code = "UNIT_NOT_FOUND"

	// Activation errors
	CodeActivationNotAllowed Code = "ACTIVATION_NOT_ALLOWED"

	// Movement errors
	CodeMovementOutOfRange          Code = "MOVEMENT_OUT_OF_RANGE"
	CodeMovementBlocked             Code = "MOVEMENT_BLOCKED_BY_ANOMALY"
	CodeMovementUnreachable         Code = "MOVEMENT_UNREACHABLE"
	CodeMovementNotActiveSystem     Code = "MOVEMENT_NOT_ACTIVE_SYSTEM"
	CodeMovementNotOwner            Code = "MOVEMENT_NOT_OWNER"
	CodeMovementWrongOrigin         Code = "MOVEMENT_WRONG_ORIGIN"
	CodeMovementOriginLocked        Code = "MOVEMENT_ORIGIN_LOCKED"
	CodeMovementDuplicateUnit       Code = "MOVEMENT_DUPLICATE_UNIT"
	CodeMovementCapacityExceeded    Code = "MOVEMENT_CAPACITY_EXCEEDED"
	CodeMovementFleetSupplyExceeded Code = "MOVEMENT_FLEET_SUPPLY_EXCEEDED"

	// Combat errors
	CodeCombatBarrageAfterFirstRound Code = "COMBAT_BARRAGE_AFTER_FIRST_ROUND"
	CodeCombatNoParticipants         Code = "COMBAT_NO_PARTICIPANTS"
	CodeRerollRepeated               Code = "REROLL_REPEATED"
	CodeRerollSealed                 Code = "REROLL_SEALED"
	CodeRerollOutOfRange             Code = "REROLL_OUT_OF_RANGE"

	// Invasion errors
	CodeInvasionInvalidCommitment Code = "INVASION_INVALID_COMMITMENT"

	// Production errors
	CodeProductionNoProducer          Code = "PRODUCTION_NO_PRODUCER"
	CodeProductionNotProducible       Code = "PRODUCTION_NOT_PRODUCIBLE"
	CodeProductionInsufficientFunds   Code = "PRODUCTION_INSUFFICIENT_RESOURCES"
	CodeProductionPlacementIllegal    Code = "PRODUCTION_PLACEMENT_ILLEGAL"
	CodeProductionLimitExceeded       Code = "PRODUCTION_LIMIT_EXCEEDED"
	CodeProductionCapacityExceeded    Code = "PRODUCTION_CAPACITY_EXCEEDED"
	CodeProductionFleetSupplyExceeded Code = "PRODUCTION_FLEET_SUPPLY_EXCEEDED"
	CodeProductionBlockaded           Code = "PRODUCTION_BLOCKADED"
	CodeProductionNotSpent            Code = "PRODUCTION_NOT_SPENT"
	CodeProductionAlreadyRolledBack   Code = "PRODUCTION_ALREADY_ROLLED_BACK"
	CodeProductionAlreadyCommitted    Code = "PRODUCTION_ALREADY_COMMITTED"
	CodeProductionInvalidQuantity     Code = "PRODUCTION_INVALID_QUANTITY"
	CodeProductionPlanetNotControlled Code = "PRODUCTION_PLANET_NOT_CONTROLLED"

	// Coordinator errors
	CodeStepOutOfOrder Code = "TACTICAL_STEP_OUT_OF_ORDER"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Configuration errors
	CodeCatalogInvalid     Code = "CATALOG_INVALID"
	CodeCatalogUnknownKind Code = "CATALOG_UNKNOWN_UNIT_KIND"
	CodeNegativeDice       Code = "CONFIG_NEGATIVE_DICE"
	CodeMissingCapability  Code = "CONFIG_MISSING_CAPABILITY"

	// Invalid state errors
	CodeStateInvariant  Code = "STATE_INVARIANT_VIOLATED"
	CodeControlDiverged Code = "STATE_CONTROL_DIVERGED"
	CodeSnapshotCorrupt Code = "SNAPSHOT_CHECKSUM_MISMATCH"
	CodeReplayDiverged  Code = "REPLAY_DIVERGED"
)

// Kind returns the taxonomy bucket for the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeCatalogInvalid,
		CodeCatalogUnknownKind,
		CodeNegativeDice,
		CodeMissingCapability:
		return KindConfiguration
	case CodeStateInvariant,
		CodeControlDiverged,
		CodeSnapshotCorrupt,
		CodeReplayDiverged:
		return KindInvalidState
	case CodeUnknown, "":
		return KindUnknown
	default:
		return KindValidation
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeSystemNotFound,
		CodePlayerNotFound,
		CodePlanetNotFound,
		CodeUnitNotFound:
		return codes.NotFound

	// FailedPrecondition - state doesn't allow operation
	case CodeActivationNotAllowed,
		CodeProductionInsufficientFunds,
		CodeProductionBlockaded,
		CodeProductionNotSpent,
		CodeProductionAlreadyRolledBack,
		CodeProductionAlreadyCommitted,
		CodeCombatBarrageAfterFirstRound,
		CodeRerollSealed,
		CodeStepOutOfOrder:
		return codes.FailedPrecondition

	// DataLoss - persisted bytes no longer match their checksum
	case CodeSnapshotCorrupt:
		return codes.DataLoss
	}

	switch c.Kind() {
	case KindValidation:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}
