package movement

import (
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// Move asks for one unit to travel from its origin system to a destination.
// Ground forces and fighters without their own movement travel aboard a ship
// declared in the same plan from the same origin.
type Move struct {
	Unit galaxy.UnitID   `json:"unit" yaml:"unit"`
	From galaxy.SystemID `json:"from" yaml:"from"`
	To   galaxy.SystemID `json:"to" yaml:"to"`
}

// Plan is the movement request of one tactical action. Moves are validated
// and resolved in declaration order.
type Plan struct {
	Player       galaxy.PlayerID `json:"player" yaml:"player"`
	ActiveSystem galaxy.SystemID `json:"active_system" yaml:"active_system"`
	Moves        []Move          `json:"moves" yaml:"moves"`
}

// Path describes the route taken by one unit.
type Path struct {
	Unit              galaxy.UnitID     `json:"unit"`
	Systems           []galaxy.SystemID `json:"systems"`
	Hops              int               `json:"hops"`
	RiftsExited       int               `json:"rifts_exited"`
	EffectiveMovement int               `json:"effective_movement"`
	Carrier           galaxy.UnitID     `json:"carrier,omitempty"`
}

// RiftRoll is one gravity rift destruction check.
type RiftRoll struct {
	Unit      galaxy.UnitID   `json:"unit"`
	System    galaxy.SystemID `json:"system"`
	Face      int             `json:"face"`
	Destroyed bool            `json:"destroyed"`
}

// Result is the proposed outcome of a plan. The delta is not applied.
type Result struct {
	Delta     galaxy.Delta    `json:"delta"`
	Paths     []Path          `json:"paths"`
	RiftRolls []RiftRoll      `json:"rift_rolls,omitempty"`
	Destroyed []galaxy.UnitID `json:"destroyed,omitempty"`
}

// Violation rejects a whole plan. HopIndex is the 1-based hop that broke a
// rule, or 0 when the unit failed before moving.
type Violation struct {
	UnitID   galaxy.UnitID
	HopIndex int
	Reason   string

	err *apperrors.Error
}

func (v *Violation) Error() string {
	if v.HopIndex > 0 {
		return fmt.Sprintf("unit %s hop %d: %s", v.UnitID, v.HopIndex, v.Reason)
	}
	return fmt.Sprintf("unit %s: %s", v.UnitID, v.Reason)
}

// Unwrap exposes the coded error so apperrors.CodeOf and errors.Is work.
func (v *Violation) Unwrap() error {
	return v.err
}

// Code returns the violation's error code.
func (v *Violation) Code() apperrors.Code {
	return v.err.Code
}

func violation(code apperrors.Code, unit galaxy.UnitID, hop int, system galaxy.SystemID, reason string) *Violation {
	meta := map[string]string{
		apperrors.MetaUnitID:   string(unit),
		apperrors.MetaHop:      strconv.Itoa(hop),
		apperrors.MetaSystemID: string(system),
		apperrors.MetaDetail:   reason,
	}
	return &Violation{
		UnitID:   unit,
		HopIndex: hop,
		Reason:   reason,
		err:      apperrors.WithMetadata(code, reason, meta),
	}
}
