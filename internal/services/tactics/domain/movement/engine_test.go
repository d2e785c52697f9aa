package movement

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/louisbranch/hexfleet/internal/core/dice"
	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/compliance"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// chain builds systems s0..sN linked in a line, s0 first.
func chain(n int, anomalies map[int]galaxy.Anomaly) []galaxy.System {
	systems := make([]galaxy.System, n+1)
	for i := range systems {
		systems[i] = galaxy.System{ID: sysID(i), Position: galaxy.Hex{Q: i}}
		if i > 0 {
			systems[i].Adjacent = []galaxy.SystemID{sysID(i - 1)}
		}
		if a, ok := anomalies[i]; ok {
			systems[i].Anomalies = []galaxy.Anomaly{a}
		}
	}
	return systems
}

func sysID(i int) galaxy.SystemID {
	return galaxy.SystemID(fmt.Sprintf("s%d", i))
}

func newState(t *testing.T, systems []galaxy.System, techs ...galaxy.Technology) galaxy.GameState {
	t.Helper()
	s, err := galaxy.NewGameState(galaxy.Setup{
		Phase:   galaxy.PhaseAction,
		Systems: systems,
		Players: []galaxy.Player{
			{ID: "red", Tokens: galaxy.CommandTokens{Tactic: 3, Fleet: 5}, Technologies: techs},
			{ID: "blue", Tokens: galaxy.CommandTokens{Tactic: 3, Fleet: 5}},
		},
	})
	if err != nil {
		t.Fatalf("new game state: %v", err)
	}
	return s
}

func newEngine(t *testing.T, overlay string) *Engine {
	t.Helper()
	c := catalog.Default()
	if overlay != "" {
		var err error
		c, err = catalog.Load(strings.NewReader(overlay))
		if err != nil {
			t.Fatalf("load catalog: %v", err)
		}
	}
	return NewEngine(compliance.New(c))
}

func asViolation(t *testing.T, err error) *Violation {
	t.Helper()
	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("error = %v, want *Violation", err)
	}
	if !apperrors.IsValidation(err) {
		t.Fatalf("kind = %v, want validation", apperrors.KindOf(err))
	}
	return v
}

func TestRiftBonusStacksPerRift(t *testing.T) {
	// A cruiser has movement 2; every rift left on the way adds one.
	for n := 0; n <= 3; n++ {
		t.Run(fmt.Sprintf("%d rifts", n), func(t *testing.T) {
			hops := 2 + n
			rifts := make(map[int]galaxy.Anomaly)
			for i := 1; i <= n; i++ {
				rifts[i] = galaxy.GravityRift
			}
			systems := chain(hops+1, rifts)
			systems[0].SpaceUnits = []galaxy.Unit{{ID: "cru", Kind: galaxy.Cruiser, Owner: "red"}}
			state := newState(t, systems)
			e := newEngine(t, "")

			reach := Plan{Player: "red", ActiveSystem: sysID(hops), Moves: []Move{{Unit: "cru", From: "s0", To: sysID(hops)}}}
			res, err := e.Execute(state, reach, dice.NewRollerFromSource(dice.NewSequence(9)))
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			path := res.Paths[0]
			if path.EffectiveMovement != 2+n || path.RiftsExited != n || path.Hops != hops {
				t.Fatalf("path = %+v, want effective %d", path, 2+n)
			}
			if len(res.RiftRolls) != n {
				t.Fatalf("rift rolls = %d, want %d", len(res.RiftRolls), n)
			}

			beyond := Plan{Player: "red", ActiveSystem: sysID(hops + 1), Moves: []Move{{Unit: "cru", From: "s0", To: sysID(hops + 1)}}}
			_, err = e.Execute(state, beyond, dice.NewRollerFromSource(dice.NewSequence(9)))
			v := asViolation(t, err)
			if v.Code() != apperrors.CodeMovementOutOfRange || v.HopIndex != hops+1 {
				t.Fatalf("violation = %+v code %s", v, v.Code())
			}
		})
	}
}

func TestRiftRollZeroReadsAsTen(t *testing.T) {
	systems := chain(2, map[int]galaxy.Anomaly{0: galaxy.GravityRift})
	systems[0].SpaceUnits = []galaxy.Unit{{ID: "cru", Kind: galaxy.Cruiser, Owner: "red"}}
	state := newState(t, systems)
	e := newEngine(t, "")
	plan := Plan{Player: "red", ActiveSystem: "s2", Moves: []Move{{Unit: "cru", From: "s0", To: "s2"}}}

	res, err := e.Execute(state, plan, dice.NewRollerFromSource(dice.NewSequence(0)))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(res.RiftRolls) != 1 || res.RiftRolls[0].Face != 10 || res.RiftRolls[0].Destroyed {
		t.Fatalf("rift rolls = %+v, want a surviving 10", res.RiftRolls)
	}
	if len(res.Destroyed) != 0 {
		t.Fatalf("destroyed = %v", res.Destroyed)
	}
}

func TestRiftDestroysShipAndCargo(t *testing.T) {
	systems := chain(2, map[int]galaxy.Anomaly{1: galaxy.GravityRift})
	systems[0].SpaceUnits = []galaxy.Unit{
		{ID: "car", Kind: galaxy.Carrier, Owner: "red"},
		{ID: "cru", Kind: galaxy.Cruiser, Owner: "red"},
	}
	systems[0].Planets = []galaxy.Planet{{ID: "p0", Units: []galaxy.Unit{{ID: "inf", Kind: galaxy.Infantry, Owner: "red"}}}}
	state := newState(t, systems, galaxy.GravityDrive)
	e := newEngine(t, "")
	plan := Plan{Player: "red", ActiveSystem: "s2", Moves: []Move{
		{Unit: "car", From: "s0", To: "s2"},
		{Unit: "inf", From: "s0", To: "s2"},
		{Unit: "cru", From: "s0", To: "s2"},
	}}
	res, err := e.Execute(state, plan, dice.NewRollerFromSource(dice.NewSequence(3, 4)))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(res.Destroyed) != 2 || res.Destroyed[0] != "car" || res.Destroyed[1] != "inf" {
		t.Fatalf("destroyed = %v, want [car inf]", res.Destroyed)
	}
	next, err := state.Apply(res.Delta)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, at, ok := next.Locate("cru"); !ok || at != galaxy.Space("s2") {
		t.Fatalf("cru at %v, %v", at, ok)
	}
	if _, _, ok := next.Locate("inf"); ok {
		t.Fatal("expected cargo destroyed with its carrier")
	}
	if res.Paths[2].Carrier != "car" {
		t.Fatalf("paths = %+v", res.Paths)
	}
}

func TestCarrierFleetThroughTwoRifts(t *testing.T) {
	overlay := `
units:
  carrier:
    cost: 3
    producible: true
    movement: 2
    capacity: 4
    combat: {dice: 1, hit: 9}
`
	build := func(hops int) (galaxy.GameState, Plan) {
		systems := chain(hops, map[int]galaxy.Anomaly{1: galaxy.GravityRift, 2: galaxy.GravityRift})
		var moves []Move
		for i := 1; i <= 3; i++ {
			id := galaxy.UnitID(fmt.Sprintf("car%d", i))
			systems[0].SpaceUnits = append(systems[0].SpaceUnits, galaxy.Unit{ID: id, Kind: galaxy.Carrier, Owner: "red"})
			moves = append(moves, Move{Unit: id, From: "s0", To: sysID(hops)})
		}
		for i := 1; i <= 10; i++ {
			id := galaxy.UnitID(fmt.Sprintf("ftr%d", i))
			systems[0].SpaceUnits = append(systems[0].SpaceUnits, galaxy.Unit{ID: id, Kind: galaxy.Fighter, Owner: "red"})
			moves = append(moves, Move{Unit: id, From: "s0", To: sysID(hops)})
		}
		return newState(t, systems), Plan{Player: "red", ActiveSystem: sysID(hops), Moves: moves}
	}
	e := newEngine(t, overlay)

	state, plan := build(4)
	roller := dice.NewRollerFromSource(dice.NewSequence(9))
	res, err := e.Execute(state, plan, roller)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, p := range res.Paths {
		if p.EffectiveMovement != 4 {
			t.Fatalf("effective movement of %s = %d, want 4", p.Unit, p.EffectiveMovement)
		}
	}
	if roller.Rolled() != 6 {
		t.Fatalf("rolled = %d, want one die per carrier per rift", roller.Rolled())
	}
	next, err := state.Apply(res.Delta)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	dest, _ := next.System("s4")
	if len(dest.SpaceUnits) != 13 {
		t.Fatalf("units at destination = %d, want 13", len(dest.SpaceUnits))
	}

	far, farPlan := build(5)
	roller = dice.NewRollerFromSource(dice.NewSequence(9))
	_, err = e.Execute(far, farPlan, roller)
	v := asViolation(t, err)
	if v.Code() != apperrors.CodeMovementOutOfRange || v.UnitID != "car1" || v.HopIndex != 5 {
		t.Fatalf("violation = %+v code %s", v, v.Code())
	}
	if roller.Rolled() != 0 {
		t.Fatal("expected no dice rolled for a rejected plan")
	}
}

func TestPlanIsAllOrNothing(t *testing.T) {
	systems := chain(2, map[int]galaxy.Anomaly{1: galaxy.AsteroidField})
	systems = append(systems, galaxy.System{ID: "side", Adjacent: []galaxy.SystemID{"s2"}})
	systems[0].SpaceUnits = []galaxy.Unit{{ID: "cru", Kind: galaxy.Cruiser, Owner: "red"}}
	systems[3].SpaceUnits = []galaxy.Unit{{ID: "dd", Kind: galaxy.Destroyer, Owner: "red"}}
	state := newState(t, systems)
	before, err := galaxy.Encode(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	e := newEngine(t, "")
	plan := Plan{Player: "red", ActiveSystem: "s2", Moves: []Move{
		{Unit: "dd", From: "side", To: "s2"},
		{Unit: "cru", From: "s0", To: "s2"},
	}}
	roller := dice.NewRollerFromSource(dice.NewSequence(9))
	res, err := e.Execute(state, plan, roller)
	v := asViolation(t, err)
	if v.Code() != apperrors.CodeMovementBlocked || v.UnitID != "cru" || v.HopIndex != 1 {
		t.Fatalf("violation = %+v code %s", v, v.Code())
	}
	if !res.Delta.IsEmpty() || roller.Rolled() != 0 {
		t.Fatal("expected no delta and no dice for a rejected plan")
	}
	after, _ := galaxy.Encode(state)
	if string(before) != string(after) {
		t.Fatal("expected state untouched")
	}

	// Antimass deflectors open the asteroid field.
	deflected := newState(t, systems, galaxy.AntimassDeflectors)
	if _, err := e.Execute(deflected, plan, roller); err != nil {
		t.Fatalf("execute with deflectors: %v", err)
	}
}

func TestSupernovaBlocksWithoutBypass(t *testing.T) {
	systems := chain(2, map[int]galaxy.Anomaly{1: galaxy.Supernova})
	systems[0].SpaceUnits = []galaxy.Unit{{ID: "cru", Kind: galaxy.Cruiser, Owner: "red"}}
	state := newState(t, systems, galaxy.AntimassDeflectors)
	e := newEngine(t, "")
	plan := Plan{Player: "red", ActiveSystem: "s2", Moves: []Move{{Unit: "cru", From: "s0", To: "s2"}}}
	_, err := e.Execute(state, plan, dice.NewRoller(1))
	v := asViolation(t, err)
	if v.Code() != apperrors.CodeMovementBlocked || v.Reason != "supernova" {
		t.Fatalf("violation = %+v", v)
	}
}

func TestNebulaOverridesMovement(t *testing.T) {
	systems := chain(2, map[int]galaxy.Anomaly{2: galaxy.Nebula, 0: galaxy.GravityRift})
	systems[0].SpaceUnits = []galaxy.Unit{{ID: "cru", Kind: galaxy.Cruiser, Owner: "red"}}
	systems[1].SpaceUnits = []galaxy.Unit{{ID: "dd", Kind: galaxy.Destroyer, Owner: "red"}}
	state := newState(t, systems, galaxy.GravityDrive)
	e := newEngine(t, "")

	// Two hops would fit movement 2 plus gravity drive and the rift, but the
	// nebula fixes movement at 1.
	far := Plan{Player: "red", ActiveSystem: "s2", Moves: []Move{{Unit: "cru", From: "s0", To: "s2"}}}
	_, err := e.Execute(state, far, dice.NewRollerFromSource(dice.NewSequence(9)))
	v := asViolation(t, err)
	if v.Code() != apperrors.CodeMovementOutOfRange || v.HopIndex != 2 {
		t.Fatalf("violation = %+v code %s", v, v.Code())
	}

	near := Plan{Player: "red", ActiveSystem: "s2", Moves: []Move{{Unit: "dd", From: "s1", To: "s2"}}}
	res, err := e.Execute(state, near, dice.NewRoller(1))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Paths[0].EffectiveMovement != 1 {
		t.Fatalf("effective movement = %d, want 1", res.Paths[0].EffectiveMovement)
	}
}

func TestNebulaCannotBePassedThrough(t *testing.T) {
	systems := chain(2, map[int]galaxy.Anomaly{1: galaxy.Nebula})
	systems[0].SpaceUnits = []galaxy.Unit{{ID: "cru", Kind: galaxy.Cruiser, Owner: "red"}}
	state := newState(t, systems)
	e := newEngine(t, "")
	plan := Plan{Player: "red", ActiveSystem: "s2", Moves: []Move{{Unit: "cru", From: "s0", To: "s2"}}}
	_, err := e.Execute(state, plan, dice.NewRoller(1))
	v := asViolation(t, err)
	if v.Code() != apperrors.CodeMovementBlocked || v.HopIndex != 1 || v.Reason != "nebula" {
		t.Fatalf("violation = %+v code %s", v, v.Code())
	}
}

func TestWormholeShortcut(t *testing.T) {
	systems := chain(6, nil)
	systems[0].Wormholes = []galaxy.Wormhole{galaxy.WormholeBeta}
	systems[6].Wormholes = []galaxy.Wormhole{galaxy.WormholeBeta}
	systems[0].SpaceUnits = []galaxy.Unit{{ID: "car", Kind: galaxy.Carrier, Owner: "red"}}
	state := newState(t, systems)
	e := newEngine(t, "")
	plan := Plan{Player: "red", ActiveSystem: "s6", Moves: []Move{{Unit: "car", From: "s0", To: "s6"}}}
	res, err := e.Execute(state, plan, dice.NewRoller(1))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Paths[0].Hops != 1 {
		t.Fatalf("hops = %d, want 1 through the wormhole", res.Paths[0].Hops)
	}
}

func TestRejectsIllegalMoves(t *testing.T) {
	base := func() []galaxy.System {
		systems := chain(2, nil)
		systems[0].SpaceUnits = []galaxy.Unit{
			{ID: "cru", Kind: galaxy.Cruiser, Owner: "red"},
			{ID: "inf", Kind: galaxy.Infantry, Owner: "red"},
		}
		systems[1].SpaceUnits = []galaxy.Unit{{ID: "blue-dd", Kind: galaxy.Destroyer, Owner: "blue"}}
		systems[0].Planets = []galaxy.Planet{{ID: "p0", Units: []galaxy.Unit{{ID: "pds", Kind: galaxy.PDS, Owner: "red"}}}}
		return systems
	}
	tests := []struct {
		name  string
		moves []Move
		token bool
		want  apperrors.Code
	}{
		{"not owner", []Move{{Unit: "blue-dd", From: "s1", To: "s2"}}, false, apperrors.CodeMovementNotOwner},
		{"wrong origin", []Move{{Unit: "cru", From: "s1", To: "s2"}}, false, apperrors.CodeMovementWrongOrigin},
		{"not active", []Move{{Unit: "cru", From: "s0", To: "s1"}}, false, apperrors.CodeMovementNotActiveSystem},
		{"duplicate", []Move{{Unit: "cru", From: "s0", To: "s2"}, {Unit: "cru", From: "s0", To: "s2"}}, false, apperrors.CodeMovementDuplicateUnit},
		{"unknown unit", []Move{{Unit: "ghost", From: "s0", To: "s2"}}, false, apperrors.CodeUnitNotFound},
		{"no carrier", []Move{{Unit: "inf", From: "s0", To: "s2"}}, false, apperrors.CodeMovementCapacityExceeded},
		{"structure", []Move{{Unit: "pds", From: "s0", To: "s2"}}, false, apperrors.CodeMovementWrongOrigin},
		{"locked origin", []Move{{Unit: "cru", From: "s0", To: "s2"}}, true, apperrors.CodeMovementOriginLocked},
	}
	e := newEngine(t, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newState(t, base())
			if tt.token {
				var err error
				state, err = state.Apply(galaxy.Delta{Activation: &galaxy.Activation{Player: "red", System: "s0"}})
				if err != nil {
					t.Fatalf("apply: %v", err)
				}
				state, err = state.Apply(galaxy.Delta{ClearActive: true})
				if err != nil {
					t.Fatalf("apply: %v", err)
				}
			}
			_, err := e.Execute(state, Plan{Player: "red", ActiveSystem: "s2", Moves: tt.moves}, dice.NewRoller(1))
			if got := apperrors.CodeOf(err); got != tt.want {
				t.Fatalf("code = %s, want %s (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestFleetSupplyCheckedAtDestination(t *testing.T) {
	systems := chain(1, nil)
	systems[0].SpaceUnits = []galaxy.Unit{
		{ID: "a", Kind: galaxy.Cruiser, Owner: "red"},
		{ID: "b", Kind: galaxy.Cruiser, Owner: "red"},
	}
	systems[1].SpaceUnits = []galaxy.Unit{{ID: "c", Kind: galaxy.Cruiser, Owner: "red"}}
	setup := galaxy.Setup{
		Systems: systems,
		Players: []galaxy.Player{{ID: "red", Tokens: galaxy.CommandTokens{Tactic: 1, Fleet: 2}}},
	}
	state, err := galaxy.NewGameState(setup)
	if err != nil {
		t.Fatalf("new game state: %v", err)
	}
	e := newEngine(t, "")
	plan := Plan{Player: "red", ActiveSystem: "s1", Moves: []Move{
		{Unit: "a", From: "s0", To: "s1"},
		{Unit: "b", From: "s0", To: "s1"},
	}}
	_, err = e.Execute(state, plan, dice.NewRoller(1))
	if got := apperrors.CodeOf(err); got != apperrors.CodeMovementFleetSupplyExceeded {
		t.Fatalf("code = %s, want %s", got, apperrors.CodeMovementFleetSupplyExceeded)
	}
}
