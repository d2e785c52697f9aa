package tactical

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/louisbranch/hexfleet/internal/core/dice"
	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/combat"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/movement"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/production"
)

// fixture: red's fleet waits in home next to front, where blue holds a
// cruiser in space and infantry on arc.
func fixture(t *testing.T, mutate func(*galaxy.Setup)) galaxy.GameState {
	t.Helper()
	setup := galaxy.Setup{
		Round: 1,
		Phase: galaxy.PhaseAction,
		Systems: []galaxy.System{
			{
				ID: "home",
				Planets: []galaxy.Planet{{ID: "jord", Resources: 4, Units: []galaxy.Unit{
					{ID: "dock", Kind: galaxy.SpaceDock, Owner: "red"},
				}}},
				SpaceUnits: []galaxy.Unit{
					{ID: "r-dn", Kind: galaxy.Dreadnought, Owner: "red"},
					{ID: "r-cv", Kind: galaxy.Carrier, Owner: "red"},
					{ID: "r-i1", Kind: galaxy.Infantry, Owner: "red"},
					{ID: "r-i2", Kind: galaxy.Infantry, Owner: "red"},
				},
				Adjacent: []galaxy.SystemID{"front"},
			},
			{
				ID: "front",
				Planets: []galaxy.Planet{{ID: "arc", Resources: 2, Units: []galaxy.Unit{
					{ID: "b-inf", Kind: galaxy.Infantry, Owner: "blue"},
				}}},
				SpaceUnits: []galaxy.Unit{
					{ID: "b-cru", Kind: galaxy.Cruiser, Owner: "blue"},
				},
			},
		},
		Players: []galaxy.Player{
			{ID: "red", TradeGoods: 1, Tokens: galaxy.CommandTokens{Tactic: 3, Fleet: 3}},
			{ID: "blue", Tokens: galaxy.CommandTokens{Tactic: 3, Fleet: 3}},
		},
		Control: map[galaxy.PlanetID]galaxy.PlayerID{"jord": "red", "arc": "blue"},
	}
	if mutate != nil {
		mutate(&setup)
	}
	s, err := galaxy.NewGameState(setup)
	if err != nil {
		t.Fatalf("new game state: %v", err)
	}
	return s
}

func scripted(faces ...int) *dice.Roller {
	return dice.NewRollerFromSource(dice.NewSequence(faces...))
}

func encode(t *testing.T, s galaxy.GameState) []byte {
	t.Helper()
	data, err := galaxy.Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func fleetMoves(ids ...galaxy.UnitID) []movement.Move {
	moves := make([]movement.Move, 0, len(ids))
	for _, id := range ids {
		moves = append(moves, movement.Move{Unit: id, From: "home", To: "front"})
	}
	return moves
}

func statuses(r Report) string {
	parts := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		parts = append(parts, string(s.Step)+"="+string(s.Status))
	}
	return strings.Join(parts, " ")
}

func TestActivationFailureStopsEverything(t *testing.T) {
	s := fixture(t, func(s *galaxy.Setup) { s.Players[0].Tokens.Tactic = 0 })
	before := encode(t, s)
	c := New(catalog.Default())

	report, final, err := c.Execute(context.Background(), s, Action{
		Player: "red",
		System: "front",
		Moves:  fleetMoves("r-dn"),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := statuses(report); got != "activation=failed" {
		t.Fatalf("steps = %s, want activation=failed only", got)
	}
	if report.Steps[0].Code != apperrors.CodeActivationNotAllowed {
		t.Fatalf("code = %s, want %s", report.Steps[0].Code, apperrors.CodeActivationNotAllowed)
	}
	if !bytes.Equal(encode(t, final), before) {
		t.Fatal("expected state to be unchanged")
	}
}

func TestActivationRestriction(t *testing.T) {
	s := fixture(t, nil)
	c := New(catalog.Default(), WithActivationRestriction(func(_ galaxy.GameState, _ galaxy.PlayerID, system galaxy.SystemID) bool {
		return system == "front"
	}))
	turn, r := c.Begin(s, "red", "front", scripted(1))
	if turn != nil || r.Status != StatusFailed {
		t.Fatalf("begin = %v, want failure", r)
	}
}

func TestFullTacticalAction(t *testing.T) {
	s := fixture(t, nil)
	var logs bytes.Buffer
	c := New(catalog.Default(), WithLogger(log.New(&logs, "", 0)))

	// Space: r-dn 5 hits, r-cv 1, b-cru 1. Bombard: r-dn 1.
	// Ground: r-i1 8 hits, r-i2 1, b-inf 1.
	turn, r := c.Begin(s, "red", "front", scripted(5, 1, 1, 1, 8, 1, 1))
	if turn == nil {
		t.Fatalf("begin: %v", r)
	}
	if r := turn.Move(fleetMoves("r-dn", "r-cv", "r-i1", "r-i2")); r.Status != StatusSucceeded {
		t.Fatalf("move: %v", r)
	}
	if r := turn.SpaceCombat(CombatChoices{}); r.Status != StatusSucceeded || r.Reason != "" {
		t.Fatalf("space combat: %v", r)
	}
	commit := []combat.Commitment{{Unit: "r-i1", Planet: "arc"}, {Unit: "r-i2", Planet: "arc"}}
	if r := turn.Invade(commit, CombatChoices{}); r.Status != StatusSucceeded {
		t.Fatalf("invade: %v", r)
	}
	if r := turn.Produce(nil); r.Status != StatusSkipped {
		t.Fatalf("produce: %v, want skipped", r)
	}
	report, final := turn.Complete()

	want := "activation=succeeded movement=succeeded space_combat=succeeded invasion=succeeded production=skipped completed=succeeded"
	if got := statuses(report); got != want {
		t.Fatalf("steps = %s, want %s", got, want)
	}
	if _, _, ok := final.Locate("b-cru"); ok {
		t.Fatal("expected b-cru to be destroyed")
	}
	if _, _, ok := final.Locate("b-inf"); ok {
		t.Fatal("expected b-inf to be destroyed")
	}
	if c, _ := final.Controller("arc"); c != "red" {
		t.Fatalf("arc controller = %q, want red", c)
	}
	if final.ActiveSystem() != "" {
		t.Fatalf("active system = %q, want cleared", final.ActiveSystem())
	}
	if !final.HasToken("front", "red") {
		t.Fatal("expected red's token in front")
	}
	if p, _ := final.Player("red"); p.Tokens.Tactic != 2 {
		t.Fatalf("tactic tokens = %d, want 2", p.Tokens.Tactic)
	}
	if !strings.Contains(logs.String(), "space_combat: succeeded") {
		t.Fatalf("logs = %q, want step outcomes", logs.String())
	}
}

func TestInvasionSkippedWhenSuperiorityLost(t *testing.T) {
	s := fixture(t, nil)
	c := New(catalog.Default())

	// r-cv misses, b-cru hits and destroys it.
	turn, _ := c.Begin(s, "red", "front", scripted(1, 7))
	if r := turn.Move(fleetMoves("r-cv", "r-i1")); r.Status != StatusSucceeded {
		t.Fatalf("move: %v", r)
	}
	r := turn.SpaceCombat(CombatChoices{})
	if r.Status != StatusSucceeded || r.Reason == "" {
		t.Fatalf("space combat: %v, want success without superiority", r)
	}
	r = turn.Invade([]combat.Commitment{{Unit: "r-i1", Planet: "arc"}}, CombatChoices{})
	if r.Status != StatusSkipped {
		t.Fatalf("invade: %v, want skipped", r)
	}
	_, final := turn.Complete()
	if c, _ := final.Controller("arc"); c != "blue" {
		t.Fatalf("arc controller = %q, want blue", c)
	}
}

func TestSpaceCombatSkippedWithoutOpposingShips(t *testing.T) {
	s := fixture(t, func(s *galaxy.Setup) { s.Systems[1].SpaceUnits = nil })
	c := New(catalog.Default())
	turn, _ := c.Begin(s, "red", "front", scripted(1))
	turn.Move(fleetMoves("r-dn"))
	if r := turn.SpaceCombat(CombatChoices{}); r.Status != StatusSkipped {
		t.Fatalf("space combat: %v, want skipped", r)
	}
}

func TestMovementFailureEndsAction(t *testing.T) {
	s := fixture(t, nil)
	c := New(catalog.Default())
	report, final, err := c.Execute(context.Background(), s, Action{
		Player: "red",
		System: "front",
		Moves:  []movement.Move{{Unit: "b-cru", From: "front", To: "front"}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	mv, _ := report.Step(StepMovement)
	if mv.Status != StatusFailed {
		t.Fatalf("movement = %v, want failed", mv)
	}
	if sc, _ := report.Step(StepSpaceCombat); sc.Status != StatusSkipped {
		t.Fatalf("space combat = %v, want skipped after failed movement", sc)
	}
	if !final.HasToken("front", "red") {
		t.Fatal("expected activation to stand after a failed movement")
	}
}

func TestProductionFailureIsStepLocal(t *testing.T) {
	s := fixture(t, nil)
	c := New(catalog.Default())
	turn, _ := c.Begin(s, "red", "home", scripted(1))
	turn.Move(nil)
	turn.SpaceCombat(CombatChoices{})
	turn.Invade(nil, CombatChoices{})
	r := turn.Produce([]production.Request{
		{Producer: "dock", Orders: []production.Order{{Kind: galaxy.PDS, Quantity: 1}}},
		{Producer: "dock", Orders: []production.Order{{Kind: galaxy.Cruiser, Quantity: 1}}},
	})
	if r.Status != StatusSucceeded || r.Reason == "" {
		t.Fatalf("produce: %v, want partial success", r)
	}
	report, final := turn.Complete()
	if len(report.Production) != 2 {
		t.Fatalf("production results = %d, want 2", len(report.Production))
	}
	if p := report.Production[0]; p.Status != StatusFailed || p.Code != apperrors.CodeProductionNotProducible {
		t.Fatalf("first request = %+v, want not producible", p)
	}
	second := report.Production[1]
	if second.Status != StatusSucceeded || len(second.Units) != 1 {
		t.Fatalf("second request = %+v, want one cruiser", second)
	}
	if u, loc, ok := final.Locate(second.Units[0].ID); !ok || u.Kind != galaxy.Cruiser || loc.System != "home" {
		t.Fatalf("new cruiser at %+v (found %v)", loc, ok)
	}
}

func TestProductionSkippedWithoutProducer(t *testing.T) {
	s := fixture(t, nil)
	c := New(catalog.Default())
	turn, _ := c.Begin(s, "red", "front", scripted(1))
	turn.Move(nil)
	turn.SpaceCombat(CombatChoices{})
	turn.Invade(nil, CombatChoices{})
	r := turn.Produce([]production.Request{{Producer: "dock", Orders: []production.Order{{Kind: galaxy.Cruiser, Quantity: 1}}}})
	if r.Status != StatusSkipped {
		t.Fatalf("produce: %v, want skipped", r)
	}
}

func TestStepsMustRunInOrder(t *testing.T) {
	s := fixture(t, nil)
	c := New(catalog.Default())
	turn, _ := c.Begin(s, "red", "front", scripted(1))
	turn.SpaceCombat(CombatChoices{})
	r := turn.Move(fleetMoves("r-dn"))
	if r.Code != apperrors.CodeStepOutOfOrder {
		t.Fatalf("move after combat = %v, want %s", r, apperrors.CodeStepOutOfOrder)
	}
}

func TestConfigurationErrorReturnsPreActionState(t *testing.T) {
	units := map[galaxy.UnitKind]catalog.UnitStats{
		galaxy.Dreadnought: {Cost: 4, Movement: 1, Capacity: 1, Combat: catalog.Ability{Dice: 1, Hit: 5}},
		galaxy.Carrier:     {Cost: 3, Movement: 1, Capacity: 4, Combat: catalog.Ability{Dice: 1, Hit: 9}},
		galaxy.Infantry:    {Cost: 1, Batch: 2, Combat: catalog.Ability{Dice: 1, Hit: 8}},
		galaxy.Cruiser:     {Cost: 2, Movement: 2, Combat: catalog.Ability{Dice: -1, Hit: 7}},
		galaxy.SpaceDock:   {Capacity: 3, HasProduction: true, DynamicProduction: true, ProductionBonus: 2},
	}
	c := New(catalog.New(units, nil, catalog.DefaultRules()))
	s := fixture(t, nil)
	before := encode(t, s)

	report, final, err := c.Execute(context.Background(), s, Action{
		Player: "red",
		System: "front",
		Seed:   7,
		Moves:  fleetMoves("r-dn"),
	})
	if !apperrors.IsConfiguration(err) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if apperrors.CodeOf(err) != apperrors.CodeNegativeDice {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeNegativeDice)
	}
	if !report.Aborted {
		t.Fatal("expected report to be marked aborted")
	}
	if !bytes.Equal(encode(t, final), before) {
		t.Fatal("expected the pre-action state")
	}
}

func TestExecuteIsDeterministicForSeed(t *testing.T) {
	action := Action{
		Player:      "red",
		System:      "front",
		Seed:        42,
		Moves:       fleetMoves("r-dn", "r-cv", "r-i1", "r-i2"),
		Commitments: []combat.Commitment{{Unit: "r-i1", Planet: "arc"}, {Unit: "r-i2", Planet: "arc"}},
	}
	c := New(catalog.Default())
	run := func() ([]byte, []byte) {
		report, final, err := c.Execute(context.Background(), fixture(t, nil), action)
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		data, err := json.Marshal(report)
		if err != nil {
			t.Fatalf("marshal report: %v", err)
		}
		return data, encode(t, final)
	}
	r1, s1 := run()
	r2, s2 := run()
	if !bytes.Equal(r1, r2) || !bytes.Equal(s1, s2) {
		t.Fatal("expected identical reports and states for one seed")
	}
}

func TestCancellationStopsBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(catalog.Default())
	report, final, err := c.Execute(ctx, fixture(t, nil), Action{Player: "red", System: "front"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := statuses(report); got != "activation=succeeded" {
		t.Fatalf("steps = %s, want activation only", got)
	}
	if final.ActiveSystem() != "front" {
		t.Fatalf("active system = %q, want front", final.ActiveSystem())
	}
}

func TestResolveCombatRound(t *testing.T) {
	s := fixture(t, func(s *galaxy.Setup) {
		s.Systems[1].SpaceUnits = append(s.Systems[1].SpaceUnits,
			galaxy.Unit{ID: "r-dd", Kind: galaxy.Destroyer, Owner: "red"})
	})
	c := New(catalog.Default())
	ctx, err := combat.NewSpaceContext(s, "front", "red", 1, catalog.Default())
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	out, next, err := c.ResolveCombatRound(s, ctx, 3, CombatChoices{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, id := range out.Delta.Removals {
		if _, _, ok := next.Locate(id); ok {
			t.Fatalf("unit %s still on the board", id)
		}
	}
	again, _, err := c.ResolveCombatRound(s, ctx, 3, CombatChoices{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.Hits("red") != again.Hits("red") || out.Hits("blue") != again.Hits("blue") {
		t.Fatal("expected the same seed to give the same hits")
	}
}

func TestBombardmentWithoutGroundForces(t *testing.T) {
	s := fixture(t, func(s *galaxy.Setup) { s.Systems[1].SpaceUnits = nil })
	c := New(catalog.Default())

	turn, _ := c.Begin(s, "red", "front", scripted(10))
	if r := turn.Move(fleetMoves("r-dn")); r.Status != StatusSucceeded {
		t.Fatalf("move: %v", r)
	}
	if r := turn.SpaceCombat(CombatChoices{}); r.Status != StatusSkipped {
		t.Fatalf("space combat: %v, want skipped", r)
	}
	r := turn.Invade(nil, CombatChoices{})
	if r.Status != StatusSucceeded || r.Reason == "" {
		t.Fatalf("invade: %v, want bombardment only", r)
	}
	report, final := turn.Complete()
	if len(report.Invasion) != 1 || report.Invasion[0].Hits("red") != 1 {
		t.Fatalf("invasion outcomes = %+v, want one bombardment hit", report.Invasion)
	}
	if _, _, ok := final.Locate("b-inf"); ok {
		t.Fatal("expected b-inf to be destroyed by bombardment")
	}
	if c, _ := final.Controller("arc"); c != "blue" {
		t.Fatalf("arc controller = %q, want blue", c)
	}
}

func TestInvasionSkippedWithoutBombardmentOrCommitments(t *testing.T) {
	s := fixture(t, func(s *galaxy.Setup) { s.Systems[1].SpaceUnits = nil })
	c := New(catalog.Default())

	turn, _ := c.Begin(s, "red", "front", scripted(1))
	turn.Move(fleetMoves("r-cv"))
	turn.SpaceCombat(CombatChoices{})
	if r := turn.Invade(nil, CombatChoices{}); r.Status != StatusSkipped {
		t.Fatalf("invade: %v, want skipped", r)
	}
}

func TestSpaceCombatSkippedWhenMovementLosesTheFleet(t *testing.T) {
	s := fixture(t, func(s *galaxy.Setup) {
		s.Systems[0].Anomalies = []galaxy.Anomaly{galaxy.GravityRift}
	})
	c := New(catalog.Default())

	// The only ship leaves a gravity rift and rolls a 2.
	turn, _ := c.Begin(s, "red", "front", scripted(2))
	if r := turn.Move(fleetMoves("r-dn")); r.Status != StatusSucceeded {
		t.Fatalf("move: %v", r)
	}
	if _, _, ok := turn.State().Locate("r-dn"); ok {
		t.Fatal("expected r-dn to be lost in the rift")
	}
	if r := turn.SpaceCombat(CombatChoices{}); r.Status != StatusSkipped {
		t.Fatalf("space combat: %v, want skipped", r)
	}
	_, final := turn.Complete()
	if _, _, ok := final.Locate("b-cru"); !ok {
		t.Fatal("expected b-cru to survive")
	}
}

func TestFailedPlacementIsRefunded(t *testing.T) {
	s := fixture(t, nil)
	c := New(catalog.Default())
	turn, _ := c.Begin(s, "red", "home", scripted(1))

	l := c.ledger
	res, err := l.Reserve(turn.state, production.Request{
		Player:   "red",
		System:   "home",
		Producer: "dock",
		Orders:   []production.Order{{Kind: galaxy.Cruiser, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	spend, err := l.Spend(res)
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	before := turn.state
	if err := turn.apply(spend); err != nil {
		t.Fatalf("apply spend: %v", err)
	}
	// Another unit takes the id reserved for the cruiser.
	taken := galaxy.Delta{Placements: []galaxy.Placement{{
		Unit: galaxy.Unit{ID: res.Units[0].ID, Kind: galaxy.Infantry, Owner: "blue"},
		At:   galaxy.OnPlanet("front", "arc"),
	}}}
	if err := turn.apply(taken); err != nil {
		t.Fatalf("apply collision: %v", err)
	}

	if err := turn.place(res, before); err == nil {
		t.Fatal("expected placement to fail")
	}
	if got := res.Stage(); got != "rolled_back" {
		t.Fatalf("stage = %s, want rolled_back", got)
	}
	home, _ := turn.state.System("home")
	jord, _ := home.Planet("jord")
	if jord.Exhausted {
		t.Fatal("expected jord to be refreshed by the refund")
	}
	if p, _ := turn.state.Player("red"); p.TradeGoods != 1 {
		t.Fatalf("trade goods = %d, want 1", p.TradeGoods)
	}
	if u, _, _ := turn.state.Locate(res.Units[0].ID); u.Kind != galaxy.Infantry {
		t.Fatalf("unit %s = %v, want the colliding infantry", res.Units[0].ID, u.Kind)
	}
}
