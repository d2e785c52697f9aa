package tactical

import (
	"fmt"

	"github.com/louisbranch/hexfleet/internal/core/dice"
	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/combat"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/movement"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/production"
)

// CombatChoices are the players' choices for combat and invasion steps.
type CombatChoices struct {
	// Assigners pick hit targets per firing player for every volley. A
	// missing entry uses combat.HighestCostFirst.
	Assigners map[galaxy.PlayerID]combat.HitAssigner `json:"-" yaml:"-"`
	// Rerolls are keyed by space combat round. Round 0 holds rerolls of
	// the anti-fighter barrage.
	Rerolls map[int]map[galaxy.PlayerID][]combat.Reroll `json:"rerolls,omitempty" yaml:"rerolls,omitempty"`
}

func (c CombatChoices) options(round int) combat.Options {
	return combat.Options{Assigners: c.Assigners, Rerolls: c.Rerolls[round]}
}

// assignOnly carries hit assignment without rerolls, for the invasion
// step.
func (c CombatChoices) assignOnly() combat.Options {
	return combat.Options{Assigners: c.Assigners}
}

// Turn is one tactical action in progress. Steps must be called in order;
// each may be called once. A turn is not safe for concurrent use.
type Turn struct {
	c      *Coordinator
	roller *dice.Roller

	player galaxy.PlayerID
	system galaxy.SystemID
	start  galaxy.GameState
	state  galaxy.GameState

	last   Step
	ended  bool
	report Report
}

// State returns the state after the last completed step.
func (t *Turn) State() galaxy.GameState { return t.state }

// Report returns the steps recorded so far.
func (t *Turn) Report() Report { return t.report }

func (t *Turn) record(r StepResult) StepResult {
	t.report.Steps = append(t.report.Steps, r)
	t.c.logf("%s %s/%s %s", t.report.Player, t.system, r.Step, r)
	return r
}

// enter checks that step may run now.
func (t *Turn) enter(step Step) (StepResult, bool) {
	if t.ended {
		return t.record(skipped(step, "tactical action has ended")), false
	}
	if order[step] <= order[t.last] {
		return outOfOrder(step, fmt.Sprintf("%s cannot run after %s", step, t.last)), false
	}
	t.last = step
	return StepResult{}, true
}

// fail records err. Fatal errors end the action and discard every change
// made since activation.
func (t *Turn) fail(step Step, err error) StepResult {
	if apperrors.IsFatal(err) {
		t.ended = true
		t.report.Aborted = true
		t.state = t.start
	}
	return t.record(failed(step, err))
}

func (t *Turn) apply(d galaxy.Delta) error {
	next, err := t.state.Apply(d)
	if err != nil {
		return err
	}
	t.state = next
	return nil
}

// Move executes the movement plan. An empty plan skips the step. A
// rejected plan ends the tactical action.
func (t *Turn) Move(moves []movement.Move) StepResult {
	if r, ok := t.enter(StepMovement); !ok {
		return r
	}
	if len(moves) == 0 {
		return t.record(skipped(StepMovement, "no moves"))
	}
	plan := movement.Plan{Player: t.player, ActiveSystem: t.system, Moves: moves}
	res, err := t.c.engine.Execute(t.state, plan, t.roller)
	if err != nil {
		t.ended = true
		return t.fail(StepMovement, err)
	}
	if err := t.apply(res.Delta); err != nil {
		return t.fail(StepMovement, err)
	}
	t.report.Movement = &res
	return t.record(succeeded(StepMovement))
}

// SpaceCombat fights space combat in the active system when the state
// after movement calls for it. Rounds continue until one side has no ships
// or the round limit is reached.
func (t *Turn) SpaceCombat(choices CombatChoices) StepResult {
	if r, ok := t.enter(StepSpaceCombat); !ok {
		return r
	}
	v := t.c.validator
	if !v.RequiresSpaceCombat(t.system, t.state) {
		return t.record(skipped(StepSpaceCombat, "no opposing ships"))
	}
	limit := t.c.catalog.Rules().MaxCombatRounds
	for round := 1; round <= limit && v.RequiresSpaceCombat(t.system, t.state); round++ {
		ctx, err := combat.NewSpaceContext(t.state, t.system, t.player, round, t.c.catalog)
		if err != nil {
			return t.fail(StepSpaceCombat, err)
		}
		if len(ctx.Attacker.Units) == 0 || len(ctx.Defender.Units) == 0 {
			// The acting player fields no ships of its own.
			break
		}
		if round == 1 {
			afb, err := t.c.resolver.AntiFighterBarrage(ctx, t.roller, choices.options(0))
			if err != nil {
				return t.fail(StepSpaceCombat, err)
			}
			if err := t.apply(afb.Delta); err != nil {
				return t.fail(StepSpaceCombat, err)
			}
			t.report.Combat = append(t.report.Combat, afb)
			if ctx, err = combat.NewSpaceContext(t.state, t.system, t.player, round, t.c.catalog); err != nil {
				return t.fail(StepSpaceCombat, err)
			}
			if len(ctx.Attacker.Units) == 0 || len(ctx.Defender.Units) == 0 {
				break
			}
		}
		out, err := t.c.resolver.SpaceCombatRound(ctx, t.roller, choices.options(round))
		if err != nil {
			return t.fail(StepSpaceCombat, err)
		}
		if err := t.apply(out.Delta); err != nil {
			return t.fail(StepSpaceCombat, err)
		}
		t.report.Combat = append(t.report.Combat, out)
	}
	r := succeeded(StepSpaceCombat)
	if !v.HasSpaceSuperiority(t.system, t.player, t.state) {
		r.Reason = "space superiority not established"
	}
	return t.record(r)
}

// Invade bombards, fires space cannon defense at the committed forces,
// lands the survivors and fights ground combat on each target planet.
// Bombardment only needs space superiority; without ground forces to
// commit the step ends after it.
func (t *Turn) Invade(commitments []combat.Commitment, choices CombatChoices) StepResult {
	if r, ok := t.enter(StepInvasion); !ok {
		return r
	}
	v := t.c.validator
	if !v.HasSpaceSuperiority(t.system, t.player, t.state) {
		return t.record(skipped(StepInvasion, "space superiority lost"))
	}
	landing := ""
	switch {
	case !v.CanCommitGroundForces(t.system, t.player, t.state):
		landing = "no ground forces to commit"
	case len(commitments) == 0:
		landing = "no commitments"
	default:
		if err := combat.CheckCommitments(t.state, t.system, t.player, commitments); err != nil {
			return t.fail(StepInvasion, err)
		}
	}

	bombard, err := t.c.resolver.Bombardment(t.state, t.system, t.player, t.roller, choices.assignOnly())
	if err != nil {
		return t.fail(StepInvasion, err)
	}
	if err := t.apply(bombard.Delta); err != nil {
		return t.fail(StepInvasion, err)
	}
	if landing != "" {
		if len(bombard.Fire) == 0 {
			return t.record(skipped(StepInvasion, landing))
		}
		t.report.Invasion = append(t.report.Invasion, bombard)
		r := succeeded(StepInvasion)
		r.Reason = "bombardment only: " + landing
		return t.record(r)
	}
	t.report.Invasion = append(t.report.Invasion, bombard)

	cannon, err := t.c.resolver.SpaceCannonDefense(t.state, t.system, t.player, commitments, t.roller, choices.assignOnly())
	if err != nil {
		return t.fail(StepInvasion, err)
	}
	if err := t.apply(cannon.Delta); err != nil {
		return t.fail(StepInvasion, err)
	}
	t.report.Invasion = append(t.report.Invasion, cannon)

	var landed []combat.Commitment
	var planets []galaxy.PlanetID
	for _, c := range commitments {
		if _, _, ok := t.state.Locate(c.Unit); !ok {
			continue
		}
		landed = append(landed, c)
		if !containsPlanet(planets, c.Planet) {
			planets = append(planets, c.Planet)
		}
	}
	if err := t.apply(combat.Landing(t.state, landed)); err != nil {
		return t.fail(StepInvasion, err)
	}

	limit := t.c.catalog.Rules().MaxCombatRounds
	for _, planet := range planets {
		for round := 1; round <= limit; round++ {
			ctx, err := combat.NewGroundContext(t.state, planet, t.player, round)
			if err != nil {
				return t.fail(StepInvasion, err)
			}
			if len(ctx.Attacker.Units) == 0 || len(ctx.Defender.Units) == 0 {
				break
			}
			out, err := t.c.resolver.GroundCombatRound(ctx, t.roller, choices.assignOnly())
			if err != nil {
				return t.fail(StepInvasion, err)
			}
			if err := t.apply(out.Delta); err != nil {
				return t.fail(StepInvasion, err)
			}
			t.report.Invasion = append(t.report.Invasion, out)
		}
		if err := t.apply(combat.Settle(t.state, planet, t.player)); err != nil {
			return t.fail(StepInvasion, err)
		}
	}
	return t.record(succeeded(StepInvasion))
}

func containsPlanet(list []galaxy.PlanetID, id galaxy.PlanetID) bool {
	for _, p := range list {
		if p == id {
			return true
		}
	}
	return false
}

// Produce resolves each request on its own: a rejected request is
// recorded and the next one still runs. The step fails only when every
// request failed.
func (t *Turn) Produce(requests []production.Request) StepResult {
	if r, ok := t.enter(StepProduction); !ok {
		return r
	}
	if len(requests) == 0 {
		return t.record(skipped(StepProduction, "no production requested"))
	}
	if !t.hasProducer() {
		return t.record(skipped(StepProduction, "no unit with production in "+string(t.system)))
	}

	ok := 0
	var lastErr error
	for _, req := range requests {
		if req.Player == "" {
			req.Player = t.player
		}
		if req.System == "" {
			req.System = t.system
		}
		pr, err := t.produce(req)
		if err != nil && apperrors.IsFatal(err) {
			return t.fail(StepProduction, err)
		}
		if err != nil {
			lastErr = err
		} else {
			ok++
		}
		t.report.Production = append(t.report.Production, pr)
	}
	if ok == 0 {
		return t.record(failed(StepProduction, lastErr))
	}
	r := succeeded(StepProduction)
	if ok < len(requests) {
		r.Reason = fmt.Sprintf("%d of %d requests rejected", len(requests)-ok, len(requests))
	}
	return t.record(r)
}

func (t *Turn) hasProducer() bool {
	sys, _ := t.state.System(t.system)
	for _, u := range sys.Units() {
		if u.Owner == t.player && t.c.validator.CanResolveProductionAbilities(u, t.state) {
			return true
		}
	}
	return false
}

func (t *Turn) produce(req production.Request) (ProductionResult, error) {
	pr := ProductionResult{Request: req, Status: StatusFailed}
	reject := func(err error) (ProductionResult, error) {
		pr.Code = apperrors.CodeOf(err)
		pr.Reason = err.Error()
		return pr, err
	}
	if req.System != t.system {
		return reject(apperrors.WithMetadata(apperrors.CodeProductionNoProducer,
			fmt.Sprintf("production must resolve in the active system %s", t.system),
			map[string]string{apperrors.MetaSystemID: string(req.System)}))
	}
	l := t.c.ledger
	res, err := l.Reserve(t.state, req)
	if err != nil {
		return reject(err)
	}
	pr.Reservation = res.ID
	spend, err := l.Spend(res)
	if err != nil {
		return reject(err)
	}
	before := t.state
	if err := t.apply(spend); err != nil {
		return reject(err)
	}
	if err := t.place(res, before); err != nil {
		return reject(err)
	}
	pr.Status = StatusSucceeded
	pr.Cost = res.Cost
	pr.Units = res.Units
	return pr, nil
}

// place applies the placement of a spent reservation and commits it. A
// failed placement is refunded; when the refund cannot be applied the
// state falls back to before, the state prior to the spend.
func (t *Turn) place(res *production.Reservation, before galaxy.GameState) error {
	l := t.c.ledger
	if err := t.apply(res.Placement()); err != nil {
		refund, rbErr := l.Rollback(res)
		if rbErr != nil || t.apply(refund) != nil {
			t.state = before
		}
		return err
	}
	if _, err := l.Commit(res); err != nil {
		t.state = before
		return err
	}
	return nil
}

// Complete ends the action, clears the active system and returns the
// report with the final state. After a fatal error the final state is the
// state before activation.
func (t *Turn) Complete() (Report, galaxy.GameState) {
	if t.last == StepCompleted {
		return t.report, t.state
	}
	t.last = StepCompleted
	if t.report.Aborted {
		t.record(skipped(StepCompleted, "aborted"))
		return t.report, t.state
	}
	t.ended = true
	if err := t.apply(galaxy.Delta{ClearActive: true}); err != nil {
		t.fail(StepCompleted, err)
		return t.report, t.state
	}
	t.record(succeeded(StepCompleted))
	return t.report, t.state
}
